package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/dov85/Apartment/internal/adapter/storage/s3"
)

var errNoStorageCredential = errors.New("storage statistics need storage.endpoint, storage.access_key and storage.secret_key")

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show how much the shared object store holds",
	Long: `Count the files and bytes under the document and image folders of the
shared object store. Requires a storage credential in the configuration.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		p := newPrinter(cmd)
		if client.direct == nil {
			return p.fail(errNoStorageCredential)
		}
		st, err := s3.Stats(cmd.Context(), client.direct)
		if err != nil {
			return p.fail(err)
		}
		return p.done(st, func(w io.Writer) {
			fmt.Fprintln(w, bold.Render("Storage"))
			fmt.Fprintf(w, "  documents  %d file(s), %s\n", st.Documents.Files, humanize.IBytes(uint64(st.Documents.Bytes)))
			fmt.Fprintf(w, "  images     %d file(s), %s\n", st.Images.Files, humanize.IBytes(uint64(st.Images.Bytes)))
			fmt.Fprintf(w, "  total      %s\n", accent.Render(humanize.IBytes(uint64(st.TotalBytes()))))
		})
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
