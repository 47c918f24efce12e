package cli

import (
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/dov85/Apartment/internal/listing/domain"
	"github.com/dov85/Apartment/internal/resolver"
)

var imageGetOutput string

var imagesCmd = &cobra.Command{
	Use:   "images",
	Short: "Manage the images of a listing",
	Long: `Manage the images of a listing. Positions start at 1; position 1 is the
cover image.`,
}

var imagesAddCmd = &cobra.Command{
	Use:   "add <id> <file>...",
	Short: "Upload image files and append them to a listing",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		p := newPrinter(cmd)
		ctx := cmd.Context()
		if _, err := client.load(ctx); err != nil {
			return p.fail(err)
		}
		payloads, err := readImageFiles(args[1:])
		if err != nil {
			return p.fail(err)
		}
		l, err := client.listings.AddImages(ctx, args[0], payloads)
		if err := p.saved(err); err != nil {
			return p.fail(err)
		}
		return p.done(l, func(w io.Writer) {
			fmt.Fprintln(w, successLine("Added %d image(s); %s now has %d", len(payloads), l.ID, len(l.Images)))
		})
	},
}

var imagesRemoveCmd = &cobra.Command{
	Use:   "remove <id> <position>",
	Short: "Remove one image from a listing",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		p := newPrinter(cmd)
		ctx := cmd.Context()
		pos, err := parsePosition(args[1])
		if err != nil {
			return p.fail(err)
		}
		if _, err := client.load(ctx); err != nil {
			return p.fail(err)
		}
		l, err := client.listings.RemoveImage(ctx, args[0], pos)
		if err := p.saved(err); err != nil {
			return p.fail(err)
		}
		return p.done(l, func(w io.Writer) {
			fmt.Fprintln(w, successLine("Removed image %s from %s", args[1], l.ID))
		})
	},
}

var imagesReorderCmd = &cobra.Command{
	Use:   "reorder <id> <from> <to>",
	Short: "Move an image to another position",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		p := newPrinter(cmd)
		ctx := cmd.Context()
		from, err := parsePosition(args[1])
		if err != nil {
			return p.fail(err)
		}
		to, err := parsePosition(args[2])
		if err != nil {
			return p.fail(err)
		}
		if _, err := client.load(ctx); err != nil {
			return p.fail(err)
		}
		l, err := client.listings.ReorderImages(ctx, args[0], from, to)
		if err := p.saved(err); err != nil {
			return p.fail(err)
		}
		return p.done(l, func(w io.Writer) {
			fmt.Fprintln(w, successLine("Moved image %s to %s", args[1], args[2]))
		})
	},
}

var imagesPrimaryCmd = &cobra.Command{
	Use:   "primary <id> <position>",
	Short: "Make an image the cover image",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		p := newPrinter(cmd)
		ctx := cmd.Context()
		pos, err := parsePosition(args[1])
		if err != nil {
			return p.fail(err)
		}
		if _, err := client.load(ctx); err != nil {
			return p.fail(err)
		}
		l, err := client.listings.SetPrimary(ctx, args[0], pos)
		if err := p.saved(err); err != nil {
			return p.fail(err)
		}
		return p.done(l, func(w io.Writer) {
			fmt.Fprintln(w, successLine("Image %s is now the cover of %s", args[1], l.ID))
		})
	},
}

var imageCmd = &cobra.Command{
	Use:   "image",
	Short: "Inspect a single image reference",
}

var imageURLCmd = &cobra.Command{
	Use:   "url <ref>",
	Short: "Print a displayable URL for an image reference",
	Long: `Print a URL for an image reference as stored in a listing, e.g.
"lq3k2x1a-9fz0ke.jpg", "local:old.jpg" or "idb:42".`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p := newPrinter(cmd)
		ref, err := domain.ParseImageRef(args[0])
		if err != nil {
			return p.fail(err)
		}
		u, ok := client.resolver.Resolve(cmd.Context(), ref)
		if !ok {
			return p.fail(fmt.Errorf("%w: %s cannot be displayed on this device", domain.ErrImageNotFound, args[0]))
		}
		return p.done(map[string]string{"ref": args[0], "url": u}, func(w io.Writer) {
			fmt.Fprintln(w, u)
		})
	},
}

var imageGetCmd = &cobra.Command{
	Use:   "get <ref>",
	Short: "Download the bytes behind an image reference",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p := newPrinter(cmd)
		ref, err := domain.ParseImageRef(args[0])
		if err != nil {
			return p.fail(err)
		}
		data, mimeType, err := client.resolver.Fetch(cmd.Context(), ref)
		if err != nil {
			return p.fail(err)
		}

		out := imageGetOutput
		if out == "" {
			out = defaultImageName(ref, mimeType)
		}
		if err := os.WriteFile(out, data, 0o644); err != nil {
			return p.fail(err)
		}
		info := map[string]any{"ref": args[0], "file": out, "mimeType": mimeType, "bytes": len(data)}
		return p.done(info, func(w io.Writer) {
			fmt.Fprintln(w, successLine("Wrote %d bytes to %s", len(data), accent.Render(out)))
		})
	},
}

// parsePosition converts a 1-based position into an index.
func parsePosition(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%w: position must be a number starting at 1, got %q", domain.ErrInvalidListingData, s)
	}
	return n - 1, nil
}

func readImageFiles(paths []string) ([]resolver.Payload, error) {
	payloads := make([]resolver.Payload, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read image %s: %w", path, err)
		}
		payloads = append(payloads, resolver.Payload{
			Data:     data,
			MIMEType: imageMIMEType(path, data),
			Name:     filepath.Base(path),
		})
	}
	return payloads, nil
}

func imageMIMEType(path string, data []byte) string {
	if t := mime.TypeByExtension(filepath.Ext(path)); t != "" {
		return t
	}
	return http.DetectContentType(data)
}

func defaultImageName(ref domain.ImageRef, mimeType string) string {
	switch ref.Kind {
	case domain.RefRemote, domain.RefLocalFile:
		return filepath.Base(ref.Key)
	}
	ext := ".bin"
	if exts, _ := mime.ExtensionsByType(mimeType); len(exts) > 0 {
		ext = exts[0]
	}
	return "image" + ext
}

func init() {
	imageGetCmd.Flags().StringVarP(&imageGetOutput, "output", "o", "", "File to write (default: derived from the reference)")

	imagesCmd.AddCommand(imagesAddCmd)
	imagesCmd.AddCommand(imagesRemoveCmd)
	imagesCmd.AddCommand(imagesReorderCmd)
	imagesCmd.AddCommand(imagesPrimaryCmd)
	imageCmd.AddCommand(imageURLCmd)
	imageCmd.AddCommand(imageGetCmd)

	rootCmd.AddCommand(imagesCmd)
	rootCmd.AddCommand(imageCmd)
}
