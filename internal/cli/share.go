package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	redisstore "github.com/dov85/Apartment/internal/adapter/kv/redis"
	"github.com/dov85/Apartment/internal/docsync"
)

var shareCode string

var shareCmd = &cobra.Command{
	Use:   "share",
	Short: "Keep this device in step with others through a share code",
	Long: `Run the share loop until interrupted. Every interval the snapshot stored
under the share code is pulled and adopted when it changed, and local
changes are pushed back.

Examples:
  flatctl share --code family-hunt
  FLAT_SHARE_CODE=family-hunt flatctl share`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		code := shareCode
		if code == "" {
			code = cfg.Share.Code
		}
		if code == "" {
			return errors.New("no share code: pass --code or set share.code")
		}
		if _, err := client.load(ctx); err != nil {
			return err
		}

		rdb, err := redisstore.NewClient(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		defer func() {
			if err := rdb.Close(); err != nil {
				client.log.Warn("Failed to close redis client", zap.Error(err))
			}
		}()

		loop := docsync.NewShareLoop(client.engine, redisstore.NewShareStore(rdb, client.log), code, cfg.Share.Interval, client.log)
		fmt.Fprintln(cmd.ErrOrStderr(), successLine("Sharing as %s every %s (Ctrl+C to stop)", accent.Render(code), cfg.Share.Interval))
		return loop.Run(ctx)
	},
}

func init() {
	shareCmd.Flags().StringVar(&shareCode, "code", "", "Share code (default: share.code from config)")
	rootCmd.AddCommand(shareCmd)
}
