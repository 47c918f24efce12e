package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	natsbus "github.com/dov85/Apartment/internal/adapter/messaging/nats"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Reload the collection whenever the bridge reports a change",
	Long: `Subscribe to the bridge's change events on NATS and reload the
collection each time the shared document is saved. Runs until interrupted.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if cfg.NATS.URL == "" {
			return errors.New("watch needs nats.url")
		}
		if _, err := client.engine.Load(ctx); err != nil {
			return err
		}

		nc, err := natsbus.Connect(cfg.NATS, "flatctl-watch", client.log)
		if err != nil {
			return err
		}
		defer nc.Close()

		out := cmd.OutOrStdout()
		fmt.Fprintln(cmd.ErrOrStderr(), successLine("Watching %s (Ctrl+C to stop)", accent.Render(natsbus.DocumentUpdatedSubject)))
		err = natsbus.SubscribeDocumentUpdated(ctx, nc, client.log, func(ev natsbus.DocumentUpdatedEvent) {
			c, err := client.engine.Load(ctx)
			if err != nil {
				client.log.Warn("Reload after change event failed", zap.Error(err))
				return
			}
			fmt.Fprintln(out, successLine("Reloaded %d listing(s) from %s", len(c), client.engine.Source()))
		})
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
