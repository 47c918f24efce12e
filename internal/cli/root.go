// Package cli implements the flatctl command-line interface.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dov85/Apartment/internal/config"
	"github.com/dov85/Apartment/internal/platform/logger"
)

var (
	// Global flags
	configPath string
	jsonOutput bool
	verbose    bool

	cfg    *config.Config
	client *Client
)

var rootCmd = &cobra.Command{
	Use:   "flatctl",
	Short: "Track apartment listings across devices",
	Long: `flatctl keeps a list of apartment listings in sync between this device,
the shared object store and, when one is running, the storage bridge.

The collection is cached on this device, so every command works offline;
changes are pushed to the shared copy whenever it is reachable.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		switch cmd.Name() {
		case "help", "completion":
			return nil
		}

		var err error
		cfg, err = config.LoadConfig(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if err := cfg.ValidateClient(); err != nil {
			return err
		}

		logCfg := cfg.Logger
		logCfg.OutputFile = "stderr"
		logCfg.Format = "console"
		if verbose {
			logCfg.Level = "debug"
		} else {
			logCfg.Level = "warn"
		}
		log, err := logger.New(logCfg)
		if err != nil {
			return err
		}

		client, err = newClient(cfg, log, cmd.ErrOrStderr())
		return err
	},
}

// Execute runs the root command and releases the client afterwards, also
// when the command failed.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	defer closeClient()
	return rootCmd.ExecuteContext(ctx)
}

func closeClient() {
	if client != nil {
		client.Close()
		client = nil
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", os.Getenv("CONFIG_PATH"), "Path to config file or directory")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug output to stderr")
}

func newPrinter(cmd *cobra.Command) *printer {
	return &printer{w: cmd.OutOrStdout(), json: jsonOutput}
}
