// Package cli holds the command line entry points of the bot.
package cli

import (
	"fmt"
	"os"

	"github.com/BatmanBruc/sub-pay-bot/internal/config"
	"github.com/spf13/cobra"
)

var Version = "dev"

var envFile string

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "sub-pay-bot",
		Short:         "Telegram subscription bot with Lava payments",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.LoadEnvFile(envFile); err != nil {
				return fmt.Errorf("load env file %q: %w", envFile, err)
			}
			return nil
		},
		RunE: runServe,
	}
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "config.env", "optional env file; process variables take precedence")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(plansCmd())
	return rootCmd
}

// Execute runs the root command; with no subcommand it serves.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
