package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/systmms/rollops/cmd/rollops/commands"
	"github.com/systmms/rollops/internal/config"
	"github.com/systmms/rollops/internal/logging"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := run(); err != nil {
		var exitErr commands.ExitError
		if errors.As(err, &exitErr) {
			if exitErr.Message != "" {
				fmt.Fprintf(os.Stderr, "Error: %s\n", exitErr.Message)
			}
			os.Exit(exitErr.Code)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(commands.ExitInfrastructure)
	}
}

func run() error {
	// Global flags
	var (
		configFile string
		noColor    bool
		debug      bool
	)

	// Create config placeholder
	cfg := &config.Config{}

	rootCmd := &cobra.Command{
		Use:   "rollops",
		Short: "Progressive delivery - Shift traffic to new revisions behind a health gate",
		Long: `rollops rolls a new service revision out gradually: traffic shifts to the
candidate in checkpointed steps, a health gate evaluates error rate, latency,
and model quality after every step, and the rollout promotes on sustained
health or rolls back on the first breach.`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Initialize logger with parsed flags
			logger := logging.New(debug, noColor)

			cfg.Path = configFile
			cfg.Logger = logger
		},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "rollops.yaml", "Config file path")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")

	rootCmd.AddCommand(
		commands.NewStartCommand(cfg),
		commands.NewPlanCommand(cfg),
		commands.NewStatusCommand(cfg),
		commands.NewSetWeightCommand(cfg),
		commands.NewAbortCommand(cfg),
		commands.NewHistoryCommand(cfg),
		commands.NewCleanupCommand(cfg),
	)

	return rootCmd.Execute()
}
