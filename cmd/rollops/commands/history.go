package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/systmms/rollops/internal/config"
	"github.com/systmms/rollops/internal/storage"
)

// NewHistoryCommand creates the history command
func NewHistoryCommand(cfg *config.Config) *cobra.Command {
	var (
		limit         int
		historyFormat string
	)

	cmd := &cobra.Command{
		Use:   "history <service>",
		Short: "Show weight transitions for past and current rollouts",
		Long: `List the recorded weight transitions for a service, newest first. Each
entry shows the step, the weight change, and the phase it happened in.`,
		Example: `  # The last 20 transitions
  rollops history scoring-api

  # Everything, as JSON
  rollops history scoring-api --limit 0 --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = cfg.Load()

			store := cfg.Store()
			entries, err := store.GetHistory(args[0], limit)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintf(os.Stdout, "No history recorded for service %q\n", args[0])
				return nil
			}

			if historyFormat == "json" {
				encoder := json.NewEncoder(os.Stdout)
				encoder.SetIndent("", "  ")
				return encoder.Encode(entries)
			}

			printHistoryTable(entries)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum entries to show (0 for all)")
	cmd.Flags().StringVar(&historyFormat, "format", "table", "Output format: table, json")

	return cmd
}

func printHistoryTable(entries []storage.HistoryEntry) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	defer w.Flush()

	fmt.Fprintln(w, "TIME\tSTEP\tWEIGHT\tPHASE\tREASON")
	fmt.Fprintln(w, "----\t----\t------\t-----\t------")
	for _, entry := range entries {
		fmt.Fprintf(w, "%s\t%d\t%d%% → %d%%\t%s\t%s\n",
			entry.Timestamp.Format(time.RFC3339),
			entry.Step,
			entry.FromWeight,
			entry.ToWeight,
			entry.Phase,
			entry.Reason,
		)
	}
}

// NewCleanupCommand creates the cleanup command
func NewCleanupCommand(cfg *config.Config) *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Remove old rollout history entries",
		Long: `Delete history entries older than the retention window from the local
state store and, when configured, the Postgres audit trail.`,
		Example: `  # Use the configured retention
  rollops cleanup

  # Explicit cutoff
  rollops cleanup --older-than 168h`,
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = cfg.Load()

			cutoff := olderThan
			if cutoff == 0 {
				cutoff = time.Duration(cfg.RetentionDays()) * 24 * time.Hour
			}

			store := cfg.Store()
			if err := store.CleanupOldEntries(cutoff); err != nil {
				return err
			}

			audit, err := cfg.Audit()
			if err != nil {
				return err
			}
			if audit != nil {
				defer audit.Close()
				if err := audit.CleanupOldEntries(cutoff); err != nil {
					return err
				}
			}

			cfg.Logger.Info("removed history entries older than %s", cutoff)
			return nil
		},
	}

	cmd.Flags().DurationVar(&olderThan, "older-than", 0, "Delete entries older than this (default: configured retention)")

	return cmd
}
