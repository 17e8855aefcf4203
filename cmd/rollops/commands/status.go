package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/systmms/rollops/internal/config"
	"github.com/systmms/rollops/internal/storage"
)

// NewStatusCommand creates the status command
func NewStatusCommand(cfg *config.Config) *cobra.Command {
	var statusFormat string

	cmd := &cobra.Command{
		Use:   "status <service>",
		Short: "Show the current rollout status for a service",
		Long: `Display the persisted rollout snapshot for a service: phase, current
candidate weight, step index, and terminal reason if the rollout finished.`,
		Example: `  # Show status as a table
  rollops status scoring-api

  # Machine-readable status
  rollops status scoring-api --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			// The config file is optional: status only needs the state dir.
			_ = cfg.Load()

			store := cfg.Store()
			status, err := store.GetStatus(args[0])
			if err != nil {
				return err
			}
			if status == nil {
				return fmt.Errorf("no rollout state found for service %q", args[0])
			}

			switch statusFormat {
			case "json":
				encoder := json.NewEncoder(os.Stdout)
				encoder.SetIndent("", "  ")
				return encoder.Encode(status)
			case "yaml":
				return yaml.NewEncoder(os.Stdout).Encode(status)
			default:
				printStatusTable(status)
				return nil
			}
		},
	}

	cmd.Flags().StringVar(&statusFormat, "format", "table", "Output format: table, json, yaml")

	return cmd
}

func printStatusTable(status *storage.RolloutStatus) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	defer w.Flush()

	phase := status.Phase
	if status.Idle {
		phase += " (idle, waiting for set-weight)"
	}

	fmt.Fprintf(w, "Service:\t%s\n", status.Service)
	fmt.Fprintf(w, "Candidate:\t%s\n", status.Candidate)
	fmt.Fprintf(w, "Strategy:\t%s\n", status.Strategy)
	fmt.Fprintf(w, "Phase:\t%s\n", phase)
	fmt.Fprintf(w, "Weight:\t%d%% of max %d%%\n", status.CurrentWeight, status.MaxWeight)
	fmt.Fprintf(w, "Step:\t%d\n", status.Step)
	if status.Reason != "" {
		fmt.Fprintf(w, "Reason:\t%s\n", status.Reason)
	}
	fmt.Fprintf(w, "Started:\t%s\n", status.StartedAt.Format(time.RFC3339))
	fmt.Fprintf(w, "Updated:\t%s\n", status.UpdatedAt.Format(time.RFC3339))
}
