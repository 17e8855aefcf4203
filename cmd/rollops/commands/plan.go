package commands

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/systmms/rollops/internal/config"
	"github.com/systmms/rollops/internal/rollout"
)

// NewPlanCommand creates the plan command
func NewPlanCommand(cfg *config.Config) *cobra.Command {
	var (
		strategy      string
		maxWeight     int
		totalDuration time.Duration
		stepInterval  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Print the traffic checkpoint plan for a strategy",
		Long: `Compute and print the ordered weight checkpoints a rollout would follow,
without touching the platform. Useful for sanity-checking duration and
interval choices before starting a real rollout.`,
		Example: `  # The default linear plan
  rollops plan --strategy linear --duration 20m --interval 5m

  # Exponential capped at 80%
  rollops plan --strategy exponential --max-weight 80 --interval 5m`,
		RunE: func(cmd *cobra.Command, args []string) error {
			// The config file is optional here; its defaults still apply
			// when present.
			spec := rollout.Spec{
				Strategy:      rollout.Strategy(strategy),
				MaxWeight:     maxWeight,
				TotalDuration: totalDuration,
				StepInterval:  stepInterval,
			}
			if err := cfg.Load(); err == nil {
				cfg.ApplyDefaults(&spec)
			} else if spec.Strategy == "" {
				spec.Strategy = rollout.StrategyLinear
			}
			applyPlanFallbacks(&spec)

			if spec.Strategy == rollout.StrategyManual {
				fmt.Fprintln(os.Stdout, "Manual strategy: no precomputed plan. Weights come from 'rollops set-weight'.")
				return nil
			}

			checkpoints, err := rollout.PlanCheckpoints(spec.Strategy, spec.MaxWeight, spec.TotalDuration, spec.StepInterval)
			if err != nil {
				return ExitError{Code: ExitInvalidSpec, Message: err.Error()}
			}

			fmt.Fprintf(os.Stdout, "Plan (%s, max %d%%):\n\n", spec.Strategy, spec.MaxWeight)
			printCheckpointTable(checkpoints)
			return nil
		},
	}

	cmd.Flags().StringVar(&strategy, "strategy", "", "Traffic shift strategy: linear, exponential, manual")
	cmd.Flags().IntVar(&maxWeight, "max-weight", 0, "Highest candidate traffic percentage (1-100)")
	cmd.Flags().DurationVar(&totalDuration, "duration", 0, "Intended length of the whole shift")
	cmd.Flags().DurationVar(&stepInterval, "interval", 0, "Hold time at each checkpoint")

	return cmd
}

// applyPlanFallbacks fills whatever ApplyDefaults could not, so plan works
// with no config file at all.
func applyPlanFallbacks(spec *rollout.Spec) {
	if spec.MaxWeight == 0 {
		spec.MaxWeight = 100
	}
	if spec.TotalDuration == 0 {
		spec.TotalDuration = 20 * time.Minute
	}
	if spec.StepInterval == 0 {
		spec.StepInterval = 5 * time.Minute
	}
}
