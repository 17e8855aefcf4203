package commands

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/systmms/rollops/internal/config"
	"github.com/systmms/rollops/internal/rollout"
)

// Exit codes reported to calling automation. A rolled-back rollout is a
// controlled outcome, distinct from a bad invocation or broken infrastructure.
const (
	ExitPromoted       = 0
	ExitRolledBack     = 1
	ExitInvalidSpec    = 2
	ExitInfrastructure = 3
)

// ExitError carries a process exit code out of a command.
type ExitError struct {
	Code    int
	Message string
}

func (e ExitError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("exit code %d", e.Code)
}

// specFlags holds the rollout flags shared by start and plan.
type specFlags struct {
	service          string
	stable           string
	candidate        string
	image            string
	strategy         string
	maxWeight        int
	totalDuration    time.Duration
	stepInterval     time.Duration
	readinessTimeout time.Duration
	cpu              string
	memory           string
}

func (f *specFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.service, "service", "", "Service whose traffic is shifted (required)")
	cmd.Flags().StringVar(&f.stable, "stable", "", "Revision currently serving 100% of traffic (required)")
	cmd.Flags().StringVar(&f.candidate, "candidate", "", "Name for the new candidate revision (required)")
	cmd.Flags().StringVar(&f.image, "image", "", "Image the candidate revision runs (required)")
	cmd.Flags().StringVar(&f.strategy, "strategy", "", "Traffic shift strategy: linear, exponential, manual")
	cmd.Flags().IntVar(&f.maxWeight, "max-weight", 0, "Highest candidate traffic percentage (1-100)")
	cmd.Flags().DurationVar(&f.totalDuration, "duration", 0, "Intended length of the whole shift")
	cmd.Flags().DurationVar(&f.stepInterval, "interval", 0, "Hold time at each checkpoint")
	cmd.Flags().DurationVar(&f.readinessTimeout, "readiness-timeout", 0, "Bound on the wait for candidate readiness")
	cmd.Flags().StringVar(&f.cpu, "cpu", "", "CPU limit for the candidate revision")
	cmd.Flags().StringVar(&f.memory, "memory", "", "Memory limit for the candidate revision")
}

// toSpec builds a rollout spec from the flags, filling gaps from the config
// file's defaults section.
func (f *specFlags) toSpec(cfg *config.Config) rollout.Spec {
	spec := rollout.Spec{
		Service:           f.service,
		StableRevision:    f.stable,
		CandidateRevision: f.candidate,
		CandidateImage:    f.image,
		Strategy:          rollout.Strategy(f.strategy),
		MaxWeight:         f.maxWeight,
		TotalDuration:     f.totalDuration,
		StepInterval:      f.stepInterval,
		ReadinessTimeout:  f.readinessTimeout,
	}
	spec.Resources.CPU = f.cpu
	spec.Resources.Memory = f.memory
	cfg.ApplyDefaults(&spec)
	return spec
}

// printCheckpointTable renders a checkpoint plan for operator eyes.
func printCheckpointTable(checkpoints []rollout.Checkpoint) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	defer w.Flush()

	fmt.Fprintln(w, "STEP\tWEIGHT\tHOLD\tELAPSED")
	fmt.Fprintln(w, "----\t------\t----\t-------")
	elapsed := time.Duration(0)
	for i, checkpoint := range checkpoints {
		elapsed += checkpoint.Hold
		fmt.Fprintf(w, "%d\t%d%%\t%s\t%s\n", i+1, checkpoint.Weight, checkpoint.Hold, elapsed)
	}
}
