package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/systmms/rollops/internal/config"
	rerrors "github.com/systmms/rollops/internal/errors"
	"github.com/systmms/rollops/internal/rollout"
	"github.com/systmms/rollops/internal/storage"
)

// NewStartCommand creates the start command
func NewStartCommand(cfg *config.Config) *cobra.Command {
	var (
		flags  specFlags
		dryRun bool
	)

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start a progressive rollout of a candidate revision",
		Long: `Create the candidate revision, shift traffic to it in checkpointed steps,
and evaluate the health gate after every step. The command blocks until the
rollout reaches a terminal phase.

Exit codes:
  0  candidate promoted to stable
  1  rolled back, stable serving 100% again
  2  invalid rollout parameters
  3  rollback failed or infrastructure error`,
		Example: `  # Linear shift to 100% over 20 minutes in 5-minute steps
  rollops start --service scoring-api --stable scoring-api-v41 \
    --candidate scoring-api-v42 --image registry.local/scoring-api:v42 \
    --strategy linear --duration 20m --interval 5m

  # Exponential shift capped at 80%
  rollops start --service scoring-api --stable scoring-api-v41 \
    --candidate scoring-api-v42 --image registry.local/scoring-api:v42 \
    --strategy exponential --max-weight 80

  # Manual rollout: weights come from 'rollops set-weight'
  rollops start --service scoring-api --stable scoring-api-v41 \
    --candidate scoring-api-v42 --image registry.local/scoring-api:v42 \
    --strategy manual`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Load(); err != nil {
				return err
			}

			spec := flags.toSpec(cfg)
			if err := spec.Validate(); err != nil {
				return ExitError{Code: ExitInvalidSpec, Message: err.Error()}
			}

			if dryRun {
				return printPlan(spec)
			}

			return runRollout(cmd, cfg, spec)
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the checkpoint plan without touching the platform")

	for _, required := range []string{"service", "stable", "candidate", "image"} {
		_ = cmd.MarkFlagRequired(required)
	}

	return cmd
}

func runRollout(cmd *cobra.Command, cfg *config.Config, spec rollout.Spec) error {
	router, err := cfg.RouterClient()
	if err != nil {
		return err
	}
	revisions, err := cfg.RevisionClient()
	if err != nil {
		return err
	}
	metrics, err := cfg.MetricsProvider()
	if err != nil {
		return err
	}
	store := cfg.Store()

	var audit storage.HistorySink
	auditSink, err := cfg.Audit()
	if err != nil {
		return err
	}
	if auditSink != nil {
		audit = auditSink
		defer auditSink.Close()
	}

	// SIGINT and SIGTERM cancel the context; the controller turns that into
	// a rollback before exiting.
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metricsServer := cfg.MetricsServer()
	if err := metricsServer.Start(); err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Stop(shutdownCtx)
	}()

	notifier, err := cfg.NotificationManager()
	if err != nil {
		return err
	}
	if notifier != nil {
		notifier.Start(ctx)
		defer notifier.Stop()
	}

	controller, err := rollout.NewController(spec, rollout.Config{
		Revisions: revisions,
		Router:    router,
		Metrics:   metrics,
		Store:     store,
		Audit:     audit,
		Notifier:  notifier,
		Logger:    cfg.Logger,
		Retry:     cfg.RetryConfig(),
	})
	if err != nil {
		if rerrors.IsInvalidSpec(err) {
			return ExitError{Code: ExitInvalidSpec, Message: err.Error()}
		}
		return err
	}

	outcome, err := controller.Run(ctx)
	if err != nil {
		if rerrors.IsRollbackFailure(err) {
			return ExitError{Code: ExitInfrastructure, Message: err.Error()}
		}
		return err
	}

	switch outcome.Phase {
	case rollout.PhasePromoted:
		cfg.Logger.Info("%s: rollout finished: promoted", spec.Service)
		return nil
	default:
		return ExitError{
			Code:    ExitRolledBack,
			Message: fmt.Sprintf("%s rolled back: %s", spec.Service, outcome.Reason),
		}
	}
}

func printPlan(spec rollout.Spec) error {
	if spec.Strategy == rollout.StrategyManual {
		fmt.Fprintln(os.Stdout, "Manual strategy: no precomputed plan. Weights come from 'rollops set-weight'.")
		return nil
	}

	checkpoints, err := rollout.PlanCheckpoints(spec.Strategy, spec.MaxWeight, spec.TotalDuration, spec.StepInterval)
	if err != nil {
		return ExitError{Code: ExitInvalidSpec, Message: err.Error()}
	}

	fmt.Fprintf(os.Stdout, "Rollout plan for %s (%s, max %d%%):\n\n", spec.Service, spec.Strategy, spec.MaxWeight)
	printCheckpointTable(checkpoints)
	return nil
}
