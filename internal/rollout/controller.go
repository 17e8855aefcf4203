package rollout

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	rerrors "github.com/systmms/rollops/internal/errors"
	"github.com/systmms/rollops/internal/logging"
	"github.com/systmms/rollops/internal/notifications"
	"github.com/systmms/rollops/internal/platform"
	"github.com/systmms/rollops/internal/storage"
)

// Reasons reported for terminal phases beyond the gate's own.
const (
	ReasonNeverReady    = "candidate_never_ready"
	ReasonAborted       = "operator_abort"
	ReasonClientFailure = "client_failure"
	ReasonPromoteFailed = "promote_failed"
	ReasonCompleted     = "all_checkpoints_passed"
)

// activeRollouts is the per-service lock registry. One rollout per service;
// a second start for the same service is rejected until the first reaches a
// terminal phase.
var activeRollouts = struct {
	mu       sync.Mutex
	services map[string]struct{}
}{services: make(map[string]struct{})}

func acquireService(service string) error {
	activeRollouts.mu.Lock()
	defer activeRollouts.mu.Unlock()
	if _, busy := activeRollouts.services[service]; busy {
		return rerrors.UserError{
			Message:    fmt.Sprintf("a rollout is already active for service %s", service),
			Suggestion: "Wait for it to finish or abort it with 'rollops abort'",
		}
	}
	activeRollouts.services[service] = struct{}{}
	return nil
}

func releaseService(service string) {
	activeRollouts.mu.Lock()
	defer activeRollouts.mu.Unlock()
	delete(activeRollouts.services, service)
}

// Config wires the controller's collaborators. Revisions, Router, Metrics,
// and Logger are required; Store, Audit, and Notifier are optional.
type Config struct {
	Revisions platform.RevisionLifecycle
	Router    platform.TrafficRouter
	Metrics   platform.MetricsProvider
	Store     storage.Store
	Audit     storage.HistorySink
	Notifier  *notifications.Manager
	Logger    *logging.Logger
	Retry     RetryConfig

	// ControlPollInterval is how often hold sleeps and manual idle waits
	// check for operator control requests. Default: 2s.
	ControlPollInterval time.Duration
}

// Outcome is the terminal result of one rollout.
type Outcome struct {
	Phase  Phase
	Reason string
}

// Status is a point-in-time snapshot for operator queries.
type Status struct {
	Service       string
	Candidate     string
	Strategy      Strategy
	Phase         Phase
	Idle          bool
	Step          int
	CurrentWeight int
	MaxWeight     int
	Reason        string
	History       []WeightTransition
	StartedAt     time.Time
}

// Controller owns one rollout from candidate creation to a terminal phase.
// It runs as a single sequential control loop; the only concurrency is
// status queries and operator requests arriving through channels consumed
// at suspension points.
type Controller struct {
	spec      Spec
	revisions platform.RevisionLifecycle
	router    platform.TrafficRouter
	gate      *Gate
	store     storage.Store
	audit     storage.HistorySink
	notifier  *notifications.Manager
	logger    *logging.Logger
	retry     RetryConfig
	metrics   *RolloutMetrics

	controlPoll time.Duration

	state     *State
	stable    platform.RevisionHandle
	candidate platform.RevisionHandle

	weightCh  chan int
	abortCh   chan struct{}
	abortOnce sync.Once
}

// NewController validates the spec and builds a controller.
func NewController(spec Spec, cfg Config) (*Controller, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	if cfg.Revisions == nil || cfg.Router == nil || cfg.Metrics == nil {
		return nil, fmt.Errorf("revisions, router, and metrics clients are required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.New(false, true)
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = DefaultRetryConfig()
	}
	if cfg.ControlPollInterval == 0 {
		cfg.ControlPollInterval = 2 * time.Second
	}

	return &Controller{
		spec:        spec,
		revisions:   cfg.Revisions,
		router:      cfg.Router,
		gate:        NewGate(cfg.Metrics, cfg.Logger),
		store:       cfg.Store,
		audit:       cfg.Audit,
		notifier:    cfg.Notifier,
		logger:      cfg.Logger,
		retry:       cfg.Retry,
		metrics:     NewRolloutMetrics(),
		controlPoll: cfg.ControlPollInterval,
		state:       NewState(),
		stable: platform.RevisionHandle{
			Service: spec.Service,
			Name:    spec.StableRevision,
		},
		weightCh: make(chan int, 1),
		abortCh:  make(chan struct{}),
	}, nil
}

// Status returns a snapshot of the rollout.
func (c *Controller) Status() Status {
	return Status{
		Service:       c.spec.Service,
		Candidate:     c.spec.CandidateRevision,
		Strategy:      c.spec.Strategy,
		Phase:         c.state.Phase(),
		Idle:          c.state.Idle(),
		Step:          c.state.Step(),
		CurrentWeight: c.state.CurrentWeight(),
		MaxWeight:     c.spec.MaxWeight,
		Reason:        c.state.Reason(),
		History:       c.state.History(),
		StartedAt:     c.state.StartedAt(),
	}
}

// RequestWeight hands a manual-strategy target weight to the control loop.
func (c *Controller) RequestWeight(weight int) error {
	if c.spec.Strategy != StrategyManual {
		return rerrors.UserError{
			Message:    "set-weight only applies to manual-strategy rollouts",
			Suggestion: fmt.Sprintf("this rollout uses the %s strategy", c.spec.Strategy),
		}
	}
	select {
	case c.weightCh <- weight:
		return nil
	default:
		return rerrors.UserError{
			Message:    "a weight request is already pending",
			Suggestion: "Wait for the controller to apply it first",
		}
	}
}

// Abort forces the rollout into RollingBack at its next suspension point.
func (c *Controller) Abort() {
	c.abortOnce.Do(func() { close(c.abortCh) })
}

// Run drives the rollout to a terminal phase. It returns a controlled
// Outcome for both Promoted and RolledBack; the error is non-nil only for
// pre-flight rejections (lock conflict) and rollback failures.
func (c *Controller) Run(ctx context.Context) (Outcome, error) {
	if err := acquireService(c.spec.Service); err != nil {
		return Outcome{}, err
	}
	defer releaseService(c.spec.Service)

	c.metrics.RecordStarted(c.spec.Service, string(c.spec.Strategy))
	c.notify(notifications.EventTypeStarted, "", nil)
	c.persistStatus()

	if outcome, err, done := c.initialize(ctx); done {
		return outcome, err
	}

	if c.spec.Strategy == StrategyManual {
		return c.runManual(ctx)
	}
	return c.runPlanned(ctx)
}

// initialize creates the candidate revision and waits for readiness.
// done is true when initialization already produced a terminal outcome.
func (c *Controller) initialize(ctx context.Context) (Outcome, error, bool) {
	c.logger.Info("%s: creating candidate revision %s (%s)",
		c.spec.Service, c.spec.CandidateRevision, c.spec.CandidateImage)

	err := withRetry(ctx, c.retry, c.logger, "create candidate", func(ctx context.Context) error {
		handle, err := c.revisions.Create(ctx, c.spec.Service, c.spec.CandidateRevision,
			c.spec.CandidateImage, c.spec.Resources)
		if err != nil {
			return err
		}
		c.candidate = handle
		return nil
	})
	if err != nil {
		// Nothing was created, so there is nothing to clean up on the
		// platform; report the controlled failure directly.
		c.forceTerminal(PhaseRolledBack, ReasonClientFailure+": "+err.Error())
		c.notify(notifications.EventTypeRolledBack, ReasonClientFailure, err)
		c.metrics.RecordCompleted(c.spec.Service, string(PhaseRolledBack), c.state.Duration().Seconds())
		return Outcome{Phase: PhaseRolledBack, Reason: ReasonClientFailure}, nil, true
	}

	err = withRetry(ctx, c.retry, c.logger, "wait for candidate readiness", func(ctx context.Context) error {
		return c.revisions.WaitReady(ctx, c.candidate, c.spec.ReadinessTimeout)
	})
	if err != nil {
		reason := ReasonClientFailure
		var timeoutErr rerrors.ReadinessTimeoutError
		if errors.As(err, &timeoutErr) {
			reason = ReasonNeverReady
		}
		outcome, rbErr := c.rollback(ctx, reason)
		return outcome, rbErr, true
	}

	c.logger.Info("%s: candidate %s is ready", c.spec.Service, c.candidate.Name)
	return Outcome{}, nil, false
}

// runPlanned walks the precomputed checkpoint sequence for the linear and
// exponential strategies.
func (c *Controller) runPlanned(ctx context.Context) (Outcome, error) {
	checkpoints, err := PlanCheckpoints(c.spec.Strategy, c.spec.MaxWeight,
		c.spec.TotalDuration, c.spec.StepInterval)
	if err != nil {
		// Spec was validated up front; a plan failure here is a bug.
		return c.rollback(ctx, ReasonClientFailure + ": " + err.Error())
	}

	for _, checkpoint := range checkpoints {
		if aborted := c.abortRequested(); aborted {
			return c.rollback(ctx, ReasonAborted)
		}

		if err := c.shiftTo(ctx, checkpoint.Weight); err != nil {
			return c.rollback(ctx, ReasonClientFailure+": "+err.Error())
		}

		verdict, outcome, err, done := c.holdAndEvaluate(ctx, checkpoint)
		if done {
			return outcome, err
		}

		switch verdict.Kind {
		case VerdictContinue:
			continue
		case VerdictRollback:
			return c.rollback(ctx, verdict.Reason)
		case VerdictPromote:
			return c.promote(ctx)
		}
	}

	// The final checkpoint equals max weight, so the gate promotes or rolls
	// back before the loop can fall through. Kept as a safety net.
	return c.promote(ctx)
}

// runManual parks in the idle sub-state until an operator supplies a weight
// or aborts. It never times out on its own.
func (c *Controller) runManual(ctx context.Context) (Outcome, error) {
	if err := c.transition(PhaseShiftingTraffic, ""); err != nil {
		return c.rollback(ctx, err.Error())
	}

	ticker := time.NewTicker(c.controlPoll)
	defer ticker.Stop()

	for {
		c.state.SetIdle(true)
		c.persistStatus()

		var weight int
	wait:
		for {
			select {
			case <-ctx.Done():
				return c.rollback(ctx, ReasonAborted)
			case <-c.abortCh:
				return c.rollback(ctx, ReasonAborted)
			case weight = <-c.weightCh:
				break wait
			case <-ticker.C:
				req := c.takeControl()
				if req == nil {
					continue
				}
				if req.Type == storage.ControlAbort {
					return c.rollback(ctx, ReasonAborted)
				}
				weight = req.Weight
				break wait
			}
		}

		checkpoint, err := ManualCheckpoint(weight, c.state.CurrentWeight(), c.spec.MaxWeight, c.spec.StepInterval)
		if err != nil {
			// Operator error: reject the request, stay idle.
			c.logger.Warn("%s: ignoring weight request %d: %v", c.spec.Service, weight, err)
			continue
		}

		c.state.SetIdle(false)
		if err := c.shiftTo(ctx, checkpoint.Weight); err != nil {
			return c.rollback(ctx, ReasonClientFailure+": "+err.Error())
		}

		verdict, outcome, err, done := c.holdAndEvaluate(ctx, checkpoint)
		if done {
			return outcome, err
		}

		switch verdict.Kind {
		case VerdictRollback:
			return c.rollback(ctx, verdict.Reason)
		case VerdictPromote:
			return c.promote(ctx)
		case VerdictContinue:
			if err := c.transition(PhaseShiftingTraffic, ""); err != nil {
				return c.rollback(ctx, err.Error())
			}
		}
	}
}

// shiftTo applies one weight checkpoint through the router.
func (c *Controller) shiftTo(ctx context.Context, weight int) error {
	if c.state.Phase() != PhaseShiftingTraffic {
		if err := c.transition(PhaseShiftingTraffic, ""); err != nil {
			return err
		}
	}

	// Read the live split fresh; it is never cached across the gap between
	// read and write. Out-of-band changes are overwritten, by accepted
	// design of the router contract.
	var current platform.TrafficSplit
	err := withRetry(ctx, c.retry, c.logger, "read traffic split", func(ctx context.Context) error {
		split, err := c.router.GetSplit(ctx, c.spec.Service)
		if err != nil {
			return err
		}
		current = split
		return nil
	})
	if err != nil {
		return err
	}
	if current.Candidate != c.state.CurrentWeight() {
		c.logger.Warn("%s: live candidate weight %d%% differs from controller state %d%%, overwriting",
			c.spec.Service, current.Candidate, c.state.CurrentWeight())
	}

	next := platform.TrafficSplit{Stable: 100 - weight, Candidate: weight}
	err = withRetry(ctx, c.retry, c.logger, "apply traffic split", func(ctx context.Context) error {
		return c.router.SetSplit(ctx, c.spec.Service, next)
	})
	if err != nil {
		return err
	}

	entry := c.state.RecordWeight(weight, "", "")
	c.metrics.SetWeight(c.spec.Service, weight)
	c.logger.Info("%s: traffic shifted to stable=%d%% candidate=%d%% (step %d)",
		c.spec.Service, next.Stable, next.Candidate, entry.Step)
	c.persistTransition(entry)
	c.persistStatus()
	return nil
}

// holdAndEvaluate sleeps for the checkpoint's hold duration, then runs the
// health gate. done is true when the hold itself ended the rollout (abort
// or cancellation).
func (c *Controller) holdAndEvaluate(ctx context.Context, checkpoint Checkpoint) (Verdict, Outcome, error, bool) {
	if err := c.transition(PhaseEvaluating, ""); err != nil {
		outcome, rbErr := c.rollback(ctx, err.Error())
		return Verdict{}, outcome, rbErr, true
	}

	if aborted := c.sleepWithControl(ctx, checkpoint.Hold); aborted {
		outcome, rbErr := c.rollback(ctx, ReasonAborted)
		return Verdict{}, outcome, rbErr, true
	}

	var verdict Verdict
	err := withRetry(ctx, c.retry, c.logger, "health gate evaluation", func(ctx context.Context) error {
		v, err := c.gate.Evaluate(ctx, c.candidate.Name, c.spec.Thresholds,
			c.state.CurrentWeight(), c.spec.MaxWeight, c.spec.metricsWindow())
		if err != nil {
			return err
		}
		verdict = v
		return nil
	})
	if err != nil {
		// Client failure counts as a health failure.
		outcome, rbErr := c.rollback(ctx, ReasonClientFailure+": "+err.Error())
		return Verdict{}, outcome, rbErr, true
	}

	c.metrics.RecordVerdict(c.spec.Service, string(verdict.Kind))
	c.logger.Info("%s: health gate verdict at %d%%: %s %s",
		c.spec.Service, c.state.CurrentWeight(), verdict.Kind, verdict.Reason)
	return verdict, Outcome{}, nil, false
}

// sleepWithControl waits out the hold duration in slices, checking for
// cancellation, in-process aborts, and stored control requests. Returns
// true when the rollout must roll back.
func (c *Controller) sleepWithControl(ctx context.Context, hold time.Duration) bool {
	deadline := time.Now().Add(hold)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return false
		}
		slice := c.controlPoll
		if slice > remaining {
			slice = remaining
		}

		select {
		case <-ctx.Done():
			return true
		case <-c.abortCh:
			return true
		case <-time.After(slice):
			req := c.takeControl()
			if req == nil {
				continue
			}
			if req.Type == storage.ControlAbort {
				return true
			}
			// Weight requests outside manual idle are rejected, not queued.
			c.logger.Warn("%s: ignoring %s control request during hold", c.spec.Service, req.Type)
		}
	}
}

// rollback reverts all traffic to stable and deletes the candidate. The
// revert runs on an uncancelable context: an operator abort must not also
// cancel the cleanup it asked for.
func (c *Controller) rollback(ctx context.Context, reason string) (Outcome, error) {
	if err := c.transition(PhaseRollingBack, reason); err != nil {
		c.logger.Error("%s: %v", c.spec.Service, err)
	}
	entry := c.state.RecordRollbackWeight(reason)
	c.persistTransition(entry)
	c.persistStatus()

	rbCtx := context.WithoutCancel(ctx)

	err := withRetry(rbCtx, c.retry, c.logger, "revert traffic split", func(ctx context.Context) error {
		return c.router.SetSplit(ctx, c.spec.Service, platform.TrafficSplit{Stable: 100, Candidate: 0})
	})
	if err == nil && c.candidate.Name != "" {
		err = withRetry(rbCtx, c.retry, c.logger, "delete candidate revision", func(ctx context.Context) error {
			return c.revisions.Delete(ctx, c.candidate)
		})
	}
	if err != nil {
		// The rollback path itself is broken. Do not retry forever and do
		// not pretend the split is known: surface it at top urgency.
		failure := rerrors.RollbackFailureError{Service: c.spec.Service, Err: err}
		c.state.SetIdle(false)
		c.setReason("rollback_failed: " + err.Error())
		c.persistStatus()
		c.notify(notifications.EventTypeRollbackFailed, reason, failure)
		c.metrics.RecordCompleted(c.spec.Service, "rollback_failed", c.state.Duration().Seconds())
		c.logger.Error("%v", failure)
		return Outcome{Phase: c.state.Phase(), Reason: reason}, failure
	}

	c.metrics.SetWeight(c.spec.Service, 0)
	if err := c.transition(PhaseRolledBack, reason); err != nil {
		c.logger.Error("%s: %v", c.spec.Service, err)
	}
	c.persistStatus()
	c.notify(notifications.EventTypeRolledBack, reason, nil)
	c.metrics.RecordCompleted(c.spec.Service, string(PhaseRolledBack), c.state.Duration().Seconds())
	c.logger.Info("%s: rolled back (%s), split restored to stable=100%%", c.spec.Service, reason)
	return Outcome{Phase: PhaseRolledBack, Reason: reason}, nil
}

// promote swaps the candidate into the stable slot: the stable revision is
// repointed at the candidate's image, readiness is confirmed, all traffic
// moves to the stable label, and the superseded candidate copy is removed.
func (c *Controller) promote(ctx context.Context) (Outcome, error) {
	if err := c.transition(PhasePromoting, ""); err != nil {
		return c.rollback(ctx, err.Error())
	}
	c.persistStatus()

	previousImage := c.stable.Image

	err := withRetry(ctx, c.retry, c.logger, "update stable revision image", func(ctx context.Context) error {
		handle, err := c.revisions.UpdateImage(ctx, c.stable, c.spec.CandidateImage)
		if err != nil {
			return err
		}
		c.stable = handle
		return nil
	})
	if err != nil {
		return c.rollback(ctx, ReasonPromoteFailed+": "+err.Error())
	}

	err = withRetry(ctx, c.retry, c.logger, "wait for stable readiness", func(ctx context.Context) error {
		return c.revisions.WaitReady(ctx, c.stable, c.spec.ReadinessTimeout)
	})
	if err != nil {
		return c.revertPromotion(ctx, previousImage, err)
	}

	err = withRetry(ctx, c.retry, c.logger, "finalize traffic split", func(ctx context.Context) error {
		return c.router.SetSplit(ctx, c.spec.Service, platform.TrafficSplit{Stable: 100, Candidate: 0})
	})
	if err != nil {
		return c.revertPromotion(ctx, previousImage, err)
	}

	err = withRetry(ctx, c.retry, c.logger, "delete superseded revision", func(ctx context.Context) error {
		return c.revisions.Delete(ctx, c.candidate)
	})
	if err != nil {
		// The promotion itself succeeded; a stray revision is an eyesore,
		// not a failed rollout.
		c.logger.Warn("%s: superseded revision %s left behind: %v", c.spec.Service, c.candidate.Name, err)
	}

	c.metrics.SetWeight(c.spec.Service, 0)
	if err := c.transition(PhasePromoted, ReasonCompleted); err != nil {
		c.logger.Error("%s: %v", c.spec.Service, err)
	}
	c.persistStatus()
	c.notify(notifications.EventTypePromoted, ReasonCompleted, nil)
	c.metrics.RecordCompleted(c.spec.Service, string(PhasePromoted), c.state.Duration().Seconds())
	c.logger.Info("%s: candidate %s promoted to stable", c.spec.Service, c.spec.CandidateRevision)
	return Outcome{Phase: PhasePromoted, Reason: ReasonCompleted}, nil
}

// revertPromotion undoes a half-applied stable image update, then rolls
// back. If the revert itself fails the rollout is stuck between revisions,
// which is a rollback failure.
func (c *Controller) revertPromotion(ctx context.Context, previousImage string, cause error) (Outcome, error) {
	rbCtx := context.WithoutCancel(ctx)
	err := withRetry(rbCtx, c.retry, c.logger, "revert stable revision image", func(ctx context.Context) error {
		handle, err := c.revisions.UpdateImage(ctx, c.stable, previousImage)
		if err != nil {
			return err
		}
		c.stable = handle
		return nil
	})
	if err != nil {
		failure := rerrors.RollbackFailureError{
			Service: c.spec.Service,
			Err:     fmt.Errorf("promotion failed (%v) and stable image revert failed: %w", cause, err),
		}
		c.setReason("rollback_failed: " + err.Error())
		c.persistStatus()
		c.notify(notifications.EventTypeRollbackFailed, ReasonPromoteFailed, failure)
		c.metrics.RecordCompleted(c.spec.Service, "rollback_failed", c.state.Duration().Seconds())
		c.logger.Error("%v", failure)
		return Outcome{Phase: c.state.Phase(), Reason: ReasonPromoteFailed}, failure
	}
	return c.rollback(ctx, ReasonPromoteFailed+": "+cause.Error())
}

// transition moves the state machine and logs the change.
func (c *Controller) transition(next Phase, reason string) error {
	from := c.state.Phase()
	if err := c.state.TransitionTo(next, reason); err != nil {
		return err
	}
	c.logger.Transition(c.spec.Service, from.String(), next.String(), reason)
	return nil
}

func (c *Controller) setReason(reason string) {
	c.state.SetReason(reason)
}

// abortRequested drains a pending abort without blocking.
func (c *Controller) abortRequested() bool {
	select {
	case <-c.abortCh:
		return true
	default:
	}
	if req := c.takeControl(); req != nil && req.Type == storage.ControlAbort {
		return true
	}
	return false
}

// takeControl consumes a stored operator request, if any.
func (c *Controller) takeControl() *storage.ControlRequest {
	if c.store == nil {
		return nil
	}
	req, err := c.store.TakeControl(c.spec.Service)
	if err != nil {
		c.logger.Warn("%s: failed to read control request: %v", c.spec.Service, err)
		return nil
	}
	return req
}

// persistStatus writes the status snapshot; storage failures are logged,
// never fatal.
func (c *Controller) persistStatus() {
	if c.store == nil {
		return
	}
	status := &storage.RolloutStatus{
		Service:       c.spec.Service,
		Candidate:     c.spec.CandidateRevision,
		Strategy:      string(c.spec.Strategy),
		Phase:         c.state.Phase().String(),
		Idle:          c.state.Idle(),
		Step:          c.state.Step(),
		CurrentWeight: c.state.CurrentWeight(),
		MaxWeight:     c.spec.MaxWeight,
		Reason:        c.state.Reason(),
		StartedAt:     c.state.StartedAt(),
	}
	if err := c.store.SaveStatus(status); err != nil {
		c.logger.Warn("%s: failed to persist status: %v", c.spec.Service, err)
	}
}

// persistTransition appends a history entry to the store and audit sink.
func (c *Controller) persistTransition(entry WeightTransition) {
	record := &storage.HistoryEntry{
		Service:    c.spec.Service,
		Step:       entry.Step,
		FromWeight: entry.FromWeight,
		ToWeight:   entry.ToWeight,
		Phase:      entry.Phase.String(),
		Verdict:    entry.Verdict,
		Reason:     entry.Reason,
		Timestamp:  entry.At,
	}
	if c.store != nil {
		if err := c.store.AppendHistory(record); err != nil {
			c.logger.Warn("%s: failed to persist history: %v", c.spec.Service, err)
		}
	}
	if c.audit != nil {
		if err := c.audit.AppendHistory(record); err != nil {
			c.logger.Warn("%s: failed to append audit entry: %v", c.spec.Service, err)
		}
	}
}

// notify queues a lifecycle event; delivery is best-effort.
func (c *Controller) notify(eventType notifications.EventType, reason string, cause error) {
	if c.notifier == nil {
		return
	}
	c.notifier.Send(notifications.RolloutEvent{
		Type:      eventType,
		Service:   c.spec.Service,
		Candidate: c.spec.CandidateRevision,
		Strategy:  string(c.spec.Strategy),
		Reason:    reason,
		Weight:    c.state.CurrentWeight(),
		Error:     cause,
		Duration:  c.state.Duration(),
		Metadata: map[string]string{
			"steps": fmt.Sprintf("%d", c.state.Step()),
		},
	})
}

// forceTerminal records a terminal phase when the normal rollback path has
// nothing to clean up (candidate never created).
func (c *Controller) forceTerminal(phase Phase, reason string) {
	if err := c.state.TransitionTo(PhaseRollingBack, reason); err == nil {
		_ = c.state.TransitionTo(phase, reason)
	}
	c.persistStatus()
}

