// Package rollout implements the progressive-delivery control loop: the
// traffic shift planner, the health gate, and the rollout controller that
// moves live traffic from a stable revision to a candidate revision in
// checkpointed steps, promoting on sustained health and rolling back on the
// first breach.
package rollout

import (
	"time"

	rerrors "github.com/systmms/rollops/internal/errors"
	"github.com/systmms/rollops/internal/platform"
)

// Strategy selects how the planner produces traffic checkpoints.
type Strategy string

const (
	// StrategyLinear increases weight in equal steps over the total duration.
	StrategyLinear Strategy = "linear"

	// StrategyExponential starts at a 5% floor and doubles each step.
	StrategyExponential Strategy = "exponential"

	// StrategyManual advances only when an operator supplies a target weight.
	StrategyManual Strategy = "manual"
)

// exponentialFloor is the starting weight for the exponential strategy.
const exponentialFloor = 5

// Thresholds are the health limits evaluated after every checkpoint.
// Error rate and quality degradation are percentage points (0-100),
// latency is milliseconds. A sample strictly above any limit rolls back.
type Thresholds struct {
	// MaxErrorRate is the maximum tolerated error rate in percent.
	MaxErrorRate float64 `yaml:"max_error_rate"`

	// MaxP95LatencyMs is the maximum tolerated P95 latency in milliseconds.
	MaxP95LatencyMs float64 `yaml:"max_p95_latency_ms"`

	// MaxQualityDegradation is the maximum tolerated model-quality
	// degradation in percent.
	MaxQualityDegradation float64 `yaml:"max_quality_degradation"`
}

// Spec is the immutable input for one rollout invocation.
type Spec struct {
	// Service is the service whose traffic is being shifted.
	Service string

	// StableRevision is the revision currently serving 100% of traffic.
	StableRevision string

	// CandidateRevision is the name for the new revision.
	CandidateRevision string

	// CandidateImage is the image the candidate revision runs.
	CandidateImage string

	// Strategy selects the traffic shift plan.
	Strategy Strategy

	// MaxWeight is the highest candidate traffic percentage (1-100).
	MaxWeight int

	// TotalDuration is the intended length of the whole shift.
	TotalDuration time.Duration

	// StepInterval is the hold time at each checkpoint.
	StepInterval time.Duration

	// ReadinessTimeout bounds the wait for the candidate to become ready.
	ReadinessTimeout time.Duration

	// MetricsWindow is the trailing window for each health sample. Zero
	// means the step interval is used.
	MetricsWindow time.Duration

	// Thresholds are the health gate limits.
	Thresholds Thresholds

	// Resources are the compute limits for the candidate revision.
	Resources platform.ResourceLimits
}

// Validate rejects a malformed spec before any side effect happens.
func (s Spec) Validate() error {
	if s.Service == "" {
		return rerrors.InvalidSpecError{Field: "service", Message: "service name is required"}
	}
	if s.StableRevision == "" {
		return rerrors.InvalidSpecError{Field: "stable_revision", Message: "stable revision is required"}
	}
	if s.CandidateRevision == "" {
		return rerrors.InvalidSpecError{Field: "candidate_revision", Message: "candidate revision is required"}
	}
	if s.CandidateImage == "" {
		return rerrors.InvalidSpecError{Field: "candidate_image", Message: "candidate image is required"}
	}
	if s.CandidateRevision == s.StableRevision {
		return rerrors.InvalidSpecError{
			Field:   "candidate_revision",
			Value:   s.CandidateRevision,
			Message: "candidate and stable revisions must differ",
		}
	}

	switch s.Strategy {
	case StrategyLinear, StrategyExponential:
		if s.TotalDuration <= 0 {
			return rerrors.InvalidSpecError{Field: "total_duration", Value: s.TotalDuration, Message: "must be positive"}
		}
		if s.StepInterval <= 0 {
			return rerrors.InvalidSpecError{Field: "step_interval", Value: s.StepInterval, Message: "must be positive"}
		}
	case StrategyManual:
		if s.StepInterval <= 0 {
			return rerrors.InvalidSpecError{Field: "step_interval", Value: s.StepInterval, Message: "must be positive"}
		}
	default:
		return rerrors.InvalidSpecError{
			Field:   "strategy",
			Value:   string(s.Strategy),
			Message: "must be one of linear, exponential, manual",
		}
	}

	if s.MaxWeight <= 0 || s.MaxWeight > 100 {
		return rerrors.InvalidSpecError{Field: "max_weight", Value: s.MaxWeight, Message: "must be between 1 and 100"}
	}
	if s.ReadinessTimeout <= 0 {
		return rerrors.InvalidSpecError{Field: "readiness_timeout", Value: s.ReadinessTimeout, Message: "must be positive"}
	}

	if s.Thresholds.MaxErrorRate < 0 || s.Thresholds.MaxErrorRate > 100 {
		return rerrors.InvalidSpecError{Field: "max_error_rate", Value: s.Thresholds.MaxErrorRate, Message: "must be between 0 and 100"}
	}
	if s.Thresholds.MaxP95LatencyMs < 0 {
		return rerrors.InvalidSpecError{Field: "max_p95_latency_ms", Value: s.Thresholds.MaxP95LatencyMs, Message: "must not be negative"}
	}
	if s.Thresholds.MaxQualityDegradation < 0 || s.Thresholds.MaxQualityDegradation > 100 {
		return rerrors.InvalidSpecError{Field: "max_quality_degradation", Value: s.Thresholds.MaxQualityDegradation, Message: "must be between 0 and 100"}
	}

	return nil
}

// metricsWindow returns the effective health-sample window.
func (s Spec) metricsWindow() time.Duration {
	if s.MetricsWindow > 0 {
		return s.MetricsWindow
	}
	return s.StepInterval
}
