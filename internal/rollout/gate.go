package rollout

import (
	"context"
	"time"

	"github.com/systmms/rollops/internal/logging"
	"github.com/systmms/rollops/internal/platform"
)

// VerdictKind is the health gate's decision after a checkpoint.
type VerdictKind string

const (
	// VerdictContinue moves to the next checkpoint.
	VerdictContinue VerdictKind = "continue"

	// VerdictRollback reverts traffic and discards the candidate.
	VerdictRollback VerdictKind = "rollback"

	// VerdictPromote swaps the candidate into the stable slot.
	VerdictPromote VerdictKind = "promote"
)

// Rollback reasons emitted by the gate.
const (
	ReasonErrorRate = "error_rate_exceeded"
	ReasonLatency   = "latency_exceeded"
	ReasonQuality   = "quality_degraded"
)

// Verdict is the gate's decision together with the sample that produced it.
// The sample is not retained in rollout state; only the verdict outcome is.
type Verdict struct {
	Kind   VerdictKind
	Reason string
	Sample HealthSample
}

// HealthSample is a point-in-time read of the candidate's health signals.
type HealthSample struct {
	ErrorRate    float64
	P95LatencyMs float64
	QualityScore float64
	TakenAt      time.Time
}

// Gate evaluates health samples against thresholds. It compares raw sample
// values with no smoothing: a single bad sample rolls back. That bias is
// deliberate; the gate fails closed.
type Gate struct {
	metrics platform.MetricsProvider
	logger  *logging.Logger
}

// NewGate creates a health gate over the given metrics provider.
func NewGate(metrics platform.MetricsProvider, logger *logging.Logger) *Gate {
	return &Gate{
		metrics: metrics,
		logger:  logger,
	}
}

// Evaluate pulls one sample for the revision over the window and returns a
// verdict. Checks run in a fixed order and the first breach wins:
// error rate, then latency, then quality. Promote requires the current
// weight to have reached maxWeight with every check passing.
func (g *Gate) Evaluate(ctx context.Context, revision string, thresholds Thresholds,
	currentWeight, maxWeight int, window time.Duration) (Verdict, error) {

	sample, err := g.takeSample(ctx, revision, window)
	if err != nil {
		return Verdict{}, err
	}

	g.logger.Debug("health sample for %s: error_rate=%.2f%% p95=%.0fms quality=%.2f%%",
		revision, sample.ErrorRate, sample.P95LatencyMs, sample.QualityScore)

	if sample.ErrorRate > thresholds.MaxErrorRate {
		return Verdict{Kind: VerdictRollback, Reason: ReasonErrorRate, Sample: sample}, nil
	}
	if sample.P95LatencyMs > thresholds.MaxP95LatencyMs {
		return Verdict{Kind: VerdictRollback, Reason: ReasonLatency, Sample: sample}, nil
	}
	if sample.QualityScore > thresholds.MaxQualityDegradation {
		return Verdict{Kind: VerdictRollback, Reason: ReasonQuality, Sample: sample}, nil
	}

	if currentWeight == maxWeight {
		return Verdict{Kind: VerdictPromote, Sample: sample}, nil
	}
	return Verdict{Kind: VerdictContinue, Sample: sample}, nil
}

// takeSample queries the three health signals for the revision.
func (g *Gate) takeSample(ctx context.Context, revision string, window time.Duration) (HealthSample, error) {
	errorRate, err := g.metrics.Query(ctx, revision, platform.MetricErrorRate, window)
	if err != nil {
		return HealthSample{}, err
	}
	latency, err := g.metrics.Query(ctx, revision, platform.MetricP95Latency, window)
	if err != nil {
		return HealthSample{}, err
	}
	quality, err := g.metrics.Query(ctx, revision, platform.MetricQualityScore, window)
	if err != nil {
		return HealthSample{}, err
	}

	return HealthSample{
		ErrorRate:    errorRate,
		P95LatencyMs: latency,
		QualityScore: quality,
		TakenAt:      time.Now(),
	}, nil
}
