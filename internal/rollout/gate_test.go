package rollout

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systmms/rollops/internal/logging"
	"github.com/systmms/rollops/internal/platform"
)

// stubMetrics returns fixed values per metric name.
type stubMetrics struct {
	values map[string]float64
	errs   map[string]error
}

func (s *stubMetrics) Query(_ context.Context, _, metric string, _ time.Duration) (float64, error) {
	if err := s.errs[metric]; err != nil {
		return 0, err
	}
	return s.values[metric], nil
}

func testThresholds() Thresholds {
	return Thresholds{
		MaxErrorRate:          5,
		MaxP95LatencyMs:       500,
		MaxQualityDegradation: 10,
	}
}

func TestGateEvaluateVerdicts(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		values        map[string]float64
		currentWeight int
		maxWeight     int
		wantKind      VerdictKind
		wantReason    string
	}{
		{
			name: "healthy below max continues",
			values: map[string]float64{
				platform.MetricErrorRate:    1.2,
				platform.MetricP95Latency:   200,
				platform.MetricQualityScore: 0.5,
			},
			currentWeight: 50,
			maxWeight:     100,
			wantKind:      VerdictContinue,
		},
		{
			name: "healthy at max promotes",
			values: map[string]float64{
				platform.MetricErrorRate:    1.2,
				platform.MetricP95Latency:   200,
				platform.MetricQualityScore: 0.5,
			},
			currentWeight: 100,
			maxWeight:     100,
			wantKind:      VerdictPromote,
		},
		{
			name: "error rate breach rolls back",
			values: map[string]float64{
				platform.MetricErrorRate:    5.1,
				platform.MetricP95Latency:   200,
				platform.MetricQualityScore: 0.5,
			},
			currentWeight: 50,
			maxWeight:     100,
			wantKind:      VerdictRollback,
			wantReason:    ReasonErrorRate,
		},
		{
			name: "latency breach rolls back",
			values: map[string]float64{
				platform.MetricErrorRate:    1.2,
				platform.MetricP95Latency:   501,
				platform.MetricQualityScore: 0.5,
			},
			currentWeight: 50,
			maxWeight:     100,
			wantKind:      VerdictRollback,
			wantReason:    ReasonLatency,
		},
		{
			name: "quality breach rolls back",
			values: map[string]float64{
				platform.MetricErrorRate:    1.2,
				platform.MetricP95Latency:   200,
				platform.MetricQualityScore: 10.5,
			},
			currentWeight: 50,
			maxWeight:     100,
			wantKind:      VerdictRollback,
			wantReason:    ReasonQuality,
		},
		{
			name: "error rate wins when every check breaches",
			values: map[string]float64{
				platform.MetricErrorRate:    99,
				platform.MetricP95Latency:   9000,
				platform.MetricQualityScore: 50,
			},
			currentWeight: 50,
			maxWeight:     100,
			wantKind:      VerdictRollback,
			wantReason:    ReasonErrorRate,
		},
		{
			name: "breach at max still rolls back",
			values: map[string]float64{
				platform.MetricErrorRate:    1.2,
				platform.MetricP95Latency:   700,
				platform.MetricQualityScore: 0.5,
			},
			currentWeight: 100,
			maxWeight:     100,
			wantKind:      VerdictRollback,
			wantReason:    ReasonLatency,
		},
		{
			name: "sample exactly at a threshold passes",
			values: map[string]float64{
				platform.MetricErrorRate:    5,
				platform.MetricP95Latency:   500,
				platform.MetricQualityScore: 10,
			},
			currentWeight: 50,
			maxWeight:     100,
			wantKind:      VerdictContinue,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			gate := NewGate(&stubMetrics{values: tt.values}, logging.New(false, true))

			verdict, err := gate.Evaluate(context.Background(), "svc-v2", testThresholds(),
				tt.currentWeight, tt.maxWeight, 5*time.Minute)
			require.NoError(t, err)
			assert.Equal(t, tt.wantKind, verdict.Kind)
			assert.Equal(t, tt.wantReason, verdict.Reason)
			assert.False(t, verdict.Sample.TakenAt.IsZero())
		})
	}
}

func TestGateEvaluateFailsClosedOnQueryError(t *testing.T) {
	t.Parallel()

	// Any metric failing to resolve surfaces as an error; the caller treats
	// it as a health failure. The gate never guesses a verdict.
	for _, metric := range []string{platform.MetricErrorRate, platform.MetricP95Latency, platform.MetricQualityScore} {
		metric := metric
		t.Run(metric, func(t *testing.T) {
			t.Parallel()
			gate := NewGate(&stubMetrics{
				values: map[string]float64{
					platform.MetricErrorRate:    1,
					platform.MetricP95Latency:   100,
					platform.MetricQualityScore: 1,
				},
				errs: map[string]error{metric: errors.New("query failed")},
			}, logging.New(false, true))

			_, err := gate.Evaluate(context.Background(), "svc-v2", testThresholds(), 50, 100, 5*time.Minute)
			require.Error(t, err)
		})
	}
}
