package rollout

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	rolloutStartedTotal   *prometheus.CounterVec
	rolloutCompletedTotal *prometheus.CounterVec
	rolloutDuration       *prometheus.HistogramVec
	gateVerdictsTotal     *prometheus.CounterVec
	trafficWeight         *prometheus.GaugeVec

	// Registration guard
	metricsOnce       sync.Once
	metricsRegistered bool
)

// RolloutMetrics provides methods to record rollout metrics.
type RolloutMetrics struct{}

// NewRolloutMetrics creates a new RolloutMetrics instance.
func NewRolloutMetrics() *RolloutMetrics {
	return &RolloutMetrics{}
}

// InitMetrics initializes all Prometheus metrics.
// This should be called once at startup if Prometheus metrics are enabled.
func InitMetrics() {
	metricsOnce.Do(func() {
		rolloutStartedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rollops_rollout_started_total",
				Help: "Total number of rollouts started",
			},
			[]string{"service", "strategy"},
		)

		rolloutCompletedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rollops_rollout_completed_total",
				Help: "Total number of rollouts reaching a terminal phase",
			},
			[]string{"service", "outcome"},
		)

		rolloutDuration = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "rollops_rollout_duration_seconds",
				Help:    "Duration of rollouts in seconds",
				Buckets: []float64{60, 300, 600, 1200, 1800, 3600},
			},
			[]string{"service"},
		)

		gateVerdictsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rollops_gate_verdicts_total",
				Help: "Health gate verdicts by kind",
			},
			[]string{"service", "verdict"},
		)

		trafficWeight = promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "rollops_candidate_traffic_weight",
				Help: "Current candidate traffic weight in percent",
			},
			[]string{"service"},
		)

		metricsRegistered = true
	})
}

// RecordStarted records a rollout start event.
func (m *RolloutMetrics) RecordStarted(service, strategy string) {
	if !metricsRegistered || rolloutStartedTotal == nil {
		return
	}
	rolloutStartedTotal.WithLabelValues(service, strategy).Inc()
}

// RecordCompleted records a terminal outcome and the rollout's duration.
func (m *RolloutMetrics) RecordCompleted(service, outcome string, durationSeconds float64) {
	if !metricsRegistered {
		return
	}

	if rolloutCompletedTotal != nil {
		rolloutCompletedTotal.WithLabelValues(service, outcome).Inc()
	}

	if rolloutDuration != nil {
		rolloutDuration.WithLabelValues(service).Observe(durationSeconds)
	}
}

// RecordVerdict records a health gate verdict.
func (m *RolloutMetrics) RecordVerdict(service, verdict string) {
	if !metricsRegistered || gateVerdictsTotal == nil {
		return
	}
	gateVerdictsTotal.WithLabelValues(service, verdict).Inc()
}

// SetWeight records the candidate's current traffic weight.
func (m *RolloutMetrics) SetWeight(service string, weight int) {
	if !metricsRegistered || trafficWeight == nil {
		return
	}
	trafficWeight.WithLabelValues(service).Set(float64(weight))
}
