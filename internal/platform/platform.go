// Package platform holds the thin clients for the serving platform the
// rollout controller drives: revision lifecycle, traffic routing, and the
// metrics backend. The controller only ever sees the interfaces defined
// here; the concrete clients speak HTTP to the platform admin API and
// PromQL to the metrics backend.
package platform

import (
	"context"
	"time"
)

// Metric names the controller queries for a revision.
const (
	MetricErrorRate    = "error_rate"
	MetricP95Latency   = "p95_latency"
	MetricQualityScore = "quality_score"
)

// RevisionHandle identifies a deployable revision on the serving platform.
type RevisionHandle struct {
	Service string `json:"service"`
	Name    string `json:"name"`
	Image   string `json:"image"`
}

// ResourceLimits are the compute limits requested for a new revision.
type ResourceLimits struct {
	CPU    string `json:"cpu,omitempty"`
	Memory string `json:"memory,omitempty"`
}

// TrafficSplit is the live stable/candidate weight pair for a service.
// Stable + Candidate is always 100.
type TrafficSplit struct {
	Stable    int `json:"stable"`
	Candidate int `json:"candidate"`
}

// RevisionLifecycle creates, readies, retags, and deletes revisions.
type RevisionLifecycle interface {
	// Create registers a new revision for the service and returns its handle.
	Create(ctx context.Context, service, name, image string, limits ResourceLimits) (RevisionHandle, error)

	// WaitReady blocks until the revision reports ready or the timeout
	// elapses. A timeout is returned as errors.ReadinessTimeoutError.
	WaitReady(ctx context.Context, handle RevisionHandle, timeout time.Duration) error

	// UpdateImage repoints an existing revision at a new image.
	UpdateImage(ctx context.Context, handle RevisionHandle, image string) (RevisionHandle, error)

	// Delete removes the revision.
	Delete(ctx context.Context, handle RevisionHandle) error
}

// TrafficRouter reads and writes the stable/candidate traffic split.
// Splits are read fresh before every decision and never cached across the
// read/write gap.
type TrafficRouter interface {
	GetSplit(ctx context.Context, service string) (TrafficSplit, error)
	SetSplit(ctx context.Context, service string, split TrafficSplit) error
}

// MetricsProvider pulls one scalar health signal for a revision over a
// trailing window.
type MetricsProvider interface {
	Query(ctx context.Context, revision, metric string, window time.Duration) (float64, error)
}
