package platform

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/api"
	promv1 "github.com/prometheus/client_golang/api/prometheus/v1"
	"github.com/prometheus/common/model"

	rerrors "github.com/systmms/rollops/internal/errors"
	"github.com/systmms/rollops/internal/logging"
)

// Default PromQL templates per metric. $revision and $window are substituted
// at query time. Error rate and quality degradation are expressed in
// percentage points, latency in milliseconds.
var defaultQueries = map[string]string{
	MetricErrorRate: `100 * sum(rate(http_requests_total{revision="$revision",code=~"5.."}[$window]))` +
		` / sum(rate(http_requests_total{revision="$revision"}[$window]))`,
	MetricP95Latency: `1000 * histogram_quantile(0.95,` +
		` sum by (le) (rate(http_request_duration_seconds_bucket{revision="$revision"}[$window])))`,
	MetricQualityScore: `model_quality_degradation_percent{revision="$revision"}`,
}

// PrometheusConfig holds configuration for the Prometheus metrics provider.
type PrometheusConfig struct {
	// URL is the Prometheus base URL.
	URL string

	// Queries overrides the default PromQL template per metric name.
	Queries map[string]string

	// Timeout for a single query.
	Timeout time.Duration
}

// PrometheusProvider implements MetricsProvider by querying Prometheus.
type PrometheusProvider struct {
	api     promv1.API
	queries map[string]string
	timeout time.Duration
	logger  *logging.Logger
}

// NewPrometheusProvider creates a metrics provider backed by Prometheus.
func NewPrometheusProvider(config PrometheusConfig, logger *logging.Logger) (*PrometheusProvider, error) {
	client, err := api.NewClient(api.Config{Address: config.URL})
	if err != nil {
		return nil, rerrors.ConfigError{
			Field:      "platform.metrics.prometheus_url",
			Value:      config.URL,
			Message:    err.Error(),
			Suggestion: "Use format: http://hostname:port",
		}
	}

	queries := make(map[string]string, len(defaultQueries))
	for metric, query := range defaultQueries {
		queries[metric] = query
	}
	for metric, query := range config.Queries {
		queries[metric] = query
	}

	timeout := config.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}

	return &PrometheusProvider{
		api:     promv1.NewAPI(client),
		queries: queries,
		timeout: timeout,
		logger:  logger,
	}, nil
}

// Query evaluates the PromQL template for the metric and returns its scalar
// value for the revision over the trailing window.
func (p *PrometheusProvider) Query(ctx context.Context, revision, metric string, window time.Duration) (float64, error) {
	template, ok := p.queries[metric]
	if !ok {
		return 0, rerrors.ClientError{
			Client:    "metrics",
			Operation: "query",
			Err:       fmt.Errorf("no query configured for metric %q", metric),
		}
	}

	query := strings.ReplaceAll(template, "$revision", revision)
	query = strings.ReplaceAll(query, "$window", model.Duration(window).String())

	queryCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	result, warnings, err := p.api.Query(queryCtx, query, time.Now())
	if err != nil {
		return 0, rerrors.ClientError{Client: "metrics", Operation: "query", Err: err}
	}
	for _, warning := range warnings {
		p.logger.Warn("prometheus warning for %s: %s", metric, warning)
	}

	value, err := scalarFromResult(result)
	if err != nil {
		return 0, rerrors.ClientError{
			Client:    "metrics",
			Operation: "query",
			Err:       fmt.Errorf("metric %s: %w", metric, err),
		}
	}

	p.logger.Debug("metric %s for %s over %s: %.3f", metric, revision, window, value)
	return value, nil
}

// scalarFromResult extracts a single float from a PromQL result.
func scalarFromResult(result model.Value) (float64, error) {
	switch v := result.(type) {
	case *model.Scalar:
		return float64(v.Value), nil
	case model.Vector:
		if len(v) == 0 {
			return 0, fmt.Errorf("query returned no samples")
		}
		if len(v) > 1 {
			return 0, fmt.Errorf("query returned %d samples, expected 1", len(v))
		}
		return float64(v[0].Value), nil
	default:
		return 0, fmt.Errorf("unexpected result type %s", result.Type())
	}
}
