package config

import (
	"context"
	"time"

	rerrors "github.com/systmms/rollops/internal/errors"
	"github.com/systmms/rollops/internal/notifications"
	"github.com/systmms/rollops/internal/platform"
	"github.com/systmms/rollops/internal/rollout"
	"github.com/systmms/rollops/internal/storage"
)

// Hard fallbacks used when neither the flags nor the config file supply a
// value.
const (
	fallbackStrategy         = rollout.StrategyLinear
	fallbackMaxWeight        = 100
	fallbackTotalDuration    = 20 * time.Minute
	fallbackStepInterval     = 5 * time.Minute
	fallbackReadinessTimeout = 5 * time.Minute
	fallbackRetentionDays    = 30

	notificationQueueSize = 100
)

var fallbackThresholds = rollout.Thresholds{
	MaxErrorRate:          5,
	MaxP95LatencyMs:       500,
	MaxQualityDegradation: 10,
}

// RouterClient builds the traffic router client from the platform section.
func (c *Config) RouterClient() (*platform.RouterClient, error) {
	if c.Definition == nil {
		return nil, notLoaded()
	}
	router := c.Definition.Platform.Router
	return platform.NewRouterClient(platform.RouterClientConfig{
		Endpoint: router.Endpoint,
		Token:    router.Token,
		Timeout:  timeout(router.TimeoutMs),
	}), nil
}

// RevisionClient builds the revision lifecycle client.
func (c *Config) RevisionClient() (*platform.RevisionClient, error) {
	if c.Definition == nil {
		return nil, notLoaded()
	}
	revisions := c.Definition.Platform.Revisions
	return platform.NewRevisionClient(platform.RevisionClientConfig{
		Endpoint:     revisions.Endpoint,
		Token:        revisions.Token,
		Timeout:      timeout(revisions.TimeoutMs),
		PollInterval: timeout(revisions.PollIntervalMs),
	}), nil
}

// MetricsProvider builds the Prometheus metrics provider.
func (c *Config) MetricsProvider() (*platform.PrometheusProvider, error) {
	if c.Definition == nil {
		return nil, notLoaded()
	}
	metrics := c.Definition.Platform.Metrics
	return platform.NewPrometheusProvider(platform.PrometheusConfig{
		URL:     metrics.PrometheusURL,
		Queries: metrics.Queries,
		Timeout: timeout(metrics.TimeoutMs),
	}, c.Logger)
}

// Store builds the file-backed rollout state store.
func (c *Config) Store() *storage.FileStorage {
	dir := ""
	if c.Definition != nil {
		dir = c.Definition.Storage.StateDir
	}
	if dir == "" {
		dir = storage.DefaultStorageDir()
	}
	return storage.NewFileStorage(dir)
}

// Audit builds the Postgres audit sink, or nil when no DSN is configured.
func (c *Config) Audit() (*storage.PostgresAudit, error) {
	if c.Definition == nil || c.Definition.Storage.Postgres == nil {
		return nil, nil
	}
	audit, err := storage.NewPostgresAudit(c.Definition.Storage.Postgres.DSN)
	if err != nil {
		return nil, err
	}
	if err := audit.EnsureSchema(); err != nil {
		return nil, err
	}
	return audit, nil
}

// RetentionDays returns the configured history retention.
func (c *Config) RetentionDays() int {
	if c.Definition != nil && c.Definition.Storage.RetentionDays > 0 {
		return c.Definition.Storage.RetentionDays
	}
	return fallbackRetentionDays
}

// NotificationManager builds the async notification manager with every
// configured provider registered. Returns nil when no channel is configured.
func (c *Config) NotificationManager() (*notifications.Manager, error) {
	if c.Definition == nil || c.Definition.Notifications == nil {
		return nil, nil
	}

	nc := c.Definition.Notifications
	manager := notifications.NewManager(notificationQueueSize, c.Logger)
	ctx := context.Background()

	for _, hook := range nc.Webhooks {
		provider := notifications.NewWebhookProvider(notifications.WebhookConfig{
			Name:    hook.Name,
			URL:     hook.URL,
			Method:  hook.Method,
			Headers: hook.Headers,
			Events:  hook.Events,
			Timeout: time.Duration(hook.TimeoutSeconds) * time.Second,
		})
		if err := provider.Validate(ctx); err != nil {
			return nil, err
		}
		manager.RegisterProvider(provider)
	}

	if nc.Slack != nil {
		provider := notifications.NewSlackProvider(notifications.SlackConfig{
			WebhookURL:        nc.Slack.WebhookURL,
			Channel:           nc.Slack.Channel,
			Events:            nc.Slack.Events,
			MentionOnRollback: nc.Slack.MentionOnRollback,
		})
		if err := provider.Validate(ctx); err != nil {
			return nil, err
		}
		manager.RegisterProvider(provider)
	}

	if nc.PagerDuty != nil {
		provider := notifications.NewPagerDutyProvider(notifications.PagerDutyConfig{
			IntegrationKey: nc.PagerDuty.IntegrationKey,
			Severity:       nc.PagerDuty.Severity,
			Events:         nc.PagerDuty.Events,
		})
		if err := provider.Validate(ctx); err != nil {
			return nil, err
		}
		manager.RegisterProvider(provider)
	}

	if len(manager.Providers()) == 0 {
		return nil, nil
	}
	return manager, nil
}

// MetricsServer builds the Prometheus metrics endpoint server. Starting it
// is a no-op unless metrics_server.enabled is set in the config.
func (c *Config) MetricsServer() *rollout.MetricsServer {
	serverConfig := rollout.DefaultMetricsServerConfig()
	if c.Definition != nil && c.Definition.MetricsServer != nil {
		ms := c.Definition.MetricsServer
		serverConfig.Enabled = ms.Enabled
		if ms.Port != 0 {
			serverConfig.Port = ms.Port
		}
		if ms.Path != "" {
			serverConfig.Path = ms.Path
		}
	}
	return rollout.NewMetricsServer(serverConfig, c.Logger)
}

// RetryConfig returns the retry settings for platform client calls.
func (c *Config) RetryConfig() rollout.RetryConfig {
	retry := rollout.DefaultRetryConfig()
	if c.Definition == nil {
		return retry
	}
	if c.Definition.Defaults.Retry.MaxAttempts > 0 {
		retry.MaxAttempts = c.Definition.Defaults.Retry.MaxAttempts
	}
	if c.Definition.Defaults.Retry.Backoff > 0 {
		retry.Backoff = c.Definition.Defaults.Retry.Backoff.Std()
	}
	return retry
}

// ApplyDefaults fills any zero-valued rollout spec fields from the config's
// defaults section, then from the hard fallbacks. Flags set by the operator
// always win because they arrive already populated.
func (c *Config) ApplyDefaults(spec *rollout.Spec) {
	var defaults DefaultsConfig
	if c.Definition != nil {
		defaults = c.Definition.Defaults
	}

	if spec.Strategy == "" {
		spec.Strategy = rollout.Strategy(defaults.Strategy)
	}
	if spec.Strategy == "" {
		spec.Strategy = fallbackStrategy
	}

	if spec.MaxWeight == 0 {
		spec.MaxWeight = defaults.MaxWeight
	}
	if spec.MaxWeight == 0 {
		spec.MaxWeight = fallbackMaxWeight
	}

	if spec.TotalDuration == 0 {
		spec.TotalDuration = defaults.TotalDuration.Std()
	}
	if spec.TotalDuration == 0 && spec.Strategy != rollout.StrategyManual {
		spec.TotalDuration = fallbackTotalDuration
	}

	if spec.StepInterval == 0 {
		spec.StepInterval = defaults.StepInterval.Std()
	}
	if spec.StepInterval == 0 {
		spec.StepInterval = fallbackStepInterval
	}

	if spec.ReadinessTimeout == 0 {
		spec.ReadinessTimeout = defaults.ReadinessTimeout.Std()
	}
	if spec.ReadinessTimeout == 0 {
		spec.ReadinessTimeout = fallbackReadinessTimeout
	}

	if spec.MetricsWindow == 0 {
		spec.MetricsWindow = defaults.MetricsWindow.Std()
	}

	if spec.Thresholds == (rollout.Thresholds{}) {
		spec.Thresholds = rollout.Thresholds{
			MaxErrorRate:          defaults.Thresholds.MaxErrorRate,
			MaxP95LatencyMs:       defaults.Thresholds.MaxP95LatencyMs,
			MaxQualityDegradation: defaults.Thresholds.MaxQualityDegradation,
		}
	}
	if spec.Thresholds == (rollout.Thresholds{}) {
		spec.Thresholds = fallbackThresholds
	}

	if spec.Resources.CPU == "" {
		spec.Resources.CPU = defaults.Resources.CPU
	}
	if spec.Resources.Memory == "" {
		spec.Resources.Memory = defaults.Resources.Memory
	}
}

func notLoaded() error {
	return rerrors.UserError{
		Message:    "Configuration not loaded",
		Suggestion: "This is an internal error. Please report it",
	}
}
