// Package config loads and validates rollops.yaml, the file that describes
// the serving platform, rollout defaults, persistence, and notification
// channels. The CLI builds all of its clients from a loaded Config.
package config

import (
	"encoding/json"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	rerrors "github.com/systmms/rollops/internal/errors"
	"github.com/systmms/rollops/internal/logging"
)

// Config holds the runtime configuration.
type Config struct {
	Path       string
	Logger     *logging.Logger
	Definition *Definition
}

// Definition represents the rollops.yaml structure.
type Definition struct {
	Version       int                  `yaml:"version" json:"version"`
	Defaults      DefaultsConfig       `yaml:"defaults,omitempty" json:"defaults,omitempty"`
	Platform      PlatformConfig       `yaml:"platform" json:"platform"`
	Storage       StorageConfig        `yaml:"storage,omitempty" json:"storage,omitempty"`
	Notifications *NotificationConfig  `yaml:"notifications,omitempty" json:"notifications,omitempty"`
	MetricsServer *MetricsServerConfig `yaml:"metrics_server,omitempty" json:"metrics_server,omitempty"`
}

// DefaultsConfig supplies rollout parameters a start invocation may omit.
type DefaultsConfig struct {
	Strategy         string           `yaml:"strategy,omitempty" json:"strategy,omitempty"`
	MaxWeight        int              `yaml:"max_weight,omitempty" json:"max_weight,omitempty"`
	TotalDuration    Duration         `yaml:"total_duration,omitempty" json:"total_duration,omitempty"`
	StepInterval     Duration         `yaml:"step_interval,omitempty" json:"step_interval,omitempty"`
	ReadinessTimeout Duration         `yaml:"readiness_timeout,omitempty" json:"readiness_timeout,omitempty"`
	MetricsWindow    Duration         `yaml:"metrics_window,omitempty" json:"metrics_window,omitempty"`
	Thresholds       ThresholdsConfig `yaml:"thresholds,omitempty" json:"thresholds,omitempty"`
	Retry            RetrySettings    `yaml:"retry,omitempty" json:"retry,omitempty"`
	Resources        ResourcesConfig  `yaml:"resources,omitempty" json:"resources,omitempty"`
}

// ThresholdsConfig holds the health gate limits. Error rate and quality
// degradation are percentage points, latency is milliseconds.
type ThresholdsConfig struct {
	MaxErrorRate          float64 `yaml:"max_error_rate,omitempty" json:"max_error_rate,omitempty"`
	MaxP95LatencyMs       float64 `yaml:"max_p95_latency_ms,omitempty" json:"max_p95_latency_ms,omitempty"`
	MaxQualityDegradation float64 `yaml:"max_quality_degradation,omitempty" json:"max_quality_degradation,omitempty"`
}

// RetrySettings bounds the client call retry loop.
type RetrySettings struct {
	MaxAttempts int      `yaml:"max_attempts,omitempty" json:"max_attempts,omitempty"`
	Backoff     Duration `yaml:"backoff,omitempty" json:"backoff,omitempty"`
}

// ResourcesConfig are the default compute limits for candidate revisions.
type ResourcesConfig struct {
	CPU    string `yaml:"cpu,omitempty" json:"cpu,omitempty"`
	Memory string `yaml:"memory,omitempty" json:"memory,omitempty"`
}

// PlatformConfig describes the serving platform endpoints.
type PlatformConfig struct {
	Router    EndpointConfig `yaml:"router" json:"router"`
	Revisions EndpointConfig `yaml:"revisions" json:"revisions"`
	Metrics   MetricsConfig  `yaml:"metrics" json:"metrics"`
}

// EndpointConfig is one authenticated HTTP API endpoint.
type EndpointConfig struct {
	Endpoint  string `yaml:"endpoint" json:"endpoint"`
	Token     string `yaml:"token,omitempty" json:"token,omitempty"`
	TimeoutMs int    `yaml:"timeout_ms,omitempty" json:"timeout_ms,omitempty"`

	// PollIntervalMs is how often readiness is polled. Only meaningful for
	// the revisions endpoint.
	PollIntervalMs int `yaml:"poll_interval_ms,omitempty" json:"poll_interval_ms,omitempty"`
}

// MetricsConfig points at the Prometheus backend the health gate queries.
type MetricsConfig struct {
	PrometheusURL string            `yaml:"prometheus_url" json:"prometheus_url"`
	TimeoutMs     int               `yaml:"timeout_ms,omitempty" json:"timeout_ms,omitempty"`
	Queries       map[string]string `yaml:"queries,omitempty" json:"queries,omitempty"`
}

// StorageConfig controls rollout state persistence.
type StorageConfig struct {
	// StateDir overrides the default state directory.
	StateDir string `yaml:"state_dir,omitempty" json:"state_dir,omitempty"`

	// RetentionDays is how long history entries are kept (default: 30).
	RetentionDays int `yaml:"retention_days,omitempty" json:"retention_days,omitempty"`

	// Postgres enables the durable audit trail when a DSN is set.
	Postgres *PostgresConfig `yaml:"postgres,omitempty" json:"postgres,omitempty"`
}

// PostgresConfig holds the audit database connection.
type PostgresConfig struct {
	DSN string `yaml:"dsn" json:"dsn"`
}

// MetricsServerConfig exposes the controller's own Prometheus metrics over
// HTTP while a rollout runs. Disabled unless enabled is set.
type MetricsServerConfig struct {
	Enabled bool   `yaml:"enabled,omitempty" json:"enabled,omitempty"`
	Port    int    `yaml:"port,omitempty" json:"port,omitempty"`
	Path    string `yaml:"path,omitempty" json:"path,omitempty"`
}

// Duration wraps time.Duration so YAML accepts "5m" style values and the
// schema validator sees a plain string.
type Duration time.Duration

// UnmarshalYAML parses Go duration syntax.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var raw string
	if err := node.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return rerrors.ConfigError{
			Field:      "duration",
			Value:      raw,
			Message:    "invalid duration",
			Suggestion: "Use Go duration syntax like 30s, 5m, or 1h",
		}
	}
	*d = Duration(parsed)
	return nil
}

// MarshalJSON renders the duration back to its string form.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Load reads, parses, and validates the rollops.yaml file.
func (c *Config) Load() error {
	data, err := os.ReadFile(c.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return rerrors.ConfigError{
				Field:      "path",
				Value:      c.Path,
				Message:    "configuration file not found",
				Suggestion: "Create a rollops.yaml or pass --config",
			}
		}
		return rerrors.UserError{
			Message:    "Failed to read configuration file",
			Details:    err.Error(),
			Suggestion: "Check file permissions and path",
			Err:        err,
		}
	}

	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return rerrors.ConfigError{
			Message:    "invalid YAML syntax in configuration file",
			Suggestion: "Check for indentation errors, missing quotes, or invalid characters. Use a YAML validator",
		}
	}

	if def.Version != 0 {
		return rerrors.ConfigError{
			Field:      "version",
			Value:      def.Version,
			Message:    "unsupported configuration version",
			Suggestion: "Set 'version: 0' at the top of your rollops.yaml file",
		}
	}

	if err := validateDefinition(&def); err != nil {
		return err
	}

	c.Definition = &def
	return nil
}

// timeout converts a millisecond field to a duration, zero meaning "use the
// client's default".
func timeout(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
