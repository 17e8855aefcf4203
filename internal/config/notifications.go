package config

// NotificationConfig holds configuration for rollout notifications.
type NotificationConfig struct {
	// Slack configuration for Slack webhook notifications.
	Slack *SlackNotificationConfig `yaml:"slack,omitempty" json:"slack,omitempty"`

	// PagerDuty configuration for PagerDuty incident notifications.
	PagerDuty *PagerDutyNotificationConfig `yaml:"pagerduty,omitempty" json:"pagerduty,omitempty"`

	// Webhooks configuration for custom webhook notifications.
	Webhooks []WebhookNotificationConfig `yaml:"webhooks,omitempty" json:"webhooks,omitempty"`
}

// SlackNotificationConfig holds Slack webhook configuration for rollout events.
type SlackNotificationConfig struct {
	// WebhookURL is the Slack incoming webhook URL.
	WebhookURL string `yaml:"webhook_url" json:"webhook_url"`

	// Channel is the Slack channel to post to (optional, uses webhook default).
	Channel string `yaml:"channel,omitempty" json:"channel,omitempty"`

	// Events specifies which rollout events trigger notifications.
	// Valid values: started, promoted, rolled_back, rollback_failed.
	// If empty, all events are sent.
	Events []string `yaml:"events,omitempty" json:"events,omitempty"`

	// MentionOnRollback lists Slack handles to mention on rollback events.
	// Examples: ["@oncall", "@ml-platform"]
	MentionOnRollback []string `yaml:"mention_on_rollback,omitempty" json:"mention_on_rollback,omitempty"`
}

// PagerDutyNotificationConfig holds PagerDuty configuration for rollout events.
type PagerDutyNotificationConfig struct {
	// IntegrationKey is the PagerDuty Events API v2 integration key.
	IntegrationKey string `yaml:"integration_key" json:"integration_key"`

	// Severity is the default incident severity: critical, error, warning, info.
	Severity string `yaml:"severity,omitempty" json:"severity,omitempty"`

	// Events specifies which rollout events trigger notifications. If empty,
	// only rollback events page.
	Events []string `yaml:"events,omitempty" json:"events,omitempty"`
}

// WebhookNotificationConfig holds configuration for custom webhook notifications.
type WebhookNotificationConfig struct {
	// Name is a human-readable name for this webhook.
	Name string `yaml:"name" json:"name"`

	// URL is the webhook endpoint URL.
	URL string `yaml:"url" json:"url"`

	// Method is the HTTP method to use (default: POST).
	Method string `yaml:"method,omitempty" json:"method,omitempty"`

	// Headers are additional HTTP headers to include.
	Headers map[string]string `yaml:"headers,omitempty" json:"headers,omitempty"`

	// Events specifies which rollout events trigger notifications.
	Events []string `yaml:"events,omitempty" json:"events,omitempty"`

	// TimeoutSeconds bounds a single delivery attempt (default: 10).
	TimeoutSeconds int `yaml:"timeout,omitempty" json:"timeout,omitempty"`
}
