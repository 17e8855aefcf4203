package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// PagerDuty Events API v2 endpoint
const pagerDutyAPIURL = "https://events.pagerduty.com/v2/enqueue"

// PagerDutyConfig holds configuration for PagerDuty notifications.
type PagerDutyConfig struct {
	// IntegrationKey is the PagerDuty Events API v2 integration key.
	IntegrationKey string

	// Severity is the default incident severity: critical, error, warning, info.
	// Defaults to "warning" if empty. A rollback_failed event always pages
	// at critical regardless of this setting.
	Severity string

	// Events specifies which rollout events trigger notifications.
	// If empty, only rolled_back and rollback_failed are sent; a paging
	// channel has no business with routine started/promoted traffic.
	Events []string
}

// PagerDutyProvider sends rollout notifications to PagerDuty.
type PagerDutyProvider struct {
	config PagerDutyConfig
	client *http.Client
	apiURL string
}

// NewPagerDutyProvider creates a new PagerDuty notification provider.
func NewPagerDutyProvider(config PagerDutyConfig) *PagerDutyProvider {
	return &PagerDutyProvider{
		config: config,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		apiURL: pagerDutyAPIURL,
	}
}

// Name returns the provider name.
func (p *PagerDutyProvider) Name() string {
	return "pagerduty"
}

// SupportsEvent returns true if this provider handles the given event type.
func (p *PagerDutyProvider) SupportsEvent(eventType EventType) bool {
	if len(p.config.Events) == 0 {
		return eventType == EventTypeRolledBack || eventType == EventTypeRollbackFailed
	}

	eventStr := string(eventType)
	for _, e := range p.config.Events {
		if strings.EqualFold(e, eventStr) {
			return true
		}
	}
	return false
}

// Validate checks if the provider configuration is valid.
func (p *PagerDutyProvider) Validate(ctx context.Context) error {
	if p.config.IntegrationKey == "" {
		return fmt.Errorf("integration key is required")
	}

	if p.config.Severity != "" {
		switch strings.ToLower(p.config.Severity) {
		case "critical", "error", "warning", "info":
			// Valid
		default:
			return fmt.Errorf("invalid severity: %s (must be critical, error, warning, or info)", p.config.Severity)
		}
	}

	return nil
}

// Send sends a PagerDuty event for the given rollout event.
func (p *PagerDutyProvider) Send(ctx context.Context, event RolloutEvent) error {
	payload := p.buildPayload(event)

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal PagerDuty payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.apiURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send PagerDuty notification: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("PagerDuty returned status %d", resp.StatusCode)
	}

	return nil
}

// severityFor maps the event to a PagerDuty severity. A failed rollback is
// always critical: traffic is stuck at a partial split.
func (p *PagerDutyProvider) severityFor(event RolloutEvent) string {
	if event.Type == EventTypeRollbackFailed {
		return "critical"
	}
	if p.config.Severity != "" {
		return strings.ToLower(p.config.Severity)
	}
	return "warning"
}

// buildPayload creates the Events API v2 payload.
func (p *PagerDutyProvider) buildPayload(event RolloutEvent) map[string]interface{} {
	summary := fmt.Sprintf("Rollout %s for %s", event.Type, event.Service)
	if event.Reason != "" {
		summary += ": " + event.Reason
	}

	details := map[string]interface{}{
		"service":   event.Service,
		"candidate": event.Candidate,
		"strategy":  event.Strategy,
		"weight":    event.Weight,
		"reason":    event.Reason,
	}
	if event.Error != nil {
		details["error"] = event.Error.Error()
	}
	for key, value := range event.Metadata {
		details[key] = value
	}

	return map[string]interface{}{
		"routing_key":  p.config.IntegrationKey,
		"event_action": "trigger",
		"dedup_key":    fmt.Sprintf("rollops-%s-%s", event.Service, event.Type),
		"payload": map[string]interface{}{
			"summary":        summary,
			"source":         "rollops",
			"severity":       p.severityFor(event),
			"timestamp":      event.Timestamp.Format(time.RFC3339),
			"custom_details": details,
		},
	}
}
