package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// SlackConfig holds configuration for Slack webhook notifications.
type SlackConfig struct {
	// WebhookURL is the Slack incoming webhook URL.
	WebhookURL string

	// Channel is the Slack channel to post to (optional, uses webhook default).
	Channel string

	// Events specifies which rollout events trigger notifications.
	// If empty, all events are sent.
	Events []string

	// MentionOnRollback lists Slack handles to mention on rollback events.
	MentionOnRollback []string
}

// SlackProvider sends rollout notifications to Slack via webhooks.
type SlackProvider struct {
	config SlackConfig
	client *http.Client
}

// NewSlackProvider creates a new Slack notification provider.
func NewSlackProvider(config SlackConfig) *SlackProvider {
	return &SlackProvider{
		config: config,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Name returns the provider name.
func (p *SlackProvider) Name() string {
	return "slack"
}

// SupportsEvent returns true if this provider handles the given event type.
func (p *SlackProvider) SupportsEvent(eventType EventType) bool {
	if len(p.config.Events) == 0 {
		return true
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
func (p *SlackProvider) Validate(ctx context.Context) error {
	if p.config.WebhookURL == "" {
		return fmt.Errorf("webhook URL is required")
	}

	parsed, err := url.Parse(p.config.WebhookURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("invalid webhook URL: %s", p.config.WebhookURL)
	}

	return nil
}

// Send sends a notification to Slack for the given rollout event.
func (p *SlackProvider) Send(ctx context.Context, event RolloutEvent) error {
	message := p.buildMessage(event)

	body, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal Slack message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.config.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send Slack notification: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("slack returned status %d", resp.StatusCode)
	}

	return nil
}

var slackEmojis = map[EventType]string{
	EventTypeStarted:        ":rocket:",
	EventTypePromoted:       ":white_check_mark:",
	EventTypeRolledBack:     ":leftwards_arrow_with_hook:",
	EventTypeRollbackFailed: ":rotating_light:",
}

// buildMessage creates a Block Kit formatted Slack message.
func (p *SlackProvider) buildMessage(event RolloutEvent) map[string]interface{} {
	emoji := slackEmojis[event.Type]

	headline := fmt.Sprintf("%s Rollout %s: *%s*", emoji, event.Type, event.Service)

	var lines []string
	if event.Candidate != "" {
		lines = append(lines, fmt.Sprintf("Candidate: `%s`", event.Candidate))
	}
	if event.Strategy != "" {
		lines = append(lines, fmt.Sprintf("Strategy: %s", event.Strategy))
	}
	lines = append(lines, fmt.Sprintf("Traffic weight: %d%%", event.Weight))
	if event.Reason != "" {
		lines = append(lines, fmt.Sprintf("Reason: %s", event.Reason))
	}
	if event.Error != nil {
		lines = append(lines, fmt.Sprintf("Error: %v", event.Error))
	}
	if event.Duration > 0 {
		lines = append(lines, fmt.Sprintf("Duration: %s", event.Duration.Round(time.Second)))
	}

	if (event.Type == EventTypeRolledBack || event.Type == EventTypeRollbackFailed) && len(p.config.MentionOnRollback) > 0 {
		mentions := make([]string, 0, len(p.config.MentionOnRollback))
		for _, handle := range p.config.MentionOnRollback {
			if !strings.HasPrefix(handle, "@") {
				handle = "@" + handle
			}
			mentions = append(mentions, fmt.Sprintf("<%s>", handle))
		}
		lines = append(lines, "cc "+strings.Join(mentions, " "))
	}

	message := map[string]interface{}{
		"blocks": []map[string]interface{}{
			{
				"type": "section",
				"text": map[string]string{
					"type": "mrkdwn",
					"text": headline + "\n" + strings.Join(lines, "\n"),
				},
			},
		},
	}
	if p.config.Channel != "" {
		message["channel"] = p.config.Channel
	}
	return message
}
