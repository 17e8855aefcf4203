package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	rerrors "github.com/systmms/rollops/internal/errors"
)

// RouterClientConfig holds configuration for the traffic router client.
type RouterClientConfig struct {
	// Endpoint is the base URL of the traffic router API.
	Endpoint string

	// Token is an optional bearer token.
	Token string

	// Timeout for a single HTTP request.
	Timeout time.Duration
}

// RouterClient implements TrafficRouter against the router API.
type RouterClient struct {
	config RouterClientConfig
	client *http.Client
}

// NewRouterClient creates a traffic router client.
func NewRouterClient(config RouterClientConfig) *RouterClient {
	if config.Timeout == 0 {
		config.Timeout = 15 * time.Second
	}
	return &RouterClient{
		config: config,
		client: &http.Client{Timeout: config.Timeout},
	}
}

// GetSplit reads the live stable/candidate split for the service.
func (c *RouterClient) GetSplit(ctx context.Context, service string) (TrafficSplit, error) {
	url := fmt.Sprintf("%s/v1/services/%s/traffic", c.config.Endpoint, service)

	var split TrafficSplit
	if err := c.do(ctx, http.MethodGet, url, nil, &split); err != nil {
		return TrafficSplit{}, rerrors.ClientError{Client: "router", Operation: "getSplit", Err: err}
	}

	if split.Stable+split.Candidate != 100 {
		return TrafficSplit{}, rerrors.ClientError{
			Client:    "router",
			Operation: "getSplit",
			Err:       fmt.Errorf("router reported split %d/%d, weights must sum to 100", split.Stable, split.Candidate),
		}
	}
	return split, nil
}

// SetSplit writes the stable/candidate split for the service.
func (c *RouterClient) SetSplit(ctx context.Context, service string, split TrafficSplit) error {
	if split.Stable+split.Candidate != 100 {
		return rerrors.ClientError{
			Client:    "router",
			Operation: "setSplit",
			Err:       fmt.Errorf("refusing to write split %d/%d, weights must sum to 100", split.Stable, split.Candidate),
		}
	}

	url := fmt.Sprintf("%s/v1/services/%s/traffic", c.config.Endpoint, service)
	if err := c.do(ctx, http.MethodPut, url, split, nil); err != nil {
		return rerrors.ClientError{Client: "router", Operation: "setSplit", Err: err}
	}
	return nil
}

func (c *RouterClient) do(ctx context.Context, method, url string, payload, out interface{}) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.config.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.Token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("router API returned %d: %s", resp.StatusCode, string(data))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}
