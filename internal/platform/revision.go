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

// RevisionClientConfig holds configuration for the revision admin API client.
type RevisionClientConfig struct {
	// Endpoint is the base URL of the platform admin API.
	Endpoint string

	// Token is an optional bearer token.
	Token string

	// Timeout for a single HTTP request.
	Timeout time.Duration

	// PollInterval is how often WaitReady polls the revision.
	PollInterval time.Duration
}

// RevisionClient implements RevisionLifecycle against the platform admin API.
type RevisionClient struct {
	config RevisionClientConfig
	client *http.Client
}

// NewRevisionClient creates a revision lifecycle client.
func NewRevisionClient(config RevisionClientConfig) *RevisionClient {
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.PollInterval == 0 {
		config.PollInterval = 5 * time.Second
	}
	return &RevisionClient{
		config: config,
		client: &http.Client{Timeout: config.Timeout},
	}
}

type revisionPayload struct {
	Name   string `json:"name"`
	Image  string `json:"image"`
	CPU    string `json:"cpu,omitempty"`
	Memory string `json:"memory,omitempty"`
}

type revisionStatus struct {
	Name  string `json:"name"`
	Image string `json:"image"`
	Ready bool   `json:"ready"`
}

// Create registers a new revision for the service.
func (c *RevisionClient) Create(ctx context.Context, service, name, image string, limits ResourceLimits) (RevisionHandle, error) {
	payload := revisionPayload{Name: name, Image: image, CPU: limits.CPU, Memory: limits.Memory}
	url := fmt.Sprintf("%s/v1/services/%s/revisions", c.config.Endpoint, service)

	var status revisionStatus
	if err := c.do(ctx, http.MethodPost, url, payload, &status); err != nil {
		return RevisionHandle{}, rerrors.ClientError{Client: "revisions", Operation: "create", Err: err}
	}

	return RevisionHandle{Service: service, Name: status.Name, Image: status.Image}, nil
}

// WaitReady polls the revision until it reports ready or the timeout elapses.
func (c *RevisionClient) WaitReady(ctx context.Context, handle RevisionHandle, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	url := fmt.Sprintf("%s/v1/services/%s/revisions/%s", c.config.Endpoint, handle.Service, handle.Name)

	for {
		var status revisionStatus
		if err := c.do(ctx, http.MethodGet, url, nil, &status); err != nil {
			return rerrors.ClientError{Client: "revisions", Operation: "waitReady", Err: err}
		}
		if status.Ready {
			return nil
		}

		if time.Now().After(deadline) {
			return rerrors.ReadinessTimeoutError{Revision: handle.Name, Timeout: timeout}
		}

		select {
		case <-time.After(c.config.PollInterval):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// UpdateImage repoints an existing revision at a new image.
func (c *RevisionClient) UpdateImage(ctx context.Context, handle RevisionHandle, image string) (RevisionHandle, error) {
	payload := revisionPayload{Image: image}
	url := fmt.Sprintf("%s/v1/services/%s/revisions/%s", c.config.Endpoint, handle.Service, handle.Name)

	var status revisionStatus
	if err := c.do(ctx, http.MethodPatch, url, payload, &status); err != nil {
		return RevisionHandle{}, rerrors.ClientError{Client: "revisions", Operation: "updateImage", Err: err}
	}

	handle.Image = status.Image
	return handle, nil
}

// Delete removes the revision.
func (c *RevisionClient) Delete(ctx context.Context, handle RevisionHandle) error {
	url := fmt.Sprintf("%s/v1/services/%s/revisions/%s", c.config.Endpoint, handle.Service, handle.Name)
	if err := c.do(ctx, http.MethodDelete, url, nil, nil); err != nil {
		return rerrors.ClientError{Client: "revisions", Operation: "delete", Err: err}
	}
	return nil
}

// do executes one request against the admin API and decodes the response.
func (c *RevisionClient) do(ctx context.Context, method, url string, payload, out interface{}) error {
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
		return fmt.Errorf("admin API returned %d: %s", resp.StatusCode, string(data))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}
