package platform_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	rerrors "github.com/systmms/rollops/internal/errors"
	"github.com/systmms/rollops/internal/platform"
)

func TestRevisionClient_Create(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/services/scoring-api/revisions", r.URL.Path)

		var payload map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "scoring-api-v42", payload["name"])
		assert.Equal(t, "registry.local/scoring:v42", payload["image"])
		assert.Equal(t, "500m", payload["cpu"])

		json.NewEncoder(w).Encode(map[string]interface{}{
			"name":  "scoring-api-v42",
			"image": "registry.local/scoring:v42",
			"ready": false,
		})
	}))
	defer server.Close()

	client := platform.NewRevisionClient(platform.RevisionClientConfig{Endpoint: server.URL})

	handle, err := client.Create(context.Background(), "scoring-api", "scoring-api-v42",
		"registry.local/scoring:v42", platform.ResourceLimits{CPU: "500m", Memory: "512Mi"})
	require.NoError(t, err)
	assert.Equal(t, "scoring-api", handle.Service)
	assert.Equal(t, "scoring-api-v42", handle.Name)
	assert.Equal(t, "registry.local/scoring:v42", handle.Image)
}

func TestRevisionClient_WaitReadyPollsUntilReady(t *testing.T) {
	t.Parallel()

	var polls int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt64(&polls, 1)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"name":  "scoring-api-v42",
			"ready": n >= 3,
		})
	}))
	defer server.Close()

	client := platform.NewRevisionClient(platform.RevisionClientConfig{
		Endpoint:     server.URL,
		PollInterval: 5 * time.Millisecond,
	})

	handle := platform.RevisionHandle{Service: "scoring-api", Name: "scoring-api-v42"}
	err := client.WaitReady(context.Background(), handle, time.Second)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, atomic.LoadInt64(&polls), int64(3))
}

func TestRevisionClient_WaitReadyTimeout(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"name": "scoring-api-v42", "ready": false})
	}))
	defer server.Close()

	client := platform.NewRevisionClient(platform.RevisionClientConfig{
		Endpoint:     server.URL,
		PollInterval: 5 * time.Millisecond,
	})

	handle := platform.RevisionHandle{Service: "scoring-api", Name: "scoring-api-v42"}
	err := client.WaitReady(context.Background(), handle, 20*time.Millisecond)
	require.Error(t, err)

	var timeoutErr rerrors.ReadinessTimeoutError
	assert.ErrorAs(t, err, &timeoutErr)
	assert.Equal(t, "scoring-api-v42", timeoutErr.Revision)
}

func TestRevisionClient_UpdateImage(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/v1/services/scoring-api/revisions/scoring-api-stable", r.URL.Path)

		var payload map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))

		json.NewEncoder(w).Encode(map[string]interface{}{
			"name":  "scoring-api-stable",
			"image": payload["image"],
			"ready": true,
		})
	}))
	defer server.Close()

	client := platform.NewRevisionClient(platform.RevisionClientConfig{Endpoint: server.URL})

	handle := platform.RevisionHandle{Service: "scoring-api", Name: "scoring-api-stable", Image: "registry.local/scoring:v41"}
	updated, err := client.UpdateImage(context.Background(), handle, "registry.local/scoring:v42")
	require.NoError(t, err)
	assert.Equal(t, "registry.local/scoring:v42", updated.Image)
	assert.Equal(t, "scoring-api-stable", updated.Name)
}

func TestRevisionClient_Delete(t *testing.T) {
	t.Parallel()

	var deleted int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		atomic.AddInt64(&deleted, 1)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := platform.NewRevisionClient(platform.RevisionClientConfig{Endpoint: server.URL})

	handle := platform.RevisionHandle{Service: "scoring-api", Name: "scoring-api-v42"}
	require.NoError(t, client.Delete(context.Background(), handle))
	assert.Equal(t, int64(1), atomic.LoadInt64(&deleted))
}

func TestRevisionClient_ServerErrorIsClientError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := platform.NewRevisionClient(platform.RevisionClientConfig{Endpoint: server.URL})

	_, err := client.Create(context.Background(), "scoring-api", "x", "img", platform.ResourceLimits{})
	require.Error(t, err)

	var clientErr rerrors.ClientError
	require.ErrorAs(t, err, &clientErr)
	assert.Equal(t, "revisions", clientErr.Client)
	assert.Equal(t, "create", clientErr.Operation)
}
