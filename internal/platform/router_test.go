package platform_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	rerrors "github.com/systmms/rollops/internal/errors"
	"github.com/systmms/rollops/internal/platform"
)

func TestRouterClient_GetSplit(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/v1/services/scoring-api/traffic", r.URL.Path)
		json.NewEncoder(w).Encode(platform.TrafficSplit{Stable: 75, Candidate: 25})
	}))
	defer server.Close()

	client := platform.NewRouterClient(platform.RouterClientConfig{Endpoint: server.URL})

	split, err := client.GetSplit(context.Background(), "scoring-api")
	require.NoError(t, err)
	assert.Equal(t, 75, split.Stable)
	assert.Equal(t, 25, split.Candidate)
}

func TestRouterClient_GetSplitRejectsBadSum(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(platform.TrafficSplit{Stable: 80, Candidate: 25})
	}))
	defer server.Close()

	client := platform.NewRouterClient(platform.RouterClientConfig{Endpoint: server.URL})

	_, err := client.GetSplit(context.Background(), "scoring-api")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sum to 100")
}

func TestRouterClient_SetSplit(t *testing.T) {
	t.Parallel()

	var got platform.TrafficSplit
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/v1/services/scoring-api/traffic", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := platform.NewRouterClient(platform.RouterClientConfig{Endpoint: server.URL})

	err := client.SetSplit(context.Background(), "scoring-api", platform.TrafficSplit{Stable: 50, Candidate: 50})
	require.NoError(t, err)
	assert.Equal(t, platform.TrafficSplit{Stable: 50, Candidate: 50}, got)
}

func TestRouterClient_SetSplitRefusesBadSum(t *testing.T) {
	t.Parallel()

	client := platform.NewRouterClient(platform.RouterClientConfig{Endpoint: "http://unused"})

	err := client.SetSplit(context.Background(), "scoring-api", platform.TrafficSplit{Stable: 90, Candidate: 20})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "refusing to write")
}

func TestRouterClient_ServerError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "router overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := platform.NewRouterClient(platform.RouterClientConfig{Endpoint: server.URL})

	_, err := client.GetSplit(context.Background(), "scoring-api")
	require.Error(t, err)

	var clientErr rerrors.ClientError
	require.ErrorAs(t, err, &clientErr)
	assert.Equal(t, "router", clientErr.Client)
	assert.Contains(t, err.Error(), "503")
}

func TestRouterClient_BearerToken(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer sekrit", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(platform.TrafficSplit{Stable: 100, Candidate: 0})
	}))
	defer server.Close()

	client := platform.NewRouterClient(platform.RouterClientConfig{
		Endpoint: server.URL,
		Token:    "sekrit",
		Timeout:  5 * time.Second,
	})

	_, err := client.GetSplit(context.Background(), "scoring-api")
	require.NoError(t, err)
}
