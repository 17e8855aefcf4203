package rollout

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systmms/rollops/internal/logging"
)

func TestMetricsServerDisabledIsNoOp(t *testing.T) {
	t.Parallel()

	server := NewMetricsServer(DefaultMetricsServerConfig(), logging.New(false, true))
	require.NoError(t, server.Start())
	assert.Empty(t, server.Addr())
	require.NoError(t, server.Stop(context.Background()))
}

func TestMetricsServerServesRolloutMetrics(t *testing.T) {
	t.Parallel()

	config := DefaultMetricsServerConfig()
	config.Enabled = true
	config.Port = 0

	server := NewMetricsServer(config, logging.New(false, true))
	require.NoError(t, server.Start())
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		require.NoError(t, server.Stop(ctx))
	}()

	require.NotEmpty(t, server.Addr())
	_, port, err := net.SplitHostPort(server.Addr())
	require.NoError(t, err)
	base := fmt.Sprintf("http://localhost:%s", port)

	// Starting the server activates the instrumentation, so this record
	// call must show up in the scrape output.
	NewRolloutMetrics().RecordStarted("metrics-api", "linear")

	resp, err := http.Get(base + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "rollops_rollout_started_total")

	health, err := http.Get(base + "/health")
	require.NoError(t, err)
	defer health.Body.Close()
	assert.Equal(t, http.StatusOK, health.StatusCode)
}
