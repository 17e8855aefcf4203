package rollout

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/systmms/rollops/internal/logging"
	"github.com/systmms/rollops/internal/notifications"
)

// MetricsServerConfig holds configuration for the metrics HTTP server.
type MetricsServerConfig struct {
	// Enabled indicates whether the metrics server should run.
	Enabled bool

	// Port is the port to listen on. Port 0 picks an ephemeral port.
	Port int

	// Path is the path to serve metrics on.
	Path string

	// ReadTimeout is the maximum duration for reading the entire request.
	ReadTimeout time.Duration

	// WriteTimeout is the maximum duration before timing out writes of the response.
	WriteTimeout time.Duration
}

// DefaultMetricsServerConfig returns the default metrics server configuration.
func DefaultMetricsServerConfig() MetricsServerConfig {
	return MetricsServerConfig{
		Enabled:      false,
		Port:         9464,
		Path:         "/metrics",
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
}

// MetricsServer exposes the rollout instrumentation to a Prometheus scraper
// for the lifetime of a rollout.
type MetricsServer struct {
	config   MetricsServerConfig
	logger   *logging.Logger
	server   *http.Server
	listener net.Listener
}

// NewMetricsServer creates a new metrics server.
func NewMetricsServer(config MetricsServerConfig, logger *logging.Logger) *MetricsServer {
	if config.Path == "" {
		config.Path = "/metrics"
	}
	if config.ReadTimeout == 0 {
		config.ReadTimeout = 5 * time.Second
	}
	if config.WriteTimeout == 0 {
		config.WriteTimeout = 10 * time.Second
	}
	if logger == nil {
		logger = logging.New(false, true)
	}
	return &MetricsServer{
		config: config,
		logger: logger,
	}
}

// Start registers the metrics and serves them in the background. It is a
// no-op when the server is disabled.
func (s *MetricsServer) Start() error {
	if !s.config.Enabled {
		return nil
	}

	// Registration is idempotent; activating the server activates every
	// record call in the controller and the notification manager.
	InitMetrics()
	notifications.InitMetrics()

	mux := http.NewServeMux()
	mux.Handle(s.config.Path, promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", s.config.Port))
	if err != nil {
		return fmt.Errorf("failed to start metrics server: %w", err)
	}
	s.listener = listener
	s.server = &http.Server{
		Handler:      mux,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	go func() {
		if err := s.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			// Metrics are non-critical; never fail a rollout over them.
			s.logger.Warn("metrics server error: %v", err)
		}
	}()

	s.logger.Debug("metrics server listening on %s%s", listener.Addr(), s.config.Path)
	return nil
}

// Stop gracefully shuts down the metrics server.
func (s *MetricsServer) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Addr returns the listen address, or "" when the server is not running.
func (s *MetricsServer) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}
