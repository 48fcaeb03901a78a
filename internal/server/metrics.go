package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/teemow/szymon/internal/instrumentation"
)

const (
	// DefaultMetricsAddr is the default address for the metrics server.
	DefaultMetricsAddr = ":9090"

	// DefaultMetricsReadTimeout is the default read timeout for the metrics server.
	DefaultMetricsReadTimeout = 10 * time.Second

	// DefaultMetricsWriteTimeout is the default write timeout for the metrics server.
	DefaultMetricsWriteTimeout = 10 * time.Second

	// DefaultMetricsIdleTimeout is the default idle timeout for the metrics server.
	DefaultMetricsIdleTimeout = 60 * time.Second
)

// MetricsServerConfig holds configuration for the metrics server.
type MetricsServerConfig struct {
	// Addr is the address to bind to, e.g. ":9090".
	Addr string

	// Path is where metrics are served. Defaults to "/metrics".
	Path string

	// Provider supplies the Prometheus handler. It must use the
	// prometheus metrics exporter.
	Provider *instrumentation.Provider

	Logger *slog.Logger
}

// MetricsServer serves Prometheus metrics on its own port, away from the gateway.
type MetricsServer struct {
	httpServer *http.Server
	addr       string
	logger     *slog.Logger
}

// NewMetricsServer creates a metrics server. It fails when the provider is
// missing, disabled or not exporting to Prometheus.
func NewMetricsServer(config MetricsServerConfig) (*MetricsServer, error) {
	if config.Addr == "" {
		config.Addr = DefaultMetricsAddr
	}
	if config.Path == "" {
		config.Path = "/metrics"
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	if config.Provider == nil {
		return nil, errors.New("instrumentation provider is required for metrics server")
	}
	if !config.Provider.Enabled() {
		return nil, errors.New("instrumentation provider is not enabled")
	}
	handler := config.Provider.PrometheusHandler()
	if handler == nil {
		return nil, errors.New("instrumentation provider has no prometheus exporter")
	}

	mux := http.NewServeMux()
	mux.Handle(config.Path, handler)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return &MetricsServer{
		httpServer: &http.Server{
			Addr:              config.Addr,
			Handler:           mux,
			ReadHeaderTimeout: DefaultMetricsReadTimeout,
			WriteTimeout:      DefaultMetricsWriteTimeout,
			IdleTimeout:       DefaultMetricsIdleTimeout,
		},
		addr:   config.Addr,
		logger: config.Logger.With(slog.String("component", "metrics")),
	}, nil
}

// Handler returns the metrics mux, for tests and embedding.
func (s *MetricsServer) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start listens on the configured address and blocks until Shutdown.
// It returns nil after a graceful shutdown.
func (s *MetricsServer) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve serves metrics on ln until Shutdown.
func (s *MetricsServer) Serve(ln net.Listener) error {
	s.logger.Info("starting metrics server", slog.String("addr", ln.Addr().String()))
	if err := s.httpServer.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the metrics server.
func (s *MetricsServer) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down metrics server")
	return s.httpServer.Shutdown(ctx)
}

// Addr returns the configured address for the metrics server.
func (s *MetricsServer) Addr() string {
	return s.addr
}
