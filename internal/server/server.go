package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"
)

// DefaultShutdownTimeout bounds graceful shutdown.
const DefaultShutdownTimeout = 30 * time.Second

// ServerConfig configures the listening side of the gateway.
type ServerConfig struct {
	Addr string

	// CertFile and KeyFile enable HTTPS when both are set.
	CertFile string
	KeyFile  string

	// ShutdownTimeout defaults to DefaultShutdownTimeout.
	ShutdownTimeout time.Duration

	Logger *slog.Logger
}

// Server runs a Gateway until its context is cancelled.
type Server struct {
	gateway    *Gateway
	httpServer *http.Server

	certFile string
	keyFile  string
	timeout  time.Duration
	logger   *slog.Logger
}

// NewServer wraps g in an http.Server.
func NewServer(g *Gateway, cfg ServerConfig) *Server {
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Server{
		gateway: g,
		httpServer: &http.Server{
			Addr:              cfg.Addr,
			Handler:           g.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
			WriteTimeout:      60 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		certFile: cfg.CertFile,
		keyFile:  cfg.KeyFile,
		timeout:  cfg.ShutdownTimeout,
		logger:   cfg.Logger,
	}
}

// TLS reports whether the server speaks HTTPS.
func (s *Server) TLS() bool {
	return s.certFile != "" && s.keyFile != ""
}

// Run listens on the configured address and serves until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.httpServer.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done, then marks the gateway not ready
// and shuts down gracefully. It returns nil after a clean shutdown.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		var err error
		if s.TLS() {
			err = s.httpServer.ServeTLS(ln, s.certFile, s.keyFile)
		} else {
			err = s.httpServer.Serve(ln)
		}
		if !errors.Is(err, http.ErrServerClosed) {
			serverDone <- err
		}
	}()

	s.logger.Info("gateway listening",
		slog.String("addr", ln.Addr().String()),
		slog.Bool("tls", s.TLS()),
	)

	select {
	case <-ctx.Done():
		s.logger.Info("shutdown signal received, stopping gateway")
		s.gateway.health.SetReady(false)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("error shutting down gateway: %w", err)
		}
	case err := <-serverDone:
		if err != nil {
			return fmt.Errorf("gateway stopped with error: %w", err)
		}
	}

	s.logger.Info("gateway stopped")
	return nil
}
