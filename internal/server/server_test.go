package server

import (
	"context"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthChecker_Readiness(t *testing.T) {
	h := NewHealthChecker()
	assert.True(t, h.IsReady())

	rec := do(h.ReadinessHandler(), http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	h.SetReady(false)
	rec = do(h.ReadinessHandler(), http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), healthStatusNotReady)

	rec = do(h.LivenessHandler(), http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code, "liveness ignores readiness")
}

func TestServer_GracefulShutdown(t *testing.T) {
	health := NewHealthChecker()
	g := New(Options{Health: health, Logger: testLogger()})
	srv := NewServer(g, ServerConfig{ShutdownTimeout: 5 * time.Second, Logger: testLogger()})
	assert.False(t, srv.TLS())

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/health")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
	assert.False(t, health.IsReady())
}
