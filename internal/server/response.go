package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/teemow/szymon/internal/google"
	"github.com/teemow/szymon/internal/logging"
)

// Surfaces exposed by the gateway. Both share one OAuth session.
const (
	surfaceTasks    = "tasks"
	surfaceCalendar = "calendar"
)

// errNotConfigured is returned when no Google client ID/secret was given.
var errNotConfigured = errors.New("google client not configured")

// errorResponse is the body of every JSON error.
type errorResponse struct {
	Detail string `json:"detail"`
}

func displayName(surface string) string {
	if surface == surfaceCalendar {
		return "Google Calendar"
	}
	return "Google Tasks"
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorResponse{Detail: detail})
}

// statusAndDetail maps an error to the HTTP status and detail message shown
// to the caller. It is the only place that does so.
func statusAndDetail(surface string, err error) (int, string) {
	var (
		exchangeErr *google.ExchangeError
		upstreamErr *google.UpstreamError
	)

	switch {
	case errors.Is(err, errNotConfigured):
		return http.StatusServiceUnavailable,
			fmt.Sprintf("%s not configured. Set GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET", displayName(surface))
	case errors.Is(err, google.ErrNotAuthenticated):
		return http.StatusUnauthorized, fmt.Sprintf("Not authenticated. Visit /api/%s/auth/login", surface)
	case errors.As(err, &exchangeErr):
		return http.StatusBadRequest, exchangeErr.Error()
	case errors.Is(err, google.ErrInvalidInput):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, google.ErrNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, google.ErrThrottled):
		return http.StatusServiceUnavailable, err.Error()
	case errors.As(err, &upstreamErr):
		return http.StatusInternalServerError, upstreamErr.Error()
	default:
		return http.StatusInternalServerError, err.Error()
	}
}

// writeError writes err as a JSON detail body with the mapped status.
func (g *Gateway) writeError(w http.ResponseWriter, r *http.Request, surface string, err error) {
	status, detail := statusAndDetail(surface, err)

	level := slog.LevelDebug
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	g.logger.LogAttrs(r.Context(), level, "request failed",
		logging.RequestIDAttr(r.Context()),
		logging.Surface(surface),
		slog.Int("http_status", status),
		logging.Err(err),
	)

	writeDetail(w, status, detail)
}
