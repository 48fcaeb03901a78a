package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"

	"github.com/felixge/httpsnoop"
	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/trace"

	"github.com/teemow/szymon/internal/instrumentation"
	"github.com/teemow/szymon/internal/logging"
)

// RequestIDHeader carries the request ID in both directions.
const RequestIDHeader = "X-Request-ID"

const maxRequestIDLength = 128

type routeKey struct{}

// routeInfo is filled in by the router once a route matched, so that
// middleware outside the router can label the request by template.
type routeInfo struct {
	template string
}

// recoverPanics turns a panicking handler into a 500 carrying the panic
// message.
func (g *Gateway) recoverPanics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}

			g.logger.LogAttrs(r.Context(), slog.LevelError, "unhandled panic",
				logging.RequestIDAttr(r.Context()),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Any("panic", rec),
				slog.String("stack", string(debug.Stack())),
			)
			writeDetail(w, http.StatusInternalServerError, fmt.Sprint(rec))
		}()

		next.ServeHTTP(w, r)
	})
}

// requestID propagates X-Request-ID, generating one when the caller sent
// none.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" || len(id) > maxRequestIDLength {
			id = logging.NewRequestID()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(logging.WithRequestID(r.Context(), id)))
	})
}

// accessLog logs every request and records http_requests_total by route
// template.
func (g *Gateway) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		info := &routeInfo{}
		r = r.WithContext(context.WithValue(r.Context(), routeKey{}, info))

		m := httpsnoop.CaptureMetrics(next, w, r)

		route := instrumentation.RouteLabel(info.template)
		g.metrics.RecordHTTPRequest(r.Context(), r.Method, route, m.Code, m.Duration)

		g.logger.LogAttrs(r.Context(), slog.LevelInfo, "http request",
			logging.RequestIDAttr(r.Context()),
			slog.String("method", r.Method),
			logging.Route(route),
			slog.Int("http_status", m.Code),
			slog.Duration(logging.KeyDuration, m.Duration),
			slog.Int64("bytes", m.Written),
		)
	})
}

// tracing wraps the handler in an otelhttp server span.
func tracing(next http.Handler) http.Handler {
	return otelhttp.NewHandler(next, "http.server")
}

// markRoute runs inside the router and publishes the matched template to
// accessLog. The server span is renamed after it as well.
func markRoute(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if route := mux.CurrentRoute(r); route != nil {
			if tpl, err := route.GetPathTemplate(); err == nil {
				if info, ok := r.Context().Value(routeKey{}).(*routeInfo); ok {
					info.template = tpl
				}
				trace.SpanFromContext(r.Context()).SetName(r.Method + " " + tpl)
			}
		}
		next.ServeHTTP(w, r)
	})
}

func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "same-origin")
		next.ServeHTTP(w, r)
	})
}

// jsonContentType defaults API responses to JSON. Handlers that write HTML
// override it.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/") {
			w.Header().Set("Content-Type", "application/json")
		}
		next.ServeHTTP(w, r)
	})
}
