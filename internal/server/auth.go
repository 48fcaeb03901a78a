package server

import (
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/teemow/szymon/internal/google"
	"github.com/teemow/szymon/internal/instrumentation"
	"github.com/teemow/szymon/internal/logging"
)

var (
	signedInPage = template.Must(template.New("signed-in").Parse(`<!DOCTYPE html>
<html><head><title>Signed in</title></head>
<body><p>Signed in to {{.}}. You can close this window.</p>
<script>window.close()</script></body></html>
`))

	authFailedPage = template.Must(template.New("auth-failed").Parse(
		`<html><body><h1>Authentication failed</h1><p>{{.}}</p></body></html>
`))
)

type authStatus struct {
	Configured    bool `json:"configured"`
	Authenticated bool `json:"authenticated"`
}

// handleAuthStatus reports whether a client is configured and a usable
// token is stored. It never calls Google.
func (g *Gateway) handleAuthStatus(w http.ResponseWriter, _ *http.Request) {
	if g.auth == nil {
		writeJSON(w, http.StatusOK, authStatus{})
		return
	}
	writeJSON(w, http.StatusOK, authStatus{
		Configured:    true,
		Authenticated: g.auth.IsAuthenticated(),
	})
}

// handleLogin redirects to the consent page and remembers the state with
// the surface that asked.
func (g *Gateway) handleLogin(surface string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if g.auth == nil {
			g.writeError(w, r, surface, errNotConfigured)
			return
		}

		authURL, state, err := g.auth.AuthorizationURL()
		if err != nil {
			g.writeError(w, r, surface, fmt.Errorf("failed to build authorization URL: %w", err))
			return
		}
		g.states.Put(r.Context(), state, surface)

		http.Redirect(w, r, authURL, http.StatusFound)
	}
}

// handleCallback completes the consent flow. Google sends the browser back
// here with code and state. Failures are rendered as an HTML page since the
// caller is a browser, not the API client.
func (g *Gateway) handleCallback(routeSurface string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if g.auth == nil {
			g.writeError(w, r, routeSurface, errNotConfigured)
			return
		}

		q := r.URL.Query()
		surface, err := g.states.Consume(r.Context(), q.Get("state"))
		if err != nil {
			g.metrics.RecordOAuthAuth(r.Context(), instrumentation.OAuthResultFailure)
			g.authFailed(w, r, routeSurface, fmt.Errorf("invalid state: %w", err))
			return
		}
		if reason := q.Get("error"); reason != "" {
			g.metrics.RecordOAuthAuth(r.Context(), instrumentation.OAuthResultFailure)
			g.authFailed(w, r, surface, fmt.Errorf("consent was not granted: %s", reason))
			return
		}
		code := q.Get("code")
		if code == "" {
			g.metrics.RecordOAuthAuth(r.Context(), instrumentation.OAuthResultFailure)
			g.authFailed(w, r, surface, errors.New("missing authorization code"))
			return
		}

		err = g.audited(r, surface, "oauth.callback", "", "", func() error {
			_, err := g.auth.ExchangeCode(r.Context(), code)
			return err
		})
		if err != nil {
			g.authFailed(w, r, surface, err)
			return
		}

		g.logger.LogAttrs(r.Context(), slog.LevelInfo, "sign-in completed",
			logging.RequestIDAttr(r.Context()),
			logging.Surface(surface),
		)

		if g.frontendURL == "" {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.WriteHeader(http.StatusOK)
			_ = signedInPage.Execute(w, displayName(surface))
			return
		}
		http.Redirect(w, r, g.redirectTarget(surface), http.StatusFound)
	}
}

// redirectTarget is where the browser lands after signing in from surface.
func (g *Gateway) redirectTarget(surface string) string {
	if surface == surfaceCalendar {
		return g.frontendURL + "/calendar"
	}
	return g.frontendURL + "/"
}

func (g *Gateway) authFailed(w http.ResponseWriter, r *http.Request, surface string, err error) {
	var exchangeErr *google.ExchangeError
	level := slog.LevelWarn
	if !errors.As(err, &exchangeErr) {
		level = slog.LevelInfo
	}
	g.logger.LogAttrs(r.Context(), level, "sign-in failed",
		logging.RequestIDAttr(r.Context()),
		logging.Surface(surface),
		logging.Err(err),
	)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusBadRequest)
	_ = authFailedPage.Execute(w, err.Error())
}
