package google

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/teemow/szymon/internal/instrumentation"
	"github.com/teemow/szymon/internal/logging"
)

// DefaultExpiryDelta is how early a token is considered expired.
const DefaultExpiryDelta = 10 * time.Second

// Config is the OAuth client configuration, fixed for the process lifetime.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string

	// Scopes defaults to DefaultOAuthScopes.
	Scopes []string

	// Endpoint defaults to Google's endpoint. Tests point it at a fake server.
	Endpoint oauth2.Endpoint
}

// Configured reports whether client credentials are present.
func (c Config) Configured() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

// CredentialSource is the gate every upstream call goes through.
type CredentialSource interface {
	ValidCredentials(ctx context.Context) (*Credential, error)
}

// SessionManager drives the authorization-code flow and hands out valid
// credentials, refreshing them when they expire.
//
// Credentials are not cached in memory: every call to ValidCredentials reads
// the store. Refresh and the following write happen under one mutex so that
// concurrent requests on an expired token refresh once.
type SessionManager struct {
	oauth       *oauth2.Config
	store       CredentialStore
	now         func() time.Time
	expiryDelta time.Duration
	logger      logging.Logger
	metrics     *instrumentation.Metrics

	mu sync.Mutex
}

// SessionOption configures a SessionManager.
type SessionOption func(*SessionManager)

// WithClock replaces time.Now for expiry checks.
func WithClock(now func() time.Time) SessionOption {
	return func(s *SessionManager) { s.now = now }
}

// WithExpiryDelta sets how early tokens are treated as expired.
func WithExpiryDelta(d time.Duration) SessionOption {
	return func(s *SessionManager) { s.expiryDelta = d }
}

// WithLogger sets the logger.
func WithLogger(logger logging.Logger) SessionOption {
	return func(s *SessionManager) { s.logger = logger }
}

// WithMetrics records OAuth metrics on m.
func WithMetrics(m *instrumentation.Metrics) SessionOption {
	return func(s *SessionManager) { s.metrics = m }
}

// NewSessionManager creates a session manager backed by store.
func NewSessionManager(cfg Config, store CredentialStore, opts ...SessionOption) (*SessionManager, error) {
	if !cfg.Configured() {
		return nil, fmt.Errorf("google client ID and client secret are required")
	}
	if store == nil {
		return nil, fmt.Errorf("credential store cannot be nil")
	}

	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = DefaultOAuthScopes
	}
	endpoint := cfg.Endpoint
	if endpoint.AuthURL == "" && endpoint.TokenURL == "" {
		endpoint = google.Endpoint
	}

	s := &SessionManager{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       append([]string(nil), scopes...),
			Endpoint:     endpoint,
		},
		store:       store,
		now:         time.Now,
		expiryDelta: DefaultExpiryDelta,
		logger:      logging.DefaultLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// AuthorizationURL returns the consent URL and the anti-forgery state it
// carries. Offline access and a fresh consent prompt are requested so that
// Google always issues a refresh token.
func (s *SessionManager) AuthorizationURL() (string, string, error) {
	state, err := GenerateState()
	if err != nil {
		return "", "", err
	}

	url := s.oauth.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.ApprovalForce,
		oauth2.SetAuthURLParam("include_granted_scopes", "true"),
	)
	return url, state, nil
}

// ExchangeCode trades an authorization code for tokens and persists them,
// replacing any stored record.
func (s *SessionManager) ExchangeCode(ctx context.Context, code string) (*Credential, error) {
	if code == "" {
		s.metrics.RecordOAuthAuth(ctx, instrumentation.OAuthResultFailure)
		return nil, &ExchangeError{Err: errors.New("authorization code is empty")}
	}

	tok, err := s.oauth.Exchange(ctx, code)
	if err != nil {
		s.metrics.RecordOAuthAuth(ctx, instrumentation.OAuthResultFailure)
		s.logger.Warn("authorization code exchange failed", logging.Err(err))
		return nil, &ExchangeError{Err: err}
	}

	cred := credentialFromToken(tok, s.oauth.Scopes)

	s.mu.Lock()
	err = s.store.Save(cred)
	s.mu.Unlock()
	if err != nil {
		s.metrics.RecordOAuthAuth(ctx, instrumentation.OAuthResultFailure)
		return nil, fmt.Errorf("failed to persist credential: %w", err)
	}

	s.metrics.RecordOAuthAuth(ctx, instrumentation.OAuthResultSuccess)
	s.logger.Info("google account authorized",
		"access_token", logging.SanitizeToken(cred.AccessToken),
		"refresh_token_present", cred.Refreshable(),
		"expiry", cred.Expiry)
	return cred, nil
}

// IsAuthenticated reports whether a usable record is stored: a valid token or
// one that can be refreshed. It never touches the network and any read or
// parse failure counts as unauthenticated.
func (s *SessionManager) IsAuthenticated() bool {
	cred, err := s.store.Load()
	if err != nil || cred == nil {
		return false
	}
	return !cred.Expired(s.now(), 0) || cred.Refreshable()
}

// ValidCredentials returns a credential that can be used right now.
//
// Unexpired records are returned as stored. Expired records with a refresh
// token are refreshed with one call to the token endpoint and written back.
// Anything else fails with ErrNotAuthenticated without network traffic.
func (s *SessionManager) ValidCredentials(ctx context.Context) (*Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cred, err := s.store.Load()
	if err != nil {
		if errors.Is(err, ErrNoCredential) {
			return nil, ErrNotAuthenticated
		}
		return nil, fmt.Errorf("%w: %w", ErrNotAuthenticated, err)
	}

	if !cred.Expired(s.now(), s.expiryDelta) {
		return cred, nil
	}

	if !cred.Refreshable() {
		s.metrics.RecordOAuthTokenRefresh(ctx, instrumentation.OAuthResultExpired)
		return nil, fmt.Errorf("%w: token expired and no refresh token is stored", ErrNotAuthenticated)
	}

	refreshed, err := s.refresh(ctx, cred)
	if err != nil {
		s.metrics.RecordOAuthTokenRefresh(ctx, instrumentation.OAuthResultFailure)
		s.logger.Warn("token refresh failed", logging.Err(err))
		return nil, fmt.Errorf("%w: token refresh failed: %w", ErrNotAuthenticated, err)
	}

	if err := s.store.Save(refreshed); err != nil {
		return nil, fmt.Errorf("failed to persist refreshed credential: %w", err)
	}

	s.metrics.RecordOAuthTokenRefresh(ctx, instrumentation.OAuthResultSuccess)
	s.logger.Debug("access token refreshed",
		"access_token", logging.SanitizeToken(refreshed.AccessToken),
		"expiry", refreshed.Expiry)
	return refreshed, nil
}

// refresh exchanges the refresh token for a new access token. The token
// passed to oauth2 carries no access token, which forces exactly one
// round trip to the token endpoint.
func (s *SessionManager) refresh(ctx context.Context, cred *Credential) (*Credential, error) {
	tok, err := s.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: cred.RefreshToken}).Token()
	if err != nil {
		return nil, err
	}

	refreshed := credentialFromToken(tok, cred.Scopes)
	if refreshed.RefreshToken == "" {
		refreshed.RefreshToken = cred.RefreshToken
	}
	return refreshed, nil
}

// GenerateState returns a random URL-safe state value for the consent flow.
func GenerateState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
