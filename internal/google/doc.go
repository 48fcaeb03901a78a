// Package google provides OAuth2 authentication and token management for Google APIs.
//
// The package owns the single-user token lifecycle of the gateway:
//
//   - FileStore persists one Credential to disk, optionally encrypted with AES-256-GCM.
//   - SessionManager drives the authorization-code flow and is the only way to
//     obtain a usable access token. Expired tokens are refreshed silently and the
//     refreshed record is written back under a process-wide lock.
//   - RateLimiter throttles outbound calls per Google service.
//
// Errors returned by the package and by the API adapters built on it follow a
// small taxonomy (ErrNotAuthenticated, ErrNotFound, *ExchangeError,
// *UpstreamError) that the HTTP layer maps to status codes.
package google
