// Package server is the HTTP gateway of szymon.
//
// Gateway exposes Google Tasks under /api/tasks and Google Calendar under
// /api/calendar as a small JSON API, runs the browser side of the OAuth
// consent flow under /api/{tasks,calendar}/auth, and hosts the built
// frontend for every other path. Both surfaces share one Google session.
//
// Adapter errors are mapped to HTTP statuses in a single place:
//
//	not configured        503
//	not authenticated     401
//	invalid input         400
//	not found             404
//	throttled             503
//	anything else         500
//
// Server runs a Gateway with graceful shutdown, MetricsServer exposes
// Prometheus metrics on a separate port and EnsureCertificate bootstraps a
// development certificate with mkcert.
package server
