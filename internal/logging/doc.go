// Package logging provides structured logging utilities for szymon.
//
// All packages log through the small Logger interface, backed by log/slog.
// Attribute keys are shared constants so that log lines from the session
// manager, the Google adapters and the HTTP gateway can be filtered the
// same way.
//
// # Usage Patterns
//
// Build the process logger once from configuration:
//
//	logger := logging.New(logging.Options{Level: "debug", Format: "json"})
//
// Tag request-scoped lines with the request ID:
//
//	ctx = logging.WithRequestID(ctx, logging.NewRequestID())
//	logger.Info("task created", logging.RequestIDAttr(ctx), logging.Surface("tasks"))
//
// # Security Considerations
//
// Access and refresh tokens are never logged. Use SanitizeToken, which only
// reports the token length.
package logging
