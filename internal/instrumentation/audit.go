package instrumentation

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// AuditEvent captures one state-changing gateway action: a task or event
// write, or a completed sign-in. Reads are not audited.
type AuditEvent struct {
	// Action, e.g. "task.create", "event.delete", "oauth.callback".
	Action string

	// Surface is "tasks" or "calendar".
	Surface string

	// ContainerID is the task list or calendar ID.
	ContainerID string
	// ResourceID is the task or event ID, when known.
	ResourceID string

	RequestID string

	StartTime time.Time
	Duration  time.Duration
	Success   bool
	Error     string

	TraceID string
	SpanID  string
}

// NewAuditEvent starts timing an action. Call Complete when it finishes.
func NewAuditEvent(surface, action string) *AuditEvent {
	return &AuditEvent{
		Action:    action,
		Surface:   surface,
		StartTime: time.Now(),
	}
}

// WithTarget sets the container and resource the action applies to.
func (e *AuditEvent) WithTarget(containerID, resourceID string) *AuditEvent {
	e.ContainerID = containerID
	e.ResourceID = resourceID
	return e
}

// WithRequestID sets the gateway request ID.
func (e *AuditEvent) WithRequestID(id string) *AuditEvent {
	e.RequestID = id
	return e
}

// WithSpanContext extracts trace context from the current span.
func (e *AuditEvent) WithSpanContext(ctx context.Context) *AuditEvent {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		e.TraceID = span.SpanContext().TraceID().String()
		e.SpanID = span.SpanContext().SpanID().String()
	}
	return e
}

// Complete marks the action as finished. A nil err means success.
func (e *AuditEvent) Complete(err error) *AuditEvent {
	e.Duration = time.Since(e.StartTime)
	e.Success = err == nil
	if err != nil {
		e.Error = err.Error()
	}
	return e
}

// Status returns "success" or "error" based on the Success field.
func (e *AuditEvent) Status() string {
	if e.Success {
		return StatusSuccess
	}
	return StatusError
}

// LogAttrs returns slog attributes for the event. Optional fields are
// omitted when empty.
func (e *AuditEvent) LogAttrs() []slog.Attr {
	attrs := []slog.Attr{
		slog.String("action", e.Action),
		slog.String("surface", e.Surface),
		slog.Duration("duration", e.Duration),
		slog.Bool("success", e.Success),
	}

	if e.ContainerID != "" {
		attrs = append(attrs, slog.String("container_id", e.ContainerID))
	}
	if e.ResourceID != "" {
		attrs = append(attrs, slog.String("resource_id", e.ResourceID))
	}
	if e.RequestID != "" {
		attrs = append(attrs, slog.String("request_id", e.RequestID))
	}
	if e.TraceID != "" {
		attrs = append(attrs, slog.String("trace_id", e.TraceID))
	}
	if e.SpanID != "" {
		attrs = append(attrs, slog.String("span_id", e.SpanID))
	}
	if e.Error != "" {
		attrs = append(attrs, slog.String("error", e.Error))
	}

	return attrs
}

// AuditLogger writes audit events as structured log lines.
// A nil *AuditLogger drops everything.
type AuditLogger struct {
	logger  *slog.Logger
	enabled bool
}

// NewAuditLogger creates an enabled AuditLogger.
func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	return NewAuditLoggerWithConfig(logger, AuditLoggingConfig{Enabled: true})
}

// NewAuditLoggerWithConfig creates a new AuditLogger with the given configuration.
func NewAuditLoggerWithConfig(logger *slog.Logger, config AuditLoggingConfig) *AuditLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditLogger{
		logger:  logger.With(slog.String("component", "audit")),
		enabled: config.Enabled,
	}
}

// Log writes e at info level on success and warn level on failure.
func (al *AuditLogger) Log(e *AuditEvent) {
	if al == nil || !al.enabled || e == nil {
		return
	}

	attrs := e.LogAttrs()
	args := make([]any, len(attrs))
	for i, attr := range attrs {
		args[i] = attr
	}

	if e.Success {
		al.logger.Info("audit", args...)
	} else {
		al.logger.Warn("audit", args...)
	}
}
