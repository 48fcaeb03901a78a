package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input   string
		want    slog.Level
		wantErr bool
	}{
		{"", slog.LevelInfo, false},
		{"info", slog.LevelInfo, false},
		{"DEBUG", slog.LevelDebug, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"verbose", slog.LevelInfo, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseLevel(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestNew_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Options{Format: "json", Writer: &buf})
	logger.Info("hello", Operation("tasks.list"))

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("expected JSON output, got %q: %v", buf.String(), err)
	}
	if line[KeyOperation] != "tasks.list" {
		t.Errorf("operation = %v, want tasks.list", line[KeyOperation])
	}
}

func TestNew_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Options{Level: "warn", Writer: &buf})
	logger.Info("hidden")
	if buf.Len() != 0 {
		t.Errorf("info line should be filtered at warn level, got %q", buf.String())
	}
}

func TestWithOperation(t *testing.T) {
	if WithOperation(slog.Default(), "calendar.list") == nil {
		t.Error("WithOperation returned nil")
	}
	if WithService(slog.Default(), "tasks") == nil {
		t.Error("WithService returned nil")
	}
}

func TestAttrs(t *testing.T) {
	tests := []struct {
		attr    slog.Attr
		wantKey string
		wantVal string
	}{
		{Operation("list"), KeyOperation, "list"},
		{Service("tasks"), KeyService, "tasks"},
		{Surface("calendar"), KeySurface, "calendar"},
		{Route("/api/tasks/{task_id}"), KeyRoute, "/api/tasks/{task_id}"},
		{Status(StatusSuccess), KeyStatus, "success"},
	}

	for _, tt := range tests {
		t.Run(tt.wantKey, func(t *testing.T) {
			if tt.attr.Key != tt.wantKey {
				t.Errorf("key = %q, want %q", tt.attr.Key, tt.wantKey)
			}
			if tt.attr.Value.String() != tt.wantVal {
				t.Errorf("value = %q, want %q", tt.attr.Value.String(), tt.wantVal)
			}
		})
	}
}

func TestErr(t *testing.T) {
	attr := Err(errors.New("test error"))
	if attr.Key != KeyError {
		t.Errorf("Err key = %q, want %q", attr.Key, KeyError)
	}
	if attr.Value.String() != "test error" {
		t.Errorf("Err value = %q, want %q", attr.Value.String(), "test error")
	}

	attr = Err(nil)
	if attr.Key != "" {
		t.Errorf("Err(nil) key = %q, want empty string (empty group)", attr.Key)
	}
}

func TestSanitizeToken(t *testing.T) {
	tests := []struct {
		token    string
		expected string
	}{
		{"", "<empty>"},
		{"abc123", "[token:6 chars]"},
		{"ya29.a0AfH6SMBx", "[token:15 chars]"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := SanitizeToken(tt.token); got != tt.expected {
				t.Errorf("SanitizeToken(%q) = %q, want %q", tt.token, got, tt.expected)
			}
		})
	}
}

func TestRequestID(t *testing.T) {
	ctx := context.Background()
	if RequestID(ctx) != "" {
		t.Error("empty context should carry no request ID")
	}
	if RequestIDAttr(ctx).Key != "" {
		t.Error("RequestIDAttr without an ID should be omitted")
	}

	id := NewRequestID()
	if len(id) != 36 {
		t.Errorf("NewRequestID() = %q, want a UUID", id)
	}
	if id == NewRequestID() {
		t.Error("request IDs should be unique")
	}

	ctx = WithRequestID(ctx, id)
	if RequestID(ctx) != id {
		t.Errorf("RequestID() = %q, want %q", RequestID(ctx), id)
	}
	attr := RequestIDAttr(ctx)
	if attr.Key != KeyRequestID || attr.Value.String() != id {
		t.Errorf("RequestIDAttr() = %v", attr)
	}
}
