package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestNewSlogAdapter_WithNil(t *testing.T) {
	adapter := NewSlogAdapter(nil)
	if adapter == nil {
		t.Fatal("NewSlogAdapter returned nil")
	}
	if adapter.logger == nil {
		t.Error("adapter.logger should not be nil when created with nil")
	}
}

func TestNewSlogAdapter_WithLogger(t *testing.T) {
	logger := slog.Default()
	adapter := NewSlogAdapter(logger)
	if adapter.Logger() != logger {
		t.Error("Logger() should return the underlying logger")
	}
}

func TestSlogAdapter_Levels(t *testing.T) {
	var buf bytes.Buffer
	adapter := NewSlogAdapter(New(Options{Level: "debug", Writer: &buf}))

	adapter.Debug("debug line", "key", "value")
	adapter.Info("info line")
	adapter.Warn("warn line", Err(nil))
	adapter.Error("error line", Surface("tasks"))

	out := buf.String()
	for _, want := range []string{"level=DEBUG", "level=INFO", "level=WARN", "level=ERROR", "surface=tasks"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestSlogAdapter_With(t *testing.T) {
	var buf bytes.Buffer
	adapter := NewSlogAdapter(New(Options{Writer: &buf})).With(Service("calendar"))
	adapter.Info("listed")

	if !strings.Contains(buf.String(), "service=calendar") {
		t.Errorf("expected service attribute, got %s", buf.String())
	}
}

func TestDiscard(t *testing.T) {
	// Should not panic
	Discard().Error("dropped", "key", "value")
}

func TestLoggerInterface(t *testing.T) {
	var _ Logger = (*SlogAdapter)(nil)
}
