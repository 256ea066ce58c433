package observability

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		env    string
		expect zapcore.Level
	}{
		{"", zap.InfoLevel},
		{"INFO", zap.InfoLevel},
		{"DEBUG", zap.DebugLevel},
		{"WARN", zap.WarnLevel},
		{"ERROR", zap.ErrorLevel},
		{"debug", zap.DebugLevel},
		{"  warn  ", zap.WarnLevel},
		{"verbose", zap.InfoLevel},
	}
	for _, tt := range tests {
		level := parseLogLevel(tt.env)
		if got := level.Level(); got != tt.expect {
			t.Errorf("parseLogLevel(%q) = %v, want %v", tt.env, got, tt.expect)
		}
	}
}

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger()
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}
	if logger == nil {
		t.Fatal("NewLogger() returned nil logger")
	}
	logger.Info("test message")
	if err := FlushTelemetry(logger); err != nil {
		t.Logf("FlushTelemetry() = %v", err)
	}
}

func TestBuildLogger_Formats(t *testing.T) {
	for _, format := range []string{"", "json", "console", " CONSOLE "} {
		logger, err := buildLogger("DEBUG", format)
		if err != nil {
			t.Fatalf("buildLogger(%q) error = %v", format, err)
		}
		if !logger.Core().Enabled(zap.DebugLevel) {
			t.Errorf("buildLogger(%q): debug not enabled", format)
		}
	}
}

func TestLoggerFromContext(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	want := zap.New(core)

	ctx := context.WithValue(context.Background(), "logger", want)
	LoggerFromContext(ctx).Info("from context")
	if logs.Len() != 1 {
		t.Fatalf("expected 1 log entry, got %d", logs.Len())
	}

	// Missing or wrongly typed values fall back to a no-op logger.
	LoggerFromContext(context.Background()).Info("dropped")
	LoggerFromContext(context.WithValue(context.Background(), "logger", "nope")).Info("dropped")
	if logs.Len() != 1 {
		t.Errorf("fallback logger wrote to observer: %d entries", logs.Len())
	}
}

func TestFlushTelemetry_NilLogger(t *testing.T) {
	if err := FlushTelemetry(nil); err != nil {
		t.Errorf("FlushTelemetry(nil) = %v, want nil", err)
	}
}
