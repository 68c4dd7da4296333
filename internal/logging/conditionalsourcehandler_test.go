package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/pichi-router/pichi-go/internal/config"
)

func TestConditionalSourceHandler(t *testing.T) {
	tests := []struct {
		name             string
		level            slog.Level
		showSourceLevels []slog.Level
		shouldHaveSource bool
	}{
		{
			name:             "INFO without source config",
			level:            slog.LevelInfo,
			showSourceLevels: []slog.Level{slog.LevelWarn, slog.LevelError},
			shouldHaveSource: false,
		},
		{
			name:             "WARN with source config",
			level:            slog.LevelWarn,
			showSourceLevels: []slog.Level{slog.LevelWarn, slog.LevelError},
			shouldHaveSource: true,
		},
		{
			name:             "ERROR with source config",
			level:            slog.LevelError,
			showSourceLevels: []slog.Level{slog.LevelWarn, slog.LevelError},
			shouldHaveSource: true,
		},
		{
			name:             "DEBUG without source config",
			level:            slog.LevelDebug,
			showSourceLevels: []slog.Level{slog.LevelWarn, slog.LevelError},
			shouldHaveSource: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			baseHandler := slog.NewTextHandler(&buf, &slog.HandlerOptions{AddSource: false})
			handler := NewConditionalSourceHandler(baseHandler, tt.showSourceLevels...)

			logger := slog.New(handler)
			switch tt.level {
			case slog.LevelDebug:
				logger.Debug("test message")
			case slog.LevelInfo:
				logger.Info("test message")
			case slog.LevelWarn:
				logger.Warn("test message")
			case slog.LevelError:
				logger.Error("test message")
			}

			hasSource := strings.Contains(buf.String(), "source=")
			if hasSource != tt.shouldHaveSource {
				t.Errorf("expected source=%v, got %v. Output: %s", tt.shouldHaveSource, hasSource, buf.String())
			}
		})
	}
}

func TestConditionalSourceHandlerWithAttrsAndGroup(t *testing.T) {
	var buf bytes.Buffer
	baseHandler := slog.NewTextHandler(&buf, &slog.HandlerOptions{AddSource: false})
	handler := NewConditionalSourceHandler(baseHandler, slog.LevelError)

	logger := slog.New(handler).With("user_id", "123").WithGroup("request")
	logger.Info("test message", "path", "/api/users")

	output := buf.String()
	if strings.Contains(output, "source=") {
		t.Errorf("expected no source for INFO level, but found it. Output: %s", output)
	}
	if !strings.Contains(output, "user_id=123") || !strings.Contains(output, "path") {
		t.Errorf("expected user_id and grouped path attributes. Output: %s", output)
	}
}

func TestConditionalSourceHandlerEnabled(t *testing.T) {
	var buf bytes.Buffer
	baseHandler := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo, AddSource: true})
	handler := NewConditionalSourceHandler(baseHandler, slog.LevelError)

	if !handler.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("expected INFO level to be enabled")
	}
	if handler.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("expected DEBUG level to be disabled")
	}
}

func TestNewFormats(t *testing.T) {
	var buf bytes.Buffer
	log := New(config.LoggerConfig{Level: "debug", Format: "json"}, &buf)
	log.Info("hello", "k", "v")
	if !strings.Contains(buf.String(), `"msg":"hello"`) {
		t.Errorf("expected json output, got: %s", buf.String())
	}

	buf.Reset()
	log = New(config.LoggerConfig{Level: "debug", Format: "console"}, &buf)
	log.Info("hello")
	if !strings.Contains(buf.String(), "hello") {
		t.Errorf("expected console output, got: %s", buf.String())
	}
}
