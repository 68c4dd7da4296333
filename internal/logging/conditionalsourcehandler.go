// Package logging builds the process-wide slog.Logger: a tint-colorized
// console handler (or a plain JSON handler in production) wrapped in a
// conditionalSourceHandler that only pays the runtime.Callers cost for the
// levels worth debugging from.
package logging

import (
	"context"
	"io"
	"log/slog"
	"runtime"

	"github.com/lmittmann/tint"

	"github.com/pichi-router/pichi-go/internal/config"
)

type conditionalSourceHandler struct {
	handler          slog.Handler
	showSourceLevels map[slog.Level]bool
}

// NewConditionalSourceHandler wraps a handler to conditionally show source
// location based on log level. Source location is only shown for the
// specified levels, reducing log volume in production while keeping
// debuggability for warnings and errors.
//
// The wrapped handler should have AddSource: false in its options; this
// wrapper adds the source attribute itself for the requested levels.
func NewConditionalSourceHandler(handler slog.Handler, showSourceForLevels ...slog.Level) slog.Handler {
	levelMap := make(map[slog.Level]bool, len(showSourceForLevels))
	for _, level := range showSourceForLevels {
		levelMap[level] = true
	}
	return &conditionalSourceHandler{handler: handler, showSourceLevels: levelMap}
}

func (h *conditionalSourceHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.showSourceLevels[r.Level] {
		var pcs [1]uintptr
		runtime.Callers(3, pcs[:])
		fs := runtime.CallersFrames(pcs[:])
		f, _ := fs.Next()

		r.AddAttrs(slog.Attr{
			Key: slog.SourceKey,
			Value: slog.AnyValue(&slog.Source{
				Function: f.Function,
				File:     f.File,
				Line:     f.Line,
			}),
		})
	}
	return h.handler.Handle(ctx, r)
}

func (h *conditionalSourceHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &conditionalSourceHandler{handler: h.handler.WithAttrs(attrs), showSourceLevels: h.showSourceLevels}
}

func (h *conditionalSourceHandler) WithGroup(name string) slog.Handler {
	return &conditionalSourceHandler{handler: h.handler.WithGroup(name), showSourceLevels: h.showSourceLevels}
}

func (h *conditionalSourceHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

// New builds the process logger from cfg. "console" format uses tint for a
// colorized, human-readable stream (development default); anything else
// (notably "json") uses slog's own JSON handler for machine-readable output.
// Source locations are attached only for Warn/Error, on either format.
func New(cfg config.LoggerConfig, w io.Writer) *slog.Logger {
	level := parseLevel(cfg.Level)

	var base slog.Handler
	if cfg.Format == "json" {
		base = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level, AddSource: false})
	} else {
		base = tint.NewHandler(w, &tint.Options{Level: level, AddSource: false})
	}

	return slog.New(NewConditionalSourceHandler(base, slog.LevelWarn, slog.LevelError))
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
