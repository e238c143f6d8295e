package mandel

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/gogpu/mandel/internal/compute"
	"github.com/gogpu/mandel/internal/vulkan"
)

// nopHandler is a slog.Handler that silently discards all log records.
// Enabled returns false so callers skip message formatting entirely.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

func newNopLogger() *slog.Logger { return slog.New(nopHandler{}) }

// loggerPtr stores the active logger. Accessed atomically so that
// SetLogger can be called concurrently with logging from any goroutine.
var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(newNopLogger())
}

// SetLogger configures the logger for mandel and its internal packages.
// By default mandel produces no log output.
//
// Log levels used by mandel:
//   - [slog.LevelDebug]: object creation, buffer sizes, memory types
//   - [slog.LevelInfo]: device selection, dispatch completion
//   - [slog.LevelWarn]: release errors, missing validation layer
//   - [slog.LevelError]: validation layer errors
//
// Pass nil to restore the silent default.
//
// Example:
//
//	mandel.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	loggerPtr.Store(l)
	compute.SetLogger(l)
	vulkan.SetLogger(l)
}

// Logger returns the current logger used by mandel.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}
