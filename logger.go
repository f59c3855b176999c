package iris

import (
	"log/slog"

	"github.com/gogpu/iris/internal/logging"
)

// SetLogger configures the logger for iris and all its internal packages.
// By default, iris produces no log output. Call SetLogger to enable logging.
//
// SetLogger is safe for concurrent use: it stores the new logger atomically.
// Pass nil to disable logging (restore default silent behavior).
//
// Log levels used by iris:
//   - [slog.LevelDebug]: per-frame events (fence values, resizes)
//   - [slog.LevelInfo]: lifecycle events (adapter selected, engine created)
//   - [slog.LevelWarn]: skipped frames, resource release errors
//   - [slog.LevelError]: an engine stopped producing frames
//
// Example:
//
//	iris.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	logging.Set(l)
}

// Logger returns the current logger used by iris.
//
// Logger is safe for concurrent use.
func Logger() *slog.Logger {
	return logging.Logger()
}
