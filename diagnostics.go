package iris

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// DefaultCrashLog is the file construction failures are written to, relative
// to the working directory.
const DefaultCrashLog = "iris_crash_log.txt"

// Diagnostics receives a human-readable message when an engine cannot be
// created, or stops producing frames, behind the process boundary.
//
// Reporting is best effort. Implementations must not panic, and a failure to
// record the message is not itself an error.
type Diagnostics interface {
	Report(msg string)
}

// DiagnosticsFunc adapts a function to Diagnostics.
type DiagnosticsFunc func(msg string)

// Report calls f(msg).
func (f DiagnosticsFunc) Report(msg string) { f(msg) }

// DiscardDiagnostics drops every message.
var DiscardDiagnostics Diagnostics = DiagnosticsFunc(func(string) {})

// FileDiagnostics overwrites a file with the latest message.
type FileDiagnostics struct {
	Path string
}

// Report writes msg to d.Path.
func (d FileDiagnostics) Report(msg string) {
	path := d.Path
	if path == "" {
		path = DefaultCrashLog
	}
	if err := os.WriteFile(path, []byte(msg+"\n"), 0o644); err != nil {
		Logger().Warn("iris: write crash log", "path", path, "err", err)
	}
}

// WriterDiagnostics appends timestamped messages to W.
type WriterDiagnostics struct {
	mu sync.Mutex
	W  io.Writer
}

// Report writes one line to W.
func (d *WriterDiagnostics) Report(msg string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, err := fmt.Fprintf(d.W, "%s %s\n", time.Now().Format(time.RFC3339), msg); err != nil {
		Logger().Warn("iris: write diagnostics", "err", err)
	}
}
