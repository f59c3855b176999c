package iris

import (
	"errors"
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/gogpu/iris/internal/present"
)

// Handle is an opaque token for an Engine created through the boundary
// functions. The zero Handle is never issued.
type Handle uintptr

// engineTable maps tokens to engines. Tokens are never reused, so a stale
// token resolves to nothing instead of to another engine.
type engineTable struct {
	mu      sync.Mutex
	next    Handle
	engines map[Handle]*Engine
}

var engines = engineTable{engines: make(map[Handle]*Engine)}

func (t *engineTable) add(e *Engine) Handle {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.next++
	t.engines[t.next] = e
	return t.next
}

func (t *engineTable) get(h Handle) *Engine {
	if h == 0 {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.engines[h]
}

func (t *engineTable) remove(h Handle) *Engine {
	if h == 0 {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	e := t.engines[h]
	delete(t.engines, h)
	return e
}

func (t *engineTable) count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.engines)
}

// CreateOffscreen creates an offscreen engine and returns its token.
// On any failure, including a panic, the message goes to the configured
// Diagnostics and zero is returned.
func CreateOffscreen(width, height uint32, opts ...Option) (h Handle) {
	diag := resolveOptions(opts).diagnostics
	defer recoverCreate(diag, &h)

	e, err := NewOffscreen(width, height, opts...)
	if err != nil {
		reportCreate(diag, err)
		return 0
	}
	return engines.add(e)
}

// CreateWindowed creates a windowed engine for a native window and returns
// its token. Failures are handled as in CreateOffscreen.
func CreateWindowed(window uintptr, width, height uint32, opts ...Option) (h Handle) {
	diag := resolveOptions(opts).diagnostics
	defer recoverCreate(diag, &h)

	e, err := NewWindowed(window, width, height, opts...)
	if err != nil {
		reportCreate(diag, err)
		return 0
	}
	return engines.add(e)
}

func reportCreate(diag Diagnostics, err error) {
	Logger().Error("iris: engine construction failed", "err", err)
	diag.Report(fmt.Sprintf("iris: engine construction failed: %v", err))
}

func recoverCreate(diag Diagnostics, h *Handle) {
	r := recover()
	if r == nil {
		return
	}
	*h = 0
	Logger().Error("iris: panic during engine construction", "panic", r)
	diag.Report(fmt.Sprintf("iris: panic during engine construction: %v\n%s", r, debug.Stack()))
}

// recoverCall keeps a panic from crossing the process boundary.
func recoverCall(op string) {
	if r := recover(); r != nil {
		Logger().Error("iris: panic in "+op, "panic", r)
	}
}

// Destroy closes the engine behind h. Zero and unknown tokens are ignored.
func Destroy(h Handle) {
	defer recoverCall("destroy")
	if e := engines.remove(h); e != nil {
		e.Close()
	}
}

// RenderOffscreen renders one frame and returns the shared texture handle,
// or zero if h is unknown, not offscreen, or the engine has failed. The
// first failure of an engine is reported to its Diagnostics.
func RenderOffscreen(h Handle) (shared uintptr) {
	defer recoverCall("render offscreen")
	e := engines.get(h)
	if e == nil || e.Mode() != ModeOffscreen {
		return 0
	}
	sh, err := e.RenderFrame()
	if err != nil {
		if errors.Is(err, ErrEngineFailed) && !e.reported {
			e.reported = true
			e.diagnostics.Report(fmt.Sprintf("iris: engine %d failed: %v", h, err))
		}
		return 0
	}
	return uintptr(sh)
}

// RenderWindowed renders and presents one frame. Zero, unknown and
// offscreen tokens are ignored.
func RenderWindowed(h Handle) {
	defer recoverCall("render windowed")
	e := engines.get(h)
	if e == nil || e.Mode() != ModeWindowed {
		return
	}
	if _, err := e.RenderFrame(); err != nil && !errors.Is(err, present.ErrFrameSkipped) {
		Logger().Warn("iris: render frame", "engine", uintptr(h), "err", err)
	}
}

// Resize resizes a windowed engine. Zero, unknown and offscreen tokens are
// ignored.
func Resize(h Handle, width, height uint32) {
	defer recoverCall("resize")
	e := engines.get(h)
	if e == nil || e.Mode() != ModeWindowed {
		return
	}
	if err := e.Resize(width, height); err != nil {
		Logger().Warn("iris: resize", "engine", uintptr(h), "err", err)
	}
}

// CheckStatus reports whether a host status code is positive.
func CheckStatus(v int32) bool {
	return v > 0
}

// ReadyCheck is a liveness check for hosts loading the library. It returns
// n, or zero for negative n.
func ReadyCheck(n int32) int32 {
	return max(n, 0)
}
