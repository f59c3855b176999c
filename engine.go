package iris

import (
	"errors"
	"fmt"
	"time"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/iris/internal/bridge"
	"github.com/gogpu/iris/internal/device"
	"github.com/gogpu/iris/internal/frame"
	"github.com/gogpu/iris/internal/present"
)

// DefaultClearColor is the background every frame is cleared to.
var DefaultClearColor = present.DefaultClearColor

// DefaultFrameTimeout bounds each CPU wait for GPU work.
const DefaultFrameTimeout = 5 * time.Second

// Mode is how an Engine delivers frames.
type Mode int

const (
	// ModeOffscreen copies every frame into a shared texture.
	ModeOffscreen Mode = iota

	// ModeWindowed presents every frame to a window surface.
	ModeWindowed
)

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case ModeOffscreen:
		return "offscreen"
	case ModeWindowed:
		return "windowed"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// SharedHandle is an OS handle to the shared texture of an offscreen engine.
// It is owned by the engine and stays valid until Close.
type SharedHandle uintptr

// SurfaceConfig is the window surface configuration of a windowed engine.
type SurfaceConfig = present.Config

// Engine owns a GPU device and one frame delivery path.
//
// An Engine is not safe for concurrent use.
type Engine struct {
	mode         Mode
	ctx          *device.Context
	clearColor   gputypes.Color
	frameTimeout time.Duration
	diagnostics  Diagnostics

	// Offscreen.
	submitter *frame.Submitter
	bridge    *bridge.Bridge

	// Windowed.
	presenter *present.Presenter

	failure  error
	reported bool
	closed   bool
}

// NewOffscreen creates an engine that renders width x height frames into a
// texture shared through an NT handle.
func NewOffscreen(width, height uint32, opts ...Option) (*Engine, error) {
	if width == 0 || height == 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidSize, width, height)
	}
	o := resolveOptions(opts)
	if o.logger != nil {
		SetLogger(o.logger)
	}

	ctx, err := device.New(device.Config{
		Backend:     o.backend,
		Label:       o.deviceLabel,
		NewInstance: o.newInstance,
	})
	if err != nil {
		return nil, fmt.Errorf("iris: create device: %w", err)
	}

	e := newEngine(ModeOffscreen, ctx, o)

	e.bridge, err = bridge.New(ctx, width, height, o.opener,
		bridge.WithFormat(ctx.SurfaceFormat()),
		bridge.WithTimeout(o.frameTimeout))
	if err != nil {
		e.Close()
		return nil, fmt.Errorf("iris: create shared texture bridge: %w", err)
	}

	e.submitter, err = frame.New(ctx.HALDevice(), ctx.HALQueue())
	if err != nil {
		e.Close()
		return nil, fmt.Errorf("iris: create frame submitter: %w", err)
	}

	Logger().Info("iris: engine created", "mode", e.mode.String(), "width", width, "height", height)
	return e, nil
}

// NewWindowed creates an engine that presents frames to the native window
// identified by window. Zero dimensions are clamped to one.
func NewWindowed(window uintptr, width, height uint32, opts ...Option) (*Engine, error) {
	if window == 0 {
		return nil, ErrNoWindow
	}
	o := resolveOptions(opts)
	if o.logger != nil {
		SetLogger(o.logger)
	}

	ctx, err := device.New(device.Config{
		Backend:     o.backend,
		Window:      window,
		Label:       o.deviceLabel,
		NewInstance: o.newInstance,
		NewSurface:  o.newSurface,
	})
	if err != nil {
		return nil, fmt.Errorf("iris: create device: %w", err)
	}

	e := newEngine(ModeWindowed, ctx, o)

	target, err := o.newTarget(ctx)
	if err != nil {
		e.Close()
		return nil, fmt.Errorf("iris: create surface target: %w", err)
	}

	e.presenter, err = present.New(ctx, target, width, height,
		present.WithClearColor(o.clearColor),
		present.WithMaxFrameLatency(o.maxFrameLatency),
		present.WithTimeout(o.frameTimeout))
	if err != nil {
		e.Close()
		return nil, fmt.Errorf("iris: configure surface: %w", err)
	}

	cfg := e.presenter.Config()
	Logger().Info("iris: engine created", "mode", e.mode.String(), "width", cfg.Width, "height", cfg.Height)
	return e, nil
}

func newEngine(mode Mode, ctx *device.Context, o engineOptions) *Engine {
	return &Engine{
		mode:         mode,
		ctx:          ctx,
		clearColor:   o.clearColor,
		frameTimeout: o.frameTimeout,
		diagnostics:  o.diagnostics,
	}
}

// Mode returns how the engine delivers frames.
func (e *Engine) Mode() Mode { return e.mode }

// Size returns the frame dimensions.
func (e *Engine) Size() (width, height uint32) {
	switch {
	case e.bridge != nil:
		return e.bridge.Size()
	case e.presenter != nil:
		cfg := e.presenter.Config()
		return cfg.Width, cfg.Height
	default:
		return 0, 0
	}
}

// SurfaceConfig returns the surface configuration of a windowed engine.
func (e *Engine) SurfaceConfig() (SurfaceConfig, bool) {
	if e.presenter == nil {
		return SurfaceConfig{}, false
	}
	return e.presenter.Config(), true
}

// Err returns the failure that stopped an offscreen engine, or nil.
func (e *Engine) Err() error { return e.failure }

// RenderFrame draws one frame.
//
// An offscreen engine clears its render target, waits for the GPU, copies
// the result into the shared texture and returns its handle. Any failure
// stops the engine: this and every later call return ErrEngineFailed.
//
// A windowed engine presents the frame and returns zero. If no surface
// texture is available the frame is skipped, the error wraps
// present.ErrFrameSkipped and the engine stays usable.
func (e *Engine) RenderFrame() (SharedHandle, error) {
	if e.closed {
		return 0, ErrClosed
	}
	if e.mode == ModeWindowed {
		return 0, e.presenter.RenderFrame()
	}

	if e.failure != nil {
		return 0, fmt.Errorf("%w: %w", ErrEngineFailed, e.failure)
	}
	if err := e.renderOffscreen(); err != nil {
		e.failure = err
		Logger().Error("iris: engine stopped", "err", err)
		return 0, fmt.Errorf("%w: %w", ErrEngineFailed, err)
	}
	return SharedHandle(e.bridge.Handle()), nil
}

func (e *Engine) renderOffscreen() error {
	m, err := e.submitter.Clear(e.bridge.View(), e.clearColor, "iris_offscreen_frame")
	if err != nil {
		return err
	}
	if err := e.submitter.Wait(m, e.frameTimeout); err != nil {
		return err
	}
	return e.bridge.SyncToShared()
}

// Resize changes the surface size of a windowed engine. Zero dimensions are
// clamped to one.
func (e *Engine) Resize(width, height uint32) error {
	if e.closed {
		return ErrClosed
	}
	if e.mode != ModeWindowed {
		return ErrNotWindowed
	}
	return e.presenter.Resize(width, height)
}

// Close releases every resource the engine owns, in reverse dependency
// order: copy pipeline and shared texture, then surface, device, adapter and
// instance. It is safe to call more than once.
func (e *Engine) Close() {
	if e.closed {
		return
	}
	e.closed = true

	if e.submitter != nil {
		if err := e.submitter.Flush(e.frameTimeout); err != nil && !errors.Is(err, frame.ErrDestroyed) {
			Logger().Warn("iris: flush on close", "err", err)
		}
		e.submitter.Destroy()
		e.submitter = nil
	}
	if e.bridge != nil {
		e.bridge.Close()
		e.bridge = nil
	}
	if e.presenter != nil {
		e.presenter.Close()
		e.presenter = nil
	}
	if e.ctx != nil {
		e.ctx.Close()
		e.ctx = nil
	}
	Logger().Info("iris: engine closed", "mode", e.mode.String())
}
