// Package present renders frames straight into a window surface and
// presents them without any cross-API copy.
package present

import (
	"fmt"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/iris/internal/device"
	"github.com/gogpu/iris/internal/frame"
	"github.com/gogpu/iris/internal/logging"
)

// DefaultMaxFrameLatency is the number of frames the surface may queue.
const DefaultMaxFrameLatency = 2

// DefaultClearColor is the color every frame is cleared to.
var DefaultClearColor = gputypes.Color{R: 0.1, G: 0.2, B: 0.3, A: 1.0}

// Config is the surface configuration in effect.
type Config struct {
	Width           uint32
	Height          uint32
	Format          gputypes.TextureFormat
	PresentMode     PresentMode
	AlphaMode       AlphaMode
	MaxFrameLatency uint32
}

// Frame is a surface texture acquired for one frame.
type Frame struct {
	// View is the render target for this frame.
	View hal.TextureView

	// Suboptimal reports that the surface still works but should be
	// reconfigured.
	Suboptimal bool

	texture any
}

// NewFrame wraps an acquired surface texture. Target implementations keep
// their own texture object in payload and read it back with Payload.
func NewFrame(view hal.TextureView, suboptimal bool, payload any) *Frame {
	return &Frame{View: view, Suboptimal: suboptimal, texture: payload}
}

// Payload returns the value passed to NewFrame.
func (f *Frame) Payload() any { return f.texture }

// Target is a presentable surface.
type Target interface {
	// Capabilities reports the formats and modes the surface supports.
	Capabilities() Capabilities

	// Configure applies cfg, replacing any previous configuration.
	Configure(cfg Config) error

	// Acquire returns the next texture to render into.
	Acquire() (*Frame, error)

	// Present queues an acquired frame for display.
	Present(f *Frame) error

	// Discard releases an acquired frame without presenting it.
	Discard(f *Frame)

	// Unconfigure drops the configuration and any swapchain images.
	Unconfigure()
}

// Option configures a Presenter.
type Option func(*options)

type options struct {
	clear           gputypes.Color
	maxFrameLatency uint32
	timeout         time.Duration
}

// WithClearColor sets the frame clear color.
func WithClearColor(c gputypes.Color) Option {
	return func(o *options) { o.clear = c }
}

// WithMaxFrameLatency sets how many frames the surface may queue.
func WithMaxFrameLatency(n uint32) Option {
	return func(o *options) {
		if n > 0 {
			o.maxFrameLatency = n
		}
	}
}

// WithTimeout bounds the wait for a frame's clear pass.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// Presenter draws frames into a Target.
type Presenter struct {
	target    Target
	submitter *frame.Submitter
	cfg       Config
	clear     gputypes.Color
	timeout   time.Duration
	closed    bool
}

// New selects a configuration from the target's capabilities and
// configures it for a width x height surface. Zero dimensions are clamped
// to one.
func New(ctx *device.Context, target Target, width, height uint32, opts ...Option) (*Presenter, error) {
	if ctx == nil || ctx.HALDevice() == nil {
		return nil, ErrNilContext
	}
	if target == nil {
		return nil, ErrNilTarget
	}
	o := options{
		clear:           DefaultClearColor,
		maxFrameLatency: DefaultMaxFrameLatency,
		timeout:         frame.DefaultTimeout,
	}
	for _, opt := range opts {
		opt(&o)
	}

	caps := target.Capabilities()
	cfg := Config{
		Width:           max(width, 1),
		Height:          max(height, 1),
		Format:          SelectFormat(caps),
		PresentMode:     SelectPresentMode(caps),
		AlphaMode:       SelectAlphaMode(caps),
		MaxFrameLatency: o.maxFrameLatency,
	}
	if err := target.Configure(cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfigure, err)
	}

	submitter, err := frame.New(ctx.HALDevice(), ctx.HALQueue())
	if err != nil {
		target.Unconfigure()
		return nil, fmt.Errorf("present: %w", err)
	}

	logging.Logger().Info("present: surface configured",
		"width", cfg.Width,
		"height", cfg.Height,
		"format", cfg.Format,
		"present_mode", cfg.PresentMode.String(),
		"alpha_mode", cfg.AlphaMode.String())

	return &Presenter{
		target:    target,
		submitter: submitter,
		cfg:       cfg,
		clear:     o.clear,
		timeout:   o.timeout,
	}, nil
}

// Config returns the configuration in effect.
func (p *Presenter) Config() Config { return p.cfg }

// Resize reconfigures the surface. Zero dimensions are clamped to one, and
// resizing to the current size does nothing.
func (p *Presenter) Resize(width, height uint32) error {
	if p.closed {
		return ErrClosed
	}
	width, height = max(width, 1), max(height, 1)
	if width == p.cfg.Width && height == p.cfg.Height {
		return nil
	}

	cfg := p.cfg
	cfg.Width, cfg.Height = width, height
	if err := p.target.Configure(cfg); err != nil {
		return fmt.Errorf("%w: %w", ErrConfigure, err)
	}
	p.cfg = cfg
	logging.Logger().Debug("present: resized", "width", width, "height", height)
	return nil
}

// RenderFrame acquires a surface texture, clears it and presents it.
//
// A failed acquire skips the frame: the error wraps ErrFrameSkipped and the
// presenter remains usable.
func (p *Presenter) RenderFrame() error {
	if p.closed {
		return ErrClosed
	}

	f, err := p.target.Acquire()
	if err != nil {
		logging.Logger().Warn("present: frame skipped", "err", err)
		return fmt.Errorf("%w: %w", ErrFrameSkipped, err)
	}

	m, err := p.submitter.Clear(f.View, p.clear, "iris_surface_frame")
	if err != nil {
		p.target.Discard(f)
		return fmt.Errorf("present: %w", err)
	}
	if err := p.submitter.Wait(m, p.timeout); err != nil {
		p.target.Discard(f)
		return fmt.Errorf("present: %w", err)
	}
	if err := p.target.Present(f); err != nil {
		return fmt.Errorf("present: %w", err)
	}

	if f.Suboptimal {
		logging.Logger().Debug("present: suboptimal surface, reconfiguring")
		if err := p.target.Configure(p.cfg); err != nil {
			return fmt.Errorf("%w: %w", ErrConfigure, err)
		}
	}
	return nil
}

// Close waits for outstanding work and unconfigures the surface. It is
// safe to call more than once.
func (p *Presenter) Close() {
	if p.closed {
		return
	}
	p.closed = true
	if err := p.submitter.Flush(p.timeout); err != nil {
		logging.Logger().Warn("present: flush on close", "err", err)
	}
	p.submitter.Destroy()
	p.target.Unconfigure()
}
