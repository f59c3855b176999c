package iris

import (
	"log/slog"
	"time"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/iris/internal/device"
	"github.com/gogpu/iris/internal/native"
	"github.com/gogpu/iris/internal/present"
)

// Option configures an Engine during creation.
//
// Example:
//
//	e, err := iris.NewOffscreen(800, 600,
//	    iris.WithClearColor(gputypes.Color{R: 0, G: 0, B: 0, A: 1}),
//	    iris.WithFrameTimeout(time.Second),
//	)
type Option func(*engineOptions)

// engineOptions holds optional configuration for Engine creation.
type engineOptions struct {
	backend         gputypes.Backend
	clearColor      gputypes.Color
	frameTimeout    time.Duration
	deviceLabel     string
	diagnostics     Diagnostics
	logger          *slog.Logger
	maxFrameLatency uint32

	// Replaced in tests.
	newInstance device.InstanceFactory
	newSurface  device.SurfaceFactory
	opener      native.Opener
	newTarget   func(*device.Context) (present.Target, error)
}

// defaultOptions returns the default engine options.
func defaultOptions() engineOptions {
	return engineOptions{
		clearColor:      DefaultClearColor,
		frameTimeout:    DefaultFrameTimeout,
		deviceLabel:     device.DefaultLabel,
		diagnostics:     FileDiagnostics{Path: DefaultCrashLog},
		maxFrameLatency: present.DefaultMaxFrameLatency,
		opener:          native.FromTexture,
		newTarget:       present.NewHALTarget,
	}
}

func resolveOptions(opts []Option) engineOptions {
	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

// WithBackend selects the HAL backend. The default is DX12 on Windows and
// Vulkan elsewhere. Offscreen engines need DX12.
func WithBackend(b gputypes.Backend) Option {
	return func(o *engineOptions) {
		o.backend = b
	}
}

// WithClearColor sets the color each frame is cleared to.
func WithClearColor(c gputypes.Color) Option {
	return func(o *engineOptions) {
		o.clearColor = c
	}
}

// WithFrameTimeout bounds each CPU wait for GPU work. Non-positive values
// are ignored.
func WithFrameTimeout(d time.Duration) Option {
	return func(o *engineOptions) {
		if d > 0 {
			o.frameTimeout = d
		}
	}
}

// WithDeviceLabel names the GPU device in log output.
func WithDeviceLabel(label string) Option {
	return func(o *engineOptions) {
		if label != "" {
			o.deviceLabel = label
		}
	}
}

// WithDiagnostics sets where construction failures are reported by the
// boundary functions. Passing nil discards them.
func WithDiagnostics(d Diagnostics) Option {
	return func(o *engineOptions) {
		if d == nil {
			d = DiscardDiagnostics
		}
		o.diagnostics = d
	}
}

// WithLogger installs l as the package logger when the engine is created.
// It is equivalent to calling SetLogger first.
func WithLogger(l *slog.Logger) Option {
	return func(o *engineOptions) {
		o.logger = l
	}
}

// WithMaxFrameLatency sets how many frames a window surface may queue.
func WithMaxFrameLatency(n uint32) Option {
	return func(o *engineOptions) {
		if n > 0 {
			o.maxFrameLatency = n
		}
	}
}
