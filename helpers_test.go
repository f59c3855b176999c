package iris

import (
	"sync"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"

	"github.com/gogpu/iris/internal/device"
	"github.com/gogpu/iris/internal/frame"
	"github.com/gogpu/iris/internal/native"
	"github.com/gogpu/iris/internal/native/nativetest"
	"github.com/gogpu/iris/internal/present"
)

func withNoopInstance() Option {
	return func(o *engineOptions) {
		o.newInstance = func() (hal.Instance, error) { return noop.API{}.CreateInstance(nil) }
	}
}

func withNativeOpener(opener native.Opener) Option {
	return func(o *engineOptions) { o.opener = opener }
}

// withFakeSurface replaces the window surface with a target that records
// presented frames.
func withFakeSurface(target *fakeSurface) Option {
	return func(o *engineOptions) {
		o.newSurface = func(hal.Instance, uintptr) (hal.Surface, error) { return nil, nil }
		o.newTarget = func(ctx *device.Context) (present.Target, error) {
			if err := target.attach(ctx); err != nil {
				return nil, err
			}
			return target, nil
		}
	}
}

// offscreenOptions runs an offscreen engine on the noop device with a fake
// native layer.
func offscreenOptions(fake *nativetest.Device, extra ...Option) []Option {
	return append([]Option{withNoopInstance(), withNativeOpener(fake.Opener())}, extra...)
}

func windowedOptions(target *fakeSurface, extra ...Option) []Option {
	return append([]Option{withNoopInstance(), withFakeSurface(target)}, extra...)
}

// fakeSurface is a present.Target backed by an ordinary render target.
type fakeSurface struct {
	caps       present.Capabilities
	device     hal.Device
	rt         *frame.Target
	acquireErr error
	configs    []present.Config
	presented  int
}

func newFakeSurface() *fakeSurface {
	return &fakeSurface{
		caps: present.Capabilities{
			Formats:      []gputypes.TextureFormat{gputypes.TextureFormatRGBA8Unorm, gputypes.TextureFormatBGRA8UnormSrgb},
			PresentModes: []present.PresentMode{present.PresentModeFifo, present.PresentModeMailbox},
			AlphaModes:   []present.AlphaMode{present.AlphaModeOpaque},
		},
	}
}

func (s *fakeSurface) attach(ctx *device.Context) error {
	rt, err := frame.NewTarget(ctx.HALDevice(), 4, 4, gputypes.TextureFormatBGRA8UnormSrgb, "fake_surface")
	if err != nil {
		return err
	}
	s.device, s.rt = ctx.HALDevice(), rt
	return nil
}

func (s *fakeSurface) Capabilities() present.Capabilities { return s.caps }

func (s *fakeSurface) Configure(cfg present.Config) error {
	s.configs = append(s.configs, cfg)
	return nil
}

func (s *fakeSurface) Acquire() (*present.Frame, error) {
	if s.acquireErr != nil {
		return nil, s.acquireErr
	}
	return present.NewFrame(s.rt.View, false, nil), nil
}

func (s *fakeSurface) Present(*present.Frame) error {
	s.presented++
	return nil
}

func (s *fakeSurface) Discard(*present.Frame) {}

func (s *fakeSurface) Unconfigure() {
	if s.rt != nil {
		s.rt.Destroy(s.device)
		s.rt = nil
	}
}

// recorder is a Diagnostics that keeps every message.
type recorder struct {
	mu   sync.Mutex
	msgs []string
}

func (r *recorder) Report(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
}

func (r *recorder) messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.msgs...)
}
