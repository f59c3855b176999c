package present

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/iris/internal/device"
	"github.com/gogpu/iris/internal/logging"
)

// halTarget presents through the surface owned by a device.Context.
type halTarget struct {
	surface hal.Surface
	adapter hal.Adapter
	device  hal.Device
	queue   hal.Queue

	configured bool
}

// NewHALTarget returns a Target backed by the context's window surface.
func NewHALTarget(ctx *device.Context) (Target, error) {
	if ctx == nil || ctx.HALDevice() == nil {
		return nil, ErrNilContext
	}
	if ctx.Surface() == nil {
		return nil, ErrNoSurface
	}
	return &halTarget{
		surface: ctx.Surface(),
		adapter: ctx.HALAdapter(),
		device:  ctx.HALDevice(),
		queue:   ctx.HALQueue(),
	}, nil
}

func (t *halTarget) Capabilities() Capabilities {
	caps := t.adapter.SurfaceCapabilities(t.surface)
	if caps == nil {
		return Capabilities{}
	}
	out := Capabilities{
		Formats: append([]gputypes.TextureFormat(nil), caps.Formats...),
	}
	for _, m := range caps.PresentModes {
		if pm, ok := presentModeFromHAL(m); ok {
			out.PresentModes = append(out.PresentModes, pm)
		}
	}
	for _, m := range caps.AlphaModes {
		if am, ok := alphaModeFromHAL(m); ok {
			out.AlphaModes = append(out.AlphaModes, am)
		}
	}
	return out
}

func (t *halTarget) Configure(cfg Config) error {
	caps := t.Capabilities()
	err := t.surface.Configure(t.device, &hal.SurfaceConfiguration{
		Width:       cfg.Width,
		Height:      cfg.Height,
		Format:      cfg.Format,
		Usage:       gputypes.TextureUsageRenderAttachment,
		PresentMode: presentModeToHAL(ResolvePresentMode(cfg.PresentMode, caps.PresentModes)),
		AlphaMode:   alphaModeToHAL(ResolveAlphaMode(cfg.AlphaMode, caps.AlphaModes)),
	})
	if err != nil {
		return err
	}
	t.configured = true
	return nil
}

func (t *halTarget) Acquire() (*Frame, error) {
	if !t.configured {
		return nil, ErrNotConfigured
	}
	acquired, err := t.surface.AcquireTexture(nil)
	if err != nil {
		return nil, err
	}
	view, err := t.device.CreateTextureView(acquired.Texture, &hal.TextureViewDescriptor{
		Label: "iris_surface_view",
	})
	if err != nil {
		t.surface.DiscardTexture(acquired.Texture)
		return nil, fmt.Errorf("create surface view: %w", err)
	}
	return NewFrame(view, acquired.Suboptimal, acquired.Texture), nil
}

func (t *halTarget) Present(f *Frame) error {
	defer t.releaseView(f)
	tex, ok := f.Payload().(hal.SurfaceTexture)
	if !ok {
		return fmt.Errorf("present: %T is not a surface texture", f.Payload())
	}
	return t.queue.Present(t.surface, tex)
}

func (t *halTarget) Discard(f *Frame) {
	defer t.releaseView(f)
	if tex, ok := f.Payload().(hal.SurfaceTexture); ok {
		t.surface.DiscardTexture(tex)
	}
}

func (t *halTarget) Unconfigure() {
	if !t.configured {
		return
	}
	t.surface.Unconfigure(t.device)
	t.configured = false
	logging.Logger().Debug("present: surface unconfigured")
}

func (t *halTarget) releaseView(f *Frame) {
	if f.View != nil {
		t.device.DestroyTextureView(f.View)
		f.View = nil
	}
}

func presentModeFromHAL(m hal.PresentMode) (PresentMode, bool) {
	switch m {
	case hal.PresentModeImmediate:
		return PresentModeImmediate, true
	case hal.PresentModeMailbox:
		return PresentModeMailbox, true
	case hal.PresentModeFifo:
		return PresentModeFifo, true
	case hal.PresentModeFifoRelaxed:
		return PresentModeFifoRelaxed, true
	default:
		return 0, false
	}
}

func presentModeToHAL(m PresentMode) hal.PresentMode {
	switch m {
	case PresentModeImmediate:
		return hal.PresentModeImmediate
	case PresentModeMailbox:
		return hal.PresentModeMailbox
	case PresentModeFifoRelaxed:
		return hal.PresentModeFifoRelaxed
	default:
		return hal.PresentModeFifo
	}
}

func alphaModeFromHAL(m hal.CompositeAlphaMode) (AlphaMode, bool) {
	switch m {
	case hal.CompositeAlphaModeOpaque:
		return AlphaModeOpaque, true
	case hal.CompositeAlphaModePremultiplied:
		return AlphaModePreMultiplied, true
	case hal.CompositeAlphaModeUnpremultiplied:
		return AlphaModePostMultiplied, true
	case hal.CompositeAlphaModeInherit:
		return AlphaModeInherit, true
	default:
		return 0, false
	}
}

func alphaModeToHAL(m AlphaMode) hal.CompositeAlphaMode {
	switch m {
	case AlphaModePreMultiplied:
		return hal.CompositeAlphaModePremultiplied
	case AlphaModePostMultiplied:
		return hal.CompositeAlphaModeUnpremultiplied
	case AlphaModeInherit:
		return hal.CompositeAlphaModeInherit
	default:
		return hal.CompositeAlphaModeOpaque
	}
}
