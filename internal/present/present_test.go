package present

import (
	"errors"
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"

	"github.com/gogpu/iris/internal/device"
	"github.com/gogpu/iris/internal/frame"
)

// fakeTarget records what the presenter asks of a surface.
type fakeTarget struct {
	caps         Capabilities
	view         hal.TextureView
	configs      []Config
	configureErr error
	acquireErr   error
	suboptimal   bool
	acquired     int
	presented    int
	discarded    int
	unconfigured int
}

func (f *fakeTarget) Capabilities() Capabilities { return f.caps }

func (f *fakeTarget) Configure(cfg Config) error {
	if f.configureErr != nil {
		return f.configureErr
	}
	f.configs = append(f.configs, cfg)
	return nil
}

func (f *fakeTarget) Acquire() (*Frame, error) {
	if f.acquireErr != nil {
		return nil, f.acquireErr
	}
	f.acquired++
	return NewFrame(f.view, f.suboptimal, f.acquired), nil
}

func (f *fakeTarget) Present(fr *Frame) error {
	if fr.Payload() != f.acquired {
		return errors.New("presented a stale frame")
	}
	f.presented++
	return nil
}

func (f *fakeTarget) Discard(*Frame) { f.discarded++ }

func (f *fakeTarget) Unconfigure() { f.unconfigured++ }

func newContext(t *testing.T) *device.Context {
	t.Helper()
	ctx, err := device.New(device.Config{
		NewInstance: func() (hal.Instance, error) { return noop.API{}.CreateInstance(nil) },
	})
	if err != nil {
		t.Fatalf("device.New failed: %v", err)
	}
	t.Cleanup(ctx.Close)
	return ctx
}

func newFakeTarget(t *testing.T, ctx *device.Context) *fakeTarget {
	t.Helper()
	rt, err := frame.NewTarget(ctx.HALDevice(), 8, 8, gputypes.TextureFormatBGRA8UnormSrgb, "fake_surface")
	if err != nil {
		t.Fatalf("NewTarget failed: %v", err)
	}
	t.Cleanup(func() { rt.Destroy(ctx.HALDevice()) })
	return &fakeTarget{
		view: rt.View,
		caps: Capabilities{
			Formats:      []gputypes.TextureFormat{gputypes.TextureFormatBGRA8Unorm, gputypes.TextureFormatBGRA8UnormSrgb},
			PresentModes: []PresentMode{PresentModeFifo, PresentModeMailbox},
			AlphaModes:   []AlphaMode{AlphaModeOpaque},
		},
	}
}

func TestSelectFormat(t *testing.T) {
	tests := []struct {
		name    string
		formats []gputypes.TextureFormat
		want    gputypes.TextureFormat
	}{
		{"first srgb", []gputypes.TextureFormat{gputypes.TextureFormatRGBA8Unorm, gputypes.TextureFormatBGRA8UnormSrgb}, gputypes.TextureFormatBGRA8UnormSrgb},
		{"rgba srgb first", []gputypes.TextureFormat{gputypes.TextureFormatRGBA8UnormSrgb, gputypes.TextureFormatBGRA8UnormSrgb}, gputypes.TextureFormatRGBA8UnormSrgb},
		{"no srgb", []gputypes.TextureFormat{gputypes.TextureFormatBGRA8Unorm}, FallbackFormat},
		{"empty", nil, FallbackFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SelectFormat(Capabilities{Formats: tt.formats}); got != tt.want {
				t.Errorf("SelectFormat() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSelectFormatMatchesIsSrgb(t *testing.T) {
	all := []gputypes.TextureFormat{
		gputypes.TextureFormatRGBA8Unorm,
		gputypes.TextureFormatRGBA8UnormSrgb,
		gputypes.TextureFormatBGRA8Unorm,
		gputypes.TextureFormatBGRA8UnormSrgb,
		gputypes.TextureFormatDepth24PlusStencil8,
	}
	for _, f := range all {
		got := SelectFormat(Capabilities{Formats: []gputypes.TextureFormat{f}})
		if f.IsSrgb() && got != f {
			t.Errorf("SelectFormat([%v]) = %v, want the sRGB format itself", f, got)
		}
		if !f.IsSrgb() && got != FallbackFormat {
			t.Errorf("SelectFormat([%v]) = %v, want FallbackFormat", f, got)
		}
	}
}

func TestSelectPresentMode(t *testing.T) {
	tests := []struct {
		name  string
		modes []PresentMode
		want  PresentMode
	}{
		{"mailbox after fifo", []PresentMode{PresentModeFifo, PresentModeMailbox}, PresentModeMailbox},
		{"immediate first", []PresentMode{PresentModeImmediate, PresentModeMailbox}, PresentModeImmediate},
		{"mailbox first", []PresentMode{PresentModeMailbox, PresentModeImmediate}, PresentModeMailbox},
		{"fifo only", []PresentMode{PresentModeFifo, PresentModeFifoRelaxed}, PresentModeAutoNoVsync},
		{"empty", nil, PresentModeAutoNoVsync},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SelectPresentMode(Capabilities{PresentModes: tt.modes})
			if got != tt.want {
				t.Errorf("SelectPresentMode() = %v, want %v", got, tt.want)
			}
			if got == PresentModeFifo || got == PresentModeFifoRelaxed || got == PresentModeAutoVsync {
				t.Errorf("SelectPresentMode() returned vsync mode %v", got)
			}
		})
	}
}

func TestSelectAlphaMode(t *testing.T) {
	if got := SelectAlphaMode(Capabilities{}); got != AlphaModeAuto {
		t.Errorf("empty caps = %v, want Auto", got)
	}
	caps := Capabilities{AlphaModes: []AlphaMode{AlphaModePreMultiplied, AlphaModeOpaque}}
	if got := SelectAlphaMode(caps); got != AlphaModePreMultiplied {
		t.Errorf("SelectAlphaMode() = %v, want PreMultiplied", got)
	}
}

func TestResolvePresentMode(t *testing.T) {
	tests := []struct {
		name    string
		mode    PresentMode
		offered []PresentMode
		want    PresentMode
	}{
		{"no vsync prefers immediate", PresentModeAutoNoVsync, []PresentMode{PresentModeMailbox, PresentModeImmediate, PresentModeFifo}, PresentModeImmediate},
		{"no vsync mailbox", PresentModeAutoNoVsync, []PresentMode{PresentModeFifo, PresentModeMailbox}, PresentModeMailbox},
		{"no vsync falls back to fifo", PresentModeAutoNoVsync, []PresentMode{PresentModeFifo}, PresentModeFifo},
		{"vsync relaxed", PresentModeAutoVsync, []PresentMode{PresentModeFifo, PresentModeFifoRelaxed}, PresentModeFifoRelaxed},
		{"vsync fifo", PresentModeAutoVsync, []PresentMode{PresentModeImmediate}, PresentModeFifo},
		{"concrete unchanged", PresentModeMailbox, nil, PresentModeMailbox},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolvePresentMode(tt.mode, tt.offered); got != tt.want {
				t.Errorf("ResolvePresentMode() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestResolveAlphaMode(t *testing.T) {
	tests := []struct {
		mode    AlphaMode
		offered []AlphaMode
		want    AlphaMode
	}{
		{AlphaModeAuto, nil, AlphaModeOpaque},
		{AlphaModeAuto, []AlphaMode{AlphaModeInherit, AlphaModeOpaque}, AlphaModeOpaque},
		{AlphaModeAuto, []AlphaMode{AlphaModePostMultiplied}, AlphaModePostMultiplied},
		{AlphaModeInherit, []AlphaMode{AlphaModeOpaque}, AlphaModeInherit},
	}
	for _, tt := range tests {
		if got := ResolveAlphaMode(tt.mode, tt.offered); got != tt.want {
			t.Errorf("ResolveAlphaMode(%v, %v) = %v, want %v", tt.mode, tt.offered, got, tt.want)
		}
	}
}

func TestNewConfig(t *testing.T) {
	ctx := newContext(t)
	target := newFakeTarget(t, ctx)

	p, err := New(ctx, target, 0, 0)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer p.Close()

	want := Config{
		Width:           1,
		Height:          1,
		Format:          gputypes.TextureFormatBGRA8UnormSrgb,
		PresentMode:     PresentModeMailbox,
		AlphaMode:       AlphaModeOpaque,
		MaxFrameLatency: DefaultMaxFrameLatency,
	}
	if p.Config() != want {
		t.Errorf("Config() = %+v, want %+v", p.Config(), want)
	}
	if len(target.configs) != 1 || target.configs[0] != want {
		t.Errorf("target configured with %+v, want [%+v]", target.configs, want)
	}
}

func TestNewErrors(t *testing.T) {
	ctx := newContext(t)
	if _, err := New(nil, &fakeTarget{}, 1, 1); !errors.Is(err, ErrNilContext) {
		t.Errorf("nil context err = %v, want ErrNilContext", err)
	}
	if _, err := New(ctx, nil, 1, 1); !errors.Is(err, ErrNilTarget) {
		t.Errorf("nil target err = %v, want ErrNilTarget", err)
	}

	target := newFakeTarget(t, ctx)
	target.configureErr = errors.New("bad config")
	if _, err := New(ctx, target, 1, 1); !errors.Is(err, ErrConfigure) {
		t.Errorf("configure failure err = %v, want ErrConfigure", err)
	}
}

func TestResize(t *testing.T) {
	ctx := newContext(t)
	target := newFakeTarget(t, ctx)
	p, err := New(ctx, target, 800, 600)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer p.Close()

	if err := p.Resize(1024, 768); err != nil {
		t.Fatalf("Resize failed: %v", err)
	}
	if c := p.Config(); c.Width != 1024 || c.Height != 768 {
		t.Errorf("size = %dx%d, want 1024x768", c.Width, c.Height)
	}

	if err := p.Resize(0, 0); err != nil {
		t.Fatalf("Resize(0, 0) failed: %v", err)
	}
	if c := p.Config(); c.Width != 1 || c.Height != 1 {
		t.Errorf("size = %dx%d, want 1x1", c.Width, c.Height)
	}

	n := len(target.configs)
	if err := p.Resize(1, 1); err != nil {
		t.Fatalf("Resize(1, 1) failed: %v", err)
	}
	if len(target.configs) != n {
		t.Error("Resize to the current size reconfigured the surface")
	}
	if p.Config().PresentMode != PresentModeMailbox {
		t.Errorf("Resize changed present mode to %v", p.Config().PresentMode)
	}
}

func TestRenderFrame(t *testing.T) {
	ctx := newContext(t)
	target := newFakeTarget(t, ctx)
	p, err := New(ctx, target, 64, 64)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer p.Close()

	for i := 0; i < 3; i++ {
		if err := p.RenderFrame(); err != nil {
			t.Fatalf("RenderFrame #%d failed: %v", i, err)
		}
	}
	if target.presented != 3 {
		t.Errorf("presented = %d, want 3", target.presented)
	}
	if target.discarded != 0 {
		t.Errorf("discarded = %d, want 0", target.discarded)
	}
}

func TestRenderFrameAcquireFailure(t *testing.T) {
	ctx := newContext(t)
	target := newFakeTarget(t, ctx)
	p, err := New(ctx, target, 64, 64)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer p.Close()

	target.acquireErr = errors.New("surface lost")
	if err := p.RenderFrame(); !errors.Is(err, ErrFrameSkipped) {
		t.Fatalf("err = %v, want ErrFrameSkipped", err)
	}
	if target.presented != 0 {
		t.Errorf("presented = %d after skipped frame", target.presented)
	}

	target.acquireErr = nil
	if err := p.RenderFrame(); err != nil {
		t.Fatalf("RenderFrame after skip failed: %v", err)
	}
	if target.presented != 1 {
		t.Errorf("presented = %d, want 1", target.presented)
	}
}

func TestRenderFrameSuboptimal(t *testing.T) {
	ctx := newContext(t)
	target := newFakeTarget(t, ctx)
	p, err := New(ctx, target, 64, 64)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer p.Close()

	target.suboptimal = true
	if err := p.RenderFrame(); err != nil {
		t.Fatalf("RenderFrame failed: %v", err)
	}
	if len(target.configs) != 2 {
		t.Errorf("configure calls = %d, want 2", len(target.configs))
	}
}

func TestClose(t *testing.T) {
	ctx := newContext(t)
	target := newFakeTarget(t, ctx)
	p, err := New(ctx, target, 64, 64)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	p.Close()
	p.Close()
	if target.unconfigured != 1 {
		t.Errorf("unconfigured = %d, want 1", target.unconfigured)
	}
	if err := p.RenderFrame(); !errors.Is(err, ErrClosed) {
		t.Errorf("RenderFrame after Close err = %v, want ErrClosed", err)
	}
	if err := p.Resize(2, 2); !errors.Is(err, ErrClosed) {
		t.Errorf("Resize after Close err = %v, want ErrClosed", err)
	}
}

func TestNewHALTargetHeadless(t *testing.T) {
	ctx := newContext(t)
	if _, err := NewHALTarget(ctx); !errors.Is(err, ErrNoSurface) {
		t.Errorf("err = %v, want ErrNoSurface", err)
	}
	if _, err := NewHALTarget(nil); !errors.Is(err, ErrNilContext) {
		t.Errorf("nil context err = %v, want ErrNilContext", err)
	}
}
