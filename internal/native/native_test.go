package native

import (
	"errors"
	"testing"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"
)

func TestFormatFromTexture(t *testing.T) {
	tests := []struct {
		in   gputypes.TextureFormat
		want Format
	}{
		{gputypes.TextureFormatRGBA8Unorm, FormatR8G8B8A8Unorm},
		{gputypes.TextureFormatRGBA8UnormSrgb, FormatR8G8B8A8UnormSRGB},
		{gputypes.TextureFormatBGRA8Unorm, FormatB8G8R8A8Unorm},
		{gputypes.TextureFormatBGRA8UnormSrgb, FormatB8G8R8A8UnormSRGB},
	}
	for _, tt := range tests {
		got, err := FormatFromTexture(tt.in)
		if err != nil {
			t.Errorf("FormatFromTexture(%v) error: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("FormatFromTexture(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}

	if _, err := FormatFromTexture(gputypes.TextureFormatDepth24PlusStencil8); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("depth format: err = %v, want ErrUnknownFormat", err)
	}
}

func TestStateString(t *testing.T) {
	tests := map[State]string{
		StateCommon:       "Common",
		StateRenderTarget: "RenderTarget",
		StateCopyDest:     "CopyDest",
		StateCopySource:   "CopySource",
		State(0x1):        "State(0x1)",
	}
	for s, want := range tests {
		if got := s.String(); got != want {
			t.Errorf("State(%#x).String() = %q, want %q", uint32(s), got, want)
		}
	}
}

func TestFromTextureNil(t *testing.T) {
	if _, err := FromTexture(nil); !errors.Is(err, ErrNilTexture) {
		t.Errorf("FromTexture(nil) err = %v, want ErrNilTexture", err)
	}
}

func TestFromTextureNoop(t *testing.T) {
	instance, err := noop.API{}.CreateInstance(nil)
	if err != nil {
		t.Fatalf("CreateInstance failed: %v", err)
	}
	defer instance.Destroy()

	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		t.Fatal("noop backend returned no adapters")
	}
	openDev, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer openDev.Device.Destroy()

	tex, err := openDev.Device.CreateTexture(&hal.TextureDescriptor{
		Label:         "native_test_texture",
		Size:          hal.Extent3D{Width: 4, Height: 4, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        gputypes.TextureFormatBGRA8UnormSrgb,
		Usage:         gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageCopySrc,
	})
	if err != nil {
		t.Fatalf("CreateTexture failed: %v", err)
	}
	defer openDev.Device.DestroyTexture(tex)

	// Noop textures have no native resource underneath them.
	dev, err := FromTexture(tex)
	if err == nil {
		dev.Release()
		t.Fatal("FromTexture(noop) succeeded, want error")
	}
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("FromTexture(noop) err = %v, want ErrUnavailable", err)
	}
}

func TestTextureResourceNil(t *testing.T) {
	if _, err := TextureResource(nil); !errors.Is(err, ErrUnavailable) {
		t.Errorf("TextureResource(nil) err = %v, want ErrUnavailable", err)
	}
}

func TestCloseHandleZero(t *testing.T) {
	if err := CloseHandle(0); err != nil {
		t.Errorf("CloseHandle(0) = %v, want nil", err)
	}
}

func TestWaitMillis(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want uint32
	}{
		{0, infiniteWait},
		{-time.Second, infiniteWait},
		{time.Nanosecond, 1},
		{500 * time.Microsecond, 1},
		{time.Millisecond, 1},
		{1500 * time.Microsecond, 2},
		{5 * time.Second, 5000},
		{100 * 24 * time.Hour, infiniteWait - 1},
	}
	for _, tt := range tests {
		if got := waitMillis(tt.in); got != tt.want {
			t.Errorf("waitMillis(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
