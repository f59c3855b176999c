package frame

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// Target is a single-sample color texture and its view, owned by the caller.
//
// The texture is created with RenderAttachment | CopySrc usage so it can be
// cleared by a render pass and then copied into another resource.
type Target struct {
	Texture hal.Texture
	View    hal.TextureView
	Width   uint32
	Height  uint32
	Format  gputypes.TextureFormat
}

// NewTarget creates a w x h render target texture and view.
func NewTarget(device hal.Device, w, h uint32, format gputypes.TextureFormat, label string) (*Target, error) {
	if device == nil {
		return nil, ErrNilDevice
	}
	if w == 0 || h == 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidSize, w, h)
	}

	tex, err := device.CreateTexture(&hal.TextureDescriptor{
		Label:         label,
		Size:          hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        format,
		Usage:         gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageCopySrc,
	})
	if err != nil {
		return nil, fmt.Errorf("frame: create render target texture: %w", err)
	}

	view, err := device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label: label + "_view",
	})
	if err != nil {
		device.DestroyTexture(tex)
		return nil, fmt.Errorf("frame: create render target view: %w", err)
	}

	return &Target{
		Texture: tex,
		View:    view,
		Width:   w,
		Height:  h,
		Format:  format,
	}, nil
}

// Destroy releases the view and texture. It is safe to call more than once.
func (t *Target) Destroy(device hal.Device) {
	if t.View != nil {
		device.DestroyTextureView(t.View)
		t.View = nil
	}
	if t.Texture != nil {
		device.DestroyTexture(t.Texture)
		t.Texture = nil
	}
}
