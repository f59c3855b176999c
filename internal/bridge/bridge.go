// Package bridge renders into a HAL texture and mirrors every frame into a
// second, OS-shareable texture that another process or API can open through
// an NT handle.
//
// The two textures are separate allocations: the HAL owns the render target
// and the native layer owns the shared texture. SyncToShared copies the
// former into the latter on a dedicated native queue.
package bridge

import (
	"fmt"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/iris/internal/device"
	"github.com/gogpu/iris/internal/frame"
	"github.com/gogpu/iris/internal/logging"
	"github.com/gogpu/iris/internal/native"
)

// DefaultTimeout bounds the wait for a copy to complete.
const DefaultTimeout = 5 * time.Second

// Option configures a Bridge.
type Option func(*options)

type options struct {
	format  gputypes.TextureFormat
	label   string
	timeout time.Duration
}

// WithFormat sets the color format of both textures.
func WithFormat(f gputypes.TextureFormat) Option {
	return func(o *options) { o.format = f }
}

// WithLabel sets the debug label prefix.
func WithLabel(label string) Option {
	return func(o *options) { o.label = label }
}

// WithTimeout bounds the wait for each copy.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// Bridge pairs a HAL render target with a shareable native copy of it.
type Bridge struct {
	hal     hal.Device
	target  *frame.Target
	native  native.Device
	rt      native.Resource
	shared  native.Resource
	handle  native.Handle
	queue   native.CopyQueue
	timeout time.Duration
	closed  bool
}

// New creates the render target, the shared texture, its NT handle and the
// copy queue, in that order, then moves the render target into the render
// target state. Every step depends on the previous one; on failure all
// objects created so far are released.
func New(ctx *device.Context, width, height uint32, opener native.Opener, opts ...Option) (*Bridge, error) {
	if ctx == nil || ctx.HALDevice() == nil {
		return nil, ErrNilContext
	}
	if opener == nil {
		opener = native.FromTexture
	}
	o := options{
		format:  device.DefaultFormat,
		label:   "iris_bridge",
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(&o)
	}

	nativeFormat, err := native.FormatFromTexture(o.format)
	if err != nil {
		return nil, err
	}

	b := &Bridge{hal: ctx.HALDevice(), timeout: o.timeout}

	b.target, err = frame.NewTarget(b.hal, width, height, o.format, o.label+"_render_target")
	if err != nil {
		return nil, fmt.Errorf("bridge: %w", err)
	}

	b.native, err = opener(b.target.Texture)
	if err != nil {
		b.Close()
		return nil, fmt.Errorf("bridge: open native device: %w", err)
	}

	b.rt, err = b.native.BorrowTexture(b.target.Texture)
	if err != nil {
		b.Close()
		return nil, fmt.Errorf("bridge: borrow render target: %w", err)
	}

	b.shared, err = b.native.CreateSharedTexture(native.TextureDesc{
		Label:  o.label + "_shared",
		Width:  width,
		Height: height,
		Format: nativeFormat,
	})
	if err != nil {
		b.Close()
		return nil, fmt.Errorf("bridge: create shared texture: %w", err)
	}

	b.handle, err = b.native.CreateSharedHandle(b.shared)
	if err != nil {
		b.Close()
		return nil, fmt.Errorf("bridge: create shared handle: %w", err)
	}

	b.queue, err = b.native.CreateCopyQueue(o.label + "_copy")
	if err != nil {
		b.Close()
		return nil, fmt.Errorf("bridge: create copy queue: %w", err)
	}

	if err := b.prepareRenderTarget(); err != nil {
		b.Close()
		return nil, fmt.Errorf("bridge: prepare render target: %w", err)
	}

	logging.Logger().Info("bridge: created",
		"width", width,
		"height", height,
		"format", o.format,
		"handle", uintptr(b.handle))
	return b, nil
}

// prepareRenderTarget moves the render target from the common state it is
// created in to the render target state, before the HAL draws into it. The
// HAL does not transition textures it did not acquire from a surface.
func (b *Bridge) prepareRenderTarget() error {
	if err := b.queue.Begin(); err != nil {
		return err
	}
	b.queue.Barrier(native.Transition{Resource: b.rt, Before: native.StateCommon, After: native.StateRenderTarget})
	value, err := b.queue.Submit()
	if err != nil {
		return err
	}
	return b.queue.Wait(value, b.timeout)
}

// SyncToShared copies the render target into the shared texture and waits
// for the copy to finish. On return the shared handle shows the last frame
// rendered into View.
//
// The render target must be in the render-target state and the shared
// texture in the common state; both are restored before submission.
func (b *Bridge) SyncToShared() error {
	if b.closed {
		return ErrClosed
	}
	if err := b.queue.Begin(); err != nil {
		return fmt.Errorf("%w: begin: %w", ErrSyncFailed, err)
	}

	b.queue.Barrier(
		native.Transition{Resource: b.rt, Before: native.StateRenderTarget, After: native.StateCopySource},
		native.Transition{Resource: b.shared, Before: native.StateCommon, After: native.StateCopyDest},
	)
	b.queue.CopyResource(b.shared, b.rt)
	b.queue.Barrier(
		native.Transition{Resource: b.rt, Before: native.StateCopySource, After: native.StateRenderTarget},
		native.Transition{Resource: b.shared, Before: native.StateCopyDest, After: native.StateCommon},
	)

	value, err := b.queue.Submit()
	if err != nil {
		return fmt.Errorf("%w: submit: %w", ErrSyncFailed, err)
	}
	if err := b.queue.Wait(value, b.timeout); err != nil {
		return fmt.Errorf("%w: wait: %w", ErrSyncFailed, err)
	}
	logging.Logger().Debug("bridge: synced", "fence", value)
	return nil
}

// Handle returns the NT handle of the shared texture. It stays valid until
// Close.
func (b *Bridge) Handle() native.Handle { return b.handle }

// View returns the render target view frames are drawn into.
func (b *Bridge) View() hal.TextureView {
	if b.target == nil {
		return nil
	}
	return b.target.View
}

// Size returns the texture dimensions.
func (b *Bridge) Size() (width, height uint32) {
	if b.target == nil {
		return 0, 0
	}
	return b.target.Width, b.target.Height
}

// Format returns the color format of both textures.
func (b *Bridge) Format() gputypes.TextureFormat {
	if b.target == nil {
		return gputypes.TextureFormatUndefined
	}
	return b.target.Format
}

// Close releases the copy queue, handle, shared texture, native device and
// render target. It is safe to call more than once.
func (b *Bridge) Close() {
	if b.closed {
		return
	}
	b.closed = true

	if b.queue != nil {
		b.queue.Release()
		b.queue = nil
	}
	if b.handle != 0 {
		if err := b.native.CloseHandle(b.handle); err != nil {
			logging.Logger().Warn("bridge: close shared handle", "err", err)
		}
		b.handle = 0
	}
	if b.shared != nil {
		b.shared.Release()
		b.shared = nil
	}
	if b.rt != nil {
		b.rt.Release()
		b.rt = nil
	}
	if b.native != nil {
		b.native.Release()
		b.native = nil
	}
	if b.target != nil {
		b.target.Destroy(b.hal)
		b.target = nil
	}
}
