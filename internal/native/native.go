// Package native exposes the small part of the native graphics API that the
// portable HAL does not cover: OS-shareable resources, their NT handles and a
// dedicated copy queue with explicit resource state transitions.
//
// The package models the native layer as interfaces so the shared-texture
// bridge can be driven by fakes in tests. The Direct3D 12 implementation is
// only available on 64-bit Windows; every other platform reports
// ErrUnsupported.
package native

import (
	"fmt"
	"math"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// Handle is an OS-level handle to a shareable GPU resource.
// A zero Handle is invalid.
type Handle uintptr

// Format is a native (DXGI) pixel format.
type Format uint32

// DXGI formats used by the bridge.
const (
	FormatUnknown           Format = 0
	FormatR8G8B8A8Unorm     Format = 28
	FormatR8G8B8A8UnormSRGB Format = 29
	FormatB8G8R8A8Unorm     Format = 87
	FormatB8G8R8A8UnormSRGB Format = 91
)

// FormatFromTexture maps a HAL texture format to the native format of the
// same memory layout.
func FormatFromTexture(f gputypes.TextureFormat) (Format, error) {
	switch f {
	case gputypes.TextureFormatRGBA8Unorm:
		return FormatR8G8B8A8Unorm, nil
	case gputypes.TextureFormatRGBA8UnormSrgb:
		return FormatR8G8B8A8UnormSRGB, nil
	case gputypes.TextureFormatBGRA8Unorm:
		return FormatB8G8R8A8Unorm, nil
	case gputypes.TextureFormatBGRA8UnormSrgb:
		return FormatB8G8R8A8UnormSRGB, nil
	default:
		return FormatUnknown, fmt.Errorf("%w: %v", ErrUnknownFormat, f)
	}
}

// State is a native resource state used in transition barriers.
type State uint32

// Resource states (D3D12_RESOURCE_STATES).
const (
	StateCommon       State = 0
	StateRenderTarget State = 0x4
	StateCopyDest     State = 0x400
	StateCopySource   State = 0x800
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateCommon:
		return "Common"
	case StateRenderTarget:
		return "RenderTarget"
	case StateCopyDest:
		return "CopyDest"
	case StateCopySource:
		return "CopySource"
	default:
		return fmt.Sprintf("State(%#x)", uint32(s))
	}
}

// Transition declares a resource state change recorded into a copy queue.
type Transition struct {
	Resource Resource
	Before   State
	After    State
}

// TextureDesc describes a shareable 2D texture.
type TextureDesc struct {
	Label  string
	Width  uint32
	Height uint32
	Format Format
}

// Resource is a natively owned GPU resource.
type Resource interface {
	// Raw returns the native object pointer.
	Raw() uintptr

	// Release drops this reference. Safe to call more than once.
	Release()
}

// Device is the native device underneath a HAL device.
type Device interface {
	// BorrowTexture takes a new reference on the native resource behind a
	// HAL texture.
	BorrowTexture(tex hal.Texture) (Resource, error)

	// CreateSharedTexture allocates a render-target-capable texture in a
	// default heap flagged as shareable. The resource starts in StateCommon.
	CreateSharedTexture(desc TextureDesc) (Resource, error)

	// CreateSharedHandle exports an anonymous, full-access OS handle for a
	// shareable resource. The caller closes it with CloseHandle.
	CreateSharedHandle(res Resource) (Handle, error)

	// CloseHandle closes a handle returned by CreateSharedHandle.
	CloseHandle(h Handle) error

	// CreateCopyQueue creates a queue, command allocator and command list
	// that are independent of any queue used by the HAL.
	CreateCopyQueue(label string) (CopyQueue, error)

	// Release drops the reference taken on the native device.
	Release()
}

// CopyQueue records and submits copy work on its own native queue.
//
// A frame is recorded as Begin, Barrier/CopyResource calls, Submit. Begin
// must not be called again before the previous submission completed.
type CopyQueue interface {
	// Begin resets the command allocator and list for a new recording.
	Begin() error

	// Barrier records resource state transitions.
	Barrier(transitions ...Transition)

	// CopyResource records a full copy of src into dst.
	CopyResource(dst, src Resource)

	// Submit closes the list, executes it and returns the fence value that
	// will be signalled when the work completes.
	Submit() (uint64, error)

	// Wait blocks until the fence reaches value or the timeout expires.
	Wait(value uint64, timeout time.Duration) error

	// Release frees the queue, allocator, list and fence.
	Release()
}

// Opener returns the native device that owns a HAL texture.
type Opener func(tex hal.Texture) (Device, error)

// nativeHandle is implemented by HAL objects that expose their native
// object pointer. DX12 textures, buffers and views do; the DX12 device does
// not.
type nativeHandle interface {
	NativeHandle() uintptr
}

// FromTexture descends from a HAL texture to the native device that created
// it. It fails with ErrUnavailable when the texture does not expose a native
// resource, which is the case for every backend except DX12.
func FromTexture(tex hal.Texture) (Device, error) {
	if tex == nil {
		return nil, ErrNilTexture
	}
	raw, err := TextureResource(tex)
	if err != nil {
		return nil, err
	}
	return openDevice(raw)
}

// TextureResource returns the native resource pointer behind a HAL texture.
func TextureResource(tex hal.Texture) (uintptr, error) {
	if tex == nil {
		return 0, fmt.Errorf("%w: nil texture", ErrUnavailable)
	}
	nh, ok := any(tex).(nativeHandle)
	if !ok {
		return 0, fmt.Errorf("%w: %T has no native handle", ErrUnavailable, tex)
	}
	raw := nh.NativeHandle()
	if raw == 0 {
		return 0, fmt.Errorf("%w: %T returned a nil native handle", ErrUnavailable, tex)
	}
	return raw, nil
}

// infiniteWait is the Win32 INFINITE timeout.
const infiniteWait = math.MaxUint32

// waitMillis converts a timeout to Win32 milliseconds. Non-positive
// timeouts wait forever; partial milliseconds round up so a short timeout
// never becomes a zero-length poll.
func waitMillis(timeout time.Duration) uint32 {
	if timeout <= 0 {
		return infiniteWait
	}
	ms := (timeout + time.Millisecond - 1) / time.Millisecond
	if ms >= infiniteWait {
		return infiniteWait - 1
	}
	return uint32(ms)
}
