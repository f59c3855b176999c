package present

import (
	"fmt"
	"slices"

	"github.com/gogpu/gputypes"
)

// PresentMode controls how frames are queued for display.
type PresentMode int

// Present modes. The Auto modes are resolved against the surface
// capabilities when the surface is configured.
const (
	PresentModeAutoNoVsync PresentMode = iota
	PresentModeAutoVsync
	PresentModeImmediate
	PresentModeMailbox
	PresentModeFifo
	PresentModeFifoRelaxed
)

// String returns the mode name.
func (m PresentMode) String() string {
	switch m {
	case PresentModeAutoNoVsync:
		return "AutoNoVsync"
	case PresentModeAutoVsync:
		return "AutoVsync"
	case PresentModeImmediate:
		return "Immediate"
	case PresentModeMailbox:
		return "Mailbox"
	case PresentModeFifo:
		return "Fifo"
	case PresentModeFifoRelaxed:
		return "FifoRelaxed"
	default:
		return fmt.Sprintf("PresentMode(%d)", int(m))
	}
}

// AlphaMode controls how the compositor blends the surface.
type AlphaMode int

// Alpha modes. AlphaModeAuto picks Opaque when offered, else the first
// offered mode.
const (
	AlphaModeAuto AlphaMode = iota
	AlphaModeOpaque
	AlphaModePreMultiplied
	AlphaModePostMultiplied
	AlphaModeInherit
)

// String returns the mode name.
func (m AlphaMode) String() string {
	switch m {
	case AlphaModeAuto:
		return "Auto"
	case AlphaModeOpaque:
		return "Opaque"
	case AlphaModePreMultiplied:
		return "PreMultiplied"
	case AlphaModePostMultiplied:
		return "PostMultiplied"
	case AlphaModeInherit:
		return "Inherit"
	default:
		return fmt.Sprintf("AlphaMode(%d)", int(m))
	}
}

// Capabilities lists what a surface supports on the current adapter, in the
// adapter's order of preference.
type Capabilities struct {
	Formats      []gputypes.TextureFormat
	PresentModes []PresentMode
	AlphaModes   []AlphaMode
}

// FallbackFormat is used when the surface reports no sRGB format.
const FallbackFormat = gputypes.TextureFormatBGRA8UnormSrgb

// SelectFormat returns the first sRGB format offered, or FallbackFormat.
func SelectFormat(caps Capabilities) gputypes.TextureFormat {
	for _, f := range caps.Formats {
		if f.IsSrgb() {
			return f
		}
	}
	return FallbackFormat
}

// SelectAlphaMode returns the first alpha mode offered, or AlphaModeAuto.
func SelectAlphaMode(caps Capabilities) AlphaMode {
	if len(caps.AlphaModes) > 0 {
		return caps.AlphaModes[0]
	}
	return AlphaModeAuto
}

// SelectPresentMode returns Mailbox or Immediate, whichever the surface
// offers first, or PresentModeAutoNoVsync. It never returns a vsync mode.
func SelectPresentMode(caps Capabilities) PresentMode {
	for _, m := range caps.PresentModes {
		if m == PresentModeMailbox || m == PresentModeImmediate {
			return m
		}
	}
	return PresentModeAutoNoVsync
}

// ResolvePresentMode turns an Auto mode into a concrete one supported by
// the surface. AutoNoVsync tries Immediate, Mailbox, then Fifo; AutoVsync
// tries FifoRelaxed, then Fifo. Concrete modes are returned unchanged.
func ResolvePresentMode(m PresentMode, offered []PresentMode) PresentMode {
	var order []PresentMode
	switch m {
	case PresentModeAutoNoVsync:
		order = []PresentMode{PresentModeImmediate, PresentModeMailbox}
	case PresentModeAutoVsync:
		order = []PresentMode{PresentModeFifoRelaxed}
	default:
		return m
	}
	for _, want := range order {
		if slices.Contains(offered, want) {
			return want
		}
	}
	return PresentModeFifo
}

// ResolveAlphaMode turns AlphaModeAuto into Opaque when offered, otherwise
// the first offered mode. Concrete modes are returned unchanged.
func ResolveAlphaMode(m AlphaMode, offered []AlphaMode) AlphaMode {
	if m != AlphaModeAuto {
		return m
	}
	if len(offered) == 0 || slices.Contains(offered, AlphaModeOpaque) {
		return AlphaModeOpaque
	}
	return offered[0]
}
