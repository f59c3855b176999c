package present

import "errors"

var (
	// ErrNilContext is returned when New is called without a device context.
	ErrNilContext = errors.New("present: nil device context")

	// ErrNilTarget is returned when New is called without a surface target.
	ErrNilTarget = errors.New("present: nil target")

	// ErrNoSurface is returned when the device context was created without
	// a window.
	ErrNoSurface = errors.New("present: device context has no surface")

	// ErrConfigure is returned when the surface rejects a configuration.
	ErrConfigure = errors.New("present: surface configuration failed")

	// ErrFrameSkipped is returned when no surface texture could be acquired.
	// The presenter stays usable.
	ErrFrameSkipped = errors.New("present: frame skipped")

	// ErrNotConfigured is returned when a frame is acquired before the
	// surface was configured.
	ErrNotConfigured = errors.New("present: surface not configured")

	// ErrClosed is returned when a closed presenter is used.
	ErrClosed = errors.New("present: closed")
)
