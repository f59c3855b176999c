package native

import "errors"

// Package errors for the native layer.
var (
	// ErrUnsupported is returned on platforms without a native sharing API.
	ErrUnsupported = errors.New("native: resource sharing not supported on this platform")

	// ErrUnavailable is returned when a HAL object does not expose its
	// native counterpart.
	ErrUnavailable = errors.New("native: native object unavailable")

	// ErrNilTexture is returned when FromTexture is called with a nil texture.
	ErrNilTexture = errors.New("native: nil texture")

	// ErrUnknownFormat is returned for texture formats without a native mapping.
	ErrUnknownFormat = errors.New("native: unknown texture format")

	// ErrTimeout is returned when a fence wait expires.
	ErrTimeout = errors.New("native: fence wait timed out")

	// ErrReleased is returned when a released object is used.
	ErrReleased = errors.New("native: object released")
)
