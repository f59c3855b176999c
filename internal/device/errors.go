package device

import "errors"

var (
	// ErrBackendUnavailable is returned when the requested HAL backend is not
	// registered in this build.
	ErrBackendUnavailable = errors.New("device: backend not available")

	// ErrInstanceCreation is returned when the HAL instance cannot be created.
	ErrInstanceCreation = errors.New("device: instance creation failed")

	// ErrSurfaceCreation is returned when the window surface cannot be created.
	ErrSurfaceCreation = errors.New("device: surface creation failed")

	// ErrNoAdapter is returned when no adapter is compatible.
	ErrNoAdapter = errors.New("device: no compatible adapter")

	// ErrDeviceCreation is returned when the logical device cannot be opened.
	ErrDeviceCreation = errors.New("device: device creation failed")
)
