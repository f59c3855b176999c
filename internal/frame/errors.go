package frame

import "errors"

var (
	// ErrNilDevice is returned when New is called without a device or queue.
	ErrNilDevice = errors.New("frame: nil device or queue")

	// ErrNilView is returned when Clear is called without a target view.
	ErrNilView = errors.New("frame: nil texture view")

	// ErrInvalidSize is returned for zero-sized render targets.
	ErrInvalidSize = errors.New("frame: invalid target size")

	// ErrTimeout is returned when the GPU did not reach a marker in time.
	ErrTimeout = errors.New("frame: GPU wait timed out")

	// ErrDestroyed is returned when a destroyed Submitter is used.
	ErrDestroyed = errors.New("frame: submitter destroyed")
)
