package iris

import "errors"

var (
	// ErrInvalidSize is returned for zero offscreen dimensions.
	ErrInvalidSize = errors.New("iris: invalid size")

	// ErrNoWindow is returned when NewWindowed is called with a zero window
	// handle.
	ErrNoWindow = errors.New("iris: no window handle")

	// ErrNotWindowed is returned by operations that only apply to windowed
	// engines.
	ErrNotWindowed = errors.New("iris: engine is not windowed")

	// ErrEngineFailed is returned once an offscreen engine failed to produce
	// a frame. The engine must be closed and recreated.
	ErrEngineFailed = errors.New("iris: engine failed")

	// ErrClosed is returned when a closed engine is used.
	ErrClosed = errors.New("iris: engine closed")
)
