package bridge

import "errors"

var (
	// ErrNilContext is returned when New is called without a device context.
	ErrNilContext = errors.New("bridge: nil device context")

	// ErrSyncFailed is returned when copying a frame into the shared texture
	// fails. The bridge should not be used for further frames.
	ErrSyncFailed = errors.New("bridge: sync to shared texture failed")

	// ErrClosed is returned when a closed bridge is used.
	ErrClosed = errors.New("bridge: closed")
)
