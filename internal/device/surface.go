package device

import "github.com/gogpu/wgpu/hal"

// createSurface creates a presentation surface for a native window.
// No display connection is needed on Windows; other platforms pass zero.
func createSurface(instance hal.Instance, window uintptr) (hal.Surface, error) {
	return instance.CreateSurface(0, window)
}
