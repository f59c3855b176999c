//go:build !windows

package device

import (
	"github.com/gogpu/gputypes"

	_ "github.com/gogpu/wgpu/hal/vulkan" // Vulkan backend
)

// DefaultBackend is Vulkan. Shared texture export is unavailable off Windows.
const DefaultBackend = gputypes.BackendVulkan
