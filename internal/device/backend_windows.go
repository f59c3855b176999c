package device

import (
	"github.com/gogpu/gputypes"

	_ "github.com/gogpu/wgpu/hal/dx12"   // DX12 backend
	_ "github.com/gogpu/wgpu/hal/vulkan" // Vulkan backend
)

// DefaultBackend is DX12 so that rendered textures can be shared through
// NT handles.
const DefaultBackend = gputypes.BackendDX12
