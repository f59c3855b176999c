package device

import "github.com/gogpu/gputypes"

// DefaultLabel names the device when Config.Label is empty.
const DefaultLabel = "IrisDevice"

// DefaultFormat is the color format of offscreen frames.
const DefaultFormat = gputypes.TextureFormatBGRA8UnormSrgb
