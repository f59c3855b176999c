// Package iris renders frames on a GPU and hands them to a host process.
//
// # Overview
//
// An Engine runs in one of two modes:
//
//   - Offscreen: frames are drawn into a render target and copied into a
//     second, OS-shareable texture after every frame. RenderFrame returns an
//     NT handle the host opens on its own device.
//   - Windowed: frames are drawn straight into a surface created for a
//     native window and presented. Nothing is exported.
//
// The device, adapter and surface come from gogpu/wgpu. Resource sharing is
// not part of the portable HAL, so the offscreen mode drops to the native
// Direct3D 12 device underneath it and is only available on Windows.
//
// # Quick Start
//
//	e, err := iris.NewOffscreen(800, 600)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer e.Close()
//
//	h, err := e.RenderFrame()
//	// Pass h to the consumer process.
//
// # Process boundary
//
// Foreign callers reach CreateOffscreen, RenderOffscreen and their siblings
// through the C ABI built by cmd/libiris. Those functions never panic and
// never return errors: construction failures are reported to a Diagnostics
// collaborator and turn into a zero handle, and engines are addressed by
// opaque Handle tokens instead of pointers.
//
// # Logging
//
// iris is silent by default. Call SetLogger to receive structured logs from
// every layer.
package iris
