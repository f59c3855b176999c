// Command libiris builds the engine as a C shared library for hosts that
// load it across a process boundary:
//
//	go build -buildmode=c-shared -o iris.dll ./cmd/libiris
//
// Settings come from the file named by IRIS_CONFIG, or iris.yaml in the
// working directory, plus IRIS_* environment overrides.
package main

/*
#include <stdint.h>
#include <stdbool.h>
*/
import "C"

import (
	"log/slog"
	"os"
	"sync"
	"unsafe"

	"github.com/gogpu/iris"
	"github.com/gogpu/iris/internal/config"
)

var (
	optsOnce sync.Once
	opts     []iris.Option
)

// engineOptions loads the configuration on first use. A broken config file
// falls back to defaults so the host still gets an engine.
func engineOptions() []iris.Option {
	optsOnce.Do(func() {
		cfg, err := config.Load(os.Getenv("IRIS_CONFIG"))
		if err != nil {
			iris.Logger().Warn("libiris: using default config", "error", err)
			cfg = config.Default()
		}
		level, _ := cfg.Level()
		iris.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

		o, err := cfg.Options()
		if err != nil {
			iris.Logger().Warn("libiris: ignoring config", "error", err)
			return
		}
		opts = o
	})
	return opts
}

//export iris_create_engine_offscreen
func iris_create_engine_offscreen(width, height C.uint32_t) C.uintptr_t {
	return C.uintptr_t(iris.CreateOffscreen(uint32(width), uint32(height), engineOptions()...))
}

//export iris_create_engine
func iris_create_engine(hwnd unsafe.Pointer, width, height C.uint32_t) C.uintptr_t {
	return C.uintptr_t(iris.CreateWindowed(uintptr(hwnd), uint32(width), uint32(height), engineOptions()...))
}

//export iris_destroy_engine
func iris_destroy_engine(engine C.uintptr_t) {
	iris.Destroy(iris.Handle(engine))
}

//export iris_render_frame_offscreen
func iris_render_frame_offscreen(engine C.uintptr_t) C.uintptr_t {
	return C.uintptr_t(iris.RenderOffscreen(iris.Handle(engine)))
}

//export iris_render_frame
func iris_render_frame(engine C.uintptr_t) {
	iris.RenderWindowed(iris.Handle(engine))
}

//export iris_resize_engine
func iris_resize_engine(engine C.uintptr_t, width, height C.uint32_t) {
	iris.Resize(iris.Handle(engine), uint32(width), uint32(height))
}

//export iris_check_status
func iris_check_status(value C.int32_t) C.bool {
	return C.bool(iris.CheckStatus(int32(value)))
}

//export iris_is_engine_ready
func iris_is_engine_ready(n C.int32_t) C.int32_t {
	return C.int32_t(iris.ReadyCheck(int32(n)))
}

func main() {}
