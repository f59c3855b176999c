// Package device creates and owns the GPU instance, adapter, logical device
// and queue, plus the optional window surface.
//
// A Context is created once per engine. It blocks until the device is ready
// and releases everything in reverse creation order on Close.
package device

import (
	"fmt"
	"sync"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/iris/internal/logging"
)

// InstanceFactory creates a HAL instance. It replaces backend lookup when set.
type InstanceFactory func() (hal.Instance, error)

// SurfaceFactory creates a presentation surface for a native window.
type SurfaceFactory func(instance hal.Instance, window uintptr) (hal.Surface, error)

// Config describes how a Context is created.
type Config struct {
	// Backend selects the HAL backend. Zero selects DefaultBackend.
	Backend gputypes.Backend

	// Window is the native window handle to present into. Zero creates a
	// headless context without a surface.
	Window uintptr

	// Label names the device in log output.
	Label string

	// NewInstance overrides backend lookup. Used by tests to run on the noop
	// backend.
	NewInstance InstanceFactory

	// NewSurface overrides surface creation for Window.
	NewSurface SurfaceFactory
}

// Context owns the GPU objects shared by every frame of an engine.
type Context struct {
	instance hal.Instance
	surface  hal.Surface
	adapter  hal.ExposedAdapter
	device   hal.Device
	queue    hal.Queue
	label    string

	closeOnce sync.Once
}

// New creates the instance, optional surface, adapter, device and queue.
func New(cfg Config) (*Context, error) {
	label := cfg.Label
	if label == "" {
		label = DefaultLabel
	}

	instance, err := createInstance(cfg)
	if err != nil {
		return nil, err
	}
	c := &Context{instance: instance, label: label}

	if cfg.Window != 0 {
		newSurface := cfg.NewSurface
		if newSurface == nil {
			newSurface = createSurface
		}
		surface, err := newSurface(instance, cfg.Window)
		if err != nil {
			instance.Destroy()
			return nil, fmt.Errorf("%w: %w", ErrSurfaceCreation, err)
		}
		c.surface = surface
	}

	adapters := instance.EnumerateAdapters(c.surface)
	selected, ok := selectAdapter(adapters)
	if !ok {
		c.release()
		return nil, ErrNoAdapter
	}
	c.adapter = selected

	openDev, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		c.release()
		return nil, fmt.Errorf("%w: %w", ErrDeviceCreation, err)
	}
	c.device = openDev.Device
	c.queue = openDev.Queue

	logging.Logger().Info("device: created",
		"label", label,
		"adapter", selected.Info.Name,
		"type", selected.Info.DeviceType,
		"surface", c.surface != nil)
	return c, nil
}

func createInstance(cfg Config) (hal.Instance, error) {
	if cfg.NewInstance != nil {
		instance, err := cfg.NewInstance()
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInstanceCreation, err)
		}
		return instance, nil
	}

	kind := cfg.Backend
	if kind == 0 {
		kind = DefaultBackend
	}
	backend, ok := hal.GetBackend(kind)
	if !ok {
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, kind)
	}
	instance, err := backend.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInstanceCreation, err)
	}
	return instance, nil
}

// selectAdapter prefers a discrete GPU, then an integrated one, then the
// first adapter offered.
func selectAdapter(adapters []hal.ExposedAdapter) (hal.ExposedAdapter, bool) {
	if len(adapters) == 0 {
		return hal.ExposedAdapter{}, false
	}
	for _, want := range []gputypes.DeviceType{
		gputypes.DeviceTypeDiscreteGPU,
		gputypes.DeviceTypeIntegratedGPU,
	} {
		for i := range adapters {
			if adapters[i].Info.DeviceType == want {
				return adapters[i], true
			}
		}
	}
	return adapters[0], true
}

// Instance returns the HAL instance.
func (c *Context) Instance() hal.Instance { return c.instance }

// Surface returns the window surface, or nil for a headless context.
func (c *Context) Surface() hal.Surface { return c.surface }

// HALAdapter returns the selected adapter.
func (c *Context) HALAdapter() hal.Adapter { return c.adapter.Adapter }

// AdapterName returns the name reported by the selected adapter.
func (c *Context) AdapterName() string { return c.adapter.Info.Name }

// AdapterType returns the device type of the selected adapter.
func (c *Context) AdapterType() gputypes.DeviceType { return c.adapter.Info.DeviceType }

// HALDevice returns the logical device.
func (c *Context) HALDevice() hal.Device { return c.device }

// HALQueue returns the device queue.
func (c *Context) HALQueue() hal.Queue { return c.queue }

// Label returns the device label.
func (c *Context) Label() string { return c.label }

// Close releases the surface, device, adapter and instance in that order.
// Only the first call has an effect.
func (c *Context) Close() {
	c.closeOnce.Do(func() {
		c.release()
		logging.Logger().Info("device: closed", "label", c.label)
	})
}

func (c *Context) release() {
	if c.surface != nil {
		c.surface.Destroy()
		c.surface = nil
	}
	if c.device != nil {
		c.device.Destroy()
		c.device = nil
		c.queue = nil
	}
	if d, ok := c.adapter.Adapter.(interface{ Destroy() }); ok {
		d.Destroy()
	}
	c.adapter = hal.ExposedAdapter{}
	if c.instance != nil {
		c.instance.Destroy()
		c.instance = nil
	}
}

// Device, Queue, Adapter and SurfaceFormat let a Context be handed to other
// gogpu libraries as a gpucontext.DeviceProvider.
var _ gpucontext.DeviceProvider = (*Context)(nil)

// Device returns the device as a gpucontext.Device.
func (c *Context) Device() gpucontext.Device { return providedDevice{c.device} }

// Queue returns the queue as a gpucontext.Queue.
func (c *Context) Queue() gpucontext.Queue { return c.queue }

// Adapter returns the adapter as a gpucontext.Adapter.
func (c *Context) Adapter() gpucontext.Adapter { return c.adapter.Adapter }

// SurfaceFormat returns the format frames are rendered in.
func (c *Context) SurfaceFormat() gputypes.TextureFormat { return DefaultFormat }

// HalDevice returns the hal.Device for libraries that accept a HAL provider.
func (c *Context) HalDevice() any { return c.device }

// HalQueue returns the hal.Queue for libraries that accept a HAL provider.
func (c *Context) HalQueue() any { return c.queue }

// providedDevice lends the device to other libraries without ownership.
type providedDevice struct {
	hal.Device
}

// Poll is a no-op; submissions are waited on with fences.
func (providedDevice) Poll(bool) {}

// Destroy is a no-op; the Context owns the device.
func (providedDevice) Destroy() {}
