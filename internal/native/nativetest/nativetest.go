// Package nativetest provides an in-memory native device for tests.
//
// The fake keeps a byte slice per resource, executes recorded barriers and
// copies at submit time, and tracks every object it hands out so tests can
// assert that all of them were released.
package nativetest

import (
	"fmt"
	"sync"
	"time"

	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/iris/internal/native"
)

// Step names a fallible Device operation.
type Step int

// Fallible steps.
const (
	StepOpen Step = iota
	StepBorrow
	StepCreateShared
	StepCreateHandle
	StepCreateQueue
	StepBegin
	StepSubmit
	StepWait
)

// String returns the step name.
func (s Step) String() string {
	switch s {
	case StepOpen:
		return "open"
	case StepBorrow:
		return "borrow"
	case StepCreateShared:
		return "create-shared"
	case StepCreateHandle:
		return "create-handle"
	case StepCreateQueue:
		return "create-queue"
	case StepBegin:
		return "begin"
	case StepSubmit:
		return "submit"
	case StepWait:
		return "wait"
	default:
		return fmt.Sprintf("Step(%d)", int(s))
	}
}

// Resource is a fake native resource backed by a byte slice.
type Resource struct {
	Label  string
	Width  uint32
	Height uint32
	Format native.Format
	State  native.State
	Data   []byte

	dev  *Device
	refs int
	id   uintptr
}

// Raw returns a fake object pointer, unique per resource.
func (r *Resource) Raw() uintptr { return r.id }

// Release drops one reference.
func (r *Resource) Release() {
	r.dev.mu.Lock()
	defer r.dev.mu.Unlock()
	if r.refs > 0 {
		r.refs--
	}
}

// Fill sets every byte of the resource to v.
func (r *Resource) Fill(v byte) {
	for i := range r.Data {
		r.Data[i] = v
	}
}

// Device is a fake native.Device.
type Device struct {
	// RenderTargetWidth and RenderTargetHeight size the resources returned
	// by BorrowTexture.
	RenderTargetWidth  uint32
	RenderTargetHeight uint32

	mu        sync.Mutex
	fail      map[Step]error
	calls     []string
	resources []*Resource
	handles   map[native.Handle]*Resource
	queues    []*CopyQueue
	nextID    uintptr
	opened    int
	released  int
}

// NewDevice creates a fake device whose borrowed render targets are w x h.
func NewDevice(w, h uint32) *Device {
	return &Device{
		RenderTargetWidth:  w,
		RenderTargetHeight: h,
		fail:               make(map[Step]error),
		handles:            make(map[native.Handle]*Resource),
		nextID:             0x1000,
	}
}

// FailAt makes the given step return err.
func (d *Device) FailAt(step Step, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.fail[step] = err
}

// Opener returns a native.Opener that hands out this device.
func (d *Device) Opener() native.Opener {
	return func(tex hal.Texture) (native.Device, error) {
		if err := d.check(StepOpen); err != nil {
			return nil, err
		}
		if tex == nil {
			return nil, native.ErrNilTexture
		}
		d.mu.Lock()
		d.opened++
		d.mu.Unlock()
		return d, nil
	}
}

// Calls returns the operations performed so far, in order.
func (d *Device) Calls() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.calls...)
}

// Open looks up the resource behind an exported handle, as a consumer
// process would.
func (d *Device) Open(h native.Handle) (*Resource, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	r, ok := d.handles[h]
	return r, ok
}

// Resources returns every resource created or borrowed.
func (d *Device) Resources() []*Resource {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*Resource(nil), d.resources...)
}

// Leaks returns a description of every object that was not released.
func (d *Device) Leaks() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	var leaks []string
	for _, r := range d.resources {
		if r.refs > 0 {
			leaks = append(leaks, fmt.Sprintf("resource %q (%d refs)", r.Label, r.refs))
		}
	}
	for h := range d.handles {
		leaks = append(leaks, fmt.Sprintf("handle %#x", uintptr(h)))
	}
	for _, q := range d.queues {
		if !q.released {
			leaks = append(leaks, fmt.Sprintf("copy queue %q", q.label))
		}
	}
	if d.opened > d.released {
		leaks = append(leaks, fmt.Sprintf("device (%d opens, %d releases)", d.opened, d.released))
	}
	return leaks
}

func (d *Device) check(step Step) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, step.String())
	if err := d.fail[step]; err != nil {
		return err
	}
	return nil
}

func (d *Device) newResource(label string, w, h uint32, format native.Format, state native.State) *Resource {
	d.nextID += 0x10
	r := &Resource{
		Label:  label,
		Width:  w,
		Height: h,
		Format: format,
		State:  state,
		Data:   make([]byte, int(w)*int(h)*4),
		dev:    d,
		refs:   1,
		id:     d.nextID,
	}
	d.resources = append(d.resources, r)
	return r
}

// BorrowTexture returns a resource in the common state, the state the DX12
// HAL creates textures in.
func (d *Device) BorrowTexture(tex hal.Texture) (native.Resource, error) {
	if err := d.check(StepBorrow); err != nil {
		return nil, err
	}
	if tex == nil {
		return nil, native.ErrUnavailable
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.newResource("render_target", d.RenderTargetWidth, d.RenderTargetHeight,
		native.FormatB8G8R8A8UnormSRGB, native.StateCommon), nil
}

// CreateSharedTexture returns a zeroed resource in the common state.
func (d *Device) CreateSharedTexture(desc native.TextureDesc) (native.Resource, error) {
	if err := d.check(StepCreateShared); err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.newResource(desc.Label, desc.Width, desc.Height, desc.Format, native.StateCommon), nil
}

// CreateSharedHandle exports a handle to res.
func (d *Device) CreateSharedHandle(res native.Resource) (native.Handle, error) {
	if err := d.check(StepCreateHandle); err != nil {
		return 0, err
	}
	r, ok := res.(*Resource)
	if !ok {
		return 0, fmt.Errorf("nativetest: foreign resource %T", res)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	h := native.Handle(r.id + 1)
	d.handles[h] = r
	return h, nil
}

// CloseHandle forgets an exported handle.
func (d *Device) CloseHandle(h native.Handle) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.handles[h]; !ok {
		return fmt.Errorf("nativetest: unknown handle %#x", uintptr(h))
	}
	delete(d.handles, h)
	return nil
}

// CreateCopyQueue returns a queue that executes work at submit time.
func (d *Device) CreateCopyQueue(label string) (native.CopyQueue, error) {
	if err := d.check(StepCreateQueue); err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	q := &CopyQueue{dev: d, label: label}
	d.queues = append(d.queues, q)
	return q, nil
}

// Release drops the device reference.
func (d *Device) Release() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.released++
}

type command struct {
	transitions []native.Transition
	dst, src    native.Resource
}

// CopyQueue is a fake native.CopyQueue.
type CopyQueue struct {
	dev       *Device
	label     string
	recording bool
	commands  []command
	fence     uint64
	released  bool
}

// Begin starts a recording.
func (q *CopyQueue) Begin() error {
	if err := q.dev.check(StepBegin); err != nil {
		return err
	}
	q.recording = true
	q.commands = q.commands[:0]
	return nil
}

// Barrier records transitions.
func (q *CopyQueue) Barrier(transitions ...native.Transition) {
	q.commands = append(q.commands, command{transitions: transitions})
}

// CopyResource records a copy.
func (q *CopyQueue) CopyResource(dst, src native.Resource) {
	q.commands = append(q.commands, command{dst: dst, src: src})
}

// Submit executes the recorded commands. A barrier whose Before state does
// not match the resource, or a copy outside the copy states, fails.
func (q *CopyQueue) Submit() (uint64, error) {
	if err := q.dev.check(StepSubmit); err != nil {
		return 0, err
	}
	if !q.recording {
		return 0, fmt.Errorf("nativetest: submit without begin")
	}
	q.recording = false

	q.dev.mu.Lock()
	defer q.dev.mu.Unlock()
	for _, c := range q.commands {
		if c.dst != nil {
			dst, src := c.dst.(*Resource), c.src.(*Resource)
			if src.State != native.StateCopySource || dst.State != native.StateCopyDest {
				return 0, fmt.Errorf("nativetest: copy %s(%v) -> %s(%v)", src.Label, src.State, dst.Label, dst.State)
			}
			if len(dst.Data) != len(src.Data) {
				return 0, fmt.Errorf("nativetest: copy size mismatch %d != %d", len(src.Data), len(dst.Data))
			}
			q.dev.calls = append(q.dev.calls, "copy")
			copy(dst.Data, src.Data)
			continue
		}
		for _, t := range c.transitions {
			r := t.Resource.(*Resource)
			if r.State != t.Before {
				return 0, fmt.Errorf("nativetest: %s is %v, barrier expects %v", r.Label, r.State, t.Before)
			}
			q.dev.calls = append(q.dev.calls, fmt.Sprintf("barrier %s %v->%v", r.Label, t.Before, t.After))
			r.State = t.After
		}
	}
	q.fence++
	return q.fence, nil
}

// Wait returns once value has been signalled.
func (q *CopyQueue) Wait(value uint64, _ time.Duration) error {
	if err := q.dev.check(StepWait); err != nil {
		return err
	}
	if value > q.fence {
		return native.ErrTimeout
	}
	return nil
}

// Release marks the queue released.
func (q *CopyQueue) Release() { q.released = true }

var (
	_ native.Device    = (*Device)(nil)
	_ native.CopyQueue = (*CopyQueue)(nil)
	_ native.Resource  = (*Resource)(nil)
)
