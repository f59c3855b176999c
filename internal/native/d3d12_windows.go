//go:build windows && (amd64 || arm64)

package native

import (
	"fmt"
	"syscall"
	"time"
	"unsafe"

	ole "github.com/go-ole/go-ole"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/dx12"
	"golang.org/x/sys/windows"

	"github.com/gogpu/iris/internal/logging"
)

// DX12 HAL types the native layer descends through.
var (
	_ nativeHandle = (*dx12.Texture)(nil)
	_ nativeHandle = (*dx12.TextureView)(nil)
)

// Interface IDs.
var (
	iidID3D12Device              = ole.NewGUID("{189819f1-1db6-4b57-be54-1821339b85f7}")
	iidID3D12Resource            = ole.NewGUID("{696442be-a72e-4059-bc79-5b5c98040fad}")
	iidID3D12CommandQueue        = ole.NewGUID("{0ec870a6-5d7e-4c22-8cfc-5baae07616ed}")
	iidID3D12CommandAllocator    = ole.NewGUID("{6102dee4-af59-4b09-b999-b44d73f09b24}")
	iidID3D12GraphicsCommandList = ole.NewGUID("{5b160d0f-ac1b-4185-8ba8-b3ae42a5a455}")
	iidID3D12Fence               = ole.NewGUID("{0a753dcf-c4d8-4b91-adf6-be5a60d95a76}")
)

const (
	_D3D12_HEAP_TYPE_DEFAULT                 = 1
	_D3D12_CPU_PAGE_PROPERTY_UNKNOWN         = 0
	_D3D12_MEMORY_POOL_UNKNOWN               = 0
	_D3D12_HEAP_FLAG_SHARED                  = 0x1
	_D3D12_RESOURCE_DIMENSION_TEXTURE2D      = 3
	_D3D12_TEXTURE_LAYOUT_UNKNOWN            = 0
	_D3D12_RESOURCE_FLAG_ALLOW_RENDER_TARGET = 0x1
	_D3D12_COMMAND_LIST_TYPE_DIRECT          = 0
	_D3D12_COMMAND_QUEUE_PRIORITY_NORMAL     = 0
	_D3D12_COMMAND_QUEUE_FLAG_NONE           = 0
	_D3D12_FENCE_FLAG_NONE                   = 0
	_D3D12_RESOURCE_BARRIER_TYPE_TRANSITION  = 0
	_D3D12_RESOURCE_BARRIER_FLAG_NONE        = 0
	_D3D12_RESOURCE_BARRIER_ALL_SUBRESOURCES = 0xffffffff
	_GENERIC_ALL                             = 0x10000000
)

type _D3D12_HEAP_PROPERTIES struct {
	Type                 uint32
	CPUPageProperty      uint32
	MemoryPoolPreference uint32
	CreationNodeMask     uint32
	VisibleNodeMask      uint32
}

type _DXGI_SAMPLE_DESC struct {
	Count   uint32
	Quality uint32
}

type _D3D12_RESOURCE_DESC struct {
	Dimension        uint32
	Alignment        uint64
	Width            uint64
	Height           uint32
	DepthOrArraySize uint16
	MipLevels        uint16
	Format           uint32
	SampleDesc       _DXGI_SAMPLE_DESC
	Layout           uint32
	Flags            uint32
}

type _D3D12_COMMAND_QUEUE_DESC struct {
	Type     uint32
	Priority int32
	Flags    uint32
	NodeMask uint32
}

// _D3D12_RESOURCE_BARRIER is the transition arm of the barrier union,
// padded to the size of the C union.
type _D3D12_RESOURCE_BARRIER struct {
	Type        uint32
	Flags       uint32
	Resource    uintptr
	Subresource uint32
	StateBefore uint32
	StateAfter  uint32
	_           uint32
}

type iD3D12ObjectVtbl struct {
	ole.IUnknownVtbl

	GetPrivateData          uintptr
	SetPrivateData          uintptr
	SetPrivateDataInterface uintptr
	SetName                 uintptr
}

type iD3D12DeviceChildVtbl struct {
	iD3D12ObjectVtbl

	GetDevice uintptr
}

type iD3D12DeviceVtbl struct {
	iD3D12ObjectVtbl

	GetNodeCount                     uintptr
	CreateCommandQueue               uintptr
	CreateCommandAllocator           uintptr
	CreateGraphicsPipelineState      uintptr
	CreateComputePipelineState       uintptr
	CreateCommandList                uintptr
	CheckFeatureSupport              uintptr
	CreateDescriptorHeap             uintptr
	GetDescriptorHandleIncrementSize uintptr
	CreateRootSignature              uintptr
	CreateConstantBufferView         uintptr
	CreateShaderResourceView         uintptr
	CreateUnorderedAccessView        uintptr
	CreateRenderTargetView           uintptr
	CreateDepthStencilView           uintptr
	CreateSampler                    uintptr
	CopyDescriptors                  uintptr
	CopyDescriptorsSimple            uintptr
	GetResourceAllocationInfo        uintptr
	GetCustomHeapProperties          uintptr
	CreateCommittedResource          uintptr
	CreateHeap                       uintptr
	CreatePlacedResource             uintptr
	CreateReservedResource           uintptr
	CreateSharedHandle               uintptr
	OpenSharedHandle                 uintptr
	OpenSharedHandleByName           uintptr
	MakeResident                     uintptr
	Evict                            uintptr
	CreateFence                      uintptr
	GetDeviceRemovedReason           uintptr
}

type iD3D12CommandQueueVtbl struct {
	iD3D12DeviceChildVtbl

	UpdateTileMappings    uintptr
	CopyTileMappings      uintptr
	ExecuteCommandLists   uintptr
	SetMarker             uintptr
	BeginEvent            uintptr
	EndEvent              uintptr
	Signal                uintptr
	Wait                  uintptr
	GetTimestampFrequency uintptr
	GetClockCalibration   uintptr
	GetDesc               uintptr
}

type iD3D12CommandAllocatorVtbl struct {
	iD3D12DeviceChildVtbl

	Reset uintptr
}

type iD3D12GraphicsCommandListVtbl struct {
	iD3D12DeviceChildVtbl

	GetType                uintptr
	Close                  uintptr
	Reset                  uintptr
	ClearState             uintptr
	DrawInstanced          uintptr
	DrawIndexedInstanced   uintptr
	Dispatch               uintptr
	CopyBufferRegion       uintptr
	CopyTextureRegion      uintptr
	CopyResource           uintptr
	CopyTiles              uintptr
	ResolveSubresource     uintptr
	IASetPrimitiveTopology uintptr
	RSSetViewports         uintptr
	RSSetScissorRects      uintptr
	OMSetBlendFactor       uintptr
	OMSetStencilRef        uintptr
	SetPipelineState       uintptr
	ResourceBarrier        uintptr
}

type iD3D12FenceVtbl struct {
	iD3D12DeviceChildVtbl

	GetCompletedValue    uintptr
	SetEventOnCompletion uintptr
	Signal               uintptr
}

type iD3D12Device struct{ vtbl *iD3D12DeviceVtbl }
type iD3D12DeviceChild struct{ vtbl *iD3D12DeviceChildVtbl }
type iD3D12CommandQueue struct{ vtbl *iD3D12CommandQueueVtbl }
type iD3D12CommandAllocator struct{ vtbl *iD3D12CommandAllocatorVtbl }
type iD3D12GraphicsCommandList struct{ vtbl *iD3D12GraphicsCommandListVtbl }
type iD3D12Fence struct{ vtbl *iD3D12FenceVtbl }

// iUnknown is the common prefix of every COM object.
type iUnknown struct{ vtbl *ole.IUnknownVtbl }

func comAddRef(p unsafe.Pointer) {
	if p == nil {
		return
	}
	obj := (*iUnknown)(p)
	syscall.SyscallN(obj.vtbl.AddRef, uintptr(p))
}

func comRelease(p unsafe.Pointer) {
	if p == nil {
		return
	}
	obj := (*iUnknown)(p)
	syscall.SyscallN(obj.vtbl.Release, uintptr(p))
}

// hresult converts a COM return value into an error.
func hresult(op string, r uintptr) error {
	if int32(uint32(r)) >= 0 {
		return nil
	}
	return fmt.Errorf("d3d12: %s: %w", op, ole.NewError(r))
}

// setName attaches a debug name to a D3D12 object. Failures are ignored.
func setName(p unsafe.Pointer, setNameFn uintptr, label string) {
	if label == "" {
		return
	}
	name, err := windows.UTF16PtrFromString(label)
	if err != nil {
		return
	}
	syscall.SyscallN(setNameFn, uintptr(p), uintptr(unsafe.Pointer(name)))
}

// d3d12Device implements Device on top of an ID3D12Device.
type d3d12Device struct {
	raw *iD3D12Device
}

// openDevice asks a D3D12 resource for the device that created it.
// GetDevice returns a new reference, released by Device.Release.
func openDevice(resource uintptr) (Device, error) {
	child := (*iD3D12DeviceChild)(unsafe.Pointer(resource))
	var dev *iD3D12Device
	r, _, _ := syscall.SyscallN(
		child.vtbl.GetDevice,
		resource,
		uintptr(unsafe.Pointer(iidID3D12Device)),
		uintptr(unsafe.Pointer(&dev)),
	)
	if err := hresult("DeviceChild.GetDevice", r); err != nil {
		return nil, err
	}
	if dev == nil {
		return nil, fmt.Errorf("%w: GetDevice returned nil", ErrUnavailable)
	}
	return &d3d12Device{raw: dev}, nil
}

func (d *d3d12Device) Release() {
	if d.raw == nil {
		return
	}
	comRelease(unsafe.Pointer(d.raw))
	d.raw = nil
}

func (d *d3d12Device) CloseHandle(h Handle) error {
	return CloseHandle(h)
}

func (d *d3d12Device) BorrowTexture(tex hal.Texture) (Resource, error) {
	if d.raw == nil {
		return nil, ErrReleased
	}
	raw, err := TextureResource(tex)
	if err != nil {
		return nil, err
	}
	p := unsafe.Pointer(raw)
	comAddRef(p)
	return &d3d12Resource{ptr: p}, nil
}

func (d *d3d12Device) CreateSharedTexture(desc TextureDesc) (Resource, error) {
	if d.raw == nil {
		return nil, ErrReleased
	}
	heap := _D3D12_HEAP_PROPERTIES{
		Type:                 _D3D12_HEAP_TYPE_DEFAULT,
		CPUPageProperty:      _D3D12_CPU_PAGE_PROPERTY_UNKNOWN,
		MemoryPoolPreference: _D3D12_MEMORY_POOL_UNKNOWN,
		CreationNodeMask:     1,
		VisibleNodeMask:      1,
	}
	rd := _D3D12_RESOURCE_DESC{
		Dimension:        _D3D12_RESOURCE_DIMENSION_TEXTURE2D,
		Width:            uint64(desc.Width),
		Height:           desc.Height,
		DepthOrArraySize: 1,
		MipLevels:        1,
		Format:           uint32(desc.Format),
		SampleDesc:       _DXGI_SAMPLE_DESC{Count: 1},
		Layout:           _D3D12_TEXTURE_LAYOUT_UNKNOWN,
		Flags:            _D3D12_RESOURCE_FLAG_ALLOW_RENDER_TARGET,
	}
	var res unsafe.Pointer
	r, _, _ := syscall.SyscallN(
		d.raw.vtbl.CreateCommittedResource,
		uintptr(unsafe.Pointer(d.raw)),
		uintptr(unsafe.Pointer(&heap)),
		_D3D12_HEAP_FLAG_SHARED,
		uintptr(unsafe.Pointer(&rd)),
		uintptr(StateCommon),
		0, // pOptimizedClearValue
		uintptr(unsafe.Pointer(iidID3D12Resource)),
		uintptr(unsafe.Pointer(&res)),
	)
	if err := hresult("CreateCommittedResource", r); err != nil {
		return nil, err
	}
	setName(res, (*iUnknownObject)(res).vtbl.SetName, desc.Label)
	return &d3d12Resource{ptr: res}, nil
}

func (d *d3d12Device) CreateSharedHandle(res Resource) (Handle, error) {
	if d.raw == nil {
		return 0, ErrReleased
	}
	var h windows.Handle
	r, _, _ := syscall.SyscallN(
		d.raw.vtbl.CreateSharedHandle,
		uintptr(unsafe.Pointer(d.raw)),
		res.Raw(),
		0, // pAttributes
		_GENERIC_ALL,
		0, // Name
		uintptr(unsafe.Pointer(&h)),
	)
	if err := hresult("CreateSharedHandle", r); err != nil {
		return 0, err
	}
	return Handle(h), nil
}

func (d *d3d12Device) CreateCopyQueue(label string) (CopyQueue, error) {
	if d.raw == nil {
		return nil, ErrReleased
	}
	q := &d3d12CopyQueue{}

	desc := _D3D12_COMMAND_QUEUE_DESC{
		Type:     _D3D12_COMMAND_LIST_TYPE_DIRECT,
		Priority: _D3D12_COMMAND_QUEUE_PRIORITY_NORMAL,
		Flags:    _D3D12_COMMAND_QUEUE_FLAG_NONE,
	}
	r, _, _ := syscall.SyscallN(
		d.raw.vtbl.CreateCommandQueue,
		uintptr(unsafe.Pointer(d.raw)),
		uintptr(unsafe.Pointer(&desc)),
		uintptr(unsafe.Pointer(iidID3D12CommandQueue)),
		uintptr(unsafe.Pointer(&q.queue)),
	)
	if err := hresult("CreateCommandQueue", r); err != nil {
		return nil, err
	}
	setName(unsafe.Pointer(q.queue), q.queue.vtbl.SetName, label+"_queue")

	r, _, _ = syscall.SyscallN(
		d.raw.vtbl.CreateCommandAllocator,
		uintptr(unsafe.Pointer(d.raw)),
		_D3D12_COMMAND_LIST_TYPE_DIRECT,
		uintptr(unsafe.Pointer(iidID3D12CommandAllocator)),
		uintptr(unsafe.Pointer(&q.alloc)),
	)
	if err := hresult("CreateCommandAllocator", r); err != nil {
		q.Release()
		return nil, err
	}

	r, _, _ = syscall.SyscallN(
		d.raw.vtbl.CreateCommandList,
		uintptr(unsafe.Pointer(d.raw)),
		0, // nodeMask
		_D3D12_COMMAND_LIST_TYPE_DIRECT,
		uintptr(unsafe.Pointer(q.alloc)),
		0, // pInitialState
		uintptr(unsafe.Pointer(iidID3D12GraphicsCommandList)),
		uintptr(unsafe.Pointer(&q.list)),
	)
	if err := hresult("CreateCommandList", r); err != nil {
		q.Release()
		return nil, err
	}
	setName(unsafe.Pointer(q.list), q.list.vtbl.SetName, label+"_list")

	// Command lists are created open; close it so Begin can reset it.
	r, _, _ = syscall.SyscallN(q.list.vtbl.Close, uintptr(unsafe.Pointer(q.list)))
	if err := hresult("Close", r); err != nil {
		q.Release()
		return nil, err
	}

	r, _, _ = syscall.SyscallN(
		d.raw.vtbl.CreateFence,
		uintptr(unsafe.Pointer(d.raw)),
		0, // InitialValue
		_D3D12_FENCE_FLAG_NONE,
		uintptr(unsafe.Pointer(iidID3D12Fence)),
		uintptr(unsafe.Pointer(&q.fence)),
	)
	if err := hresult("CreateFence", r); err != nil {
		q.Release()
		return nil, err
	}

	event, err := windows.CreateEvent(nil, 0, 0, nil)
	if err != nil {
		q.Release()
		return nil, fmt.Errorf("d3d12: CreateEvent: %w", err)
	}
	q.event = event
	return q, nil
}

// iUnknownObject is the ID3D12Object prefix shared by every D3D12 object.
type iUnknownObject struct{ vtbl *iD3D12ObjectVtbl }

// d3d12Resource implements Resource for an ID3D12Resource reference.
type d3d12Resource struct {
	ptr unsafe.Pointer
}

func (r *d3d12Resource) Raw() uintptr { return uintptr(r.ptr) }

func (r *d3d12Resource) Release() {
	if r.ptr == nil {
		return
	}
	comRelease(r.ptr)
	r.ptr = nil
}

// d3d12CopyQueue implements CopyQueue with a direct queue. A direct list is
// required because the render target enters and leaves the RENDER_TARGET
// state, which copy-type lists cannot transition.
type d3d12CopyQueue struct {
	queue *iD3D12CommandQueue
	alloc *iD3D12CommandAllocator
	list  *iD3D12GraphicsCommandList
	fence *iD3D12Fence
	event windows.Handle
	value uint64
}

func (q *d3d12CopyQueue) Begin() error {
	if q.list == nil {
		return ErrReleased
	}
	r, _, _ := syscall.SyscallN(q.alloc.vtbl.Reset, uintptr(unsafe.Pointer(q.alloc)))
	if err := hresult("CommandAllocator.Reset", r); err != nil {
		return err
	}
	r, _, _ = syscall.SyscallN(
		q.list.vtbl.Reset,
		uintptr(unsafe.Pointer(q.list)),
		uintptr(unsafe.Pointer(q.alloc)),
		0, // pInitialState
	)
	return hresult("GraphicsCommandList.Reset", r)
}

func (q *d3d12CopyQueue) Barrier(transitions ...Transition) {
	if len(transitions) == 0 || q.list == nil {
		return
	}
	barriers := make([]_D3D12_RESOURCE_BARRIER, len(transitions))
	for i, t := range transitions {
		barriers[i] = _D3D12_RESOURCE_BARRIER{
			Type:        _D3D12_RESOURCE_BARRIER_TYPE_TRANSITION,
			Flags:       _D3D12_RESOURCE_BARRIER_FLAG_NONE,
			Resource:    t.Resource.Raw(),
			Subresource: _D3D12_RESOURCE_BARRIER_ALL_SUBRESOURCES,
			StateBefore: uint32(t.Before),
			StateAfter:  uint32(t.After),
		}
	}
	syscall.SyscallN(
		q.list.vtbl.ResourceBarrier,
		uintptr(unsafe.Pointer(q.list)),
		uintptr(len(barriers)),
		uintptr(unsafe.Pointer(&barriers[0])),
	)
}

func (q *d3d12CopyQueue) CopyResource(dst, src Resource) {
	if q.list == nil {
		return
	}
	syscall.SyscallN(
		q.list.vtbl.CopyResource,
		uintptr(unsafe.Pointer(q.list)),
		dst.Raw(),
		src.Raw(),
	)
}

func (q *d3d12CopyQueue) Submit() (uint64, error) {
	if q.list == nil {
		return 0, ErrReleased
	}
	r, _, _ := syscall.SyscallN(q.list.vtbl.Close, uintptr(unsafe.Pointer(q.list)))
	if err := hresult("GraphicsCommandList.Close", r); err != nil {
		return 0, err
	}

	lists := [1]uintptr{uintptr(unsafe.Pointer(q.list))}
	syscall.SyscallN(
		q.queue.vtbl.ExecuteCommandLists,
		uintptr(unsafe.Pointer(q.queue)),
		1,
		uintptr(unsafe.Pointer(&lists[0])),
	)

	next := q.value + 1
	r, _, _ = syscall.SyscallN(
		q.queue.vtbl.Signal,
		uintptr(unsafe.Pointer(q.queue)),
		uintptr(unsafe.Pointer(q.fence)),
		uintptr(next),
	)
	if err := hresult("CommandQueue.Signal", r); err != nil {
		return 0, err
	}
	q.value = next
	return next, nil
}

func (q *d3d12CopyQueue) Wait(value uint64, timeout time.Duration) error {
	if q.fence == nil {
		return ErrReleased
	}
	completed, _, _ := syscall.SyscallN(q.fence.vtbl.GetCompletedValue, uintptr(unsafe.Pointer(q.fence)))
	if uint64(completed) >= value {
		return nil
	}
	r, _, _ := syscall.SyscallN(
		q.fence.vtbl.SetEventOnCompletion,
		uintptr(unsafe.Pointer(q.fence)),
		uintptr(value),
		uintptr(q.event),
	)
	if err := hresult("Fence.SetEventOnCompletion", r); err != nil {
		return err
	}

	ev, err := windows.WaitForSingleObject(q.event, waitMillis(timeout))
	if err != nil {
		return fmt.Errorf("d3d12: WaitForSingleObject: %w", err)
	}
	if ev != windows.WAIT_OBJECT_0 {
		return fmt.Errorf("%w: value %d after %v", ErrTimeout, value, timeout)
	}
	return nil
}

func (q *d3d12CopyQueue) Release() {
	if q.event != 0 {
		if err := windows.CloseHandle(q.event); err != nil {
			logging.Logger().Warn("native: close fence event", "err", err)
		}
		q.event = 0
	}
	if q.fence != nil {
		comRelease(unsafe.Pointer(q.fence))
		q.fence = nil
	}
	if q.list != nil {
		comRelease(unsafe.Pointer(q.list))
		q.list = nil
	}
	if q.alloc != nil {
		comRelease(unsafe.Pointer(q.alloc))
		q.alloc = nil
	}
	if q.queue != nil {
		comRelease(unsafe.Pointer(q.queue))
		q.queue = nil
	}
}

// CloseHandle closes an exported handle. A zero handle is ignored.
func CloseHandle(h Handle) error {
	if h == 0 {
		return nil
	}
	return windows.CloseHandle(windows.Handle(h))
}
