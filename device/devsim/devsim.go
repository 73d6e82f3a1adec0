// Package devsim is a pure-Go accelerator simulator implementing both
// device.Driver and device.Memory. Kernel binaries are registered as maps
// from entry-point name to Go functions; device memory is host memory
// behind opaque pointers. Everything executes synchronously, which is a
// valid refinement of the single-command-stream ordering contract.
//
// The simulator counts allocations, frees, module loads and launches, so
// tests can assert lifetime discipline: every payload freed exactly once,
// every kernel loaded once per hash.
package devsim

import (
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/pkg/errors"

	"github.com/nushio3/accelerate/device"
)

// KernelFunc is one simulated kernel entry point. It decodes its arguments
// from the launch context in the same order and alignment the engine
// marshalled them.
type KernelFunc func(ctx *LaunchContext) error

// Device simulates one accelerator: registered binaries, live allocations,
// and instrumentation counters.
type Device struct {
	mu       sync.Mutex
	binaries map[string]map[string]KernelFunc
	buffers  map[device.Ptr]*buffer
	next     device.Ptr

	AllocCount  atomic.Int64
	FreeCount   atomic.Int64
	LoadCount   atomic.Int64
	LaunchCount atomic.Int64
}

var (
	_ device.Driver = (*Device)(nil)
	_ device.Memory = (*Device)(nil)
)

// New returns an empty simulated device.
func New() *Device {
	return &Device{
		binaries: make(map[string]map[string]KernelFunc),
		buffers:  make(map[device.Ptr]*buffer),
		next:     0x1000,
	}
}

// RegisterBinary installs a simulated kernel binary under the given path,
// playing the role of the external compiler's output file.
func (d *Device) RegisterBinary(path string, kernels map[string]KernelFunc) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.binaries[path] = kernels
}

// LoadModule implements device.Driver.
func (d *Device) LoadModule(path string) (device.Module, error) {
	d.mu.Lock()
	kernels, ok := d.binaries[path]
	d.mu.Unlock()
	if !ok {
		return nil, errors.Errorf("no binary registered at %q", path)
	}
	d.LoadCount.Add(1)
	return &Module{
		dev:     d,
		path:    path,
		kernels: kernels,
		globals: make(map[string]*buffer),
		texs:    make(map[string]*TexRef),
	}, nil
}

// buffer is one simulated allocation: a host slice of the element's Go
// type behind an opaque address.
type buffer struct {
	dtype dtypes.DType
	n     int
	ptr   device.Ptr
	data  reflect.Value

	// internal marks module-global storage, excluded from the counters
	// and the live set tests inspect.
	internal bool
	freed    bool
}

func (b *buffer) DType() dtypes.DType { return b.dtype }
func (b *buffer) Len() int            { return b.n }

func (d *Device) newBuffer(dtype dtypes.DType, n int, internal bool) *buffer {
	b := &buffer{
		dtype:    dtype,
		n:        n,
		data:     reflect.MakeSlice(reflect.SliceOf(dtype.GoType()), n, n),
		internal: internal,
	}
	d.mu.Lock()
	b.ptr = d.next
	d.next += device.Ptr(n*int(dtype.Size()) + 0xff)
	d.buffers[b.ptr] = b
	d.mu.Unlock()
	return b
}

// Alloc implements device.Memory.
func (d *Device) Alloc(dtype dtypes.DType, n int) (device.Buffer, error) {
	if n <= 0 {
		return nil, errors.Errorf("allocating %d elements of %s", n, dtype)
	}
	d.AllocCount.Add(1)
	return d.newBuffer(dtype, n, false), nil
}

// Free implements device.Memory. Freeing twice is an error: the simulator
// is strict so lifetime bugs surface in tests.
func (d *Device) Free(buf device.Buffer) error {
	b, ok := buf.(*buffer)
	if !ok {
		return errors.Errorf("freeing a foreign buffer of type %T", buf)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if b.freed {
		return errors.Errorf("double free of buffer at %#x", uint64(b.ptr))
	}
	b.freed = true
	d.FreeCount.Add(1)
	return nil
}

// LiveBuffers counts unfreed engine-visible allocations.
func (d *Device) LiveBuffers() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	live := 0
	for _, b := range d.buffers {
		if !b.internal && !b.freed {
			live++
		}
	}
	return live
}

// resolve maps an address back to its live buffer.
func (d *Device) resolve(ptr device.Ptr) *buffer {
	d.mu.Lock()
	b, ok := d.buffers[ptr]
	d.mu.Unlock()
	if !ok {
		exceptions.Panicf("device access through unknown address %#x", uint64(ptr))
	}
	if b.freed {
		exceptions.Panicf("device access through freed buffer at %#x", uint64(ptr))
	}
	return b
}

func (d *Device) checkLive(b *buffer) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if b.freed {
		return errors.Errorf("buffer at %#x already freed", uint64(b.ptr))
	}
	return nil
}

// ToDevice implements device.Memory.
func (d *Device) ToDevice(dst device.Buffer, flat any) error {
	b := dst.(*buffer)
	if err := d.checkLive(b); err != nil {
		return err
	}
	src := reflect.ValueOf(flat)
	if src.Kind() != reflect.Slice || src.Type().Elem() != b.dtype.GoType() {
		return errors.Errorf("uploading %T into a %s buffer", flat, b.dtype)
	}
	if src.Len() != b.n {
		return errors.Errorf("uploading %d elements into a buffer of %d", src.Len(), b.n)
	}
	reflect.Copy(b.data, src)
	return nil
}

// ToDeviceAsync implements device.Memory. The simulator is synchronous, so
// the async variant degenerates to the sync one while keeping the ordering
// contract trivially true.
func (d *Device) ToDeviceAsync(dst device.Buffer, flat any) error {
	return d.ToDevice(dst, flat)
}

// FromDevice implements device.Memory.
func (d *Device) FromDevice(flat any, src device.Buffer) error {
	b := src.(*buffer)
	if err := d.checkLive(b); err != nil {
		return err
	}
	dst := reflect.ValueOf(flat)
	if dst.Kind() != reflect.Slice || dst.Type().Elem() != b.dtype.GoType() {
		return errors.Errorf("downloading a %s buffer into %T", b.dtype, flat)
	}
	if dst.Len() != b.n {
		return errors.Errorf("downloading %d elements into a slice of %d", b.n, dst.Len())
	}
	reflect.Copy(dst, b.data)
	return nil
}

// CopyBuffer implements device.Memory.
func (d *Device) CopyBuffer(dst, src device.Buffer) error {
	db, sb := dst.(*buffer), src.(*buffer)
	if err := d.checkLive(db); err != nil {
		return err
	}
	if err := d.checkLive(sb); err != nil {
		return err
	}
	if db.dtype != sb.dtype {
		return errors.Errorf("device copy between %s and %s buffers", sb.dtype, db.dtype)
	}
	reflect.Copy(db.data, sb.data)
	return nil
}

// ReadScalar implements device.Memory.
func (d *Device) ReadScalar(src device.Buffer, offset int) (any, error) {
	b := src.(*buffer)
	if err := d.checkLive(b); err != nil {
		return nil, err
	}
	if offset < 0 || offset >= b.n {
		return nil, errors.Errorf("scalar read at offset %d of a buffer of %d", offset, b.n)
	}
	return b.data.Index(offset).Interface(), nil
}

// WriteGlobal implements device.Memory: word copies into module globals.
func (d *Device) WriteGlobal(ptr device.Ptr, data []int32) error {
	b := d.resolve(ptr)
	if b.dtype != dtypes.Int32 {
		return errors.Errorf("global write into a %s buffer", b.dtype)
	}
	if len(data) > b.n {
		return errors.Errorf("global write of %d words into %d", len(data), b.n)
	}
	reflect.Copy(b.data, reflect.ValueOf(data))
	return nil
}

// Pointers implements device.Memory: one address per texture channel. The
// simulator stores every element whole, so all channels of a buffer share
// its one address.
func (d *Device) Pointers(buf device.Buffer) []device.Ptr {
	b := buf.(*buffer)
	ptrs := make([]device.Ptr, d.Channels(b.dtype))
	for i := range ptrs {
		ptrs[i] = b.ptr
	}
	return ptrs
}

// Channels implements device.Memory: 64-bit element types occupy two
// 32-bit texture channels, everything else one.
func (d *Device) Channels(dtype dtypes.DType) int {
	if dtype.Size() == 8 {
		return 2
	}
	return 1
}

// flat returns the typed storage behind an address.
func flat[T dtypes.Supported](d *Device, ptr device.Ptr) []T {
	b := d.resolve(ptr)
	want := dtypes.FromGenericsType[T]()
	if b.dtype != want {
		exceptions.Panicf("kernel reads %s data from a %s buffer", want, b.dtype)
	}
	return b.data.Interface().([]T)
}
