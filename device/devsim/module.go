package devsim

import (
	"encoding/binary"
	"sync"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/pkg/errors"

	"github.com/nushio3/accelerate/device"
)

// globalWords is the capacity of each on-demand shape global, in 32-bit
// words. Generous enough for any rank the engine produces.
const globalWords = 32

// Module is one loaded simulated binary. Globals and texture references
// materialize on first resolution, like symbols in a real module image.
type Module struct {
	dev     *Device
	path    string
	kernels map[string]KernelFunc

	mu      sync.Mutex
	globals map[string]*buffer
	texs    map[string]*TexRef
}

var _ device.Module = (*Module)(nil)

// Function implements device.Module.
func (m *Module) Function(name string) (device.Function, error) {
	impl, ok := m.kernels[name]
	if !ok {
		return nil, errors.Errorf("binary %q has no entry point %q", m.path, name)
	}
	return &Function{mod: m, name: name, impl: impl}, nil
}

// Global implements device.Module.
func (m *Module) Global(name string) (device.Ptr, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.globals[name]
	if !ok {
		g = m.dev.newBuffer(dtypes.Int32, globalWords, true)
		m.globals[name] = g
	}
	return g.ptr, globalWords * 4, nil
}

// TexRef implements device.Module.
func (m *Module) TexRef(name string) (device.TexRef, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.texs[name]
	if !ok {
		t = &TexRef{}
		m.texs[name] = t
	}
	return t, nil
}

// GlobalWords exposes a global's current contents to tests.
func (m *Module) GlobalWords(name string) []int32 {
	m.mu.Lock()
	g, ok := m.globals[name]
	m.mu.Unlock()
	if !ok {
		return nil
	}
	return g.data.Interface().([]int32)
}

// Tex exposes a texture reference to tests; nil when never resolved.
func (m *Module) Tex(name string) *TexRef {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.texs[name]
}

// TexRef is a simulated texture reference symbol.
type TexRef struct {
	mu    sync.Mutex
	ptr   device.Ptr
	bytes int
	bound bool
}

var _ device.TexRef = (*TexRef)(nil)

// BindAddress implements device.TexRef. Rebinding replaces the previous
// binding.
func (t *TexRef) BindAddress(ptr device.Ptr, bytes int) error {
	if ptr == 0 {
		return errors.Errorf("binding a texture to the null address")
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.ptr, t.bytes, t.bound = ptr, bytes, true
	return nil
}

// Unbind implements device.TexRef.
func (t *TexRef) Unbind() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.ptr, t.bytes, t.bound = 0, 0, false
}

// Bound reports the current binding, for tests.
func (t *TexRef) Bound() (device.Ptr, int, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.ptr, t.bytes, t.bound
}

// Function is one simulated kernel entry point with its pre-launch state.
type Function struct {
	mod  *Module
	name string
	impl KernelFunc

	blockX, blockY, blockZ int
	shared                 int
	params                 []byte
}

var _ device.Function = (*Function)(nil)

// Attributes implements device.Function. The simulator reports a fixed,
// plausible resource footprint.
func (f *Function) Attributes() device.FuncAttributes {
	return device.FuncAttributes{MaxThreadsPerBlock: 512, NumRegs: 16, SharedSizeBytes: 0}
}

func (f *Function) SetBlockShape(x, y, z int) { f.blockX, f.blockY, f.blockZ = x, y, z }
func (f *Function) SetSharedSize(bytes int)   { f.shared = bytes }
func (f *Function) SetParams(raw []byte)      { f.params = raw }

// Launch implements device.Function: it runs the Go kernel synchronously
// over the whole grid.
func (f *Function) Launch(gridWidth, gridHeight int) error {
	if f.blockX <= 0 {
		return errors.Errorf("launching %q with no block shape set", f.name)
	}
	f.mod.dev.LaunchCount.Add(1)
	ctx := &LaunchContext{
		Dev:    f.mod.dev,
		Mod:    f.mod,
		Grid:   gridWidth * gridHeight,
		Block:  f.blockX * f.blockY * f.blockZ,
		Shared: f.shared,
		raw:    f.params,
	}
	if err := f.impl(ctx); err != nil {
		return errors.WithMessagef(err, "kernel %q", f.name)
	}
	return nil
}

// LaunchContext is what a simulated kernel sees: launch geometry plus a
// cursor over the marshalled parameter image, decoded with the same
// alignment rules the engine used to build it.
type LaunchContext struct {
	Dev    *Device
	Mod    *Module
	Grid   int
	Block  int
	Shared int

	raw []byte
	off int
}

func (c *LaunchContext) align(n int) {
	for c.off%n != 0 {
		c.off++
	}
}

// Word reads one 32-bit parameter word.
func (c *LaunchContext) Word() int32 {
	c.align(4)
	v := int32(binary.LittleEndian.Uint32(c.raw[c.off:]))
	c.off += 4
	return v
}

// Words reads n consecutive 32-bit parameter words.
func (c *LaunchContext) Words(n int) []int32 {
	out := make([]int32, n)
	for i := range out {
		out[i] = c.Word()
	}
	return out
}

// Ptr reads one 64-bit device address.
func (c *LaunchContext) Ptr() device.Ptr {
	c.align(8)
	v := binary.LittleEndian.Uint64(c.raw[c.off:])
	c.off += 8
	return device.Ptr(v)
}

// Extents reads a linearized shape of the given rank: reversed extents, a
// zero-dimensional shape arriving as the single word 1.
func (c *LaunchContext) Extents(rank int) []int32 {
	return c.Words(max(rank, 1))
}

// ArrayArg reads one array argument: as many channel addresses as T's
// element representation has, all resolving to the same storage in the
// simulator.
func ArrayArg[T dtypes.Supported](c *LaunchContext) []T {
	chans := c.Dev.Channels(dtypes.FromGenericsType[T]())
	ptr := c.Ptr()
	for i := 1; i < chans; i++ {
		c.Ptr()
	}
	return flat[T](c.Dev, ptr)
}
