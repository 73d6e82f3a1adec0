// Package device defines the interfaces the execution engine consumes from
// the accelerator driver and from the device memory allocator, plus the
// Array value type whose payload lives in device memory.
//
// The engine never talks to the hardware directly: a Driver loads compiled
// kernel binaries and launches functions, a Memory allocates and copies
// device storage. The pure-Go simulator in device/devsim implements both
// and is what the tests run against.
package device

// Ptr is a device address. The zero value is the null device pointer.
type Ptr uint64

// FuncAttributes are the static resource requirements of a compiled kernel
// function, used to derive launch geometry.
type FuncAttributes struct {
	// MaxThreadsPerBlock the function can be launched with, given its
	// register usage.
	MaxThreadsPerBlock int

	// NumRegs used per thread.
	NumRegs int

	// SharedSizeBytes statically allocated by the function.
	SharedSizeBytes int
}

// Driver loads compiled kernel binaries and resolves their symbols.
type Driver interface {
	// LoadModule loads a compiled binary from the given file path.
	LoadModule(path string) (Module, error)
}

// Module is one loaded kernel binary. Its globals and texture references
// are module-level state, re-bound before every launch that uses them.
type Module interface {
	// Function resolves a kernel entry point by name.
	Function(name string) (Function, error)

	// Global resolves a module global variable, returning its device
	// address and size in bytes.
	Global(name string) (ptr Ptr, bytes int, err error)

	// TexRef resolves a texture reference symbol by name.
	TexRef(name string) (TexRef, error)
}

// Function is one kernel entry point. Parameter list, shared-memory size
// and block shape are set before each launch; Launch issues the grid on the
// device's single command stream.
type Function interface {
	// Attributes returns the function's static resource footprint.
	Attributes() FuncAttributes

	// SetBlockShape sets the threads-per-block geometry for the next launch.
	SetBlockShape(x, y, z int)

	// SetSharedSize sets the dynamic shared memory in bytes for the next launch.
	SetSharedSize(bytes int)

	// SetParams sets the marshalled argument bytes for the next launch.
	SetParams(raw []byte)

	// Launch issues the function over a gridWidth x gridHeight grid.
	// The launch may be asynchronous; ordering against other work on the
	// same stream is guaranteed by the device.
	Launch(gridWidth, gridHeight int) error
}

// TexRef is a texture reference symbol inside a module, bound to a device
// address for the duration of one dispatch.
type TexRef interface {
	// BindAddress binds the texture to bytes of device memory at ptr.
	BindAddress(ptr Ptr, bytes int) error

	// Unbind releases the binding. The underlying device memory is untouched.
	Unbind()
}
