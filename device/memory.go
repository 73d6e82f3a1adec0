package device

import (
	"github.com/gomlx/gopjrt/dtypes"
)

// Buffer is one opaque device allocation holding Len elements of DType.
// A 64-bit element type may be stored split over two 32-bit texture
// channels; Buffer hides that, Memory.Pointers exposes it.
type Buffer interface {
	DType() dtypes.DType
	Len() int
}

// Memory is the device memory collaborator: allocation, release, and the
// copy primitives the engine needs. All copies happen on the device's
// single command stream, so ordering against launches is implicit.
type Memory interface {
	// Alloc reserves device storage for n elements of dtype.
	Alloc(dtype dtypes.DType, n int) (Buffer, error)

	// Free releases device storage. A buffer must be freed at most once.
	Free(Buffer) error

	// ToDevice synchronously copies the host flat slice into dst.
	// flat must be a slice of dst's element type with Len elements.
	ToDevice(dst Buffer, flat any) error

	// FromDevice synchronously copies dst's elements into the host flat slice.
	FromDevice(flat any, src Buffer) error

	// ToDeviceAsync is the asynchronous bulk variant of ToDevice. Completion
	// is ordered before any later launch on the stream.
	ToDeviceAsync(dst Buffer, flat any) error

	// CopyBuffer copies min(dst.Len, src.Len) elements device-to-device.
	CopyBuffer(dst, src Buffer) error

	// ReadScalar synchronously reads the single element at the flat offset,
	// returning it as the Go value corresponding to the buffer's dtype.
	ReadScalar(src Buffer, offset int) (any, error)

	// WriteGlobal copies host words into a module global at ptr.
	WriteGlobal(ptr Ptr, data []int32) error

	// Pointers marshals a buffer into its device pointer representation:
	// one address per texture channel of the element type.
	Pointers(Buffer) []Ptr

	// Channels reports how many texture channels one element of dtype
	// occupies. The lifter consumes this many tex<M> slots per bound array.
	Channels(dtype dtypes.DType) int
}
