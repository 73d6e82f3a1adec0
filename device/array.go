package device

import (
	"fmt"
	"sync/atomic"

	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"

	"github.com/nushio3/accelerate/types/shapes"
)

// Array is the runtime array value: a host-resident shape plus a handle to
// the device-resident payload.
//
// The payload is reference counted. The engine retains an array when it
// enters an environment scope and releases it after each consuming use;
// the storage is freed exactly once, when the count reaches zero on every
// evaluation path. Arrays introduced by the caller are pinned and are never
// freed by the engine.
type Array struct {
	Shape shapes.Shape
	Data  *Payload
}

// Payload is the opaque, refcounted handle to one device allocation.
type Payload struct {
	Buf Buffer

	refs   atomic.Int32
	pinned bool
	freed  atomic.Bool
}

// NewArray allocates device storage for the given shape and returns an
// array owning it, with a reference count of one.
func NewArray(mem Memory, shape shapes.Shape) (Array, error) {
	buf, err := mem.Alloc(shape.DType, shape.Size())
	if err != nil {
		return Array{}, errors.WithMessagef(err, "allocating array %s", shape)
	}
	p := &Payload{Buf: buf}
	p.refs.Store(1)
	return Array{Shape: shape, Data: p}, nil
}

// Pin wraps caller-owned device storage as an array value. Releasing a
// pinned array never frees the storage.
func Pin(shape shapes.Shape, buf Buffer) Array {
	p := &Payload{Buf: buf, pinned: true}
	p.refs.Store(1)
	return Array{Shape: shape, Data: p}
}

// Valid reports whether the array has a live payload.
func (a Array) Valid() bool {
	return a.Shape.Ok() && a.Data != nil && !a.Data.freed.Load()
}

// WithShape returns the same payload viewed under a different shape, the
// reference count unchanged. Used by reshape, which never copies.
func (a Array) WithShape(shape shapes.Shape) Array {
	return Array{Shape: shape, Data: a.Data}
}

// Retain adds one reference and returns the array for chaining.
func (a Array) Retain() Array {
	if a.Data == nil {
		exceptions.Panicf("Array.Retain on a value with no payload (shape=%s)", a.Shape)
	}
	a.Data.refs.Add(1)
	return a
}

// Release drops one reference; at zero the device storage is freed, exactly
// once. Pinned payloads are never freed. Releasing more times than retained
// is a bug and panics.
func (a Array) Release(mem Memory) error {
	p := a.Data
	if p == nil {
		exceptions.Panicf("Array.Release on a value with no payload (shape=%s)", a.Shape)
	}
	n := p.refs.Add(-1)
	if n < 0 {
		exceptions.Panicf("Array.Release: payload %p released more times than retained", p)
	}
	if n > 0 || p.pinned {
		return nil
	}
	if !p.freed.CompareAndSwap(false, true) {
		return errors.Errorf("Array.Release: payload %p already freed", p)
	}
	return mem.Free(p.Buf)
}

// ForceFree frees the payload storage now if it is still live, regardless
// of the reference count. Pinned payloads are untouched. Used by the
// error-unwind path to guarantee nothing allocated by a failed evaluation
// leaks.
func (p *Payload) ForceFree(mem Memory) error {
	if p.pinned {
		return nil
	}
	if !p.freed.CompareAndSwap(false, true) {
		return nil
	}
	return mem.Free(p.Buf)
}

// String implements fmt.Stringer.
func (a Array) String() string {
	return fmt.Sprintf("Array[%s]", a.Shape)
}
