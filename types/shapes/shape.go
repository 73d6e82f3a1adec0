// Package shapes defines Shape, the host-resident descriptor of an
// accelerator-resident array.
//
// A Shape is an ordered sequence of extents plus the DType of the unit
// element. The data itself always lives on the device; only the shape is
// manipulated on the host. Linearization is row-major: the last axis varies
// fastest.
//
// DType comes from github.com/gomlx/gopjrt/dtypes. Go float16 support uses
// the github.com/x448/float16 implementation.
package shapes

import (
	"fmt"
	"slices"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
)

// Shape of an array value: the DType of its elements plus one extent per
// axis. A rank-0 shape is a scalar holding exactly one element.
//
// Use Make to create a valid shape.
type Shape struct {
	DType      dtypes.DType
	Dimensions []int
}

// Make returns a Shape with the given element type and extents.
func Make(dtype dtypes.DType, dimensions ...int) Shape {
	s := Shape{DType: dtype, Dimensions: slices.Clone(dimensions)}
	for _, dim := range dimensions {
		if dim <= 0 {
			exceptions.Panicf("shapes.Make(%s): cannot create a shape with an axis with dimension <= 0", s)
		}
	}
	return s
}

// Scalar returns a rank-0 shape of the given element type.
func Scalar(dtype dtypes.DType) Shape {
	return Shape{DType: dtype}
}

// Invalid returns an invalid shape: Invalid().Ok() == false.
func Invalid() Shape { return Shape{DType: dtypes.InvalidDType} }

// Ok returns whether this is a valid shape. The zero value Shape{} is invalid.
func (s Shape) Ok() bool { return s.DType != dtypes.InvalidDType }

// Rank of the shape, that is, the number of axes.
func (s Shape) Rank() int { return len(s.Dimensions) }

// IsScalar returns whether the shape has rank 0.
func (s Shape) IsScalar() bool { return s.Ok() && s.Rank() == 0 }

// Dim returns the extent of the given axis. Negative axis counts from the
// end, like slice indexing. Panics on an out-of-bounds axis.
func (s Shape) Dim(axis int) int {
	adjustedAxis := axis
	if adjustedAxis < 0 {
		adjustedAxis += s.Rank()
	}
	if adjustedAxis < 0 || adjustedAxis >= s.Rank() {
		exceptions.Panicf("Shape.Dim(%d) out-of-bounds for rank %d (shape=%s)", axis, s.Rank(), s)
	}
	return s.Dimensions[adjustedAxis]
}

// String implements fmt.Stringer, pretty-prints the shape.
func (s Shape) String() string {
	if s.Rank() == 0 {
		return fmt.Sprintf("(%s)", s.DType)
	}
	return fmt.Sprintf("(%s)%v", s.DType, s.Dimensions)
}

// Size returns the number of elements held by this shape: the product of
// all extents. A scalar has size 1.
func (s Shape) Size() (size int) {
	size = 1
	for _, d := range s.Dimensions {
		size *= d
	}
	return
}

// Memory returns the device storage needed by one channel of the array,
// in bytes.
func (s Shape) Memory() uintptr {
	return s.DType.Memory() * uintptr(s.Size())
}

// Equal compares two shapes for equality: dtype and extents.
func (s Shape) Equal(s2 Shape) bool {
	if s.DType != s2.DType {
		return false
	}
	return slices.Equal(s.Dimensions, s2.Dimensions)
}

// Clone returns a deep copy of the shape.
func (s Shape) Clone() (s2 Shape) {
	s2.DType = s.DType
	s2.Dimensions = slices.Clone(s.Dimensions)
	return
}

// Intersect returns the per-axis minimum of two shapes of the same rank.
// This is the result shape of a zip over two arrays: each axis is restricted
// to the extent both operands can serve.
//
// Panics if the ranks differ -- the tree builder must not produce that.
func (s Shape) Intersect(s2 Shape) Shape {
	if s.Rank() != s2.Rank() {
		exceptions.Panicf("Shape.Intersect: ranks differ, %s vs %s", s, s2)
	}
	out := Shape{DType: s.DType, Dimensions: make([]int, s.Rank())}
	for axis, dim := range s.Dimensions {
		out.Dimensions[axis] = min(dim, s2.Dimensions[axis])
	}
	return out
}

// FlatOffset converts a multidimensional index into the row-major linear
// offset of the element. The index must have one entry per axis; each entry
// must be within the corresponding extent.
func (s Shape) FlatOffset(index ...int) int {
	if len(index) != s.Rank() {
		exceptions.Panicf("Shape.FlatOffset: index rank %d does not match shape %s", len(index), s)
	}
	offset := 0
	for axis, idx := range index {
		if idx < 0 || idx >= s.Dimensions[axis] {
			exceptions.Panicf("Shape.FlatOffset: index %v out of bounds for shape %s", index, s)
		}
		offset = offset*s.Dimensions[axis] + idx
	}
	return offset
}

// DeviceExtents linearizes the shape the way kernels consume it: the
// extents reversed (innermost first), as 32-bit values. A rank-0 shape
// linearizes to a single-element sequence holding 1 -- every consumer of
// device shape data special-cases scalars this way.
func (s Shape) DeviceExtents() []int32 {
	if s.Rank() == 0 {
		return []int32{1}
	}
	out := make([]int32, s.Rank())
	for axis, dim := range s.Dimensions {
		out[s.Rank()-1-axis] = int32(dim)
	}
	return out
}
