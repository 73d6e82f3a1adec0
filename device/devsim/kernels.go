package devsim

import (
	"iter"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/pkg/errors"

	"github.com/nushio3/accelerate/types/shapes"
)

// Kernel builders. Each returns a KernelFunc whose parameter decoding
// matches the engine's call for the corresponding skeleton: the simulated
// counterpart of what the code generator would have compiled. Ranks and
// axis specs are baked in at construction, like static type information in
// generated kernel text; the per-element behavior arrives as a Go closure.
//
// Index arithmetic happens in natural (outermost first) order; linearized
// shapes arrive reversed and the helpers below convert at the boundary.

// indexSpace reconstitutes a natural-order shape from reversed extents and
// iterates its indices in row-major order, matching flat element order.
// The dtype only satisfies the shape's validity check; iteration ignores it.
func indexSpace(extents []int32) iter.Seq[[]int] {
	dims := make([]int, len(extents))
	for axis, extent := range extents {
		dims[len(extents)-1-axis] = int(extent)
	}
	return shapes.Shape{DType: dtypes.Int32, Dimensions: dims}.Iter()
}

// flatten maps a natural-order multi-index against reversed extents back
// to a row-major flat offset. An empty index (a scalar) flattens to 0.
func flatten(index []int, extents []int32) int {
	flat := 0
	for axis := 0; axis < len(index); axis++ {
		flat = flat*int(extents[len(index)-1-axis]) + index[axis]
	}
	return flat
}

// chunkOf splits n elements across the grid the way the generated
// reduction and scan kernels do: contiguous balanced chunks, one per
// block, every block nonempty whenever the grid is no larger than n.
func chunkOf(block, n, grid int) (lo, hi int) {
	return block * n / grid, (block + 1) * n / grid
}

// MapKernel applies f elementwise. Parameters: out, in, n.
func MapKernel[A, B dtypes.Supported](f func(A) B) KernelFunc {
	return func(ctx *LaunchContext) error {
		out := ArrayArg[B](ctx)
		in := ArrayArg[A](ctx)
		n := int(ctx.Word())
		for i := 0; i < n; i++ {
			out[i] = f(in[i])
		}
		return nil
	}
}

// ZipWithKernel combines two operands of the given common rank elementwise
// over the intersection of their index spaces. Parameters: out, a, b,
// shOut, shA, shB, n.
func ZipWithKernel[A, B, C dtypes.Supported](rank int, f func(A, B) C) KernelFunc {
	return func(ctx *LaunchContext) error {
		out := ArrayArg[C](ctx)
		a := ArrayArg[A](ctx)
		b := ArrayArg[B](ctx)
		shOut := ctx.Extents(rank)
		shA := ctx.Extents(rank)
		shB := ctx.Extents(rank)
		n := int(ctx.Word())
		i := 0
		for index := range indexSpace(shOut) {
			if i >= n {
				break
			}
			out[i] = f(a[flatten(index, shA)], b[flatten(index, shB)])
			i++
		}
		return nil
	}
}

// FoldKernel reduces each block's contiguous chunk with the associative f,
// one partial result per block. Parameters: out, in, n.
func FoldKernel[T dtypes.Supported](f func(T, T) T) KernelFunc {
	return func(ctx *LaunchContext) error {
		out := ArrayArg[T](ctx)
		in := ArrayArg[T](ctx)
		n := int(ctx.Word())
		for block := 0; block < ctx.Grid; block++ {
			lo, hi := chunkOf(block, n, ctx.Grid)
			if lo >= hi {
				return errors.Errorf("reduction block %d of %d over %d elements is empty", block, ctx.Grid, n)
			}
			acc := in[lo]
			for i := lo + 1; i < hi; i++ {
				acc = f(acc, in[i])
			}
			out[block] = acc
		}
		return nil
	}
}

// FoldSegKernel reduces each contiguous segment independently; empty
// segments produce the zero value. Parameters: out, data, segs, numSegs, n.
func FoldSegKernel[T dtypes.Supported](f func(T, T) T) KernelFunc {
	return func(ctx *LaunchContext) error {
		out := ArrayArg[T](ctx)
		data := ArrayArg[T](ctx)
		segs := ArrayArg[int32](ctx)
		numSegs := int(ctx.Word())
		n := int(ctx.Word())
		offset := 0
		for s := 0; s < numSegs; s++ {
			length := int(segs[s])
			if offset+length > n {
				return errors.Errorf("segment %d runs past the data: offset %d + length %d > %d", s, offset, length, n)
			}
			if length == 0 {
				var zero T
				out[s] = zero
				offset += length
				continue
			}
			acc := data[offset]
			for i := offset + 1; i < offset+length; i++ {
				acc = f(acc, data[i])
			}
			out[s] = acc
			offset += length
		}
		return nil
	}
}

// ScanKernel computes the inclusive scan of each block's contiguous chunk
// and records the chunk total. In-place operation (out aliasing in) is
// supported, as the single-block pass over block sums relies on it.
// Parameters: out, sums, in, n.
func ScanKernel[T dtypes.Supported](f func(T, T) T) KernelFunc {
	return func(ctx *LaunchContext) error {
		out := ArrayArg[T](ctx)
		sums := ArrayArg[T](ctx)
		in := ArrayArg[T](ctx)
		n := int(ctx.Word())
		for block := 0; block < ctx.Grid; block++ {
			lo, hi := chunkOf(block, n, ctx.Grid)
			if lo >= hi {
				return errors.Errorf("scan block %d of %d over %d elements is empty", block, ctx.Grid, n)
			}
			acc := in[lo]
			out[lo] = acc
			for i := lo + 1; i < hi; i++ {
				acc = f(acc, in[i])
				out[i] = acc
			}
			sums[block] = acc
		}
		return nil
	}
}

// UpdateKernel folds each block's exclusive prefix (the scanned total of
// all earlier blocks) into its chunk, completing a multi-block scan.
// Parameters: out, sums, n.
func UpdateKernel[T dtypes.Supported](f func(T, T) T) KernelFunc {
	return func(ctx *LaunchContext) error {
		out := ArrayArg[T](ctx)
		sums := ArrayArg[T](ctx)
		n := int(ctx.Word())
		for block := 1; block < ctx.Grid; block++ {
			lo, hi := chunkOf(block, n, ctx.Grid)
			prefix := sums[block-1]
			for i := lo; i < hi; i++ {
				out[i] = f(prefix, out[i])
			}
		}
		return nil
	}
}

// PermuteKernel forward-permutes the source into the (pre-initialized)
// result: perm maps a natural source index to a natural target index, or
// nil to drop the element; combine resolves collisions with the value
// already present. perm receives the iteration's working index slice and
// must not retain or modify it. Parameters: out, in, shOut, shIn, n
// (source elements).
func PermuteKernel[T dtypes.Supported](rankOut, rankIn int, combine func(T, T) T, perm func([]int) []int) KernelFunc {
	return func(ctx *LaunchContext) error {
		out := ArrayArg[T](ctx)
		in := ArrayArg[T](ctx)
		shOut := ctx.Extents(rankOut)
		shIn := ctx.Extents(rankIn)
		n := int(ctx.Word())
		i := 0
		for index := range indexSpace(shIn) {
			if i >= n {
				break
			}
			if target := perm(index); target != nil {
				j := flatten(target, shOut)
				out[j] = combine(in[i], out[j])
			}
			i++
		}
		return nil
	}
}

// BackpermuteKernel gathers: perm maps each natural target index to the
// natural source index to read, and must not retain or modify the index
// slice it receives. Parameters: out, in, shOut, shIn, n (result elements).
func BackpermuteKernel[T dtypes.Supported](rankOut, rankIn int, perm func([]int) []int) KernelFunc {
	return func(ctx *LaunchContext) error {
		out := ArrayArg[T](ctx)
		in := ArrayArg[T](ctx)
		shOut := ctx.Extents(rankOut)
		shIn := ctx.Extents(rankIn)
		n := int(ctx.Word())
		i := 0
		for index := range indexSpace(shOut) {
			if i >= n {
				break
			}
			out[i] = in[flatten(perm(index), shIn)]
			i++
		}
		return nil
	}
}

// ReplicateKernel broadcasts the source along the fixed result axes: each
// result index projects onto a source index by dropping the fixed
// components. Parameters: out, in, shOut, shIn, n (result elements).
func ReplicateKernel[T dtypes.Supported](rankOut, rankIn int, fixed []bool) KernelFunc {
	return func(ctx *LaunchContext) error {
		out := ArrayArg[T](ctx)
		in := ArrayArg[T](ctx)
		shOut := ctx.Extents(rankOut)
		shIn := ctx.Extents(rankIn)
		n := int(ctx.Word())
		i := 0
		for index := range indexSpace(shOut) {
			if i >= n {
				break
			}
			source := make([]int, 0, rankIn)
			for axis, isFixed := range fixed {
				if !isFixed {
					source = append(source, index[axis])
				}
			}
			out[i] = in[flatten(source, shIn)]
			i++
		}
		return nil
	}
}

// SliceKernel extracts the sub-array selected by the descriptor: one word
// per source axis, reversed like extents, holding the fixed position or -1
// for a kept axis. Parameters: out, in, shOut, shIn, desc, n (result
// elements).
func SliceKernel[T dtypes.Supported](rankOut, rankIn int) KernelFunc {
	return func(ctx *LaunchContext) error {
		out := ArrayArg[T](ctx)
		in := ArrayArg[T](ctx)
		shOut := ctx.Extents(rankOut)
		shIn := ctx.Extents(rankIn)
		desc := ctx.Words(rankIn)
		n := int(ctx.Word())
		i := 0
		for index := range indexSpace(shOut) {
			if i >= n {
				break
			}
			source := make([]int, rankIn)
			kept := 0
			for axis := 0; axis < rankIn; axis++ {
				// The descriptor is reversed; read it innermost-last.
				if pos := desc[rankIn-1-axis]; pos >= 0 {
					source[axis] = int(pos)
				} else {
					source[axis] = index[kept]
					kept++
				}
			}
			out[i] = in[flatten(source, shIn)]
			i++
		}
		return nil
	}
}
