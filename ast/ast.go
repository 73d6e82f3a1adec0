// Package ast defines the closed set of computation-tree nodes the
// execution engine evaluates, plus the scalar expressions embedded in them.
//
// Nodes are immutable once built and owned by the caller for the duration
// of one execution. Environments are positional (de Bruijn style): a
// variable carries the index of its binding counted from the innermost
// enclosing let.
//
// The package only describes computations. Evaluation lives in package
// exec; host semantics of the primitive operators live in package interp.
package ast

import (
	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"

	"github.com/nushio3/accelerate/device"
)

// NodeType is an enum of all array-computation operations.
type NodeType int

//go:generate go tool enumer -type=NodeType -trimprefix=Node -output=gen_nodetype_enumer.go ast.go

const (
	NodeInvalid NodeType = iota

	// Control nodes: resolved on the host by environment manipulation.
	NodeUse  // value introduction: an already device-resident array
	NodeVar  // positional reference into the array environment
	NodeLet  // bind one array, evaluate body one scope deeper
	NodeLet2 // bind both components of a pair result, body two scopes deeper

	// Skeleton nodes: produce a new device array. All launch a kernel
	// except Unit, which uploads a host value, and Reshape, which reuses
	// the operand payload under new extents.
	NodeUnit // singleton construction from a scalar expression
	NodeReshape
	NodeMap
	NodeZipWith
	NodeFold
	NodeFoldSeg
	NodeScanl
	NodeScanr
	NodePermute
	NodeBackpermute
	NodeReplicate
	NodeSlice

	// NodeTypeLast is kept last, used as a counter/marker for NodeType.
	NodeTypeLast
)

// Node is one immutable computation-tree node. Args holds the operand
// sub-trees in the order fixed by the constructor; Fn and Aux are the
// embedded scalar expressions, when the operation carries them.
type Node struct {
	Type NodeType

	// Args are the operand sub-trees.
	Args []*Node

	// Fn is the embedded per-element function (map, zipWith, fold combine,
	// permute combine, backpermute permutation...).
	Fn *Expr

	// Aux is the secondary scalar expression: the target shape of reshape
	// and backpermute, the slice/replication index of slice and replicate,
	// the permutation function of permute, the value of unit.
	Aux *Expr

	// Data holds per-variant payload: device.Array for NodeUse, int for
	// NodeVar, []bool fixed-axis spec for NodeReplicate and NodeSlice.
	Data any

	// Out overrides the result element type for operations whose embedded
	// function changes it (a fromIntegral map, a comparison zipWith...).
	// InvalidDType keeps the operand's element type.
	Out dtypes.DType
}

// WithOutput records that the embedded function of n produces elements of
// dtype rather than the operand's element type. It returns n.
func (n *Node) WithOutput(dtype dtypes.DType) *Node {
	n.Out = dtype
	return n
}

// Use introduces an already device-resident array into the computation.
// The engine never frees its payload; ownership stays with the caller.
func Use(arr device.Array) *Node {
	return &Node{Type: NodeUse, Data: arr}
}

// ArrayVar references the array bound index scopes up in the environment,
// 0 being the innermost binding.
func ArrayVar(index int) *Node {
	if index < 0 {
		exceptions.Panicf("ast.ArrayVar(%d): negative de Bruijn index", index)
	}
	return &Node{Type: NodeVar, Data: index}
}

// Let binds the result of bound at index 0 while evaluating body.
func Let(bound, body *Node) *Node {
	return &Node{Type: NodeLet, Args: []*Node{bound, body}}
}

// Let2 binds both components of bound's pair result -- the second component
// at index 0, the first at index 1 -- while evaluating body.
func Let2(bound, body *Node) *Node {
	return &Node{Type: NodeLet2, Args: []*Node{bound, body}}
}

// Unit builds a one-element array holding the value of the scalar expression.
func Unit(value *Expr) *Node {
	return &Node{Type: NodeUnit, Aux: value}
}

// Reshape reinterprets src under the shape computed by shape. The total
// element count must be unchanged.
func Reshape(shape *Expr, src *Node) *Node {
	return &Node{Type: NodeReshape, Args: []*Node{src}, Aux: shape}
}

// Map applies fn to every element of src.
func Map(fn *Expr, src *Node) *Node {
	return &Node{Type: NodeMap, Args: []*Node{src}, Fn: fn}
}

// ZipWith combines a and b elementwise with fn. The result shape is the
// per-axis minimum of both operand shapes.
func ZipWith(fn *Expr, a, b *Node) *Node {
	return &Node{Type: NodeZipWith, Args: []*Node{a, b}, Fn: fn}
}

// Fold reduces src with the associative combine function fn until a single
// element remains.
func Fold(fn *Expr, src *Node) *Node {
	return &Node{Type: NodeFold, Args: []*Node{src}, Fn: fn}
}

// FoldSeg reduces each segment of data independently; segs holds the
// segment lengths. The result has one element per segment.
func FoldSeg(fn *Expr, data, segs *Node) *Node {
	return &Node{Type: NodeFoldSeg, Args: []*Node{data, segs}, Fn: fn}
}

// Scanl computes the left-to-right inclusive scan of src under fn. The
// result is a pair: the scanned array and a one-element total.
func Scanl(fn *Expr, src *Node) *Node {
	return &Node{Type: NodeScanl, Args: []*Node{src}, Fn: fn}
}

// Scanr is the right-to-left variant of Scanl. It is computed identically
// on the host side; direction is handled during kernel generation.
func Scanr(fn *Expr, src *Node) *Node {
	return &Node{Type: NodeScanr, Args: []*Node{src}, Fn: fn}
}

// Permute forward-permutes src into a copy of defaults: perm maps a source
// index to a target index, combine resolves collisions with the value
// already present.
func Permute(combine, perm *Expr, defaults, src *Node) *Node {
	return &Node{Type: NodePermute, Args: []*Node{defaults, src}, Fn: combine, Aux: perm}
}

// Backpermute gathers from src into an array of the shape computed by
// shape: perm maps each target index to the source index to read.
func Backpermute(shape, perm *Expr, src *Node) *Node {
	return &Node{Type: NodeBackpermute, Args: []*Node{src}, Fn: perm, Aux: shape}
}

// Replicate broadcasts src along new axes. fixed marks, per result axis,
// whether the axis extent comes from the replication index (true) or passes
// through from src (false). index evaluates to the tuple of replication
// factors for the fixed axes, outermost first.
func Replicate(fixed []bool, index *Expr, src *Node) *Node {
	return &Node{Type: NodeReplicate, Args: []*Node{src}, Aux: index, Data: fixed}
}

// Slice restricts src by fixing some axes. fixed marks, per source axis,
// whether the axis is fixed (dropped from the result, its position taken
// from the evaluated index tuple) or kept. Each fixed position is
// bounds-checked against the corresponding source extent.
func Slice(fixed []bool, index *Expr, src *Node) *Node {
	return &Node{Type: NodeSlice, Args: []*Node{src}, Aux: index, Data: fixed}
}

// IsSkeleton reports whether evaluating the node produces a new device
// array, as opposed to a control node resolved by environment manipulation.
func (n *Node) IsSkeleton() bool {
	switch n.Type {
	case NodeUse, NodeVar, NodeLet, NodeLet2, NodeReshape:
		return false
	}
	return true
}

// UseArray returns the embedded array of a NodeUse.
func (n *Node) UseArray() device.Array {
	if n.Type != NodeUse {
		exceptions.Panicf("Node.UseArray called on %s node", n.Type)
	}
	return n.Data.(device.Array)
}

// VarIndex returns the de Bruijn index of a NodeVar.
func (n *Node) VarIndex() int {
	if n.Type != NodeVar {
		exceptions.Panicf("Node.VarIndex called on %s node", n.Type)
	}
	return n.Data.(int)
}

// FixedAxes returns the fixed-axis spec of a NodeReplicate or NodeSlice.
func (n *Node) FixedAxes() []bool {
	switch n.Type {
	case NodeReplicate, NodeSlice:
		return n.Data.([]bool)
	}
	exceptions.Panicf("Node.FixedAxes called on %s node", n.Type)
	return nil
}
