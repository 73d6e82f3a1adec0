package ast

// PrimOp enumerates the primitive scalar operators and named constants the
// reference evaluator implements. Host evaluation (package interp) and the
// generated kernels must agree on their semantics exactly, so results are
// identical whichever side computes them.
type PrimOp int

//go:generate go tool enumer -type=PrimOp -trimprefix=Prim -output=gen_primop_enumer.go primops.go

const (
	PrimInvalid PrimOp = iota

	// Binary operators: the operand is a 2-tuple.
	PrimAdd
	PrimSub
	PrimMul
	PrimQuot
	PrimRem
	PrimMin
	PrimMax
	PrimBAnd
	PrimBOr
	PrimBXor

	// Comparisons: 2-tuple operand, bool result.
	PrimEq
	PrimNeq
	PrimLt
	PrimGt
	PrimLte
	PrimGte

	// Logical: bool operands.
	PrimLAnd
	PrimLOr
	PrimLNot

	// Unary operators.
	PrimNeg
	PrimAbs
	PrimSignum
	PrimFromIntegral

	// Named constants (no operand).
	PrimMinBound
	PrimMaxBound
	PrimPi

	// PrimOpLast is kept last, used as a counter/marker for PrimOp.
	PrimOpLast
)
