package ast

import (
	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
)

// ExprType is an enum of all scalar-expression node kinds.
type ExprType int

//go:generate go tool enumer -type=ExprType -trimprefix=Expr -output=gen_exprtype_enumer.go expr.go

const (
	ExprInvalid ExprType = iota
	ExprVar               // positional reference into the local scalar environment
	ExprConst             // embedded literal
	ExprPrimConst         // named constant from the reference evaluator's table
	ExprPrimApp           // primitive operator applied to a single operand
	ExprTuple             // tuple construction, components in declaration order
	ExprPrj               // tuple projection
	ExprIndex             // indexed read of a device-resident array
	ExprShape             // shape query of a device-resident array
	ExprCond              // conditional: only the taken branch is evaluated

	// ExprTypeLast is kept last, used as a counter/marker for ExprType.
	ExprTypeLast
)

// Expr is one immutable scalar-expression node. It is always evaluated in
// the context of two environments: a local scalar environment and the
// enclosing array environment.
type Expr struct {
	Type ExprType

	// Kids are the scalar operands, in declaration order. For ExprCond:
	// predicate, then-branch, else-branch.
	Kids []*Expr

	// Array is the array sub-tree read by ExprIndex or queried by ExprShape.
	Array *Node

	// Const is the literal of an ExprConst.
	Const any

	// Prim identifies the operator of an ExprPrimApp or the constant of an
	// ExprPrimConst.
	Prim PrimOp

	// Index is the environment index of an ExprVar or the component of an
	// ExprPrj.
	Index int

	// DType is the result element type, where the operator needs one:
	// PrimFromIntegral conversions and the PrimMinBound/PrimMaxBound/PrimPi
	// constants.
	DType dtypes.DType
}

// Var references the scalar bound index scopes up in the local environment.
func Var(index int) *Expr {
	if index < 0 {
		exceptions.Panicf("ast.Var(%d): negative de Bruijn index", index)
	}
	return &Expr{Type: ExprVar, Index: index}
}

// Const embeds a literal value.
func Const(value any) *Expr {
	return &Expr{Type: ExprConst, Const: value}
}

// PrimConst references a named constant of the reference evaluator, at the
// given element type.
func PrimConst(c PrimOp, dtype dtypes.DType) *Expr {
	return &Expr{Type: ExprPrimConst, Prim: c, DType: dtype}
}

// PrimApp applies a primitive operator to its single operand. Binary
// operators take their two arguments as a tuple operand.
func PrimApp(op PrimOp, arg *Expr) *Expr {
	return &Expr{Type: ExprPrimApp, Prim: op, Kids: []*Expr{arg}}
}

// FromIntegral converts an integral operand to the given element type.
func FromIntegral(dtype dtypes.DType, arg *Expr) *Expr {
	return &Expr{Type: ExprPrimApp, Prim: PrimFromIntegral, DType: dtype, Kids: []*Expr{arg}}
}

// Tuple constructs a tuple from its components, left to right.
func Tuple(components ...*Expr) *Expr {
	return &Expr{Type: ExprTuple, Kids: components}
}

// Prj projects component index out of a tuple-valued expression.
func Prj(index int, tuple *Expr) *Expr {
	return &Expr{Type: ExprPrj, Index: index, Kids: []*Expr{tuple}}
}

// ArrayRead reads one element of the array at the multidimensional index
// computed by index. On the host this is a synchronous single-element
// device read; inside a kernel the array is bound as a texture input.
func ArrayRead(array *Node, index *Expr) *Expr {
	return &Expr{Type: ExprIndex, Array: array, Kids: []*Expr{index}}
}

// ArrayShape queries the shape of the array without touching its payload.
func ArrayShape(array *Node) *Expr {
	return &Expr{Type: ExprShape, Array: array}
}

// Cond evaluates pred, then exactly one of onTrue or onFalse -- the untaken
// branch must not run, since it may have device side effects.
func Cond(pred, onTrue, onFalse *Expr) *Expr {
	return &Expr{Type: ExprCond, Kids: []*Expr{pred, onTrue, onFalse}}
}
