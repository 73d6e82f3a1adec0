// Package interp is the reference evaluator: pure host-side semantics for
// the primitive constants and operators of the scalar language.
//
// The execution engine uses it to resolve scalar expressions on the host;
// the generated kernels implement the same operators on the device. Both
// sides must produce identical results, so host-resolved and
// device-resolved paths through a computation agree.
package interp

import (
	"math"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/x448/float16"
	"golang.org/x/exp/constraints"

	"github.com/nushio3/accelerate/ast"
)

// Tuple is the host representation of a tuple value, components in
// declaration order.
type Tuple []any

// Apply evaluates a primitive operator on its single operand. Binary
// operators take their two arguments as a 2-element Tuple. dtype is only
// consulted by PrimFromIntegral, which converts to it.
//
// Malformed applications (wrong arity, mismatched operand types) are
// precondition violations and panic.
func Apply(op ast.PrimOp, dtype dtypes.DType, arg any) any {
	switch op {
	case ast.PrimAdd, ast.PrimSub, ast.PrimMul, ast.PrimMin, ast.PrimMax:
		a, b := pair(op, arg)
		return numeric2(op, a, b)
	case ast.PrimQuot, ast.PrimRem, ast.PrimBAnd, ast.PrimBOr, ast.PrimBXor:
		a, b := pair(op, arg)
		return integral2(op, a, b)
	case ast.PrimEq, ast.PrimNeq, ast.PrimLt, ast.PrimGt, ast.PrimLte, ast.PrimGte:
		a, b := pair(op, arg)
		return compare(op, a, b)
	case ast.PrimLAnd, ast.PrimLOr:
		a, b := pair(op, arg)
		if op == ast.PrimLAnd {
			return a.(bool) && b.(bool)
		}
		return a.(bool) || b.(bool)
	case ast.PrimLNot:
		return !arg.(bool)
	case ast.PrimNeg, ast.PrimAbs, ast.PrimSignum:
		return numeric1(op, arg)
	case ast.PrimFromIntegral:
		return fromIntegral(dtype, arg)
	}
	exceptions.Panicf("interp.Apply: %s is not an applicable primitive operator", op)
	return nil
}

// Constant returns the value of a named primitive constant at the given
// element type.
func Constant(c ast.PrimOp, dtype dtypes.DType) any {
	switch c {
	case ast.PrimPi:
		switch dtype {
		case dtypes.Float16:
			return float16.Fromfloat32(math.Pi)
		case dtypes.Float32:
			return float32(math.Pi)
		case dtypes.Float64:
			return math.Pi
		}
	case ast.PrimMinBound:
		switch dtype {
		case dtypes.Int8:
			return int8(math.MinInt8)
		case dtypes.Int16:
			return int16(math.MinInt16)
		case dtypes.Int32:
			return int32(math.MinInt32)
		case dtypes.Int64:
			return int64(math.MinInt64)
		case dtypes.Uint8:
			return uint8(0)
		case dtypes.Uint16:
			return uint16(0)
		case dtypes.Uint32:
			return uint32(0)
		case dtypes.Uint64:
			return uint64(0)
		}
	case ast.PrimMaxBound:
		switch dtype {
		case dtypes.Int8:
			return int8(math.MaxInt8)
		case dtypes.Int16:
			return int16(math.MaxInt16)
		case dtypes.Int32:
			return int32(math.MaxInt32)
		case dtypes.Int64:
			return int64(math.MaxInt64)
		case dtypes.Uint8:
			return uint8(math.MaxUint8)
		case dtypes.Uint16:
			return uint16(math.MaxUint16)
		case dtypes.Uint32:
			return uint32(math.MaxUint32)
		case dtypes.Uint64:
			return uint64(math.MaxUint64)
		}
	}
	exceptions.Panicf("interp.Constant: no %s constant for dtype %s", c, dtype)
	return nil
}

func pair(op ast.PrimOp, arg any) (any, any) {
	t, ok := arg.(Tuple)
	if !ok || len(t) != 2 {
		exceptions.Panicf("interp: operator %s expects a 2-tuple operand, got %T", op, arg)
	}
	return t[0], t[1]
}

func numeric2(op ast.PrimOp, a, b any) any {
	switch av := a.(type) {
	case int8:
		return ordered2(op, av, b.(int8))
	case int16:
		return ordered2(op, av, b.(int16))
	case int32:
		return ordered2(op, av, b.(int32))
	case int64:
		return ordered2(op, av, b.(int64))
	case uint8:
		return ordered2(op, av, b.(uint8))
	case uint16:
		return ordered2(op, av, b.(uint16))
	case uint32:
		return ordered2(op, av, b.(uint32))
	case uint64:
		return ordered2(op, av, b.(uint64))
	case float32:
		return ordered2(op, av, b.(float32))
	case float64:
		return ordered2(op, av, b.(float64))
	case float16.Float16:
		// Computed at float32 and rounded back, matching the device.
		return float16.Fromfloat32(ordered2(op, av.Float32(), b.(float16.Float16).Float32()))
	}
	exceptions.Panicf("interp: operator %s unsupported for operand type %T", op, a)
	return nil
}

func ordered2[T constraints.Integer | constraints.Float](op ast.PrimOp, a, b T) T {
	switch op {
	case ast.PrimAdd:
		return a + b
	case ast.PrimSub:
		return a - b
	case ast.PrimMul:
		return a * b
	case ast.PrimMin:
		return min(a, b)
	case ast.PrimMax:
		return max(a, b)
	}
	exceptions.Panicf("interp: %s is not a numeric binary operator", op)
	return 0
}

func integral2(op ast.PrimOp, a, b any) any {
	switch av := a.(type) {
	case int8:
		return int2(op, av, b.(int8))
	case int16:
		return int2(op, av, b.(int16))
	case int32:
		return int2(op, av, b.(int32))
	case int64:
		return int2(op, av, b.(int64))
	case uint8:
		return int2(op, av, b.(uint8))
	case uint16:
		return int2(op, av, b.(uint16))
	case uint32:
		return int2(op, av, b.(uint32))
	case uint64:
		return int2(op, av, b.(uint64))
	}
	exceptions.Panicf("interp: operator %s requires integral operands, got %T", op, a)
	return nil
}

func int2[T constraints.Integer](op ast.PrimOp, a, b T) T {
	switch op {
	case ast.PrimQuot:
		return a / b
	case ast.PrimRem:
		return a % b
	case ast.PrimBAnd:
		return a & b
	case ast.PrimBOr:
		return a | b
	case ast.PrimBXor:
		return a ^ b
	}
	exceptions.Panicf("interp: %s is not an integral binary operator", op)
	return 0
}

func compare(op ast.PrimOp, a, b any) bool {
	switch av := a.(type) {
	case int8:
		return cmp2(op, av, b.(int8))
	case int16:
		return cmp2(op, av, b.(int16))
	case int32:
		return cmp2(op, av, b.(int32))
	case int64:
		return cmp2(op, av, b.(int64))
	case uint8:
		return cmp2(op, av, b.(uint8))
	case uint16:
		return cmp2(op, av, b.(uint16))
	case uint32:
		return cmp2(op, av, b.(uint32))
	case uint64:
		return cmp2(op, av, b.(uint64))
	case float32:
		return cmp2(op, av, b.(float32))
	case float64:
		return cmp2(op, av, b.(float64))
	case float16.Float16:
		return cmp2(op, av.Float32(), b.(float16.Float16).Float32())
	case bool:
		return cmpBool(op, av, b.(bool))
	}
	exceptions.Panicf("interp: comparison %s unsupported for operand type %T", op, a)
	return false
}

func cmp2[T constraints.Ordered](op ast.PrimOp, a, b T) bool {
	switch op {
	case ast.PrimEq:
		return a == b
	case ast.PrimNeq:
		return a != b
	case ast.PrimLt:
		return a < b
	case ast.PrimGt:
		return a > b
	case ast.PrimLte:
		return a <= b
	case ast.PrimGte:
		return a >= b
	}
	exceptions.Panicf("interp: %s is not a comparison operator", op)
	return false
}

func cmpBool(op ast.PrimOp, a, b bool) bool {
	switch op {
	case ast.PrimEq:
		return a == b
	case ast.PrimNeq:
		return a != b
	}
	exceptions.Panicf("interp: comparison %s unsupported for bool operands", op)
	return false
}

func numeric1(op ast.PrimOp, arg any) any {
	switch av := arg.(type) {
	case int8:
		return signed1(op, av)
	case int16:
		return signed1(op, av)
	case int32:
		return signed1(op, av)
	case int64:
		return signed1(op, av)
	case uint8:
		return unsigned1(op, av)
	case uint16:
		return unsigned1(op, av)
	case uint32:
		return unsigned1(op, av)
	case uint64:
		return unsigned1(op, av)
	case float32:
		return signed1(op, av)
	case float64:
		return signed1(op, av)
	case float16.Float16:
		return float16.Fromfloat32(signed1(op, av.Float32()))
	}
	exceptions.Panicf("interp: operator %s unsupported for operand type %T", op, arg)
	return nil
}

func signed1[T constraints.Signed | constraints.Float](op ast.PrimOp, a T) T {
	switch op {
	case ast.PrimNeg:
		return -a
	case ast.PrimAbs:
		if a < 0 {
			return -a
		}
		return a
	case ast.PrimSignum:
		switch {
		case a > 0:
			return 1
		case a < 0:
			return -1
		}
		return 0
	}
	exceptions.Panicf("interp: %s is not a unary numeric operator", op)
	return 0
}

func unsigned1[T constraints.Unsigned](op ast.PrimOp, a T) T {
	switch op {
	case ast.PrimNeg:
		return -a
	case ast.PrimAbs:
		return a
	case ast.PrimSignum:
		if a > 0 {
			return 1
		}
		return 0
	}
	exceptions.Panicf("interp: %s is not a unary numeric operator", op)
	return 0
}

func fromIntegral(dtype dtypes.DType, arg any) any {
	v := AsInt64(arg)
	switch dtype {
	case dtypes.Int8:
		return int8(v)
	case dtypes.Int16:
		return int16(v)
	case dtypes.Int32:
		return int32(v)
	case dtypes.Int64:
		return v
	case dtypes.Uint8:
		return uint8(v)
	case dtypes.Uint16:
		return uint16(v)
	case dtypes.Uint32:
		return uint32(v)
	case dtypes.Uint64:
		return uint64(v)
	case dtypes.Float16:
		return float16.Fromfloat32(float32(v))
	case dtypes.Float32:
		return float32(v)
	case dtypes.Float64:
		return float64(v)
	}
	exceptions.Panicf("interp: fromIntegral to unsupported dtype %s", dtype)
	return nil
}

// AsInt64 widens any integral host value to int64. Used wherever the engine
// consumes an index or extent computed by a scalar expression.
func AsInt64(v any) int64 {
	switch av := v.(type) {
	case int:
		return int64(av)
	case int8:
		return int64(av)
	case int16:
		return int64(av)
	case int32:
		return int64(av)
	case int64:
		return av
	case uint8:
		return int64(av)
	case uint16:
		return int64(av)
	case uint32:
		return int64(av)
	case uint64:
		return int64(av)
	}
	exceptions.Panicf("interp.AsInt64: %T is not an integral value", v)
	return 0
}

// AsInts converts an index value -- a single integral or a tuple of
// integrals -- into a host index slice, components in declaration order.
func AsInts(v any) []int {
	if t, ok := v.(Tuple); ok {
		out := make([]int, len(t))
		for ii, c := range t {
			out[ii] = int(AsInt64(c))
		}
		return out
	}
	return []int{int(AsInt64(v))}
}
