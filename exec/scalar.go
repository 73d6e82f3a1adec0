package exec

import (
	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"

	"github.com/nushio3/accelerate/ast"
	"github.com/nushio3/accelerate/interp"
)

// evalScalar evaluates a closed scalar expression against a local scalar
// environment and the enclosing array environment. Synchronous; an indexed
// array read blocks on the device.
//
// Conditionals evaluate only the taken branch: the untaken branch may carry
// device side effects and must not run.
func (e *Engine) evalScalar(x *ast.Expr, local, arrays Env, sc *runScope) (any, error) {
	switch x.Type {
	case ast.ExprVar:
		return local.Lookup(x.Index), nil

	case ast.ExprConst:
		return x.Const, nil

	case ast.ExprPrimConst:
		return interp.Constant(x.Prim, x.DType), nil

	case ast.ExprPrimApp:
		arg, err := e.evalScalar(x.Kids[0], local, arrays, sc)
		if err != nil {
			return nil, err
		}
		return interp.Apply(x.Prim, x.DType, arg), nil

	case ast.ExprTuple:
		// Components in declaration order; the lifting pass relies on the
		// same order when numbering binding slots.
		t := make(interp.Tuple, len(x.Kids))
		for ii, kid := range x.Kids {
			v, err := e.evalScalar(kid, local, arrays, sc)
			if err != nil {
				return nil, err
			}
			t[ii] = v
		}
		return t, nil

	case ast.ExprPrj:
		v, err := e.evalScalar(x.Kids[0], local, arrays, sc)
		if err != nil {
			return nil, err
		}
		t, ok := v.(interp.Tuple)
		if !ok || x.Index < 0 || x.Index >= len(t) {
			exceptions.Panicf("tuple projection %d of a %T value: malformed tree", x.Index, v)
		}
		return t[x.Index], nil

	case ast.ExprIndex:
		// The array sub-tree may itself trigger nested device execution.
		av, err := e.evalArray(x.Array, arrays, sc)
		if err != nil {
			return nil, err
		}
		arr := asArray(av)
		idx, err := e.evalScalar(x.Kids[0], local, arrays, sc)
		if err != nil {
			arr.Release(e.mem)
			return nil, err
		}
		offset := arr.Shape.FlatOffset(interp.AsInts(idx)...)
		v, err := e.mem.ReadScalar(arr.Data.Buf, offset)
		if relErr := arr.Release(e.mem); relErr != nil && err == nil {
			err = relErr
		}
		if err != nil {
			return nil, errors.WithMessagef(err, "reading element %v of %s", idx, arr.Shape)
		}
		return v, nil

	case ast.ExprShape:
		av, err := e.evalArray(x.Array, arrays, sc)
		if err != nil {
			return nil, err
		}
		arr := asArray(av)
		shape := arr.Shape.Clone()
		if err := arr.Release(e.mem); err != nil {
			return nil, err
		}
		return shape, nil

	case ast.ExprCond:
		pred, err := e.evalScalar(x.Kids[0], local, arrays, sc)
		if err != nil {
			return nil, err
		}
		taken, ok := pred.(bool)
		if !ok {
			exceptions.Panicf("conditional predicate produced %T, want bool: malformed tree", pred)
		}
		if taken {
			return e.evalScalar(x.Kids[1], local, arrays, sc)
		}
		return e.evalScalar(x.Kids[2], local, arrays, sc)
	}

	exceptions.Panicf("scalar evaluation of %s node: malformed tree", x.Type)
	return nil, nil
}
