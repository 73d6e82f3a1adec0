package exec

import (
	"fmt"

	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/nushio3/accelerate/ast"
	"github.com/nushio3/accelerate/device"
	"github.com/nushio3/accelerate/types/shapes"
)

// RefKind tags a lifted reference.
type RefKind int

const (
	// ShapeRef carries copied extents, bound to a shape<N> module global.
	ShapeRef RefKind = iota
	// ArrayRef references an array resident from the environment, bound to
	// one tex<M> texture slot per element channel.
	ArrayRef
)

// String implements fmt.Stringer.
func (k RefKind) String() string {
	if k == ShapeRef {
		return "Shape"
	}
	return "Array"
}

// LiftedRef is one array or shape reference extracted from a scalar
// expression, to be bound as a kernel-global input before launch. It never
// owns memory: releasing it never frees the referenced array's storage.
type LiftedRef struct {
	Kind  RefKind
	Shape shapes.Shape
	Array device.Array
}

// lift extracts the array and shape references embedded in a scalar
// expression, in a fixed left-to-right pre-order. The sequence order
// defines the binding slot numbers the generated kernel assumed, so it must
// be deterministic and must not deduplicate: repeated references produce
// repeated entries.
//
// Lifting is a static analysis, not an execution: both branches of a
// conditional are scanned even though only one will run. Each shape query
// contributes one Shape entry; each indexed read contributes its index
// expression's sub-sequence, then an Array entry, then a Shape entry for
// itself.
func (e *Engine) lift(x *ast.Expr, arrays Env, sc *runScope) ([]LiftedRef, error) {
	if x == nil {
		return nil, nil
	}
	switch x.Type {
	case ast.ExprVar, ast.ExprConst, ast.ExprPrimConst:
		return nil, nil

	case ast.ExprPrimApp, ast.ExprTuple, ast.ExprPrj, ast.ExprCond:
		var refs []LiftedRef
		for _, kid := range x.Kids {
			sub, err := e.lift(kid, arrays, sc)
			if err != nil {
				e.releaseLifted(refs)
				return nil, err
			}
			refs = append(refs, sub...)
		}
		return refs, nil

	case ast.ExprShape:
		arr, err := e.resident(x.Array, arrays, sc)
		if err != nil {
			return nil, err
		}
		shape := arr.Shape.Clone()
		if err := arr.Release(e.mem); err != nil {
			return nil, err
		}
		return []LiftedRef{{Kind: ShapeRef, Shape: shape}}, nil

	case ast.ExprIndex:
		refs, err := e.lift(x.Kids[0], arrays, sc)
		if err != nil {
			return nil, err
		}
		arr, err := e.resident(x.Array, arrays, sc)
		if err != nil {
			e.releaseLifted(refs)
			return nil, err
		}
		refs = append(refs,
			LiftedRef{Kind: ArrayRef, Array: arr},
			LiftedRef{Kind: ShapeRef, Shape: arr.Shape.Clone()})
		return refs, nil
	}

	exceptions.Panicf("lifting over %s node: malformed tree", x.Type)
	return nil, nil
}

// resident resolves the array sub-tree of an embedded reference. These are
// expected to reference arrays already resident from the environment;
// evaluating handles the general case too.
func (e *Engine) resident(n *ast.Node, arrays Env, sc *runScope) (device.Array, error) {
	v, err := e.evalArray(n, arrays, sc)
	if err != nil {
		return device.Array{}, err
	}
	return asArray(v), nil
}

// liftAll lifts over the node's compiled scalar expressions, in the order
// the code generator numbers the slots.
func (e *Engine) liftAll(arrays Env, sc *runScope, exprs ...*ast.Expr) ([]LiftedRef, error) {
	var refs []LiftedRef
	for _, x := range exprs {
		sub, err := e.lift(x, arrays, sc)
		if err != nil {
			e.releaseLifted(refs)
			return nil, err
		}
		refs = append(refs, sub...)
	}
	return refs, nil
}

// binding is the transient per-dispatch texture state to undo afterwards.
type binding struct {
	texs []device.TexRef
	refs []LiftedRef
}

// bindLifted walks the lifted sequence with two independent counters, one
// for shape slots and one for texture channels: Shape entries are written
// into the module's shape<N> globals, Array entries bound to as many
// tex<M> symbols as their element representation has channels.
func (e *Engine) bindLifted(mod device.Module, refs []LiftedRef) (*binding, error) {
	b := &binding{refs: refs}
	shapeSlot, texSlot := 0, 0
	for _, ref := range refs {
		switch ref.Kind {
		case ShapeRef:
			name := fmt.Sprintf("shape%d", shapeSlot)
			shapeSlot++
			ptr, size, err := mod.Global(name)
			if err != nil {
				e.unbind(b)
				return nil, errors.WithMessagef(err, "resolving %s", name)
			}
			extents := ref.Shape.DeviceExtents()
			if size < 4*len(extents) {
				e.unbind(b)
				return nil, errors.Errorf("global %s holds %d bytes, shape %s needs %d",
					name, size, ref.Shape, 4*len(extents))
			}
			if err := e.mem.WriteGlobal(ptr, extents); err != nil {
				e.unbind(b)
				return nil, errors.WithMessagef(err, "writing %s", name)
			}

		case ArrayRef:
			ptrs := e.mem.Pointers(ref.Array.Data.Buf)
			bytes := int(ref.Array.Shape.Memory())
			for _, ptr := range ptrs {
				name := fmt.Sprintf("tex%d", texSlot)
				texSlot++
				tex, err := mod.TexRef(name)
				if err != nil {
					e.unbind(b)
					return nil, errors.WithMessagef(err, "resolving %s", name)
				}
				if err := tex.BindAddress(ptr, bytes); err != nil {
					e.unbind(b)
					return nil, errors.WithMessagef(err, "binding %s", name)
				}
				b.texs = append(b.texs, tex)
			}
		}
	}
	klog.V(2).Infof("bound %d lifted refs: %d shape slots, %d texture slots", len(refs), shapeSlot, texSlot)
	return b, nil
}

// unbind releases the temporary texture bindings and the lifted array
// retains. The underlying payloads are untouched: they stay owned by
// whatever evaluation frame produced them.
func (e *Engine) unbind(b *binding) {
	for _, tex := range b.texs {
		tex.Unbind()
	}
	b.texs = nil
	e.releaseLifted(b.refs)
	b.refs = nil
}

func (e *Engine) releaseLifted(refs []LiftedRef) {
	for _, ref := range refs {
		if ref.Kind == ArrayRef {
			_ = ref.Array.Release(e.mem)
		}
	}
}
