package exec

import (
	"slices"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/pkg/errors"

	"github.com/nushio3/accelerate/ast"
	"github.com/nushio3/accelerate/device"
	"github.com/nushio3/accelerate/interp"
	"github.com/nushio3/accelerate/types/shapes"
)

// evalArray evaluates a computation node bottom-up against the array
// environment. Control nodes resolve by environment manipulation; skeleton
// nodes follow the unified dispatch sequence: lift free references from the
// embedded scalar expressions, obtain the kernel, compute launch geometry,
// bind, marshal, launch, release temporary bindings and consumed inputs.
//
// Every returned array carries one reference owned by the caller, who must
// release it after its last use. That keeps let-shared payloads alive until
// each path is done with them and still frees everything exactly once.
func (e *Engine) evalArray(n *ast.Node, env Env, sc *runScope) (any, error) {
	switch n.Type {
	case ast.NodeUse:
		arr := n.UseArray()
		if !arr.Valid() {
			exceptions.Panicf("use of an invalid array value (shape=%s)", arr.Shape)
		}
		return arr.Retain(), nil

	case ast.NodeVar:
		return asArray(env.Lookup(n.VarIndex())).Retain(), nil

	case ast.NodeLet:
		bound, err := e.evalArray(n.Args[0], env, sc)
		if err != nil {
			return nil, err
		}
		result, err := e.evalArray(n.Args[1], env.Push(bound), sc)
		if relErr := e.releaseValue(bound); relErr != nil && err == nil {
			err = relErr
		}
		if err != nil {
			return nil, err
		}
		return result, nil

	case ast.NodeLet2:
		bound, err := e.evalArray(n.Args[0], env, sc)
		if err != nil {
			return nil, err
		}
		t, ok := bound.(interp.Tuple)
		if !ok || len(t) != 2 {
			exceptions.Panicf("let2 over a %T value, want a pair: malformed tree", bound)
		}
		// Second component lands at index 0, first at index 1.
		result, err := e.evalArray(n.Args[1], env.Push(t[0]).Push(t[1]), sc)
		if relErr := e.releaseValue(bound); relErr != nil && err == nil {
			err = relErr
		}
		if err != nil {
			return nil, err
		}
		return result, nil

	case ast.NodeUnit:
		return e.execUnit(n, env, sc)
	case ast.NodeReshape:
		return e.execReshape(n, env, sc)
	case ast.NodeMap:
		return e.execMap(n, env, sc)
	case ast.NodeZipWith:
		return e.execZipWith(n, env, sc)
	case ast.NodeFold:
		return e.execFold(n, env, sc)
	case ast.NodeFoldSeg:
		return e.execFoldSeg(n, env, sc)
	case ast.NodeScanl, ast.NodeScanr:
		return e.execScan(n, env, sc)
	case ast.NodePermute:
		return e.execPermute(n, env, sc)
	case ast.NodeBackpermute:
		return e.execBackpermute(n, env, sc)
	case ast.NodeReplicate:
		return e.execReplicate(n, env, sc)
	case ast.NodeSlice:
		return e.execSlice(n, env, sc)
	}
	exceptions.Panicf("array evaluation of %s node: malformed tree", n.Type)
	return nil, nil
}

// releaseValue drops the evaluation frame's reference on an array value, or
// on every array of a tuple value.
func (e *Engine) releaseValue(v any) error {
	switch av := v.(type) {
	case device.Array:
		return av.Release(e.mem)
	case interp.Tuple:
		var firstErr error
		for _, item := range av {
			if err := e.releaseValue(item); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		return firstErr
	}
	return nil
}

// resultDType is the element type of a node's result: an explicit override
// from WithOutput, or the operand's element type.
func resultDType(n *ast.Node, operand dtypes.DType) dtypes.DType {
	if n.Out != dtypes.InvalidDType {
		return n.Out
	}
	return operand
}

// shapeValue interprets a host scalar result as extents: either an already
// materialized shape (from a shape query) or an integral tuple, outermost
// axis first.
func shapeValue(v any, dtype dtypes.DType) shapes.Shape {
	if sh, ok := v.(shapes.Shape); ok {
		return shapes.Shape{DType: dtype, Dimensions: slices.Clone(sh.Dimensions)}
	}
	return extentsOf(v, dtype)
}

// ---------------------------------------------------------------------------
// Skeleton dispatch plumbing.

// dispatch carries the per-launch state of one skeleton node: the loaded
// module, the entry function, its geometry, and the lifted references to
// bind around the launches.
type dispatch struct {
	e    *Engine
	node *ast.Node
	mod  device.Module
	fn   device.Function
	cfg  LaunchConfig
	refs []LiftedRef
}

// prepare runs the front half of the unified sequence: lift free
// references from the compiled scalar expressions (in slot order), load the
// kernel, resolve the entry point, and compute geometry over elems.
func (e *Engine) prepare(n *ast.Node, env Env, sc *runScope, entry string, elems int, liftExprs ...*ast.Expr) (*dispatch, error) {
	refs, err := e.liftAll(env, sc, liftExprs...)
	if err != nil {
		return nil, err
	}
	mod, err := e.loadKernel(n)
	if err != nil {
		e.releaseLifted(refs)
		return nil, err
	}
	fn, err := mod.Function(entry)
	if err != nil {
		e.releaseLifted(refs)
		return nil, errors.WithMessagef(err, "resolving kernel entry %q", entry)
	}
	return &dispatch{
		e:    e,
		node: n,
		mod:  mod,
		fn:   fn,
		cfg:  e.configure(n, elems, fn),
		refs: refs,
	}, nil
}

// abandon releases the lifted references of a dispatch that never launched.
func (d *dispatch) abandon() {
	d.e.releaseLifted(d.refs)
	d.refs = nil
}

// fire issues one launch of fn under cfg with the marshalled args.
func (d *dispatch) fire(fn device.Function, cfg LaunchConfig, args ...any) error {
	fn.SetBlockShape(cfg.ThreadsPerBlock, 1, 1)
	fn.SetSharedSize(cfg.SharedBytes)
	fn.SetParams(d.e.marshalArgs(args...))
	return fn.Launch(cfg.Grid, 1)
}

// run binds the lifted references, fires the single launch, and releases
// the bindings.
func (d *dispatch) run(args ...any) error {
	// bindLifted takes over the refs: it releases them itself on failure.
	b, err := d.e.bindLifted(d.mod, d.refs)
	d.refs = nil
	if err != nil {
		return err
	}
	err = d.fire(d.fn, d.cfg, args...)
	d.e.unbind(b)
	return err
}

// ---------------------------------------------------------------------------
// Skeleton nodes.

func (e *Engine) execUnit(n *ast.Node, env Env, sc *runScope) (any, error) {
	v, err := e.evalScalar(n.Aux, Env{}, env, sc)
	if err != nil {
		return nil, err
	}
	out, err := e.newArray(sc, shapes.Scalar(dtypeOf(v)))
	if err != nil {
		return nil, err
	}
	if err := e.mem.ToDevice(out.Data.Buf, singletonSlice(v)); err != nil {
		return nil, errors.WithMessagef(err, "writing singleton value")
	}
	return out, nil
}

func (e *Engine) execReshape(n *ast.Node, env Env, sc *runScope) (any, error) {
	shv, err := e.evalScalar(n.Aux, Env{}, env, sc)
	if err != nil {
		return nil, err
	}
	srcV, err := e.evalArray(n.Args[0], env, sc)
	if err != nil {
		return nil, err
	}
	src := asArray(srcV)
	target := shapeValue(shv, src.Shape.DType)
	if target.Size() != src.Shape.Size() {
		_ = src.Release(e.mem)
		return nil, &ShapeMismatchError{Source: src.Shape, Target: target}
	}
	// Same payload under a new shape, no copy, ownership carried through.
	return src.WithShape(target), nil
}

func (e *Engine) execMap(n *ast.Node, env Env, sc *runScope) (any, error) {
	srcV, err := e.evalArray(n.Args[0], env, sc)
	if err != nil {
		return nil, err
	}
	src := asArray(srcV)
	elems := src.Shape.Size()

	d, err := e.prepare(n, env, sc, "map", elems, n.Fn)
	if err != nil {
		_ = src.Release(e.mem)
		return nil, err
	}
	out, err := e.newArray(sc, shapes.Make(resultDType(n, src.Shape.DType), src.Shape.Dimensions...))
	if err != nil {
		d.abandon()
		_ = src.Release(e.mem)
		return nil, err
	}
	err = d.run(out, src, int32(elems))
	if relErr := src.Release(e.mem); relErr != nil && err == nil {
		err = relErr
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (e *Engine) execZipWith(n *ast.Node, env Env, sc *runScope) (any, error) {
	// Operands evaluate right to left.
	bV, err := e.evalArray(n.Args[1], env, sc)
	if err != nil {
		return nil, err
	}
	b := asArray(bV)
	aV, err := e.evalArray(n.Args[0], env, sc)
	if err != nil {
		_ = b.Release(e.mem)
		return nil, err
	}
	a := asArray(aV)

	outShape := a.Shape.Intersect(b.Shape)
	outShape.DType = resultDType(n, a.Shape.DType)
	elems := outShape.Size()

	d, err := e.prepare(n, env, sc, "zipWith", elems, n.Fn)
	if err == nil {
		var out device.Array
		out, err = e.newArray(sc, outShape)
		if err != nil {
			d.abandon()
		} else {
			err = d.run(out, a, b, outShape, a.Shape, b.Shape, int32(elems))
			if err == nil {
				releaseBoth(e, a, b)
				return out, nil
			}
		}
	}
	releaseBoth(e, a, b)
	return nil, err
}

func releaseBoth(e *Engine, a, b device.Array) {
	_ = a.Release(e.mem)
	_ = b.Release(e.mem)
}

func (e *Engine) execFold(n *ast.Node, env Env, sc *runScope) (any, error) {
	srcV, err := e.evalArray(n.Args[0], env, sc)
	if err != nil {
		return nil, err
	}
	return e.foldPass(n, env, sc, asArray(srcV))
}

// foldPass runs one reduction pass over src, consuming it. The configured
// grid size is the number of partial results; while more than one remains
// the pass re-enters itself over the partials -- the same reduction node
// wrapping the new array.
func (e *Engine) foldPass(n *ast.Node, env Env, sc *runScope, src device.Array) (any, error) {
	elems := src.Shape.Size()
	d, err := e.prepare(n, env, sc, "fold", elems, n.Fn)
	if err != nil {
		_ = src.Release(e.mem)
		return nil, err
	}
	g := d.cfg.Grid

	dtype := resultDType(n, src.Shape.DType)
	var outShape shapes.Shape
	if g == 1 {
		outShape = shapes.Scalar(dtype)
	} else {
		outShape = shapes.Make(dtype, g)
	}
	out, err := e.newArray(sc, outShape)
	if err != nil {
		d.abandon()
		_ = src.Release(e.mem)
		return nil, err
	}
	err = d.run(out, src, int32(elems))
	if relErr := src.Release(e.mem); relErr != nil && err == nil {
		err = relErr
	}
	if err != nil {
		return nil, err
	}
	if g > 1 {
		return e.foldPass(n, env, sc, out)
	}
	return out, nil
}

func (e *Engine) execFoldSeg(n *ast.Node, env Env, sc *runScope) (any, error) {
	dataV, err := e.evalArray(n.Args[0], env, sc)
	if err != nil {
		return nil, err
	}
	data := asArray(dataV)
	segsV, err := e.evalArray(n.Args[1], env, sc)
	if err != nil {
		_ = data.Release(e.mem)
		return nil, err
	}
	segs := asArray(segsV)

	numSegs := segs.Shape.Size()
	dataN := data.Shape.Size()

	d, err := e.prepare(n, env, sc, "fold_segmented", dataN, n.Fn)
	if err == nil {
		var out device.Array
		out, err = e.newArray(sc, shapes.Make(resultDType(n, data.Shape.DType), numSegs))
		if err != nil {
			d.abandon()
		} else {
			err = d.run(out, data, segs, int32(numSegs), int32(dataN))
			if err == nil {
				releaseBoth(e, data, segs)
				return out, nil
			}
		}
	}
	releaseBoth(e, data, segs)
	return nil, err
}

// execScan runs the three-launch scan pipeline: a per-block inclusive scan
// writing block partial sums, a single-block inclusive scan over the block
// sums producing per-block offsets and the grand total, and a distribute
// pass adding each block's offset into its elements. Left and right scans
// are computed identically here; direction was handled during kernel
// generation.
func (e *Engine) execScan(n *ast.Node, env Env, sc *runScope) (any, error) {
	srcV, err := e.evalArray(n.Args[0], env, sc)
	if err != nil {
		return nil, err
	}
	src := asArray(srcV)
	elems := src.Shape.Size()
	dtype := resultDType(n, src.Shape.DType)

	d, err := e.prepare(n, env, sc, "inclusive_scan", elems, n.Fn)
	if err != nil {
		_ = src.Release(e.mem)
		return nil, err
	}
	g := d.cfg.Grid

	out, err := e.newArray(sc, shapes.Make(dtype, src.Shape.Dimensions...))
	var sums, total device.Array
	if err == nil {
		sums, err = e.newArray(sc, shapes.Make(dtype, g))
	}
	if err == nil {
		total, err = e.newArray(sc, shapes.Scalar(dtype))
	}
	if err != nil {
		d.abandon()
		_ = src.Release(e.mem)
		return nil, err
	}

	update, err := d.mod.Function("exclusive_update")
	if err != nil {
		d.abandon()
		_ = src.Release(e.mem)
		return nil, errors.WithMessagef(err, "resolving kernel entry %q", "exclusive_update")
	}

	b, err := e.bindLifted(d.mod, d.refs)
	d.refs = nil
	if err != nil {
		_ = src.Release(e.mem)
		return nil, err
	}

	// Three launches in strict order on the one stream.
	err = d.fire(d.fn, d.cfg, out, sums, src, int32(elems))
	if err == nil {
		singleBlock := LaunchConfig{ThreadsPerBlock: d.cfg.ThreadsPerBlock, Grid: 1, SharedBytes: d.cfg.SharedBytes}
		err = d.fire(d.fn, singleBlock, sums, total, sums, int32(g))
	}
	if err == nil {
		err = d.fire(update, d.cfg, out, sums, int32(elems))
	}
	e.unbind(b)

	if relErr := src.Release(e.mem); relErr != nil && err == nil {
		err = relErr
	}
	if relErr := sums.Release(e.mem); relErr != nil && err == nil {
		err = relErr
	}
	if err != nil {
		return nil, err
	}
	return interp.Tuple{out, total}, nil
}

func (e *Engine) execPermute(n *ast.Node, env Env, sc *runScope) (any, error) {
	defaultsV, err := e.evalArray(n.Args[0], env, sc)
	if err != nil {
		return nil, err
	}
	defaults := asArray(defaultsV)
	srcV, err := e.evalArray(n.Args[1], env, sc)
	if err != nil {
		_ = defaults.Release(e.mem)
		return nil, err
	}
	src := asArray(srcV)
	srcN := src.Shape.Size()

	// Both the combine function and the permutation are compiled into the
	// kernel; lift over both, combine first.
	d, err := e.prepare(n, env, sc, "permute", srcN, n.Fn, n.Aux)
	if err == nil {
		var out device.Array
		out, err = e.newArray(sc, defaults.Shape.Clone())
		if err != nil {
			d.abandon()
		} else {
			err = e.mem.CopyBuffer(out.Data.Buf, defaults.Data.Buf)
			if err != nil {
				d.abandon()
			} else {
				err = d.run(out, src, out.Shape, src.Shape, int32(srcN))
			}
			if err == nil {
				releaseBoth(e, defaults, src)
				return out, nil
			}
		}
	}
	releaseBoth(e, defaults, src)
	return nil, err
}

func (e *Engine) execBackpermute(n *ast.Node, env Env, sc *runScope) (any, error) {
	shv, err := e.evalScalar(n.Aux, Env{}, env, sc)
	if err != nil {
		return nil, err
	}
	srcV, err := e.evalArray(n.Args[0], env, sc)
	if err != nil {
		return nil, err
	}
	src := asArray(srcV)
	outShape := shapeValue(shv, resultDType(n, src.Shape.DType))
	elems := outShape.Size()

	d, err := e.prepare(n, env, sc, "backpermute", elems, n.Fn)
	if err == nil {
		var out device.Array
		out, err = e.newArray(sc, outShape)
		if err != nil {
			d.abandon()
		} else {
			err = d.run(out, src, outShape, src.Shape, int32(elems))
			if err == nil {
				_ = src.Release(e.mem)
				return out, nil
			}
		}
	}
	_ = src.Release(e.mem)
	return nil, err
}

func (e *Engine) execReplicate(n *ast.Node, env Env, sc *runScope) (any, error) {
	idxV, err := e.evalScalar(n.Aux, Env{}, env, sc)
	if err != nil {
		return nil, err
	}
	srcV, err := e.evalArray(n.Args[0], env, sc)
	if err != nil {
		return nil, err
	}
	src := asArray(srcV)

	// Fixed result axes take their extent from the replication index,
	// preserved axes pass through from the source.
	fixed := n.FixedAxes()
	factors := interp.AsInts(idxV)
	dims := make([]int, 0, len(fixed))
	fi, si := 0, 0
	for _, isFixed := range fixed {
		if isFixed {
			dims = append(dims, factors[fi])
			fi++
		} else {
			dims = append(dims, src.Shape.Dim(si))
			si++
		}
	}
	outShape := shapes.Make(src.Shape.DType, dims...)
	elems := outShape.Size()

	d, err := e.prepare(n, env, sc, "replicate", elems, n.Fn)
	if err == nil {
		var out device.Array
		out, err = e.newArray(sc, outShape)
		if err != nil {
			d.abandon()
		} else {
			err = d.run(out, src, outShape, src.Shape, int32(elems))
			if err == nil {
				_ = src.Release(e.mem)
				return out, nil
			}
		}
	}
	_ = src.Release(e.mem)
	return nil, err
}

func (e *Engine) execSlice(n *ast.Node, env Env, sc *runScope) (any, error) {
	idxV, err := e.evalScalar(n.Aux, Env{}, env, sc)
	if err != nil {
		return nil, err
	}
	srcV, err := e.evalArray(n.Args[0], env, sc)
	if err != nil {
		return nil, err
	}
	src := asArray(srcV)

	// Drop the fixed axes, bounds-checking each fixed position before any
	// allocation happens.
	fixed := n.FixedAxes()
	positions := interp.AsInts(idxV)
	dims := make([]int, 0, src.Shape.Rank())
	desc := make([]int32, src.Shape.Rank())
	pi := 0
	for axis, isFixed := range fixed {
		extent := src.Shape.Dim(axis)
		if !isFixed {
			dims = append(dims, extent)
			desc[axis] = -1
			continue
		}
		pos := positions[pi]
		pi++
		if pos < 0 || pos >= extent {
			_ = src.Release(e.mem)
			return nil, &IndexOutOfBoundsError{Axis: axis, Index: pos, Extent: extent}
		}
		desc[axis] = int32(pos)
	}
	outShape := shapes.Shape{DType: src.Shape.DType, Dimensions: dims}
	elems := outShape.Size()

	// The slice descriptor travels innermost-first like extents do.
	slices.Reverse(desc)

	d, err := e.prepare(n, env, sc, "slice", elems, n.Fn)
	if err == nil {
		var out device.Array
		out, err = e.newArray(sc, outShape)
		if err != nil {
			d.abandon()
		} else {
			err = d.run(out, src, outShape, src.Shape, desc, int32(elems))
			if err == nil {
				_ = src.Release(e.mem)
				return out, nil
			}
		}
	}
	_ = src.Release(e.mem)
	return nil, err
}
