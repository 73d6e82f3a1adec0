package exec_test

import (
	"testing"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nushio3/accelerate/ast"
	"github.com/nushio3/accelerate/codegen"
	"github.com/nushio3/accelerate/device"
	"github.com/nushio3/accelerate/device/devsim"
	"github.com/nushio3/accelerate/exec"
	"github.com/nushio3/accelerate/interp"
	"github.com/nushio3/accelerate/types/shapes"
)

// fixture wires an engine to the simulator the way cmd/accelrun does:
// structural hashes as cache keys, binaries registered per skeleton node.
type fixture struct {
	t     *testing.T
	eng   *exec.Engine
	dev   *devsim.Device
	table *exec.KernelTable
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dev := devsim.New()
	table := exec.NewKernelTable()
	eng, err := exec.New(exec.Config{
		Driver:  dev,
		Memory:  dev,
		Kernels: table,
		Hash:    codegen.StructuralHash,
	})
	require.NoError(t, err)
	return &fixture{t: t, eng: eng, dev: dev, table: table}
}

// register installs a simulated binary for the node's hash.
func (f *fixture) register(n *ast.Node, kernels map[string]devsim.KernelFunc) {
	key := codegen.StructuralHash(n)
	path := "/sim/" + key + ".bin"
	f.dev.RegisterBinary(path, kernels)
	f.table.Register(key, path, nil)
}

func (f *fixture) upload32(shape shapes.Shape, flat []float32) device.Array {
	f.t.Helper()
	buf, err := f.dev.Alloc(shape.DType, shape.Size())
	require.NoError(f.t, err)
	require.NoError(f.t, f.dev.ToDevice(buf, flat))
	return device.Pin(shape, buf)
}

func (f *fixture) uploadInts(shape shapes.Shape, flat []int32) device.Array {
	f.t.Helper()
	buf, err := f.dev.Alloc(shape.DType, shape.Size())
	require.NoError(f.t, err)
	require.NoError(f.t, f.dev.ToDevice(buf, flat))
	return device.Pin(shape, buf)
}

func download[T dtypes.Supported](t *testing.T, dev *devsim.Device, arr device.Array) []T {
	t.Helper()
	flat := make([]T, arr.Shape.Size())
	require.NoError(t, dev.FromDevice(flat, arr.Data.Buf))
	return flat
}

func resultArray(t *testing.T, v any) device.Array {
	t.Helper()
	arr, ok := v.(device.Array)
	require.True(t, ok, "expected an array result, got %T", v)
	return arr
}

// addFn is a representative elementwise expression; the simulator only
// consults the tree through its hash, the behavior lives in the kernel.
func addFn(c int32) *ast.Expr {
	return ast.PrimApp(ast.PrimAdd, ast.Tuple(ast.Var(0), ast.Const(c)))
}

func combineAdd() *ast.Expr {
	return ast.PrimApp(ast.PrimAdd, ast.Tuple(ast.Prj(0, ast.Var(0)), ast.Prj(1, ast.Var(0))))
}

func TestRunMap(t *testing.T) {
	f := newFixture(t)
	in := f.upload32(shapes.Make(dtypes.Float32, 2, 3), []float32{1, 2, 3, 4, 5, 6})

	root := ast.Map(addFn(1), ast.Use(in))
	f.register(root, map[string]devsim.KernelFunc{
		"map": devsim.MapKernel(func(v float32) float32 { return v + 1 }),
	})

	v, err := f.eng.Run(root)
	require.NoError(t, err)
	out := resultArray(t, v)
	assert.Equal(t, []int{2, 3}, out.Shape.Dimensions)
	assert.Equal(t, []float32{2, 3, 4, 5, 6, 7}, download[float32](t, f.dev, out))

	require.NoError(t, out.Release(f.dev))
	assert.Equal(t, 1, f.dev.LiveBuffers(), "only the caller's input remains")
	assert.True(t, in.Valid(), "pinned inputs are never freed")
}

func TestRunMapChangesDType(t *testing.T) {
	f := newFixture(t)
	in := f.uploadInts(shapes.Make(dtypes.Int32, 4), []int32{1, 2, 3, 4})

	root := ast.Map(ast.FromIntegral(dtypes.Float32, ast.Var(0)), ast.Use(in)).
		WithOutput(dtypes.Float32)
	f.register(root, map[string]devsim.KernelFunc{
		"map": devsim.MapKernel(func(v int32) float32 { return float32(v) }),
	})

	v, err := f.eng.Run(root)
	require.NoError(t, err)
	out := resultArray(t, v)
	assert.Equal(t, dtypes.Float32, out.Shape.DType)
	assert.Equal(t, []float32{1, 2, 3, 4}, download[float32](t, f.dev, out))
	require.NoError(t, out.Release(f.dev))
}

func TestRunZipWithIntersection(t *testing.T) {
	f := newFixture(t)
	a := f.upload32(shapes.Make(dtypes.Float32, 3, 4), []float32{
		1, 2, 3, 4,
		5, 6, 7, 8,
		9, 10, 11, 12,
	})
	b := f.upload32(shapes.Make(dtypes.Float32, 2, 3), []float32{
		100, 200, 300,
		400, 500, 600,
	})

	root := ast.ZipWith(combineAdd(), ast.Use(a), ast.Use(b))
	f.register(root, map[string]devsim.KernelFunc{
		"zipWith": devsim.ZipWithKernel(2, func(x, y float32) float32 { return x + y }),
	})

	v, err := f.eng.Run(root)
	require.NoError(t, err)
	out := resultArray(t, v)
	// The result covers the per-axis minimum of both index spaces; each
	// operand is read at its own strides.
	assert.Equal(t, []int{2, 3}, out.Shape.Dimensions)
	assert.Equal(t, []float32{101, 202, 303, 405, 506, 607}, download[float32](t, f.dev, out))
	require.NoError(t, out.Release(f.dev))
	assert.Equal(t, 2, f.dev.LiveBuffers())
}

func TestRunLetSharing(t *testing.T) {
	f := newFixture(t)
	in := f.upload32(shapes.Make(dtypes.Float32, 4), []float32{1, 2, 3, 4})

	doubled := ast.Map(addFn(0), ast.Use(in))
	root := ast.Let(doubled, ast.ZipWith(combineAdd(), ast.ArrayVar(0), ast.ArrayVar(0)))
	f.register(doubled, map[string]devsim.KernelFunc{
		"map": devsim.MapKernel(func(v float32) float32 { return 2 * v }),
	})
	f.register(root.Args[1], map[string]devsim.KernelFunc{
		"zipWith": devsim.ZipWithKernel(1, func(x, y float32) float32 { return x + y }),
	})

	v, err := f.eng.Run(root)
	require.NoError(t, err)
	out := resultArray(t, v)
	assert.Equal(t, []float32{4, 8, 12, 16}, download[float32](t, f.dev, out))
	require.NoError(t, out.Release(f.dev))

	// The let-bound intermediate was shared by both zip operands and
	// freed exactly once, when the binding went out of scope.
	assert.Equal(t, 1, f.dev.LiveBuffers())
	assert.Equal(t, int64(2), f.dev.AllocCount.Load()-1, "one intermediate, one result beyond the input")
}

func TestRunUnit(t *testing.T) {
	f := newFixture(t)
	root := ast.Unit(ast.PrimApp(ast.PrimMul, ast.Tuple(ast.Const(int32(6)), ast.Const(int32(7)))))

	v, err := f.eng.Run(root)
	require.NoError(t, err)
	out := resultArray(t, v)
	assert.True(t, out.Shape.IsScalar())
	assert.Equal(t, []int32{42}, download[int32](t, f.dev, out))
	require.NoError(t, out.Release(f.dev))
	assert.Equal(t, 0, f.dev.LiveBuffers())
}

func TestRunReshape(t *testing.T) {
	f := newFixture(t)
	in := f.upload32(shapes.Make(dtypes.Float32, 2, 3), []float32{1, 2, 3, 4, 5, 6})

	root := ast.Reshape(ast.Tuple(ast.Const(int32(3)), ast.Const(int32(2))), ast.Use(in))
	v, err := f.eng.Run(root)
	require.NoError(t, err)
	out := resultArray(t, v)
	assert.Equal(t, []int{3, 2}, out.Shape.Dimensions)
	// No copy: the payload is the input's own storage.
	assert.Equal(t, []float32{1, 2, 3, 4, 5, 6}, download[float32](t, f.dev, out))
	require.NoError(t, out.Release(f.dev))
	assert.True(t, in.Valid())
}

func TestRunReshapeSizeMismatch(t *testing.T) {
	f := newFixture(t)
	in := f.upload32(shapes.Make(dtypes.Float32, 2, 3), make([]float32, 6))
	allocsBefore := f.dev.AllocCount.Load()

	root := ast.Reshape(ast.Tuple(ast.Const(int32(4)), ast.Const(int32(2))), ast.Use(in))
	_, err := f.eng.Run(root)
	var mismatch *exec.ShapeMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, []int{2, 3}, mismatch.Source.Dimensions)
	assert.Equal(t, []int{4, 2}, mismatch.Target.Dimensions)
	assert.Equal(t, allocsBefore, f.dev.AllocCount.Load(), "no result is allocated")
	assert.Equal(t, 1, f.dev.LiveBuffers(), "nothing leaked on the error path")
}

func TestRunFoldMultiPass(t *testing.T) {
	// Small launch knobs force a multi-pass reduction.
	t.Setenv("ACCEL_MAX_BLOCK_THREADS", "32")
	t.Setenv("ACCEL_MAX_GRID", "4")
	f := newFixture(t)

	n := 1000
	flat := make([]int32, n)
	for i := range flat {
		flat[i] = 1
	}
	in := f.uploadInts(shapes.Make(dtypes.Int32, n), flat)

	root := ast.Fold(combineAdd(), ast.Use(in))
	f.register(root, map[string]devsim.KernelFunc{
		"fold": devsim.FoldKernel(func(x, y int32) int32 { return x + y }),
	})

	v, err := f.eng.Run(root)
	require.NoError(t, err)
	out := resultArray(t, v)
	assert.True(t, out.Shape.IsScalar(), "reduction recurses until a single element remains")
	assert.Equal(t, []int32{int32(n)}, download[int32](t, f.dev, out))
	assert.Equal(t, int64(2), f.dev.LaunchCount.Load(), "first pass leaves 4 partials, second finishes")
	assert.Equal(t, int64(1), f.dev.LoadCount.Load(), "both passes reuse the one cached module")

	require.NoError(t, out.Release(f.dev))
	assert.Equal(t, 1, f.dev.LiveBuffers())
}

func TestRunFoldSingleElement(t *testing.T) {
	f := newFixture(t)
	in := f.uploadInts(shapes.Make(dtypes.Int32, 1), []int32{7})

	root := ast.Fold(combineAdd(), ast.Use(in))
	f.register(root, map[string]devsim.KernelFunc{
		"fold": devsim.FoldKernel(func(x, y int32) int32 { return x + y }),
	})
	v, err := f.eng.Run(root)
	require.NoError(t, err)
	out := resultArray(t, v)
	assert.Equal(t, []int32{7}, download[int32](t, f.dev, out))
	assert.Equal(t, int64(1), f.dev.LaunchCount.Load())
	require.NoError(t, out.Release(f.dev))
}

func TestRunFoldSeg(t *testing.T) {
	f := newFixture(t)
	data := f.uploadInts(shapes.Make(dtypes.Int32, 6), []int32{1, 2, 3, 4, 5, 6})
	segs := f.uploadInts(shapes.Make(dtypes.Int32, 3), []int32{2, 3, 1})

	root := ast.FoldSeg(combineAdd(), ast.Use(data), ast.Use(segs))
	f.register(root, map[string]devsim.KernelFunc{
		"fold_segmented": devsim.FoldSegKernel(func(x, y int32) int32 { return x + y }),
	})

	v, err := f.eng.Run(root)
	require.NoError(t, err)
	out := resultArray(t, v)
	assert.Equal(t, []int{3}, out.Shape.Dimensions)
	assert.Equal(t, []int32{3, 12, 6}, download[int32](t, f.dev, out))
	require.NoError(t, out.Release(f.dev))
	assert.Equal(t, 2, f.dev.LiveBuffers())
}

func TestRunScan(t *testing.T) {
	t.Setenv("ACCEL_MAX_BLOCK_THREADS", "32")
	f := newFixture(t)

	n := 100
	flat := make([]int32, n)
	for i := range flat {
		flat[i] = 1
	}
	in := f.uploadInts(shapes.Make(dtypes.Int32, n), flat)

	root := ast.Scanl(combineAdd(), ast.Use(in))
	f.register(root, map[string]devsim.KernelFunc{
		"inclusive_scan":   devsim.ScanKernel(func(x, y int32) int32 { return x + y }),
		"exclusive_update": devsim.UpdateKernel(func(x, y int32) int32 { return x + y }),
	})

	v, err := f.eng.Run(root)
	require.NoError(t, err)
	pair, ok := v.(interp.Tuple)
	require.True(t, ok, "scan produces a pair, got %T", v)
	require.Len(t, pair, 2)

	out := resultArray(t, pair[0])
	total := resultArray(t, pair[1])

	scanned := download[int32](t, f.dev, out)
	for i := 0; i < n; i++ {
		require.Equal(t, int32(i+1), scanned[i], "prefix at %d", i)
	}
	assert.True(t, total.Shape.IsScalar())
	assert.Equal(t, []int32{int32(n)}, download[int32](t, f.dev, total))
	assert.Equal(t, int64(3), f.dev.LaunchCount.Load(), "per-block scan, block-sum scan, distribute")

	require.NoError(t, out.Release(f.dev))
	require.NoError(t, total.Release(f.dev))
	assert.Equal(t, 1, f.dev.LiveBuffers(), "the block-sums scratch array was freed")
}

func TestRunScanSingleBlock(t *testing.T) {
	f := newFixture(t)
	in := f.uploadInts(shapes.Make(dtypes.Int32, 5), []int32{1, 2, 3, 4, 5})

	root := ast.Scanr(combineAdd(), ast.Use(in))
	f.register(root, map[string]devsim.KernelFunc{
		"inclusive_scan":   devsim.ScanKernel(func(x, y int32) int32 { return x + y }),
		"exclusive_update": devsim.UpdateKernel(func(x, y int32) int32 { return x + y }),
	})

	v, err := f.eng.Run(root)
	require.NoError(t, err)
	pair := v.(interp.Tuple)
	out := resultArray(t, pair[0])
	total := resultArray(t, pair[1])
	assert.Equal(t, []int32{1, 3, 6, 10, 15}, download[int32](t, f.dev, out))
	assert.Equal(t, []int32{15}, download[int32](t, f.dev, total))
	require.NoError(t, out.Release(f.dev))
	require.NoError(t, total.Release(f.dev))
}

func TestRunScanBlockBoundaries(t *testing.T) {
	// Sizes straddling the block width: single element, partial block,
	// exact block, one element over, and a many-block run.
	t.Setenv("ACCEL_MAX_BLOCK_THREADS", "32")
	for _, n := range []int{1, 2, 31, 32, 33, 257} {
		f := newFixture(t)
		flat := make([]int32, n)
		for i := range flat {
			flat[i] = 1
		}
		in := f.uploadInts(shapes.Make(dtypes.Int32, n), flat)

		root := ast.Scanl(combineAdd(), ast.Use(in))
		f.register(root, map[string]devsim.KernelFunc{
			"inclusive_scan":   devsim.ScanKernel(func(x, y int32) int32 { return x + y }),
			"exclusive_update": devsim.UpdateKernel(func(x, y int32) int32 { return x + y }),
		})

		v, err := f.eng.Run(root)
		require.NoError(t, err, "n=%d", n)
		pair := v.(interp.Tuple)
		out := resultArray(t, pair[0])
		total := resultArray(t, pair[1])

		scanned := download[int32](t, f.dev, out)
		for i := 0; i < n; i++ {
			require.Equal(t, int32(i+1), scanned[i], "n=%d prefix at %d", n, i)
		}
		require.Equal(t, []int32{int32(n)}, download[int32](t, f.dev, total), "n=%d", n)

		require.NoError(t, out.Release(f.dev))
		require.NoError(t, total.Release(f.dev))
		assert.Equal(t, 1, f.dev.LiveBuffers(), "n=%d: only the pinned input remains", n)
	}
}

func TestRunLet2ConsumesScan(t *testing.T) {
	f := newFixture(t)
	in := f.uploadInts(shapes.Make(dtypes.Int32, 4), []int32{1, 2, 3, 4})

	scan := ast.Scanl(combineAdd(), ast.Use(in))
	f.register(scan, map[string]devsim.KernelFunc{
		"inclusive_scan":   devsim.ScanKernel(func(x, y int32) int32 { return x + y }),
		"exclusive_update": devsim.UpdateKernel(func(x, y int32) int32 { return x + y }),
	})

	// Index 1 is the scanned array, index 0 the one-element total.
	root := ast.Let2(scan, ast.ArrayVar(1))
	v, err := f.eng.Run(root)
	require.NoError(t, err)
	out := resultArray(t, v)
	assert.Equal(t, []int32{1, 3, 6, 10}, download[int32](t, f.dev, out))

	require.NoError(t, out.Release(f.dev))
	// The unused total was released when the binding went out of scope.
	assert.Equal(t, 1, f.dev.LiveBuffers())
}

func TestRunPermute(t *testing.T) {
	f := newFixture(t)
	defaults := f.uploadInts(shapes.Make(dtypes.Int32, 3), []int32{100, 100, 100})
	src := f.uploadInts(shapes.Make(dtypes.Int32, 5), []int32{1, 2, 3, 4, 5})

	// Everything scatters onto index 0; collisions resolve by addition
	// with whatever is already there, starting from the defaults.
	perm := ast.Tuple(ast.Const(int32(0)))
	root := ast.Permute(combineAdd(), perm, ast.Use(defaults), ast.Use(src))
	f.register(root, map[string]devsim.KernelFunc{
		"permute": devsim.PermuteKernel(1, 1,
			func(v, cur int32) int32 { return v + cur },
			func(index []int) []int { return []int{0} }),
	})

	v, err := f.eng.Run(root)
	require.NoError(t, err)
	out := resultArray(t, v)
	assert.Equal(t, []int32{115, 100, 100}, download[int32](t, f.dev, out))

	// The defaults array itself is untouched: the kernel wrote into a copy.
	assert.Equal(t, []int32{100, 100, 100}, download[int32](t, f.dev, defaults))
	require.NoError(t, out.Release(f.dev))
	assert.Equal(t, 2, f.dev.LiveBuffers())
}

func TestRunBackpermute(t *testing.T) {
	f := newFixture(t)
	in := f.uploadInts(shapes.Make(dtypes.Int32, 5), []int32{1, 2, 3, 4, 5})

	shape := ast.Tuple(ast.Const(int32(5)))
	perm := ast.Tuple(ast.Var(0)) // tree side; the simulated kernel reverses
	root := ast.Backpermute(shape, perm, ast.Use(in))
	f.register(root, map[string]devsim.KernelFunc{
		"backpermute": devsim.BackpermuteKernel[int32](1, 1,
			func(index []int) []int { return []int{4 - index[0]} }),
	})

	v, err := f.eng.Run(root)
	require.NoError(t, err)
	out := resultArray(t, v)
	assert.Equal(t, []int32{5, 4, 3, 2, 1}, download[int32](t, f.dev, out))
	require.NoError(t, out.Release(f.dev))
}

func TestRunReplicate(t *testing.T) {
	f := newFixture(t)
	in := f.uploadInts(shapes.Make(dtypes.Int32, 3), []int32{1, 2, 3})

	// Broadcast a row vector into two rows: result axis 0 is fixed with
	// extent 2, axis 1 passes through.
	root := ast.Replicate([]bool{true, false}, ast.Tuple(ast.Const(int32(2))), ast.Use(in))
	f.register(root, map[string]devsim.KernelFunc{
		"replicate": devsim.ReplicateKernel[int32](2, 1, []bool{true, false}),
	})

	v, err := f.eng.Run(root)
	require.NoError(t, err)
	out := resultArray(t, v)
	assert.Equal(t, []int{2, 3}, out.Shape.Dimensions)
	assert.Equal(t, []int32{1, 2, 3, 1, 2, 3}, download[int32](t, f.dev, out))
	require.NoError(t, out.Release(f.dev))
}

func TestRunSlice(t *testing.T) {
	f := newFixture(t)
	in := f.uploadInts(shapes.Make(dtypes.Int32, 3, 4), []int32{
		0, 1, 2, 3,
		10, 11, 12, 13,
		20, 21, 22, 23,
	})

	// Fix axis 0 at position 1, keep axis 1: extract the middle row.
	root := ast.Slice([]bool{true, false}, ast.Tuple(ast.Const(int32(1))), ast.Use(in))
	f.register(root, map[string]devsim.KernelFunc{
		"slice": devsim.SliceKernel[int32](1, 2),
	})

	v, err := f.eng.Run(root)
	require.NoError(t, err)
	out := resultArray(t, v)
	assert.Equal(t, []int{4}, out.Shape.Dimensions)
	assert.Equal(t, []int32{10, 11, 12, 13}, download[int32](t, f.dev, out))
	require.NoError(t, out.Release(f.dev))
}

func TestRunSliceOutOfBounds(t *testing.T) {
	f := newFixture(t)
	in := f.uploadInts(shapes.Make(dtypes.Int32, 3, 4), make([]int32, 12))
	allocsBefore := f.dev.AllocCount.Load()

	root := ast.Slice([]bool{true, false}, ast.Tuple(ast.Const(int32(3))), ast.Use(in))
	_, err := f.eng.Run(root)
	var oob *exec.IndexOutOfBoundsError
	require.ErrorAs(t, err, &oob)
	assert.Equal(t, 0, oob.Axis)
	assert.Equal(t, 3, oob.Index)
	assert.Equal(t, 3, oob.Extent)
	assert.Equal(t, allocsBefore, f.dev.AllocCount.Load(), "bounds are checked before any allocation")
	assert.Equal(t, int64(0), f.dev.LaunchCount.Load())
}

func TestRunKernelCacheMiss(t *testing.T) {
	f := newFixture(t)
	in := f.upload32(shapes.Make(dtypes.Float32, 4), make([]float32, 4))

	// A skeleton node whose hash was never registered is a violated
	// precondition of the compilation stage, surfaced as a typed error.
	root := ast.Map(addFn(1), ast.Use(in))
	_, err := f.eng.Run(root)
	var miss *exec.KernelCacheMissError
	require.ErrorAs(t, err, &miss)
	assert.Equal(t, codegen.StructuralHash(root), miss.Key)
	assert.Equal(t, 1, f.dev.LiveBuffers(), "nothing leaked")
}

func TestRunErrorFreesIntermediates(t *testing.T) {
	f := newFixture(t)
	in := f.upload32(shapes.Make(dtypes.Float32, 4), []float32{1, 2, 3, 4})

	stage1 := ast.Map(addFn(1), ast.Use(in))
	root := ast.Fold(combineAdd(), stage1) // fold kernel never registered
	f.register(stage1, map[string]devsim.KernelFunc{
		"map": devsim.MapKernel(func(v float32) float32 { return v + 1 }),
	})

	_, err := f.eng.Run(root)
	require.Error(t, err)
	// The map intermediate had already been produced when the fold
	// failed; the unwind freed it.
	assert.Equal(t, 1, f.dev.LiveBuffers())
	assert.True(t, in.Valid())
}

func TestRunNestedPipeline(t *testing.T) {
	f := newFixture(t)
	in := f.upload32(shapes.Make(dtypes.Float32, 8), []float32{1, 2, 3, 4, 5, 6, 7, 8})

	mapped := ast.Map(addFn(1), ast.Use(in))
	root := ast.Fold(combineAdd(), mapped)
	f.register(mapped, map[string]devsim.KernelFunc{
		"map": devsim.MapKernel(func(v float32) float32 { return v + 1 }),
	})
	f.register(root, map[string]devsim.KernelFunc{
		"fold": devsim.FoldKernel(func(x, y float32) float32 { return x + y }),
	})

	v, err := f.eng.Run(root)
	require.NoError(t, err)
	out := resultArray(t, v)
	assert.Equal(t, []float32{44}, download[float32](t, f.dev, out))
	require.NoError(t, out.Release(f.dev))
	assert.Equal(t, 1, f.dev.LiveBuffers())
}
