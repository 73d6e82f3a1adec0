package exec

import (
	"testing"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nushio3/accelerate/ast"
	"github.com/nushio3/accelerate/device"
	"github.com/nushio3/accelerate/device/devsim"
	"github.com/nushio3/accelerate/types/shapes"
)

func testEngine(t *testing.T) (*Engine, *devsim.Device) {
	t.Helper()
	dev := devsim.New()
	e, err := New(Config{
		Driver:  dev,
		Memory:  dev,
		Kernels: NewKernelTable(),
		Hash:    func(n *ast.Node) string { return n.Type.String() },
	})
	require.NoError(t, err)
	return e, dev
}

// uploadTo allocates and fills a caller-owned (pinned) device array.
func uploadTo[T dtypes.Supported](t *testing.T, dev *devsim.Device, shape shapes.Shape, flat []T) device.Array {
	t.Helper()
	buf, err := dev.Alloc(shape.DType, shape.Size())
	require.NoError(t, err)
	require.NoError(t, dev.ToDevice(buf, flat))
	return device.Pin(shape, buf)
}

func evalScalarOn(t *testing.T, e *Engine, x *ast.Expr, arrays Env) any {
	t.Helper()
	v, err := e.evalScalar(x, Env{}, arrays, &runScope{})
	require.NoError(t, err)
	return v
}

func TestEvalScalarBasics(t *testing.T) {
	e, _ := testEngine(t)

	assert.Equal(t, int32(5), evalScalarOn(t, e, ast.Const(int32(5)), Env{}))

	sum := ast.PrimApp(ast.PrimAdd, ast.Tuple(ast.Const(int32(2)), ast.Const(int32(3))))
	assert.Equal(t, int32(5), evalScalarOn(t, e, sum, Env{}))

	pi := ast.PrimConst(ast.PrimPi, dtypes.Float32)
	assert.Equal(t, float32(3.1415927), evalScalarOn(t, e, pi, Env{}))

	prj := ast.Prj(1, ast.Tuple(ast.Const(int32(1)), ast.Const(int32(2))))
	assert.Equal(t, int32(2), evalScalarOn(t, e, prj, Env{}))

	cast := ast.FromIntegral(dtypes.Float64, ast.Const(int32(7)))
	assert.Equal(t, float64(7), evalScalarOn(t, e, cast, Env{}))
}

func TestEvalScalarCondTakesOneBranch(t *testing.T) {
	e, _ := testEngine(t)

	// The untaken branch references a binding that does not exist; it must
	// never be evaluated.
	poison := ast.PrimApp(ast.PrimAdd, ast.Tuple(ast.Var(9), ast.Const(int32(1))))

	taken := ast.Cond(ast.Const(true), ast.Const(int32(1)), poison)
	assert.Equal(t, int32(1), evalScalarOn(t, e, taken, Env{}))

	other := ast.Cond(ast.Const(false), poison, ast.Const(int32(2)))
	assert.Equal(t, int32(2), evalScalarOn(t, e, other, Env{}))

	assert.Panics(t, func() {
		_, _ = e.evalScalar(ast.Cond(ast.Const(true), poison, nil), Env{}, Env{}, &runScope{})
	})
}

func TestEvalScalarShapeQuery(t *testing.T) {
	e, dev := testEngine(t)
	arr := uploadTo(t, dev, shapes.Make(dtypes.Float32, 3, 4), make([]float32, 12))
	arrays := Env{}.Push(arr)

	v := evalScalarOn(t, e, ast.ArrayShape(ast.ArrayVar(0)), arrays)
	sh, ok := v.(shapes.Shape)
	require.True(t, ok)
	assert.Equal(t, []int{3, 4}, sh.Dimensions)

	// The query retained and released; the payload is still live.
	assert.True(t, arr.Valid())
	assert.Equal(t, 1, dev.LiveBuffers())
}

func TestEvalScalarIndexedRead(t *testing.T) {
	e, dev := testEngine(t)
	arr := uploadTo(t, dev, shapes.Make(dtypes.Int32, 2, 3), []int32{10, 11, 12, 13, 14, 15})
	arrays := Env{}.Push(arr)

	read := ast.ArrayRead(ast.ArrayVar(0), ast.Tuple(ast.Const(int32(1)), ast.Const(int32(2))))
	assert.Equal(t, int32(15), evalScalarOn(t, e, read, arrays))

	scalar := uploadTo(t, dev, shapes.Scalar(dtypes.Int32), []int32{42})
	read0 := ast.ArrayRead(ast.ArrayVar(0), ast.Tuple())
	assert.Equal(t, int32(42), evalScalarOn(t, e, read0, Env{}.Push(scalar)))

	assert.True(t, arr.Valid())
}
