package ast

import (
	"testing"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nushio3/accelerate/device"
	"github.com/nushio3/accelerate/types/shapes"
)

func vec(n int) device.Array {
	return device.Pin(shapes.Make(dtypes.Float32, n), nil)
}

func TestNodeAccessors(t *testing.T) {
	arr := vec(4)
	use := Use(arr)
	require.Equal(t, NodeUse, use.Type)
	assert.Equal(t, arr, use.UseArray())

	v := ArrayVar(2)
	assert.Equal(t, 2, v.VarIndex())

	fixed := []bool{true, false}
	rep := Replicate(fixed, Tuple(Const(3)), use)
	assert.Equal(t, fixed, rep.FixedAxes())

	// Accessors panic on the wrong variant rather than returning junk.
	assert.Panics(t, func() { use.VarIndex() })
	assert.Panics(t, func() { v.UseArray() })
	assert.Panics(t, func() { use.FixedAxes() })
}

func TestArrayVarRejectsNegativeIndex(t *testing.T) {
	assert.Panics(t, func() { ArrayVar(-1) })
}

func TestIsSkeleton(t *testing.T) {
	fn := PrimApp(PrimAdd, Tuple(Var(0), Const(float32(1))))
	use := Use(vec(4))

	for _, n := range []*Node{use, ArrayVar(0), Let(use, ArrayVar(0)), Reshape(Tuple(Const(4)), use)} {
		assert.False(t, n.IsSkeleton(), n.Type.String())
	}
	for _, n := range []*Node{Unit(Const(float32(1))), Map(fn, use), Fold(fn, use), Scanl(fn, use)} {
		assert.True(t, n.IsSkeleton(), n.Type.String())
	}
}

func TestWithOutput(t *testing.T) {
	use := Use(vec(4))
	n := Map(PrimApp(PrimLt, Tuple(Var(0), Const(float32(0)))), use)
	require.Equal(t, dtypes.InvalidDType, n.Out)
	same := n.WithOutput(dtypes.Bool)
	assert.Same(t, n, same)
	assert.Equal(t, dtypes.Bool, n.Out)
}

func TestEnumNames(t *testing.T) {
	assert.Equal(t, "ZipWith", NodeZipWith.String())
	assert.Equal(t, "PrimApp", ExprPrimApp.String())
	assert.Equal(t, "Add", PrimAdd.String())
}
