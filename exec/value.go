package exec

import (
	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/x448/float16"

	"github.com/nushio3/accelerate/device"
	"github.com/nushio3/accelerate/interp"
	"github.com/nushio3/accelerate/types/shapes"
)

// Runtime values are plain Go values: numeric scalars and bool for scalar
// results, interp.Tuple for tuples, device.Array for arrays, shapes.Shape
// for shape queries. Scan-style operations return an interp.Tuple of
// arrays.

// dtypeOf maps a host scalar value to its element type.
func dtypeOf(v any) dtypes.DType {
	switch v.(type) {
	case bool:
		return dtypes.Bool
	case int8:
		return dtypes.Int8
	case int16:
		return dtypes.Int16
	case int32:
		return dtypes.Int32
	case int64:
		return dtypes.Int64
	case uint8:
		return dtypes.Uint8
	case uint16:
		return dtypes.Uint16
	case uint32:
		return dtypes.Uint32
	case uint64:
		return dtypes.Uint64
	case float16.Float16:
		return dtypes.Float16
	case float32:
		return dtypes.Float32
	case float64:
		return dtypes.Float64
	}
	exceptions.Panicf("no element type for host value of type %T", v)
	return dtypes.InvalidDType
}

// singletonSlice wraps a host scalar in a one-element flat slice of its
// element type, ready for a device copy.
func singletonSlice(v any) any {
	switch av := v.(type) {
	case bool:
		return []bool{av}
	case int8:
		return []int8{av}
	case int16:
		return []int16{av}
	case int32:
		return []int32{av}
	case int64:
		return []int64{av}
	case uint8:
		return []uint8{av}
	case uint16:
		return []uint16{av}
	case uint32:
		return []uint32{av}
	case uint64:
		return []uint64{av}
	case float16.Float16:
		return []float16.Float16{av}
	case float32:
		return []float32{av}
	case float64:
		return []float64{av}
	}
	exceptions.Panicf("no flat representation for host value of type %T", v)
	return nil
}

// asArray asserts an evaluation result is an array value.
func asArray(v any) device.Array {
	arr, ok := v.(device.Array)
	if !ok {
		exceptions.Panicf("expected an array value, tree produced %T: malformed tree", v)
	}
	return arr
}

// extentsOf converts a host index value -- an integral or a tuple of
// integrals, outermost axis first -- into a shape of the given dtype.
func extentsOf(v any, dtype dtypes.DType) shapes.Shape {
	return shapes.Make(dtype, interp.AsInts(v)...)
}

// runScope tracks every payload one Run allocated, so a failing evaluation
// can free them all before unwinding. Successful paths free payloads
// eagerly after their last use; abort only touches what is still live.
type runScope struct {
	payloads []*device.Payload
}

func (s *runScope) track(arr device.Array) {
	s.payloads = append(s.payloads, arr.Data)
}

// abort force-frees every tracked payload that is still live. Pinned
// payloads are left alone.
func (s *runScope) abort(mem device.Memory) {
	for _, p := range s.payloads {
		_ = p.ForceFree(mem)
	}
}
