package exec

import (
	"encoding/binary"
	"math"

	"github.com/gomlx/exceptions"
	"github.com/x448/float16"

	"github.com/nushio3/accelerate/device"
	"github.com/nushio3/accelerate/interp"
	"github.com/nushio3/accelerate/types/shapes"
)

// The argument marshaller converts a heterogeneous, possibly nested
// argument bundle into the ABI byte image of a kernel parameter list:
// little-endian, each argument at its natural alignment.
//
// Supported: nil (empty bundle), primitive numeric scalars, bool, device
// pointers and pointer sequences, []int32 word sequences, tuples up to
// arity six (field by field, declaration order), and device.Array -- whose
// payload marshals through its channel-pointer representation rather than
// the generic pointer case, because one payload may be a tuple of channel
// pointers.

const maxTupleArity = 6

// paramBuffer accumulates argument bytes.
type paramBuffer struct {
	raw []byte
}

func (p *paramBuffer) align(n int) {
	for len(p.raw)%n != 0 {
		p.raw = append(p.raw, 0)
	}
}

func (p *paramBuffer) word32(v uint32) {
	p.align(4)
	p.raw = binary.LittleEndian.AppendUint32(p.raw, v)
}

func (p *paramBuffer) word64(v uint64) {
	p.align(8)
	p.raw = binary.LittleEndian.AppendUint64(p.raw, v)
}

// marshal appends one argument value.
func (e *Engine) marshal(p *paramBuffer, arg any) {
	switch v := arg.(type) {
	case nil:
		// Empty bundle: contributes nothing.
	case bool:
		if v {
			p.word32(1)
		} else {
			p.word32(0)
		}
	case int8:
		p.word32(uint32(int32(v)))
	case int16:
		p.word32(uint32(int32(v)))
	case int32:
		p.word32(uint32(v))
	case int64:
		p.word64(uint64(v))
	case int:
		p.word64(uint64(int64(v)))
	case uint8:
		p.word32(uint32(v))
	case uint16:
		p.word32(uint32(v))
	case uint32:
		p.word32(v)
	case uint64:
		p.word64(v)
	case float16.Float16:
		p.word32(uint32(v.Bits()))
	case float32:
		p.word32(math.Float32bits(v))
	case float64:
		p.word64(math.Float64bits(v))
	case uintptr:
		p.word64(uint64(v))
	case device.Ptr:
		p.word64(uint64(v))
	case []device.Ptr:
		for _, ptr := range v {
			p.word64(uint64(ptr))
		}
	case []int32:
		for _, w := range v {
			p.word32(uint32(w))
		}
	case shapes.Shape:
		// Shapes linearize through convertIx.
		for _, w := range convertIx(v) {
			p.word32(uint32(w))
		}
	case device.Array:
		for _, ptr := range e.mem.Pointers(v.Data.Buf) {
			p.word64(uint64(ptr))
		}
	case interp.Tuple:
		if len(v) > maxTupleArity {
			exceptions.Panicf("marshalling a tuple of arity %d, the ABI stops at %d", len(v), maxTupleArity)
		}
		for _, field := range v {
			e.marshal(p, field)
		}
	case []any:
		for _, item := range v {
			e.marshal(p, item)
		}
	default:
		exceptions.Panicf("no ABI marshalling for argument of type %T", arg)
	}
}

// marshalArgs builds the full parameter image, arguments in call order.
func (e *Engine) marshalArgs(args ...any) []byte {
	p := &paramBuffer{}
	for _, arg := range args {
		e.marshal(p, arg)
	}
	return p.raw
}

// convertIx linearizes a shape for the device: reversed 32-bit extents,
// except a zero-dimensional (scalar) shape linearizes to a single-element
// sequence holding 1. All consumers of device shape data special-case the
// 0-d case identically.
func convertIx(s shapes.Shape) []int32 {
	return s.DeviceExtents()
}
