package geometry

import (
	"math"
	"strconv"

	"github.com/wippyai/xatlas-go/errors"
)

// MaxIndex is the largest vertex index the xatlas module accepts.
const MaxIndex = math.MaxUint16

// IndexArray returns attr as a uint16 index slice. A packed uint16 attribute
// is returned without copying; anything else is converted, failing with an
// overflow error on the first value that does not fit.
func IndexArray(attr Attribute) ([]uint16, error) {
	if attr == nil {
		return nil, errors.NilPointer(errors.PhaseCoerce, []string{"index"}, "index attribute")
	}
	if a, ok := attr.(*BufferAttribute[uint16]); ok && a.itemSize == 1 {
		return a.Array, nil
	}

	out := make([]uint16, attr.Count())
	for i := range out {
		v := attr.Component(i, 0)
		if v < 0 || v > MaxIndex || v != math.Trunc(v) {
			return nil, errors.New(errors.PhaseCoerce, errors.KindOverflow).
				Path("index", strconv.Itoa(i)).
				Value(v).
				Detail("index buffer must be convertible to uint16: value %v at %d exceeds %d", v, i, MaxIndex).
				Build()
		}
		out[i] = uint16(v)
	}
	return out, nil
}

// Float32Array returns the attribute's components as a flat float32 slice.
// Packed float32 attributes are returned as-is; interleaved or non-float
// storage is copied.
func Float32Array(attr Attribute) []float32 {
	if attr == nil {
		return nil
	}
	if a, ok := attr.(*BufferAttribute[float32]); ok {
		return a.Array
	}

	size := attr.ItemSize()
	count := attr.Count()
	out := make([]float32, count*size)
	for i := 0; i < count; i++ {
		for c := 0; c < size; c++ {
			out[i*size+c] = float32(attr.Component(i, c))
		}
	}
	return out
}
