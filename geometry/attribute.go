package geometry

// Number is the set of element types attribute storage may use.
type Number interface {
	~int8 | ~uint8 | ~int16 | ~uint16 | ~int32 | ~uint32 | ~float32 | ~float64
}

// Attribute is a per-vertex (or per-index) buffer view.
type Attribute interface {
	// Count returns the number of items (vertices) in the attribute.
	Count() int
	// ItemSize returns the number of components per item.
	ItemSize() int
	// Normalized reports whether integer components map to [0,1] or [-1,1].
	Normalized() bool
	Component(index, component int) float64
	SetComponent(index, component int, value float64)
	// Gather returns a packed attribute of the same element type holding, for
	// each i, the item at indexes[i]. Indexes must be in range.
	Gather(indexes []uint32) Attribute
}

// BufferAttribute stores itemSize components per vertex contiguously.
type BufferAttribute[T Number] struct {
	Array      []T
	itemSize   int
	normalized bool
}

// NewBufferAttribute wraps array without copying it.
func NewBufferAttribute[T Number](array []T, itemSize int, normalized bool) *BufferAttribute[T] {
	if itemSize < 1 {
		itemSize = 1
	}
	return &BufferAttribute[T]{Array: array, itemSize: itemSize, normalized: normalized}
}

func (a *BufferAttribute[T]) Count() int       { return len(a.Array) / a.itemSize }
func (a *BufferAttribute[T]) ItemSize() int    { return a.itemSize }
func (a *BufferAttribute[T]) Normalized() bool { return a.normalized }

func (a *BufferAttribute[T]) Component(index, component int) float64 {
	return float64(a.Array[index*a.itemSize+component])
}

func (a *BufferAttribute[T]) SetComponent(index, component int, value float64) {
	a.Array[index*a.itemSize+component] = T(value)
}

func (a *BufferAttribute[T]) Gather(indexes []uint32) Attribute {
	size := a.itemSize
	out := make([]T, len(indexes)*size)
	for i, src := range indexes {
		s := int(src) * size
		copy(out[i*size:(i+1)*size], a.Array[s:s+size])
	}
	return NewBufferAttribute(out, size, a.normalized)
}

// InterleavedBuffer holds several attributes in one array, Stride elements
// per vertex.
type InterleavedBuffer[T Number] struct {
	Array  []T
	Stride int
}

// Count returns the number of vertices in the buffer.
func (b *InterleavedBuffer[T]) Count() int {
	if b.Stride == 0 {
		return 0
	}
	return len(b.Array) / b.Stride
}

// InterleavedAttribute is one attribute inside an InterleavedBuffer.
type InterleavedAttribute[T Number] struct {
	Data       *InterleavedBuffer[T]
	itemSize   int
	offset     int
	normalized bool
}

// NewInterleavedAttribute views itemSize elements starting at offset within
// each stride of data.
func NewInterleavedAttribute[T Number](data *InterleavedBuffer[T], itemSize, offset int, normalized bool) *InterleavedAttribute[T] {
	return &InterleavedAttribute[T]{Data: data, itemSize: itemSize, offset: offset, normalized: normalized}
}

func (a *InterleavedAttribute[T]) Count() int       { return a.Data.Count() }
func (a *InterleavedAttribute[T]) ItemSize() int    { return a.itemSize }
func (a *InterleavedAttribute[T]) Normalized() bool { return a.normalized }
func (a *InterleavedAttribute[T]) Offset() int      { return a.offset }

func (a *InterleavedAttribute[T]) Component(index, component int) float64 {
	return float64(a.Data.Array[index*a.Data.Stride+a.offset+component])
}

func (a *InterleavedAttribute[T]) SetComponent(index, component int, value float64) {
	a.Data.Array[index*a.Data.Stride+a.offset+component] = T(value)
}

// Gather de-interleaves into a packed BufferAttribute of the same element type.
func (a *InterleavedAttribute[T]) Gather(indexes []uint32) Attribute {
	size := a.itemSize
	out := make([]T, len(indexes)*size)
	for i, src := range indexes {
		s := int(src)*a.Data.Stride + a.offset
		copy(out[i*size:(i+1)*size], a.Data.Array[s:s+size])
	}
	return NewBufferAttribute(out, size, a.normalized)
}
