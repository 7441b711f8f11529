// Package geometry holds indexed triangle meshes and their per-vertex
// attribute buffers, and converts those buffers into the flat layouts the
// xatlas module consumes.
//
// An Attribute is a view over numeric storage with an item size (components
// per vertex) and a normalized flag. Two implementations are provided:
//
//	BufferAttribute[T]      tightly packed []T, itemSize components per vertex
//	InterleavedAttribute[T] one attribute inside a strided InterleavedBuffer[T]
//
// Components are read and written through Component/SetComponent so callers
// never need to know the storage layout. Gather re-indexes an attribute into
// a new packed buffer of the same element type, which is how attributes the
// unwrapper does not understand follow a mesh through seam splitting.
//
// # Coercion
//
//	IndexArray(index)    -> []uint16, fails with an overflow error past 65535
//	Float32Array(attr)   -> []float32, no copy for packed float32 attributes
package geometry
