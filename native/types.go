package native

import "github.com/wippyai/xatlas-go/geometry"

// MeshData is one mesh submitted to an open atlas session.
// Normals and UVs are nil when absent.
type MeshData struct {
	ID          string
	Indices     []uint16
	Positions   []float32
	Normals     []float32
	UVs         []float32
	UseNormals  bool
	UseInputUVs bool
	Scale       float32
}

// VertexCount returns the number of vertices in Positions.
func (m *MeshData) VertexCount() int {
	return len(m.Positions) / 3
}

// MeshResult is the unwrapped copy of one submitted mesh. Vertex counts may
// differ from the input because vertices on seams are split.
type MeshResult struct {
	ID        string
	Positions []float32
	Normals   []float32
	// Coords carries the input UVs through to the new vertices.
	Coords []float32
	// Coords1 holds the packed atlas UVs.
	Coords1 []float32
	Index   []uint32
	// OldIndexes maps each new vertex to the vertex it was copied from.
	OldIndexes []uint32
	SubMeshes  []geometry.SubMesh
}

// VertexCount returns the number of output vertices.
func (m *MeshResult) VertexCount() int {
	return len(m.OldIndexes)
}

// Atlas is the result of one GenerateAtlas call.
type Atlas struct {
	Meshes        []MeshResult
	Images        [][]uint32
	Width         int
	Height        int
	AtlasCount    int
	ChartCount    int
	MeshCount     int
	TexelsPerUnit float32
}
