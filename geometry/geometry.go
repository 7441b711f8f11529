package geometry

import (
	"slices"

	"github.com/google/uuid"
)

// Well-known attribute names.
const (
	AttrPosition = "position"
	AttrNormal   = "normal"
	AttrUV       = "uv"
	AttrUV2      = "uv2"
)

// SubMesh tags an index range with the atlas page it was packed into.
type SubMesh struct {
	Index      int `json:"index"`
	Count      int `json:"count"`
	AtlasIndex int `json:"atlasIndex"`
}

// Geometry is an indexed triangle mesh with named per-vertex attributes.
// The ID correlates a geometry with its entry in an atlas result.
type Geometry struct {
	ID   string
	Name string

	// WorldScale weights texel density for this mesh. Zero means 1.
	WorldScale float64

	// SubMeshes is filled in by the unwrapper after packing.
	SubMeshes []SubMesh

	index      Attribute
	attributes map[string]Attribute
	names      []string
}

// New returns an empty geometry with a fresh random ID.
func New() *Geometry {
	return &Geometry{
		ID:         uuid.NewString(),
		attributes: make(map[string]Attribute),
	}
}

func (g *Geometry) Index() Attribute     { return g.index }
func (g *Geometry) SetIndex(a Attribute) { g.index = a }

// Attribute returns the named attribute or nil.
func (g *Geometry) Attribute(name string) Attribute {
	return g.attributes[name]
}

// SetAttribute adds or replaces an attribute. Replacing keeps the original
// position in AttributeNames.
func (g *Geometry) SetAttribute(name string, a Attribute) {
	if g.attributes == nil {
		g.attributes = make(map[string]Attribute)
	}
	if _, ok := g.attributes[name]; !ok {
		g.names = append(g.names, name)
	}
	g.attributes[name] = a
}

func (g *Geometry) DeleteAttribute(name string) {
	if _, ok := g.attributes[name]; !ok {
		return
	}
	delete(g.attributes, name)
	g.names = slices.DeleteFunc(g.names, func(n string) bool { return n == name })
}

// AttributeNames returns attribute names in insertion order.
func (g *Geometry) AttributeNames() []string {
	return slices.Clone(g.names)
}

// VertexCount returns the item count of the position attribute.
func (g *Geometry) VertexCount() int {
	if p := g.attributes[AttrPosition]; p != nil {
		return p.Count()
	}
	return 0
}

// Scale returns WorldScale, defaulting to 1.
func (g *Geometry) Scale() float64 {
	if g.WorldScale == 0 {
		return 1
	}
	return g.WorldScale
}
