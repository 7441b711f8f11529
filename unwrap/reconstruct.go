package unwrap

import (
	"slices"

	"go.uber.org/zap"

	"github.com/wippyai/xatlas-go/errors"
	"github.com/wippyai/xatlas-go/geometry"
	"github.com/wippyai/xatlas-go/native"
)

// reconstruct writes every result back into the geometry it came from.
// Results that match no submitted geometry, or that fail validation, are
// logged and left out of Geometries.
func (u *Unwrapper) reconstruct(atlas *native.Atlas, added map[string]*geometry.Geometry, outputUV, inputUV string) *Atlas {
	out := &Atlas{
		Meshes:        atlas.Meshes,
		Images:        atlas.Images,
		Width:         atlas.Width,
		Height:        atlas.Height,
		AtlasCount:    atlas.AtlasCount,
		ChartCount:    atlas.ChartCount,
		MeshCount:     atlas.MeshCount,
		TexelsPerUnit: atlas.TexelsPerUnit,
	}

	done := make(map[string]bool, len(added))
	for i := range atlas.Meshes {
		m := &atlas.Meshes[i]
		g, ok := added[m.ID]
		if !ok {
			u.logger.Error("geometry not found", zap.String("id", m.ID))
			continue
		}
		if done[m.ID] {
			u.logger.Error("duplicate result for geometry", zap.String("id", m.ID))
			continue
		}
		done[m.ID] = true
		if err := rebuild(g, m, outputUV, inputUV); err != nil {
			u.logger.Error("reconstruct geometry", zap.String("id", m.ID), zap.Error(err))
			continue
		}
		out.Geometries = append(out.Geometries, g)
	}
	return out
}

// rebuild replaces g's buffers with m's. Attributes the result does not
// carry are gathered through m.OldIndexes. Nothing is written unless the
// whole result is consistent with g.
func rebuild(g *geometry.Geometry, m *native.MeshResult, outputUV, inputUV string) error {
	n := m.VertexCount()
	oldCount := g.VertexCount()

	maxOld := -1
	for _, old := range m.OldIndexes {
		if int(old) >= oldCount {
			return errors.OutOfBounds(errors.PhaseReconstruct, []string{g.ID, "oldIndexes"}, int(old), oldCount)
		}
		maxOld = max(maxOld, int(old))
	}

	set := make(map[string]geometry.Attribute, 4)
	if m.Positions != nil {
		set[geometry.AttrPosition] = geometry.NewBufferAttribute(m.Positions, 3, false)
	}
	if m.Normals != nil {
		set[geometry.AttrNormal] = geometry.NewBufferAttribute(m.Normals, 3, false)
	}
	if m.Coords1 != nil {
		set[outputUV] = geometry.NewBufferAttribute(m.Coords1, 2, false)
	}
	if m.Coords != nil && outputUV != inputUV {
		set[inputUV] = geometry.NewBufferAttribute(m.Coords, 2, false)
	}
	for name, a := range set {
		if a.Count() != n {
			return errors.InvalidData(errors.PhaseReconstruct, []string{g.ID, name},
				"result vertex count does not match oldIndexes")
		}
	}

	names := g.AttributeNames()
	for _, name := range names {
		if _, ok := set[name]; ok {
			continue
		}
		if c := g.Attribute(name).Count(); c <= maxOld {
			return errors.OutOfBounds(errors.PhaseReconstruct, []string{g.ID, name}, maxOld, c)
		}
	}

	for _, name := range names {
		if _, ok := set[name]; ok {
			continue
		}
		g.SetAttribute(name, g.Attribute(name).Gather(m.OldIndexes))
	}
	// fixed order so newly added slots append deterministically
	for _, name := range []string{geometry.AttrPosition, geometry.AttrNormal, outputUV, inputUV} {
		if a, ok := set[name]; ok {
			g.SetAttribute(name, a)
		}
	}
	if m.Index != nil {
		g.SetIndex(geometry.NewBufferAttribute(m.Index, 1, false))
	}
	if m.SubMeshes != nil {
		g.SubMeshes = slices.Clone(m.SubMeshes)
	}
	return nil
}
