package nativetest

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/wippyai/xatlas-go/geometry"
	"github.com/wippyai/xatlas-go/native"
)

const defaultResolution = 256

// cellPadding is the fraction of a grid cell left empty on each side.
const cellPadding = 0.05

// layout splits every triangle into its own chart and packs the charts into
// a square grid on a single atlas page.
func layout(meshes []native.MeshData, pack native.PackOptions) *native.Atlas {
	charts := 0
	for i := range meshes {
		charts += len(meshes[i].Indices) / 3
	}
	cols := int(math.Ceil(math.Sqrt(float64(charts))))
	if cols == 0 {
		cols = 1
	}
	cell := 1 / float64(cols)

	res := int(pack.Resolution)
	if res == 0 {
		res = defaultResolution
	}

	atlas := &native.Atlas{
		Width:         res,
		Height:        res,
		AtlasCount:    1,
		ChartCount:    charts,
		MeshCount:     len(meshes),
		TexelsPerUnit: pack.TexelsPerUnit,
		Meshes:        make([]native.MeshResult, len(meshes)),
	}

	chart := 0
	for i := range meshes {
		in := &meshes[i]
		tris := len(in.Indices) / 3
		n := tris * 3

		out := native.MeshResult{
			ID:         in.ID,
			Positions:  make([]float32, 0, n*3),
			Coords1:    make([]float32, 0, n*2),
			Index:      make([]uint32, n),
			OldIndexes: make([]uint32, n),
			SubMeshes:  []geometry.SubMesh{{Index: 0, Count: n, AtlasIndex: 0}},
		}
		if in.Normals != nil {
			out.Normals = make([]float32, 0, n*3)
		}
		if in.UVs != nil {
			out.Coords = make([]float32, 0, n*2)
		}

		for t := 0; t < tris; t++ {
			corners := [3]uint32{uint32(in.Indices[t*3]), uint32(in.Indices[t*3+1]), uint32(in.Indices[t*3+2])}
			uvs := project(vec(in.Positions, corners[0]), vec(in.Positions, corners[1]), vec(in.Positions, corners[2]))

			originU := float64(chart%cols) * cell
			originV := float64(chart/cols) * cell
			inner := cell * (1 - 2*cellPadding)

			for c, old := range corners {
				v := t*3 + c
				out.Index[v] = uint32(v)
				out.OldIndexes[v] = old
				out.Positions = append(out.Positions, in.Positions[old*3:old*3+3]...)
				if out.Normals != nil {
					out.Normals = append(out.Normals, in.Normals[old*3:old*3+3]...)
				}
				if out.Coords != nil {
					out.Coords = append(out.Coords, in.UVs[old*2:old*2+2]...)
				}
				out.Coords1 = append(out.Coords1,
					float32(originU+cell*cellPadding+uvs[c].X()*inner),
					float32(originV+cell*cellPadding+uvs[c].Y()*inner))
			}
			chart++
		}
		atlas.Meshes[i] = out
	}

	if pack.CreateImage {
		atlas.Images = [][]uint32{rasterize(res, cols, charts)}
	}
	return atlas
}

func vec(positions []float32, i uint32) mgl64.Vec3 {
	return mgl64.Vec3{float64(positions[i*3]), float64(positions[i*3+1]), float64(positions[i*3+2])}
}

// project flattens a triangle onto its own plane and scales it into the unit
// square. Degenerate triangles collapse to the origin.
func project(a, b, c mgl64.Vec3) [3]mgl64.Vec2 {
	var out [3]mgl64.Vec2

	e1 := b.Sub(a)
	e2 := c.Sub(a)
	n := e1.Cross(e2)
	if e1.Len() < 1e-12 || n.Len() < 1e-12 {
		return out
	}
	u := e1.Normalize()
	v := n.Normalize().Cross(u)

	out[1] = mgl64.Vec2{e1.Dot(u), e1.Dot(v)}
	out[2] = mgl64.Vec2{e2.Dot(u), e2.Dot(v)}

	minX, minY := 0.0, 0.0
	maxX, maxY := 0.0, 0.0
	for _, p := range out {
		minX, maxX = math.Min(minX, p.X()), math.Max(maxX, p.X())
		minY, maxY = math.Min(minY, p.Y()), math.Max(maxY, p.Y())
	}
	extent := math.Max(maxX-minX, maxY-minY)
	for i, p := range out {
		out[i] = mgl64.Vec2{(p.X() - minX) / extent, (p.Y() - minY) / extent}
	}
	return out
}

// rasterize fills each chart's grid cell with a color derived from its
// chart number. Unused cells stay transparent.
func rasterize(res, cols, charts int) []uint32 {
	page := make([]uint32, res*res)
	for y := 0; y < res; y++ {
		row := y * cols / res
		for x := 0; x < res; x++ {
			chart := row*cols + x*cols/res
			if chart >= charts {
				continue
			}
			page[y*res+x] = chartColor(chart)
		}
	}
	return page
}

// chartColor returns an opaque RGBA color, red in the low byte.
func chartColor(chart int) uint32 {
	h := uint32(chart+1) * 2654435761
	return 0xff000000 | h&0x00ffffff
}
