package geometry

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Sphere builds a UV sphere with position, normal and uv attributes, laid out
// the same way as three.js SphereGeometry: (w+1)*(h+1) vertices with a seam
// column and degenerate-free pole caps.
func Sphere(radius float64, widthSegments, heightSegments int) *Geometry {
	widthSegments = max(3, widthSegments)
	heightSegments = max(2, heightSegments)

	vertexCount := (widthSegments + 1) * (heightSegments + 1)
	positions := make([]float32, 0, vertexCount*3)
	normals := make([]float32, 0, vertexCount*3)
	uvs := make([]float32, 0, vertexCount*2)
	grid := make([][]int, heightSegments+1)

	next := 0
	for iy := 0; iy <= heightSegments; iy++ {
		row := make([]int, widthSegments+1)
		v := float64(iy) / float64(heightSegments)

		// offset pole uvs so the cap triangles sample the middle of their cell
		uOffset := 0.0
		switch iy {
		case 0:
			uOffset = 0.5 / float64(widthSegments)
		case heightSegments:
			uOffset = -0.5 / float64(widthSegments)
		}

		for ix := 0; ix <= widthSegments; ix++ {
			u := float64(ix) / float64(widthSegments)
			p := mgl64.Vec3{
				-radius * math.Cos(u*2*math.Pi) * math.Sin(v*math.Pi),
				radius * math.Cos(v*math.Pi),
				radius * math.Sin(u*2*math.Pi) * math.Sin(v*math.Pi),
			}
			n := p.Normalize()

			positions = append(positions, float32(p.X()), float32(p.Y()), float32(p.Z()))
			normals = append(normals, float32(n.X()), float32(n.Y()), float32(n.Z()))
			uvs = append(uvs, float32(u+uOffset), float32(1-v))
			row[ix] = next
			next++
		}
		grid[iy] = row
	}

	var indices []uint32
	for iy := 0; iy < heightSegments; iy++ {
		for ix := 0; ix < widthSegments; ix++ {
			a := uint32(grid[iy][ix+1])
			b := uint32(grid[iy][ix])
			c := uint32(grid[iy+1][ix])
			d := uint32(grid[iy+1][ix+1])
			if iy != 0 {
				indices = append(indices, a, b, d)
			}
			if iy != heightSegments-1 {
				indices = append(indices, b, c, d)
			}
		}
	}

	g := New()
	g.Name = "sphere"
	if vertexCount <= MaxIndex+1 {
		g.SetIndex(NewBufferAttribute(narrowIndices(indices), 1, false))
	} else {
		g.SetIndex(NewBufferAttribute(indices, 1, false))
	}
	g.SetAttribute(AttrPosition, NewBufferAttribute(positions, 3, false))
	g.SetAttribute(AttrNormal, NewBufferAttribute(normals, 3, false))
	g.SetAttribute(AttrUV, NewBufferAttribute(uvs, 2, false))
	return g
}

// narrowIndices converts indices already known to fit in 16 bits.
func narrowIndices(indices []uint32) []uint16 {
	out := make([]uint16, len(indices))
	for i, v := range indices {
		out[i] = uint16(v)
	}
	return out
}
