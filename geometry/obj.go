package geometry

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/wippyai/xatlas-go/errors"
)

type objCorner struct {
	v, vt, vn int
}

type objBuilder struct {
	name      string
	corners   map[objCorner]uint32
	order     []objCorner
	indices   []uint32
	hasUV     bool
	hasNormal bool
}

func newObjBuilder(name string) *objBuilder {
	return &objBuilder{name: name, corners: make(map[objCorner]uint32)}
}

func (b *objBuilder) corner(c objCorner) uint32 {
	if i, ok := b.corners[c]; ok {
		return i
	}
	i := uint32(len(b.order))
	b.corners[c] = i
	b.order = append(b.order, c)
	if c.vt >= 0 {
		b.hasUV = true
	}
	if c.vn >= 0 {
		b.hasNormal = true
	}
	return i
}

func (b *objBuilder) build(positions, texcoords, normals [][3]float32) *Geometry {
	g := New()
	g.Name = b.name

	pos := make([]float32, 0, len(b.order)*3)
	var nrm, uv []float32
	for _, c := range b.order {
		p := positions[c.v]
		pos = append(pos, p[0], p[1], p[2])
		if b.hasNormal {
			var n [3]float32
			if c.vn >= 0 {
				n = normals[c.vn]
			}
			nrm = append(nrm, n[0], n[1], n[2])
		}
		if b.hasUV {
			var t [3]float32
			if c.vt >= 0 {
				t = texcoords[c.vt]
			}
			uv = append(uv, t[0], t[1])
		}
	}

	if len(b.order) <= MaxIndex+1 {
		g.SetIndex(NewBufferAttribute(narrowIndices(b.indices), 1, false))
	} else {
		g.SetIndex(NewBufferAttribute(b.indices, 1, false))
	}
	g.SetAttribute(AttrPosition, NewBufferAttribute(pos, 3, false))
	if b.hasNormal {
		g.SetAttribute(AttrNormal, NewBufferAttribute(nrm, 3, false))
	}
	if b.hasUV {
		g.SetAttribute(AttrUV, NewBufferAttribute(uv, 2, false))
	}
	return g
}

// ReadOBJ parses a Wavefront OBJ stream into one geometry per object.
// Faces with more than three corners are fan-triangulated. Vertices are
// welded per unique position/texcoord/normal triple.
func ReadOBJ(r io.Reader, defaultName string) ([]*Geometry, error) {
	var (
		positions, texcoords, normals [][3]float32
		done                          []*objBuilder
	)
	cur := newObjBuilder(defaultName)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}

		switch fields[0] {
		case "v", "vn", "vt":
			var v [3]float32
			for i := 0; i < 3 && i+1 < len(fields); i++ {
				f, err := strconv.ParseFloat(fields[i+1], 32)
				if err != nil {
					return nil, errors.ParseFailed(fmt.Sprintf("obj line %d", line), err)
				}
				v[i] = float32(f)
			}
			switch fields[0] {
			case "v":
				positions = append(positions, v)
			case "vn":
				normals = append(normals, v)
			default:
				texcoords = append(texcoords, v)
			}
		case "o", "g":
			name := defaultName
			if len(fields) > 1 {
				name = strings.Join(fields[1:], " ")
			}
			if len(cur.indices) > 0 {
				done = append(done, cur)
				cur = newObjBuilder(name)
			} else {
				cur.name = name
			}
		case "f":
			if len(fields) < 4 {
				return nil, errors.InvalidData(errors.PhaseParse, []string{"obj", strconv.Itoa(line)}, "face needs at least 3 corners")
			}
			face := make([]uint32, 0, len(fields)-1)
			for _, s := range fields[1:] {
				c, err := parseObjCorner(s, len(positions), len(texcoords), len(normals))
				if err != nil {
					return nil, errors.ParseFailed(fmt.Sprintf("obj line %d", line), err)
				}
				face = append(face, cur.corner(c))
			}
			for i := 1; i+1 < len(face); i++ {
				cur.indices = append(cur.indices, face[0], face[i], face[i+1])
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.ParseFailed("obj", err)
	}
	if len(cur.indices) > 0 {
		done = append(done, cur)
	}

	out := make([]*Geometry, 0, len(done))
	for _, b := range done {
		out = append(out, b.build(positions, texcoords, normals))
	}
	return out, nil
}

// parseObjCorner resolves a "v", "v/vt", "v//vn" or "v/vt/vn" reference to
// zero-based indices, -1 for absent parts. Negative OBJ indices are relative.
func parseObjCorner(s string, nv, nt, nn int) (objCorner, error) {
	c := objCorner{v: -1, vt: -1, vn: -1}
	parts := strings.Split(s, "/")
	counts := [3]int{nv, nt, nn}
	dst := [3]*int{&c.v, &c.vt, &c.vn}
	for i, p := range parts {
		if i > 2 {
			break
		}
		if p == "" {
			continue
		}
		n, err := strconv.Atoi(p)
		if err != nil {
			return c, err
		}
		if n < 0 {
			n = counts[i] + n
		} else {
			n--
		}
		if n < 0 || n >= counts[i] {
			return c, fmt.Errorf("reference %q out of range", s)
		}
		*dst[i] = n
	}
	if c.v < 0 {
		return c, fmt.Errorf("corner %q has no position", s)
	}
	return c, nil
}

// WriteOBJ writes g as an OBJ object using uvName for texture coordinates.
// Missing uv or normal attributes are omitted from the face references.
func WriteOBJ(w io.Writer, g *Geometry, uvName string) error {
	bw := bufio.NewWriter(w)
	pos := g.Attribute(AttrPosition)
	if pos == nil {
		return errors.InvalidInput(errors.PhaseParse, "geometry has no position attribute")
	}
	uv := g.Attribute(uvName)
	nrm := g.Attribute(AttrNormal)

	name := g.Name
	if name == "" {
		name = g.ID
	}
	fmt.Fprintf(bw, "o %s\n", name)
	for i := 0; i < pos.Count(); i++ {
		fmt.Fprintf(bw, "v %g %g %g\n", pos.Component(i, 0), pos.Component(i, 1), pos.Component(i, 2))
	}
	if uv != nil {
		for i := 0; i < uv.Count(); i++ {
			fmt.Fprintf(bw, "vt %g %g\n", uv.Component(i, 0), uv.Component(i, 1))
		}
	}
	if nrm != nil {
		for i := 0; i < nrm.Count(); i++ {
			fmt.Fprintf(bw, "vn %g %g %g\n", nrm.Component(i, 0), nrm.Component(i, 1), nrm.Component(i, 2))
		}
	}

	ref := func(i int) string {
		n := strconv.Itoa(i + 1)
		switch {
		case uv != nil && nrm != nil:
			return n + "/" + n + "/" + n
		case uv != nil:
			return n + "/" + n
		case nrm != nil:
			return n + "//" + n
		}
		return n
	}

	if idx := g.Index(); idx != nil {
		for i := 0; i+2 < idx.Count(); i += 3 {
			fmt.Fprintf(bw, "f %s %s %s\n",
				ref(int(idx.Component(i, 0))), ref(int(idx.Component(i+1, 0))), ref(int(idx.Component(i+2, 0))))
		}
	} else {
		for i := 0; i+2 < pos.Count(); i += 3 {
			fmt.Fprintf(bw, "f %s %s %s\n", ref(i), ref(i+1), ref(i+2))
		}
	}
	return bw.Flush()
}
