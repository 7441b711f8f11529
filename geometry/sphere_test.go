package geometry

import (
	"errors"
	"math"
	"slices"
	"testing"

	xerrors "github.com/wippyai/xatlas-go/errors"
)

func TestSphere(t *testing.T) {
	g := Sphere(1, 32, 32)

	if got, want := g.VertexCount(), 33*33; got != want {
		t.Fatalf("VertexCount() = %d, want %d", got, want)
	}
	// two triangles per quad, minus one per pole row
	if got, want := g.Index().Count(), (32*32*2-2*32)*3; got != want {
		t.Errorf("index count = %d, want %d", got, want)
	}
	if g.Attribute(AttrPosition).ItemSize() != 3 {
		t.Error("position item size should be 3")
	}
	if g.Attribute(AttrUV).ItemSize() != 2 {
		t.Error("uv item size should be 2")
	}
	if _, ok := g.Index().(*BufferAttribute[uint16]); !ok {
		t.Errorf("index is %T, want uint16", g.Index())
	}

	pos := g.Attribute(AttrPosition)
	for i := 0; i < pos.Count(); i++ {
		x, y, z := pos.Component(i, 0), pos.Component(i, 1), pos.Component(i, 2)
		if r := math.Sqrt(x*x + y*y + z*z); math.Abs(r-1) > 1e-5 {
			t.Fatalf("vertex %d radius = %v, want 1", i, r)
		}
	}

	idx := g.Index()
	for i := 0; i < idx.Count(); i++ {
		if v := int(idx.Component(i, 0)); v >= g.VertexCount() {
			t.Fatalf("index %d = %d out of range", i, v)
		}
	}
}

func TestSphere_MinimumSegments(t *testing.T) {
	g := Sphere(2, 0, 0)
	if got, want := g.VertexCount(), 4*3; got != want {
		t.Errorf("VertexCount() = %d, want %d", got, want)
	}
}

func TestSphere_WideIndex(t *testing.T) {
	g := Sphere(1, 300, 300)
	n := g.VertexCount()
	if n != 301*301 {
		t.Fatalf("VertexCount() = %d, want %d", n, 301*301)
	}
	idx, ok := g.Index().(*BufferAttribute[uint32])
	if !ok {
		t.Fatalf("index is %T, want uint32", g.Index())
	}
	if got := slices.Max(idx.Array); int(got) != n-1 {
		t.Errorf("max index = %d, want %d", got, n-1)
	}

	_, err := IndexArray(g.Index())
	if !errors.Is(err, &xerrors.Error{Phase: xerrors.PhaseCoerce, Kind: xerrors.KindOverflow}) {
		t.Errorf("IndexArray: got %v, want overflow", err)
	}
}
