package nativetest

import (
	"context"
	"errors"
	"slices"
	"testing"

	xerrors "github.com/wippyai/xatlas-go/errors"
	"github.com/wippyai/xatlas-go/native"
)

// quad is two triangles sharing the 0-2 edge.
func quad(id string) native.MeshData {
	return native.MeshData{
		ID:        id,
		Indices:   []uint16{0, 1, 2, 0, 2, 3},
		Positions: []float32{0, 0, 0, 1, 0, 0, 1, 1, 0, 0, 1, 0},
		Normals:   []float32{0, 0, 1, 0, 0, 1, 0, 0, 1, 0, 0, 1},
		UVs:       []float32{0, 0, 1, 0, 1, 1, 0, 1},
		Scale:     1,
	}
}

func loaded(t *testing.T, opts ...Option) *Module {
	t.Helper()
	m := New(opts...)
	if err := m.Init(context.Background(), native.LoadOptions{}); err != nil {
		t.Fatalf("Init: %v", err)
	}
	return m
}

func TestModule_SplitsEveryTriangle(t *testing.T) {
	ctx := context.Background()
	m := loaded(t)

	if err := m.CreateAtlas(ctx); err != nil {
		t.Fatalf("CreateAtlas: %v", err)
	}
	if err := m.AddMesh(ctx, quad("q")); err != nil {
		t.Fatalf("AddMesh: %v", err)
	}
	pack := native.DefaultPackOptions()
	pack.Resolution = 16
	pack.CreateImage = true
	atlas, err := m.GenerateAtlas(ctx, native.DefaultChartOptions(), pack, true)
	if err != nil {
		t.Fatalf("GenerateAtlas: %v", err)
	}

	if atlas.MeshCount != 1 || atlas.ChartCount != 2 || atlas.AtlasCount != 1 {
		t.Errorf("counts = %d meshes %d charts %d pages", atlas.MeshCount, atlas.ChartCount, atlas.AtlasCount)
	}
	res := atlas.Meshes[0]
	if res.ID != "q" {
		t.Errorf("ID = %q", res.ID)
	}
	if want := []uint32{0, 1, 2, 0, 2, 3}; !slices.Equal(res.OldIndexes, want) {
		t.Errorf("OldIndexes = %v, want %v", res.OldIndexes, want)
	}
	if res.VertexCount() != 6 || len(res.Positions) != 18 || len(res.Normals) != 18 || len(res.Coords) != 12 || len(res.Coords1) != 12 {
		t.Errorf("unexpected sizes: %d %d %d %d", len(res.Positions), len(res.Normals), len(res.Coords), len(res.Coords1))
	}
	for i, uv := range res.Coords1 {
		if uv < 0 || uv > 1 {
			t.Errorf("Coords1[%d] = %v, outside [0,1]", i, uv)
		}
	}
	if res.Positions[15] != 0 || res.Positions[16] != 1 {
		t.Errorf("vertex 5 should copy old vertex 3, got %v", res.Positions[15:18])
	}
	if len(res.SubMeshes) != 1 || res.SubMeshes[0].Count != 6 {
		t.Errorf("SubMeshes = %v", res.SubMeshes)
	}
	if len(atlas.Images) != 1 || len(atlas.Images[0]) != 16*16 {
		t.Fatalf("image page missing")
	}
	if atlas.Images[0][0] == 0 {
		t.Error("first chart cell should be painted")
	}
}

func TestModule_SessionState(t *testing.T) {
	ctx := context.Background()
	m := New()

	if err := m.CreateAtlas(ctx); !errors.Is(err, &xerrors.Error{Phase: xerrors.PhaseNative, Kind: xerrors.KindNotInitialized}) {
		t.Errorf("CreateAtlas before Init: got %v", err)
	}
	if err := m.Init(ctx, native.LoadOptions{}); err != nil {
		t.Fatal(err)
	}

	state := &xerrors.Error{Phase: xerrors.PhaseSession, Kind: xerrors.KindInvalidState}
	if err := m.AddMesh(ctx, quad("q")); !errors.Is(err, state) {
		t.Errorf("AddMesh without session: got %v", err)
	}
	if _, err := m.GenerateAtlas(ctx, native.ChartOptions{}, native.PackOptions{}, true); !errors.Is(err, state) {
		t.Errorf("GenerateAtlas without session: got %v", err)
	}
	if err := m.CreateAtlas(ctx); err != nil {
		t.Fatal(err)
	}
	if err := m.CreateAtlas(ctx); !errors.Is(err, state) {
		t.Errorf("second CreateAtlas: got %v", err)
	}
	if m.Overlaps() != 1 {
		t.Errorf("Overlaps = %d, want 1", m.Overlaps())
	}
	if err := m.DestroyAtlas(ctx); err != nil {
		t.Fatal(err)
	}
	if m.InSession() {
		t.Error("session should be closed")
	}
}

func TestModule_Validation(t *testing.T) {
	tests := []struct {
		name string
		mesh native.MeshData
	}{
		{"index out of range", native.MeshData{Indices: []uint16{0, 1, 5}, Positions: make([]float32, 9)}},
		{"ragged index", native.MeshData{Indices: []uint16{0, 1}, Positions: make([]float32, 9)}},
		{"no positions", native.MeshData{Indices: []uint16{0, 1, 2}}},
		{"normals", native.MeshData{Indices: []uint16{0, 1, 2}, Positions: make([]float32, 9), Normals: make([]float32, 3)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			m := loaded(t)
			if err := m.CreateAtlas(ctx); err != nil {
				t.Fatal(err)
			}
			err := m.AddMesh(ctx, tt.mesh)
			if !errors.Is(err, &xerrors.Error{Phase: xerrors.PhaseNative, Kind: xerrors.KindInvalidData}) {
				t.Errorf("got %v, want invalid data", err)
			}
		})
	}
}

func TestModule_Failures(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("boom")
	m := loaded(t, WithFailure(OpGenerateAtlas, boom), WithAddMeshFailure("bad", boom))

	if err := m.CreateAtlas(ctx); err != nil {
		t.Fatal(err)
	}
	if err := m.AddMesh(ctx, quad("bad")); !errors.Is(err, boom) {
		t.Errorf("AddMesh: got %v, want boom", err)
	}
	if _, err := m.GenerateAtlas(ctx, native.ChartOptions{}, native.PackOptions{}, true); !errors.Is(err, boom) {
		t.Errorf("GenerateAtlas: got %v, want boom", err)
	}

	m.SetFailure(OpGenerateAtlas, nil)
	if _, err := m.GenerateAtlas(ctx, native.ChartOptions{}, native.PackOptions{}, true); err != nil {
		t.Errorf("GenerateAtlas after clearing: %v", err)
	}

	want := []string{OpInit, OpCreateAtlas, OpAddMesh, OpGenerateAtlas, OpGenerateAtlas}
	if got := m.Ops(); !slices.Equal(got, want) {
		t.Errorf("Ops = %v, want %v", got, want)
	}
}

func TestModule_InitOnce(t *testing.T) {
	ctx := context.Background()
	var loads int
	m := New()
	for range 3 {
		if err := m.Init(ctx, native.LoadOptions{OnLoad: func() { loads++ }}); err != nil {
			t.Fatal(err)
		}
	}
	if m.Boots() != 1 || loads != 1 {
		t.Errorf("boots=%d loads=%d, want 1 1", m.Boots(), loads)
	}
}

func TestModule_Progress(t *testing.T) {
	ctx := context.Background()
	var seen []native.ProgressCategory
	m := New()
	err := m.Init(ctx, native.LoadOptions{OnProgress: func(c native.ProgressCategory, _ int) {
		seen = append(seen, c)
	}})
	if err != nil {
		t.Fatal(err)
	}

	_ = m.CreateAtlas(ctx)
	_ = m.AddMesh(ctx, quad("silent"))
	if len(seen) != 0 {
		t.Fatalf("progress reported while disabled: %v", seen)
	}

	_ = m.SetProgressLogging(ctx, true)
	_ = m.AddMesh(ctx, quad("loud"))
	if _, err := m.GenerateAtlas(ctx, native.ChartOptions{}, native.PackOptions{}, true); err != nil {
		t.Fatal(err)
	}
	want := []native.ProgressCategory{
		native.ProgressAddMesh, native.ProgressComputeCharts,
		native.ProgressPackCharts, native.ProgressBuildOutputMeshes,
	}
	if !slices.Equal(seen, want) {
		t.Errorf("progress = %v, want %v", seen, want)
	}
}

func TestProject_Degenerate(t *testing.T) {
	p := vec([]float32{1, 1, 1}, 0)
	uvs := project(p, p, p)
	for _, uv := range uvs {
		if uv.X() != 0 || uv.Y() != 0 {
			t.Errorf("degenerate triangle should collapse, got %v", uvs)
		}
	}
}
