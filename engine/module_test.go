package engine

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"slices"
	"sync/atomic"
	"testing"

	xerrors "github.com/wippyai/xatlas-go/errors"
	"github.com/wippyai/xatlas-go/geometry"
	"github.com/wippyai/xatlas-go/internal/wasmtest"
	"github.com/wippyai/xatlas-go/native"
)

// wasmFixture returns XATLAS_WASM or testdata/xatlas.wasm when present, and
// otherwise writes the in-tree stand-in guest.
func wasmFixture(t *testing.T) string {
	t.Helper()
	path := os.Getenv("XATLAS_WASM")
	if path == "" {
		path = filepath.Join("..", "testdata", native.WasmFileName)
	}
	if _, err := os.Stat(path); err == nil {
		return path
	}
	return guestFixture(t)
}

// guestFixture writes the stand-in guest to a temp dir.
func guestFixture(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), native.WasmFileName)
	if err := os.WriteFile(path, wasmtest.XatlasGuest(), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestModule_NotInitialized(t *testing.T) {
	ctx := context.Background()
	m := New()
	if m.Loaded() {
		t.Fatal("new module should not be loaded")
	}

	want := &xerrors.Error{Phase: xerrors.PhaseNative, Kind: xerrors.KindNotInitialized}
	if err := m.CreateAtlas(ctx); !errors.Is(err, want) {
		t.Errorf("CreateAtlas: got %v, want not initialized", err)
	}
	if err := m.AddMesh(ctx, native.MeshData{}); !errors.Is(err, want) {
		t.Errorf("AddMesh: got %v, want not initialized", err)
	}
	if _, err := m.GenerateAtlas(ctx, native.ChartOptions{}, native.PackOptions{}, true); !errors.Is(err, want) {
		t.Errorf("GenerateAtlas: got %v, want not initialized", err)
	}
	if err := m.SetProgressLogging(ctx, true); !errors.Is(err, want) {
		t.Errorf("SetProgressLogging: got %v, want not initialized", err)
	}
}

func TestModule_InitMissingFile(t *testing.T) {
	m := New()
	var loaded int32
	err := m.Init(context.Background(), native.LoadOptions{
		WasmPath: filepath.Join(t.TempDir(), "missing.wasm"),
		OnLoad:   func() { atomic.AddInt32(&loaded, 1) },
	})
	if !errors.Is(err, &xerrors.Error{Phase: xerrors.PhaseLoad, Kind: xerrors.KindInvalidData}) {
		t.Fatalf("got %v, want load error", err)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("cause should be os.ErrNotExist, got %v", err)
	}
	if atomic.LoadInt32(&loaded) != 0 {
		t.Error("OnLoad must not fire on failure")
	}
	if m.Loaded() {
		t.Error("module should not be loaded")
	}
}

func TestModule_InitInvalidBinary(t *testing.T) {
	path := filepath.Join(t.TempDir(), native.WasmFileName)
	if err := os.WriteFile(path, []byte("not wasm"), 0o600); err != nil {
		t.Fatal(err)
	}

	m := NewWithConfig(&Config{BaseDir: filepath.Dir(path)})
	defer m.Close(context.Background())

	if err := m.Init(context.Background(), native.LoadOptions{}); err == nil {
		t.Fatal("expected compile error")
	}
}

func TestModule_Closed(t *testing.T) {
	ctx := context.Background()
	m := New()
	if err := m.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := m.Close(ctx); err != nil {
		t.Errorf("second Close: %v", err)
	}

	err := m.Init(ctx, native.LoadOptions{WasmPath: "unused.wasm"})
	if !errors.Is(err, &xerrors.Error{Phase: xerrors.PhaseLoad, Kind: xerrors.KindClosed}) {
		t.Errorf("Init after Close: got %v, want closed", err)
	}
	if err := m.CreateAtlas(ctx); !errors.Is(err, &xerrors.Error{Phase: xerrors.PhaseNative, Kind: xerrors.KindClosed}) {
		t.Errorf("CreateAtlas after Close: got %v, want closed", err)
	}
}

func TestModule_Wasm(t *testing.T) {
	path := wasmFixture(t)
	ctx := context.Background()

	m := New()
	defer m.Close(ctx)

	var loads int32
	opts := native.LoadOptions{
		WasmPath: path,
		OnLoad:   func() { atomic.AddInt32(&loads, 1) },
	}
	if err := m.Init(ctx, opts); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if err := m.Init(ctx, opts); err != nil {
		t.Fatalf("second Init: %v", err)
	}
	if atomic.LoadInt32(&loads) != 1 {
		t.Errorf("OnLoad fired %d times, want 1", loads)
	}

	if err := m.AddMesh(ctx, native.MeshData{}); !errors.Is(err, &xerrors.Error{Phase: xerrors.PhaseSession, Kind: xerrors.KindInvalidState}) {
		t.Errorf("AddMesh without session: got %v", err)
	}

	if err := m.CreateAtlas(ctx); err != nil {
		t.Fatalf("CreateAtlas: %v", err)
	}
	defer m.DestroyAtlas(ctx)

	if err := m.CreateAtlas(ctx); !errors.Is(err, &xerrors.Error{Phase: xerrors.PhaseSession, Kind: xerrors.KindInvalidState}) {
		t.Errorf("second CreateAtlas: got %v", err)
	}

	sphere := geometry.Sphere(1, 16, 8)
	index, err := geometry.IndexArray(sphere.Index())
	if err != nil {
		t.Fatalf("IndexArray: %v", err)
	}
	mesh := native.MeshData{
		ID:        sphere.ID,
		Indices:   index,
		Positions: geometry.Float32Array(sphere.Attribute(geometry.AttrPosition)),
		Normals:   geometry.Float32Array(sphere.Attribute(geometry.AttrNormal)),
		Scale:     1,
	}
	if err := m.AddMesh(ctx, mesh); err != nil {
		t.Fatalf("AddMesh: %v", err)
	}

	atlas, err := m.GenerateAtlas(ctx, native.DefaultChartOptions(), native.DefaultPackOptions(), true)
	if err != nil {
		t.Fatalf("GenerateAtlas: %v", err)
	}
	if atlas.MeshCount != 1 || len(atlas.Meshes) != 1 {
		t.Fatalf("got %d meshes, want 1", atlas.MeshCount)
	}

	res := atlas.Meshes[0]
	if res.ID != sphere.ID {
		t.Errorf("ID = %q, want %q", res.ID, sphere.ID)
	}
	n := uint32(sphere.VertexCount())
	for i, old := range res.OldIndexes {
		if old >= n {
			t.Fatalf("OldIndexes[%d] = %d, want < %d", i, old, n)
		}
	}
	if len(res.Coords1) != res.VertexCount()*2 {
		t.Errorf("got %d uv floats, want %d", len(res.Coords1), res.VertexCount()*2)
	}
}

func TestModule_Guest(t *testing.T) {
	ctx := context.Background()

	var progress []native.ProgressCategory
	m := NewWithConfig(&Config{BaseDir: filepath.Dir(guestFixture(t))})
	defer m.Close(ctx)

	err := m.Init(ctx, native.LoadOptions{
		OnProgress: func(c native.ProgressCategory, _ int) { progress = append(progress, c) },
	})
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	if err := m.SetProgressLogging(ctx, true); err != nil {
		t.Fatalf("SetProgressLogging: %v", err)
	}
	if err := m.CreateAtlas(ctx); err != nil {
		t.Fatalf("CreateAtlas: %v", err)
	}

	quad := native.MeshData{
		ID:        "quad",
		Indices:   []uint16{0, 1, 2, 0, 2, 3},
		Positions: []float32{0, 0, 0, 1, 0, 0, 1, 1, 0, 0, 1, 0},
		Normals:   []float32{0, 0, 1, 0, 0, 1, 0, 0, 1, 0, 0, 1},
		Scale:     1,
	}

	bad := quad
	bad.Indices = []uint16{0, 1, 4}
	err = m.AddMesh(ctx, bad)
	var xe *xerrors.Error
	if !errors.As(err, &xe) || xe.Value != AddMeshIndexOutOfRange {
		t.Fatalf("AddMesh out of range: got %v", err)
	}

	if err := m.AddMesh(ctx, quad); err != nil {
		t.Fatalf("AddMesh: %v", err)
	}

	pack := native.DefaultPackOptions()
	pack.Resolution = 512
	pack.TexelsPerUnit = 2
	atlas, err := m.GenerateAtlas(ctx, native.DefaultChartOptions(), pack, true)
	if err != nil {
		t.Fatalf("GenerateAtlas: %v", err)
	}
	if atlas.Width != 512 || atlas.Height != 512 {
		t.Errorf("size = %dx%d, want 512x512", atlas.Width, atlas.Height)
	}
	if atlas.AtlasCount != 1 || atlas.ChartCount != 2 || atlas.MeshCount != 1 {
		t.Errorf("counts = %d/%d/%d, want 1/2/1", atlas.AtlasCount, atlas.ChartCount, atlas.MeshCount)
	}
	if atlas.TexelsPerUnit != 2 {
		t.Errorf("TexelsPerUnit = %v, want 2", atlas.TexelsPerUnit)
	}
	if atlas.Images != nil {
		t.Errorf("unexpected image pages")
	}

	res := atlas.Meshes[0]
	if res.ID != "quad" {
		t.Errorf("ID = %q", res.ID)
	}
	if !slices.Equal(res.Positions, quad.Positions) {
		t.Errorf("Positions = %v", res.Positions)
	}
	if !slices.Equal(res.Normals, quad.Normals) {
		t.Errorf("Normals = %v", res.Normals)
	}
	if res.Coords != nil {
		t.Errorf("Coords = %v, want nil", res.Coords)
	}
	if want := []float32{0, 0, 1, 0, 1, 1, 0, 1}; !slices.Equal(res.Coords1, want) {
		t.Errorf("Coords1 = %v, want %v", res.Coords1, want)
	}
	if want := []uint32{0, 1, 2, 0, 2, 3}; !slices.Equal(res.Index, want) {
		t.Errorf("Index = %v, want %v", res.Index, want)
	}
	if want := []uint32{0, 1, 2, 3}; !slices.Equal(res.OldIndexes, want) {
		t.Errorf("OldIndexes = %v, want %v", res.OldIndexes, want)
	}
	if want := []geometry.SubMesh{{Index: 0, Count: 6, AtlasIndex: 0}}; !reflect.DeepEqual(res.SubMeshes, want) {
		t.Errorf("SubMeshes = %v, want %v", res.SubMeshes, want)
	}

	if !slices.Contains(progress, native.ProgressAddMesh) || !slices.Contains(progress, native.ProgressComputeCharts) {
		t.Errorf("progress = %v, want add mesh and compute charts", progress)
	}

	if err := m.DestroyAtlas(ctx); err != nil {
		t.Fatalf("DestroyAtlas: %v", err)
	}

	// an empty session yields a null result
	if err := m.CreateAtlas(ctx); err != nil {
		t.Fatalf("CreateAtlas: %v", err)
	}
	_, err = m.GenerateAtlas(ctx, native.DefaultChartOptions(), pack, true)
	if !errors.Is(err, &xerrors.Error{Phase: xerrors.PhaseNative, Kind: xerrors.KindNativeCall}) {
		t.Errorf("GenerateAtlas on empty session: got %v, want native call error", err)
	}
	if err := m.DestroyAtlas(ctx); err != nil {
		t.Fatalf("DestroyAtlas: %v", err)
	}
}
