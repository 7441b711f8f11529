package native

import (
	"context"
	"path/filepath"
)

// ProgressCategory identifies the phase reporting progress.
type ProgressCategory int

const (
	ProgressAddMesh ProgressCategory = iota
	ProgressComputeCharts
	ProgressPackCharts
	ProgressBuildOutputMeshes
)

func (c ProgressCategory) String() string {
	switch c {
	case ProgressAddMesh:
		return "AddMesh"
	case ProgressComputeCharts:
		return "ComputeCharts"
	case ProgressPackCharts:
		return "PackCharts"
	case ProgressBuildOutputMeshes:
		return "BuildOutputMeshes"
	}
	return "Unknown"
}

// ProgressFunc receives progress in percent for a category.
type ProgressFunc func(category ProgressCategory, progress int)

// LoadOptions configure Module.Init.
type LoadOptions struct {
	// OnLoad is called exactly once, when the module is ready.
	OnLoad func()
	// OnProgress receives native progress while progress logging is enabled.
	OnProgress ProgressFunc
	// WasmPath is the location of the xatlas wasm binary.
	WasmPath string
	// WorkerPath is the worker executable for process-backed modules.
	WorkerPath string
}

// Module is one instance of the xatlas library behind some transport.
// Calls must not be issued concurrently; the unwrapper serializes them.
type Module interface {
	// Init boots the module and blocks until it is ready.
	Init(ctx context.Context, opts LoadOptions) error
	// Loaded reports whether Init completed.
	Loaded() bool

	CreateAtlas(ctx context.Context) error
	AddMesh(ctx context.Context, mesh MeshData) error
	GenerateAtlas(ctx context.Context, chart ChartOptions, pack PackOptions, computeCharts bool) (*Atlas, error)
	DestroyAtlas(ctx context.Context) error
	SetProgressLogging(ctx context.Context, enabled bool) error

	// Close releases the module and any worker resources.
	Close(ctx context.Context) error
}

// WasmFileName is the binary name the module asks its locator for.
const WasmFileName = "xatlas.wasm"

// Locator maps a file requested by the module to a path on disk.
type Locator func(path, dir string) string

// LocateFile returns a locator that redirects requests for WasmFileName to
// wasmPath and resolves everything else relative to dir.
func LocateFile(wasmPath string) Locator {
	return func(path, dir string) string {
		if path == WasmFileName && wasmPath != "" {
			return wasmPath
		}
		return filepath.Join(dir, path)
	}
}
