package engine

import (
	"context"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"

	"github.com/wippyai/xatlas-go/native"
)

// instantiateHost registers WASI preview1 and the env module the xatlas
// build imports. progress is called for every native progress report.
func instantiateHost(ctx context.Context, r wazero.Runtime, progress func(native.ProgressCategory, int)) error {
	if _, err := wasi_snapshot_preview1.Instantiate(ctx, r); err != nil {
		return err
	}

	builder := r.NewHostModuleBuilder(importModule)

	builder = builder.NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(func(_ context.Context, _ api.Module, stack []uint64) {
			progress(native.ProgressCategory(api.DecodeI32(stack[0])), int(api.DecodeI32(stack[1])))
			// non-zero keeps xatlas running
			stack[0] = 1
		}), []api.ValueType{api.ValueTypeI32, api.ValueTypeI32}, []api.ValueType{api.ValueTypeI32}).
		Export(importProgress)

	// emscripten standalone builds notify the embedder when memory grows
	builder = builder.NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(func(_ context.Context, _ api.Module, _ []uint64) {
		}), []api.ValueType{api.ValueTypeI32}, nil).
		Export("emscripten_notify_memory_growth")

	_, err := builder.Instantiate(ctx)
	return err
}
