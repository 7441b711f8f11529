// Package xatlas unwraps and packs triangle meshes into UV atlases using the
// xatlas library compiled to WebAssembly.
//
// The library does not implement any chart generation or packing itself. It
// marshals mesh attribute buffers into the wasm module, drives one packing
// session at a time, and writes the results back into the meshes.
//
// # Architecture Overview
//
//	xatlas/              Root package with the guest Memory and Allocator interfaces
//	├── unwrap/          High-level API: Unwrapper.LoadLibrary, PackAtlas, UnwrapGeometry
//	├── geometry/        Attributes, geometries, buffer coercion, OBJ and primitives
//	├── native/          Module interface, chart/pack options and atlas result types
//	├── engine/          In-process wazero implementation of native.Module
//	├── worker/          Goroutine and child-process transports for native.Module
//	├── nativetest/      Inline native.Module for tests
//	├── config/          YAML configuration
//	├── errors/          Structured error types
//	└── cmd/             unwrap CLI and the xatlas-worker process
//
// # Quick Start
//
//	ctx := context.Background()
//	u := unwrap.New(engine.New())
//	defer u.Close(ctx)
//
//	if err := u.LoadLibrary(ctx, native.LoadOptions{WasmPath: "xatlas.wasm"}); err != nil {
//	    log.Fatal(err)
//	}
//
//	g := geometry.Sphere(1, 32, 32)
//	atlas, err := u.UnwrapGeometry(ctx, g, "", "")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(atlas.Width, atlas.Height, g.Attribute(geometry.AttrUV).ItemSize())
//
// # Transports
//
// The native module can be hosted three ways, all behind native.Module:
//
//	engine.New()                 runs the wasm module in the calling goroutine
//	worker.NewThread(engine.New()) runs it on a dedicated goroutine
//	worker.NewProcess()          runs it inside an xatlas-worker child process
//
// # Thread Safety
//
// Unwrapper is safe for concurrent use. Concurrent PackAtlas calls are
// serialized in arrival order; the wasm module holds a single global atlas
// session so packing sessions never overlap.
package xatlas
