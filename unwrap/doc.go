// Package unwrap packs geometries into a UV atlas through a native.Module.
//
// An Unwrapper owns one module. LoadLibrary boots it once, however many
// callers ask. PackAtlas runs one atlas session at a time: concurrent
// callers queue in arrival order and each session is closed and the queue
// released on every exit path, failures included.
//
// Basic usage:
//
//	u := unwrap.New(engine.New(), unwrap.WithLogger(log))
//	if err := u.LoadLibrary(ctx, native.LoadOptions{WasmPath: "xatlas.wasm"}); err != nil {
//	    return err
//	}
//	defer u.Close(ctx)
//
//	atlas, err := u.PackAtlas(ctx, meshes, geometry.AttrUV2, geometry.AttrUV)
//
// Results are written back into the geometries: position, normal, index
// and both UV slots are replaced, and every other attribute is re-indexed
// so it stays aligned with the new vertices.
package unwrap
