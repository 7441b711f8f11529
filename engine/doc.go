// Package engine runs the xatlas wasm module in-process on wazero and
// implements native.Module on top of it.
//
// # Wire ABI
//
// The xatlas build is a WASI reactor exporting:
//
//	memory
//	malloc(size i32) i32
//	free(ptr i32)
//	xatlas_create() i32                          0 on success
//	xatlas_destroy()
//	xatlas_set_progress_logging(enabled i32)
//	xatlas_add_mesh(idx, idxCount, pos, nrm, uv,
//	    vertexCount, id, idLen, useNormals,
//	    useInputUvs i32, scale f32) i32          xatlas::AddMeshError
//	xatlas_generate(chart, pack, computeCharts i32) i32   result pointer, 0 on failure
//	xatlas_result_free(ptr i32)
//
// and importing env.xatlas_progress(category, progress i32) i32.
//
// All integers are little-endian. Indices cross as u16, vertex data as f32,
// absent optional buffers as a null pointer. The option blocks and the result
// layout are described next to their encoders in abi.go.
//
// # Buffer Ownership
//
// Input buffers are allocated with malloc before each call and freed right
// after it; xatlas copies mesh data on AddMesh. Results are copied out of
// guest memory and released with xatlas_result_free before GenerateAtlas
// returns, so no Go value aliases wasm memory.
//
// # Thread Safety
//
// Module serializes its own calls with a mutex. The guest keeps one global
// atlas, so only one session may be open at a time.
package engine
