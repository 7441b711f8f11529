// Package native defines the contract between the unwrapper and the xatlas
// wasm module: the Module interface every transport implements, the chart
// and pack option blocks, mesh submissions, and atlas results.
//
// A Module brackets one packing session at a time:
//
//	CreateAtlas -> AddMesh* -> GenerateAtlas -> DestroyAtlas
//
// The wasm module keeps a single global atlas, so implementations reject a
// second CreateAtlas before DestroyAtlas, and AddMesh or GenerateAtlas
// outside a session.
package native
