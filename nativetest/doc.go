// Package nativetest provides an in-process native.Module double.
//
// Module answers every call synchronously without loading any wasm. Its
// GenerateAtlas gives each triangle its own chart, so every vertex shared
// between triangles is split and the reconstruction paths of the unwrapper
// are exercised the same way a real seam would exercise them. Calls are
// recorded for assertions and failures can be injected per operation.
package nativetest
