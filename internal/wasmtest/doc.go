// Package wasmtest assembles small WebAssembly binaries for tests.
//
// It covers the subset of the binary format the xatlas ABI needs: i32/f32
// function types, function imports, one linear memory, mutable i32 globals,
// exports and function bodies built with Code.
//
//	m := &wasmtest.Module{}
//	add := m.Func(wasmtest.FuncType{
//		Params:  []wasmtest.ValType{wasmtest.I32, wasmtest.I32},
//		Results: []wasmtest.ValType{wasmtest.I32},
//	}, nil, new(wasmtest.Code).LocalGet(0).LocalGet(1).I32Add())
//	m.ExportFunc("add", add)
//	bin := m.Encode()
//
// XatlasGuest returns a stand-in for xatlas.wasm that implements the full
// export surface with a trivial identity layout.
package wasmtest
