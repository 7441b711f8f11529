package wasmtest

// Globals of the xatlas stand-in.
const (
	gHeap uint32 = iota
	gProgress
	gIndex
	gIndexCount
	gPositions
	gNormals
	gVertexCount
	gID
	gIDLen
)

// Progress categories reported by the stand-in.
const (
	progressAddMesh       = 0
	progressComputeCharts = 1
)

// XatlasGuest builds a module with the xatlas.wasm export surface. It keeps
// the last added mesh and lays it out without splitting: every vertex maps
// to itself, Coords1 is the position's x and y, and one chart is reported
// per triangle. Memory is a bump allocator that never reuses blocks, so
// input buffers stay readable after the host frees them.
//
// xatlas_add_mesh returns 4 for an index count that is not a multiple of 3
// and 2 for an index out of range. xatlas_generate returns 0 when no mesh
// was added.
func XatlasGuest() []byte {
	i32 := []ValType{I32}
	m := &Module{}

	progress := m.ImportFunc("env", "xatlas_progress", FuncType{Params: []ValType{I32, I32}, Results: i32})

	m.Memory(4)
	m.Global(1024) // heap
	for range gIDLen {
		m.Global(0)
	}

	report := func(c *Code, category int32) {
		c.GlobalGet(gProgress).If().
			I32Const(category).I32Const(100).Call(progress).Drop().
			End()
	}

	malloc := m.Func(FuncType{Params: i32, Results: i32}, nil,
		new(Code).
			GlobalGet(gHeap).
			GlobalGet(gHeap).LocalGet(0).I32Add().I32Const(7).I32Add().I32Const(-8).I32And().
			GlobalSet(gHeap))

	free := m.Func(FuncType{Params: i32}, nil, new(Code))

	create := m.Func(FuncType{Results: i32}, nil,
		new(Code).I32Const(0).GlobalSet(gVertexCount).I32Const(0))

	destroy := m.Func(FuncType{}, nil,
		new(Code).I32Const(0).GlobalSet(gVertexCount))

	setProgress := m.Func(FuncType{Params: i32}, nil,
		new(Code).LocalGet(0).GlobalSet(gProgress))

	// idx, idxCount, pos, nrm, uv, vertexCount, id, idLen, useNormals, useUvs, scale
	const addI = 11
	add := new(Code)
	add.LocalGet(1).I32Const(3).I32RemU().If().I32Const(4).Return().End()
	add.For(addI, func(c *Code) { c.LocalGet(1) }, func(c *Code) {
		c.LocalGet(0).LocalGet(addI).I32Const(1).I32Shl().I32Add().I32Load16U(0).
			LocalGet(5).I32GeU().
			If().I32Const(2).Return().End()
	})
	add.LocalGet(0).GlobalSet(gIndex).
		LocalGet(1).GlobalSet(gIndexCount).
		LocalGet(2).GlobalSet(gPositions).
		LocalGet(3).GlobalSet(gNormals).
		LocalGet(5).GlobalSet(gVertexCount).
		LocalGet(6).GlobalSet(gID).
		LocalGet(7).GlobalSet(gIDLen)
	report(add, progressAddMesh)
	add.I32Const(0)
	addMesh := m.Func(FuncType{Params: []ValType{I32, I32, I32, I32, I32, I32, I32, I32, I32, I32, F32}, Results: i32},
		[]ValType{I32}, add)

	// chart, pack, computeCharts; locals header, record, buf, i
	const (
		pack uint32 = 1
		hdr  uint32 = 3
		rec  uint32 = 4
		buf  uint32 = 5
		i    uint32 = 6
	)
	alloc := func(c *Code, size func(*Code), local uint32) {
		size(c)
		c.Call(malloc).LocalSet(local)
	}
	vertices := func(c *Code) { c.GlobalGet(gVertexCount) }
	indices := func(c *Code) { c.GlobalGet(gIndexCount) }

	gen := new(Code)
	gen.GlobalGet(gVertexCount).I32Eqz().If().I32Const(0).Return().End()
	report(gen, progressComputeCharts)

	alloc(gen, func(c *Code) { c.I32Const(32) }, hdr)
	gen.LocalGet(hdr).LocalGet(pack).I32Load(12).I32Store(0). // width = resolution
		LocalGet(hdr).LocalGet(pack).I32Load(12).I32Store(4).
		LocalGet(hdr).I32Const(1).I32Store(8).
		LocalGet(hdr).GlobalGet(gIndexCount).I32Const(3).I32DivU().I32Store(12).
		LocalGet(hdr).I32Const(1).I32Store(16).
		LocalGet(hdr).LocalGet(pack).I32Load(8).I32Store(20). // texelsPerUnit bits
		LocalGet(hdr).I32Const(0).I32Store(28)

	alloc(gen, func(c *Code) { c.I32Const(48) }, rec)
	gen.LocalGet(hdr).LocalGet(rec).I32Store(24).
		LocalGet(rec).GlobalGet(gID).I32Store(0).
		LocalGet(rec).GlobalGet(gIDLen).I32Store(4).
		LocalGet(rec).GlobalGet(gVertexCount).I32Store(8).
		LocalGet(rec).GlobalGet(gPositions).I32Store(12).
		LocalGet(rec).GlobalGet(gNormals).I32Store(16).
		LocalGet(rec).I32Const(0).I32Store(20).
		LocalGet(rec).GlobalGet(gIndexCount).I32Store(28).
		LocalGet(rec).I32Const(1).I32Store(40)

	// coords1: x, y of each position
	alloc(gen, func(c *Code) { c.GlobalGet(gVertexCount).I32Const(8).I32Mul() }, buf)
	gen.LocalGet(rec).LocalGet(buf).I32Store(24)
	gen.For(i, vertices, func(c *Code) {
		c.LocalGet(buf).LocalGet(i).I32Const(8).I32Mul().I32Add().
			GlobalGet(gPositions).LocalGet(i).I32Const(12).I32Mul().I32Add().I32Load(0).
			I32Store(0)
		c.LocalGet(buf).LocalGet(i).I32Const(8).I32Mul().I32Add().
			GlobalGet(gPositions).LocalGet(i).I32Const(12).I32Mul().I32Add().I32Load(4).
			I32Store(4)
	})

	// index widened to u32
	alloc(gen, func(c *Code) { c.GlobalGet(gIndexCount).I32Const(4).I32Mul() }, buf)
	gen.LocalGet(rec).LocalGet(buf).I32Store(32)
	gen.For(i, indices, func(c *Code) {
		c.LocalGet(buf).LocalGet(i).I32Const(4).I32Mul().I32Add().
			GlobalGet(gIndex).LocalGet(i).I32Const(1).I32Shl().I32Add().I32Load16U(0).
			I32Store(0)
	})

	// oldIndexes[i] = i
	alloc(gen, func(c *Code) { c.GlobalGet(gVertexCount).I32Const(4).I32Mul() }, buf)
	gen.LocalGet(rec).LocalGet(buf).I32Store(36)
	gen.For(i, vertices, func(c *Code) {
		c.LocalGet(buf).LocalGet(i).I32Const(4).I32Mul().I32Add().
			LocalGet(i).
			I32Store(0)
	})

	// one submesh covering the whole index
	alloc(gen, func(c *Code) { c.I32Const(12) }, buf)
	gen.LocalGet(rec).LocalGet(buf).I32Store(44).
		LocalGet(buf).I32Const(0).I32Store(0).
		LocalGet(buf).GlobalGet(gIndexCount).I32Store(4).
		LocalGet(buf).I32Const(0).I32Store(8)

	gen.LocalGet(hdr)
	generate := m.Func(FuncType{Params: []ValType{I32, I32, I32}, Results: i32},
		[]ValType{I32, I32, I32, I32}, gen)

	resultFree := m.Func(FuncType{Params: i32}, nil, new(Code))

	m.ExportMemory("memory")
	m.ExportFunc("malloc", malloc)
	m.ExportFunc("free", free)
	m.ExportFunc("xatlas_create", create)
	m.ExportFunc("xatlas_destroy", destroy)
	m.ExportFunc("xatlas_set_progress_logging", setProgress)
	m.ExportFunc("xatlas_add_mesh", addMesh)
	m.ExportFunc("xatlas_generate", generate)
	m.ExportFunc("xatlas_result_free", resultFree)
	return m.Encode()
}
