package wasmtest

import "slices"

// ValType is a WebAssembly value type.
type ValType byte

const (
	I32 ValType = 0x7f
	F32 ValType = 0x7d
)

// FuncType is a function signature.
type FuncType struct {
	Params  []ValType
	Results []ValType
}

func (ft FuncType) equal(o FuncType) bool {
	return slices.Equal(ft.Params, o.Params) && slices.Equal(ft.Results, o.Results)
}

const (
	sectionType     = 1
	sectionImport   = 2
	sectionFunction = 3
	sectionMemory   = 5
	sectionGlobal   = 6
	sectionExport   = 7
	sectionCode     = 10

	kindFunc   = 0x00
	kindMemory = 0x02

	funcTypeByte = 0x60
)

type funcImport struct {
	module string
	name   string
	typ    uint32
}

type function struct {
	typ    uint32
	locals []ValType
	body   []byte
}

type export struct {
	name string
	kind byte
	idx  uint32
}

// Module accumulates definitions. Imports must be added before functions
// so function indices stay stable.
type Module struct {
	types    []FuncType
	imports  []funcImport
	funcs    []function
	globals  []int32
	exports  []export
	memPages uint32
	memory   bool
}

func (m *Module) typeIndex(ft FuncType) uint32 {
	for i, t := range m.types {
		if t.equal(ft) {
			return uint32(i)
		}
	}
	m.types = append(m.types, ft)
	return uint32(len(m.types) - 1)
}

// ImportFunc declares an imported function and returns its index.
func (m *Module) ImportFunc(module, name string, ft FuncType) uint32 {
	if len(m.funcs) > 0 {
		panic("wasmtest: imports must precede functions")
	}
	m.imports = append(m.imports, funcImport{module: module, name: name, typ: m.typeIndex(ft)})
	return uint32(len(m.imports) - 1)
}

// Func defines a function. Locals are indexed after the parameters.
func (m *Module) Func(ft FuncType, locals []ValType, body *Code) uint32 {
	m.funcs = append(m.funcs, function{typ: m.typeIndex(ft), locals: locals, body: body.Bytes()})
	return uint32(len(m.imports) + len(m.funcs) - 1)
}

// Memory declares the module's memory with a minimum size in 64KB pages.
func (m *Module) Memory(pages uint32) {
	m.memory = true
	m.memPages = pages
}

// Global declares a mutable i32 global and returns its index.
func (m *Module) Global(init int32) uint32 {
	m.globals = append(m.globals, init)
	return uint32(len(m.globals) - 1)
}

func (m *Module) ExportFunc(name string, idx uint32) {
	m.exports = append(m.exports, export{name: name, kind: kindFunc, idx: idx})
}

// ExportMemory exports memory 0.
func (m *Module) ExportMemory(name string) {
	m.exports = append(m.exports, export{name: name, kind: kindMemory})
}

// Encode returns the binary module.
func (m *Module) Encode() []byte {
	w := &writer{}
	w.raw(0x00, 0x61, 0x73, 0x6d) // \0asm
	w.raw(0x01, 0x00, 0x00, 0x00) // version 1

	if len(m.types) > 0 {
		sec := &writer{}
		sec.u32(uint32(len(m.types)))
		for _, t := range m.types {
			sec.u8(funcTypeByte)
			sec.valTypes(t.Params)
			sec.valTypes(t.Results)
		}
		w.section(sectionType, sec)
	}

	if len(m.imports) > 0 {
		sec := &writer{}
		sec.u32(uint32(len(m.imports)))
		for _, imp := range m.imports {
			sec.name(imp.module)
			sec.name(imp.name)
			sec.u8(kindFunc)
			sec.u32(imp.typ)
		}
		w.section(sectionImport, sec)
	}

	if len(m.funcs) > 0 {
		sec := &writer{}
		sec.u32(uint32(len(m.funcs)))
		for _, f := range m.funcs {
			sec.u32(f.typ)
		}
		w.section(sectionFunction, sec)
	}

	if m.memory {
		sec := &writer{}
		sec.u32(1)
		sec.u8(0x00) // min only
		sec.u32(m.memPages)
		w.section(sectionMemory, sec)
	}

	if len(m.globals) > 0 {
		sec := &writer{}
		sec.u32(uint32(len(m.globals)))
		for _, init := range m.globals {
			sec.u8(byte(I32))
			sec.u8(0x01) // mutable
			sec.u8(opI32Const)
			sec.s32(init)
			sec.u8(opEnd)
		}
		w.section(sectionGlobal, sec)
	}

	if len(m.exports) > 0 {
		sec := &writer{}
		sec.u32(uint32(len(m.exports)))
		for _, e := range m.exports {
			sec.name(e.name)
			sec.u8(e.kind)
			sec.u32(e.idx)
		}
		w.section(sectionExport, sec)
	}

	if len(m.funcs) > 0 {
		sec := &writer{}
		sec.u32(uint32(len(m.funcs)))
		for _, f := range m.funcs {
			body := &writer{}
			body.u32(uint32(len(f.locals)))
			for _, l := range f.locals {
				body.u32(1)
				body.u8(byte(l))
			}
			body.raw(f.body...)
			body.u8(opEnd)
			sec.u32(uint32(len(body.b)))
			sec.raw(body.b...)
		}
		w.section(sectionCode, sec)
	}

	return w.b
}

// writer appends LEB128-encoded values.
type writer struct {
	b []byte
}

func (w *writer) u8(v byte) { w.b = append(w.b, v) }
func (w *writer) raw(v ...byte) { w.b = append(w.b, v...) }
func (w *writer) u32(v uint32) { w.b = appendU32(w.b, v) }
func (w *writer) s32(v int32) { w.b = appendS32(w.b, v) }
func (w *writer) name(s string) { w.u32(uint32(len(s))); w.b = append(w.b, s...) }
func (w *writer) section(id byte, sec *writer) {
	w.u8(id)
	w.u32(uint32(len(sec.b)))
	w.raw(sec.b...)
}

func (w *writer) valTypes(ts []ValType) {
	w.u32(uint32(len(ts)))
	for _, t := range ts {
		w.u8(byte(t))
	}
}

func appendU32(b []byte, v uint32) []byte {
	for {
		c := byte(v & 0x7f)
		v >>= 7
		if v == 0 {
			return append(b, c)
		}
		b = append(b, c|0x80)
	}
}

func appendS32(b []byte, v int32) []byte {
	for {
		c := byte(v & 0x7f)
		v >>= 7
		if (v == 0 && c&0x40 == 0) || (v == -1 && c&0x40 != 0) {
			return append(b, c)
		}
		b = append(b, c|0x80)
	}
}
