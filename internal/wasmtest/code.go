package wasmtest

const (
	opBlock     = 0x02
	opLoop      = 0x03
	opIf        = 0x04
	opEnd       = 0x0b
	opBr        = 0x0c
	opBrIf      = 0x0d
	opReturn    = 0x0f
	opCall      = 0x10
	opDrop      = 0x1a
	opLocalGet  = 0x20
	opLocalSet  = 0x21
	opLocalTee  = 0x22
	opGlobalGet = 0x23
	opGlobalSet = 0x24
	opI32Load   = 0x28
	opI32Load16 = 0x2f
	opI32Store  = 0x36
	opI32Const  = 0x41
	opI32Eqz    = 0x45
	opI32GeU    = 0x4f
	opI32Add    = 0x6a
	opI32Mul    = 0x6c
	opI32DivU   = 0x6e
	opI32RemU   = 0x70
	opI32And    = 0x71
	opI32Shl    = 0x74

	blockEmpty = 0x40
)

// Code builds a function body. The closing end is added by Module.Func.
type Code struct {
	w writer
}

func (c *Code) Bytes() []byte {
	if c == nil {
		return nil
	}
	return c.w.b
}

func (c *Code) op(op byte) *Code {
	c.w.u8(op)
	return c
}

func (c *Code) opIdx(op byte, idx uint32) *Code {
	c.w.u8(op)
	c.w.u32(idx)
	return c
}

// mem emits a memory instruction with the given alignment exponent.
func (c *Code) mem(op byte, align, offset uint32) *Code {
	c.w.u8(op)
	c.w.u32(align)
	c.w.u32(offset)
	return c
}

func (c *Code) I32Const(v int32) *Code {
	c.w.u8(opI32Const)
	c.w.s32(v)
	return c
}

func (c *Code) LocalGet(i uint32) *Code { return c.opIdx(opLocalGet, i) }
func (c *Code) LocalSet(i uint32) *Code { return c.opIdx(opLocalSet, i) }
func (c *Code) LocalTee(i uint32) *Code { return c.opIdx(opLocalTee, i) }
func (c *Code) GlobalGet(i uint32) *Code { return c.opIdx(opGlobalGet, i) }
func (c *Code) GlobalSet(i uint32) *Code { return c.opIdx(opGlobalSet, i) }
func (c *Code) Call(fn uint32) *Code { return c.opIdx(opCall, fn) }
func (c *Code) Br(depth uint32) *Code { return c.opIdx(opBr, depth) }
func (c *Code) BrIf(depth uint32) *Code { return c.opIdx(opBrIf, depth) }

func (c *Code) I32Load(offset uint32) *Code { return c.mem(opI32Load, 2, offset) }
func (c *Code) I32Load16U(offset uint32) *Code { return c.mem(opI32Load16, 1, offset) }
func (c *Code) I32Store(offset uint32) *Code { return c.mem(opI32Store, 2, offset) }

func (c *Code) I32Eqz() *Code { return c.op(opI32Eqz) }
func (c *Code) I32GeU() *Code { return c.op(opI32GeU) }
func (c *Code) I32Add() *Code { return c.op(opI32Add) }
func (c *Code) I32Mul() *Code { return c.op(opI32Mul) }
func (c *Code) I32DivU() *Code { return c.op(opI32DivU) }
func (c *Code) I32RemU() *Code { return c.op(opI32RemU) }
func (c *Code) I32And() *Code { return c.op(opI32And) }
func (c *Code) I32Shl() *Code { return c.op(opI32Shl) }
func (c *Code) Drop() *Code { return c.op(opDrop) }
func (c *Code) Return() *Code { return c.op(opReturn) }
func (c *Code) End() *Code { return c.op(opEnd) }

// Block, Loop and If open a construct with no result; close it with End.
func (c *Code) Block() *Code { c.w.raw(opBlock, blockEmpty); return c }
func (c *Code) Loop() *Code { c.w.raw(opLoop, blockEmpty); return c }
func (c *Code) If() *Code { c.w.raw(opIf, blockEmpty); return c }

// For runs body with local i counting from 0 while i < the value pushed by
// limit.
func (c *Code) For(i uint32, limit func(*Code), body func(*Code)) *Code {
	c.I32Const(0).LocalSet(i)
	c.Block().Loop()
	c.LocalGet(i)
	limit(c)
	c.I32GeU().BrIf(1)
	body(c)
	c.LocalGet(i).I32Const(1).I32Add().LocalSet(i)
	c.Br(0).End().End()
	return c
}
