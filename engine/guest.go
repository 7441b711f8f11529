package engine

import (
	"bytes"
	"context"

	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/xatlas-go/errors"
)

// wazeroGuest adapts an instantiated wazero module to the guest interface.
type wazeroGuest struct {
	mod    api.Module
	mem    api.Memory
	funcs  map[string]api.Function
	logger *zap.Logger
}

func newWazeroGuest(mod api.Module, logger *zap.Logger) (*wazeroGuest, error) {
	mem := mod.ExportedMemory(exportMemory)
	if mem == nil {
		mem = mod.Memory()
	}
	if mem == nil {
		return nil, errors.NotFound(errors.PhaseLoad, "export", exportMemory)
	}

	funcs := make(map[string]api.Function, len(requiredExports))
	for _, name := range requiredExports {
		fn := mod.ExportedFunction(name)
		if fn == nil {
			return nil, errors.NotFound(errors.PhaseLoad, "export", name)
		}
		funcs[name] = fn
	}

	return &wazeroGuest{mod: mod, mem: mem, funcs: funcs, logger: logger}, nil
}

// Read copies length bytes out of guest memory. The copy stays valid after
// the memory grows.
func (g *wazeroGuest) Read(offset, length uint32) ([]byte, error) {
	b, ok := g.mem.Read(offset, length)
	if !ok {
		return nil, errors.OutOfBounds(errors.PhaseNative, nil, int(offset)+int(length), int(g.mem.Size()))
	}
	return bytes.Clone(b), nil
}

func (g *wazeroGuest) Write(offset uint32, data []byte) error {
	if !g.mem.Write(offset, data) {
		return errors.OutOfBounds(errors.PhaseNative, nil, int(offset)+len(data), int(g.mem.Size()))
	}
	return nil
}

func (g *wazeroGuest) ReadU32(offset uint32) (uint32, error) {
	v, ok := g.mem.ReadUint32Le(offset)
	if !ok {
		return 0, errors.OutOfBounds(errors.PhaseNative, nil, int(offset)+4, int(g.mem.Size()))
	}
	return v, nil
}

func (g *wazeroGuest) WriteU32(offset, value uint32) error {
	if !g.mem.WriteUint32Le(offset, value) {
		return errors.OutOfBounds(errors.PhaseNative, nil, int(offset)+4, int(g.mem.Size()))
	}
	return nil
}

func (g *wazeroGuest) Size() uint32 {
	return g.mem.Size()
}

func (g *wazeroGuest) Alloc(size uint32) (uint32, error) {
	res, err := g.funcs[exportMalloc].Call(context.Background(), uint64(size))
	if err != nil {
		return 0, errors.NativeCall(exportMalloc, err)
	}
	ptr := api.DecodeU32(res[0])
	if ptr == 0 {
		return 0, errors.AllocationFailed(errors.PhaseNative, size)
	}
	return ptr, nil
}

func (g *wazeroGuest) Free(ptr uint32) {
	if ptr == 0 {
		return
	}
	if _, err := g.funcs[exportFree].Call(context.Background(), uint64(ptr)); err != nil {
		g.logger.Warn("free guest memory", zap.Uint32("ptr", ptr), zap.Error(err))
	}
}

func (g *wazeroGuest) Call(ctx context.Context, name string, params ...uint64) ([]uint64, error) {
	fn, ok := g.funcs[name]
	if !ok {
		return nil, errors.NotFound(errors.PhaseNative, "export", name)
	}
	res, err := fn.Call(ctx, params...)
	if err != nil {
		return nil, errors.NativeCall(name, err)
	}
	return res, nil
}
