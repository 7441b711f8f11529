package worker

import (
	"context"
	"encoding/gob"
	stderrors "errors"
	"io"
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/xatlas-go/errors"
	"github.com/wippyai/xatlas-go/native"
)

// ServeOptions configure Serve.
type ServeOptions struct {
	Logger *zap.Logger
	// WasmPath is used when an init request does not name a binary.
	WasmPath string
}

// Serve answers requests read from r by calling mod and writes responses
// to w. It returns nil after an exit request or when r reaches EOF, closing
// mod in both cases.
func Serve(ctx context.Context, r io.Reader, w io.Writer, mod native.Module, opts ServeOptions) error {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	dec := gob.NewDecoder(r)
	enc := gob.NewEncoder(w)
	var encMu sync.Mutex
	send := func(resp *Response) error {
		encMu.Lock()
		defer encMu.Unlock()
		return enc.Encode(resp)
	}

	progress := func(category native.ProgressCategory, value int) {
		if err := send(&Response{Progress: &Progress{Category: category, Value: value}}); err != nil {
			logger.Warn("send progress", zap.Error(err))
		}
	}

	for {
		var req Request
		if err := dec.Decode(&req); err != nil {
			closeErr := mod.Close(ctx)
			if stderrors.Is(err, io.EOF) {
				return closeErr
			}
			return errors.Wrap(errors.PhaseTransport, errors.KindInvalidData, err, "decode request")
		}

		resp := &Response{}
		var err error
		switch req.Op {
		case opInit:
			path := req.WasmPath
			if path == "" {
				path = opts.WasmPath
			}
			err = mod.Init(ctx, native.LoadOptions{WasmPath: path, OnProgress: progress})
		case opCreateAtlas:
			err = mod.CreateAtlas(ctx)
		case opAddMesh:
			err = mod.AddMesh(ctx, req.Mesh)
		case opGenerateAtlas:
			resp.Atlas, err = mod.GenerateAtlas(ctx, req.Chart, req.Pack, req.Flag)
		case opDestroyAtlas:
			err = mod.DestroyAtlas(ctx)
		case opSetProgressLogging:
			err = mod.SetProgressLogging(ctx, req.Flag)
		case opExit:
			err = mod.Close(ctx)
			resp.Err = toFault(err)
			if sendErr := send(resp); sendErr != nil {
				return sendErr
			}
			logger.Debug("worker exiting")
			return nil
		default:
			err = errors.Unsupported(errors.PhaseTransport, "operation "+req.Op)
		}

		if err != nil {
			logger.Debug("request failed", zap.String("op", req.Op), zap.Error(err))
		}
		resp.Err = toFault(err)
		if err := send(resp); err != nil {
			_ = mod.Close(ctx)
			return errors.Wrap(errors.PhaseTransport, errors.KindInvalidData, err, "encode response")
		}
	}
}
