package worker

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/wippyai/xatlas-go/errors"
	"github.com/wippyai/xatlas-go/native"
)

// Thread runs every call to the wrapped module on one dedicated goroutine.
type Thread struct {
	mod       native.Module
	logger    *zap.Logger
	jobs      chan func()
	done      chan struct{}
	closeOnce sync.Once
	closeErr  error
	loaded    atomic.Bool
}

var _ native.Module = (*Thread)(nil)

// ThreadOption configures a Thread.
type ThreadOption func(*Thread)

// WithThreadLogger sets the thread's logger.
func WithThreadLogger(l *zap.Logger) ThreadOption {
	return func(t *Thread) { t.logger = l }
}

// NewThread starts the worker goroutine. mod must not be used directly
// afterwards.
func NewThread(mod native.Module, opts ...ThreadOption) *Thread {
	t := &Thread{
		mod:    mod,
		logger: zap.NewNop(),
		jobs:   make(chan func()),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(t)
	}
	go t.run()
	return t
}

func (t *Thread) run() {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	for {
		select {
		case job := <-t.jobs:
			job()
		case <-t.done:
			return
		}
	}
}

// do runs fn on the worker goroutine and waits for it. When ctx ends first
// the call is abandoned but fn still runs to completion before the next job.
func (t *Thread) do(ctx context.Context, fn func() error) error {
	errc := make(chan error, 1)
	job := func() { errc <- fn() }

	select {
	case t.jobs <- job:
	case <-t.done:
		return errors.Closed(errors.PhaseTransport, "worker thread")
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		t.logger.Warn("worker call abandoned", zap.Error(ctx.Err()))
		return ctx.Err()
	}
}

func (t *Thread) Init(ctx context.Context, opts native.LoadOptions) error {
	err := t.do(ctx, func() error { return t.mod.Init(ctx, opts) })
	if err == nil {
		t.loaded.Store(true)
	}
	return err
}

func (t *Thread) Loaded() bool {
	return t.loaded.Load()
}

func (t *Thread) CreateAtlas(ctx context.Context) error {
	return t.do(ctx, func() error { return t.mod.CreateAtlas(ctx) })
}

func (t *Thread) AddMesh(ctx context.Context, mesh native.MeshData) error {
	return t.do(ctx, func() error { return t.mod.AddMesh(ctx, mesh) })
}

func (t *Thread) GenerateAtlas(ctx context.Context, chart native.ChartOptions, pack native.PackOptions, computeCharts bool) (*native.Atlas, error) {
	var atlas *native.Atlas
	err := t.do(ctx, func() error {
		var err error
		atlas, err = t.mod.GenerateAtlas(ctx, chart, pack, computeCharts)
		return err
	})
	if err != nil {
		return nil, err
	}
	return atlas, nil
}

func (t *Thread) DestroyAtlas(ctx context.Context) error {
	return t.do(ctx, func() error { return t.mod.DestroyAtlas(ctx) })
}

func (t *Thread) SetProgressLogging(ctx context.Context, enabled bool) error {
	return t.do(ctx, func() error { return t.mod.SetProgressLogging(ctx, enabled) })
}

// Close closes the wrapped module on the worker goroutine and stops it.
// Later calls fail with a closed error.
func (t *Thread) Close(ctx context.Context) error {
	t.closeOnce.Do(func() {
		t.closeErr = t.do(ctx, func() error { return t.mod.Close(ctx) })
		t.loaded.Store(false)
		close(t.done)
	})
	return t.closeErr
}
