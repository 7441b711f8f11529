package worker

import (
	"context"
	"encoding/gob"
	"io"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/wippyai/xatlas-go/errors"
	"github.com/wippyai/xatlas-go/native"
)

// conn is the parent side of a running worker.
type conn struct {
	r    io.Reader
	w    io.WriteCloser
	wait func() error
	kill func() error
}

// Process runs the module in a child process.
type Process struct {
	launch     func(ctx context.Context, opts native.LoadOptions) (*conn, error)
	logger     *zap.Logger
	stderr     io.Writer
	conn       *conn
	enc        *gob.Encoder
	dec        *gob.Decoder
	onProgress native.ProgressFunc
	broken     error
	args       []string
	mu         sync.Mutex
	loaded     atomic.Bool
	closed     bool
}

var _ native.Module = (*Process)(nil)

// ProcessOption configures a Process.
type ProcessOption func(*Process)

// WithProcessLogger sets the parent side logger.
func WithProcessLogger(l *zap.Logger) ProcessOption {
	return func(p *Process) { p.logger = l }
}

// WithStderr forwards the child's stderr to w. The default is os.Stderr.
func WithStderr(w io.Writer) ProcessOption {
	return func(p *Process) { p.stderr = w }
}

// WithArgs appends extra arguments to the worker command line.
func WithArgs(args ...string) ProcessOption {
	return func(p *Process) { p.args = append(p.args, args...) }
}

// NewProcess creates a process-backed module. The child is started by Init
// from LoadOptions.WorkerPath.
func NewProcess(opts ...ProcessOption) *Process {
	p := &Process{
		logger: zap.NewNop(),
		stderr: os.Stderr,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.launch = p.exec
	return p
}

func (p *Process) exec(ctx context.Context, opts native.LoadOptions) (*conn, error) {
	var args []string
	if opts.WasmPath != "" {
		args = append(args, "-wasm", opts.WasmPath)
	}
	args = append(args, p.args...)
	cmd := exec.Command(opts.WorkerPath, args...)
	cmd.Stderr = p.stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, errors.Wrap(errors.PhaseTransport, errors.KindInstantiation, err, "worker stdin")
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, errors.Wrap(errors.PhaseTransport, errors.KindInstantiation, err, "worker stdout")
	}
	if err := cmd.Start(); err != nil {
		return nil, errors.Wrap(errors.PhaseTransport, errors.KindInstantiation, err, "start "+opts.WorkerPath)
	}
	p.logger.Debug("worker started", zap.String("path", opts.WorkerPath), zap.Int("pid", cmd.Process.Pid))

	return &conn{
		r:    stdout,
		w:    stdin,
		wait: cmd.Wait,
		kill: cmd.Process.Kill,
	}, nil
}

func (p *Process) Init(ctx context.Context, opts native.LoadOptions) error {
	p.mu.Lock()
	if p.loaded.Load() {
		p.mu.Unlock()
		return nil
	}
	if err := p.usable(); err != nil {
		p.mu.Unlock()
		return err
	}
	if p.conn == nil {
		if opts.WorkerPath == "" {
			p.mu.Unlock()
			return errors.InvalidInput(errors.PhaseTransport, "worker path is required for a process module")
		}
		c, err := p.launch(ctx, opts)
		if err != nil {
			p.mu.Unlock()
			return err
		}
		p.conn = c
		p.enc = gob.NewEncoder(c.w)
		p.dec = gob.NewDecoder(c.r)
	}
	p.onProgress = opts.OnProgress

	_, err := p.call(ctx, &Request{Op: opInit, WasmPath: opts.WasmPath})
	if err == nil {
		p.loaded.Store(true)
	}
	p.mu.Unlock()

	if err != nil {
		return err
	}
	if opts.OnLoad != nil {
		opts.OnLoad()
	}
	return nil
}

// usable must be called with mu held.
func (p *Process) usable() error {
	if p.closed {
		return errors.Closed(errors.PhaseTransport, "worker process")
	}
	if p.broken != nil {
		return errors.New(errors.PhaseTransport, errors.KindClosed).
			Detail("worker process is gone").
			Cause(p.broken).
			Build()
	}
	return nil
}

// call sends req and reads frames until the reply arrives. mu must be held.
// Cancelling ctx kills the child.
func (p *Process) call(ctx context.Context, req *Request) (*Response, error) {
	if err := p.usable(); err != nil {
		return nil, err
	}
	if p.conn == nil {
		return nil, errors.NotInitialized(errors.PhaseTransport, "worker process")
	}

	stop := context.AfterFunc(ctx, func() {
		if err := p.conn.kill(); err != nil {
			p.logger.Warn("kill worker", zap.Error(err))
		}
	})
	defer stop()

	if err := p.enc.Encode(req); err != nil {
		return nil, p.fail(ctx, errors.Wrap(errors.PhaseTransport, errors.KindInvalidData, err, "send "+req.Op))
	}

	for {
		var resp Response
		if err := p.dec.Decode(&resp); err != nil {
			return nil, p.fail(ctx, errors.Wrap(errors.PhaseTransport, errors.KindInvalidData, err, "receive "+req.Op))
		}
		if resp.Progress != nil {
			if p.onProgress != nil {
				p.onProgress(resp.Progress.Category, resp.Progress.Value)
			}
			continue
		}
		if err := resp.Err.err(); err != nil {
			return nil, err
		}
		return &resp, nil
	}
}

// fail marks the stream unusable. A cancelled ctx wins over the transport
// error it caused.
func (p *Process) fail(ctx context.Context, err error) error {
	p.broken = err
	p.loaded.Store(false)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

func (p *Process) Loaded() bool {
	return p.loaded.Load()
}

func (p *Process) do(ctx context.Context, req *Request) (*Response, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.loaded.Load() {
		if err := p.usable(); err != nil {
			return nil, err
		}
		return nil, errors.NotInitialized(errors.PhaseTransport, "worker process")
	}
	return p.call(ctx, req)
}

func (p *Process) CreateAtlas(ctx context.Context) error {
	_, err := p.do(ctx, &Request{Op: opCreateAtlas})
	return err
}

func (p *Process) AddMesh(ctx context.Context, mesh native.MeshData) error {
	_, err := p.do(ctx, &Request{Op: opAddMesh, Mesh: mesh})
	return err
}

func (p *Process) GenerateAtlas(ctx context.Context, chart native.ChartOptions, pack native.PackOptions, computeCharts bool) (*native.Atlas, error) {
	resp, err := p.do(ctx, &Request{Op: opGenerateAtlas, Chart: chart, Pack: pack, Flag: computeCharts})
	if err != nil {
		return nil, err
	}
	if resp.Atlas == nil {
		return nil, errors.New(errors.PhaseTransport, errors.KindInvalidData).
			Detail("worker returned no atlas").
			Build()
	}
	return resp.Atlas, nil
}

func (p *Process) DestroyAtlas(ctx context.Context) error {
	_, err := p.do(ctx, &Request{Op: opDestroyAtlas})
	return err
}

func (p *Process) SetProgressLogging(ctx context.Context, enabled bool) error {
	_, err := p.do(ctx, &Request{Op: opSetProgressLogging, Flag: enabled})
	return err
}

// Close asks the child to exit and waits for it. A child that is already
// gone is only reaped.
func (p *Process) Close(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	var err error
	if p.conn != nil {
		if p.broken == nil {
			_, exitErr := p.call(ctx, &Request{Op: opExit})
			err = multierr.Append(err, exitErr)
		}
		err = multierr.Append(err, p.conn.w.Close())
		if waitErr := p.conn.wait(); waitErr != nil && p.broken == nil {
			err = multierr.Append(err, waitErr)
		}
	}
	p.closed = true
	p.loaded.Store(false)
	return err
}
