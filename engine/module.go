package engine

import (
	"context"
	"io"
	"os"
	"sync"
	"sync/atomic"

	"github.com/tetratelabs/wazero"
	"go.uber.org/zap"

	"github.com/wippyai/xatlas-go/errors"
	"github.com/wippyai/xatlas-go/native"
)

// Config holds configuration for module creation
type Config struct {
	// Logger receives module diagnostics. Nil uses Logger().
	Logger *zap.Logger

	// Stdout and Stderr receive the guest's WASI output. Nil discards it.
	Stdout io.Writer
	Stderr io.Writer

	// BaseDir is the directory relative locator requests resolve against.
	BaseDir string

	// MemoryLimitPages sets the maximum guest memory in pages (64KB each).
	// 0 means the wazero default (65536 pages = 4GB).
	MemoryLimitPages uint32
}

// Module runs xatlas in the calling goroutine.
type Module struct {
	runtime    wazero.Runtime
	abi        abi
	logger     *zap.Logger
	onProgress native.ProgressFunc
	cfg        Config
	mu         sync.Mutex
	loaded     atomic.Bool
	inSession  bool
	closed     bool
}

var _ native.Module = (*Module)(nil)

// New creates an unloaded module with default configuration.
func New() *Module {
	return NewWithConfig(nil)
}

// NewWithConfig creates an unloaded module with custom configuration.
func NewWithConfig(cfg *Config) *Module {
	m := &Module{}
	if cfg != nil {
		m.cfg = *cfg
	}
	m.logger = m.cfg.Logger
	if m.logger == nil {
		m.logger = Logger()
	}
	return m
}

// Init reads, compiles and instantiates the wasm binary. The binary is
// resolved through native.LocateFile, so opts.WasmPath replaces the
// default xatlas.wasm next to BaseDir.
func (m *Module) Init(ctx context.Context, opts native.LoadOptions) error {
	booted, err := m.init(ctx, opts)
	if err != nil {
		return err
	}
	if booted && opts.OnLoad != nil {
		opts.OnLoad()
	}
	return nil
}

func (m *Module) init(ctx context.Context, opts native.LoadOptions) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return false, errors.Closed(errors.PhaseLoad, "xatlas module")
	}
	if m.loaded.Load() {
		return false, nil
	}

	path := native.LocateFile(opts.WasmPath)(native.WasmFileName, m.cfg.BaseDir)
	bin, err := os.ReadFile(path)
	if err != nil {
		return false, errors.Load("read "+path, err)
	}

	runtimeCfg := wazero.NewRuntimeConfig()
	if m.cfg.MemoryLimitPages > 0 {
		runtimeCfg = runtimeCfg.WithMemoryLimitPages(m.cfg.MemoryLimitPages)
	}
	rt := wazero.NewRuntimeWithConfig(ctx, runtimeCfg)

	m.onProgress = opts.OnProgress
	if err := instantiateHost(ctx, rt, m.progress); err != nil {
		rt.Close(ctx)
		return false, errors.Load("instantiate host modules", err)
	}

	compiled, err := rt.CompileModule(ctx, bin)
	if err != nil {
		rt.Close(ctx)
		return false, errors.Load("compile "+path, err)
	}

	modCfg := wazero.NewModuleConfig().
		WithName("xatlas").
		WithStartFunctions("_initialize")
	if m.cfg.Stdout != nil {
		modCfg = modCfg.WithStdout(m.cfg.Stdout)
	}
	if m.cfg.Stderr != nil {
		modCfg = modCfg.WithStderr(m.cfg.Stderr)
	}

	mod, err := rt.InstantiateModule(ctx, compiled, modCfg)
	if err != nil {
		rt.Close(ctx)
		return false, errors.Instantiation(err)
	}

	g, err := newWazeroGuest(mod, m.logger)
	if err != nil {
		rt.Close(ctx)
		return false, err
	}

	m.runtime = rt
	m.abi = abi{g: g}
	m.loaded.Store(true)
	m.logger.Info("xatlas module loaded",
		zap.String("path", path),
		zap.Int("bytes", len(bin)),
		zap.Uint32("memory", g.Size()))
	return true, nil
}

func (m *Module) progress(category native.ProgressCategory, progress int) {
	if m.onProgress != nil {
		m.onProgress(category, progress)
	}
}

func (m *Module) Loaded() bool {
	return m.loaded.Load()
}

// ready must be called with mu held.
func (m *Module) ready() error {
	if m.closed {
		return errors.Closed(errors.PhaseNative, "xatlas module")
	}
	if !m.loaded.Load() {
		return errors.NotInitialized(errors.PhaseNative, "xatlas module")
	}
	return nil
}

func (m *Module) CreateAtlas(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.ready(); err != nil {
		return err
	}
	if m.inSession {
		return errors.InvalidState(errors.PhaseSession, "atlas session already open")
	}
	if err := m.abi.createAtlas(ctx); err != nil {
		return err
	}
	m.inSession = true
	return nil
}

func (m *Module) AddMesh(ctx context.Context, mesh native.MeshData) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.ready(); err != nil {
		return err
	}
	if !m.inSession {
		return errors.InvalidState(errors.PhaseSession, "no open atlas session")
	}
	return m.abi.addMesh(ctx, mesh)
}

func (m *Module) GenerateAtlas(ctx context.Context, chart native.ChartOptions, pack native.PackOptions, computeCharts bool) (*native.Atlas, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.ready(); err != nil {
		return nil, err
	}
	if !m.inSession {
		return nil, errors.InvalidState(errors.PhaseSession, "no open atlas session")
	}
	return m.abi.generate(ctx, chart, pack, computeCharts)
}

// DestroyAtlas closes the open session. It is a no-op when none is open.
func (m *Module) DestroyAtlas(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.ready(); err != nil {
		return err
	}
	if !m.inSession {
		return nil
	}
	m.inSession = false
	return m.abi.destroyAtlas(ctx)
}

func (m *Module) SetProgressLogging(ctx context.Context, enabled bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.ready(); err != nil {
		return err
	}
	return m.abi.setProgressLogging(ctx, enabled)
}

// Close releases the wazero runtime. The module cannot be reloaded.
func (m *Module) Close(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	m.closed = true
	m.loaded.Store(false)
	m.inSession = false
	if m.runtime == nil {
		return nil
	}
	return m.runtime.Close(ctx)
}
