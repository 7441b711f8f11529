package nativetest

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/wippyai/xatlas-go/errors"
	"github.com/wippyai/xatlas-go/native"
)

// Operation names used in recorded calls and failure injection.
const (
	OpInit               = "init"
	OpCreateAtlas        = "createAtlas"
	OpAddMesh            = "addMesh"
	OpGenerateAtlas      = "generateAtlas"
	OpDestroyAtlas       = "destroyAtlas"
	OpSetProgressLogging = "setProgressLogging"
	OpClose              = "close"
)

// Call is one recorded invocation.
type Call struct {
	Op     string
	MeshID string
	Flag   bool
}

// Option configures a Module.
type Option func(*Module)

// WithBootDelay makes Init take at least d.
func WithBootDelay(d time.Duration) Option {
	return func(m *Module) { m.bootDelay = d }
}

// WithFailure makes every call to op fail with err.
func WithFailure(op string, err error) Option {
	return func(m *Module) { m.failures[op] = err }
}

// WithAddMeshFailure rejects the mesh with the given ID.
func WithAddMeshFailure(id string, err error) Option {
	return func(m *Module) { m.meshFailures[id] = err }
}

// WithGenerateHook runs fn at the start of GenerateAtlas with no lock held.
// A non-nil error fails the call.
func WithGenerateHook(fn func(ctx context.Context) error) Option {
	return func(m *Module) { m.generateHook = fn }
}

// Module is a native.Module that lays out one chart per triangle.
type Module struct {
	generateHook func(ctx context.Context) error
	failures     map[string]error
	meshFailures map[string]error
	onProgress   native.ProgressFunc
	calls        []Call
	meshes       []native.MeshData
	bootDelay    time.Duration
	boots        int
	overlaps     int
	mu           sync.Mutex
	loaded       bool
	inSession    bool
	progress     bool
	closed       bool
}

var _ native.Module = (*Module)(nil)

// New creates an unloaded module.
func New(opts ...Option) *Module {
	m := &Module{
		failures:     make(map[string]error),
		meshFailures: make(map[string]error),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// SetFailure changes the injected failure for op. A nil err clears it.
func (m *Module) SetFailure(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.failures, op)
		return
	}
	m.failures[op] = err
}

// Calls returns a copy of the recorded calls.
func (m *Module) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.calls)
}

// Ops returns the recorded operation names in order.
func (m *Module) Ops() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ops := make([]string, len(m.calls))
	for i, c := range m.calls {
		ops[i] = c.Op
	}
	return ops
}

// Boots returns how many times Init actually booted the module.
func (m *Module) Boots() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.boots
}

// Overlaps returns how many CreateAtlas calls found a session already open.
func (m *Module) Overlaps() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.overlaps
}

// InSession reports whether an atlas session is open.
func (m *Module) InSession() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.inSession
}

// record must be called with mu held.
func (m *Module) record(c Call) error {
	m.calls = append(m.calls, c)
	if m.closed && c.Op != OpClose {
		return errors.Closed(errors.PhaseNative, "test module")
	}
	return m.failures[c.Op]
}

func (m *Module) Init(ctx context.Context, opts native.LoadOptions) error {
	m.mu.Lock()
	if err := m.record(Call{Op: OpInit}); err != nil {
		m.mu.Unlock()
		return err
	}
	if m.loaded {
		m.mu.Unlock()
		return nil
	}
	m.boots++
	m.mu.Unlock()

	if m.bootDelay > 0 {
		t := time.NewTimer(m.bootDelay)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}

	m.mu.Lock()
	m.loaded = true
	m.onProgress = opts.OnProgress
	m.mu.Unlock()

	if opts.OnLoad != nil {
		opts.OnLoad()
	}
	return nil
}

func (m *Module) Loaded() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loaded
}

// ready must be called with mu held.
func (m *Module) ready() error {
	if !m.loaded {
		return errors.NotInitialized(errors.PhaseNative, "test module")
	}
	return nil
}

func (m *Module) CreateAtlas(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.record(Call{Op: OpCreateAtlas}); err != nil {
		return err
	}
	if err := m.ready(); err != nil {
		return err
	}
	if m.inSession {
		m.overlaps++
		return errors.InvalidState(errors.PhaseSession, "atlas session already open")
	}
	m.inSession = true
	m.meshes = nil
	return nil
}

func (m *Module) AddMesh(ctx context.Context, mesh native.MeshData) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.record(Call{Op: OpAddMesh, MeshID: mesh.ID}); err != nil {
		return err
	}
	if err := m.ready(); err != nil {
		return err
	}
	if !m.inSession {
		return errors.InvalidState(errors.PhaseSession, "no open atlas session")
	}
	if err := m.meshFailures[mesh.ID]; err != nil {
		return err
	}
	if err := validate(&mesh); err != nil {
		return err
	}

	m.meshes = append(m.meshes, cloneMesh(mesh))
	m.report(native.ProgressAddMesh, 100)
	return nil
}

func (m *Module) GenerateAtlas(ctx context.Context, chart native.ChartOptions, pack native.PackOptions, computeCharts bool) (*native.Atlas, error) {
	m.mu.Lock()
	if err := m.record(Call{Op: OpGenerateAtlas, Flag: computeCharts}); err != nil {
		m.mu.Unlock()
		return nil, err
	}
	if err := m.ready(); err != nil {
		m.mu.Unlock()
		return nil, err
	}
	if !m.inSession {
		m.mu.Unlock()
		return nil, errors.InvalidState(errors.PhaseSession, "no open atlas session")
	}
	hook := m.generateHook
	m.mu.Unlock()

	if hook != nil {
		if err := hook(ctx); err != nil {
			return nil, err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.inSession {
		return nil, errors.InvalidState(errors.PhaseSession, "atlas session closed during generate")
	}
	m.report(native.ProgressComputeCharts, 100)
	m.report(native.ProgressPackCharts, 100)
	atlas := layout(m.meshes, pack)
	m.report(native.ProgressBuildOutputMeshes, 100)
	return atlas, nil
}

func (m *Module) DestroyAtlas(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.record(Call{Op: OpDestroyAtlas}); err != nil {
		return err
	}
	if err := m.ready(); err != nil {
		return err
	}
	m.inSession = false
	m.meshes = nil
	return nil
}

func (m *Module) SetProgressLogging(ctx context.Context, enabled bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.record(Call{Op: OpSetProgressLogging, Flag: enabled}); err != nil {
		return err
	}
	if err := m.ready(); err != nil {
		return err
	}
	m.progress = enabled
	return nil
}

func (m *Module) Close(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.record(Call{Op: OpClose}); err != nil {
		return err
	}
	m.closed = true
	m.loaded = false
	m.inSession = false
	m.meshes = nil
	return nil
}

// report must be called with mu held.
func (m *Module) report(category native.ProgressCategory, progress int) {
	if m.progress && m.onProgress != nil {
		m.onProgress(category, progress)
	}
}

func validate(mesh *native.MeshData) error {
	if len(mesh.Positions) == 0 || len(mesh.Positions)%3 != 0 {
		return errors.InvalidData(errors.PhaseNative, []string{mesh.ID, "position"},
			"positions must hold 3 components per vertex")
	}
	if len(mesh.Indices)%3 != 0 {
		return errors.InvalidData(errors.PhaseNative, []string{mesh.ID, "index"},
			"index count must be a multiple of 3")
	}
	vc := mesh.VertexCount()
	for i, idx := range mesh.Indices {
		if int(idx) >= vc {
			return errors.New(errors.PhaseNative, errors.KindInvalidData).
				Path(mesh.ID, "index").
				Value(idx).
				Detail("add mesh: index %d out of range at %d", idx, i).
				Build()
		}
	}
	if mesh.Normals != nil && len(mesh.Normals) != vc*3 {
		return errors.InvalidData(errors.PhaseNative, []string{mesh.ID, "normal"},
			"normal count does not match vertex count")
	}
	if mesh.UVs != nil && len(mesh.UVs) != vc*2 {
		return errors.InvalidData(errors.PhaseNative, []string{mesh.ID, "uv"},
			"uv count does not match vertex count")
	}
	return nil
}

func cloneMesh(m native.MeshData) native.MeshData {
	m.Indices = slices.Clone(m.Indices)
	m.Positions = slices.Clone(m.Positions)
	m.Normals = slices.Clone(m.Normals)
	m.UVs = slices.Clone(m.UVs)
	return m
}
