package unwrap

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"

	"github.com/wippyai/xatlas-go/errors"
	"github.com/wippyai/xatlas-go/geometry"
	"github.com/wippyai/xatlas-go/native"
)

// Precondition errors returned by PackAtlas before any native call.
var (
	ErrNotLoaded     = errors.NotInitialized(errors.PhaseSession, "xatlas library")
	ErrNilMeshList   = errors.NilPointer(errors.PhaseSession, nil, "mesh list")
	ErrEmptyMeshList = errors.InvalidInput(errors.PhaseSession, "mesh list must have non-zero length")
)

// Atlas is the outcome of one PackAtlas call.
type Atlas struct {
	// Geometries are the input geometries that received results, in result order.
	Geometries []*geometry.Geometry
	// Meshes are the raw per-mesh records returned by the module.
	Meshes []native.MeshResult
	// Images holds one RGBA page per atlas when PackOptions.CreateImage is set.
	Images [][]uint32

	Width         int
	Height        int
	AtlasCount    int
	ChartCount    int
	MeshCount     int
	TexelsPerUnit float32
}

// Unwrapper drives a native.Module through atlas sessions.
type Unwrapper struct {
	mod          native.Module
	logger       *zap.Logger
	gate         *semaphore.Weighted
	loads        singleflight.Group
	cfg          Config
	pollInterval time.Duration
	mu           sync.RWMutex
	loaded       atomic.Bool
}

// New creates an Unwrapper owning mod.
func New(mod native.Module, opts ...Option) *Unwrapper {
	u := &Unwrapper{
		mod:          mod,
		logger:       zap.NewNop(),
		gate:         semaphore.NewWeighted(1),
		cfg:          DefaultConfig(),
		pollInterval: DefaultPollInterval,
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// Loaded reports whether LoadLibrary has completed.
func (u *Unwrapper) Loaded() bool {
	return u.loaded.Load()
}

// LoadLibrary boots the module. It returns immediately once loaded, and
// concurrent callers share a single boot. The boot itself is bounded by
// Config.LoadTimeout, each caller's wait by its own ctx.
func (u *Unwrapper) LoadLibrary(ctx context.Context, opts native.LoadOptions) error {
	if u.loaded.Load() {
		return nil
	}
	if opts.OnProgress == nil {
		opts.OnProgress = u.logProgress
	}
	timeout := u.Config().LoadTimeout

	ch := u.loads.DoChan("load", func() (any, error) {
		if u.loaded.Load() {
			return nil, nil
		}
		bctx := context.WithoutCancel(ctx)
		if timeout > 0 {
			var cancel context.CancelFunc
			bctx, cancel = context.WithTimeout(bctx, timeout)
			defer cancel()
		}

		start := time.Now()
		if err := u.mod.Init(bctx, opts); err != nil {
			return nil, err
		}
		if err := u.waitReady(bctx); err != nil {
			return nil, err
		}
		u.loaded.Store(true)
		u.logger.Info("xatlas library loaded", zap.Duration("elapsed", time.Since(start)))
		return nil, nil
	})

	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// waitReady polls the module until it reports ready.
func (u *Unwrapper) waitReady(ctx context.Context) error {
	if u.mod.Loaded() {
		return nil
	}
	ticker := time.NewTicker(u.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return errors.Wrap(errors.PhaseLoad, errors.KindNotInitialized, ctx.Err(), "wait for xatlas module")
		case <-ticker.C:
			if u.mod.Loaded() {
				return nil
			}
		}
	}
}

func (u *Unwrapper) logProgress(category native.ProgressCategory, progress int) {
	u.logger.Info("xatlas progress",
		zap.Stringer("category", category),
		zap.Int("progress", progress))
}

// PackAtlas packs meshes into one atlas. Packed UVs go to outputUV and the
// module's pass-through input UVs to inputUV; empty names default to uv2
// and uv. Meshes without an index or without a 3-component position are
// skipped with a warning.
func (u *Unwrapper) PackAtlas(ctx context.Context, meshes []*geometry.Geometry, outputUV, inputUV string) (*Atlas, error) {
	if !u.loaded.Load() {
		return nil, ErrNotLoaded
	}
	if meshes == nil {
		return nil, ErrNilMeshList
	}
	if len(meshes) == 0 {
		return nil, ErrEmptyMeshList
	}
	if outputUV == "" {
		outputUV = geometry.AttrUV2
	}
	if inputUV == "" {
		inputUV = geometry.AttrUV
	}

	if !u.gate.TryAcquire(1) {
		u.logger.Debug("unwrapping another batch, waiting")
		if err := u.gate.Acquire(ctx, 1); err != nil {
			return nil, err
		}
	}
	defer u.gate.Release(1)

	return u.session(ctx, u.Config(), meshes, outputUV, inputUV)
}

// UnwrapGeometry packs a single geometry. Empty names default to uv for the
// packed UVs and uv2 for the input UVs.
func (u *Unwrapper) UnwrapGeometry(ctx context.Context, g *geometry.Geometry, outputUV, inputUV string) (*Atlas, error) {
	if g == nil {
		return nil, errors.NilPointer(errors.PhaseSession, nil, "geometry")
	}
	if outputUV == "" {
		outputUV = geometry.AttrUV
	}
	if inputUV == "" {
		inputUV = geometry.AttrUV2
	}
	return u.PackAtlas(ctx, []*geometry.Geometry{g}, outputUV, inputUV)
}

// session runs one createAtlas..destroyAtlas bracket. The bracket is
// closed on every path once opened; a failed close is joined to the
// returned error.
func (u *Unwrapper) session(ctx context.Context, cfg Config, meshes []*geometry.Geometry, outputUV, inputUV string) (result *Atlas, err error) {
	if err := u.mod.SetProgressLogging(ctx, cfg.LogProgress); err != nil {
		return nil, err
	}
	if err := u.mod.CreateAtlas(ctx); err != nil {
		return nil, err
	}
	defer func() {
		if derr := u.mod.DestroyAtlas(context.WithoutCancel(ctx)); derr != nil {
			u.logger.Warn("destroy atlas", zap.Error(derr))
			err = multierr.Append(err, derr)
			result = nil
		}
	}()

	added, err := u.addMeshes(ctx, cfg, meshes)
	if err != nil {
		return nil, err
	}
	if len(added) == 0 {
		u.logger.Warn("no supported meshes to unwrap", zap.Int("meshes", len(meshes)))
		return &Atlas{}, nil
	}

	start := time.Now()
	atlas, err := u.mod.GenerateAtlas(ctx, cfg.Chart, cfg.Pack, true)
	if err != nil {
		return nil, err
	}
	if cfg.TimeUnwrap {
		u.logger.Info("generated atlas",
			zap.Int("meshes", len(added)),
			zap.Duration("elapsed", time.Since(start)))
	}

	return u.reconstruct(atlas, added, outputUV, inputUV), nil
}

func supported(g *geometry.Geometry) bool {
	if g == nil || g.Index() == nil {
		return false
	}
	pos := g.Attribute(geometry.AttrPosition)
	return pos != nil && pos.ItemSize() == 3
}

// addMeshes submits the supported meshes in order and returns them keyed by
// ID. A geometry whose ID was already submitted is skipped. Coercion
// failures abort the batch.
func (u *Unwrapper) addMeshes(ctx context.Context, cfg Config, meshes []*geometry.Geometry) (map[string]*geometry.Geometry, error) {
	added := make(map[string]*geometry.Geometry, len(meshes))
	for i, g := range meshes {
		if !supported(g) {
			fields := []zap.Field{zap.Int("position", i)}
			if g != nil {
				fields = append(fields, zap.String("id", g.ID), zap.String("name", g.Name))
			}
			u.logger.Warn("geometry not supported", fields...)
			continue
		}
		if _, dup := added[g.ID]; dup {
			u.logger.Warn("duplicate geometry id, skipping", zap.Int("position", i), zap.String("id", g.ID))
			continue
		}

		data, err := u.meshData(g, cfg)
		if err != nil {
			u.logger.Error("coerce geometry", zap.String("id", g.ID), zap.Error(err))
			return nil, err
		}

		start := time.Now()
		if err := u.mod.AddMesh(ctx, data); err != nil {
			return nil, err
		}
		if cfg.TimeUnwrap {
			u.logger.Info("mesh added to atlas",
				zap.Int("mesh", len(added)+1),
				zap.String("id", g.ID),
				zap.Duration("elapsed", time.Since(start)))
		}
		added[g.ID] = g
	}
	return added, nil
}

func (u *Unwrapper) meshData(g *geometry.Geometry, cfg Config) (native.MeshData, error) {
	index, err := geometry.IndexArray(g.Index())
	if err != nil {
		return native.MeshData{}, err
	}

	data := native.MeshData{
		ID:          g.ID,
		Indices:     index,
		Positions:   geometry.Float32Array(g.Attribute(geometry.AttrPosition)),
		UseNormals:  cfg.UseNormals,
		UseInputUVs: cfg.Chart.UseInputMeshUvs,
		Scale:       float32(g.Scale()),
	}
	if a := g.Attribute(geometry.AttrNormal); a != nil {
		if a.ItemSize() == 3 {
			data.Normals = geometry.Float32Array(a)
		} else {
			u.logger.Warn("ignoring normal attribute", zap.String("id", g.ID), zap.Int("item_size", a.ItemSize()))
		}
	}
	if a := g.Attribute(geometry.AttrUV); a != nil {
		if a.ItemSize() == 2 {
			data.UVs = geometry.Float32Array(a)
		} else {
			u.logger.Warn("ignoring uv attribute", zap.String("id", g.ID), zap.Int("item_size", a.ItemSize()))
		}
	}
	return data, nil
}

// Close waits for the running session, if any, and closes the module.
func (u *Unwrapper) Close(ctx context.Context) error {
	if err := u.gate.Acquire(ctx, 1); err != nil {
		return err
	}
	defer u.gate.Release(1)

	u.loaded.Store(false)
	return u.mod.Close(ctx)
}
