package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/wippyai/xatlas-go/config"
	"github.com/wippyai/xatlas-go/engine"
	"github.com/wippyai/xatlas-go/errors"
	"github.com/wippyai/xatlas-go/geometry"
	"github.com/wippyai/xatlas-go/native"
	"github.com/wippyai/xatlas-go/unwrap"
	"github.com/wippyai/xatlas-go/worker"
)

// job is one invocation of the command.
type job struct {
	cfg    *config.Config
	log    *zap.Logger
	mod    native.Module
	outDir string
	inputs []string
	sphere bool
}

type summary struct {
	atlas   *unwrap.Atlas
	files   []string
	meshes  int
	elapsed time.Duration
}

func (s *summary) print(w io.Writer) {
	a := s.atlas
	fmt.Fprintf(w, "Atlas: %dx%d, %d page(s), %d chart(s)\n", a.Width, a.Height, a.AtlasCount, a.ChartCount)
	fmt.Fprintf(w, "Meshes: %d submitted, %d unwrapped\n", s.meshes, len(a.Geometries))
	fmt.Fprintf(w, "Texels per unit: %.3f\n", a.TexelsPerUnit)
	fmt.Fprintf(w, "Elapsed: %s\n", s.elapsed.Round(time.Millisecond))
	for _, f := range s.files {
		fmt.Fprintf(w, "  wrote %s\n", f)
	}
}

// newModule builds the module for the configured transport.
func newModule(cfg *config.Config, log *zap.Logger) (native.Module, error) {
	inProcess := func() native.Module {
		return engine.NewWithConfig(&engine.Config{
			Logger:           log,
			MemoryLimitPages: cfg.Library.MemoryLimitPages,
		})
	}

	switch cfg.Library.Transport {
	case config.TransportInProcess:
		return inProcess(), nil
	case config.TransportThread:
		return worker.NewThread(inProcess(), worker.WithThreadLogger(log)), nil
	case config.TransportProcess:
		args := []string{"-log-level", cfg.Logging.Level}
		if cfg.Library.MemoryLimitPages > 0 {
			args = append(args, "-memory-limit", fmt.Sprint(cfg.Library.MemoryLimitPages))
		}
		return worker.NewProcess(
			worker.WithProcessLogger(log),
			worker.WithStderr(os.Stderr),
			worker.WithArgs(args...),
		), nil
	}
	return nil, errors.Unsupported(errors.PhaseConfig, "transport "+cfg.Library.Transport)
}

// run loads the inputs, packs them and writes the results.
func (j *job) run(ctx context.Context, progress native.ProgressFunc) (*summary, error) {
	start := time.Now()

	meshes, err := j.loadMeshes(ctx)
	if err != nil {
		return nil, err
	}

	mod := j.mod
	if mod == nil {
		if mod, err = newModule(j.cfg, j.log); err != nil {
			return nil, err
		}
	}

	u := unwrap.New(mod, unwrap.WithLogger(j.log), unwrap.WithConfig(j.cfg.UnwrapperConfig()))
	defer func() {
		if err := u.Close(context.WithoutCancel(ctx)); err != nil {
			j.log.Warn("close module", zap.Error(err))
		}
	}()

	opts := j.cfg.LoadOptions()
	opts.OnProgress = progress
	if err := u.LoadLibrary(ctx, opts); err != nil {
		return nil, err
	}

	atlas, err := u.PackAtlas(ctx, meshes, j.cfg.Unwrap.OutputUV, j.cfg.Unwrap.InputUV)
	if err != nil {
		return nil, err
	}

	files, err := j.write(ctx, atlas)
	if err != nil {
		return nil, err
	}
	return &summary{atlas: atlas, files: files, meshes: len(meshes), elapsed: time.Since(start)}, nil
}

// loadMeshes parses the inputs concurrently and returns their geometries in
// argument order.
func (j *job) loadMeshes(ctx context.Context) ([]*geometry.Geometry, error) {
	if j.sphere {
		g := geometry.Sphere(1, 32, 16)
		g.Name = "sphere"
		return []*geometry.Geometry{g}, nil
	}

	results := make([][]*geometry.Geometry, len(j.inputs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(j.cfg.Unwrap.Workers)
	for i, path := range j.inputs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			geoms, err := readOBJFile(path)
			if err != nil {
				return err
			}
			j.log.Debug("loaded mesh file", zap.String("path", path), zap.Int("geometries", len(geoms)))
			results[i] = geoms
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var meshes []*geometry.Geometry
	for _, geoms := range results {
		meshes = append(meshes, geoms...)
	}
	if len(meshes) == 0 {
		return nil, errors.InvalidInput(errors.PhaseParse, "no geometry found in inputs")
	}
	return meshes, nil
}

func readOBJFile(path string) ([]*geometry.Geometry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return geometry.ReadOBJ(f, name)
}

// write saves every unwrapped geometry as OBJ and every atlas page as PNG.
func (j *job) write(ctx context.Context, atlas *unwrap.Atlas) ([]string, error) {
	if err := os.MkdirAll(j.outDir, 0o755); err != nil {
		return nil, err
	}

	files := make([]string, len(atlas.Geometries)+len(atlas.Images))
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(j.cfg.Unwrap.Workers)

	for i, geom := range atlas.Geometries {
		path := filepath.Join(j.outDir, fmt.Sprintf("%03d-%s.obj", i, fileName(geom.Name)))
		files[i] = path
		g.Go(func() error {
			return writeOBJFile(path, geom, j.cfg.Unwrap.OutputUV)
		})
	}
	for i, page := range atlas.Images {
		path := filepath.Join(j.outDir, fmt.Sprintf("atlas-%d.png", i))
		files[len(atlas.Geometries)+i] = path
		g.Go(func() error {
			return writePNG(path, page, atlas.Width, atlas.Height)
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return files, nil
}

func writeOBJFile(path string, g *geometry.Geometry, uvName string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := geometry.WriteOBJ(f, g, uvName); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// fileName makes a geometry name safe to use in a path.
func fileName(name string) string {
	if name == "" {
		return "mesh"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, name)
}
