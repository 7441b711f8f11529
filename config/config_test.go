package config

import (
	stderrors "errors"
	"flag"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/wippyai/xatlas-go/errors"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Library.Transport != TransportInProcess {
		t.Errorf("expected transport inprocess, got %s", cfg.Library.Transport)
	}
	if cfg.Library.WasmPath != "xatlas.wasm" {
		t.Errorf("expected wasm path xatlas.wasm, got %s", cfg.Library.WasmPath)
	}
	if cfg.Pack.Resolution != 2048 {
		t.Errorf("expected resolution 2048, got %d", cfg.Pack.Resolution)
	}
	if cfg.Chart.MaxIterations != 1 {
		t.Errorf("expected max iterations 1, got %d", cfg.Chart.MaxIterations)
	}
	if cfg.Unwrap.OutputUV != "uv2" || cfg.Unwrap.InputUV != "uv" {
		t.Errorf("expected uv2/uv slots, got %s/%s", cfg.Unwrap.OutputUV, cfg.Unwrap.InputUV)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("expected log level 'info', got %s", cfg.Logging.Level)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoadFromFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "xatlas.yaml")

	yamlContent := `
library:
  wasm_path: /opt/xatlas/xatlas.wasm
  worker_path: /opt/xatlas/xatlas-worker
  transport: process
  load_timeout: 5s

chart:
  max_iterations: 4
  use_input_mesh_uvs: true

pack:
  resolution: 1024
  padding: 2
  create_image: true

unwrap:
  use_normals: true
  output_uv: uv

logging:
  level: debug
  log_file: unwrap.log
`
	if err := os.WriteFile(configPath, []byte(yamlContent), 0o644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Library.Transport != TransportProcess || cfg.Library.LoadTimeout != 5*time.Second {
		t.Errorf("library = %+v", cfg.Library)
	}
	if cfg.Chart.MaxIterations != 4 || !cfg.Chart.UseInputMeshUvs {
		t.Errorf("chart = %+v", cfg.Chart)
	}
	// unset keys keep their defaults
	if cfg.Chart.StraightnessWeight != 6 {
		t.Errorf("expected straightness weight 6, got %v", cfg.Chart.StraightnessWeight)
	}
	if cfg.Pack.Resolution != 1024 || cfg.Pack.Padding != 2 || !cfg.Pack.CreateImage || !cfg.Pack.RotateCharts {
		t.Errorf("pack = %+v", cfg.Pack)
	}
	if cfg.Unwrap.OutputUV != "uv" || cfg.Unwrap.InputUV != "uv" {
		t.Errorf("unwrap = %+v", cfg.Unwrap)
	}
	if cfg.Logging.LogFile != "unwrap.log" {
		t.Errorf("expected log file unwrap.log, got %s", cfg.Logging.LogFile)
	}

	u := cfg.UnwrapperConfig()
	if !u.UseNormals || u.LoadTimeout != 5*time.Second || u.Pack.Resolution != 1024 {
		t.Errorf("unwrapper config = %+v", u)
	}
	if opts := cfg.LoadOptions(); opts.WorkerPath != "/opt/xatlas/xatlas-worker" {
		t.Errorf("load options = %+v", opts)
	}
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "missing.yaml"))
	if !stderrors.Is(err, &errors.Error{Phase: errors.PhaseConfig, Kind: errors.KindNotFound}) {
		t.Errorf("missing file: got %v", err)
	}

	bad := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(bad, []byte("pack: [1, 2"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err = Load(bad)
	if !stderrors.Is(err, &errors.Error{Phase: errors.PhaseConfig, Kind: errors.KindInvalidData}) {
		t.Errorf("bad yaml: got %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		kind   errors.Kind
	}{
		{"unknown transport", func(c *Config) { c.Library.Transport = "carrier-pigeon" }, errors.KindUnsupported},
		{"process without worker", func(c *Config) { c.Library.Transport = TransportProcess }, errors.KindInvalidInput},
		{"empty uv slot", func(c *Config) { c.Unwrap.OutputUV = "" }, errors.KindInvalidInput},
		{"no workers", func(c *Config) { c.Unwrap.Workers = 0 }, errors.KindInvalidInput},
		{"no iterations", func(c *Config) { c.Chart.MaxIterations = 0 }, errors.KindInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if !stderrors.Is(err, &errors.Error{Phase: errors.PhaseConfig, Kind: tt.kind}) {
				t.Errorf("got %v, want %s", err, tt.kind)
			}
		})
	}
}

func TestFlagsApply(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	f := RegisterFlags(fs)
	err := fs.Parse([]string{
		"-transport", "thread",
		"-resolution", "512",
		"-output-uv", "uv",
		"-debug",
		"-image",
		"-load-timeout", "2s",
	})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	cfg := Default()
	cfg.Pack.Padding = 3
	f.Apply(cfg)

	if cfg.Library.Transport != TransportThread {
		t.Errorf("expected transport thread, got %s", cfg.Library.Transport)
	}
	if cfg.Pack.Resolution != 512 || !cfg.Pack.CreateImage {
		t.Errorf("pack = %+v", cfg.Pack)
	}
	if cfg.Pack.Padding != 3 {
		t.Errorf("unset flag overrode padding: %d", cfg.Pack.Padding)
	}
	if cfg.Unwrap.OutputUV != "uv" || cfg.Logging.Level != "debug" {
		t.Errorf("unwrap=%+v logging=%+v", cfg.Unwrap, cfg.Logging)
	}
	if cfg.Library.LoadTimeout != 2*time.Second {
		t.Errorf("expected load timeout 2s, got %v", cfg.Library.LoadTimeout)
	}
}

func TestSaveTo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "xatlas.yaml")
	cfg := Default()
	cfg.Pack.Resolution = 4096
	cfg.Library.LoadTimeout = time.Minute

	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("SaveTo: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Pack.Resolution != 4096 || loaded.Library.LoadTimeout != time.Minute {
		t.Errorf("round trip lost values: %+v %+v", loaded.Pack, loaded.Library)
	}
}
