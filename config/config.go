// Package config loads settings for the unwrap command and its worker.
package config

import (
	"time"

	"github.com/wippyai/xatlas-go/errors"
	"github.com/wippyai/xatlas-go/geometry"
	"github.com/wippyai/xatlas-go/native"
	"github.com/wippyai/xatlas-go/unwrap"
)

// Transport names.
const (
	TransportInProcess = "inprocess"
	TransportThread    = "thread"
	TransportProcess   = "process"
)

// Config holds all settings.
type Config struct {
	Library LibraryConfig       `yaml:"library"`
	Chart   native.ChartOptions `yaml:"chart"`
	Pack    native.PackOptions  `yaml:"pack"`
	Unwrap  UnwrapConfig        `yaml:"unwrap"`
	Logging LoggingConfig       `yaml:"logging"`
}

// LibraryConfig locates and hosts the xatlas module.
type LibraryConfig struct {
	WasmPath   string `yaml:"wasm_path"`
	WorkerPath string `yaml:"worker_path"`
	// Transport is one of inprocess, thread or process.
	Transport        string        `yaml:"transport"`
	LoadTimeout      time.Duration `yaml:"load_timeout"`
	MemoryLimitPages uint32        `yaml:"memory_limit_pages"`
}

// UnwrapConfig holds orchestration settings.
type UnwrapConfig struct {
	UseNormals  bool   `yaml:"use_normals"`
	TimeUnwrap  bool   `yaml:"time_unwrap"`
	LogProgress bool   `yaml:"log_progress"`
	OutputUV    string `yaml:"output_uv"`
	InputUV     string `yaml:"input_uv"`
	// Workers bounds how many input files are parsed at once.
	Workers int `yaml:"workers"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with the xatlas defaults.
func Default() *Config {
	return &Config{
		Library: LibraryConfig{
			WasmPath:  native.WasmFileName,
			Transport: TransportInProcess,
		},
		Chart: native.DefaultChartOptions(),
		Pack:  native.DefaultPackOptions(),
		Unwrap: UnwrapConfig{
			OutputUV: geometry.AttrUV2,
			InputUV:  geometry.AttrUV,
			Workers:  4,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// UnwrapperConfig returns the orchestrator configuration.
func (c *Config) UnwrapperConfig() unwrap.Config {
	return unwrap.Config{
		Chart:       c.Chart,
		Pack:        c.Pack,
		UseNormals:  c.Unwrap.UseNormals,
		TimeUnwrap:  c.Unwrap.TimeUnwrap,
		LogProgress: c.Unwrap.LogProgress,
		LoadTimeout: c.Library.LoadTimeout,
	}
}

// LoadOptions returns the module load options without callbacks.
func (c *Config) LoadOptions() native.LoadOptions {
	return native.LoadOptions{
		WasmPath:   c.Library.WasmPath,
		WorkerPath: c.Library.WorkerPath,
	}
}

// Validate checks values that cannot be defaulted.
func (c *Config) Validate() error {
	switch c.Library.Transport {
	case TransportInProcess, TransportThread:
	case TransportProcess:
		if c.Library.WorkerPath == "" {
			return errors.InvalidInput(errors.PhaseConfig, "library.worker_path is required for the process transport")
		}
	default:
		return errors.New(errors.PhaseConfig, errors.KindUnsupported).
			Path("library", "transport").
			Value(c.Library.Transport).
			Detail("unknown transport %q", c.Library.Transport).
			Build()
	}
	if c.Unwrap.OutputUV == "" || c.Unwrap.InputUV == "" {
		return errors.InvalidInput(errors.PhaseConfig, "unwrap.output_uv and unwrap.input_uv must be set")
	}
	if c.Unwrap.Workers < 1 {
		return errors.InvalidInput(errors.PhaseConfig, "unwrap.workers must be at least 1")
	}
	if c.Chart.MaxIterations == 0 {
		return errors.InvalidInput(errors.PhaseConfig, "chart.max_iterations must be at least 1")
	}
	return nil
}
