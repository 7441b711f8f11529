package config

import (
	"flag"
	"time"
)

// Flags are command line overrides. Zero values leave the config alone.
type Flags struct {
	Config      string
	WasmPath    string
	WorkerPath  string
	Transport   string
	LoadTimeout time.Duration
	Resolution  uint
	Padding     uint
	OutputUV    string
	InputUV     string
	LogFile     string
	Debug       bool
	UseNormals  bool
	TimeUnwrap  bool
	Progress    bool
	Image       bool
}

// RegisterFlags binds the override flags to fs.
func RegisterFlags(fs *flag.FlagSet) *Flags {
	f := &Flags{}
	fs.StringVar(&f.Config, "config", "", "Path to config file")
	fs.StringVar(&f.WasmPath, "wasm", "", "Path to xatlas.wasm")
	fs.StringVar(&f.WorkerPath, "worker", "", "Path to the xatlas-worker binary")
	fs.StringVar(&f.Transport, "transport", "", "Module transport: inprocess, thread or process")
	fs.DurationVar(&f.LoadTimeout, "load-timeout", 0, "Abort loading the module after this long")
	fs.UintVar(&f.Resolution, "resolution", 0, "Atlas resolution in pixels")
	fs.UintVar(&f.Padding, "padding", 0, "Pixels between charts")
	fs.StringVar(&f.OutputUV, "output-uv", "", "Attribute receiving packed UVs")
	fs.StringVar(&f.InputUV, "input-uv", "", "Attribute receiving carried input UVs")
	fs.StringVar(&f.LogFile, "log-file", "", "Also write logs to this file")
	fs.BoolVar(&f.Debug, "debug", false, "Enable debug logging")
	fs.BoolVar(&f.UseNormals, "normals", false, "Use normals when building charts")
	fs.BoolVar(&f.TimeUnwrap, "time", false, "Log unwrap timings")
	fs.BoolVar(&f.Progress, "progress", false, "Log native progress")
	fs.BoolVar(&f.Image, "image", false, "Write a PNG of every atlas page")
	return f
}

// Apply overrides cfg with the flags that were set.
func (f *Flags) Apply(cfg *Config) {
	if f.Debug {
		cfg.Logging.Level = "debug"
	}
	if f.LogFile != "" {
		cfg.Logging.LogFile = f.LogFile
	}
	if f.WasmPath != "" {
		cfg.Library.WasmPath = f.WasmPath
	}
	if f.WorkerPath != "" {
		cfg.Library.WorkerPath = f.WorkerPath
	}
	if f.Transport != "" {
		cfg.Library.Transport = f.Transport
	}
	if f.LoadTimeout > 0 {
		cfg.Library.LoadTimeout = f.LoadTimeout
	}
	if f.Resolution > 0 {
		cfg.Pack.Resolution = uint32(f.Resolution)
	}
	if f.Padding > 0 {
		cfg.Pack.Padding = uint32(f.Padding)
	}
	if f.OutputUV != "" {
		cfg.Unwrap.OutputUV = f.OutputUV
	}
	if f.InputUV != "" {
		cfg.Unwrap.InputUV = f.InputUV
	}
	if f.UseNormals {
		cfg.Unwrap.UseNormals = true
	}
	if f.TimeUnwrap {
		cfg.Unwrap.TimeUnwrap = true
	}
	if f.Progress {
		cfg.Unwrap.LogProgress = true
	}
	if f.Image {
		cfg.Pack.CreateImage = true
	}
}
