package unwrap

import (
	"time"

	"go.uber.org/zap"

	"github.com/wippyai/xatlas-go/native"
)

// DefaultPollInterval is how often LoadLibrary checks module readiness.
const DefaultPollInterval = 100 * time.Millisecond

// Config is the per-session configuration. PackAtlas snapshots it on entry.
type Config struct {
	Chart native.ChartOptions `yaml:"chart"`
	Pack  native.PackOptions  `yaml:"pack"`

	// UseNormals lets the native module use normals when building charts.
	UseNormals bool `yaml:"use_normals"`
	// TimeUnwrap logs the duration of every AddMesh and GenerateAtlas call.
	TimeUnwrap bool `yaml:"time_unwrap"`
	// LogProgress enables native progress reports.
	LogProgress bool `yaml:"log_progress"`

	// LoadTimeout bounds LoadLibrary. Zero waits indefinitely.
	LoadTimeout time.Duration `yaml:"load_timeout"`
}

// DefaultConfig returns the xatlas option defaults with a 2048 pixel atlas.
func DefaultConfig() Config {
	return Config{
		Chart: native.DefaultChartOptions(),
		Pack:  native.DefaultPackOptions(),
	}
}

// Option configures an Unwrapper.
type Option func(*Unwrapper)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(u *Unwrapper) {
		if l != nil {
			u.logger = l
		}
	}
}

// WithConfig replaces the whole configuration.
func WithConfig(cfg Config) Option {
	return func(u *Unwrapper) { u.cfg = cfg }
}

// WithChartOptions sets the chart generation options.
func WithChartOptions(o native.ChartOptions) Option {
	return func(u *Unwrapper) { u.cfg.Chart = o }
}

// WithPackOptions sets the packing options.
func WithPackOptions(o native.PackOptions) Option {
	return func(u *Unwrapper) { u.cfg.Pack = o }
}

// WithUseNormals forwards vertex normals to chart generation.
func WithUseNormals(v bool) Option {
	return func(u *Unwrapper) { u.cfg.UseNormals = v }
}

// WithTimeUnwrap logs how long each mesh and the generate step take.
func WithTimeUnwrap(v bool) Option {
	return func(u *Unwrapper) { u.cfg.TimeUnwrap = v }
}

// WithLogProgress enables native progress reports during sessions.
func WithLogProgress(v bool) Option {
	return func(u *Unwrapper) { u.cfg.LogProgress = v }
}

// WithLoadTimeout bounds the shared boot in LoadLibrary. Zero waits forever.
func WithLoadTimeout(d time.Duration) Option {
	return func(u *Unwrapper) { u.cfg.LoadTimeout = d }
}

// WithPollInterval sets how often LoadLibrary polls readiness after Init.
func WithPollInterval(d time.Duration) Option {
	return func(u *Unwrapper) {
		if d > 0 {
			u.pollInterval = d
		}
	}
}

// Config returns a copy of the current configuration.
func (u *Unwrapper) Config() Config {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.cfg
}

// Configure replaces the configuration used by later sessions.
func (u *Unwrapper) Configure(cfg Config) {
	u.mu.Lock()
	u.cfg = cfg
	u.mu.Unlock()
}

func (u *Unwrapper) update(fn func(*Config)) {
	u.mu.Lock()
	fn(&u.cfg)
	u.mu.Unlock()
}

// SetChartOptions sets the chart options for later sessions.
func (u *Unwrapper) SetChartOptions(o native.ChartOptions) {
	u.update(func(c *Config) { c.Chart = o })
}

// SetPackOptions sets the pack options for later sessions.
func (u *Unwrapper) SetPackOptions(o native.PackOptions) {
	u.update(func(c *Config) { c.Pack = o })
}

// SetUseNormals toggles forwarding normals to chart generation.
func (u *Unwrapper) SetUseNormals(v bool) {
	u.update(func(c *Config) { c.UseNormals = v })
}

// SetTimeUnwrap toggles per-mesh and generate timing logs.
func (u *Unwrapper) SetTimeUnwrap(v bool) {
	u.update(func(c *Config) { c.TimeUnwrap = v })
}

// SetLogProgress toggles native progress reports.
func (u *Unwrapper) SetLogProgress(v bool) {
	u.update(func(c *Config) { c.LogProgress = v })
}
