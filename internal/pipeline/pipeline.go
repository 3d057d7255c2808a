package pipeline

import (
	"errors"
	"fmt"
	"image"
	"runtime"
	"slices"
	"strings"
	"sync"

	"github.com/MeKo-Tech/zbargo/internal/barcode"
	"github.com/MeKo-Tech/zbargo/internal/payload"
	"github.com/MeKo-Tech/zbargo/internal/utils"
	"github.com/MeKo-Tech/zbargo/internal/zbar"
)

// ErrNotInitialized is returned when a Pipeline is used before Build or after Close.
var ErrNotInitialized = errors.New("pipeline not initialized")

// Config holds configuration for the scan pipeline.
type Config struct {
	Backend   string           // backend name passed to barcode.NewBackend
	Formats   []barcode.Format // empty means every symbology the backend knows
	TryHarder bool
	Multi     bool
	ROI       image.Rectangle // optional, in source image coordinates
	XDensity  int
	YDensity  int
	Configs   []string // raw engine settings, e.g. "ean13.add-check=0"
	Charset   string   // payload charset, see payload.Charsets

	Constraints utils.ImageConstraints

	// Parallel processing configuration
	Parallel ParallelConfig

	unknownFormats []string
}

// DefaultConfig returns a default pipeline config.
func DefaultConfig() Config {
	return Config{
		Backend:     barcode.BackendAuto,
		Multi:       true,
		Charset:     payload.CharsetAuto,
		Constraints: utils.DefaultImageConstraints(),
		Parallel:    DefaultParallelConfig(),
	}
}

// Options converts the config into backend decode options.
func (c Config) Options() barcode.Options {
	return barcode.Options{
		Formats:   c.Formats,
		TryHarder: c.TryHarder,
		Multi:     c.Multi,
		ROI:       c.ROI,
		XDensity:  c.XDensity,
		YDensity:  c.YDensity,
		Configs:   c.Configs,
	}
}

// BackendFactory creates a decoding backend by name.
type BackendFactory func(name string) (barcode.Backend, error)

// Builder constructs a Pipeline with fluent configuration.
type Builder struct {
	cfg     Config
	factory BackendFactory
}

// NewBuilder creates a new pipeline builder with defaults.
func NewBuilder() *Builder {
	return &Builder{cfg: DefaultConfig(), factory: barcode.NewBackend}
}

// WithBackend selects the decoding backend ("auto", "zbar", "gozxing").
func (b *Builder) WithBackend(name string) *Builder {
	if name != "" {
		b.cfg.Backend = name
	}
	return b
}

// WithBackendFactory overrides how backends are created.
func (b *Builder) WithBackendFactory(f BackendFactory) *Builder {
	if f != nil {
		b.factory = f
	}
	return b
}

// WithFormats restricts scanning to the named symbologies. Unknown names are
// reported by Validate.
func (b *Builder) WithFormats(names []string) *Builder {
	cleaned := make([]string, 0, len(names))
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			cleaned = append(cleaned, n)
		}
	}
	b.cfg.Formats, b.cfg.unknownFormats = barcode.ParseFormats(cleaned)
	return b
}

// WithTryHarder enables the rotated second pass.
func (b *Builder) WithTryHarder(enabled bool) *Builder {
	b.cfg.TryHarder = enabled
	return b
}

// WithMulti toggles reporting every symbol rather than the first.
func (b *Builder) WithMulti(enabled bool) *Builder {
	b.cfg.Multi = enabled
	return b
}

// WithROI restricts decoding to a region of the source image.
func (b *Builder) WithROI(r image.Rectangle) *Builder {
	b.cfg.ROI = r
	return b
}

// WithDensity sets the scan line strides. Zero keeps the engine default.
func (b *Builder) WithDensity(x, y int) *Builder {
	b.cfg.XDensity = x
	b.cfg.YDensity = y
	return b
}

// WithEngineConfig appends raw engine settings.
func (b *Builder) WithEngineConfig(settings ...string) *Builder {
	for _, s := range settings {
		if s = strings.TrimSpace(s); s != "" {
			b.cfg.Configs = append(b.cfg.Configs, s)
		}
	}
	return b
}

// WithCharset sets how raw payload bytes are turned into text.
func (b *Builder) WithCharset(charset string) *Builder {
	if charset != "" {
		b.cfg.Charset = charset
	}
	return b
}

// WithMaxImageSize caps the working image size; larger inputs are downscaled.
func (b *Builder) WithMaxImageSize(maxWidth, maxHeight int) *Builder {
	if maxWidth > 0 {
		b.cfg.Constraints.MaxWidth = maxWidth
	}
	if maxHeight > 0 {
		b.cfg.Constraints.MaxHeight = maxHeight
	}
	return b
}

// WithParallelWorkers sets the number of parallel workers.
func (b *Builder) WithParallelWorkers(workers int) *Builder {
	if workers > 0 {
		b.cfg.Parallel.MaxWorkers = workers
	}
	return b
}

// WithProgressCallback sets the progress callback for parallel processing.
func (b *Builder) WithProgressCallback(callback ProgressCallback) *Builder {
	b.cfg.Parallel.ProgressCallback = callback
	return b
}

// WithErrorHandler makes parallel runs continue past failed items.
func (b *Builder) WithErrorHandler(h func(index int, err error)) *Builder {
	b.cfg.Parallel.ErrorHandler = h
	return b
}

// Config returns a copy of the current config.
func (b *Builder) Config() Config { return b.cfg }

// Clone returns an independent builder with the same settings and factory.
func (b *Builder) Clone() *Builder {
	c := &Builder{cfg: b.cfg, factory: b.factory}
	c.cfg.Formats = slices.Clone(b.cfg.Formats)
	c.cfg.Configs = slices.Clone(b.cfg.Configs)
	c.cfg.unknownFormats = slices.Clone(b.cfg.unknownFormats)
	return c
}

// Validate checks the configuration looks sane.
func (b *Builder) Validate() error {
	if len(b.cfg.unknownFormats) > 0 {
		return fmt.Errorf("unknown barcode formats: %s", strings.Join(b.cfg.unknownFormats, ", "))
	}
	if b.cfg.XDensity < 0 || b.cfg.YDensity < 0 {
		return errors.New("scan density must be >= 0")
	}
	if !payload.ValidCharset(b.cfg.Charset) {
		return fmt.Errorf("%w %q", payload.ErrUnknownCharset, b.cfg.Charset)
	}
	for _, s := range b.cfg.Configs {
		if _, _, _, err := zbar.ParseConfigString(s); err != nil {
			return fmt.Errorf("invalid engine setting: %w", err)
		}
	}
	c := b.cfg.Constraints
	if c.MaxWidth > 0 && c.MinWidth > c.MaxWidth || c.MaxHeight > 0 && c.MinHeight > c.MaxHeight {
		return errors.New("image size limits are inverted")
	}
	return nil
}

// Pipeline scans images with one shared backend.
type Pipeline struct {
	cfg     Config
	factory BackendFactory

	mu      sync.Mutex
	backend barcode.Backend
}

// Build creates the decoding backend.
func (b *Builder) Build() (*Pipeline, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	be, err := b.factory(b.cfg.Backend)
	if err != nil {
		return nil, fmt.Errorf("init backend: %w", err)
	}
	return &Pipeline{cfg: b.cfg, factory: b.factory, backend: be}, nil
}

// Close releases the backend. It is safe to call more than once.
func (p *Pipeline) Close() error {
	if p == nil {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.backend == nil {
		return nil
	}
	err := p.backend.Close()
	p.backend = nil
	return err
}

// Config returns the pipeline configuration.
func (p *Pipeline) Config() Config { return p.cfg }

// BackendName reports the backend actually in use, which differs from the
// configured name when "auto" was resolved.
func (p *Pipeline) BackendName() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.backend == nil {
		return ""
	}
	return p.backend.Name()
}

// Info returns a map with key pipeline properties.
func (p *Pipeline) Info() map[string]interface{} {
	formats := make([]string, 0, len(p.cfg.Formats))
	for _, f := range p.cfg.Formats {
		formats = append(formats, f.String())
	}
	info := map[string]interface{}{
		"backend":    p.BackendName(),
		"formats":    formats,
		"try_harder": p.cfg.TryHarder,
		"multi":      p.cfg.Multi,
		"charset":    p.cfg.Charset,
		"max_size":   []int{p.cfg.Constraints.MaxWidth, p.cfg.Constraints.MaxHeight},
		"workers":    p.workers(0),
	}
	if v, err := zbar.Version(); err == nil {
		info["zbar_version"] = v.String()
	}
	return info
}

func (p *Pipeline) workers(requested int) int {
	switch {
	case requested > 0:
		return requested
	case p.cfg.Parallel.MaxWorkers > 0:
		return p.cfg.Parallel.MaxWorkers
	default:
		return runtime.NumCPU()
	}
}
