package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/MeKo-Tech/zbargo/internal/barcode"
	"github.com/MeKo-Tech/zbargo/internal/payload"
	"github.com/MeKo-Tech/zbargo/internal/pipeline"
	"github.com/MeKo-Tech/zbargo/internal/zbar"
)

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() Config {
	pc := pipeline.DefaultConfig()
	return Config{
		LogLevel: "info",
		Verbose:  false,
		Scanner: ScannerConfig{
			Backend:      pc.Backend,
			Multi:        pc.Multi,
			Charset:      pc.Charset,
			MaxImageSize: pc.Constraints.MaxWidth,
		},
		Output: OutputConfig{
			Format:           pipeline.FormatText,
			OverlayBoxColor:  "#FF0000",
			OverlayPolyColor: "#00C800",
		},
		Server: ServerConfig{
			Host:            "localhost",
			Port:            8080,
			CORSOrigin:      "*",
			MaxUploadMB:     50,
			TimeoutSec:      30,
			ShutdownTimeout: 10,
			OverlayEnabled:  true,
			RateLimit: RateLimitConfig{
				RequestsPerMinute: 60,
				RequestsPerHour:   1000,
			},
		},
		Batch: BatchConfig{
			Workers:         pc.Parallel.MaxWorkers,
			ContinueOnError: false,
		},
	}
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !slices.Contains(validLogLevels, c.LogLevel) {
		return fmt.Errorf("invalid log level: %s (must be one of: %s)", c.LogLevel, strings.Join(validLogLevels, ", "))
	}

	if c.Output.Format != "" && !slices.Contains(pipeline.OutputFormats(), c.Output.Format) {
		return fmt.Errorf("invalid output format: %s (must be one of: %s)", c.Output.Format, strings.Join(pipeline.OutputFormats(), ", "))
	}

	if err := c.Scanner.validate(); err != nil {
		return err
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be between 1 and 65535)", c.Server.Port)
	}
	if c.Server.MaxUploadMB <= 0 {
		return fmt.Errorf("invalid max upload size: %d (must be positive)", c.Server.MaxUploadMB)
	}
	if c.Server.TimeoutSec <= 0 {
		return fmt.Errorf("invalid timeout: %d (must be positive)", c.Server.TimeoutSec)
	}
	if c.Server.ShutdownTimeout < 0 {
		return fmt.Errorf("invalid shutdown timeout: %d (must not be negative)", c.Server.ShutdownTimeout)
	}
	rl := c.Server.RateLimit
	if rl.RequestsPerMinute < 0 || rl.RequestsPerHour < 0 || rl.MaxRequestsPerDay < 0 || rl.MaxDataPerDayMB < 0 {
		return errors.New("invalid rate limit: limits must not be negative")
	}
	if c.Batch.Workers <= 0 {
		return fmt.Errorf("invalid batch workers: %d (must be positive)", c.Batch.Workers)
	}

	for name, hex := range map[string]string{
		"output.overlay_box_color":  c.Output.OverlayBoxColor,
		"output.overlay_poly_color": c.Output.OverlayPolyColor,
	} {
		if hex == "" {
			continue
		}
		if _, err := pipeline.ParseHexColor(hex); err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
	}

	return nil
}

func (s *ScannerConfig) validate() error {
	if s.Backend != "" && s.Backend != barcode.BackendAuto && !slices.Contains(barcode.Backends(), s.Backend) {
		return fmt.Errorf("invalid scanner backend: %s (must be one of: auto, %s)", s.Backend, strings.Join(barcode.Backends(), ", "))
	}
	if _, unknown := barcode.ParseFormats(s.Formats); len(unknown) > 0 {
		return fmt.Errorf("invalid scanner formats: %s", strings.Join(unknown, ", "))
	}
	if s.XDensity < 0 || s.YDensity < 0 {
		return fmt.Errorf("invalid scanner density: %d,%d (must not be negative)", s.XDensity, s.YDensity)
	}
	if s.Charset != "" && !payload.ValidCharset(s.Charset) {
		return fmt.Errorf("invalid scanner charset: %s", s.Charset)
	}
	for _, setting := range s.Configs {
		if _, _, _, err := zbar.ParseConfigString(setting); err != nil {
			return fmt.Errorf("invalid scanner config %q: %w", setting, err)
		}
	}
	if s.MaxImageSize < 0 {
		return fmt.Errorf("invalid max image size: %d (must not be negative)", s.MaxImageSize)
	}
	return nil
}

// ToPipelineBuilder converts the scanner settings into a pipeline builder.
func (c *Config) ToPipelineBuilder() *pipeline.Builder {
	s := c.Scanner
	b := pipeline.NewBuilder().
		WithBackend(s.Backend).
		WithTryHarder(s.TryHarder).
		WithMulti(s.Multi).
		WithDensity(s.XDensity, s.YDensity).
		WithCharset(s.Charset).
		WithMaxImageSize(s.MaxImageSize, s.MaxImageSize).
		WithParallelWorkers(c.Batch.Workers)
	if len(s.Formats) > 0 {
		b = b.WithFormats(s.Formats)
	}
	if len(s.Configs) > 0 {
		b = b.WithEngineConfig(s.Configs...)
	}
	return b
}

// OverlayStyle converts the overlay colours; invalid colours keep the defaults.
func (c *Config) OverlayStyle() pipeline.OverlayStyle {
	style := pipeline.DefaultOverlayStyle()
	if col, err := pipeline.ParseHexColor(c.Output.OverlayBoxColor); err == nil {
		style.Box = col
	}
	if col, err := pipeline.ParseHexColor(c.Output.OverlayPolyColor); err == nil {
		style.Outline = col
	}
	return style
}

