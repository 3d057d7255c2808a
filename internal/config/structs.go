//nolint:lll
package config

// Config represents the complete configuration for the zbarscan application.
// It includes settings for all commands (image, pdf, serve, batch) and
// supports loading from configuration files, environment variables, and command-line flags.
type Config struct {
	// Global settings
	LogLevel string `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
	Verbose  bool   `mapstructure:"verbose" yaml:"verbose" json:"verbose"`

	// Decoder configuration
	Scanner ScannerConfig `mapstructure:"scanner" yaml:"scanner" json:"scanner"`

	// Output configuration
	Output OutputConfig `mapstructure:"output" yaml:"output" json:"output"`

	// Server configuration (for serve command)
	Server ServerConfig `mapstructure:"server" yaml:"server" json:"server"`

	// Batch processing configuration
	Batch BatchConfig `mapstructure:"batch" yaml:"batch" json:"batch"`
}

// ScannerConfig contains decoding settings shared by every command.
type ScannerConfig struct {
	Backend      string   `mapstructure:"backend" yaml:"backend" json:"backend"`
	Formats      []string `mapstructure:"formats" yaml:"formats" json:"formats"`
	TryHarder    bool     `mapstructure:"try_harder" yaml:"try_harder" json:"try_harder"`
	Multi        bool     `mapstructure:"multi" yaml:"multi" json:"multi"`
	XDensity     int      `mapstructure:"x_density" yaml:"x_density" json:"x_density"`
	YDensity     int      `mapstructure:"y_density" yaml:"y_density" json:"y_density"`
	Configs      []string `mapstructure:"configs" yaml:"configs" json:"configs"`
	Charset      string   `mapstructure:"charset" yaml:"charset" json:"charset"`
	MaxImageSize int      `mapstructure:"max_image_size" yaml:"max_image_size" json:"max_image_size"`
	Verbosity    int      `mapstructure:"verbosity" yaml:"verbosity" json:"verbosity"`
}

// OutputConfig contains output formatting settings.
type OutputConfig struct {
	Format           string `mapstructure:"format" yaml:"format" json:"format"`
	File             string `mapstructure:"file" yaml:"file" json:"file"`
	OverlayDir       string `mapstructure:"overlay_dir" yaml:"overlay_dir" json:"overlay_dir"`
	OverlayBoxColor  string `mapstructure:"overlay_box_color" yaml:"overlay_box_color" json:"overlay_box_color"`
	OverlayPolyColor string `mapstructure:"overlay_poly_color" yaml:"overlay_poly_color" json:"overlay_poly_color"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host            string          `mapstructure:"host" yaml:"host" json:"host"`
	Port            int             `mapstructure:"port" yaml:"port" json:"port"`
	CORSOrigin      string          `mapstructure:"cors_origin" yaml:"cors_origin" json:"cors_origin"`
	MaxUploadMB     int             `mapstructure:"max_upload_mb" yaml:"max_upload_mb" json:"max_upload_mb"`
	TimeoutSec      int             `mapstructure:"timeout_sec" yaml:"timeout_sec" json:"timeout_sec"`
	ShutdownTimeout int             `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" json:"shutdown_timeout"`
	OverlayEnabled  bool            `mapstructure:"overlay_enabled" yaml:"overlay_enabled" json:"overlay_enabled"`
	RateLimit       RateLimitConfig `mapstructure:"rate_limit" yaml:"rate_limit" json:"rate_limit"`
}

// RateLimitConfig contains per-client request limits. Zero disables a limit.
type RateLimitConfig struct {
	Enabled           bool `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	RequestsPerMinute int  `mapstructure:"requests_per_minute" yaml:"requests_per_minute" json:"requests_per_minute"`
	RequestsPerHour   int  `mapstructure:"requests_per_hour" yaml:"requests_per_hour" json:"requests_per_hour"`
	MaxRequestsPerDay int  `mapstructure:"max_requests_per_day" yaml:"max_requests_per_day" json:"max_requests_per_day"`
	MaxDataPerDayMB   int  `mapstructure:"max_data_per_day_mb" yaml:"max_data_per_day_mb" json:"max_data_per_day_mb"`
}

// BatchConfig contains batch processing settings.
type BatchConfig struct {
	Workers         int  `mapstructure:"workers" yaml:"workers" json:"workers"`
	Recursive       bool `mapstructure:"recursive" yaml:"recursive" json:"recursive"`
	ContinueOnError bool `mapstructure:"continue_on_error" yaml:"continue_on_error" json:"continue_on_error"`
}
