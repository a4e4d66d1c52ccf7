package config

import (
	"fmt"
	"time"

	"github.com/sdejongh/vrtnorris/pkg/imagediff"
	"github.com/sdejongh/vrtnorris/pkg/models"
	"github.com/sdejongh/vrtnorris/pkg/ratelimit"
	"github.com/sdejongh/vrtnorris/pkg/transfer"
)

// Config represents the application configuration
type Config struct {
	Compare  CompareConfig  `yaml:"compare"`
	Transfer TransferConfig `yaml:"transfer"`
	Remote   RemoteConfig   `yaml:"remote"`
	Output   OutputConfig   `yaml:"output"`
	Logging  LoggingConfig  `yaml:"logging"`
	Exclude  []string       `yaml:"exclude"`
}

// CompareConfig holds comparison settings
type CompareConfig struct {
	Path                string  `yaml:"path"`                  // Directory of current screenshots
	Threshold           float64 `yaml:"threshold"`             // Max differing pixels in percent (0-100)
	PixelThreshold      float64 `yaml:"pixel_threshold"`       // Per-pixel color tolerance (0-1)
	IncludeAntiAliasing bool    `yaml:"include_anti_aliasing"` // Count anti-aliased pixels as different
	DiffAlpha           float64 `yaml:"diff_alpha"`            // Opacity of unchanged pixels in diff images
	DiffDir             string  `yaml:"diff_dir"`              // Where diff images are written
	BufferSize          int     `yaml:"buffer_size"`           // Hashing buffer size
}

// TransferConfig holds transfer pool settings
type TransferConfig struct {
	Concurrency    int           `yaml:"concurrency"`
	MaxRetries     int           `yaml:"max_retries"`
	RetryDelay     time.Duration `yaml:"retry_delay"`
	MaxRetryDelay  time.Duration `yaml:"max_retry_delay"`
	BandwidthLimit string        `yaml:"bandwidth_limit"` // e.g. "10M", empty = unlimited
	TempDir        string        `yaml:"temp_dir"`        // Parent of baseline directories
}

// RemoteConfig holds artifact service settings
type RemoteConfig struct {
	APIURL           string `yaml:"api_url"`
	APIKey           string `yaml:"api_key,omitempty"`
	Repository       string `yaml:"repository"`
	BaselineAlias    string `yaml:"baseline_alias"`
	ScreenshotsAlias string `yaml:"screenshots_alias"`
	DiffsAlias       string `yaml:"diffs_alias"`
	UploadResults    bool   `yaml:"upload_results"`
	// Timeout bounds each HTTP request; 0 disables it
	Timeout time.Duration `yaml:"timeout"`
}

// OutputConfig holds output-related settings
type OutputConfig struct {
	Format           string `yaml:"format"`             // "human" or "json"
	Progress         bool   `yaml:"progress"`           // Show transfer progress
	Quiet            bool   `yaml:"quiet"`              // Suppress non-error output
	ReportFile       string `yaml:"report_file"`        // JSON report path
	Summary          bool   `yaml:"summary"`            // Write the step summary
	SummaryImages    string `yaml:"summary_images"`     // "auto", "true" or "false"
	FailOnDifference bool   `yaml:"fail_on_difference"` // Exit non-zero on a fail verdict
}

// LoggingConfig holds logging-related settings
type LoggingConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Format     string `yaml:"format"`      // "json", "text" or "github"
	Level      string `yaml:"level"`       // "debug", "info", "warn", "error"
	File       string `yaml:"file"`        // Log file path (empty = console only)
	MaxSize    int64  `yaml:"max_size"`    // Rotation size in bytes (0 = no rotation)
	MaxBackups int    `yaml:"max_backups"` // Rotated files kept
}

// Default returns the default configuration
func Default() *Config {
	return &Config{
		Compare: CompareConfig{
			Path:           "./screenshots",
			Threshold:      0.1,
			PixelThreshold: imagediff.DefaultPixelThreshold,
			DiffAlpha:      imagediff.DefaultAlpha,
			DiffDir:        "./screenshot-diffs",
			BufferSize:     65536,
		},
		Transfer: TransferConfig{
			Concurrency:   transfer.DefaultConcurrency,
			MaxRetries:    transfer.DefaultMaxRetries,
			RetryDelay:    transfer.DefaultRetryDelay,
			MaxRetryDelay: transfer.DefaultMaxRetryDelay,
		},
		Remote: RemoteConfig{
			UploadResults: true,
			Timeout:       2 * time.Minute,
		},
		Output: OutputConfig{
			Format:           "human",
			Progress:         true,
			ReportFile:       "vrt-report.json",
			Summary:          true,
			SummaryImages:    "auto",
			FailOnDifference: true,
		},
		Logging: LoggingConfig{
			Enabled:    true,
			Format:     "text",
			Level:      "info",
			MaxSize:    10 * 1024 * 1024,
			MaxBackups: 3,
		},
		Exclude: []string{
			"*.tmp",
		},
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if !(c.Compare.Threshold >= 0 && c.Compare.Threshold <= 100) {
		return &models.ValidationError{
			Field:   "compare.threshold",
			Message: "must be between 0 and 100",
		}
	}

	if !(c.Compare.PixelThreshold >= 0 && c.Compare.PixelThreshold <= 1) {
		return &models.ValidationError{
			Field:   "compare.pixel_threshold",
			Message: "must be between 0 and 1",
		}
	}

	if !(c.Compare.DiffAlpha >= 0 && c.Compare.DiffAlpha <= 1) {
		return &models.ValidationError{
			Field:   "compare.diff_alpha",
			Message: "must be between 0 and 1",
		}
	}

	if c.Compare.BufferSize < 1024 {
		return &models.ValidationError{
			Field:   "compare.buffer_size",
			Message: "must be at least 1024 bytes",
		}
	}

	if c.Transfer.Concurrency < 1 {
		return &models.ValidationError{
			Field:   "transfer.concurrency",
			Message: "must be at least 1",
		}
	}

	if c.Transfer.MaxRetries < 0 {
		return &models.ValidationError{
			Field:   "transfer.max_retries",
			Message: "must not be negative",
		}
	}

	if c.Transfer.RetryDelay < 0 || c.Transfer.MaxRetryDelay < 0 {
		return &models.ValidationError{
			Field:   "transfer.retry_delay",
			Message: "delays must not be negative",
		}
	}

	if c.Remote.Timeout < 0 {
		return &models.ValidationError{
			Field:   "remote.timeout",
			Message: "must not be negative",
		}
	}

	if _, err := ratelimit.ParseRate(c.Transfer.BandwidthLimit); err != nil {
		return &models.ValidationError{
			Field:   "transfer.bandwidth_limit",
			Message: err.Error(),
		}
	}

	validFormats := map[string]bool{"human": true, "json": true}
	if !validFormats[c.Output.Format] {
		return &models.ValidationError{
			Field:   "output.format",
			Message: "must be 'human' or 'json'",
		}
	}

	validImages := map[string]bool{"auto": true, "true": true, "false": true}
	if !validImages[c.Output.SummaryImages] {
		return &models.ValidationError{
			Field:   "output.summary_images",
			Message: "must be 'auto', 'true' or 'false'",
		}
	}

	validLogFormats := map[string]bool{"json": true, "text": true, "github": true}
	if !validLogFormats[c.Logging.Format] {
		return &models.ValidationError{
			Field:   "logging.format",
			Message: "must be 'json', 'text', or 'github'",
		}
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return &models.ValidationError{
			Field:   "logging.level",
			Message: "must be 'debug', 'info', 'warn', or 'error'",
		}
	}

	return nil
}

// ValidateRemote checks the settings needed to talk to the artifact
// service. The baseline alias is only required for downloads.
func (c *Config) ValidateRemote(needAlias bool) error {
	required := []struct {
		field string
		value string
	}{
		{"remote.api_url", c.Remote.APIURL},
		{"remote.api_key", c.Remote.APIKey},
		{"remote.repository", c.Remote.Repository},
	}
	if needAlias {
		required = append(required, struct {
			field string
			value string
		}{"remote.baseline_alias", c.Remote.BaselineAlias})
	}

	for _, r := range required {
		if r.value == "" {
			return &models.ValidationError{Field: r.field, Message: "is required"}
		}
	}
	return nil
}

// DiffOptions returns the pixel differ options
func (c *Config) DiffOptions() imagediff.Options {
	return imagediff.Options{
		PixelThreshold:      c.Compare.PixelThreshold,
		IncludeAntiAliasing: c.Compare.IncludeAntiAliasing,
		Alpha:               c.Compare.DiffAlpha,
	}
}

// PoolConfig returns the transfer pool settings
func (c *Config) PoolConfig() transfer.PoolConfig {
	pc := transfer.DefaultPoolConfig()
	pc.Concurrency = c.Transfer.Concurrency
	pc.MaxRetries = c.Transfer.MaxRetries
	pc.RetryDelay = c.Transfer.RetryDelay
	pc.MaxRetryDelay = c.Transfer.MaxRetryDelay
	return pc
}

// BandwidthLimit returns the parsed transfer limit in bytes per second
func (c *Config) BandwidthLimit() (int64, error) {
	rate, err := ratelimit.ParseRate(c.Transfer.BandwidthLimit)
	if err != nil {
		return 0, fmt.Errorf("invalid bandwidth limit: %w", err)
	}
	return rate, nil
}
