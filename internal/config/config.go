// Package config holds the application configuration for the scanbox CLI and
// embedding server, loaded from files, environment variables and flags.
package config

import (
	"fmt"

	"github.com/visionkit/scanbox/internal/detect"
	"github.com/visionkit/scanbox/internal/display"
)

// Config is the complete scanbox configuration.
type Config struct {
	LogLevel string `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
	Verbose  bool   `mapstructure:"verbose" yaml:"verbose" json:"verbose"`

	Region  RegionConfig  `mapstructure:"region" yaml:"region" json:"region"`
	Scan    ScanConfig    `mapstructure:"scan" yaml:"scan" json:"scan"`
	Display DisplayConfig `mapstructure:"display" yaml:"display" json:"display"`
	Server  ServerConfig  `mapstructure:"server" yaml:"server" json:"server"`
}

// RegionConfig describes the caller's scan box.
type RegionConfig struct {
	// BoxSize is the side of the square scan box in display points.
	BoxSize uint `mapstructure:"box_size" yaml:"box_size" json:"box_size"`
}

// ScanConfig controls detection behavior.
type ScanConfig struct {
	// Symbologies restricts accepted formats; empty accepts any.
	Symbologies []string `mapstructure:"symbologies" yaml:"symbologies" json:"symbologies"`
	// TryHarder enables the decoder's exhaustive search mode.
	TryHarder bool `mapstructure:"try_harder" yaml:"try_harder" json:"try_harder"`
	// FPS throttles offline frame replay; 0 replays as fast as possible.
	FPS int `mapstructure:"fps" yaml:"fps" json:"fps"`
	// Loop repeats a file-based frame sequence instead of stopping at its end.
	Loop bool `mapstructure:"loop" yaml:"loop" json:"loop"`
}

// DisplayConfig describes the video-display geometry the scan box is mapped
// through.
type DisplayConfig struct {
	Width       float64 `mapstructure:"width" yaml:"width" json:"width"`
	Height      float64 `mapstructure:"height" yaml:"height" json:"height"`
	FrameWidth  float64 `mapstructure:"frame_width" yaml:"frame_width" json:"frame_width"`
	FrameHeight float64 `mapstructure:"frame_height" yaml:"frame_height" json:"frame_height"`
	Orientation string  `mapstructure:"orientation" yaml:"orientation" json:"orientation"`
}

// ServerConfig contains HTTP server settings for the serve command.
type ServerConfig struct {
	Host            string `mapstructure:"host" yaml:"host" json:"host"`
	Port            int    `mapstructure:"port" yaml:"port" json:"port"`
	CORSOrigin      string `mapstructure:"cors_origin" yaml:"cors_origin" json:"cors_origin"`
	MaxUploadMB     int    `mapstructure:"max_upload_mb" yaml:"max_upload_mb" json:"max_upload_mb"`
	TimeoutSec      int    `mapstructure:"timeout_sec" yaml:"timeout_sec" json:"timeout_sec"`
	ShutdownTimeout int    `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" json:"shutdown_timeout"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		LogLevel: "info",
		Region:   RegionConfig{BoxSize: 200},
		Scan:     ScanConfig{TryHarder: true, FPS: 30},
		Display: DisplayConfig{
			Width:       390,
			Height:      844,
			FrameWidth:  1920,
			FrameHeight: 1080,
			Orientation: "portrait",
		},
		Server: ServerConfig{
			Host:            "localhost",
			Port:            8080,
			CORSOrigin:      "*",
			MaxUploadMB:     20,
			TimeoutSec:      30,
			ShutdownTimeout: 10,
		},
	}
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	switch c.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: invalid log_level %q", c.LogLevel)
	}

	if c.Region.BoxSize == 0 {
		return fmt.Errorf("config: region.box_size must be positive")
	}

	if _, err := detect.ParseFormats(c.Scan.Symbologies); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if c.Scan.FPS < 0 {
		return fmt.Errorf("config: scan.fps must not be negative")
	}

	if c.Display.Orientation != "" {
		if _, err := display.ParseOrientation(c.Display.Orientation); err != nil {
			return fmt.Errorf("config: %w", err)
		}
	}
	if c.Display.Width < 0 || c.Display.Height < 0 ||
		c.Display.FrameWidth < 0 || c.Display.FrameHeight < 0 {
		return fmt.Errorf("config: display dimensions must not be negative")
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("config: server.port out of range: %d", c.Server.Port)
	}
	if c.Server.MaxUploadMB <= 0 {
		return fmt.Errorf("config: server.max_upload_mb must be positive")
	}
	return nil
}

// Filter resolves the configured symbology filter.
func (c *Config) Filter() (detect.Filter, error) {
	formats, err := detect.ParseFormats(c.Scan.Symbologies)
	if err != nil {
		return detect.Filter{}, err
	}
	return detect.NewFilter(formats...), nil
}

// Orientation resolves the configured display orientation.
func (c *Config) Orientation() (display.Orientation, error) {
	if c.Display.Orientation == "" {
		return display.Portrait, nil
	}
	return display.ParseOrientation(c.Display.Orientation)
}
