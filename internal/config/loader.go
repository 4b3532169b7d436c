package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const (
	// ConfigFileName is the base name for configuration files (without extension).
	ConfigFileName = "scanbox"

	// EnvPrefix is the prefix for environment variables.
	EnvPrefix = "SCANBOX"
)

// Loader handles loading configuration from files, environment variables and
// bound flags.
type Loader struct {
	v *viper.Viper
}

// NewLoader creates a loader on the global viper instance so cobra flag
// bindings take effect.
func NewLoader() *Loader {
	return &Loader{v: viper.GetViper()}
}

// Load reads configuration from the search paths and environment, applies
// defaults, unmarshals and validates.
func (l *Loader) Load() (*Config, error) {
	l.prepare()

	if err := l.v.ReadInConfig(); err != nil {
		// A missing config file is fine; defaults and env vars apply.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	return l.unmarshal()
}

// LoadWithFile loads configuration from a specific file path.
func (l *Loader) LoadWithFile(configFile string) (*Config, error) {
	if configFile == "" {
		return l.Load()
	}
	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", configFile)
	}

	l.prepare()
	l.v.SetConfigFile(configFile)
	if err := l.v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", configFile, err)
	}
	return l.unmarshal()
}

func (l *Loader) prepare() {
	l.v.SetConfigName(ConfigFileName)
	l.v.SetConfigType("yaml")

	l.v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		l.v.AddConfigPath(home)
		l.v.AddConfigPath(filepath.Join(home, ".config", "scanbox"))
	}
	l.v.AddConfigPath("/etc/scanbox")

	l.v.SetEnvPrefix(EnvPrefix)
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	l.v.AutomaticEnv()

	l.setDefaults()
}

func (l *Loader) setDefaults() {
	def := DefaultConfig()
	l.v.SetDefault("log_level", def.LogLevel)
	l.v.SetDefault("verbose", def.Verbose)
	l.v.SetDefault("region.box_size", def.Region.BoxSize)
	l.v.SetDefault("scan.symbologies", def.Scan.Symbologies)
	l.v.SetDefault("scan.try_harder", def.Scan.TryHarder)
	l.v.SetDefault("scan.fps", def.Scan.FPS)
	l.v.SetDefault("scan.loop", def.Scan.Loop)
	l.v.SetDefault("display.width", def.Display.Width)
	l.v.SetDefault("display.height", def.Display.Height)
	l.v.SetDefault("display.frame_width", def.Display.FrameWidth)
	l.v.SetDefault("display.frame_height", def.Display.FrameHeight)
	l.v.SetDefault("display.orientation", def.Display.Orientation)
	l.v.SetDefault("server.host", def.Server.Host)
	l.v.SetDefault("server.port", def.Server.Port)
	l.v.SetDefault("server.cors_origin", def.Server.CORSOrigin)
	l.v.SetDefault("server.max_upload_mb", def.Server.MaxUploadMB)
	l.v.SetDefault("server.timeout_sec", def.Server.TimeoutSec)
	l.v.SetDefault("server.shutdown_timeout", def.Server.ShutdownTimeout)
}

func (l *Loader) unmarshal() (*Config, error) {
	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}
