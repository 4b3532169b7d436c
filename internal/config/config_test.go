package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/visionkit/scanbox/internal/detect"
	"github.com/visionkit/scanbox/internal/display"
)

func TestDefaultConfigIsValid(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }},
		{"zero box size", func(c *Config) { c.Region.BoxSize = 0 }},
		{"unknown symbology", func(c *Config) { c.Scan.Symbologies = []string{"morse"} }},
		{"negative fps", func(c *Config) { c.Scan.FPS = -1 }},
		{"bad orientation", func(c *Config) { c.Display.Orientation = "sideways" }},
		{"negative display", func(c *Config) { c.Display.Width = -1 }},
		{"port out of range", func(c *Config) { c.Server.Port = 0 }},
		{"zero upload limit", func(c *Config) { c.Server.MaxUploadMB = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestFilterResolution(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Scan.Symbologies = []string{"qr", "aztec"}
	f, err := cfg.Filter()
	require.NoError(t, err)
	assert.True(t, f.Matches(detect.Event{Format: detect.FormatQR}))
	assert.False(t, f.Matches(detect.Event{Format: detect.FormatEAN13}))

	cfg.Scan.Symbologies = nil
	f, err = cfg.Filter()
	require.NoError(t, err)
	assert.True(t, f.Matches(detect.Event{Format: detect.FormatEAN13}))
}

func TestOrientationResolution(t *testing.T) {
	cfg := DefaultConfig()
	o, err := cfg.Orientation()
	require.NoError(t, err)
	assert.Equal(t, display.Portrait, o)

	cfg.Display.Orientation = "landscape_right"
	o, err = cfg.Orientation()
	require.NoError(t, err)
	assert.Equal(t, display.LandscapeRight, o)
}

func TestLoadWithFile(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	path := filepath.Join(t.TempDir(), "scanbox.yaml")
	data := []byte(`
log_level: debug
region:
  box_size: 320
scan:
  symbologies: ["qr"]
  fps: 15
display:
  orientation: landscape_left
`)
	require.NoError(t, os.WriteFile(path, data, 0o600))

	cfg, err := NewLoader().LoadWithFile(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, uint(320), cfg.Region.BoxSize)
	assert.Equal(t, []string{"qr"}, cfg.Scan.Symbologies)
	assert.Equal(t, 15, cfg.Scan.FPS)
	assert.Equal(t, "landscape_left", cfg.Display.Orientation)
	// Untouched keys keep defaults.
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestLoadWithMissingFile(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	_, err := NewLoader().LoadWithFile("/nonexistent/scanbox.yaml")
	assert.Error(t, err)
}

func TestLoadValidatesFileContents(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	path := filepath.Join(t.TempDir(), "scanbox.yaml")
	require.NoError(t, os.WriteFile(path, []byte("region:\n  box_size: 0\n"), 0o600))

	_, err := NewLoader().LoadWithFile(path)
	assert.Error(t, err)
}
