package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaults(t *testing.T) {
	cfg := New()

	assert.Equal(t, ":5000", cfg.Server.Port)
	assert.Equal(t, 10*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 100000, cfg.Load.MaxIterations)
	assert.Equal(t, 1024, cfg.Load.MaxDataSizeMB)
	assert.Equal(t, 1000000, cfg.Load.MaxCPUTaskScale)
	assert.Equal(t, 2e10, cfg.Load.MaxCPUWork)
	assert.Equal(t, "loadgen", cfg.Metrics.Namespace)
	assert.Equal(t, "1.0.0-dev", cfg.App.Version)
	assert.NoError(t, cfg.Validate())
}

func TestLoadShippedFile(t *testing.T) {
	cfg, err := Load("configurations.json", nil)
	require.NoError(t, err)

	assert.Equal(t, "/tmp", cfg.Load.TempDir)
	assert.Equal(t, 1000000, cfg.Load.MaxCPUTaskScale)
	assert.Equal(t, 2e10, cfg.Load.MaxCPUWork)
	assert.Equal(t, 15*time.Second, cfg.Metrics.ScratchInterval)
	assert.Equal(t, 5*time.Minute, cfg.Server.WriteTimeout)
}

func TestLoadYAMLWithEnvAndFlagOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte(`
load:
  max_iterations: 50
  max_data_size_mb: 8
logging:
  format: console
`)
	require.NoError(t, os.WriteFile(path, content, 0o600))

	t.Setenv("LOADGEN_LOAD_MAX_DATA_SIZE_MB", "16")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("port", "5000", "")
	require.NoError(t, flags.Parse([]string{"--port", "9090"}))

	cfg, err := Load(path, flags)
	require.NoError(t, err)

	assert.Equal(t, 50, cfg.Load.MaxIterations)
	assert.Equal(t, 16, cfg.Load.MaxDataSizeMB)
	assert.Equal(t, ":9090", cfg.Server.Port)
	assert.Equal(t, "console", cfg.Logging.Format)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"), nil)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero iterations", func(c *Config) { c.Load.MaxIterations = 0 }},
		{"negative data size", func(c *Config) { c.Load.MaxDataSizeMB = -1 }},
		{"zero task scale", func(c *Config) { c.Load.MaxCPUTaskScale = 0 }},
		{"zero cpu work", func(c *Config) { c.Load.MaxCPUWork = 0 }},
		{"negative rate", func(c *Config) { c.RateLimit.RequestsPerSecond = -1 }},
		{"sample rate too high", func(c *Config) { c.Tracing.SampleRate = 1.5 }},
		{"bad protocol", func(c *Config) { c.Tracing.Protocol = "udp" }},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }},
		{"empty port", func(c *Config) { c.Server.Port = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := New()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
