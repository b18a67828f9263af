package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "grantlens.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, DriverDir, cfg.Data.Driver)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 10, cfg.Pages.TopN)
}

func TestLoadFileOverDefaults(t *testing.T) {
	path := writeConfig(t, `
data:
  driver: s3
  s3:
    bucket: snsf-open-data
    prefix: exports/2024
server:
  addr: 127.0.0.1:9000
  max_sessions: 50
  session_ttl: 5m
ai:
  terms: [machine learning, computer vision]
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DriverS3, cfg.Data.Driver)
	assert.Equal(t, "snsf-open-data", cfg.Data.S3.Bucket)
	assert.Equal(t, "exports/2024", cfg.Data.S3.Prefix)
	assert.Equal(t, "eu-central-1", cfg.Data.S3.Region, "unset keys keep defaults")
	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
	assert.Equal(t, 50, cfg.Server.MaxSessions)
	assert.Equal(t, 5*time.Minute, cfg.Server.SessionTTL)
	assert.Equal(t, []string{"machine learning", "computer vision"}, cfg.AI.Terms)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "server:\n  addr: :9000\n")
	t.Setenv("GRANTLENS_ADDR", ":7000")
	t.Setenv("GRANTLENS_DATA_DRIVER", "sample")
	t.Setenv("GRANTLENS_TOP_N", "5")
	t.Setenv("GRANTLENS_AI_TERMS", "robotics, ,neural network")
	t.Setenv("GRANTLENS_SESSION_TTL", "90s")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":7000", cfg.Server.Addr)
	assert.Equal(t, DriverSample, cfg.Data.Driver)
	assert.Equal(t, 5, cfg.Pages.TopN)
	assert.Equal(t, []string{"robotics", "neural network"}, cfg.AI.Terms)
	assert.Equal(t, 90*time.Second, cfg.Server.SessionTTL)
}

func TestLoadErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.ErrorIs(t, err, os.ErrNotExist)
	})
	t.Run("bad yaml", func(t *testing.T) {
		_, err := Load(writeConfig(t, "data: [unclosed"))
		assert.Error(t, err)
	})
	t.Run("bad env number", func(t *testing.T) {
		t.Setenv("GRANTLENS_TOP_N", "many")
		_, err := Load("")
		assert.ErrorIs(t, err, ErrInvalidConfig)
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown driver", func(c *Config) { c.Data.Driver = "ftp" }},
		{"dir without path", func(c *Config) { c.Data.Dir = "" }},
		{"s3 without bucket", func(c *Config) { c.Data.Driver = DriverS3 }},
		{"sql without dsn", func(c *Config) { c.Data.Driver = DriverSQL }},
		{"zero top n", func(c *Config) { c.Pages.TopN = 0 }},
		{"zero max sessions", func(c *Config) { c.Server.MaxSessions = 0 }},
		{"zero session ttl", func(c *Config) { c.Server.SessionTTL = 0 }},
		{"bad log level", func(c *Config) { c.Log.Level = "chatty" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}
}
