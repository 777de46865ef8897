package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, BackendFile, cfg.Storage.Backend)
	assert.Equal(t, "dtn_smartops_board_v1", cfg.Storage.Key)
	assert.Equal(t, 10*time.Second, cfg.Storage.Timeout)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{"valid default config", func(c *Config) {}, false},
		{"memory", func(c *Config) { c.Storage.Backend = BackendMemory }, false},
		{"missing listen", func(c *Config) { c.Listen = "" }, true},
		{"blank key", func(c *Config) { c.Storage.Key = " " }, true},
		{"zero timeout", func(c *Config) { c.Storage.Timeout = 0 }, true},
		{"unknown backend", func(c *Config) { c.Storage.Backend = "redis" }, true},
		{"s3 without endpoint", func(c *Config) {
			c.Storage.Backend = BackendS3
			c.Storage.S3.Bucket = "b"
		}, true},
		{"s3 complete", func(c *Config) {
			c.Storage.Backend = BackendS3
			c.Storage.S3.Bucket = "b"
			c.Storage.S3.Endpoint = "http://localhost:9000"
		}, false},
		{"sqlite without dsn", func(c *Config) { c.Storage.Backend = BackendSQLite }, true},
		{"postgres complete", func(c *Config) {
			c.Storage.Backend = BackendPostgres
			c.Storage.SQL.DSN = "postgres://localhost/board"
		}, false},
		{"nats without url", func(c *Config) { c.Storage.Backend = BackendNATS }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	content := `
listen: ":9090"
storage:
  backend: s3
  timeout: 3s
  s3:
    endpoint: "http://minio:9000"
    bucket: "boards"
    access_key: "ak"
    secret_key: "sk"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg := DefaultConfig()
	require.NoError(t, cfg.loadFile(path))
	assert.Equal(t, ":9090", cfg.Listen)
	assert.Equal(t, BackendS3, cfg.Storage.Backend)
	assert.Equal(t, 3*time.Second, cfg.Storage.Timeout)
	assert.Equal(t, "boards", cfg.Storage.S3.Bucket)
	// untouched defaults survive
	assert.Equal(t, "dtn_smartops_board_v1", cfg.Storage.Key)
	assert.True(t, cfg.Storage.S3.UsePathStyle)
}

func TestLoadFile_Missing(t *testing.T) {
	cfg := DefaultConfig()
	assert.NoError(t, cfg.loadFile(filepath.Join(t.TempDir(), "nope.yml")))
}

func TestLoadFile_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte("listen: [oops"), 0o644))
	assert.Error(t, DefaultConfig().loadFile(path))
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"DTNBOARD_STORAGE_BACKEND": "sqlite",
		"DTNBOARD_SQL_DSN":         "file:board.db",
		"DTNBOARD_STORAGE_TIMEOUT": "2s",
		"DTNBOARD_LOG_LEVEL":       "debug",
	}
	cfg := DefaultConfig()
	cfg.applyEnv(func(k string) string { return env[k] })

	assert.Equal(t, BackendSQLite, cfg.Storage.Backend)
	assert.Equal(t, "file:board.db", cfg.Storage.SQL.DSN)
	assert.Equal(t, 2*time.Second, cfg.Storage.Timeout)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte("storage:\n  backend: memory\n"), 0o644))
	t.Setenv("DTNBOARD_LISTEN", ":7070")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":7070", cfg.Listen)
	assert.Equal(t, BackendMemory, cfg.Storage.Backend)
}
