// Package config loads the server configuration from YAML, a .env file and
// DTNBOARD_* environment variables, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultPath is read when no --config flag is given.
const DefaultPath = "config.yml"

// Storage backends.
const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendS3       = "s3"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendNATS     = "nats"
)

type S3Config struct {
	Endpoint        string `yaml:"endpoint"`
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	AccessKey       string `yaml:"access_key"`
	SecretKey       string `yaml:"secret_key"`
	UsePathStyle    bool   `yaml:"use_path_style"`
	DisableChecksum bool   `yaml:"disable_checksum"`
}

type FileConfig struct {
	Dir string `yaml:"dir"`
}

type SQLConfig struct {
	DSN   string `yaml:"dsn"`
	Table string `yaml:"table"`
}

type NATSConfig struct {
	URL    string `yaml:"url"`
	Bucket string `yaml:"bucket"`
}

type Storage struct {
	Backend string        `yaml:"backend"`
	Key     string        `yaml:"key"`
	Timeout time.Duration `yaml:"timeout"`
	File    FileConfig    `yaml:"file"`
	S3      S3Config      `yaml:"s3"`
	SQL     SQLConfig     `yaml:"sql"`
	NATS    NATSConfig    `yaml:"nats"`
}

type Config struct {
	Listen   string  `yaml:"listen"`
	LogLevel string  `yaml:"log_level"`
	Storage  Storage `yaml:"storage"`
}

// DefaultConfig keeps the board in a local file under ./data.
func DefaultConfig() *Config {
	return &Config{
		Listen:   ":8080",
		LogLevel: "info",
		Storage: Storage{
			Backend: BackendFile,
			Key:     "dtn_smartops_board_v1",
			Timeout: 10 * time.Second,
			File:    FileConfig{Dir: "data"},
			S3:      S3Config{Region: "us-east-1", UsePathStyle: true},
			SQL:     SQLConfig{Table: "kv"},
			NATS:    NATSConfig{Bucket: "dtnboard"},
		},
	}
}

// Load builds the configuration. A missing file at path is not an error;
// the defaults then only get environment overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	cfg.applyEnv(os.Getenv)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	if path == "" {
		return nil
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("open config: %w", err)
	}
	defer f.Close()
	dec := yaml.NewDecoder(f)
	if err := dec.Decode(c); err != nil {
		return fmt.Errorf("decode config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	set := func(dst *string, name string) {
		if v := getenv("DTNBOARD_" + name); v != "" {
			*dst = v
		}
	}
	set(&c.Listen, "LISTEN")
	set(&c.LogLevel, "LOG_LEVEL")
	set(&c.Storage.Backend, "STORAGE_BACKEND")
	set(&c.Storage.Key, "STORAGE_KEY")
	set(&c.Storage.File.Dir, "FILE_DIR")
	set(&c.Storage.S3.Endpoint, "S3_ENDPOINT")
	set(&c.Storage.S3.Bucket, "S3_BUCKET")
	set(&c.Storage.S3.Region, "S3_REGION")
	set(&c.Storage.S3.AccessKey, "S3_ACCESS_KEY")
	set(&c.Storage.S3.SecretKey, "S3_SECRET_KEY")
	set(&c.Storage.SQL.DSN, "SQL_DSN")
	set(&c.Storage.NATS.URL, "NATS_URL")
	set(&c.Storage.NATS.Bucket, "NATS_BUCKET")
	if v := getenv("DTNBOARD_STORAGE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Storage.Timeout = d
		}
	}
}

// Validate checks the selected backend has what it needs.
func (c *Config) Validate() error {
	if c.Listen == "" {
		return errors.New("listen address is required")
	}
	s := c.Storage
	if strings.TrimSpace(s.Key) == "" {
		return errors.New("storage key is required")
	}
	if s.Timeout <= 0 {
		return errors.New("storage timeout must be positive")
	}
	switch s.Backend {
	case BackendMemory:
	case BackendFile:
		if s.File.Dir == "" {
			return errors.New("file backend requires storage.file.dir")
		}
	case BackendS3:
		if s.S3.Endpoint == "" {
			return errors.New("S3 endpoint is required")
		}
		if s.S3.Bucket == "" {
			return errors.New("S3 bucket is required")
		}
	case BackendSQLite, BackendPostgres:
		if s.SQL.DSN == "" {
			return fmt.Errorf("%s backend requires storage.sql.dsn", s.Backend)
		}
		if s.SQL.Table == "" {
			return fmt.Errorf("%s backend requires storage.sql.table", s.Backend)
		}
	case BackendNATS:
		if s.NATS.URL == "" || s.NATS.Bucket == "" {
			return errors.New("nats backend requires storage.nats.url and storage.nats.bucket")
		}
	default:
		return fmt.Errorf("unknown storage backend %q", s.Backend)
	}
	return nil
}
