// Package config loads the tunables cmd/aetherkv and library callers
// need to open a store: the data directory, the active-file rotation
// threshold, the flush policy, and the log level. Values come from a
// YAML file with `.env` overrides (the teacher's own config stack,
// generalized from a single hard-coded path to an explicit Load(path)
// plus functional Options for programmatic overrides), since a library
// cannot assume a working directory layout the way a CLI-only tool can.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

// defaultMaxFileSize matches internal/store's own default so a caller
// that never touches max_file_size gets identical behavior either way.
const defaultMaxFileSize int64 = 1024 * 1024 * 1024

// Config holds every tunable a store Open call needs.
type Config struct {
	DataDir      string        `yaml:"data_dir"`
	MaxFileSize  int64         `yaml:"max_file_size"`
	BatchSize    int           `yaml:"batch_size"`
	SyncInterval time.Duration `yaml:"sync_interval"`
	LogLevel     string        `yaml:"log_level"`
}

// Option overrides a field of Config after it has been loaded from
// file, mirroring the options-function pattern used for store.Option.
type Option func(*Config)

// WithDataDir overrides the data directory.
func WithDataDir(dir string) Option {
	return func(c *Config) {
		if dir = strings.TrimSpace(dir); dir != "" {
			c.DataDir = dir
		}
	}
}

// WithMaxFileSize overrides the active-file rotation threshold.
func WithMaxFileSize(n int64) Option {
	return func(c *Config) {
		if n > 0 {
			c.MaxFileSize = n
		}
	}
}

// WithLogLevel overrides the log level ("debug", "info", "warn", "error").
func WithLogLevel(level string) Option {
	return func(c *Config) {
		if level = strings.TrimSpace(level); level != "" {
			c.LogLevel = level
		}
	}
}

// Default returns a Config with every field set to its zero-config
// default: a "./data" directory, a 1 GiB rotation threshold, and
// sync-every-write flushing.
func Default() Config {
	return Config{
		DataDir:     "./data",
		MaxFileSize: defaultMaxFileSize,
		LogLevel:    "info",
	}
}

// Load reads a YAML config file at path, applies any .env overlay found
// in the current working directory (optional — its absence is not an
// error), expands ${VAR} references in the YAML against the process
// environment, then applies opts on top. A missing path is not an
// error: Default() is returned with opts applied, so a library caller
// can use Load with zero setup.
func Load(path string, opts ...Option) (Config, error) {
	cfg := Default()

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return Config{}, err
	}

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return Config{}, err
			}
		} else {
			expanded := os.ExpandEnv(string(raw))
			if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
				return Config{}, err
			}
		}
	}

	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg, nil
}
