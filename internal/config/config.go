// Package config loads the todod server configuration.
//
// Values are layered: built-in defaults, then an optional YAML file, then
// TODOD_* environment variables. Command line flags are applied last by the
// caller.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "TODOD_"

// Config is the server configuration.
type Config struct {
	// HTTP is the listen address.
	HTTP string `yaml:"http" env:"HTTP"`
	// DB is the SQLite database file. Relative paths are resolved by
	// ResolveDBPath.
	DB string `yaml:"db" env:"DB"`
	// LogLevel is one of debug, info, warn or error.
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL"`
	// GeoDB is an optional MaxMind MMDB file used to tag access logs.
	GeoDB string `yaml:"geo_db" env:"GEO_DB"`
	// MaxRequestBodyBytes limits the size of any single request body. 0 means
	// unlimited.
	MaxRequestBodyBytes int64 `yaml:"max_request_body_bytes" env:"MAX_REQUEST_BODY_BYTES"`

	RateLimits RateLimits `yaml:"rate_limits" envPrefix:"RATE_"`
}

// RateLimits configures the API rate limit tiers.
type RateLimits struct {
	Read  RateTier `yaml:"read" envPrefix:"READ_"`
	Write RateTier `yaml:"write" envPrefix:"WRITE_"`
}

// RateTier is a token bucket refilled at PerMinute requests per minute.
// 0 means unlimited.
type RateTier struct {
	PerMinute int `yaml:"per_minute" env:"PER_MINUTE"`
	Burst     int `yaml:"burst" env:"BURST"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		HTTP:                "127.0.0.1:8001",
		DB:                  "todos.db",
		LogLevel:            "info",
		MaxRequestBodyBytes: 1 << 20,
		RateLimits: RateLimits{
			Read:  RateTier{PerMinute: 6000, Burst: 1000},
			Write: RateTier{PerMinute: 600, Burst: 100},
		},
	}
}

// Load returns the defaults overlaid with the YAML file at path, if it
// exists, and with the environment. An empty path skips the file.
func Load(path string) (*Config, error) {
	c := Default()
	if path != "" {
		if err := c.loadFile(path); err != nil {
			return nil, err
		}
	}
	if err := env.ParseWithOptions(c, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) loadFile(path string) error {
	raw, err := os.ReadFile(path) //nolint:gosec // G304: path comes from the -config flag
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	d := yaml.NewDecoder(bytes.NewReader(raw))
	d.KnownFields(true)
	if err := d.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.HTTP) == "" {
		return errors.New("http address must not be empty")
	}
	if strings.TrimSpace(c.DB) == "" {
		return errors.New("db path must not be empty")
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return err
	}
	if c.MaxRequestBodyBytes < 0 {
		return errors.New("max_request_body_bytes must be non-negative")
	}
	for name, t := range map[string]RateTier{"read": c.RateLimits.Read, "write": c.RateLimits.Write} {
		if t.PerMinute < 0 || t.Burst < 0 {
			return fmt.Errorf("rate_limits.%s must be non-negative", name)
		}
	}
	return nil
}

// ParseLogLevel maps a level name to its slog.Level.
func ParseLogLevel(s string) (slog.Level, error) {
	switch s {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level: %q", s)
	}
}

// ExecutableDir returns the directory holding the running executable, with
// symlinks resolved.
func ExecutableDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", err
	}
	exe, err = filepath.EvalSymlinks(exe)
	if err != nil {
		return "", err
	}
	return filepath.Dir(exe), nil
}

// ResolveDBPath returns p unchanged when absolute. Otherwise p is placed next
// to the executable so a packaged binary finds its database regardless of
// the working directory. Binaries built by "go run" live in a temporary
// build cache, in which case the working directory is used.
func ResolveDBPath(p string) (string, error) {
	if filepath.IsAbs(p) {
		return filepath.Clean(p), nil
	}
	exeDir, err := ExecutableDir()
	if err != nil {
		return "", err
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return resolve(p, exeDir, wd), nil
}

func resolve(p, exeDir, wd string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	if strings.Contains(exeDir, "go-build") {
		return filepath.Join(wd, p)
	}
	return filepath.Join(exeDir, p)
}
