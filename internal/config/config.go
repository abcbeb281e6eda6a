// Package config handles host configuration: on-disk layout, sandbox
// resource limits, per-hook timeouts, and store connectivity.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/goagain/reglet-host/internal/meta"
	"gopkg.in/yaml.v3"
)

// Config holds host configuration loaded from ~/.reglet/config.yaml.
type Config struct {
	// InstallDir holds the canonical archive copy of every installed plugin,
	// <InstallDir>/<plugin_id>-<version>.rpk.
	InstallDir string `yaml:"install_dir"`

	// CacheDir holds extraction scratch space, safe to delete.
	CacheDir string `yaml:"cache_dir"`

	// StoreDSN is the Plugin Store's connection string. A "memory" value
	// selects the in-process store.MemStore, used for local/dev hosts; any
	// other value is passed to lib/pq as a Postgres DSN.
	StoreDSN string `yaml:"store_dsn"`

	// MaxArchiveBytes bounds archive.ReadArchive's zip-bomb guard. 0 selects
	// archive.DefaultMaxUncompressedSize.
	MaxArchiveBytes int64 `yaml:"max_archive_bytes"`

	// MaxConcurrentLoads bounds how many plugins LoadAllEnabled compiles
	// concurrently at startup.
	MaxConcurrentLoads int `yaml:"max_concurrent_loads"`

	// Sandbox bounds what a single plugin invocation may consume.
	Sandbox SandboxConfig `yaml:"sandbox"`

	// HookTimeouts overrides the default 5s per-invocation timeout for
	// specific hook names.
	HookTimeouts map[string]string `yaml:"hook_timeouts"`

	// LogRateLimit bounds how many host-log calls per second one plugin may
	// make before further calls in that window are dropped.
	LogRateLimit int `yaml:"log_rate_limit"`

	// Output is the default output format (table, json, yaml) for the admin CLI.
	Output string `yaml:"output"`

	// Quiet selects the "quiet" output format, so "plugin list" and "plugin
	// get" print nothing. The other subcommands still print their status lines.
	Quiet bool `yaml:"quiet"`
}

// SandboxConfig mirrors internal/sandbox.ResourceLimits in a YAML-friendly
// shape; internal/sandbox is not imported here to keep config dependency-free
// of the runtime packages it configures.
type SandboxConfig struct {
	MemoryPages uint32 `yaml:"memory_pages"`
	Fuel        uint64 `yaml:"fuel"`
	StackDepth  uint32 `yaml:"stack_depth"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	dir := DefaultConfigDir()
	return &Config{
		InstallDir:         filepath.Join(dir, "plugins"),
		CacheDir:           filepath.Join(dir, "cache"),
		StoreDSN:           "memory",
		MaxArchiveBytes:    64 << 20,
		MaxConcurrentLoads: 4,
		Sandbox: SandboxConfig{
			MemoryPages: 256,
			Fuel:        1_000_000,
			StackDepth:  512,
		},
		LogRateLimit: 1000,
		Output:       "table",
	}
}

// Load reads configuration from the given path.
// Returns DefaultConfig if the file doesn't exist.
// Returns an error only if the file exists but is malformed.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	return cfg, nil
}

// DefaultConfigPath returns the default config file path, ~/.reglet/config.yaml.
func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.yaml")
}

// DefaultConfigDir returns the default config directory, ~/.reglet/.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "."+meta.AppName)
	}
	return filepath.Join(home, "."+meta.AppName)
}

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Environment variables (higher priority than config file):
//   - REGLET_STORE_DSN: store connection string
//   - REGLET_INSTALL_DIR: installed plugin archive directory
//   - REGLET_OUTPUT: default output format
//   - REGLET_LOG_RATE_LIMIT: per-plugin log messages/sec
func (c *Config) ApplyEnvOverrides() {
	prefix := strings.ToUpper(meta.AppName) + "_"
	if v := os.Getenv(prefix + "STORE_DSN"); v != "" {
		c.StoreDSN = v
	}
	if v := os.Getenv(prefix + "INSTALL_DIR"); v != "" {
		c.InstallDir = v
	}
	if v := os.Getenv(prefix + "OUTPUT"); v != "" {
		c.Output = v
	}
	if v := os.Getenv(prefix + "LOG_RATE_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.LogRateLimit = n
		}
	}
}

// HookTimeout resolves the configured timeout for hook, or fallback if unset
// or unparseable.
func (c *Config) HookTimeout(hook string, fallback time.Duration) time.Duration {
	raw, ok := c.HookTimeouts[hook]
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}
	return d
}

// Save writes the config to the given path as YAML.
// Creates parent directories if they don't exist.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}
