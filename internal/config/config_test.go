package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Default(t *testing.T) {
	cfg, err := Load("/nonexistent/config.yaml")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Output != "table" {
		t.Errorf("expected default output 'table', got %q", cfg.Output)
	}
	if cfg.StoreDSN != "memory" {
		t.Errorf("expected default store_dsn 'memory', got %q", cfg.StoreDSN)
	}
	if cfg.Sandbox.MemoryPages != 256 {
		t.Errorf("expected default memory_pages 256, got %d", cfg.Sandbox.MemoryPages)
	}
}

func TestLoad_Valid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	content := `
output: json
store_dsn: "postgres://localhost/reglet"
max_concurrent_loads: 8
sandbox:
  memory_pages: 512
  fuel: 2000000
hook_timeouts:
  post_published_filter: 10s
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Output != "json" {
		t.Errorf("expected output 'json', got %q", cfg.Output)
	}
	if cfg.StoreDSN != "postgres://localhost/reglet" {
		t.Errorf("expected custom store_dsn, got %q", cfg.StoreDSN)
	}
	if cfg.MaxConcurrentLoads != 8 {
		t.Errorf("expected max_concurrent_loads 8, got %d", cfg.MaxConcurrentLoads)
	}
	if cfg.Sandbox.MemoryPages != 512 {
		t.Errorf("expected memory_pages 512, got %d", cfg.Sandbox.MemoryPages)
	}
	if got := cfg.HookTimeout("post_published_filter", 5*time.Second); got != 10*time.Second {
		t.Errorf("expected post_published_filter timeout 10s, got %s", got)
	}
	if got := cfg.HookTimeout("action_system_startup", 5*time.Second); got != 5*time.Second {
		t.Errorf("expected fallback timeout 5s, got %s", got)
	}
}

func TestLoad_Malformed(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	if err := os.WriteFile(path, []byte("{{invalid"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	_, err := Load(path)
	if err == nil {
		t.Error("expected error for malformed config")
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	cfg := DefaultConfig()

	t.Setenv("REGLET_OUTPUT", "yaml")
	t.Setenv("REGLET_STORE_DSN", "postgres://example/reglet")
	t.Setenv("REGLET_LOG_RATE_LIMIT", "50")

	cfg.ApplyEnvOverrides()

	if cfg.Output != "yaml" {
		t.Errorf("expected output 'yaml' from env, got %q", cfg.Output)
	}
	if cfg.StoreDSN != "postgres://example/reglet" {
		t.Errorf("expected store_dsn from env, got %q", cfg.StoreDSN)
	}
	if cfg.LogRateLimit != 50 {
		t.Errorf("expected log_rate_limit 50 from env, got %d", cfg.LogRateLimit)
	}
}
