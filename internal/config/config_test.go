package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const minimalYAML = `
instance:
  id: test-collector
database:
  timescale:
    host: localhost
    name: ashare
    user: testuser
    password: testpass
`

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	yaml := `
instance:
  id: test-collector
provider:
  base_url: http://localhost:9999
database:
  timescale:
    host: db.internal
    port: 5433
    name: ashare
    user: testuser
    password: testpass
ratelimit:
  probe_interval: 10s
  boundary_file: /var/lib/ashare/boundaries.json
`
	cfg, err := Load(writeTempFile(t, yaml))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Instance.ID != "test-collector" {
		t.Errorf("Instance.ID = %q, want %q", cfg.Instance.ID, "test-collector")
	}
	if cfg.Provider.BaseURL != "http://localhost:9999" {
		t.Errorf("Provider.BaseURL = %q", cfg.Provider.BaseURL)
	}
	if cfg.Database.Timescale.Port != 5433 {
		t.Errorf("Database.Timescale.Port = %d, want 5433", cfg.Database.Timescale.Port)
	}
	if cfg.RateLimit.ProbeInterval != 10*time.Second {
		t.Errorf("RateLimit.ProbeInterval = %v, want 10s", cfg.RateLimit.ProbeInterval)
	}
	if cfg.RateLimit.BoundaryFile != "/var/lib/ashare/boundaries.json" {
		t.Errorf("RateLimit.BoundaryFile = %q", cfg.RateLimit.BoundaryFile)
	}
}

func TestLoadWithEnvSubstitution(t *testing.T) {
	t.Setenv("TEST_DB_PASSWORD", "secret123")

	yaml := `
instance:
  id: test-collector
database:
  timescale:
    host: localhost
    name: ashare
    user: testuser
    password: ${TEST_DB_PASSWORD}
`
	cfg, err := Load(writeTempFile(t, yaml))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Database.Timescale.Password != "secret123" {
		t.Errorf("Password = %q, want env-substituted value", cfg.Database.Timescale.Password)
	}
}

func TestLoadAndValidate_AppliesDefaults(t *testing.T) {
	cfg, err := LoadAndValidate(writeTempFile(t, minimalYAML))
	if err != nil {
		t.Fatalf("LoadAndValidate failed: %v", err)
	}

	if cfg.Provider.Timeout != DefaultProviderTimeout {
		t.Errorf("Provider.Timeout = %v, want default %v", cfg.Provider.Timeout, DefaultProviderTimeout)
	}
	if cfg.Database.Timescale.Port != DefaultDBPort {
		t.Errorf("Database.Timescale.Port = %d, want default %d", cfg.Database.Timescale.Port, DefaultDBPort)
	}
	if cfg.RateLimit.ProbeInterval != 5*time.Minute {
		t.Errorf("RateLimit.ProbeInterval = %v, want default 5m", cfg.RateLimit.ProbeInterval)
	}
	if cfg.RateLimit.BatchMargin != 0.8 {
		t.Errorf("RateLimit.BatchMargin = %v, want 0.8", cfg.RateLimit.BatchMargin)
	}
	if cfg.RateLimit.PauseMargin != 1.2 {
		t.Errorf("RateLimit.PauseMargin = %v, want 1.2", cfg.RateLimit.PauseMargin)
	}
	if cfg.Collector.Concurrency != DefaultConcurrency {
		t.Errorf("Collector.Concurrency = %d, want %d", cfg.Collector.Concurrency, DefaultConcurrency)
	}
	if cfg.Scheduler.RunAt != DefaultRunAt {
		t.Errorf("Scheduler.RunAt = %q, want %q", cfg.Scheduler.RunAt, DefaultRunAt)
	}
	if cfg.Server.Port != DefaultServerPort {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, DefaultServerPort)
	}
}

func TestValidate_Failures(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing instance id", func(c *Config) { c.Instance.ID = "" }},
		{"missing db host", func(c *Config) { c.Database.Timescale.Host = "" }},
		{"min over max conns", func(c *Config) { c.Database.Timescale.MinConns = 20 }},
		{"probe interval too small", func(c *Config) { c.RateLimit.ProbeInterval = time.Millisecond }},
		{"min delay over max", func(c *Config) {
			c.RateLimit.MinDelay = 10 * time.Second
			c.RateLimit.MaxDelay = time.Second
		}},
		{"base delay out of range", func(c *Config) { c.RateLimit.BaseDelay = time.Hour }},
		{"backoff factor too small", func(c *Config) { c.RateLimit.BackoffFactor = 0.5 }},
		{"recovery factor too large", func(c *Config) { c.RateLimit.RecoveryFactor = 1.5 }},
		{"batch margin over 1", func(c *Config) { c.RateLimit.BatchMargin = 1.1 }},
		{"pause margin under 1", func(c *Config) { c.RateLimit.PauseMargin = 0.5 }},
		{"bad run_at", func(c *Config) { c.Scheduler.RunAt = "half past six" }},
		{"bad timezone", func(c *Config) { c.Scheduler.Timezone = "Mars/Olympus" }},
		{"bad server port", func(c *Config) { c.Server.Port = 99999 }},
		{"bad redis db", func(c *Config) {
			c.Redis.Host = "localhost"
			c.Redis.Port = 6379
			c.Redis.DB = 42
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := LoadWithDefaults(writeTempFile(t, minimalYAML))
			if err != nil {
				t.Fatalf("LoadWithDefaults: %v", err)
			}
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate() = nil, want error")
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("Load on missing file should fail")
	}
}
