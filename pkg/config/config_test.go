package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig_IsValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected default config to be valid, got error: %v", err)
	}
	if cfg.Gallery.MaxVisibleTiles != 4 {
		t.Fatalf("expected default max_visible_tiles 4, got %d", cfg.Gallery.MaxVisibleTiles)
	}
}

func TestValidate_InvalidValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{
			name:   "empty diag address",
			mutate: func(c *Config) { c.Diag.Address = "" },
		},
		{
			name:   "zero read timeout",
			mutate: func(c *Config) { c.Diag.ReadTimeout = 0 },
		},
		{
			name:   "pong timeout not above ping interval",
			mutate: func(c *Config) { c.Feed.PongTimeout = c.Feed.PingInterval },
		},
		{
			name:   "zero gallery tiles",
			mutate: func(c *Config) { c.Gallery.MaxVisibleTiles = 0 },
		},
		{
			name: "notify rate without burst",
			mutate: func(c *Config) {
				c.Notify.RatePerSecond = 10
				c.Notify.Burst = 0
			},
		},
		{
			name:   "empty jwt secret",
			mutate: func(c *Config) { c.Auth.JWTSecret = "" },
		},
		{
			name:   "zero join token ttl",
			mutate: func(c *Config) { c.Auth.JoinTokenTTL = 0 },
		},
		{
			name: "rate limiting enabled without rps",
			mutate: func(c *Config) {
				c.RateLimiting.Enabled = true
				c.RateLimiting.RequestsPerSecond = 0
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error, got nil")
			}
		})
	}
}

func TestValidate_RateLimitingDisabled_AllowsZeroValues(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RateLimiting.Enabled = false
	cfg.RateLimiting.RequestsPerSecond = 0
	cfg.RateLimiting.Burst = 0
	cfg.RateLimiting.MaxConcurrent = 0

	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected config to be valid when rate limiting disabled, got error: %v", err)
	}
}

func TestLoad_MissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err != nil {
		t.Fatalf("expected defaults for missing file, got error: %v", err)
	}
	if cfg.Diag.Address != ":8080" {
		t.Fatalf("expected default diag address, got %s", cfg.Diag.Address)
	}
}

func TestLoad_YAMLOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
diag:
  address: ":9090"
gallery:
  max_visible_tiles: 9
auth:
  jwt_secret: "test-secret"
  join_token_ttl: 5m
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Diag.Address != ":9090" {
		t.Fatalf("expected overridden diag address, got %s", cfg.Diag.Address)
	}
	if cfg.Gallery.MaxVisibleTiles != 9 {
		t.Fatalf("expected overridden max_visible_tiles, got %d", cfg.Gallery.MaxVisibleTiles)
	}
	if cfg.Auth.JoinTokenTTL != 5*time.Minute {
		t.Fatalf("expected 5m join token ttl, got %s", cfg.Auth.JoinTokenTTL)
	}
	// Untouched sections keep defaults
	if cfg.Feed.PingInterval != 30*time.Second {
		t.Fatalf("expected default ping interval, got %s", cfg.Feed.PingInterval)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("CALLVIEW_DIAG_ADDRESS", ":7070")
	t.Setenv("CALLVIEW_LOG_LEVEL", "debug")

	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Diag.Address != ":7070" {
		t.Fatalf("expected env override for diag address, got %s", cfg.Diag.Address)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("expected env override for log level, got %s", cfg.Logging.Level)
	}
}
