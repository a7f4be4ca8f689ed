package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

type Config struct {
	Diag struct {
		Address         string        `yaml:"address"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"diag"`

	Feed struct {
		URL              string        `yaml:"url"`
		PingInterval     time.Duration `yaml:"ping_interval"`
		PongTimeout      time.Duration `yaml:"pong_timeout"`
		HandshakeTimeout time.Duration `yaml:"handshake_timeout"`
	} `yaml:"feed"`

	Gallery struct {
		MaxVisibleTiles      int `yaml:"max_visible_tiles"`
		MaxVisibleAudioTiles int `yaml:"max_visible_audio_tiles"`
	} `yaml:"gallery"`

	Notify struct {
		RatePerSecond float64 `yaml:"rate_per_second"`
		Burst         int     `yaml:"burst"`
	} `yaml:"notify"`

	Monitoring struct {
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
	} `yaml:"monitoring"`

	Tracing struct {
		Enabled     bool    `yaml:"enabled"`
		JaegerURL   string  `yaml:"jaeger_url"`
		Environment string  `yaml:"environment"`
		SampleRate  float64 `yaml:"sample_rate"`
	} `yaml:"tracing"`

	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`

	Auth struct {
		JWTSecret    string        `yaml:"jwt_secret"`
		JoinTokenTTL time.Duration `yaml:"join_token_ttl"`
	} `yaml:"auth"`

	RateLimiting struct {
		Enabled           bool    `yaml:"enabled"`
		RequestsPerSecond float64 `yaml:"requests_per_second"`
		Burst             int     `yaml:"burst"`
		MaxConcurrent     int     `yaml:"max_concurrent"` // global concurrent HTTP requests
	} `yaml:"rate_limiting"`
}

// Validate checks that configuration values are within acceptable ranges.
func (c *Config) Validate() error {
	// Diag server
	if c.Diag.Address == "" {
		return fmt.Errorf("diag.address must not be empty")
	}
	if c.Diag.ReadTimeout <= 0 {
		return fmt.Errorf("diag.read_timeout must be > 0")
	}
	if c.Diag.WriteTimeout <= 0 {
		return fmt.Errorf("diag.write_timeout must be > 0")
	}
	if c.Diag.ShutdownTimeout <= 0 {
		return fmt.Errorf("diag.shutdown_timeout must be > 0")
	}

	// Feed
	if c.Feed.PingInterval <= 0 {
		return fmt.Errorf("feed.ping_interval must be > 0")
	}
	if c.Feed.PongTimeout <= c.Feed.PingInterval {
		return fmt.Errorf("feed.pong_timeout must be > feed.ping_interval")
	}

	// Gallery
	if c.Gallery.MaxVisibleTiles <= 0 {
		return fmt.Errorf("gallery.max_visible_tiles must be > 0")
	}
	if c.Gallery.MaxVisibleAudioTiles < 0 {
		return fmt.Errorf("gallery.max_visible_audio_tiles must be >= 0")
	}

	// Notify throttle
	if c.Notify.RatePerSecond < 0 {
		return fmt.Errorf("notify.rate_per_second must be >= 0")
	}
	if c.Notify.RatePerSecond > 0 && c.Notify.Burst <= 0 {
		return fmt.Errorf("notify.burst must be > 0 when notify.rate_per_second is set")
	}

	// Logging
	if c.Logging.Level == "" {
		return fmt.Errorf("logging.level must not be empty")
	}

	// Auth
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret must not be empty")
	}
	if c.Auth.JoinTokenTTL <= 0 {
		return fmt.Errorf("auth.join_token_ttl must be > 0")
	}

	// Rate limiting
	if c.RateLimiting.Enabled {
		if c.RateLimiting.RequestsPerSecond <= 0 {
			return fmt.Errorf("rate_limiting.requests_per_second must be > 0 when rate limiting is enabled")
		}
		if c.RateLimiting.Burst <= 0 {
			return fmt.Errorf("rate_limiting.burst must be > 0 when rate limiting is enabled")
		}
		if c.RateLimiting.MaxConcurrent < 0 {
			return fmt.Errorf("rate_limiting.max_concurrent must be >= 0 when rate limiting is enabled")
		}
	}

	return nil
}

// Load reads configuration from YAML file, applies defaults and env overrides.
func Load(configPath string) (*Config, error) {
	// If file does not exist, fall back to defaults
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		cfg := DefaultConfig()
		cfg.applyEnvOverrides()
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config yaml: %w", err)
	}

	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// DefaultConfig returns configuration with sane defaults.
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Diag.Address = ":8080"
	cfg.Diag.ReadTimeout = 30 * time.Second
	cfg.Diag.WriteTimeout = 30 * time.Second
	cfg.Diag.ShutdownTimeout = 30 * time.Second

	cfg.Feed.URL = "ws://localhost:8081/state"
	cfg.Feed.PingInterval = 30 * time.Second
	cfg.Feed.PongTimeout = 60 * time.Second
	cfg.Feed.HandshakeTimeout = 10 * time.Second

	cfg.Gallery.MaxVisibleTiles = 4
	cfg.Gallery.MaxVisibleAudioTiles = 6

	cfg.Notify.RatePerSecond = 30
	cfg.Notify.Burst = 10

	cfg.Monitoring.PrometheusEnabled = true

	cfg.Tracing.Enabled = false
	cfg.Tracing.JaegerURL = "http://localhost:14268/api/traces"
	cfg.Tracing.Environment = "development"
	cfg.Tracing.SampleRate = 1.0

	cfg.Logging.Level = "info"
	cfg.Logging.Format = "json"

	cfg.Auth.JWTSecret = "change-me-in-production"
	cfg.Auth.JoinTokenTTL = 15 * time.Minute

	cfg.RateLimiting.Enabled = false
	cfg.RateLimiting.RequestsPerSecond = 50
	cfg.RateLimiting.Burst = 100
	cfg.RateLimiting.MaxConcurrent = 0

	return cfg
}

func (c *Config) applyEnvOverrides() {
	// Apply environment variable overrides
	if addr := os.Getenv("CALLVIEW_DIAG_ADDRESS"); addr != "" {
		c.Diag.Address = addr
	}
	if url := os.Getenv("CALLVIEW_FEED_URL"); url != "" {
		c.Feed.URL = url
	}
	if level := os.Getenv("CALLVIEW_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
	if secret := os.Getenv("CALLVIEW_JWT_SECRET"); secret != "" {
		c.Auth.JWTSecret = secret
	}
}
