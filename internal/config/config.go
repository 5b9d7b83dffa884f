package config

import (
	"fmt"
	"time"
)

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Inference InferenceConfig `mapstructure:"inference"`
	Registry  RegistryConfig  `mapstructure:"registry"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Host      string `mapstructure:"host"`       // Bind address (e.g., 0.0.0.0 for all interfaces)
	HTTPPort  int    `mapstructure:"http_port"`  // HTTP server port
	BodyLimit int    `mapstructure:"body_limit"` // Max request body in bytes; fit payloads carry whole series
	// ReadTimeout and WriteTimeout bound a single request; fits on large
	// series need a generous write timeout
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// InferenceConfig holds the fit defaults applied when a request does not
// override them
type InferenceConfig struct {
	Method        string    `mapstructure:"method"` // map, sample
	MaxIterations int       `mapstructure:"max_iterations"`
	Tolerance     float64   `mapstructure:"tolerance"`
	GradientStep  float64   `mapstructure:"gradient_step"` // 0 lets the optimiser pick
	Draws         int       `mapstructure:"draws"`         // posterior draws when method is sample
	Warmup        int       `mapstructure:"warmup"`        // discarded sampler draws, 0 derives from draws
	StepSize      float64   `mapstructure:"step_size"`     // sampler leapfrog step
	Seed          uint64    `mapstructure:"seed"`
	Concurrent    bool      `mapstructure:"concurrent"` // evaluate finite differences in parallel
	XScaler       string    `mapstructure:"x_scaler"`
	YScaler       string    `mapstructure:"y_scaler"`
	Likelihood    string    `mapstructure:"likelihood"` // gaussian, studentt
	Percentiles   []float64 `mapstructure:"percentiles"`
}

// RegistryConfig bounds the in-memory store of fitted models
type RegistryConfig struct {
	MaxModels int           `mapstructure:"max_models"`
	TTL       time.Duration `mapstructure:"ttl"`
}

// RateLimitConfig throttles the fit endpoint
type RateLimitConfig struct {
	Enabled       bool    `mapstructure:"enabled"`
	FitsPerSecond float64 `mapstructure:"fits_per_second"`
	Burst         int     `mapstructure:"burst"`
}

// AuthConfig represents authentication configuration
type AuthConfig struct {
	Enabled bool     `mapstructure:"enabled"`  // Enable/disable API key authentication
	APIKeys []string `mapstructure:"api_keys"` // List of valid API keys
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`       // debug, info, warn, error
	Format     string `mapstructure:"format"`      // json, console
	OutputPath string `mapstructure:"output_path"` // stdout, stderr, file path
	TimeFormat string `mapstructure:"time_format"` // RFC3339, Unix, Kitchen
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server config: %w", err)
	}

	if err := c.Inference.Validate(); err != nil {
		return fmt.Errorf("inference config: %w", err)
	}

	if err := c.Registry.Validate(); err != nil {
		return fmt.Errorf("registry config: %w", err)
	}

	if err := c.RateLimit.Validate(); err != nil {
		return fmt.Errorf("rate_limit config: %w", err)
	}

	if err := c.Auth.Validate(); err != nil {
		return fmt.Errorf("auth config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

// Validate validates server configuration
func (c *ServerConfig) Validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid http_port: %d", c.HTTPPort)
	}

	if c.BodyLimit < 0 {
		return fmt.Errorf("body_limit cannot be negative")
	}

	return nil
}

// Validate validates inference configuration
func (c *InferenceConfig) Validate() error {
	if c.Method != "map" && c.Method != "sample" {
		return fmt.Errorf("inference.method must be 'map' or 'sample'")
	}

	if c.MaxIterations < 1 {
		return fmt.Errorf("inference.max_iterations must be at least 1")
	}

	if c.Tolerance < 0 || c.GradientStep < 0 {
		return fmt.Errorf("inference.tolerance and inference.gradient_step cannot be negative")
	}

	if c.Warmup < 0 || c.StepSize < 0 {
		return fmt.Errorf("inference.warmup and inference.step_size cannot be negative")
	}

	if c.Method == "sample" && c.Draws < 1 {
		return fmt.Errorf("inference.draws must be at least 1 when sampling")
	}

	validScalers := map[string]bool{
		"identity":    true,
		"minmax":      true,
		"max":         true,
		"standardize": true,
	}

	if !validScalers[c.XScaler] || !validScalers[c.YScaler] {
		return fmt.Errorf("inference.x_scaler and inference.y_scaler must be one of: identity, minmax, max, standardize")
	}

	if c.Likelihood != "gaussian" && c.Likelihood != "studentt" {
		return fmt.Errorf("inference.likelihood must be 'gaussian' or 'studentt'")
	}

	for _, p := range c.Percentiles {
		if p < 0 || p > 100 {
			return fmt.Errorf("inference.percentiles must lie in [0, 100], got %g", p)
		}
	}

	return nil
}

// Validate validates registry configuration
func (c *RegistryConfig) Validate() error {
	if c.MaxModels < 1 {
		return fmt.Errorf("registry.max_models must be at least 1")
	}

	if c.TTL < 0 {
		return fmt.Errorf("registry.ttl cannot be negative")
	}

	return nil
}

// Validate validates rate limit configuration
func (c *RateLimitConfig) Validate() error {
	if !c.Enabled {
		return nil
	}

	if c.FitsPerSecond <= 0 {
		return fmt.Errorf("rate_limit.fits_per_second must be positive")
	}

	if c.Burst < 1 {
		return fmt.Errorf("rate_limit.burst must be at least 1")
	}

	return nil
}

// Validate validates auth configuration
func (c *AuthConfig) Validate() error {
	if c.Enabled && len(c.APIKeys) == 0 {
		return fmt.Errorf("auth.api_keys is required when auth is enabled")
	}

	return nil
}

// Validate validates logging configuration
func (c *LoggingConfig) Validate() error {
	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}

	if !validLevels[c.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}

	validFormats := map[string]bool{
		"json":    true,
		"console": true,
	}

	if !validFormats[c.Format] {
		return fmt.Errorf("logging.format must be 'json' or 'console'")
	}

	return nil
}
