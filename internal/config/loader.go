package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. DECOMPOSE_SERVER_HTTP_PORT
const EnvPrefix = "DECOMPOSE"

// Load loads configuration from file
func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/decompose")
	}

	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return parseConfig(v)
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	return parseConfig(v)
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	d := DefaultConfig()

	// Server defaults
	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.http_port", d.Server.HTTPPort)
	v.SetDefault("server.body_limit", d.Server.BodyLimit)
	v.SetDefault("server.read_timeout", d.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", d.Server.WriteTimeout)

	// Inference defaults
	v.SetDefault("inference.method", d.Inference.Method)
	v.SetDefault("inference.max_iterations", d.Inference.MaxIterations)
	v.SetDefault("inference.tolerance", d.Inference.Tolerance)
	v.SetDefault("inference.gradient_step", d.Inference.GradientStep)
	v.SetDefault("inference.draws", d.Inference.Draws)
	v.SetDefault("inference.warmup", d.Inference.Warmup)
	v.SetDefault("inference.step_size", d.Inference.StepSize)
	v.SetDefault("inference.seed", d.Inference.Seed)
	v.SetDefault("inference.concurrent", d.Inference.Concurrent)
	v.SetDefault("inference.x_scaler", d.Inference.XScaler)
	v.SetDefault("inference.y_scaler", d.Inference.YScaler)
	v.SetDefault("inference.likelihood", d.Inference.Likelihood)
	v.SetDefault("inference.percentiles", d.Inference.Percentiles)

	// Registry defaults
	v.SetDefault("registry.max_models", d.Registry.MaxModels)
	v.SetDefault("registry.ttl", d.Registry.TTL)

	// Rate limit defaults
	v.SetDefault("rate_limit.enabled", d.RateLimit.Enabled)
	v.SetDefault("rate_limit.fits_per_second", d.RateLimit.FitsPerSecond)
	v.SetDefault("rate_limit.burst", d.RateLimit.Burst)

	// Auth defaults
	v.SetDefault("auth.enabled", d.Auth.Enabled)
	v.SetDefault("auth.api_keys", d.Auth.APIKeys)

	// Logging defaults
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.output_path", d.Logging.OutputPath)
	v.SetDefault("logging.time_format", d.Logging.TimeFormat)
}

// parseConfig parses viper config into Config struct
func parseConfig(v *viper.Viper) (*Config, error) {
	var cfg Config

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// LoadOrDefault loads configuration from file or returns default config
func LoadOrDefault(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		return DefaultConfig()
	}
	return cfg
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			HTTPPort:     5560,
			BodyLimit:    32 * 1024 * 1024,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 5 * time.Minute,
		},
		Inference: InferenceConfig{
			Method:        "map",
			MaxIterations: 1000,
			Tolerance:     1e-10,
			Draws:         500,
			StepSize:      0.2,
			Seed:          1,
			XScaler:       "minmax",
			YScaler:       "standardize",
			Likelihood:    "gaussian",
			Percentiles:   []float64{5, 95},
		},
		Registry: RegistryConfig{
			MaxModels: 128,
			TTL:       time.Hour,
		},
		RateLimit: RateLimitConfig{
			Enabled:       true,
			FitsPerSecond: 2,
			Burst:         4,
		},
		Auth: AuthConfig{
			Enabled: false,
			APIKeys: []string{},
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "json",
			OutputPath: "stderr",
			TimeFormat: "RFC3339",
		},
	}
}
