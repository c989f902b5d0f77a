// Package config loads service configuration from an optional YAML file,
// a .env file and COT_* environment variables, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config represents the complete service configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Data     DataConfig     `mapstructure:"data"`
	Feedback FeedbackConfig `mapstructure:"feedback"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ServerConfig holds HTTP listener configuration.
type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DataConfig points at the market collection loaded at startup.
type DataConfig struct {
	Path string `mapstructure:"path"`
}

// FeedbackConfig selects and tunes the remote feedback store.
type FeedbackConfig struct {
	Backend         string        `mapstructure:"backend"` // memory, postgres, redis
	DatabaseURL     string        `mapstructure:"database_url"`
	RedisURL        string        `mapstructure:"redis_url"`
	Stream          string        `mapstructure:"stream"`
	Timeout         time.Duration `mapstructure:"timeout"`
	BreakerFailures uint32        `mapstructure:"breaker_failures"`
	BreakerTimeout  time.Duration `mapstructure:"breaker_timeout"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration. envFile and path may be empty; a missing .env
// or config file is not an error, a malformed one is.
func Load(path, envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("COT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			if _, statErr := os.Stat(path); !errors.Is(statErr, fs.ErrNotExist) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
			slog.Debug("config file not found, using defaults and environment", "path", path)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.Feedback.Backend = strings.ToLower(cfg.Feedback.Backend)

	return &cfg, nil
}

// setDefaults configures default values for all configuration options.
// Every key needs a default so AutomaticEnv can override it.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.read_timeout", "10s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("server.request_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "5s")

	v.SetDefault("data.path", "./data/mock_algo_upload.json")

	v.SetDefault("feedback.backend", "memory")
	v.SetDefault("feedback.database_url", "")
	v.SetDefault("feedback.redis_url", "")
	v.SetDefault("feedback.stream", "cot:feedback")
	v.SetDefault("feedback.timeout", "10s")
	v.SetDefault("feedback.breaker_failures", 3)
	v.SetDefault("feedback.breaker_timeout", "30s")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// Validate checks that all configuration values are valid.
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server.port is required")
	}
	if c.Server.RequestTimeout <= 0 {
		return fmt.Errorf("server.request_timeout must be positive")
	}
	if c.Data.Path == "" {
		return fmt.Errorf("data.path is required")
	}

	switch c.Feedback.Backend {
	case "memory":
	case "postgres":
		if c.Feedback.DatabaseURL == "" {
			return fmt.Errorf("feedback.database_url is required for the postgres backend")
		}
	case "redis":
		if c.Feedback.RedisURL == "" {
			return fmt.Errorf("feedback.redis_url is required for the redis backend")
		}
	default:
		return fmt.Errorf("feedback.backend must be one of: memory, postgres, redis")
	}
	if c.Feedback.Timeout <= 0 || c.Feedback.Timeout > 2*time.Minute {
		return fmt.Errorf("feedback.timeout must be between 0 and 2m")
	}
	if c.Feedback.BreakerFailures < 1 {
		return fmt.Errorf("feedback.breaker_failures must be at least 1")
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, text")
	}

	return nil
}

// NewLogger builds the process logger from the logging section.
func (c LoggingConfig) NewLogger() *slog.Logger {
	var level slog.Level
	switch c.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if c.Format == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}
