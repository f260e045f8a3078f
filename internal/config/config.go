// Package config loads runtime settings for the asset loader from an optional
// YAML file (via Viper) with environment variable overrides (DGT_ prefix).
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/spf13/viper"

	"github.com/rfd62794/rpgCore-sub007/internal/cache"
	"github.com/rfd62794/rpgCore-sub007/internal/format"
	"github.com/rfd62794/rpgCore-sub007/internal/logger"
)

// Config holds loader, cache, logging and watch settings. The mapstructure tag
// names the YAML key; the env tag names the DGT_ override.
type Config struct {
	CacheCapacity  int           `mapstructure:"cache_capacity" env:"DGT_CACHE_CAPACITY"`
	MaxBlobSize    int64         `mapstructure:"max_blob_size" env:"DGT_MAX_BLOB_SIZE"`
	StrictChecksum bool          `mapstructure:"strict_checksum" env:"DGT_STRICT_CHECKSUM"`
	LogLevel       string        `mapstructure:"log_level" env:"DGT_LOG_LEVEL"`
	LogFormat      string        `mapstructure:"log_format" env:"DGT_LOG_FORMAT"`
	LogDir         string        `mapstructure:"log_dir" env:"DGT_LOG_DIR"`
	WatchDebounce  time.Duration `mapstructure:"watch_debounce" env:"DGT_WATCH_DEBOUNCE"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		CacheCapacity:  cache.DefaultCapacity,
		MaxBlobSize:    format.DefaultMaxInflateSize,
		StrictChecksum: false,
		LogLevel:       "info",
		LogFormat:      "text",
		WatchDebounce:  250 * time.Millisecond,
	}
}

// Load reads path (if non-empty), applies environment overrides and
// validates the result.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("cache_capacity", d.CacheCapacity)
	v.SetDefault("max_blob_size", d.MaxBlobSize)
	v.SetDefault("strict_checksum", d.StrictChecksum)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("log_format", d.LogFormat)
	v.SetDefault("log_dir", d.LogDir)
	v.SetDefault("watch_debounce", d.WatchDebounce)
}

// Validate rejects settings the loader cannot run with.
func (c *Config) Validate() error {
	if c.CacheCapacity <= 0 {
		return fmt.Errorf("cache_capacity must be positive, got %d", c.CacheCapacity)
	}
	if c.MaxBlobSize <= 0 {
		return fmt.Errorf("max_blob_size must be positive, got %d", c.MaxBlobSize)
	}
	if c.WatchDebounce < 0 {
		return fmt.Errorf("watch_debounce must not be negative, got %s", c.WatchDebounce)
	}
	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("log_format must be text or json, got %q", c.LogFormat)
	}
	return nil
}
