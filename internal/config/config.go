// Package config loads the versefinder YAML configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/FocuswithJustin/versefinder/core/errors"
	"github.com/FocuswithJustin/versefinder/internal/cache"
	"github.com/FocuswithJustin/versefinder/internal/logging"
)

// Config holds all application configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Log     LogConfig     `yaml:"log"`
	History HistoryConfig `yaml:"history"`
	Cache   CacheConfig   `yaml:"cache"`

	// Aliases adds spoken or written book names (alias -> book id).
	Aliases map[string]string `yaml:"aliases"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port           int           `yaml:"port"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`

	// RateLimit is requests per minute per client IP (0 = disabled).
	RateLimit      int `yaml:"rate_limit"`
	RateLimitBurst int `yaml:"rate_limit_burst"`

	// MaxMessageSize bounds websocket frames in bytes.
	MaxMessageSize int64 `yaml:"max_message_size"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// HistoryConfig holds search history settings.
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// CacheConfig holds parse cache settings.
type CacheConfig struct {
	MaxSize int           `yaml:"max_size"`
	TTL     time.Duration `yaml:"ttl"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           8080,
			ReadTimeout:    15 * time.Second,
			WriteTimeout:   15 * time.Second,
			RateLimitBurst: 20,
			MaxMessageSize: 4096,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		History: HistoryConfig{
			Enabled: true,
			Path:    "versefinder.db",
		},
		Cache: CacheConfig{
			MaxSize: 1024,
			TTL:     10 * time.Minute,
		},
	}
}

// Load reads config from a YAML file, if path is set and the file exists,
// and then applies VERSEFINDER_* environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.loadFromFile(path); err != nil {
			return nil, err
		}
	}
	cfg.loadFromEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.NewIO("read config", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return errors.NewParse("yaml", path, err.Error())
	}
	return nil
}

func (c *Config) loadFromEnv() {
	if v := os.Getenv("VERSEFINDER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
	if v := os.Getenv("VERSEFINDER_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("VERSEFINDER_LOG_FORMAT"); v != "" {
		c.Log.Format = v
	}
	if v := os.Getenv("VERSEFINDER_HISTORY_PATH"); v != "" {
		c.History.Path = v
	}
}

// Validate checks the configuration for values the service cannot run with.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return invalid("server.port", strconv.Itoa(c.Server.Port), "must be between 1 and 65535")
	}
	if c.Server.ReadTimeout < 0 || c.Server.WriteTimeout < 0 {
		return invalid("server.timeouts", "", "must not be negative")
	}
	if c.Server.RateLimit < 0 || c.Server.RateLimitBurst < 0 {
		return invalid("server.rate_limit", strconv.Itoa(c.Server.RateLimit), "must not be negative")
	}
	if c.Server.MaxMessageSize < 1 {
		return invalid("server.max_message_size", strconv.FormatInt(c.Server.MaxMessageSize, 10), "must be positive")
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return invalid("log.level", c.Log.Level, "must be debug, info, warn or error")
	}
	if _, err := logging.ParseFormat(c.Log.Format); err != nil {
		return invalid("log.format", c.Log.Format, "must be json or text")
	}
	if c.History.Enabled && c.History.Path == "" {
		return invalid("history.path", "", "is required when history is enabled")
	}
	if c.Cache.MaxSize < 0 {
		return invalid("cache.max_size", strconv.Itoa(c.Cache.MaxSize), "must not be negative")
	}
	if c.Cache.TTL < 0 {
		return invalid("cache.ttl", c.Cache.TTL.String(), "must not be negative")
	}
	for alias, id := range c.Aliases {
		if alias == "" || id == "" {
			return invalid("aliases", fmt.Sprintf("%s=%s", alias, id), "alias and book id are required")
		}
	}
	return nil
}

func invalid(field, value, message string) error {
	return &errors.ValidationError{Field: field, Value: value, Message: message}
}

// Logging converts the log section into a logging.Config. Call Validate first.
func (c *Config) Logging() logging.Config {
	level, _ := logging.ParseLevel(c.Log.Level)
	format, _ := logging.ParseFormat(c.Log.Format)
	return logging.Config{
		Level:         level,
		Format:        format,
		File:          c.Log.File,
		MaxSizeMB:     c.Log.MaxSizeMB,
		MaxBackups:    c.Log.MaxBackups,
		MaxAgeDays:    c.Log.MaxAgeDays,
		CompressFiles: c.Log.Compress,
	}
}

// CacheConfig converts the cache section into a cache.Config.
func (c *Config) CacheConfig() cache.Config {
	return cache.Config{MaxSize: c.Cache.MaxSize, TTL: c.Cache.TTL}
}
