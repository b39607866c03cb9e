package api

import (
	"time"

	"github.com/FocuswithJustin/versefinder/internal/config"
)

// Config holds server configuration.
type Config struct {
	Port              int
	AllowedOrigins    []string // CORS and websocket origins (empty = allow all)
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	RateLimitRequests int // Requests per minute (0 = disabled)
	RateLimitBurst    int
	MaxMessageSize    int64 // Largest websocket frame accepted
	MaxMessageRate    int   // Websocket messages per second per client
}

// DefaultConfig returns the server defaults.
func DefaultConfig() Config {
	return Config{
		Port:           8080,
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   15 * time.Second,
		RateLimitBurst: 20,
		MaxMessageSize: 4096,
		MaxMessageRate: 10,
	}
}

// ConfigFrom converts the server section of the application config.
func ConfigFrom(sc config.ServerConfig) Config {
	cfg := DefaultConfig()
	cfg.Port = sc.Port
	cfg.AllowedOrigins = sc.AllowedOrigins
	cfg.ReadTimeout = sc.ReadTimeout
	cfg.WriteTimeout = sc.WriteTimeout
	cfg.RateLimitRequests = sc.RateLimit
	if sc.RateLimitBurst > 0 {
		cfg.RateLimitBurst = sc.RateLimitBurst
	}
	if sc.MaxMessageSize > 0 {
		cfg.MaxMessageSize = sc.MaxMessageSize
	}
	return cfg
}
