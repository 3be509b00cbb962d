// Package config provides runtime configuration for the livechat CLI.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ashureev/livechat/internal/store"
)

// Config holds all runtime configuration.
type Config struct {
	APIBaseURL string
	SocketURL  string // empty = fallback-only
	WidgetID   string
	SellerID   string

	Store StoreConfig

	ConnectTimeout  time.Duration
	DeliveredDelay  time.Duration
	SeenDelay       time.Duration
	AgentReplyDelay time.Duration
	AutoReply       bool
	HTTPTimeout     time.Duration

	Sandbox SandboxConfig

	LogLevel  slog.Level
	LogFormat string // "json" | "text"
}

// StoreConfig selects where the device identity is persisted.
type StoreConfig struct {
	Driver    string
	Path      string
	RedisAddr string
	RedisDB   int
}

// SandboxConfig configures the local backend started by `livechat serve`.
type SandboxConfig struct {
	Port           string
	WidgetConfig   string // optional YAML file
	AllowedOrigins []string
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		APIBaseURL: getEnv("API_BASE_URL", "http://localhost:8080"),
		SocketURL:  getEnv("SOCKET_API_URL", ""),
		WidgetID:   getEnv("WIDGET_ID", "demo-widget"),
		SellerID:   getEnv("SELLER_ID", ""),
		Store: StoreConfig{
			Driver:    strings.ToLower(getEnv("DEVICE_STORE_DRIVER", store.DriverSQLite)),
			Path:      getEnv("DEVICE_STORE_PATH", "./data/livechat.db"),
			RedisAddr: getEnv("REDIS_ADDR", ""),
			RedisDB:   getEnvInt("REDIS_DB", 0),
		},
		ConnectTimeout:  getEnvDuration("CONNECT_TIMEOUT", 5*time.Second),
		DeliveredDelay:  getEnvDuration("DELIVERED_DELAY", 100*time.Millisecond),
		SeenDelay:       getEnvDuration("SEEN_DELAY", time.Second),
		AgentReplyDelay: getEnvDuration("AGENT_REPLY_DELAY", 2*time.Second),
		AutoReply:       getEnvBool("AUTO_REPLY_ENABLED", true),
		HTTPTimeout:     getEnvDuration("HTTP_TIMEOUT", 10*time.Second),
		Sandbox: SandboxConfig{
			Port:           getEnv("SANDBOX_PORT", "8080"),
			WidgetConfig:   getEnv("SANDBOX_WIDGET_CONFIG", ""),
			AllowedOrigins: getEnvList("SANDBOX_ALLOWED_ORIGINS", []string{"*"}),
		},
		LogLevel:  parseLevel(getEnv("LOG_LEVEL", "info")),
		LogFormat: strings.ToLower(getEnv("LOG_FORMAT", "json")),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case store.DriverMemory:
	case store.DriverSQLite:
		if c.Store.Path == "" {
			return errors.New("DEVICE_STORE_PATH cannot be empty for the sqlite driver")
		}
	case store.DriverRedis:
		if c.Store.RedisAddr == "" {
			return errors.New("REDIS_ADDR cannot be empty for the redis driver")
		}
	default:
		return fmt.Errorf("DEVICE_STORE_DRIVER %q is not one of memory, sqlite, redis", c.Store.Driver)
	}
	for name, d := range map[string]time.Duration{
		"CONNECT_TIMEOUT":   c.ConnectTimeout,
		"DELIVERED_DELAY":   c.DeliveredDelay,
		"SEEN_DELAY":        c.SeenDelay,
		"AGENT_REPLY_DELAY": c.AgentReplyDelay,
		"HTTP_TIMEOUT":      c.HTTPTimeout,
	} {
		if d <= 0 {
			return fmt.Errorf("%s must be > 0", name)
		}
	}
	if c.Sandbox.Port == "" {
		return errors.New("SANDBOX_PORT cannot be empty")
	}
	if c.LogFormat != "json" && c.LogFormat != "text" {
		return fmt.Errorf("LOG_FORMAT %q is not one of json, text", c.LogFormat)
	}
	return nil
}

// StoreOptions converts the store section into store.Options.
func (c *Config) StoreOptions() store.Options {
	return store.Options{
		Driver:    c.Store.Driver,
		Path:      c.Store.Path,
		RedisAddr: c.Store.RedisAddr,
		RedisDB:   c.Store.RedisDB,
	}
}

// NewLogger builds the process logger from LOG_LEVEL and LOG_FORMAT.
func (c *Config) NewLogger(w *os.File) *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.LogLevel}
	if c.LogFormat == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

// getEnvDuration accepts Go durations ("750ms") or a bare number of milliseconds.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	value = strings.TrimSpace(value)
	if ms, err := strconv.Atoi(value); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}

func getEnvList(key string, fallback []string) []string {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}

func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo
	}
	return level
}
