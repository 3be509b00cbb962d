package config

import (
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{
		"API_BASE_URL", "SOCKET_API_URL", "DEVICE_STORE_DRIVER", "DEVICE_STORE_PATH",
		"CONNECT_TIMEOUT", "AUTO_REPLY_ENABLED", "LOG_LEVEL", "LOG_FORMAT", "SANDBOX_ALLOWED_ORIGINS",
	} {
		t.Setenv(key, "")
	}
	// t.Setenv cannot unset; empty values exercise the explicit-override path instead.
	t.Setenv("DEVICE_STORE_DRIVER", "sqlite")
	t.Setenv("DEVICE_STORE_PATH", "./data/livechat.db")
	t.Setenv("CONNECT_TIMEOUT", "5s")
	t.Setenv("AUTO_REPLY_ENABLED", "maybe")
	t.Setenv("LOG_LEVEL", "verbose")
	t.Setenv("LOG_FORMAT", "json")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.SocketURL != "" {
		t.Errorf("expected fallback-only by default, got %q", cfg.SocketURL)
	}
	if cfg.ConnectTimeout != 5*time.Second {
		t.Errorf("expected 5s connect timeout, got %s", cfg.ConnectTimeout)
	}
	if !cfg.AutoReply {
		t.Error("expected unparsable bool to keep the default")
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Errorf("expected info level fallback, got %s", cfg.LogLevel)
	}
	if len(cfg.Sandbox.AllowedOrigins) != 1 || cfg.Sandbox.AllowedOrigins[0] != "*" {
		t.Errorf("expected wildcard origins, got %v", cfg.Sandbox.AllowedOrigins)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("SOCKET_API_URL", "wss://chat.example.com")
	t.Setenv("DEVICE_STORE_DRIVER", "MEMORY")
	t.Setenv("SEEN_DELAY", "250")
	t.Setenv("AGENT_REPLY_DELAY", "1.5s")
	t.Setenv("AUTO_REPLY_ENABLED", "off")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("SANDBOX_ALLOWED_ORIGINS", "https://a.example, https://b.example ,")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Store.Driver != "memory" {
		t.Errorf("expected memory driver, got %q", cfg.Store.Driver)
	}
	if cfg.SeenDelay != 250*time.Millisecond {
		t.Errorf("expected bare number as milliseconds, got %s", cfg.SeenDelay)
	}
	if cfg.AgentReplyDelay != 1500*time.Millisecond {
		t.Errorf("expected 1.5s, got %s", cfg.AgentReplyDelay)
	}
	if cfg.AutoReply {
		t.Error("expected auto reply disabled")
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Errorf("expected debug level, got %s", cfg.LogLevel)
	}
	if got := strings.Join(cfg.Sandbox.AllowedOrigins, "|"); got != "https://a.example|https://b.example" {
		t.Errorf("unexpected origins %q", got)
	}
	if opts := cfg.StoreOptions(); opts.Driver != "memory" {
		t.Errorf("unexpected store options %+v", opts)
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Store:           StoreConfig{Driver: "sqlite", Path: "x.db"},
			ConnectTimeout:  time.Second,
			DeliveredDelay:  time.Millisecond,
			SeenDelay:       time.Second,
			AgentReplyDelay: time.Second,
			HTTPTimeout:     time.Second,
			Sandbox:         SandboxConfig{Port: "8080"},
			LogFormat:       "json",
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"empty sqlite path", func(c *Config) { c.Store.Path = "" }, "DEVICE_STORE_PATH"},
		{"redis without addr", func(c *Config) { c.Store.Driver = "redis" }, "REDIS_ADDR"},
		{"unknown driver", func(c *Config) { c.Store.Driver = "etcd" }, "DEVICE_STORE_DRIVER"},
		{"zero timeout", func(c *Config) { c.ConnectTimeout = 0 }, "CONNECT_TIMEOUT"},
		{"negative delay", func(c *Config) { c.SeenDelay = -time.Second }, "SEEN_DELAY"},
		{"empty port", func(c *Config) { c.Sandbox.Port = "" }, "SANDBOX_PORT"},
		{"bad log format", func(c *Config) { c.LogFormat = "xml" }, "LOG_FORMAT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("expected valid config, got %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error mentioning %s, got %v", tt.wantErr, err)
			}
		})
	}
}
