package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/rawbytes"
)

// DefaultConfig is the baseline configuration, overridable by a yaml
// file and LENDEN_* environment variables.
var DefaultConfig = []byte(`
application: "lenden"

logger:
  level: "info"

client:
  server_url: "http://localhost:8080"
  timeout_seconds: 30

sandbox:
  port: "8080"
  database_url: ""
  redis_url: ""
  session_ttl_minutes: 60
  idempotency_ttl_hours: 24
  shutdown_timeout_seconds: 10
  login_per_minute: 5
  admin_name: "Administrator"
  admin_email: "admin@lenden.local"
  admin_phone: "01000000000"
  admin_pin: "12345"
`)

type Config struct {
	Application string  `koanf:"application"`
	Logger      Logger  `koanf:"logger"`
	Client      Client  `koanf:"client"`
	Sandbox     Sandbox `koanf:"sandbox"`
}

type Logger struct {
	Level string `koanf:"level"`
}

// Client configures the API client: the fixed backend origin and the
// transport timeout.
type Client struct {
	ServerURL      string `koanf:"server_url"`
	TimeoutSeconds int    `koanf:"timeout_seconds"`
}

// Timeout returns the transport timeout as a duration.
func (c Client) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Sandbox configures the development backend. Empty database and redis
// URLs select the in-memory stores.
type Sandbox struct {
	Port                   string `koanf:"port"`
	DatabaseURL            string `koanf:"database_url"`
	RedisURL               string `koanf:"redis_url"`
	SessionTTLMinutes      int    `koanf:"session_ttl_minutes"`
	IdempotencyTTLHours    int    `koanf:"idempotency_ttl_hours"`
	ShutdownTimeoutSeconds int    `koanf:"shutdown_timeout_seconds"`
	LoginPerMinute         int    `koanf:"login_per_minute"`
	AdminName              string `koanf:"admin_name"`
	AdminEmail             string `koanf:"admin_email"`
	AdminPhone             string `koanf:"admin_phone"`
	AdminPIN               string `koanf:"admin_pin"`
}

// Address returns the listen address in the format Fiber expects.
func (s Sandbox) Address() string {
	if strings.HasPrefix(s.Port, ":") {
		return s.Port
	}
	return ":" + s.Port
}

// SessionTTL returns how long an idle session cookie stays valid.
func (s Sandbox) SessionTTL() time.Duration {
	return time.Duration(s.SessionTTLMinutes) * time.Minute
}

// IdempotencyTTL returns how long replayed responses are retained.
func (s Sandbox) IdempotencyTTL() time.Duration {
	return time.Duration(s.IdempotencyTTLHours) * time.Hour
}

// ShutdownTimeout bounds graceful shutdown.
func (s Sandbox) ShutdownTimeout() time.Duration {
	return time.Duration(s.ShutdownTimeoutSeconds) * time.Second
}

// Load merges defaults, an optional yaml file and LENDEN_* environment
// variables, then validates the result.
func Load(path string) (Config, error) {
	k := koanf.New(".")
	if err := k.Load(rawbytes.Provider(DefaultConfig), yaml.Parser()); err != nil {
		return Config{}, fmt.Errorf("load defaults: %w", err)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("load %s: %w", path, err)
		}
	}
	// LENDEN_CLIENT_SERVER_URL -> client.server_url
	err := k.Load(env.Provider("LENDEN_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "LENDEN_")), "_", ".", 1)
	}), nil)
	if err != nil {
		return Config{}, fmt.Errorf("load environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects configurations the binaries cannot start with.
func (c Config) Validate() error {
	if c.Application == "" {
		return fmt.Errorf("application cannot be empty")
	}
	if c.Logger.Level == "" {
		return fmt.Errorf("logger.level cannot be empty")
	}
	if c.Client.ServerURL == "" {
		return fmt.Errorf("client.server_url cannot be empty")
	}
	if c.Client.TimeoutSeconds <= 0 {
		return fmt.Errorf("client.timeout_seconds must be positive")
	}
	if c.Sandbox.Port == "" {
		return fmt.Errorf("sandbox.port cannot be empty")
	}
	if c.Sandbox.SessionTTLMinutes <= 0 {
		return fmt.Errorf("sandbox.session_ttl_minutes must be positive")
	}
	if c.Sandbox.LoginPerMinute <= 0 {
		return fmt.Errorf("sandbox.login_per_minute must be positive")
	}
	return nil
}
