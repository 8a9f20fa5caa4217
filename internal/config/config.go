// Package config loads runtime configuration from the environment, an optional
// .env file and an optional YAML overlay.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/R3E-Network/agent_studio/pkg/logger"
)

// Config is the complete runtime configuration.
type Config struct {
	Server    ServerConfig         `yaml:"server"`
	Database  DatabaseConfig       `yaml:"database"`
	Auth      AuthConfig           `yaml:"auth"`
	Redis     RedisConfig          `yaml:"redis"`
	NATS      NATSConfig           `yaml:"nats"`
	RateLimit RateLimitConfig      `yaml:"rate_limit"`
	Chat      ChatConfig           `yaml:"chat"`
	Janitor   JanitorConfig        `yaml:"janitor"`
	Logging   logger.LoggingConfig `yaml:"logging"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Host          string        `env:"SERVER_HOST,default=0.0.0.0" yaml:"host"`
	Port          int           `env:"PORT,default=8080" yaml:"port"`
	ReadTimeout   time.Duration `env:"SERVER_READ_TIMEOUT,default=15s" yaml:"read_timeout"`
	WriteTimeout  time.Duration `env:"SERVER_WRITE_TIMEOUT,default=60s" yaml:"write_timeout"`
	CORSOrigins   string        `env:"CORS_ALLOWED_ORIGINS,default=http://localhost:3000" yaml:"cors_origins"`
	CookieName    string        `env:"SESSION_COOKIE_NAME,default=agent_studio.session_token" yaml:"cookie_name"`
	SecureCookies bool          `env:"SECURE_COOKIES,default=false" yaml:"secure_cookies"`
	AuditLogPath  string        `env:"AUDIT_LOG_PATH" yaml:"audit_log_path"`
	TrustProxy    bool          `env:"TRUST_PROXY,default=false" yaml:"trust_proxy"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// AllowedOrigins splits the comma separated CORS origin list.
func (s ServerConfig) AllowedOrigins() []string {
	return splitCSV(s.CORSOrigins)
}

// DatabaseConfig selects and tunes the relational store. An empty DSN selects
// the in-memory stores.
type DatabaseConfig struct {
	Driver          string `env:"DATABASE_DRIVER,default=postgres" yaml:"driver"`
	DSN             string `env:"DATABASE_URL" yaml:"dsn"`
	MaxOpenConns    int    `env:"DATABASE_MAX_OPEN_CONNS,default=20" yaml:"max_open_conns"`
	MaxIdleConns    int    `env:"DATABASE_MAX_IDLE_CONNS,default=5" yaml:"max_idle_conns"`
	ConnMaxLifetime int    `env:"DATABASE_CONN_MAX_LIFETIME,default=300" yaml:"conn_max_lifetime"`
	MigrateOnStart  bool   `env:"DATABASE_MIGRATE_ON_START,default=true" yaml:"migrate_on_start"`
}

// AuthConfig configures sessions and authorization.
type AuthConfig struct {
	JWTSecret    string        `env:"AUTH_SECRET" yaml:"jwt_secret"`
	SessionTTL   time.Duration `env:"SESSION_TTL,default=168h" yaml:"session_ttl"`
	BackendURL   string        `env:"AUTH_BACKEND_URL" yaml:"backend_url"`
	AdminUserIDs string        `env:"ADMIN_USER_IDS" yaml:"admin_user_ids"`
}

// Admins returns the configured admin user ids.
func (a AuthConfig) Admins() []string {
	return splitCSV(a.AdminUserIDs)
}

// RedisConfig enables the session cache when Addr is set.
type RedisConfig struct {
	Addr     string        `env:"REDIS_ADDR" yaml:"addr"`
	Password string        `env:"REDIS_PASSWORD" yaml:"password"`
	DB       int           `env:"REDIS_DB,default=0" yaml:"db"`
	CacheTTL time.Duration `env:"REDIS_SESSION_CACHE_TTL,default=5m" yaml:"cache_ttl"`
}

// NATSConfig enables event publishing when URL is set.
type NATSConfig struct {
	URL           string `env:"NATS_URL" yaml:"url"`
	SubjectPrefix string `env:"NATS_SUBJECT_PREFIX,default=agent_studio" yaml:"subject_prefix"`
}

// RateLimitConfig throttles requests per user or remote address.
type RateLimitConfig struct {
	RequestsPerSecond int `env:"RATE_LIMIT_RPS,default=20" yaml:"requests_per_second"`
	Burst             int `env:"RATE_LIMIT_BURST,default=40" yaml:"burst"`
}

// ChatConfig configures the chat stream endpoint.
type ChatConfig struct {
	StubDelay time.Duration `env:"CHAT_STUB_DELAY,default=1s" yaml:"stub_delay"`
}

// JanitorConfig schedules periodic cleanup.
type JanitorConfig struct {
	Schedule string `env:"JANITOR_SCHEDULE,default=@every 15m" yaml:"schedule"`
}

type envLogging struct {
	Level      string `env:"LOG_LEVEL,default=info"`
	Format     string `env:"LOG_FORMAT,default=text"`
	Output     string `env:"LOG_OUTPUT,default=stdout"`
	FilePrefix string `env:"LOG_FILE_PREFIX"`
}

// Load reads .env (when present), decodes the environment and applies the
// YAML file named by CONFIG_FILE on top.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return LoadFromEnv(os.Getenv("CONFIG_FILE"))
}

// LoadFromEnv decodes the process environment and applies the optional YAML
// overlay at path.
func LoadFromEnv(path string) (*Config, error) {
	cfg := &Config{}
	if err := envdecode.Decode(cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, fmt.Errorf("decode environment: %w", err)
	}

	var logCfg envLogging
	if err := envdecode.Decode(&logCfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, fmt.Errorf("decode logging environment: %w", err)
	}
	cfg.Logging = logger.LoggingConfig(logCfg)

	if strings.TrimSpace(path) != "" {
		if err := applyFile(cfg, path); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server port %d out of range", c.Server.Port)
	}
	if c.Server.CookieName == "" {
		return fmt.Errorf("session cookie name is required")
	}
	if c.Auth.SessionTTL <= 0 {
		return fmt.Errorf("session ttl must be positive")
	}
	if c.Database.DSN != "" && c.Database.Driver != "postgres" {
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	// Users of an external auth backend have no local users row, and every
	// owned Postgres table references users(id).
	if c.Auth.BackendURL != "" && c.Database.DSN != "" {
		return fmt.Errorf("AUTH_BACKEND_URL requires the in-memory stores; unset DATABASE_URL")
	}
	if c.RateLimit.RequestsPerSecond < 0 || c.RateLimit.Burst < 0 {
		return fmt.Errorf("rate limit values must not be negative")
	}
	if c.Chat.StubDelay < 0 {
		return fmt.Errorf("chat stub delay must not be negative")
	}
	return nil
}

func splitCSV(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
