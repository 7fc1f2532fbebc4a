package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Broker   BrokerConfig
	Log      LogConfig
	Database DatabaseConfig
	JWT      JWTConfig
	Admin    AdminConfig
}

type ServerConfig struct {
	Port            string        `env:"PORT"             envDefault:":8080"`
	ReadTimeout     time.Duration `env:"READ_TIMEOUT"     envDefault:"15s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT"    envDefault:"15s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	AllowedOrigins  []string      `env:"ALLOWED_ORIGINS"  envDefault:"*" envSeparator:","`
}

// BrokerConfig tunes the channel broker and its websocket transport.
type BrokerConfig struct {
	DefaultChannels    []string `env:"DEFAULT_CHANNELS"      envDefault:"general,random,tech" envSeparator:","`
	MaxMessageSize     int64    `env:"MAX_MESSAGE_SIZE"      envDefault:"4096"`
	RateLimitPerSecond float64  `env:"RATE_LIMIT_PER_SECOND" envDefault:"10"`
	RateLimitBurst     int      `env:"RATE_LIMIT_BURST"      envDefault:"20"`
	SendBuffer         int      `env:"SEND_BUFFER"           envDefault:"256"`
}

type LogConfig struct {
	Level  string `env:"LOG_LEVEL"  envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"`
}

// DatabaseConfig points at the optional activity journal. An empty URL
// disables it.
type DatabaseConfig struct {
	URL string `env:"DATABASE_URL"`
}

type JWTConfig struct {
	Secret    string        `env:"JWT_SECRET"`
	ExpiresIn time.Duration `env:"JWT_EXPIRES_IN" envDefault:"24h"`
}

// AdminConfig holds the operator credentials guarding introspection.
// PasswordHash is a bcrypt hash.
type AdminConfig struct {
	Username     string `env:"ADMIN_USERNAME"`
	PasswordHash string `env:"ADMIN_PASSWORD_HASH"`
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// OperatorAuthEnabled reports whether introspection requires a token.
func (c *Config) OperatorAuthEnabled() bool {
	return c.JWT.Secret != "" && c.Admin.Username != "" && c.Admin.PasswordHash != ""
}

func (c *Config) Validate() error {
	if c.Broker.MaxMessageSize <= 0 {
		return fmt.Errorf("MAX_MESSAGE_SIZE must be positive, got %d", c.Broker.MaxMessageSize)
	}
	if c.Broker.RateLimitPerSecond <= 0 || c.Broker.RateLimitBurst <= 0 {
		return errors.New("RATE_LIMIT_PER_SECOND and RATE_LIMIT_BURST must be positive")
	}
	if c.Broker.SendBuffer <= 0 {
		return fmt.Errorf("SEND_BUFFER must be positive, got %d", c.Broker.SendBuffer)
	}

	partial := c.JWT.Secret != "" || c.Admin.Username != "" || c.Admin.PasswordHash != ""
	if partial && !c.OperatorAuthEnabled() {
		return errors.New("JWT_SECRET, ADMIN_USERNAME and ADMIN_PASSWORD_HASH must be set together")
	}
	if c.OperatorAuthEnabled() && len(c.JWT.Secret) < 32 {
		return errors.New("JWT_SECRET must be at least 32 bytes")
	}
	return nil
}

func (c *Config) normalize() {
	c.Server.AllowedOrigins = trimAll(c.Server.AllowedOrigins)
	c.Broker.DefaultChannels = trimAll(c.Broker.DefaultChannels)
}

func trimAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
