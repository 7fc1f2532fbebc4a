package config

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Port)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, []string{"general", "random", "tech"}, cfg.Broker.DefaultChannels)
	assert.Equal(t, int64(4096), cfg.Broker.MaxMessageSize)
	assert.Equal(t, 20, cfg.Broker.RateLimitBurst)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Empty(t, cfg.Database.URL)
	assert.False(t, cfg.OperatorAuthEnabled())
}

func TestLoad_FromEnvironment(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("PORT", ":9090")
	t.Setenv("DEFAULT_CHANNELS", " lobby , ,dev ")
	t.Setenv("ALLOWED_ORIGINS", "http://localhost:5173, https://chat.example.com")
	t.Setenv("RATE_LIMIT_PER_SECOND", "2.5")
	t.Setenv("READ_TIMEOUT", "3s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Port)
	assert.Equal(t, []string{"lobby", "dev"}, cfg.Broker.DefaultChannels)
	assert.Equal(t, []string{"http://localhost:5173", "https://chat.example.com"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, 2.5, cfg.Broker.RateLimitPerSecond)
	assert.Equal(t, 3*time.Second, cfg.Server.ReadTimeout)
}

func TestLoad_InvalidDuration(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("WRITE_TIMEOUT", "soon")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse env")
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Broker: BrokerConfig{MaxMessageSize: 1024, RateLimitPerSecond: 1, RateLimitBurst: 1, SendBuffer: 8},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{
			name:    "zero message size",
			mutate:  func(c *Config) { c.Broker.MaxMessageSize = 0 },
			wantErr: "MAX_MESSAGE_SIZE",
		},
		{
			name:    "zero burst",
			mutate:  func(c *Config) { c.Broker.RateLimitBurst = 0 },
			wantErr: "RATE_LIMIT",
		},
		{
			name:    "zero send buffer",
			mutate:  func(c *Config) { c.Broker.SendBuffer = 0 },
			wantErr: "SEND_BUFFER",
		},
		{
			name:    "partial operator auth",
			mutate:  func(c *Config) { c.Admin.Username = "ops" },
			wantErr: "must be set together",
		},
		{
			name: "short secret",
			mutate: func(c *Config) {
				c.JWT.Secret = "short"
				c.Admin.Username = "ops"
				c.Admin.PasswordHash = "$2a$10$hash"
			},
			wantErr: "at least 32 bytes",
		},
		{
			name: "full operator auth",
			mutate: func(c *Config) {
				c.JWT.Secret = strings.Repeat("s", 32)
				c.Admin.Username = "ops"
				c.Admin.PasswordHash = "$2a$10$hash"
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

// chdir mirrors testing.T.Chdir (Go 1.24+) for older toolchains.
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}
