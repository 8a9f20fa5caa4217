package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromEnvDefaults(t *testing.T) {
	cfg, err := LoadFromEnv("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "agent_studio.session_token", cfg.Server.CookieName)
	assert.Equal(t, 168*time.Hour, cfg.Auth.SessionTTL)
	assert.Equal(t, time.Second, cfg.Chat.StubDelay)
	assert.Equal(t, "@every 15m", cfg.Janitor.Schedule)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Empty(t, cfg.Database.DSN)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.Server.AllowedOrigins())
}

func TestLoadFromEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("CHAT_STUB_DELAY", "250ms")
	t.Setenv("ADMIN_USER_IDS", "u1, u2,,")
	t.Setenv("LOG_FORMAT", "json")

	cfg, err := LoadFromEnv("")
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 250*time.Millisecond, cfg.Chat.StubDelay)
	assert.Equal(t, []string{"u1", "u2"}, cfg.Auth.Admins())
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "0.0.0.0:9090", cfg.Server.Addr())
}

func TestLoadFromEnvYAMLOverlay(t *testing.T) {
	t.Setenv("OVERLAY_SECRET", "from-env")
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 7070
auth:
  jwt_secret: ${OVERLAY_SECRET}
chat:
  stub_delay: 2s
`), 0o600))

	cfg, err := LoadFromEnv(path)
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "from-env", cfg.Auth.JWTSecret)
	assert.Equal(t, 2*time.Second, cfg.Chat.StubDelay)
	assert.Equal(t, "agent_studio.session_token", cfg.Server.CookieName)
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"port", map[string]string{"PORT": "70000"}},
		{"driver", map[string]string{"DATABASE_URL": "file:x", "DATABASE_DRIVER": "mysql"}},
		{"ttl", map[string]string{"SESSION_TTL": "-1h"}},
		{"remote auth with postgres", map[string]string{"AUTH_BACKEND_URL": "http://auth:3000", "DATABASE_URL": "postgres://localhost/db"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := LoadFromEnv("")
			assert.Error(t, err)
		})
	}
}

func TestLoadFromEnvMissingFile(t *testing.T) {
	_, err := LoadFromEnv(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
