package runtime

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/R3E-Network/agent_studio/internal/config"
	"github.com/R3E-Network/agent_studio/pkg/logger"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Server: config.ServerConfig{
			Host:         "127.0.0.1",
			Port:         0,
			ReadTimeout:  time.Second,
			WriteTimeout: 5 * time.Second,
			CORSOrigins:  "http://localhost:3000",
			CookieName:   "agent_studio.session_token",
			AuditLogPath: filepath.Join(t.TempDir(), "audit.jsonl"),
		},
		Auth:      config.AuthConfig{JWTSecret: "secret", SessionTTL: time.Hour},
		RateLimit: config.RateLimitConfig{RequestsPerSecond: 100, Burst: 100},
		Janitor:   config.JanitorConfig{Schedule: "@every 1h"},
	}
}

func TestNewServesHealthAndSeededTools(t *testing.T) {
	a, err := New(testConfig(t), logger.NewDiscard())
	require.NoError(t, err)
	t.Cleanup(func() { a.closeResources() })

	rec := httptest.NewRecorder()
	a.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	a.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	tools, err := a.app.Tools.List(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, tools)
}

func TestRunStopsOnCancel(t *testing.T) {
	a, err := New(testConfig(t), logger.NewDiscard())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
}

func TestRunReleasesResourcesWhenStartFails(t *testing.T) {
	cfg := testConfig(t)
	cfg.NATS.URL = "nats://127.0.0.1:1"
	a, err := New(cfg, logger.NewDiscard())
	require.NoError(t, err)
	require.NotNil(t, a.audit)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = a.Run(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "start services")
	assert.Nil(t, a.audit)
}

func TestOpenDatabaseRequiresConfiguration(t *testing.T) {
	_, err := OpenDatabase(config.DatabaseConfig{})
	assert.Error(t, err)

	_, err = OpenDatabase(config.DatabaseConfig{Driver: "postgres"})
	assert.Error(t, err)
}
