package authclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/R3E-Network/agent_studio/pkg/logger"
)

const sessionBody = `{
  "session": {"id": "s1", "userId": "u1", "expiresAt": "2030-01-02T03:04:05.000Z", "ipAddress": "10.0.0.1", "userAgent": "ua"},
  "user": {"id": "u1", "name": "Ada", "email": "ada@example.com", "emailVerified": true, "image": null, "createdAt": "2024-01-01T00:00:00Z"}
}`

func TestGetSessionForwardsCookiesAndMaps(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, SessionPath, r.URL.Path)
		c, err := r.Cookie("agent_studio.session_token")
		if assert.NoError(t, err) {
			assert.Equal(t, "tok", c.Value)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(sessionBody))
	}))
	defer server.Close()

	client := New(server.URL, time.Second, logger.NewDiscard())
	got := client.GetSession(context.Background(), []*http.Cookie{{Name: "agent_studio.session_token", Value: "tok"}})
	require.NotNil(t, got)
	assert.Equal(t, "s1", got.Session.ID)
	assert.Equal(t, "u1", got.User.ID)
	assert.Equal(t, "ada@example.com", got.User.Email)
	assert.True(t, got.User.EmailVerified)
	assert.Empty(t, got.User.Image)
	assert.Equal(t, time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC), got.Session.ExpiresAt)
}

func TestGetSessionReturnsNilOnFailure(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"unauthorized": func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusUnauthorized) },
		"null body":    func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("null")) },
		"invalid json": func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("{not json")) },
		"no user id": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"session":{"id":"s"},"user":{}}`))
		},
	}
	for name, handler := range cases {
		t.Run(name, func(t *testing.T) {
			server := httptest.NewServer(handler)
			defer server.Close()
			client := New(server.URL, time.Second, logger.NewDiscard())
			assert.Nil(t, client.GetSession(context.Background(), nil))
		})
	}
}

func TestGetSessionNetworkFailure(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	client := New(url, 200*time.Millisecond, logger.NewDiscard())
	assert.Nil(t, client.GetSession(context.Background(), nil))
}

func TestParseNumericTimestamps(t *testing.T) {
	got := Parse([]byte(`{"session":{"expiresAt":1700000000000},"user":{"id":"u"}}`))
	require.NotNil(t, got)
	assert.Equal(t, int64(1700000000), got.Session.ExpiresAt.Unix())
	assert.Equal(t, "u", got.Session.UserID)
}
