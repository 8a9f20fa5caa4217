// Package authclient retrieves sessions from a remote auth backend by
// forwarding the caller's cookies.
package authclient

import (
	"context"
	"net/http"
	"time"

	"github.com/tidwall/gjson"

	"github.com/R3E-Network/agent_studio/internal/app/domain/account"
	"github.com/R3E-Network/agent_studio/internal/httputil"
	"github.com/R3E-Network/agent_studio/pkg/logger"
)

// SessionPath is the auth backend's session endpoint.
const SessionPath = "/api/auth/get-session"

const maxBody = 64 << 10

// Client fetches sessions from an auth backend.
type Client struct {
	http *httputil.ServiceClient
	log  *logger.Logger
}

// New creates a client for baseURL.
func New(baseURL string, timeout time.Duration, log *logger.Logger) *Client {
	if log == nil {
		log = logger.NewDefault("authclient")
	}
	return &Client{
		http: httputil.NewServiceClient(httputil.ServiceClientConfig{
			BaseURL:    baseURL,
			Timeout:    timeout,
			MaxRetries: 1,
			UserAgent:  "agent-studio-authclient",
		}),
		log: log,
	}
}

// GetSession forwards cookies to the backend and maps its answer. Any
// failure, including a null body or a body without a user id, yields nil.
func (c *Client) GetSession(ctx context.Context, cookies []*http.Cookie) *account.Authenticated {
	resp, err := c.http.Get(ctx, SessionPath, httputil.WithCookies(cookies))
	if err != nil {
		c.log.WithError(err).Debug("session fetch failed")
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.log.WithField("status", resp.StatusCode).Debug("session fetch rejected")
		return nil
	}
	body, err := httputil.ReadAllStrict(resp.Body, maxBody)
	if err != nil || !gjson.ValidBytes(body) {
		return nil
	}
	return Parse(body)
}

// Parse maps a get-session payload onto the domain types.
func Parse(body []byte) *account.Authenticated {
	doc := gjson.ParseBytes(body)
	if !doc.IsObject() {
		return nil
	}
	user := doc.Get("user")
	userID := user.Get("id").String()
	if userID == "" {
		return nil
	}
	sess := doc.Get("session")

	return &account.Authenticated{
		Session: account.Session{
			ID:        sess.Get("id").String(),
			UserID:    firstNonEmpty(sess.Get("userId").String(), userID),
			ExpiresAt: parseTime(sess.Get("expiresAt")),
			IPAddress: sess.Get("ipAddress").String(),
			UserAgent: sess.Get("userAgent").String(),
			CreatedAt: parseTime(sess.Get("createdAt")),
			UpdatedAt: parseTime(sess.Get("updatedAt")),
		},
		User: account.User{
			ID:            userID,
			Name:          user.Get("name").String(),
			Email:         user.Get("email").String(),
			EmailVerified: user.Get("emailVerified").Bool(),
			Image:         user.Get("image").String(),
			CreatedAt:     parseTime(user.Get("createdAt")),
			UpdatedAt:     parseTime(user.Get("updatedAt")),
		},
	}
}

func parseTime(v gjson.Result) time.Time {
	switch v.Type {
	case gjson.String:
		if t, err := time.Parse(time.RFC3339Nano, v.String()); err == nil {
			return t.UTC()
		}
	case gjson.Number:
		return time.UnixMilli(v.Int()).UTC()
	}
	return time.Time{}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
