// Package middleware provides the HTTP middleware chain of the API server.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/R3E-Network/agent_studio/internal/app/domain/account"
	"github.com/R3E-Network/agent_studio/internal/app/domain/apitoken"
	"github.com/R3E-Network/agent_studio/internal/errors"
	internalhttputil "github.com/R3E-Network/agent_studio/internal/httputil"
	"github.com/R3E-Network/agent_studio/pkg/logger"
)

// Roles assigned to authenticated principals.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Authentication methods recorded on the principal.
const (
	MethodSession  = "session"
	MethodAPIToken = "api_token"
	MethodRemote   = "remote_session"
)

// APIKeyHeader carries raw API tokens for clients that cannot set Authorization.
const APIKeyHeader = "X-API-Key"

// SessionResolver validates session tokens issued by the sessions service.
type SessionResolver interface {
	Resolve(ctx context.Context, token string) (account.Authenticated, error)
}

// TokenAuthenticator validates raw API tokens.
type TokenAuthenticator interface {
	Authenticate(ctx context.Context, raw string) (apitoken.Token, error)
}

// RemoteSessions looks up a session on an external auth backend. A nil result
// means the caller is not signed in.
type RemoteSessions interface {
	GetSession(ctx context.Context, cookies []*http.Cookie) *account.Authenticated
}

// Principal describes who made the request.
type Principal struct {
	UserID    string
	Role      string
	Method    string
	SessionID string
	TokenID   string
}

type principalKey struct{}

// WithPrincipal stores p in ctx together with the logger user and role fields.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	ctx = logger.WithUserID(ctx, p.UserID)
	ctx = logger.WithRole(ctx, p.Role)
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom returns the principal stored in ctx.
func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

// AuthConfig wires the credential backends into AuthMiddleware.
type AuthConfig struct {
	Sessions   SessionResolver
	Tokens     TokenAuthenticator
	Remote     RemoteSessions
	CookieName string
	Admins     []string
	// SkipPaths are matched exactly; SkipPrefixes by prefix.
	SkipPaths    []string
	SkipPrefixes []string
}

// AuthMiddleware authenticates requests by session cookie, bearer token or
// API key.
type AuthMiddleware struct {
	sessions     SessionResolver
	tokens       TokenAuthenticator
	remote       RemoteSessions
	cookieName   string
	admins       map[string]bool
	skipPaths    map[string]bool
	skipPrefixes []string
	logger       *logger.Logger
}

// NewAuthMiddleware creates a new authentication middleware.
func NewAuthMiddleware(cfg AuthConfig, log *logger.Logger) *AuthMiddleware {
	if log == nil {
		log = logger.NewDefault("auth")
	}
	skip := make(map[string]bool, len(cfg.SkipPaths))
	for _, path := range cfg.SkipPaths {
		skip[path] = true
	}
	admins := make(map[string]bool, len(cfg.Admins))
	for _, id := range cfg.Admins {
		admins[id] = true
	}
	return &AuthMiddleware{
		sessions:     cfg.Sessions,
		tokens:       cfg.Tokens,
		remote:       cfg.Remote,
		cookieName:   cfg.CookieName,
		admins:       admins,
		skipPaths:    skip,
		skipPrefixes: cfg.SkipPrefixes,
		logger:       log,
	}
}

// Handler returns the middleware handler.
func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions || m.skipped(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		principal, err := m.authenticate(r)
		if err != nil {
			m.respondError(w, r, err)
			return
		}

		ctx := WithPrincipal(r.Context(), principal)
		m.logger.WithContext(ctx).WithField("auth_method", principal.Method).Debug("Authentication successful")
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *AuthMiddleware) skipped(path string) bool {
	if m.skipPaths[path] {
		return true
	}
	for _, prefix := range m.skipPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

func (m *AuthMiddleware) authenticate(r *http.Request) (Principal, error) {
	ctx := r.Context()

	if key := strings.TrimSpace(r.Header.Get(APIKeyHeader)); key != "" {
		return m.authenticateToken(ctx, key)
	}

	if header := r.Header.Get("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
			return Principal{}, errors.Unauthorized("Invalid Authorization header format")
		}
		raw := strings.TrimSpace(parts[1])
		if strings.HasPrefix(raw, apitoken.Prefix) {
			return m.authenticateToken(ctx, raw)
		}
		return m.authenticateSession(ctx, raw)
	}

	if m.remote != nil {
		auth := m.remote.GetSession(ctx, r.Cookies())
		if auth == nil {
			return Principal{}, errors.Unauthorized("")
		}
		return m.principal(auth.User.ID, MethodRemote, auth.Session.ID, ""), nil
	}

	if m.cookieName != "" {
		if cookie, err := r.Cookie(m.cookieName); err == nil && cookie.Value != "" {
			return m.authenticateSession(ctx, cookie.Value)
		}
	}
	return Principal{}, errors.Unauthorized("")
}

func (m *AuthMiddleware) authenticateSession(ctx context.Context, token string) (Principal, error) {
	if m.sessions == nil {
		return Principal{}, errors.Unauthorized("session authentication is not available")
	}
	auth, err := m.sessions.Resolve(ctx, token)
	if err != nil {
		return Principal{}, err
	}
	return m.principal(auth.User.ID, MethodSession, auth.Session.ID, ""), nil
}

func (m *AuthMiddleware) authenticateToken(ctx context.Context, raw string) (Principal, error) {
	if m.tokens == nil {
		return Principal{}, errors.Unauthorized("api token authentication is not available")
	}
	tok, err := m.tokens.Authenticate(ctx, raw)
	if err != nil {
		return Principal{}, err
	}
	return m.principal(tok.UserID, MethodAPIToken, "", tok.ID), nil
}

func (m *AuthMiddleware) principal(userID, method, sessionID, tokenID string) Principal {
	role := RoleUser
	if m.admins[userID] {
		role = RoleAdmin
	}
	return Principal{UserID: userID, Role: role, Method: method, SessionID: sessionID, TokenID: tokenID}
}

// respondError sends an error response.
func (m *AuthMiddleware) respondError(w http.ResponseWriter, r *http.Request, err error) {
	serviceErr := errors.GetServiceError(err)
	if serviceErr == nil {
		serviceErr = errors.Unauthorized("")
	}

	internalhttputil.WriteErrorResponse(w, r, serviceErr.HTTPStatus, string(serviceErr.Code), serviceErr.Message, serviceErr.Details)

	m.logger.WithContext(r.Context()).WithError(err).WithFields(map[string]interface{}{
		"path":   r.URL.Path,
		"method": r.Method,
		"status": serviceErr.HTTPStatus,
	}).Warn("Authentication failed")
}

// GetUserID extracts user ID from context.
func GetUserID(ctx context.Context) string {
	return logger.GetUserID(ctx)
}

// GetUserRole extracts user role from context.
func GetUserRole(ctx context.Context) string {
	return logger.GetRole(ctx)
}

// RequireAdmin rejects callers without the admin role.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetUserID(r.Context()) == "" {
			internalhttputil.Unauthorized(w, "")
			return
		}
		if GetUserRole(r.Context()) != RoleAdmin {
			err := errors.Forbidden("admin role required")
			internalhttputil.WriteErrorResponse(w, r, err.HTTPStatus, string(err.Code), err.Message, nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}
