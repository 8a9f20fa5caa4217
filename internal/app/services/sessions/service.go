package sessions

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/R3E-Network/agent_studio/internal/app/domain/account"
	"github.com/R3E-Network/agent_studio/internal/app/metrics"
	"github.com/R3E-Network/agent_studio/internal/app/storage"
	svcerrors "github.com/R3E-Network/agent_studio/internal/errors"
	"github.com/R3E-Network/agent_studio/pkg/logger"
)

const issuer = "agent-studio"

// Claims are carried by session tokens.
type Claims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// Service issues and resolves sign-in sessions.
type Service struct {
	sessions storage.SessionStore
	users    storage.UserStore
	secret   []byte
	ttl      time.Duration
	cache    Cache
	cacheTTL time.Duration
	now      func() time.Time
	log      *logger.Logger
}

// New constructs a session service. An empty secret generates a random
// per-process key, which invalidates sessions on restart.
func New(sessions storage.SessionStore, users storage.UserStore, secret string, ttl time.Duration, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("sessions")
	}
	key := []byte(secret)
	if len(key) == 0 {
		log.Warn("AUTH_SECRET not set; using an ephemeral signing key")
		key = []byte(uuid.NewString() + uuid.NewString())
	}
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &Service{
		sessions: sessions,
		users:    users,
		secret:   key,
		ttl:      ttl,
		now:      func() time.Time { return time.Now().UTC() },
		log:      log,
	}
}

// WithCache enables cache-aside session lookups.
func (s *Service) WithCache(cache Cache, ttl time.Duration) *Service {
	s.cache = cache
	s.cacheTTL = ttl
	return s
}

// WithClock replaces the time source.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// TTL is the lifetime of new sessions.
func (s *Service) TTL() time.Duration { return s.ttl }

// HashToken returns the hex sha256 of a bearer token.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// Create signs a token for userID and persists its session.
func (s *Service) Create(ctx context.Context, userID, ip, userAgent string) (string, account.Session, error) {
	now := s.now()
	sessionID := uuid.NewString()
	claims := &Claims{
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			ID:        uuid.NewString(),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", account.Session{}, svcerrors.Internal("sign session", err)
	}

	sess, err := s.sessions.CreateSession(ctx, account.Session{
		ID:        sessionID,
		UserID:    userID,
		TokenHash: HashToken(token),
		ExpiresAt: now.Add(s.ttl),
		IPAddress: ip,
		UserAgent: userAgent,
	})
	if err != nil {
		return "", account.Session{}, svcerrors.Internal("create session", err)
	}
	s.log.WithField("user_id", userID).WithField("session_id", sess.ID).Info("session created")
	metrics.RecordSessionEvent("created", 1)
	return token, sess, nil
}

func (s *Service) parse(token string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithIssuer(issuer), jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, err
	}
	return claims, nil
}

// Resolve validates token and returns the live session with its user.
func (s *Service) Resolve(ctx context.Context, token string) (account.Authenticated, error) {
	if token == "" {
		return account.Authenticated{}, svcerrors.Unauthorized("missing session")
	}
	claims, err := s.parse(token)
	if err != nil {
		return account.Authenticated{}, svcerrors.InvalidToken(err)
	}

	hash := HashToken(token)
	if s.cache != nil {
		if cached, ok := s.cache.Get(ctx, hash); ok && !cached.Session.Expired(s.now()) {
			return cached, nil
		}
	}

	sess, err := s.sessions.GetSessionByTokenHash(ctx, hash)
	if errors.Is(err, storage.ErrNotFound) {
		return account.Authenticated{}, svcerrors.Unauthorized("session not found")
	}
	if err != nil {
		return account.Authenticated{}, svcerrors.Internal("load session", err)
	}
	if sess.Expired(s.now()) {
		return account.Authenticated{}, svcerrors.Unauthorized("session expired")
	}
	if sess.UserID != claims.Subject {
		return account.Authenticated{}, svcerrors.InvalidToken(fmt.Errorf("subject mismatch"))
	}

	user, err := s.users.GetUser(ctx, sess.UserID)
	if errors.Is(err, storage.ErrNotFound) {
		return account.Authenticated{}, svcerrors.Unauthorized("user no longer exists")
	}
	if err != nil {
		return account.Authenticated{}, svcerrors.Internal("load user", err)
	}

	auth := account.Authenticated{Session: sess, User: user}
	if s.cache != nil {
		ttl := s.cacheTTL
		if remaining := sess.ExpiresAt.Sub(s.now()); remaining < ttl {
			ttl = remaining
		}
		s.cache.Set(ctx, hash, auth, ttl)
	}
	return auth, nil
}

// Revoke deletes the session behind token. Unknown tokens are ignored.
func (s *Service) Revoke(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	hash := HashToken(token)
	if s.cache != nil {
		s.cache.Delete(ctx, hash)
	}
	err := s.sessions.DeleteSessionByTokenHash(ctx, hash)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		return svcerrors.Internal("delete session", err)
	}
	metrics.RecordSessionEvent("revoked", 1)
	return nil
}

// PurgeExpired removes sessions that expired at or before now.
func (s *Service) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	removed, err := s.sessions.DeleteExpiredSessions(ctx, now)
	if err != nil {
		return 0, err
	}
	metrics.RecordSessionEvent("purged", removed)
	if removed > 0 {
		s.log.WithField("removed", removed).Info("expired sessions purged")
	}
	return removed, nil
}
