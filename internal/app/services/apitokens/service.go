package apitokens

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/R3E-Network/agent_studio/internal/app/domain/apitoken"
	"github.com/R3E-Network/agent_studio/internal/app/events"
	"github.com/R3E-Network/agent_studio/internal/app/metrics"
	"github.com/R3E-Network/agent_studio/internal/app/storage"
	svcerrors "github.com/R3E-Network/agent_studio/internal/errors"
	"github.com/R3E-Network/agent_studio/pkg/logger"
)

const (
	secretBytes   = 32
	displayLength = 8
	maxNameLength = 100
)

// Service issues and verifies long-lived API tokens.
type Service struct {
	store     storage.APITokenStore
	publisher events.Publisher
	now       func() time.Time
	log       *logger.Logger
}

// New constructs an API token service.
func New(store storage.APITokenStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("apitokens")
	}
	return &Service{
		store:     store,
		publisher: events.Noop{},
		now:       func() time.Time { return time.Now().UTC() },
		log:       log,
	}
}

// AttachPublisher emits issue and revoke events.
func (s *Service) AttachPublisher(pub events.Publisher) {
	if pub != nil {
		s.publisher = pub
	}
}

// WithClock replaces the time source.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// IsToken reports whether raw looks like an API token rather than a JWT.
func IsToken(raw string) bool {
	return strings.HasPrefix(raw, apitoken.Prefix)
}

// Hash returns the stored form of a raw token.
func Hash(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

func generate() (string, error) {
	buf := make([]byte, secretBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return apitoken.Prefix + hex.EncodeToString(buf), nil
}

// Create issues a token. The raw secret is only returned here. A nil
// expiresIn never expires.
func (s *Service) Create(ctx context.Context, userID, name string, expiresIn *time.Duration) (apitoken.Issued, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return apitoken.Issued{}, svcerrors.Validation("name", "name is required")
	}
	if len(name) > maxNameLength {
		return apitoken.Issued{}, svcerrors.Validation("name", "name must be at most 100 characters")
	}
	if expiresIn != nil && *expiresIn <= 0 {
		return apitoken.Issued{}, svcerrors.Validation("expiresInDays", "expiry must be positive")
	}

	raw, err := generate()
	if err != nil {
		return apitoken.Issued{}, svcerrors.Internal("generate token", err)
	}
	now := s.now()
	tok := apitoken.Token{
		UserID:    userID,
		Name:      name,
		Prefix:    raw[:len(apitoken.Prefix)+displayLength],
		TokenHash: Hash(raw),
		CreatedAt: now,
	}
	if expiresIn != nil {
		exp := now.Add(*expiresIn)
		tok.ExpiresAt = &exp
	}

	created, err := s.store.CreateAPIToken(ctx, tok)
	if err != nil {
		return apitoken.Issued{}, svcerrors.Internal("create api token", err)
	}
	s.log.WithField("token_id", created.ID).WithField("user_id", userID).Info("api token issued")
	metrics.RecordTokenEvent("issued")
	events.Emit(ctx, s.publisher, s.log, events.TokenIssued, created)
	return apitoken.Issued{Secret: raw, Token: created}, nil
}

// List returns the user's non-revoked tokens, newest first.
func (s *Service) List(ctx context.Context, userID string) ([]apitoken.Token, error) {
	items, err := s.store.ListAPITokens(ctx, userID)
	if err != nil {
		return nil, svcerrors.Internal("list api tokens", err)
	}
	if items == nil {
		items = []apitoken.Token{}
	}
	return items, nil
}

// Revoke disables a token. Missing, foreign and already revoked tokens are
// all reported as not found.
func (s *Service) Revoke(ctx context.Context, userID, id string) error {
	tok, err := s.store.GetAPIToken(ctx, id)
	if errors.Is(err, storage.ErrNotFound) || (err == nil && (tok.UserID != userID || tok.RevokedAt != nil)) {
		return svcerrors.NotFound("api token", id)
	}
	if err != nil {
		return svcerrors.Internal("load api token", err)
	}
	err = s.store.RevokeAPIToken(ctx, id, s.now())
	if errors.Is(err, storage.ErrNotFound) {
		return svcerrors.NotFound("api token", id)
	}
	if err != nil {
		return svcerrors.Internal("revoke api token", err)
	}
	s.log.WithField("token_id", id).WithField("user_id", userID).Info("api token revoked")
	metrics.RecordTokenEvent("revoked")
	events.Emit(ctx, s.publisher, s.log, events.TokenRevoked, map[string]string{"id": id, "userId": userID})
	return nil
}

// Authenticate resolves a raw token to its owner and records its use.
func (s *Service) Authenticate(ctx context.Context, raw string) (apitoken.Token, error) {
	if !IsToken(raw) {
		return apitoken.Token{}, svcerrors.Unauthorized("invalid api token")
	}
	tok, err := s.store.GetAPITokenByHash(ctx, Hash(raw))
	if errors.Is(err, storage.ErrNotFound) {
		return apitoken.Token{}, svcerrors.Unauthorized("invalid api token")
	}
	if err != nil {
		return apitoken.Token{}, svcerrors.Internal("load api token", err)
	}
	now := s.now()
	if !tok.Active(now) {
		metrics.RecordTokenEvent("rejected")
		return apitoken.Token{}, svcerrors.Unauthorized("api token revoked or expired")
	}
	if err := s.store.TouchAPIToken(ctx, tok.ID, now); err != nil {
		s.log.WithError(err).WithField("token_id", tok.ID).Warn("record api token use failed")
	} else {
		tok.LastUsedAt = &now
	}
	return tok, nil
}
