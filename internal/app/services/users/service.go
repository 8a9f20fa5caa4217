package users

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/R3E-Network/agent_studio/internal/app/domain/account"
	"github.com/R3E-Network/agent_studio/internal/app/storage"
	svcerrors "github.com/R3E-Network/agent_studio/internal/errors"
	"github.com/R3E-Network/agent_studio/pkg/logger"
)

// MinPasswordLength bounds credential passwords from below.
const MinPasswordLength = 8

// bcrypt rejects longer inputs.
const maxPasswordLength = 72

const invalidCredentials = "invalid email or password"

// Service manages users and their credential accounts.
type Service struct {
	store storage.UserStore
	cost  int
	log   *logger.Logger
}

// New constructs a user service.
func New(store storage.UserStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("users")
	}
	return &Service{store: store, cost: bcrypt.DefaultCost, log: log}
}

// WithCost overrides the bcrypt cost. Tests use bcrypt.MinCost.
func (s *Service) WithCost(cost int) *Service {
	s.cost = cost
	return s
}

// NormalizeEmail trims and lower-cases an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// SignUp creates a user together with its credential account.
func (s *Service) SignUp(ctx context.Context, name, email, password string) (account.User, error) {
	name = strings.TrimSpace(name)
	email = NormalizeEmail(email)

	if name == "" {
		return account.User{}, svcerrors.Validation("name", "name is required")
	}
	if _, err := mail.ParseAddress(email); err != nil || email == "" {
		return account.User{}, svcerrors.Validation("email", "a valid email is required")
	}
	if len(password) < MinPasswordLength {
		return account.User{}, svcerrors.Validation("password", "password must be at least 8 characters")
	}
	if len(password) > maxPasswordLength {
		return account.User{}, svcerrors.Validation("password", "password must be at most 72 bytes")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return account.User{}, svcerrors.Internal("hash password", err)
	}

	user, err := s.store.CreateUser(ctx, account.User{Name: name, Email: email}, account.Account{
		ProviderID:   account.ProviderCredential,
		AccountID:    email,
		PasswordHash: string(hash),
	})
	if errors.Is(err, storage.ErrConflict) {
		return account.User{}, svcerrors.Conflict("email already registered")
	}
	if err != nil {
		return account.User{}, svcerrors.Internal("create user", err)
	}

	s.log.WithField("user_id", user.ID).Info("user signed up")
	return user, nil
}

// Authenticate checks an email and password pair. Unknown emails and wrong
// passwords produce the same error.
func (s *Service) Authenticate(ctx context.Context, email, password string) (account.User, error) {
	email = NormalizeEmail(email)
	acct, err := s.store.GetAccount(ctx, account.ProviderCredential, email)
	if errors.Is(err, storage.ErrNotFound) {
		return account.User{}, svcerrors.Unauthorized(invalidCredentials)
	}
	if err != nil {
		return account.User{}, svcerrors.Internal("load account", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(acct.PasswordHash), []byte(password)) != nil {
		s.log.WithField("user_id", acct.UserID).Warn("password mismatch")
		return account.User{}, svcerrors.Unauthorized(invalidCredentials)
	}
	return s.Get(ctx, acct.UserID)
}

// Get returns a user by id.
func (s *Service) Get(ctx context.Context, id string) (account.User, error) {
	user, err := s.store.GetUser(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return account.User{}, svcerrors.NotFound("user", id)
	}
	if err != nil {
		return account.User{}, svcerrors.Internal("load user", err)
	}
	return user, nil
}

// UpdateProfile changes the display name and avatar. Empty name keeps the
// current one.
func (s *Service) UpdateProfile(ctx context.Context, id, name, image string) (account.User, error) {
	user, err := s.Get(ctx, id)
	if err != nil {
		return account.User{}, err
	}
	if name = strings.TrimSpace(name); name != "" {
		user.Name = name
	}
	user.Image = strings.TrimSpace(image)

	updated, err := s.store.UpdateUser(ctx, user)
	if err != nil {
		return account.User{}, svcerrors.Internal("update user", err)
	}
	return updated, nil
}
