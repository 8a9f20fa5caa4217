package onboarding

import (
	"context"
	"errors"
	"strings"

	"github.com/R3E-Network/agent_studio/internal/app/domain/onboarding"
	"github.com/R3E-Network/agent_studio/internal/app/storage"
	svcerrors "github.com/R3E-Network/agent_studio/internal/errors"
	"github.com/R3E-Network/agent_studio/pkg/logger"
)

// Service stores onboarding answers.
type Service struct {
	store storage.OnboardingStore
	log   *logger.Logger
}

// New constructs an onboarding service.
func New(store storage.OnboardingStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("onboarding")
	}
	return &Service{store: store, log: log}
}

// Get returns the profile of userID. Users that never submitted the form get
// an empty, incomplete profile.
func (s *Service) Get(ctx context.Context, userID string) (onboarding.Profile, error) {
	p, err := s.store.GetOnboardingProfile(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return onboarding.Profile{UserID: userID}, nil
	}
	if err != nil {
		return onboarding.Profile{}, svcerrors.Internal("load onboarding profile", err)
	}
	return p, nil
}

// Save validates and stores answers. The completion time is set on the first
// save and kept afterwards.
func (s *Service) Save(ctx context.Context, userID string, p onboarding.Profile) (onboarding.Profile, error) {
	p.UserID = userID
	p.Role = strings.TrimSpace(p.Role)
	p.UseCase = strings.TrimSpace(p.UseCase)
	p.CompanySize = strings.TrimSpace(p.CompanySize)
	p.Referral = strings.TrimSpace(p.Referral)
	p.CompletedAt = nil

	if p.Role == "" {
		return onboarding.Profile{}, svcerrors.Validation("role", "role is required")
	}
	if p.UseCase == "" {
		return onboarding.Profile{}, svcerrors.Validation("useCase", "use case is required")
	}

	saved, err := s.store.SaveOnboardingProfile(ctx, p)
	if err != nil {
		return onboarding.Profile{}, svcerrors.Internal("save onboarding profile", err)
	}
	s.log.WithField("user_id", userID).Info("onboarding saved")
	return saved, nil
}
