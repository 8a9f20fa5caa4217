package storage

import (
	"context"
	"errors"
	"time"

	"github.com/R3E-Network/agent_studio/internal/app/domain/account"
	"github.com/R3E-Network/agent_studio/internal/app/domain/agent"
	"github.com/R3E-Network/agent_studio/internal/app/domain/apitoken"
	"github.com/R3E-Network/agent_studio/internal/app/domain/notification"
	"github.com/R3E-Network/agent_studio/internal/app/domain/onboarding"
	"github.com/R3E-Network/agent_studio/internal/app/domain/paging"
	"github.com/R3E-Network/agent_studio/internal/app/domain/tool"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when a uniqueness constraint is violated.
	ErrConflict = errors.New("record already exists")
)

// UserStore persists users and their credential accounts.
type UserStore interface {
	CreateUser(ctx context.Context, user account.User, acct account.Account) (account.User, error)
	GetUser(ctx context.Context, id string) (account.User, error)
	GetUserByEmail(ctx context.Context, email string) (account.User, error)
	UpdateUser(ctx context.Context, user account.User) (account.User, error)
	GetAccount(ctx context.Context, providerID, accountID string) (account.Account, error)
}

// SessionStore persists sign-in sessions.
type SessionStore interface {
	CreateSession(ctx context.Context, sess account.Session) (account.Session, error)
	GetSessionByTokenHash(ctx context.Context, tokenHash string) (account.Session, error)
	DeleteSessionByTokenHash(ctx context.Context, tokenHash string) error
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error)
}

// ToolStore persists the tool catalogue.
type ToolStore interface {
	CreateTool(ctx context.Context, t tool.Tool) (tool.Tool, error)
	GetTool(ctx context.Context, id string) (tool.Tool, error)
	GetToolByName(ctx context.Context, name string) (tool.Tool, error)
	ListTools(ctx context.Context) ([]tool.Tool, error)
	DeleteTool(ctx context.Context, id string) error
}

// AgentStore persists agents. GetAgent returns soft-deleted rows; listings
// never include them.
type AgentStore interface {
	CreateAgent(ctx context.Context, a agent.Agent) (agent.Agent, error)
	UpdateAgent(ctx context.Context, a agent.Agent) (agent.Agent, error)
	GetAgent(ctx context.Context, id string) (agent.Agent, error)
	ListAgents(ctx context.Context, userID string, page paging.Request) ([]agent.Agent, int, error)
	SoftDeleteAgent(ctx context.Context, id string) error
}

// NotificationStore persists user notifications. Listings are newest first.
type NotificationStore interface {
	CreateNotification(ctx context.Context, n notification.Notification) (notification.Notification, error)
	GetNotification(ctx context.Context, id string) (notification.Notification, error)
	ListNotifications(ctx context.Context, userID string, filter notification.Filter, page paging.Request) ([]notification.Notification, int, error)
	MarkNotificationRead(ctx context.Context, id string, at time.Time) (notification.Notification, error)
	MarkAllNotificationsRead(ctx context.Context, userID string, at time.Time) (int64, error)
	CountUnreadNotifications(ctx context.Context, userID string) (int, error)
}

// APITokenStore persists API tokens. ListAPITokens omits revoked tokens.
type APITokenStore interface {
	CreateAPIToken(ctx context.Context, tok apitoken.Token) (apitoken.Token, error)
	GetAPIToken(ctx context.Context, id string) (apitoken.Token, error)
	GetAPITokenByHash(ctx context.Context, tokenHash string) (apitoken.Token, error)
	ListAPITokens(ctx context.Context, userID string) ([]apitoken.Token, error)
	RevokeAPIToken(ctx context.Context, id string, at time.Time) error
	TouchAPIToken(ctx context.Context, id string, at time.Time) error
}

// OnboardingStore persists onboarding answers, one profile per user.
type OnboardingStore interface {
	GetOnboardingProfile(ctx context.Context, userID string) (onboarding.Profile, error)
	SaveOnboardingProfile(ctx context.Context, p onboarding.Profile) (onboarding.Profile, error)
}
