package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/R3E-Network/agent_studio/internal/app/domain/account"
	"github.com/R3E-Network/agent_studio/internal/app/domain/agent"
	"github.com/R3E-Network/agent_studio/internal/app/domain/apitoken"
	"github.com/R3E-Network/agent_studio/internal/app/domain/notification"
	"github.com/R3E-Network/agent_studio/internal/app/domain/onboarding"
	"github.com/R3E-Network/agent_studio/internal/app/domain/paging"
	"github.com/R3E-Network/agent_studio/internal/app/domain/tool"
	"github.com/R3E-Network/agent_studio/internal/app/storage"
)

// Store is an in-memory implementation of the storage interfaces. It is safe
// for concurrent use and is primarily intended for tests and local development.
type Store struct {
	mu            sync.RWMutex
	nextID        int64
	users         map[string]account.User
	usersByEmail  map[string]string
	accounts      map[string]account.Account // provider|accountID -> account
	sessions      map[string]account.Session // token hash -> session
	tools         map[string]tool.Tool
	toolsByName   map[string]string
	agents        map[string]agent.Agent
	agentSeq      map[string]int64
	notifications map[string]notification.Notification
	notifSeq      map[string]int64
	apiTokens     map[string]apitoken.Token
	tokensByHash  map[string]string
	tokenSeq      map[string]int64
	profiles      map[string]onboarding.Profile
}

var _ storage.UserStore = (*Store)(nil)
var _ storage.SessionStore = (*Store)(nil)
var _ storage.ToolStore = (*Store)(nil)
var _ storage.AgentStore = (*Store)(nil)
var _ storage.NotificationStore = (*Store)(nil)
var _ storage.APITokenStore = (*Store)(nil)
var _ storage.OnboardingStore = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		nextID:        1,
		users:         make(map[string]account.User),
		usersByEmail:  make(map[string]string),
		accounts:      make(map[string]account.Account),
		sessions:      make(map[string]account.Session),
		tools:         make(map[string]tool.Tool),
		toolsByName:   make(map[string]string),
		agents:        make(map[string]agent.Agent),
		agentSeq:      make(map[string]int64),
		notifications: make(map[string]notification.Notification),
		notifSeq:      make(map[string]int64),
		apiTokens:     make(map[string]apitoken.Token),
		tokensByHash:  make(map[string]string),
		tokenSeq:      make(map[string]int64),
		profiles:      make(map[string]onboarding.Profile),
	}
}

func (s *Store) nextIDLocked() string {
	id := s.nextID
	s.nextID++
	return fmt.Sprintf("%d", id)
}

func (s *Store) seqLocked() int64 {
	seq := s.nextID
	s.nextID++
	return seq
}

func notFound(kind, id string) error {
	return fmt.Errorf("%s %s: %w", kind, id, storage.ErrNotFound)
}

func conflict(kind, key string) error {
	return fmt.Errorf("%s %s: %w", kind, key, storage.ErrConflict)
}

func accountKey(providerID, accountID string) string {
	return providerID + "|" + strings.ToLower(accountID)
}

// UserStore implementation ----------------------------------------------------

func (s *Store) CreateUser(_ context.Context, user account.User, acct account.Account) (account.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	email := strings.ToLower(user.Email)
	if _, exists := s.usersByEmail[email]; exists {
		return account.User{}, conflict("user", email)
	}
	key := accountKey(acct.ProviderID, acct.AccountID)
	if _, exists := s.accounts[key]; exists {
		return account.User{}, conflict("account", acct.AccountID)
	}

	if user.ID == "" {
		user.ID = s.nextIDLocked()
	}
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	if acct.ID == "" {
		acct.ID = s.nextIDLocked()
	}
	acct.UserID = user.ID
	acct.CreatedAt = now
	acct.UpdatedAt = now

	s.users[user.ID] = user
	s.usersByEmail[email] = user.ID
	s.accounts[key] = acct
	return user, nil
}

func (s *Store) GetUser(_ context.Context, id string) (account.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return account.User{}, notFound("user", id)
	}
	return user, nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (account.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.usersByEmail[strings.ToLower(email)]
	if !ok {
		return account.User{}, notFound("user", email)
	}
	return s.users[id], nil
}

func (s *Store) UpdateUser(_ context.Context, user account.User) (account.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.users[user.ID]
	if !ok {
		return account.User{}, notFound("user", user.ID)
	}
	user.Email = original.Email
	user.CreatedAt = original.CreatedAt
	user.UpdatedAt = time.Now().UTC()
	s.users[user.ID] = user
	return user, nil
}

func (s *Store) GetAccount(_ context.Context, providerID, accountID string) (account.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	acct, ok := s.accounts[accountKey(providerID, accountID)]
	if !ok {
		return account.Account{}, notFound("account", accountID)
	}
	return acct, nil
}

// SessionStore implementation -------------------------------------------------

func (s *Store) CreateSession(_ context.Context, sess account.Session) (account.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[sess.TokenHash]; exists {
		return account.Session{}, conflict("session", sess.ID)
	}
	if sess.ID == "" {
		sess.ID = s.nextIDLocked()
	}
	now := time.Now().UTC()
	sess.CreatedAt = now
	sess.UpdatedAt = now
	s.sessions[sess.TokenHash] = sess
	return sess, nil
}

func (s *Store) GetSessionByTokenHash(_ context.Context, tokenHash string) (account.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[tokenHash]
	if !ok {
		return account.Session{}, notFound("session", "by token")
	}
	return sess, nil
}

func (s *Store) DeleteSessionByTokenHash(_ context.Context, tokenHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[tokenHash]; !ok {
		return notFound("session", "by token")
	}
	delete(s.sessions, tokenHash)
	return nil
}

func (s *Store) DeleteExpiredSessions(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed int64
	for hash, sess := range s.sessions {
		if sess.Expired(now) {
			delete(s.sessions, hash)
			removed++
		}
	}
	return removed, nil
}

// ToolStore implementation ----------------------------------------------------

func (s *Store) CreateTool(_ context.Context, t tool.Tool) (tool.Tool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.toolsByName[t.Name]; exists {
		return tool.Tool{}, conflict("tool", t.Name)
	}
	if t.ID == "" {
		t.ID = s.nextIDLocked()
	}
	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now
	s.tools[t.ID] = t
	s.toolsByName[t.Name] = t.ID
	return t, nil
}

func (s *Store) GetTool(_ context.Context, id string) (tool.Tool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tools[id]
	if !ok {
		return tool.Tool{}, notFound("tool", id)
	}
	return t, nil
}

func (s *Store) GetToolByName(_ context.Context, name string) (tool.Tool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.toolsByName[name]
	if !ok {
		return tool.Tool{}, notFound("tool", name)
	}
	return s.tools[id], nil
}

func (s *Store) ListTools(_ context.Context) ([]tool.Tool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]tool.Tool, 0, len(s.tools))
	for _, t := range s.tools {
		result = append(result, t)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (s *Store) DeleteTool(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tools[id]
	if !ok {
		return notFound("tool", id)
	}
	delete(s.tools, id)
	delete(s.toolsByName, t.Name)
	for agentID, a := range s.agents {
		a.ToolIDs = removeString(a.ToolIDs, id)
		s.agents[agentID] = a
	}
	return nil
}

// AgentStore implementation ---------------------------------------------------

func (s *Store) CreateAgent(_ context.Context, a agent.Agent) (agent.Agent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if a.ID == "" {
		a.ID = s.nextIDLocked()
	} else if _, exists := s.agents[a.ID]; exists {
		return agent.Agent{}, conflict("agent", a.ID)
	}
	now := time.Now().UTC()
	a.CreatedAt = now
	a.UpdatedAt = now
	a.ToolIDs = cloneStrings(a.ToolIDs)

	s.agents[a.ID] = a
	s.agentSeq[a.ID] = s.seqLocked()
	return cloneAgent(a), nil
}

func (s *Store) UpdateAgent(_ context.Context, a agent.Agent) (agent.Agent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.agents[a.ID]
	if !ok {
		return agent.Agent{}, notFound("agent", a.ID)
	}
	a.UserID = original.UserID
	a.IsDeleted = original.IsDeleted
	a.CreatedAt = original.CreatedAt
	a.UpdatedAt = time.Now().UTC()
	a.ToolIDs = cloneStrings(a.ToolIDs)

	s.agents[a.ID] = a
	return cloneAgent(a), nil
}

func (s *Store) GetAgent(_ context.Context, id string) (agent.Agent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.agents[id]
	if !ok {
		return agent.Agent{}, notFound("agent", id)
	}
	return cloneAgent(a), nil
}

func (s *Store) ListAgents(_ context.Context, userID string, page paging.Request) ([]agent.Agent, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]agent.Agent, 0)
	for _, a := range s.agents {
		if a.UserID == userID && !a.IsDeleted {
			matched = append(matched, cloneAgent(a))
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		return s.agentSeq[matched[i].ID] > s.agentSeq[matched[j].ID]
	})
	res := paging.Slice(matched, page)
	return res.Data, res.Total, nil
}

func (s *Store) SoftDeleteAgent(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.agents[id]
	if !ok || a.IsDeleted {
		return notFound("agent", id)
	}
	a.IsDeleted = true
	a.UpdatedAt = time.Now().UTC()
	s.agents[id] = a
	return nil
}

// NotificationStore implementation --------------------------------------------

func (s *Store) CreateNotification(_ context.Context, n notification.Notification) (notification.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n.ID == "" {
		n.ID = s.nextIDLocked()
	} else if _, exists := s.notifications[n.ID]; exists {
		return notification.Notification{}, conflict("notification", n.ID)
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	s.notifications[n.ID] = n
	s.notifSeq[n.ID] = s.seqLocked()
	return cloneNotification(n), nil
}

func (s *Store) GetNotification(_ context.Context, id string) (notification.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, ok := s.notifications[id]
	if !ok {
		return notification.Notification{}, notFound("notification", id)
	}
	return cloneNotification(n), nil
}

func (s *Store) ListNotifications(_ context.Context, userID string, filter notification.Filter, page paging.Request) ([]notification.Notification, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]notification.Notification, 0)
	for _, n := range s.notifications {
		if n.UserID != userID {
			continue
		}
		if filter.UnreadOnly && n.IsRead {
			continue
		}
		matched = append(matched, cloneNotification(n))
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return s.notifSeq[matched[i].ID] > s.notifSeq[matched[j].ID]
	})
	res := paging.Slice(matched, page)
	return res.Data, res.Total, nil
}

func (s *Store) MarkNotificationRead(_ context.Context, id string, at time.Time) (notification.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.notifications[id]
	if !ok {
		return notification.Notification{}, notFound("notification", id)
	}
	if !n.IsRead {
		n.IsRead = true
		readAt := at.UTC()
		n.ReadAt = &readAt
		s.notifications[id] = n
	}
	return cloneNotification(n), nil
}

func (s *Store) MarkAllNotificationsRead(_ context.Context, userID string, at time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var updated int64
	for id, n := range s.notifications {
		if n.UserID != userID || n.IsRead {
			continue
		}
		n.IsRead = true
		readAt := at.UTC()
		n.ReadAt = &readAt
		s.notifications[id] = n
		updated++
	}
	return updated, nil
}

func (s *Store) CountUnreadNotifications(_ context.Context, userID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, n := range s.notifications {
		if n.UserID == userID && !n.IsRead {
			count++
		}
	}
	return count, nil
}

// APITokenStore implementation ------------------------------------------------

func (s *Store) CreateAPIToken(_ context.Context, tok apitoken.Token) (apitoken.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tokensByHash[tok.TokenHash]; exists {
		return apitoken.Token{}, conflict("api token", tok.Prefix)
	}
	if tok.ID == "" {
		tok.ID = s.nextIDLocked()
	}
	if tok.CreatedAt.IsZero() {
		tok.CreatedAt = time.Now().UTC()
	}
	s.apiTokens[tok.ID] = tok
	s.tokensByHash[tok.TokenHash] = tok.ID
	s.tokenSeq[tok.ID] = s.seqLocked()
	return cloneToken(tok), nil
}

func (s *Store) GetAPIToken(_ context.Context, id string) (apitoken.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tok, ok := s.apiTokens[id]
	if !ok {
		return apitoken.Token{}, notFound("api token", id)
	}
	return cloneToken(tok), nil
}

func (s *Store) GetAPITokenByHash(_ context.Context, tokenHash string) (apitoken.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.tokensByHash[tokenHash]
	if !ok {
		return apitoken.Token{}, notFound("api token", "by hash")
	}
	return cloneToken(s.apiTokens[id]), nil
}

func (s *Store) ListAPITokens(_ context.Context, userID string) ([]apitoken.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]apitoken.Token, 0)
	for _, tok := range s.apiTokens {
		if tok.UserID == userID && tok.RevokedAt == nil {
			result = append(result, cloneToken(tok))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return s.tokenSeq[result[i].ID] > s.tokenSeq[result[j].ID]
	})
	return result, nil
}

func (s *Store) RevokeAPIToken(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tok, ok := s.apiTokens[id]
	if !ok || tok.RevokedAt != nil {
		return notFound("api token", id)
	}
	revokedAt := at.UTC()
	tok.RevokedAt = &revokedAt
	s.apiTokens[id] = tok
	return nil
}

func (s *Store) TouchAPIToken(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tok, ok := s.apiTokens[id]
	if !ok {
		return notFound("api token", id)
	}
	usedAt := at.UTC()
	tok.LastUsedAt = &usedAt
	s.apiTokens[id] = tok
	return nil
}

// OnboardingStore implementation ----------------------------------------------

func (s *Store) GetOnboardingProfile(_ context.Context, userID string) (onboarding.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.profiles[userID]
	if !ok {
		return onboarding.Profile{}, notFound("onboarding profile", userID)
	}
	return cloneProfile(p), nil
}

func (s *Store) SaveOnboardingProfile(_ context.Context, p onboarding.Profile) (onboarding.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	if existing, ok := s.profiles[p.UserID]; ok && existing.CompletedAt != nil {
		p.CompletedAt = existing.CompletedAt
	}
	if p.CompletedAt == nil {
		p.CompletedAt = &now
	}
	p.UpdatedAt = now
	s.profiles[p.UserID] = p
	return cloneProfile(p), nil
}

// Helpers --------------------------------------------------------------------

func cloneStrings(src []string) []string {
	if src == nil {
		return []string{}
	}
	return append([]string{}, src...)
}

func removeString(list []string, target string) []string {
	out := list[:0:0]
	for _, v := range list {
		if v != target {
			out = append(out, v)
		}
	}
	return out
}

func cloneAgent(a agent.Agent) agent.Agent {
	a.ToolIDs = cloneStrings(a.ToolIDs)
	return a
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func cloneNotification(n notification.Notification) notification.Notification {
	n.ReadAt = cloneTime(n.ReadAt)
	return n
}

func cloneToken(tok apitoken.Token) apitoken.Token {
	tok.LastUsedAt = cloneTime(tok.LastUsedAt)
	tok.ExpiresAt = cloneTime(tok.ExpiresAt)
	tok.RevokedAt = cloneTime(tok.RevokedAt)
	return tok
}

func cloneProfile(p onboarding.Profile) onboarding.Profile {
	p.CompletedAt = cloneTime(p.CompletedAt)
	return p
}
