package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/R3E-Network/agent_studio/internal/app/domain/account"
	"github.com/R3E-Network/agent_studio/internal/app/domain/agent"
	"github.com/R3E-Network/agent_studio/internal/app/domain/apitoken"
	"github.com/R3E-Network/agent_studio/internal/app/domain/notification"
	"github.com/R3E-Network/agent_studio/internal/app/domain/onboarding"
	"github.com/R3E-Network/agent_studio/internal/app/domain/paging"
	"github.com/R3E-Network/agent_studio/internal/app/domain/tool"
	"github.com/R3E-Network/agent_studio/internal/app/storage"
)

// Store implements the storage interfaces backed by PostgreSQL.
type Store struct {
	db *sqlx.DB
}

var _ storage.UserStore = (*Store)(nil)
var _ storage.SessionStore = (*Store)(nil)
var _ storage.ToolStore = (*Store)(nil)
var _ storage.AgentStore = (*Store)(nil)
var _ storage.NotificationStore = (*Store)(nil)
var _ storage.APITokenStore = (*Store)(nil)
var _ storage.OnboardingStore = (*Store)(nil)

// New creates a Store using the provided database handle.
func New(db *sql.DB) *Store {
	return &Store{db: sqlx.NewDb(db, "postgres")}
}

const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
	// invalidTextValue is raised when an id is not a valid UUID; no such row
	// can exist.
	invalidTextValue = "22P02"
)

// mapErr converts driver errors into storage sentinels.
func mapErr(kind, key string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %s: %w", kind, key, storage.ErrNotFound)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch string(pqErr.Code) {
		case uniqueViolation:
			return fmt.Errorf("%s %s: %w", kind, key, storage.ErrConflict)
		case invalidTextValue, foreignKeyViolation:
			return fmt.Errorf("%s %s: %w", kind, key, storage.ErrNotFound)
		}
	}
	return fmt.Errorf("%s %s: %w", kind, key, err)
}

func requireRows(kind, key string, res sql.Result) error {
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("%s %s: %w", kind, key, storage.ErrNotFound)
	}
	return nil
}

// --- UserStore --------------------------------------------------------------

func (s *Store) CreateUser(ctx context.Context, user account.User, acct account.Account) (account.User, error) {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if acct.ID == "" {
		acct.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	user.Email = strings.ToLower(user.Email)
	user.CreatedAt, user.UpdatedAt = now, now
	acct.UserID = user.ID
	acct.AccountID = strings.ToLower(acct.AccountID)
	acct.CreatedAt, acct.UpdatedAt = now, now

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return account.User{}, err
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.NamedExecContext(ctx, `
		INSERT INTO users (id, name, email, email_verified, image, created_at, updated_at)
		VALUES (:id, :name, :email, :email_verified, :image, :created_at, :updated_at)
	`, user); err != nil {
		return account.User{}, mapErr("user", user.Email, err)
	}
	if _, err := tx.NamedExecContext(ctx, `
		INSERT INTO accounts (id, user_id, provider_id, account_id, password_hash, created_at, updated_at)
		VALUES (:id, :user_id, :provider_id, :account_id, :password_hash, :created_at, :updated_at)
	`, acct); err != nil {
		return account.User{}, mapErr("account", acct.AccountID, err)
	}
	if err := tx.Commit(); err != nil {
		return account.User{}, err
	}
	return user, nil
}

const userColumns = `id, name, email, email_verified, image, created_at, updated_at`

func (s *Store) GetUser(ctx context.Context, id string) (account.User, error) {
	var user account.User
	err := s.db.GetContext(ctx, &user, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return user, mapErr("user", id, err)
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (account.User, error) {
	var user account.User
	err := s.db.GetContext(ctx, &user, `SELECT `+userColumns+` FROM users WHERE email = $1`, strings.ToLower(email))
	return user, mapErr("user", email, err)
}

func (s *Store) UpdateUser(ctx context.Context, user account.User) (account.User, error) {
	var updated account.User
	err := s.db.GetContext(ctx, &updated, `
		UPDATE users SET name = $2, email_verified = $3, image = $4, updated_at = $5
		WHERE id = $1
		RETURNING `+userColumns, user.ID, user.Name, user.EmailVerified, user.Image, time.Now().UTC())
	return updated, mapErr("user", user.ID, err)
}

func (s *Store) GetAccount(ctx context.Context, providerID, accountID string) (account.Account, error) {
	var acct account.Account
	err := s.db.GetContext(ctx, &acct, `
		SELECT id, user_id, provider_id, account_id, password_hash, created_at, updated_at
		FROM accounts
		WHERE provider_id = $1 AND account_id = $2
	`, providerID, strings.ToLower(accountID))
	return acct, mapErr("account", accountID, err)
}

// --- SessionStore -----------------------------------------------------------

const sessionColumns = `id, user_id, token_hash, expires_at, ip_address, user_agent, created_at, updated_at`

func (s *Store) CreateSession(ctx context.Context, sess account.Session) (account.Session, error) {
	if sess.ID == "" {
		sess.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	sess.CreatedAt, sess.UpdatedAt = now, now

	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO sessions (`+sessionColumns+`)
		VALUES (:id, :user_id, :token_hash, :expires_at, :ip_address, :user_agent, :created_at, :updated_at)
	`, sess)
	if err != nil {
		return account.Session{}, mapErr("session", sess.ID, err)
	}
	return sess, nil
}

func (s *Store) GetSessionByTokenHash(ctx context.Context, tokenHash string) (account.Session, error) {
	var sess account.Session
	err := s.db.GetContext(ctx, &sess, `SELECT `+sessionColumns+` FROM sessions WHERE token_hash = $1`, tokenHash)
	return sess, mapErr("session", "by token", err)
}

func (s *Store) DeleteSessionByTokenHash(ctx context.Context, tokenHash string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE token_hash = $1`, tokenHash)
	if err != nil {
		return mapErr("session", "by token", err)
	}
	return requireRows("session", "by token", res)
}

func (s *Store) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= $1`, now.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// --- ToolStore --------------------------------------------------------------

const toolColumns = `id, name, description, created_at, updated_at`

func (s *Store) CreateTool(ctx context.Context, t tool.Tool) (tool.Tool, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	t.CreatedAt, t.UpdatedAt = now, now

	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO tools (`+toolColumns+`)
		VALUES (:id, :name, :description, :created_at, :updated_at)
	`, t)
	if err != nil {
		return tool.Tool{}, mapErr("tool", t.Name, err)
	}
	return t, nil
}

func (s *Store) GetTool(ctx context.Context, id string) (tool.Tool, error) {
	var t tool.Tool
	err := s.db.GetContext(ctx, &t, `SELECT `+toolColumns+` FROM tools WHERE id = $1`, id)
	return t, mapErr("tool", id, err)
}

func (s *Store) GetToolByName(ctx context.Context, name string) (tool.Tool, error) {
	var t tool.Tool
	err := s.db.GetContext(ctx, &t, `SELECT `+toolColumns+` FROM tools WHERE name = $1`, name)
	return t, mapErr("tool", name, err)
}

func (s *Store) ListTools(ctx context.Context) ([]tool.Tool, error) {
	result := []tool.Tool{}
	if err := s.db.SelectContext(ctx, &result, `SELECT `+toolColumns+` FROM tools ORDER BY name`); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Store) DeleteTool(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tools WHERE id = $1`, id)
	if err != nil {
		return mapErr("tool", id, err)
	}
	return requireRows("tool", id, res)
}

// --- AgentStore -------------------------------------------------------------

const agentColumns = `id, user_id, name, description, mode, is_deleted, created_at, updated_at`

func (s *Store) CreateAgent(ctx context.Context, a agent.Agent) (agent.Agent, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	a.CreatedAt, a.UpdatedAt = now, now
	if a.ToolIDs == nil {
		a.ToolIDs = []string{}
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return agent.Agent{}, err
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.NamedExecContext(ctx, `
		INSERT INTO agents (`+agentColumns+`)
		VALUES (:id, :user_id, :name, :description, :mode, :is_deleted, :created_at, :updated_at)
	`, a); err != nil {
		return agent.Agent{}, mapErr("agent", a.ID, err)
	}
	if err := replaceAgentTools(ctx, tx, a.ID, a.ToolIDs); err != nil {
		return agent.Agent{}, err
	}
	if err := tx.Commit(); err != nil {
		return agent.Agent{}, err
	}
	return a, nil
}

func (s *Store) UpdateAgent(ctx context.Context, a agent.Agent) (agent.Agent, error) {
	if a.ToolIDs == nil {
		a.ToolIDs = []string{}
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return agent.Agent{}, err
	}
	defer tx.Rollback() //nolint:errcheck

	var updated agent.Agent
	if err := tx.GetContext(ctx, &updated, `
		UPDATE agents SET name = $2, description = $3, mode = $4, updated_at = $5
		WHERE id = $1
		RETURNING `+agentColumns, a.ID, a.Name, a.Description, a.Mode, time.Now().UTC()); err != nil {
		return agent.Agent{}, mapErr("agent", a.ID, err)
	}
	if err := replaceAgentTools(ctx, tx, a.ID, a.ToolIDs); err != nil {
		return agent.Agent{}, err
	}
	if err := tx.Commit(); err != nil {
		return agent.Agent{}, err
	}
	updated.ToolIDs = a.ToolIDs
	return updated, nil
}

func replaceAgentTools(ctx context.Context, tx *sqlx.Tx, agentID string, toolIDs []string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM agent_tools WHERE agent_id = $1`, agentID); err != nil {
		return err
	}
	for _, toolID := range toolIDs {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO agent_tools (agent_id, tool_id) VALUES ($1, $2)
			ON CONFLICT DO NOTHING
		`, agentID, toolID); err != nil {
			return mapErr("agent tool", toolID, err)
		}
	}
	return nil
}

func (s *Store) GetAgent(ctx context.Context, id string) (agent.Agent, error) {
	var a agent.Agent
	if err := s.db.GetContext(ctx, &a, `SELECT `+agentColumns+` FROM agents WHERE id = $1`, id); err != nil {
		return agent.Agent{}, mapErr("agent", id, err)
	}
	toolIDs, err := s.agentToolIDs(ctx, []string{id})
	if err != nil {
		return agent.Agent{}, err
	}
	a.ToolIDs = toolIDs[id]
	if a.ToolIDs == nil {
		a.ToolIDs = []string{}
	}
	return a, nil
}

func (s *Store) ListAgents(ctx context.Context, userID string, page paging.Request) ([]agent.Agent, int, error) {
	var total int
	if err := s.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM agents WHERE user_id = $1 AND NOT is_deleted`, userID); err != nil {
		return nil, 0, err
	}

	result := []agent.Agent{}
	if err := s.db.SelectContext(ctx, &result, `
		SELECT `+agentColumns+` FROM agents
		WHERE user_id = $1 AND NOT is_deleted
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`, userID, page.Limit, page.Offset()); err != nil {
		return nil, 0, err
	}

	ids := make([]string, 0, len(result))
	for _, a := range result {
		ids = append(ids, a.ID)
	}
	toolIDs, err := s.agentToolIDs(ctx, ids)
	if err != nil {
		return nil, 0, err
	}
	for i := range result {
		result[i].ToolIDs = toolIDs[result[i].ID]
		if result[i].ToolIDs == nil {
			result[i].ToolIDs = []string{}
		}
	}
	return result, total, nil
}

func (s *Store) agentToolIDs(ctx context.Context, agentIDs []string) (map[string][]string, error) {
	out := make(map[string][]string, len(agentIDs))
	if len(agentIDs) == 0 {
		return out, nil
	}
	var rows []struct {
		AgentID string `db:"agent_id"`
		ToolID  string `db:"tool_id"`
	}
	if err := s.db.SelectContext(ctx, &rows, `
		SELECT agent_id, tool_id FROM agent_tools
		WHERE agent_id = ANY($1)
		ORDER BY tool_id
	`, pq.Array(agentIDs)); err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.AgentID] = append(out[row.AgentID], row.ToolID)
	}
	return out, nil
}

func (s *Store) SoftDeleteAgent(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE agents SET is_deleted = TRUE, updated_at = $2
		WHERE id = $1 AND NOT is_deleted
	`, id, time.Now().UTC())
	if err != nil {
		return mapErr("agent", id, err)
	}
	return requireRows("agent", id, res)
}

// --- NotificationStore ------------------------------------------------------

const notificationColumns = `id, user_id, type, title, body, is_read, created_at, read_at`

func (s *Store) CreateNotification(ctx context.Context, n notification.Notification) (notification.Notification, error) {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO notifications (`+notificationColumns+`)
		VALUES (:id, :user_id, :type, :title, :body, :is_read, :created_at, :read_at)
	`, n)
	if err != nil {
		return notification.Notification{}, mapErr("notification", n.ID, err)
	}
	return n, nil
}

func (s *Store) GetNotification(ctx context.Context, id string) (notification.Notification, error) {
	var n notification.Notification
	err := s.db.GetContext(ctx, &n, `SELECT `+notificationColumns+` FROM notifications WHERE id = $1`, id)
	return n, mapErr("notification", id, err)
}

func (s *Store) ListNotifications(ctx context.Context, userID string, filter notification.Filter, page paging.Request) ([]notification.Notification, int, error) {
	where := `user_id = $1`
	if filter.UnreadOnly {
		where += ` AND NOT is_read`
	}

	var total int
	if err := s.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM notifications WHERE `+where, userID); err != nil {
		return nil, 0, err
	}

	result := []notification.Notification{}
	if err := s.db.SelectContext(ctx, &result, `
		SELECT `+notificationColumns+` FROM notifications
		WHERE `+where+`
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`, userID, page.Limit, page.Offset()); err != nil {
		return nil, 0, err
	}
	return result, total, nil
}

func (s *Store) MarkNotificationRead(ctx context.Context, id string, at time.Time) (notification.Notification, error) {
	var n notification.Notification
	err := s.db.GetContext(ctx, &n, `
		UPDATE notifications
		SET is_read = TRUE, read_at = COALESCE(read_at, $2)
		WHERE id = $1
		RETURNING `+notificationColumns, id, at.UTC())
	return n, mapErr("notification", id, err)
}

func (s *Store) MarkAllNotificationsRead(ctx context.Context, userID string, at time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE notifications SET is_read = TRUE, read_at = $2
		WHERE user_id = $1 AND NOT is_read
	`, userID, at.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *Store) CountUnreadNotifications(ctx context.Context, userID string) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND NOT is_read`, userID)
	return count, err
}

// --- APITokenStore ----------------------------------------------------------

const tokenColumns = `id, user_id, name, prefix, token_hash, created_at, last_used_at, expires_at, revoked_at`

func (s *Store) CreateAPIToken(ctx context.Context, tok apitoken.Token) (apitoken.Token, error) {
	if tok.ID == "" {
		tok.ID = uuid.NewString()
	}
	if tok.CreatedAt.IsZero() {
		tok.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO api_tokens (`+tokenColumns+`)
		VALUES (:id, :user_id, :name, :prefix, :token_hash, :created_at, :last_used_at, :expires_at, :revoked_at)
	`, tok)
	if err != nil {
		return apitoken.Token{}, mapErr("api token", tok.Prefix, err)
	}
	return tok, nil
}

func (s *Store) GetAPIToken(ctx context.Context, id string) (apitoken.Token, error) {
	var tok apitoken.Token
	err := s.db.GetContext(ctx, &tok, `SELECT `+tokenColumns+` FROM api_tokens WHERE id = $1`, id)
	return tok, mapErr("api token", id, err)
}

func (s *Store) GetAPITokenByHash(ctx context.Context, tokenHash string) (apitoken.Token, error) {
	var tok apitoken.Token
	err := s.db.GetContext(ctx, &tok, `SELECT `+tokenColumns+` FROM api_tokens WHERE token_hash = $1`, tokenHash)
	return tok, mapErr("api token", "by hash", err)
}

func (s *Store) ListAPITokens(ctx context.Context, userID string) ([]apitoken.Token, error) {
	result := []apitoken.Token{}
	if err := s.db.SelectContext(ctx, &result, `
		SELECT `+tokenColumns+` FROM api_tokens
		WHERE user_id = $1 AND revoked_at IS NULL
		ORDER BY created_at DESC, id DESC
	`, userID); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Store) RevokeAPIToken(ctx context.Context, id string, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE api_tokens SET revoked_at = $2
		WHERE id = $1 AND revoked_at IS NULL
	`, id, at.UTC())
	if err != nil {
		return mapErr("api token", id, err)
	}
	return requireRows("api token", id, res)
}

func (s *Store) TouchAPIToken(ctx context.Context, id string, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `UPDATE api_tokens SET last_used_at = $2 WHERE id = $1`, id, at.UTC())
	if err != nil {
		return mapErr("api token", id, err)
	}
	return requireRows("api token", id, res)
}

// --- OnboardingStore --------------------------------------------------------

const profileColumns = `user_id, role, use_case, company_size, referral, completed_at, updated_at`

func (s *Store) GetOnboardingProfile(ctx context.Context, userID string) (onboarding.Profile, error) {
	var p onboarding.Profile
	err := s.db.GetContext(ctx, &p, `SELECT `+profileColumns+` FROM onboarding_profiles WHERE user_id = $1`, userID)
	return p, mapErr("onboarding profile", userID, err)
}

func (s *Store) SaveOnboardingProfile(ctx context.Context, p onboarding.Profile) (onboarding.Profile, error) {
	now := time.Now().UTC()
	var saved onboarding.Profile
	err := s.db.GetContext(ctx, &saved, `
		INSERT INTO onboarding_profiles (`+profileColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		ON CONFLICT (user_id) DO UPDATE SET
			role = EXCLUDED.role,
			use_case = EXCLUDED.use_case,
			company_size = EXCLUDED.company_size,
			referral = EXCLUDED.referral,
			updated_at = EXCLUDED.updated_at
		RETURNING `+profileColumns, p.UserID, p.Role, p.UseCase, p.CompanySize, p.Referral, now)
	return saved, mapErr("onboarding profile", p.UserID, err)
}
