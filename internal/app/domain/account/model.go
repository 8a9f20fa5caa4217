package account

import "time"

// ProviderCredential marks accounts authenticated by email and password.
const ProviderCredential = "credential"

// User is a person that signs in and owns agents, notifications and tokens.
type User struct {
	ID            string    `json:"id" db:"id"`
	Name          string    `json:"name" db:"name"`
	Email         string    `json:"email" db:"email"`
	EmailVerified bool      `json:"emailVerified" db:"email_verified"`
	Image         string    `json:"image,omitempty" db:"image"`
	CreatedAt     time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time `json:"updatedAt" db:"updated_at"`
}

// Account is the credential half of the user/account pair. For the credential
// provider AccountID equals the user's email.
type Account struct {
	ID           string    `json:"id" db:"id"`
	UserID       string    `json:"userId" db:"user_id"`
	ProviderID   string    `json:"providerId" db:"provider_id"`
	AccountID    string    `json:"accountId" db:"account_id"`
	PasswordHash string    `json:"-" db:"password_hash"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" db:"updated_at"`
}

// Session is a signed-in browser or client. Only the hash of the bearer
// token is persisted.
type Session struct {
	ID        string    `json:"id" db:"id"`
	UserID    string    `json:"userId" db:"user_id"`
	TokenHash string    `json:"-" db:"token_hash"`
	ExpiresAt time.Time `json:"expiresAt" db:"expires_at"`
	IPAddress string    `json:"ipAddress,omitempty" db:"ip_address"`
	UserAgent string    `json:"userAgent,omitempty" db:"user_agent"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// Expired reports whether the session is no longer valid at now.
func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}

// Authenticated pairs a live session with its user.
type Authenticated struct {
	Session Session `json:"session"`
	User    User    `json:"user"`
}
