package apitoken

import "time"

// Prefix starts every raw token so it can be told apart from session JWTs.
const Prefix = "ast_"

// Token is a long-lived credential owned by a user. The raw secret is never
// stored; only its sha256 hash and a short display prefix.
type Token struct {
	ID         string     `json:"id" db:"id"`
	UserID     string     `json:"userId" db:"user_id"`
	Name       string     `json:"name" db:"name"`
	Prefix     string     `json:"prefix" db:"prefix"`
	TokenHash  string     `json:"-" db:"token_hash"`
	CreatedAt  time.Time  `json:"createdAt" db:"created_at"`
	LastUsedAt *time.Time `json:"lastUsedAt,omitempty" db:"last_used_at"`
	ExpiresAt  *time.Time `json:"expiresAt,omitempty" db:"expires_at"`
	RevokedAt  *time.Time `json:"revokedAt,omitempty" db:"revoked_at"`
}

// Active reports whether the token can authenticate at now.
func (t Token) Active(now time.Time) bool {
	if t.RevokedAt != nil {
		return false
	}
	return t.ExpiresAt == nil || t.ExpiresAt.After(now)
}

// Issued is returned once, on creation, with the raw secret.
type Issued struct {
	Secret string `json:"token"`
	Token
}
