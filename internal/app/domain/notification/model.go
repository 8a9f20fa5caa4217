package notification

import "time"

// Type groups notifications for display.
type Type string

const (
	TypeSystem   Type = "system"
	TypeAgent    Type = "agent"
	TypeSecurity Type = "security"
)

// Notification is a message addressed to one user.
type Notification struct {
	ID        string     `json:"id" db:"id"`
	UserID    string     `json:"userId" db:"user_id"`
	Type      Type       `json:"type" db:"type"`
	Title     string     `json:"title" db:"title"`
	Body      string     `json:"body" db:"body"`
	IsRead    bool       `json:"isRead" db:"is_read"`
	CreatedAt time.Time  `json:"createdAt" db:"created_at"`
	ReadAt    *time.Time `json:"readAt,omitempty" db:"read_at"`
}

// Filter narrows a listing.
type Filter struct {
	UnreadOnly bool
}
