package onboarding

import "time"

// Profile holds the answers of the onboarding form.
type Profile struct {
	UserID      string     `json:"userId" db:"user_id"`
	Role        string     `json:"role" db:"role"`
	UseCase     string     `json:"useCase" db:"use_case"`
	CompanySize string     `json:"companySize,omitempty" db:"company_size"`
	Referral    string     `json:"referral,omitempty" db:"referral"`
	CompletedAt *time.Time `json:"completedAt,omitempty" db:"completed_at"`
	UpdatedAt   time.Time  `json:"updatedAt" db:"updated_at"`
}

// Completed reports whether the form was submitted at least once.
func (p Profile) Completed() bool {
	return p.CompletedAt != nil
}
