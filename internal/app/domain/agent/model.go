package agent

import (
	"strings"
	"time"
)

// Mode trades answer quality for cost.
type Mode string

const (
	ModePerformance Mode = "PERFORMANCE"
	ModeEfficiency  Mode = "EFFICIENCY"
)

// MaxNameLength bounds agent names.
const MaxNameLength = 100

// ParseMode normalises a mode string. Empty input yields ModePerformance.
func ParseMode(raw string) (Mode, bool) {
	switch Mode(strings.ToUpper(strings.TrimSpace(raw))) {
	case "", ModePerformance:
		return ModePerformance, true
	case ModeEfficiency:
		return ModeEfficiency, true
	}
	return "", false
}

// Agent is a user-owned assistant configuration.
type Agent struct {
	ID          string    `json:"id" db:"id"`
	UserID      string    `json:"userId" db:"user_id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	Mode        Mode      `json:"mode" db:"mode"`
	ToolIDs     []string  `json:"toolIds" db:"-"`
	IsDeleted   bool      `json:"-" db:"is_deleted"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" db:"updated_at"`
}

// Input carries the fields accepted on create.
type Input struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Mode        string   `json:"mode"`
	ToolIDs     []string `json:"toolIds"`
}

// Patch carries optional fields for partial updates.
type Patch struct {
	Name        *string   `json:"name"`
	Description *string   `json:"description"`
	Mode        *string   `json:"mode"`
	ToolIDs     *[]string `json:"toolIds"`
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p.Name == nil && p.Description == nil && p.Mode == nil && p.ToolIDs == nil
}
