package users

import (
	"github.com/greenloop/backend/internal/common"
	"github.com/greenloop/backend/internal/server/credstore"
)

// User is the denormalized identity snapshot served to the rest of the
// backend. It is what gets cached; token validity never depends on it.
type User struct {
	ID          string            `json:"id"`
	Email       string            `json:"email"`
	Name        string            `json:"name"`
	Role        string            `json:"role"`
	Points      int               `json:"points"`
	Preferences map[string]string `json:"preferences,omitempty"`
}

// FromRecord maps a raw credential record onto the canonical User shape.
// An absent role defaults to the least-privileged role here, in one place,
// rather than at call sites.
func FromRecord(rec *credstore.Record) *User {
	role := rec.Role
	if role == "" {
		role = common.DefaultRole
	}

	return &User{
		ID:          rec.ID,
		Email:       rec.Email,
		Name:        rec.Name,
		Role:        role,
		Points:      rec.Points,
		Preferences: rec.Preferences,
	}
}
