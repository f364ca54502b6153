package users

import (
	"testing"

	"github.com/greenloop/backend/internal/common"
	"github.com/greenloop/backend/internal/server/credstore"
)

func TestFromRecord(t *testing.T) {
	t.Parallel()

	rec := &credstore.Record{
		ID:          "u-9",
		Email:       "bob@example.com",
		Name:        "Bob",
		Role:        "admin",
		Points:      12,
		Preferences: map[string]string{"newsletter": "weekly"},
	}

	u := FromRecord(rec)

	if u.ID != "u-9" || u.Email != "bob@example.com" || u.Name != "Bob" {
		t.Fatalf("unexpected mapping: %+v", u)
	}
	if u.Role != "admin" {
		t.Fatalf("role should be preserved, got %q", u.Role)
	}
	if u.Points != 12 {
		t.Fatalf("points should be preserved, got %d", u.Points)
	}
	if u.Preferences["newsletter"] != "weekly" {
		t.Fatalf("preferences should be preserved, got %v", u.Preferences)
	}
}

func TestFromRecord_EmptyRoleDefaults(t *testing.T) {
	t.Parallel()

	u := FromRecord(&credstore.Record{ID: "u-10"})
	if u.Role != common.DefaultRole {
		t.Fatalf("want default role %q, got %q", common.DefaultRole, u.Role)
	}
}
