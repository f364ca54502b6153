package authz

import (
	"testing"

	"github.com/golang-jwt/jwt/v5"

	"github.com/greenloop/backend/internal/server/tokens"
)

func claimsWith(subject, role string) *tokens.AccessClaims {
	return &tokens.AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: subject},
		Role:             role,
	}
}

func TestHasRole(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		role    string
		allowed []string
		want    bool
	}{
		{name: "role in set", role: "user", allowed: []string{"user", "admin"}, want: true},
		{name: "role not in set", role: "user", allowed: []string{"admin"}, want: false},
		{name: "empty allowed set", role: "admin", allowed: nil, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := HasRole(claimsWith("u1", tt.role), tt.allowed...)
			if got != tt.want {
				t.Fatalf("HasRole(%q, %v) = %v, want %v", tt.role, tt.allowed, got, tt.want)
			}
		})
	}
}

func TestOwnsResource(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		subject string
		role    string
		ownerID string
		want    bool
	}{
		{name: "owner", subject: "u1", role: "user", ownerID: "u1", want: true},
		{name: "not owner", subject: "u1", role: "user", ownerID: "u2", want: false},
		{name: "admin overrides ownership", subject: "u1", role: "admin", ownerID: "u2", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := OwnsResource(claimsWith(tt.subject, tt.role), tt.ownerID)
			if got != tt.want {
				t.Fatalf("OwnsResource = %v, want %v", got, tt.want)
			}
		})
	}
}
