// Package authz layers role and ownership checks on top of already
// validated access-token claims. Both checks are pure functions: no I/O,
// no clock.
package authz

import (
	"github.com/greenloop/backend/internal/common"
	"github.com/greenloop/backend/internal/server/tokens"
)

// HasRole reports whether the caller's role is in the allowed set.
func HasRole(claims *tokens.AccessClaims, allowed ...string) bool {
	for _, role := range allowed {
		if claims.Role == role {
			return true
		}
	}
	return false
}

// OwnsResource reports whether the caller may act on a resource owned by
// ownerID: either the caller is the owner, or the caller holds the
// privileged role.
func OwnsResource(claims *tokens.AccessClaims, ownerID string) bool {
	if claims.Subject == ownerID {
		return true
	}
	return claims.Role == common.RoleAdmin
}
