// Package common contains shared constants and sentinel errors used across
// greenloop backend components.
package common

const (
	// AuthorizationHeaderName carries the bearer access token on inbound
	// requests.
	AuthorizationHeaderName = "Authorization"

	// RefreshTokenCookieName is the httpOnly cookie holding the refresh
	// token between refresh calls.
	RefreshTokenCookieName = "refresh_token"
)

// DefaultRole is assigned during credential-record mapping when the stored
// record carries no role attribute. It is the least-privileged role.
const DefaultRole = "user"

// RoleAdmin may act on resources owned by other users.
const RoleAdmin = "admin"
