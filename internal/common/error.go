// Package common defines shared constants and sentinel errors used across
// the greenloop backend. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")

	// Token lifecycle errors. Each marks a distinct failure mode of the
	// session core; at the HTTP boundary all of them collapse into a uniform
	// "authentication failed" response.
	ErrTokenMalformed  = errors.New("malformed token")
	ErrTokenInvalid    = errors.New("invalid token")
	ErrTokenExpired    = errors.New("token expired")
	ErrTokenRevoked    = errors.New("token revoked")
	ErrTokenGeneration = errors.New("token generation error")

	// ErrUpstreamUnavailable marks a transport failure against the cache or
	// the credential store. It is never folded into ErrorNotFound.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
)
