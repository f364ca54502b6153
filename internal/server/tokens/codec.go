// Package tokens signs and verifies the two JWT kinds used by the session
// core. Access and refresh tokens use distinct secrets and lifetimes; both
// are HS256. The package is stateless — callers supply secrets and TTLs.
package tokens

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/greenloop/backend/internal/common"
)

// AccessClaims is carried by short-lived access tokens. Subject holds the
// user ID.
type AccessClaims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

// RefreshClaims is carried by refresh tokens. TokenID identifies the single
// active refresh slot for the subject; a token whose TokenID no longer
// matches the stored slot value has been rotated away.
type RefreshClaims struct {
	jwt.RegisteredClaims
	TokenID string `json:"token_id"`
}

// SignAccess mints an access token for the given user and role.
func SignAccess(userID, role string, secret []byte, validity time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(validity)),
		},
		Role: role,
	})

	signed, err := token.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrTokenGeneration, err)
	}
	return signed, nil
}

// SignRefresh mints a refresh token bound to the given slot tokenID.
func SignRefresh(userID, tokenID string, secret []byte, validity time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, RefreshClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(validity)),
		},
		TokenID: tokenID,
	})

	signed, err := token.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrTokenGeneration, err)
	}
	return signed, nil
}

// VerifyAccess checks shape, signature, and expiry of an access token and
// returns its claims.
func VerifyAccess(tokenString string, secret []byte) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := verify(tokenString, secret, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// VerifyRefresh checks shape, signature, and expiry of a refresh token and
// returns its claims.
func VerifyRefresh(tokenString string, secret []byte) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := verify(tokenString, secret, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

func verify(tokenString string, secret []byte, claims jwt.Claims) error {
	if !WellFormed(tokenString) {
		return common.ErrTokenMalformed
	}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return mapParseError(err)
	}
	if !token.Valid {
		return common.ErrTokenInvalid
	}
	return nil
}

// DecodeExpiryUnverified reads the expiry claim without verifying the
// signature. It exists solely for revocation bookkeeping: a token being
// revoked may already be expired or signed with a rotated secret, and its
// remaining lifetime is still needed to cap the blacklist entry.
func DecodeExpiryUnverified(tokenString string) (time.Time, error) {
	if !WellFormed(tokenString) {
		return time.Time{}, common.ErrTokenMalformed
	}

	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", common.ErrTokenInvalid, err)
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, fmt.Errorf("%w: missing expiry claim", common.ErrTokenInvalid)
	}
	return claims.ExpiresAt.Time, nil
}

// WellFormed reports whether the string has the three-segment shape of a
// signed JWT. It does not inspect the segments.
func WellFormed(tokenString string) bool {
	if tokenString == "" {
		return false
	}
	return strings.Count(tokenString, ".") == 2
}

func mapParseError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return fmt.Errorf("%w: %v", common.ErrTokenMalformed, err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: %v", common.ErrTokenExpired, err)
	default:
		return fmt.Errorf("%w: %v", common.ErrTokenInvalid, err)
	}
}
