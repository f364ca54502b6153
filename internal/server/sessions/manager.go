// Package sessions owns the token lifecycle: issuing access/refresh pairs,
// validating presented tokens against signature, expiry, and revocation
// state, rotating refresh slots, and revoking tokens on logout.
//
// All durable state lives in the key-value cache; the manager itself is
// stateless and safe for concurrent use. Revocation checks fail closed: if
// the cache cannot answer, validation reports ErrUpstreamUnavailable
// instead of assuming the token is still good. The user cache, by
// contrast, fails open inside the resolver.
package sessions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/greenloop/backend/internal/common"
	"github.com/greenloop/backend/internal/kvstore"
	"github.com/greenloop/backend/internal/logging"
	"github.com/greenloop/backend/internal/server/config"
	"github.com/greenloop/backend/internal/server/tokens"
	"github.com/greenloop/backend/internal/server/users"
)

const (
	refreshKeyPrefix   = "refresh_token:"
	blacklistKeyPrefix = "token_blacklist:"
	blacklistValue     = "revoked"
)

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// UserResolver supplies identities during refresh and lets the manager
// drop stale snapshots after rotation.
type UserResolver interface {
	Resolve(ctx context.Context, userID string) (*users.User, error)
	Invalidate(ctx context.Context, userID string) error
}

// Manager mediates between the token codec and the key-value cache.
type Manager struct {
	kv            kvstore.Store
	resolver      UserResolver
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	opTimeout     time.Duration
	logger        logging.Logger
}

func NewManager(kv kvstore.Store, resolver UserResolver, cfg *config.Config, logger logging.Logger) *Manager {
	return &Manager{
		kv:            kv,
		resolver:      resolver,
		accessSecret:  []byte(cfg.AccessTokenSecret),
		refreshSecret: []byte(cfg.RefreshTokenSecret),
		accessTTL:     cfg.AccessTokenValidityDuration,
		refreshTTL:    cfg.RefreshTokenValidityDuration,
		opTimeout:     cfg.CacheOpTimeout,
		logger:        logger.With("module", "sessions"),
	}
}

// IssueAccessToken signs a short-lived access token for the user. No state
// is written; validity is determined later by signature, expiry, and
// blacklist membership.
func (m *Manager) IssueAccessToken(user *users.User) (string, error) {
	return tokens.SignAccess(user.ID, user.Role, m.accessSecret, m.accessTTL)
}

// IssueRefreshToken signs a refresh token with a fresh slot ID and commits
// that ID to the cache under the user's refresh slot, overwriting any prior
// value. The overwrite is the rotation point: the previous refresh token
// stops verifying the instant this write lands, regardless of its own
// expiry. The slot TTL resets to the full configured lifetime on every
// rotation (sliding window).
func (m *Manager) IssueRefreshToken(ctx context.Context, user *users.User) (string, error) {
	tokenID := uuid.NewString()

	signed, err := tokens.SignRefresh(user.ID, tokenID, m.refreshSecret, m.refreshTTL)
	if err != nil {
		return "", err
	}

	// The slot write must survive caller cancellation: a signed token with
	// no matching slot would be dead on arrival.
	opCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.opTimeout)
	defer cancel()

	if err := m.kv.Set(opCtx, refreshKey(user.ID), tokenID, m.refreshTTL); err != nil {
		return "", fmt.Errorf("%w: storing refresh slot: %v", common.ErrTokenGeneration, err)
	}

	return signed, nil
}

// ValidateAccessToken runs on every authenticated request: blacklist check
// first, then signature and expiry. A cache transport failure fails closed.
func (m *Manager) ValidateAccessToken(ctx context.Context, tokenString string) (*tokens.AccessClaims, error) {
	if !tokens.WellFormed(tokenString) {
		return nil, common.ErrTokenMalformed
	}

	opCtx, cancel := context.WithTimeout(ctx, m.opTimeout)
	defer cancel()

	revoked, err := m.kv.Exists(opCtx, blacklistKey(tokenString))
	if err != nil {
		return nil, fmt.Errorf("%w: blacklist check: %v", common.ErrUpstreamUnavailable, err)
	}
	if revoked {
		return nil, common.ErrTokenRevoked
	}

	return tokens.VerifyAccess(tokenString, m.accessSecret)
}

// ValidateRefreshToken verifies signature and expiry, then requires the
// embedded slot ID to match the stored slot exactly. A missing slot and a
// mismatched slot are the same condition: the token has been rotated away
// or explicitly revoked.
func (m *Manager) ValidateRefreshToken(ctx context.Context, tokenString string) (*tokens.RefreshClaims, error) {
	claims, err := tokens.VerifyRefresh(tokenString, m.refreshSecret)
	if err != nil {
		return nil, err
	}

	opCtx, cancel := context.WithTimeout(ctx, m.opTimeout)
	defer cancel()

	stored, err := m.kv.Get(opCtx, refreshKey(claims.Subject))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrTokenRevoked
		}
		return nil, fmt.Errorf("%w: refresh slot check: %v", common.ErrUpstreamUnavailable, err)
	}
	if stored != claims.TokenID {
		return nil, common.ErrTokenRevoked
	}

	return claims, nil
}

// Refresh validates the presented refresh token, re-resolves the user, and
// issues a new token pair, rotating the refresh slot. Validation happens
// strictly before any state change: a failed step leaves the old slot
// untouched. The cached user snapshot is invalidated so reads after the
// refresh see current role/points.
func (m *Manager) Refresh(ctx context.Context, refreshToken string) (*TokenPair, *users.User, error) {
	claims, err := m.ValidateRefreshToken(ctx, refreshToken)
	if err != nil {
		return nil, nil, err
	}

	if err := m.resolver.Invalidate(ctx, claims.Subject); err != nil {
		return nil, nil, fmt.Errorf("invalidating cached user: %w", err)
	}

	user, err := m.resolver.Resolve(ctx, claims.Subject)
	if err != nil {
		return nil, nil, err
	}

	access, err := m.IssueAccessToken(user)
	if err != nil {
		return nil, nil, err
	}

	refresh, err := m.IssueRefreshToken(ctx, user)
	if err != nil {
		return nil, nil, err
	}

	return &TokenPair{AccessToken: access, RefreshToken: refresh}, user, nil
}

// RevokeAccessToken blacklists the token for its remaining lifetime. The
// expiry claim is read without signature verification: a token being
// revoked may already be expired, and that is fine — an expired token
// needs no blacklist entry, so the blacklist never outlives the tokens it
// protects.
func (m *Manager) RevokeAccessToken(ctx context.Context, tokenString string) error {
	expiresAt, err := tokens.DecodeExpiryUnverified(tokenString)
	if err != nil {
		return err
	}

	remaining := time.Until(expiresAt)
	if remaining <= 0 {
		return nil
	}

	// A dropped revoke-write leaves a "revoked" token usable, so the write
	// proceeds even if the caller has gone away.
	opCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.opTimeout)
	defer cancel()

	if err := m.kv.Set(opCtx, blacklistKey(tokenString), blacklistValue, remaining); err != nil {
		return fmt.Errorf("%w: blacklist write: %v", common.ErrUpstreamUnavailable, err)
	}
	return nil
}

// RevokeRefreshSlot deletes the user's refresh slot. Idempotent.
func (m *Manager) RevokeRefreshSlot(ctx context.Context, userID string) error {
	opCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.opTimeout)
	defer cancel()

	if err := m.kv.Del(opCtx, refreshKey(userID)); err != nil {
		return fmt.Errorf("%w: refresh slot delete: %v", common.ErrUpstreamUnavailable, err)
	}
	return nil
}

// Logout is a best-effort composite: revoke the access token if one was
// presented, drop the refresh slot and cached snapshot if the user is
// known. Logging out an anonymous request is a no-op, not an error. Claim
// level defects in the presented token are ignored (the token is unusable
// anyway), but a cache failure during a revoke write still propagates — a
// silently dropped revoke would leave the token alive.
func (m *Manager) Logout(ctx context.Context, accessToken, userID string) error {
	if accessToken != "" {
		err := m.RevokeAccessToken(ctx, accessToken)
		switch {
		case err == nil:
		case errors.Is(err, common.ErrTokenMalformed), errors.Is(err, common.ErrTokenInvalid):
			m.logger.Debug(ctx, "skipping revoke of undecodable token", "error", err)
		default:
			return err
		}
	}

	if userID != "" {
		if err := m.RevokeRefreshSlot(ctx, userID); err != nil {
			return err
		}
		if err := m.resolver.Invalidate(ctx, userID); err != nil {
			m.logger.Warn(ctx, "failed to invalidate cached user on logout", "error", err, "user_id", userID)
		}
	}

	return nil
}

func refreshKey(userID string) string {
	return refreshKeyPrefix + userID
}

func blacklistKey(tokenString string) string {
	return blacklistKeyPrefix + tokenString
}
