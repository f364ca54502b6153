// Package users resolves user identities through a read-through cache in
// front of the credential store.
package users

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/greenloop/backend/internal/common"
	"github.com/greenloop/backend/internal/kvstore"
	"github.com/greenloop/backend/internal/logging"
	"github.com/greenloop/backend/internal/server/credstore"
)

const userKeyPrefix = "user:"

// Resolver is a read-through cache over the credential store. Cache
// failures on the read path are recovered by falling through to the store
// (fail open), but always logged; store failures surface as
// common.ErrUpstreamUnavailable and are never cached.
type Resolver struct {
	store     credstore.Store
	cache     kvstore.Store
	cacheTTL  time.Duration
	opTimeout time.Duration
	logger    logging.Logger
}

func NewResolver(store credstore.Store, cache kvstore.Store, cacheTTL, opTimeout time.Duration, logger logging.Logger) *Resolver {
	return &Resolver{
		store:     store,
		cache:     cache,
		cacheTTL:  cacheTTL,
		opTimeout: opTimeout,
		logger:    logger.With("module", "user_resolver"),
	}
}

// Resolve returns the user with the given ID, serving from cache when
// possible. Zero upstream matches yield common.ErrorNotFound and leave no
// cache entry behind.
func (r *Resolver) Resolve(ctx context.Context, userID string) (*User, error) {
	if cached := r.fromCache(ctx, userID); cached != nil {
		return cached, nil
	}

	rec, err := r.store.FindFirst(ctx, credstore.Filter{Field: credstore.FieldUserID, Value: userID})
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("credential store lookup: %w", err)
	}

	user := FromRecord(rec)
	r.toCache(ctx, userID, user)
	return user, nil
}

// Invalidate drops the cached snapshot so the next Resolve re-queries the
// store. Invalidating an uncached user is a no-op.
func (r *Resolver) Invalidate(ctx context.Context, userID string) error {
	opCtx, cancel := context.WithTimeout(ctx, r.opTimeout)
	defer cancel()

	if err := r.cache.Del(opCtx, userKey(userID)); err != nil {
		return fmt.Errorf("%w: cache invalidate: %v", common.ErrUpstreamUnavailable, err)
	}
	return nil
}

func (r *Resolver) fromCache(ctx context.Context, userID string) *User {
	opCtx, cancel := context.WithTimeout(ctx, r.opTimeout)
	defer cancel()

	raw, err := r.cache.Get(opCtx, userKey(userID))
	if err != nil {
		if !errors.Is(err, common.ErrorNotFound) {
			r.logger.Warn(ctx, "user cache read failed, falling through to store", "error", err, "user_id", userID)
		}
		return nil
	}

	user := &User{}
	if err := json.Unmarshal([]byte(raw), user); err != nil {
		r.logger.Warn(ctx, "corrupt cached user, falling through to store", "error", err, "user_id", userID)
		return nil
	}
	return user
}

func (r *Resolver) toCache(ctx context.Context, userID string, user *User) {
	data, err := json.Marshal(user)
	if err != nil {
		r.logger.Warn(ctx, "failed to marshal user for cache", "error", err, "user_id", userID)
		return
	}

	opCtx, cancel := context.WithTimeout(ctx, r.opTimeout)
	defer cancel()

	// A failed cache write only costs the next lookup a store round trip.
	if err := r.cache.Set(opCtx, userKey(userID), string(data), r.cacheTTL); err != nil {
		r.logger.Warn(ctx, "user cache write failed", "error", err, "user_id", userID)
	}
}

func userKey(userID string) string {
	return userKeyPrefix + userID
}
