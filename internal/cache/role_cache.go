package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/lakho/ecommerce-webservices/internal/model"
)

const userRolesPrefix = "user:roles:"

// RoleSource loads a user's role set from the source of truth.
type RoleSource interface {
	GetRoles(ctx context.Context, userID uuid.UUID) ([]model.Role, error)
}

// RoleCache is a cache-aside layer over role lookups. Reads check Redis
// first and fall back to the source on a miss, repopulating with a fixed
// TTL. Writes never update the cache in place; the queue consumer
// invalidates the entry after the triggering transaction commits and the
// next read repopulates from the database.
type RoleCache struct {
	store  Store
	source RoleSource
	ttl    time.Duration
}

func NewRoleCache(store Store, source RoleSource, ttl time.Duration) *RoleCache {
	return &RoleCache{store: store, source: source, ttl: ttl}
}

// GetRoles returns the user's role set, from cache when possible.
func (c *RoleCache) GetRoles(ctx context.Context, userID uuid.UUID) ([]model.Role, error) {
	key := userRolesPrefix + userID.String()

	if raw, err := c.store.Get(ctx, key); err == nil {
		var roles []model.Role
		if err := json.Unmarshal([]byte(raw), &roles); err == nil {
			return roles, nil
		}
		// Undecodable entry: drop it and fall through to the source.
		_ = c.store.Del(ctx, key)
	} else if !errors.Is(err, ErrMiss) {
		log.Printf("role-cache: read failed user_id=%s: %v", userID, err)
	}

	roles, err := c.source.GetRoles(ctx, userID)
	if err != nil {
		return nil, err
	}
	c.Warm(ctx, userID, roles)
	return roles, nil
}

// Warm populates the cache entry. Failures are logged and swallowed;
// caching is an optimization, never a dependency.
func (c *RoleCache) Warm(ctx context.Context, userID uuid.UUID, roles []model.Role) {
	raw, err := json.Marshal(roles)
	if err != nil {
		log.Printf("role-cache: marshal failed user_id=%s: %v", userID, err)
		return
	}
	if err := c.store.Set(ctx, userRolesPrefix+userID.String(), string(raw), c.ttl); err != nil {
		log.Printf("role-cache: populate failed user_id=%s: %v", userID, err)
	}
}

// Invalidate deletes the cached role set. Must only be called after the
// triggering database transaction has committed; invalidating earlier
// lets a concurrent reader repopulate the cache with pre-commit data
// that then survives until TTL expiry.
func (c *RoleCache) Invalidate(ctx context.Context, userID uuid.UUID) error {
	return c.store.Del(ctx, userRolesPrefix+userID.String())
}
