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

const (
	userDataByIDPrefix    = "user:data:id:"
	userDataByEmailPrefix = "user:data:email:"
)

// UserDataCache stores the denormalized user projection under two keys,
// one per lookup path (id and email), both pointing at the same value.
// The projection excludes the password hash. The pair is kept consistent:
// invalidating through either key looks up and deletes the other.
type UserDataCache struct {
	store Store
	ttl   time.Duration
}

func NewUserDataCache(store Store, ttl time.Duration) *UserDataCache {
	return &UserDataCache{store: store, ttl: ttl}
}

// Cache writes the projection under both keys. Failures are logged and
// swallowed; the database remains the source of truth.
func (c *UserDataCache) Cache(ctx context.Context, data model.CachedUserData) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	if err := c.store.Set(ctx, userDataByIDPrefix+data.ID.String(), string(raw), c.ttl); err != nil {
		return err
	}
	return c.store.Set(ctx, userDataByEmailPrefix+data.Email, string(raw), c.ttl)
}

// GetByID returns the cached projection, or false on a miss.
func (c *UserDataCache) GetByID(ctx context.Context, id uuid.UUID) (model.CachedUserData, bool) {
	return c.get(ctx, userDataByIDPrefix+id.String())
}

// GetByEmail returns the cached projection, or false on a miss.
func (c *UserDataCache) GetByEmail(ctx context.Context, email string) (model.CachedUserData, bool) {
	return c.get(ctx, userDataByEmailPrefix+email)
}

func (c *UserDataCache) get(ctx context.Context, key string) (model.CachedUserData, bool) {
	raw, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrMiss) {
			log.Printf("user-cache: read failed key=%s: %v", key, err)
		}
		return model.CachedUserData{}, false
	}
	var data model.CachedUserData
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		_ = c.store.Del(ctx, key)
		return model.CachedUserData{}, false
	}
	return data, true
}

// InvalidateByID drops both entries for the user. The id-keyed entry is
// read first to learn the email key; if it is already gone there is
// nothing email-keyed left to pair it with from this side.
func (c *UserDataCache) InvalidateByID(ctx context.Context, id uuid.UUID) error {
	keys := []string{userDataByIDPrefix + id.String()}
	if data, ok := c.GetByID(ctx, id); ok {
		keys = append(keys, userDataByEmailPrefix+data.Email)
	}
	return c.store.Del(ctx, keys...)
}

// InvalidateByEmail drops both entries for the user, resolving the id key
// through the email-keyed entry.
func (c *UserDataCache) InvalidateByEmail(ctx context.Context, email string) error {
	keys := []string{userDataByEmailPrefix + email}
	if data, ok := c.GetByEmail(ctx, email); ok {
		keys = append(keys, userDataByIDPrefix+data.ID.String())
	}
	return c.store.Del(ctx, keys...)
}
