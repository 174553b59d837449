package cache

import (
	"context"
	"log"
	"time"
)

const (
	accessTokenPrefix  = "jwt:access:"
	refreshTokenPrefix = "jwt:refresh:"
)

// TokenCache is the side-index of currently live access and refresh tokens.
// A signed token is honored by the request gate only while its entry exists
// here, which makes logout and rotation effective before the token's own
// expiry. Entries carry a TTL equal to the token's remaining validity, so
// the cache and the token's cryptographic lifetime expire together and the
// cache need not be durable: a flush only forces reauthentication.
type TokenCache struct {
	store Store
}

func NewTokenCache(store Store) *TokenCache { return &TokenCache{store: store} }

// RecordAccess marks an access token as live for its remaining lifetime.
// The stored value is the subject email, usable for diagnostics.
func (c *TokenCache) RecordAccess(ctx context.Context, token, email string, ttl time.Duration) error {
	return c.record(ctx, accessTokenPrefix+token, email, ttl)
}

// RecordRefresh marks a refresh token as live for its remaining lifetime.
func (c *TokenCache) RecordRefresh(ctx context.Context, token, email string, ttl time.Duration) error {
	return c.record(ctx, refreshTokenPrefix+token, email, ttl)
}

func (c *TokenCache) record(ctx context.Context, key, email string, ttl time.Duration) error {
	if ttl <= 0 {
		log.Printf("token-cache: refusing to record already-expired token email=%s", email)
		return nil
	}
	return c.store.Set(ctx, key, email, ttl)
}

// IsAccessLive reports whether an access token is still honored. A cache
// error is treated as not live; the caller will reauthenticate.
func (c *TokenCache) IsAccessLive(ctx context.Context, token string) bool {
	return c.isLive(ctx, accessTokenPrefix+token)
}

// IsRefreshLive reports whether a refresh token is still honored.
func (c *TokenCache) IsRefreshLive(ctx context.Context, token string) bool {
	return c.isLive(ctx, refreshTokenPrefix+token)
}

func (c *TokenCache) isLive(ctx context.Context, key string) bool {
	ok, err := c.store.Exists(ctx, key)
	if err != nil {
		log.Printf("token-cache: existence check failed: %v", err)
		return false
	}
	return ok
}

// RevokeAccess drops an access token. Concurrent requests presenting the
// same token are rejected as soon as the delete lands.
func (c *TokenCache) RevokeAccess(ctx context.Context, token string) error {
	return c.store.Del(ctx, accessTokenPrefix+token)
}

// RevokeRefresh drops a refresh token; used for rotation on refresh.
func (c *TokenCache) RevokeRefresh(ctx context.Context, token string) error {
	return c.store.Del(ctx, refreshTokenPrefix+token)
}
