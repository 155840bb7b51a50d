package cache

import (
	"context"
	"fmt"
	"time"

	redisv9 "github.com/redis/go-redis/v9"
)

// RevocationCache records access tokens that were invalidated before their
// natural expiry (logout). Only revoked tokens are stored; absence of a key
// is not proof of validity, so callers must still verify signature and expiry
// on every request.
type RevocationCache struct {
	client *redisv9.Client
}

func NewRevocationCache(client *redisv9.Client) *RevocationCache {
	return &RevocationCache{client: client}
}

// Revoke marks the token id revoked for ttl, after which the token has
// expired anyway and the entry may drop out.
func (c *RevocationCache) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = time.Second
	}
	if err := c.client.Set(ctx, c.key(jti), "1", ttl).Err(); err != nil {
		return fmt.Errorf("redis set revoked token failed: %w", err)
	}
	return nil
}

func (c *RevocationCache) IsRevoked(ctx context.Context, jti string) (bool, error) {
	exists, err := c.client.Exists(ctx, c.key(jti)).Result()
	if err != nil {
		return false, fmt.Errorf("redis check revoked token failed: %w", err)
	}
	return exists > 0, nil
}

func (c *RevocationCache) key(jti string) string {
	return fmt.Sprintf("auth:revoked:%s", jti)
}
