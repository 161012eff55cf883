package question

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Open Trivia DB drops session tokens after six hours of inactivity.
const defaultTokenTTL = 6 * time.Hour

// TokenCache keeps one Open Trivia DB session token per server so repeated
// imports never return a question twice.
type TokenCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewTokenCache(client *redis.Client, ttl time.Duration) *TokenCache {
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	return &TokenCache{client: client, ttl: ttl}
}

func (c *TokenCache) key(serverID string) string {
	return "trivia:opentdb:token:" + serverID
}

// Get returns an empty string when no token is cached.
func (c *TokenCache) Get(ctx context.Context, serverID string) (string, error) {
	token, err := c.client.Get(ctx, c.key(serverID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return token, err
}

func (c *TokenCache) Set(ctx context.Context, serverID, token string) error {
	return c.client.Set(ctx, c.key(serverID), token, c.ttl).Err()
}

func (c *TokenCache) Delete(ctx context.Context, serverID string) error {
	return c.client.Del(ctx, c.key(serverID)).Err()
}
