package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/custodia-labs/appconnect/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.TempSecretCache = (*SecretCache)(nil)

// secretPrefix namespaces temporary token secrets
const secretPrefix = "appconnect:temp_creds_secret:"

// SecretCache implements driven.TempSecretCache using Redis.
// Entries expire through the Redis key TTL.
type SecretCache struct {
	client *redis.Client
}

// NewSecretCache creates a new Redis-backed SecretCache
func NewSecretCache(client *redis.Client) *SecretCache {
	return &SecretCache{client: client}
}

func secretKey(appID, userID string) string {
	return secretPrefix + appID + ":" + userID
}

// Put stores the secret with ttl, replacing any previous value
func (c *SecretCache) Put(ctx context.Context, appID, userID, secret string, ttl time.Duration) error {
	if ttl <= 0 {
		return c.Delete(ctx, appID, userID)
	}
	if err := c.client.Set(ctx, secretKey(appID, userID), secret, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store temp secret: %w", err)
	}
	return nil
}

// Get returns the secret, or false once the key has expired
func (c *SecretCache) Get(ctx context.Context, appID, userID string) (string, bool, error) {
	secret, err := c.client.Get(ctx, secretKey(appID, userID)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read temp secret: %w", err)
	}
	return secret, true, nil
}

// GetAndDelete reads and removes the secret with a single GETDEL
func (c *SecretCache) GetAndDelete(ctx context.Context, appID, userID string) (string, bool, error) {
	secret, err := c.client.GetDel(ctx, secretKey(appID, userID)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to consume temp secret: %w", err)
	}
	return secret, true, nil
}

// Delete removes the secret
func (c *SecretCache) Delete(ctx context.Context, appID, userID string) error {
	if err := c.client.Del(ctx, secretKey(appID, userID)).Err(); err != nil {
		return fmt.Errorf("failed to delete temp secret: %w", err)
	}
	return nil
}

// Ping checks if Redis is reachable
func (c *SecretCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
