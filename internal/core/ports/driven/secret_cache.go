package driven

import (
	"context"
	"time"
)

// TempSecretCache holds the temporary token secret between the outward
// leg and the return leg of an authorization flow.
// Entries are scoped to (app ID, user ID) and expire after their TTL.
type TempSecretCache interface {
	// Put stores the secret, replacing any previous entry for the pair.
	// A non-positive ttl stores nothing.
	Put(ctx context.Context, appID, userID, secret string, ttl time.Duration) error

	// Get returns the secret and true, or false when it was never set or has expired.
	Get(ctx context.Context, appID, userID string) (string, bool, error)

	// GetAndDelete atomically reads and removes the secret. Concurrent callers
	// for the same pair see it at most once. Expired entries are removed and
	// reported as not found.
	GetAndDelete(ctx context.Context, appID, userID string) (string, bool, error)

	// Delete removes the entry. Missing entries are not an error.
	Delete(ctx context.Context, appID, userID string) error
}

// ExpiredSecretSweeper removes expired entries from caches that do not
// expire keys on their own (PostgreSQL).
type ExpiredSecretSweeper interface {
	// Cleanup deletes expired entries and returns how many were removed
	Cleanup(ctx context.Context) (int64, error)
}
