package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/custodia-labs/appconnect/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.TempSecretCache = (*SecretCache)(nil)

// SecretCache implements driven.TempSecretCache on the
// temp_credential_secrets table. Used when Redis is not configured.
// Expired rows are invisible to Get and removed by Cleanup.
type SecretCache struct {
	db        *DB
	encryptor *SecretEncryptor
}

// NewSecretCache creates a new SecretCache
func NewSecretCache(db *DB, encryptor *SecretEncryptor) *SecretCache {
	return &SecretCache{db: db, encryptor: encryptor}
}

func tempSecretAAD(appID, userID string) string {
	return "temp_creds_secret:" + appID + ":" + userID
}

// Put stores the secret for ttl. A non-positive ttl removes any entry.
func (c *SecretCache) Put(ctx context.Context, appID, userID, secret string, ttl time.Duration) error {
	if ttl <= 0 {
		return c.Delete(ctx, appID, userID)
	}

	sealed, err := c.encryptor.Seal(tempSecretAAD(appID, userID), secret)
	if err != nil {
		return fmt.Errorf("seal temp secret: %w", err)
	}

	query := `
		INSERT INTO temp_credential_secrets (app_id, user_id, secret, created_at, expires_at)
		VALUES ($1, $2, $3, NOW(), NOW() + make_interval(secs => $4))
		ON CONFLICT (app_id, user_id) DO UPDATE SET
			secret = EXCLUDED.secret,
			created_at = EXCLUDED.created_at,
			expires_at = EXCLUDED.expires_at
	`

	if _, err := c.db.ExecContext(ctx, query, appID, userID, sealed, ttl.Seconds()); err != nil {
		return fmt.Errorf("store temp secret: %w", err)
	}
	return nil
}

// Get returns the secret while it has not expired
func (c *SecretCache) Get(ctx context.Context, appID, userID string) (string, bool, error) {
	query := `
		SELECT secret
		FROM temp_credential_secrets
		WHERE app_id = $1 AND user_id = $2 AND expires_at > NOW()
	`

	var sealed []byte
	err := c.db.QueryRowContext(ctx, query, appID, userID).Scan(&sealed)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}

	var secret string
	if err := c.encryptor.Open(tempSecretAAD(appID, userID), sealed, &secret); err != nil {
		return "", false, fmt.Errorf("open temp secret: %w", err)
	}
	return secret, true, nil
}

// GetAndDelete removes the entry and returns its secret in one statement.
// An expired row is removed too but reported as not found.
func (c *SecretCache) GetAndDelete(ctx context.Context, appID, userID string) (string, bool, error) {
	query := `
		DELETE FROM temp_credential_secrets
		WHERE app_id = $1 AND user_id = $2
		RETURNING secret, expires_at > NOW()
	`

	var sealed []byte
	var live bool
	err := c.db.QueryRowContext(ctx, query, appID, userID).Scan(&sealed, &live)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("consume temp secret: %w", err)
	}
	if !live {
		return "", false, nil
	}

	var secret string
	if err := c.encryptor.Open(tempSecretAAD(appID, userID), sealed, &secret); err != nil {
		return "", false, fmt.Errorf("open temp secret: %w", err)
	}
	return secret, true, nil
}

// Delete removes the entry if present
func (c *SecretCache) Delete(ctx context.Context, appID, userID string) error {
	_, err := c.db.ExecContext(ctx,
		`DELETE FROM temp_credential_secrets WHERE app_id = $1 AND user_id = $2`,
		appID, userID,
	)
	return err
}

// Cleanup removes expired entries and returns how many were deleted
func (c *SecretCache) Cleanup(ctx context.Context) (int64, error) {
	result, err := c.db.ExecContext(ctx, `DELETE FROM temp_credential_secrets WHERE expires_at <= NOW()`)
	if err != nil {
		return 0, fmt.Errorf("cleanup temp secrets: %w", err)
	}
	return result.RowsAffected()
}
