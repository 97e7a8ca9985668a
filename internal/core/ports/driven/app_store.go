package driven

import (
	"context"

	"github.com/custodia-labs/appconnect/internal/core/domain"
)

// AppStore persists connected app records keyed by app ID (PostgreSQL).
type AppStore interface {
	// Create assigns a fresh ID to app and stores it.
	// ID collisions are retried internally.
	Create(ctx context.Context, app *domain.App) error

	// Get retrieves an app by ID.
	// Returns domain.ErrNotFound if the app does not exist.
	Get(ctx context.Context, id string) (*domain.App, error)

	// Update upserts the app under id, writing id into the record.
	Update(ctx context.Context, id string, app *domain.App) error

	// Delete removes the app and all of its status ledger entries.
	// Returns false without touching storage when id is empty or malformed.
	Delete(ctx context.Context, id string) (bool, error)

	// List retrieves all apps, order unspecified
	List(ctx context.Context) ([]*domain.App, error)
}
