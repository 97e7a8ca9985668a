package driven

import (
	"context"

	"github.com/custodia-labs/appconnect/internal/core/domain"
)

// StatusLedger records the outcome of each OAuth1 step per app (PostgreSQL).
type StatusLedger interface {
	// Set records status for the step. Last write wins.
	Set(ctx context.Context, appID string, step domain.ConnectionStep, status domain.StepStatus) error

	// GetAll returns every recorded step for the app.
	// Steps that were never attempted are absent from the map.
	GetAll(ctx context.Context, appID string) (map[domain.ConnectionStep]domain.StepStatus, error)

	// DeleteAll removes every entry for the app
	DeleteAll(ctx context.Context, appID string) error
}
