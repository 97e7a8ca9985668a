package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/custodia-labs/appconnect/internal/core/domain"
	"github.com/custodia-labs/appconnect/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.StatusLedger = (*StatusLedger)(nil)

// StatusLedger implements driven.StatusLedger. Entries live next to the app
// records under app_status_<id><step>.
type StatusLedger struct {
	db *DB
}

// NewStatusLedger creates a new StatusLedger
func NewStatusLedger(db *DB) *StatusLedger {
	return &StatusLedger{db: db}
}

// Set records the step outcome, replacing any earlier one
func (l *StatusLedger) Set(ctx context.Context, appID string, step domain.ConnectionStep, status domain.StepStatus) error {
	if appID == "" || !step.IsValid() || !status.IsValid() {
		return domain.ErrInvalidInput
	}

	query := `
		INSERT INTO connected_app_options (option_name, option_value, created_at, updated_at)
		VALUES ($1, $2, $3, $3)
		ON CONFLICT (option_name) DO UPDATE SET
			option_value = EXCLUDED.option_value,
			updated_at = EXCLUDED.updated_at
	`

	if _, err := l.db.ExecContext(ctx, query, statusKey(appID, step), []byte(status), time.Now()); err != nil {
		return fmt.Errorf("set step status: %w", err)
	}
	return nil
}

// GetAll returns the recorded steps of the app
func (l *StatusLedger) GetAll(ctx context.Context, appID string) (map[domain.ConnectionStep]domain.StepStatus, error) {
	query := `
		SELECT option_name, option_value
		FROM connected_app_options
		WHERE option_name = ANY($1)
	`

	byKey := make(map[string]domain.ConnectionStep)
	for _, step := range domain.ConnectionSteps() {
		byKey[statusKey(appID, step)] = step
	}

	rows, err := l.db.QueryContext(ctx, query, pq.Array(statusKeys(appID)))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	statuses := make(map[domain.ConnectionStep]domain.StepStatus)
	for rows.Next() {
		var name string
		var value []byte
		if err := rows.Scan(&name, &value); err != nil {
			return nil, err
		}
		statuses[byKey[name]] = domain.StepStatus(value)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return statuses, nil
}

// DeleteAll removes every ledger entry of the app
func (l *StatusLedger) DeleteAll(ctx context.Context, appID string) error {
	_, err := l.db.ExecContext(ctx,
		`DELETE FROM connected_app_options WHERE option_name = ANY($1)`,
		pq.Array(statusKeys(appID)),
	)
	if err != nil {
		return fmt.Errorf("clear step statuses: %w", err)
	}
	return nil
}
