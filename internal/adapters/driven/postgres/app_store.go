package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/custodia-labs/appconnect/internal/core/domain"
	"github.com/custodia-labs/appconnect/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.AppStore = (*AppStore)(nil)

const (
	configKeyPrefix = "app_config_"
	statusKeyPrefix = "app_status_"

	// maxCreateAttempts bounds the retries on an ID collision
	maxCreateAttempts = 3
)

func configKey(appID string) string {
	return configKeyPrefix + appID
}

func statusKey(appID string, step domain.ConnectionStep) string {
	return statusKeyPrefix + appID + string(step)
}

// statusKeys returns the ledger option names for every step of the app
func statusKeys(appID string) []string {
	steps := domain.ConnectionSteps()
	keys := make([]string, 0, len(steps))
	for _, step := range steps {
		keys = append(keys, statusKey(appID, step))
	}
	return keys
}

// appRecord is the JSON stored under app_config_<id>.
// Secrets holds the sealed appSecrets.
type appRecord struct {
	ID          string           `json:"app_id"`
	Name        string           `json:"app_name"`
	APIURL      string           `json:"api_url"`
	Type        domain.AppType   `json:"app_type"`
	ConsumerKey string           `json:"consumer_key,omitempty"`
	Status      domain.AppStatus `json:"status"`
	Secrets     []byte           `json:"secrets,omitempty"`
}

// appSecrets is the part of an app that never leaves the database in clear
type appSecrets struct {
	ConsumerSecret    string                    `json:"consumer_secret,omitempty"`
	AccessCredentials *domain.AccessCredentials `json:"access_credentials,omitempty"`
}

// AppStore implements driven.AppStore on the connected_app_options table
type AppStore struct {
	db        *DB
	encryptor *SecretEncryptor
	newID     func() string
}

// NewAppStore creates a new AppStore
func NewAppStore(db *DB, encryptor *SecretEncryptor) *AppStore {
	return &AppStore{
		db:        db,
		encryptor: encryptor,
		newID:     uuid.NewString,
	}
}

// Create assigns a fresh ID and inserts the app
func (s *AppStore) Create(ctx context.Context, app *domain.App) error {
	query := `
		INSERT INTO connected_app_options (option_name, option_value, created_at, updated_at)
		VALUES ($1, $2, $3, $3)
	`

	now := time.Now()
	for attempt := 0; attempt < maxCreateAttempts; attempt++ {
		id := s.newID()
		value, err := s.encode(id, app)
		if err != nil {
			return err
		}

		_, err = s.db.ExecContext(ctx, query, configKey(id), value, now)
		if isUniqueViolation(err) {
			continue
		}
		if err != nil {
			return fmt.Errorf("insert app: %w", err)
		}

		app.ID = id
		app.CreatedAt = now
		app.UpdatedAt = now
		return nil
	}
	return domain.ErrAlreadyExists
}

// Get retrieves an app by ID
func (s *AppStore) Get(ctx context.Context, id string) (*domain.App, error) {
	query := `
		SELECT option_value, created_at, updated_at
		FROM connected_app_options
		WHERE option_name = $1
	`

	var value []byte
	var createdAt, updatedAt time.Time
	err := s.db.QueryRowContext(ctx, query, configKey(id)).Scan(&value, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return s.decode(id, value, createdAt, updatedAt)
}

// Update upserts the app under id. The creation time of an existing
// record is kept.
func (s *AppStore) Update(ctx context.Context, id string, app *domain.App) error {
	query := `
		INSERT INTO connected_app_options (option_name, option_value, created_at, updated_at)
		VALUES ($1, $2, $3, $3)
		ON CONFLICT (option_name) DO UPDATE SET
			option_value = EXCLUDED.option_value,
			updated_at = EXCLUDED.updated_at
		RETURNING created_at
	`

	value, err := s.encode(id, app)
	if err != nil {
		return err
	}

	now := time.Now()
	var createdAt time.Time
	if err := s.db.QueryRowContext(ctx, query, configKey(id), value, now).Scan(&createdAt); err != nil {
		return fmt.Errorf("upsert app: %w", err)
	}

	app.ID = id
	app.CreatedAt = createdAt
	app.UpdatedAt = now
	return nil
}

// Delete removes the app record and its ledger entries in one transaction
func (s *AppStore) Delete(ctx context.Context, id string) (bool, error) {
	if id == "" {
		return false, nil
	}
	if _, err := uuid.Parse(id); err != nil {
		return false, nil
	}

	keys := append([]string{configKey(id)}, statusKeys(id)...)
	err := s.db.Transaction(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`DELETE FROM connected_app_options WHERE option_name = ANY($1)`,
			pq.Array(keys),
		)
		return err
	})
	if err != nil {
		return false, fmt.Errorf("delete app: %w", err)
	}
	return true, nil
}

// List retrieves all apps in creation order
func (s *AppStore) List(ctx context.Context) ([]*domain.App, error) {
	query := `
		SELECT option_name, option_value, created_at, updated_at
		FROM connected_app_options
		WHERE option_name LIKE 'app\_config\_%'
		ORDER BY created_at, option_name
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var apps []*domain.App
	for rows.Next() {
		var name string
		var value []byte
		var createdAt, updatedAt time.Time
		if err := rows.Scan(&name, &value, &createdAt, &updatedAt); err != nil {
			return nil, err
		}

		app, err := s.decode(name[len(configKeyPrefix):], value, createdAt, updatedAt)
		if err != nil {
			return nil, err
		}
		apps = append(apps, app)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return apps, nil
}

func (s *AppStore) encode(id string, app *domain.App) ([]byte, error) {
	rec := appRecord{
		ID:          id,
		Name:        app.Name,
		APIURL:      app.APIURL,
		Type:        app.Type,
		ConsumerKey: app.ConsumerKey,
		Status:      app.Status,
	}

	if app.ConsumerSecret != "" || app.AccessCredentials != nil {
		sealed, err := s.encryptor.Seal(configKey(id), appSecrets{
			ConsumerSecret:    app.ConsumerSecret,
			AccessCredentials: app.AccessCredentials,
		})
		if err != nil {
			return nil, fmt.Errorf("seal app secrets: %w", err)
		}
		rec.Secrets = sealed
	}

	value, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("marshal app: %w", err)
	}
	return value, nil
}

func (s *AppStore) decode(id string, value []byte, createdAt, updatedAt time.Time) (*domain.App, error) {
	var rec appRecord
	if err := json.Unmarshal(value, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal app %s: %w", id, err)
	}

	app := &domain.App{
		ID:          id,
		Name:        rec.Name,
		APIURL:      rec.APIURL,
		Type:        rec.Type,
		ConsumerKey: rec.ConsumerKey,
		Status:      rec.Status,
		CreatedAt:   createdAt,
		UpdatedAt:   updatedAt,
	}

	if len(rec.Secrets) > 0 {
		var secrets appSecrets
		if err := s.encryptor.Open(configKey(id), rec.Secrets, &secrets); err != nil {
			return nil, fmt.Errorf("open app %s secrets: %w", id, err)
		}
		app.ConsumerSecret = secrets.ConsumerSecret
		app.AccessCredentials = secrets.AccessCredentials
	}
	return app, nil
}
