package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/appconnect/internal/core/domain"
	"github.com/custodia-labs/appconnect/internal/core/ports/driven"
)

// Ensure MockAppStore implements AppStore
var _ driven.AppStore = (*MockAppStore)(nil)

// MockAppStore is an in-memory AppStore for testing.
// Records are copied on the way in and out.
type MockAppStore struct {
	mu     sync.RWMutex
	apps   map[string]*domain.App
	ledger *MockStatusLedger

	// Err, when set, is returned by every call
	Err error
}

// NewMockAppStore creates a new MockAppStore. When ledger is non-nil,
// Delete also clears the app's ledger entries.
func NewMockAppStore(ledger *MockStatusLedger) *MockAppStore {
	return &MockAppStore{
		apps:   make(map[string]*domain.App),
		ledger: ledger,
	}
}

func (m *MockAppStore) Create(ctx context.Context, app *domain.App) error {
	if m.Err != nil {
		return m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	id := uuid.NewString()
	for _, exists := m.apps[id]; exists; _, exists = m.apps[id] {
		id = uuid.NewString()
	}

	now := time.Now()
	app.ID = id
	app.CreatedAt = now
	app.UpdatedAt = now
	m.apps[id] = app.Clone()
	return nil
}

func (m *MockAppStore) Get(ctx context.Context, id string) (*domain.App, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	app, ok := m.apps[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return app.Clone(), nil
}

func (m *MockAppStore) Update(ctx context.Context, id string, app *domain.App) error {
	if m.Err != nil {
		return m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	app.ID = id
	app.UpdatedAt = time.Now()
	if existing, ok := m.apps[id]; ok {
		app.CreatedAt = existing.CreatedAt
	} else if app.CreatedAt.IsZero() {
		app.CreatedAt = app.UpdatedAt
	}
	m.apps[id] = app.Clone()
	return nil
}

func (m *MockAppStore) Delete(ctx context.Context, id string) (bool, error) {
	if id == "" {
		return false, nil
	}
	if _, err := uuid.Parse(id); err != nil {
		return false, nil
	}
	if m.Err != nil {
		return false, m.Err
	}

	m.mu.Lock()
	delete(m.apps, id)
	m.mu.Unlock()

	if m.ledger != nil {
		if err := m.ledger.DeleteAll(ctx, id); err != nil {
			return false, err
		}
	}
	return true, nil
}

func (m *MockAppStore) List(ctx context.Context) ([]*domain.App, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.App, 0, len(m.apps))
	for _, app := range m.apps {
		result = append(result, app.Clone())
	}
	return result, nil
}

// Put stores app as-is under its ID
func (m *MockAppStore) Put(app *domain.App) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.apps[app.ID] = app.Clone()
}

// Count returns the number of stored apps
func (m *MockAppStore) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.apps)
}
