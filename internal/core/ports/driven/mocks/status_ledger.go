package mocks

import (
	"context"
	"sync"

	"github.com/custodia-labs/appconnect/internal/core/domain"
	"github.com/custodia-labs/appconnect/internal/core/ports/driven"
)

// Ensure MockStatusLedger implements StatusLedger
var _ driven.StatusLedger = (*MockStatusLedger)(nil)

// MockStatusLedger is an in-memory StatusLedger for testing
type MockStatusLedger struct {
	mu      sync.RWMutex
	entries map[string]map[domain.ConnectionStep]domain.StepStatus
}

// NewMockStatusLedger creates a new MockStatusLedger
func NewMockStatusLedger() *MockStatusLedger {
	return &MockStatusLedger{
		entries: make(map[string]map[domain.ConnectionStep]domain.StepStatus),
	}
}

func (m *MockStatusLedger) Set(ctx context.Context, appID string, step domain.ConnectionStep, status domain.StepStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	steps, ok := m.entries[appID]
	if !ok {
		steps = make(map[domain.ConnectionStep]domain.StepStatus)
		m.entries[appID] = steps
	}
	steps[step] = status
	return nil
}

func (m *MockStatusLedger) GetAll(ctx context.Context, appID string) (map[domain.ConnectionStep]domain.StepStatus, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make(map[domain.ConnectionStep]domain.StepStatus, len(m.entries[appID]))
	for step, status := range m.entries[appID] {
		result[step] = status
	}
	return result, nil
}

func (m *MockStatusLedger) DeleteAll(ctx context.Context, appID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, appID)
	return nil
}

// Status returns the recorded status of one step, or "" when absent
func (m *MockStatusLedger) Status(appID string, step domain.ConnectionStep) domain.StepStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.entries[appID][step]
}
