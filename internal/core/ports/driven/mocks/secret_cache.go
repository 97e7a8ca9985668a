package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/custodia-labs/appconnect/internal/core/ports/driven"
)

// Ensure MockSecretCache implements TempSecretCache
var _ driven.TempSecretCache = (*MockSecretCache)(nil)

type cachedSecret struct {
	secret    string
	expiresAt time.Time
}

// MockSecretCache is an in-memory TempSecretCache with a controllable clock
type MockSecretCache struct {
	mu      sync.Mutex
	entries map[string]cachedSecret
	now     time.Time
}

// NewMockSecretCache creates a new MockSecretCache starting at the current time
func NewMockSecretCache() *MockSecretCache {
	return &MockSecretCache{
		entries: make(map[string]cachedSecret),
		now:     time.Now(),
	}
}

func cacheKey(appID, userID string) string {
	return appID + "\x00" + userID
}

func (m *MockSecretCache) Put(ctx context.Context, appID, userID, secret string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ttl <= 0 {
		delete(m.entries, cacheKey(appID, userID))
		return nil
	}
	m.entries[cacheKey(appID, userID)] = cachedSecret{secret: secret, expiresAt: m.now.Add(ttl)}
	return nil
}

func (m *MockSecretCache) Get(ctx context.Context, appID, userID string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.entries[cacheKey(appID, userID)]
	if !ok || !m.now.Before(entry.expiresAt) {
		return "", false, nil
	}
	return entry.secret, true, nil
}

func (m *MockSecretCache) GetAndDelete(ctx context.Context, appID, userID string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := cacheKey(appID, userID)
	entry, ok := m.entries[key]
	delete(m.entries, key)
	if !ok || !m.now.Before(entry.expiresAt) {
		return "", false, nil
	}
	return entry.secret, true, nil
}

func (m *MockSecretCache) Delete(ctx context.Context, appID, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, cacheKey(appID, userID))
	return nil
}

// Advance moves the cache clock forward
func (m *MockSecretCache) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.Add(d)
}

// Len returns the number of entries, expired ones included
func (m *MockSecretCache) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
