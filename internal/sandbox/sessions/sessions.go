// Package sessions stores the sandbox's server-side session state keyed
// by the opaque token carried in the session cookie.
package sessions

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound indicates an unknown or expired session token.
var ErrNotFound = errors.New("session not found")

// Store persists session tokens.
type Store interface {
	Create(ctx context.Context, accountID string) (string, error)
	Get(ctx context.Context, token string) (string, error)
	Delete(ctx context.Context, token string) error
}

type memoryEntry struct {
	accountID string
	expiresAt time.Time
}

// MemoryStore keeps sessions in process memory, the sandbox default.
type MemoryStore struct {
	ttl time.Duration

	mu      sync.Mutex
	entries map[string]memoryEntry
}

// NewMemory builds an in-memory session store with the given TTL.
func NewMemory(ttl time.Duration) *MemoryStore {
	return &MemoryStore{ttl: ttl, entries: make(map[string]memoryEntry)}
}

func (m *MemoryStore) Create(_ context.Context, accountID string) (string, error) {
	token := uuid.NewString()
	m.mu.Lock()
	m.entries[token] = memoryEntry{accountID: accountID, expiresAt: time.Now().Add(m.ttl)}
	m.mu.Unlock()
	return token, nil
}

func (m *MemoryStore) Get(_ context.Context, token string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.entries[token]
	if !ok {
		return "", ErrNotFound
	}
	if time.Now().After(entry.expiresAt) {
		delete(m.entries, token)
		return "", ErrNotFound
	}
	return entry.accountID, nil
}

func (m *MemoryStore) Delete(_ context.Context, token string) error {
	m.mu.Lock()
	delete(m.entries, token)
	m.mu.Unlock()
	return nil
}
