package kvstore

import (
	"context"
	"sync"
	"time"

	"github.com/greenloop/backend/internal/common"
)

type memoryEntry struct {
	value     string
	expiresAt time.Time // zero means no expiration
}

// Memory is an in-process Store used by tests and local development.
// Expired entries are dropped lazily on access.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
}

var _ Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{entries: make(map[string]memoryEntry)}
}

func (m *Memory) Get(ctx context.Context, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()

	if !ok || m.expired(e) {
		return "", common.ErrorNotFound
	}
	return e.value, nil
}

func (m *Memory) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	e := memoryEntry{value: value}
	if ttl > 0 {
		e.expiresAt = time.Now().Add(ttl)
	}

	m.mu.Lock()
	m.entries[key] = e
	m.mu.Unlock()
	return nil
}

func (m *Memory) Del(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
	return nil
}

func (m *Memory) Exists(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()

	return ok && !m.expired(e), nil
}

func (m *Memory) expired(e memoryEntry) bool {
	return !e.expiresAt.IsZero() && time.Now().After(e.expiresAt)
}
