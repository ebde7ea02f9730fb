// Package cache persists the signed-in session token between runs of the
// UI process, the way a browser client keeps it in local storage.
package cache

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrNoSession indicates no token is persisted.
var ErrNoSession = errors.New("no persisted session")

// SessionStore saves, loads and clears the current session token.
type SessionStore interface {
	Load(ctx context.Context) (string, error)
	Save(ctx context.Context, token string, ttl time.Duration) error
	Clear(ctx context.Context) error
}

// Memory keeps the token in process memory.
type Memory struct {
	mu      sync.Mutex
	token   string
	expires time.Time
	now     func() time.Time
}

// NewMemory returns an empty in-memory session store.
func NewMemory() *Memory {
	return &Memory{now: time.Now}
}

func (m *Memory) Load(_ context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.token == "" || !m.expires.After(m.now()) {
		m.token = ""
		return "", ErrNoSession
	}
	return m.token, nil
}

func (m *Memory) Save(_ context.Context, token string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
	m.expires = m.now().Add(ttl)
	return nil
}

func (m *Memory) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = ""
	return nil
}
