package state

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/m3rciful/shopbot/core/logger"
)

type memoryEntry struct {
	raw       []byte
	updatedAt time.Time
}

// MemoryStore is an in-process Store. Sessions are stored serialized so callers
// never share slices or maps with the stored copy.
type MemoryStore[T any] struct {
	mu       sync.RWMutex
	sessions map[int64]memoryEntry
	ttl      time.Duration
	now      func() time.Time
}

// NewMemoryStore constructs an in-memory store; ttl <= 0 disables expiry.
func NewMemoryStore[T any](ttl time.Duration) *MemoryStore[T] {
	return &MemoryStore[T]{
		sessions: make(map[int64]memoryEntry),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Get returns the session for a user if it exists and has not expired, otherwise an idle session.
func (m *MemoryStore[T]) Get(_ context.Context, userID int64) (Session[T], error) {
	m.mu.RLock()
	entry, ok := m.sessions[userID]
	m.mu.RUnlock()

	if !ok || m.expired(entry) {
		return idle[T](), nil
	}
	var s Session[T]
	if err := json.Unmarshal(entry.raw, &s); err != nil {
		return idle[T](), fmt.Errorf("state: decode session %d: %w", userID, err)
	}
	return s, nil
}

// Put replaces the user's session. An idle session clears the entry.
func (m *MemoryStore[T]) Put(ctx context.Context, userID int64, s Session[T]) error {
	if s.Idle() {
		return m.Clear(ctx, userID)
	}
	now := m.now()
	s.UpdatedAt = now
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("state: encode session %d: %w", userID, err)
	}
	m.mu.Lock()
	m.sessions[userID] = memoryEntry{raw: raw, updatedAt: now}
	m.mu.Unlock()
	return nil
}

// Clear removes the entire session for a user.
func (m *MemoryStore[T]) Clear(_ context.Context, userID int64) error {
	m.mu.Lock()
	delete(m.sessions, userID)
	m.mu.Unlock()
	return nil
}

// InProgress reports whether the user currently has a live non-idle session.
func (m *MemoryStore[T]) InProgress(_ context.Context, userID int64) bool {
	m.mu.RLock()
	entry, ok := m.sessions[userID]
	m.mu.RUnlock()
	return ok && !m.expired(entry)
}

// Len returns the number of stored sessions, expired ones included.
func (m *MemoryStore[T]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Sweep drops expired sessions and returns how many were removed.
func (m *MemoryStore[T]) Sweep() int {
	if m.ttl <= 0 {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for id, entry := range m.sessions {
		if m.expired(entry) {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed
}

// RunJanitor sweeps expired sessions every interval until ctx is done.
func (m *MemoryStore[T]) RunJanitor(ctx context.Context, interval time.Duration) {
	if m.ttl <= 0 || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := m.Sweep(); n > 0 {
				logger.Debug(ctx, logger.CompTG, "session.sweep",
					slog.Int("count", n),
				)
			}
		}
	}
}

func (m *MemoryStore[T]) expired(e memoryEntry) bool {
	return m.ttl > 0 && m.now().Sub(e.updatedAt) > m.ttl
}
