package session

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Manager tracks live sessions by id
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewManager() *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
	}
}

// Start creates and registers a new session
func (m *Manager) Start() *Session {
	sess := New()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[sess.ID] = sess
	return sess
}

func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sess, exists := m.sessions[id]
	return sess, exists
}

// Cancel discards a session. Images it already uploaded stay in storage.
func (m *Manager) Cancel(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, exists := m.sessions[id]
	if !exists {
		return ErrSessionNotFound
	}
	sess.cancel()
	delete(m.sessions, id)
	return nil
}

func (m *Manager) Remove(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
}

func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Prune cancels sessions created before cutoff and returns how many were
// dropped
func (m *Manager) Prune(cutoff time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	dropped := 0
	for id, sess := range m.sessions {
		if sess.CreatedAt.Before(cutoff) {
			sess.cancel()
			delete(m.sessions, id)
			dropped++
		}
	}
	return dropped
}

// RunCleanup prunes abandoned sessions every interval until ctx is done
func (m *Manager) RunCleanup(ctx context.Context, interval, maxAge time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := m.Prune(time.Now().Add(-maxAge)); n > 0 {
				slog.Info("Pruned abandoned sessions", "count", n)
			}
		}
	}
}

// RemoveOnFinalize is a FinalizeHook that drops the finished session
func (m *Manager) RemoveOnFinalize(ctx context.Context, card Finalized) error {
	m.Remove(card.SessionID)
	return nil
}
