// Package session holds per-conversation turn history.
//
// A session is created implicitly on the first append to an unseen id and
// lives as long as its backing store. History is unbounded; callers that
// need a cost ceiling must trim before assembling a prompt.
package session

import (
	"context"
	"sync"

	"github.com/mangatrack/mangatrack-backend/internal/models"
)

// Store is the narrow contract the chatbot needs from a session backend
type Store interface {
	// Append adds a turn to the end of the session, creating it if absent
	Append(ctx context.Context, sessionID string, turn models.Turn) error
	// History returns every turn of the session in insertion order
	History(ctx context.Context, sessionID string) ([]models.Turn, error)
	// Discard drops the session and all its turns
	Discard(ctx context.Context, sessionID string) error
}

// MemoryStore keeps sessions in a process-local map
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string][]models.Turn
}

// NewMemoryStore creates an empty in-memory session store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string][]models.Turn),
	}
}

// Append adds a turn to the session
func (s *MemoryStore) Append(_ context.Context, sessionID string, turn models.Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[sessionID] = append(s.sessions[sessionID], turn)
	return nil
}

// History returns a copy of the session's turns; unseen ids yield an empty slice
func (s *MemoryStore) History(_ context.Context, sessionID string) ([]models.Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	turns := s.sessions[sessionID]
	copied := make([]models.Turn, len(turns))
	copy(copied, turns)
	return copied, nil
}

// Discard removes the session
func (s *MemoryStore) Discard(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, sessionID)
	return nil
}

// Len returns the number of live sessions
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
