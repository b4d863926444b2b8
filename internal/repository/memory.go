package repository

import (
	"context"
	"sync"
)

// MemorySavedManga is an in-process SavedMangaRepository used when the
// database is disabled
type MemorySavedManga struct {
	mu     sync.RWMutex
	titles map[string][]string
}

// NewMemorySavedManga creates an empty saved-list store
func NewMemorySavedManga() *MemorySavedManga {
	return &MemorySavedManga{titles: make(map[string][]string)}
}

// ListTitles returns the user's saved titles in the order they were saved
func (m *MemorySavedManga) ListTitles(_ context.Context, userID string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]string, len(m.titles[userID]))
	copy(out, m.titles[userID])
	return out, nil
}

// Save adds a title to the user's list; saving a title twice is a no-op
func (m *MemorySavedManga) Save(_ context.Context, userID, title string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.titles[userID] {
		if existing == title {
			return nil
		}
	}
	m.titles[userID] = append(m.titles[userID], title)
	return nil
}
