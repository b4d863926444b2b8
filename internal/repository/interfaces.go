package repository

import (
	"context"
	"time"
)

// SavedManga is one title on a user's saved list
type SavedManga struct {
	ID        int64     `db:"id"`
	UserID    string    `db:"user_id"`
	Title     string    `db:"title"`
	CreatedAt time.Time `db:"created_at"`
}

// UsageRecord is the per-user, per-day chatbot message counter
type UsageRecord struct {
	UserID    string    `db:"user_id"`
	Day       time.Time `db:"day"`
	Count     int       `db:"count"`
	UpdatedAt time.Time `db:"updated_at"`
}

// ChatTurn is one persisted user or assistant message of a chat session
type ChatTurn struct {
	ID        int64     `db:"id"`
	SessionID string    `db:"session_id"`
	Role      string    `db:"role"`
	Content   string    `db:"content"`
	CreatedAt time.Time `db:"created_at"`
}

// SavedMangaRepository defines saved-list storage operations. The list is
// owned by the tracking side of the app; the chatbot only reads it.
type SavedMangaRepository interface {
	ListTitles(ctx context.Context, userID string) ([]string, error)
	Save(ctx context.Context, userID, title string) error
}
