package postgres

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/mangatrack/mangatrack-backend/internal/repository"
)

// SavedMangaRepository implements repository.SavedMangaRepository using PostgreSQL
type SavedMangaRepository struct {
	db *sqlx.DB
}

// NewSavedMangaRepository creates a new PostgreSQL saved manga repository
func NewSavedMangaRepository(db *sqlx.DB) *SavedMangaRepository {
	return &SavedMangaRepository{db: db}
}

// ListTitles retrieves the titles a user has saved, oldest first
func (r *SavedMangaRepository) ListTitles(ctx context.Context, userID string) ([]string, error) {
	titles := []string{}
	query := `
		SELECT title
		FROM saved_manga
		WHERE user_id = $1
		ORDER BY created_at ASC, id ASC
	`

	if err := r.db.SelectContext(ctx, &titles, query, userID); err != nil {
		return nil, err
	}

	return titles, nil
}

// Save adds a title to the user's saved list
func (r *SavedMangaRepository) Save(ctx context.Context, userID, title string) error {
	item := repository.SavedManga{
		UserID:    userID,
		Title:     title,
		CreatedAt: time.Now(),
	}

	query := `
		INSERT INTO saved_manga (user_id, title, created_at)
		VALUES (:user_id, :title, :created_at)
		ON CONFLICT (user_id, title) DO NOTHING
	`

	_, err := r.db.NamedExecContext(ctx, query, item)
	return err
}
