package postgres

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/mangatrack/mangatrack-backend/internal/models"
	"github.com/mangatrack/mangatrack-backend/internal/repository"
)

// TurnRepository implements session.Store using PostgreSQL
type TurnRepository struct {
	db *sqlx.DB
}

// NewTurnRepository creates a new PostgreSQL turn repository
func NewTurnRepository(db *sqlx.DB) *TurnRepository {
	return &TurnRepository{db: db}
}

// Append stores a turn at the end of the session
func (r *TurnRepository) Append(ctx context.Context, sessionID string, turn models.Turn) error {
	row := repository.ChatTurn{
		SessionID: sessionID,
		Role:      string(turn.Role),
		Content:   turn.Content,
		CreatedAt: time.Now(),
	}

	query := `
		INSERT INTO chat_turns (session_id, role, content, created_at)
		VALUES (:session_id, :role, :content, :created_at)
	`

	_, err := r.db.NamedExecContext(ctx, query, row)
	return err
}

// History retrieves every turn of the session in insertion order
func (r *TurnRepository) History(ctx context.Context, sessionID string) ([]models.Turn, error) {
	turns := []models.Turn{}
	query := `
		SELECT role, content
		FROM chat_turns
		WHERE session_id = $1
		ORDER BY id ASC
	`

	if err := r.db.SelectContext(ctx, &turns, query, sessionID); err != nil {
		return nil, err
	}
	return turns, nil
}

// Discard deletes all turns of the session
func (r *TurnRepository) Discard(ctx context.Context, sessionID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM chat_turns WHERE session_id = $1`, sessionID)
	return err
}
