package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// FeedbackRepository stores per-message thumb ratings.
type FeedbackRepository struct {
	db *sql.DB
}

// NewFeedbackRepository returns a FeedbackRepository bound to the given database.
func NewFeedbackRepository(db *sql.DB) *FeedbackRepository {
	return &FeedbackRepository{db: db}
}

// Upsert records the latest rating for a message. Re-rating overwrites.
func (r *FeedbackRepository) Upsert(ctx context.Context, messageID string, rating int) error {
	query := `INSERT INTO feedback (message_id, rating, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT(message_id) DO UPDATE SET rating = excluded.rating,
			created_at = excluded.created_at`
	_, err := r.db.ExecContext(ctx, query, messageID, rating, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to upsert feedback: %w", err)
	}
	return nil
}

// Rating returns the stored rating for a message, or sql.ErrNoRows.
func (r *FeedbackRepository) Rating(ctx context.Context, messageID string) (int, error) {
	var rating int
	row := r.db.QueryRowContext(ctx, `SELECT rating FROM feedback WHERE message_id = ?`, messageID)
	if err := row.Scan(&rating); err != nil {
		return 0, err
	}
	return rating, nil
}
