package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/empathyai/companion/internal/model/chat"
)

// ChatRepository stores the append-only chat log.
type ChatRepository struct {
	db *sql.DB
}

// NewChatRepository returns a ChatRepository bound to the given database.
func NewChatRepository(db *sql.DB) *ChatRepository {
	return &ChatRepository{db: db}
}

// Insert appends a message. Messages are never updated or deleted.
func (r *ChatRepository) Insert(ctx context.Context, m chat.Message) error {
	query := `INSERT INTO chats (id, user_id, text, sender, emotion, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		m.ID, m.UserID, m.Text, string(m.Sender), m.Emotion, m.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}
	return nil
}

// ByUser lists the user's messages ordered by timestamp ascending.
func (r *ChatRepository) ByUser(ctx context.Context, userID string) ([]chat.Message, error) {
	query := `SELECT id, user_id, text, sender, emotion, created_at
		FROM chats WHERE user_id = ? ORDER BY created_at ASC, id ASC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to select messages: %w", err)
	}
	defer rows.Close()

	var result []chat.Message
	for rows.Next() {
		var m chat.Message
		var sender string
		if err := rows.Scan(&m.ID, &m.UserID, &m.Text, &sender, &m.Emotion, &m.Timestamp); err != nil {
			return nil, err
		}
		m.Sender = chat.Sender(sender)
		result = append(result, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
