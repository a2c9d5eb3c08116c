// Package store persists users, chat messages and feedback in an embedded
// sqlite database.
package store

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id            TEXT PRIMARY KEY,
	name          TEXT NOT NULL,
	email         TEXT NOT NULL UNIQUE,
	phone         TEXT NOT NULL DEFAULT '',
	password_hash TEXT NOT NULL,
	created_at    TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS chats (
	id         TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL,
	text       TEXT NOT NULL,
	sender     TEXT NOT NULL,
	emotion    TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_chats_user_time ON chats(user_id, created_at);

CREATE TABLE IF NOT EXISTS feedback (
	message_id TEXT PRIMARY KEY,
	rating     INTEGER NOT NULL,
	created_at TIMESTAMP NOT NULL
);
`

// Open opens (creating when absent) the sqlite database at path and applies
// the schema.
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	// modernc sqlite serializes access through a single connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return db, nil
}
