package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/empathyai/companion/internal/model/user"
)

var ErrUserNotFound = errors.New("user not found")

// UserRepository stores account records.
type UserRepository struct {
	db *sql.DB
}

// NewUserRepository returns a UserRepository bound to the given database.
func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new account. Email uniqueness is enforced by the schema.
func (r *UserRepository) Create(ctx context.Context, u user.User) error {
	query := `INSERT INTO users (id, name, email, phone, password_hash, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		u.ID, u.Name, u.Email, u.Phone, u.PasswordHash, u.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

// FindByEmail returns the account registered under email.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (user.User, error) {
	query := `SELECT id, name, email, phone, password_hash, created_at
		FROM users WHERE email = ?`
	row := r.db.QueryRowContext(ctx, query, email)

	var u user.User
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Phone, &u.PasswordHash, &u.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return user.User{}, ErrUserNotFound
		}
		return user.User{}, fmt.Errorf("failed to scan user: %w", err)
	}
	return u, nil
}

// FindByID returns the account with the given identifier.
func (r *UserRepository) FindByID(ctx context.Context, id string) (user.User, error) {
	query := `SELECT id, name, email, phone, password_hash, created_at
		FROM users WHERE id = ?`
	row := r.db.QueryRowContext(ctx, query, id)

	var u user.User
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Phone, &u.PasswordHash, &u.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return user.User{}, ErrUserNotFound
		}
		return user.User{}, fmt.Errorf("failed to scan user: %w", err)
	}
	return u, nil
}
