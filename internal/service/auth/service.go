// Package auth implements credential handling and session tokens.
//
// Contract:
//   - Register: create an account with a profile record, return identity + token.
//   - Login: verify email/password, return identity + token.
//   - ParseToken: validate a token and return the subject user id.
//
// All methods honor context cancellation through the underlying store.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/empathyai/companion/internal/config"
	"github.com/empathyai/companion/internal/model/user"
	"github.com/empathyai/companion/internal/store"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidToken       = errors.New("invalid token")
)

// Users is the account storage the service depends on.
type Users interface {
	Create(ctx context.Context, u user.User) error
	FindByEmail(ctx context.Context, email string) (user.User, error)
	FindByID(ctx context.Context, id string) (user.User, error)
}

// Service issues and validates sessions backed by stateless JWTs.
type Service struct {
	users  Users
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewService constructs the auth service from configuration.
func NewService(users Users, cfg config.AuthConfig) *Service {
	return &Service{
		users:  users,
		secret: []byte(cfg.Secret),
		ttl:    time.Duration(cfg.TokenTTLMin) * time.Minute,
		now:    time.Now,
	}
}

// Register creates an account and signs the caller in.
func (s *Service) Register(ctx context.Context, profile user.Profile, password string) (user.User, string, error) {
	email := strings.ToLower(strings.TrimSpace(profile.Email))
	if email == "" || password == "" {
		return user.User{}, "", ErrInvalidCredentials
	}

	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return user.User{}, "", ErrEmailTaken
	} else if !errors.Is(err, store.ErrUserNotFound) {
		return user.User{}, "", err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return user.User{}, "", fmt.Errorf("failed to hash password: %w", err)
	}

	u := user.User{
		ID:           uuid.NewString(),
		Name:         strings.TrimSpace(profile.Name),
		Email:        email,
		Phone:        strings.TrimSpace(profile.Phone),
		PasswordHash: string(hash),
		CreatedAt:    s.now().UTC(),
	}
	if err := s.users.Create(ctx, u); err != nil {
		return user.User{}, "", err
	}

	token, err := s.mintToken(u.ID)
	if err != nil {
		return user.User{}, "", err
	}
	return u, token, nil
}

// Login verifies the credentials and returns the identity with a fresh token.
func (s *Service) Login(ctx context.Context, email, password string) (user.User, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	u, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return user.User{}, "", ErrInvalidCredentials
		}
		return user.User{}, "", err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return user.User{}, "", ErrInvalidCredentials
	}

	token, err := s.mintToken(u.ID)
	if err != nil {
		return user.User{}, "", err
	}
	return u, token, nil
}

// ParseToken validates tokenString and returns the subject user id.
func (s *Service) ParseToken(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return "", ErrInvalidToken
	}

	subject, err := token.Claims.GetSubject()
	if err != nil || subject == "" {
		return "", ErrInvalidToken
	}
	return subject, nil
}

func (s *Service) mintToken(userID string) (string, error) {
	now := s.now().UTC()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}
