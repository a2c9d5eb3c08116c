package auth_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/empathyai/companion/internal/config"
	"github.com/empathyai/companion/internal/model/user"
	"github.com/empathyai/companion/internal/service/auth"
	"github.com/empathyai/companion/internal/store"
)

type memUsers struct {
	byEmail map[string]user.User
}

func newMemUsers() *memUsers {
	return &memUsers{byEmail: make(map[string]user.User)}
}

func (m *memUsers) Create(_ context.Context, u user.User) error {
	m.byEmail[u.Email] = u
	return nil
}

func (m *memUsers) FindByEmail(_ context.Context, email string) (user.User, error) {
	u, ok := m.byEmail[email]
	if !ok {
		return user.User{}, store.ErrUserNotFound
	}
	return u, nil
}

func (m *memUsers) FindByID(_ context.Context, id string) (user.User, error) {
	for _, u := range m.byEmail {
		if u.ID == id {
			return u, nil
		}
	}
	return user.User{}, store.ErrUserNotFound
}

func newService() (*auth.Service, *memUsers) {
	users := newMemUsers()
	svc := auth.NewService(users, config.AuthConfig{Secret: "test-secret", TokenTTLMin: 60})
	return svc, users
}

func TestRegisterThenLogin(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()

	profile := user.Profile{Name: "Ada", Email: "Ada@Example.com", Phone: "555-0100"}
	created, token, err := svc.Register(ctx, profile, "hunter22")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.Equal(t, "ada@example.com", created.Email)

	u, token, err := svc.Login(ctx, "ada@example.com", "hunter22")
	require.NoError(t, err)
	require.Equal(t, created.ID, u.ID)

	subject, err := svc.ParseToken(token)
	require.NoError(t, err)
	require.Equal(t, created.ID, subject)
}

func TestLoginWrongPassword(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()

	_, _, err := svc.Register(ctx, user.Profile{Email: "a@b.c"}, "right")
	require.NoError(t, err)

	_, _, err = svc.Login(ctx, "a@b.c", "wrong")
	require.ErrorIs(t, err, auth.ErrInvalidCredentials)
}

func TestLoginUnknownUser(t *testing.T) {
	svc, _ := newService()

	_, _, err := svc.Login(context.Background(), "ghost@example.com", "pw")
	require.ErrorIs(t, err, auth.ErrInvalidCredentials)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()

	_, _, err := svc.Register(ctx, user.Profile{Email: "a@b.c"}, "pw")
	require.NoError(t, err)

	_, _, err = svc.Register(ctx, user.Profile{Email: "a@b.c"}, "pw")
	require.ErrorIs(t, err, auth.ErrEmailTaken)
}

func TestParseTokenGarbage(t *testing.T) {
	svc, _ := newService()

	_, err := svc.ParseToken("not-a-token")
	require.ErrorIs(t, err, auth.ErrInvalidToken)
}
