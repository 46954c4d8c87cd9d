package auth

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schoolfin/backend/internal/domain"
)

type stubUserStore struct {
	users map[string]*domain.User
}

func (s *stubUserStore) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	u, ok := s.users[email]
	if !ok {
		return nil, fmt.Errorf("GetByEmail: %w", domain.ErrNotFound)
	}
	return u, nil
}

func loginService(t *testing.T, users ...*domain.User) *Service {
	t.Helper()
	store := &stubUserStore{users: map[string]*domain.User{}}
	for _, u := range users {
		store.users[u.Email] = u
	}
	return NewService(store, testSecret, time.Hour)
}

func storedUser(t *testing.T, email, password string, status domain.UserStatus) *domain.User {
	t.Helper()
	hash, err := HashPassword(password)
	require.NoError(t, err)
	return &domain.User{
		ID:           uuid.New(),
		Email:        email,
		Name:         "Test User",
		PasswordHash: hash,
		Role:         domain.RoleAccountant,
		Status:       status,
	}
}

func TestLogin(t *testing.T) {
	ctx := t.Context()
	active := storedUser(t, "books@school.test", "correct-horse", domain.UserStatusActive)
	disabled := storedUser(t, "gone@school.test", "correct-horse", domain.UserStatusDisabled)
	svc := loginService(t, active, disabled)

	t.Run("valid credentials issue a token", func(t *testing.T) {
		token, u, err := svc.Login(ctx, "books@school.test", "correct-horse")
		require.NoError(t, err)
		require.NotEmpty(t, token)
		assert.Equal(t, active.ID, u.ID)

		claims, err := ValidateToken(token, testSecret)
		require.NoError(t, err)
		assert.Equal(t, active.ID, claims.UserID)
		assert.Equal(t, domain.RoleAccountant, claims.Role)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, _, err := svc.Login(ctx, "books@school.test", "wrong")
		require.ErrorIs(t, err, domain.ErrInvalidCredentials)
	})

	t.Run("unknown email", func(t *testing.T) {
		_, _, err := svc.Login(ctx, "nobody@school.test", "correct-horse")
		require.ErrorIs(t, err, domain.ErrInvalidCredentials)
	})

	t.Run("disabled user", func(t *testing.T) {
		_, _, err := svc.Login(ctx, "gone@school.test", "correct-horse")
		require.ErrorIs(t, err, domain.ErrInvalidCredentials)
	})
}
