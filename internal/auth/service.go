package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/schoolfin/backend/internal/domain"
)

type userStore interface {
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}

// Service authenticates users against the registry and issues session tokens.
type Service struct {
	users  userStore
	secret string
	ttl    time.Duration
}

func NewService(users userStore, secret string, ttl time.Duration) *Service {
	return &Service{users: users, secret: secret, ttl: ttl}
}

// Login verifies the password and returns a signed token carrying the
// user's role.
func (s *Service) Login(ctx context.Context, email, password string) (string, *domain.User, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", nil, fmt.Errorf("Login: %w", domain.ErrInvalidCredentials)
		}
		return "", nil, fmt.Errorf("Login: %w", err)
	}

	if u.Status != domain.UserStatusActive {
		return "", nil, fmt.Errorf("Login: %w", domain.ErrInvalidCredentials)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return "", nil, fmt.Errorf("Login: %w", domain.ErrInvalidCredentials)
	}

	token, err := GenerateToken(u, s.secret, s.ttl)
	if err != nil {
		return "", nil, fmt.Errorf("Login: %w", err)
	}
	return token, u, nil
}

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("HashPassword: %w", err)
	}
	return string(hash), nil
}
