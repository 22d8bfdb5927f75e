package auth

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/pelusa-v/bearboo-letters/internal/models"
)

var (
	ErrUserNotFound    = errors.New("user not found")
	ErrEmailTaken      = errors.New("email already registered")
	ErrSessionNotFound = errors.New("session not found")
)

// Token is a bearer session issued at login.
type Token struct {
	Value     string
	UserID    string
	CreatedAt time.Time
	ExpiresAt time.Time
}

//go:generate mockgen -destination=mocks/mock_repository.go -package=mocks github.com/pelusa-v/bearboo-letters/internal/auth Repository

type Repository interface {
	CreateUser(ctx context.Context, u *models.User) error
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	CreateToken(ctx context.Context, t *Token) error
	GetToken(ctx context.Context, value string) (*Token, error)
	DeleteToken(ctx context.Context, value string) error
	DeleteExpiredTokens(ctx context.Context, now time.Time) (int64, error)

	Ping(ctx context.Context) error
	Close() error
}
