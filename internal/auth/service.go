// Package auth owns accounts and bearer sessions. Errors leaving the service are
// already mapped onto the user-facing categories in apperr.
package auth

import (
	"context"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/pelusa-v/bearboo-letters/internal/apperr"
	"github.com/pelusa-v/bearboo-letters/internal/config"
	"github.com/pelusa-v/bearboo-letters/internal/metrics"
	"github.com/pelusa-v/bearboo-letters/internal/models"
	"github.com/pelusa-v/bearboo-letters/internal/realtime"
	"github.com/pelusa-v/bearboo-letters/internal/refs"
)

// ProfileWriter receives the public profile written at registration.
type ProfileWriter interface {
	Update(ctx context.Context, path string, patch realtime.Value) error
}

type Service struct {
	repo     Repository
	profiles ProfileWriter
	minLen   int
	ttl      time.Duration
	now      func() time.Time
	log      zerolog.Logger
}

func NewService(repo Repository, profiles ProfileWriter, cfg config.AuthConfig, log zerolog.Logger) *Service {
	minLen := cfg.MinPasswordLen
	if minLen <= 0 {
		minLen = 6
	}
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	return &Service{
		repo:     repo,
		profiles: profiles,
		minLen:   minLen,
		ttl:      ttl,
		now:      time.Now,
		log:      log.With().Str("component", "auth").Logger(),
	}
}

type Result struct {
	User  *models.User
	Token string
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", apperr.ErrInvalidEmail
	}
	return email, nil
}

func (s *Service) Register(ctx context.Context, email, password, displayName string) (*Result, error) {
	res, err := s.register(ctx, email, password, displayName)
	s.record("register", err)
	return res, err
}

func (s *Service) register(ctx context.Context, email, password, displayName string) (*Result, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if len(password) < s.minLen {
		return nil, apperr.ErrWeakSecret
	}
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		displayName, _, _ = strings.Cut(email, "@")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, apperr.MsgTryAgain, err)
	}
	u := &models.User{
		ID:           uuid.NewString(),
		Email:        email,
		DisplayName:  displayName,
		PasswordHash: string(hash),
		CreatedAt:    s.now().UTC(),
	}
	if err := s.repo.CreateUser(ctx, u); err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return nil, apperr.ErrDuplicateAccount
		}
		s.log.Error().Err(err).Msg("create user failed")
		return nil, apperr.ErrRepositoryFailure(err)
	}

	if s.profiles != nil {
		profile := models.Profile{Email: u.Email, DisplayName: u.DisplayName, CreatedAt: u.CreatedAt.UnixMilli()}
		v, err := realtime.Encode(profile)
		if err == nil {
			err = s.profiles.Update(ctx, refs.User(u.ID), v)
		}
		if err != nil {
			s.log.Warn().Err(err).Str("user", u.ID).Msg("write profile failed")
		}
	}

	token, err := s.issue(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("user", u.ID).Msg("account registered")
	return &Result{User: u, Token: token}, nil
}

func (s *Service) Login(ctx context.Context, email, password string) (*Result, error) {
	res, err := s.login(ctx, email, password)
	s.record("login", err)
	return res, err
}

func (s *Service) login(ctx context.Context, email, password string) (*Result, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	u, err := s.repo.GetUserByEmail(ctx, email)
	if errors.Is(err, ErrUserNotFound) {
		return nil, apperr.ErrBadCredentials
	}
	if err != nil {
		s.log.Error().Err(err).Msg("lookup user failed")
		return nil, apperr.ErrRepositoryFailure(err)
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, apperr.ErrBadCredentials
	}
	token, err := s.issue(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	return &Result{User: u, Token: token}, nil
}

func (s *Service) issue(ctx context.Context, userID string) (string, error) {
	now := s.now().UTC()
	t := &Token{
		Value:     uuid.NewString(),
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	if err := s.repo.CreateToken(ctx, t); err != nil {
		s.log.Error().Err(err).Msg("create session failed")
		return "", apperr.ErrRepositoryFailure(err)
	}
	return t.Value, nil
}

// Authenticate resolves a bearer token to its user.
func (s *Service) Authenticate(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, apperr.ErrNotLoggedIn
	}
	t, err := s.repo.GetToken(ctx, token)
	if errors.Is(err, ErrSessionNotFound) {
		return nil, apperr.ErrNotLoggedIn
	}
	if err != nil {
		return nil, apperr.ErrRepositoryFailure(err)
	}
	if !s.now().Before(t.ExpiresAt) {
		_ = s.repo.DeleteToken(ctx, token)
		return nil, apperr.ErrNotLoggedIn
	}
	u, err := s.repo.GetUserByID(ctx, t.UserID)
	if errors.Is(err, ErrUserNotFound) {
		return nil, apperr.ErrNotLoggedIn
	}
	if err != nil {
		return nil, apperr.ErrRepositoryFailure(err)
	}
	return u, nil
}

// Logout revokes token. Unknown tokens are not an error.
func (s *Service) Logout(ctx context.Context, token string) error {
	if err := s.repo.DeleteToken(ctx, token); err != nil {
		s.log.Error().Err(err).Msg("delete session failed")
		return apperr.ErrRepositoryFailure(err)
	}
	return nil
}

// PruneExpired drops expired sessions.
func (s *Service) PruneExpired(ctx context.Context) (int64, error) {
	return s.repo.DeleteExpiredTokens(ctx, s.now())
}

func (s *Service) Profile(ctx context.Context, id string) (*models.User, error) {
	u, err := s.repo.GetUserByID(ctx, id)
	if errors.Is(err, ErrUserNotFound) {
		return nil, apperr.NotFound("user not found")
	}
	if err != nil {
		return nil, apperr.ErrRepositoryFailure(err)
	}
	return u, nil
}

func (s *Service) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

func (s *Service) record(op string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = strings.ToLower(string(apperr.CodeOf(err)))
	}
	metrics.AuthAttempts.WithLabelValues(op, outcome).Inc()
}
