package auth_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/pelusa-v/bearboo-letters/internal/apperr"
	"github.com/pelusa-v/bearboo-letters/internal/auth"
	"github.com/pelusa-v/bearboo-letters/internal/auth/mocks"
	"github.com/pelusa-v/bearboo-letters/internal/config"
	"github.com/pelusa-v/bearboo-letters/internal/models"
	"github.com/pelusa-v/bearboo-letters/internal/realtime"
)

var cfg = config.AuthConfig{MinPasswordLen: 6, TokenTTL: time.Hour}

type profileSpy struct {
	paths []string
	last  realtime.Value
}

func (p *profileSpy) Update(_ context.Context, path string, patch realtime.Value) error {
	p.paths = append(p.paths, path)
	p.last = patch
	return nil
}

func TestService_Register(t *testing.T) {
	ctx := context.Background()

	t.Run("happy path - writes account, profile and token", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		repo := mocks.NewMockRepository(ctrl)
		profiles := &profileSpy{}
		svc := auth.NewService(repo, profiles, cfg, zerolog.Nop())

		var created *models.User
		g := repo.EXPECT()
		g.CreateUser(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, u *models.User) error {
			created = u
			return nil
		})
		g.CreateToken(gomock.Any(), gomock.Any()).Return(nil)

		res, err := svc.Register(ctx, " Bear@Example.com ", "honey123", "")
		require.NoError(t, err)
		assert.NotEmpty(t, res.Token)
		assert.Equal(t, "bear@example.com", created.Email)
		assert.Equal(t, "bear", created.DisplayName)
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(created.PasswordHash), []byte("honey123")))
		assert.Equal(t, []string{"users/" + created.ID}, profiles.paths)
		assert.Equal(t, "bear@example.com", profiles.last["email"])
	})

	t.Run("sad path - weak secret", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		svc := auth.NewService(mocks.NewMockRepository(ctrl), nil, cfg, zerolog.Nop())
		_, err := svc.Register(ctx, "bear@example.com", "12345", "Bear")
		assert.ErrorIs(t, err, apperr.ErrWeakSecret)
	})

	t.Run("sad path - invalid email", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		svc := auth.NewService(mocks.NewMockRepository(ctrl), nil, cfg, zerolog.Nop())
		_, err := svc.Register(ctx, "not-an-email", "honey123", "Bear")
		assert.ErrorIs(t, err, apperr.ErrInvalidEmail)
	})

	t.Run("sad path - duplicate account", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		repo := mocks.NewMockRepository(ctrl)
		svc := auth.NewService(repo, nil, cfg, zerolog.Nop())
		repo.EXPECT().CreateUser(gomock.Any(), gomock.Any()).Return(auth.ErrEmailTaken)

		_, err := svc.Register(ctx, "bear@example.com", "honey123", "Bear")
		assert.ErrorIs(t, err, apperr.ErrDuplicateAccount)
	})

	t.Run("sad path - storage failure stays generic", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		repo := mocks.NewMockRepository(ctrl)
		svc := auth.NewService(repo, nil, cfg, zerolog.Nop())
		repo.EXPECT().CreateUser(gomock.Any(), gomock.Any()).Return(errors.New("disk full"))

		_, err := svc.Register(ctx, "bear@example.com", "honey123", "Bear")
		require.Error(t, err)
		assert.Equal(t, apperr.MsgTryAgain, apperr.Public(err))
		assert.NotContains(t, apperr.Public(err), "disk")
	})
}

func TestService_Login(t *testing.T) {
	ctx := context.Background()
	hash, _ := bcrypt.GenerateFromPassword([]byte("honey123"), bcrypt.MinCost)
	user := &models.User{ID: "u1", Email: "bear@example.com", PasswordHash: string(hash)}

	t.Run("happy path", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		repo := mocks.NewMockRepository(ctrl)
		svc := auth.NewService(repo, nil, cfg, zerolog.Nop())

		g := repo.EXPECT()
		g.GetUserByEmail(gomock.Any(), "bear@example.com").Return(user, nil)
		g.CreateToken(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, tok *auth.Token) error {
			assert.Equal(t, "u1", tok.UserID)
			assert.WithinDuration(t, tok.CreatedAt.Add(time.Hour), tok.ExpiresAt, time.Second)
			return nil
		})

		res, err := svc.Login(ctx, "bear@example.com", "honey123")
		require.NoError(t, err)
		assert.Equal(t, "u1", res.User.ID)
	})

	t.Run("sad path - wrong password", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		repo := mocks.NewMockRepository(ctrl)
		svc := auth.NewService(repo, nil, cfg, zerolog.Nop())
		repo.EXPECT().GetUserByEmail(gomock.Any(), gomock.Any()).Return(user, nil)

		_, err := svc.Login(ctx, "bear@example.com", "nope")
		assert.ErrorIs(t, err, apperr.ErrBadCredentials)
	})

	t.Run("sad path - unknown user looks the same", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		repo := mocks.NewMockRepository(ctrl)
		svc := auth.NewService(repo, nil, cfg, zerolog.Nop())
		repo.EXPECT().GetUserByEmail(gomock.Any(), gomock.Any()).Return(nil, auth.ErrUserNotFound)

		_, err := svc.Login(ctx, "ghost@example.com", "honey123")
		assert.ErrorIs(t, err, apperr.ErrBadCredentials)
	})
}

func TestService_Authenticate(t *testing.T) {
	ctx := context.Background()
	user := &models.User{ID: "u1", Email: "bear@example.com"}

	t.Run("valid token", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		repo := mocks.NewMockRepository(ctrl)
		svc := auth.NewService(repo, nil, cfg, zerolog.Nop())
		g := repo.EXPECT()
		g.GetToken(gomock.Any(), "tok").Return(&auth.Token{Value: "tok", UserID: "u1", ExpiresAt: time.Now().Add(time.Hour)}, nil)
		g.GetUserByID(gomock.Any(), "u1").Return(user, nil)

		u, err := svc.Authenticate(ctx, "tok")
		require.NoError(t, err)
		assert.Equal(t, "u1", u.ID)
	})

	t.Run("expired token is revoked", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		repo := mocks.NewMockRepository(ctrl)
		svc := auth.NewService(repo, nil, cfg, zerolog.Nop())
		g := repo.EXPECT()
		g.GetToken(gomock.Any(), "old").Return(&auth.Token{Value: "old", UserID: "u1", ExpiresAt: time.Now().Add(-time.Minute)}, nil)
		g.DeleteToken(gomock.Any(), "old").Return(nil)

		_, err := svc.Authenticate(ctx, "old")
		assert.ErrorIs(t, err, apperr.ErrNotLoggedIn)
	})

	t.Run("missing token", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		svc := auth.NewService(mocks.NewMockRepository(ctrl), nil, cfg, zerolog.Nop())
		_, err := svc.Authenticate(ctx, "")
		assert.ErrorIs(t, err, apperr.ErrNotLoggedIn)
	})
}
