package auth

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"

	"github.com/pelusa-v/bearboo-letters/internal/models"
)

const pgUniqueViolation = "23505"

type PostgresRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresRepository(ctx context.Context, databaseURL string) (*PostgresRepository, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "authRepo.NewPostgresRepository.New: ")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "authRepo.NewPostgresRepository.Ping: ")
	}
	r := &PostgresRepository{pool: pool}
	if err := r.initSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return r, nil
}

func (r *PostgresRepository) initSchema(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		email TEXT UNIQUE NOT NULL,
		display_name TEXT NOT NULL DEFAULT '',
		password_hash TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	);

	CREATE TABLE IF NOT EXISTS sessions (
		token TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		created_at TIMESTAMPTZ NOT NULL,
		expires_at TIMESTAMPTZ NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_expires ON sessions(expires_at);
	`)
	if err != nil {
		return errors.Wrap(err, "authRepo.initSchema.Exec: ")
	}
	return nil
}

func (r *PostgresRepository) CreateUser(ctx context.Context, u *models.User) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO users (id, email, display_name, password_hash, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, u.ID, u.Email, u.DisplayName, u.PasswordHash, u.CreatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return ErrEmailTaken
	}
	if err != nil {
		return errors.Wrap(err, "authRepo.CreateUser.Exec: ")
	}
	return nil
}

func (r *PostgresRepository) getUser(ctx context.Context, op, where string, arg any) (*models.User, error) {
	u := &models.User{}
	err := r.pool.QueryRow(ctx, `
		SELECT id, email, display_name, password_hash, created_at FROM users WHERE `+where+` = $1
	`, arg).Scan(&u.ID, &u.Email, &u.DisplayName, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "authRepo."+op+".Scan: ")
	}
	return u, nil
}

func (r *PostgresRepository) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return r.getUser(ctx, "GetUserByID", "id", id)
}

func (r *PostgresRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getUser(ctx, "GetUserByEmail", "email", email)
}

func (r *PostgresRepository) CreateToken(ctx context.Context, t *Token) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO sessions (token, user_id, created_at, expires_at) VALUES ($1, $2, $3, $4)
	`, t.Value, t.UserID, t.CreatedAt, t.ExpiresAt)
	if err != nil {
		return errors.Wrap(err, "authRepo.CreateToken.Exec: ")
	}
	return nil
}

func (r *PostgresRepository) GetToken(ctx context.Context, value string) (*Token, error) {
	t := &Token{}
	err := r.pool.QueryRow(ctx, `
		SELECT token, user_id, created_at, expires_at FROM sessions WHERE token = $1
	`, value).Scan(&t.Value, &t.UserID, &t.CreatedAt, &t.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "authRepo.GetToken.Scan: ")
	}
	return t, nil
}

func (r *PostgresRepository) DeleteToken(ctx context.Context, value string) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE token = $1`, value); err != nil {
		return errors.Wrap(err, "authRepo.DeleteToken.Exec: ")
	}
	return nil
}

func (r *PostgresRepository) DeleteExpiredTokens(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, errors.Wrap(err, "authRepo.DeleteExpiredTokens.Exec: ")
	}
	return tag.RowsAffected(), nil
}

func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}
