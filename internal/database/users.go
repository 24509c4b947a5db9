package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/temcen/gamecore/pkg/models"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrDuplicate    = errors.New("duplicate record")
)

const (
	insertUserSQL = `
		INSERT INTO users (id, email, username, password_hash)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at`

	insertAPIKeySQL = `
		INSERT INTO api_keys (id, key, user_id, is_active)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at`

	userByEmailSQL = `
		SELECT id, email, username, password_hash, created_at
		FROM users
		WHERE email = $1`
)

type UserStore struct {
	db TxQuerier
}

func NewUserStore(db TxQuerier) *UserStore {
	return &UserStore{db: db}
}

// CreateAccount inserts the user and its first API key atomically.
func (s *UserStore) CreateAccount(ctx context.Context, user *models.User, key *models.APIKey) error {
	return WithTx(ctx, s.db, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, insertUserSQL,
			user.ID, user.Email, user.Username, user.PasswordHash,
		).Scan(&user.CreatedAt); err != nil {
			return wrapWriteError("failed to insert user", err)
		}

		if err := tx.QueryRow(ctx, insertAPIKeySQL,
			key.ID, key.Key, key.UserID, key.IsActive,
		).Scan(&key.CreatedAt); err != nil {
			return wrapWriteError("failed to insert API key", err)
		}

		return nil
	})
}

func (s *UserStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	err := s.db.QueryRow(ctx, userByEmailSQL, email).Scan(
		&u.ID, &u.Email, &u.Username, &u.PasswordHash, &u.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &u, nil
}

func wrapWriteError(msg string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		return fmt.Errorf("%s: %w", msg, ErrDuplicate)
	}
	return fmt.Errorf("%s: %w", msg, err)
}
