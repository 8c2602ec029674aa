package auth

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Tnhann/GoatDevelopers/internal/domain"
	"github.com/Tnhann/GoatDevelopers/internal/errors"
)

// PostgresStore is the pgx-backed Store.
type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) FindUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	const stmt = `
SELECT user_id, email, display_name, pass_hash, create_time
FROM users
WHERE email = $1;`

	return s.findUser(ctx, stmt, email)
}

func (s *PostgresStore) FindUserByID(ctx context.Context, userID string) (*domain.User, error) {
	const stmt = `
SELECT user_id, email, display_name, pass_hash, create_time
FROM users
WHERE user_id = $1;`

	return s.findUser(ctx, stmt, userID)
}

func (s *PostgresStore) findUser(ctx context.Context, stmt string, arg any) (*domain.User, error) {
	var u domain.User
	err := s.db.QueryRow(ctx, stmt, arg).
		Scan(&u.UserID, &u.Email, &u.DisplayName, &u.PassHash, &u.CreateTime)
	if stderrors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query user: %w", err)
	}

	return &u, nil
}

func (s *PostgresStore) AddUser(ctx context.Context, u *domain.User) error {
	const stmt = `
INSERT INTO users (user_id, email, display_name, pass_hash, create_time)
VALUES ($1, $2, $3, $4, $5);`

	_, err := s.db.Exec(ctx, stmt, u.UserID, u.Email, u.DisplayName, u.PassHash, u.CreateTime)

	var pgErr *pgconn.PgError
	const codeUniqueViolation = "23505"
	if stderrors.As(err, &pgErr) && pgErr.Code == codeUniqueViolation {
		return errors.New(errors.CodeAlreadyExists,
			errors.WithMessagef("email is already registered"),
			errors.WithCause(err))
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}

	return nil
}

func (s *PostgresStore) UpdateDisplayName(ctx context.Context, userID, displayName string) error {
	tag, err := s.db.Exec(ctx, `UPDATE users SET display_name = $1 WHERE user_id = $2;`, displayName, userID)
	if err != nil {
		return fmt.Errorf("update display name: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return errors.New(errors.CodeNotFound,
			errors.WithMessagef("user not found: %s", userID))
	}

	return nil
}
