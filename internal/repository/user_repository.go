package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/lang-learner-backend/internal/model"
)

// UserRepo reads and writes accounts in the `users` table. Queries are
// written with `?` placeholders and rebound for the driver in use.
type UserRepo struct{ DB *sqlx.DB }

func NewUserRepo(db *sqlx.DB) *UserRepo { return &UserRepo{DB: db} }

func (r *UserRepo) postgres() bool { return r.DB.DriverName() == "pgx" }

// Insert creates one account row and returns the number of rows affected.
// A duplicate login is reported as ErrLoginExists.
func (r *UserRepo) Insert(ctx context.Context, a model.NewAccount) (int64, error) {
	q := "INSERT INTO users (password, login, username, language) VALUES (?, ?, ?, ?)"
	if r.postgres() {
		q = "INSERT INTO users (password, login, username, language) VALUES (?, ?, ?, ?::language)"
	}
	res, err := r.DB.ExecContext(ctx, r.DB.Rebind(q),
		a.CredentialDigest, a.Login, a.DisplayName, a.Locale)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("%w: %w", ErrLoginExists, err)
		}
		return 0, fmt.Errorf("insert user: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("insert user rows affected: %w", err)
	}
	return n, nil
}

// FindByCredentials returns every account whose login and digest both
// match. It does not pick among several matches; that is the caller's call.
func (r *UserRepo) FindByCredentials(ctx context.Context, login, digest string) ([]model.Account, error) {
	q := "SELECT id, login, password, username, language FROM users WHERE login = ? AND password = ?"
	if r.postgres() {
		q = "SELECT id, login, password, username, language::text AS language FROM users WHERE login = ? AND password = ?"
	}
	var out []model.Account
	if err := r.DB.SelectContext(ctx, &out, r.DB.Rebind(q), login, digest); err != nil {
		return nil, fmt.Errorf("select users: %w", err)
	}
	return out, nil
}

// Count returns the number of stored accounts.
func (r *UserRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.DB.GetContext(ctx, &n, "SELECT COUNT(*) FROM users"); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}
