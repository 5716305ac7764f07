package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/lang-learner-backend/internal/model"
)

const digest = "K7gNU3sdo+OL0wNhqoVWhr3g6s1xYv72ol/pe/Unols="

func newRepoWithMock(t *testing.T, driver string) (*UserRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return NewUserRepo(sqlx.NewDb(db, driver)), mock
}

func newAlice() model.NewAccount {
	return model.NewAccount{Login: "alice", CredentialDigest: digest, DisplayName: "Alice", Locale: model.LocaleVN}
}

func TestInsert_MySQL(t *testing.T) {
	repo, mock := newRepoWithMock(t, "mysql")

	mock.ExpectExec("INSERT INTO users (password, login, username, language) VALUES (?, ?, ?, ?)").
		WithArgs(digest, "alice", "Alice", "VN").
		WillReturnResult(sqlmock.NewResult(1, 1))

	n, err := repo.Insert(context.Background(), newAlice())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestInsert_PostgresCastsLanguage(t *testing.T) {
	repo, mock := newRepoWithMock(t, "pgx")

	mock.ExpectExec("INSERT INTO users (password, login, username, language) VALUES ($1, $2, $3, $4::language)").
		WithArgs(digest, "alice", "Alice", "VN").
		WillReturnResult(sqlmock.NewResult(0, 1))

	n, err := repo.Insert(context.Background(), newAlice())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestInsert_DuplicateLogin(t *testing.T) {
	tests := []struct {
		driver string
		query  string
		err    error
	}{
		{"mysql", "INSERT INTO users (password, login, username, language) VALUES (?, ?, ?, ?)",
			&mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'alice' for key 'users_login_key'"}},
		{"pgx", "INSERT INTO users (password, login, username, language) VALUES ($1, $2, $3, $4::language)",
			&pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"}},
	}
	for _, tc := range tests {
		t.Run(tc.driver, func(t *testing.T) {
			repo, mock := newRepoWithMock(t, tc.driver)
			mock.ExpectExec(tc.query).WillReturnError(tc.err)

			_, err := repo.Insert(context.Background(), newAlice())
			require.ErrorIs(t, err, ErrLoginExists)
		})
	}
}

func TestInsert_DBError(t *testing.T) {
	repo, mock := newRepoWithMock(t, "mysql")
	mock.ExpectExec("INSERT INTO users (password, login, username, language) VALUES (?, ?, ?, ?)").
		WillReturnError(errors.New("db down"))

	_, err := repo.Insert(context.Background(), newAlice())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrLoginExists)
	assert.Contains(t, err.Error(), "db down")
}

func TestInsert_InvalidLocaleNeverReachesDB(t *testing.T) {
	repo, _ := newRepoWithMock(t, "mysql")

	a := newAlice()
	a.Locale = model.Locale("FR")
	_, err := repo.Insert(context.Background(), a)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown locale")
}

func TestFindByCredentials_MySQL(t *testing.T) {
	repo, mock := newRepoWithMock(t, "mysql")

	rows := sqlmock.NewRows([]string{"id", "login", "password", "username", "language"}).
		AddRow(int64(7), "alice", digest, "Alice", "CH")
	mock.ExpectQuery("SELECT id, login, password, username, language FROM users WHERE login = ? AND password = ?").
		WithArgs("alice", digest).
		WillReturnRows(rows)

	got, err := repo.FindByCredentials(context.Background(), "alice", digest)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, model.Account{ID: 7, Login: "alice", CredentialDigest: digest, DisplayName: "Alice", Locale: model.LocaleCH}, got[0])
}

func TestFindByCredentials_PostgresMultiple(t *testing.T) {
	repo, mock := newRepoWithMock(t, "pgx")

	rows := sqlmock.NewRows([]string{"id", "login", "password", "username", "language"}).
		AddRow(int64(1), "alice", digest, "Alice", "VN").
		AddRow(int64(2), "alice", digest, "Alice 2", "CH")
	mock.ExpectQuery("SELECT id, login, password, username, language::text AS language FROM users WHERE login = $1 AND password = $2").
		WithArgs("alice", digest).
		WillReturnRows(rows)

	got, err := repo.FindByCredentials(context.Background(), "alice", digest)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestFindByCredentials_NoRows(t *testing.T) {
	repo, mock := newRepoWithMock(t, "mysql")
	mock.ExpectQuery("SELECT id, login, password, username, language FROM users WHERE login = ? AND password = ?").
		WithArgs("ghost", digest).
		WillReturnRows(sqlmock.NewRows([]string{"id", "login", "password", "username", "language"}))

	got, err := repo.FindByCredentials(context.Background(), "ghost", digest)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestFindByCredentials_CorruptLocale(t *testing.T) {
	repo, mock := newRepoWithMock(t, "mysql")
	rows := sqlmock.NewRows([]string{"id", "login", "password", "username", "language"}).
		AddRow(int64(1), "alice", digest, "Alice", "FR")
	mock.ExpectQuery("SELECT id, login, password, username, language FROM users WHERE login = ? AND password = ?").
		WillReturnRows(rows)

	_, err := repo.FindByCredentials(context.Background(), "alice", digest)
	require.Error(t, err)
}

func TestFindByCredentials_DBError(t *testing.T) {
	repo, mock := newRepoWithMock(t, "mysql")
	mock.ExpectQuery("SELECT id, login, password, username, language FROM users WHERE login = ? AND password = ?").
		WillReturnError(errors.New("connection reset"))

	_, err := repo.FindByCredentials(context.Background(), "alice", digest)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestCount(t *testing.T) {
	repo, mock := newRepoWithMock(t, "mysql")
	mock.ExpectQuery("SELECT COUNT(*) FROM users").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(3)))

	n, err := repo.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}
