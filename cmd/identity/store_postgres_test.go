package identity

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPGStoreWithMock(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	st, err := NewPostgresStore(db)
	require.NoError(t, err)
	return st, mock
}

func TestPostgresStore_CreateUser(t *testing.T) {
	st, mock := newPGStoreWithMock(t)
	now := time.Date(2026, 1, 12, 18, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO users \(id, created_at, updated_at\)`).
		WithArgs(sqlmock.AnyArg(), now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO user_credentials \(id, user_id, kind, login, created_at\)`).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), "username", "newuser123", now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO user_passwords \(id, user_id, digest, created_at\)`).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), "h:Qwerty123456", now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	u, err := st.CreateUser(context.Background(), CreateUserInput{
		Kind:   KindUsername,
		Login:  "newuser123",
		Digest: "h:Qwerty123456",
		Now:    now,
	})
	require.NoError(t, err)
	assert.Len(t, u.ID, 26)
	require.NotNil(t, u.Username)
	assert.Equal(t, "newuser123", *u.Username)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CreateUserLoginConflict(t *testing.T) {
	st, mock := newPGStoreWithMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO users`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO user_credentials`).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "user_credentials_login_key"})
	mock.ExpectRollback()

	_, err := st.CreateUser(context.Background(), CreateUserInput{Kind: KindUsername, Login: "dup", Digest: "h:x"})
	require.Error(t, err)
	assert.True(t, IsConflict(err))

	var ce ConflictError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "login", ce.Field)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CreateUserRejectsBadInput(t *testing.T) {
	st, _ := newPGStoreWithMock(t)

	_, err := st.CreateUser(context.Background(), CreateUserInput{Kind: "nickname", Login: "x", Digest: "h:x"})
	assert.True(t, IsInvalidInput(err))
}

func TestPostgresStore_LoginTaken(t *testing.T) {
	st, mock := newPGStoreWithMock(t)

	mock.ExpectQuery(`SELECT EXISTS \(SELECT 1 FROM user_credentials WHERE kind = \$1 AND login = \$2\)`).
		WithArgs("username", "alice").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	taken, err := st.LoginTaken(context.Background(), KindUsername, "alice")
	require.NoError(t, err)
	assert.True(t, taken)
}

func TestPostgresStore_FindCredential(t *testing.T) {
	st, mock := newPGStoreWithMock(t)
	created := time.Date(2026, 1, 12, 18, 0, 0, 0, time.UTC)

	cols := []string{"id", "user_id", "kind", "login", "confirmed_at", "created_at", "digest", "deleted_at"}
	mock.ExpectQuery(`(?s)SELECT c\.id, c\.user_id.*FROM user_credentials c.*WHERE c\.kind = \$1 AND c\.login = \$2`).
		WithArgs("username", "alice").
		WillReturnRows(sqlmock.NewRows(cols).AddRow("cred-1", "user-1", "username", "alice", nil, created, "h:pw", nil))

	got, err := st.FindCredential(context.Background(), KindUsername, "alice")
	require.NoError(t, err)
	assert.Equal(t, "cred-1", got.ID)
	assert.Equal(t, "user-1", got.UserID)
	assert.Equal(t, KindUsername, got.Kind)
	assert.Equal(t, "h:pw", got.Digest)
	assert.Nil(t, got.ConfirmedAt)
	assert.Nil(t, got.UserDeletedAt)
}

func TestPostgresStore_FindCredentialNotFound(t *testing.T) {
	st, mock := newPGStoreWithMock(t)

	mock.ExpectQuery(`FROM user_credentials c`).
		WithArgs("username", "ghost").
		WillReturnError(sql.ErrNoRows)

	_, err := st.FindCredential(context.Background(), KindUsername, "ghost")
	assert.True(t, IsNotFound(err))
}

func TestPostgresStore_GetUser(t *testing.T) {
	st, mock := newPGStoreWithMock(t)
	created := time.Date(2026, 1, 12, 18, 0, 0, 0, time.UTC)
	birth := time.Date(1990, 5, 17, 0, 0, 0, 0, time.UTC)

	cols := []string{"id", "name", "middle_name", "last_name", "gender", "birth_date", "deleted_at", "created_at", "updated_at", "login"}
	mock.ExpectQuery(`(?s)SELECT u\.id, u\.name.*FROM users u\s+WHERE u\.id = \$1`).
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows(cols).AddRow("user-1", "Иван", nil, "Петров", "male", birth, nil, created, created, "ivan"))

	u, err := st.GetUser(context.Background(), "user-1")
	require.NoError(t, err)
	require.NotNil(t, u.Name)
	assert.Equal(t, "Иван", *u.Name)
	assert.Nil(t, u.MiddleName)
	require.NotNil(t, u.BirthDate)
	assert.True(t, u.BirthDate.Equal(birth))
	require.NotNil(t, u.Username)
	assert.Equal(t, "ivan", *u.Username)
	assert.False(t, u.Deactivated())
}

func TestPostgresStore_UpdateProfileMissingUser(t *testing.T) {
	st, mock := newPGStoreWithMock(t)
	name := "Иван"

	mock.ExpectBegin()
	mock.ExpectExec(`(?s)UPDATE users SET.*WHERE id = \$1 AND deleted_at IS NULL`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := st.UpdateProfile(context.Background(), "user-1", ProfileUpdate{Name: &name})
	assert.True(t, IsNotFound(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Deactivate(t *testing.T) {
	st, mock := newPGStoreWithMock(t)
	now := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectExec(`UPDATE users SET deleted_at = \$2, updated_at = \$2 WHERE id = \$1 AND deleted_at IS NULL`).
		WithArgs("user-1", now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, st.Deactivate(context.Background(), "user-1", now))
	assert.NoError(t, mock.ExpectationsWereMet())
}
