package session

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

	"warden/cmd/internal/dbx"
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

var sessionCols = []string{"id", "user_credential_id", "user_id", "token", "created_at", "disabled_at", "disabled_reason"}

func TestPostgresStore_Create(t *testing.T) {
	st, mock := newPGStoreWithMock(t)
	now := time.Date(2026, 1, 12, 18, 0, 0, 0, time.UTC)

	mock.ExpectExec(`INSERT INTO user_sessions \(id, user_credential_id, token, created_at\)`).
		WithArgs("s1", "c1", "d1", now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := st.Create(context.Background(), Row{ID: "s1", CredentialID: "c1", TokenDigest: "d1", CreatedAt: now})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CreateTokenConflict(t *testing.T) {
	st, mock := newPGStoreWithMock(t)

	mock.ExpectExec(`INSERT INTO user_sessions`).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "user_sessions_token_key"})

	err := st.Create(context.Background(), Row{ID: "s1", CredentialID: "c1", TokenDigest: "d1"})
	assert.ErrorIs(t, err, ErrTokenConflict)
}

func TestPostgresStore_CreateOtherViolation(t *testing.T) {
	st, mock := newPGStoreWithMock(t)

	mock.ExpectExec(`INSERT INTO user_sessions`).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "user_sessions_pkey"})

	err := st.Create(context.Background(), Row{ID: "s1", CredentialID: "c1", TokenDigest: "d1"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrTokenConflict)
	assert.Contains(t, err.Error(), "db error")
}

func TestPostgresStore_GetByDigestForUpdate(t *testing.T) {
	st, mock := newPGStoreWithMock(t)
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	disabled := created.Add(time.Hour)

	mock.ExpectQuery(`FROM user_sessions s\s+JOIN user_credentials c .*FOR UPDATE OF s`).
		WithArgs("d1").
		WillReturnRows(sqlmock.NewRows(sessionCols).
			AddRow("s1", "c1", "u1", "d1", created, disabled, "logout"))

	row, err := st.GetByDigestForUpdate(context.Background(), "d1")
	require.NoError(t, err)
	assert.Equal(t, "u1", row.UserID)
	assert.False(t, row.Active())
	require.NotNil(t, row.DisabledReason)
	assert.Equal(t, ReasonLogout, *row.DisabledReason)
}

func TestPostgresStore_GetByDigestMiss(t *testing.T) {
	st, mock := newPGStoreWithMock(t)

	mock.ExpectQuery(`FROM user_sessions`).
		WithArgs("nope").
		WillReturnError(sql.ErrNoRows)

	_, err := st.GetByDigestForUpdate(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestPostgresStore_DisableConditional(t *testing.T) {
	st, mock := newPGStoreWithMock(t)
	now := time.Now().UTC()

	mock.ExpectExec(`UPDATE user_sessions\s+SET disabled_at = \$2, disabled_reason = \$3\s+WHERE id = \$1 AND disabled_at IS NULL`).
		WithArgs("s1", now, "superseded").
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := st.Disable(context.Background(), "s1", ReasonSuperseded, now)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPostgresStore_DisableAllForUser(t *testing.T) {
	st, mock := newPGStoreWithMock(t)
	now := time.Now().UTC()

	mock.ExpectExec(`UPDATE user_sessions s.*FROM user_credentials c`).
		WithArgs("u1", now, "deactivated").
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := st.DisableAllForUser(context.Background(), "u1", ReasonDeactivated, now)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)
}

func TestPostgresStore_WithTxCommitsLazyExpiry(t *testing.T) {
	st, mock := newPGStoreWithMock(t)
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE user_sessions`).
		WithArgs("s1", now, "expired").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := st.WithTx(context.Background(), func(ctx context.Context, tx Tx) error {
		if _, err := tx.Disable(ctx, "s1", ReasonExpired, now); err != nil {
			return err
		}
		return dbx.Commit(ErrSessionExpired)
	})
	assert.ErrorIs(t, err, ErrSessionExpired)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_WithTxRollsBack(t *testing.T) {
	st, mock := newPGStoreWithMock(t)

	mock.ExpectBegin()
	mock.ExpectRollback()

	boom := errors.New("boom")
	err := st.WithTx(context.Background(), func(context.Context, Tx) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}
