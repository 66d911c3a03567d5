package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"warden/cmd/internal/dbx"
)

// PostgresStore implements Store over database/sql.
// The *sql.DB is owned by the caller.
type PostgresStore struct {
	pgQueries
	db *sql.DB
}

// NewPostgresStore constructs a PostgresStore.
func NewPostgresStore(db *sql.DB) (*PostgresStore, error) {
	if db == nil {
		return nil, fmt.Errorf("session: nil db")
	}
	return &PostgresStore{pgQueries: pgQueries{q: db}, db: db}, nil
}

// WithTx runs fn in a read-committed transaction.
func (s *PostgresStore) WithTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	return dbx.WithTx(ctx, s.db, &sql.TxOptions{Isolation: sql.LevelReadCommitted}, func(ctx context.Context, q dbx.DBTX) error {
		return fn(ctx, pgQueries{q: q})
	})
}

// DisableByDigest disables the active session holding digest.
func (s *PostgresStore) DisableByDigest(ctx context.Context, digest string, reason Reason, now time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE user_sessions
		SET disabled_at = $2, disabled_reason = $3
		WHERE token = $1 AND disabled_at IS NULL
	`, digest, now, string(reason))
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return n > 0, nil
}

// DisableAllForUser disables every active session of userID.
func (s *PostgresStore) DisableAllForUser(ctx context.Context, userID string, reason Reason, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE user_sessions s
		SET disabled_at = $2, disabled_reason = $3
		FROM user_credentials c
		WHERE c.id = s.user_credential_id
		  AND c.user_id = $1
		  AND s.disabled_at IS NULL
	`, userID, now, string(reason))
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

// pgQueries implements Tx over any DBTX, so the same queries run inside
// and outside a transaction.
type pgQueries struct {
	q dbx.DBTX
}

func (p pgQueries) Create(ctx context.Context, row Row) error {
	_, err := p.q.ExecContext(ctx, `
		INSERT INTO user_sessions (id, user_credential_id, token, created_at)
		VALUES ($1, $2, $3, $4)
	`, row.ID, row.CredentialID, row.TokenDigest, row.CreatedAt)
	if err != nil {
		if c, ok := dbx.UniqueViolation(err); ok && strings.Contains(c, "token") {
			return ErrTokenConflict
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (p pgQueries) GetByDigestForUpdate(ctx context.Context, digest string) (Row, error) {
	var (
		row    Row
		reason sql.NullString
	)
	err := p.q.QueryRowContext(ctx, `
		SELECT s.id, s.user_credential_id, c.user_id, s.token,
		       s.created_at, s.disabled_at, s.disabled_reason
		FROM user_sessions s
		JOIN user_credentials c ON c.id = s.user_credential_id
		WHERE s.token = $1
		FOR UPDATE OF s
	`, digest).Scan(
		&row.ID,
		&row.CredentialID,
		&row.UserID,
		&row.TokenDigest,
		&row.CreatedAt,
		&row.DisabledAt,
		&reason,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Row{}, ErrSessionNotFound
	}
	if err != nil {
		return Row{}, fmt.Errorf("db error: %w", err)
	}
	if reason.Valid {
		r := Reason(reason.String)
		row.DisabledReason = &r
	}
	return row, nil
}

func (p pgQueries) Disable(ctx context.Context, id string, reason Reason, now time.Time) (bool, error) {
	res, err := p.q.ExecContext(ctx, `
		UPDATE user_sessions
		SET disabled_at = $2, disabled_reason = $3
		WHERE id = $1 AND disabled_at IS NULL
	`, id, now, string(reason))
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return n > 0, nil
}
