package identity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"warden/cmd/identity/ids"
	"warden/cmd/internal/dbx"
)

// PostgresStore implements Store over database/sql (pgx stdlib driver).
//
// The *sql.DB is owned by the caller; this store must NOT close it.
// Uniqueness of logins is enforced by the user_credentials_login_key
// constraint and surfaced as ConflictError{Field: "login"}.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore constructs a PostgresStore.
func NewPostgresStore(db *sql.DB) (*PostgresStore, error) {
	if db == nil {
		return nil, fmt.Errorf("identity: nil db")
	}
	return &PostgresStore{db: db}, nil
}

// CreateUser inserts the user, its credential and its password digest in
// one transaction.
func (s *PostgresStore) CreateUser(ctx context.Context, in CreateUserInput) (User, error) {
	const op = "identity.CreateUser"

	if !in.Kind.Valid() {
		return User{}, invalid(op, "unknown credential kind")
	}
	if in.Login == "" || in.Digest == "" {
		return User{}, invalid(op, "login and digest are required")
	}

	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	userID, err := ids.NewULID(now)
	if err != nil {
		return User{}, err
	}
	credID, err := ids.NewULID(now)
	if err != nil {
		return User{}, err
	}
	pwID, err := ids.NewULID(now)
	if err != nil {
		return User{}, err
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO users (id, created_at, updated_at) VALUES ($1, $2, $2)`,
			userID, now,
		); err != nil {
			return fmt.Errorf("insert user: %w", err)
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO user_credentials (id, user_id, kind, login, created_at) VALUES ($1, $2, $3, $4, $5)`,
			credID, userID, string(in.Kind), in.Login, now,
		); err != nil {
			if c, ok := dbx.UniqueViolation(err); ok && strings.Contains(c, "login") {
				return ConflictError{Op: op, Field: "login"}
			}
			return fmt.Errorf("insert credential: %w", err)
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO user_passwords (id, user_id, digest, created_at) VALUES ($1, $2, $3, $4)`,
			pwID, userID, in.Digest, now,
		); err != nil {
			return fmt.Errorf("insert password: %w", err)
		}
		return nil
	})
	if err != nil {
		return User{}, err
	}

	u := User{ID: userID, CreatedAt: now, UpdatedAt: now}
	if in.Kind == KindUsername {
		login := in.Login
		u.Username = &login
	}
	return u, nil
}

// LoginTaken reports whether a credential of kind already uses login.
func (s *PostgresStore) LoginTaken(ctx context.Context, kind CredentialKind, login string) (bool, error) {
	var taken bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM user_credentials WHERE kind = $1 AND login = $2)`,
		string(kind), login,
	).Scan(&taken)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return taken, nil
}

// FindCredential loads a credential with its owner's digest.
func (s *PostgresStore) FindCredential(ctx context.Context, kind CredentialKind, login string) (CredentialSecret, error) {
	const op = "identity.FindCredential"

	var (
		out  CredentialSecret
		kstr string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT c.id, c.user_id, c.kind, c.login, c.confirmed_at, c.created_at, p.digest, u.deleted_at
		FROM user_credentials c
		JOIN users u ON u.id = c.user_id
		JOIN user_passwords p ON p.user_id = c.user_id
		WHERE c.kind = $1 AND c.login = $2
	`, string(kind), login).Scan(
		&out.ID,
		&out.UserID,
		&kstr,
		&out.Login,
		&out.ConfirmedAt,
		&out.CreatedAt,
		&out.Digest,
		&out.UserDeletedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return CredentialSecret{}, NotFoundError{Op: op, Resource: "credential"}
	}
	if err != nil {
		return CredentialSecret{}, fmt.Errorf("db error: %w", err)
	}
	out.Kind = CredentialKind(kstr)
	return out, nil
}

const selectUser = `
	SELECT u.id, u.name, u.middle_name, u.last_name, u.gender, u.birth_date,
	       u.deleted_at, u.created_at, u.updated_at,
	       (SELECT c.login FROM user_credentials c
	         WHERE c.user_id = u.id AND c.kind = 'username'
	         ORDER BY c.created_at LIMIT 1)
	FROM users u
	WHERE u.id = $1
`

// GetUser loads a user, deactivated or not. The caller decides what a
// deactivated user means.
func (s *PostgresStore) GetUser(ctx context.Context, userID string) (User, error) {
	return s.getUser(ctx, s.db, userID)
}

func (s *PostgresStore) getUser(ctx context.Context, q dbx.DBTX, userID string) (User, error) {
	const op = "identity.GetUser"

	var u User
	err := q.QueryRowContext(ctx, selectUser, userID).Scan(
		&u.ID,
		&u.Name,
		&u.MiddleName,
		&u.LastName,
		&u.Gender,
		&u.BirthDate,
		&u.DeletedAt,
		&u.CreatedAt,
		&u.UpdatedAt,
		&u.Username,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, NotFoundError{Op: op, Resource: "user"}
	}
	if err != nil {
		return User{}, fmt.Errorf("db error: %w", err)
	}
	return u, nil
}

// UpdateProfile applies the non-nil fields of upd to an active user and
// returns the updated row.
func (s *PostgresStore) UpdateProfile(ctx context.Context, userID string, upd ProfileUpdate) (User, error) {
	const op = "identity.UpdateProfile"

	now := upd.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	var out User
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE users SET
				name = COALESCE($2, name),
				middle_name = COALESCE($3, middle_name),
				last_name = COALESCE($4, last_name),
				gender = COALESCE($5, gender),
				birth_date = COALESCE($6, birth_date),
				updated_at = $7
			WHERE id = $1 AND deleted_at IS NULL
		`, userID, upd.Name, upd.MiddleName, upd.LastName, upd.Gender, upd.BirthDate, now)
		if err != nil {
			return fmt.Errorf("db error: %w", err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return fmt.Errorf("db error: %w", err)
		} else if n == 0 {
			return NotFoundError{Op: op, Resource: "user"}
		}

		out, err = s.getUser(ctx, tx, userID)
		return err
	})
	if err != nil {
		return User{}, err
	}
	return out, nil
}

// Deactivate soft-deactivates an active user.
func (s *PostgresStore) Deactivate(ctx context.Context, userID string, now time.Time) error {
	const op = "identity.Deactivate"

	if now.IsZero() {
		now = time.Now().UTC()
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET deleted_at = $2, updated_at = $2 WHERE id = $1 AND deleted_at IS NULL`,
		userID, now,
	)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return NotFoundError{Op: op, Resource: "user"}
	}
	return nil
}
