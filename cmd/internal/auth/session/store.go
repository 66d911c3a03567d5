package session

import (
	"context"
	"time"
)

// Reason records why a session was disabled.
type Reason string

const (
	ReasonSuperseded  Reason = "superseded"
	ReasonLogout      Reason = "logout"
	ReasonExpired     Reason = "expired"
	ReasonDeactivated Reason = "deactivated"
)

// Row mirrors a user_sessions row. UserID is resolved through the owning
// credential.
type Row struct {
	ID             string
	CredentialID   string
	UserID         string
	TokenDigest    string
	CreatedAt      time.Time
	DisabledAt     *time.Time
	DisabledReason *Reason
}

// Active reports whether the session was never disabled.
func (r Row) Active() bool { return r.DisabledAt == nil }

// Tx is the set of session operations available inside a transaction.
type Tx interface {
	// Create inserts an active session. A duplicate digest yields ErrTokenConflict.
	Create(ctx context.Context, row Row) error

	// GetByDigestForUpdate loads a session by token digest and locks it
	// until the transaction ends. A miss yields ErrSessionNotFound.
	GetByDigestForUpdate(ctx context.Context, digest string) (Row, error)

	// Disable disables an active session. It reports false when the row
	// was already disabled or does not exist.
	Disable(ctx context.Context, id string, reason Reason, now time.Time) (bool, error)
}

// Store abstracts persistence for session state.
type Store interface {
	Tx

	// DisableByDigest disables the active session holding digest, if any.
	DisableByDigest(ctx context.Context, digest string, reason Reason, now time.Time) (bool, error)

	// DisableAllForUser disables every active session of every credential of userID.
	DisableAllForUser(ctx context.Context, userID string, reason Reason, now time.Time) (int64, error)

	// WithTx runs fn atomically. Returning an error rolls back unless it
	// was wrapped with dbx.Commit.
	WithTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}
