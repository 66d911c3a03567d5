package identity

import (
	"context"
	"time"
)

// User is the canonical identity. Profile fields are optional.
type User struct {
	ID         string
	Username   *string
	Name       *string
	MiddleName *string
	LastName   *string
	Gender     *string
	BirthDate  *time.Time
	DeletedAt  *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Deactivated reports whether the identity was soft-deactivated.
func (u User) Deactivated() bool { return u.DeletedAt != nil }

// Credential is one login of a user.
type Credential struct {
	ID          string
	UserID      string
	Kind        CredentialKind
	Login       string
	ConfirmedAt *time.Time
	CreatedAt   time.Time
}

// CredentialSecret is a credential joined with its owner's password digest
// and deactivation state, as needed by the verifier.
type CredentialSecret struct {
	Credential
	Digest        string
	UserDeletedAt *time.Time
}

// Principal is an authenticated identity and the credential it used.
type Principal struct {
	UserID       string
	CredentialID string
}

// CreateUserInput registers a user with one credential and a password digest.
// Login must already be normalized.
type CreateUserInput struct {
	Kind   CredentialKind
	Login  string
	Digest string
	Now    time.Time
}

// ProfileUpdate carries the profile fields to change. Nil fields are kept.
type ProfileUpdate struct {
	Name       *string
	MiddleName *string
	LastName   *string
	Gender     *string
	BirthDate  *time.Time
	Now        time.Time
}

// Empty reports whether the update changes nothing.
func (u ProfileUpdate) Empty() bool {
	return u.Name == nil && u.MiddleName == nil && u.LastName == nil && u.Gender == nil && u.BirthDate == nil
}

// Store is the identity persistence boundary.
//
// Implementations must enforce login uniqueness themselves (a unique
// constraint in Postgres, the mutex in memory) and report a lost race as
// ConflictError{Field: "login"}.
type Store interface {
	CreateUser(ctx context.Context, in CreateUserInput) (User, error)
	LoginTaken(ctx context.Context, kind CredentialKind, login string) (bool, error)
	FindCredential(ctx context.Context, kind CredentialKind, login string) (CredentialSecret, error)
	GetUser(ctx context.Context, userID string) (User, error)
	UpdateProfile(ctx context.Context, userID string, upd ProfileUpdate) (User, error)
	Deactivate(ctx context.Context, userID string, now time.Time) error
}
