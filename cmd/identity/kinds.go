package identity

import "errors"

// Sentinel error kinds (stable for errors.Is and for mapping to API status codes).
var (
	ErrInvalidInput = errors.New("invalid_input")
	ErrNotFound     = errors.New("not_found")
	ErrConflict     = errors.New("conflict")

	// ErrInvalidCredentials is the only login failure callers ever see.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrDeactivated marks an identity that exists but was soft-deactivated.
	ErrDeactivated = errors.New("identity deactivated")
)

// CredentialKind discriminates what a login string is.
type CredentialKind string

const (
	KindUsername CredentialKind = "username"
	KindEmail    CredentialKind = "email"
	KindPhone    CredentialKind = "phone"
)

// Valid reports whether k is one of the known kinds.
func (k CredentialKind) Valid() bool {
	switch k {
	case KindUsername, KindEmail, KindPhone:
		return true
	default:
		return false
	}
}
