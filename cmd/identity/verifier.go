package identity

import (
	"context"
	"errors"
	"fmt"
)

// PasswordHasher hashes and verifies password digests.
// security/password.Config satisfies it.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(encodedHash, password string) (bool, error)
}

// dummyPassword only feeds the timing-equalisation digest.
const dummyPassword = "warden-dummy-password"

// Verifier checks a login/password pair against stored credentials.
//
// Unknown logins, wrong passwords, unreadable digests and deactivated
// owners all fail with ErrInvalidCredentials. A digest is verified on every
// path so response time does not reveal whether the login exists.
type Verifier struct {
	store  Store
	hasher PasswordHasher
	dummy  string
}

// NewVerifier builds a Verifier. It hashes a dummy password once, so it
// pays one full hash at startup.
func NewVerifier(store Store, hasher PasswordHasher) (*Verifier, error) {
	if store == nil || hasher == nil {
		return nil, errors.New("identity: verifier requires store and hasher")
	}
	dummy, err := hasher.Hash(dummyPassword + "-0123456789")
	if err != nil {
		return nil, fmt.Errorf("identity: dummy digest: %w", err)
	}
	return &Verifier{store: store, hasher: hasher, dummy: dummy}, nil
}

// Verify authenticates login (normalized here) and plain.
// Storage faults are returned unchanged.
func (v *Verifier) Verify(ctx context.Context, kind CredentialKind, login, plain string) (Principal, error) {
	cred, err := v.store.FindCredential(ctx, kind, NormalizeLogin(login))
	if err != nil {
		if IsNotFound(err) {
			_, _ = v.hasher.Verify(v.dummy, plain)
			return Principal{}, ErrInvalidCredentials
		}
		return Principal{}, err
	}

	ok, err := v.hasher.Verify(cred.Digest, plain)
	if err != nil || !ok {
		return Principal{}, ErrInvalidCredentials
	}
	if cred.UserDeletedAt != nil {
		return Principal{}, ErrInvalidCredentials
	}

	return Principal{UserID: cred.UserID, CredentialID: cred.ID}, nil
}
