package identity

import (
	"context"
	"sync"
	"time"

	"warden/cmd/identity/ids"
)

// InMemoryStore is a dev-only fallback when DB is not configured.
// Login uniqueness is enforced under mu.
type InMemoryStore struct {
	mu      sync.Mutex
	users   map[string]*User
	creds   map[string]Credential // login -> credential
	digests map[string]string     // user id -> digest
}

// NewInMemoryStore constructs an in-memory Store implementation.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		users:   make(map[string]*User),
		creds:   make(map[string]Credential),
		digests: make(map[string]string),
	}
}

// CreateUser registers a user with one credential.
func (s *InMemoryStore) CreateUser(ctx context.Context, in CreateUserInput) (User, error) {
	const op = "identity.CreateUser"

	if !in.Kind.Valid() {
		return User{}, invalid(op, "unknown credential kind")
	}
	if in.Login == "" || in.Digest == "" {
		return User{}, invalid(op, "login and digest are required")
	}
	if err := ctx.Err(); err != nil {
		return User{}, err
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

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.creds[in.Login]; ok {
		return User{}, ConflictError{Op: op, Field: "login"}
	}

	u := &User{ID: userID, CreatedAt: now, UpdatedAt: now}
	s.users[userID] = u
	s.creds[in.Login] = Credential{
		ID:        credID,
		UserID:    userID,
		Kind:      in.Kind,
		Login:     in.Login,
		CreatedAt: now,
	}
	s.digests[userID] = in.Digest

	return s.snapshot(u), nil
}

// LoginTaken reports whether a credential of kind already uses login.
func (s *InMemoryStore) LoginTaken(ctx context.Context, kind CredentialKind, login string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.creds[login]
	return ok && c.Kind == kind, nil
}

// FindCredential loads a credential with its owner's digest.
func (s *InMemoryStore) FindCredential(ctx context.Context, kind CredentialKind, login string) (CredentialSecret, error) {
	if err := ctx.Err(); err != nil {
		return CredentialSecret{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.creds[login]
	if !ok || c.Kind != kind {
		return CredentialSecret{}, NotFoundError{Op: "identity.FindCredential", Resource: "credential"}
	}
	out := CredentialSecret{Credential: c, Digest: s.digests[c.UserID]}
	if u := s.users[c.UserID]; u != nil && u.DeletedAt != nil {
		t := *u.DeletedAt
		out.UserDeletedAt = &t
	}
	return out, nil
}

// GetUser loads a user, deactivated or not.
func (s *InMemoryStore) GetUser(ctx context.Context, userID string) (User, error) {
	if err := ctx.Err(); err != nil {
		return User{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	u := s.users[userID]
	if u == nil {
		return User{}, NotFoundError{Op: "identity.GetUser", Resource: "user"}
	}
	return s.snapshot(u), nil
}

// UpdateProfile applies the non-nil fields of upd to an active user.
func (s *InMemoryStore) UpdateProfile(ctx context.Context, userID string, upd ProfileUpdate) (User, error) {
	if err := ctx.Err(); err != nil {
		return User{}, err
	}
	now := upd.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u := s.users[userID]
	if u == nil || u.DeletedAt != nil {
		return User{}, NotFoundError{Op: "identity.UpdateProfile", Resource: "user"}
	}
	if upd.Name != nil {
		u.Name = cloneString(upd.Name)
	}
	if upd.MiddleName != nil {
		u.MiddleName = cloneString(upd.MiddleName)
	}
	if upd.LastName != nil {
		u.LastName = cloneString(upd.LastName)
	}
	if upd.Gender != nil {
		u.Gender = cloneString(upd.Gender)
	}
	if upd.BirthDate != nil {
		d := *upd.BirthDate
		u.BirthDate = &d
	}
	u.UpdatedAt = now
	return s.snapshot(u), nil
}

// Deactivate soft-deactivates an active user.
func (s *InMemoryStore) Deactivate(ctx context.Context, userID string, now time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u := s.users[userID]
	if u == nil || u.DeletedAt != nil {
		return NotFoundError{Op: "identity.Deactivate", Resource: "user"}
	}
	u.DeletedAt = &now
	u.UpdatedAt = now
	return nil
}

// snapshot copies u and resolves its username. Caller holds mu.
func (s *InMemoryStore) snapshot(u *User) User {
	out := *u
	out.Name = cloneString(u.Name)
	out.MiddleName = cloneString(u.MiddleName)
	out.LastName = cloneString(u.LastName)
	out.Gender = cloneString(u.Gender)
	if u.BirthDate != nil {
		d := *u.BirthDate
		out.BirthDate = &d
	}
	if u.DeletedAt != nil {
		d := *u.DeletedAt
		out.DeletedAt = &d
	}

	var first *Credential
	for _, c := range s.creds {
		if c.UserID != u.ID || c.Kind != KindUsername {
			continue
		}
		if first == nil || c.CreatedAt.Before(first.CreatedAt) {
			c := c
			first = &c
		}
	}
	if first != nil {
		login := first.Login
		out.Username = &login
	}
	return out
}

func cloneString(p *string) *string {
	if p == nil {
		return nil
	}
	s := *p
	return &s
}
