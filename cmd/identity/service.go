package identity

import (
	"context"
	"errors"
	"strings"
	"time"
)

// Service runs the identity use cases behind the HTTP layer: registration,
// profile reads and updates, and deactivation.
type Service struct {
	store  Store
	hasher PasswordHasher
	now    func() time.Time
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithClock overrides the time source.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService builds a Service.
func NewService(store Store, hasher PasswordHasher, opts ...ServiceOption) (*Service, error) {
	if store == nil || hasher == nil {
		return nil, errors.New("identity: service requires store and hasher")
	}
	s := &Service{
		store:  store,
		hasher: hasher,
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

// Register creates a user with a username credential. username must be
// validated; it is normalized again here so the store never sees raw input.
func (s *Service) Register(ctx context.Context, username, password string) (User, error) {
	digest, err := s.hasher.Hash(password)
	if err != nil {
		return User{}, err
	}
	return s.store.CreateUser(ctx, CreateUserInput{
		Kind:   KindUsername,
		Login:  NormalizeLogin(username),
		Digest: digest,
		Now:    s.now(),
	})
}

// LoginTaken reports whether a username is already registered.
func (s *Service) LoginTaken(ctx context.Context, username string) (bool, error) {
	return s.store.LoginTaken(ctx, KindUsername, NormalizeLogin(username))
}

// Get loads a user. A deactivated user is returned together with
// ErrDeactivated so callers can still tell it apart from a missing one.
func (s *Service) Get(ctx context.Context, userID string) (User, error) {
	u, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return User{}, err
	}
	if u.Deactivated() {
		return u, ErrDeactivated
	}
	return u, nil
}

// Deactivated reports whether userID can no longer hold sessions: the
// user was deactivated or no longer exists.
func (s *Service) Deactivated(ctx context.Context, userID string) (bool, error) {
	_, err := s.Get(ctx, userID)
	switch {
	case err == nil:
		return false, nil
	case errors.Is(err, ErrDeactivated), IsNotFound(err):
		return true, nil
	default:
		return false, err
	}
}

// ProfileInput is a validated profile change; empty strings mean "keep".
type ProfileInput struct {
	Name       string
	MiddleName string
	LastName   string
	Gender     string
	BirthDate  *time.Time
}

// UpdateProfile stores names capitalized per hyphen part and gender
// lower-cased.
func (s *Service) UpdateProfile(ctx context.Context, userID string, in ProfileInput) (User, error) {
	upd := ProfileUpdate{
		Name:       nameOrNil(in.Name),
		MiddleName: nameOrNil(in.MiddleName),
		LastName:   nameOrNil(in.LastName),
		BirthDate:  in.BirthDate,
		Now:        s.now(),
	}
	if g := strings.ToLower(strings.TrimSpace(in.Gender)); g != "" {
		upd.Gender = &g
	}
	if upd.Empty() {
		return User{}, invalid("identity.UpdateProfile", "nothing to update")
	}
	return s.store.UpdateProfile(ctx, userID, upd)
}

// Deactivate soft-deactivates a user.
func (s *Service) Deactivate(ctx context.Context, userID string) error {
	return s.store.Deactivate(ctx, userID, s.now())
}

func nameOrNil(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	c := CapitalizeName(s)
	if c == "" {
		return nil
	}
	return &c
}
