package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"warden/cmd/identity"
	"warden/cmd/identity/ids"
	"warden/cmd/internal/dbx"
	"warden/cmd/security/token"
)

// createAttempts bounds retries on a refresh-token digest collision.
const createAttempts = 3

// Issued is the result of creating or rotating a session.
type Issued struct {
	SessionID    string
	UserID       string
	AccessToken  string
	AccessExp    time.Time
	RefreshToken string
	RefreshExp   time.Time
}

// Manager owns the refresh-token lifecycle:
// Active -> Disabled(superseded | logout | expired | deactivated).
// Disabled is terminal.
type Manager struct {
	cfg    Config
	store  Store
	codec  *TokenCodec
	digest token.Hasher
	owner  OwnerStatus
	now    func() time.Time
}

// OwnerStatus reports whether the user behind a session was deactivated.
type OwnerStatus func(ctx context.Context, userID string) (bool, error)

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithClock overrides the time source.
func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// WithOwnerStatus makes Rotate refuse sessions of deactivated users.
// Such a session is disabled with reason "deactivated".
func WithOwnerStatus(f OwnerStatus) ManagerOption {
	return func(m *Manager) { m.owner = f }
}

// NewManager constructs a Manager. digest hashes refresh tokens before
// they reach the store.
func NewManager(cfg Config, store Store, codec *TokenCodec, digest token.Hasher, opts ...ManagerOption) (*Manager, error) {
	if err := cfg.Check(); err != nil {
		return nil, err
	}
	if store == nil || codec == nil {
		return nil, fmt.Errorf("%w: manager requires store and codec", ErrConfig)
	}
	m := &Manager{
		cfg:    cfg,
		store:  store,
		codec:  codec,
		digest: digest,
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m, nil
}

// Codec returns the access-token codec used by the manager.
func (m *Manager) Codec() *TokenCodec { return m.codec }

// Create opens a new session for an authenticated principal.
func (m *Manager) Create(ctx context.Context, p identity.Principal) (Issued, error) {
	if p.UserID == "" || p.CredentialID == "" {
		return Issued{}, errors.New("session: incomplete principal")
	}
	now := m.now()

	for attempt := 1; ; attempt++ {
		row, plain, err := m.newRow(p.CredentialID, p.UserID, now)
		if err != nil {
			return Issued{}, err
		}

		err = m.store.Create(ctx, row)
		if errors.Is(err, ErrTokenConflict) && attempt < createAttempts {
			continue
		}
		if err != nil {
			return Issued{}, err
		}
		return m.issue(row, plain, now)
	}
}

// Rotate exchanges an active refresh token for a new session.
//
// The lookup, the new session and the disabling of the old one share one
// transaction. A session found past its refresh window is disabled with
// reason "expired" and that write is committed before ErrSessionExpired is
// returned; a session of a deactivated owner is handled the same way with
// ErrOwnerDeactivated. Two concurrent rotations of the same token serialize on the
// row lock; the loser sees a disabled row and gets ErrSessionRevoked.
func (m *Manager) Rotate(ctx context.Context, refresh string) (Issued, error) {
	refresh = strings.TrimSpace(refresh)
	if refresh == "" || len(refresh) > MaxTokenLength {
		return Issued{}, ErrSessionNotFound
	}
	digest := m.digest.Hex(refresh)
	now := m.now()

	var out Issued
	err := m.store.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		old, err := tx.GetByDigestForUpdate(ctx, digest)
		if err != nil {
			return err
		}
		if !old.Active() {
			return ErrSessionRevoked
		}
		if m.owner != nil {
			gone, err := m.owner(ctx, old.UserID)
			if err != nil {
				return err
			}
			if gone {
				if _, err := tx.Disable(ctx, old.ID, ReasonDeactivated, now); err != nil {
					return err
				}
				return dbx.Commit(ErrOwnerDeactivated)
			}
		}
		if now.Sub(old.CreatedAt) > m.cfg.RefreshTTL {
			if _, err := tx.Disable(ctx, old.ID, ReasonExpired, now); err != nil {
				return err
			}
			return dbx.Commit(ErrSessionExpired)
		}

		row, plain, err := m.newRow(old.CredentialID, old.UserID, now)
		if err != nil {
			return err
		}
		if err := tx.Create(ctx, row); err != nil {
			return err
		}

		disabled, err := tx.Disable(ctx, old.ID, ReasonSuperseded, now)
		if err != nil {
			return err
		}
		if !disabled {
			return ErrSessionRevoked
		}

		out, err = m.issue(row, plain, now)
		return err
	})
	if err != nil {
		return Issued{}, err
	}
	return out, nil
}

// Terminate disables the session behind refresh. Empty, unknown and
// already-disabled tokens are not errors.
func (m *Manager) Terminate(ctx context.Context, refresh string) error {
	refresh = strings.TrimSpace(refresh)
	if refresh == "" || len(refresh) > MaxTokenLength {
		return nil
	}
	_, err := m.store.DisableByDigest(ctx, m.digest.Hex(refresh), ReasonLogout, m.now())
	return err
}

// TerminateAll disables every active session of userID and returns how
// many were disabled.
func (m *Manager) TerminateAll(ctx context.Context, userID string) (int64, error) {
	if userID == "" {
		return 0, nil
	}
	return m.store.DisableAllForUser(ctx, userID, ReasonDeactivated, m.now())
}

func (m *Manager) newRow(credentialID, userID string, now time.Time) (Row, string, error) {
	plain, err := newRefreshToken(m.cfg.TokenLength)
	if err != nil {
		return Row{}, "", fmt.Errorf("session: refresh token: %w", err)
	}
	id, err := ids.NewULID(now)
	if err != nil {
		return Row{}, "", err
	}
	return Row{
		ID:           id,
		CredentialID: credentialID,
		UserID:       userID,
		TokenDigest:  m.digest.Hex(plain),
		CreatedAt:    now,
	}, plain, nil
}

func (m *Manager) issue(row Row, plain string, now time.Time) (Issued, error) {
	access, accessExp, err := m.codec.Encode(row.UserID, now)
	if err != nil {
		return Issued{}, err
	}
	return Issued{
		SessionID:    row.ID,
		UserID:       row.UserID,
		AccessToken:  access,
		AccessExp:    accessExp,
		RefreshToken: plain,
		RefreshExp:   now.Add(m.cfg.RefreshTTL),
	}, nil
}
