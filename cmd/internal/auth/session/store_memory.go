package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"warden/cmd/internal/dbx"
)

// InMemoryStore is a dev-only fallback when DB is not configured.
// WithTx holds the store mutex for the whole function and restores a
// snapshot when it fails.
type InMemoryStore struct {
	mu       sync.Mutex
	rows     map[string]*Row   // id -> row
	byDigest map[string]string // digest -> id
}

// NewInMemoryStore constructs an in-memory Store implementation.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		rows:     make(map[string]*Row),
		byDigest: make(map[string]string),
	}
}

func (s *InMemoryStore) Create(ctx context.Context, row Row) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return memTx{s}.Create(ctx, row)
}

func (s *InMemoryStore) GetByDigestForUpdate(ctx context.Context, digest string) (Row, error) {
	if err := ctx.Err(); err != nil {
		return Row{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return memTx{s}.GetByDigestForUpdate(ctx, digest)
}

func (s *InMemoryStore) Disable(ctx context.Context, id string, reason Reason, now time.Time) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return memTx{s}.Disable(ctx, id, reason, now)
}

// DisableByDigest disables the active session holding digest.
func (s *InMemoryStore) DisableByDigest(ctx context.Context, digest string, reason Reason, now time.Time) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byDigest[digest]
	if !ok {
		return false, nil
	}
	return memTx{s}.Disable(ctx, id, reason, now)
}

// DisableAllForUser disables every active session of userID.
func (s *InMemoryStore) DisableAllForUser(ctx context.Context, userID string, reason Reason, now time.Time) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for _, r := range s.rows {
		if r.UserID != userID || !r.Active() {
			continue
		}
		disable(r, reason, now)
		n++
	}
	return n, nil
}

// WithTx runs fn under the store mutex.
func (s *InMemoryStore) WithTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.snapshot()
	err := fn(ctx, memTx{s})
	if err == nil {
		return nil
	}
	if dbx.IsCommit(err) {
		return errors.Unwrap(err)
	}
	s.rows, s.byDigest = snap.rows, snap.byDigest
	return err
}

// Len returns the number of stored sessions.
func (s *InMemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}

// Get returns a copy of the session with id.
func (s *InMemoryStore) Get(id string) (Row, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rows[id]
	if !ok {
		return Row{}, false
	}
	return copyRow(r), true
}

type memSnapshot struct {
	rows     map[string]*Row
	byDigest map[string]string
}

func (s *InMemoryStore) snapshot() memSnapshot {
	snap := memSnapshot{
		rows:     make(map[string]*Row, len(s.rows)),
		byDigest: make(map[string]string, len(s.byDigest)),
	}
	for id, r := range s.rows {
		c := copyRow(r)
		snap.rows[id] = &c
	}
	for d, id := range s.byDigest {
		snap.byDigest[d] = id
	}
	return snap
}

// memTx runs with s.mu held.
type memTx struct{ s *InMemoryStore }

func (t memTx) Create(_ context.Context, row Row) error {
	if _, ok := t.s.byDigest[row.TokenDigest]; ok {
		return ErrTokenConflict
	}
	c := copyRow(&row)
	c.DisabledAt, c.DisabledReason = nil, nil
	t.s.rows[row.ID] = &c
	t.s.byDigest[row.TokenDigest] = row.ID
	return nil
}

func (t memTx) GetByDigestForUpdate(_ context.Context, digest string) (Row, error) {
	id, ok := t.s.byDigest[digest]
	if !ok {
		return Row{}, ErrSessionNotFound
	}
	return copyRow(t.s.rows[id]), nil
}

func (t memTx) Disable(_ context.Context, id string, reason Reason, now time.Time) (bool, error) {
	r, ok := t.s.rows[id]
	if !ok || !r.Active() {
		return false, nil
	}
	disable(r, reason, now)
	return true, nil
}

func disable(r *Row, reason Reason, now time.Time) {
	t := now
	rs := reason
	r.DisabledAt = &t
	r.DisabledReason = &rs
}

func copyRow(r *Row) Row {
	out := *r
	if r.DisabledAt != nil {
		t := *r.DisabledAt
		out.DisabledAt = &t
	}
	if r.DisabledReason != nil {
		rs := *r.DisabledReason
		out.DisabledReason = &rs
	}
	return out
}
