package authapi

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"warden/cmd/identity"
	"warden/cmd/internal/auth/session"
)

// Gate rejections. Their messages double as the wire detail.
var (
	ErrUnauthenticated    = errors.New("authentication required")
	ErrInvalidAccessToken = errors.New("access token is invalid or expired")
	ErrUnknownSubject     = errors.New("user not found")
)

// UserLookup resolves an access-token subject. identity.Service satisfies it.
type UserLookup interface {
	Get(ctx context.Context, userID string) (identity.User, error)
}

// Gate authenticates requests carrying "Authorization: Bearer <token>".
type Gate struct {
	codec *session.TokenCodec
	users UserLookup
	now   func() time.Time
}

// NewGate builds a Gate.
func NewGate(codec *session.TokenCodec, users UserLookup, now func() time.Time) *Gate {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Gate{codec: codec, users: users, now: now}
}

// Authenticate resolves the calling user. It fails with one of the gate
// errors, identity.ErrDeactivated, or a storage fault.
func (g *Gate) Authenticate(r *http.Request) (identity.User, error) {
	tok, ok := bearerToken(r)
	if !ok {
		return identity.User{}, ErrUnauthenticated
	}
	claims, err := g.codec.Decode(tok, g.now())
	if err != nil {
		return identity.User{}, ErrInvalidAccessToken
	}
	u, err := g.users.Get(r.Context(), claims.Subject)
	switch {
	case err == nil:
		return u, nil
	case errors.Is(err, identity.ErrDeactivated):
		return identity.User{}, identity.ErrDeactivated
	case identity.IsNotFound(err):
		return identity.User{}, ErrUnknownSubject
	default:
		return identity.User{}, err
	}
}

// bearerToken accepts exactly two whitespace-separated parts, the first
// being the case-sensitive scheme "Bearer".
func bearerToken(r *http.Request) (string, bool) {
	parts := strings.Fields(r.Header.Get("Authorization"))
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", false
	}
	return parts[1], true
}
