package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AccessClaims are the verified claims of an access token.
type AccessClaims struct {
	Subject   string
	ID        string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// TokenCodec encodes and decodes HS256 access tokens.
type TokenCodec struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenCodec builds a codec from cfg.
func NewTokenCodec(cfg Config) (*TokenCodec, error) {
	if len(cfg.Secret) == 0 {
		return nil, fmt.Errorf("%w: missing signing secret", ErrConfig)
	}
	if cfg.AccessTTL <= 0 {
		return nil, fmt.Errorf("%w: access ttl must be positive", ErrConfig)
	}
	secret := make([]byte, len(cfg.Secret))
	copy(secret, cfg.Secret)
	return &TokenCodec{secret: secret, ttl: cfg.AccessTTL}, nil
}

// Encode signs {sub, iat, exp, jti} for subject and returns the compact
// token and its expiry. A failure here is a server fault.
func (c *TokenCodec) Encode(subject string, now time.Time) (string, time.Time, error) {
	if subject == "" {
		return "", time.Time{}, errors.New("session: empty subject")
	}

	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		ID:        uuid.NewString(),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("session: sign access token: %w", err)
	}
	return signed, claims.ExpiresAt.Time, nil
}

// Decode verifies tok against now. Every failure is ErrInvalidToken.
func (c *TokenCodec) Decode(tok string, now time.Time) (AccessClaims, error) {
	if tok == "" {
		return AccessClaims{}, ErrInvalidToken
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(func() time.Time { return now }),
		jwt.WithIssuedAt(),
		jwt.WithExpirationRequired(),
	)

	var claims jwt.RegisteredClaims
	parsed, err := parser.ParseWithClaims(tok, &claims, func(*jwt.Token) (any, error) {
		return c.secret, nil
	})
	if err != nil || !parsed.Valid {
		return AccessClaims{}, ErrInvalidToken
	}
	if claims.Subject == "" || claims.IssuedAt == nil || claims.ExpiresAt == nil {
		return AccessClaims{}, ErrInvalidToken
	}

	return AccessClaims{
		Subject:   claims.Subject,
		ID:        claims.ID,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}
