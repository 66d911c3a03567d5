package session

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func newTestCodec(t *testing.T) *TokenCodec {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Secret = testSecret()
	c, err := NewTokenCodec(cfg)
	if err != nil {
		t.Fatalf("NewTokenCodec: %v", err)
	}
	return c
}

func TestTokenCodec_RoundTrip(t *testing.T) {
	c := newTestCodec(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tok, exp, err := c.Encode("01HZX3J0Q4N8W6YB2C5D7E9F1G", now)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !exp.Equal(now.Add(15 * time.Minute)) {
		t.Fatalf("exp=%v", exp)
	}

	claims, err := c.Decode(tok, now.Add(time.Minute))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if claims.Subject != "01HZX3J0Q4N8W6YB2C5D7E9F1G" {
		t.Fatalf("subject=%q", claims.Subject)
	}
	if claims.ID == "" {
		t.Fatalf("missing jti")
	}
	if !claims.IssuedAt.Equal(now) {
		t.Fatalf("iat=%v", claims.IssuedAt)
	}
}

func TestTokenCodec_UniqueJTI(t *testing.T) {
	c := newTestCodec(t)
	now := time.Now().UTC()

	a, _, err := c.Encode("user", now)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	b, _, err := c.Encode("user", now)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if a == b {
		t.Fatalf("tokens issued in the same second must differ")
	}
}

func TestTokenCodec_RejectsAgedToken(t *testing.T) {
	c := newTestCodec(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tok, _, err := c.Encode("user", now)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if _, err := c.Decode(tok, now.Add(15*time.Minute+time.Second)); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestTokenCodec_RejectsTampering(t *testing.T) {
	c := newTestCodec(t)
	now := time.Now().UTC()

	tok, _, err := c.Encode("user", now)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	other := DefaultConfig()
	other.Secret = []byte(strings.Repeat("x", 32))
	oc, err := NewTokenCodec(other)
	if err != nil {
		t.Fatalf("NewTokenCodec: %v", err)
	}

	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Subject:   "user",
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute)),
	})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("SignedString(none): %v", err)
	}

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.RegisteredClaims{
		Subject:   "user",
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute)),
	}).SignedString(testSecret())
	if err != nil {
		t.Fatalf("SignedString(HS512): %v", err)
	}

	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:  "user",
		IssuedAt: jwt.NewNumericDate(now),
	}).SignedString(testSecret())
	if err != nil {
		t.Fatalf("SignedString(no exp): %v", err)
	}

	noSub, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute)),
	}).SignedString(testSecret())
	if err != nil {
		t.Fatalf("SignedString(no sub): %v", err)
	}

	cases := map[string]struct {
		codec *TokenCodec
		tok   string
	}{
		"wrong key":   {codec: oc, tok: tok},
		"alg none":    {codec: c, tok: unsigned},
		"alg HS512":   {codec: c, tok: hs512},
		"missing exp": {codec: c, tok: noExp},
		"missing sub": {codec: c, tok: noSub},
		"garbage":     {codec: c, tok: "not.a.jwt"},
		"empty":       {codec: c, tok: ""},
		"truncated":   {codec: c, tok: tok[:len(tok)-4]},
	}
	for name, tc := range cases {
		if _, err := tc.codec.Decode(tc.tok, now); err != ErrInvalidToken {
			t.Fatalf("%s: expected ErrInvalidToken, got %v", name, err)
		}
	}
}
