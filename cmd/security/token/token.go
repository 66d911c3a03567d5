package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// HashSHA256Hex returns a SHA-256 hex digest of s.
func HashSHA256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// HashHMACSHA256Hex returns an HMAC-SHA256 hex digest of s using key.
func HashHMACSHA256Hex(s string, key []byte) string {
	m := hmac.New(sha256.New, key)
	_, _ = m.Write([]byte(s))
	return hex.EncodeToString(m.Sum(nil))
}

// Hasher computes the server-side digest of refresh tokens.
// The zero value hashes with plain SHA-256.
type Hasher struct {
	key []byte
}

// NewHasher returns a Hasher keyed with rawKey. A blank key selects SHA-256 mode.
func NewHasher(rawKey string) Hasher {
	k := strings.TrimSpace(rawKey)
	if k == "" {
		return Hasher{}
	}
	return Hasher{key: []byte(k)}
}

// HMACEnabled reports whether the hasher runs in keyed mode.
func (h Hasher) HMACEnabled() bool { return len(h.key) > 0 }

// Hex returns the 64-char hex digest of tok.
func (h Hasher) Hex(tok string) string {
	if len(h.key) == 0 {
		return HashSHA256Hex(tok)
	}
	return HashHMACSHA256Hex(tok, h.key)
}

// CheckKey enforces a minimum byte length on a configured HMAC key.
// Bytes are measured, not runes, because the key is used raw.
func CheckKey(rawKey string, minBytes int) error {
	k := strings.TrimSpace(rawKey)
	if k == "" {
		return ErrHMACKeyMissing
	}
	if minBytes > 0 && len(k) < minBytes {
		return ErrHMACKeyTooShort
	}
	return nil
}
