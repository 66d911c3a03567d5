// Package token provides refresh-token digest primitives.
//
// Refresh tokens are never persisted in plaintext. The server stores a stable
// 64-char hex digest: HMAC-SHA256(token, key) when a key is configured,
// otherwise SHA-256(token) for development.
package token
