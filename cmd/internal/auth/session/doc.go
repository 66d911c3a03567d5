// Package session implements the refresh-token session lifecycle and the
// access-token codec.
//
// Access tokens are HS256 JWTs and are short-lived. Refresh tokens are
// 64-char alphanumeric strings; only their hex digest is persisted
// (HMAC-SHA256 when a key is configured, SHA-256 otherwise). Each refresh
// token backs one server-side session row that moves from active to
// disabled exactly once: on rotation, logout, lazy expiry or deactivation.
//
// Transport (HTTP cookies) is out of scope here.
package session
