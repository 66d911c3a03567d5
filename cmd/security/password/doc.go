// Package password provides password hashing and verification.
//
// New digests use Argon2id in a PHC-like encoded format by default; bcrypt can
// be selected instead. Verify accepts both formats, so credentials imported
// with bcrypt digests keep working after the default changes.
//
// Encoded hashes are treated as untrusted input: Verify refuses parameters far
// above the configured ones.
package password
