// Package identity owns users, their login credentials and password
// secrets.
//
// It normalizes logins and profile names, persists identities (Postgres or
// in-memory), and verifies credentials without revealing whether a login
// exists.
package identity
