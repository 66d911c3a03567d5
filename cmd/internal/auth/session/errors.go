package session

import "errors"

var (
	// ErrInvalidToken is returned when an access token fails any check.
	ErrInvalidToken = errors.New("invalid token")

	// ErrSessionNotFound is returned when a refresh token matches no session.
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionExpired is returned when an active session outlived the refresh window.
	ErrSessionExpired = errors.New("session expired")

	// ErrSessionRevoked is returned when the session is already disabled.
	ErrSessionRevoked = errors.New("session revoked")

	// ErrOwnerDeactivated is returned when the session's user was deactivated.
	ErrOwnerDeactivated = errors.New("session owner deactivated")

	// ErrTokenConflict is returned by stores when a token digest already exists.
	ErrTokenConflict = errors.New("session token conflict")

	// ErrConfig is returned for invalid configuration.
	ErrConfig = errors.New("invalid config")
)

// IsRejected reports whether err is a refresh rejection (as opposed to a fault).
func IsRejected(err error) bool {
	return errors.Is(err, ErrSessionNotFound) ||
		errors.Is(err, ErrSessionExpired) ||
		errors.Is(err, ErrSessionRevoked) ||
		errors.Is(err, ErrOwnerDeactivated)
}
