package session

import (
	"fmt"
	"time"
)

const (
	// MaxTokenLength bounds refresh tokens; longer input is rejected unhashed.
	MaxTokenLength = 128

	minSecretBytes = 32
)

// Config defines the runtime configuration of the session subsystem.
// It is built once by the app layer and passed in explicitly.
type Config struct {
	// AccessTTL is the lifetime of access tokens.
	AccessTTL time.Duration

	// RefreshTTL is the refresh window. A session older than this is
	// invalid even if it was never disabled.
	RefreshTTL time.Duration

	// Secret is the HS256 signing key.
	Secret []byte

	// TokenLength is the number of alphanumeric characters in a refresh token.
	TokenLength int
}

// DefaultConfig returns defaults without a secret.
func DefaultConfig() Config {
	return Config{
		AccessTTL:   15 * time.Minute,
		RefreshTTL:  21 * 24 * time.Hour,
		TokenLength: 64,
	}
}

// Check validates the configuration.
func (c Config) Check() error {
	if c.AccessTTL <= 0 {
		return fmt.Errorf("%w: access ttl must be positive", ErrConfig)
	}
	if c.RefreshTTL <= 0 {
		return fmt.Errorf("%w: refresh ttl must be positive", ErrConfig)
	}
	if c.RefreshTTL < c.AccessTTL {
		return fmt.Errorf("%w: refresh ttl shorter than access ttl", ErrConfig)
	}
	if len(c.Secret) < minSecretBytes {
		return fmt.Errorf("%w: signing secret must be at least %d bytes", ErrConfig, minSecretBytes)
	}
	if c.TokenLength < 32 || c.TokenLength > MaxTokenLength {
		return fmt.Errorf("%w: token length out of range [32..%d]", ErrConfig, MaxTokenLength)
	}
	return nil
}
