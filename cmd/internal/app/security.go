package app

import (
	"errors"
	"fmt"

	"warden/cmd/security/token"
)

const minTokenHMACBytes = 32

// newTokenHasher builds the refresh-token digest hasher. With
// RequireTokenHMAC set, a missing or short key is a startup error.
func newTokenHasher(cfg Config) (token.Hasher, error) {
	err := token.CheckKey(cfg.TokenHMACKey, minTokenHMACBytes)
	switch {
	case err == nil:
		return token.NewHasher(cfg.TokenHMACKey), nil
	case !cfg.RequireTokenHMAC && errors.Is(err, token.ErrHMACKeyMissing):
		return token.NewHasher(""), nil
	case errors.Is(err, token.ErrHMACKeyMissing):
		return token.Hasher{}, errors.New("security policy: WARDEN_REQUIRE_TOKEN_HMAC=true but WARDEN_TOKEN_HMAC_KEY is missing")
	case errors.Is(err, token.ErrHMACKeyTooShort):
		return token.Hasher{}, fmt.Errorf("security policy: WARDEN_TOKEN_HMAC_KEY is too short (min %d bytes)", minTokenHMACBytes)
	default:
		return token.Hasher{}, err
	}
}
