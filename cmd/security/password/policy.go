package password

import "unicode/utf8"

// Validate checks password length policy. Lengths are counted in runes.
func (c Config) Validate(password string) error {
	n := utf8.RuneCountInString(password)

	if n < c.Policy.MinLength {
		return ErrPasswordTooShort
	}
	if n > c.Policy.MaxLength {
		return ErrPasswordTooLong
	}
	return nil
}

// BcryptMaxBytes is the input size bcrypt accepts.
const BcryptMaxBytes = 72

// MaxInputBytes returns the largest password, in bytes, the configured
// algorithm can hash, or 0 when there is no byte limit.
func (c Config) MaxInputBytes() int {
	if c.Algorithm == AlgorithmBcrypt {
		return BcryptMaxBytes
	}
	return 0
}
