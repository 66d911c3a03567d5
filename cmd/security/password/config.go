package password

import (
	"fmt"
	"runtime"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Algorithm selects the digest format produced by Hash.
type Algorithm string

const (
	AlgorithmArgon2id Algorithm = "argon2id"
	AlgorithmBcrypt   Algorithm = "bcrypt"
)

// Argon2idParams controls Argon2id hashing cost.
// MemoryKiB is in KiB as required by argon2.IDKey.
type Argon2idParams struct {
	MemoryKiB   uint32
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// Policy controls password length checks applied before hashing.
type Policy struct {
	MinLength int
	MaxLength int
}

// Config is the single configuration surface for this package.
type Config struct {
	Algorithm  Algorithm
	Params     Argon2idParams
	BcryptCost int
	Policy     Policy
}

// DefaultConfig returns the baseline used when nothing is overridden.
func DefaultConfig() Config {
	// Clamp to [1..4] to keep resource usage predictable in containers.
	threads := runtime.NumCPU()
	if threads <= 0 {
		threads = 1
	}
	if threads > 4 {
		threads = 4
	}

	return Config{
		Algorithm: AlgorithmArgon2id,
		Params: Argon2idParams{
			MemoryKiB:   64 * 1024,
			Iterations:  3,
			Parallelism: uint8(threads), // #nosec G115 -- clamped to [1..4] above.
			SaltLength:  16,
			KeyLength:   32,
		},
		BcryptCost: 12,
		Policy: Policy{
			MinLength: 10,
			MaxLength: 64,
		},
	}
}

// ParseAlgorithm maps a config string onto an Algorithm.
func ParseAlgorithm(s string) (Algorithm, error) {
	switch Algorithm(strings.ToLower(strings.TrimSpace(s))) {
	case "", AlgorithmArgon2id:
		return AlgorithmArgon2id, nil
	case AlgorithmBcrypt:
		return AlgorithmBcrypt, nil
	default:
		return "", fmt.Errorf("%w: unknown algorithm %q", ErrInvalidConfig, s)
	}
}

// Check validates cost parameters and policy bounds.
func (c Config) Check() error {
	if _, err := ParseAlgorithm(string(c.Algorithm)); err != nil {
		return err
	}
	if c.Params.MemoryKiB < 8*1024 || c.Params.MemoryKiB > 1024*1024 {
		return fmt.Errorf("%w: argon2 memory_kib out of range [%d..%d]", ErrInvalidConfig, 8*1024, 1024*1024)
	}
	if c.Params.Iterations < 1 || c.Params.Iterations > 20 {
		return fmt.Errorf("%w: argon2 iterations out of range [1..20]", ErrInvalidConfig)
	}
	if c.Params.Parallelism < 1 || c.Params.Parallelism > 64 {
		return fmt.Errorf("%w: argon2 parallelism out of range [1..64]", ErrInvalidConfig)
	}
	if c.Params.SaltLength < 8 || c.Params.SaltLength > 64 {
		return fmt.Errorf("%w: argon2 salt_len out of range [8..64]", ErrInvalidConfig)
	}
	if c.Params.KeyLength < 16 || c.Params.KeyLength > 64 {
		return fmt.Errorf("%w: argon2 key_len out of range [16..64]", ErrInvalidConfig)
	}
	if c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("%w: bcrypt cost out of range [%d..%d]", ErrInvalidConfig, bcrypt.MinCost, bcrypt.MaxCost)
	}
	if c.Policy.MinLength < 1 || c.Policy.MinLength > c.Policy.MaxLength {
		return fmt.Errorf(
			"%w: min_len(%d) > max_len(%d)",
			ErrInvalidConfig,
			c.Policy.MinLength,
			c.Policy.MaxLength,
		)
	}
	return nil
}
