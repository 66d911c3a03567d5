package session

import (
	"crypto/rand"
	"errors"
)

const alphanumeric = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// Largest multiple of len(alphanumeric) that fits a byte; bytes at or above
// it are discarded so every character is equally likely.
const rejectAbove = 256 - 256%len(alphanumeric)

func newRefreshToken(n int) (string, error) {
	if n <= 0 {
		return "", errors.New("session: token length must be positive")
	}

	out := make([]byte, 0, n)
	buf := make([]byte, n+n/4)
	for len(out) < n {
		if _, err := rand.Read(buf); err != nil {
			return "", err
		}
		for _, b := range buf {
			if int(b) >= rejectAbove {
				continue
			}
			out = append(out, alphanumeric[int(b)%len(alphanumeric)])
			if len(out) == n {
				break
			}
		}
	}
	return string(out), nil
}
