package identity

import (
	"strings"
	"sync/atomic"
)

// plainHasher is a fast PasswordHasher for tests. Digests are "h:<password>".
type plainHasher struct {
	verifies atomic.Int64
}

func (h *plainHasher) Hash(password string) (string, error) {
	return "h:" + password, nil
}

func (h *plainHasher) Verify(encodedHash, password string) (bool, error) {
	h.verifies.Add(1)
	if !strings.HasPrefix(encodedHash, "h:") {
		return false, errBadDigest
	}
	return encodedHash == "h:"+password, nil
}

type stringError string

func (e stringError) Error() string { return string(e) }

const errBadDigest = stringError("bad digest")
