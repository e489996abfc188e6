// Package secret mints and compares the per-payment shared secrets that
// authenticate out-of-band payment notifications.
package secret

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
)

// Size is the entropy of a payment secret in bytes.
const Size = 32

// New returns Size bytes from a cryptographically secure source, encoded as
// lowercase hex.
func New() (string, error) {
	buf := make([]byte, Size)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("secret: read entropy: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// Equal compares two secrets in constant time.
func Equal(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
