// Package hasher provides the salted credential hash used at account
// creation and verification time. The function is deterministic for a
// given (password, salt) pair so that verification is a hash-and-compare;
// the salt comes from the node's system configuration, not per-user.
package hasher

import (
	"crypto/sha512"
	"encoding/hex"

	"golang.org/x/crypto/pbkdf2"
)

const (
	iterations = 4096
	keyLength  = 64
)

// Hash derives a hex-encoded PBKDF2-SHA512 digest of the password under
// the given salt. Repeated calls with identical inputs return identical
// output.
func Hash(password string, salt []byte) string {
	key := pbkdf2.Key([]byte(password), salt, iterations, keyLength, sha512.New)
	return hex.EncodeToString(key)
}
