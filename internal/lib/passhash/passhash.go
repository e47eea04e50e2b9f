package passhash

import (
	"golang.org/x/crypto/bcrypt"
)

// Hash generates a salted bcrypt digest of the plaintext password. The salt
// is embedded in the digest, so hashing the same password twice yields
// different digests.
func Hash(password string) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
}

// Verify reports whether the plaintext password matches the digest. It never
// fails: a malformed digest simply compares false.
func Verify(password string, digest []byte) bool {
	return bcrypt.CompareHashAndPassword(digest, []byte(password)) == nil
}
