package utils

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
)

// HashPassword returns the SHA-256 digest of plain encoded with the standard
// base64 alphabet (44 chars, no line wrapping). It is deterministic and
// unsalted because accounts are looked up by (login, digest).
func HashPassword(plain string) string {
	sum := sha256.Sum256([]byte(plain))
	return base64.StdEncoding.EncodeToString(sum[:])
}

// VerifyPassword compares a stored digest with the digest of plain in
// constant time.
func VerifyPassword(digest, plain string) bool {
	return subtle.ConstantTimeCompare([]byte(digest), []byte(HashPassword(plain))) == 1
}
