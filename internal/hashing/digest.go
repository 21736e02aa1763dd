package hashing

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Digest returns the sha256 hex digest of data.
func Digest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// DigestString returns the sha256 hex digest of s.
func DigestString(s string) string {
	return Digest([]byte(s))
}

// DigestFields builds a composite digest from an ordered list of fields.
// Each field is hashed independently before the final hash, so field
// boundaries are unambiguous regardless of the bytes a field contains.
func DigestFields(fields ...string) string {
	var b strings.Builder
	for _, field := range fields {
		b.WriteString(DigestString(field))
	}
	return DigestString(b.String())
}
