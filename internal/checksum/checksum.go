// Package checksum provides short digests used to identify secrets in logs.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
)

// Sum returns the hex-encoded SHA-256 digest of s.
func Sum(s string) string {
	h := sha256.Sum256([]byte(s))
	return hex.EncodeToString(h[:])
}

// Fingerprint returns the first 12 hex chars of Sum, or "" for an empty token.
// Bearer tokens are only ever logged through this.
func Fingerprint(token string) string {
	if token == "" {
		return ""
	}
	return Sum(token)[:12]
}
