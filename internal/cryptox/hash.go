package cryptox

import (
	"crypto/sha256"
	"encoding/hex"
)

// Hash returns the SHA-256 hex digest of the plaintext bytes. Computed
// before encryption, it serves both as a tamper-evidence value and as
// the payload anchored to the external ledger.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// VerifyHash recomputes the digest and compares it to expectedHex.
// The digest is not a secret, so an exact-match comparison suffices.
func VerifyHash(data []byte, expectedHex string) bool {
	return Hash(data) == expectedHex
}
