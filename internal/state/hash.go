package state

import (
	"crypto/sha256"
	"encoding/hex"
)

// ComputeHash returns the content hash used as a book's identity: the first
// 16 bytes of the SHA-256 of data, hex encoded (32 chars).
func ComputeHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:16])
}
