package crypto

import (
	"encoding/hex"

	"golang.org/x/crypto/sha3"
)

// Fingerprint returns a short SHA3-256 fingerprint of public material,
// suitable for logs and display. Never pass secret keys.
func Fingerprint(data []byte) string {
	sum := sha3.Sum256(data)
	return hex.EncodeToString(sum[:16])
}
