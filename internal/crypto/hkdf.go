package crypto

import (
	"crypto/sha512"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// DeriveKey derives a key using HKDF-SHA-512.
//
// Parameters:
//   - secret: the input key material (e.g., a master secret)
//   - salt: optional salt value; if empty, a zero-filled salt is used
//   - info: context/application-specific info for domain separation
//   - length: desired output key length in bytes
func DeriveKey(secret, salt, info []byte, length int) ([]byte, error) {
	key := make([]byte, length)
	if err := DeriveKeyInto(key, secret, salt, info); err != nil {
		return nil, err
	}
	return key, nil
}

// DeriveKeyInto fills dst with HKDF-SHA-512 output. It lets callers derive
// directly into a secure buffer.
func DeriveKeyInto(dst, secret, salt, info []byte) error {
	if len(salt) == 0 {
		salt = make([]byte, sha512.Size)
	}

	reader := hkdf.New(sha512.New, secret, salt, info)
	if _, err := io.ReadFull(reader, dst); err != nil {
		return fmt.Errorf("failed to derive key: %w", err)
	}

	return nil
}
