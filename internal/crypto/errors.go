package crypto

import "errors"

var (
	// ErrInvalidKeySize is returned when the AES key size is invalid.
	ErrInvalidKeySize = errors.New("invalid key size")

	// ErrInvalidNonceSize is returned when the nonce size is invalid.
	ErrInvalidNonceSize = errors.New("invalid nonce size")

	// ErrInvalidTagSize is returned when the authentication tag size is invalid.
	ErrInvalidTagSize = errors.New("invalid tag size")

	// ErrEmptyPlaintext is returned when asked to encrypt zero bytes. The
	// envelope layout requires at least one byte of AEAD ciphertext.
	ErrEmptyPlaintext = errors.New("empty plaintext")
)
