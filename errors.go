package qrme

import (
	"github.com/vaultsandbox/qrme/internal/apierrors"
	"github.com/vaultsandbox/qrme/internal/crypto"
)

// Sentinel errors for errors.Is() checks
var (
	// ErrAllocation is returned when a secure buffer cannot be allocated.
	ErrAllocation = apierrors.ErrAllocation

	// ErrInvalidKeyLength is returned when a key has the wrong length.
	ErrInvalidKeyLength = apierrors.ErrInvalidKeyLength

	// ErrCryptoBackend is returned when a cryptographic primitive fails.
	ErrCryptoBackend = apierrors.ErrCryptoBackend

	// ErrAuthenticationFailure is returned on tampered data or a wrong key.
	ErrAuthenticationFailure = apierrors.ErrAuthenticationFailure

	// ErrMalformedCiphertext is returned when an envelope is too short.
	ErrMalformedCiphertext = apierrors.ErrMalformedCiphertext

	// ErrIO is returned when a file cannot be opened, read or written.
	ErrIO = apierrors.ErrIO

	// ErrSizeMismatch is returned when decrypted weights do not fit the
	// declared layer shape.
	ErrSizeMismatch = apierrors.ErrSizeMismatch

	// ErrInvalidModelStructure is returned when layers do not chain.
	ErrInvalidModelStructure = apierrors.ErrInvalidModelStructure

	// ErrCapacityExceeded is returned when a model has too many layers.
	ErrCapacityExceeded = apierrors.ErrCapacityExceeded

	// ErrInputSizeMismatch is returned when an inference input has the wrong width.
	ErrInputSizeMismatch = apierrors.ErrInputSizeMismatch

	// ErrOutputSizeMismatch is returned when an inference output buffer has the wrong width.
	ErrOutputSizeMismatch = apierrors.ErrOutputSizeMismatch

	// ErrSignatureInvalid is returned when a model signature does not verify.
	ErrSignatureInvalid = apierrors.ErrSignatureInvalid

	// ErrEmptyPlaintext is returned when asked to encrypt zero bytes.
	ErrEmptyPlaintext = crypto.ErrEmptyPlaintext
)

// IOError wraps a filesystem or stream failure. It matches ErrIO.
type IOError = apierrors.IOError

// DecryptionError reports the envelope stage ("length", "kem", "aead") at
// which decryption failed.
type DecryptionError = apierrors.DecryptionError

// LayerError identifies the layer a model operation failed on.
type LayerError = apierrors.LayerError
