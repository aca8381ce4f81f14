// Package apierrors provides shared error types for the qrme packages.
package apierrors

import (
	"errors"
	"fmt"
)

// Sentinel errors for errors.Is() checks
var (
	// ErrAllocation is returned when a secure buffer cannot be allocated,
	// including requests above the configured allocation ceiling.
	ErrAllocation = errors.New("secure allocation failed")

	// ErrInvalidKeyLength is returned when a public or secret key does not
	// have the length fixed by the KEM algorithm.
	ErrInvalidKeyLength = errors.New("invalid key length")

	// ErrCryptoBackend is returned when an underlying cryptographic primitive
	// (randomness, key generation, encapsulation) reports a failure.
	ErrCryptoBackend = errors.New("crypto backend failure")

	// ErrAuthenticationFailure is returned when an AEAD tag does not verify.
	// It covers tampered ciphertext as well as decryption with the wrong key.
	ErrAuthenticationFailure = errors.New("authentication failed")

	// ErrMalformedCiphertext is returned when an envelope is shorter than
	// the minimum layout.
	ErrMalformedCiphertext = errors.New("malformed ciphertext")

	// ErrIO is returned when reading or writing a file fails.
	ErrIO = errors.New("i/o error")

	// ErrSizeMismatch is returned when decrypted layer weights do not match
	// the declared layer shape.
	ErrSizeMismatch = errors.New("size mismatch")

	// ErrInvalidModelStructure is returned when consecutive layers do not
	// chain or a model has no layers.
	ErrInvalidModelStructure = errors.New("invalid model structure")

	// ErrCapacityExceeded is returned when a model would exceed its layer limit.
	ErrCapacityExceeded = errors.New("layer capacity exceeded")

	// ErrInputSizeMismatch is returned when the inference input does not
	// match the model input width.
	ErrInputSizeMismatch = errors.New("input size mismatch")

	// ErrOutputSizeMismatch is returned when the inference output buffer does
	// not match the model output width.
	ErrOutputSizeMismatch = errors.New("output size mismatch")

	// ErrSignatureInvalid is returned when a detached signature does not verify.
	ErrSignatureInvalid = errors.New("signature verification failed")
)

// IOError wraps a filesystem or stream failure.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *IOError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is for sentinel error matching.
func (e *IOError) Is(target error) bool {
	return target == ErrIO
}

// WrapIO returns err wrapped in an IOError, or nil if err is nil.
func WrapIO(op, path string, err error) error {
	if err == nil {
		return nil
	}
	return &IOError{Op: op, Path: path, Err: err}
}

// DecryptionError reports which stage of envelope decryption failed.
type DecryptionError struct {
	Stage string // "length", "kem", "aead"
	Err   error
}

func (e *DecryptionError) Error() string {
	return fmt.Sprintf("decryption failed at %s: %v", e.Stage, e.Err)
}

// Unwrap returns the underlying error.
func (e *DecryptionError) Unwrap() error {
	return e.Err
}

// LayerError identifies the model layer an operation failed on.
type LayerError struct {
	Index int
	Op    string
	Err   error
}

func (e *LayerError) Error() string {
	return fmt.Sprintf("%s layer %d: %v", e.Op, e.Index, e.Err)
}

// Unwrap returns the underlying error.
func (e *LayerError) Unwrap() error {
	return e.Err
}
