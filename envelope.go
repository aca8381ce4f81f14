package qrme

import (
	"log/slog"

	"github.com/vaultsandbox/qrme/internal/crypto"
	"github.com/vaultsandbox/qrme/internal/secmem"
)

// Encrypt seals plaintext to publicKey. The result is
// KEM ciphertext || nonce || AES-GCM ciphertext || tag, exactly
// len(plaintext)+EnvelopeOverhead bytes. Every call uses a fresh
// encapsulation and nonce.
func Encrypt(publicKey, plaintext []byte, opts ...Option) ([]byte, error) {
	o := newOptions(opts)
	envelope, err := crypto.NewEnvelope(o.allocator()).Encrypt(publicKey, plaintext)
	if err != nil {
		return nil, err
	}
	o.logger.Debug("envelope sealed",
		slog.String("public_key", crypto.Fingerprint(publicKey)),
		slog.Int("size", len(envelope)))
	return envelope, nil
}

// Decrypt opens an envelope with secretKey. Failures are reported as a
// *DecryptionError that matches ErrMalformedCiphertext, ErrInvalidKeyLength
// or ErrAuthenticationFailure. No plaintext is returned on failure.
//
// The returned slice is an ordinary heap copy; wipe it with Wipe when done.
func Decrypt(secretKey, envelope []byte, opts ...Option) ([]byte, error) {
	o := newOptions(opts)
	buf, err := crypto.NewEnvelope(o.allocator()).Decrypt(secretKey, envelope)
	if err != nil {
		return nil, err
	}
	defer buf.Destroy()
	return append([]byte(nil), buf.Bytes()...), nil
}

// Wipe overwrites b with zeros.
func Wipe(b []byte) {
	secmem.Wipe(b)
}

// Purge destroys every locked secure buffer still alive in the process.
// Programs using WithLockedMemory should defer it in main.
func Purge() {
	secmem.Purge()
}
