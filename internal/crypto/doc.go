// Package crypto provides the cryptographic primitives behind qrme's
// encrypted model files. It implements post-quantum key encapsulation,
// authenticated encryption, key derivation and digital signatures using
// modern, standardized algorithms.
//
// # Algorithm Suite
//
// The package uses the following cryptographic algorithms:
//
//   - ML-KEM-768 (NIST FIPS 203): Post-quantum key encapsulation mechanism
//     for establishing a one-time shared secret per envelope. Provides
//     192-bit classical and quantum security levels.
//
//   - AES-256-GCM: Authenticated encryption for the payload. The 32-byte
//     ML-KEM shared secret is used directly as the AES key.
//
//   - HKDF-SHA-512 (RFC 5869): Expands a master secret into an ML-KEM seed
//     for deterministic keypair derivation.
//
//   - ML-DSA-65 (NIST FIPS 204): Post-quantum signatures for detached model
//     file signatures.
//
// # Envelope Layout
//
// [Envelope.Encrypt] produces
//
//	KEM ciphertext (1088) || nonce (12) || AES-GCM ciphertext || tag (16)
//
// and [Envelope.Decrypt] rejects anything not longer than the fixed
// overhead. The shared secret is wiped as soon as the AEAD step completes,
// on success and failure alike.
//
// # Critical Security Notes
//
// AES-GCM nonces MUST be unique for each encryption with the same key. Each
// envelope uses a fresh encapsulation (and therefore a fresh key) and a
// fresh random nonce, so a key is never used twice.
//
// A corrupted KEM ciphertext does not fail decapsulation: ML-KEM returns an
// unrelated shared secret, and the AES-GCM tag check rejects the payload.
// Tag verification is constant-time and no plaintext is released on failure.
//
// # Key Management
//
// Use [KEM.GenerateKeypair] to create a new ML-KEM-768 keypair. The secret
// key contains an embedded copy of the public key at offset 1152, which can
// be extracted using [KEM.KeypairFromSecretKey] or [DerivePublicKeyFromSecret].
//
// Keep secret keys secure. They should never be logged, transmitted in
// plaintext, or stored in version control. Use [Fingerprint] to refer to a
// public key in logs.
package crypto
