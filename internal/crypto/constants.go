package crypto

import (
	"github.com/cloudflare/circl/kem/mlkem/mlkem768"
	"github.com/cloudflare/circl/sign/mldsa/mldsa65"
)

const (
	// HKDFContext is the context string used in HKDF key derivation
	// for domain separation.
	HKDFContext = "qrme:mlkem768:v1"

	// SignatureContext is the ML-DSA context string bound into every
	// model signature.
	SignatureContext = "qrme:model-signature:v1"

	// MLKEMPublicKeySize is the size of an ML-KEM-768 public key in bytes.
	MLKEMPublicKeySize = mlkem768.PublicKeySize
	// MLKEMSecretKeySize is the size of an ML-KEM-768 secret key in bytes.
	MLKEMSecretKeySize = mlkem768.PrivateKeySize
	// MLKEMCiphertextSize is the size of an ML-KEM-768 ciphertext in bytes.
	MLKEMCiphertextSize = mlkem768.CiphertextSize
	// MLKEMSharedKeySize is the size of the shared secret from ML-KEM-768 in bytes.
	MLKEMSharedKeySize = mlkem768.SharedKeySize
	// MLKEMSeedSize is the size of the seed a keypair is derived from.
	MLKEMSeedSize = mlkem768.KeySeedSize
	// MLKEMEncapsulationSeedSize is the randomness consumed per encapsulation.
	MLKEMEncapsulationSeedSize = mlkem768.EncapsulationSeedSize

	// MLDSAPublicKeySize is the size of an ML-DSA-65 public key in bytes.
	MLDSAPublicKeySize = mldsa65.PublicKeySize
	// MLDSASecretKeySize is the size of an ML-DSA-65 private key in bytes.
	MLDSASecretKeySize = mldsa65.PrivateKeySize
	// MLDSASignatureSize is the size of an ML-DSA-65 signature in bytes.
	MLDSASignatureSize = mldsa65.SignatureSize

	// AESKeySize is the size of an AES-256 key in bytes.
	AESKeySize = 32
	// AESNonceSize is the size of an AES-GCM nonce in bytes.
	AESNonceSize = 12
	// AESTagSize is the size of an AES-GCM authentication tag in bytes.
	AESTagSize = 16

	// PublicKeyOffset is the byte offset where the public key is embedded
	// within an ML-KEM-768 secret key.
	PublicKeyOffset = 1152

	// EnvelopeOverhead is the number of bytes an envelope adds to its plaintext:
	// KEM ciphertext, nonce and tag.
	EnvelopeOverhead = MLKEMCiphertextSize + AESNonceSize + AESTagSize
)

// AlgsCiphersuite is the canonical string representation of the algorithm suite.
const AlgsCiphersuite = "ML-KEM-768:AES-256-GCM:ML-DSA-65:HKDF-SHA-512"
