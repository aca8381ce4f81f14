package crypto

import (
	"fmt"

	"github.com/cloudflare/circl/sign/mldsa/mldsa65"

	"github.com/vaultsandbox/qrme/internal/apierrors"
	"github.com/vaultsandbox/qrme/internal/secmem"
)

// SigningKeypair is an ML-DSA-65 keypair used for detached model signatures.
type SigningKeypair struct {
	PublicKey []byte
	SecretKey *secmem.Buffer
}

// Destroy wipes the secret key.
func (k *SigningKeypair) Destroy() {
	if k == nil {
		return
	}
	k.SecretKey.Destroy()
}

// GenerateSigningKeypair creates a new ML-DSA-65 keypair.
func GenerateSigningKeypair(mem *secmem.Allocator) (*SigningKeypair, error) {
	if mem == nil {
		mem = secmem.Default()
	}

	pub, priv, err := mldsa65.GenerateKey(random())
	if err != nil {
		return nil, fmt.Errorf("%w: generate signing key: %v", apierrors.ErrCryptoBackend, err)
	}

	// MarshalBinary never fails for keys from GenerateKey
	pubBytes, _ := pub.MarshalBinary()
	privBytes, _ := priv.MarshalBinary()

	sk, err := mem.FromBytes(privBytes)
	if err != nil {
		secmem.Wipe(privBytes)
		return nil, err
	}

	return &SigningKeypair{PublicKey: pubBytes, SecretKey: sk}, nil
}

// SigningKeypairFromSecretKey rebuilds a signing keypair from its secret key.
// The secret key is copied; the caller keeps ownership of secretKey.
func SigningKeypairFromSecretKey(mem *secmem.Allocator, secretKey []byte) (*SigningKeypair, error) {
	if mem == nil {
		mem = secmem.Default()
	}
	if len(secretKey) != MLDSASecretKeySize {
		return nil, fmt.Errorf("%w: signing key is %d bytes, want %d",
			apierrors.ErrInvalidKeyLength, len(secretKey), MLDSASecretKeySize)
	}

	var priv mldsa65.PrivateKey
	if err := priv.UnmarshalBinary(secretKey); err != nil {
		return nil, fmt.Errorf("%w: parse signing key: %v", apierrors.ErrCryptoBackend, err)
	}
	pubBytes, _ := priv.Public().(*mldsa65.PublicKey).MarshalBinary()

	sk, err := mem.Clone(secretKey)
	if err != nil {
		return nil, err
	}
	return &SigningKeypair{PublicKey: pubBytes, SecretKey: sk}, nil
}

// Sign produces a deterministic ML-DSA-65 signature over message.
func Sign(secretKey, message []byte) ([]byte, error) {
	if len(secretKey) != MLDSASecretKeySize {
		return nil, fmt.Errorf("%w: signing key is %d bytes, want %d",
			apierrors.ErrInvalidKeyLength, len(secretKey), MLDSASecretKeySize)
	}

	var sk mldsa65.PrivateKey
	if err := sk.UnmarshalBinary(secretKey); err != nil {
		return nil, fmt.Errorf("%w: parse signing key: %v", apierrors.ErrCryptoBackend, err)
	}

	sig := make([]byte, MLDSASignatureSize)
	if err := mldsa65.SignTo(&sk, message, []byte(SignatureContext), false, sig); err != nil {
		return nil, fmt.Errorf("%w: sign: %v", apierrors.ErrCryptoBackend, err)
	}
	return sig, nil
}

// Verify verifies an ML-DSA-65 signature over message.
func Verify(publicKey, message, signature []byte) error {
	if len(publicKey) != MLDSAPublicKeySize {
		return fmt.Errorf("%w: verification key is %d bytes, want %d",
			apierrors.ErrInvalidKeyLength, len(publicKey), MLDSAPublicKeySize)
	}

	pk := &mldsa65.PublicKey{}
	if err := pk.UnmarshalBinary(publicKey); err != nil {
		return fmt.Errorf("failed to parse public key: %w", err)
	}

	if !mldsa65.Verify(pk, message, []byte(SignatureContext), signature) {
		return apierrors.ErrSignatureInvalid
	}

	return nil
}
