package crypto

import (
	"crypto/rand"
	"fmt"
	"io"

	"github.com/cloudflare/circl/kem/mlkem/mlkem768"

	"github.com/vaultsandbox/qrme/internal/apierrors"
	"github.com/vaultsandbox/qrme/internal/secmem"
)

// randReader is the random source used for key generation, encapsulation
// and nonces. It defaults to nil (which uses crypto/rand) but can be
// overridden for testing.
var randReader io.Reader

func random() io.Reader {
	if randReader != nil {
		return randReader
	}
	return rand.Reader
}

// Keypair represents an ML-KEM-768 keypair for key encapsulation.
type Keypair struct {
	// PublicKey is the raw ML-KEM-768 public key bytes.
	PublicKey []byte
	// SecretKey holds the raw ML-KEM-768 secret key bytes.
	SecretKey *secmem.Buffer
}

// Destroy wipes the secret key.
func (k *Keypair) Destroy() {
	if k == nil {
		return
	}
	k.SecretKey.Destroy()
}

// KEM performs ML-KEM-768 key generation, encapsulation and decapsulation.
// Secret outputs are allocated from its allocator.
type KEM struct {
	mem *secmem.Allocator
}

// NewKEM returns a KEM that allocates secrets from mem. A nil allocator
// selects secmem.Default.
func NewKEM(mem *secmem.Allocator) *KEM {
	if mem == nil {
		mem = secmem.Default()
	}
	return &KEM{mem: mem}
}

// GenerateKeypair creates a new ML-KEM-768 keypair.
func (k *KEM) GenerateKeypair() (*Keypair, error) {
	seed, err := k.mem.New(MLKEMSeedSize)
	if err != nil {
		return nil, err
	}
	defer seed.Destroy()

	if _, err := io.ReadFull(random(), seed.Bytes()); err != nil {
		return nil, fmt.Errorf("%w: read key seed: %v", apierrors.ErrCryptoBackend, err)
	}

	return k.keypairFromSeed(seed.Bytes())
}

// DeriveKeypair deterministically derives a keypair from a master secret
// and a label. The same inputs always produce the same keypair.
func (k *KEM) DeriveKeypair(master []byte, label string) (*Keypair, error) {
	if len(master) < AESKeySize {
		return nil, fmt.Errorf("%w: master secret is %d bytes, want at least %d",
			apierrors.ErrInvalidKeyLength, len(master), AESKeySize)
	}

	seed, err := k.mem.New(MLKEMSeedSize)
	if err != nil {
		return nil, err
	}
	defer seed.Destroy()

	if err := DeriveKeyInto(seed.Bytes(), master, nil, []byte(HKDFContext+":"+label)); err != nil {
		return nil, fmt.Errorf("%w: %v", apierrors.ErrCryptoBackend, err)
	}

	return k.keypairFromSeed(seed.Bytes())
}

func (k *KEM) keypairFromSeed(seed []byte) (*Keypair, error) {
	pub, priv := mlkem768.NewKeyFromSeed(seed)

	sk, err := k.mem.New(MLKEMSecretKeySize)
	if err != nil {
		return nil, err
	}
	priv.Pack(sk.Bytes())

	pk := make([]byte, MLKEMPublicKeySize)
	pub.Pack(pk)

	return &Keypair{PublicKey: pk, SecretKey: sk}, nil
}

// KeypairFromSecretKey reconstructs a keypair from the secret key.
// The public key is embedded in the secret key at offset 1152. The secret
// key is copied; the caller keeps ownership of secretKey.
func (k *KEM) KeypairFromSecretKey(secretKey []byte) (*Keypair, error) {
	publicKey, err := DerivePublicKeyFromSecret(secretKey)
	if err != nil {
		return nil, err
	}

	var priv mlkem768.PrivateKey
	if err := priv.Unpack(secretKey); err != nil {
		return nil, fmt.Errorf("%w: unpack secret key: %v", apierrors.ErrCryptoBackend, err)
	}

	sk, err := k.mem.Clone(secretKey)
	if err != nil {
		return nil, err
	}

	return &Keypair{PublicKey: publicKey, SecretKey: sk}, nil
}

// DerivePublicKeyFromSecret extracts the public key from a secret key.
// In ML-KEM-768, the public key is embedded in the secret key.
func DerivePublicKeyFromSecret(secretKey []byte) ([]byte, error) {
	if len(secretKey) != MLKEMSecretKeySize {
		return nil, fmt.Errorf("%w: secret key is %d bytes, want %d",
			apierrors.ErrInvalidKeyLength, len(secretKey), MLKEMSecretKeySize)
	}

	publicKey := make([]byte, MLKEMPublicKeySize)
	copy(publicKey, secretKey[PublicKeyOffset:PublicKeyOffset+MLKEMPublicKeySize])
	return publicKey, nil
}

// Encapsulate derives a fresh shared secret for publicKey. It returns the
// KEM ciphertext and the shared secret; the caller owns and must destroy
// the shared secret.
func (k *KEM) Encapsulate(publicKey []byte) ([]byte, *secmem.Buffer, error) {
	if len(publicKey) != MLKEMPublicKeySize {
		return nil, nil, fmt.Errorf("%w: public key is %d bytes, want %d",
			apierrors.ErrInvalidKeyLength, len(publicKey), MLKEMPublicKeySize)
	}

	var pub mlkem768.PublicKey
	if err := pub.Unpack(publicKey); err != nil {
		return nil, nil, fmt.Errorf("%w: unpack public key: %v", apierrors.ErrCryptoBackend, err)
	}

	seed, err := k.mem.New(MLKEMEncapsulationSeedSize)
	if err != nil {
		return nil, nil, err
	}
	defer seed.Destroy()

	if _, err := io.ReadFull(random(), seed.Bytes()); err != nil {
		return nil, nil, fmt.Errorf("%w: read encapsulation seed: %v", apierrors.ErrCryptoBackend, err)
	}

	sharedSecret, err := k.mem.New(MLKEMSharedKeySize)
	if err != nil {
		return nil, nil, err
	}

	ct := make([]byte, MLKEMCiphertextSize)
	pub.EncapsulateTo(ct, sharedSecret.Bytes(), seed.Bytes())

	return ct, sharedSecret, nil
}

// Decapsulate recovers the shared secret from a KEM ciphertext. A corrupted
// ciphertext still yields a (wrong) shared secret; integrity is enforced by
// the AEAD layer. The caller owns and must destroy the shared secret.
func (k *KEM) Decapsulate(secretKey, ciphertext []byte) (*secmem.Buffer, error) {
	if len(secretKey) != MLKEMSecretKeySize {
		return nil, fmt.Errorf("%w: secret key is %d bytes, want %d",
			apierrors.ErrInvalidKeyLength, len(secretKey), MLKEMSecretKeySize)
	}

	if len(ciphertext) != MLKEMCiphertextSize {
		return nil, fmt.Errorf("%w: KEM ciphertext is %d bytes, want %d",
			apierrors.ErrMalformedCiphertext, len(ciphertext), MLKEMCiphertextSize)
	}

	var priv mlkem768.PrivateKey
	if err := priv.Unpack(secretKey); err != nil {
		return nil, fmt.Errorf("%w: unpack secret key: %v", apierrors.ErrCryptoBackend, err)
	}

	sharedSecret, err := k.mem.New(MLKEMSharedKeySize)
	if err != nil {
		return nil, err
	}
	priv.DecapsulateTo(sharedSecret.Bytes(), ciphertext)

	return sharedSecret, nil
}
