package qrme

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/vaultsandbox/qrme/internal/apierrors"
	"github.com/vaultsandbox/qrme/internal/crypto"
	"github.com/vaultsandbox/qrme/internal/secmem"
)

// ML-KEM-768 sizes and the envelope overhead.
const (
	PublicKeySize    = crypto.MLKEMPublicKeySize
	SecretKeySize    = crypto.MLKEMSecretKeySize
	CiphertextSize   = crypto.MLKEMCiphertextSize
	SharedSecretSize = crypto.MLKEMSharedKeySize
	EnvelopeOverhead = crypto.EnvelopeOverhead
)

// Ciphersuite names the algorithms behind keys, envelopes and signatures.
const Ciphersuite = crypto.AlgsCiphersuite

// MinMasterSecretSize is the shortest master secret DeriveKeypair accepts.
const MinMasterSecretSize = crypto.AESKeySize

// Keypair is an ML-KEM-768 keypair. The secret key is held in a secure
// buffer until Destroy.
type Keypair struct {
	PublicKey []byte
	secretKey *secmem.Buffer
}

func newKeypair(kp *crypto.Keypair) *Keypair {
	return &Keypair{PublicKey: kp.PublicKey, secretKey: kp.SecretKey}
}

// SecretKey returns the secret key bytes. The slice aliases secure memory and
// becomes nil after Destroy.
func (k *Keypair) SecretKey() []byte {
	return k.secretKey.Bytes()
}

// Fingerprint returns a short identifier of the public key.
func (k *Keypair) Fingerprint() string {
	return crypto.Fingerprint(k.PublicKey)
}

// Destroy wipes the secret key. It is safe to call more than once.
func (k *Keypair) Destroy() {
	if k == nil {
		return
	}
	k.secretKey.Destroy()
}

// GenerateKeypair creates a new random keypair.
func GenerateKeypair(opts ...Option) (*Keypair, error) {
	o := newOptions(opts)
	kp, err := crypto.NewKEM(o.allocator()).GenerateKeypair()
	if err != nil {
		return nil, err
	}
	k := newKeypair(kp)
	o.logger.Debug("keypair generated", slog.String("public_key", k.Fingerprint()))
	return k, nil
}

// DeriveKeypair deterministically derives a keypair from a master secret of
// at least MinMasterSecretSize bytes. Different labels yield independent keys.
func DeriveKeypair(master []byte, label string, opts ...Option) (*Keypair, error) {
	o := newOptions(opts)
	kp, err := crypto.NewKEM(o.allocator()).DeriveKeypair(master, label)
	if err != nil {
		return nil, err
	}
	k := newKeypair(kp)
	o.logger.Debug("keypair derived",
		slog.String("label", label),
		slog.String("public_key", k.Fingerprint()))
	return k, nil
}

// KeypairFromSecretKey rebuilds a keypair from a secret key. The public key
// is recovered from the secret key. secretKey is copied.
func KeypairFromSecretKey(secretKey []byte, opts ...Option) (*Keypair, error) {
	o := newOptions(opts)
	kp, err := crypto.NewKEM(o.allocator()).KeypairFromSecretKey(secretKey)
	if err != nil {
		return nil, err
	}
	return newKeypair(kp), nil
}

// WriteSecretKeyFile writes a raw secret key readable only by the owner.
func WriteSecretKeyFile(path string, secretKey []byte) error {
	return writeKeyFile(path, secretKey, SecretKeySize, 0o600)
}

// ReadSecretKeyFile reads a raw secret key and rebuilds its keypair.
func ReadSecretKeyFile(path string, opts ...Option) (*Keypair, error) {
	o := newOptions(opts)
	buf, err := readKeyFile(path, SecretKeySize, o.allocator())
	if err != nil {
		return nil, err
	}
	defer buf.Destroy()
	return KeypairFromSecretKey(buf.Bytes(), opts...)
}

// WritePublicKeyFile writes a raw public key.
func WritePublicKeyFile(path string, publicKey []byte) error {
	return writeKeyFile(path, publicKey, PublicKeySize, 0o644)
}

// ReadPublicKeyFile reads a raw public key.
func ReadPublicKeyFile(path string) ([]byte, error) {
	buf, err := readKeyFile(path, PublicKeySize, secmem.NewAllocator(false, 0))
	if err != nil {
		return nil, err
	}
	pk := append([]byte(nil), buf.Bytes()...)
	buf.Destroy()
	return pk, nil
}

func writeKeyFile(path string, key []byte, size int, perm os.FileMode) error {
	if len(key) != size {
		return fmt.Errorf("%w: key is %d bytes, want %d", apierrors.ErrInvalidKeyLength, len(key), size)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return apierrors.WrapIO("create key file", path, err)
	}
	if _, err := f.Write(key); err != nil {
		f.Close()
		return apierrors.WrapIO("write key file", path, err)
	}
	return apierrors.WrapIO("close key file", path, f.Close())
}

// readKeyFile reads a key of exactly size bytes into secure memory.
func readKeyFile(path string, size int, mem *secmem.Allocator) (*secmem.Buffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apierrors.WrapIO("open key file", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, apierrors.WrapIO("stat key file", path, err)
	}
	if info.Size() != int64(size) {
		return nil, fmt.Errorf("%w: %s is %d bytes, want %d",
			apierrors.ErrInvalidKeyLength, path, info.Size(), size)
	}

	buf, err := mem.New(size)
	if err != nil {
		return nil, err
	}
	if _, err := f.ReadAt(buf.Bytes(), 0); err != nil {
		buf.Destroy()
		return nil, apierrors.WrapIO("read key file", path, err)
	}
	return buf, nil
}
