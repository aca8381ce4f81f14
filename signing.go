package qrme

import (
	"log/slog"
	"os"

	"github.com/vaultsandbox/qrme/internal/apierrors"
	"github.com/vaultsandbox/qrme/internal/crypto"
	"github.com/vaultsandbox/qrme/internal/secmem"
)

// SignatureSuffix is appended to a model path to name its detached signature.
const SignatureSuffix = ".sig"

// ML-DSA-65 sizes.
const (
	SigningPublicKeySize = crypto.MLDSAPublicKeySize
	SigningSecretKeySize = crypto.MLDSASecretKeySize
	SignatureSize        = crypto.MLDSASignatureSize
)

// SigningKeypair is an ML-DSA-65 keypair for detached model signatures.
type SigningKeypair struct {
	PublicKey []byte
	secretKey *secmem.Buffer
}

// SecretKey returns the secret key bytes. The slice aliases secure memory and
// becomes nil after Destroy.
func (k *SigningKeypair) SecretKey() []byte {
	return k.secretKey.Bytes()
}

// Destroy wipes the secret key.
func (k *SigningKeypair) Destroy() {
	if k == nil {
		return
	}
	k.secretKey.Destroy()
}

// GenerateSigningKeypair creates a new random signing keypair.
func GenerateSigningKeypair(opts ...Option) (*SigningKeypair, error) {
	o := newOptions(opts)
	kp, err := crypto.GenerateSigningKeypair(o.allocator())
	if err != nil {
		return nil, err
	}
	return &SigningKeypair{PublicKey: kp.PublicKey, secretKey: kp.SecretKey}, nil
}

// WriteSigningSecretKeyFile writes a raw signing secret key readable only by
// the owner.
func WriteSigningSecretKeyFile(path string, secretKey []byte) error {
	return writeKeyFile(path, secretKey, SigningSecretKeySize, 0o600)
}

// ReadSigningSecretKeyFile reads a raw signing secret key and rebuilds its
// keypair.
func ReadSigningSecretKeyFile(path string, opts ...Option) (*SigningKeypair, error) {
	o := newOptions(opts)
	mem := o.allocator()
	buf, err := readKeyFile(path, SigningSecretKeySize, mem)
	if err != nil {
		return nil, err
	}
	defer buf.Destroy()

	kp, err := crypto.SigningKeypairFromSecretKey(mem, buf.Bytes())
	if err != nil {
		return nil, err
	}
	return &SigningKeypair{PublicKey: kp.PublicKey, secretKey: kp.SecretKey}, nil
}

// WriteSigningPublicKeyFile writes a raw signing public key.
func WriteSigningPublicKeyFile(path string, publicKey []byte) error {
	return writeKeyFile(path, publicKey, SigningPublicKeySize, 0o644)
}

// ReadSigningPublicKeyFile reads a raw signing public key.
func ReadSigningPublicKeyFile(path string) ([]byte, error) {
	buf, err := readKeyFile(path, SigningPublicKeySize, secmem.NewAllocator(false, 0))
	if err != nil {
		return nil, err
	}
	pk := append([]byte(nil), buf.Bytes()...)
	buf.Destroy()
	return pk, nil
}

// SignFile signs the bytes of the file at path and writes the detached
// signature to path+SignatureSuffix.
func SignFile(path string, secretKey []byte, opts ...Option) error {
	o := newOptions(opts)

	data, err := os.ReadFile(path)
	if err != nil {
		return apierrors.WrapIO("read signed file", path, err)
	}
	sig, err := crypto.Sign(secretKey, data)
	if err != nil {
		return err
	}

	sigPath := path + SignatureSuffix
	if err := os.WriteFile(sigPath, sig, 0o644); err != nil {
		return apierrors.WrapIO("write signature", sigPath, err)
	}
	o.logger.Debug("file signed", slog.String("path", path), slog.String("signature", sigPath))
	return nil
}

// VerifyFile checks the detached signature at path+SignatureSuffix against
// the bytes of the file at path. A signature that does not verify fails with
// ErrSignatureInvalid.
func VerifyFile(path string, publicKey []byte, opts ...Option) error {
	o := newOptions(opts)

	data, err := os.ReadFile(path)
	if err != nil {
		return apierrors.WrapIO("read signed file", path, err)
	}
	sigPath := path + SignatureSuffix
	sig, err := os.ReadFile(sigPath)
	if err != nil {
		return apierrors.WrapIO("read signature", sigPath, err)
	}
	if err := crypto.Verify(publicKey, data, sig); err != nil {
		return err
	}
	o.logger.Debug("signature verified",
		slog.String("path", path),
		slog.String("signer", crypto.Fingerprint(publicKey)))
	return nil
}
