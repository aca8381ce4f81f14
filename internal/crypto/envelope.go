package crypto

import (
	"fmt"

	"github.com/vaultsandbox/qrme/internal/apierrors"
	"github.com/vaultsandbox/qrme/internal/secmem"
)

// Envelope combines ML-KEM-768 with AES-256-GCM. Every Encrypt performs a
// fresh encapsulation, so each payload is sealed under its own one-time key.
//
// Layout: KEM ciphertext (1088) || nonce (12) || AEAD ciphertext || tag (16).
type Envelope struct {
	kem  *KEM
	aead *AEAD
}

// NewEnvelope returns an Envelope that allocates secrets from mem. A nil
// allocator selects secmem.Default.
func NewEnvelope(mem *secmem.Allocator) *Envelope {
	return &Envelope{kem: NewKEM(mem), aead: NewAEAD(mem)}
}

// Encrypt seals plaintext to publicKey.
func (e *Envelope) Encrypt(publicKey, plaintext []byte) ([]byte, error) {
	if len(plaintext) == 0 {
		return nil, ErrEmptyPlaintext
	}

	kemCiphertext, sharedSecret, err := e.kem.Encapsulate(publicKey)
	if err != nil {
		return nil, err
	}
	defer sharedSecret.Destroy()

	sealed, err := e.aead.Seal(sharedSecret.Bytes(), plaintext)
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, len(plaintext)+EnvelopeOverhead)
	out = append(out, kemCiphertext...)
	out = append(out, sealed.Nonce...)
	out = append(out, sealed.Ciphertext...)
	out = append(out, sealed.Tag...)
	return out, nil
}

// Decrypt opens an envelope with secretKey. The plaintext is returned in a
// secure buffer owned by the caller.
//
// The decryption process:
//  1. Length check against the minimum layout
//  2. ML-KEM-768 decapsulation to recover the shared secret
//  3. AES-256-GCM tag verification and decryption
func (e *Envelope) Decrypt(secretKey, envelope []byte) (*secmem.Buffer, error) {
	if len(envelope) <= EnvelopeOverhead {
		return nil, &apierrors.DecryptionError{
			Stage: "length",
			Err: fmt.Errorf("%w: envelope is %d bytes, want more than %d",
				apierrors.ErrMalformedCiphertext, len(envelope), EnvelopeOverhead),
		}
	}

	kemCiphertext := envelope[:MLKEMCiphertextSize]
	nonce := envelope[MLKEMCiphertextSize : MLKEMCiphertextSize+AESNonceSize]
	body := envelope[MLKEMCiphertextSize+AESNonceSize : len(envelope)-AESTagSize]
	tag := envelope[len(envelope)-AESTagSize:]

	sharedSecret, err := e.kem.Decapsulate(secretKey, kemCiphertext)
	if err != nil {
		return nil, &apierrors.DecryptionError{Stage: "kem", Err: err}
	}
	defer sharedSecret.Destroy()

	plaintext, err := e.aead.Open(sharedSecret.Bytes(), nonce, body, tag)
	if err != nil {
		return nil, &apierrors.DecryptionError{Stage: "aead", Err: err}
	}

	return plaintext, nil
}
