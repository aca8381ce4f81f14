package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"
	"io"

	"github.com/vaultsandbox/qrme/internal/apierrors"
	"github.com/vaultsandbox/qrme/internal/secmem"
)

// Sealed is the output of one AES-256-GCM encryption.
type Sealed struct {
	Nonce      []byte
	Ciphertext []byte
	Tag        []byte
}

// AEAD encrypts and authenticates payloads with AES-256-GCM.
type AEAD struct {
	mem *secmem.Allocator
}

// NewAEAD returns an AEAD that allocates plaintexts from mem. A nil
// allocator selects secmem.Default.
func NewAEAD(mem *secmem.Allocator) *AEAD {
	if mem == nil {
		mem = secmem.Default()
	}
	return &AEAD{mem: mem}
}

func newGCM(key []byte) (cipher.AEAD, error) {
	if len(key) != AESKeySize {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrInvalidKeySize, len(key), AESKeySize)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return gcm, nil
}

// Seal encrypts plaintext under key with a fresh random 96-bit nonce.
// The ciphertext has the same length as the plaintext.
func (a *AEAD) Seal(key, plaintext []byte) (*Sealed, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, AESNonceSize)
	if _, err := io.ReadFull(random(), nonce); err != nil {
		return nil, fmt.Errorf("%w: read nonce: %v", apierrors.ErrCryptoBackend, err)
	}

	out := gcm.Seal(nil, nonce, plaintext, nil)
	return &Sealed{
		Nonce:      nonce,
		Ciphertext: out[:len(plaintext)],
		Tag:        out[len(plaintext):],
	}, nil
}

// Open verifies the tag and decrypts ciphertext into a secure buffer owned
// by the caller. On tag mismatch no plaintext is returned and the error is
// ErrAuthenticationFailure regardless of where the mismatch occurred.
func (a *AEAD) Open(key, nonce, ciphertext, tag []byte) (*secmem.Buffer, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	if len(nonce) != AESNonceSize {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrInvalidNonceSize, len(nonce), AESNonceSize)
	}
	if len(tag) != AESTagSize {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrInvalidTagSize, len(tag), AESTagSize)
	}

	sealed := make([]byte, 0, len(ciphertext)+AESTagSize)
	sealed = append(sealed, ciphertext...)
	sealed = append(sealed, tag...)

	plaintext, err := a.mem.New(len(ciphertext))
	if err != nil {
		return nil, err
	}

	// Open writes into the buffer's backing array and zeroes it on failure.
	if _, err := gcm.Open(plaintext.Bytes()[:0], nonce, sealed, nil); err != nil {
		plaintext.Destroy()
		return nil, apierrors.ErrAuthenticationFailure
	}

	return plaintext, nil
}
