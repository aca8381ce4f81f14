package crypto

import (
	"bytes"
	"crypto/rand"
	"errors"
	"testing"

	"github.com/vaultsandbox/qrme/internal/apierrors"
)

func randomKey(t testing.TB) []byte {
	t.Helper()
	key := make([]byte, AESKeySize)
	if _, err := rand.Read(key); err != nil {
		t.Fatal(err)
	}
	return key
}

func TestAEAD_SealOpen_RoundTrip(t *testing.T) {
	tests := []struct {
		name      string
		plaintext []byte
	}{
		{"empty", []byte{}},
		{"simple", []byte("hello world")},
		{"binary", []byte{0x00, 0xff, 0x7f, 0x80}},
		{"large", make([]byte, 10000)},
	}

	aead := NewAEAD(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := randomKey(t)

			sealed, err := aead.Seal(key, tt.plaintext)
			if err != nil {
				t.Fatalf("Seal() error = %v", err)
			}

			if len(sealed.Nonce) != AESNonceSize {
				t.Errorf("nonce length = %d, want %d", len(sealed.Nonce), AESNonceSize)
			}
			if len(sealed.Ciphertext) != len(tt.plaintext) {
				t.Errorf("ciphertext length = %d, want %d", len(sealed.Ciphertext), len(tt.plaintext))
			}
			if len(sealed.Tag) != AESTagSize {
				t.Errorf("tag length = %d, want %d", len(sealed.Tag), AESTagSize)
			}

			plaintext, err := aead.Open(key, sealed.Nonce, sealed.Ciphertext, sealed.Tag)
			if err != nil {
				t.Fatalf("Open() error = %v", err)
			}
			defer plaintext.Destroy()

			if !bytes.Equal(plaintext.Bytes(), tt.plaintext) {
				t.Errorf("decrypted = %v, want %v", plaintext.Bytes(), tt.plaintext)
			}
		})
	}
}

func TestAEAD_FreshNonce(t *testing.T) {
	aead := NewAEAD(nil)
	key := randomKey(t)

	s1, err := aead.Seal(key, []byte("same plaintext"))
	if err != nil {
		t.Fatal(err)
	}
	s2, err := aead.Seal(key, []byte("same plaintext"))
	if err != nil {
		t.Fatal(err)
	}

	if bytes.Equal(s1.Nonce, s2.Nonce) {
		t.Error("two Seal calls reused a nonce")
	}
}

func TestAEAD_InvalidKeySize(t *testing.T) {
	tests := []struct {
		name    string
		keySize int
	}{
		{"empty", 0},
		{"too short", 16},
		{"too long", 64},
	}

	aead := NewAEAD(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := make([]byte, tt.keySize)
			if _, err := aead.Seal(key, []byte("test")); !errors.Is(err, ErrInvalidKeySize) {
				t.Errorf("Seal() expected ErrInvalidKeySize, got %v", err)
			}
			if _, err := aead.Open(key, make([]byte, AESNonceSize), []byte("test"), make([]byte, AESTagSize)); !errors.Is(err, ErrInvalidKeySize) {
				t.Errorf("Open() expected ErrInvalidKeySize, got %v", err)
			}
		})
	}
}

func TestAEAD_Open_InvalidNonceAndTagSize(t *testing.T) {
	aead := NewAEAD(nil)
	key := randomKey(t)

	if _, err := aead.Open(key, make([]byte, 8), []byte("x"), make([]byte, AESTagSize)); !errors.Is(err, ErrInvalidNonceSize) {
		t.Errorf("expected ErrInvalidNonceSize, got %v", err)
	}
	if _, err := aead.Open(key, make([]byte, AESNonceSize), []byte("x"), make([]byte, 4)); !errors.Is(err, ErrInvalidTagSize) {
		t.Errorf("expected ErrInvalidTagSize, got %v", err)
	}
}

func TestAEAD_Open_Tampered(t *testing.T) {
	aead := NewAEAD(nil)
	key := randomKey(t)

	tests := []struct {
		name   string
		tamper func(s *Sealed)
	}{
		{"ciphertext", func(s *Sealed) { s.Ciphertext[0] ^= 0x01 }},
		{"tag", func(s *Sealed) { s.Tag[AESTagSize-1] ^= 0x80 }},
		{"nonce", func(s *Sealed) { s.Nonce[5] ^= 0x10 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sealed, err := aead.Seal(key, []byte("secret weights"))
			if err != nil {
				t.Fatal(err)
			}
			tt.tamper(sealed)

			plaintext, err := aead.Open(key, sealed.Nonce, sealed.Ciphertext, sealed.Tag)
			if !errors.Is(err, apierrors.ErrAuthenticationFailure) {
				t.Errorf("expected ErrAuthenticationFailure, got %v", err)
			}
			if plaintext != nil {
				t.Error("plaintext returned on authentication failure")
			}
		})
	}
}

func TestAEAD_Open_WrongKey(t *testing.T) {
	aead := NewAEAD(nil)

	sealed, err := aead.Seal(randomKey(t), []byte("secret"))
	if err != nil {
		t.Fatal(err)
	}

	_, err = aead.Open(randomKey(t), sealed.Nonce, sealed.Ciphertext, sealed.Tag)
	if !errors.Is(err, apierrors.ErrAuthenticationFailure) {
		t.Errorf("expected ErrAuthenticationFailure, got %v", err)
	}
}

func TestAEAD_Seal_RandomFailure(t *testing.T) {
	restore := SetRandReaderForTesting(failingReader{})
	defer restore()

	_, err := NewAEAD(nil).Seal(make([]byte, AESKeySize), []byte("x"))
	if !errors.Is(err, apierrors.ErrCryptoBackend) {
		t.Errorf("expected ErrCryptoBackend, got %v", err)
	}
}

func BenchmarkAEAD_Seal(b *testing.B) {
	aead := NewAEAD(nil)
	key := randomKey(b)
	plaintext := make([]byte, 4096)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := aead.Seal(key, plaintext); err != nil {
			b.Fatal(err)
		}
	}
}
