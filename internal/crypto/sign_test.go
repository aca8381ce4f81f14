package crypto

import (
	"bytes"
	"errors"
	"testing"

	"github.com/vaultsandbox/qrme/internal/apierrors"
)

func TestSignVerify(t *testing.T) {
	kp, err := GenerateSigningKeypair(nil)
	if err != nil {
		t.Fatalf("GenerateSigningKeypair() error = %v", err)
	}
	defer kp.Destroy()

	if len(kp.PublicKey) != MLDSAPublicKeySize {
		t.Errorf("PublicKey size = %d, want %d", len(kp.PublicKey), MLDSAPublicKeySize)
	}
	if kp.SecretKey.Len() != MLDSASecretKeySize {
		t.Errorf("SecretKey size = %d, want %d", kp.SecretKey.Len(), MLDSASecretKeySize)
	}

	message := []byte("encrypted model bytes")
	sig, err := Sign(kp.SecretKey.Bytes(), message)
	if err != nil {
		t.Fatalf("Sign() error = %v", err)
	}
	if len(sig) != MLDSASignatureSize {
		t.Errorf("signature size = %d, want %d", len(sig), MLDSASignatureSize)
	}

	if err := Verify(kp.PublicKey, message, sig); err != nil {
		t.Errorf("Verify() error = %v", err)
	}
}

func TestVerify_Rejects(t *testing.T) {
	kp, err := GenerateSigningKeypair(nil)
	if err != nil {
		t.Fatal(err)
	}
	defer kp.Destroy()

	message := []byte("encrypted model bytes")
	sig, err := Sign(kp.SecretKey.Bytes(), message)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		message []byte
		sig     func() []byte
	}{
		{"modified message", []byte("encrypted model bytez"), func() []byte { return sig }},
		{"modified signature", message, func() []byte {
			s := append([]byte(nil), sig...)
			s[10] ^= 0xff
			return s
		}},
		{"truncated signature", message, func() []byte { return sig[:100] }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := Verify(kp.PublicKey, tt.message, tt.sig()); !errors.Is(err, apierrors.ErrSignatureInvalid) {
				t.Errorf("expected ErrSignatureInvalid, got %v", err)
			}
		})
	}
}

func TestSigningKeypairFromSecretKey(t *testing.T) {
	kp, err := GenerateSigningKeypair(nil)
	if err != nil {
		t.Fatal(err)
	}
	defer kp.Destroy()

	restored, err := SigningKeypairFromSecretKey(nil, kp.SecretKey.Bytes())
	if err != nil {
		t.Fatalf("SigningKeypairFromSecretKey() error = %v", err)
	}
	defer restored.Destroy()

	if !bytes.Equal(restored.PublicKey, kp.PublicKey) {
		t.Error("restored public key differs")
	}

	if _, err := SigningKeypairFromSecretKey(nil, make([]byte, 5)); !errors.Is(err, apierrors.ErrInvalidKeyLength) {
		t.Errorf("expected ErrInvalidKeyLength, got %v", err)
	}
}

func TestSign_InvalidKeyLength(t *testing.T) {
	if _, err := Sign(make([]byte, 10), []byte("m")); !errors.Is(err, apierrors.ErrInvalidKeyLength) {
		t.Errorf("Sign() expected ErrInvalidKeyLength, got %v", err)
	}
	if err := Verify(make([]byte, 10), []byte("m"), nil); !errors.Is(err, apierrors.ErrInvalidKeyLength) {
		t.Errorf("Verify() expected ErrInvalidKeyLength, got %v", err)
	}
}
