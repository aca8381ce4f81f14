package crypto

import (
	"bytes"
	"crypto/rand"
	"testing"
)

func TestDeriveKey(t *testing.T) {
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		salt   []byte
		info   []byte
		length int
	}{
		{"basic 32 bytes", make([]byte, 32), []byte("info"), 32},
		{"empty salt", nil, []byte("info"), 32},
		{"empty info", make([]byte, 32), nil, 32},
		{"kem seed", nil, []byte(HKDFContext), MLKEMSeedSize},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, err := DeriveKey(secret, tt.salt, tt.info, tt.length)
			if err != nil {
				t.Fatalf("DeriveKey() error = %v", err)
			}

			if len(key) != tt.length {
				t.Errorf("key length = %d, want %d", len(key), tt.length)
			}
		})
	}
}

func TestDeriveKey_Deterministic(t *testing.T) {
	secret := []byte("test secret key for derivation")
	salt := []byte("test salt value")
	info := []byte("test info value")

	key1, err := DeriveKey(secret, salt, info, 32)
	if err != nil {
		t.Fatal(err)
	}

	key2, err := DeriveKey(secret, salt, info, 32)
	if err != nil {
		t.Fatal(err)
	}

	if !bytes.Equal(key1, key2) {
		t.Error("DeriveKey is not deterministic")
	}

	key3, err := DeriveKey(secret, salt, []byte("other info"), 32)
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Equal(key1, key3) {
		t.Error("different info produced the same key")
	}
}

func TestDeriveKey_TooLong(t *testing.T) {
	// HKDF-SHA-512 can expand to at most 255 * 64 bytes.
	if _, err := DeriveKey([]byte("secret"), nil, nil, 255*64+1); err == nil {
		t.Error("expected error for oversized output")
	}
}

func TestFingerprint(t *testing.T) {
	a := Fingerprint([]byte("public key a"))
	b := Fingerprint([]byte("public key b"))

	if len(a) != 32 {
		t.Errorf("fingerprint length = %d, want 32", len(a))
	}
	if a == b {
		t.Error("different inputs share a fingerprint")
	}
	if a != Fingerprint([]byte("public key a")) {
		t.Error("Fingerprint is not deterministic")
	}
}
