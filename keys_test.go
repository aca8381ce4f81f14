package qrme

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateKeypair(t *testing.T) {
	kp := newTestKeypair(t)

	assert.Len(t, kp.PublicKey, PublicKeySize)
	assert.Len(t, kp.SecretKey(), SecretKeySize)
	assert.Len(t, kp.Fingerprint(), 32)

	kp.Destroy()
	assert.Nil(t, kp.SecretKey())
	kp.Destroy()
}

func TestDeriveKeypair(t *testing.T) {
	master := bytes.Repeat([]byte{7}, 32)

	a, err := DeriveKeypair(master, "model-a")
	require.NoError(t, err)
	defer a.Destroy()

	again, err := DeriveKeypair(master, "model-a")
	require.NoError(t, err)
	defer again.Destroy()

	b, err := DeriveKeypair(master, "model-b")
	require.NoError(t, err)
	defer b.Destroy()

	assert.Equal(t, a.PublicKey, again.PublicKey)
	assert.Equal(t, a.SecretKey(), again.SecretKey())
	assert.NotEqual(t, a.PublicKey, b.PublicKey)

	_, err = DeriveKeypair(master[:MinMasterSecretSize-1], "model-a")
	require.ErrorIs(t, err, ErrInvalidKeyLength)
}

func TestKeypairFromSecretKey(t *testing.T) {
	kp := newTestKeypair(t)

	restored, err := KeypairFromSecretKey(kp.SecretKey())
	require.NoError(t, err)
	defer restored.Destroy()
	assert.Equal(t, kp.PublicKey, restored.PublicKey)

	_, err = KeypairFromSecretKey(kp.SecretKey()[:10])
	require.ErrorIs(t, err, ErrInvalidKeyLength)
}

func TestKeyFiles(t *testing.T) {
	kp := newTestKeypair(t)
	dir := t.TempDir()
	skPath := filepath.Join(dir, "model.sk")
	pkPath := filepath.Join(dir, "model.pk")

	require.NoError(t, WriteSecretKeyFile(skPath, kp.SecretKey()))
	require.NoError(t, WritePublicKeyFile(pkPath, kp.PublicKey))

	info, err := os.Stat(skPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	restored, err := ReadSecretKeyFile(skPath)
	require.NoError(t, err)
	defer restored.Destroy()
	assert.Equal(t, kp.SecretKey(), restored.SecretKey())
	assert.Equal(t, kp.PublicKey, restored.PublicKey)

	pk, err := ReadPublicKeyFile(pkPath)
	require.NoError(t, err)
	assert.Equal(t, kp.PublicKey, pk)
}

func TestKeyFiles_Errors(t *testing.T) {
	dir := t.TempDir()

	err := WriteSecretKeyFile(filepath.Join(dir, "short.sk"), make([]byte, 10))
	require.ErrorIs(t, err, ErrInvalidKeyLength)

	err = WritePublicKeyFile(filepath.Join(dir, "short.pk"), make([]byte, 10))
	require.ErrorIs(t, err, ErrInvalidKeyLength)

	wrong := filepath.Join(dir, "wrong.sk")
	require.NoError(t, os.WriteFile(wrong, make([]byte, SecretKeySize+1), 0o600))
	_, err = ReadSecretKeyFile(wrong)
	require.ErrorIs(t, err, ErrInvalidKeyLength)

	_, err = ReadPublicKeyFile(filepath.Join(dir, "missing.pk"))
	require.ErrorIs(t, err, ErrIO)
	require.ErrorIs(t, err, os.ErrNotExist)
}
