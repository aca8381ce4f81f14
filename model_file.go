package qrme

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/vaultsandbox/qrme/internal/apierrors"
	"github.com/vaultsandbox/qrme/internal/crypto"
	"github.com/vaultsandbox/qrme/internal/modelfile"
)

// Save encrypts every layer to publicKey and writes the model to path.
// The file is written to a temporary name in the same directory and renamed
// into place only after it is complete, so a failed save never leaves a
// partial model at path.
func (m *Model) Save(path string, publicKey []byte) error {
	dir, base := filepath.Split(path)
	if dir == "" {
		dir = "."
	}

	tmp, err := os.CreateTemp(dir, "."+base+".tmp-*")
	if err != nil {
		return apierrors.WrapIO("create model file", path, err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			tmp.Close()
			os.Remove(tmpName)
		}
	}()

	w := bufio.NewWriter(tmp)
	if err := m.SaveTo(w, publicKey); err != nil {
		return err
	}
	if err := w.Flush(); err != nil {
		return apierrors.WrapIO("write model file", path, err)
	}
	if err := tmp.Sync(); err != nil {
		return apierrors.WrapIO("sync model file", path, err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		return apierrors.WrapIO("chmod model file", path, err)
	}
	if err := tmp.Close(); err != nil {
		return apierrors.WrapIO("close model file", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return apierrors.WrapIO("rename model file", path, err)
	}
	committed = true

	m.opts.logger.Debug("model saved",
		slog.String("path", path),
		slog.Int("layers", len(m.layers)),
		slog.String("public_key", crypto.Fingerprint(publicKey)))
	return nil
}

// SaveTo encrypts every layer to publicKey and writes the model file format
// to w. Output already written to w is not valid if SaveTo fails.
func (m *Model) SaveTo(w io.Writer, publicKey []byte) error {
	if len(m.layers) == 0 {
		return fmt.Errorf("%w: model has no layers", apierrors.ErrInvalidModelStructure)
	}
	if len(publicKey) != PublicKeySize {
		return fmt.Errorf("%w: public key is %d bytes, want %d",
			apierrors.ErrInvalidKeyLength, len(publicKey), PublicKeySize)
	}

	envelope := crypto.NewEnvelope(m.mem)
	enc := modelfile.NewEncoder(w)

	if err := enc.WriteLayerCount(len(m.layers)); err != nil {
		return err
	}
	for i, l := range m.layers {
		ciphertext, err := envelope.Encrypt(publicKey, l.weights.Bytes())
		if err != nil {
			return &apierrors.LayerError{Index: i, Op: "encrypt", Err: err}
		}
		if err := enc.WriteLayer(l.rows, l.cols, ciphertext); err != nil {
			return &apierrors.LayerError{Index: i, Op: "write", Err: err}
		}
	}
	return enc.WritePublicKey(publicKey)
}

// Load reads the model file at path and decrypts every layer with secretKey.
func Load(path string, secretKey []byte, opts ...Option) (*Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apierrors.WrapIO("open model file", path, err)
	}
	defer f.Close()

	m, err := LoadFrom(bufio.NewReader(f), secretKey, opts...)
	if err != nil {
		return nil, err
	}
	m.opts.logger.Debug("model loaded",
		slog.String("path", path),
		slog.Int("layers", m.NumLayers()),
		slog.String("public_key", m.fingerprint()))
	return m, nil
}

// LoadFrom reads a model from r and decrypts every layer with secretKey.
//
// Header fields are checked before anything is allocated: a zero layer count
// fails with ErrInvalidModelStructure, too many layers with
// ErrCapacityExceeded, oversized lengths with ErrAllocation and short
// ciphertexts with ErrMalformedCiphertext. Each layer's envelope must hold exactly
// rows*cols float32 values (ErrSizeMismatch) and the layers must chain
// (ErrInvalidModelStructure). Truncated input fails with ErrIO.
func LoadFrom(r io.Reader, secretKey []byte, opts ...Option) (*Model, error) {
	if len(secretKey) != SecretKeySize {
		return nil, fmt.Errorf("%w: secret key is %d bytes, want %d",
			apierrors.ErrInvalidKeyLength, len(secretKey), SecretKeySize)
	}

	m := NewModel(opts...)
	if err := m.readFrom(r, secretKey); err != nil {
		m.Destroy()
		return nil, err
	}
	return m, nil
}

func (m *Model) readFrom(r io.Reader, secretKey []byte) error {
	dec := modelfile.NewDecoder(r, m.limits())
	envelope := crypto.NewEnvelope(m.mem)

	n, err := dec.ReadLayerCount()
	if err != nil {
		return err
	}

	for i := 0; i < n; i++ {
		rec, err := dec.ReadLayer()
		if err != nil {
			return &apierrors.LayerError{Index: i, Op: "read", Err: err}
		}

		// The envelope length fixes the plaintext length, so a shape mismatch
		// is rejected before anything is decrypted.
		if got := len(rec.Ciphertext) - EnvelopeOverhead; got != rec.PlaintextSize() {
			return &apierrors.LayerError{Index: i, Op: "read",
				Err: fmt.Errorf("%w: ciphertext holds %d bytes, shape %dx%d needs %d",
					apierrors.ErrSizeMismatch, got, rec.Rows, rec.Cols, rec.PlaintextSize())}
		}

		plaintext, err := envelope.Decrypt(secretKey, rec.Ciphertext)
		if err != nil {
			return &apierrors.LayerError{Index: i, Op: "decrypt", Err: err}
		}
		m.addLayer(plaintext, rec.Rows, rec.Cols)
	}

	m.publicKey, err = dec.ReadPublicKey()
	if err != nil {
		return err
	}

	return m.Validate()
}

func (m *Model) limits() modelfile.Limits {
	limits := modelfile.Limits{
		MaxLayers:     m.opts.maxLayers,
		MinCiphertext: EnvelopeOverhead,
		PublicKeySize: PublicKeySize,
	}
	if ceiling := m.mem.MaxSize(); ceiling > 0 {
		limits.MaxCiphertext = ceiling + EnvelopeOverhead
	}
	return limits
}

// ModelInfo describes a model file without decrypting it.
type ModelInfo struct {
	Layers               []LayerInfo
	PublicKeyFingerprint string
}

// LayerInfo is the stored shape and ciphertext size of one layer.
type LayerInfo = modelfile.LayerInfo

// InputSize returns the model input width.
func (i *ModelInfo) InputSize() int {
	if len(i.Layers) == 0 {
		return 0
	}
	return i.Layers[0].Cols
}

// OutputSize returns the model output width.
func (i *ModelInfo) OutputSize() int {
	if len(i.Layers) == 0 {
		return 0
	}
	return i.Layers[len(i.Layers)-1].Rows
}

// Inspect reads the structure of the model file at path. No key is needed
// and no layer is decrypted.
func Inspect(path string, opts ...Option) (*ModelInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apierrors.WrapIO("open model file", path, err)
	}
	defer f.Close()

	m := NewModel(opts...)
	summary, err := modelfile.Inspect(bufio.NewReader(f), m.limits())
	if err != nil {
		return nil, err
	}
	return &ModelInfo{
		Layers:               summary.Layers,
		PublicKeyFingerprint: crypto.Fingerprint(summary.PublicKey),
	}, nil
}
