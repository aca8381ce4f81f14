// Package modelfile encodes and decodes the encrypted model file format.
//
// All integers are 64-bit unsigned little-endian:
//
//	layerCount   u64
//	repeated layerCount times:
//	  rows         u64
//	  cols         u64
//	  encryptedLen u64
//	  encrypted    [encryptedLen]byte   // envelope ciphertext
//	publicKeyLen u64
//	publicKey    [publicKeyLen]byte
//
// The package only frames bytes. Encryption and decryption of layer weights
// happen in the caller, one envelope per layer.
package modelfile

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/vaultsandbox/qrme/internal/apierrors"
)

// WeightSize is the encoded size of one float32 weight.
const WeightSize = 4

// Limits bounds what a Decoder accepts before allocating anything.
type Limits struct {
	// MaxLayers is the largest accepted layer count.
	MaxLayers int
	// MinCiphertext is the exclusive lower bound on a layer ciphertext length.
	MinCiphertext int
	// MaxCiphertext is the largest accepted layer ciphertext length.
	MaxCiphertext int
	// PublicKeySize is the exact accepted public key length.
	PublicKeySize int
}

// LayerRecord is one encrypted layer as stored on disk.
type LayerRecord struct {
	Rows       int
	Cols       int
	Ciphertext []byte
}

// PlaintextSize returns the number of weight bytes the layer should decrypt to.
func (r LayerRecord) PlaintextSize() int {
	return r.Rows * r.Cols * WeightSize
}

// Encoder writes a model file.
type Encoder struct {
	w   io.Writer
	buf [8]byte
}

// NewEncoder returns an encoder writing to w.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

func (e *Encoder) writeUint64(op string, v uint64) error {
	binary.LittleEndian.PutUint64(e.buf[:], v)
	if _, err := e.w.Write(e.buf[:]); err != nil {
		return apierrors.WrapIO(op, "", err)
	}
	return nil
}

func (e *Encoder) writeBytes(op string, b []byte) error {
	if err := e.writeUint64(op+" length", uint64(len(b))); err != nil {
		return err
	}
	if _, err := e.w.Write(b); err != nil {
		return apierrors.WrapIO(op, "", err)
	}
	return nil
}

// WriteLayerCount writes the leading layer count.
func (e *Encoder) WriteLayerCount(n int) error {
	return e.writeUint64("write layer count", uint64(n))
}

// WriteLayer writes one layer's shape followed by its envelope ciphertext.
func (e *Encoder) WriteLayer(rows, cols int, ciphertext []byte) error {
	if err := e.writeUint64("write rows", uint64(rows)); err != nil {
		return err
	}
	if err := e.writeUint64("write cols", uint64(cols)); err != nil {
		return err
	}
	return e.writeBytes("write layer ciphertext", ciphertext)
}

// WritePublicKey writes the trailing public key.
func (e *Encoder) WritePublicKey(publicKey []byte) error {
	return e.writeBytes("write public key", publicKey)
}

// Decoder reads a model file, enforcing its Limits.
type Decoder struct {
	r      io.Reader
	limits Limits
	buf    [8]byte
}

// NewDecoder returns a decoder reading from r. Zero-valued limits are not
// enforced.
func NewDecoder(r io.Reader, limits Limits) *Decoder {
	return &Decoder{r: r, limits: limits}
}

func (d *Decoder) readFull(op string, b []byte) error {
	if _, err := io.ReadFull(d.r, b); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return apierrors.WrapIO(op, "", err)
	}
	return nil
}

func (d *Decoder) readUint64(op string) (uint64, error) {
	if err := d.readFull(op, d.buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(d.buf[:]), nil
}

func (d *Decoder) readInt(op string) (int, error) {
	v, err := d.readUint64(op)
	if err != nil {
		return 0, err
	}
	if v > math.MaxInt {
		return 0, fmt.Errorf("%w: %s: value %d out of range", apierrors.ErrSizeMismatch, op, v)
	}
	return int(v), nil
}

// ReadLayerCount reads and validates the leading layer count.
func (d *Decoder) ReadLayerCount() (int, error) {
	n, err := d.readUint64("read layer count")
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, fmt.Errorf("%w: model has no layers", apierrors.ErrInvalidModelStructure)
	}
	if d.limits.MaxLayers > 0 && n > uint64(d.limits.MaxLayers) {
		return 0, fmt.Errorf("%w: file declares %d layers, limit is %d",
			apierrors.ErrCapacityExceeded, n, d.limits.MaxLayers)
	}
	if n > math.MaxInt {
		return 0, fmt.Errorf("%w: layer count %d out of range", apierrors.ErrCapacityExceeded, n)
	}
	return int(n), nil
}

// ReadLayer reads one layer record. The ciphertext is freshly allocated.
func (d *Decoder) ReadLayer() (LayerRecord, error) {
	rows, err := d.readInt("read rows")
	if err != nil {
		return LayerRecord{}, err
	}
	cols, err := d.readInt("read cols")
	if err != nil {
		return LayerRecord{}, err
	}
	if rows == 0 || cols == 0 {
		return LayerRecord{}, fmt.Errorf("%w: layer shape %dx%d", apierrors.ErrInvalidModelStructure, rows, cols)
	}
	if rows > math.MaxInt/WeightSize/cols {
		return LayerRecord{}, fmt.Errorf("%w: layer shape %dx%d overflows", apierrors.ErrSizeMismatch, rows, cols)
	}

	n, err := d.readUint64("read layer ciphertext length")
	if err != nil {
		return LayerRecord{}, err
	}
	if d.limits.MinCiphertext > 0 && n <= uint64(d.limits.MinCiphertext) {
		return LayerRecord{}, fmt.Errorf("%w: layer ciphertext is %d bytes, want more than %d",
			apierrors.ErrMalformedCiphertext, n, d.limits.MinCiphertext)
	}
	if d.limits.MaxCiphertext > 0 && n > uint64(d.limits.MaxCiphertext) {
		return LayerRecord{}, fmt.Errorf("%w: layer ciphertext of %d bytes exceeds limit of %d",
			apierrors.ErrAllocation, n, d.limits.MaxCiphertext)
	}
	if n > math.MaxInt {
		return LayerRecord{}, fmt.Errorf("%w: layer ciphertext length %d out of range", apierrors.ErrAllocation, n)
	}

	ciphertext := make([]byte, n)
	if err := d.readFull("read layer ciphertext", ciphertext); err != nil {
		return LayerRecord{}, err
	}

	return LayerRecord{Rows: rows, Cols: cols, Ciphertext: ciphertext}, nil
}

// ReadPublicKey reads the trailing public key.
func (d *Decoder) ReadPublicKey() ([]byte, error) {
	n, err := d.readUint64("read public key length")
	if err != nil {
		return nil, err
	}
	if d.limits.PublicKeySize > 0 && n != uint64(d.limits.PublicKeySize) {
		return nil, fmt.Errorf("%w: stored public key is %d bytes, want %d",
			apierrors.ErrInvalidKeyLength, n, d.limits.PublicKeySize)
	}
	if d.limits.MaxCiphertext > 0 && n > uint64(d.limits.MaxCiphertext) {
		return nil, fmt.Errorf("%w: public key of %d bytes exceeds limit", apierrors.ErrAllocation, n)
	}

	publicKey := make([]byte, n)
	if err := d.readFull("read public key", publicKey); err != nil {
		return nil, err
	}
	return publicKey, nil
}
