package modelfile

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaultsandbox/qrme/internal/apierrors"
)

var testLimits = Limits{
	MaxLayers:     10,
	MinCiphertext: 8,
	MaxCiphertext: 1 << 20,
	PublicKeySize: 4,
}

func encodeFile(t *testing.T, layers []LayerRecord, pk []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	enc := NewEncoder(&buf)
	require.NoError(t, enc.WriteLayerCount(len(layers)))
	for _, l := range layers {
		require.NoError(t, enc.WriteLayer(l.Rows, l.Cols, l.Ciphertext))
	}
	require.NoError(t, enc.WritePublicKey(pk))
	return buf.Bytes()
}

func u64(v uint64) []byte {
	return binary.LittleEndian.AppendUint64(nil, v)
}

func TestEncoder_Layout(t *testing.T) {
	data := encodeFile(t, []LayerRecord{
		{Rows: 2, Cols: 3, Ciphertext: []byte("0123456789")},
	}, []byte{0xaa, 0xbb, 0xcc, 0xdd})

	var want []byte
	want = append(want, u64(1)...)
	want = append(want, u64(2)...)
	want = append(want, u64(3)...)
	want = append(want, u64(10)...)
	want = append(want, []byte("0123456789")...)
	want = append(want, u64(4)...)
	want = append(want, 0xaa, 0xbb, 0xcc, 0xdd)

	require.Equal(t, want, data)
}

func TestDecoder_RoundTrip(t *testing.T) {
	layers := []LayerRecord{
		{Rows: 2, Cols: 3, Ciphertext: bytes.Repeat([]byte{1}, 40)},
		{Rows: 1, Cols: 2, Ciphertext: bytes.Repeat([]byte{2}, 24)},
	}
	pk := []byte{1, 2, 3, 4}
	data := encodeFile(t, layers, pk)

	dec := NewDecoder(bytes.NewReader(data), testLimits)
	n, err := dec.ReadLayerCount()
	require.NoError(t, err)
	require.Equal(t, 2, n)

	for i := 0; i < n; i++ {
		rec, err := dec.ReadLayer()
		require.NoError(t, err)
		assert.Equal(t, layers[i], rec)
	}

	gotPK, err := dec.ReadPublicKey()
	require.NoError(t, err)
	assert.Equal(t, pk, gotPK)
}

func TestDecoder_Rejects(t *testing.T) {
	validLayer := append(append(append(u64(2), u64(3)...), u64(10)...), []byte("0123456789")...)

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"empty file", nil, apierrors.ErrIO},
		{"zero layers", u64(0), apierrors.ErrInvalidModelStructure},
		{"too many layers", u64(11), apierrors.ErrCapacityExceeded},
		{"truncated layer header", append(u64(1), u64(2)...), apierrors.ErrIO},
		{"zero rows", append(append(u64(1), u64(0)...), u64(3)...), apierrors.ErrInvalidModelStructure},
		{"shape overflow", append(append(u64(1), u64(1<<62)...), u64(1<<62)...), apierrors.ErrSizeMismatch},
		{"short ciphertext", append(append(append(u64(1), u64(2)...), u64(3)...), u64(8)...), apierrors.ErrMalformedCiphertext},
		{"oversized ciphertext", append(append(append(u64(1), u64(2)...), u64(3)...), u64(1<<40)...), apierrors.ErrAllocation},
		{"truncated ciphertext", append(append(append(append(u64(1), u64(2)...), u64(3)...), u64(10)...), []byte("0123")...), apierrors.ErrIO},
		{"missing public key", append(u64(1), validLayer...), apierrors.ErrIO},
		{"wrong public key length", append(append(append(u64(1), validLayer...), u64(5)...), 1, 2, 3, 4, 5), apierrors.ErrInvalidKeyLength},
		{"truncated public key", append(append(append(u64(1), validLayer...), u64(4)...), 1, 2), apierrors.ErrIO},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Inspect(bytes.NewReader(tt.data), testLimits)
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestInspect(t *testing.T) {
	data := encodeFile(t, []LayerRecord{
		{Rows: 2, Cols: 3, Ciphertext: bytes.Repeat([]byte{1}, 40)},
		{Rows: 1, Cols: 2, Ciphertext: bytes.Repeat([]byte{2}, 24)},
	}, []byte{9, 9, 9, 9})

	summary, err := Inspect(bytes.NewReader(data), testLimits)
	require.NoError(t, err)

	require.Len(t, summary.Layers, 2)
	assert.Equal(t, LayerInfo{Rows: 2, Cols: 3, CiphertextLen: 40}, summary.Layers[0])
	assert.Equal(t, LayerInfo{Rows: 1, Cols: 2, CiphertextLen: 24}, summary.Layers[1])
	assert.Equal(t, 3, summary.InputSize())
	assert.Equal(t, 1, summary.OutputSize())
	assert.Equal(t, []byte{9, 9, 9, 9}, summary.PublicKey)
}

func TestLayerRecord_PlaintextSize(t *testing.T) {
	assert.Equal(t, 24, LayerRecord{Rows: 2, Cols: 3}.PlaintextSize())
}

func TestWeights(t *testing.T) {
	weights := []float32{0.1, -0.2, 3.5, 0}
	buf := make([]byte, len(weights)*WeightSize)
	PutWeights(buf, weights)

	// 1.0 in IEEE-754 binary32 little-endian.
	one := make([]byte, 4)
	PutWeights(one, []float32{1})
	assert.Equal(t, []byte{0x00, 0x00, 0x80, 0x3f}, one)

	assert.Equal(t, weights, Weights(buf))
	assert.Equal(t, float32(3.5), Weight(buf, 2))
}
