package modelfile

import (
	"encoding/binary"
	"math"
)

// PutWeights encodes weights into dst as little-endian float32 values.
// dst must hold len(weights)*WeightSize bytes.
func PutWeights(dst []byte, weights []float32) {
	for i, w := range weights {
		binary.LittleEndian.PutUint32(dst[i*WeightSize:], math.Float32bits(w))
	}
}

// Weight decodes the i-th float32 from src.
func Weight(src []byte, i int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(src[i*WeightSize:]))
}

// Weights decodes every float32 in src into a new slice.
func Weights(src []byte) []float32 {
	out := make([]float32, len(src)/WeightSize)
	for i := range out {
		out[i] = Weight(src, i)
	}
	return out
}
