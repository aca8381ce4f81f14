package modelfile

import "io"

// LayerInfo describes one stored layer without its plaintext.
type LayerInfo struct {
	Rows          int
	Cols          int
	CiphertextLen int
}

// Summary is the unencrypted structure of a model file.
type Summary struct {
	Layers    []LayerInfo
	PublicKey []byte
}

// InputSize returns the model input width.
func (s *Summary) InputSize() int {
	if len(s.Layers) == 0 {
		return 0
	}
	return s.Layers[0].Cols
}

// OutputSize returns the model output width.
func (s *Summary) OutputSize() int {
	if len(s.Layers) == 0 {
		return 0
	}
	return s.Layers[len(s.Layers)-1].Rows
}

// Inspect reads a whole model file without decrypting any layer.
func Inspect(r io.Reader, limits Limits) (*Summary, error) {
	dec := NewDecoder(r, limits)

	n, err := dec.ReadLayerCount()
	if err != nil {
		return nil, err
	}

	summary := &Summary{Layers: make([]LayerInfo, 0, n)}
	for i := 0; i < n; i++ {
		rec, err := dec.ReadLayer()
		if err != nil {
			return nil, err
		}
		summary.Layers = append(summary.Layers, LayerInfo{
			Rows:          rec.Rows,
			Cols:          rec.Cols,
			CiphertextLen: len(rec.Ciphertext),
		})
	}

	summary.PublicKey, err = dec.ReadPublicKey()
	if err != nil {
		return nil, err
	}
	return summary, nil
}
