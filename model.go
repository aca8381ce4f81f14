package qrme

import (
	"fmt"
	"log/slog"

	"github.com/vaultsandbox/qrme/internal/apierrors"
	"github.com/vaultsandbox/qrme/internal/crypto"
	"github.com/vaultsandbox/qrme/internal/inference"
	"github.com/vaultsandbox/qrme/internal/modelfile"
	"github.com/vaultsandbox/qrme/internal/secmem"
)

// Layer is one dense weight matrix of rows x cols, stored row-major as
// little-endian float32 values in a secure buffer owned by its Model.
type Layer struct {
	rows    int
	cols    int
	weights *secmem.Buffer
}

// Rows returns the number of outputs of the layer.
func (l *Layer) Rows() int { return l.rows }

// Cols returns the number of inputs of the layer.
func (l *Layer) Cols() int { return l.cols }

// Weight returns the weight at row r, column c.
func (l *Layer) Weight(r, c int) float32 {
	return modelfile.Weight(l.weights.Bytes(), r*l.cols+c)
}

// Weights returns a copy of all weights in row-major order.
func (l *Layer) Weights() []float32 {
	return modelfile.Weights(l.weights.Bytes())
}

func (l *Layer) view() inference.Layer {
	return inference.Layer{Rows: l.rows, Cols: l.cols, Weights: l.weights.Bytes()}
}

// Model is an ordered stack of dense ReLU layers. A Model owns the secure
// buffers of its layers and must be released with Destroy.
//
// A Model is not safe for concurrent use.
type Model struct {
	opts      *options
	mem       *secmem.Allocator
	engine    *inference.Engine
	layers    []*Layer
	publicKey []byte
}

// NewModel returns an empty model.
func NewModel(opts ...Option) *Model {
	o := newOptions(opts)
	mem := o.allocator()
	return &Model{
		opts:   o,
		mem:    mem,
		engine: inference.New(mem),
	}
}

// AddLayer copies weights into a new layer of rows x cols appended to the
// model. len(weights) must equal rows*cols. The chain with the previous
// layer is not checked here; Validate, Run and Load check it.
func (m *Model) AddLayer(weights []float32, rows, cols int) error {
	if len(m.layers) >= m.opts.maxLayers {
		return fmt.Errorf("%w: model already holds %d layers", apierrors.ErrCapacityExceeded, len(m.layers))
	}
	if rows <= 0 || cols <= 0 {
		return fmt.Errorf("%w: layer shape %dx%d", apierrors.ErrInvalidModelStructure, rows, cols)
	}
	if len(weights) != rows*cols {
		return fmt.Errorf("%w: %d weights for shape %dx%d", apierrors.ErrSizeMismatch, len(weights), rows, cols)
	}

	buf, err := m.mem.New(len(weights) * modelfile.WeightSize)
	if err != nil {
		return err
	}
	modelfile.PutWeights(buf.Bytes(), weights)
	m.addLayer(buf, rows, cols)
	return nil
}

// addLayer takes ownership of buf.
func (m *Model) addLayer(buf *secmem.Buffer, rows, cols int) {
	m.layers = append(m.layers, &Layer{rows: rows, cols: cols, weights: buf})
}

// NumLayers returns the number of layers.
func (m *Model) NumLayers() int {
	return len(m.layers)
}

// Layer returns layer i. It panics if i is out of range.
func (m *Model) Layer(i int) *Layer {
	return m.layers[i]
}

// InputSize returns the input width of the first layer, or 0 for an empty model.
func (m *Model) InputSize() int {
	if len(m.layers) == 0 {
		return 0
	}
	return m.layers[0].cols
}

// OutputSize returns the output width of the last layer, or 0 for an empty model.
func (m *Model) OutputSize() int {
	if len(m.layers) == 0 {
		return 0
	}
	return m.layers[len(m.layers)-1].rows
}

// PublicKey returns the public key stored in the file the model was loaded
// from, or nil for a model built in memory.
func (m *Model) PublicKey() []byte {
	return m.publicKey
}

// Validate checks that the model has layers and that each layer's rows
// equals the next layer's cols.
func (m *Model) Validate() error {
	return inference.Validate(m.views())
}

func (m *Model) views() []inference.Layer {
	views := make([]inference.Layer, len(m.layers))
	for i, l := range m.layers {
		views[i] = l.view()
	}
	return views
}

// Destroy wipes every layer and empties the model. It is safe to call more
// than once.
func (m *Model) Destroy() {
	if m == nil {
		return
	}
	for _, l := range m.layers {
		l.weights.Destroy()
	}
	if len(m.layers) > 0 {
		m.opts.logger.Debug("model destroyed", slog.Int("layers", len(m.layers)))
	}
	m.layers = nil
}

func (m *Model) fingerprint() string {
	if m.publicKey == nil {
		return ""
	}
	return crypto.Fingerprint(m.publicKey)
}
