// Package inference runs a dense ReLU forward pass over decrypted layers.
//
// Weights stay in their encoded little-endian float32 form inside secure
// buffers. Intermediate activations are held in secure buffers too and are
// wiped as soon as the next layer has consumed them.
package inference

import (
	"fmt"

	"github.com/vaultsandbox/qrme/internal/apierrors"
	"github.com/vaultsandbox/qrme/internal/modelfile"
	"github.com/vaultsandbox/qrme/internal/secmem"
)

// Layer is a read-only view of one decrypted weight matrix in row-major order.
type Layer struct {
	Rows    int
	Cols    int
	Weights []byte
}

// Validate checks every layer shape and the chain invariant
// layers[i].Rows == layers[i+1].Cols.
func Validate(layers []Layer) error {
	if len(layers) == 0 {
		return fmt.Errorf("%w: model has no layers", apierrors.ErrInvalidModelStructure)
	}
	for i, l := range layers {
		if l.Rows <= 0 || l.Cols <= 0 {
			return &apierrors.LayerError{Index: i, Op: "validate",
				Err: fmt.Errorf("%w: shape %dx%d", apierrors.ErrInvalidModelStructure, l.Rows, l.Cols)}
		}
		if len(l.Weights) != l.Rows*l.Cols*modelfile.WeightSize {
			return &apierrors.LayerError{Index: i, Op: "validate",
				Err: fmt.Errorf("%w: %d weight bytes for shape %dx%d",
					apierrors.ErrSizeMismatch, len(l.Weights), l.Rows, l.Cols)}
		}
		if i > 0 && layers[i-1].Rows != l.Cols {
			return &apierrors.LayerError{Index: i, Op: "validate",
				Err: fmt.Errorf("%w: layer %d produces %d values, layer %d expects %d",
					apierrors.ErrInvalidModelStructure, i-1, layers[i-1].Rows, i, l.Cols)}
		}
	}
	return nil
}

// Engine executes forward passes, allocating activations from its allocator.
type Engine struct {
	mem *secmem.Allocator
}

// New returns an engine. A nil allocator uses secmem.Default.
func New(mem *secmem.Allocator) *Engine {
	if mem == nil {
		mem = secmem.Default()
	}
	return &Engine{mem: mem}
}

// Run computes the forward pass of layers over input and writes the final
// activation into output.
func (e *Engine) Run(layers []Layer, input, output []float32) error {
	if err := Validate(layers); err != nil {
		return err
	}
	if len(input) != layers[0].Cols {
		return fmt.Errorf("%w: got %d values, model expects %d",
			apierrors.ErrInputSizeMismatch, len(input), layers[0].Cols)
	}
	last := layers[len(layers)-1]
	if len(output) != last.Rows {
		return fmt.Errorf("%w: got buffer of %d, model produces %d",
			apierrors.ErrOutputSizeMismatch, len(output), last.Rows)
	}

	current, err := e.mem.New(len(input) * modelfile.WeightSize)
	if err != nil {
		return err
	}
	modelfile.PutWeights(current.Bytes(), input)

	for i, l := range layers {
		next, err := e.mem.New(l.Rows * modelfile.WeightSize)
		if err != nil {
			current.Destroy()
			return &apierrors.LayerError{Index: i, Op: "run", Err: err}
		}
		forward(l, current.Bytes(), next.Bytes())
		current.Destroy()
		current = next
	}
	defer current.Destroy()

	for j := range output {
		output[j] = modelfile.Weight(current.Bytes(), j)
	}
	return nil
}

// forward computes out[j] = ReLU(sum_k W[j*cols+k] * in[k]), summing left to right.
// Each product is rounded to float32 before it is added, so the compiler
// cannot fuse the pair into an FMA and results match on every target.
func forward(l Layer, in, out []byte) {
	var y [1]float32
	for j := 0; j < l.Rows; j++ {
		var sum float32
		row := j * l.Cols
		for k := 0; k < l.Cols; k++ {
			sum += float32(modelfile.Weight(l.Weights, row+k) * modelfile.Weight(in, k))
		}
		y[0] = relu(sum)
		modelfile.PutWeights(out[j*modelfile.WeightSize:], y[:])
	}
}

func relu(x float32) float32 {
	if x > 0 {
		return x
	}
	return 0
}

// Argmax returns the index of the first largest value, or -1 for an empty slice.
func Argmax(values []float32) int {
	if len(values) == 0 {
		return -1
	}
	best := 0
	for i, v := range values[1:] {
		if v > values[best] {
			best = i + 1
		}
	}
	return best
}
