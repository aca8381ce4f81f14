package qrme

import "github.com/vaultsandbox/qrme/internal/inference"

// Run computes the forward pass over input and writes the result into
// output. len(input) must equal InputSize and len(output) must equal
// OutputSize. Every layer applies ReLU, including the last.
func (m *Model) Run(input, output []float32) error {
	return m.engine.Run(m.views(), input, output)
}

// Predict runs the model over input and returns a new output slice.
func (m *Model) Predict(input []float32) ([]float32, error) {
	output := make([]float32, m.OutputSize())
	if err := m.Run(input, output); err != nil {
		return nil, err
	}
	return output, nil
}

// Argmax returns the index of the first largest value, or -1 for an empty slice.
func Argmax(values []float32) int {
	return inference.Argmax(values)
}
