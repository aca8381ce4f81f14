package crypto

import "io"

// SetRandReaderForTesting replaces the random source used for key seeds,
// encapsulation seeds, signing keys and AES-GCM nonces. The returned function
// restores the previous source. Tests that call it must not run in parallel.
func SetRandReaderForTesting(r io.Reader) (restore func()) {
	previous := randReader
	randReader = r
	return func() { randReader = previous }
}
