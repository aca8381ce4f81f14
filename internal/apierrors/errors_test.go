package apierrors

import (
	"errors"
	"io"
	"os"
	"testing"
)

func TestIOError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *IOError
		expected string
	}{
		{
			name:     "with path",
			err:      &IOError{Op: "open", Path: "model.qrm", Err: os.ErrNotExist},
			expected: "open model.qrm: file does not exist",
		},
		{
			name:     "without path",
			err:      &IOError{Op: "read layer count", Err: io.ErrUnexpectedEOF},
			expected: "read layer count: unexpected EOF",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.err.Error()
			if got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestIOError_Is(t *testing.T) {
	err := WrapIO("read", "", io.ErrUnexpectedEOF)

	if !errors.Is(err, ErrIO) {
		t.Error("expected errors.Is(err, ErrIO) to be true")
	}
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Error("expected errors.Is(err, io.ErrUnexpectedEOF) to be true")
	}
	if errors.Is(err, ErrSizeMismatch) {
		t.Error("IOError should not match ErrSizeMismatch")
	}
}

func TestWrapIO_Nil(t *testing.T) {
	if err := WrapIO("write", "x", nil); err != nil {
		t.Errorf("WrapIO(nil) = %v, want nil", err)
	}
}

func TestDecryptionError(t *testing.T) {
	err := &DecryptionError{Stage: "aead", Err: ErrAuthenticationFailure}

	if got, want := err.Error(), "decryption failed at aead: authentication failed"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !errors.Is(err, ErrAuthenticationFailure) {
		t.Error("expected DecryptionError to unwrap to ErrAuthenticationFailure")
	}
	if errors.Is(err, ErrMalformedCiphertext) {
		t.Error("DecryptionError should not match ErrMalformedCiphertext")
	}
}

func TestLayerError(t *testing.T) {
	inner := &DecryptionError{Stage: "length", Err: ErrMalformedCiphertext}
	err := &LayerError{Index: 3, Op: "load", Err: inner}

	if got, want := err.Error(), "load layer 3: decryption failed at length: malformed ciphertext"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !errors.Is(err, ErrMalformedCiphertext) {
		t.Error("expected errors.Is to reach the sentinel through both wrappers")
	}

	var layerErr *LayerError
	if !errors.As(err, &layerErr) || layerErr.Index != 3 {
		t.Errorf("errors.As() did not recover the layer index")
	}
}
