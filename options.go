package qrme

import (
	"log/slog"

	"github.com/vaultsandbox/qrme/internal/config"
	"github.com/vaultsandbox/qrme/internal/secmem"
)

const (
	// DefaultMaxLayers is the default layer limit of a model.
	DefaultMaxLayers = config.DefaultMaxLayers
	// DefaultMaxBufferSize is the default ceiling for a single secure buffer.
	DefaultMaxBufferSize = config.DefaultMaxBufferSize
)

// options holds configuration shared by keys, envelopes and models.
type options struct {
	logger        *slog.Logger
	maxLayers     int
	lockedMemory  bool
	maxBufferSize int
}

// Option configures keys, envelopes and models.
type Option func(*options)

// WithLogger sets the logger. Events are emitted at debug level and never
// include key material; public keys appear only as fingerprints.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithMaxLayers sets the largest number of layers a model may hold or load.
// Default: 10
func WithMaxLayers(n int) Option {
	return func(o *options) {
		o.maxLayers = n
	}
}

// WithLockedMemory backs secret buffers with mlock'd memguard enclaves.
// The process needs a sufficient RLIMIT_MEMLOCK.
func WithLockedMemory(locked bool) Option {
	return func(o *options) {
		o.lockedMemory = locked
	}
}

// WithMaxBufferSize sets the largest single secure allocation in bytes.
// Zero disables the ceiling.
// Default: 256 MiB
func WithMaxBufferSize(n int) Option {
	return func(o *options) {
		o.maxBufferSize = n
	}
}

// WithConfig applies the secure memory and model settings of cfg. A nil cfg
// leaves the options unchanged.
func WithConfig(cfg *config.Config) Option {
	return func(o *options) {
		if cfg == nil {
			return
		}
		o.lockedMemory = cfg.SecureMemory.Locked
		o.maxBufferSize = cfg.SecureMemory.MaxBufferSize
		o.maxLayers = cfg.Model.MaxLayers
	}
}

func newOptions(opts []Option) *options {
	o := &options{
		maxLayers:     DefaultMaxLayers,
		maxBufferSize: DefaultMaxBufferSize,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = slog.New(slog.DiscardHandler)
	}
	if o.maxLayers <= 0 {
		o.maxLayers = DefaultMaxLayers
	}
	return o
}

func (o *options) allocator() *secmem.Allocator {
	if !o.lockedMemory && o.maxBufferSize == secmem.DefaultMaxSize {
		return secmem.Default()
	}
	return secmem.NewAllocator(o.lockedMemory, o.maxBufferSize)
}
