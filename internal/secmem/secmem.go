// Package secmem provides owned byte buffers for secret material.
//
// Every Buffer is overwritten with zeros before its memory is released.
// Buffers come from an Allocator, which decides where the bytes live:
//
//   - heap buffers are ordinary Go slices wiped with memguard.WipeBytes on
//     Destroy. They need no special privileges.
//
//   - locked buffers are memguard LockedBuffers: mlock'd, guarded by canary
//     pages and excluded from core dumps. They count against RLIMIT_MEMLOCK,
//     and memguard panics when the limit is exhausted, so they are opt-in.
//
// A Buffer has exactly one owner. Ownership moves explicitly (for example a
// model takes the buffer of every layer it holds) and the owner calls Destroy
// once. Destroy is idempotent so deferred cleanup on error paths is safe.
package secmem

import (
	"fmt"

	"github.com/awnumar/memguard"

	"github.com/vaultsandbox/qrme/internal/apierrors"
)

// DefaultMaxSize is the allocation ceiling used by Default.
const DefaultMaxSize = 256 << 20

// Allocator hands out Buffers under a single memory policy.
type Allocator struct {
	locked  bool
	maxSize int
}

var defaultAllocator = &Allocator{maxSize: DefaultMaxSize}

// Default returns the heap-backed allocator with the default ceiling.
func Default() *Allocator {
	return defaultAllocator
}

// NewAllocator returns an allocator. A maxSize of zero or less disables the
// allocation ceiling.
func NewAllocator(locked bool, maxSize int) *Allocator {
	return &Allocator{locked: locked, maxSize: maxSize}
}

// Locked reports whether the allocator hands out mlock'd buffers.
func (a *Allocator) Locked() bool {
	return a.locked
}

// MaxSize returns the allocation ceiling in bytes, or 0 when unbounded.
func (a *Allocator) MaxSize() int {
	if a.maxSize < 0 {
		return 0
	}
	return a.maxSize
}

// Check reports whether a buffer of size bytes may be allocated.
func (a *Allocator) Check(size int) error {
	if size < 0 {
		return fmt.Errorf("%w: negative size %d", apierrors.ErrAllocation, size)
	}
	if a.maxSize > 0 && size > a.maxSize {
		return fmt.Errorf("%w: %d bytes exceeds limit of %d", apierrors.ErrAllocation, size, a.maxSize)
	}
	return nil
}

// New allocates a zeroed buffer of size bytes.
func (a *Allocator) New(size int) (*Buffer, error) {
	if err := a.Check(size); err != nil {
		return nil, err
	}

	if a.locked && size > 0 {
		return newLockedBuffer(size)
	}
	return &Buffer{data: make([]byte, size), alive: true}, nil
}

// lockBuffer is memguard.NewBuffer, replaceable in tests.
var lockBuffer = memguard.NewBuffer

// newLockedBuffer turns a memguard panic (mlock or mmap failure) into
// ErrAllocation. memguard purges its other buffers before panicking, so
// existing locked buffers read as empty afterwards.
func newLockedBuffer(size int) (b *Buffer, err error) {
	defer func() {
		if r := recover(); r != nil {
			b, err = nil, fmt.Errorf("%w: lock %d bytes: %v", apierrors.ErrAllocation, size, r)
		}
	}()
	return &Buffer{locked: lockBuffer(size), alive: true}, nil
}

// FromBytes moves src into a new buffer. src is wiped after copying.
func (a *Allocator) FromBytes(src []byte) (*Buffer, error) {
	b, err := a.Clone(src)
	if err != nil {
		return nil, err
	}
	memguard.WipeBytes(src)
	return b, nil
}

// Clone copies src into a new buffer, leaving src untouched.
func (a *Allocator) Clone(src []byte) (*Buffer, error) {
	b, err := a.New(len(src))
	if err != nil {
		return nil, err
	}
	copy(b.Bytes(), src)
	return b, nil
}

// Buffer is an owned byte buffer that is zeroed before release.
type Buffer struct {
	locked *memguard.LockedBuffer
	data   []byte
	alive  bool
}

// Bytes returns the buffer contents, or nil once the buffer is destroyed.
// The returned slice aliases the buffer and must not outlive it.
func (b *Buffer) Bytes() []byte {
	if b == nil || !b.alive {
		return nil
	}
	if b.locked != nil {
		return b.locked.Bytes()
	}
	return b.data
}

// Len returns the buffer size in bytes.
func (b *Buffer) Len() int {
	return len(b.Bytes())
}

// Alive reports whether the buffer has not been destroyed.
func (b *Buffer) Alive() bool {
	return b != nil && b.alive
}

// Destroy wipes and releases the buffer. Calling Destroy more than once, or
// on a nil buffer, is a no-op.
func (b *Buffer) Destroy() {
	if b == nil || !b.alive {
		return
	}
	if b.locked != nil {
		b.locked.Destroy()
		b.locked = nil
	} else {
		memguard.WipeBytes(b.data)
		b.data = nil
	}
	b.alive = false
}

// Wipe overwrites b with zeros. Use it for transient copies of secret data
// that are not held in a Buffer.
func Wipe(b []byte) {
	memguard.WipeBytes(b)
}

// Purge destroys every locked buffer still alive in the process. Command-line
// entry points defer it so secrets never outlive the program.
func Purge() {
	memguard.Purge()
}
