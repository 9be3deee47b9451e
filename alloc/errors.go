package alloc

import (
	cerrors "github.com/cockroachdb/errors"
	"github.com/pkg/errors"
	"github.com/vkngwrapper/arsenal/allocapi/memutils"
)

var (
	// ErrAlloc is returned when an allocator could not produce or resize a block. It usually means
	// the provider is out of memory, but allocators may also use it for layouts they refuse to serve.
	ErrAlloc = errors.New("memory allocation failed")
	// ErrCannotReallocInPlace is returned from GrowInPlace and ShrinkInPlace when the block could not be
	// resized without moving it. The block is unchanged and still owned by the caller. Reallocate treats it
	// as a signal to fall back to allocate-copy-free, so it should never reach HandleAllocError.
	ErrCannotReallocInPlace = errors.New("cannot reallocate in place")
	// ErrLayout is returned when the parameters of a Layout are invalid or computing a layout overflows
	ErrLayout = errors.New("invalid layout parameters")
	// ErrCapacityOverflow is returned by collections when an element count cannot be represented
	// as a byte size
	ErrCapacityOverflow = errors.New("capacity overflow")

	// ErrUnsupported is returned when an allocator cannot serve a layout at all, such as an alignment
	// larger than it can provide. It is also an ErrAlloc.
	ErrUnsupported = errors.Wrap(ErrAlloc, "layout not supported by allocator")
	// ErrExhausted is returned when an allocator has run out of a bounded resource, such as an arena
	// region or a byte budget. It is also an ErrAlloc.
	ErrExhausted = errors.Wrap(ErrAlloc, "allocator exhausted")
)

func layoutError(format string, args ...interface{}) error {
	return cerrors.Wrapf(ErrLayout, format, args...)
}

// CollectionError classifies err the way collections report failures: layout and arithmetic overflow
// errors become ErrCapacityOverflow, everything else becomes ErrAlloc. The original message and chain
// are preserved.
func CollectionError(err error) error {
	if err == nil {
		return nil
	}

	if cerrors.Is(err, ErrCapacityOverflow) || cerrors.Is(err, ErrAlloc) {
		return err
	}

	if cerrors.Is(err, ErrLayout) || cerrors.Is(err, memutils.OverflowError) {
		return cerrors.Mark(err, ErrCapacityOverflow)
	}

	return cerrors.Mark(err, ErrAlloc)
}
