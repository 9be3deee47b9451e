package alloc

import (
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/arsenal/allocapi/memutils"
)

//go:generate mockgen -source allocator.go -destination ../internal/mocks/mock_allocator.go -package mocks

// Allocator is the core contract for a pluggable memory provider. Blocks handed out by an Allocator
// are not scanned by the garbage collector, so they must never hold Go pointers.
//
// A block "fits" a layout if the layout has the alignment the block was allocated with and a size
// between the size that was requested and the usable size the allocator reported. Every method that
// accepts a previously-allocated pointer requires that the block was allocated by this same allocator,
// has not been deallocated, and fits the provided layout. Plain allocators do not check this.
//
// Optional behaviour is exposed through ZeroAllocator, Reallocator, ZeroReallocator, InPlaceResizer and
// UsableSizer. Callers should go through the package-level functions of the same names, which fall
// back to the default behaviour when an allocator does not implement them.
type Allocator interface {
	// Allocate returns a block that fits layout along with its usable size, which is at least
	// layout.Size(). Zero-sized layouts succeed with a non-nil pointer that must not be dereferenced.
	// The contents of the block are unspecified. On failure the error wraps ErrAlloc.
	Allocate(layout Layout) (unsafe.Pointer, int, error)
	// Deallocate releases a block that fits layout
	Deallocate(ptr unsafe.Pointer, layout Layout)
}

// ZeroAllocator is implemented by allocators that can hand out zeroed memory more cheaply than
// allocating and clearing
type ZeroAllocator interface {
	AllocateZeroed(layout Layout) (unsafe.Pointer, int, error)
}

// Reallocator is implemented by allocators with a native resize path
type Reallocator interface {
	Reallocate(ptr unsafe.Pointer, layout Layout, newSize int) (unsafe.Pointer, int, error)
}

// ZeroReallocator is implemented by allocators with a native resize path that zeroes the grown tail
type ZeroReallocator interface {
	ReallocateZeroed(ptr unsafe.Pointer, layout Layout, newSize int) (unsafe.Pointer, int, error)
}

// InPlaceResizer is implemented by allocators that can sometimes resize a block without moving it.
// Both methods return the new usable size on success, or an error wrapping ErrCannotReallocInPlace
// if the block was left unchanged.
type InPlaceResizer interface {
	GrowInPlace(ptr unsafe.Pointer, layout Layout, newSize int) (int, error)
	ShrinkInPlace(ptr unsafe.Pointer, layout Layout, newSize int) (int, error)
}

// UsableSizer is implemented by allocators that can predict the usable size range of a layout
type UsableSizer interface {
	UsableSize(layout Layout) (int, int)
}

// UsableSize returns the minimum and maximum usable size that a block allocated with layout
// could report. Allocators that don't implement UsableSizer report (layout.Size(), layout.Size()).
func UsableSize(a Allocator, layout Layout) (int, int) {
	if sizer, ok := a.(UsableSizer); ok {
		return sizer.UsableSize(layout)
	}

	return layout.Size(), layout.Size()
}

// AllocateZeroed behaves like Allocate, but the first layout.Size() bytes of the block are zero
func AllocateZeroed(a Allocator, layout Layout) (unsafe.Pointer, int, error) {
	if zeroer, ok := a.(ZeroAllocator); ok {
		return zeroer.AllocateZeroed(layout)
	}

	ptr, usable, err := a.Allocate(layout)
	if err != nil {
		return nil, 0, err
	}

	memutils.Clear(ptr, layout.Size())
	return ptr, usable, nil
}

// GrowInPlace attempts to extend the block at ptr to newSize bytes without moving it. newSize must be
// at least layout.Size(). Allocators that don't implement InPlaceResizer always fail with
// ErrCannotReallocInPlace.
func GrowInPlace(a Allocator, ptr unsafe.Pointer, layout Layout, newSize int) (int, error) {
	if newSize < layout.Size() {
		return 0, errors.AssertionFailedf("cannot grow %s to smaller size %d", layout, newSize)
	}

	if resizer, ok := a.(InPlaceResizer); ok {
		return resizer.GrowInPlace(ptr, layout, newSize)
	}

	return 0, ErrCannotReallocInPlace
}

// GrowInPlaceZeroed behaves like GrowInPlace, and zeroes the bytes between layout.Size() and
// newSize on success
func GrowInPlaceZeroed(a Allocator, ptr unsafe.Pointer, layout Layout, newSize int) (int, error) {
	usable, err := GrowInPlace(a, ptr, layout, newSize)
	if err != nil {
		return 0, err
	}

	memutils.Clear(unsafe.Add(ptr, layout.Size()), newSize-layout.Size())
	return usable, nil
}

// ShrinkInPlace attempts to reduce the block at ptr to newSize bytes without moving it. newSize must be
// no larger than layout.Size(). Allocators that don't implement InPlaceResizer always fail with
// ErrCannotReallocInPlace.
func ShrinkInPlace(a Allocator, ptr unsafe.Pointer, layout Layout, newSize int) (int, error) {
	if newSize > layout.Size() || newSize < 0 {
		return 0, errors.AssertionFailedf("cannot shrink %s to size %d", layout, newSize)
	}

	if resizer, ok := a.(InPlaceResizer); ok {
		return resizer.ShrinkInPlace(ptr, layout, newSize)
	}

	return 0, ErrCannotReallocInPlace
}

// Reallocate resizes the block at ptr to newSize bytes with the same alignment, returning the
// possibly-moved block and its usable size. The first min(layout.Size(), newSize) bytes are preserved.
//
// On success the old pointer must no longer be used. On failure the old block is untouched and still
// owned by the caller.
func Reallocate(a Allocator, ptr unsafe.Pointer, layout Layout, newSize int) (unsafe.Pointer, int, error) {
	if reallocator, ok := a.(Reallocator); ok {
		return reallocator.Reallocate(ptr, layout, newSize)
	}

	return DefaultReallocate(a, ptr, layout, newSize)
}

// ReallocateZeroed behaves like Reallocate, and the bytes between layout.Size() and newSize are zero
// when the block grows
func ReallocateZeroed(a Allocator, ptr unsafe.Pointer, layout Layout, newSize int) (unsafe.Pointer, int, error) {
	if reallocator, ok := a.(ZeroReallocator); ok {
		return reallocator.ReallocateZeroed(ptr, layout, newSize)
	}

	if reallocator, ok := a.(Reallocator); ok {
		newPtr, usable, err := reallocator.Reallocate(ptr, layout, newSize)
		if err != nil {
			return nil, 0, err
		}

		if newSize > layout.Size() {
			memutils.Clear(unsafe.Add(newPtr, layout.Size()), newSize-layout.Size())
		}
		return newPtr, usable, nil
	}

	return DefaultReallocateZeroed(a, ptr, layout, newSize)
}

// DefaultReallocate is the resize path used for allocators that don't implement Reallocator. Allocators
// that implement Reallocator for some layouts can call it for the rest.
//
// An unchanged size returns the same block. Otherwise the block is resized in place if the allocator
// supports it, and moved with Allocate, a copy and Deallocate if not. A new size of zero releases the
// block and returns a dangling pointer.
func DefaultReallocate(a Allocator, ptr unsafe.Pointer, layout Layout, newSize int) (unsafe.Pointer, int, error) {
	return defaultReallocate(a, ptr, layout, newSize, false)
}

// DefaultReallocateZeroed is the zeroing counterpart of DefaultReallocate
func DefaultReallocateZeroed(a Allocator, ptr unsafe.Pointer, layout Layout, newSize int) (unsafe.Pointer, int, error) {
	return defaultReallocate(a, ptr, layout, newSize, true)
}

func defaultReallocate(a Allocator, ptr unsafe.Pointer, layout Layout, newSize int, zeroed bool) (unsafe.Pointer, int, error) {
	newLayout, err := FromSizeAlign(newSize, layout.Align())
	if err != nil {
		return nil, 0, err
	}

	oldSize := layout.Size()
	switch {
	case newSize == oldSize:
		return ptr, newSize, nil
	case newSize == 0:
		// Zero-sized blocks are never deallocated, so the old block has to be released here
		a.Deallocate(ptr, layout)
		return newLayout.Dangling(), 0, nil
	case newSize > oldSize && zeroed:
		usable, err := GrowInPlaceZeroed(a, ptr, layout, newSize)
		if err == nil {
			return ptr, usable, nil
		} else if !errors.Is(err, ErrCannotReallocInPlace) {
			return nil, 0, err
		}
	case newSize > oldSize:
		usable, err := GrowInPlace(a, ptr, layout, newSize)
		if err == nil {
			return ptr, usable, nil
		} else if !errors.Is(err, ErrCannotReallocInPlace) {
			return nil, 0, err
		}
	default:
		usable, err := ShrinkInPlace(a, ptr, layout, newSize)
		if err == nil {
			return ptr, usable, nil
		} else if !errors.Is(err, ErrCannotReallocInPlace) {
			return nil, 0, err
		}
	}

	var newPtr unsafe.Pointer
	var usable int
	if zeroed {
		newPtr, usable, err = AllocateZeroed(a, newLayout)
	} else {
		newPtr, usable, err = a.Allocate(newLayout)
	}
	if err != nil {
		return nil, 0, err
	}

	copySize := oldSize
	if newSize < copySize {
		copySize = newSize
	}
	memutils.Copy(newPtr, ptr, copySize)
	a.Deallocate(ptr, layout)

	return newPtr, usable, nil
}
