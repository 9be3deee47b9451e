package alloc

import (
	"fmt"
	"math"
	"math/bits"
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/arsenal/allocapi/memutils"
)

// MaxAlign is the largest alignment a Layout may carry
const MaxAlign uint = 1 << (bits.UintSize - 2)

// Layout describes the size and alignment of a block of memory. The zero value is not a valid Layout,
// use FromSizeAlign, LayoutOf or ArrayLayout to build one.
//
// A valid Layout has a power-of-two alignment, a non-negative size, and a size that does not overflow
// an int when rounded up to the alignment.
type Layout struct {
	size  int
	align uint
}

// FromSizeAlign builds a Layout after validating its parameters. It returns a wrapped ErrLayout if
// align is zero, not a power of two, or larger than MaxAlign, if size is negative, or if size rounded
// up to align would overflow an int.
func FromSizeAlign(size int, align uint) (Layout, error) {
	if align == 0 {
		return Layout{}, layoutError("alignment must not be zero")
	}

	if err := memutils.CheckPow2(align, "alignment"); err != nil {
		return Layout{}, errors.WithSecondaryError(layoutError("alignment %d", align), err)
	}

	if align > MaxAlign {
		return Layout{}, layoutError("alignment %d is larger than the maximum %d", align, MaxAlign)
	}

	if size < 0 {
		return Layout{}, layoutError("size %d is negative", size)
	}

	if size > math.MaxInt-int(align-1) {
		return Layout{}, layoutError("size %d overflows when rounded up to alignment %d", size, align)
	}

	return Layout{size: size, align: align}, nil
}

// MustFromSizeAlign is FromSizeAlign for parameters known to be valid. It panics on an invalid layout.
func MustFromSizeAlign(size int, align uint) Layout {
	layout, err := FromSizeAlign(size, align)
	if err != nil {
		panic(err)
	}
	return layout
}

// LayoutOf returns the layout of a single T
func LayoutOf[T any]() Layout {
	var zero T
	return Layout{
		size:  int(unsafe.Sizeof(zero)),
		align: uint(unsafe.Alignof(zero)),
	}
}

// ArrayLayout returns the layout of [n]T, or a wrapped ErrLayout if n is negative or the
// total size overflows
func ArrayLayout[T any](n int) (Layout, error) {
	if n < 0 {
		return Layout{}, layoutError("array length %d is negative", n)
	}

	layout, _, err := LayoutOf[T]().Repeat(n)
	return layout, err
}

func (l Layout) Size() int {
	return l.size
}

func (l Layout) Align() uint {
	return l.align
}

func (l Layout) String() string {
	return fmt.Sprintf("Layout{Size: %d, Align: %d}", l.size, l.align)
}

// Dangling returns a non-nil pointer aligned to this layout's alignment that must never be read or
// written through. It stands in for zero-sized blocks and empty buffers.
func (l Layout) Dangling() unsafe.Pointer {
	return dangling(l.align)
}

// PaddingNeededFor returns the number of bytes that must be inserted after this layout so that
// the following address is aligned to align. align must be a power of two.
func (l Layout) PaddingNeededFor(align uint) int {
	memutils.DebugCheckPow2(align, "alignment")

	size := uint(l.size)
	rounded := (size + align - 1) &^ (align - 1)
	return int(rounded - size)
}

// PadToAlign returns this layout with its size rounded up to a multiple of its alignment
func (l Layout) PadToAlign() Layout {
	return Layout{
		size:  l.size + l.PaddingNeededFor(l.align),
		align: l.align,
	}
}

// AlignTo returns a layout with the same size and at least the requested alignment
func (l Layout) AlignTo(align uint) (Layout, error) {
	if align < l.align {
		align = l.align
	}
	return FromSizeAlign(l.size, align)
}

// Repeat returns the layout of n copies of this layout, each padded to its alignment, along with
// the distance in bytes between the start of consecutive copies
func (l Layout) Repeat(n int) (Layout, int, error) {
	if n < 0 {
		return Layout{}, 0, layoutError("repeat count %d is negative", n)
	}

	stride := l.PadToAlign().size
	total, err := memutils.CheckedMul(stride, n)
	if err != nil {
		return Layout{}, 0, errors.WithSecondaryError(layoutError("%d copies of %s", n, l), err)
	}

	repeated, err := FromSizeAlign(total, l.align)
	if err != nil {
		return Layout{}, 0, err
	}

	return repeated, stride, nil
}

// Extend returns the layout of a record with this layout followed by next, along with the offset of
// next within the record. The result is not padded to its own alignment, call PadToAlign for that.
func (l Layout) Extend(next Layout) (Layout, int, error) {
	align := l.align
	if next.align > align {
		align = next.align
	}

	offset, err := memutils.CheckedAdd(l.size, l.PaddingNeededFor(next.align))
	if err != nil {
		return Layout{}, 0, errors.WithSecondaryError(layoutError("extending %s with %s", l, next), err)
	}

	size, err := memutils.CheckedAdd(offset, next.size)
	if err != nil {
		return Layout{}, 0, errors.WithSecondaryError(layoutError("extending %s with %s", l, next), err)
	}

	extended, err := FromSizeAlign(size, align)
	if err != nil {
		return Layout{}, 0, err
	}

	return extended, offset, nil
}
