// Package rawvec provides RawVec, the growable buffer underneath vector-like collections that store
// their values outside the Go heap.
package rawvec

import (
	"math"
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/arsenal/allocapi/alloc"
	"github.com/vkngwrapper/arsenal/allocapi/boxed"
	"github.com/vkngwrapper/arsenal/allocapi/internal/utils"
)

// RawVec owns a growable buffer of T values from an allocator. It only manages the buffer: tracking
// how many of the values are initialized is up to the caller, which passes that count in as "used".
//
// An empty RawVec holds a dangling pointer aligned for T and a capacity of zero. For zero-sized T the
// capacity is always math.MaxInt and the allocator is never called. Capacity in bytes never overflows
// an int.
//
// Every operation that fails leaves the pointer and capacity untouched. The infallible variants
// report capacity overflow through alloc.CapacityOverflow and allocator failure through
// alloc.HandleAllocError.
//
// After IntoBox or Free the RawVec no longer owns a buffer: every method other than Free panics.
//
// RawVec does no locking of its own. T must not contain Go pointers.
type RawVec[T any] struct {
	ptr       unsafe.Pointer
	cap       int
	allocator alloc.Allocator
}

func elemLayout[T any]() alloc.Layout {
	return alloc.LayoutOf[T]()
}

func isZeroSized[T any]() bool {
	return elemLayout[T]().Size() == 0
}

// New creates an empty RawVec that will allocate from a. Nothing is allocated until it grows.
func New[T any](a alloc.Allocator) *RawVec[T] {
	utils.MustBePointerFree[T]("rawvec.New")

	v := &RawVec[T]{
		ptr:       elemLayout[T]().Dangling(),
		allocator: a,
	}
	if isZeroSized[T]() {
		v.cap = math.MaxInt
	}

	return v
}

// NewDefault creates an empty RawVec that will allocate from alloc.Default
func NewDefault[T any]() *RawVec[T] {
	return New[T](alloc.Default)
}

// WithCapacity creates a RawVec with room for at least capacity values
func WithCapacity[T any](capacity int, a alloc.Allocator) *RawVec[T] {
	v, err := TryWithCapacity[T](capacity, a)
	if err != nil {
		failInfallible[T](err, capacity)
	}
	return v
}

// TryWithCapacity creates a RawVec with room for at least capacity values. It returns an error wrapping
// alloc.ErrCapacityOverflow if the capacity cannot be represented in bytes, or the allocator's error.
func TryWithCapacity[T any](capacity int, a alloc.Allocator) (*RawVec[T], error) {
	return allocateIn[T](capacity, false, a)
}

// WithCapacityZeroed creates a RawVec with room for exactly capacity values, all zero
func WithCapacityZeroed[T any](capacity int, a alloc.Allocator) *RawVec[T] {
	v, err := TryWithCapacityZeroed[T](capacity, a)
	if err != nil {
		failInfallible[T](err, capacity)
	}
	return v
}

// TryWithCapacityZeroed is the fallible form of WithCapacityZeroed
func TryWithCapacityZeroed[T any](capacity int, a alloc.Allocator) (*RawVec[T], error) {
	return allocateIn[T](capacity, true, a)
}

func allocateIn[T any](capacity int, zeroed bool, a alloc.Allocator) (*RawVec[T], error) {
	v := New[T](a)
	if isZeroSized[T]() || capacity == 0 {
		return v, nil
	}

	layout, err := alloc.ArrayLayout[T](capacity)
	if err != nil {
		return nil, alloc.CollectionError(err)
	}

	var usable int
	if zeroed {
		v.ptr, _, err = alloc.AllocateZeroed(a, layout)
		usable = layout.Size()
	} else {
		v.ptr, usable, err = a.Allocate(layout)
	}
	if err != nil {
		return nil, alloc.CollectionError(err)
	}

	v.cap = capacityFor[T](usable)
	return v, nil
}

// FromRawParts takes ownership of a buffer of capacity values at ptr. The buffer must have been
// allocated from a and fit the layout of capacity values of T. For zero-sized T, capacity is ignored.
func FromRawParts[T any](ptr unsafe.Pointer, capacity int, a alloc.Allocator) *RawVec[T] {
	utils.MustBePointerFree[T]("rawvec.FromRawParts")

	if isZeroSized[T]() {
		capacity = math.MaxInt
	}

	return &RawVec[T]{
		ptr:       ptr,
		cap:       capacity,
		allocator: a,
	}
}

// FromBox takes over the buffer of a boxed slice, consuming it. The capacity is the slice's length.
func FromBox[T any](b *boxed.Slice[T]) *RawVec[T] {
	ptr, length, a := b.IntoRawParts()
	return FromRawParts[T](ptr, length, a)
}

func capacityFor[T any](usable int) int {
	return usable / elemLayout[T]().Size()
}

func failInfallible[T any](err error, capacity int) {
	if errors.Is(err, alloc.ErrCapacityOverflow) {
		alloc.CapacityOverflow("buffer of %d values of %s: %v", capacity, elemLayout[T](), err)
	}

	layout, layoutErr := alloc.ArrayLayout[T](capacity)
	if layoutErr != nil {
		alloc.CapacityOverflow("buffer of %d values of %s: %v", capacity, elemLayout[T](), layoutErr)
	}
	alloc.HandleAllocError(layout)
}

func (v *RawVec[T]) mustBeLive() {
	if v.allocator == nil {
		panic(errors.AssertionFailedf("use of a RawVec whose buffer was freed or moved"))
	}
}

// Ptr returns the start of the buffer, or a dangling pointer if nothing is allocated
func (v *RawVec[T]) Ptr() unsafe.Pointer {
	v.mustBeLive()
	return v.ptr
}

// Cap returns the number of values the buffer can hold. It is math.MaxInt for zero-sized T.
func (v *RawVec[T]) Cap() int {
	v.mustBeLive()
	return v.cap
}

func (v *RawVec[T]) Allocator() alloc.Allocator {
	v.mustBeLive()
	return v.allocator
}

// Slice returns a Go slice over the first n values of the buffer. n must not exceed Cap.
func (v *RawVec[T]) Slice(n int) []T {
	v.mustBeLive()
	if n < 0 || n > v.cap {
		panic(errors.AssertionFailedf("slice of %d values out of range for capacity %d", n, v.cap))
	}
	return unsafe.Slice((*T)(v.ptr), n)
}

// CurrentLayout returns the layout the buffer is held with, or false if nothing is allocated
func (v *RawVec[T]) CurrentLayout() (alloc.Layout, bool) {
	v.mustBeLive()
	return v.currentLayout()
}

func (v *RawVec[T]) currentLayout() (alloc.Layout, bool) {
	if v.cap == 0 || isZeroSized[T]() {
		return alloc.Layout{}, false
	}

	elem := elemLayout[T]()
	return alloc.MustFromSizeAlign(v.cap*elem.Size(), elem.Align()), true
}

// Free releases the buffer. Freeing a RawVec that no longer owns a buffer does nothing.
func (v *RawVec[T]) Free() {
	if v.allocator == nil {
		return
	}

	if layout, ok := v.currentLayout(); ok {
		v.allocator.Deallocate(v.ptr, layout)
	}

	v.ptr, v.cap, v.allocator = nil, 0, nil
}

// IntoBox moves the first used values into a boxed slice, shrinking the buffer first if it has spare
// capacity. used must not exceed Cap. The RawVec no longer owns a buffer afterward.
func (v *RawVec[T]) IntoBox(used int) *boxed.Slice[T] {
	v.mustBeLive()
	if used < 0 || used > v.cap {
		panic(errors.AssertionFailedf("cannot box %d values from a buffer with capacity %d", used, v.cap))
	}

	if !isZeroSized[T]() && used < v.cap {
		v.ShrinkToFit(used)
	}

	slice := boxed.FromRawPartsIn[T](v.ptr, used, v.allocator)
	v.ptr, v.cap, v.allocator = nil, 0, nil
	return slice
}
