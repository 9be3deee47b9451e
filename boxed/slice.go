package boxed

import (
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/arsenal/allocapi/alloc"
	"github.com/vkngwrapper/arsenal/allocapi/internal/utils"
	"github.com/vkngwrapper/arsenal/allocapi/memutils"
)

// Slice owns a fixed number of T values stored contiguously in memory from an allocator. Its block
// always fits the layout of exactly Len() values. T must not contain Go pointers.
//
// Once a Slice has been freed or moved out with IntoRawParts, every method other than Free panics.
type Slice[T any] struct {
	ptr       unsafe.Pointer
	length    int
	allocator alloc.Allocator
}

// FromRawPartsIn takes ownership of n values at ptr. The block must have been allocated from a and
// fit the layout of n values of T.
func FromRawPartsIn[T any](ptr unsafe.Pointer, n int, a alloc.Allocator) *Slice[T] {
	utils.MustBePointerFree[T]("boxed.FromRawPartsIn")
	return &Slice[T]{ptr: ptr, length: n, allocator: a}
}

// CopyIn allocates a Slice from a holding a copy of src. If the allocator fails,
// alloc.HandleAllocError is called.
func CopyIn[T any](src []T, a alloc.Allocator) *Slice[T] {
	slice, err := TryCopyIn(src, a)
	if err != nil {
		if errors.Is(err, alloc.ErrCapacityOverflow) {
			alloc.CapacityOverflow("%d values of %s", len(src), alloc.LayoutOf[T]())
		}

		layout, _ := alloc.ArrayLayout[T](len(src))
		alloc.HandleAllocError(layout)
	}
	return slice
}

// TryCopyIn allocates a Slice from a holding a copy of src, returning an error classified by
// alloc.CollectionError if it fails
func TryCopyIn[T any](src []T, a alloc.Allocator) (*Slice[T], error) {
	utils.MustBePointerFree[T]("boxed.CopyIn")

	layout, err := alloc.ArrayLayout[T](len(src))
	if err != nil {
		return nil, alloc.CollectionError(err)
	}

	ptr := layout.Dangling()
	if layout.Size() > 0 {
		ptr, _, err = a.Allocate(layout)
		if err != nil {
			return nil, alloc.CollectionError(err)
		}
		memutils.Copy(ptr, unsafe.Pointer(unsafe.SliceData(src)), layout.Size())
	}

	return &Slice[T]{ptr: ptr, length: len(src), allocator: a}, nil
}

func (s *Slice[T]) mustBeLive() {
	if s.allocator == nil {
		panic(errors.AssertionFailedf("use of a Slice that was freed or moved"))
	}
}

func (s *Slice[T]) Len() int {
	s.mustBeLive()
	return s.length
}

func (s *Slice[T]) Ptr() unsafe.Pointer {
	s.mustBeLive()
	return s.ptr
}

// Slice returns a Go slice over the owned values. It is valid until the Slice is freed.
func (s *Slice[T]) Slice() []T {
	s.mustBeLive()
	return unsafe.Slice((*T)(s.ptr), s.length)
}

func (s *Slice[T]) Allocator() alloc.Allocator {
	s.mustBeLive()
	return s.allocator
}

// Clone copies the values into a new Slice from the same allocator
func (s *Slice[T]) Clone() *Slice[T] {
	return CopyIn(s.Slice(), s.allocator)
}

// IntoRawParts moves the values out of the Slice. The caller becomes responsible for releasing them,
// usually by passing the parts back to FromRawPartsIn.
func (s *Slice[T]) IntoRawParts() (unsafe.Pointer, int, alloc.Allocator) {
	s.mustBeLive()

	ptr, length, allocator := s.ptr, s.length, s.allocator
	s.ptr, s.length, s.allocator = nil, 0, nil
	return ptr, length, allocator
}

// Free releases the values. Freeing a Slice that no longer owns any values does nothing.
func (s *Slice[T]) Free() {
	if s.allocator == nil {
		return
	}

	layout, err := alloc.ArrayLayout[T](s.length)
	if err != nil {
		panic(errors.NewAssertionErrorWithWrappedErrf(err, "Slice of %d values has no valid layout", s.length))
	}

	if layout.Size() > 0 {
		s.allocator.Deallocate(s.ptr, layout)
	}

	s.ptr, s.length, s.allocator = nil, 0, nil
}
