package boxed

import (
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/arsenal/allocapi/alloc"
	"github.com/vkngwrapper/arsenal/allocapi/internal/utils"
)

// Box owns a single T stored in memory from an allocator. T must not contain Go pointers.
//
// Once a Box has been freed, leaked, or moved out with IntoRaw, every method other than Free panics.
type Box[T any] struct {
	ptr       unsafe.Pointer
	allocator alloc.Allocator
}

// NewIn moves x into memory from a. Zero-sized types never reach the allocator. If the allocator
// fails, alloc.HandleAllocError is called.
func NewIn[T any](x T, a alloc.Allocator) *Box[T] {
	box, err := TryNewIn(x, a)
	if err != nil {
		alloc.HandleAllocError(alloc.LayoutOf[T]())
	}
	return box
}

// TryNewIn moves x into memory from a, returning the allocator's error if it fails
func TryNewIn[T any](x T, a alloc.Allocator) (*Box[T], error) {
	utils.MustBePointerFree[T]("boxed.NewIn")

	layout := alloc.LayoutOf[T]()
	ptr := layout.Dangling()
	if layout.Size() > 0 {
		var err error
		ptr, _, err = a.Allocate(layout)
		if err != nil {
			return nil, err
		}
		*(*T)(ptr) = x
	}

	return &Box[T]{ptr: ptr, allocator: a}, nil
}

// New moves x into memory from alloc.Default
func New[T any](x T) *Box[T] {
	return NewIn(x, alloc.Default)
}

// FromRawIn takes ownership of a T at ptr that was allocated from a with the layout of T, such as a
// pointer returned by IntoRaw
func FromRawIn[T any](ptr unsafe.Pointer, a alloc.Allocator) *Box[T] {
	utils.MustBePointerFree[T]("boxed.FromRawIn")
	return &Box[T]{ptr: ptr, allocator: a}
}

func (b *Box[T]) mustBeLive() {
	if b.allocator == nil {
		panic(errors.AssertionFailedf("use of a Box that was freed or moved"))
	}
}

// Get returns a pointer to the boxed value. It is valid until the Box is freed.
func (b *Box[T]) Get() *T {
	b.mustBeLive()
	return (*T)(b.ptr)
}

func (b *Box[T]) Allocator() alloc.Allocator {
	b.mustBeLive()
	return b.allocator
}

// IntoRaw moves the value out of the Box and returns its pointer. The caller becomes responsible for
// releasing it, usually by passing it back to FromRawIn with the same allocator.
func (b *Box[T]) IntoRaw() unsafe.Pointer {
	b.mustBeLive()

	ptr := b.ptr
	b.ptr, b.allocator = nil, nil
	return ptr
}

// Leak gives up ownership of the value without releasing it
func (b *Box[T]) Leak() *T {
	return (*T)(b.IntoRaw())
}

// Free releases the boxed value. Freeing a Box that no longer owns a value does nothing.
func (b *Box[T]) Free() {
	if b.allocator == nil {
		return
	}

	layout := alloc.LayoutOf[T]()
	if layout.Size() > 0 {
		b.allocator.Deallocate(b.ptr, layout)
	}

	b.ptr, b.allocator = nil, nil
}
