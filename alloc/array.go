package alloc

import (
	"unsafe"

	"github.com/vkngwrapper/arsenal/allocapi/internal/utils"
)

// AllocateArray allocates room for n values of T. Zero-sized arrays never reach the allocator and
// return a dangling pointer. T must not contain Go pointers.
func AllocateArray[T any](a Allocator, n int) (unsafe.Pointer, error) {
	utils.MustBePointerFree[T]("AllocateArray")

	layout, err := ArrayLayout[T](n)
	if err != nil {
		return nil, err
	}

	if layout.Size() == 0 {
		return layout.Dangling(), nil
	}

	ptr, _, err := a.Allocate(layout)
	return ptr, err
}

// ReallocateArray resizes an array of n values of T allocated with AllocateArray to newN values,
// preserving the first min(n, newN) values. On failure the old array is untouched.
func ReallocateArray[T any](a Allocator, ptr unsafe.Pointer, n, newN int) (unsafe.Pointer, error) {
	utils.MustBePointerFree[T]("ReallocateArray")

	layout, err := ArrayLayout[T](n)
	if err != nil {
		return nil, err
	}

	newLayout, err := ArrayLayout[T](newN)
	if err != nil {
		return nil, err
	}

	switch {
	case layout.Size() == newLayout.Size():
		return ptr, nil
	case layout.Size() == 0:
		ptr, _, err := a.Allocate(newLayout)
		return ptr, err
	case newLayout.Size() == 0:
		a.Deallocate(ptr, layout)
		return newLayout.Dangling(), nil
	}

	newPtr, _, err := Reallocate(a, ptr, layout, newLayout.Size())
	return newPtr, err
}

// DeallocateArray releases an array of n values of T allocated with AllocateArray
func DeallocateArray[T any](a Allocator, ptr unsafe.Pointer, n int) error {
	layout, err := ArrayLayout[T](n)
	if err != nil {
		return err
	}

	if layout.Size() == 0 {
		return nil
	}

	a.Deallocate(ptr, layout)
	return nil
}
