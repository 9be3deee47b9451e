package memutils

import (
	"math"
	"math/bits"
	"unsafe"

	"github.com/cockroachdb/errors"
)

type Number interface {
	~int | ~uint | ~uintptr
}

// CheckPow2 returns a wrapped PowerOfTwoError if number is not a power of two. Zero passes, callers
// that cannot accept zero must check for it themselves.
func CheckPow2[T Number](number T, name string) error {
	if number&(number-1) != 0 {
		return errors.Wrapf(PowerOfTwoError, "%s is %d", name, number)
	}
	return nil
}

func AlignUp(value int, alignment uint) int {
	return (value + int(alignment) - 1) & int(^(alignment - 1))
}

func AlignDown(value int, alignment uint) int {
	return value & int(^(alignment - 1))
}

// AlignPointer returns the first address at or after ptr that is a multiple of alignment. The caller
// is responsible for making sure the result is still inside the object ptr points into.
func AlignPointer(ptr unsafe.Pointer, alignment uint) unsafe.Pointer {
	addr := uintptr(ptr)
	aligned := (addr + uintptr(alignment) - 1) &^ (uintptr(alignment) - 1)
	return unsafe.Add(ptr, aligned-addr)
}

// CheckedAdd returns a+b for non-negative operands, or a wrapped OverflowError if the sum does not
// fit in an int
func CheckedAdd(a, b int) (int, error) {
	if a < 0 || b < 0 || a > math.MaxInt-b {
		return 0, errors.Wrapf(OverflowError, "%d + %d", a, b)
	}
	return a + b, nil
}

// CheckedMul returns a*b for non-negative operands, or a wrapped OverflowError if the product does not
// fit in an int
func CheckedMul(a, b int) (int, error) {
	if a < 0 || b < 0 {
		return 0, errors.Wrapf(OverflowError, "%d * %d", a, b)
	}
	hi, lo := bits.Mul(uint(a), uint(b))
	if hi != 0 || lo > math.MaxInt {
		return 0, errors.Wrapf(OverflowError, "%d * %d", a, b)
	}
	return int(lo), nil
}

// SaturatingMul returns a*b for non-negative operands, clamped to math.MaxInt
func SaturatingMul(a, b int) int {
	product, err := CheckedMul(a, b)
	if err != nil {
		return math.MaxInt
	}
	return product
}

// Bytes returns a byte slice view over size bytes at ptr
func Bytes(ptr unsafe.Pointer, size int) []byte {
	if size == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(ptr), size)
}

// Clear zeroes size bytes at ptr
func Clear(ptr unsafe.Pointer, size int) {
	if size == 0 {
		return
	}
	clear(Bytes(ptr, size))
}

// Copy copies size bytes from src to dst. The regions may not overlap.
func Copy(dst, src unsafe.Pointer, size int) {
	if size == 0 {
		return
	}
	copy(Bytes(dst, size), Bytes(src, size))
}
