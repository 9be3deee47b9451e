package rawvec

import (
	"math"
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/arsenal/allocapi/alloc"
	"github.com/vkngwrapper/arsenal/allocapi/memutils"
)

type reserveStrategy int

const (
	reserveExact reserveStrategy = iota
	reserveAmortized
)

// requiredCapacity returns used+additional, or ok=false if the buffer already has room for it
func (v *RawVec[T]) requiredCapacity(used, additional int) (required int, ok bool, err error) {
	if used < 0 || additional < 0 {
		panic(errors.AssertionFailedf("reserve with used %d and additional %d", used, additional))
	}

	if used <= v.cap && v.cap-used >= additional {
		return 0, false, nil
	}

	required, err = memutils.CheckedAdd(used, additional)
	if err != nil {
		return 0, false, alloc.CollectionError(errors.Wrapf(err, "reserving %d values after %d", additional, used))
	}

	return required, true, nil
}

// targetCapacity picks the capacity to grow to. Amortized growth at least doubles, unless doubling
// cannot be represented in bytes.
func (v *RawVec[T]) targetCapacity(required int, strategy reserveStrategy) int {
	if strategy == reserveExact {
		return required
	}

	doubled := memutils.SaturatingMul(v.cap, 2)
	if doubled <= required {
		return required
	}

	if _, err := alloc.ArrayLayout[T](doubled); err != nil {
		return required
	}
	return doubled
}

func (v *RawVec[T]) reserve(used, additional int, strategy reserveStrategy) (int, error) {
	required, grow, err := v.requiredCapacity(used, additional)
	if err != nil || !grow {
		return required, err
	}

	newCap := v.targetCapacity(required, strategy)
	return newCap, v.growTo(newCap)
}

// growTo moves the buffer to one with room for at least newCap values. On failure nothing changes.
func (v *RawVec[T]) growTo(newCap int) error {
	newLayout, err := alloc.ArrayLayout[T](newCap)
	if err != nil {
		return alloc.CollectionError(err)
	}

	var ptr unsafe.Pointer
	var usable int
	if layout, ok := v.currentLayout(); ok {
		ptr, usable, err = alloc.Reallocate(v.allocator, v.ptr, layout, newLayout.Size())
	} else {
		ptr, usable, err = v.allocator.Allocate(newLayout)
	}
	if err != nil {
		return alloc.CollectionError(err)
	}

	v.ptr = ptr
	v.cap = capacityFor[T](usable)
	return nil
}

// Reserve ensures the buffer has room for at least used+additional values. If it must grow, it grows
// to at least double its current capacity so that repeated calls are amortized O(1).
func (v *RawVec[T]) Reserve(used, additional int) {
	v.mustBeLive()

	newCap, err := v.reserve(used, additional, reserveAmortized)
	if err != nil {
		failInfallible[T](err, newCap)
	}
}

// TryReserve is the fallible form of Reserve
func (v *RawVec[T]) TryReserve(used, additional int) error {
	v.mustBeLive()

	_, err := v.reserve(used, additional, reserveAmortized)
	return err
}

// ReserveExact ensures the buffer has room for at least used+additional values without
// over-allocating on purpose. The allocator may still provide more room than asked for.
func (v *RawVec[T]) ReserveExact(used, additional int) {
	v.mustBeLive()

	newCap, err := v.reserve(used, additional, reserveExact)
	if err != nil {
		failInfallible[T](err, newCap)
	}
}

// TryReserveExact is the fallible form of ReserveExact
func (v *RawVec[T]) TryReserveExact(used, additional int) error {
	v.mustBeLive()

	_, err := v.reserve(used, additional, reserveExact)
	return err
}

// ReserveInPlace attempts amortized growth like Reserve, but only by growing the current block without
// moving it. It returns false if that was not possible, in which case nothing changed.
func (v *RawVec[T]) ReserveInPlace(used, additional int) bool {
	v.mustBeLive()

	required, grow, err := v.requiredCapacity(used, additional)
	if err != nil {
		alloc.CapacityOverflow("%v", err)
	}
	if !grow {
		return true
	}

	newCap := v.targetCapacity(required, reserveAmortized)
	newLayout, err := alloc.ArrayLayout[T](newCap)
	if err != nil {
		alloc.CapacityOverflow("buffer of %d values of %s: %v", newCap, elemLayout[T](), err)
	}

	return v.growInPlace(newLayout)
}

func (v *RawVec[T]) growInPlace(newLayout alloc.Layout) bool {
	layout, ok := v.currentLayout()
	if !ok {
		return false
	}

	usable, err := alloc.GrowInPlace(v.allocator, v.ptr, layout, newLayout.Size())
	if err != nil {
		return false
	}

	v.cap = capacityFor[T](usable)
	return true
}

func (v *RawVec[T]) doubledLayout() (int, alloc.Layout) {
	elem := elemLayout[T]()
	if elem.Size() == 0 {
		alloc.CapacityOverflow("cannot double a buffer of zero-sized values")
	}

	if v.cap == 0 {
		newCap := 4
		if elem.Size() > math.MaxInt/8 {
			newCap = 1
		}
		return newCap, alloc.MustFromSizeAlign(newCap*elem.Size(), elem.Align())
	}

	newCap, err := memutils.CheckedMul(v.cap, 2)
	if err != nil {
		alloc.CapacityOverflow("doubling capacity %d: %v", v.cap, err)
	}

	newLayout, err := alloc.ArrayLayout[T](newCap)
	if err != nil {
		alloc.CapacityOverflow("doubling capacity %d: %v", v.cap, err)
	}

	return newCap, newLayout
}

// Double grows the buffer to twice its capacity, or to a small starting capacity if it is empty. It
// is meant for callers that grow one value at a time.
func (v *RawVec[T]) Double() {
	v.mustBeLive()

	newCap, newLayout := v.doubledLayout()
	if err := v.growTo(newCap); err != nil {
		alloc.HandleAllocError(newLayout)
	}
}

// DoubleInPlace attempts to double the capacity without moving the buffer. It returns false if that
// was not possible, in which case nothing changed.
func (v *RawVec[T]) DoubleInPlace() bool {
	v.mustBeLive()

	_, newLayout := v.doubledLayout()
	return v.growInPlace(newLayout)
}

// ShrinkToFit reduces the capacity to exactly amount values, preserving the first amount values.
// Shrinking to zero releases the buffer. An amount of at least Cap does nothing.
func (v *RawVec[T]) ShrinkToFit(amount int) {
	v.mustBeLive()

	if err := v.shrinkToFit(amount); err != nil {
		layout, _ := alloc.ArrayLayout[T](amount)
		alloc.HandleAllocError(layout)
	}
}

// TryShrinkToFit is the fallible form of ShrinkToFit
func (v *RawVec[T]) TryShrinkToFit(amount int) error {
	v.mustBeLive()
	return v.shrinkToFit(amount)
}

func (v *RawVec[T]) shrinkToFit(amount int) error {
	if amount < 0 {
		panic(errors.AssertionFailedf("tried to shrink a buffer to a negative capacity %d", amount))
	}

	layout, ok := v.currentLayout()
	if !ok || amount >= v.cap {
		return nil
	}

	if amount == 0 {
		v.allocator.Deallocate(v.ptr, layout)
		v.ptr = elemLayout[T]().Dangling()
		v.cap = 0
		return nil
	}

	newSize := amount * elemLayout[T]().Size()
	ptr, _, err := alloc.Reallocate(v.allocator, v.ptr, layout, newSize)
	if err != nil {
		return alloc.CollectionError(err)
	}

	v.ptr = ptr
	v.cap = amount
	return nil
}
