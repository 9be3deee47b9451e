package tracking

import (
	"fmt"
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/dolthub/swiss"
	"github.com/vkngwrapper/arsenal/allocapi/alloc"
	"github.com/vkngwrapper/arsenal/allocapi/internal/utils"
	"github.com/vkngwrapper/arsenal/allocapi/memutils"
	"go.uber.org/atomic"
	"golang.org/x/exp/slog"
)

type blockInfo struct {
	ptr unsafe.Pointer
	// requested is the size most recently asked for, usable is what the caller was told it may use.
	// Any layout between the two, with the same alignment, fits the block.
	requested int
	usable    int
	align     uint
}

// Allocator wraps another allocator and keeps a record of every live block. It checks that blocks
// handed back to it were allocated here and fit the layout they are released with, enforces an
// optional byte budget, and collects statistics.
//
// Misuse that would be undefined behaviour with a plain allocator, such as a double free, is logged
// and then panics.
//
// When the debug_mem_utils build tag is present, every block is followed by memutils.DebugMargin guard
// bytes that are verified when the block is released or resized, and by CheckCorruption.
//
// Zero-sized blocks never reach the wrapped allocator and are not tracked.
//
// Allocator is safe for concurrent use unless it was created with alloc.CreateExternallySynchronized.
// The wrapped allocator must be safe for concurrent use as well if this one is shared.
type Allocator struct {
	logger *slog.Logger
	mutex  utils.OptionalRWMutex

	inner  alloc.Allocator
	limit  int64
	blocks *swiss.Map[uintptr, blockInfo]

	allocations    atomic.Int64
	deallocations  atomic.Int64
	reallocations  atomic.Int64
	inPlaceResizes atomic.Int64
	failures       atomic.Int64
	liveBlocks     atomic.Int64
	liveBytes      atomic.Int64
	peakBytes      atomic.Int64
}

var _ alloc.Allocator = &Allocator{}
var _ alloc.ZeroAllocator = &Allocator{}
var _ alloc.Reallocator = &Allocator{}
var _ alloc.ZeroReallocator = &Allocator{}
var _ alloc.InPlaceResizer = &Allocator{}

// Inner returns the wrapped allocator
func (a *Allocator) Inner() alloc.Allocator {
	return a.inner
}

func (a *Allocator) innerLayout(size int, align uint) (alloc.Layout, error) {
	return alloc.FromSizeAlign(size+memutils.DebugMargin, align)
}

func (a *Allocator) reserve(layout alloc.Layout, bytes int) error {
	for {
		current := a.liveBytes.Load()
		next := current + int64(bytes)
		if a.limit > 0 && next > a.limit {
			a.failures.Inc()
			return errors.Wrapf(alloc.ErrExhausted, "%s would raise live bytes to %d, over the limit of %d", layout, next, a.limit)
		}

		if a.liveBytes.CompareAndSwap(current, next) {
			a.raisePeak(next)
			return nil
		}
	}
}

func (a *Allocator) release(bytes int) {
	a.liveBytes.Sub(int64(bytes))
}

func (a *Allocator) raisePeak(value int64) {
	for {
		peak := a.peakBytes.Load()
		if value <= peak || a.peakBytes.CompareAndSwap(peak, value) {
			return
		}
	}
}

func (a *Allocator) Allocate(layout alloc.Layout) (unsafe.Pointer, int, error) {
	a.logger.Debug("Tracking::Allocate", slog.Int("Size", layout.Size()), slog.Uint64("Align", uint64(layout.Align())))
	return a.allocate(layout, a.inner.Allocate)
}

func (a *Allocator) AllocateZeroed(layout alloc.Layout) (unsafe.Pointer, int, error) {
	a.logger.Debug("Tracking::AllocateZeroed", slog.Int("Size", layout.Size()), slog.Uint64("Align", uint64(layout.Align())))
	return a.allocate(layout, func(innerLayout alloc.Layout) (unsafe.Pointer, int, error) {
		return alloc.AllocateZeroed(a.inner, innerLayout)
	})
}

func (a *Allocator) allocate(layout alloc.Layout, allocateFunc func(alloc.Layout) (unsafe.Pointer, int, error)) (unsafe.Pointer, int, error) {
	if layout.Size() == 0 {
		return layout.Dangling(), 0, nil
	}

	innerLayout, err := a.innerLayout(layout.Size(), layout.Align())
	if err != nil {
		return nil, 0, err
	}

	err = a.reserve(layout, layout.Size())
	if err != nil {
		return nil, 0, err
	}

	ptr, innerUsable, err := allocateFunc(innerLayout)
	if err != nil {
		a.release(layout.Size())
		a.failures.Inc()
		a.logger.Debug("    Tracking::Allocate FAILED", slog.Any("error", err))
		return nil, 0, err
	}

	usable := innerUsable - memutils.DebugMargin
	memutils.WriteMagicValue(ptr, usable)

	a.mutex.Lock()
	defer a.mutex.Unlock()

	a.blocks.Put(uintptr(ptr), blockInfo{
		ptr:       ptr,
		requested: layout.Size(),
		usable:    usable,
		align:     layout.Align(),
	})
	a.allocations.Inc()
	a.liveBlocks.Inc()

	return ptr, usable, nil
}

func (a *Allocator) Deallocate(ptr unsafe.Pointer, layout alloc.Layout) {
	a.logger.Debug("Tracking::Deallocate", slog.Int("Size", layout.Size()))

	if layout.Size() == 0 {
		return
	}

	a.mutex.Lock()
	info := a.validate("Deallocate", ptr, layout)
	a.blocks.Delete(uintptr(ptr))
	a.mutex.Unlock()

	innerLayout, err := a.innerLayout(layout.Size(), layout.Align())
	if err != nil {
		panic(errors.NewAssertionErrorWithWrappedErrf(err, "block at %p was tracked with an invalid layout", ptr))
	}

	a.inner.Deallocate(ptr, innerLayout)
	a.release(info.requested)
	a.deallocations.Inc()
	a.liveBlocks.Dec()
}

func (a *Allocator) GrowInPlace(ptr unsafe.Pointer, layout alloc.Layout, newSize int) (int, error) {
	a.logger.Debug("Tracking::GrowInPlace", slog.Int("Size", layout.Size()), slog.Int("NewSize", newSize))
	return a.resizeInPlace("GrowInPlace", ptr, layout, newSize, alloc.GrowInPlace)
}

func (a *Allocator) ShrinkInPlace(ptr unsafe.Pointer, layout alloc.Layout, newSize int) (int, error) {
	a.logger.Debug("Tracking::ShrinkInPlace", slog.Int("Size", layout.Size()), slog.Int("NewSize", newSize))
	return a.resizeInPlace("ShrinkInPlace", ptr, layout, newSize, alloc.ShrinkInPlace)
}

type resizeInPlaceFunc func(a alloc.Allocator, ptr unsafe.Pointer, layout alloc.Layout, newSize int) (int, error)

func (a *Allocator) resizeInPlace(operation string, ptr unsafe.Pointer, layout alloc.Layout, newSize int, resize resizeInPlaceFunc) (int, error) {
	if layout.Size() == 0 {
		return 0, alloc.ErrCannotReallocInPlace
	}

	a.mutex.Lock()
	info := a.validate(operation, ptr, layout)
	a.mutex.Unlock()

	innerLayout, err := a.innerLayout(layout.Size(), layout.Align())
	if err != nil {
		return 0, err
	}

	if newSize > info.requested {
		err = a.reserve(layout, newSize-info.requested)
		if err != nil {
			return 0, err
		}
	}

	innerUsable, err := resize(a.inner, ptr, innerLayout, newSize+memutils.DebugMargin)
	if err != nil {
		if newSize > info.requested {
			a.release(newSize - info.requested)
		}
		return 0, err
	}

	if newSize < info.requested {
		a.release(info.requested - newSize)
	}

	usable := innerUsable - memutils.DebugMargin
	memutils.WriteMagicValue(ptr, usable)

	a.mutex.Lock()
	defer a.mutex.Unlock()

	a.blocks.Put(uintptr(ptr), blockInfo{
		ptr:       ptr,
		requested: newSize,
		usable:    usable,
		align:     layout.Align(),
	})
	a.inPlaceResizes.Inc()

	return usable, nil
}

func (a *Allocator) Reallocate(ptr unsafe.Pointer, layout alloc.Layout, newSize int) (unsafe.Pointer, int, error) {
	a.logger.Debug("Tracking::Reallocate", slog.Int("Size", layout.Size()), slog.Int("NewSize", newSize))
	return a.reallocate(ptr, layout, newSize, false)
}

func (a *Allocator) ReallocateZeroed(ptr unsafe.Pointer, layout alloc.Layout, newSize int) (unsafe.Pointer, int, error) {
	a.logger.Debug("Tracking::ReallocateZeroed", slog.Int("Size", layout.Size()), slog.Int("NewSize", newSize))
	return a.reallocate(ptr, layout, newSize, true)
}

func (a *Allocator) reallocate(ptr unsafe.Pointer, layout alloc.Layout, newSize int, zeroed bool) (unsafe.Pointer, int, error) {
	newLayout, err := alloc.FromSizeAlign(newSize, layout.Align())
	if err != nil {
		return nil, 0, err
	}

	switch {
	case layout.Size() == 0 && zeroed:
		return a.AllocateZeroed(newLayout)
	case layout.Size() == 0:
		return a.Allocate(newLayout)
	case newSize == 0:
		a.Deallocate(ptr, layout)
		return newLayout.Dangling(), 0, nil
	}

	innerLayout, err := a.innerLayout(layout.Size(), layout.Align())
	if err != nil {
		return nil, 0, err
	}

	// The entry is removed before the inner allocator can free the old address, since another
	// goroutine may be handed that address as soon as it is freed
	a.mutex.Lock()
	info := a.validate("Reallocate", ptr, layout)
	a.blocks.Delete(uintptr(ptr))
	a.mutex.Unlock()

	if newSize > info.requested {
		err = a.reserve(newLayout, newSize-info.requested)
		if err != nil {
			a.restore(info)
			return nil, 0, err
		}
	}

	var newPtr unsafe.Pointer
	var innerUsable int
	if zeroed {
		newPtr, innerUsable, err = alloc.ReallocateZeroed(a.inner, ptr, innerLayout, newSize+memutils.DebugMargin)
	} else {
		newPtr, innerUsable, err = alloc.Reallocate(a.inner, ptr, innerLayout, newSize+memutils.DebugMargin)
	}
	if err != nil {
		if newSize > info.requested {
			a.release(newSize - info.requested)
		}
		a.restore(info)
		a.failures.Inc()
		return nil, 0, err
	}

	if newSize < info.requested {
		a.release(info.requested - newSize)
	}

	if zeroed && newSize > layout.Size() {
		// The old guard bytes were preserved by the move
		clearEnd := layout.Size() + memutils.DebugMargin
		if clearEnd > newSize {
			clearEnd = newSize
		}
		memutils.Clear(unsafe.Add(newPtr, layout.Size()), clearEnd-layout.Size())
	}

	usable := innerUsable - memutils.DebugMargin
	memutils.WriteMagicValue(newPtr, usable)

	a.mutex.Lock()
	defer a.mutex.Unlock()

	a.blocks.Put(uintptr(newPtr), blockInfo{
		ptr:       newPtr,
		requested: newSize,
		usable:    usable,
		align:     layout.Align(),
	})
	a.reallocations.Inc()

	return newPtr, usable, nil
}

// restore puts back the entry of a block whose move failed
func (a *Allocator) restore(info blockInfo) {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	a.blocks.Put(uintptr(info.ptr), info)
}

// validate looks up the block at ptr and panics if it isn't live or layout doesn't fit it. The mutex
// must be held, and is released before panicking.
func (a *Allocator) validate(operation string, ptr unsafe.Pointer, layout alloc.Layout) blockInfo {
	info, ok := a.blocks.Get(uintptr(ptr))
	if !ok {
		a.mutex.Unlock()
		a.logger.Error("block was not allocated by this allocator or was already released",
			slog.String("Operation", operation),
			slog.String("Address", fmt.Sprintf("%p", ptr)),
			slog.Int("Size", layout.Size()),
		)
		panic(errors.AssertionFailedf("%s: %p was not allocated by this allocator or was already released", operation, ptr))
	}

	if info.align != layout.Align() || layout.Size() < info.requested || layout.Size() > info.usable {
		a.mutex.Unlock()
		a.logger.Error("layout does not fit block",
			slog.String("Operation", operation),
			slog.String("Address", fmt.Sprintf("%p", ptr)),
			slog.Int("Size", layout.Size()),
			slog.Uint64("Align", uint64(layout.Align())),
			slog.Int("RequestedSize", info.requested),
			slog.Int("UsableSize", info.usable),
			slog.Uint64("BlockAlign", uint64(info.align)),
		)
		panic(errors.AssertionFailedf("%s: %s does not fit the block at %p, which needs alignment %d and a size between %d and %d",
			operation, layout, ptr, info.align, info.requested, info.usable))
	}

	if !memutils.ValidateMagicValue(ptr, info.usable) {
		a.mutex.Unlock()
		a.logger.Error("memory corruption detected after block",
			slog.String("Operation", operation),
			slog.String("Address", fmt.Sprintf("%p", ptr)),
			slog.Int("UsableSize", info.usable),
		)
		panic(errors.AssertionFailedf("%s: memory corruption detected after the block at %p", operation, ptr))
	}

	return info
}
