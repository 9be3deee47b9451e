//go:build unix

package mmap

import (
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/dolthub/swiss"
	"github.com/vkngwrapper/arsenal/allocapi/alloc"
	"github.com/vkngwrapper/arsenal/allocapi/internal/utils"
	"github.com/vkngwrapper/arsenal/allocapi/memutils"
	"golang.org/x/exp/slog"
	"golang.org/x/sys/unix"
)

// CreateOptions contains optional settings when creating an Allocator
type CreateOptions struct {
	// Flags indicates specific allocator behaviors to activate or deactivate
	Flags alloc.CreateFlags
}

// Allocator hands out private anonymous mappings. Every block is its own mapping, rounded up to
// the page size, and the rounding is reported as usable size. Alignments above the page size are
// not supported. Fresh pages are always zero.
//
// Allocator is safe for concurrent use unless it was created with alloc.CreateExternallySynchronized.
type Allocator struct {
	logger   *slog.Logger
	mutex    utils.OptionalMutex
	pageSize int

	mappings    *swiss.Map[uintptr, []byte]
	mappedBytes int
}

var _ alloc.Allocator = &Allocator{}
var _ alloc.ZeroAllocator = &Allocator{}
var _ alloc.Reallocator = &Allocator{}
var _ alloc.ZeroReallocator = &Allocator{}
var _ alloc.InPlaceResizer = &Allocator{}
var _ alloc.UsableSizer = &Allocator{}

// New creates a page allocator
//
// logger - Where to send call traces, may be nil
//
// options - Optional parameters: it is valid to leave all the fields blank
func New(logger *slog.Logger, options CreateOptions) *Allocator {
	allocator := &Allocator{
		logger:   utils.LoggerOrDiscard(logger),
		pageSize: unix.Getpagesize(),
		mappings: swiss.NewMap[uintptr, []byte](16),
	}
	allocator.mutex.UseMutex = options.Flags&alloc.CreateExternallySynchronized == 0

	return allocator
}

// PageSize returns the granularity that every block is rounded up to
func (a *Allocator) PageSize() int {
	return a.pageSize
}

// MappedBytes returns the number of bytes currently mapped by this allocator
func (a *Allocator) MappedBytes() int {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	return a.mappedBytes
}

// Mappings returns the number of live mappings
func (a *Allocator) Mappings() int {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	return a.mappings.Count()
}

func (a *Allocator) UsableSize(layout alloc.Layout) (int, int) {
	size, err := a.pageRound(layout.Size())
	if err != nil {
		return layout.Size(), layout.Size()
	}
	return size, size
}

func (a *Allocator) Allocate(layout alloc.Layout) (unsafe.Pointer, int, error) {
	a.logger.Debug("Mmap::Allocate", slog.Int("Size", layout.Size()), slog.Uint64("Align", uint64(layout.Align())))

	if layout.Size() == 0 {
		return layout.Dangling(), 0, nil
	}

	if layout.Align() > uint(a.pageSize) {
		return nil, 0, errors.Wrapf(alloc.ErrUnsupported, "alignment %d is larger than the page size %d", layout.Align(), a.pageSize)
	}

	length, err := a.pageRound(layout.Size())
	if err != nil {
		return nil, 0, err
	}

	data, err := unix.Mmap(-1, 0, length, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		a.logger.Debug("    Mmap::Allocate FAILED", slog.Any("error", err))
		return nil, 0, errors.WithSecondaryError(errors.Wrapf(alloc.ErrAlloc, "mmap of %d bytes", length), err)
	}

	a.mutex.Lock()
	defer a.mutex.Unlock()

	ptr := unsafe.Pointer(unsafe.SliceData(data))
	a.mappings.Put(uintptr(ptr), data)
	a.mappedBytes += len(data)

	return ptr, len(data), nil
}

func (a *Allocator) AllocateZeroed(layout alloc.Layout) (unsafe.Pointer, int, error) {
	return a.Allocate(layout)
}

func (a *Allocator) Deallocate(ptr unsafe.Pointer, layout alloc.Layout) {
	a.logger.Debug("Mmap::Deallocate", slog.Int("Size", layout.Size()))

	if layout.Size() == 0 {
		return
	}

	a.mutex.Lock()
	defer a.mutex.Unlock()

	data := a.lookup(ptr, layout)
	a.mappings.Delete(uintptr(ptr))
	a.mappedBytes -= len(data)

	err := unix.Munmap(data)
	if err != nil {
		a.logger.Error("failed to unmap memory", slog.Int("Size", len(data)), slog.Any("error", err))
	}
}

func (a *Allocator) GrowInPlace(ptr unsafe.Pointer, layout alloc.Layout, newSize int) (int, error) {
	a.logger.Debug("Mmap::GrowInPlace", slog.Int("Size", layout.Size()), slog.Int("NewSize", newSize))

	if layout.Size() == 0 {
		return 0, alloc.ErrCannotReallocInPlace
	}

	a.mutex.Lock()
	defer a.mutex.Unlock()

	data := a.lookup(ptr, layout)
	if newSize <= len(data) {
		return len(data), nil
	}

	newLength, err := a.pageRound(newSize)
	if err != nil {
		return 0, errors.WithSecondaryError(alloc.ErrCannotReallocInPlace, err)
	}

	remapped, err := remap(data, newLength, false)
	if err != nil {
		return 0, errors.WithSecondaryError(alloc.ErrCannotReallocInPlace, err)
	}

	a.replace(data, remapped)
	return len(remapped), nil
}

func (a *Allocator) ShrinkInPlace(ptr unsafe.Pointer, layout alloc.Layout, newSize int) (int, error) {
	a.logger.Debug("Mmap::ShrinkInPlace", slog.Int("Size", layout.Size()), slog.Int("NewSize", newSize))

	if layout.Size() == 0 {
		return newSize, nil
	}

	a.mutex.Lock()
	defer a.mutex.Unlock()

	data := a.lookup(ptr, layout)
	newLength := memutils.AlignUp(newSize, uint(a.pageSize))
	if newLength == 0 || newLength >= len(data) {
		return len(data), nil
	}

	remapped, err := remap(data, newLength, false)
	if err != nil {
		// The pages stay mapped, which is still a valid shrink
		return len(data), nil
	}

	a.replace(data, remapped)
	return len(remapped), nil
}

func (a *Allocator) Reallocate(ptr unsafe.Pointer, layout alloc.Layout, newSize int) (unsafe.Pointer, int, error) {
	return a.reallocate(ptr, layout, newSize, false)
}

func (a *Allocator) ReallocateZeroed(ptr unsafe.Pointer, layout alloc.Layout, newSize int) (unsafe.Pointer, int, error) {
	return a.reallocate(ptr, layout, newSize, true)
}

func (a *Allocator) reallocate(ptr unsafe.Pointer, layout alloc.Layout, newSize int, zeroed bool) (unsafe.Pointer, int, error) {
	a.logger.Debug("Mmap::Reallocate", slog.Int("Size", layout.Size()), slog.Int("NewSize", newSize))

	if layout.Size() == 0 || newSize == 0 || !remapSupported {
		if zeroed {
			return alloc.DefaultReallocateZeroed(a, ptr, layout, newSize)
		}
		return alloc.DefaultReallocate(a, ptr, layout, newSize)
	}

	if newSize < 0 {
		return nil, 0, errors.Wrapf(alloc.ErrLayout, "size %d is negative", newSize)
	}

	a.mutex.Lock()
	defer a.mutex.Unlock()

	data := a.lookup(ptr, layout)
	newLength, err := a.pageRound(newSize)
	if err != nil {
		return nil, 0, err
	}

	if newLength == len(data) {
		a.clearTail(data, layout.Size(), len(data), newSize, zeroed)
		return ptr, len(data), nil
	}

	remapped, err := remap(data, newLength, true)
	if err != nil {
		return nil, 0, errors.WithSecondaryError(errors.Wrapf(alloc.ErrAlloc, "mremap of %d bytes to %d bytes", len(data), newLength), err)
	}

	a.replace(data, remapped)
	a.clearTail(remapped, layout.Size(), len(data), newSize, zeroed)
	return unsafe.Pointer(unsafe.SliceData(remapped)), len(remapped), nil
}

// clearTail zeroes bytes past the caller's old size that were already mapped before a resize.
// Pages added by the resize come from the kernel already zeroed.
func (a *Allocator) clearTail(data []byte, oldSize, oldLength, newSize int, zeroed bool) {
	if !zeroed || newSize <= oldSize {
		return
	}

	end := oldLength
	if end > newSize {
		end = newSize
	}
	clear(data[oldSize:end])
}

func (a *Allocator) pageRound(size int) (int, error) {
	padded, err := memutils.CheckedAdd(size, a.pageSize-1)
	if err != nil {
		return 0, errors.WithSecondaryError(errors.Wrapf(alloc.ErrAlloc, "%d bytes cannot be rounded to the page size", size), err)
	}

	return memutils.AlignDown(padded, uint(a.pageSize)), nil
}

func (a *Allocator) lookup(ptr unsafe.Pointer, layout alloc.Layout) []byte {
	data, ok := a.mappings.Get(uintptr(ptr))
	if !ok {
		panic(errors.AssertionFailedf("%p with %s was not allocated by this allocator", ptr, layout))
	}

	return data
}

func (a *Allocator) replace(oldData, newData []byte) {
	a.mappings.Delete(uintptr(unsafe.Pointer(unsafe.SliceData(oldData))))
	a.mappings.Put(uintptr(unsafe.Pointer(unsafe.SliceData(newData))), newData)
	a.mappedBytes += len(newData) - len(oldData)
}
