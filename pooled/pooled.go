package pooled

import (
	"runtime"
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/dolthub/swiss"
	"github.com/prometheus/prometheus/util/pool"
	"github.com/vkngwrapper/arsenal/allocapi/alloc"
	"github.com/vkngwrapper/arsenal/allocapi/internal/utils"
	"github.com/vkngwrapper/arsenal/allocapi/memutils"
	"golang.org/x/exp/slog"
)

// CreateOptions contains optional settings when creating an Allocator
type CreateOptions struct {
	// Flags indicates specific allocator behaviors to activate or deactivate
	Flags alloc.CreateFlags
}

// Allocator recycles Go heap buffers through size buckets. Buckets start at minSize bytes and grow by
// factor up to maxSize. A block is carved from the smallest bucket that can hold its size plus
// alignment padding, and the bucket size is reported as usable. Blocks larger than maxSize are
// allocated fresh and dropped on Deallocate.
//
// Recycled memory is not zeroed by Allocate. Use alloc.AllocateZeroed when zeroed memory is needed.
//
// Allocator is safe for concurrent use unless it was created with alloc.CreateExternallySynchronized.
type Allocator struct {
	logger *slog.Logger
	mutex  utils.OptionalMutex

	pool    *pool.Pool
	maxSize int
	live    *swiss.Map[uintptr, []byte]
}

var _ alloc.Allocator = &Allocator{}
var _ alloc.ZeroAllocator = &Allocator{}
var _ alloc.InPlaceResizer = &Allocator{}

// New creates a recycling allocator
//
// logger - Where to send call traces, may be nil
//
// minSize, maxSize - The smallest and largest bucket sizes, in bytes
//
// factor - The ratio between consecutive bucket sizes, must be greater than 1
//
// options - Optional parameters: it is valid to leave all the fields blank
func New(logger *slog.Logger, minSize, maxSize int, factor float64, options CreateOptions) (*Allocator, error) {
	if minSize < 1 {
		return nil, errors.Newf("minimum bucket size must be at least 1, but was %d", minSize)
	}
	if maxSize < minSize {
		return nil, errors.Newf("maximum bucket size %d is smaller than the minimum %d", maxSize, minSize)
	}
	if factor <= 1 {
		return nil, errors.Newf("bucket growth factor must be greater than 1, but was %f", factor)
	}

	allocator := &Allocator{
		logger:  utils.LoggerOrDiscard(logger),
		maxSize: maxSize,
		pool: pool.New(minSize, maxSize, factor, func(size int) interface{} {
			return make([]byte, size)
		}),
		live: swiss.NewMap[uintptr, []byte](16),
	}
	allocator.mutex.UseMutex = options.Flags&alloc.CreateExternallySynchronized == 0

	return allocator, nil
}

// LiveBlocks returns the number of blocks that have been allocated and not yet deallocated
func (a *Allocator) LiveBlocks() int {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	return a.live.Count()
}

func (a *Allocator) Allocate(layout alloc.Layout) (unsafe.Pointer, int, error) {
	a.logger.Debug("Pooled::Allocate", slog.Int("Size", layout.Size()), slog.Uint64("Align", uint64(layout.Align())))

	if layout.Size() == 0 {
		return layout.Dangling(), 0, nil
	}

	buf, err := a.get(layout.Size() + int(layout.Align()) - 1)
	if err != nil {
		return nil, 0, errors.WithSecondaryError(errors.Wrapf(alloc.ErrAlloc, "pooled: %s", layout), err)
	}
	buf = buf[:cap(buf)]

	base := unsafe.Pointer(unsafe.SliceData(buf))
	ptr := memutils.AlignPointer(base, layout.Align())

	a.mutex.Lock()
	defer a.mutex.Unlock()

	a.live.Put(uintptr(ptr), buf)
	return ptr, len(buf) - int(uintptr(ptr)-uintptr(base)), nil
}

func (a *Allocator) get(size int) (buf []byte, err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			runtimeErr, isRuntimeErr := recovered.(runtime.Error)
			if !isRuntimeErr {
				panic(recovered)
			}
			buf, err = nil, runtimeErr
		}
	}()

	return a.pool.Get(size).([]byte), nil
}

func (a *Allocator) AllocateZeroed(layout alloc.Layout) (unsafe.Pointer, int, error) {
	ptr, usable, err := a.Allocate(layout)
	if err != nil {
		return nil, 0, err
	}

	memutils.Clear(ptr, layout.Size())
	return ptr, usable, nil
}

func (a *Allocator) Deallocate(ptr unsafe.Pointer, layout alloc.Layout) {
	a.logger.Debug("Pooled::Deallocate", slog.Int("Size", layout.Size()))

	if layout.Size() == 0 {
		return
	}

	a.mutex.Lock()
	defer a.mutex.Unlock()

	buf := a.lookup(ptr, layout)
	a.live.Delete(uintptr(ptr))

	if cap(buf) <= a.maxSize {
		a.pool.Put(buf)
	}
}

func (a *Allocator) GrowInPlace(ptr unsafe.Pointer, layout alloc.Layout, newSize int) (int, error) {
	if layout.Size() == 0 {
		return 0, alloc.ErrCannotReallocInPlace
	}

	a.mutex.Lock()
	defer a.mutex.Unlock()

	usable := a.usable(ptr, a.lookup(ptr, layout))
	if newSize > usable {
		return 0, alloc.ErrCannotReallocInPlace
	}

	return usable, nil
}

func (a *Allocator) ShrinkInPlace(ptr unsafe.Pointer, layout alloc.Layout, newSize int) (int, error) {
	if layout.Size() == 0 {
		return newSize, nil
	}

	a.mutex.Lock()
	defer a.mutex.Unlock()

	// Buckets can't be split, so the block keeps its full bucket
	return a.usable(ptr, a.lookup(ptr, layout)), nil
}

func (a *Allocator) usable(ptr unsafe.Pointer, buf []byte) int {
	return cap(buf) - int(uintptr(ptr)-uintptr(unsafe.Pointer(unsafe.SliceData(buf))))
}

func (a *Allocator) lookup(ptr unsafe.Pointer, layout alloc.Layout) []byte {
	buf, ok := a.live.Get(uintptr(ptr))
	if !ok {
		panic(errors.AssertionFailedf("%p with %s was not allocated by this allocator", ptr, layout))
	}

	return buf
}
