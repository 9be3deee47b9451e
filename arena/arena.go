package arena

import (
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/arsenal/allocapi/alloc"
	"github.com/vkngwrapper/arsenal/allocapi/internal/utils"
	"github.com/vkngwrapper/arsenal/allocapi/memutils"
	"golang.org/x/exp/slog"
)

// CreateOptions contains optional settings when creating an Arena
type CreateOptions struct {
	// Flags indicates specific allocator behaviors to activate or deactivate
	Flags alloc.CreateFlags
}

type block struct {
	offset     int
	end        int
	prevCursor int
	freed      bool
}

// Arena is a stack allocator over a single byte region. Blocks are carved from the region in order,
// and space is only reclaimed when the most recently allocated live block is released: freeing it
// rewinds the cursor past it and past any blocks under it that were already freed. The most recent
// block can also grow and shrink in place.
//
// Arena is safe for concurrent use unless it was created with alloc.CreateExternallySynchronized.
type Arena struct {
	logger *slog.Logger
	mutex  utils.OptionalMutex

	region []byte
	base   unsafe.Pointer

	cursor int
	peak   int
	blocks []block
}

var _ alloc.Allocator = &Arena{}
var _ alloc.InPlaceResizer = &Arena{}
var _ memutils.Validatable = &Arena{}

// New creates an Arena that hands out memory from region. The region must not be used by anything
// else while the Arena or any block allocated from it is alive.
//
// logger - Where to send call traces, may be nil
//
// options - Optional parameters: it is valid to leave all the fields blank
func New(logger *slog.Logger, region []byte, options CreateOptions) *Arena {
	arena := &Arena{
		logger: utils.LoggerOrDiscard(logger),
		region: region,
	}
	arena.mutex.UseMutex = options.Flags&alloc.CreateExternallySynchronized == 0

	if len(region) > 0 {
		arena.base = unsafe.Pointer(unsafe.SliceData(region))
	}

	return arena
}

// NewOwned creates an Arena over a freshly-allocated region of size bytes
func NewOwned(logger *slog.Logger, size int, options CreateOptions) *Arena {
	return New(logger, make([]byte, size), options)
}

func (a *Arena) Allocate(layout alloc.Layout) (unsafe.Pointer, int, error) {
	a.logger.Debug("Arena::Allocate", slog.Int("Size", layout.Size()), slog.Uint64("Align", uint64(layout.Align())))

	if layout.Size() == 0 {
		return layout.Dangling(), 0, nil
	}

	a.mutex.Lock()
	defer a.mutex.Unlock()

	if a.base == nil {
		return nil, 0, errors.Wrapf(alloc.ErrExhausted, "arena has no region for %s", layout)
	}

	cursorPtr := unsafe.Add(a.base, a.cursor)
	offset := a.cursor + int(uintptr(memutils.AlignPointer(cursorPtr, layout.Align()))-uintptr(cursorPtr))
	if offset > len(a.region) || layout.Size() > len(a.region)-offset {
		a.logger.Debug("    Arena::Allocate FAILED", slog.Int("Remaining", len(a.region)-a.cursor))
		return nil, 0, errors.Wrapf(alloc.ErrExhausted, "arena has %d of %d bytes remaining, cannot fit %s",
			len(a.region)-a.cursor, len(a.region), layout)
	}

	end := offset + layout.Size()
	a.blocks = append(a.blocks, block{
		offset:     offset,
		end:        end,
		prevCursor: a.cursor,
	})
	a.setCursor(end)

	memutils.DebugValidate(a)
	return unsafe.Add(a.base, offset), layout.Size(), nil
}

func (a *Arena) Deallocate(ptr unsafe.Pointer, layout alloc.Layout) {
	a.logger.Debug("Arena::Deallocate", slog.Int("Size", layout.Size()))

	if layout.Size() == 0 {
		return
	}

	a.mutex.Lock()
	defer a.mutex.Unlock()

	index := a.findBlock(ptr)
	if index < 0 {
		panic(errors.AssertionFailedf("attempted to free %s at %p, which was not allocated from this arena", layout, ptr))
	}

	a.blocks[index].freed = true

	// Rewind through every freed block at the top of the stack
	for len(a.blocks) > 0 && a.blocks[len(a.blocks)-1].freed {
		top := a.blocks[len(a.blocks)-1]
		a.blocks = a.blocks[:len(a.blocks)-1]
		a.cursor = top.prevCursor
	}

	memutils.DebugValidate(a)
}

func (a *Arena) GrowInPlace(ptr unsafe.Pointer, layout alloc.Layout, newSize int) (int, error) {
	a.logger.Debug("Arena::GrowInPlace", slog.Int("Size", layout.Size()), slog.Int("NewSize", newSize))

	if layout.Size() == 0 {
		return 0, alloc.ErrCannotReallocInPlace
	}

	a.mutex.Lock()
	defer a.mutex.Unlock()

	index := a.findBlock(ptr)
	if index < 0 {
		return 0, alloc.ErrCannotReallocInPlace
	}

	current := &a.blocks[index]
	if current.offset+newSize <= current.end {
		return current.end - current.offset, nil
	}

	if index != len(a.blocks)-1 || newSize > len(a.region)-current.offset {
		return 0, alloc.ErrCannotReallocInPlace
	}

	current.end = current.offset + newSize
	a.setCursor(current.end)

	memutils.DebugValidate(a)
	return newSize, nil
}

func (a *Arena) ShrinkInPlace(ptr unsafe.Pointer, layout alloc.Layout, newSize int) (int, error) {
	a.logger.Debug("Arena::ShrinkInPlace", slog.Int("Size", layout.Size()), slog.Int("NewSize", newSize))

	if layout.Size() == 0 {
		return newSize, nil
	}

	a.mutex.Lock()
	defer a.mutex.Unlock()

	index := a.findBlock(ptr)
	if index < 0 {
		return 0, alloc.ErrCannotReallocInPlace
	}

	current := &a.blocks[index]
	if index != len(a.blocks)-1 {
		// Space under the top of the stack can't be handed back, the block keeps its full extent
		return current.end - current.offset, nil
	}

	current.end = current.offset + newSize
	a.cursor = current.end

	memutils.DebugValidate(a)
	return newSize, nil
}

// Reset releases every block at once. Pointers previously handed out must not be used afterward.
func (a *Arena) Reset() {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	a.logger.Debug("Arena::Reset", slog.Int("LiveBlocks", len(a.blocks)))
	a.blocks = a.blocks[:0]
	a.cursor = 0
}

// Used returns the number of bytes between the start of the region and the cursor
func (a *Arena) Used() int {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	return a.cursor
}

// Remaining returns the number of bytes after the cursor
func (a *Arena) Remaining() int {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	return len(a.region) - a.cursor
}

// Peak returns the largest value Used has had since the Arena was created
func (a *Arena) Peak() int {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	return a.peak
}

// Capacity returns the size of the region
func (a *Arena) Capacity() int {
	return len(a.region)
}

// Validate checks the Arena's internal bookkeeping and returns an error describing the first
// inconsistency found
func (a *Arena) Validate() error {
	previousEnd := 0
	for i, b := range a.blocks {
		if b.offset < previousEnd || b.end < b.offset {
			return errors.Newf("block %d spans [%d, %d) which overlaps the previous block ending at %d", i, b.offset, b.end, previousEnd)
		}
		if b.prevCursor > b.offset {
			return errors.Newf("block %d starts at %d before the cursor it was allocated at, %d", i, b.offset, b.prevCursor)
		}
		previousEnd = b.end
	}

	if a.cursor != previousEnd {
		return errors.Newf("cursor is at %d but the top block ends at %d", a.cursor, previousEnd)
	}

	if a.cursor > len(a.region) {
		return errors.Newf("cursor is at %d past the end of the %d byte region", a.cursor, len(a.region))
	}

	return nil
}

func (a *Arena) setCursor(cursor int) {
	a.cursor = cursor
	if cursor > a.peak {
		a.peak = cursor
	}
}

func (a *Arena) findBlock(ptr unsafe.Pointer) int {
	if a.base == nil {
		return -1
	}

	offset := int(uintptr(ptr) - uintptr(a.base))
	if uintptr(ptr) < uintptr(a.base) || offset >= len(a.region) {
		return -1
	}

	// Blocks are usually released in the reverse order they were allocated
	for i := len(a.blocks) - 1; i >= 0; i-- {
		if a.blocks[i].offset == offset && !a.blocks[i].freed {
			return i
		}
		if a.blocks[i].offset < offset {
			break
		}
	}

	return -1
}
