package alloc

import (
	"runtime"
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/arsenal/allocapi/memutils"
	"golang.org/x/exp/slices"
)

// Global allocates from the Go heap. Blocks are byte slices over-allocated so they can be aligned and
// are kept alive by the returned pointer, so Deallocate only drops the reference. The heap's size
// classes show up as excess usable size. Memory is always zeroed.
//
// Global is stateless and safe for concurrent use.
type Global struct{}

// Default is the allocator used by constructors that don't take one
var Default Allocator = Global{}

var _ Allocator = Global{}
var _ ZeroAllocator = Global{}

func (Global) Allocate(layout Layout) (ptr unsafe.Pointer, usable int, err error) {
	if layout.Size() == 0 {
		return layout.Dangling(), 0, nil
	}

	defer func() {
		if recovered := recover(); recovered != nil {
			runtimeErr, isRuntimeErr := recovered.(runtime.Error)
			if !isRuntimeErr {
				panic(recovered)
			}

			ptr, usable = nil, 0
			err = errors.WithSecondaryError(errors.Wrapf(ErrAlloc, "go heap: %s", layout), runtimeErr)
		}
	}()

	// FromSizeAlign guarantees this does not overflow
	buf := slices.Grow[[]byte](nil, layout.Size()+int(layout.Align())-1)
	buf = buf[:cap(buf)]

	base := unsafe.Pointer(unsafe.SliceData(buf))
	ptr = memutils.AlignPointer(base, layout.Align())
	usable = len(buf) - int(uintptr(ptr)-uintptr(base))
	return ptr, usable, nil
}

func (g Global) AllocateZeroed(layout Layout) (unsafe.Pointer, int, error) {
	return g.Allocate(layout)
}

func (Global) Deallocate(ptr unsafe.Pointer, layout Layout) {}
