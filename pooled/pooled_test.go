package pooled

import (
	"math"
	"sync"
	"testing"
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/arsenal/allocapi/alloc"
	"github.com/vkngwrapper/arsenal/allocapi/memutils"
)

func newTestAllocator(t *testing.T) *Allocator {
	allocator, err := New(nil, 16, 4096, 2, CreateOptions{})
	require.NoError(t, err)
	return allocator
}

var invalidOptionsTestCases = map[string]struct {
	MinSize int
	MaxSize int
	Factor  float64
}{
	"Zero Minimum": {
		MinSize: 0,
		MaxSize: 64,
		Factor:  2,
	},
	"Maximum Below Minimum": {
		MinSize: 64,
		MaxSize: 32,
		Factor:  2,
	},
	"Factor Of One": {
		MinSize: 16,
		MaxSize: 64,
		Factor:  1,
	},
}

func TestNewInvalidOptions(t *testing.T) {
	for name, testCase := range invalidOptionsTestCases {
		t.Run(name, func(t *testing.T) {
			_, err := New(nil, testCase.MinSize, testCase.MaxSize, testCase.Factor, CreateOptions{})
			require.Error(t, err)
		})
	}
}

func TestPooledAllocate(t *testing.T) {
	allocator := newTestAllocator(t)

	layout := alloc.MustFromSizeAlign(20, 8)
	ptr, usable, err := allocator.Allocate(layout)
	require.NoError(t, err)
	require.Zero(t, uintptr(ptr)%8)

	// 27 bytes with padding lands in the 32 byte bucket
	require.GreaterOrEqual(t, usable, 20)
	require.LessOrEqual(t, usable, 32)
	require.Equal(t, 1, allocator.LiveBlocks())

	allocator.Deallocate(ptr, layout)
	require.Zero(t, allocator.LiveBlocks())
}

func TestPooledAllocateZeroed(t *testing.T) {
	allocator := newTestAllocator(t)
	layout := alloc.MustFromSizeAlign(64, 1)

	for i := 0; i < 8; i++ {
		ptr, _, err := alloc.AllocateZeroed(allocator, layout)
		require.NoError(t, err)
		require.Equal(t, make([]byte, 64), memutils.Bytes(ptr, 64))

		// Dirty the block before it goes back to the pool
		bytes := memutils.Bytes(ptr, 64)
		for j := range bytes {
			bytes[j] = 0xff
		}
		allocator.Deallocate(ptr, layout)
	}
}

func TestPooledOversized(t *testing.T) {
	allocator := newTestAllocator(t)
	layout := alloc.MustFromSizeAlign(10000, 16)

	ptr, usable, err := allocator.Allocate(layout)
	require.NoError(t, err)
	require.GreaterOrEqual(t, usable, 10000)
	require.Zero(t, uintptr(ptr)%16)
	allocator.Deallocate(ptr, layout)

	_, _, err = allocator.Allocate(alloc.MustFromSizeAlign(math.MaxInt/2, 1))
	require.True(t, errors.Is(err, alloc.ErrAlloc))
}

func TestPooledZeroSize(t *testing.T) {
	allocator := newTestAllocator(t)
	layout := alloc.MustFromSizeAlign(0, 4)

	ptr, usable, err := allocator.Allocate(layout)
	require.NoError(t, err)
	require.Equal(t, layout.Dangling(), ptr)
	require.Zero(t, usable)
	allocator.Deallocate(ptr, layout)
}

func TestPooledInPlace(t *testing.T) {
	allocator := newTestAllocator(t)
	layout := alloc.MustFromSizeAlign(5, 1)

	ptr, usable, err := allocator.Allocate(layout)
	require.NoError(t, err)

	grown, err := alloc.GrowInPlace(allocator, ptr, layout, usable)
	require.NoError(t, err)
	require.Equal(t, usable, grown)

	_, err = alloc.GrowInPlace(allocator, ptr, layout, usable+1)
	require.True(t, errors.Is(err, alloc.ErrCannotReallocInPlace))

	shrunk, err := alloc.ShrinkInPlace(allocator, ptr, alloc.MustFromSizeAlign(usable, 1), 1)
	require.NoError(t, err)
	require.Equal(t, usable, shrunk)

	allocator.Deallocate(ptr, alloc.MustFromSizeAlign(1, 1))
}

func TestPooledReallocate(t *testing.T) {
	allocator := newTestAllocator(t)
	layout := alloc.MustFromSizeAlign(16, 8)

	ptr, _, err := allocator.Allocate(layout)
	require.NoError(t, err)
	copy(memutils.Bytes(ptr, 16), []byte("sixteen bytes!!!"))

	grown, usable, err := alloc.Reallocate(allocator, ptr, layout, 1000)
	require.NoError(t, err)
	require.GreaterOrEqual(t, usable, 1000)
	require.Equal(t, []byte("sixteen bytes!!!"), memutils.Bytes(grown, 16))
	require.Equal(t, 1, allocator.LiveBlocks())

	allocator.Deallocate(grown, alloc.MustFromSizeAlign(1000, 8))
}

func TestPooledUnknownPointerPanics(t *testing.T) {
	allocator := newTestAllocator(t)
	other := make([]byte, 8)

	require.Panics(t, func() {
		allocator.Deallocate(unsafe.Pointer(&other[0]), alloc.MustFromSizeAlign(8, 1))
	})

	// The panic must not leave the allocator locked
	_, _, err := allocator.Allocate(alloc.MustFromSizeAlign(8, 1))
	require.NoError(t, err)
}

func TestPooledConcurrent(t *testing.T) {
	allocator := newTestAllocator(t)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 1; j <= 200; j++ {
				layout := alloc.MustFromSizeAlign(j, 4)
				ptr, _, err := allocator.Allocate(layout)
				if err != nil {
					t.Error(err)
					return
				}
				memutils.Bytes(ptr, j)[j-1] = byte(j)
				allocator.Deallocate(ptr, layout)
			}
		}()
	}
	wg.Wait()

	require.Zero(t, allocator.LiveBlocks())
}
