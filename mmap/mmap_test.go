//go:build unix

package mmap

import (
	"sync"
	"testing"
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/arsenal/allocapi/alloc"
	"github.com/vkngwrapper/arsenal/allocapi/memutils"
)

func TestMmapAllocate(t *testing.T) {
	allocator := New(nil, CreateOptions{})
	pageSize := allocator.PageSize()

	layout := alloc.MustFromSizeAlign(100, 64)
	ptr, usable, err := allocator.Allocate(layout)
	require.NoError(t, err)
	require.Equal(t, pageSize, usable)
	require.Zero(t, uintptr(ptr)%uintptr(pageSize))
	require.Equal(t, make([]byte, usable), memutils.Bytes(ptr, usable))

	minSize, maxSize := alloc.UsableSize(allocator, layout)
	require.Equal(t, pageSize, minSize)
	require.Equal(t, pageSize, maxSize)

	require.Equal(t, 1, allocator.Mappings())
	require.Equal(t, pageSize, allocator.MappedBytes())

	allocator.Deallocate(ptr, layout)
	require.Zero(t, allocator.Mappings())
	require.Zero(t, allocator.MappedBytes())
}

func TestMmapZeroSize(t *testing.T) {
	allocator := New(nil, CreateOptions{Flags: alloc.CreateExternallySynchronized})
	layout := alloc.MustFromSizeAlign(0, 8)

	ptr, usable, err := allocator.Allocate(layout)
	require.NoError(t, err)
	require.Equal(t, layout.Dangling(), ptr)
	require.Zero(t, usable)
	allocator.Deallocate(ptr, layout)
	require.Zero(t, allocator.Mappings())
}

func TestMmapUnsupportedAlignment(t *testing.T) {
	allocator := New(nil, CreateOptions{})

	_, _, err := allocator.Allocate(alloc.MustFromSizeAlign(16, uint(allocator.PageSize())*2))
	require.True(t, errors.Is(err, alloc.ErrUnsupported))
	require.True(t, errors.Is(err, alloc.ErrAlloc))
}

func TestMmapDeallocateUnknownPanics(t *testing.T) {
	allocator := New(nil, CreateOptions{})
	other := make([]byte, 16)

	require.Panics(t, func() {
		allocator.Deallocate(unsafe.Pointer(&other[0]), alloc.MustFromSizeAlign(16, 1))
	})
}

func TestMmapGrowWithinPage(t *testing.T) {
	allocator := New(nil, CreateOptions{})
	layout := alloc.MustFromSizeAlign(16, 8)

	ptr, _, err := allocator.Allocate(layout)
	require.NoError(t, err)

	usable, err := alloc.GrowInPlace(allocator, ptr, layout, 32)
	require.NoError(t, err)
	require.Equal(t, allocator.PageSize(), usable)

	// Shrinking inside the last page releases nothing
	usable, err = alloc.ShrinkInPlace(allocator, ptr, alloc.MustFromSizeAlign(32, 8), 8)
	require.NoError(t, err)
	require.Equal(t, allocator.PageSize(), usable)

	allocator.Deallocate(ptr, alloc.MustFromSizeAlign(8, 8))
}

func TestMmapGrowAcrossPages(t *testing.T) {
	allocator := New(nil, CreateOptions{})
	pageSize := allocator.PageSize()
	layout := alloc.MustFromSizeAlign(pageSize, 8)

	ptr, _, err := allocator.Allocate(layout)
	require.NoError(t, err)
	memutils.Bytes(ptr, pageSize)[pageSize-1] = 42

	usable, err := alloc.GrowInPlace(allocator, ptr, layout, 4*pageSize)
	if err != nil {
		// The neighbouring address space may be taken
		require.True(t, errors.Is(err, alloc.ErrCannotReallocInPlace))
		allocator.Deallocate(ptr, layout)
		return
	}

	require.True(t, remapSupported)
	require.Equal(t, 4*pageSize, usable)
	require.Equal(t, byte(42), memutils.Bytes(ptr, pageSize)[pageSize-1])
	require.Equal(t, 4*pageSize, allocator.MappedBytes())

	usable, err = alloc.ShrinkInPlace(allocator, ptr, alloc.MustFromSizeAlign(4*pageSize, 8), pageSize+1)
	require.NoError(t, err)
	require.GreaterOrEqual(t, usable, pageSize+1)

	allocator.Deallocate(ptr, alloc.MustFromSizeAlign(pageSize+1, 8))
	require.Zero(t, allocator.MappedBytes())
}

func TestMmapReallocate(t *testing.T) {
	allocator := New(nil, CreateOptions{})
	pageSize := allocator.PageSize()
	layout := alloc.MustFromSizeAlign(pageSize, 8)

	ptr, _, err := allocator.Allocate(layout)
	require.NoError(t, err)
	bytes := memutils.Bytes(ptr, pageSize)
	for i := range bytes {
		bytes[i] = byte(i)
	}

	// Occupy the page after the block so the remap has to move it
	blocker, _, err := allocator.Allocate(layout)
	require.NoError(t, err)

	grown, usable, err := alloc.Reallocate(allocator, ptr, layout, 3*pageSize)
	require.NoError(t, err)
	require.Equal(t, 3*pageSize, usable)
	for i, value := range memutils.Bytes(grown, pageSize) {
		require.Equal(t, byte(i), value)
	}

	shrunk, _, err := alloc.Reallocate(allocator, grown, alloc.MustFromSizeAlign(3*pageSize, 8), 16)
	require.NoError(t, err)
	for i, value := range memutils.Bytes(shrunk, 16) {
		require.Equal(t, byte(i), value)
	}

	allocator.Deallocate(shrunk, alloc.MustFromSizeAlign(16, 8))
	allocator.Deallocate(blocker, layout)
	require.Zero(t, allocator.Mappings())
	require.Zero(t, allocator.MappedBytes())
}

func TestMmapReallocateZeroed(t *testing.T) {
	allocator := New(nil, CreateOptions{})
	pageSize := allocator.PageSize()
	layout := alloc.MustFromSizeAlign(8, 8)

	ptr, usable, err := allocator.Allocate(layout)
	require.NoError(t, err)

	// Dirty the slack past the requested size
	bytes := memutils.Bytes(ptr, usable)
	for i := range bytes {
		bytes[i] = 0xff
	}

	grown, usable, err := alloc.ReallocateZeroed(allocator, ptr, layout, 2*pageSize)
	require.NoError(t, err)
	require.Equal(t, 2*pageSize, usable)

	contents := memutils.Bytes(grown, 2*pageSize)
	require.Equal(t, []byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff}, contents[:8])
	require.Equal(t, make([]byte, 2*pageSize-8), contents[8:])

	allocator.Deallocate(grown, alloc.MustFromSizeAlign(2*pageSize, 8))
}

func TestMmapConcurrent(t *testing.T) {
	allocator := New(nil, CreateOptions{})

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				layout := alloc.MustFromSizeAlign(j+1, 8)
				ptr, _, err := allocator.Allocate(layout)
				if err != nil {
					t.Error(err)
					return
				}
				memutils.Bytes(ptr, j+1)[j] = 1
				allocator.Deallocate(ptr, layout)
			}
		}()
	}
	wg.Wait()

	require.Zero(t, allocator.Mappings())
}
