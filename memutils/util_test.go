package memutils_test

import (
	"math"
	"testing"
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/arsenal/allocapi/memutils"
)

func TestCheckPow2(t *testing.T) {
	for _, value := range []uint{0, 1, 2, 4, 64, 1 << 40} {
		require.NoError(t, memutils.CheckPow2(value, "value"))
	}

	for _, value := range []uint{3, 6, 12, 1000} {
		err := memutils.CheckPow2(value, "value")
		require.Error(t, err)
		require.True(t, errors.Is(err, memutils.PowerOfTwoError))
	}
}

func TestAlignUpDown(t *testing.T) {
	require.Equal(t, 0, memutils.AlignUp(0, 8))
	require.Equal(t, 8, memutils.AlignUp(1, 8))
	require.Equal(t, 8, memutils.AlignUp(8, 8))
	require.Equal(t, 16, memutils.AlignUp(9, 8))
	require.Equal(t, 8, memutils.AlignDown(15, 8))
	require.Equal(t, 16, memutils.AlignDown(16, 8))
}

func TestAlignPointer(t *testing.T) {
	buf := make([]byte, 128)
	base := unsafe.Pointer(&buf[1])

	aligned := memutils.AlignPointer(base, 32)
	require.Zero(t, uintptr(aligned)%32)
	require.GreaterOrEqual(t, uint64(uintptr(aligned)), uint64(uintptr(base)))
	require.Less(t, int(uintptr(aligned)-uintptr(base)), 32)
}

func TestCheckedArithmetic(t *testing.T) {
	sum, err := memutils.CheckedAdd(3, 4)
	require.NoError(t, err)
	require.Equal(t, 7, sum)

	_, err = memutils.CheckedAdd(math.MaxInt, 1)
	require.True(t, errors.Is(err, memutils.OverflowError))

	_, err = memutils.CheckedAdd(-1, 1)
	require.Error(t, err)

	product, err := memutils.CheckedMul(1<<20, 1<<20)
	require.NoError(t, err)
	require.Equal(t, 1<<40, product)

	_, err = memutils.CheckedMul(math.MaxInt/2+1, 2)
	require.True(t, errors.Is(err, memutils.OverflowError))

	require.Equal(t, math.MaxInt, memutils.SaturatingMul(math.MaxInt, 2))
	require.Equal(t, 12, memutils.SaturatingMul(3, 4))
}

func TestClearAndCopy(t *testing.T) {
	src := []byte{1, 2, 3, 4}
	dst := make([]byte, 4)

	memutils.Copy(unsafe.Pointer(&dst[0]), unsafe.Pointer(&src[0]), 3)
	require.Equal(t, []byte{1, 2, 3, 0}, dst)

	memutils.Clear(unsafe.Pointer(&dst[0]), 2)
	require.Equal(t, []byte{0, 0, 3, 0}, dst)

	// Zero-sized operations never touch the pointer
	memutils.Clear(nil, 0)
	memutils.Copy(nil, nil, 0)
}

type testFlags int32

const (
	testFlagA testFlags = 1 << iota
	testFlagB
	testFlagC
)

func TestFlagStringMapping(t *testing.T) {
	mapping := memutils.NewFlagStringMapping[testFlags]()
	mapping.Register(testFlagA, "A")
	mapping.Register(testFlagB, "B")

	require.Equal(t, "None", mapping.FlagsToString(0))
	require.Equal(t, "A", mapping.FlagsToString(testFlagA))
	require.Equal(t, "A|B", mapping.FlagsToString(testFlagA|testFlagB))
	require.Equal(t, "B|0x4", mapping.FlagsToString(testFlagB|testFlagC))
}
