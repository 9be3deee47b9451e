package alloc_test

import (
	"math"
	"testing"
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/arsenal/allocapi/alloc"
)

var layoutTestCases = map[string]struct {
	Size  int
	Align uint
	Valid bool
}{
	"Zero Size": {
		Size:  0,
		Align: 1,
		Valid: true,
	},
	"Small": {
		Size:  7,
		Align: 8,
		Valid: true,
	},
	"Largest Size For Alignment": {
		Size:  math.MaxInt - 7,
		Align: 8,
		Valid: true,
	},
	"Size Overflows When Rounded": {
		Size:  math.MaxInt - 6,
		Align: 8,
		Valid: false,
	},
	"Zero Alignment": {
		Size:  8,
		Align: 0,
		Valid: false,
	},
	"Alignment Three": {
		Size:  8,
		Align: 3,
		Valid: false,
	},
	"Alignment Twelve": {
		Size:  24,
		Align: 12,
		Valid: false,
	},
	"Negative Size": {
		Size:  -1,
		Align: 8,
		Valid: false,
	},
	"Maximum Alignment": {
		Size:  0,
		Align: alloc.MaxAlign,
		Valid: true,
	},
	"Alignment Too Large": {
		Size:  0,
		Align: alloc.MaxAlign << 1,
		Valid: false,
	},
}

func TestFromSizeAlign(t *testing.T) {
	for name, testCase := range layoutTestCases {
		t.Run(name, func(t *testing.T) {
			layout, err := alloc.FromSizeAlign(testCase.Size, testCase.Align)
			if !testCase.Valid {
				require.Error(t, err)
				require.True(t, errors.Is(err, alloc.ErrLayout))
				return
			}

			require.NoError(t, err)
			require.Equal(t, testCase.Size, layout.Size())
			require.Equal(t, testCase.Align, layout.Align())
		})
	}
}

func TestMustFromSizeAlign(t *testing.T) {
	require.Equal(t, 16, alloc.MustFromSizeAlign(16, 4).Size())
	require.Panics(t, func() {
		alloc.MustFromSizeAlign(16, 5)
	})
}

type layoutRecord struct {
	A uint8
	B uint64
}

func TestLayoutOf(t *testing.T) {
	layout := alloc.LayoutOf[uint32]()
	require.Equal(t, 4, layout.Size())
	require.Equal(t, uint(4), layout.Align())

	layout = alloc.LayoutOf[layoutRecord]()
	require.Equal(t, int(unsafe.Sizeof(layoutRecord{})), layout.Size())
	require.Equal(t, uint(unsafe.Alignof(layoutRecord{})), layout.Align())

	layout = alloc.LayoutOf[struct{}]()
	require.Equal(t, 0, layout.Size())
	require.Equal(t, uint(1), layout.Align())
}

func TestArrayLayout(t *testing.T) {
	layout, err := alloc.ArrayLayout[uint32](3)
	require.NoError(t, err)
	require.Equal(t, alloc.MustFromSizeAlign(12, 4), layout)

	layout, err = alloc.ArrayLayout[struct{}](math.MaxInt)
	require.NoError(t, err)
	require.Equal(t, 0, layout.Size())

	_, err = alloc.ArrayLayout[uint64](math.MaxInt / 4)
	require.True(t, errors.Is(err, alloc.ErrLayout))

	_, err = alloc.ArrayLayout[uint64](-1)
	require.True(t, errors.Is(err, alloc.ErrLayout))
}

func TestLayoutPadding(t *testing.T) {
	layout := alloc.MustFromSizeAlign(5, 4)
	require.Equal(t, 3, layout.PaddingNeededFor(4))
	require.Equal(t, 0, layout.PaddingNeededFor(1))
	require.Equal(t, 11, layout.PaddingNeededFor(16))
	require.Equal(t, alloc.MustFromSizeAlign(8, 4), layout.PadToAlign())

	aligned, err := layout.AlignTo(64)
	require.NoError(t, err)
	require.Equal(t, alloc.MustFromSizeAlign(5, 64), aligned)

	aligned, err = layout.AlignTo(2)
	require.NoError(t, err)
	require.Equal(t, layout, aligned)
}

func TestLayoutRepeat(t *testing.T) {
	repeated, stride, err := alloc.MustFromSizeAlign(5, 4).Repeat(3)
	require.NoError(t, err)
	require.Equal(t, 8, stride)
	require.Equal(t, alloc.MustFromSizeAlign(24, 4), repeated)

	_, _, err = alloc.MustFromSizeAlign(1<<20, 8).Repeat(math.MaxInt / 1024)
	require.True(t, errors.Is(err, alloc.ErrLayout))
}

func TestLayoutExtend(t *testing.T) {
	header := alloc.MustFromSizeAlign(1, 1)
	body := alloc.MustFromSizeAlign(4, 4)

	record, offset, err := header.Extend(body)
	require.NoError(t, err)
	require.Equal(t, 4, offset)
	require.Equal(t, alloc.MustFromSizeAlign(8, 4), record)

	record, offset, err = record.Extend(alloc.MustFromSizeAlign(1, 1))
	require.NoError(t, err)
	require.Equal(t, 8, offset)
	require.Equal(t, alloc.MustFromSizeAlign(9, 4), record)
	require.Equal(t, alloc.MustFromSizeAlign(12, 4), record.PadToAlign())

	_, _, err = alloc.MustFromSizeAlign(math.MaxInt-16, 1).Extend(alloc.MustFromSizeAlign(32, 1))
	require.True(t, errors.Is(err, alloc.ErrLayout))
}

func TestLayoutDangling(t *testing.T) {
	for _, align := range []uint{1, 2, 8, 64, 4096, 1 << 16, 1 << 30} {
		ptr := alloc.MustFromSizeAlign(0, align).Dangling()
		require.NotNil(t, ptr)
		require.Zero(t, uintptr(ptr)%uintptr(align))
	}
}

func TestLayoutString(t *testing.T) {
	require.Equal(t, "Layout{Size: 12, Align: 4}", alloc.MustFromSizeAlign(12, 4).String())
}
