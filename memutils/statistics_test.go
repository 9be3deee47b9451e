package memutils_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/arsenal/allocapi/memutils"
)

func TestDetailedStatisticsAddBlock(t *testing.T) {
	var stats memutils.DetailedStatistics
	stats.Clear()

	stats.AddBlock(100, 128)
	stats.AddBlock(12, 12)

	require.Equal(t, memutils.DetailedStatistics{
		Statistics: memutils.Statistics{
			BlockCount:      2,
			AllocationCount: 2,
			BlockBytes:      140,
			AllocationBytes: 112,
		},
		UnusedRangeCount:   1,
		AllocationSizeMin:  12,
		AllocationSizeMax:  100,
		UnusedRangeSizeMin: 28,
		UnusedRangeSizeMax: 28,
	}, stats)
}

func TestDetailedStatisticsMerge(t *testing.T) {
	var first, second memutils.DetailedStatistics
	first.Clear()
	second.Clear()

	first.AddBlock(8, 8)
	second.AddBlock(64, 80)

	first.AddDetailedStatistics(&second)

	require.Equal(t, memutils.DetailedStatistics{
		Statistics: memutils.Statistics{
			BlockCount:      2,
			AllocationCount: 2,
			BlockBytes:      88,
			AllocationBytes: 72,
		},
		UnusedRangeCount:   1,
		AllocationSizeMin:  8,
		AllocationSizeMax:  64,
		UnusedRangeSizeMin: 16,
		UnusedRangeSizeMax: 16,
	}, first)

	first.Clear()
	require.Equal(t, math.MaxInt, first.AllocationSizeMin)
	require.Zero(t, first.BlockCount)
}
