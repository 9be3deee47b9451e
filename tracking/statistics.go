package tracking

import (
	"context"
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/vkngwrapper/arsenal/allocapi/memutils"
	"golang.org/x/exp/slices"
	"golang.org/x/exp/slog"
)

// Counters is a snapshot of the call and byte counters of a tracking Allocator
type Counters struct {
	// Allocations is the number of successful non-zero-sized allocations
	Allocations int64
	// Deallocations is the number of non-zero-sized blocks released
	Deallocations int64
	// Reallocations is the number of successful calls to Reallocate and ReallocateZeroed
	Reallocations int64
	// InPlaceResizes is the number of successful calls to GrowInPlace and ShrinkInPlace
	InPlaceResizes int64
	// Failures is the number of requests refused by the limit or the wrapped allocator
	Failures int64

	LiveBlocks int64
	// LiveBytes is the sum of the requested sizes of all live blocks
	LiveBytes int64
	// PeakBytes is the highest LiveBytes has been
	PeakBytes int64
}

func (a *Allocator) Counters() Counters {
	return Counters{
		Allocations:    a.allocations.Load(),
		Deallocations:  a.deallocations.Load(),
		Reallocations:  a.reallocations.Load(),
		InPlaceResizes: a.inPlaceResizes.Load(),
		Failures:       a.failures.Load(),
		LiveBlocks:     a.liveBlocks.Load(),
		LiveBytes:      a.liveBytes.Load(),
		PeakBytes:      a.peakBytes.Load(),
	}
}

// Statistics summarizes the live blocks. BlockBytes counts usable bytes and AllocationBytes counts
// requested bytes.
func (a *Allocator) Statistics() memutils.Statistics {
	a.mutex.RLock()
	defer a.mutex.RUnlock()

	var stats memutils.Statistics
	a.blocks.Iter(func(_ uintptr, info blockInfo) bool {
		stats.AddBlock(info.requested, info.usable)
		return false
	})

	return stats
}

// DetailedStatistics summarizes the live blocks along with the extremes of their sizes. The excess
// usable bytes of each block count as an unused range.
func (a *Allocator) DetailedStatistics() memutils.DetailedStatistics {
	a.mutex.RLock()
	defer a.mutex.RUnlock()

	var stats memutils.DetailedStatistics
	stats.Clear()
	a.blocks.Iter(func(_ uintptr, info blockInfo) bool {
		stats.AddBlock(info.requested, info.usable)
		return false
	})

	return stats
}

// CombinedStatistics sums the detailed statistics of several allocators, such as one tracking
// allocator per subsystem sharing a process
func CombinedStatistics(allocators ...*Allocator) memutils.DetailedStatistics {
	var combined memutils.DetailedStatistics
	combined.Clear()

	for _, allocator := range allocators {
		stats := allocator.DetailedStatistics()
		combined.AddDetailedStatistics(&stats)
	}

	return combined
}

func (a *Allocator) sortedBlocks() []blockInfo {
	blocks := make([]blockInfo, 0, a.blocks.Count())
	a.blocks.Iter(func(_ uintptr, info blockInfo) bool {
		blocks = append(blocks, info)
		return false
	})

	slices.SortFunc(blocks, func(left, right blockInfo) int {
		switch {
		case uintptr(left.ptr) < uintptr(right.ptr):
			return -1
		case uintptr(left.ptr) > uintptr(right.ptr):
			return 1
		default:
			return 0
		}
	})

	return blocks
}

// PrintDetailedMap writes a JSON object describing the counters and every live block, in address order
func (a *Allocator) PrintDetailedMap(writer *jwriter.Writer) {
	counters := a.Counters()

	a.mutex.RLock()
	defer a.mutex.RUnlock()

	objState := writer.Object()
	defer objState.End()

	countersObj := objState.Name("Counters").Object()
	countersObj.Name("Allocations").Int(int(counters.Allocations))
	countersObj.Name("Deallocations").Int(int(counters.Deallocations))
	countersObj.Name("Reallocations").Int(int(counters.Reallocations))
	countersObj.Name("InPlaceResizes").Int(int(counters.InPlaceResizes))
	countersObj.Name("Failures").Int(int(counters.Failures))
	countersObj.Name("LiveBytes").Int(int(counters.LiveBytes))
	countersObj.Name("PeakBytes").Int(int(counters.PeakBytes))
	countersObj.End()

	blocksArray := objState.Name("Blocks").Array()
	defer blocksArray.End()

	for _, info := range a.sortedBlocks() {
		blockObj := blocksArray.Object()
		blockObj.Name("Address").String(fmt.Sprintf("%p", info.ptr))
		blockObj.Name("Size").Int(info.requested)
		blockObj.Name("UsableSize").Int(info.usable)
		blockObj.Name("Align").Int(int(info.align))
		blockObj.End()
	}
}

// CheckCorruption verifies the guard bytes after every live block. It always succeeds unless the
// debug_mem_utils build tag is present.
func (a *Allocator) CheckCorruption() error {
	a.logger.Debug("Tracking::CheckCorruption")

	a.mutex.RLock()
	defer a.mutex.RUnlock()

	for _, info := range a.sortedBlocks() {
		if !memutils.ValidateMagicValue(info.ptr, info.usable) {
			return errors.Newf("memory corruption detected after the block at %p with usable size %d", info.ptr, info.usable)
		}
	}

	return nil
}

// Destroy reports every block that is still live. It returns an error if there are any. The wrapped
// allocator is left untouched.
func (a *Allocator) Destroy() error {
	a.mutex.RLock()
	defer a.mutex.RUnlock()

	if a.blocks.Count() == 0 {
		return nil
	}

	for _, info := range a.sortedBlocks() {
		a.logger.LogAttrs(context.Background(), slog.LevelError, "[UNRELEASED MEMORY] unfreed block",
			slog.String("address", fmt.Sprintf("%p", info.ptr)),
			slog.Int("size", info.requested),
			slog.Int("usableSize", info.usable),
			slog.Uint64("align", uint64(info.align)),
		)
	}

	return errors.Newf("%d blocks were not freed before the destruction of this allocator", a.blocks.Count())
}
