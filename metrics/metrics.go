package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/vkngwrapper/arsenal/allocapi/memutils"
	"github.com/vkngwrapper/arsenal/allocapi/tracking"
)

// StatsSource is implemented by tracking.Allocator
type StatsSource interface {
	Counters() tracking.Counters
	Statistics() memutils.Statistics
}

var _ StatsSource = &tracking.Allocator{}

const namespace = "allocapi"

// Collector exports the counters of a tracking allocator. Values are read from the source on every
// scrape, so the collector holds no state of its own.
type Collector struct {
	source StatsSource

	allocations    *prometheus.Desc
	deallocations  *prometheus.Desc
	reallocations  *prometheus.Desc
	inPlaceResizes *prometheus.Desc
	failures       *prometheus.Desc
	liveBlocks     *prometheus.Desc
	liveBytes      *prometheus.Desc
	peakBytes      *prometheus.Desc
	usableBytes    *prometheus.Desc
}

var _ prometheus.Collector = &Collector{}

// NewCollector creates a collector for source. Every metric carries an "allocator" label set to name,
// so several allocators can be registered side by side.
func NewCollector(name string, source StatsSource) *Collector {
	labels := prometheus.Labels{"allocator": name}
	desc := func(metric, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "", metric), help, nil, labels)
	}

	return &Collector{
		source: source,

		allocations:    desc("allocations_total", "Total number of blocks allocated."),
		deallocations:  desc("deallocations_total", "Total number of blocks released."),
		reallocations:  desc("reallocations_total", "Total number of blocks resized by reallocation."),
		inPlaceResizes: desc("in_place_resizes_total", "Total number of blocks resized without moving."),
		failures:       desc("failures_total", "Total number of requests refused by the byte limit or the wrapped allocator."),
		liveBlocks:     desc("live_blocks", "Number of blocks currently allocated."),
		liveBytes:      desc("live_bytes", "Sum of the requested sizes of all live blocks."),
		peakBytes:      desc("peak_bytes", "Highest value live_bytes has reached."),
		usableBytes:    desc("usable_bytes", "Sum of the usable sizes of all live blocks."),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.allocations
	ch <- c.deallocations
	ch <- c.reallocations
	ch <- c.inPlaceResizes
	ch <- c.failures
	ch <- c.liveBlocks
	ch <- c.liveBytes
	ch <- c.peakBytes
	ch <- c.usableBytes
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	counters := c.source.Counters()
	stats := c.source.Statistics()

	ch <- prometheus.MustNewConstMetric(c.allocations, prometheus.CounterValue, float64(counters.Allocations))
	ch <- prometheus.MustNewConstMetric(c.deallocations, prometheus.CounterValue, float64(counters.Deallocations))
	ch <- prometheus.MustNewConstMetric(c.reallocations, prometheus.CounterValue, float64(counters.Reallocations))
	ch <- prometheus.MustNewConstMetric(c.inPlaceResizes, prometheus.CounterValue, float64(counters.InPlaceResizes))
	ch <- prometheus.MustNewConstMetric(c.failures, prometheus.CounterValue, float64(counters.Failures))
	ch <- prometheus.MustNewConstMetric(c.liveBlocks, prometheus.GaugeValue, float64(counters.LiveBlocks))
	ch <- prometheus.MustNewConstMetric(c.liveBytes, prometheus.GaugeValue, float64(counters.LiveBytes))
	ch <- prometheus.MustNewConstMetric(c.peakBytes, prometheus.GaugeValue, float64(counters.PeakBytes))
	ch <- prometheus.MustNewConstMetric(c.usableBytes, prometheus.GaugeValue, float64(stats.BlockBytes))
}

// Register adds the collector to reg. A collector that is already registered is not an error.
func (c *Collector) Register(reg prometheus.Registerer) error {
	if err := reg.Register(c); err != nil {
		if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
			return err
		}
	}
	return nil
}

func (c *Collector) Unregister(reg prometheus.Registerer) {
	reg.Unregister(c)
}
