package diagnostics

import (
	"github.com/prometheus/client_golang/prometheus"

	"evcore/internal/dispatch"
)

// StatsSource is implemented by *dispatch.Dispatcher.
type StatsSource interface {
	Stats() dispatch.Stats
	IsRunning() bool
}

// Collector exports dispatcher counters at scrape time. Nothing is recorded
// on the dispatch path itself.
type Collector struct {
	src StatsSource

	running       *prometheus.Desc
	published     *prometheus.Desc
	dispatched    *prometheus.Desc
	notifications *prometheus.Desc
	dropped       *prometheus.Desc
	depth         *prometheus.Desc
	maxDepth      *prometheus.Desc
	capacity      *prometheus.Desc
}

// NewCollector returns a Collector reading from src.
func NewCollector(src StatsSource) *Collector {
	name := func(n string) string { return prometheus.BuildFQName("evcore", "dispatch", n) }
	prio := []string{"priority"}
	return &Collector{
		src:           src,
		running:       prometheus.NewDesc(name("running"), "1 while the dispatch loop is running.", nil, nil),
		published:     prometheus.NewDesc(name("published_total"), "Events accepted into a queue.", nil, nil),
		dispatched:    prometheus.NewDesc(name("dispatched_total"), "Events taken off a queue and delivered.", nil, nil),
		notifications: prometheus.NewDesc(name("notifications_total"), "Observer callbacks invoked.", nil, nil),
		dropped:       prometheus.NewDesc(name("dropped_total"), "Events dropped because the queue was full.", nil, nil),
		depth:         prometheus.NewDesc(name("queue_depth"), "Events waiting in the queue.", prio, nil),
		maxDepth:      prometheus.NewDesc(name("queue_max_depth"), "Largest queue depth observed.", prio, nil),
		capacity:      prometheus.NewDesc(name("queue_capacity"), "Fixed queue capacity.", prio, nil),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.running
	ch <- c.published
	ch <- c.dispatched
	ch <- c.notifications
	ch <- c.dropped
	ch <- c.depth
	ch <- c.maxDepth
	ch <- c.capacity
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := c.src.Stats()
	running := 0.0
	if c.src.IsRunning() {
		running = 1
	}
	ch <- prometheus.MustNewConstMetric(c.running, prometheus.GaugeValue, running)
	ch <- prometheus.MustNewConstMetric(c.published, prometheus.CounterValue, float64(s.Published))
	ch <- prometheus.MustNewConstMetric(c.dispatched, prometheus.CounterValue, float64(s.Dispatched))
	ch <- prometheus.MustNewConstMetric(c.notifications, prometheus.CounterValue, float64(s.Notifications))
	ch <- prometheus.MustNewConstMetric(c.dropped, prometheus.CounterValue, float64(s.Dropped))

	high, normal := dispatch.PriorityHigh.String(), dispatch.PriorityNormal.String()
	ch <- prometheus.MustNewConstMetric(c.depth, prometheus.GaugeValue, float64(s.HighDepth), high)
	ch <- prometheus.MustNewConstMetric(c.depth, prometheus.GaugeValue, float64(s.NormalDepth), normal)
	ch <- prometheus.MustNewConstMetric(c.maxDepth, prometheus.GaugeValue, float64(s.MaxHighDepth), high)
	ch <- prometheus.MustNewConstMetric(c.maxDepth, prometheus.GaugeValue, float64(s.MaxNormalDepth), normal)
	ch <- prometheus.MustNewConstMetric(c.capacity, prometheus.GaugeValue, float64(s.HighCapacity), high)
	ch <- prometheus.MustNewConstMetric(c.capacity, prometheus.GaugeValue, float64(s.NormalCapacity), normal)
}
