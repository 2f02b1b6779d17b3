package promadapters

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/AntonStoeckl/fakersql-go/fakersql/postgresengine"
)

// StatsSource is anything that reports pool stats, usually a *postgresengine.Pool.
type StatsSource interface {
	Stats() postgresengine.PoolStats
}

// PoolCollector exports a pool's bookkeeping as gauges and counters on every scrape.
type PoolCollector struct {
	source StatsSource

	maxSize    *prometheus.Desc
	checkedOut *prometheus.Desc
	idle       *prometheus.Desc
	total      *prometheus.Desc
	acquires   *prometheus.Desc
	exhausted  *prometheus.Desc
	canceled   *prometheus.Desc
}

// NewPoolCollector creates a PoolCollector for source.
func NewPoolCollector(source StatsSource) *PoolCollector {
	labels := []string{"adapter"}

	return &PoolCollector{
		source:     source,
		maxSize:    prometheus.NewDesc("fakersql_pool_max_size", "Configured maximum number of connections", labels, nil),
		checkedOut: prometheus.NewDesc("fakersql_pool_checked_out", "Connections currently checked out", labels, nil),
		idle:       prometheus.NewDesc("fakersql_pool_idle", "Idle connections", labels, nil),
		total:      prometheus.NewDesc("fakersql_pool_total", "Open connections, idle or checked out", labels, nil),
		acquires:   prometheus.NewDesc("fakersql_pool_acquires_total", "Successful slot reservations", labels, nil),
		exhausted:  prometheus.NewDesc("fakersql_pool_exhausted_acquires_total", "Acquires that ran into the acquire timeout", labels, nil),
		canceled:   prometheus.NewDesc("fakersql_pool_canceled_acquires_total", "Acquires whose context ended while waiting", labels, nil),
	}
}

// Describe implements prometheus.Collector.
func (c *PoolCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.maxSize
	ch <- c.checkedOut
	ch <- c.idle
	ch <- c.total
	ch <- c.acquires
	ch <- c.exhausted
	ch <- c.canceled
}

// Collect implements prometheus.Collector.
func (c *PoolCollector) Collect(ch chan<- prometheus.Metric) {
	stats := c.source.Stats()
	adapter := stats.Adapter

	ch <- prometheus.MustNewConstMetric(c.maxSize, prometheus.GaugeValue, float64(stats.MaxSize), adapter)
	ch <- prometheus.MustNewConstMetric(c.checkedOut, prometheus.GaugeValue, float64(stats.CheckedOut), adapter)
	ch <- prometheus.MustNewConstMetric(c.idle, prometheus.GaugeValue, float64(stats.Idle), adapter)
	ch <- prometheus.MustNewConstMetric(c.total, prometheus.GaugeValue, float64(stats.Total), adapter)
	ch <- prometheus.MustNewConstMetric(c.acquires, prometheus.CounterValue, float64(stats.AcquireCount), adapter)
	ch <- prometheus.MustNewConstMetric(c.exhausted, prometheus.CounterValue, float64(stats.ExhaustedCount), adapter)
	ch <- prometheus.MustNewConstMetric(c.canceled, prometheus.CounterValue, float64(stats.CanceledCount), adapter)
}

var _ prometheus.Collector = (*PoolCollector)(nil)
