package profiler

import (
	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusCollector adapts a *Profile to prometheus.Collector, so a host
// process that already scrapes Prometheus metrics can expose the same
// timing/IO counters without separately polling Report().
type PrometheusCollector struct {
	profile *Profile

	timeDesc    *prometheus.Desc
	callsDesc   *prometheus.Desc
	counterDesc *prometheus.Desc
}

// NewPrometheusCollector wraps p for registration with a
// prometheus.Registerer.
func NewPrometheusCollector(p *Profile) *PrometheusCollector {
	return &PrometheusCollector{
		profile: p,
		timeDesc: prometheus.NewDesc(
			"acstore_operation_seconds_total",
			"Cumulative time spent in a store operation.",
			[]string{"operation"}, nil,
		),
		callsDesc: prometheus.NewDesc(
			"acstore_operation_calls_total",
			"Number of times a store operation completed.",
			[]string{"operation"}, nil,
		),
		counterDesc: prometheus.NewDesc(
			"acstore_io_total",
			"Cumulative backend I/O counter (bytes/keys read or written).",
			[]string{"counter"}, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *PrometheusCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.timeDesc
	ch <- c.callsDesc
	ch <- c.counterDesc
}

// Collect implements prometheus.Collector.
func (c *PrometheusCollector) Collect(ch chan<- prometheus.Metric) {
	report := c.profile.Report()
	for _, op := range report.Operations {
		ch <- prometheus.MustNewConstMetric(c.timeDesc, prometheus.CounterValue, float64(op.TotalTimeNs)/1e9, op.Name)
		ch <- prometheus.MustNewConstMetric(c.callsDesc, prometheus.CounterValue, float64(op.Calls), op.Name)
	}
	for name, total := range report.Counters {
		ch <- prometheus.MustNewConstMetric(c.counterDesc, prometheus.CounterValue, float64(total), name)
	}
}
