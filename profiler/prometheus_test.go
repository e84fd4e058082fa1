package profiler

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestPrometheusCollectorReportsOperationsAndCounters(t *testing.T) {
	p := New()
	timer := p.Timer("add")
	timer.Start()
	timer.Stop()
	p.Count("bytes_written", 100)

	collector := NewPrometheusCollector(p)
	n := testutil.CollectAndCount(collector)
	// one time metric + one calls metric for "add", plus one counter metric.
	assert.Equal(t, 3, n)
}
