// Package metrics exposes the harness write counters for scraping.
package metrics

import (
	"sync"

	prom "github.com/prometheus/client_golang/prometheus"
	promcollect "github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	Registry = prom.NewRegistry()

	WritesTotal = prom.NewCounter(prom.CounterOpts{
		Namespace: "sqlpulse",
		Name:      "writes_total",
		Help:      "Rows written by the continuous-writes workload",
	})
	WriteErrorsTotal = prom.NewCounter(prom.CounterOpts{
		Namespace: "sqlpulse",
		Name:      "write_errors_total",
		Help:      "Failed insert attempts by the continuous-writes workload",
	})
	LastWrittenValue = prom.NewGauge(prom.GaugeOpts{
		Namespace: "sqlpulse",
		Name:      "last_written_value",
		Help:      "Most recent number confirmed written",
	})
)

var registerOnce sync.Once

// Register installs the harness collectors on the registry. Safe to call
// more than once.
func Register() {
	registerOnce.Do(func() {
		Registry.MustRegister(WritesTotal, WriteErrorsTotal, LastWrittenValue)
		Registry.MustRegister(
			promcollect.NewGoCollector(),
			promcollect.NewProcessCollector(promcollect.ProcessCollectorOpts{}),
		)
	})
}
