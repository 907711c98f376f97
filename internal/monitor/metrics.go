package monitor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics mirrors harvest run counters into a prometheus registry
type Metrics struct {
	registry *prometheus.Registry

	// Runs counts finished harvest passes
	Runs prometheus.Counter

	// Failures counts per-service failures labelled by severity
	Failures *prometheus.CounterVec

	// Rows counts persisted rows labelled by statement
	Rows *prometheus.CounterVec

	// ServiceDuration holds the last pass duration of each service in seconds
	ServiceDuration *prometheus.GaugeVec

	// RunDuration holds the last total pass duration in seconds
	RunDuration prometheus.Gauge

	// HostCPU and HostMemory hold the last harvester host usage in percent
	HostCPU    prometheus.Gauge
	HostMemory prometheus.Gauge
}

// NewMetrics creates the collectors on a private registry
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		Runs: factory.NewCounter(prometheus.CounterOpts{
			Name: "bdmon_runs_total",
			Help: "Total number of harvest passes",
		}),
		Failures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bdmon_failures_total",
				Help: "Total number of harvest failures by service and severity",
			},
			[]string{"service", "severity"},
		),
		Rows: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bdmon_rows_total",
				Help: "Total number of rows persisted by statement",
			},
			[]string{"statement"},
		),
		ServiceDuration: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "bdmon_service_collection_seconds",
				Help: "Duration of the last collection of each service in seconds",
			},
			[]string{"service"},
		),
		RunDuration: factory.NewGauge(prometheus.GaugeOpts{
			Name: "bdmon_run_collection_seconds",
			Help: "Duration of the last harvest pass in seconds",
		}),
		HostCPU: factory.NewGauge(prometheus.GaugeOpts{
			Name: "bdmon_host_cpu_percent",
			Help: "CPU usage of the harvester host",
		}),
		HostMemory: factory.NewGauge(prometheus.GaugeOpts{
			Name: "bdmon_host_memory_percent",
			Help: "Memory usage of the harvester host",
		}),
	}
}

// Registry returns the registry holding the collectors
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordFailure increments the failure counter of a service
func (m *Metrics) RecordFailure(service, severity string) {
	m.Failures.WithLabelValues(service, severity).Inc()
}

// RecordRows adds persisted rows of a statement
func (m *Metrics) RecordRows(statement string, n int) {
	m.Rows.WithLabelValues(statement).Add(float64(n))
}

// RecordServiceDuration sets the last collection duration of a service
func (m *Metrics) RecordServiceDuration(service string, seconds float64) {
	m.ServiceDuration.WithLabelValues(service).Set(seconds)
}

// RecordHostUsage sets the host usage gauges
func (m *Metrics) RecordHostUsage(usage HostUsage) {
	m.HostCPU.Set(usage.CPUPercent)
	m.HostMemory.Set(usage.MemoryPercent)
}
