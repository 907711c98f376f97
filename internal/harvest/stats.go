package harvest

import (
	"time"

	"github.com/t77yq/bdmon/internal/model"
	"github.com/t77yq/bdmon/internal/monitor"
)

// Run-self metric names
const (
	MetricErrors          = "error"
	MetricWarnings        = "warning"
	MetricTotalTime       = "totalCollectionTime"
	MetricHostCPU         = "hostCpuPercent"
	MetricHostMemory      = "hostMemoryPercent"
	serviceTimeMetricTail = "CollectionTime"
)

// RunStats accumulates the counters of one harvest pass. It belongs to a
// single run and is not safe for concurrent use.
type RunStats struct {
	Errors   int
	Warnings int
	// Durations holds elapsed seconds per service, in visiting order
	Durations []ServiceDuration
	Total     float64
}

// ServiceDuration is the elapsed collection time of one service
type ServiceDuration struct {
	Service string
	Seconds float64
}

// Record counts err once as an error or a warning and returns its severity
func (s *RunStats) Record(err error) model.Severity {
	sev := model.Classify(err)
	if sev == model.SeverityWarning {
		s.Warnings++
	} else {
		s.Errors++
	}
	return sev
}

// Warn counts a warning that has no error value attached
func (s *RunStats) Warn() {
	s.Warnings++
}

// SetDuration records the elapsed time of a service
func (s *RunStats) SetDuration(service string, elapsed time.Duration) {
	s.Durations = append(s.Durations, ServiceDuration{Service: service, Seconds: elapsed.Seconds()})
}

// Duration returns the recorded seconds of a service
func (s *RunStats) Duration(service string) (float64, bool) {
	for _, d := range s.Durations {
		if d.Service == service {
			return d.Seconds, true
		}
	}
	return 0, false
}

// Batch renders the counters as run-self rows. usage may be nil when the
// host could not be sampled.
func (s *RunStats) Batch(host string, at time.Time, usage *monitor.HostUsage) model.Batch {
	batch := model.Batch{Statement: model.StatementRunSelf}
	add := func(metric string, value float64) {
		batch.Rows = append(batch.Rows, model.Row{
			Context: []interface{}{host},
			Metric:  metric,
			Value:   value,
			At:      at,
		})
	}

	add(MetricErrors, float64(s.Errors))
	add(MetricWarnings, float64(s.Warnings))
	for _, d := range s.Durations {
		add(d.Service+serviceTimeMetricTail, d.Seconds)
	}
	add(MetricTotalTime, s.Total)
	if usage != nil {
		add(MetricHostCPU, usage.CPUPercent)
		add(MetricHostMemory, usage.MemoryPercent)
	}
	return batch
}
