package monitor

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestHostSampler(t *testing.T) {
	sampler := NewHostSampler(100*time.Millisecond, zaptest.NewLogger(t))

	usage, err := sampler.Sample(context.Background())
	require.NoError(t, err)
	assert.False(t, usage.Timestamp.IsZero())
	assert.GreaterOrEqual(t, usage.CPUPercent, 0.0)
	assert.LessOrEqual(t, usage.CPUPercent, 100.0)
	assert.Greater(t, usage.MemoryPercent, 0.0)
	assert.LessOrEqual(t, usage.MemoryPercent, 100.0)
}

func TestMetrics(t *testing.T) {
	m := NewMetrics()

	t.Run("Failures", func(t *testing.T) {
		m.RecordFailure("hdfs", "warning")
		m.RecordFailure("hdfs", "warning")
		m.RecordFailure("hdfs", "error")

		assert.Equal(t, 2.0, testutil.ToFloat64(m.Failures.WithLabelValues("hdfs", "warning")))
		assert.Equal(t, 1.0, testutil.ToFloat64(m.Failures.WithLabelValues("hdfs", "error")))
	})

	t.Run("Rows", func(t *testing.T) {
		m.RecordRows("zk_node", 12)
		m.RecordRows("zk_node", 3)
		assert.Equal(t, 15.0, testutil.ToFloat64(m.Rows.WithLabelValues("zk_node")))
	})

	t.Run("Durations", func(t *testing.T) {
		m.RecordServiceDuration("yarn", 1.5)
		m.RecordServiceDuration("yarn", 0.25)
		assert.Equal(t, 0.25, testutil.ToFloat64(m.ServiceDuration.WithLabelValues("yarn")))
	})

	t.Run("HostUsage", func(t *testing.T) {
		m.RecordHostUsage(HostUsage{CPUPercent: 12.5, MemoryPercent: 40})
		assert.Equal(t, 12.5, testutil.ToFloat64(m.HostCPU))
		assert.Equal(t, 40.0, testutil.ToFloat64(m.HostMemory))
	})

	t.Run("Exposition", func(t *testing.T) {
		m.Runs.Inc()
		expected := `
# HELP bdmon_runs_total Total number of harvest passes
# TYPE bdmon_runs_total counter
bdmon_runs_total 1
`
		require.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "bdmon_runs_total"))
	})
}
