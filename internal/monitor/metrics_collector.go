package monitor

import (
	"context"
	"fmt"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"go.uber.org/zap"
)

// HostUsage is a point-in-time resource reading of the harvester host
type HostUsage struct {
	Timestamp     time.Time
	CPUPercent    float64
	MemoryPercent float64
}

// HostSampler reads CPU and memory usage of the local host
type HostSampler struct {
	logger   *zap.Logger
	interval time.Duration
}

// NewHostSampler creates a new host sampler. CPU usage is measured over interval.
func NewHostSampler(interval time.Duration, logger *zap.Logger) *HostSampler {
	return &HostSampler{
		logger:   logger.Named("host-sampler"),
		interval: interval,
	}
}

// Sample collects host CPU and memory usage
func (s *HostSampler) Sample(ctx context.Context) (HostUsage, error) {
	cpuPercent, err := cpu.PercentWithContext(ctx, s.interval, false)
	if err != nil {
		return HostUsage{}, fmt.Errorf("failed to get CPU usage: %w", err)
	}
	if len(cpuPercent) == 0 {
		return HostUsage{}, fmt.Errorf("failed to get CPU usage: no samples")
	}

	memInfo, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return HostUsage{}, fmt.Errorf("failed to get memory usage: %w", err)
	}

	usage := HostUsage{
		Timestamp:     time.Now(),
		CPUPercent:    cpuPercent[0],
		MemoryPercent: memInfo.UsedPercent,
	}

	s.logger.Debug("Host usage sampled",
		zap.Float64("cpu_usage", usage.CPUPercent),
		zap.Float64("memory_usage", usage.MemoryPercent))
	return usage, nil
}
