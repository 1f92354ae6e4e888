package reporter

import (
	"context"
	"fmt"
	"math"
	"time"

	"device-fleet-api/internal/model"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// Sample is one reading of the host's resource usage, in whole percent
type Sample struct {
	CPU    int
	Memory int
}

// Sampler reads the current resource usage of the host
type Sampler interface {
	Sample(ctx context.Context) (Sample, error)
}

// SystemSampler reads usage through gopsutil. CPU usage is averaged across
// all cores over the measurement window.
type SystemSampler struct {
	window         time.Duration
	usageCollector func(context.Context, time.Duration, bool) ([]float64, error)
	memCollector   func(context.Context) (*mem.VirtualMemoryStat, error)
}

// NewSystemSampler creates a sampler measuring CPU over window
func NewSystemSampler(window time.Duration) *SystemSampler {
	return &SystemSampler{
		window:         window,
		usageCollector: cpu.PercentWithContext,
		memCollector:   mem.VirtualMemoryWithContext,
	}
}

// Sample measures CPU and memory usage
func (s *SystemSampler) Sample(ctx context.Context) (Sample, error) {
	percent, err := s.usageCollector(ctx, s.window, false)
	if err != nil {
		return Sample{}, fmt.Errorf("failed to read cpu usage: %w", err)
	}
	if len(percent) == 0 {
		return Sample{}, fmt.Errorf("failed to read cpu usage: no data")
	}

	vm, err := s.memCollector(ctx)
	if err != nil {
		return Sample{}, fmt.Errorf("failed to read memory usage: %w", err)
	}

	return Sample{
		CPU:    ClampPercent(percent[0]),
		Memory: ClampPercent(vm.UsedPercent),
	}, nil
}

// ClampPercent rounds p and clamps it to the range the service accepts.
// An idle host still reports the minimum.
func ClampPercent(p float64) int {
	if math.IsNaN(p) {
		return model.MinUsage
	}
	v := int(math.Round(p))
	if v < model.MinUsage {
		return model.MinUsage
	}
	if v > model.MaxUsage {
		return model.MaxUsage
	}
	return v
}
