// Package telemetry samples host CPU and memory load for the STATS
// channel on the display.
package telemetry

import (
	"fmt"
	"math"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"

	"deskcat/internal/model"
)

// Sampler reports a host telemetry snapshot. The system sampler is the
// real one; tests substitute a fixed sampler.
type Sampler interface {
	Sample() (model.Telemetry, error)
}

// SystemSampler reads load from the running host.
type SystemSampler struct{}

// Sample returns current CPU and memory utilization as percentages,
// rounded to whole numbers the wire format can carry.
func (SystemSampler) Sample() (model.Telemetry, error) {
	// Zero interval returns the utilization since the previous call,
	// so the first sample after startup can read 0.
	cpuPcts, err := cpu.Percent(0, false)
	if err != nil {
		return model.Telemetry{}, fmt.Errorf("failed to sample cpu: %w", err)
	}
	vm, err := mem.VirtualMemory()
	if err != nil {
		return model.Telemetry{}, fmt.Errorf("failed to sample memory: %w", err)
	}

	var cpuPct float64
	if len(cpuPcts) > 0 {
		cpuPct = cpuPcts[0]
	}
	return model.Telemetry{
		CPUPercent: clampPercent(cpuPct),
		MemPercent: clampPercent(vm.UsedPercent),
	}, nil
}

// Fixed returns a sampler that always reports the given snapshot.
func Fixed(t model.Telemetry) Sampler { return fixedSampler{t} }

type fixedSampler struct{ t model.Telemetry }

func (s fixedSampler) Sample() (model.Telemetry, error) { return s.t, nil }

func clampPercent(v float64) int {
	n := int(math.Round(v))
	if n < 0 {
		return 0
	}
	if n > 100 {
		return 100
	}
	return n
}
