package monitor

import (
	"context"
	"errors"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"
)

// Usage is one raw measurement of the host.
type Usage struct {
	CPUPercent   float64
	MemUsedBytes uint64
}

type Probe interface {
	Sample(ctx context.Context) (Usage, error)
}

// HostProbe measures the machine the relay runs on. CPU usage is averaged
// over all cores since the previous Sample call.
type HostProbe struct{}

func (HostProbe) Sample(ctx context.Context) (Usage, error) {
	percents, err := cpu.PercentWithContext(ctx, 0, false)
	if err != nil {
		return Usage{}, err
	}
	if len(percents) == 0 {
		return Usage{}, errors.New("no cpu usage reported")
	}

	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return Usage{}, err
	}

	return Usage{CPUPercent: percents[0], MemUsedBytes: vm.Used}, nil
}
