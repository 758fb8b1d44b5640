package probe

import (
	"context"
	"fmt"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"

	healthshare "github.com/ozanturksever/go-healthshare"
)

// grade maps a usage percentage onto a status.
func grade(pct, yellowPct, redPct float64) healthshare.Status {
	switch {
	case pct >= redPct:
		return healthshare.StatusRed
	case pct >= yellowPct:
		return healthshare.StatusYellow
	default:
		return healthshare.StatusGreen
	}
}

func usageResult(what string, pct, yellowPct, redPct float64) Result {
	status := grade(pct, yellowPct, redPct)
	if status == healthshare.StatusGreen {
		return Green()
	}
	return Result{Status: status, Cause: fmt.Sprintf("%s usage at %.1f%%", what, pct)}
}

// DiskUsage reports YELLOW once the filesystem holding path is yellowPct
// full and RED at redPct.
func DiskUsage(path string, yellowPct, redPct float64) Check {
	return func(ctx context.Context) Result {
		usage, err := disk.UsageWithContext(ctx, path)
		if err != nil {
			return Red("disk %s unreadable: %v", path, err)
		}
		return usageResult("disk "+path, usage.UsedPercent, yellowPct, redPct)
	}
}

// MemoryUsage reports on virtual memory usage.
func MemoryUsage(yellowPct, redPct float64) Check {
	return func(ctx context.Context) Result {
		vm, err := mem.VirtualMemoryWithContext(ctx)
		if err != nil {
			return Red("memory stats unreadable: %v", err)
		}
		return usageResult("memory", vm.UsedPercent, yellowPct, redPct)
	}
}

// CPUUsage samples total CPU usage over interval.
func CPUUsage(interval time.Duration, yellowPct, redPct float64) Check {
	return func(ctx context.Context) Result {
		pcts, err := cpu.PercentWithContext(ctx, interval, false)
		if err != nil {
			return Red("cpu stats unreadable: %v", err)
		}
		if len(pcts) == 0 {
			return Red("cpu stats unavailable")
		}
		return usageResult("cpu", pcts[0], yellowPct, redPct)
	}
}

// Connected reports RED while connected returns false.
func Connected(name string, connected func() bool) Check {
	return func(context.Context) Result {
		if connected() {
			return Green()
		}
		return Red("%s not connected", name)
	}
}
