package health

import (
	"fmt"
	"runtime"
	"syscall"
)

const (
	memoryThresholdHealthy  = 70.0
	memoryThresholdDegraded = 85.0
	diskThresholdHealthy    = 70.0
	diskThresholdDegraded   = 85.0
)

// CheckSystem reports the health of system resources.
func CheckSystem() *SystemHealth {
	h := &SystemHealth{Status: StatusHealthy}

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	h.MemoryUsedMB = m.Alloc / 1024 / 1024
	h.MemoryTotalMB = m.Sys / 1024 / 1024
	if h.MemoryTotalMB > 0 {
		h.MemoryPercent = float64(h.MemoryUsedMB) / float64(h.MemoryTotalMB) * 100
	}
	h.GoRoutines = runtime.NumGoroutine()

	var stat syscall.Statfs_t
	if err := syscall.Statfs(".", &stat); err == nil {
		totalBytes := stat.Blocks * uint64(stat.Bsize)
		freeBytes := stat.Bfree * uint64(stat.Bsize)
		h.DiskTotalGB = totalBytes / 1024 / 1024 / 1024
		h.DiskUsedGB = (totalBytes - freeBytes) / 1024 / 1024 / 1024
		if h.DiskTotalGB > 0 {
			h.DiskPercent = float64(h.DiskUsedGB) / float64(h.DiskTotalGB) * 100
		}
	} else {
		h.Error = fmt.Sprintf("failed to get disk stats: %v", err)
	}

	if h.MemoryPercent >= memoryThresholdDegraded || h.DiskPercent >= diskThresholdDegraded {
		h.Status = StatusUnhealthy
	} else if h.MemoryPercent >= memoryThresholdHealthy || h.DiskPercent >= diskThresholdHealthy {
		h.Status = StatusDegraded
	}

	return h
}
