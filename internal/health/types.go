// Package health reports whether a ship-server process's listener is
// accepting connections, plus system resource usage, adapted from the
// teacher's blockchain-era health checker down to the signals this module
// actually produces. Handshake outcomes are not part of the health status.
package health

import "time"

// Status represents the overall health status
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// HealthStatus represents the complete health status of the process
type HealthStatus struct {
	Status       Status        `json:"status"`
	Timestamp    time.Time     `json:"timestamp"`
	ListenerUp   bool          `json:"listener_up"`
	SystemStatus *SystemHealth `json:"system,omitempty"`
	Errors       []string      `json:"errors,omitempty"`
}

// SystemHealth represents system resource health
type SystemHealth struct {
	Status        Status  `json:"status"`
	MemoryUsedMB  uint64  `json:"memory_used_mb"`
	MemoryTotalMB uint64  `json:"memory_total_mb"`
	MemoryPercent float64 `json:"memory_percent"`
	DiskUsedGB    uint64  `json:"disk_used_gb"`
	DiskTotalGB   uint64  `json:"disk_total_gb"`
	DiskPercent   float64 `json:"disk_percent"`
	GoRoutines    int     `json:"goroutines"`
	Error         string  `json:"error,omitempty"`
}
