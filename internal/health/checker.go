package health

import "time"

// Checker performs health checks for a running ship-server process.
type Checker struct {
	// ListenerUp reports whether the WebSocket listener is currently
	// accepting connections. Supplied by the server since the checker
	// has no direct handle on the net.Listener.
	ListenerUp func() bool
}

// NewChecker creates a new health checker.
func NewChecker(listenerUp func() bool) *Checker {
	return &Checker{ListenerUp: listenerUp}
}

// CheckAll performs all health checks.
func (c *Checker) CheckAll() *HealthStatus {
	status := &HealthStatus{
		Timestamp: time.Now(),
		Status:    StatusHealthy,
		Errors:    make([]string, 0),
	}

	status.ListenerUp = c.ListenerUp == nil || c.ListenerUp()
	if !status.ListenerUp {
		status.Status = StatusUnhealthy
		status.Errors = append(status.Errors, "listener is not accepting connections")
	}

	status.SystemStatus = CheckSystem()
	if status.SystemStatus.Status != StatusHealthy {
		if status.Status == StatusHealthy {
			status.Status = status.SystemStatus.Status
		} else if status.SystemStatus.Status == StatusUnhealthy {
			status.Status = StatusUnhealthy
		}
		if status.SystemStatus.Error != "" {
			status.Errors = append(status.Errors, "system: "+status.SystemStatus.Error)
		}
	}

	return status
}
