package health

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChecker_HealthyWhenListenerUp(t *testing.T) {
	c := NewChecker(func() bool { return true })
	status := c.CheckAll()

	require.NotNil(t, status)
	assert.True(t, status.ListenerUp)
	assert.NotEqual(t, StatusUnhealthy, status.Status)
	assert.Empty(t, statusErrorsExcludingSystem(status))
}

func TestChecker_UnhealthyWhenListenerDown(t *testing.T) {
	c := NewChecker(func() bool { return false })
	status := c.CheckAll()

	assert.False(t, status.ListenerUp)
	assert.Equal(t, StatusUnhealthy, status.Status)
	assert.Contains(t, status.Errors, "listener is not accepting connections")
}

func TestChecker_NilListenerUpFuncDefaultsHealthy(t *testing.T) {
	c := NewChecker(nil)
	status := c.CheckAll()
	assert.True(t, status.ListenerUp)
}

func TestCheckSystem_ReportsGoroutineCount(t *testing.T) {
	sys := CheckSystem()
	require.NotNil(t, sys)
	assert.Positive(t, sys.GoRoutines)
}

func statusErrorsExcludingSystem(status *HealthStatus) []string {
	var out []string
	for _, e := range status.Errors {
		if e == "listener is not accepting connections" {
			out = append(out, e)
		}
	}
	return out
}
