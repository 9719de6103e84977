package timer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimer_StartAndComplete(t *testing.T) {
	tm := New()

	_, ok := tm.TimeLeft()
	assert.False(t, ok, "time left should be unavailable before start")
	assert.False(t, tm.HasCompleted())

	start := time.Now()
	tm.Start(30 * time.Millisecond)

	require.True(t, tm.WaitUntilCompleted())
	assert.True(t, time.Since(start) >= 25*time.Millisecond)
	assert.True(t, tm.HasCompleted())

	left, ok := tm.TimeLeft()
	require.True(t, ok)
	assert.LessOrEqual(t, left, time.Duration(0))
}

func TestTimer_StartTwicePanics(t *testing.T) {
	tm := New()
	tm.Start(time.Second)
	assert.Panics(t, func() { tm.Start(time.Second) })
}

func TestTimer_CancelBeforeStartIsNoop(t *testing.T) {
	tm := New()
	assert.NotPanics(t, func() { tm.Cancel() })
	assert.False(t, tm.HasCompleted())
}

func TestTimer_CancelPreventsCompletion(t *testing.T) {
	tm := New()
	tm.Start(10 * time.Millisecond)
	tm.Cancel()

	time.Sleep(30 * time.Millisecond)
	assert.False(t, tm.HasCompleted())

	select {
	case <-tm.C():
		t.Fatal("cancelled timer must never signal completion")
	default:
	}
}

func TestTimer_CancelIsIdempotent(t *testing.T) {
	tm := New()
	tm.Start(10 * time.Millisecond)
	tm.Cancel()
	assert.NotPanics(t, func() { tm.Cancel() })
}

func TestTimer_Postpone(t *testing.T) {
	tm := New()
	tm.Start(100 * time.Millisecond)

	left, _ := tm.TimeLeft()
	require.Greater(t, left, time.Duration(0))

	next := tm.Postpone(200 * time.Millisecond)
	assert.NotSame(t, tm, next)

	// The old timer is cancelled and must never complete.
	assert.False(t, tm.HasCompleted())

	newLeft, ok := next.TimeLeft()
	require.True(t, ok)
	assert.Greater(t, newLeft, 250*time.Millisecond)
}

func TestTimer_PostponeWithoutRunningPanics(t *testing.T) {
	tm := New()
	assert.Panics(t, func() { tm.Postpone(time.Second) })

	tm2 := New()
	tm2.Start(5 * time.Millisecond)
	time.Sleep(10 * time.Millisecond)
	assert.Panics(t, func() { tm2.Postpone(time.Second) })
}

func TestTimer_TimeLeftTrendsMonotonicallyDown(t *testing.T) {
	tm := New()
	tm.Start(50 * time.Millisecond)

	first, _ := tm.TimeLeft()
	time.Sleep(10 * time.Millisecond)
	second, _ := tm.TimeLeft()

	assert.Less(t, second, first)
}
