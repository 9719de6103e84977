package trust

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_IsTrustedBeforeDecision(t *testing.T) {
	m := NewManager(nil)
	trusted, decided := m.IsTrusted("ski-a")
	assert.False(t, trusted)
	assert.False(t, decided)
}

func TestManager_WaitToTrustInvokesListenerOnce(t *testing.T) {
	var calls int32
	m := NewManager(func(ski string) bool {
		atomic.AddInt32(&calls, 1)
		return ski == "trusted-ski"
	})

	var wg sync.WaitGroup
	results := make([]bool, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = m.WaitToTrust("trusted-ski")
		}(i)
	}
	wg.Wait()

	for _, r := range results {
		assert.True(t, r)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestManager_DifferentSKIsGetIndependentDecisions(t *testing.T) {
	m := NewManager(func(ski string) bool { return ski == "good" })

	assert.True(t, m.WaitToTrust("good"))
	assert.False(t, m.WaitToTrust("bad"))

	trusted, decided := m.IsTrusted("good")
	require.True(t, decided)
	assert.True(t, trusted)

	trusted, decided = m.IsTrusted("bad")
	require.True(t, decided)
	assert.False(t, trusted)
}

func TestManager_TrustRemoteBypassesListener(t *testing.T) {
	var called bool
	m := NewManager(func(string) bool {
		called = true
		return false
	})

	m.TrustRemote("preapproved", true)
	trusted, decided := m.IsTrusted("preapproved")
	assert.True(t, decided)
	assert.True(t, trusted)
	assert.False(t, called)

	assert.True(t, m.WaitToTrust("preapproved"))
	assert.False(t, called)
}

func TestManager_TrustRemoteAfterListenerDecisionIsNoop(t *testing.T) {
	m := NewManager(func(string) bool { return true })

	assert.True(t, m.WaitToTrust("ski"))
	m.TrustRemote("ski", false)

	trusted, _ := m.IsTrusted("ski")
	assert.True(t, trusted, "first decision wins")
}

func TestManager_NilListenerDeniesByDefault(t *testing.T) {
	m := NewManager(nil)
	assert.False(t, m.WaitToTrust("anything"))
}
