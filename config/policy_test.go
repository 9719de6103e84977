package config

import (
	"testing"

	"github.com/flexiblepower/shipproto-go/internal/logger"
	"github.com/stretchr/testify/assert"
)

func TestTrustListenerForPolicy_AllowAllAlwaysTrusts(t *testing.T) {
	listener := TrustListenerForPolicy(TrustPolicyAllowAll, logger.NewDefaultLogger(), nil)
	assert.True(t, listener("any-ski"))
}

func TestTrustListenerForPolicy_DenyAllNeverTrusts(t *testing.T) {
	listener := TrustListenerForPolicy(TrustPolicyDenyAll, logger.NewDefaultLogger(), nil)
	assert.False(t, listener("any-ski"))
}

func TestTrustListenerForPolicy_ManualDefersToPrompt(t *testing.T) {
	listener := TrustListenerForPolicy(TrustPolicyManual, logger.NewDefaultLogger(), func(ski string) bool {
		return ski == "known-ski"
	})
	assert.True(t, listener("known-ski"))
	assert.False(t, listener("unknown-ski"))
}

func TestTrustListenerForPolicy_ManualWithNilPromptDenies(t *testing.T) {
	listener := TrustListenerForPolicy(TrustPolicyManual, logger.NewDefaultLogger(), nil)
	assert.False(t, listener("any-ski"))
}

func TestTrustListenerForPolicy_UnknownPolicyPanics(t *testing.T) {
	assert.Panics(t, func() {
		TrustListenerForPolicy(TrustPolicy("bogus"), logger.NewDefaultLogger(), nil)
	})
}
