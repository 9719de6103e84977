package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSubstituteEnvVars_UsesEnvValueWhenSet(t *testing.T) {
	t.Setenv("SHIP_TEST_HOST", "ship.example.com")
	assert.Equal(t, "ship.example.com", SubstituteEnvVars("${SHIP_TEST_HOST}"))
}

func TestSubstituteEnvVars_FallsBackToDefault(t *testing.T) {
	os.Unsetenv("SHIP_TEST_UNSET")
	assert.Equal(t, "fallback", SubstituteEnvVars("${SHIP_TEST_UNSET:fallback}"))
}

func TestSubstituteEnvVars_NoMatchLeavesInputUnchanged(t *testing.T) {
	assert.Equal(t, "plain-string", SubstituteEnvVars("plain-string"))
}

func TestSubstituteEnvVarsInConfig_SubstitutesKnownFields(t *testing.T) {
	t.Setenv("SHIP_TEST_CERT", "/secrets/cert.pem")

	cfg := &Config{TLS: &TLSConfig{CertFile: "${SHIP_TEST_CERT}"}}
	SubstituteEnvVarsInConfig(cfg)
	assert.Equal(t, "/secrets/cert.pem", cfg.TLS.CertFile)
}

func TestSubstituteEnvVarsInConfig_NilConfigIsNoop(t *testing.T) {
	assert.NotPanics(t, func() { SubstituteEnvVarsInConfig(nil) })
}

func TestGetEnvironment_DefaultsToDevelopment(t *testing.T) {
	os.Unsetenv("SHIP_ENV")
	os.Unsetenv("ENVIRONMENT")
	assert.Equal(t, "development", GetEnvironment())
}

func TestGetEnvironment_PrefersShipEnv(t *testing.T) {
	t.Setenv("SHIP_ENV", "Production")
	t.Setenv("ENVIRONMENT", "staging")
	assert.Equal(t, "production", GetEnvironment())
}

func TestIsProductionAndIsDevelopment(t *testing.T) {
	t.Setenv("SHIP_ENV", "production")
	assert.True(t, IsProduction())
	assert.False(t, IsDevelopment())

	t.Setenv("SHIP_ENV", "local")
	assert.False(t, IsProduction())
	assert.True(t, IsDevelopment())
}
