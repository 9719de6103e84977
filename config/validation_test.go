package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func issueFields(issues []Issue) []string {
	out := make([]string, len(issues))
	for i, issue := range issues {
		out[i] = issue.Field
	}
	return out
}

func TestValidateConfiguration_CompleteConfigHasNoErrors(t *testing.T) {
	cfg := &Config{
		Server: &ServerConfig{ListenAddr: ":4712"},
		TLS:    &TLSConfig{CertFile: "c.pem", KeyFile: "k.pem"},
	}
	setDefaults(cfg)

	issues := ValidateConfiguration(cfg)
	for _, issue := range issues {
		assert.NotEqual(t, ValidationError, issue.Level, issue.String())
	}
}

func TestValidateConfiguration_MissingTLSIsError(t *testing.T) {
	cfg := &Config{Server: &ServerConfig{ListenAddr: ":1"}}
	setDefaults(cfg)

	issues := ValidateConfiguration(cfg)
	assert.Contains(t, issueFields(issues), "tls.cert_file")
	assert.Contains(t, issueFields(issues), "tls.key_file")
}

func TestValidateConfiguration_NeitherServerNorClientIsError(t *testing.T) {
	cfg := &Config{TLS: &TLSConfig{CertFile: "c", KeyFile: "k"}}
	setDefaults(cfg)

	issues := ValidateConfiguration(cfg)
	assert.Contains(t, issueFields(issues), "server/client")
}

func TestValidateConfiguration_UnknownTrustPolicyIsError(t *testing.T) {
	cfg := &Config{
		Server: &ServerConfig{ListenAddr: ":1"},
		TLS:    &TLSConfig{CertFile: "c", KeyFile: "k"},
		Trust:  &TrustConfig{Policy: "whatever"},
	}
	setDefaults(cfg)

	issues := ValidateConfiguration(cfg)
	assert.Contains(t, issueFields(issues), "trust.policy")
}

func TestValidateConfiguration_ProlongationGapNotSmallerThanHelloInitWarns(t *testing.T) {
	cfg := &Config{
		Server: &ServerConfig{ListenAddr: ":1"},
		TLS:    &TLSConfig{CertFile: "c", KeyFile: "k"},
		CSH:    &CSHConfig{HelloInit: 10, ProlongationGap: 20, ProlongationMinimum: 1},
	}
	setDefaults(cfg)

	issues := ValidateConfiguration(cfg)
	assert.Contains(t, issueFields(issues), "csh.prolongation_gap")
}
