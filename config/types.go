// Package config provides configuration loading for ship-server and
// ship-client: listen/dial address, TLS material, CSH timer overrides,
// trust policy, logging, metrics, and health.
package config

import "time"

// Config is the top-level configuration shared by both roles; a given
// process only populates the sections it needs.
type Config struct {
	Environment string         `yaml:"environment" json:"environment"`
	Server      *ServerConfig  `yaml:"server,omitempty" json:"server,omitempty"`
	Client      *ClientConfig  `yaml:"client,omitempty" json:"client,omitempty"`
	TLS         *TLSConfig     `yaml:"tls" json:"tls"`
	CSH         *CSHConfig     `yaml:"csh" json:"csh"`
	Trust       *TrustConfig   `yaml:"trust" json:"trust"`
	Logging     *LoggingConfig `yaml:"logging" json:"logging"`
	Metrics     *MetricsConfig `yaml:"metrics" json:"metrics"`
	Health      *HealthConfig  `yaml:"health" json:"health"`
}

// ServerConfig configures the ship-server's WebSocket listener.
type ServerConfig struct {
	ListenAddr string `yaml:"listen_addr" json:"listen_addr"`
	Path       string `yaml:"path" json:"path"`
	ProtocolID int    `yaml:"protocol_id" json:"protocol_id"`
}

// ClientConfig configures ship-client's dial target.
type ClientConfig struct {
	DialAddr   string `yaml:"dial_addr" json:"dial_addr"`
	Path       string `yaml:"path" json:"path"`
	ProtocolID int    `yaml:"protocol_id" json:"protocol_id"`
}

// TLSConfig points at the certificate material used to serve/dial the
// WebSocket endpoint. The local SKI is not derived from it.
type TLSConfig struct {
	CertFile string `yaml:"cert_file" json:"cert_file"`
	KeyFile  string `yaml:"key_file" json:"key_file"`
	CAFile   string `yaml:"ca_file,omitempty" json:"ca_file,omitempty"`
}

// CSHConfig lets an operator shrink the protocol's default hello timers,
// primarily for integration testing against the production defaults of
// 120s/120s/30s/15s/1s.
type CSHConfig struct {
	HelloInit             time.Duration `yaml:"hello_init" json:"hello_init"`
	HelloIncrement        time.Duration `yaml:"hello_increment" json:"hello_increment"`
	ProlongationThreshold time.Duration `yaml:"prolongation_threshold" json:"prolongation_threshold"`
	ProlongationGap       time.Duration `yaml:"prolongation_gap" json:"prolongation_gap"`
	ProlongationMinimum   time.Duration `yaml:"prolongation_minimum" json:"prolongation_minimum"`
}

// TrustPolicy selects how a ship-server decides whether to trust a remote
// SKI it has never seen before.
type TrustPolicy string

const (
	// TrustPolicyManual prompts an operator (e.g. over a CLI or admin API)
	// and blocks until they decide.
	TrustPolicyManual TrustPolicy = "manual"
	// TrustPolicyAllowAll trusts every SKI on first contact. Intended for
	// local development only.
	TrustPolicyAllowAll TrustPolicy = "allow-all"
	// TrustPolicyDenyAll never trusts an unseen SKI; useful for servers
	// that only ever expect pre-provisioned peers via TrustRemote.
	TrustPolicyDenyAll TrustPolicy = "deny-all"
)

// TrustConfig configures the trust manager's default policy.
type TrustConfig struct {
	Policy TrustPolicy `yaml:"policy" json:"policy"`
}

// LoggingConfig configures internal/logger's default logger.
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level"`
	Output string `yaml:"output" json:"output"` // stdout, stderr, or a file path
}

// MetricsConfig configures the Prometheus /metrics endpoint.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled"`
	Port    int  `yaml:"port" json:"port"`
}

// HealthConfig configures the health check HTTP server.
type HealthConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled"`
	Port    int  `yaml:"port" json:"port"`
}
