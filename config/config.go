package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// LoadFromFile loads configuration from a YAML (or, failing that, JSON)
// file and applies defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		if jsonErr := json.Unmarshal(data, cfg); jsonErr != nil {
			return nil, fmt.Errorf("failed to parse config file (tried YAML and JSON): %w", err)
		}
	}

	setDefaults(cfg)
	return cfg, nil
}

// SaveToFile saves configuration to a file, choosing the format by file
// extension (".json" or else YAML).
func SaveToFile(cfg *Config, path string) error {
	var data []byte
	var err error

	if strings.HasSuffix(path, ".json") {
		data, err = json.MarshalIndent(cfg, "", "  ")
	} else {
		data, err = yaml.Marshal(cfg)
	}
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// setDefaults fills in the zero-value fields of a freshly loaded Config.
func setDefaults(cfg *Config) {
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}

	if cfg.TLS == nil {
		cfg.TLS = &TLSConfig{}
	}

	if cfg.CSH == nil {
		cfg.CSH = &CSHConfig{}
	}
	if cfg.CSH.HelloInit == 0 {
		cfg.CSH.HelloInit = 120 * time.Second
	}
	if cfg.CSH.HelloIncrement == 0 {
		cfg.CSH.HelloIncrement = 120 * time.Second
	}
	if cfg.CSH.ProlongationThreshold == 0 {
		cfg.CSH.ProlongationThreshold = 30 * time.Second
	}
	if cfg.CSH.ProlongationGap == 0 {
		cfg.CSH.ProlongationGap = 15 * time.Second
	}
	if cfg.CSH.ProlongationMinimum == 0 {
		cfg.CSH.ProlongationMinimum = 1 * time.Second
	}

	if cfg.Trust == nil {
		cfg.Trust = &TrustConfig{}
	}
	if cfg.Trust.Policy == "" {
		cfg.Trust.Policy = TrustPolicyManual
	}

	if cfg.Logging == nil {
		cfg.Logging = &LoggingConfig{}
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}

	if cfg.Metrics == nil {
		cfg.Metrics = &MetricsConfig{}
	}
	if cfg.Metrics.Port == 0 {
		cfg.Metrics.Port = 9090
	}

	if cfg.Health == nil {
		cfg.Health = &HealthConfig{}
	}
	if cfg.Health.Port == 0 {
		cfg.Health.Port = 8080
	}

	if cfg.Server != nil {
		if cfg.Server.ListenAddr == "" {
			cfg.Server.ListenAddr = ":4712"
		}
		if cfg.Server.Path == "" {
			cfg.Server.Path = "/ship/"
		}
	}

	if cfg.Client != nil {
		if cfg.Client.Path == "" {
			cfg.Client.Path = "/ship/"
		}
	}
}
