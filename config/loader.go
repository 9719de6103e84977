package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// LoaderOptions configures the configuration loader.
type LoaderOptions struct {
	// ConfigDir is the directory containing config files (default: "config").
	ConfigDir string
	// Environment overrides automatic environment detection.
	Environment string
	// SkipEnvSubstitution disables ${VAR} substitution.
	SkipEnvSubstitution bool
	// SkipValidation disables configuration validation.
	SkipValidation bool
}

// DefaultLoaderOptions returns default loader options.
func DefaultLoaderOptions() LoaderOptions {
	return LoaderOptions{ConfigDir: "config"}
}

// Load loads configuration with automatic environment detection: it tries
// <dir>/<env>.yaml, then <dir>/default.yaml, then <dir>/config.yaml, and
// finally falls back to an all-defaults Config if none are found.
func Load(opts ...LoaderOptions) (*Config, error) {
	options := DefaultLoaderOptions()
	if len(opts) > 0 {
		options = opts[0]
	}

	env := options.Environment
	if env == "" {
		env = GetEnvironment()
	}

	cfg, err := loadConfigFile(filepath.Join(options.ConfigDir, fmt.Sprintf("%s.yaml", env)))
	if err != nil {
		cfg, err = loadConfigFile(filepath.Join(options.ConfigDir, "default.yaml"))
		if err != nil {
			cfg, err = loadConfigFile(filepath.Join(options.ConfigDir, "config.yaml"))
			if err != nil {
				cfg = &Config{}
			}
		}
	}

	if cfg.Environment == "" {
		cfg.Environment = env
	}
	setDefaults(cfg)

	if !options.SkipEnvSubstitution {
		SubstituteEnvVarsInConfig(cfg)
	}
	applyEnvironmentOverrides(cfg)

	if !options.SkipValidation {
		issues := ValidateConfiguration(cfg)
		for _, issue := range issues {
			if issue.Level == ValidationError {
				return nil, fmt.Errorf("configuration validation failed: %s", issue)
			}
		}
	}

	return cfg, nil
}

func loadConfigFile(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", path)
	}
	return LoadFromFile(path)
}

// applyEnvironmentOverrides overrides config fields from environment
// variables, taking priority over both the file and ${VAR} substitution.
func applyEnvironmentOverrides(cfg *Config) {
	if addr := os.Getenv("SHIP_SERVER_LISTEN_ADDR"); addr != "" && cfg.Server != nil {
		cfg.Server.ListenAddr = addr
	}
	if addr := os.Getenv("SHIP_CLIENT_DIAL_ADDR"); addr != "" && cfg.Client != nil {
		cfg.Client.DialAddr = addr
	}

	if cert := os.Getenv("SHIP_TLS_CERT_FILE"); cert != "" && cfg.TLS != nil {
		cfg.TLS.CertFile = cert
	}
	if key := os.Getenv("SHIP_TLS_KEY_FILE"); key != "" && cfg.TLS != nil {
		cfg.TLS.KeyFile = key
	}

	if policy := os.Getenv("SHIP_TRUST_POLICY"); policy != "" && cfg.Trust != nil {
		cfg.Trust.Policy = TrustPolicy(policy)
	}

	if level := os.Getenv("SHIP_LOG_LEVEL"); level != "" && cfg.Logging != nil {
		cfg.Logging.Level = level
	}

	if os.Getenv("SHIP_METRICS_ENABLED") == "true" && cfg.Metrics != nil {
		cfg.Metrics.Enabled = true
	}
	if os.Getenv("SHIP_METRICS_ENABLED") == "false" && cfg.Metrics != nil {
		cfg.Metrics.Enabled = false
	}
}

// LoadForEnvironment loads configuration for a specific named environment.
func LoadForEnvironment(environment string) (*Config, error) {
	return Load(LoaderOptions{ConfigDir: "config", Environment: environment})
}

// MustLoad loads configuration or panics on error.
func MustLoad(opts ...LoaderOptions) *Config {
	cfg, err := Load(opts...)
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}
