package config

import (
	"os"
	"regexp"
	"strings"
)

// envVarPattern matches ${VAR} or ${VAR:default}.
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(?::([^}]*))?\}`)

// SubstituteEnvVars replaces ${VAR} or ${VAR:default} with environment
// variable values.
func SubstituteEnvVars(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		parts := envVarPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		varName := parts[1]
		defaultValue := ""
		if len(parts) > 2 {
			defaultValue = parts[2]
		}

		if value := os.Getenv(varName); value != "" {
			return value
		}
		return defaultValue
	})
}

// SubstituteEnvVarsInConfig recursively substitutes environment variables
// in the string fields of a Config that plausibly carry them (paths,
// addresses).
func SubstituteEnvVarsInConfig(cfg *Config) {
	if cfg == nil {
		return
	}

	if cfg.Server != nil {
		cfg.Server.ListenAddr = SubstituteEnvVars(cfg.Server.ListenAddr)
	}
	if cfg.Client != nil {
		cfg.Client.DialAddr = SubstituteEnvVars(cfg.Client.DialAddr)
	}
	if cfg.TLS != nil {
		cfg.TLS.CertFile = SubstituteEnvVars(cfg.TLS.CertFile)
		cfg.TLS.KeyFile = SubstituteEnvVars(cfg.TLS.KeyFile)
		cfg.TLS.CAFile = SubstituteEnvVars(cfg.TLS.CAFile)
	}
	if cfg.Logging != nil {
		cfg.Logging.Level = SubstituteEnvVars(cfg.Logging.Level)
		cfg.Logging.Output = SubstituteEnvVars(cfg.Logging.Output)
	}
}

// GetEnvironment returns the current environment from SHIP_ENV or
// ENVIRONMENT, defaulting to "development".
func GetEnvironment() string {
	env := os.Getenv("SHIP_ENV")
	if env == "" {
		env = os.Getenv("ENVIRONMENT")
	}
	if env == "" {
		env = "development"
	}
	return strings.ToLower(env)
}

// IsProduction reports whether the current environment is production.
func IsProduction() bool {
	return GetEnvironment() == "production"
}

// IsDevelopment reports whether the current environment is development
// or local.
func IsDevelopment() bool {
	env := GetEnvironment()
	return env == "development" || env == "local"
}
