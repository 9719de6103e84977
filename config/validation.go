package config

import "fmt"

// ValidationLevel distinguishes a hard failure from an advisory warning.
type ValidationLevel string

const (
	ValidationError   ValidationLevel = "error"
	ValidationWarning ValidationLevel = "warning"
)

// Issue is a single validation finding against a Config.
type Issue struct {
	Field   string
	Message string
	Level   ValidationLevel
}

func (i Issue) String() string {
	return fmt.Sprintf("%s: %s (%s)", i.Field, i.Message, i.Level)
}

// ValidateConfiguration checks a Config for internal consistency. It never
// mutates cfg; Load applies setDefaults first so most zero-value fields are
// already filled in by the time this runs.
func ValidateConfiguration(cfg *Config) []Issue {
	var issues []Issue

	if cfg.TLS == nil || cfg.TLS.CertFile == "" {
		issues = append(issues, Issue{"tls.cert_file", "certificate file is required", ValidationError})
	}
	if cfg.TLS == nil || cfg.TLS.KeyFile == "" {
		issues = append(issues, Issue{"tls.key_file", "key file is required", ValidationError})
	}

	if cfg.Server == nil && cfg.Client == nil {
		issues = append(issues, Issue{"server/client", "at least one of server or client must be configured", ValidationError})
	}
	if cfg.Server != nil && cfg.Server.ListenAddr == "" {
		issues = append(issues, Issue{"server.listen_addr", "listen address is required", ValidationError})
	}
	if cfg.Client != nil && cfg.Client.DialAddr == "" {
		issues = append(issues, Issue{"client.dial_addr", "dial address is required", ValidationError})
	}

	if cfg.CSH != nil {
		if cfg.CSH.ProlongationGap >= cfg.CSH.HelloInit {
			issues = append(issues, Issue{"csh.prolongation_gap", "prolongation gap should be smaller than the hello timeout", ValidationWarning})
		}
		if cfg.CSH.ProlongationMinimum <= 0 {
			issues = append(issues, Issue{"csh.prolongation_minimum", "must be positive", ValidationError})
		}
	}

	if cfg.Trust != nil {
		switch cfg.Trust.Policy {
		case TrustPolicyManual, TrustPolicyAllowAll, TrustPolicyDenyAll:
		default:
			issues = append(issues, Issue{"trust.policy", fmt.Sprintf("unknown trust policy %q", cfg.Trust.Policy), ValidationError})
		}
	}

	if cfg.Logging != nil {
		switch cfg.Logging.Level {
		case "debug", "info", "warn", "error":
		default:
			issues = append(issues, Issue{"logging.level", fmt.Sprintf("unknown log level %q", cfg.Logging.Level), ValidationWarning})
		}
	}

	if cfg.Metrics != nil && cfg.Metrics.Enabled && cfg.Metrics.Port <= 0 {
		issues = append(issues, Issue{"metrics.port", "must be set when metrics are enabled", ValidationError})
	}
	if cfg.Health != nil && cfg.Health.Enabled && cfg.Health.Port <= 0 {
		issues = append(issues, Issue{"health.port", "must be set when health is enabled", ValidationError})
	}

	return issues
}
