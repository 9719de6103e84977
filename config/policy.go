package config

import (
	"fmt"

	"github.com/flexiblepower/shipproto-go/internal/logger"
	"github.com/flexiblepower/shipproto-go/pkg/ship/trust"
)

// TrustListenerForPolicy builds the trust.Listener a ship-server should pass
// to trust.NewManager, selected by the configured TrustPolicy. log is used
// to record the decision; prompt is invoked only for TrustPolicyManual and
// is usually an interactive stdin prompt (nil falls back to always denying,
// matching trust.NewManager's own nil-listener behavior).
func TrustListenerForPolicy(policy TrustPolicy, log logger.Logger, prompt func(ski string) bool) trust.Listener {
	switch policy {
	case TrustPolicyAllowAll:
		return func(ski string) bool {
			log.Warn("trusting SKI under allow-all policy", logger.String("ski", ski))
			return true
		}
	case TrustPolicyDenyAll:
		return func(ski string) bool {
			log.Info("denying SKI under deny-all policy", logger.String("ski", ski))
			return false
		}
	case TrustPolicyManual:
		return func(ski string) bool {
			if prompt == nil {
				log.Warn("no prompt configured for manual trust policy, denying", logger.String("ski", ski))
				return false
			}
			decision := prompt(ski)
			log.Info("manual trust decision", logger.String("ski", ski), logger.Bool("trusted", decision))
			return decision
		}
	default:
		panic(fmt.Sprintf("unknown trust policy %q", policy))
	}
}
