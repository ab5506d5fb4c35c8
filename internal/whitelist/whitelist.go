// Package whitelist short-circuits analysis for sender domains the operator
// explicitly trusts.
package whitelist

import (
	"strings"

	"go.uber.org/zap"
)

// Checker reports whether a sender address belongs to a trusted domain
type Checker struct {
	domains []string
	logger  *zap.Logger
}

// NewChecker creates a new whitelist checker
func NewChecker(domains []string, logger *zap.Logger) *Checker {
	normalized := make([]string, len(domains))
	for i, domain := range domains {
		normalized[i] = strings.ToLower(strings.TrimSpace(domain))
	}

	if len(normalized) > 0 && logger != nil {
		logger.Info("initialized trusted domain list", zap.Strings("domains", normalized))
	}

	return &Checker{
		domains: normalized,
		logger:  logger,
	}
}

// IsWhitelisted checks if the sender's domain is in the trusted list
func (c *Checker) IsWhitelisted(address string) bool {
	if len(c.domains) == 0 {
		return false
	}

	parts := strings.Split(address, "@")
	if len(parts) != 2 {
		return false
	}
	domain := strings.ToLower(parts[1])

	for _, trusted := range c.domains {
		if trusted == domain {
			if c.logger != nil {
				c.logger.Debug("sender domain is trusted",
					zap.String("domain", domain),
					zap.String("address", address))
			}
			return true
		}
	}

	return false
}
