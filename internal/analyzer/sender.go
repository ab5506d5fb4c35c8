package analyzer

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	"go.uber.org/zap"

	"github.com/mikey/phishing-detector/internal/core"
)

// SenderConfig holds the reference data for the sender analyzer
type SenderConfig struct {
	BrandDomains  []string
	FreeProviders []string
	OrgKeywords   []string
	EditDistance  int
	Severities    map[string]int
}

// SenderAnalyzer inspects the sender identity for spoofing red flags. When a
// DomainIntel source is configured it adds best-effort DNS signals; a failed
// or timed-out lookup degrades completeness instead of blocking.
type SenderAnalyzer struct {
	cfg    SenderConfig
	intel  core.DomainIntel
	rules  []rule[*senderContext]
	logger *zap.Logger
}

type senderContext struct {
	name        string // lowercased display name
	address     string
	local       string // part before the @
	domain      string // registrable from-domain
	replyDomain string
	parseErr    error
}

// NewSenderAnalyzer creates a sender analyzer. intel may be nil to disable
// network enrichment.
func NewSenderAnalyzer(cfg SenderConfig, intel core.DomainIntel, logger *zap.Logger) *SenderAnalyzer {
	a := &SenderAnalyzer{cfg: cfg, intel: intel, logger: logger}
	a.rules = []rule[*senderContext]{
		{
			id:          "invalid_address",
			severity:    severityOf(cfg.Severities, "invalid_address", 60),
			description: "Sender address fails address-grammar validation",
			match:       matchInvalidAddress,
		},
		{
			id:          "display_name_mismatch",
			severity:    severityOf(cfg.Severities, "display_name_mismatch", 70),
			description: "Display name implies a brand the sender domain does not belong to",
			match:       a.matchDisplayNameMismatch,
		},
		{
			id:          "free_provider_org",
			severity:    severityOf(cfg.Severities, "free_provider_org", 40),
			description: "Organization-sounding sender using a consumer email provider",
			match:       a.matchFreeProviderOrg,
		},
		{
			id:          "replyto_mismatch",
			severity:    severityOf(cfg.Severities, "replyto_mismatch", 40),
			description: "Reply-To routes responses to a different domain",
			match:       matchReplyToMismatch,
		},
		{
			id:          "lookalike_domain",
			severity:    severityOf(cfg.Severities, "lookalike_domain", 70),
			description: "Sender domain is a near-miss of a protected brand domain",
			match:       a.matchLookalikeDomain,
		},
		{
			id:          "suspicious_local_part",
			severity:    severityOf(cfg.Severities, "suspicious_local_part", 20),
			description: "Sender local part looks machine generated",
			match:       matchSuspiciousLocalPart,
		},
	}
	return a
}

// Category returns the category this analyzer scores
func (a *SenderAnalyzer) Category() core.Category {
	return core.CategorySender
}

// Analyze evaluates the sender identity rule table
func (a *SenderAnalyzer) Analyze(ctx context.Context, email *core.ParsedEmail) core.AnalysisResult {
	result := core.AnalysisResult{
		Category:     core.CategorySender,
		Completeness: core.CompletenessFull,
	}

	c := &senderContext{
		name:        strings.ToLower(strings.TrimSpace(email.SenderName)),
		address:     strings.TrimSpace(email.SenderAddress),
		local:       addressLocalPart(email.SenderAddress),
		domain:      registrableDomain(addressDomain(email.SenderAddress)),
		replyDomain: registrableDomain(addressDomain(email.ReplyTo)),
	}
	if _, err := mail.ParseAddress(c.address); err != nil {
		c.parseErr = err
	}

	result.Findings = evalRules(core.CategorySender, a.rules, c)

	if a.intel != nil && c.domain != "" {
		result.Findings, result.Completeness = a.enrich(ctx, c, result.Findings)
	}

	result.Score = sumSeverities(result.Findings)
	a.logger.Debug("sender analysis complete",
		zap.String("domain", c.domain),
		zap.Int("findings", len(result.Findings)),
		zap.Float64("score", result.Score))
	return result
}

// enrich folds DNS signals into the findings. Errors only degrade the
// completeness flag; the local sub-score stands.
func (a *SenderAnalyzer) enrich(ctx context.Context, c *senderContext, findings []core.Finding) ([]core.Finding, core.Completeness) {
	info, err := a.intel.Lookup(ctx, c.domain)
	if err != nil {
		a.logger.Warn("domain intel lookup failed, proceeding with local signals",
			zap.String("domain", c.domain),
			zap.Error(err))
		return findings, core.CompletenessDegraded
	}
	if !info.HasMX {
		findings = append(findings, core.Finding{
			Category:    core.CategorySender,
			Indicator:   "no_mail_infrastructure",
			Severity:    severityOf(a.cfg.Severities, "no_mail_infrastructure", 30),
			Description: "Sender domain has no MX records",
			Evidence:    c.domain,
		})
	}
	if !info.HasSPF && !info.HasDMARC {
		findings = append(findings, core.Finding{
			Category:    core.CategorySender,
			Indicator:   "no_sender_policy",
			Severity:    severityOf(a.cfg.Severities, "no_sender_policy", 20),
			Description: "Sender domain publishes neither SPF nor DMARC",
			Evidence:    c.domain,
		})
	}
	return findings, core.CompletenessFull
}

func matchInvalidAddress(c *senderContext) (string, bool) {
	if c.parseErr == nil {
		return "", false
	}
	if c.address == "" {
		return "empty sender address", true
	}
	return fmt.Sprintf("%s: %v", c.address, c.parseErr), true
}

// impliedBrand returns the first protected brand whose name appears in the
// display name
func (a *SenderAnalyzer) impliedBrand(c *senderContext) string {
	if c.name == "" {
		return ""
	}
	for _, brand := range a.cfg.BrandDomains {
		if strings.Contains(c.name, domainLabel(brand)) {
			return brand
		}
	}
	return ""
}

func (a *SenderAnalyzer) matchDisplayNameMismatch(c *senderContext) (string, bool) {
	brand := a.impliedBrand(c)
	if brand == "" || c.domain == brand {
		return "", false
	}
	return fmt.Sprintf("name implies %s but address is from %s", domainLabel(brand), c.domain), true
}

func (a *SenderAnalyzer) matchFreeProviderOrg(c *senderContext) (string, bool) {
	if c.name == "" || c.domain == "" {
		return "", false
	}
	free := false
	for _, provider := range a.cfg.FreeProviders {
		if c.domain == provider {
			free = true
			break
		}
	}
	if !free {
		return "", false
	}
	for _, kw := range a.cfg.OrgKeywords {
		if strings.Contains(c.name, kw) {
			return fmt.Sprintf("%q sends from %s", c.name, c.domain), true
		}
	}
	return "", false
}

func matchReplyToMismatch(c *senderContext) (string, bool) {
	if c.replyDomain == "" || c.domain == "" || c.replyDomain == c.domain {
		return "", false
	}
	return fmt.Sprintf("from %s, replies go to %s", c.domain, c.replyDomain), true
}

// matchSuspiciousLocalPart flags local parts that are mostly digits, a
// hallmark of throwaway accounts on bulk-registered domains
func matchSuspiciousLocalPart(c *senderContext) (string, bool) {
	if len(c.local) < 8 {
		return "", false
	}
	digits := 0
	for _, r := range c.local {
		if r >= '0' && r <= '9' {
			digits++
		}
	}
	if digits*2 < len(c.local) {
		return "", false
	}
	return fmt.Sprintf("%s is %d/%d digits", c.local, digits, len(c.local)), true
}

func (a *SenderAnalyzer) matchLookalikeDomain(c *senderContext) (string, bool) {
	if c.domain == "" {
		return "", false
	}
	folded := foldConfusables(c.domain)
	for _, brand := range a.cfg.BrandDomains {
		if c.domain == brand {
			// Exact brand domain is the real thing
			return "", false
		}
	}
	for _, brand := range a.cfg.BrandDomains {
		if d := levenshtein(c.domain, brand); d > 0 && d <= a.cfg.EditDistance {
			return fmt.Sprintf("%s resembles %s (distance %d)", c.domain, brand, d), true
		}
		if d := levenshtein(domainLabel(c.domain), domainLabel(brand)); d > 0 && d <= a.cfg.EditDistance {
			return fmt.Sprintf("%s resembles %s (distance %d)", c.domain, brand, d), true
		}
		if folded != c.domain && (folded == brand || strings.Contains(domainLabel(folded), domainLabel(brand))) {
			return fmt.Sprintf("%s imitates %s", c.domain, brand), true
		}
	}
	if mixesScripts(c.domain) {
		return fmt.Sprintf("%s mixes character scripts", c.domain), true
	}
	return "", false
}
