package analyzer

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/mikey/phishing-detector/internal/core"
)

// URLConfig holds the reference data for the URL analyzer
type URLConfig struct {
	Shorteners         []string
	SuspiciousTLDs     []string
	BrandDomains       []string
	SuspiciousKeywords []string
	EditDistance       int
	MaxSubdomains      int
	MaxLength          int
	MaxEscapes         int
	Severities         map[string]int
}

// URLAnalyzer inspects each extracted link for structural red flags
type URLAnalyzer struct {
	cfg        URLConfig
	shorteners map[string]struct{}
	rules      []rule[*urlContext]
	malformed  rule[*urlContext]
	logger     *zap.Logger
}

// urlContext is one parsed URL presented to the rule table
type urlContext struct {
	raw    string
	parsed *url.URL
	host   string // lowercased, no port
	domain string // registrable form
}

var escapeSeq = regexp.MustCompile(`%[0-9A-Fa-f]{2}`)

// NewURLAnalyzer creates a URL analyzer from configured reference data
func NewURLAnalyzer(cfg URLConfig, logger *zap.Logger) *URLAnalyzer {
	a := &URLAnalyzer{
		cfg:        cfg,
		shorteners: make(map[string]struct{}, len(cfg.Shorteners)),
		logger:     logger,
	}
	for _, s := range cfg.Shorteners {
		a.shorteners[strings.ToLower(strings.TrimSpace(s))] = struct{}{}
	}

	a.rules = []rule[*urlContext]{
		{
			id:          "url_shortener",
			severity:    severityOf(cfg.Severities, "url_shortener", 40),
			description: "Link shortener hides the real destination",
			match:       a.matchShortener,
		},
		{
			id:          "ip_literal_host",
			severity:    severityOf(cfg.Severities, "ip_literal_host", 60),
			description: "Host is a numeric IP address instead of a domain name",
			match:       matchIPLiteral,
		},
		{
			id:          "suspicious_tld",
			severity:    severityOf(cfg.Severities, "suspicious_tld", 30),
			description: "Domain uses a high-abuse top-level domain",
			match:       a.matchSuspiciousTLD,
		},
		{
			id:          "typosquatting",
			severity:    severityOf(cfg.Severities, "typosquatting", 70),
			description: "Domain is a small edit away from a protected brand domain",
			match:       a.matchTyposquatting,
		},
		{
			id:          "homograph_domain",
			severity:    severityOf(cfg.Severities, "homograph_domain", 70),
			description: "Domain uses lookalike characters to imitate a brand domain",
			match:       a.matchHomograph,
		},
		{
			id:          "url_obfuscation",
			severity:    severityOf(cfg.Severities, "url_obfuscation", 40),
			description: "URL is structured to obscure its real target",
			match:       a.matchObfuscation,
		},
		{
			id:          "suspicious_keyword_domain",
			severity:    severityOf(cfg.Severities, "suspicious_keyword_domain", 30),
			description: "Domain name baits with a credential-themed keyword",
			match:       a.matchSuspiciousKeyword,
		},
		{
			id:          "overlong_url",
			severity:    severityOf(cfg.Severities, "overlong_url", 20),
			description: "Unusually long URL",
			match:       a.matchOverlong,
		},
	}
	a.malformed = rule[*urlContext]{
		id:          "malformed_url",
		severity:    severityOf(cfg.Severities, "malformed_url", 40),
		description: "URL could not be parsed and cannot be vetted as benign",
	}
	return a
}

// Category returns the category this analyzer scores
func (a *URLAnalyzer) Category() core.Category {
	return core.CategoryURL
}

// Analyze evaluates every extracted URL independently. A rule contributes at
// most once per URL; multiple suspicious URLs each add to the sub-score.
func (a *URLAnalyzer) Analyze(_ context.Context, email *core.ParsedEmail) core.AnalysisResult {
	result := core.AnalysisResult{
		Category:     core.CategoryURL,
		Completeness: core.CompletenessFull,
	}
	if len(email.URLs) == 0 {
		return result
	}

	for _, raw := range email.URLs {
		c, err := parseURL(raw)
		if err != nil {
			result.Findings = append(result.Findings, core.Finding{
				Category:    core.CategoryURL,
				Indicator:   a.malformed.id,
				Severity:    a.malformed.severity,
				Description: a.malformed.description,
				Evidence:    raw,
			})
			continue
		}
		result.Findings = append(result.Findings, evalRules(core.CategoryURL, a.rules, c)...)
	}

	result.Score = sumSeverities(result.Findings)
	a.logger.Debug("URL analysis complete",
		zap.Int("urls", len(email.URLs)),
		zap.Int("findings", len(result.Findings)),
		zap.Float64("score", result.Score))
	return result
}

func parseURL(raw string) (*urlContext, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, err
	}
	if u.Host == "" {
		return nil, fmt.Errorf("url %q has no host", raw)
	}
	host := strings.ToLower(u.Hostname())
	return &urlContext{
		raw:    raw,
		parsed: u,
		host:   host,
		domain: registrableDomain(host),
	}, nil
}

// isBrandDomain reports whether the domain exactly matches a protected brand
func (a *URLAnalyzer) isBrandDomain(domain string) bool {
	for _, brand := range a.cfg.BrandDomains {
		if domain == brand {
			return true
		}
	}
	return false
}

func (a *URLAnalyzer) matchShortener(c *urlContext) (string, bool) {
	if _, ok := a.shorteners[c.host]; ok {
		return c.host, true
	}
	if _, ok := a.shorteners[c.domain]; ok {
		return c.domain, true
	}
	return "", false
}

func matchIPLiteral(c *urlContext) (string, bool) {
	if net.ParseIP(c.host) != nil {
		return c.host, true
	}
	return "", false
}

func (a *URLAnalyzer) matchSuspiciousTLD(c *urlContext) (string, bool) {
	for _, tld := range a.cfg.SuspiciousTLDs {
		if strings.HasSuffix(c.host, tld) {
			return tld, true
		}
	}
	return "", false
}

func (a *URLAnalyzer) matchTyposquatting(c *urlContext) (string, bool) {
	if a.isBrandDomain(c.domain) {
		return "", false
	}
	for _, brand := range a.cfg.BrandDomains {
		d := levenshtein(c.domain, brand)
		if d == 0 {
			continue
		}
		if d <= a.cfg.EditDistance {
			return fmt.Sprintf("%s resembles %s (distance %d)", c.domain, brand, d), true
		}
		// Also compare bare labels so paypa1.tk is caught against paypal.com
		ld := levenshtein(domainLabel(c.domain), domainLabel(brand))
		if ld > 0 && ld <= a.cfg.EditDistance {
			return fmt.Sprintf("%s resembles %s (distance %d)", c.domain, brand, ld), true
		}
	}
	return "", false
}

func (a *URLAnalyzer) matchHomograph(c *urlContext) (string, bool) {
	if a.isBrandDomain(c.domain) {
		return "", false
	}
	if mixesScripts(c.host) {
		return fmt.Sprintf("%s mixes character scripts", c.host), true
	}
	folded := foldConfusables(c.domain)
	if folded == c.domain {
		return "", false
	}
	for _, brand := range a.cfg.BrandDomains {
		if folded == brand || strings.Contains(domainLabel(folded), domainLabel(brand)) {
			return fmt.Sprintf("%s imitates %s", c.domain, brand), true
		}
	}
	return "", false
}

func (a *URLAnalyzer) matchObfuscation(c *urlContext) (string, bool) {
	var tricks []string
	if c.parsed.User != nil {
		tricks = append(tricks, "userinfo before host")
	}
	if strings.Contains(c.parsed.Host, "%") || len(escapeSeq.FindAllString(c.raw, -1)) > a.cfg.MaxEscapes {
		tricks = append(tricks, "heavy percent-encoding")
	}
	if strings.Count(c.host, ".") > a.cfg.MaxSubdomains {
		tricks = append(tricks, "excessive subdomains")
	}
	if len(tricks) == 0 {
		return "", false
	}
	return strings.Join(tricks, ", "), true
}

func (a *URLAnalyzer) matchSuspiciousKeyword(c *urlContext) (string, bool) {
	if a.isBrandDomain(c.domain) {
		return "", false
	}
	for _, kw := range a.cfg.SuspiciousKeywords {
		if strings.Contains(c.host, kw) {
			return kw, true
		}
	}
	return "", false
}

func (a *URLAnalyzer) matchOverlong(c *urlContext) (string, bool) {
	if a.cfg.MaxLength > 0 && len(c.raw) > a.cfg.MaxLength {
		return fmt.Sprintf("%d characters", len(c.raw)), true
	}
	return "", false
}
