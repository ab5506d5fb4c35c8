// Package enrichment provides the optional network-backed signal source:
// best-effort DNS posture checks for sender domains. Everything here runs
// behind a strict timeout and the caller treats failures as degraded
// analysis, never as a pipeline error.
package enrichment

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/miekg/dns"
	"go.uber.org/zap"

	"github.com/mikey/phishing-detector/internal/core"
)

// Resolver implements core.DomainIntel over plain DNS
type Resolver struct {
	servers []string
	client  *dns.Client
	logger  *zap.Logger
}

// NewResolver creates a resolver that queries the given servers in order
// until one answers
func NewResolver(servers []string, timeout time.Duration, logger *zap.Logger) *Resolver {
	return &Resolver{
		servers: servers,
		client:  &dns.Client{Timeout: timeout},
		logger:  logger,
	}
}

// Lookup gathers MX, SPF and DMARC presence for a domain
func (r *Resolver) Lookup(ctx context.Context, domain string) (*core.DomainInfo, error) {
	info := &core.DomainInfo{}

	mx, err := r.exchange(ctx, domain, dns.TypeMX)
	if err != nil {
		return nil, fmt.Errorf("failed to query MX for %s: %w", domain, err)
	}
	info.HasMX = len(mx.Answer) > 0

	if txts, err := r.lookupTXT(ctx, domain); err == nil {
		for _, txt := range txts {
			if strings.HasPrefix(txt, "v=spf1") {
				info.HasSPF = true
				break
			}
		}
	}

	if txts, err := r.lookupTXT(ctx, "_dmarc."+domain); err == nil {
		for _, txt := range txts {
			if strings.HasPrefix(txt, "v=DMARC1") {
				info.HasDMARC = true
				break
			}
		}
	}

	r.logger.Debug("domain intel collected",
		zap.String("domain", domain),
		zap.Bool("mx", info.HasMX),
		zap.Bool("spf", info.HasSPF),
		zap.Bool("dmarc", info.HasDMARC))
	return info, nil
}

func (r *Resolver) lookupTXT(ctx context.Context, name string) ([]string, error) {
	resp, err := r.exchange(ctx, name, dns.TypeTXT)
	if err != nil {
		return nil, err
	}
	var results []string
	for _, ans := range resp.Answer {
		if txt, ok := ans.(*dns.TXT); ok {
			results = append(results, txt.Txt...)
		}
	}
	return results, nil
}

func (r *Resolver) exchange(ctx context.Context, name string, qtype uint16) (*dns.Msg, error) {
	m := new(dns.Msg)
	m.SetQuestion(dns.Fqdn(name), qtype)

	var lastErr error
	for _, server := range r.servers {
		resp, _, err := r.client.ExchangeContext(ctx, m, server)
		if err != nil {
			lastErr = err
			continue
		}
		return resp, nil
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no DNS servers configured")
	}
	return nil, lastErr
}
