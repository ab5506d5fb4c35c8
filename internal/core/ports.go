package core

import (
	"context"
)

// Analyzer inspects one structural aspect of an email. Implementations must
// be stateless and safe for concurrent use; they receive an immutable
// ParsedEmail and return a bounded sub-score plus findings.
type Analyzer interface {
	// Category returns the category this analyzer scores
	Category() Category

	// Analyze evaluates the email and returns the category result. It never
	// fails the pipeline: unexpected conditions become findings and, when the
	// sub-score is unreliable, a degraded completeness flag.
	Analyze(ctx context.Context, email *ParsedEmail) AnalysisResult
}

// VerdictCache stores previously computed reports keyed by a content hash of
// the originating email
type VerdictCache interface {
	// Get retrieves a cached verdict for a content hash
	Get(ctx context.Context, key string) (*CachedVerdict, error)

	// Set stores a verdict
	Set(ctx context.Context, verdict *CachedVerdict) error

	// Delete removes a verdict
	Delete(ctx context.Context, key string) error

	// Cleanup removes expired verdicts
	Cleanup(ctx context.Context) error
}

// DomainInfo carries best-effort DNS signals for a domain
type DomainInfo struct {
	HasMX    bool
	HasSPF   bool
	HasDMARC bool
}

// DomainIntel is an optional network-backed signal source. Lookups must
// honor the context deadline; callers treat any error as a degraded signal,
// never as a pipeline failure.
type DomainIntel interface {
	Lookup(ctx context.Context, domain string) (*DomainInfo, error)
}
