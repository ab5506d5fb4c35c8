package core

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// ReportBuilder reduces the per-category results into a report. Implemented
// by the scoring package.
type ReportBuilder interface {
	BuildReport(email *ParsedEmail, results map[Category]AnalysisResult) *Report
}

// SenderWhitelist short-circuits analysis for trusted sender domains
type SenderWhitelist interface {
	IsWhitelisted(address string) bool
}

// AnalysisService is the detection engine: it fans the email out to the four
// analyzers, waits for all of them (or the deadline) and reduces the results
// into a report. The service holds no per-email state; a report is fully
// determined by the email and the configuration.
type AnalysisService struct {
	analyzers    []Analyzer
	builder      ReportBuilder
	cache        VerdictCache
	whitelist    SenderWhitelist
	logger       *zap.Logger
	cacheEnabled bool
	cacheTTL     time.Duration
	timeout      time.Duration
}

// NewAnalysisService creates the engine. cache and whitelist may be nil.
func NewAnalysisService(
	analyzers []Analyzer,
	builder ReportBuilder,
	cache VerdictCache,
	whitelist SenderWhitelist,
	logger *zap.Logger,
	cacheEnabled bool,
	cacheTTL time.Duration,
	timeout time.Duration,
) *AnalysisService {
	return &AnalysisService{
		analyzers:    analyzers,
		builder:      builder,
		cache:        cache,
		whitelist:    whitelist,
		logger:       logger,
		cacheEnabled: cacheEnabled,
		cacheTTL:     cacheTTL,
		timeout:      timeout,
	}
}

// Analyze runs the full pipeline over one email. The only error it returns
// is input validation; every other failure degrades into the report.
func (s *AnalysisService) Analyze(ctx context.Context, email *ParsedEmail) (*Report, error) {
	if err := email.Validate(); err != nil {
		return nil, err
	}

	if s.whitelist != nil && s.whitelist.IsWhitelisted(email.SenderAddress) {
		s.logger.Info("skipping analysis for whitelisted sender",
			zap.String("sender", email.SenderAddress))
		return whitelistedReport(), nil
	}

	key := Fingerprint(email)
	if s.cacheEnabled && s.cache != nil {
		if verdict, err := s.cache.Get(ctx, key); err == nil && verdict.Report != nil {
			s.logger.Debug("verdict cache hit", zap.String("key", key))
			return verdict.Report, nil
		}
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	report := s.builder.BuildReport(email, s.runAnalyzers(ctx, email))

	if s.cacheEnabled && s.cache != nil {
		verdict := &CachedVerdict{
			Key:       key,
			Score:     report.TotalScore,
			Level:     report.ThreatLevel,
			Report:    report,
			LastSeen:  time.Now(),
			ExpiresAt: time.Now().Add(s.cacheTTL),
		}
		if err := s.cache.Set(ctx, verdict); err != nil {
			s.logger.Error("failed to update verdict cache", zap.Error(err))
		}
	}

	return report, nil
}

// runAnalyzers fans out to all analyzers and joins on completion or the
// pipeline deadline. An analyzer that misses the deadline is recorded as
// unavailable so the degradation is never silent.
func (s *AnalysisService) runAnalyzers(ctx context.Context, email *ParsedEmail) map[Category]AnalysisResult {
	resultCh := make(chan AnalysisResult, len(s.analyzers))
	for _, a := range s.analyzers {
		go func(a Analyzer) {
			resultCh <- a.Analyze(ctx, email)
		}(a)
	}

	results := make(map[Category]AnalysisResult, len(s.analyzers))
collect:
	for range s.analyzers {
		select {
		case r := <-resultCh:
			results[r.Category] = r
		case <-ctx.Done():
			s.logger.Warn("analysis deadline exceeded, degrading report",
				zap.Error(ctx.Err()))
			break collect
		}
	}

	for _, a := range s.analyzers {
		if _, ok := results[a.Category()]; !ok {
			results[a.Category()] = AnalysisResult{
				Category:     a.Category(),
				Completeness: CompletenessUnavailable,
			}
		}
	}
	return results
}

// whitelistedReport is the short-circuit result for trusted sender domains
func whitelistedReport() *Report {
	report := &Report{
		TotalScore:   0,
		ThreatLevel:  ThreatSafe,
		Completeness: CompletenessFull,
		Recommendations: []string{
			"Sender domain is on the trusted list; heuristic analysis was skipped",
		},
	}
	for _, c := range Categories {
		result := AnalysisResult{Category: c, Completeness: CompletenessFull}
		switch c {
		case CategoryURL:
			report.URL = result
		case CategoryContent:
			report.Content = result
		case CategorySender:
			report.Sender = result
		case CategoryAttachment:
			report.Attachment = result
		}
	}
	return report
}

// Fingerprint derives a stable content hash for an email, used as the
// verdict cache key. Identical inputs produce identical reports, so caching
// by fingerprint cannot change what a caller observes.
func Fingerprint(email *ParsedEmail) string {
	h := sha256.New()
	field := func(s string) {
		h.Write([]byte(s))
		h.Write([]byte{0})
	}
	field(email.SenderName)
	field(email.SenderAddress)
	field(email.ReplyTo)
	field(email.Subject)
	field(email.BodyText)
	field(email.BodyHTML)
	for _, u := range email.URLs {
		field(u)
	}
	for _, a := range email.Attachments {
		fmt.Fprintf(h, "%s|%s|%d|%t|%t", a.Filename, a.ContentType, a.Size, a.Encrypted, a.HasMacros)
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
