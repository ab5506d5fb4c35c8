package core_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mikey/phishing-detector/internal/config"
	"github.com/mikey/phishing-detector/internal/core"
	"github.com/mikey/phishing-detector/internal/factory"
	"github.com/mikey/phishing-detector/internal/whitelist"
)

// newTestService wires the real analyzers and scorer from default
// configuration, without cache or network enrichment
func newTestService(t *testing.T, trustedDomains ...string) *core.AnalysisService {
	t.Helper()
	logger := zap.NewNop()
	cfg := config.NewFromViper(config.NewEmptyViper())
	f := factory.NewAnalyzerFactory(cfg, logger)

	analyzers, err := f.CreateAnalyzers()
	require.NoError(t, err)

	return core.NewAnalysisService(
		analyzers,
		f.CreateScorer(),
		nil,
		whitelist.NewChecker(trustedDomains, logger),
		logger,
		false,
		0,
		5*time.Second,
	)
}

func cleanEmail() *core.ParsedEmail {
	return &core.ParsedEmail{
		SenderName:    "Alice Smith",
		SenderAddress: "alice@example.com",
		Subject:       "Meeting notes",
		BodyText:      "Hi Bob, attaching the notes from Tuesday. See you next week.",
		URLs:          []string{},
		Attachments:   []core.Attachment{},
	}
}

func TestAnalyzeCleanEmail(t *testing.T) {
	svc := newTestService(t)

	report, err := svc.Analyze(context.Background(), cleanEmail())

	require.NoError(t, err)
	assert.Equal(t, 0.0, report.TotalScore)
	assert.Equal(t, core.ThreatSafe, report.ThreatLevel)
	assert.Equal(t, core.CompletenessFull, report.Completeness)
	assert.Empty(t, report.Findings())
}

func TestAnalyzeShortenedLinkOnly(t *testing.T) {
	svc := newTestService(t)
	email := cleanEmail()
	email.URLs = []string{"https://bit.ly/3xYzAbC"}

	report, err := svc.Analyze(context.Background(), email)

	require.NoError(t, err)
	require.Len(t, report.URL.Findings, 1)
	assert.Equal(t, "url_shortener", report.URL.Findings[0].Indicator)
	assert.InDelta(t, 10.0, report.TotalScore, 1e-9)
	assert.Equal(t, core.ThreatLow, report.ThreatLevel)
}

func TestAnalyzeBrandSpoofEmail(t *testing.T) {
	svc := newTestService(t)
	email := &core.ParsedEmail{
		SenderName:    "PayPal Security",
		SenderAddress: "support@paypa1-security.tk",
		Subject:       "Unusual activity on your account",
		BodyText:      "Your account has been suspended. Verify your password immediately at the link below.",
		URLs:          []string{"http://paypa1-security.tk/login"},
		Attachments:   []core.Attachment{},
	}

	report, err := svc.Analyze(context.Background(), email)

	require.NoError(t, err)
	assert.GreaterOrEqual(t, report.TotalScore, 50.0)
	assert.Contains(t, []core.ThreatLevel{core.ThreatHigh, core.ThreatCritical}, report.ThreatLevel)

	senderInds := make([]string, 0)
	for _, f := range report.Sender.Findings {
		senderInds = append(senderInds, f.Indicator)
	}
	assert.Contains(t, senderInds, "lookalike_domain")
	assert.Contains(t, senderInds, "display_name_mismatch")
}

func TestAnalyzeDisguisedExecutable(t *testing.T) {
	svc := newTestService(t)
	email := cleanEmail()
	email.Subject = "Invoice attached"
	email.BodyText = "Please find the invoice attached."
	email.Attachments = []core.Attachment{{
		Filename:    "invoice.pdf.exe",
		ContentType: "application/octet-stream",
		Size:        250_000,
	}}

	report, err := svc.Analyze(context.Background(), email)

	require.NoError(t, err)
	// A disguised executable is never less than HIGH, regardless of how
	// clean the rest of the email looks
	assert.GreaterOrEqual(t, report.TotalScore, 50.0)
	assert.Contains(t, []core.ThreatLevel{core.ThreatHigh, core.ThreatCritical}, report.ThreatLevel)

	attInds := make([]string, 0)
	for _, f := range report.Attachment.Findings {
		attInds = append(attInds, f.Indicator)
	}
	assert.Contains(t, attInds, "double_extension")
}

func TestAnalyzeDeterministic(t *testing.T) {
	svc := newTestService(t)
	email := &core.ParsedEmail{
		SenderName:    "Chase Support",
		SenderAddress: "chase.alerts@gmail.com",
		Subject:       "URGENT: verify your account!!!",
		BodyText:      "Dear customer, unusual activity was detected. Confirm your password immediately.",
		URLs:          []string{"http://192.168.1.1/chase/login", "https://bit.ly/x"},
		Attachments:   []core.Attachment{{Filename: "statement.pdf.exe"}},
	}

	first, err := svc.Analyze(context.Background(), email)
	require.NoError(t, err)

	for i := 0; i < 20; i++ {
		next, err := svc.Analyze(context.Background(), email)
		require.NoError(t, err)
		assert.Equal(t, first, next, "identical input must produce identical reports")
	}
}

func TestAnalyzeValidation(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Analyze(context.Background(), nil)
	var valErr *core.ValidationError
	require.ErrorAs(t, err, &valErr)

	_, err = svc.Analyze(context.Background(), &core.ParsedEmail{Attachments: []core.Attachment{}})
	require.ErrorAs(t, err, &valErr)
	assert.Equal(t, "urls", valErr.Field)

	_, err = svc.Analyze(context.Background(), &core.ParsedEmail{URLs: []string{}})
	require.ErrorAs(t, err, &valErr)
	assert.Equal(t, "attachments", valErr.Field)
}

func TestAnalyzeEmptyButValidEmail(t *testing.T) {
	svc := newTestService(t)

	report, err := svc.Analyze(context.Background(), &core.ParsedEmail{
		URLs:        []string{},
		Attachments: []core.Attachment{},
	})

	require.NoError(t, err)
	// Empty sender address is itself a finding; the pipeline still completes
	assert.Equal(t, core.CompletenessFull, report.Completeness)
}

func TestAnalyzeWhitelistedSender(t *testing.T) {
	svc := newTestService(t, "example.com")
	email := cleanEmail()
	email.URLs = []string{"https://bit.ly/3xYzAbC"}

	report, err := svc.Analyze(context.Background(), email)

	require.NoError(t, err)
	assert.Equal(t, 0.0, report.TotalScore)
	assert.Equal(t, core.ThreatSafe, report.ThreatLevel)
	assert.Empty(t, report.Findings(), "whitelisted senders skip heuristics entirely")
}

// slowAnalyzer blocks until its context is cancelled
type slowAnalyzer struct {
	category core.Category
}

func (s *slowAnalyzer) Category() core.Category { return s.category }

func (s *slowAnalyzer) Analyze(ctx context.Context, _ *core.ParsedEmail) core.AnalysisResult {
	<-ctx.Done()
	return core.AnalysisResult{Category: s.category, Completeness: core.CompletenessUnavailable}
}

// instantAnalyzer returns a fixed result
type instantAnalyzer struct {
	result core.AnalysisResult
}

func (i *instantAnalyzer) Category() core.Category { return i.result.Category }

func (i *instantAnalyzer) Analyze(_ context.Context, _ *core.ParsedEmail) core.AnalysisResult {
	return i.result
}

func TestAnalyzeDeadlineDegradesMissingCategories(t *testing.T) {
	logger := zap.NewNop()
	cfg := config.NewFromViper(config.NewEmptyViper())
	f := factory.NewAnalyzerFactory(cfg, logger)

	analyzers := []core.Analyzer{
		&instantAnalyzer{result: core.AnalysisResult{
			Category:     core.CategoryURL,
			Score:        40,
			Completeness: core.CompletenessFull,
		}},
		&instantAnalyzer{result: core.AnalysisResult{
			Category:     core.CategoryContent,
			Completeness: core.CompletenessFull,
		}},
		&instantAnalyzer{result: core.AnalysisResult{
			Category:     core.CategoryAttachment,
			Completeness: core.CompletenessFull,
		}},
		&slowAnalyzer{category: core.CategorySender},
	}

	svc := core.NewAnalysisService(
		analyzers,
		f.CreateScorer(),
		nil,
		whitelist.NewChecker(nil, logger),
		logger,
		false,
		0,
		50*time.Millisecond,
	)

	email := cleanEmail()
	email.URLs = []string{"http://example.net/"}
	report, err := svc.Analyze(context.Background(), email)

	require.NoError(t, err, "a timed-out analyzer degrades the report, it does not fail the pipeline")
	assert.Equal(t, core.CompletenessUnavailable, report.Sender.Completeness)
	assert.Equal(t, core.CompletenessDegraded, report.Completeness)
	assert.InDelta(t, 10.0, report.TotalScore, 1e-9, "completed categories still score")
}

// recordingCache captures Set calls and serves canned Get responses
type recordingCache struct {
	mu      sync.Mutex
	stored  map[string]*core.CachedVerdict
	gets    int
	sets    int
	served  *core.CachedVerdict
	miss    error
	failSet error
}

func newRecordingCache() *recordingCache {
	return &recordingCache{
		stored: make(map[string]*core.CachedVerdict),
		miss:   errors.New("verdict not found"),
	}
}

func (c *recordingCache) Get(_ context.Context, key string) (*core.CachedVerdict, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	if c.served != nil {
		return c.served, nil
	}
	if v, ok := c.stored[key]; ok {
		return v, nil
	}
	return nil, c.miss
}

func (c *recordingCache) Set(_ context.Context, verdict *core.CachedVerdict) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sets++
	if c.failSet != nil {
		return c.failSet
	}
	c.stored[verdict.Key] = verdict
	return nil
}

func (c *recordingCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.stored, key)
	return nil
}

func (c *recordingCache) Cleanup(_ context.Context) error { return nil }

func newCachedService(t *testing.T, cache core.VerdictCache) *core.AnalysisService {
	t.Helper()
	logger := zap.NewNop()
	cfg := config.NewFromViper(config.NewEmptyViper())
	f := factory.NewAnalyzerFactory(cfg, logger)

	analyzers, err := f.CreateAnalyzers()
	require.NoError(t, err)

	return core.NewAnalysisService(
		analyzers,
		f.CreateScorer(),
		cache,
		whitelist.NewChecker(nil, logger),
		logger,
		true,
		time.Hour,
		5*time.Second,
	)
}

func TestAnalyzeStoresVerdict(t *testing.T) {
	cache := newRecordingCache()
	svc := newCachedService(t, cache)
	email := cleanEmail()
	email.URLs = []string{"https://bit.ly/x"}

	first, err := svc.Analyze(context.Background(), email)
	require.NoError(t, err)
	assert.Equal(t, 1, cache.sets)

	// Second pass is served from the cache and observationally identical
	second, err := svc.Analyze(context.Background(), email)
	require.NoError(t, err)
	assert.Equal(t, 1, cache.sets, "cache hit must not re-store")
	assert.Equal(t, first, second)
}

func TestAnalyzeCacheFailureIsNonFatal(t *testing.T) {
	cache := newRecordingCache()
	cache.failSet = assert.AnError
	svc := newCachedService(t, cache)

	report, err := svc.Analyze(context.Background(), cleanEmail())

	require.NoError(t, err, "cache write failure must not fail analysis")
	assert.Equal(t, core.ThreatSafe, report.ThreatLevel)
}

func TestFingerprintStability(t *testing.T) {
	email := cleanEmail()
	assert.Equal(t, core.Fingerprint(email), core.Fingerprint(cleanEmail()))

	changed := cleanEmail()
	changed.BodyText += "."
	assert.NotEqual(t, core.Fingerprint(email), core.Fingerprint(changed))

	// Field boundaries matter: moving a suffix across fields changes the hash
	a := cleanEmail()
	a.SenderName, a.SenderAddress = "ab", "c"
	b := cleanEmail()
	b.SenderName, b.SenderAddress = "a", "bc"
	assert.NotEqual(t, core.Fingerprint(a), core.Fingerprint(b))
}
