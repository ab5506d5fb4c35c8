package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mikey/phishing-detector/internal/core"
)

func testConfig() Config {
	return Config{
		Weights: Weights{
			URL:        0.25,
			Content:    0.25,
			Sender:     0.30,
			Attachment: 0.20,
		},
		Thresholds: Thresholds{
			Low:      10,
			Medium:   30,
			High:     50,
			Critical: 70,
		},
		CriticalSeverity:   85,
		CriticalFloor:      50,
		MaxRecommendations: 5,
	}
}

func fullResults(urlScore, contentScore, senderScore, attScore float64) map[core.Category]core.AnalysisResult {
	return map[core.Category]core.AnalysisResult{
		core.CategoryURL:        {Category: core.CategoryURL, Score: urlScore, Completeness: core.CompletenessFull},
		core.CategoryContent:    {Category: core.CategoryContent, Score: contentScore, Completeness: core.CompletenessFull},
		core.CategorySender:     {Category: core.CategorySender, Score: senderScore, Completeness: core.CompletenessFull},
		core.CategoryAttachment: {Category: core.CategoryAttachment, Score: attScore, Completeness: core.CompletenessFull},
	}
}

func emptyEmail() *core.ParsedEmail {
	return &core.ParsedEmail{URLs: []string{}, Attachments: []core.Attachment{}}
}

func emailWith(urls int, atts int) *core.ParsedEmail {
	email := emptyEmail()
	for i := 0; i < urls; i++ {
		email.URLs = append(email.URLs, "http://example.net/")
	}
	for i := 0; i < atts; i++ {
		email.Attachments = append(email.Attachments, core.Attachment{Filename: "a.txt"})
	}
	return email
}

func TestBuildReportWeightedTotal(t *testing.T) {
	s := NewScorer(testConfig(), zap.NewNop())

	report := s.BuildReport(emailWith(1, 1), fullResults(40, 20, 60, 10))

	// 40*.25 + 20*.25 + 60*.30 + 10*.20 = 35
	assert.InDelta(t, 35.0, report.TotalScore, 1e-9)
	assert.Equal(t, core.ThreatMedium, report.ThreatLevel)
	assert.Equal(t, core.CompletenessFull, report.Completeness)
}

func TestBuildReportAllZero(t *testing.T) {
	s := NewScorer(testConfig(), zap.NewNop())

	report := s.BuildReport(emptyEmail(), fullResults(0, 0, 0, 0))

	assert.Equal(t, 0.0, report.TotalScore)
	assert.Equal(t, core.ThreatSafe, report.ThreatLevel)
}

func TestClassifyBandBoundaries(t *testing.T) {
	s := NewScorer(testConfig(), zap.NewNop())

	assert.Equal(t, core.ThreatSafe, s.Classify(0))
	assert.Equal(t, core.ThreatSafe, s.Classify(9.999))
	assert.Equal(t, core.ThreatLow, s.Classify(10))
	assert.Equal(t, core.ThreatLow, s.Classify(29.999))
	assert.Equal(t, core.ThreatMedium, s.Classify(30))
	assert.Equal(t, core.ThreatMedium, s.Classify(49.999))
	assert.Equal(t, core.ThreatHigh, s.Classify(50))
	assert.Equal(t, core.ThreatHigh, s.Classify(69.999))
	assert.Equal(t, core.ThreatCritical, s.Classify(70))
	assert.Equal(t, core.ThreatCritical, s.Classify(100))
}

func TestAggregateMonotonic(t *testing.T) {
	s := NewScorer(testConfig(), zap.NewNop())

	low := s.BuildReport(emailWith(1, 1), fullResults(10, 10, 10, 10))
	high := s.BuildReport(emailWith(1, 1), fullResults(10, 50, 10, 10))

	assert.Greater(t, high.TotalScore, low.TotalScore,
		"raising one sub-score must never lower the total")
}

func TestUnavailableCategoryContributesZero(t *testing.T) {
	s := NewScorer(testConfig(), zap.NewNop())

	results := fullResults(80, 0, 0, 0)
	results[core.CategoryURL] = core.AnalysisResult{
		Category:     core.CategoryURL,
		Score:        80, // stale score must be ignored
		Completeness: core.CompletenessUnavailable,
	}

	report := s.BuildReport(emailWith(1, 0), results)

	assert.Equal(t, 0.0, report.TotalScore)
	assert.Equal(t, core.CompletenessDegraded, report.Completeness)
}

func TestDegradedCategoryKeepsScore(t *testing.T) {
	s := NewScorer(testConfig(), zap.NewNop())

	results := fullResults(0, 0, 40, 0)
	r := results[core.CategorySender]
	r.Completeness = core.CompletenessDegraded
	results[core.CategorySender] = r

	report := s.BuildReport(emptyEmail(), results)

	assert.InDelta(t, 12.0, report.TotalScore, 1e-9)
	assert.Equal(t, core.CompletenessDegraded, report.Completeness)
}

func TestRenormalizeMissingOff(t *testing.T) {
	// Default policy: missing categories keep their weight as implicit zeros
	s := NewScorer(testConfig(), zap.NewNop())

	report := s.BuildReport(emailWith(0, 0), fullResults(0, 40, 40, 0))

	// 40*.25 + 40*.30 = 22
	assert.InDelta(t, 22.0, report.TotalScore, 1e-9)
}

func TestRenormalizeMissingOn(t *testing.T) {
	cfg := testConfig()
	cfg.RenormalizeMissing = true
	s := NewScorer(cfg, zap.NewNop())

	report := s.BuildReport(emailWith(0, 0), fullResults(0, 40, 40, 0))

	// Weight .55 redistributed: 40*(.25/.55) + 40*(.30/.55) = 40
	assert.InDelta(t, 40.0, report.TotalScore, 1e-9)
}

func TestRenormalizeAllPresentIsUnchanged(t *testing.T) {
	cfg := testConfig()
	cfg.RenormalizeMissing = true
	s := NewScorer(cfg, zap.NewNop())

	report := s.BuildReport(emailWith(1, 1), fullResults(40, 20, 60, 10))

	assert.InDelta(t, 35.0, report.TotalScore, 1e-9)
}

func TestCriticalFindingFloor(t *testing.T) {
	s := NewScorer(testConfig(), zap.NewNop())

	results := fullResults(0, 0, 0, 100)
	r := results[core.CategoryAttachment]
	r.Findings = []core.Finding{{
		Category:  core.CategoryAttachment,
		Indicator: "double_extension",
		Severity:  90,
	}}
	results[core.CategoryAttachment] = r

	report := s.BuildReport(emailWith(0, 1), results)

	// Weighted total alone is 20; the 90-severity finding floors it
	assert.Equal(t, 50.0, report.TotalScore)
	assert.Equal(t, core.ThreatHigh, report.ThreatLevel)
}

func TestCriticalFloorDoesNotLowerHigherTotals(t *testing.T) {
	s := NewScorer(testConfig(), zap.NewNop())

	results := fullResults(100, 100, 100, 100)
	r := results[core.CategoryAttachment]
	r.Findings = []core.Finding{{Category: core.CategoryAttachment, Severity: 95}}
	results[core.CategoryAttachment] = r

	report := s.BuildReport(emailWith(1, 1), results)

	assert.Equal(t, 100.0, report.TotalScore)
}

func TestRecommendationsRankedAndCapped(t *testing.T) {
	s := NewScorer(testConfig(), zap.NewNop())

	results := fullResults(40, 30, 20, 90)
	addFinding := func(c core.Category, indicator string, severity int) {
		r := results[c]
		r.Findings = append(r.Findings, core.Finding{Category: c, Indicator: indicator, Severity: severity})
		results[c] = r
	}
	addFinding(core.CategoryAttachment, "double_extension", 90)
	addFinding(core.CategoryURL, "url_shortener", 40)
	addFinding(core.CategoryContent, "urgency", 40)
	addFinding(core.CategorySender, "replyto_mismatch", 40)
	addFinding(core.CategoryContent, "sensitive_request", 80)

	report := s.BuildReport(emailWith(1, 1), results)

	require.NotEmpty(t, report.Recommendations)
	assert.LessOrEqual(t, len(report.Recommendations), 5)
	// Highest severity finding drives the first indicator-specific advice
	assert.Contains(t, report.Recommendations, adviceByIndicator["double_extension"])
	assert.Equal(t, adviceByLevel[report.ThreatLevel], report.Recommendations[0])
}

func TestRecommendationsDegradedLeadsWithManualReview(t *testing.T) {
	s := NewScorer(testConfig(), zap.NewNop())

	results := fullResults(0, 0, 0, 0)
	r := results[core.CategoryURL]
	r.Completeness = core.CompletenessUnavailable
	results[core.CategoryURL] = r

	report := s.BuildReport(emailWith(1, 0), results)

	require.NotEmpty(t, report.Recommendations)
	assert.Contains(t, report.Recommendations[0], "incomplete")
}

func TestRecommendationsDeduplicated(t *testing.T) {
	s := NewScorer(testConfig(), zap.NewNop())

	results := fullResults(60, 0, 0, 0)
	r := results[core.CategoryURL]
	// Two findings mapping to the same category-level advice
	r.Findings = []core.Finding{
		{Category: core.CategoryURL, Indicator: "suspicious_tld", Severity: 30},
		{Category: core.CategoryURL, Indicator: "ip_literal_host", Severity: 60},
	}
	results[core.CategoryURL] = r

	report := s.BuildReport(emailWith(1, 0), results)

	seen := make(map[string]int)
	for _, rec := range report.Recommendations {
		seen[rec]++
		assert.Equal(t, 1, seen[rec], "recommendation %q duplicated", rec)
	}
}

func TestReportDeterministic(t *testing.T) {
	s := NewScorer(testConfig(), zap.NewNop())
	email := emailWith(2, 1)

	first := s.BuildReport(email, fullResults(40, 20, 60, 10))
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, s.BuildReport(email, fullResults(40, 20, 60, 10)))
	}
}
