// Package scoring combines the per-category analysis results into one
// weighted total, classifies it into a threat level and derives ranked
// recommendations.
package scoring

import (
	"sort"

	"go.uber.org/zap"

	"github.com/mikey/phishing-detector/internal/core"
)

// Weights are the fixed category weights; they must sum to 1.0
type Weights struct {
	URL        float64
	Content    float64
	Sender     float64
	Attachment float64
}

// For returns the weight of one category
func (w Weights) For(c core.Category) float64 {
	switch c {
	case core.CategoryURL:
		return w.URL
	case core.CategoryContent:
		return w.Content
	case core.CategorySender:
		return w.Sender
	default:
		return w.Attachment
	}
}

// Thresholds are the lower bounds of the LOW..CRITICAL bands. Scores below
// Low are SAFE; the bands are closed-open and partition [0,100].
type Thresholds struct {
	Low      float64
	Medium   float64
	High     float64
	Critical float64
}

// Config tunes aggregation and classification
type Config struct {
	Weights    Weights
	Thresholds Thresholds

	// RenormalizeMissing redistributes the weight of categories with no
	// applicable input (no URLs, no attachments) across the rest. The
	// default, false, keeps them at full weight with an implicit zero score.
	RenormalizeMissing bool

	// CriticalSeverity and CriticalFloor implement the critical-finding
	// floor: any single finding at or above CriticalSeverity raises the
	// total to at least CriticalFloor, so a weaponized attachment cannot
	// hide behind an otherwise clean email.
	CriticalSeverity int
	CriticalFloor    float64

	MaxRecommendations int
}

// Scorer is the risk aggregator and threat classifier
type Scorer struct {
	cfg    Config
	logger *zap.Logger
}

// NewScorer creates a scorer
func NewScorer(cfg Config, logger *zap.Logger) *Scorer {
	return &Scorer{cfg: cfg, logger: logger}
}

// BuildReport aggregates the four analysis results into a report. It is a
// deterministic reduction; results must contain one entry per category.
func (s *Scorer) BuildReport(email *core.ParsedEmail, results map[core.Category]core.AnalysisResult) *core.Report {
	report := &core.Report{
		URL:        results[core.CategoryURL],
		Content:    results[core.CategoryContent],
		Sender:     results[core.CategorySender],
		Attachment: results[core.CategoryAttachment],
	}

	report.TotalScore = s.aggregate(email, report)
	report.ThreatLevel = s.Classify(report.TotalScore)
	report.Completeness = overallCompleteness(report)
	report.Recommendations = s.recommend(report)

	s.logger.Debug("report built",
		zap.Float64("total_score", report.TotalScore),
		zap.String("threat_level", string(report.ThreatLevel)),
		zap.String("completeness", string(report.Completeness)))
	return report
}

func (s *Scorer) aggregate(email *core.ParsedEmail, report *core.Report) float64 {
	weightOf := func(c core.Category) float64 { return s.cfg.Weights.For(c) }

	if s.cfg.RenormalizeMissing {
		applicable := 0.0
		for _, c := range core.Categories {
			if categoryApplicable(email, c) {
				applicable += s.cfg.Weights.For(c)
			}
		}
		if applicable > 0 {
			weightOf = func(c core.Category) float64 {
				if !categoryApplicable(email, c) {
					return 0
				}
				return s.cfg.Weights.For(c) / applicable
			}
		}
	}

	total := 0.0
	for _, c := range core.Categories {
		r := report.Result(c)
		score := r.Score
		if r.Completeness == core.CompletenessUnavailable {
			score = 0
		}
		total += score * weightOf(c)
	}

	if floor := s.criticalFloor(report); total < floor {
		total = floor
	}
	return clamp(total)
}

// criticalFloor returns the minimum total when any finding reaches the
// critical severity threshold
func (s *Scorer) criticalFloor(report *core.Report) float64 {
	if s.cfg.CriticalSeverity <= 0 {
		return 0
	}
	for _, f := range report.Findings() {
		if f.Severity >= s.cfg.CriticalSeverity {
			return s.cfg.CriticalFloor
		}
	}
	return 0
}

// categoryApplicable reports whether the email carries any input for the
// category. Content and sender are always applicable; their emptiness is
// itself scored by the analyzers.
func categoryApplicable(email *core.ParsedEmail, c core.Category) bool {
	switch c {
	case core.CategoryURL:
		return len(email.URLs) > 0
	case core.CategoryAttachment:
		return len(email.Attachments) > 0
	default:
		return true
	}
}

// Classify maps a total score onto the threat-level bands
func (s *Scorer) Classify(score float64) core.ThreatLevel {
	t := s.cfg.Thresholds
	switch {
	case score >= t.Critical:
		return core.ThreatCritical
	case score >= t.High:
		return core.ThreatHigh
	case score >= t.Medium:
		return core.ThreatMedium
	case score >= t.Low:
		return core.ThreatLow
	default:
		return core.ThreatSafe
	}
}

func overallCompleteness(report *core.Report) core.Completeness {
	for _, c := range core.Categories {
		if report.Result(c).Completeness != core.CompletenessFull {
			return core.CompletenessDegraded
		}
	}
	return core.CompletenessFull
}

// adviceByIndicator maps specific indicators to targeted recommendations;
// anything unmapped falls back to the category default
var adviceByIndicator = map[string]string{
	"url_shortener":      "Expand shortened links with a preview service before visiting them",
	"double_extension":   "Do not open the attachment; its name disguises an executable",
	"encrypted_archive":  "Do not enter the archive password from this email; it bypasses malware scanning",
	"macro_document":     "Do not enable macros if you open this document",
	"replyto_mismatch":   "Check the Reply-To address; responses would go to a different domain",
	"sensitive_request":  "Legitimate organizations never ask for passwords or card details by email",
	"urgency":            "Be wary of urgent deadlines; attackers manufacture time pressure",
	"threat":             "Be wary of account-suspension threats; verify directly with the provider",
}

var adviceByCategory = map[core.Category]string{
	core.CategoryURL:        "Verify links by hovering over them and type known addresses manually",
	core.CategoryContent:    "Treat requests in this message with suspicion and verify them out-of-band",
	core.CategorySender:     "Verify the sender's identity through a known, independent channel",
	core.CategoryAttachment: "Do not open attachments before scanning them with antivirus software",
}

var adviceByLevel = map[core.ThreatLevel]string{
	core.ThreatCritical: "Do not click links, open attachments or reply; report this email to your security team",
	core.ThreatHigh:     "Do not click links, open attachments or reply; report this email to your security team",
	core.ThreatMedium:   "Treat this email with caution and verify the sender before acting on it",
	core.ThreatLow:      "Minor red flags are present; verify anything unexpected before acting",
	core.ThreatSafe:     "No significant phishing indicators were found",
}

// recommend ranks findings by severity, then by category weight, and maps the
// top ones to actionable advice. Degraded analysis always surfaces a manual
// review recommendation first.
func (s *Scorer) recommend(report *core.Report) []string {
	findings := report.Findings()
	sort.SliceStable(findings, func(i, j int) bool {
		if findings[i].Severity != findings[j].Severity {
			return findings[i].Severity > findings[j].Severity
		}
		return s.cfg.Weights.For(findings[i].Category) > s.cfg.Weights.For(findings[j].Category)
	})

	recs := make([]string, 0, s.cfg.MaxRecommendations+2)
	if report.Completeness != core.CompletenessFull {
		recs = append(recs, "Analysis was incomplete; review this message manually before trusting it")
	}
	recs = append(recs, adviceByLevel[report.ThreatLevel])

	seen := make(map[string]bool, len(findings))
	for _, f := range findings {
		if len(recs) >= s.cfg.MaxRecommendations {
			break
		}
		advice, ok := adviceByIndicator[f.Indicator]
		if !ok {
			advice = adviceByCategory[f.Category]
		}
		if seen[advice] {
			continue
		}
		seen[advice] = true
		recs = append(recs, advice)
	}
	return recs
}

func clamp(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
