package analyzer

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"github.com/mikey/phishing-detector/internal/core"
)

// HTMLStripper reduces an HTML body to its visible text
type HTMLStripper interface {
	StripHTML(html string) string
}

// KeywordCategory is one configured keyword table: matches are counted up to
// MatchCap so an obsessively repeated phrase cannot dominate the sub-score
type KeywordCategory struct {
	Name        string
	Description string
	Keywords    []string
	Weight      int
	MatchCap    int
	Severity    int
}

// ContentConfig holds the keyword tables and anomaly thresholds for the
// content analyzer
type ContentConfig struct {
	Categories        []KeywordCategory
	Misspellings      map[string]string
	MisspellingWeight int
	MisspellingCap    int
	FormattingWeight  int
	UppercaseRatio    float64
	MinLetters        int
	Severities        map[string]int
}

// ContentAnalyzer inspects subject and body text for social-engineering
// language
type ContentAnalyzer struct {
	cfg      ContentConfig
	stripper HTMLStripper
	logger   *zap.Logger
}

var repeatedPunct = regexp.MustCompile(`[!?]{2,}`)

// NewContentAnalyzer creates a content analyzer from configured keyword tables
func NewContentAnalyzer(cfg ContentConfig, stripper HTMLStripper, logger *zap.Logger) *ContentAnalyzer {
	return &ContentAnalyzer{cfg: cfg, stripper: stripper, logger: logger}
}

// Category returns the category this analyzer scores
func (a *ContentAnalyzer) Category() core.Category {
	return core.CategoryContent
}

// Analyze scans the concatenated subject, plain body and HTML-stripped body.
// The sub-score is the weighted, per-category-capped sum of keyword matches
// plus the formatting anomaly heuristics, clamped to [0,100].
func (a *ContentAnalyzer) Analyze(_ context.Context, email *core.ParsedEmail) core.AnalysisResult {
	result := core.AnalysisResult{
		Category:     core.CategoryContent,
		Completeness: core.CompletenessFull,
	}

	rawText := email.Subject + " " + email.BodyText
	if email.BodyHTML != "" {
		rawText += " " + a.stripper.StripHTML(email.BodyHTML)
	}
	text := strings.ToLower(rawText)
	if strings.TrimSpace(text) == "" {
		return result
	}

	score := 0
	for _, cat := range a.cfg.Categories {
		matched := matchKeywords(text, cat.Keywords)
		if len(matched) == 0 {
			continue
		}
		counted := len(matched)
		if cat.MatchCap > 0 && counted > cat.MatchCap {
			counted = cat.MatchCap
		}
		score += counted * cat.Weight
		result.Findings = append(result.Findings, core.Finding{
			Category:    core.CategoryContent,
			Indicator:   cat.Name,
			Severity:    cat.Severity,
			Description: cat.Description,
			Evidence:    evidenceList(matched),
		})
	}

	if misspelled := a.matchMisspellings(text); len(misspelled) > 0 {
		counted := len(misspelled)
		if a.cfg.MisspellingCap > 0 && counted > a.cfg.MisspellingCap {
			counted = a.cfg.MisspellingCap
		}
		score += counted * a.cfg.MisspellingWeight
		result.Findings = append(result.Findings, core.Finding{
			Category:    core.CategoryContent,
			Indicator:   "misspellings",
			Severity:    severityOf(a.cfg.Severities, "misspellings", 10),
			Description: "Misspellings common in phishing mail",
			Evidence:    evidenceList(misspelled),
		})
	}

	if repeatedPunct.MatchString(text) {
		score += a.cfg.FormattingWeight
		result.Findings = append(result.Findings, core.Finding{
			Category:    core.CategoryContent,
			Indicator:   "excessive_punctuation",
			Severity:    severityOf(a.cfg.Severities, "excessive_punctuation", 20),
			Description: "Repeated exclamation or question marks",
			Evidence:    repeatedPunct.FindString(text),
		})
	}

	if ratio, ok := a.uppercaseRatio(rawText); ok {
		score += a.cfg.FormattingWeight
		result.Findings = append(result.Findings, core.Finding{
			Category:    core.CategoryContent,
			Indicator:   "excessive_uppercase",
			Severity:    severityOf(a.cfg.Severities, "excessive_uppercase", 20),
			Description: "Unusually high ratio of capital letters",
			Evidence:    fmt.Sprintf("%.0f%% of letters are uppercase", ratio*100),
		})
	}

	result.Score = clampScore(float64(score))
	a.logger.Debug("content analysis complete",
		zap.Int("findings", len(result.Findings)),
		zap.Float64("score", result.Score))
	return result
}

// matchKeywords returns the configured keywords present in text, each counted
// once, in stable order
func matchKeywords(text string, keywords []string) []string {
	var matched []string
	for _, kw := range keywords {
		if kw != "" && strings.Contains(text, kw) {
			matched = append(matched, kw)
		}
	}
	return matched
}

func (a *ContentAnalyzer) matchMisspellings(text string) []string {
	var matched []string
	for wrong := range a.cfg.Misspellings {
		if strings.Contains(text, wrong) {
			matched = append(matched, wrong)
		}
	}
	sort.Strings(matched)
	return matched
}

// uppercaseRatio reports the share of uppercase letters when the text is long
// enough to judge
func (a *ContentAnalyzer) uppercaseRatio(text string) (float64, bool) {
	letters, upper := 0, 0
	for _, r := range text {
		if unicode.IsLetter(r) {
			letters++
			if unicode.IsUpper(r) {
				upper++
			}
		}
	}
	if letters < a.cfg.MinLetters || letters == 0 {
		return 0, false
	}
	ratio := float64(upper) / float64(letters)
	return ratio, ratio > a.cfg.UppercaseRatio
}

func evidenceList(items []string) string {
	if len(items) > 5 {
		items = items[:5]
	}
	return strings.Join(items, ", ")
}
