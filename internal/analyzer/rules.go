// Package analyzer implements the four heuristic analyzers of the detection
// engine. Each analyzer models its checks as a table of declarative rule
// descriptors evaluated by a shared routine, so rules can be tuned through
// configuration without touching control flow.
package analyzer

import (
	"github.com/mikey/phishing-detector/internal/core"
)

// rule is a single declarative indicator. Match inspects the subject and
// returns the evidence snippet when the rule triggers.
type rule[T any] struct {
	id          string
	severity    int
	description string
	match       func(subject T) (evidence string, ok bool)
}

// evalRules runs a rule table over one subject. Each rule contributes at most
// one finding per subject.
func evalRules[T any](category core.Category, rules []rule[T], subject T) []core.Finding {
	var findings []core.Finding
	for _, r := range rules {
		if evidence, ok := r.match(subject); ok {
			findings = append(findings, core.Finding{
				Category:    category,
				Indicator:   r.id,
				Severity:    r.severity,
				Description: r.description,
				Evidence:    evidence,
			})
		}
	}
	return findings
}

// sumSeverities adds up finding severities into a clamped sub-score
func sumSeverities(findings []core.Finding) float64 {
	total := 0
	for _, f := range findings {
		total += f.Severity
	}
	return clampScore(float64(total))
}

func clampScore(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// severityOf resolves a rule's severity from the configured override table,
// falling back to the built-in default
func severityOf(overrides map[string]int, id string, def int) int {
	if s, ok := overrides[id]; ok {
		return s
	}
	return def
}
