package analyzer

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mikey/phishing-detector/internal/core"
	"github.com/mikey/phishing-detector/internal/utils"
)

func testContentConfig() ContentConfig {
	return ContentConfig{
		Categories: []KeywordCategory{
			{
				Name:        "urgency",
				Description: "Urgency language detected",
				Keywords:    []string{"urgent", "act now", "immediately", "expires"},
				Weight:      15,
				MatchCap:    3,
				Severity:    40,
			},
			{
				Name:        "threat",
				Description: "Threat or fear language detected",
				Keywords:    []string{"suspended", "locked", "unusual activity"},
				Weight:      20,
				MatchCap:    3,
				Severity:    60,
			},
			{
				Name:        "sensitive_request",
				Description: "Request for sensitive information",
				Keywords:    []string{"password", "credit card", "verify your"},
				Weight:      25,
				MatchCap:    3,
				Severity:    80,
			},
			{
				Name:        "generic_greeting",
				Description: "Generic, impersonal greeting",
				Keywords:    []string{"dear customer", "dear user"},
				Weight:      10,
				MatchCap:    1,
				Severity:    20,
			},
		},
		Misspellings: map[string]string{
			"recieve":  "receive",
			"untill":   "until",
			"seperate": "separate",
		},
		MisspellingWeight: 5,
		MisspellingCap:    3,
		FormattingWeight:  10,
		UppercaseRatio:    0.3,
		MinLetters:        20,
	}
}

func analyzeContent(t *testing.T, email *core.ParsedEmail) core.AnalysisResult {
	t.Helper()
	a := NewContentAnalyzer(testContentConfig(), utils.NewTextProcessor(zap.NewNop()), zap.NewNop())
	return a.Analyze(context.Background(), email)
}

func TestContentAnalyzerEmptyBody(t *testing.T) {
	result := analyzeContent(t, &core.ParsedEmail{
		URLs:        []string{},
		Attachments: []core.Attachment{},
	})

	assert.Equal(t, 0.0, result.Score)
	assert.Empty(t, result.Findings)
	assert.Equal(t, core.CompletenessFull, result.Completeness)
}

func TestContentAnalyzerCleanBody(t *testing.T) {
	result := analyzeContent(t, &core.ParsedEmail{
		BodyText:    "Hi Alice, attaching the meeting notes from Tuesday. Best, Bob",
		URLs:        []string{},
		Attachments: []core.Attachment{},
	})

	assert.Equal(t, 0.0, result.Score)
	assert.Empty(t, result.Findings)
}

func TestContentAnalyzerKeywordCategories(t *testing.T) {
	result := analyzeContent(t, &core.ParsedEmail{
		Subject:     "Urgent: account suspended",
		BodyText:    "Dear customer, verify your password immediately.",
		URLs:        []string{},
		Attachments: []core.Attachment{},
	})

	inds := indicators(result.Findings)
	assert.Contains(t, inds, "urgency")
	assert.Contains(t, inds, "threat")
	assert.Contains(t, inds, "sensitive_request")
	assert.Contains(t, inds, "generic_greeting")

	// urgent+immediately (2*15) + suspended (20) + verify your+password (2*25) + greeting (10) = 110
	assert.Equal(t, 100.0, result.Score, "should clamp after summing weighted matches")
}

func TestContentAnalyzerMatchCap(t *testing.T) {
	result := analyzeContent(t, &core.ParsedEmail{
		BodyText:    "urgent act now immediately expires", // 4 matches, cap 3
		URLs:        []string{},
		Attachments: []core.Attachment{},
	})

	require.Len(t, result.Findings, 1)
	assert.Equal(t, 45.0, result.Score, "matches beyond the cap should not add weight")
}

func TestContentAnalyzerSubjectIsScanned(t *testing.T) {
	result := analyzeContent(t, &core.ParsedEmail{
		Subject:     "Your account has been suspended",
		BodyText:    "See details inside.",
		URLs:        []string{},
		Attachments: []core.Attachment{},
	})

	assert.Contains(t, indicators(result.Findings), "threat")
}

func TestContentAnalyzerHTMLBody(t *testing.T) {
	result := analyzeContent(t, &core.ParsedEmail{
		BodyHTML:    "<html><body><p>Please <b>verify your</b> password here.</p></body></html>",
		URLs:        []string{},
		Attachments: []core.Attachment{},
	})

	assert.Contains(t, indicators(result.Findings), "sensitive_request")
}

func TestContentAnalyzerMisspellings(t *testing.T) {
	result := analyzeContent(t, &core.ParsedEmail{
		BodyText:    "You will recieve the funds untill further notice.",
		URLs:        []string{},
		Attachments: []core.Attachment{},
	})

	require.Len(t, result.Findings, 1)
	assert.Equal(t, "misspellings", result.Findings[0].Indicator)
	// Sorted for deterministic evidence
	assert.Equal(t, "recieve, untill", result.Findings[0].Evidence)
	assert.Equal(t, 10.0, result.Score)
}

func TestContentAnalyzerExcessivePunctuation(t *testing.T) {
	result := analyzeContent(t, &core.ParsedEmail{
		BodyText:    "Open this right away!!!",
		URLs:        []string{},
		Attachments: []core.Attachment{},
	})

	assert.Contains(t, indicators(result.Findings), "excessive_punctuation")
}

func TestContentAnalyzerExcessiveUppercase(t *testing.T) {
	result := analyzeContent(t, &core.ParsedEmail{
		BodyText:    "WINNER WINNER WINNER you have been chosen",
		URLs:        []string{},
		Attachments: []core.Attachment{},
	})

	assert.Contains(t, indicators(result.Findings), "excessive_uppercase")
}

func TestContentAnalyzerShortTextSkipsUppercaseCheck(t *testing.T) {
	result := analyzeContent(t, &core.ParsedEmail{
		BodyText:    "OK THANKS", // under MinLetters
		URLs:        []string{},
		Attachments: []core.Attachment{},
	})

	assert.NotContains(t, indicators(result.Findings), "excessive_uppercase")
}

func TestContentAnalyzerDeterministic(t *testing.T) {
	email := &core.ParsedEmail{
		Subject:     "URGENT!!! Verify your password",
		BodyText:    "Dear customer, your account is locked. You will recieve a seperate notice untill then." + strings.Repeat(" filler", 10),
		URLs:        []string{},
		Attachments: []core.Attachment{},
	}

	first := analyzeContent(t, email)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, analyzeContent(t, email))
	}
}
