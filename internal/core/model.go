package core

import (
	"time"
)

// Category identifies the analyzer that produced a finding or result
type Category string

const (
	CategoryURL        Category = "url"
	CategoryContent    Category = "content"
	CategorySender     Category = "sender"
	CategoryAttachment Category = "attachment"
)

// Categories lists all analysis categories in aggregation order
var Categories = []Category{CategoryURL, CategoryContent, CategorySender, CategoryAttachment}

// ThreatLevel is the discrete classification of the total risk score
type ThreatLevel string

const (
	ThreatSafe     ThreatLevel = "SAFE"
	ThreatLow      ThreatLevel = "LOW"
	ThreatMedium   ThreatLevel = "MEDIUM"
	ThreatHigh     ThreatLevel = "HIGH"
	ThreatCritical ThreatLevel = "CRITICAL"
)

// Completeness indicates how much of an analyzer's input was actually vetted
type Completeness string

const (
	CompletenessFull        Completeness = "full"
	CompletenessDegraded    Completeness = "degraded"
	CompletenessUnavailable Completeness = "unavailable"
)

// Attachment describes a single attachment as reported by the upstream parser
type Attachment struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
	Encrypted   bool   `json:"encrypted"`
	HasMacros   bool   `json:"has_macros"`
}

// ParsedEmail is the normalized email structure supplied by the parsing layer.
// All fields must be present; empty collections are allowed, nil ones are not.
// The engine never mutates it.
type ParsedEmail struct {
	SenderName    string       `json:"sender_name"`
	SenderAddress string       `json:"sender_address"`
	ReplyTo       string       `json:"reply_to"`
	Subject       string       `json:"subject"`
	BodyText      string       `json:"body_text"`
	BodyHTML      string       `json:"body_html"`
	URLs          []string     `json:"urls"`
	Attachments   []Attachment `json:"attachments"`
}

// Finding is a single triggered indicator, produced by exactly one analyzer
type Finding struct {
	Category    Category `json:"category"`
	Indicator   string   `json:"indicator"`
	Severity    int      `json:"severity"` // 0-100
	Description string   `json:"description"`
	Evidence    string   `json:"evidence"`
}

// AnalysisResult is the outcome of one analyzer over one email
type AnalysisResult struct {
	Category     Category     `json:"category"`
	Score        float64      `json:"score"` // 0-100, clamped
	Findings     []Finding    `json:"findings"`
	Completeness Completeness `json:"completeness"`
}

// Report is the combined outcome of a full analysis. It is fully determined
// by the ParsedEmail and the configuration, and read-only to consumers.
type Report struct {
	URL             AnalysisResult `json:"url"`
	Content         AnalysisResult `json:"content"`
	Sender          AnalysisResult `json:"sender"`
	Attachment      AnalysisResult `json:"attachment"`
	TotalScore      float64        `json:"total_score"` // 0-100
	ThreatLevel     ThreatLevel    `json:"threat_level"`
	Recommendations []string       `json:"recommendations"`
	Completeness    Completeness   `json:"completeness"`
}

// Result returns the per-category result embedded in the report
func (r *Report) Result(c Category) AnalysisResult {
	switch c {
	case CategoryURL:
		return r.URL
	case CategoryContent:
		return r.Content
	case CategorySender:
		return r.Sender
	default:
		return r.Attachment
	}
}

// Findings returns all findings across categories in category order
func (r *Report) Findings() []Finding {
	var all []Finding
	for _, c := range Categories {
		all = append(all, r.Result(c).Findings...)
	}
	return all
}

// CachedVerdict is a previously computed report stored in the verdict cache,
// keyed by a content hash of the originating ParsedEmail
type CachedVerdict struct {
	Key       string
	Score     float64
	Level     ThreatLevel
	Report    *Report
	LastSeen  time.Time
	ExpiresAt time.Time
}
