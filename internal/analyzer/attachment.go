package analyzer

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/mikey/phishing-detector/internal/core"
)

// AttachmentConfig holds the extension and content-type reference data for
// the attachment analyzer. Extensions are listed with their leading dot.
type AttachmentConfig struct {
	DangerousExts []string
	MacroExts     []string
	BenignExts    []string
	MimeTypes     map[string]string // extension -> expected content type
	MaxSize       int64
	Severities    map[string]int
}

// AttachmentAnalyzer inspects attachment metadata for malicious-delivery red
// flags. It never opens attachment content; everything is judged from the
// descriptors the upstream parser supplies.
type AttachmentAnalyzer struct {
	cfg    AttachmentConfig
	rules  []rule[*attachmentContext]
	logger *zap.Logger
}

type attachmentContext struct {
	att      core.Attachment
	filename string // lowercased
	ext      string // lowercased, with dot
}

// NewAttachmentAnalyzer creates an attachment analyzer from configured
// reference data
func NewAttachmentAnalyzer(cfg AttachmentConfig, logger *zap.Logger) *AttachmentAnalyzer {
	a := &AttachmentAnalyzer{cfg: cfg, logger: logger}
	a.rules = []rule[*attachmentContext]{
		{
			id:          "double_extension",
			severity:    severityOf(cfg.Severities, "double_extension", 90),
			description: "Filename disguises an executable behind a benign extension",
			match:       a.matchDoubleExtension,
		},
		{
			id:          "dangerous_extension",
			severity:    severityOf(cfg.Severities, "dangerous_extension", 70),
			description: "Executable or script attachment",
			match:       a.matchDangerousExtension,
		},
		{
			id:          "macro_document",
			severity:    severityOf(cfg.Severities, "macro_document", 40),
			description: "Macro-capable office document",
			match:       a.matchMacroDocument,
		},
		{
			id:          "encrypted_archive",
			severity:    severityOf(cfg.Severities, "encrypted_archive", 40),
			description: "Password-protected archive cannot be scanned",
			match:       matchEncryptedArchive,
		},
		{
			id:          "mime_mismatch",
			severity:    severityOf(cfg.Severities, "mime_mismatch", 40),
			description: "Declared content type does not match the file extension",
			match:       a.matchMimeMismatch,
		},
		{
			id:          "oversized_attachment",
			severity:    severityOf(cfg.Severities, "oversized_attachment", 10),
			description: "Unusually large attachment",
			match:       a.matchOversized,
		},
	}
	return a
}

// Category returns the category this analyzer scores
func (a *AttachmentAnalyzer) Category() core.Category {
	return core.CategoryAttachment
}

// Analyze evaluates every attachment independently and sums the triggered
// severities into a clamped sub-score
func (a *AttachmentAnalyzer) Analyze(_ context.Context, email *core.ParsedEmail) core.AnalysisResult {
	result := core.AnalysisResult{
		Category:     core.CategoryAttachment,
		Completeness: core.CompletenessFull,
	}
	if len(email.Attachments) == 0 {
		return result
	}

	for _, att := range email.Attachments {
		filename := strings.ToLower(strings.TrimSpace(att.Filename))
		c := &attachmentContext{
			att:      att,
			filename: filename,
			ext:      filepath.Ext(filename),
		}
		result.Findings = append(result.Findings, evalRules(core.CategoryAttachment, a.rules, c)...)
	}

	result.Score = sumSeverities(result.Findings)
	a.logger.Debug("attachment analysis complete",
		zap.Int("attachments", len(email.Attachments)),
		zap.Int("findings", len(result.Findings)),
		zap.Float64("score", result.Score))
	return result
}

func containsExt(exts []string, ext string) bool {
	for _, e := range exts {
		if e == ext {
			return true
		}
	}
	return false
}

func (a *AttachmentAnalyzer) matchDangerousExtension(c *attachmentContext) (string, bool) {
	if containsExt(a.cfg.DangerousExts, c.ext) {
		return c.filename, true
	}
	return "", false
}

// matchDoubleExtension catches <name>.<benign>.<dangerous>, the classic
// invoice.pdf.exe trick
func (a *AttachmentAnalyzer) matchDoubleExtension(c *attachmentContext) (string, bool) {
	if !containsExt(a.cfg.DangerousExts, c.ext) {
		return "", false
	}
	inner := filepath.Ext(strings.TrimSuffix(c.filename, c.ext))
	if inner != "" && containsExt(a.cfg.BenignExts, inner) {
		return c.filename, true
	}
	return "", false
}

func (a *AttachmentAnalyzer) matchMacroDocument(c *attachmentContext) (string, bool) {
	if c.att.HasMacros {
		return c.filename, true
	}
	if containsExt(a.cfg.MacroExts, c.ext) {
		return c.filename, true
	}
	if strings.Contains(strings.ToLower(c.att.ContentType), "macroenabled") {
		return c.filename, true
	}
	return "", false
}

func matchEncryptedArchive(c *attachmentContext) (string, bool) {
	if c.att.Encrypted {
		return c.filename, true
	}
	return "", false
}

func (a *AttachmentAnalyzer) matchMimeMismatch(c *attachmentContext) (string, bool) {
	expected, ok := a.cfg.MimeTypes[c.ext]
	if !ok || c.att.ContentType == "" {
		return "", false
	}
	declared := strings.ToLower(c.att.ContentType)
	if strings.Contains(declared, expected) {
		return "", false
	}
	return fmt.Sprintf("%s declared as %s, expected %s", c.filename, declared, expected), true
}

func (a *AttachmentAnalyzer) matchOversized(c *attachmentContext) (string, bool) {
	if a.cfg.MaxSize > 0 && c.att.Size > a.cfg.MaxSize {
		return fmt.Sprintf("%s is %.1fMB", c.filename, float64(c.att.Size)/(1024*1024)), true
	}
	return "", false
}
