package factory

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/mikey/phishing-detector/internal/analyzer"
	"github.com/mikey/phishing-detector/internal/config"
	"github.com/mikey/phishing-detector/internal/core"
	"github.com/mikey/phishing-detector/internal/enrichment"
	"github.com/mikey/phishing-detector/internal/scoring"
	"github.com/mikey/phishing-detector/internal/utils"
)

// AnalyzerFactory creates the analyzers and the scorer from configuration
type AnalyzerFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewAnalyzerFactory creates a new analyzer factory
func NewAnalyzerFactory(cfg *config.Config, logger *zap.Logger) *AnalyzerFactory {
	return &AnalyzerFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateAnalyzers creates all four analyzers from the configuration
func (f *AnalyzerFactory) CreateAnalyzers() ([]core.Analyzer, error) {
	intel, err := f.createDomainIntel()
	if err != nil {
		return nil, err
	}

	return []core.Analyzer{
		f.createURLAnalyzer(),
		f.createContentAnalyzer(),
		f.createSenderAnalyzer(intel),
		f.createAttachmentAnalyzer(),
	}, nil
}

// CreateScorer creates the report builder from the configuration
func (f *AnalyzerFactory) CreateScorer() *scoring.Scorer {
	return scoring.NewScorer(scoring.Config{
		Weights: scoring.Weights{
			URL:        f.cfg.GetFloat64("scoring.weights.url"),
			Content:    f.cfg.GetFloat64("scoring.weights.content"),
			Sender:     f.cfg.GetFloat64("scoring.weights.sender"),
			Attachment: f.cfg.GetFloat64("scoring.weights.attachment"),
		},
		Thresholds: scoring.Thresholds{
			Low:      f.cfg.GetFloat64("scoring.thresholds.low"),
			Medium:   f.cfg.GetFloat64("scoring.thresholds.medium"),
			High:     f.cfg.GetFloat64("scoring.thresholds.high"),
			Critical: f.cfg.GetFloat64("scoring.thresholds.critical"),
		},
		RenormalizeMissing: f.cfg.GetBool("scoring.renormalize_missing"),
		CriticalSeverity:   f.cfg.GetInt("scoring.critical_severity"),
		CriticalFloor:      f.cfg.GetFloat64("scoring.critical_floor"),
		MaxRecommendations: f.cfg.GetInt("scoring.max_recommendations"),
	}, f.logger)
}

// createDomainIntel creates the optional DNS enrichment source
func (f *AnalyzerFactory) createDomainIntel() (core.DomainIntel, error) {
	if !f.cfg.GetBool("enrichment.enabled") {
		return nil, nil
	}

	timeout, err := f.cfg.GetDuration("enrichment.timeout")
	if err != nil {
		return nil, fmt.Errorf("invalid enrichment timeout: %w", err)
	}

	servers := f.cfg.GetStringSlice("enrichment.servers")
	if len(servers) == 0 {
		return nil, fmt.Errorf("enrichment enabled but no DNS servers configured")
	}

	return enrichment.NewResolver(servers, timeout, f.logger), nil
}

func (f *AnalyzerFactory) createURLAnalyzer() *analyzer.URLAnalyzer {
	return analyzer.NewURLAnalyzer(analyzer.URLConfig{
		Shorteners:         f.cfg.GetStringSlice("url.shorteners"),
		SuspiciousTLDs:     f.cfg.GetStringSlice("url.suspicious_tlds"),
		BrandDomains:       f.cfg.GetStringSlice("brands.protected_domains"),
		SuspiciousKeywords: f.cfg.GetStringSlice("url.suspicious_keywords"),
		EditDistance:       f.cfg.GetInt("url.edit_distance"),
		MaxSubdomains:      f.cfg.GetInt("url.max_subdomains"),
		MaxLength:          f.cfg.GetInt("url.max_length"),
		MaxEscapes:         f.cfg.GetInt("url.max_escapes"),
		Severities:         f.cfg.GetIntMap("url.severities"),
	}, f.logger)
}

func (f *AnalyzerFactory) createContentAnalyzer() *analyzer.ContentAnalyzer {
	var categories []analyzer.KeywordCategory
	for _, name := range f.cfg.GetStringSlice("content.categories") {
		prefix := "content.category." + name
		categories = append(categories, analyzer.KeywordCategory{
			Name:        name,
			Description: f.cfg.GetString(prefix + ".description"),
			Keywords:    f.cfg.GetStringSlice(prefix + ".keywords"),
			Weight:      f.cfg.GetInt(prefix + ".weight"),
			MatchCap:    f.cfg.GetInt(prefix + ".cap"),
			Severity:    f.cfg.GetInt(prefix + ".severity"),
		})
	}

	return analyzer.NewContentAnalyzer(analyzer.ContentConfig{
		Categories:        categories,
		Misspellings:      f.cfg.GetStringMapString("content.misspellings"),
		MisspellingWeight: f.cfg.GetInt("content.misspelling_weight"),
		MisspellingCap:    f.cfg.GetInt("content.misspelling_cap"),
		FormattingWeight:  f.cfg.GetInt("content.formatting_weight"),
		UppercaseRatio:    f.cfg.GetFloat64("content.uppercase_ratio"),
		MinLetters:        f.cfg.GetInt("content.min_letters"),
		Severities:        f.cfg.GetIntMap("content.severities"),
	}, utils.NewTextProcessor(f.logger), f.logger)
}

func (f *AnalyzerFactory) createSenderAnalyzer(intel core.DomainIntel) *analyzer.SenderAnalyzer {
	return analyzer.NewSenderAnalyzer(analyzer.SenderConfig{
		BrandDomains:  f.cfg.GetStringSlice("brands.protected_domains"),
		FreeProviders: f.cfg.GetStringSlice("sender.free_providers"),
		OrgKeywords:   f.cfg.GetStringSlice("sender.org_keywords"),
		EditDistance:  f.cfg.GetInt("sender.edit_distance"),
		Severities:    f.cfg.GetIntMap("sender.severities"),
	}, intel, f.logger)
}

func (f *AnalyzerFactory) createAttachmentAnalyzer() *analyzer.AttachmentAnalyzer {
	return analyzer.NewAttachmentAnalyzer(analyzer.AttachmentConfig{
		DangerousExts: f.cfg.GetStringSlice("attachment.dangerous_extensions"),
		MacroExts:     f.cfg.GetStringSlice("attachment.macro_extensions"),
		BenignExts:    f.cfg.GetStringSlice("attachment.benign_extensions"),
		MimeTypes:     f.cfg.GetStringMapString("attachment.mime_types"),
		MaxSize:       f.cfg.GetInt64("attachment.max_size"),
		Severities:    f.cfg.GetIntMap("attachment.severities"),
	}, f.logger)
}
