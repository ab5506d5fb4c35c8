package filter

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mikey/phishing-detector/internal/core"
)

// CliFilter implements a command-line interface for phishing detection
type CliFilter struct {
	service *core.AnalysisService
	logger  *zap.Logger
	verbose bool
}

// NewCliFilter creates a new CLI filter
func NewCliFilter(service *core.AnalysisService, logger *zap.Logger, verbose bool) (*CliFilter, error) {
	return &CliFilter{
		service: service,
		logger:  logger,
		verbose: verbose,
	}, nil
}

// ProcessEmail analyzes an email and displays the results
func (f *CliFilter) ProcessEmail(ctx context.Context, email *core.ParsedEmail) (*core.Report, error) {
	f.logger.Debug("Processing email", zap.String("sender", email.SenderAddress))

	// Print email summary
	fmt.Printf("\n=== Email Summary ===\n")
	fmt.Printf("From: %s <%s>\n", email.SenderName, email.SenderAddress)
	fmt.Printf("Subject: %s\n", email.Subject)
	fmt.Printf("URLs: %d\n", len(email.URLs))
	fmt.Printf("Attachments: %d\n", len(email.Attachments))

	// Print body preview if verbose
	if f.verbose {
		preview := email.BodyText
		if len(preview) > 500 {
			preview = preview[:500] + "..."
		}
		fmt.Printf("\nBody preview:\n%s\n", preview)
	}

	fmt.Printf("\n")

	// Analyze email
	fmt.Printf("=== Analysis ===\n")
	startTime := time.Now()
	report, err := f.service.Analyze(ctx, email)
	if err != nil {
		f.logger.Error("Failed to analyze email", zap.Error(err))
		fmt.Printf("Error: %v\n", err)
		return nil, err
	}
	duration := time.Since(startTime)

	// Print results
	fmt.Printf("\n=== Results ===\n")
	fmt.Printf("Total score: %.2f\n", report.TotalScore)
	fmt.Printf("Threat level: %s\n", report.ThreatLevel)
	fmt.Printf("Completeness: %s\n", report.Completeness)
	for _, category := range core.Categories {
		result := report.Result(category)
		fmt.Printf("\n[%s] score %.2f (%s)\n", category, result.Score, result.Completeness)
		for _, finding := range result.Findings {
			fmt.Printf("  - %s (severity %d): %s\n", finding.Indicator, finding.Severity, finding.Description)
			if f.verbose && finding.Evidence != "" {
				fmt.Printf("    evidence: %s\n", finding.Evidence)
			}
		}
	}
	if len(report.Recommendations) > 0 {
		fmt.Printf("\nRecommendations:\n")
		for _, rec := range report.Recommendations {
			fmt.Printf("  * %s\n", rec)
		}
	}
	fmt.Printf("\nProcessing time: %v\n", duration)

	return report, nil
}

// Start is a no-op for the CLI filter
func (f *CliFilter) Start() error {
	return nil
}

// Stop is a no-op for the CLI filter
func (f *CliFilter) Stop() error {
	return nil
}
