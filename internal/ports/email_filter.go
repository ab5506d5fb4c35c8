package ports

import (
	"context"

	"github.com/mikey/phishing-detector/internal/core"
)

// EmailFilter defines the interface for email filtering
type EmailFilter interface {
	// ProcessEmail analyzes an email and returns the threat report
	ProcessEmail(ctx context.Context, email *core.ParsedEmail) (*core.Report, error)

	// Start starts the email filter service
	Start() error

	// Stop stops the email filter service
	Stop() error
}
