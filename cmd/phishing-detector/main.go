package main

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/mikey/phishing-detector/internal/core"
	"github.com/mikey/phishing-detector/internal/di"
	"github.com/mikey/phishing-detector/internal/parser"
	"github.com/mikey/phishing-detector/internal/ports"
)

func main() {
	flags := di.ParseFlags()

	container, err := di.BuildCLIContainer(flags)
	if err != nil {
		fmt.Printf("Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	if err := container.Invoke(run); err != nil {
		fmt.Printf("Application error: %v\n", err)
		os.Exit(1)
	}
}

// run reads one email, analyzes it and prints the report
func run(
	flags *di.CLIFlags,
	logger *zap.Logger,
	emailFilter ports.EmailFilter,
) error {
	defer logger.Sync()

	var email *core.ParsedEmail
	var err error

	if flags.InputFile != "" {
		logger.Info("Reading email from file", zap.String("file", flags.InputFile))
		email, err = parser.ParseFile(flags.InputFile)
	} else {
		logger.Info("Reading email from stdin")
		email, err = parser.Parse(os.Stdin)
	}
	if err != nil {
		logger.Error("Failed to parse email", zap.Error(err))
		return err
	}

	report, err := emailFilter.ProcessEmail(context.Background(), email)
	if err != nil {
		return err
	}

	// Non-zero exit for suspicious mail, so shell pipelines can branch on it
	if report.ThreatLevel == core.ThreatHigh || report.ThreatLevel == core.ThreatCritical {
		os.Exit(2)
	}
	return nil
}
