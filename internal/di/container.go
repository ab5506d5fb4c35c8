package di

import (
	"fmt"

	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/phishing-detector/internal/config"
	"github.com/mikey/phishing-detector/internal/core"
	"github.com/mikey/phishing-detector/internal/factory"
	"github.com/mikey/phishing-detector/internal/logging"
	"github.com/mikey/phishing-detector/internal/ports"
	"github.com/mikey/phishing-detector/internal/whitelist"
)

// newTrustedSenders builds the sender whitelist from configuration
func newTrustedSenders(cfg *config.Config, logger *zap.Logger) core.SenderWhitelist {
	return whitelist.NewChecker(cfg.GetStringSlice("engine.trusted_domains"), logger)
}

// BuildContainer creates and configures a dependency injection container
func BuildContainer() (*dig.Container, error) {
	container := dig.New()

	// Register configuration
	if err := container.Provide(config.New); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(logging.InitLogger); err != nil {
		return nil, err
	}

	// Register factories
	if err := container.Provide(factory.NewAnalyzerFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewCacheFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewFilterFactory); err != nil {
		return nil, err
	}

	// Register analyzers
	if err := container.Provide(func(f *factory.AnalyzerFactory) ([]core.Analyzer, error) {
		return f.CreateAnalyzers()
	}); err != nil {
		return nil, err
	}

	// Register report builder
	if err := container.Provide(func(f *factory.AnalyzerFactory) core.ReportBuilder {
		return f.CreateScorer()
	}); err != nil {
		return nil, err
	}

	// Register verdict cache
	if err := container.Provide(func(f *factory.CacheFactory) (core.VerdictCache, error) {
		return f.CreateVerdictCache()
	}); err != nil {
		return nil, err
	}

	// Register analysis service
	if err := container.Provide(func(
		analyzers []core.Analyzer,
		builder core.ReportBuilder,
		verdictCache core.VerdictCache,
		cacheFactory *factory.CacheFactory,
		cfg *config.Config,
		logger *zap.Logger,
	) (*core.AnalysisService, error) {
		cacheTTL, err := cacheFactory.GetCacheTTL()
		if err != nil {
			return nil, fmt.Errorf("invalid cache TTL: %w", err)
		}
		timeout, err := cfg.GetDuration("engine.timeout")
		if err != nil {
			return nil, fmt.Errorf("invalid engine timeout: %w", err)
		}
		return core.NewAnalysisService(
			analyzers,
			builder,
			verdictCache,
			newTrustedSenders(cfg, logger),
			logger,
			cacheFactory.IsCacheEnabled(),
			cacheTTL,
			timeout,
		), nil
	}); err != nil {
		return nil, err
	}

	// Register email filter
	if err := container.Provide(func(f *factory.FilterFactory) (ports.EmailFilter, error) {
		return f.CreateEmailFilter()
	}); err != nil {
		return nil, err
	}

	return container, nil
}
