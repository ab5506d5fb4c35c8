package config

import (
	"time"
)

// EngineConfig represents the configuration for the analysis engine
type EngineConfig struct {
	Timeout        time.Duration
	TrustedDomains []string
}

// ScoringConfig represents the aggregation and classification configuration
type ScoringConfig struct {
	WeightURL          float64
	WeightContent      float64
	WeightSender       float64
	WeightAttachment   float64
	ThresholdLow       float64
	ThresholdMedium    float64
	ThresholdHigh      float64
	ThresholdCritical  float64
	RenormalizeMissing bool
	CriticalSeverity   int
	CriticalFloor      float64
	MaxRecommendations int
}

// EnrichmentConfig represents the optional DNS enrichment configuration
type EnrichmentConfig struct {
	Enabled bool
	Servers []string
	Timeout time.Duration
}

// CacheConfig represents the verdict cache configuration
type CacheConfig struct {
	Type             string
	Enabled          bool
	TTL              time.Duration
	CleanupFrequency time.Duration
	SQLitePath       string
	MySQLDSN         string
}

// ServerConfig represents the transport configuration
type ServerConfig struct {
	FilterType        string
	ListenAddress     string
	BlockCritical     bool
	ScoreHeader       string
	LevelHeader       string
	ReasonHeader      string
	PostfixAddress    string
	PostfixPort       int
	PostfixEnabled    bool
	SubjectPrefix     string
	ModifySubject     bool
	HTTPListenAddress string
}

// GetEngine returns the engine configuration
func (c *Config) GetEngine() EngineConfig {
	timeout, err := c.GetDuration("engine.timeout")
	if err != nil {
		timeout = 5 * time.Second
	}
	return EngineConfig{
		Timeout:        timeout,
		TrustedDomains: c.GetStringSlice("engine.trusted_domains"),
	}
}

// GetScoring returns the scoring configuration
func (c *Config) GetScoring() ScoringConfig {
	return ScoringConfig{
		WeightURL:          c.GetFloat64("scoring.weights.url"),
		WeightContent:      c.GetFloat64("scoring.weights.content"),
		WeightSender:       c.GetFloat64("scoring.weights.sender"),
		WeightAttachment:   c.GetFloat64("scoring.weights.attachment"),
		ThresholdLow:       c.GetFloat64("scoring.thresholds.low"),
		ThresholdMedium:    c.GetFloat64("scoring.thresholds.medium"),
		ThresholdHigh:      c.GetFloat64("scoring.thresholds.high"),
		ThresholdCritical:  c.GetFloat64("scoring.thresholds.critical"),
		RenormalizeMissing: c.GetBool("scoring.renormalize_missing"),
		CriticalSeverity:   c.GetInt("scoring.critical_severity"),
		CriticalFloor:      c.GetFloat64("scoring.critical_floor"),
		MaxRecommendations: c.GetInt("scoring.max_recommendations"),
	}
}

// GetEnrichment returns the enrichment configuration
func (c *Config) GetEnrichment() EnrichmentConfig {
	timeout, err := c.GetDuration("enrichment.timeout")
	if err != nil {
		timeout = 2 * time.Second
	}
	return EnrichmentConfig{
		Enabled: c.GetBool("enrichment.enabled"),
		Servers: c.GetStringSlice("enrichment.servers"),
		Timeout: timeout,
	}
}

// GetCache returns the cache configuration
func (c *Config) GetCache() (CacheConfig, error) {
	ttl, err := c.GetDuration("cache.ttl")
	if err != nil {
		return CacheConfig{}, err
	}
	cleanup, err := c.GetDuration("cache.cleanup_frequency")
	if err != nil {
		return CacheConfig{}, err
	}
	return CacheConfig{
		Type:             c.GetString("cache.type"),
		Enabled:          c.GetBool("cache.enabled"),
		TTL:              ttl,
		CleanupFrequency: cleanup,
		SQLitePath:       c.GetString("cache.sqlite_path"),
		MySQLDSN:         c.GetString("cache.mysql_dsn"),
	}, nil
}

// GetServer returns the server configuration
func (c *Config) GetServer() ServerConfig {
	return ServerConfig{
		FilterType:        c.GetString("server.filter_type"),
		ListenAddress:     c.GetString("server.listen_address"),
		BlockCritical:     c.GetBool("server.block_critical"),
		ScoreHeader:       c.GetString("server.headers.score"),
		LevelHeader:       c.GetString("server.headers.level"),
		ReasonHeader:      c.GetString("server.headers.reason"),
		PostfixAddress:    c.GetString("server.postfix.address"),
		PostfixPort:       c.GetInt("server.postfix.port"),
		PostfixEnabled:    c.GetBool("server.postfix.enabled"),
		SubjectPrefix:     c.GetString("server.subject_prefix"),
		ModifySubject:     c.GetBool("server.modify_subject"),
		HTTPListenAddress: c.GetString("server.http.listen_address"),
	}
}
