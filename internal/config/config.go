package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	v *viper.Viper
}

// New creates a new configuration instance
func New() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/phishing-detector/")
	v.AddConfigPath("$HOME/.phishing-detector")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")

	// Set defaults
	setDefaults(v)

	// Environment variables
	v.AutomaticEnv()
	v.SetEnvPrefix("PHISHING_DETECTOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, using defaults
	}

	return &Config{v: v}, nil
}

// NewFromViper creates a new configuration instance from an existing Viper instance
func NewFromViper(v *viper.Viper) *Config {
	return &Config{v: v}
}

// NewEmptyViper creates a new Viper instance with defaults
func NewEmptyViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	return v
}

// setDefaults sets the default configuration values. Every reference list the
// analyzers consume lives here so deployments can override it without a
// rebuild.
func setDefaults(v *viper.Viper) {
	// Engine defaults
	v.SetDefault("engine.timeout", "5s")
	v.SetDefault("engine.trusted_domains", []string{})

	// Scoring defaults
	v.SetDefault("scoring.weights.url", 0.25)
	v.SetDefault("scoring.weights.content", 0.25)
	v.SetDefault("scoring.weights.sender", 0.30)
	v.SetDefault("scoring.weights.attachment", 0.20)
	v.SetDefault("scoring.thresholds.low", 10.0)
	v.SetDefault("scoring.thresholds.medium", 30.0)
	v.SetDefault("scoring.thresholds.high", 50.0)
	v.SetDefault("scoring.thresholds.critical", 70.0)
	v.SetDefault("scoring.renormalize_missing", false)
	v.SetDefault("scoring.critical_severity", 85)
	v.SetDefault("scoring.critical_floor", 50.0)
	v.SetDefault("scoring.max_recommendations", 5)

	// Protected brand domains, shared by the URL and sender analyzers
	v.SetDefault("brands.protected_domains", []string{
		"paypal.com", "amazon.com", "facebook.com", "google.com",
		"microsoft.com", "apple.com", "netflix.com", "instagram.com",
		"twitter.com", "linkedin.com", "ebay.com", "chase.com",
		"wellsfargo.com", "bankofamerica.com", "citibank.com",
	})

	// URL analyzer defaults
	v.SetDefault("url.shorteners", []string{
		"bit.ly", "tinyurl.com", "goo.gl", "ow.ly", "t.co",
		"is.gd", "buff.ly", "adf.ly", "cutt.ly", "short.link",
	})
	v.SetDefault("url.suspicious_tlds", []string{
		".tk", ".ml", ".ga", ".cf", ".gq", ".xyz", ".top",
		".work", ".click", ".link", ".download",
	})
	v.SetDefault("url.suspicious_keywords", []string{
		"secure", "account", "update", "verify", "login", "banking", "signin",
	})
	v.SetDefault("url.edit_distance", 2)
	v.SetDefault("url.max_subdomains", 3)
	v.SetDefault("url.max_length", 150)
	v.SetDefault("url.max_escapes", 3)
	v.SetDefault("url.severities", map[string]int{})

	// Content analyzer defaults
	v.SetDefault("content.categories", []string{
		"urgency", "threat", "offer", "sensitive_request", "generic_greeting",
	})
	v.SetDefault("content.category.urgency.keywords", []string{
		"urgent", "immediate", "action required", "act now", "quickly",
		"immediately", "expires", "limited time", "hurry",
		"right now", "asap", "time sensitive",
	})
	v.SetDefault("content.category.urgency.weight", 15)
	v.SetDefault("content.category.urgency.cap", 3)
	v.SetDefault("content.category.urgency.severity", 40)
	v.SetDefault("content.category.urgency.description", "Urgency language detected")

	v.SetDefault("content.category.threat.keywords", []string{
		"suspend", "suspended", "locked", "frozen", "terminate", "terminated",
		"deactivate", "unusual activity", "suspicious activity",
		"unauthorized", "security alert", "fraudulent", "compromised",
	})
	v.SetDefault("content.category.threat.weight", 20)
	v.SetDefault("content.category.threat.cap", 3)
	v.SetDefault("content.category.threat.severity", 60)
	v.SetDefault("content.category.threat.description", "Threat or fear language detected")

	v.SetDefault("content.category.offer.keywords", []string{
		"congratulations", "winner", "prize", "reward", "lottery",
		"inheritance", "you have been selected", "exclusive offer", "guaranteed",
	})
	v.SetDefault("content.category.offer.weight", 15)
	v.SetDefault("content.category.offer.cap", 3)
	v.SetDefault("content.category.offer.severity", 40)
	v.SetDefault("content.category.offer.description", "Too-good-to-be-true offer language")

	v.SetDefault("content.category.sensitive_request.keywords", []string{
		"password", "ssn", "social security", "credit card", "card number",
		"cvv", "pin", "account number", "routing number",
		"verify your", "confirm your", "validate your",
		"verify account", "confirm identity", "personal information",
	})
	v.SetDefault("content.category.sensitive_request.weight", 25)
	v.SetDefault("content.category.sensitive_request.cap", 3)
	v.SetDefault("content.category.sensitive_request.severity", 80)
	v.SetDefault("content.category.sensitive_request.description", "Request for sensitive information")

	v.SetDefault("content.category.generic_greeting.keywords", []string{
		"dear customer", "dear user", "dear member", "dear account holder",
		"valued customer", "valued member", "hello user",
	})
	v.SetDefault("content.category.generic_greeting.weight", 10)
	v.SetDefault("content.category.generic_greeting.cap", 1)
	v.SetDefault("content.category.generic_greeting.severity", 20)
	v.SetDefault("content.category.generic_greeting.description", "Generic, impersonal greeting")

	v.SetDefault("content.misspellings", map[string]string{
		"recieve":    "receive",
		"occured":    "occurred",
		"seperate":   "separate",
		"untill":     "until",
		"transfered": "transferred",
	})
	v.SetDefault("content.misspelling_weight", 5)
	v.SetDefault("content.misspelling_cap", 3)
	v.SetDefault("content.formatting_weight", 10)
	v.SetDefault("content.uppercase_ratio", 0.3)
	v.SetDefault("content.min_letters", 20)
	v.SetDefault("content.severities", map[string]int{})

	// Sender analyzer defaults
	v.SetDefault("sender.free_providers", []string{
		"gmail.com", "yahoo.com", "hotmail.com", "outlook.com",
		"aol.com", "mail.com", "protonmail.com", "icloud.com",
		"live.com", "msn.com", "zoho.com", "yandex.com",
	})
	v.SetDefault("sender.org_keywords", []string{
		"bank", "support", "service", "team", "security",
		"account", "admin", "notification", "noreply", "billing",
	})
	v.SetDefault("sender.edit_distance", 2)
	v.SetDefault("sender.severities", map[string]int{})

	// Attachment analyzer defaults
	v.SetDefault("attachment.dangerous_extensions", []string{
		".exe", ".bat", ".cmd", ".com", ".pif", ".scr", ".vbs",
		".js", ".jar", ".wsf", ".ps1", ".hta", ".msi",
	})
	v.SetDefault("attachment.macro_extensions", []string{
		".docm", ".xlsm", ".pptm", ".dotm", ".xlam",
	})
	v.SetDefault("attachment.benign_extensions", []string{
		".pdf", ".doc", ".docx", ".xls", ".xlsx",
		".jpg", ".jpeg", ".png", ".gif", ".txt",
	})
	v.SetDefault("attachment.mime_types", map[string]string{
		".pdf":  "application/pdf",
		".doc":  "application/msword",
		".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		".xls":  "application/vnd.ms-excel",
		".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		".zip":  "application/zip",
		".jpg":  "image/jpeg",
		".png":  "image/png",
	})
	v.SetDefault("attachment.max_size", 10*1024*1024)
	v.SetDefault("attachment.severities", map[string]int{})

	// Enrichment defaults
	v.SetDefault("enrichment.enabled", false)
	v.SetDefault("enrichment.servers", []string{"1.1.1.1:53", "8.8.8.8:53"})
	v.SetDefault("enrichment.timeout", "2s")

	// Cache defaults
	v.SetDefault("cache.type", "memory")
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.ttl", "24h")
	v.SetDefault("cache.cleanup_frequency", "1h")
	v.SetDefault("cache.sqlite_path", "/data/phishing_cache.db")
	v.SetDefault("cache.mysql_dsn", "user:password@tcp(localhost:3306)/phishing_detector")

	// Server defaults
	v.SetDefault("server.filter_type", "postfix")
	v.SetDefault("server.listen_address", "0.0.0.0:10025")
	v.SetDefault("server.block_critical", false)
	v.SetDefault("server.headers.score", "X-Phishing-Score")
	v.SetDefault("server.headers.level", "X-Phishing-Level")
	v.SetDefault("server.headers.reason", "X-Phishing-Reason")
	v.SetDefault("server.postfix.address", "127.0.0.1")
	v.SetDefault("server.postfix.port", 10026)
	v.SetDefault("server.postfix.enabled", false)
	v.SetDefault("server.subject_prefix", "")
	v.SetDefault("server.modify_subject", false)
	v.SetDefault("server.http.listen_address", "0.0.0.0:8080")
	v.SetDefault("server.http.max_body_size", 10*1024*1024)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// GetString gets a string value from the configuration
func (c *Config) GetString(key string) string {
	return c.v.GetString(key)
}

// GetInt gets an integer value from the configuration
func (c *Config) GetInt(key string) int {
	return c.v.GetInt(key)
}

// GetInt64 gets a 64-bit integer value from the configuration
func (c *Config) GetInt64(key string) int64 {
	return c.v.GetInt64(key)
}

// GetFloat64 gets a float64 value from the configuration
func (c *Config) GetFloat64(key string) float64 {
	return c.v.GetFloat64(key)
}

// GetBool gets a boolean value from the configuration
func (c *Config) GetBool(key string) bool {
	return c.v.GetBool(key)
}

// GetStringSlice gets a string slice value from the configuration
func (c *Config) GetStringSlice(key string) []string {
	return c.v.GetStringSlice(key)
}

// GetStringMapString gets a map of string to string from the configuration
func (c *Config) GetStringMapString(key string) map[string]string {
	return c.v.GetStringMapString(key)
}

// GetIntMap gets a map of string to int from the configuration
func (c *Config) GetIntMap(key string) map[string]int {
	raw := c.v.GetStringMap(key)
	out := make(map[string]int, len(raw))
	for k := range raw {
		out[k] = c.v.GetInt(key + "." + k)
	}
	return out
}

// GetDuration gets a duration value from the configuration
func (c *Config) GetDuration(key string) (time.Duration, error) {
	return time.ParseDuration(c.GetString(key))
}

// GetViper returns the underlying Viper instance
func (c *Config) GetViper() *viper.Viper {
	return c.v
}
