// Package config provides configuration management for the aggregation service.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the aggregation service.
type Config struct {
	// Server contains HTTP server settings.
	Server ServerConfig `mapstructure:"server"`
	// Logging contains structured logging settings.
	Logging LoggingConfig `mapstructure:"logging"`
	// Metrics contains Prometheus metrics exposure settings.
	Metrics MetricsConfig `mapstructure:"metrics"`
	// Dispatch contains scatter-gather dispatcher settings.
	Dispatch DispatchConfig `mapstructure:"dispatch"`
	// Enrichment contains citation enrichment settings.
	Enrichment EnrichmentConfig `mapstructure:"enrichment"`
	// Scoring contains similarity scorer settings.
	Scoring ScoringConfig `mapstructure:"scoring"`
	// Providers contains provider adapter configurations.
	Providers ProvidersConfig `mapstructure:"providers"`
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	// Host is the address to bind the server to (default: 0.0.0.0).
	Host string `mapstructure:"host"`
	// HTTPPort is the HTTP server port (default: 8080).
	HTTPPort int `mapstructure:"http_port"`
	// MetricsPort is the metrics server port (default: 9091).
	MetricsPort int `mapstructure:"metrics_port"`
	// ReadTimeout is the maximum duration for reading the request body.
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
	// WriteTimeout is the maximum duration for writing a response.
	// Must exceed dispatch.overall_deadline or SSE streams get cut off.
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	// IdleTimeout is the keep-alive idle timeout.
	IdleTimeout time.Duration `mapstructure:"idle_timeout"`
	// ShutdownTimeout is the maximum duration to wait for graceful shutdown.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the log level (trace, debug, info, warn, error, fatal, panic).
	Level string `mapstructure:"level"`
	// Format is the log format (json, console).
	Format string `mapstructure:"format"`
	// Output is the log output destination (stdout, stderr).
	Output string `mapstructure:"output"`
	// AddSource adds source file and line to log output.
	AddSource bool `mapstructure:"add_source"`
	// TimeFormat is the timestamp format.
	TimeFormat string `mapstructure:"time_format"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	// Enabled enables metrics collection and exposure.
	Enabled bool `mapstructure:"enabled"`
	// Path is the HTTP path for the metrics endpoint.
	Path string `mapstructure:"path"`
}

// DispatchConfig holds scatter-gather dispatcher settings.
type DispatchConfig struct {
	// ProviderTimeout is the per-provider deadline. A provider exceeding it
	// is cancelled and reported as a timeout without affecting siblings.
	ProviderTimeout time.Duration `mapstructure:"provider_timeout"`
	// OverallDeadline bounds one whole dispatch run. Must be longer than
	// ProviderTimeout.
	OverallDeadline time.Duration `mapstructure:"overall_deadline"`
	// EventBuffer is the dispatch event channel buffer size.
	EventBuffer int `mapstructure:"event_buffer"`
}

// EnrichmentConfig holds citation enrichment settings.
type EnrichmentConfig struct {
	// Enabled controls whether the enrichment endpoint is served.
	Enabled bool `mapstructure:"enabled"`
	// BaseURL is the citation metrics service base URL.
	BaseURL string `mapstructure:"base_url"`
	// APIKey is the metrics service API key (loaded from environment).
	APIKey string `mapstructure:"-"`
	// Timeout is the timeout for one batch call.
	Timeout time.Duration `mapstructure:"timeout"`
	// RateLimit is the maximum requests per second.
	RateLimit float64 `mapstructure:"rate_limit"`
	// MaxBatchSize caps the number of lookup keys per batch request.
	MaxBatchSize int `mapstructure:"max_batch_size"`
}

// ScoringConfig holds similarity scorer settings.
type ScoringConfig struct {
	// DefaultMinScore is the threshold applied when a request supplies none.
	DefaultMinScore float64 `mapstructure:"default_min_score"`
	// MaxCandidates caps the candidate list size accepted per request.
	MaxCandidates int `mapstructure:"max_candidates"`
}

// ProvidersConfig holds configuration for all provider adapters.
type ProvidersConfig struct {
	// Crossref contains Crossref API settings.
	Crossref ProviderConfig `mapstructure:"crossref"`
	// OpenAlex contains OpenAlex API settings.
	OpenAlex ProviderConfig `mapstructure:"openalex"`
	// PubChem contains PubChem API settings.
	PubChem ProviderConfig `mapstructure:"pubchem"`
	// LOC contains Library of Congress catalog settings.
	LOC ProviderConfig `mapstructure:"loc"`
}

// ProviderConfig holds configuration for a single provider adapter.
type ProviderConfig struct {
	// Enabled controls whether this provider is registered.
	Enabled bool `mapstructure:"enabled"`
	// APIKey is the API key (loaded from environment, e.g.
	// YAYINPINARI_PROVIDERS_CROSSREF_API_KEY).
	APIKey string `mapstructure:"-"`
	// BaseURL is the API base URL.
	BaseURL string `mapstructure:"base_url"`
	// Timeout is the HTTP timeout for API calls.
	Timeout time.Duration `mapstructure:"timeout"`
	// RateLimit is the maximum requests per second.
	RateLimit float64 `mapstructure:"rate_limit"`
	// MaxResults caps the page size sent upstream.
	MaxResults int `mapstructure:"max_results"`
}

// HTTPAddress returns the HTTP server address.
func (c *ServerConfig) HTTPAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.HTTPPort)
}

// MetricsAddress returns the metrics server address.
func (c *ServerConfig) MetricsAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.MetricsPort)
}

// Load loads configuration from environment variables and config files.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("YAYINPINARI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/yayinpinari")

	if err := v.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is OK, we'll use env vars and defaults.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Secrets are loaded exclusively from environment variables.
	// The fields use mapstructure:"-" to prevent loading from config files.
	loadSecrets(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// loadSecrets populates secret fields exclusively from environment variables.
func loadSecrets(cfg *Config) {
	// PubChem and the Library of Congress are keyless public APIs.
	cfg.Providers.Crossref.APIKey = os.Getenv("YAYINPINARI_PROVIDERS_CROSSREF_API_KEY")
	cfg.Providers.OpenAlex.APIKey = os.Getenv("YAYINPINARI_PROVIDERS_OPENALEX_API_KEY")
	cfg.Enrichment.APIKey = os.Getenv("YAYINPINARI_ENRICHMENT_API_KEY")
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.http_port", 8080)
	v.SetDefault("server.metrics_port", 9091)
	v.SetDefault("server.read_timeout", "30s")
	// Long enough for an SSE stream to outlive the overall dispatch deadline.
	v.SetDefault("server.write_timeout", "2m")
	v.SetDefault("server.idle_timeout", "2m")
	v.SetDefault("server.shutdown_timeout", "30s")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.add_source", false)
	v.SetDefault("logging.time_format", time.RFC3339)

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")

	// Dispatch defaults
	v.SetDefault("dispatch.provider_timeout", "15s")
	v.SetDefault("dispatch.overall_deadline", "45s")
	v.SetDefault("dispatch.event_buffer", 16)

	// Enrichment defaults
	v.SetDefault("enrichment.enabled", true)
	v.SetDefault("enrichment.base_url", "https://api.semanticscholar.org/graph/v1")
	v.SetDefault("enrichment.timeout", "30s")
	v.SetDefault("enrichment.rate_limit", 1.0)
	v.SetDefault("enrichment.max_batch_size", 100)

	// Scoring defaults
	v.SetDefault("scoring.default_min_score", 0.1)
	v.SetDefault("scoring.max_candidates", 500)

	// Provider defaults - Crossref
	v.SetDefault("providers.crossref.enabled", true)
	v.SetDefault("providers.crossref.base_url", "https://api.crossref.org")
	v.SetDefault("providers.crossref.timeout", "30s")
	v.SetDefault("providers.crossref.rate_limit", 10.0)
	v.SetDefault("providers.crossref.max_results", 50)

	// Provider defaults - OpenAlex
	v.SetDefault("providers.openalex.enabled", true)
	v.SetDefault("providers.openalex.base_url", "https://api.openalex.org")
	v.SetDefault("providers.openalex.timeout", "30s")
	v.SetDefault("providers.openalex.rate_limit", 10.0)
	v.SetDefault("providers.openalex.max_results", 50)

	// Provider defaults - PubChem
	v.SetDefault("providers.pubchem.enabled", true)
	v.SetDefault("providers.pubchem.base_url", "https://pubchem.ncbi.nlm.nih.gov/rest/pug")
	v.SetDefault("providers.pubchem.timeout", "30s")
	v.SetDefault("providers.pubchem.rate_limit", 5.0) // NCBI recommends max 5 req/sec
	v.SetDefault("providers.pubchem.max_results", 25)

	// Provider defaults - Library of Congress
	v.SetDefault("providers.loc.enabled", true)
	v.SetDefault("providers.loc.base_url", "https://www.loc.gov")
	v.SetDefault("providers.loc.timeout", "30s")
	v.SetDefault("providers.loc.rate_limit", 2.0)
	v.SetDefault("providers.loc.max_results", 25)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.Server.HTTPPort)
	}
	if c.Server.MetricsPort <= 0 || c.Server.MetricsPort > 65535 {
		return fmt.Errorf("invalid metrics port: %d", c.Server.MetricsPort)
	}

	validLogLevels := map[string]bool{
		"trace": true, "debug": true, "info": true,
		"warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	if c.Dispatch.ProviderTimeout <= 0 {
		return fmt.Errorf("dispatch provider_timeout must be positive")
	}
	if c.Dispatch.OverallDeadline <= c.Dispatch.ProviderTimeout {
		return fmt.Errorf("dispatch overall_deadline (%s) must exceed provider_timeout (%s)",
			c.Dispatch.OverallDeadline, c.Dispatch.ProviderTimeout)
	}

	if c.Enrichment.Enabled {
		if c.Enrichment.BaseURL == "" {
			return fmt.Errorf("enrichment base_url is required when enrichment is enabled")
		}
		if c.Enrichment.MaxBatchSize <= 0 {
			return fmt.Errorf("enrichment max_batch_size must be positive")
		}
	}

	if c.Scoring.DefaultMinScore < 0 || c.Scoring.DefaultMinScore > 1 {
		return fmt.Errorf("scoring default_min_score must be between 0 and 1")
	}
	if c.Scoring.MaxCandidates <= 0 {
		return fmt.Errorf("scoring max_candidates must be positive")
	}

	return nil
}
