package config

import "time"

// Defaults applied by LoadWithDefaults for fields left unset.
const (
	DefaultInstanceID = "tradewatch"

	DefaultAPIBaseURL     = "https://api.polygon.io"
	DefaultAPITimeout     = 30 * time.Second
	DefaultAPIMaxRetries  = 3
	DefaultRequestsPerSec = 0

	DefaultFlatFilesEndpoint = "files.polygon.io"
	DefaultFlatFilesBucket   = "flatfiles"
	DefaultFlatFilesTimeout  = 60 * time.Second
	DefaultMaxElapsedRetry   = 2 * time.Minute

	DefaultWindowSize = 5
	// DefaultZThreshold applies to day-aggregate counts. Filtered trade
	// counts are far noisier, so trade mode uses a lower bar.
	DefaultZThreshold      = 3.0
	DefaultTradeZThreshold = 1.5

	DefaultDBPort     = 5432
	DefaultDBSSLMode  = "prefer"
	DefaultDBMaxConns = 10
	DefaultDBMinConns = 2

	DefaultSource          = SourceAuto
	DefaultConcurrency     = 32
	DefaultPersistAttempts = 3

	DefaultMetricsPort = 9090
	DefaultMetricsPath = "/metrics"
)

// DefaultVenues are the off-exchange venue codes kept in trade mode.
var DefaultVenues = []string{"TRF", "ADF"}

// applyDefaults fills in default values for unset fields.
func (c *Config) applyDefaults() {
	if c.Instance.ID == "" {
		c.Instance.ID = DefaultInstanceID
	}

	if c.API.BaseURL == "" {
		c.API.BaseURL = DefaultAPIBaseURL
	}
	if c.API.Timeout == 0 {
		c.API.Timeout = DefaultAPITimeout
	}
	if c.API.MaxRetries == 0 {
		c.API.MaxRetries = DefaultAPIMaxRetries
	}

	if c.FlatFiles.Endpoint == "" {
		c.FlatFiles.Endpoint = DefaultFlatFilesEndpoint
	}
	if c.FlatFiles.Bucket == "" {
		c.FlatFiles.Bucket = DefaultFlatFilesBucket
	}
	if len(c.FlatFiles.Venues) == 0 {
		c.FlatFiles.Venues = append([]string(nil), DefaultVenues...)
	}
	if c.FlatFiles.Timeout == 0 {
		c.FlatFiles.Timeout = DefaultFlatFilesTimeout
	}
	if c.FlatFiles.MaxElapsedRetry == 0 {
		c.FlatFiles.MaxElapsedRetry = DefaultMaxElapsedRetry
	}

	if c.Detection.WindowSize == 0 {
		c.Detection.WindowSize = DefaultWindowSize
	}
	if c.Detection.ZThreshold == 0 {
		if c.FlatFiles.UseTrades {
			c.Detection.ZThreshold = DefaultTradeZThreshold
		} else {
			c.Detection.ZThreshold = DefaultZThreshold
		}
	}

	if c.Database.Postgres.Port == 0 {
		c.Database.Postgres.Port = DefaultDBPort
	}
	if c.Database.Postgres.SSLMode == "" {
		c.Database.Postgres.SSLMode = DefaultDBSSLMode
	}
	if c.Database.Postgres.MaxConns == 0 {
		c.Database.Postgres.MaxConns = DefaultDBMaxConns
	}
	if c.Database.Postgres.MinConns == 0 {
		c.Database.Postgres.MinConns = DefaultDBMinConns
	}

	if c.Pipeline.Source == "" {
		c.Pipeline.Source = DefaultSource
	}
	if c.Pipeline.Concurrency == 0 {
		c.Pipeline.Concurrency = DefaultConcurrency
	}
	if c.Pipeline.PersistAttempts == 0 {
		c.Pipeline.PersistAttempts = DefaultPersistAttempts
	}

	if c.Metrics.Port == 0 {
		c.Metrics.Port = DefaultMetricsPort
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = DefaultMetricsPath
	}
}
