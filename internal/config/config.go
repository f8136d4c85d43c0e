package config

import "time"

// Config is the root configuration for a pipeline instance.
type Config struct {
	Instance  InstanceConfig  `yaml:"instance"`
	API       APIConfig       `yaml:"api"`
	FlatFiles FlatFilesConfig `yaml:"flatfiles"`
	Detection DetectionConfig `yaml:"detection"`
	Database  DatabaseConfig  `yaml:"database"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// InstanceConfig identifies this pipeline instance.
type InstanceConfig struct {
	ID string `yaml:"id"`
}

// APIConfig holds the aggregate REST data-source settings.
type APIConfig struct {
	BaseURL        string        `yaml:"base_url"`
	APIKey         string        `yaml:"api_key"`
	Timeout        time.Duration `yaml:"timeout"`
	MaxRetries     int           `yaml:"max_retries"`
	RequestsPerSec int           `yaml:"requests_per_sec"` // 0 disables client-side rate limiting
}

// FlatFilesConfig holds the bulk flat-file data-source settings. The
// object store is S3-compatible; its credentials are separate from the
// REST API key.
type FlatFilesConfig struct {
	Enabled         bool          `yaml:"enabled"`
	Endpoint        string        `yaml:"endpoint"`
	AccessKey       string        `yaml:"access_key"`
	SecretKey       string        `yaml:"secret_key"`
	Bucket          string        `yaml:"bucket"`
	UseTrades       bool          `yaml:"use_trades"` // aggregate from raw trades instead of day aggregates
	Venues          []string      `yaml:"venues"`     // venue codes kept in trade mode
	MinTradeSize    int64         `yaml:"min_trade_size"`
	Timeout         time.Duration `yaml:"timeout"`
	MaxElapsedRetry time.Duration `yaml:"max_elapsed_retry"`
}

// DetectionConfig holds baseline and threshold settings.
type DetectionConfig struct {
	WindowSize int     `yaml:"window_size"` // lookback trading days per ticker
	ZThreshold float64 `yaml:"z_threshold"` // 0 selects the mode default
}

// DatabaseConfig holds the persistent store connection.
type DatabaseConfig struct {
	Postgres DBConfig `yaml:"postgres"`
}

// DBConfig holds a single database connection.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// PipelineConfig holds orchestration settings.
type PipelineConfig struct {
	Source          string `yaml:"source"`   // auto, rest or flatfile
	Fallback        bool   `yaml:"fallback"` // fall back to REST when flat files fail
	Concurrency     int    `yaml:"concurrency"`
	PersistAttempts int    `yaml:"persist_attempts"`
}

// MetricsConfig holds the Prometheus endpoint settings.
type MetricsConfig struct {
	Port int    `yaml:"port"`
	Path string `yaml:"path"`
}

// Recognized values for PipelineConfig.Source.
const (
	SourceAuto     = "auto"
	SourceRest     = "rest"
	SourceFlatFile = "flatfile"
)
