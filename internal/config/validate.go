package config

import (
	"errors"
	"fmt"
)

// Validate checks that all required fields are set and values are valid.
func (c *Config) Validate() error {
	if c.Instance.ID == "" {
		return errors.New("instance.id is required")
	}

	switch c.Pipeline.Source {
	case SourceAuto, SourceRest, SourceFlatFile:
	default:
		return fmt.Errorf("pipeline.source must be %q, %q or %q, got %q",
			SourceAuto, SourceRest, SourceFlatFile, c.Pipeline.Source)
	}
	if c.Pipeline.Source == SourceFlatFile && !c.FlatFiles.Enabled {
		return errors.New("pipeline.source is \"flatfile\" but flatfiles.enabled is false")
	}
	if c.Pipeline.Concurrency < 1 {
		return errors.New("pipeline.concurrency must be >= 1")
	}
	if c.Pipeline.PersistAttempts < 1 {
		return errors.New("pipeline.persist_attempts must be >= 1")
	}

	if c.needsREST() {
		if c.API.APIKey == "" {
			return errors.New("api.api_key is required")
		}
		if c.API.BaseURL == "" {
			return errors.New("api.base_url is required")
		}
	}
	if c.API.Timeout <= 0 {
		return errors.New("api.timeout must be positive")
	}
	if c.API.MaxRetries < 0 {
		return errors.New("api.max_retries must be >= 0")
	}
	if c.API.RequestsPerSec < 0 {
		return errors.New("api.requests_per_sec must be >= 0")
	}

	if c.needsFlatFiles() {
		if c.FlatFiles.AccessKey == "" {
			return errors.New("flatfiles.access_key is required when flatfiles.enabled is true")
		}
		if c.FlatFiles.SecretKey == "" {
			return errors.New("flatfiles.secret_key is required when flatfiles.enabled is true")
		}
		if c.FlatFiles.Endpoint == "" {
			return errors.New("flatfiles.endpoint is required")
		}
		if c.FlatFiles.Bucket == "" {
			return errors.New("flatfiles.bucket is required")
		}
	}
	if c.FlatFiles.MinTradeSize < 0 {
		return errors.New("flatfiles.min_trade_size must be >= 0")
	}
	if c.FlatFiles.UseTrades && len(c.FlatFiles.Venues) == 0 {
		return errors.New("flatfiles.venues must not be empty when flatfiles.use_trades is true")
	}

	if c.Detection.WindowSize < 2 {
		return fmt.Errorf("detection.window_size must be >= 2, got %d", c.Detection.WindowSize)
	}
	if c.Detection.ZThreshold <= 0 {
		return errors.New("detection.z_threshold must be positive")
	}

	if err := c.Database.Postgres.validate("database.postgres"); err != nil {
		return err
	}

	if c.Metrics.Port != -1 && (c.Metrics.Port < 1 || c.Metrics.Port > 65535) {
		return fmt.Errorf("metrics.port must be -1 or between 1 and 65535, got %d", c.Metrics.Port)
	}
	if c.Metrics.Path == "" || c.Metrics.Path[0] != '/' {
		return fmt.Errorf("metrics.path must start with \"/\", got %q", c.Metrics.Path)
	}

	return nil
}

// needsREST reports whether the REST source can be exercised by the
// configured pipeline.
func (c *Config) needsREST() bool {
	switch c.Pipeline.Source {
	case SourceRest, SourceAuto:
		return true
	case SourceFlatFile:
		return c.Pipeline.Fallback
	}
	return false
}

// needsFlatFiles reports whether the flat-file source can be exercised
// by the configured pipeline.
func (c *Config) needsFlatFiles() bool {
	return c.FlatFiles.Enabled && c.Pipeline.Source != SourceRest
}

func (db *DBConfig) validate(prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Port < 1 || db.Port > 65535 {
		return fmt.Errorf("%s.port must be between 1 and 65535, got %d", prefix, db.Port)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.Password == "" {
		return fmt.Errorf("%s.password is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}
