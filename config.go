package recordops

import (
	"time"
)

// Config carries settings for the record store implementations and their
// supporting services.
type Config struct {
	Database DatabaseConfig `json:"database"`
	Bulk     BulkConfig     `json:"bulk"`
	Logging  LoggingConfig  `json:"logging"`
	Archive  ArchiveConfig  `json:"archive"`
}

// DatabaseConfig contains Postgres connection settings.
type DatabaseConfig struct {
	Host            string        `json:"host"`
	Port            int           `json:"port"`
	Database        string        `json:"database"`
	Username        string        `json:"username"`
	Password        string        `json:"password"`
	SSLMode         string        `json:"sslMode"`
	MaxConnections  int           `json:"maxConnections"`
	ConnMaxLifetime time.Duration `json:"connMaxLifetime"`
	Timeout         time.Duration `json:"timeout"`
	RecordsTable    string        `json:"recordsTable"`
}

// BulkConfig contains store-side bulk governance settings. The facade never
// partitions lists; the store rejects calls above the platform limit.
type BulkConfig struct {
	MaxRecordsPerCall int `json:"maxRecordsPerCall"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level              string `json:"level"`
	Format             string `json:"format"`
	LogQueries         bool   `json:"logQueries"`
	LogBulkOperations  bool   `json:"logBulkOperations"`
	SanitizeParameters bool   `json:"sanitizeParameters"`
}

// ArchiveConfig contains settings for the S3 deletion archive. When disabled
// the store deletes without snapshotting.
type ArchiveConfig struct {
	Enabled   bool   `json:"enabled"`
	Bucket    string `json:"bucket"`
	Prefix    string `json:"prefix"`
	Region    string `json:"region"`
	Endpoint  string `json:"endpoint,omitempty"`
	AccessKey string `json:"accessKey,omitempty"`
	SecretKey string `json:"secretKey,omitempty"`
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Host:            "localhost",
			Port:            5432,
			SSLMode:         "disable",
			MaxConnections:  25,
			ConnMaxLifetime: 5 * time.Minute,
			Timeout:         30 * time.Second,
			RecordsTable:    "crm_records",
		},
		Bulk: BulkConfig{
			MaxRecordsPerCall: 10000,
		},
		Logging: LoggingConfig{
			Level:              "info",
			Format:             "json",
			LogQueries:         false,
			LogBulkOperations:  true,
			SanitizeParameters: true,
		},
		Archive: ArchiveConfig{
			Enabled: false,
			Prefix:  "recordops",
		},
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.MaxConnections <= 0 {
		return &ConfigError{Field: "database.maxConnections", Message: "must be greater than 0"}
	}

	if c.Database.RecordsTable == "" {
		return &ConfigError{Field: "database.recordsTable", Message: "must not be empty"}
	}

	if c.Bulk.MaxRecordsPerCall <= 0 {
		return &ConfigError{Field: "bulk.maxRecordsPerCall", Message: "must be greater than 0"}
	}

	if c.Archive.Enabled && c.Archive.Bucket == "" {
		return &ConfigError{Field: "archive.bucket", Message: "must not be empty when archive is enabled"}
	}

	return nil
}

// ConfigError represents a configuration validation error
type ConfigError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ConfigError) Error() string {
	return "config validation error for field '" + e.Field + "': " + e.Message
}
