// Package config handles configuration for the server component,
// including defaults, JSON overlay, and command-line flags.
package config

import "time"

// Storage backends.
const (
	StorageLocal = "local"
	StorageS3    = "s3"
)

// Config holds runtime settings for the gophdrop server.
//
// Fields:
//   - ListenAddr: TCP bind address.
//   - Workers: size of the connection worker pool.
//   - DatabaseDSN: SQLite file path, or a postgres:// URL for PostgreSQL (pgx).
//   - StorageBackend: "local" or "s3".
//   - StorageRoot: directory for the local backend.
//   - TLSCertFile / TLSKeyFile: PEM pair; TLS is enabled only when both are set.
//   - S3RootUser / S3RootPassword: credentials for the S3-compatible backend.
//   - S3Bucket / S3Prefix / S3Region / S3BaseEndpoint: object storage settings.
//   - IdleTimeout: per-connection inactivity limit, zero disables it.
//   - LogLevel: debug, info, warn or error.
type Config struct {
	ListenAddr     string
	Workers        int
	DatabaseDSN    string
	StorageBackend string
	StorageRoot    string
	TLSCertFile    string
	TLSKeyFile     string
	S3RootUser     string
	S3RootPassword string
	S3Bucket       string
	S3Prefix       string
	S3Region       string
	S3BaseEndpoint string
	IdleTimeout    time.Duration
	LogLevel       string
}

// LoadDefaults populates Config with the single-node defaults: SQLite
// database and files under ./server.
func (c *Config) LoadDefaults() {
	c.ListenAddr = ":8080"
	c.Workers = 4
	c.DatabaseDSN = "server.db"
	c.StorageBackend = StorageLocal
	c.StorageRoot = "server"
	c.S3Bucket = "gophdrop"
	c.S3Region = "us-east-1"
	c.IdleTimeout = 0
	c.LogLevel = "info"
}

// TLSEnabled reports whether both halves of the key pair are configured.
func (c *Config) TLSEnabled() bool {
	return c.TLSCertFile != "" && c.TLSKeyFile != ""
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional JSON file and finally from command-line flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
