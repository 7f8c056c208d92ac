package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/gophdrop/internal/flagx"
)

var serverFlags = []string{
	"-a", "-w", "-d", "-r", "-storage", "-cert", "-key",
	"-u", "-p", "-b", "-g", "-e", "-idle-timeout", "-l",
}

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags:
//
//	-a string        bind address (e.g., ":8080")
//	-w int           worker pool size
//	-d string        database DSN (file path for SQLite, postgres:// URL for PostgreSQL)
//	-r string        local storage root
//	-storage string  storage backend: local or s3
//	-cert string     TLS certificate (PEM)
//	-key string      TLS private key (PEM)
//	-u string        S3 root user
//	-p string        S3 root password
//	-b string        S3 bucket name
//	-g string        S3 region
//	-e string        S3 base endpoint (e.g., "http://127.0.0.1:9000")
//	-idle-timeout int  per-connection idle timeout, seconds (0 disables)
//	-l string        log level
//
// The function first filters os.Args to only the flags it recognizes using
// flagx.FilterArgs, so -c/-config never reaches this flag set.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], serverFlags)

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.ListenAddr, "a", config.ListenAddr, "address and port to run server")
	fs.IntVar(&config.Workers, "w", config.Workers, "number of worker goroutines")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.StorageRoot, "r", config.StorageRoot, "local storage directory")
	fs.StringVar(&config.StorageBackend, "storage", config.StorageBackend, "storage backend (local|s3)")
	fs.StringVar(&config.TLSCertFile, "cert", config.TLSCertFile, "TLS certificate file")
	fs.StringVar(&config.TLSKeyFile, "key", config.TLSKeyFile, "TLS key file")

	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 root bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 root region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")

	idleTimeout := fs.Int("idle-timeout", int(config.IdleTimeout.Seconds()), "connection idle timeout (in seconds)")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.IdleTimeout = time.Duration(*idleTimeout) * time.Second
}
