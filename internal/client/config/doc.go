// Package config loads runtime configuration for the gophdrop CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-a string            address:port of the gophdrop server
//	-tls                 connect over TLS
//	-verify              verify the server certificate (default true)
//	-server-name string  expected certificate name
//	-o string            download directory
//	-db string           local database file
//	-l string            log level
//
// # JSON schema
//
// Keys that are absent keep their current value:
//
//	{
//	  "server_endpoint_addr": "127.0.0.1:8080",
//	  "use_tls": true,
//	  "verify_peer": false,
//	  "server_name": "localhost",
//	  "download_dir": "client",
//	  "database_dsn": "client.db",
//	  "log_level": "info"
//	}
//
// Note: This package does not read environment variables directly; use the
// JSON file or flags to configure values.
package config
