package config

import (
	"flag"
	"os"

	"github.com/dmitrijs2005/gophdrop/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Boolean flags accept the usual forms (-tls, -tls=true, -verify=false).
//
// Note: The function filters os.Args to only include the flags it knows about,
// using flagx.FilterArgs, to avoid interference with other components.
func parseFlags(cfg *Config) {
	// Filter args to include only those handled here.
	args := flagx.FilterArgs(os.Args[1:],
		[]string{"-a", "-tls", "-verify", "-server-name", "-o", "-db", "-l"},
		"-tls", "-verify")

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.ServerEndpointAddr, "a", cfg.ServerEndpointAddr, "address and port to access server")
	fs.BoolVar(&cfg.UseTLS, "tls", cfg.UseTLS, "connect over TLS")
	fs.BoolVar(&cfg.VerifyPeer, "verify", cfg.VerifyPeer, "verify server certificate")
	fs.StringVar(&cfg.ServerName, "server-name", cfg.ServerName, "expected server certificate name")
	fs.StringVar(&cfg.DownloadDir, "o", cfg.DownloadDir, "download directory")
	fs.StringVar(&cfg.DatabaseDSN, "db", cfg.DatabaseDSN, "local database file")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
