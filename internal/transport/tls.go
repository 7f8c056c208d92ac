package transport

import (
	"context"
	"crypto/tls"
	"fmt"

	"github.com/dmitrijs2005/gophdrop/internal/logging"
)

// ServerTLSConfig loads a PEM certificate and key. A key that does not match
// the certificate is reported as an error.
func ServerTLSConfig(certFile, keyFile string) (*tls.Config, error) {
	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return nil, fmt.Errorf("load tls key pair: %w", err)
	}
	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}, nil
}

// ClientTLSConfig builds the client side configuration. With verifyPeer off
// the server certificate is not checked and a warning is logged.
func ClientTLSConfig(ctx context.Context, verifyPeer bool, serverName string, logger logging.Logger) *tls.Config {
	cfg := &tls.Config{
		ServerName: serverName,
		MinVersion: tls.VersionTLS12,
	}
	if !verifyPeer {
		cfg.InsecureSkipVerify = true
		if logger != nil {
			logger.Warn(ctx, "TLS peer verification disabled, server identity is not checked")
		}
	}
	return cfg
}
