package config

// Config holds runtime settings for the gophdrop CLI.
//
// Fields:
//   - ServerEndpointAddr: host:port of the gophdrop server.
//   - UseTLS: wrap every command connection in TLS.
//   - VerifyPeer: verify the server certificate chain and host name.
//   - ServerName: expected certificate name; empty uses the host from ServerEndpointAddr.
//   - DownloadDir: where downloaded files are written.
//   - DatabaseDSN: local SQLite file that keeps the session token.
//   - LogLevel: debug, info, warn or error.
type Config struct {
	ServerEndpointAddr string
	UseTLS             bool
	VerifyPeer         bool
	ServerName         string
	DownloadDir        string
	DatabaseDSN        string
	LogLevel           string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "127.0.0.1:8080"
	c.UseTLS = false
	c.VerifyPeer = true
	c.DownloadDir = "client"
	c.DatabaseDSN = "client.db"
	c.LogLevel = "warn"
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
