package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/gophdrop/internal/flagx"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Booleans are
// pointers so an absent key can be told apart from false.
type JsonConfig struct {
	ServerEndpointAddr string `json:"server_endpoint_addr"`
	UseTLS             *bool  `json:"use_tls"`
	VerifyPeer         *bool  `json:"verify_peer"`
	ServerName         string `json:"server_name"`
	DownloadDir        string `json:"download_dir"`
	DatabaseDSN        string `json:"database_dsn"`
	LogLevel           string `json:"log_level"`
}

// parseJson overlays Config with values loaded from a JSON file.
//
// The path comes from -c or -config via flagx.JsonConfigFlags(); when neither
// is given nothing is loaded. Read or unmarshal errors panic.
func parseJson(cfg *Config) {
	// Resolve file path from flags.
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.ServerEndpointAddr != "" {
		cfg.ServerEndpointAddr = jc.ServerEndpointAddr
	}
	if jc.UseTLS != nil {
		cfg.UseTLS = *jc.UseTLS
	}
	if jc.VerifyPeer != nil {
		cfg.VerifyPeer = *jc.VerifyPeer
	}
	if jc.ServerName != "" {
		cfg.ServerName = jc.ServerName
	}
	if jc.DownloadDir != "" {
		cfg.DownloadDir = jc.DownloadDir
	}
	if jc.DatabaseDSN != "" {
		cfg.DatabaseDSN = jc.DatabaseDSN
	}
	if jc.LogLevel != "" {
		cfg.LogLevel = jc.LogLevel
	}
}
