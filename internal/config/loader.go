package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config holds runtime parameters for the service.
// Zero values mean "unspecified" and will be replaced by defaults in main.
type Config struct {
	Addr                    string   `json:"addr" yaml:"addr" toml:"addr" envconfig:"HFSERVE_ADDR"`
	EngineURL               string   `json:"engine_url" yaml:"engine_url" toml:"engine_url" envconfig:"HFSERVE_ENGINE_URL"`
	EngineAPIKey            string   `json:"engine_api_key" yaml:"engine_api_key" toml:"engine_api_key" envconfig:"HFSERVE_ENGINE_API_KEY"`
	EngineRequestTimeoutSec int      `json:"engine_request_timeout_sec" yaml:"engine_request_timeout_sec" toml:"engine_request_timeout_sec" envconfig:"HFSERVE_ENGINE_REQUEST_TIMEOUT_SEC"`
	EngineConnectTimeoutSec int      `json:"engine_connect_timeout_sec" yaml:"engine_connect_timeout_sec" toml:"engine_connect_timeout_sec" envconfig:"HFSERVE_ENGINE_CONNECT_TIMEOUT_SEC"`
	SessionIdleTimeoutSec   int      `json:"session_idle_timeout_sec" yaml:"session_idle_timeout_sec" toml:"session_idle_timeout_sec" envconfig:"HFSERVE_SESSION_IDLE_TIMEOUT_SEC"`
	MaxBodyBytes            int64    `json:"max_body_bytes" yaml:"max_body_bytes" toml:"max_body_bytes" envconfig:"HFSERVE_MAX_BODY_BYTES"`
	LogLevel                string   `json:"log_level" yaml:"log_level" toml:"log_level" envconfig:"HFSERVE_LOG_LEVEL"`
	CORSEnabled             bool     `json:"cors_enabled" yaml:"cors_enabled" toml:"cors_enabled" envconfig:"HFSERVE_CORS_ENABLED"`
	CORSAllowedOrigins      []string `json:"cors_allowed_origins" yaml:"cors_allowed_origins" toml:"cors_allowed_origins" envconfig:"HFSERVE_CORS_ALLOWED_ORIGINS"`
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}

// Merge returns base with every non-zero field of overlay applied on top.
func Merge(base, overlay Config) Config {
	out := base
	if overlay.Addr != "" {
		out.Addr = overlay.Addr
	}
	if overlay.EngineURL != "" {
		out.EngineURL = overlay.EngineURL
	}
	if overlay.EngineAPIKey != "" {
		out.EngineAPIKey = overlay.EngineAPIKey
	}
	if overlay.EngineRequestTimeoutSec != 0 {
		out.EngineRequestTimeoutSec = overlay.EngineRequestTimeoutSec
	}
	if overlay.EngineConnectTimeoutSec != 0 {
		out.EngineConnectTimeoutSec = overlay.EngineConnectTimeoutSec
	}
	if overlay.SessionIdleTimeoutSec != 0 {
		out.SessionIdleTimeoutSec = overlay.SessionIdleTimeoutSec
	}
	if overlay.MaxBodyBytes != 0 {
		out.MaxBodyBytes = overlay.MaxBodyBytes
	}
	if overlay.LogLevel != "" {
		out.LogLevel = overlay.LogLevel
	}
	if overlay.CORSEnabled {
		out.CORSEnabled = true
	}
	if len(overlay.CORSAllowedOrigins) > 0 {
		out.CORSAllowedOrigins = append([]string(nil), overlay.CORSAllowedOrigins...)
	}
	return out
}
