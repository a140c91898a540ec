package config

import (
	"github.com/kelseyhightower/envconfig"
)

// FromEnv reads configuration from HFSERVE_* environment variables.
func FromEnv() (Config, error) {
	var cfg Config
	if err := envconfig.Process("hfserve", &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
