// Package config resolves the service's startup configuration from
// environment variables and, when layered in by cmd/gitconfd, bound
// command-line flags.
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config is the service's startup configuration, per the external
// interfaces' startup configuration section.
type Config struct {
	ConfigsURL         string
	SSHKeyPath         string
	Address            string
	Port               int
	CacheSize          int
	EnvironmentsFilter string
	Strict             bool
	Datadog            bool
	DatadogAPIKey      string
	Debug              bool
}

// Load resolves configuration from v: environment variables bound via
// BindEnv, plus any flags the caller already bound with BindPFlag. Pass
// nil to resolve purely from the environment and the defaults below.
func Load(v *viper.Viper) (*Config, error) {
	if v == nil {
		v = viper.New()
	}
	v.AutomaticEnv()

	v.SetDefault("address", "0.0.0.0")
	v.SetDefault("port", 80)
	v.SetDefault("cache_size", 100)
	v.SetDefault("environments_filter", ".+")
	v.SetDefault("strict", false)
	v.SetDefault("datadog", false)
	v.SetDefault("debug", false)

	_ = v.BindEnv("configs_url", "CONFIGS_URL", "GITCONFD_CONFIGS_URL")
	_ = v.BindEnv("ssh_key", "SSH_KEY", "GITCONFD_SSH_KEY")
	_ = v.BindEnv("address", "ADDRESS", "GITCONFD_ADDRESS")
	_ = v.BindEnv("port", "PORT", "GITCONFD_PORT")
	_ = v.BindEnv("cache_size", "CACHE_SIZE", "GITCONFD_CACHE_SIZE")
	_ = v.BindEnv("environments_filter", "ENVIRONMENTS_FILTER", "GITCONFD_ENVIRONMENTS_FILTER")
	_ = v.BindEnv("strict", "STRICT", "GITCONFD_STRICT")
	_ = v.BindEnv("datadog", "DATADOG", "GITCONFD_DATADOG")
	_ = v.BindEnv("datadog_api_key", "DATADOG_API_KEY", "DD_API_KEY")
	_ = v.BindEnv("debug", "DEBUG", "GITCONFD_DEBUG")

	cfg := &Config{
		ConfigsURL:         v.GetString("configs_url"),
		SSHKeyPath:         v.GetString("ssh_key"),
		Address:            v.GetString("address"),
		Port:               v.GetInt("port"),
		CacheSize:          v.GetInt("cache_size"),
		EnvironmentsFilter: v.GetString("environments_filter"),
		Strict:             v.GetBool("strict"),
		Datadog:            v.GetBool("datadog"),
		DatadogAPIKey:      v.GetString("datadog_api_key"),
		Debug:              v.GetBool("debug"),
	}

	if cfg.ConfigsURL == "" {
		return nil, fmt.Errorf("configs_url is required")
	}

	return cfg, nil
}
