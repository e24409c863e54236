// Package config resolves runtime configuration for governance-core from
// config files, environment variables and command-line flags, in that
// order of increasing precedence.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const envPrefix = "GOVCORE"

var envKeyReplacer = strings.NewReplacer(".", "_")

// Config holds everything the governance-core process needs at startup.
type Config struct {
	Server        ServerConfig   `mapstructure:"server"`
	RuVector      RuVectorConfig `mapstructure:"ruvector"`
	Observability string         `mapstructure:"observability_config"`
	DryRun        bool           `mapstructure:"dry_run"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	EnableCORS   bool          `mapstructure:"enable_cors"`
	Debug        bool          `mapstructure:"debug"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// RuVectorConfig configures the decision event persistence backend. An
// empty BaseURL disables persistence entirely.
type RuVectorConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	APIKey  string        `mapstructure:"api_key"`
	Timeout time.Duration `mapstructure:"timeout"`
	TTLDays int           `mapstructure:"ttl_days"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.enable_cors", true)
	v.SetDefault("server.debug", false)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("ruvector.base_url", "")
	v.SetDefault("ruvector.api_key", "")
	v.SetDefault("ruvector.timeout", 30*time.Second)
	v.SetDefault("ruvector.ttl_days", 365)
	v.SetDefault("observability_config", "")
	v.SetDefault("dry_run", false)
}

// Load reads configuration from the given file (optional), the
// environment (GOVCORE_ prefix, dots replaced with underscores) and any
// flags already bound to v.
func Load(v *viper.Viper, configFile string) (*Config, error) {
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(envKeyReplacer)
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	} else {
		v.SetConfigName("governance-core")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.governance-core")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.RuVector.TTLDays < 0 {
		return fmt.Errorf("invalid ruvector ttl_days %d", c.RuVector.TTLDays)
	}
	return nil
}
