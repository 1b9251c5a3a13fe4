package config

import (
	"github.com/spf13/viper"

	"github.com/harborfin/tradegate/internal/types"
)

// Config holds the application configuration.
type Config struct {
	Gateway GatewayConfig `mapstructure:"gateway"`
	Monitor MonitorConfig `mapstructure:"monitor"`
	Log     LogConfig     `mapstructure:"log"`
}

// GatewayConfig holds exchange connection settings.
type GatewayConfig struct {
	Key        string   `mapstructure:"key"`
	Secret     string   `mapstructure:"secret"`
	Passphrase string   `mapstructure:"passphrase"`
	Sessions   int      `mapstructure:"sessions"`
	Server     string   `mapstructure:"server"` // REAL or SANDBOX
	ProxyHost  string   `mapstructure:"proxy_host"`
	ProxyPort  int      `mapstructure:"proxy_port"`
	Symbols    []string `mapstructure:"symbols"`
}

// MonitorConfig holds the ops HTTP surface settings.
type MonitorConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"` // debug, info, warn, error
	Pretty bool   `mapstructure:"pretty"`
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetDefault("gateway.sessions", 3)
	v.SetDefault("gateway.server", "REAL")
	v.SetDefault("monitor.enabled", true)
	v.SetDefault("monitor.addr", ":9180")
	v.SetDefault("log.level", "info")

	if err := v.ReadInConfig(); err != nil {
		return nil, types.NewGatewayError(types.ErrConfig, "failed to read config file", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, types.NewGatewayError(types.ErrConfig, "failed to unmarshal config", err)
	}

	if cfg.Gateway.Sessions <= 0 {
		cfg.Gateway.Sessions = 3
	}
	if cfg.Gateway.Server != "REAL" && cfg.Gateway.Server != "SANDBOX" {
		return nil, types.NewGatewayError(types.ErrConfig, "gateway.server must be REAL or SANDBOX", nil)
	}

	return &cfg, nil
}
