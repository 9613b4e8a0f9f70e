// Package config loads the router's startup configuration from a YAML
// file with environment overrides.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the full startup configuration.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Log     LogConfig     `mapstructure:"log"`
	Storage StorageConfig `mapstructure:"storage"`
	Redis   RedisConfig   `mapstructure:"redis"`
	Gateway GatewayConfig `mapstructure:"gateway"`
	Routing RoutingConfig `mapstructure:"routing"`

	// Accounts maps merchant id to connector name to credentials.
	Accounts map[string]map[string]AccountConfig `mapstructure:"accounts"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type StorageConfig struct {
	// Driver selects the tracker store: "memory" or "sqlite".
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

type RedisConfig struct {
	// Addr empty disables the access-token cache.
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type GatewayConfig struct {
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	UCS            UCSConfig     `mapstructure:"ucs"`
}

type UCSConfig struct {
	Enabled           bool     `mapstructure:"enabled"`
	URL               string   `mapstructure:"url"`
	RolloutPercent    int      `mapstructure:"rollout_percent"`
	MerchantAllowlist []string `mapstructure:"merchant_allowlist"`
	ShadowEnabled     bool     `mapstructure:"shadow_enabled"`
}

type RoutingConfig struct {
	DefaultConnector string          `mapstructure:"default_connector"`
	Rules            []RoutingRule   `mapstructure:"rules"`
	Blocklist        []BlocklistRule `mapstructure:"blocklist"`
}

type RoutingRule struct {
	Name       string `mapstructure:"name"`
	Expression string `mapstructure:"expression"`
	Connector  string `mapstructure:"connector"`
}

type BlocklistRule struct {
	Name       string `mapstructure:"name"`
	Expression string `mapstructure:"expression"`
}

// AccountConfig is one merchant's credentials for one connector.
type AccountConfig struct {
	MerchantConnectorID string            `mapstructure:"merchant_connector_id"`
	AuthType            string            `mapstructure:"auth_type"`
	APIKey              string            `mapstructure:"api_key"`
	Key1                string            `mapstructure:"key1"`
	APISecret           string            `mapstructure:"api_secret"`
	BaseURL             string            `mapstructure:"base_url"`
	Metadata            map[string]string `mapstructure:"metadata"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Server:  ServerConfig{Addr: ":8080"},
		Log:     LogConfig{Level: "info"},
		Storage: StorageConfig{Driver: "memory"},
		Gateway: GatewayConfig{RequestTimeout: 15 * time.Second},
		Routing: RoutingConfig{DefaultConnector: "mockpay"},
	}
}

// Load reads the config file at path, if any, and applies PAYROUTER_*
// environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetEnvPrefix("PAYROUTER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Storage.Driver {
	case "memory":
	case "sqlite":
		if c.Storage.DSN == "" {
			return fmt.Errorf("storage.dsn is required for the sqlite driver")
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	if c.Gateway.UCS.RolloutPercent < 0 || c.Gateway.UCS.RolloutPercent > 100 {
		return fmt.Errorf("gateway.ucs.rollout_percent must be within 0..100")
	}
	if c.Gateway.UCS.Enabled && c.Gateway.UCS.URL == "" {
		return fmt.Errorf("gateway.ucs.url is required when the unified connector service is enabled")
	}
	return nil
}
