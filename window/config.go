/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package window

import (
	"fmt"
	"time"

	"github.com/twitter/cloudhopper-commons-sub002/config"
)

const cfgDefaultKeyPrefix = "window"

const (
	cfgKeyName            = "name"
	cfgKeySize            = "size"
	cfgKeyMonitorEnabled  = "monitor.enabled"
	cfgKeyMonitorInterval = "monitor.interval"
)

// Default values.
const (
	DefaultSize            = 100
	DefaultMonitorInterval = time.Second
)

// Config represents a set of configuration parameters for Window.
// Configuration can be loaded in different formats (YAML, JSON) using config.Loader, viper,
// or with json.Unmarshal/yaml.Unmarshal functions directly.
type Config struct {
	// Name identifies the window in logs, metrics, and stats. A unique name is generated if empty.
	Name string `mapstructure:"name" yaml:"name" json:"name"`

	// Size is the maximum number of pending requests.
	Size int `mapstructure:"size" yaml:"size" json:"size"`

	Monitor MonitorConfig `mapstructure:"monitor" yaml:"monitor" json:"monitor"`

	keyPrefix string
}

// MonitorConfig represents a set of configuration parameters for the window monitor
// that periodically cancels expired requests.
type MonitorConfig struct {
	Enabled  bool                `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	Interval config.TimeDuration `mapstructure:"interval" yaml:"interval" json:"interval"`
}

var _ config.Config = (*Config)(nil)
var _ config.KeyPrefixProvider = (*Config)(nil)

// ConfigOption is a type for functional options for the Config.
type ConfigOption func(*configOptions)

type configOptions struct {
	keyPrefix string
}

// WithKeyPrefix returns a ConfigOption that sets a key prefix for parsing configuration parameters.
// This prefix will be used by config.Loader.
func WithKeyPrefix(keyPrefix string) ConfigOption {
	return func(o *configOptions) {
		o.keyPrefix = keyPrefix
	}
}

// NewConfig creates a new instance of the Config.
func NewConfig(options ...ConfigOption) *Config {
	opts := configOptions{keyPrefix: cfgDefaultKeyPrefix}
	for _, opt := range options {
		opt(&opts)
	}
	return &Config{keyPrefix: opts.keyPrefix}
}

// NewDefaultConfig creates a new instance of the Config with default values.
func NewDefaultConfig(options ...ConfigOption) *Config {
	cfg := NewConfig(options...)
	cfg.Size = DefaultSize
	cfg.Monitor = MonitorConfig{
		Enabled:  true,
		Interval: config.TimeDuration(DefaultMonitorInterval),
	}
	return cfg
}

// KeyPrefix returns a key prefix with which all configuration parameters should be presented.
// Implements config.KeyPrefixProvider interface.
func (c *Config) KeyPrefix() string {
	if c.keyPrefix == "" {
		return cfgDefaultKeyPrefix
	}
	return c.keyPrefix
}

// SetProviderDefaults sets default configuration values for window in config.DataProvider.
// Implements config.Config interface.
func (c *Config) SetProviderDefaults(dp config.DataProvider) {
	dp.SetDefault(cfgKeySize, DefaultSize)
	dp.SetDefault(cfgKeyMonitorEnabled, true)
	dp.SetDefault(cfgKeyMonitorInterval, DefaultMonitorInterval)
}

// Set sets window configuration values from config.DataProvider.
// Implements config.Config interface.
func (c *Config) Set(dp config.DataProvider) error {
	var err error

	if c.Name, err = dp.GetString(cfgKeyName); err != nil {
		return err
	}

	if c.Size, err = dp.GetInt(cfgKeySize); err != nil {
		return err
	}
	if c.Size <= 0 {
		return dp.WrapKeyErr(cfgKeySize, fmt.Errorf("must be greater than 0"))
	}

	if c.Monitor.Enabled, err = dp.GetBool(cfgKeyMonitorEnabled); err != nil {
		return err
	}

	var dur time.Duration
	if dur, err = dp.GetDuration(cfgKeyMonitorInterval); err != nil {
		return err
	}
	if c.Monitor.Enabled && dur <= 0 {
		return dp.WrapKeyErr(cfgKeyMonitorInterval, fmt.Errorf("must be greater than 0 when monitor is enabled"))
	}
	c.Monitor.Interval = config.TimeDuration(dur)

	return nil
}
