/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package config

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// Loader fills window and logging settings from a DataProvider.
// Defaults of all passed configs are registered first, so one config may not shadow keys of another.
type Loader struct {
	DataProvider DataProvider
}

// NewDefaultLoader returns a Loader backed by viper that also reads environment variables with the given prefix
// (e.g. prefix "sms" maps "window.size" to SMS_WINDOW_SIZE).
func NewDefaultLoader(envVarsPrefix string) *Loader {
	va := NewViperAdapter()
	va.UseEnvVars(envVarsPrefix)
	return NewLoader(va)
}

// NewLoader returns a Loader backed by the given data provider.
func NewLoader(dp DataProvider) *Loader {
	return &Loader{DataProvider: dp}
}

// DataTypeFromPath detects the data format by the file extension.
func DataTypeFromPath(path string) (DataType, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		return DataTypeYAML, nil
	case ".json":
		return DataTypeJSON, nil
	default:
		return "", fmt.Errorf("unsupported config file extension %q", ext)
	}
}

// LoadFromFile reads the file and fills configs from it.
// Empty dataType means the format is detected by the file extension.
func (l *Loader) LoadFromFile(path string, dataType DataType, cfg Config, cfgs ...Config) error {
	if dataType == "" {
		var err error
		if dataType, err = DataTypeFromPath(path); err != nil {
			return err
		}
	}
	if err := l.DataProvider.SetFromFile(path, dataType); err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}
	return l.apply(append([]Config{cfg}, cfgs...))
}

// LoadFromReader reads data of the given format and fills configs from it.
func (l *Loader) LoadFromReader(reader io.Reader, dataType DataType, cfg Config, cfgs ...Config) error {
	if err := l.DataProvider.SetFromReader(reader, dataType); err != nil {
		return fmt.Errorf("read config data: %w", err)
	}
	return l.apply(append([]Config{cfg}, cfgs...))
}

// LoadDefaults fills configs from defaults and whatever the provider already has (e.g. environment variables).
func (l *Loader) LoadDefaults(cfg Config, cfgs ...Config) error {
	return l.apply(append([]Config{cfg}, cfgs...))
}

func (l *Loader) apply(cfgs []Config) error {
	providers := make([]DataProvider, len(cfgs))
	for i, cfg := range cfgs {
		providers[i] = l.DataProvider
		if kp, ok := cfg.(KeyPrefixProvider); ok && kp.KeyPrefix() != "" {
			providers[i] = NewKeyPrefixedDataProvider(l.DataProvider, kp.KeyPrefix())
		}
		cfg.SetProviderDefaults(providers[i])
	}
	for i, cfg := range cfgs {
		if err := cfg.Set(providers[i]); err != nil {
			return err
		}
	}
	return nil
}
