/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package config provides loading of configuration parameters from YAML/JSON data and environment variables.
// Each configuration object implements Config interface and reads its own keys
// (optionally under a key prefix) from DataProvider.
package config

// Config is a common interface for configuration objects that may be used by Loader.
type Config interface {
	SetProviderDefaults(dp DataProvider)
	Set(dp DataProvider) error
}

// KeyPrefixProvider is an interface for providing key prefix that will be used for configuration parameters.
type KeyPrefixProvider interface {
	KeyPrefix() string
}
