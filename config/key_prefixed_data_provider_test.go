/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package config

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const testPrefixedWindowConfigYAML = `
smpp:
  window:
    name: sessions
    size: 64
    monitor:
      enabled: true
      interval: 500ms
`

func TestKeyPrefixedDataProvider_Get(t *testing.T) {
	var dp DataProvider = NewKeyPrefixedDataProvider(NewViperAdapter(), "smpp")
	require.NoError(t, dp.SetFromReader(bytes.NewBufferString(testPrefixedWindowConfigYAML), DataTypeYAML))

	name, err := dp.GetString("window.name")
	require.NoError(t, err)
	require.Equal(t, "sessions", name)

	size, err := dp.GetInt("window.size")
	require.NoError(t, err)
	require.Equal(t, 64, size)

	interval, err := dp.GetDuration("window.monitor.interval")
	require.NoError(t, err)
	require.Equal(t, 500*time.Millisecond, interval)

	require.True(t, dp.IsSet("window.monitor.enabled"))

	dp.SetDefault("window.queue", 10)
	require.Equal(t, 10, dp.Get("window.queue"))
	dp.Set("window.size", 32)
	size, err = dp.GetInt("window.size")
	require.NoError(t, err)
	require.Equal(t, 32, size)
}

func TestKeyPrefixedDataProvider_Unmarshal(t *testing.T) {
	type cfg struct {
		Window struct {
			Name    string `mapstructure:"name"`
			Size    int    `mapstructure:"size"`
			Monitor struct {
				Enabled  bool          `mapstructure:"enabled"`
				Interval time.Duration `mapstructure:"interval"`
			} `mapstructure:"monitor"`
		} `mapstructure:"window"`
	}

	var dp DataProvider = NewKeyPrefixedDataProvider(NewViperAdapter(), "smpp")
	require.NoError(t, dp.SetFromReader(bytes.NewBufferString(testPrefixedWindowConfigYAML), DataTypeYAML))

	c := cfg{}
	require.NoError(t, dp.Unmarshal(&c))
	require.Equal(t, "sessions", c.Window.Name)
	require.Equal(t, 64, c.Window.Size)
	require.True(t, c.Window.Monitor.Enabled)
	require.Equal(t, 500*time.Millisecond, c.Window.Monitor.Interval)
}

func TestKeyPrefixedDataProvider_WrapKeyErr(t *testing.T) {
	errInvalid := errors.New("must be greater than 0")
	dp := NewKeyPrefixedDataProvider(NewViperAdapter(), "smpp.window")
	err := dp.WrapKeyErr("size", errInvalid)
	require.EqualError(t, err, "smpp.window.size: must be greater than 0")
	require.ErrorIs(t, err, errInvalid)

	require.Nil(t, WrapKeyErrIfNeeded("size", nil))
}
