/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package config

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

type testMonitorConfig struct {
	Interval       TimeDuration `json:"interval" yaml:"interval"`
	MaxLogFileSize ByteSize     `json:"maxLogFileSize" yaml:"maxLogFileSize"`
}

func TestCustomTypes_Unmarshal(t *testing.T) {
	tests := []struct {
		name     string
		yamlData string
		jsonData string
		want     testMonitorConfig
		wantErr  bool
	}{
		{
			name:     "human-readable values",
			yamlData: "interval: 1m30s\nmaxLogFileSize: 10MB",
			jsonData: `{"interval": "1m30s", "maxLogFileSize": "10MB"}`,
			want:     testMonitorConfig{TimeDuration(90 * time.Second), ByteSize(10 * 1024 * 1024)},
		},
		{
			name:     "integer values",
			yamlData: "interval: 1000000\nmaxLogFileSize: 2048",
			jsonData: `{"interval": 1000000, "maxLogFileSize": 2048}`,
			want:     testMonitorConfig{TimeDuration(time.Millisecond), ByteSize(2048)},
		},
		{
			name:     "k8s power-of-two size",
			yamlData: "interval: 1s\nmaxLogFileSize: 1Gi",
			jsonData: `{"interval": "1s", "maxLogFileSize": "1Gi"}`,
			want:     testMonitorConfig{TimeDuration(time.Second), ByteSize(1024 * 1024 * 1024)},
		},
		{
			name:     "invalid duration",
			yamlData: "interval: soon",
			jsonData: `{"interval": "soon"}`,
			wantErr:  true,
		},
		{
			name:     "negative duration",
			yamlData: "interval: -1",
			jsonData: `{"interval": -1}`,
			wantErr:  true,
		},
		{
			name:     "invalid size",
			yamlData: "maxLogFileSize: huge",
			jsonData: `{"maxLogFileSize": "huge"}`,
			wantErr:  true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var yamlCfg testMonitorConfig
			yamlErr := yaml.Unmarshal([]byte(tt.yamlData), &yamlCfg)
			var jsonCfg testMonitorConfig
			jsonErr := json.Unmarshal([]byte(tt.jsonData), &jsonCfg)
			if tt.wantErr {
				require.Error(t, yamlErr)
				require.Error(t, jsonErr)
				return
			}
			require.NoError(t, yamlErr)
			require.NoError(t, jsonErr)
			require.Equal(t, tt.want, yamlCfg)
			require.Equal(t, tt.want, jsonCfg)
		})
	}
}

func TestCustomTypes_Marshal(t *testing.T) {
	cfg := testMonitorConfig{TimeDuration(1500 * time.Millisecond), ByteSize(5 * 1024 * 1024)}

	jsonData, err := json.Marshal(cfg)
	require.NoError(t, err)
	require.JSONEq(t, `{"interval": "1.5s", "maxLogFileSize": "5M"}`, string(jsonData))

	yamlData, err := yaml.Marshal(cfg)
	require.NoError(t, err)
	require.Equal(t, "interval: 1.5s\nmaxLogFileSize: 5M\n", string(yamlData))

	var decoded testMonitorConfig
	require.NoError(t, yaml.Unmarshal(yamlData, &decoded))
	require.Equal(t, cfg, decoded)

	text, err := cfg.Interval.MarshalText()
	require.NoError(t, err)
	require.Equal(t, "1.5s", string(text))
	require.Equal(t, "512B", ByteSize(512).String())
}

func TestParseByteSize(t *testing.T) {
	tests := []struct {
		in      string
		want    ByteSize
		wantErr string
	}{
		{in: "100M", want: 100 * 1024 * 1024},
		{in: " 250MB ", want: 250 * 1024 * 1024},
		{in: "1Ki", want: 1024},
		{in: "2Ti", want: 2 << 40},
		{in: "4096", want: 4096},
		{in: "-1", wantErr: "negative value is not allowed: -1"},
		{in: "Mi", wantErr: "invalid byte size format (Mi)"},
		{in: "1Xi", wantErr: "invalid byte size format (1Xi)"},
	}
	for _, tt := range tests {
		got, err := parseByteSize(tt.in)
		if tt.wantErr != "" {
			require.ErrorContains(t, err, tt.wantErr)
			continue
		}
		require.NoError(t, err, tt.in)
		require.Equal(t, tt.want, got, tt.in)
	}
}
