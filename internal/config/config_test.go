package config

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

type configFields map[string]interface{}

var validConfigFields = configFields{
	"listen_address": "127.0.0.1:9000",
	"state_file":     "/tmp/pipewatch-test/state.json",
	"log_level":      "debug",
	"concurrency":    8,
}

func applyFields(t *testing.T, fields configFields) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
	for key, value := range fields {
		viper.Set(key, value)
	}
}

func TestNewConfigDefaults(t *testing.T) {
	applyFields(t, configFields{})

	cfg, err := NewConfig()
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:8531", cfg.ListenAddress)
	require.Equal(t, "info", cfg.LogLevel)
	require.Equal(t, 4, cfg.Concurrency)
	require.NotEmpty(t, cfg.StateFile)
}

func TestNewConfigAppliesOverrides(t *testing.T) {
	applyFields(t, validConfigFields)

	cfg, err := NewConfig()
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:9000", cfg.ListenAddress)
	require.Equal(t, "/tmp/pipewatch-test/state.json", cfg.StateFile)
	require.Equal(t, "debug", cfg.LogLevel)
	require.Equal(t, 8, cfg.Concurrency)
}

func TestNewConfigValidation(t *testing.T) {
	testCases := []struct {
		name  string
		key   string
		value interface{}
	}{
		{name: "invalid log level", key: "log_level", value: "loud"},
		{name: "invalid listen address", key: "listen_address", value: "no-port-here"},
		{name: "concurrency below minimum", key: "concurrency", value: 0},
		{name: "concurrency above maximum", key: "concurrency", value: 64},
		{name: "empty state file", key: "state_file", value: ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			fields := configFields{}
			for k, v := range validConfigFields {
				fields[k] = v
			}
			fields[tc.key] = tc.value
			applyFields(t, fields)

			_, err := NewConfig()
			require.Error(t, err)
			require.Contains(t, err.Error(), "invalid configuration")
		})
	}
}
