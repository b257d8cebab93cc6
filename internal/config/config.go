// Package config loads the daemon-level configuration (where to listen,
// where the state file lives, how chatty to be). Operator settings such as
// credentials are not configured here; they live in the state file and are
// edited at runtime through the store.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

type Config struct {
	ListenAddress string `mapstructure:"listen_address" validate:"required,hostname_port"`
	StateFile     string `mapstructure:"state_file"     validate:"required"`
	LogLevel      string `mapstructure:"log_level"      validate:"oneof=trace debug info warn error fatal panic"`
	Concurrency   int    `mapstructure:"concurrency"    validate:"min=1,max=16"`
}

// NewConfig reads the configuration through viper (file paths and env
// bindings are wired by the root command) and validates it. A missing config
// file is fine; defaults cover everything.
func NewConfig() (*Config, error) {
	viper.SetDefault("listen_address", "127.0.0.1:8531")
	viper.SetDefault("state_file", defaultStateFile())
	viper.SetDefault("log_level", "info")
	viper.SetDefault("concurrency", 4)

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func defaultStateFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".pipewatch", "state.json")
	}
	return filepath.Join(home, ".pipewatch", "state.json")
}
