// Copyright (C) 2025 sage-x-project
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

// SPDX-License-Identifier: LGPL-3.0-or-later

// Package config loads and validates the SDK's runtime configuration:
// the relay endpoint and auth material, the client-id signing key, the
// storage backend, logging, and metrics.
package config

import (
	"encoding/json"
	"fmt"
	"io/ioutil"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for the Sign SDK.
type Config struct {
	Environment string          `yaml:"environment" json:"environment"`
	Relay       *RelayConfig    `yaml:"relay" json:"relay"`
	ClientID    *ClientIDConfig `yaml:"client_id" json:"client_id"`
	Storage     *StorageConfig  `yaml:"storage" json:"storage"`
	Logging     *LoggingConfig  `yaml:"logging" json:"logging"`
	Metrics     *MetricsConfig  `yaml:"metrics" json:"metrics"`
}

// RelayConfig configures the connection to the WalletConnect relay.
type RelayConfig struct {
	URL            string        `yaml:"url" json:"url"`
	ProjectID      string        `yaml:"project_id" json:"project_id"`
	RequestTimeout time.Duration `yaml:"request_timeout" json:"request_timeout"`
	// BackoffMillis is the capped reconnect backoff table, in order of attempt.
	BackoffMillis []int `yaml:"backoff_millis" json:"backoff_millis"`
}

// ClientIDConfig configures the Ed25519 key used to authenticate to the relay.
type ClientIDConfig struct {
	KeyPath string `yaml:"key_path" json:"key_path"`
}

// StorageConfig selects and configures the session/pairing storage backend.
type StorageConfig struct {
	Backend string `yaml:"backend" json:"backend"` // memory, postgres
	DSN     string `yaml:"dsn" json:"dsn"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" json:"level"`
	Format   string `yaml:"format" json:"format"`
	Output   string `yaml:"output" json:"output"`
	FilePath string `yaml:"file_path" json:"file_path"`
}

// MetricsConfig represents metrics configuration
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Port    int    `yaml:"port" json:"port"`
	Path    string `yaml:"path" json:"path"`
}

// LoadFromFile loads configuration from a file
func LoadFromFile(path string) (*Config, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}

	// Try to parse as YAML first
	if err := yaml.Unmarshal(data, cfg); err != nil {
		// Try JSON if YAML fails
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file (tried YAML and JSON): %w", err)
		}
	}

	setDefaults(cfg)

	return cfg, nil
}

// SaveToFile saves configuration to a file
func SaveToFile(cfg *Config, path string) error {
	var data []byte
	var err error

	if path[len(path)-5:] == ".json" {
		data, err = json.MarshalIndent(cfg, "", "  ")
	} else {
		data, err = yaml.Marshal(cfg)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := ioutil.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// setDefaults sets default values for configuration
func setDefaults(cfg *Config) {
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}

	if cfg.Relay != nil {
		if cfg.Relay.URL == "" {
			cfg.Relay.URL = "wss://relay.walletconnect.org"
		}
		if cfg.Relay.RequestTimeout == 0 {
			cfg.Relay.RequestTimeout = 5 * time.Second
		}
		if len(cfg.Relay.BackoffMillis) == 0 {
			cfg.Relay.BackoffMillis = []int{1000, 1000, 2000, 5000}
		}
	}

	if cfg.ClientID != nil {
		if cfg.ClientID.KeyPath == "" {
			cfg.ClientID.KeyPath = ".sign/client_id.key"
		}
	}

	if cfg.Storage != nil {
		if cfg.Storage.Backend == "" {
			cfg.Storage.Backend = "memory"
		}
	}

	if cfg.Logging != nil {
		if cfg.Logging.Level == "" {
			cfg.Logging.Level = "info"
		}
		if cfg.Logging.Format == "" {
			cfg.Logging.Format = "json"
		}
		if cfg.Logging.Output == "" {
			cfg.Logging.Output = "stdout"
		}
	}
}
