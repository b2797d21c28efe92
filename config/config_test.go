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

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromFileYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	contents := `
environment: staging
relay:
  url: wss://relay.example.com
  project_id: abc123
storage:
  backend: postgres
  dsn: postgres://localhost/sign
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "staging", cfg.Environment)
	assert.Equal(t, "wss://relay.example.com", cfg.Relay.URL)
	assert.Equal(t, "abc123", cfg.Relay.ProjectID)
	assert.Equal(t, []int{1000, 1000, 2000, 5000}, cfg.Relay.BackoffMillis)
	assert.Equal(t, "postgres", cfg.Storage.Backend)
}

func TestSetDefaultsFillsRelayBackoff(t *testing.T) {
	cfg := &Config{Relay: &RelayConfig{}, Storage: &StorageConfig{}, Logging: &LoggingConfig{}}
	setDefaults(cfg)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "wss://relay.walletconnect.org", cfg.Relay.URL)
	assert.Equal(t, []int{1000, 1000, 2000, 5000}, cfg.Relay.BackoffMillis)
	assert.Equal(t, "memory", cfg.Storage.Backend)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestSaveAndReloadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	cfg := &Config{
		Environment: "production",
		Relay:       &RelayConfig{URL: "wss://relay.example.com", ProjectID: "xyz"},
		ClientID:    &ClientIDConfig{KeyPath: "/tmp/key"},
	}
	require.NoError(t, SaveToFile(cfg, path))

	reloaded, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.Environment, reloaded.Environment)
	assert.Equal(t, cfg.Relay.ProjectID, reloaded.Relay.ProjectID)
	assert.Equal(t, cfg.ClientID.KeyPath, reloaded.ClientID.KeyPath)
}

func TestValidateConfigurationRequiresProjectID(t *testing.T) {
	cfg := &Config{
		Relay:    &RelayConfig{URL: "wss://relay.example.com", RequestTimeout: 5},
		ClientID: &ClientIDConfig{KeyPath: "/tmp/key"},
		Storage:  &StorageConfig{Backend: "memory"},
	}

	issues := ValidateConfiguration(cfg)
	require.Len(t, issues, 1)
	assert.Equal(t, "relay.project_id", issues[0].Field)
	assert.Equal(t, "error", issues[0].Level)
}

func TestValidateConfigurationRequiresDSNForPostgres(t *testing.T) {
	cfg := &Config{
		Relay:    &RelayConfig{URL: "wss://relay.example.com", ProjectID: "abc", RequestTimeout: 5},
		ClientID: &ClientIDConfig{KeyPath: "/tmp/key"},
		Storage:  &StorageConfig{Backend: "postgres"},
	}

	issues := ValidateConfiguration(cfg)
	require.Len(t, issues, 1)
	assert.Equal(t, "storage.dsn", issues[0].Field)
}
