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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSubstituteEnvVars(t *testing.T) {
	t.Setenv("SIGN_TEST_VALUE", "hello")

	assert.Equal(t, "hello", SubstituteEnvVars("${SIGN_TEST_VALUE}"))
	assert.Equal(t, "fallback", SubstituteEnvVars("${SIGN_TEST_MISSING:fallback}"))
	assert.Equal(t, "", SubstituteEnvVars("${SIGN_TEST_MISSING}"))
}

func TestSubstituteEnvVarsInConfig(t *testing.T) {
	t.Setenv("SIGN_TEST_URL", "wss://relay.example.com")

	cfg := &Config{
		Relay: &RelayConfig{URL: "${SIGN_TEST_URL}"},
	}
	SubstituteEnvVarsInConfig(cfg)

	assert.Equal(t, "wss://relay.example.com", cfg.Relay.URL)
}

func TestGetEnvironment(t *testing.T) {
	os.Unsetenv("SIGN_ENV")
	os.Unsetenv("ENVIRONMENT")
	assert.Equal(t, "development", GetEnvironment())

	t.Setenv("SIGN_ENV", "Production")
	assert.Equal(t, "production", GetEnvironment())
	assert.True(t, IsProduction())
	assert.False(t, IsDevelopment())
}
