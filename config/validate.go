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

import "fmt"

// ValidationIssue describes a single configuration problem.
type ValidationIssue struct {
	Field   string
	Message string
	Level   string // "error" or "warning"
}

// ValidateConfiguration checks a loaded Config for problems that would
// prevent the SDK from starting, or that are merely worth warning
// about. Only "error"-level issues cause Load to fail.
func ValidateConfiguration(cfg *Config) []ValidationIssue {
	var issues []ValidationIssue

	if cfg.Relay == nil {
		issues = append(issues, ValidationIssue{Field: "relay", Message: "relay configuration is required", Level: "error"})
	} else {
		if cfg.Relay.URL == "" {
			issues = append(issues, ValidationIssue{Field: "relay.url", Message: "relay URL is required", Level: "error"})
		}
		if cfg.Relay.ProjectID == "" {
			issues = append(issues, ValidationIssue{Field: "relay.project_id", Message: "relay project id is required", Level: "error"})
		}
		if cfg.Relay.RequestTimeout <= 0 {
			issues = append(issues, ValidationIssue{Field: "relay.request_timeout", Message: "request timeout should be positive, falling back to default", Level: "warning"})
		}
	}

	if cfg.ClientID == nil || cfg.ClientID.KeyPath == "" {
		issues = append(issues, ValidationIssue{Field: "client_id.key_path", Message: "client id key path is required", Level: "error"})
	}

	if cfg.Storage != nil {
		switch cfg.Storage.Backend {
		case "memory":
			// no DSN needed
		case "postgres":
			if cfg.Storage.DSN == "" {
				issues = append(issues, ValidationIssue{Field: "storage.dsn", Message: "postgres backend requires a dsn", Level: "error"})
			}
		default:
			issues = append(issues, ValidationIssue{Field: "storage.backend", Message: fmt.Sprintf("unknown storage backend %q", cfg.Storage.Backend), Level: "error"})
		}
	}

	return issues
}
