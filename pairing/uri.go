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

// Package pairing parses and formats WalletConnect v2 pairing URIs:
// wc:<hex topic>@2?symKey=<64 hex>&relay-protocol=<ident>&expiryTimestamp=<unix seconds>
package pairing

import (
	"encoding/hex"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Version is the only pairing URI version this SDK understands.
const Version = "2"

// URI is the parsed form of a pairing URI.
type URI struct {
	Topic          string
	SymKey         string
	RelayProtocol  string
	ExpiryUnixSecs int64
}

// Parse decodes a wc: pairing URI. Rejects an unknown version, a
// missing required parameter, or malformed hex in the topic or key.
func Parse(raw string) (*URI, error) {
	const scheme = "wc:"
	if !strings.HasPrefix(raw, scheme) {
		return nil, fmt.Errorf("pairing: missing %q scheme", scheme)
	}
	rest := raw[len(scheme):]

	at := strings.IndexByte(rest, '@')
	if at < 0 {
		return nil, fmt.Errorf("pairing: missing version separator")
	}
	topic := rest[:at]

	q := strings.IndexByte(rest, '?')
	if q < 0 {
		return nil, fmt.Errorf("pairing: missing query string")
	}
	version := rest[at+1 : q]
	if version != Version {
		return nil, fmt.Errorf("pairing: unsupported version %q", version)
	}

	if _, err := hex.DecodeString(topic); err != nil || len(topic) != 64 {
		return nil, fmt.Errorf("pairing: malformed topic hex")
	}

	values, err := url.ParseQuery(rest[q+1:])
	if err != nil {
		return nil, fmt.Errorf("pairing: malformed query: %w", err)
	}

	symKey := values.Get("symKey")
	if symKey == "" {
		return nil, fmt.Errorf("pairing: missing symKey parameter")
	}
	if _, err := hex.DecodeString(symKey); err != nil || len(symKey) != 64 {
		return nil, fmt.Errorf("pairing: malformed symKey hex")
	}

	relay := values.Get("relay-protocol")
	if relay == "" {
		return nil, fmt.Errorf("pairing: missing relay-protocol parameter")
	}

	expiryRaw := values.Get("expiryTimestamp")
	if expiryRaw == "" {
		return nil, fmt.Errorf("pairing: missing expiryTimestamp parameter")
	}
	expiry, err := strconv.ParseInt(expiryRaw, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("pairing: malformed expiryTimestamp: %w", err)
	}

	return &URI{
		Topic:          strings.ToLower(topic),
		SymKey:         strings.ToLower(symKey),
		RelayProtocol:  relay,
		ExpiryUnixSecs: expiry,
	}, nil
}

// Format is the inverse of Parse.
func Format(u *URI) string {
	return fmt.Sprintf(
		"wc:%s@%s?relay-protocol=%s&symKey=%s&expiryTimestamp=%d",
		u.Topic, Version, u.RelayProtocol, u.SymKey, u.ExpiryUnixSecs,
	)
}
