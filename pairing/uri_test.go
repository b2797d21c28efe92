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

package pairing

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFormatRoundTrip(t *testing.T) {
	topic := "0c814f7d2d56c0e840f75612addaa170af479b1c8499632430b41c298bf49907"
	key := strings.Repeat("01", 32)

	raw := "wc:" + topic + "@2?relay-protocol=irn&symKey=" + key + "&expiryTimestamp=1700000000"

	u, err := Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, topic, u.Topic)
	assert.Equal(t, key, u.SymKey)
	assert.Equal(t, "irn", u.RelayProtocol)
	assert.Equal(t, int64(1700000000), u.ExpiryUnixSecs)

	u2, err := Parse(Format(u))
	require.NoError(t, err)
	assert.Equal(t, u, u2)
}

func TestParseRejectsUnknownVersion(t *testing.T) {
	topic := strings.Repeat("0c", 32)
	key := strings.Repeat("01", 32)
	raw := "wc:" + topic + "@3?relay-protocol=irn&symKey=" + key + "&expiryTimestamp=1700000000"

	_, err := Parse(raw)
	assert.Error(t, err)
}

func TestParseRejectsMissingSymKey(t *testing.T) {
	topic := strings.Repeat("0c", 32)
	raw := "wc:" + topic + "@2?relay-protocol=irn&expiryTimestamp=1700000000"

	_, err := Parse(raw)
	assert.Error(t, err)
}

func TestParseRejectsMalformedHex(t *testing.T) {
	key := strings.Repeat("01", 32)
	raw := "wc:not-hex@2?relay-protocol=irn&symKey=" + key + "&expiryTimestamp=1700000000"

	_, err := Parse(raw)
	assert.Error(t, err)
}
