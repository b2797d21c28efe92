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

package envelope

import (
	"bytes"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSealOpenRoundTrip(t *testing.T) {
	key := bytes.Repeat([]byte{0x07}, 32)
	in := map[string]interface{}{
		"id":     float64(1_000_000_001),
		"method": "wc_sessionPing",
	}

	encoded, err := Seal(key, in)
	require.NoError(t, err)

	var out map[string]interface{}
	require.NoError(t, Open(key, encoded, &out))
	assert.Equal(t, in, out)
}

func TestOpenRejectsUnknownType(t *testing.T) {
	key := bytes.Repeat([]byte{0x07}, 32)
	encoded, err := Seal(key, map[string]string{"a": "b"})
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(encoded)
	require.NoError(t, err)
	raw[0] = 0x01
	tampered := base64.StdEncoding.EncodeToString(raw)

	var out map[string]interface{}
	err = Open(key, tampered, &out)
	assert.Error(t, err)
}

func TestOpenFailsOnWrongKey(t *testing.T) {
	key := bytes.Repeat([]byte{0x03}, 32)
	wrongKey := bytes.Repeat([]byte{0x04}, 32)

	encoded, err := Seal(key, map[string]string{"method": "wc_sessionPing"})
	require.NoError(t, err)

	var out map[string]interface{}
	err = Open(wrongKey, encoded, &out)
	assert.Error(t, err)
}
