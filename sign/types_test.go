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

package sign

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRPCIDUnmarshalsBareNumber(t *testing.T) {
	var id RPCID
	require.NoError(t, json.Unmarshal([]byte(`1700000001234`), &id))
	assert.Equal(t, RPCID(1700000001234), id)
}

func TestRPCIDUnmarshalsNumericString(t *testing.T) {
	var id RPCID
	require.NoError(t, json.Unmarshal([]byte(`"1700000001234"`), &id))
	assert.Equal(t, RPCID(1700000001234), id)
}

func TestRPCIDUnmarshalRejectsNonNumericString(t *testing.T) {
	var id RPCID
	assert.Error(t, json.Unmarshal([]byte(`"not-a-number"`), &id))
}

func TestRPCIDMarshalsAsBareNumber(t *testing.T) {
	out, err := json.Marshal(RPCID(42))
	require.NoError(t, err)
	assert.Equal(t, "42", string(out))
}

func TestInboundBodyDistinguishesRequestFromResponse(t *testing.T) {
	var req inboundBody
	require.NoError(t, json.Unmarshal([]byte(`{"id":1,"jsonrpc":"2.0","method":"wc_sessionPing","params":{}}`), &req))
	assert.Equal(t, "wc_sessionPing", req.Method)

	var resp inboundBody
	require.NoError(t, json.Unmarshal([]byte(`{"id":1,"jsonrpc":"2.0","result":{"ok":true}}`), &resp))
	assert.Empty(t, resp.Method)
	assert.NotEmpty(t, resp.Result)
}
