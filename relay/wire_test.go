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

package relay

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeRequestRoundTripsThroughDecodePayload(t *testing.T) {
	raw, err := encodeRequest(MinRPCID, "irn_publish", PublishParams{
		Topic:   "abc",
		Message: "deadbeef",
		TTL:     300,
		Tag:     TagSessionProposeRequest,
	})
	require.NoError(t, err)

	p, err := decodePayload(raw)
	require.NoError(t, err)
	require.NotNil(t, p.request)
	require.Nil(t, p.response)
	require.Equal(t, "irn_publish", p.request.Method)
	require.Equal(t, MinRPCID, p.request.ID)
}

func TestEncodeSuccessRoundTripsThroughDecodePayload(t *testing.T) {
	raw, err := encodeSuccess(MinRPCID, true)
	require.NoError(t, err)

	p, err := decodePayload(raw)
	require.NoError(t, err)
	require.Nil(t, p.request)
	require.NotNil(t, p.response)
	require.Equal(t, MinRPCID, p.response.ID)
	require.Nil(t, p.response.Error)
}

func TestDecodePayloadDistinguishesSubscriptionPush(t *testing.T) {
	raw, err := encodeRequest(42, "irn_subscription", SubscriptionParams{
		ID: "sub-1",
		Data: SubscriptionEvent{
			Topic:   "abc",
			Message: "deadbeef",
			Tag:     TagSessionSettleRequest,
		},
	})
	require.NoError(t, err)

	p, err := decodePayload(raw)
	require.NoError(t, err)
	require.NotNil(t, p.request)
	require.Equal(t, "irn_subscription", p.request.Method)

	var params SubscriptionParams
	require.NoError(t, json.Unmarshal(p.request.Params, &params))
	require.Equal(t, "abc", params.Data.Topic)
	require.Equal(t, TagSessionSettleRequest, params.Data.Tag)
}
