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

// Package relay implements the JSON-RPC 2.0 transport to the
// WalletConnect relay: a single persistent WebSocket connection,
// request/response correlation, subscription handling and ACKs, and a
// reconnect state machine with capped backoff.
package relay

import (
	"encoding/json"
	"fmt"
)

// MinRPCID is the first id handed out by the monotonic request counter.
const MinRPCID uint64 = 1_000_000_000

// wireRequest is an outbound or inbound JSON-RPC 2.0 request frame.
type wireRequest struct {
	ID      uint64          `json:"id"`
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
}

// wireResponse is a JSON-RPC 2.0 response frame, success or error.
type wireResponse struct {
	ID      uint64          `json:"id"`
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *wireError      `json:"error,omitempty"`
}

type wireError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// payload is the discriminated union of an inbound frame: it is either
// a request (has "method") or a response (has "result"/"error").
type payload struct {
	request  *wireRequest
	response *wireResponse
}

func decodePayload(data []byte) (*payload, error) {
	var probe struct {
		Method *string `json:"method"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("relay: decode payload: %w", err)
	}
	if probe.Method != nil {
		var req wireRequest
		if err := json.Unmarshal(data, &req); err != nil {
			return nil, fmt.Errorf("relay: decode request: %w", err)
		}
		return &payload{request: &req}, nil
	}
	var resp wireResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("relay: decode response: %w", err)
	}
	return &payload{response: &resp}, nil
}

func encodeRequest(id uint64, method string, params interface{}) ([]byte, error) {
	raw, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("relay: marshal params: %w", err)
	}
	return json.Marshal(wireRequest{ID: id, JSONRPC: "2.0", Method: method, Params: raw})
}

func encodeSuccess(id uint64, result interface{}) ([]byte, error) {
	raw, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("relay: marshal result: %w", err)
	}
	return json.Marshal(wireResponse{ID: id, JSONRPC: "2.0", Result: raw})
}

// BatchSubscribeParams is the param set for the "irn_batchSubscribe" method.
type BatchSubscribeParams struct {
	Topics []string `json:"topics"`
}

// PublishParams is the param set for the "irn_publish" method.
type PublishParams struct {
	Topic       string     `json:"topic"`
	Message     string     `json:"message"`
	TTL         int64      `json:"ttl"`
	Tag         int        `json:"tag"`
	Prompt      bool       `json:"prompt,omitempty"`
	Analytics   *Analytics `json:"analytics,omitempty"`
	Attestation *string    `json:"attestation,omitempty"`
}

// Analytics carries a correlation id a host can attach to an outbound
// publish, ferried opaquely to the relay for observability tooling.
type Analytics struct {
	CorrelationID string `json:"correlationId"`
}

// FetchMessagesParams is the param set for the "irn_fetchMessages" method.
type FetchMessagesParams struct {
	Topic string `json:"topic"`
}

// SubscriptionParams is the param set of an inbound "irn_subscription" request.
type SubscriptionParams struct {
	ID   string            `json:"id"`
	Data SubscriptionEvent `json:"data"`
}

// SubscriptionEvent carries the envelope delivered for a subscribed topic.
type SubscriptionEvent struct {
	Topic       string `json:"topic"`
	Message     string `json:"message"`
	PublishedAt int64  `json:"publishedAt"`
	Tag         int    `json:"tag"`
}

// Request tag constants assigned to outbound envelopes, per the WalletConnect
// Sign protocol's IRN tag registry.
const (
	TagSessionProposeRequest    = 1100
	TagSessionProposeResponse   = 1101
	TagSessionSettleRequest     = 1102
	TagSessionSettleResponse    = 1103
	TagSessionRequest           = 1108
	TagSessionRequestResponse   = 1109
	TagSessionUpdateRequest     = 1104
	TagSessionUpdateResponse    = 1105
	TagSessionExtendRequest     = 1106
	TagSessionExtendResponse    = 1107
	TagSessionEventRequest      = 1110
	TagSessionEventResponse     = 1111
	TagSessionDeleteRequest     = 1112
	TagSessionDeleteResponse    = 1113
	TagSessionProposalRejection = 1120
)
