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

// Package sign implements the WalletConnect v2 Sign protocol session
// engine: pairing and proposal exchange, the settle handshake, outbound
// session operations, and inbound dispatch of irn_subscription
// envelopes into a single ordered event stream.
package sign

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/reown-com/sign-go/pkg/storage"
)

// RPCID is a JSON-RPC id that accepts either a bare number or a
// stringified number on the wire, per the protocol's documented
// variance (spec §9 "JSON shape variance").
type RPCID uint64

func (id *RPCID) UnmarshalJSON(data []byte) error {
	var n uint64
	if err := json.Unmarshal(data, &n); err == nil {
		*id = RPCID(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("sign: rpc id neither number nor string: %w", err)
	}
	parsed, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return fmt.Errorf("sign: rpc id string %q is not numeric: %w", s, err)
	}
	*id = RPCID(parsed)
	return nil
}

func (id RPCID) MarshalJSON() ([]byte, error) {
	return json.Marshal(uint64(id))
}

// RPCError is a JSON-RPC 2.0 error object.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// inboundBody is the discriminated shape of a decrypted envelope body:
// a request (has Method), a success response (has Result), or an
// error response (has Error). ID is present on every shape.
type inboundBody struct {
	ID     *RPCID          `json:"id,omitempty"`
	Method string          `json:"method,omitempty"`
	Params json.RawMessage `json:"params,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *RPCError       `json:"error,omitempty"`
}

// RelayInfo names the relay protocol a session/pairing is subscribed through.
type RelayInfo struct {
	Protocol string `json:"protocol"`
}

// AnalyticsData carries a correlation id on outbound propose/approve
// calls, letting the relay and any observability tooling tie the two
// hops of a proposal together.
type AnalyticsData struct {
	CorrelationID string `json:"correlationId"`
}

// RequestMetadata carries host-supplied, protocol-opaque data that may
// accompany an outbound request: an attestation token proving some
// property of the caller, and a correlation id for observability.
// Attestation is ferried to the relay verbatim; CorrelationID is not
// sent (Connect and Approve attach a freshly generated correlation id
// of their own). This SDK never interprets either value.
// Passed as a trailing variadic argument so existing call sites that
// don't need it are unaffected.
type RequestMetadata struct {
	Attestation   string
	CorrelationID string
}

func (m RequestMetadata) attestationPtr() *string {
	if m.Attestation == "" {
		return nil
	}
	v := m.Attestation
	return &v
}

func firstMetadata(meta []RequestMetadata) RequestMetadata {
	if len(meta) > 0 {
		return meta[0]
	}
	return RequestMetadata{}
}

// ProposerInfo identifies the proposing peer inside a session proposal.
type ProposerInfo struct {
	PublicKey string            `json:"publicKey"`
	Metadata  *storage.Metadata `json:"metadata"`
}

// SessionProposalBody is the params of a sealed wc_sessionPropose request.
type SessionProposalBody struct {
	Relays             []RelayInfo                  `json:"relays"`
	Proposer           ProposerInfo                 `json:"proposer"`
	RequiredNamespaces map[string]storage.Namespace `json:"requiredNamespaces,omitempty"`
	OptionalNamespaces map[string]storage.Namespace `json:"optionalNamespaces,omitempty"`
	SessionProperties  map[string]string            `json:"sessionProperties,omitempty"`
	ScopedProperties   map[string]string            `json:"scopedProperties,omitempty"`
	ExpiryTimestamp    int64                        `json:"expiryTimestamp"`
}

// sessionProposeRequest is the sealed JSON-RPC request body published
// on the pairing topic via wc_proposeSession.
type sessionProposeRequest struct {
	ID      RPCID               `json:"id"`
	JSONRPC string              `json:"jsonrpc"`
	Method  string              `json:"method"`
	Params  SessionProposalBody `json:"params"`
}

// ProposeSessionParams is the outer (unencrypted) param set of the
// wc_proposeSession relay method: the pairing topic plus the sealed
// proposal envelope.
type ProposeSessionParams struct {
	PairingTopic    string         `json:"pairingTopic"`
	SessionProposal string         `json:"sessionProposal"`
	Attestation     *string        `json:"attestation,omitempty"`
	Analytics       *AnalyticsData `json:"analytics,omitempty"`
}

// ProposalResponseResult is the result of a sealed success reply to a
// proposal, sent under the pairing key.
type ProposalResponseResult struct {
	Relay              RelayInfo `json:"relay"`
	ResponderPublicKey string    `json:"responderPublicKey"`
}

type proposalResponseEnvelope struct {
	ID      RPCID                  `json:"id"`
	JSONRPC string                 `json:"jsonrpc"`
	Result  ProposalResponseResult `json:"result"`
}

type proposalRejectEnvelope struct {
	ID      RPCID    `json:"id"`
	JSONRPC string   `json:"jsonrpc"`
	Error   RPCError `json:"error"`
}

// ControllerInfo identifies the approving peer inside a settle request.
type ControllerInfo struct {
	PublicKey string            `json:"publicKey"`
	Metadata  *storage.Metadata `json:"metadata"`
}

// SessionSettleParams is the params of a sealed wc_sessionSettle request.
type SessionSettleParams struct {
	Relay              RelayInfo                    `json:"relay"`
	Controller         ControllerInfo               `json:"controller"`
	Namespaces         map[string]storage.Namespace `json:"namespaces"`
	RequiredNamespaces map[string]storage.Namespace `json:"requiredNamespaces,omitempty"`
	SessionProperties  map[string]string            `json:"sessionProperties,omitempty"`
	ScopedProperties   map[string]string            `json:"scopedProperties,omitempty"`
	Expiry             int64                        `json:"expiry"`
	PairingTopic       string                       `json:"pairingTopic"`
}

type sessionSettleRequest struct {
	ID      RPCID               `json:"id"`
	JSONRPC string              `json:"jsonrpc"`
	Method  string              `json:"method"`
	Params  SessionSettleParams `json:"params"`
}

// ApproveSessionParams is the outer param set of the wc_approveSession
// relay method: the two sealed envelopes published atomically.
type ApproveSessionParams struct {
	PairingTopic             string         `json:"pairingTopic"`
	SessionTopic             string         `json:"sessionTopic"`
	SessionProposalResponse  string         `json:"sessionProposalResponse"`
	SessionSettlementRequest string         `json:"sessionSettlementRequest"`
	Analytics                *AnalyticsData `json:"analytics,omitempty"`
}

// SessionRequestPayload is the opaque inner request a dApp asks the
// wallet to fulfil (e.g. eth_sendTransaction); the core never
// interprets Method/Params beyond ferrying them.
type SessionRequestPayload struct {
	Method          string          `json:"method"`
	Params          json.RawMessage `json:"params"`
	ExpiryTimestamp int64           `json:"expiryTimestamp,omitempty"`
}

// SessionRequestParams is the params of an inbound wc_sessionRequest.
type SessionRequestParams struct {
	Request SessionRequestPayload `json:"request"`
	ChainID string                `json:"chainId"`
}

type sessionRequestEnvelope struct {
	ID      RPCID                `json:"id"`
	JSONRPC string               `json:"jsonrpc"`
	Method  string               `json:"method"`
	Params  SessionRequestParams `json:"params"`
}

// SessionRequestJsonRpc is a wc_sessionRequest surfaced to the host for
// it to answer via Client.Respond.
type SessionRequestJsonRpc struct {
	ID      uint64
	Topic   string
	ChainID string
	Method  string
	Params  json.RawMessage
}

// SessionRequestJsonRpcResponse is the sealed reply to a
// SessionRequestJsonRpc, published via Client.Respond.
type SessionRequestJsonRpcResponse struct {
	ID      RPCID           `json:"id"`
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// SettleNamespaces is the params of a sealed wc_sessionUpdate request.
type SettleNamespaces struct {
	Namespaces map[string]storage.Namespace `json:"namespaces"`
}

type sessionUpdateRequest struct {
	ID      RPCID            `json:"id"`
	JSONRPC string           `json:"jsonrpc"`
	Method  string           `json:"method"`
	Params  SettleNamespaces `json:"params"`
}

// SessionExtendParams is the params of a sealed wc_sessionExtend request.
type SessionExtendParams struct {
	Expiry int64 `json:"expiry"`
}

type sessionExtendRequest struct {
	ID      RPCID               `json:"id"`
	JSONRPC string              `json:"jsonrpc"`
	Method  string              `json:"method"`
	Params  SessionExtendParams `json:"params"`
}

// EventPayload is the name/data pair carried by wc_sessionEvent.
type EventPayload struct {
	Name string          `json:"name"`
	Data json.RawMessage `json:"data"`
}

// SessionEventParams is the params of a sealed wc_sessionEvent request.
type SessionEventParams struct {
	Event   EventPayload `json:"event"`
	ChainID string       `json:"chainId"`
}

type sessionEventRequest struct {
	ID      RPCID              `json:"id"`
	JSONRPC string             `json:"jsonrpc"`
	Method  string             `json:"method"`
	Params  SessionEventParams `json:"params"`
}

// SessionDeleteParams is the params of a sealed wc_sessionDelete request.
type SessionDeleteParams struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type sessionDeleteRequest struct {
	ID      RPCID               `json:"id"`
	JSONRPC string              `json:"jsonrpc"`
	Method  string              `json:"method"`
	Params  SessionDeleteParams `json:"params"`
}

type sessionPingRequest struct {
	ID      RPCID       `json:"id"`
	JSONRPC string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params"`
}

// SessionProposal is the host-facing result of Client.Pair: everything
// needed to decide whether to approve or reject, plus what Approve
// needs to build the settle handshake.
type SessionProposal struct {
	PairingTopic       string
	PairingSymKey      []byte
	ProposalRPCID      uint64
	ProposerPublicKey  []byte
	ProposerMetadata   *storage.Metadata
	RequiredNamespaces map[string]storage.Namespace
	OptionalNamespaces map[string]storage.Namespace
	SessionProperties  map[string]string
	ScopedProperties   map[string]string
	ExpiryUnixSecs     int64
}

// Session is the host-facing result of Client.Approve.
type Session struct {
	Topic               string
	SessionSymmetricKey []byte
	ExpiryUnixSecs      int64
	PeerPublicKey       []byte
	PairingTopic        string
}
