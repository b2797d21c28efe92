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

// Package storage defines the durable-storage capability the Sign
// engine is constructed with: a mapping from topic to decryption key,
// the session and pending-proposal records reachable from it, and a
// per-topic JSON-RPC history.
package storage

import "encoding/json"

// Metadata describes a peer (dApp or wallet) as exchanged during
// proposal and settle.
type Metadata struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	URL         string    `json:"url"`
	Icons       []string `json:"icons,omitempty"`
}

// Namespace is a single CAIP-2 namespace entry (e.g. "eip155") as
// carried in required/optional/approved namespace maps. The core
// never interprets chains/methods/events beyond storing and forwarding
// them; schema interpretation of session-request payloads is out of
// scope.
type Namespace struct {
	Chains   []string `json:"chains,omitempty"`
	Methods  []string `json:"methods,omitempty"`
	Events   []string `json:"events,omitempty"`
	Accounts []string `json:"accounts,omitempty"`
}

// ProposalPending is created by a proposer while it awaits a response
// to a wc_sessionPropose request. Keyed by (topic, rpc_id); deleted
// when the response arrives (success or error). Nothing in this SDK
// deletes it when the pairing expires.
type ProposalPending struct {
	Topic          string
	RPCID          uint64
	PairingSymKey  []byte
	SelfPrivateKey []byte
}

// SessionRecord is created on approve (responder) or on settle
// (proposer); destroyed on explicit disconnect by either side. Nothing
// in this SDK destroys it when its expiry passes.
type SessionRecord struct {
	Topic                string
	SessionSymmetricKey  []byte
	ExpiryUnixSecs       int64
	SelfMetadata         *Metadata
	PeerMetadata         *Metadata
	PeerPublicKey        []byte
	ControllerPublicKey  []byte
	Namespaces           map[string]Namespace
	RequiredNamespaces   map[string]Namespace
	OptionalNamespaces   map[string]Namespace
	SessionProperties    map[string]string
	ScopedProperties     map[string]string
	IsAcknowledged       bool
	PairingTopic         string
}

// JsonRpcHistoryEntry records a single outstanding or completed
// JSON-RPC exchange on a topic, used to deduplicate retried inbound
// requests and satisfy callers awaiting responses. Deleted with its
// topic.
type JsonRpcHistoryEntry struct {
	RPCID        uint64
	Topic        string
	Method       string
	RequestBody  json.RawMessage
	ResponseBody json.RawMessage
}
