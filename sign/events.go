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

	"github.com/reown-com/sign-go/pkg/storage"
)

// Event is the host-facing inbound notification type. Delivered on
// Client.Events() in the single ordered stream spec.md requires: no
// event is emitted before its storage side effects are committed.
type Event interface {
	isEvent()
}

// SessionConnectEvent fires when a proposal settles, on both sides:
// the approver after publishing its two envelopes, the proposer after
// its inbound wc_sessionSettle lands.
type SessionConnectEvent struct {
	RPCID uint64
	Topic string
}

func (SessionConnectEvent) isEvent() {}

// SessionRejectEvent fires when a proposal response carries a JSON-RPC error.
type SessionRejectEvent struct {
	RPCID uint64
	Topic string
}

func (SessionRejectEvent) isEvent() {}

// SessionRequestEvent surfaces an inbound wc_sessionRequest; the host
// answers it with Client.Respond.
type SessionRequestEvent struct {
	Request SessionRequestJsonRpc
}

func (SessionRequestEvent) isEvent() {}

// SessionRequestResponseEvent surfaces the relay of a response to a
// session request this client previously sent.
type SessionRequestResponseEvent struct {
	RPCID    uint64
	Topic    string
	Response SessionRequestJsonRpcResponse
}

func (SessionRequestResponseEvent) isEvent() {}

// SessionUpdateEvent fires when the peer changes the approved namespaces.
type SessionUpdateEvent struct {
	RPCID      uint64
	Topic      string
	Namespaces map[string]storage.Namespace
}

func (SessionUpdateEvent) isEvent() {}

// SessionExtendEvent fires when the peer successfully extends the session expiry.
type SessionExtendEvent struct {
	RPCID uint64
	Topic string
}

func (SessionExtendEvent) isEvent() {}

// SessionEventEvent surfaces an inbound wc_sessionEvent.
type SessionEventEvent struct {
	Topic   string
	Name    string
	Data    json.RawMessage
	ChainID string
}

func (SessionEventEvent) isEvent() {}

// DisconnectEvent fires when a session is terminated, by either an
// inbound wc_sessionDelete or this client's own Disconnect call.
type DisconnectEvent struct {
	RPCID uint64
	Topic string
}

func (DisconnectEvent) isEvent() {}
