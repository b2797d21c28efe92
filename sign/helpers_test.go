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
	"encoding/hex"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gorilla/websocket"
)

// upgraderAcceptThenClose completes the websocket handshake and
// immediately closes the connection, simulating a relay that accepts
// the dial but drops every session.
func upgraderAcceptThenClose(t *testing.T, w http.ResponseWriter, r *http.Request) {
	t.Helper()
	upgrader := websocket.Upgrader{}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	conn.Close()
}

// acceptWebSocketEchoWithFetchResult behaves like acceptWebSocketEcho
// except it answers irn_fetchMessages with a single sealed envelope.
func acceptWebSocketEchoWithFetchResult(t *testing.T, w http.ResponseWriter, r *http.Request, received chan string, sealedMessage string) {
	t.Helper()
	upgrader := websocket.Upgrader{}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var frame struct {
			ID     uint64 `json:"id"`
			Method string `json:"method"`
		}
		if err := json.Unmarshal(data, &frame); err != nil {
			continue
		}
		select {
		case received <- frame.Method:
		default:
		}

		var reply []byte
		if frame.Method == "irn_fetchMessages" {
			reply, _ = json.Marshal(struct {
				ID      uint64 `json:"id"`
				JSONRPC string `json:"jsonrpc"`
				Result  struct {
					Messages []struct {
						Message string `json:"message"`
					} `json:"messages"`
				} `json:"result"`
			}{
				ID:      frame.ID,
				JSONRPC: "2.0",
				Result: struct {
					Messages []struct {
						Message string `json:"message"`
					} `json:"messages"`
				}{Messages: []struct {
					Message string `json:"message"`
				}{{Message: sealedMessage}}},
			})
		} else {
			reply, _ = json.Marshal(struct {
				ID      uint64                 `json:"id"`
				JSONRPC string                 `json:"jsonrpc"`
				Result  map[string]interface{} `json:"result"`
			}{ID: frame.ID, JSONRPC: "2.0", Result: map[string]interface{}{}})
		}
		if err := conn.WriteMessage(websocket.TextMessage, reply); err != nil {
			return
		}
	}
}

func hexEncode(b []byte) string {
	return hex.EncodeToString(b)
}

// acceptWebSocketEcho upgrades r to a websocket connection and answers
// every request frame with an empty success result, forwarding the
// request's method name on received for the test to assert against.
func acceptWebSocketEcho(t *testing.T, w http.ResponseWriter, r *http.Request, received chan string) {
	t.Helper()
	upgrader := websocket.Upgrader{}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var frame struct {
			ID     uint64 `json:"id"`
			Method string `json:"method"`
		}
		if err := json.Unmarshal(data, &frame); err != nil {
			continue
		}
		select {
		case received <- frame.Method:
		default:
		}
		reply, _ := json.Marshal(struct {
			ID      uint64                 `json:"id"`
			JSONRPC string                 `json:"jsonrpc"`
			Result  map[string]interface{} `json:"result"`
		}{ID: frame.ID, JSONRPC: "2.0", Result: map[string]interface{}{}})
		if err := conn.WriteMessage(websocket.TextMessage, reply); err != nil {
			return
		}
	}
}
