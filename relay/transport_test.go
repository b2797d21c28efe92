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
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	signcrypto "github.com/reown-com/sign-go/crypto"
)

// fakeRelay is a minimal stand-in for the real relay: it accepts one
// websocket connection, answers irn_publish with a success response,
// and can push a subscription event on demand.
type fakeRelay struct {
	upgrader websocket.Upgrader
	connCh   chan *websocket.Conn
}

func newFakeRelay() *fakeRelay {
	return &fakeRelay{connCh: make(chan *websocket.Conn, 1)}
}

func (f *fakeRelay) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := f.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	f.connCh <- conn

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		p, err := decodePayload(data)
		if err != nil || p.request == nil {
			continue
		}
		raw, err := encodeSuccess(p.request.ID, true)
		if err != nil {
			continue
		}
		if err := conn.WriteMessage(websocket.TextMessage, raw); err != nil {
			return
		}
	}
}

func newTestTransport(t *testing.T, serverURL string) *Transport {
	t.Helper()
	clientID, err := signcrypto.GenerateClientIDKey()
	require.NoError(t, err)

	wsURL := "ws" + strings.TrimPrefix(serverURL, "http")
	cfg := Config{URL: wsURL, ProjectID: "test-project", RequestTimeout: 2 * time.Second}
	return NewTransport(cfg, clientID, nil, nil)
}

func TestTransportRequestRoundTrip(t *testing.T) {
	relay := newFakeRelay()
	server := httptest.NewServer(relay)
	defer server.Close()

	tr := newTestTransport(t, server.URL)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go tr.Start(ctx)

	requestCtx, requestCancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer requestCancel()

	result, err := tr.Request(requestCtx, "irn_publish", PublishParams{
		Topic:   "abc",
		Message: "deadbeef",
		TTL:     300,
		Tag:     TagSessionProposeRequest,
	})
	require.NoError(t, err)
	require.Equal(t, "true", string(result))
}

func TestTransportDeliversInboundSubscriptionPush(t *testing.T) {
	relay := newFakeRelay()
	server := httptest.NewServer(relay)
	defer server.Close()

	tr := newTestTransport(t, server.URL)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go tr.Start(ctx)

	var conn *websocket.Conn
	select {
	case conn = <-relay.connCh:
	case <-time.After(3 * time.Second):
		t.Fatal("client never connected")
	}

	raw, err := encodeRequest(77, "irn_subscription", SubscriptionParams{
		ID: "sub-1",
		Data: SubscriptionEvent{
			Topic:   "abc",
			Message: "deadbeef",
			Tag:     TagSessionSettleRequest,
		},
	})
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, raw))

	select {
	case msg := <-tr.Inbound():
		require.Equal(t, "abc", msg.Topic)
		require.Equal(t, TagSessionSettleRequest, msg.Tag)
		tr.Ack(msg.ID)
	case <-time.After(3 * time.Second):
		t.Fatal("inbound message was not delivered")
	}
}

func TestTransportDoRequestFailsFastWhenPoisoned(t *testing.T) {
	clientID, err := signcrypto.GenerateClientIDKey()
	require.NoError(t, err)

	cfg := Config{URL: "ws://127.0.0.1:1", ProjectID: "test-project", RequestTimeout: time.Second}
	tr := NewTransport(cfg, clientID, nil, nil)
	tr.setState("poisoned")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err = tr.Request(ctx, "irn_publish", PublishParams{Topic: "abc"})
	require.Error(t, err)
	var relayErr *Error
	require.ErrorAs(t, err, &relayErr)
	require.Equal(t, KindInvalidAuth, relayErr.Kind)
}

// timeoutThenRecoverRelay never answers the first connection's request,
// simulating a stalled relay, then answers normally on the second
// connection the client opens after its close-and-retry.
type timeoutThenRecoverRelay struct {
	upgrader websocket.Upgrader
	attempts int32
}

func (f *timeoutThenRecoverRelay) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := f.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	attempt := atomic.AddInt32(&f.attempts, 1)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if attempt == 1 {
			// drop the request on the floor so it times out client-side
			continue
		}
		p, err := decodePayload(data)
		if err != nil || p.request == nil {
			continue
		}
		raw, err := encodeSuccess(p.request.ID, true)
		if err != nil {
			continue
		}
		if err := conn.WriteMessage(websocket.TextMessage, raw); err != nil {
			return
		}
	}
}

func TestTransportRetriesOnceOnRequestTimeout(t *testing.T) {
	relay := &timeoutThenRecoverRelay{}
	server := httptest.NewServer(relay)
	defer server.Close()

	clientID, err := signcrypto.GenerateClientIDKey()
	require.NoError(t, err)

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	cfg := Config{URL: wsURL, ProjectID: "test-project", RequestTimeout: 300 * time.Millisecond}
	tr := NewTransport(cfg, clientID, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go tr.Start(ctx)

	requestCtx, requestCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer requestCancel()

	result, err := tr.Request(requestCtx, "irn_publish", PublishParams{
		Topic:   "abc",
		Message: "deadbeef",
		TTL:     300,
		Tag:     TagSessionProposeRequest,
	})
	require.NoError(t, err)
	require.Equal(t, "true", string(result))
	require.Equal(t, int32(2), atomic.LoadInt32(&relay.attempts))
}

// onceFailRelay drops the first connection immediately after upgrading
// (forcing the transport into Backoff) and serves the second normally.
type onceFailRelay struct {
	upgrader websocket.Upgrader
	attempts int32
}

func (f *onceFailRelay) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := f.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	if atomic.AddInt32(&f.attempts, 1) == 1 {
		conn.Close()
		return
	}
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		p, err := decodePayload(data)
		if err != nil || p.request == nil {
			continue
		}
		raw, err := encodeSuccess(p.request.ID, true)
		if err != nil {
			continue
		}
		if err := conn.WriteMessage(websocket.TextMessage, raw); err != nil {
			return
		}
	}
}

func TestTransportOnlineNudgePreemptsBackoffSleep(t *testing.T) {
	relay := &onceFailRelay{}
	server := httptest.NewServer(relay)
	defer server.Close()

	clientID, err := signcrypto.GenerateClientIDKey()
	require.NoError(t, err)

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	cfg := Config{
		URL:            wsURL,
		ProjectID:      "test-project",
		RequestTimeout: time.Second,
		BackoffMillis:  []int64{30_000},
	}
	tr := NewTransport(cfg, clientID, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go tr.Start(ctx)

	require.Eventually(t, func() bool { return tr.State() == "backoff" }, 2*time.Second, 10*time.Millisecond)

	// A 30s backoff window is in effect; without preemption a request
	// bounded by a 5s context would time out rather than succeed.
	tr.Online()

	requestCtx, requestCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer requestCancel()

	result, err := tr.Request(requestCtx, "irn_publish", PublishParams{
		Topic:   "abc",
		Message: "deadbeef",
		TTL:     300,
		Tag:     TagSessionProposeRequest,
	})
	require.NoError(t, err)
	require.Equal(t, "true", string(result))
}
