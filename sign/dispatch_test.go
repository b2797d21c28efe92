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
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	signcrypto "github.com/reown-com/sign-go/crypto"
	"github.com/reown-com/sign-go/envelope"
	"github.com/reown-com/sign-go/internal/logger"
	"github.com/reown-com/sign-go/pkg/storage"
	"github.com/reown-com/sign-go/pkg/storage/memory"
	"github.com/reown-com/sign-go/relay"
)

func newTestClient(t *testing.T) (*Client, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	clientID, err := signcrypto.GenerateClientIDKey()
	require.NoError(t, err)
	tr := relay.NewTransport(relay.Config{URL: "wss://example.invalid", ProjectID: "test"}, clientID, store, logger.NewDefaultLogger())
	c := New(Config{
		SelfMetadata: storage.Metadata{Name: "test-host"},
		ClientID:     clientID,
		Store:        store,
		Transport:    tr,
		Logger:       logger.NewDefaultLogger(),
	})
	return c, store
}

func TestHandleInboundSessionSettleEmitsConnectWithCorrectPeerKey(t *testing.T) {
	c, store := newTestClient(t)
	ctx := context.Background()

	sessionKey := make([]byte, 32)
	for i := range sessionKey {
		sessionKey[i] = byte(i)
	}
	sessionTopic, err := signcrypto.TopicOf(sessionKey)
	require.NoError(t, err)
	require.NoError(t, store.SavePartialSession(ctx, sessionTopic, sessionKey))

	controllerKP, err := signcrypto.GenerateKeyPair()
	require.NoError(t, err)

	settle := sessionSettleRequest{
		ID:      RPCID(42),
		JSONRPC: "2.0",
		Method:  "wc_sessionSettle",
		Params: SessionSettleParams{
			Relay:      RelayInfo{Protocol: "irn"},
			Controller: ControllerInfo{PublicKey: hexEncode(controllerKP.PublicKey())},
			Namespaces: map[string]storage.Namespace{"eip155": {Chains: []string{"eip155:1"}}},
			Expiry:     time.Now().Unix() + 3600,
		},
	}
	sealed, err := envelope.Seal(sessionKey, settle)
	require.NoError(t, err)

	outcome := c.handleInbound(ctx, relay.InboundMessage{ID: 1, Topic: sessionTopic, Message: sealed, Tag: int(relay.TagSessionSettleRequest)})
	require.Equal(t, outcomeOk, outcome)

	select {
	case ev := <-c.Events():
		connect, ok := ev.(SessionConnectEvent)
		require.True(t, ok)
		require.Equal(t, sessionTopic, connect.Topic)
	default:
		t.Fatal("expected SessionConnectEvent")
	}

	session, err := store.GetSession(ctx, sessionTopic)
	require.NoError(t, err)
	require.NotNil(t, session)
	require.Equal(t, controllerKP.PublicKey(), []byte(session.PeerPublicKey))
	require.NotEqual(t, sessionKey, []byte(session.PeerPublicKey), "peer public key must not be the session symmetric key")
}

func TestHandleInboundSessionExtendRejectsBeyondSevenDays(t *testing.T) {
	c, store := newTestClient(t)
	ctx := context.Background()

	sessionKey := make([]byte, 32)
	sessionTopic, err := signcrypto.TopicOf(sessionKey)
	require.NoError(t, err)
	now := time.Now().Unix()
	require.NoError(t, store.AddSession(ctx, &storage.SessionRecord{
		Topic:               sessionTopic,
		SessionSymmetricKey: sessionKey,
		ExpiryUnixSecs:      now,
	}))

	req := sessionExtendRequest{
		ID:      RPCID(1),
		JSONRPC: "2.0",
		Method:  "wc_sessionExtend",
		Params:  SessionExtendParams{Expiry: now + 8*24*3600},
	}
	sealed, err := envelope.Seal(sessionKey, req)
	require.NoError(t, err)

	outcome := c.handleInbound(ctx, relay.InboundMessage{ID: 2, Topic: sessionTopic, Message: sealed, Tag: int(relay.TagSessionExtendRequest)})
	require.Equal(t, outcomeDropped, outcome)

	select {
	case ev := <-c.Events():
		t.Fatalf("expected no event, got %#v", ev)
	default:
	}

	session, err := store.GetSession(ctx, sessionTopic)
	require.NoError(t, err)
	require.Equal(t, now, session.ExpiryUnixSecs)
}

func TestHandleInboundSessionExtendAcceptsWithinFiveDays(t *testing.T) {
	c, store := newTestClient(t)
	ctx := context.Background()

	sessionKey := make([]byte, 32)
	for i := range sessionKey {
		sessionKey[i] = 7
	}
	sessionTopic, err := signcrypto.TopicOf(sessionKey)
	require.NoError(t, err)
	now := time.Now().Unix()
	require.NoError(t, store.AddSession(ctx, &storage.SessionRecord{
		Topic:               sessionTopic,
		SessionSymmetricKey: sessionKey,
		ExpiryUnixSecs:      now,
	}))

	newExpiry := now + 5*24*3600
	req := sessionExtendRequest{
		ID:      RPCID(1),
		JSONRPC: "2.0",
		Method:  "wc_sessionExtend",
		Params:  SessionExtendParams{Expiry: newExpiry},
	}
	sealed, err := envelope.Seal(sessionKey, req)
	require.NoError(t, err)

	outcome := c.handleInbound(ctx, relay.InboundMessage{ID: 2, Topic: sessionTopic, Message: sealed, Tag: int(relay.TagSessionExtendRequest)})
	require.Equal(t, outcomeOk, outcome)

	select {
	case ev := <-c.Events():
		extend, ok := ev.(SessionExtendEvent)
		require.True(t, ok)
		require.Equal(t, sessionTopic, extend.Topic)
	default:
		t.Fatal("expected SessionExtendEvent")
	}

	session, err := store.GetSession(ctx, sessionTopic)
	require.NoError(t, err)
	require.Equal(t, newExpiry, session.ExpiryUnixSecs)
}

func TestHandleInboundSessionEventDeduplicatesByID(t *testing.T) {
	c, store := newTestClient(t)
	ctx := context.Background()

	sessionKey := make([]byte, 32)
	for i := range sessionKey {
		sessionKey[i] = 9
	}
	sessionTopic, err := signcrypto.TopicOf(sessionKey)
	require.NoError(t, err)
	require.NoError(t, store.AddSession(ctx, &storage.SessionRecord{Topic: sessionTopic, SessionSymmetricKey: sessionKey}))

	req := sessionEventRequest{
		ID:      RPCID(7),
		JSONRPC: "2.0",
		Method:  "wc_sessionEvent",
		Params:  SessionEventParams{Event: EventPayload{Name: "chainChanged"}, ChainID: "eip155:1"},
	}
	sealed, err := envelope.Seal(sessionKey, req)
	require.NoError(t, err)

	msg := relay.InboundMessage{ID: 3, Topic: sessionTopic, Message: sealed, Tag: int(relay.TagSessionEventRequest)}
	require.Equal(t, outcomeOk, c.handleInbound(ctx, msg))
	require.Equal(t, outcomeOk, c.handleInbound(ctx, msg))

	count := 0
	for {
		select {
		case <-c.Events():
			count++
			continue
		default:
		}
		break
	}
	require.Equal(t, 1, count, "event must be emitted exactly once across duplicate deliveries")
}

func TestHandleInboundSessionDeleteClearsStorageAndNotifies(t *testing.T) {
	c, store := newTestClient(t)
	ctx := context.Background()

	sessionKey := make([]byte, 32)
	for i := range sessionKey {
		sessionKey[i] = 3
	}
	sessionTopic, err := signcrypto.TopicOf(sessionKey)
	require.NoError(t, err)
	require.NoError(t, store.AddSession(ctx, &storage.SessionRecord{Topic: sessionTopic, SessionSymmetricKey: sessionKey}))

	req := sessionDeleteRequest{
		ID:      RPCID(9),
		JSONRPC: "2.0",
		Method:  "wc_sessionDelete",
		Params:  SessionDeleteParams{Code: 6000, Message: "User disconnected."},
	}
	sealed, err := envelope.Seal(sessionKey, req)
	require.NoError(t, err)

	outcome := c.handleInbound(ctx, relay.InboundMessage{ID: 4, Topic: sessionTopic, Message: sealed, Tag: int(relay.TagSessionDeleteRequest)})
	require.Equal(t, outcomeOk, outcome)

	select {
	case ev := <-c.Events():
		del, ok := ev.(DisconnectEvent)
		require.True(t, ok)
		require.Equal(t, sessionTopic, del.Topic)
	default:
		t.Fatal("expected DisconnectEvent")
	}

	session, err := store.GetSession(ctx, sessionTopic)
	require.NoError(t, err)
	require.Nil(t, session)
}

func TestHandleInboundDropsEnvelopeOnUnknownTopic(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	outcome := c.handleInbound(ctx, relay.InboundMessage{ID: 5, Topic: "deadbeef", Message: "not-even-valid-base64!!"})
	require.Equal(t, outcomeDropped, outcome)
}

func TestHandleInboundProposalResponseRoutesToSettleSubscription(t *testing.T) {
	received := make(chan string, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		acceptWebSocketEcho(t, w, r, received)
	}))
	defer server.Close()

	store := memory.NewStore()
	clientID, err := signcrypto.GenerateClientIDKey()
	require.NoError(t, err)
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	tr := relay.NewTransport(relay.Config{URL: wsURL, ProjectID: "test"}, clientID, store, logger.NewDefaultLogger())

	c := New(Config{
		SelfMetadata: storage.Metadata{Name: "test-host"},
		ClientID:     clientID,
		Store:        store,
		Transport:    tr,
		Logger:       logger.NewDefaultLogger(),
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go tr.Start(ctx)

	pairingKey := make([]byte, 32)
	for i := range pairingKey {
		pairingKey[i] = 5
	}
	pairingTopic, err := signcrypto.TopicOf(pairingKey)
	require.NoError(t, err)

	proposerKP, err := signcrypto.GenerateKeyPair()
	require.NoError(t, err)
	require.NoError(t, store.SavePairing(ctx, pairingTopic, 11, pairingKey, proposerKP.PrivateKey()))

	responderKP, err := signcrypto.GenerateKeyPair()
	require.NoError(t, err)

	resp := proposalResponseEnvelope{
		ID:      RPCID(11),
		JSONRPC: "2.0",
		Result: ProposalResponseResult{
			Relay:              RelayInfo{Protocol: "irn"},
			ResponderPublicKey: hexEncode(responderKP.PublicKey()),
		},
	}
	sealed, err := envelope.Seal(pairingKey, resp)
	require.NoError(t, err)

	outcome := c.handleInbound(ctx, relay.InboundMessage{ID: 1, Topic: pairingTopic, Message: sealed})
	require.Equal(t, outcomeOk, outcome)

	select {
	case method := <-received:
		require.Equal(t, "irn_batchSubscribe", method)
	case <-time.After(2 * time.Second):
		t.Fatal("expected an irn_batchSubscribe request on the relay connection")
	}
}
