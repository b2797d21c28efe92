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
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	signcrypto "github.com/reown-com/sign-go/crypto"
	"github.com/reown-com/sign-go/envelope"
	"github.com/reown-com/sign-go/internal/logger"
	"github.com/reown-com/sign-go/internal/metrics"
	"github.com/reown-com/sign-go/pairing"
	"github.com/reown-com/sign-go/pkg/storage"
	"github.com/reown-com/sign-go/relay"
)

const (
	pairingTTLSecs    = 300
	sessionTTLSecs    = 7 * 24 * 3600
	sessionDeleteTTL  = 86400
	sessionRespTTL    = 300
	proposalRejectTTL = 300
)

// Config is everything Client needs at construction. SelfMetadata is
// sent to the peer on both propose and approve.
type Config struct {
	SelfMetadata storage.Metadata
	ClientID     *signcrypto.ClientIDKey
	Store        storage.Store
	Transport    *relay.Transport
	Logger       logger.Logger
}

// Client is the Sign protocol session engine: the public surface spec
// §4.F describes, wired to a relay.Transport and a storage.Store.
type Client struct {
	cfg    Config
	log    logger.Logger
	rpcSeq uint64

	events chan Event
	done   chan struct{}
}

// New constructs a Client. Call Start to begin serving inbound traffic.
func New(cfg Config) *Client {
	log := cfg.Logger
	if log == nil {
		log = logger.NewDefaultLogger()
	}
	return &Client{
		cfg:    cfg,
		log:    log,
		rpcSeq: relay.MinRPCID - 1,
		events: make(chan Event, 256),
		done:   make(chan struct{}),
	}
}

func (c *Client) nextRPCID() uint64 {
	return atomic.AddUint64(&c.rpcSeq, 1)
}

// Events returns the single ordered stream of inbound notifications.
func (c *Client) Events() <-chan Event {
	return c.events
}

// Start begins the relay transport's connect loop and the inbound
// dispatch loop. Blocks until ctx is cancelled.
func (c *Client) Start(ctx context.Context) {
	go c.cfg.Transport.Start(ctx)
	c.dispatchLoop(ctx)
	close(c.done)
}

func (c *Client) emit(ctx context.Context, ev Event) {
	select {
	case c.events <- ev:
	case <-ctx.Done():
	}
}

// Pair parses a pairing URI, fetches pending messages on its topic,
// and locates the wc_sessionPropose envelope.
func (c *Client) Pair(ctx context.Context, uri string) (*SessionProposal, error) {
	parsed, err := pairing.Parse(uri)
	if err != nil {
		return nil, wrapError(KindInvalidInput, "parse pairing uri", err)
	}
	symKey, err := hex.DecodeString(parsed.SymKey)
	if err != nil {
		return nil, wrapError(KindInvalidInput, "decode pairing sym key", err)
	}

	raw, err := c.cfg.Transport.Request(ctx, "irn_fetchMessages", relay.FetchMessagesParams{Topic: parsed.Topic})
	if err != nil {
		return nil, fromRelayError(err)
	}
	var fetched struct {
		Messages []struct {
			Message string `json:"message"`
		} `json:"messages"`
	}
	if err := json.Unmarshal(raw, &fetched); err != nil {
		return nil, wrapError(KindParseFailure, "parse fetchMessages result", err)
	}

	for _, m := range fetched.Messages {
		plaintext, err := envelope.Decode(symKey, m.Message)
		if err != nil {
			continue
		}
		var body inboundBody
		if err := json.Unmarshal(plaintext, &body); err != nil {
			continue
		}
		if body.Method != "wc_sessionPropose" {
			continue
		}
		var params SessionProposalBody
		if err := json.Unmarshal(body.Params, &params); err != nil {
			return nil, wrapError(KindParseFailure, "parse session proposal params", err)
		}
		proposerPub, err := hex.DecodeString(params.Proposer.PublicKey)
		if err != nil {
			return nil, wrapError(KindParseFailure, "decode proposer public key", err)
		}
		var rpcID uint64
		if body.ID != nil {
			rpcID = uint64(*body.ID)
		}
		return &SessionProposal{
			PairingTopic:       parsed.Topic,
			PairingSymKey:      symKey,
			ProposalRPCID:      rpcID,
			ProposerPublicKey:  proposerPub,
			ProposerMetadata:   params.Proposer.Metadata,
			RequiredNamespaces: params.RequiredNamespaces,
			OptionalNamespaces: params.OptionalNamespaces,
			SessionProperties:  params.SessionProperties,
			ScopedProperties:   params.ScopedProperties,
			ExpiryUnixSecs:     params.ExpiryTimestamp,
		}, nil
	}
	return nil, newError(KindInvalidInput, "no wc_sessionPropose envelope found on pairing topic")
}

// Connect generates a pairing symmetric key and a proposer key pair,
// builds and publishes a
// wc_sessionPropose, and returns the pairing topic and URI to render
// for the wallet to scan.
func (c *Client) Connect(ctx context.Context, optionalNamespaces map[string]storage.Namespace, sessionProperties, scopedProperties map[string]string, meta ...RequestMetadata) (topic, uri string, err error) {
	start := time.Now()
	defer func() {
		metrics.SessionOperationDuration.WithLabelValues("pair").Observe(time.Since(start).Seconds())
	}()

	symKey := make([]byte, signcrypto.PublicKeySize)
	if _, rerr := rand.Read(symKey); rerr != nil {
		return "", "", wrapError(KindCryptoFailure, "generate pairing symmetric key", rerr)
	}
	pairingTopic, terr := signcrypto.TopicOf(symKey)
	if terr != nil {
		return "", "", wrapError(KindCryptoFailure, "derive pairing topic", terr)
	}

	kp, kerr := signcrypto.GenerateKeyPair()
	if kerr != nil {
		return "", "", wrapError(KindCryptoFailure, "generate proposer key pair", kerr)
	}

	expiry := time.Now().Unix() + pairingTTLSecs
	proposalID := c.nextRPCID()
	proposal := sessionProposeRequest{
		ID:      RPCID(proposalID),
		JSONRPC: "2.0",
		Method:  "wc_sessionPropose",
		Params: SessionProposalBody{
			Relays:             []RelayInfo{{Protocol: "irn"}},
			Proposer:           ProposerInfo{PublicKey: hex.EncodeToString(kp.PublicKey()), Metadata: &c.cfg.SelfMetadata},
			OptionalNamespaces: optionalNamespaces,
			SessionProperties:  sessionProperties,
			ScopedProperties:   scopedProperties,
			ExpiryTimestamp:    expiry,
		},
	}
	sealed, serr := envelope.Seal(symKey, proposal)
	if serr != nil {
		return "", "", wrapError(KindDecodeFailure, "seal session proposal", serr)
	}

	m := firstMetadata(meta)
	_, rerr := c.cfg.Transport.Request(ctx, "wc_proposeSession", ProposeSessionParams{
		PairingTopic:    pairingTopic,
		SessionProposal: sealed,
		Attestation:     m.attestationPtr(),
		Analytics:       &AnalyticsData{CorrelationID: uuid.New().String()},
	})
	if rerr != nil {
		return "", "", fromRelayError(rerr)
	}

	if serr := c.cfg.Store.SavePairing(ctx, pairingTopic, proposalID, symKey, kp.PrivateKey()); serr != nil {
		return "", "", wrapError(KindStorageFailure, "save pairing", serr)
	}
	metrics.PairingsCreated.WithLabelValues("proposer").Inc()

	u := pairing.Format(&pairing.URI{
		Topic:          pairingTopic,
		SymKey:         hex.EncodeToString(symKey),
		RelayProtocol:  "irn",
		ExpiryUnixSecs: expiry,
	})
	return pairingTopic, u, nil
}

// Approve builds the settle handshake for proposal, persists the new
// session, and publishes both sealed envelopes via wc_approveSession.
func (c *Client) Approve(ctx context.Context, proposal *SessionProposal, approvedNamespaces map[string]storage.Namespace) (*Session, error) {
	start := time.Now()
	defer func() {
		metrics.SessionOperationDuration.WithLabelValues("approve").Observe(time.Since(start).Seconds())
	}()

	kp, err := signcrypto.GenerateKeyPair()
	if err != nil {
		return nil, wrapError(KindCryptoFailure, "generate responder key pair", err)
	}
	shared, err := kp.DeriveShared(proposal.ProposerPublicKey)
	if err != nil {
		return nil, wrapError(KindCryptoFailure, "derive shared secret", err)
	}
	sessionTopic, err := signcrypto.TopicOf(shared)
	if err != nil {
		return nil, wrapError(KindCryptoFailure, "derive session topic", err)
	}

	responseEnvelope := proposalResponseEnvelope{
		ID:      RPCID(proposal.ProposalRPCID),
		JSONRPC: "2.0",
		Result: ProposalResponseResult{
			Relay:              RelayInfo{Protocol: "irn"},
			ResponderPublicKey: hex.EncodeToString(kp.PublicKey()),
		},
	}
	sealedResponse, err := envelope.Seal(proposal.PairingSymKey, responseEnvelope)
	if err != nil {
		return nil, wrapError(KindDecodeFailure, "seal proposal response", err)
	}

	expiry := time.Now().Unix() + sessionTTLSecs
	settleRequest := sessionSettleRequest{
		ID:      RPCID(c.nextRPCID()),
		JSONRPC: "2.0",
		Method:  "wc_sessionSettle",
		Params: SessionSettleParams{
			Relay:              RelayInfo{Protocol: "irn"},
			Controller:         ControllerInfo{PublicKey: hex.EncodeToString(kp.PublicKey()), Metadata: &c.cfg.SelfMetadata},
			Namespaces:         approvedNamespaces,
			RequiredNamespaces: proposal.RequiredNamespaces,
			SessionProperties:  proposal.SessionProperties,
			ScopedProperties:   proposal.ScopedProperties,
			Expiry:             expiry,
			PairingTopic:       proposal.PairingTopic,
		},
	}
	sealedSettle, err := envelope.Seal(shared, settleRequest)
	if err != nil {
		return nil, wrapError(KindDecodeFailure, "seal session settle", err)
	}

	session := &storage.SessionRecord{
		Topic:               sessionTopic,
		SessionSymmetricKey: shared,
		ExpiryUnixSecs:      expiry,
		SelfMetadata:        &c.cfg.SelfMetadata,
		PeerMetadata:        proposal.ProposerMetadata,
		PeerPublicKey:       proposal.ProposerPublicKey,
		ControllerPublicKey: kp.PublicKey(),
		Namespaces:          approvedNamespaces,
		RequiredNamespaces:  proposal.RequiredNamespaces,
		SessionProperties:   proposal.SessionProperties,
		ScopedProperties:    proposal.ScopedProperties,
		IsAcknowledged:      false,
		PairingTopic:        proposal.PairingTopic,
	}
	if err := c.cfg.Store.AddSession(ctx, session); err != nil {
		return nil, wrapError(KindStorageFailure, "add session", err)
	}

	_, rerr := c.cfg.Transport.Request(ctx, "wc_approveSession", ApproveSessionParams{
		PairingTopic:             proposal.PairingTopic,
		SessionTopic:             sessionTopic,
		SessionProposalResponse:  sealedResponse,
		SessionSettlementRequest: sealedSettle,
		Analytics:                &AnalyticsData{CorrelationID: uuid.New().String()},
	})
	if rerr != nil {
		// The session was stored optimistically; undo it since the
		// approve never reached the relay.
		_ = c.cfg.Store.DeleteSession(ctx, sessionTopic)
		return nil, fromRelayError(rerr)
	}

	metrics.PairingsCreated.WithLabelValues("responder").Inc()
	metrics.SessionsSettled.WithLabelValues("approved").Inc()
	metrics.SessionsActive.Inc()

	c.emit(ctx, SessionConnectEvent{RPCID: proposal.ProposalRPCID, Topic: sessionTopic})

	return &Session{
		Topic:               sessionTopic,
		SessionSymmetricKey: shared,
		ExpiryUnixSecs:      expiry,
		PeerPublicKey:       proposal.ProposerPublicKey,
		PairingTopic:        proposal.PairingTopic,
	}, nil
}

// Reject publishes a JSON-RPC error response for proposal under the
// pairing key. Proposal storage is left untouched; the host decides
// whether and when to clean it up.
func (c *Client) Reject(ctx context.Context, proposal *SessionProposal, reason RPCError, meta ...RequestMetadata) error {
	start := time.Now()
	defer func() { metrics.SessionOperationDuration.WithLabelValues("reject").Observe(time.Since(start).Seconds()) }()

	rejectEnvelope := proposalRejectEnvelope{
		ID:      RPCID(proposal.ProposalRPCID),
		JSONRPC: "2.0",
		Error:   reason,
	}
	sealed, err := envelope.Seal(proposal.PairingSymKey, rejectEnvelope)
	if err != nil {
		return wrapError(KindDecodeFailure, "seal proposal rejection", err)
	}

	m := firstMetadata(meta)
	_, rerr := c.cfg.Transport.Request(ctx, "irn_publish", relay.PublishParams{
		Topic:       proposal.PairingTopic,
		Message:     sealed,
		TTL:         proposalRejectTTL,
		Tag:         relay.TagSessionProposalRejection,
		Prompt:      false,
		Attestation: m.attestationPtr(),
	})
	if rerr != nil {
		return fromRelayError(rerr)
	}
	metrics.SessionsSettled.WithLabelValues("rejected").Inc()
	return nil
}

// Respond publishes a sealed reply to an inbound session request.
func (c *Client) Respond(ctx context.Context, topic string, id uint64, result []byte, respErr *RPCError, meta ...RequestMetadata) error {
	session, err := c.cfg.Store.GetSession(ctx, topic)
	if err != nil {
		return wrapError(KindStorageFailure, "get session", err)
	}
	if session == nil {
		return newError(KindInvalidInput, "no session for topic")
	}

	response := SessionRequestJsonRpcResponse{ID: RPCID(id), JSONRPC: "2.0", Result: result, Error: respErr}
	sealed, err := envelope.Seal(session.SessionSymmetricKey, response)
	if err != nil {
		return wrapError(KindDecodeFailure, "seal session request response", err)
	}

	m := firstMetadata(meta)
	_, rerr := c.cfg.Transport.Request(ctx, "irn_publish", relay.PublishParams{
		Topic:       topic,
		Message:     sealed,
		TTL:         sessionRespTTL,
		Tag:         relay.TagSessionRequestResponse,
		Attestation: m.attestationPtr(),
	})
	if rerr != nil {
		return fromRelayError(rerr)
	}
	return nil
}

// Update publishes a wc_sessionUpdate request and, on success, applies
// the same namespaces locally to keep this side's view consistent
// without waiting for an echo.
func (c *Client) Update(ctx context.Context, topic string, namespaces map[string]storage.Namespace, meta ...RequestMetadata) error {
	start := time.Now()
	defer func() { metrics.SessionOperationDuration.WithLabelValues("update").Observe(time.Since(start).Seconds()) }()

	session, err := c.cfg.Store.GetSession(ctx, topic)
	if err != nil {
		return wrapError(KindStorageFailure, "get session", err)
	}
	if session == nil {
		return newError(KindInvalidInput, "no session for topic")
	}

	req := sessionUpdateRequest{
		ID:      RPCID(c.nextRPCID()),
		JSONRPC: "2.0",
		Method:  "wc_sessionUpdate",
		Params:  SettleNamespaces{Namespaces: namespaces},
	}
	sealed, err := envelope.Seal(session.SessionSymmetricKey, req)
	if err != nil {
		return wrapError(KindDecodeFailure, "seal session update", err)
	}

	m := firstMetadata(meta)
	_, rerr := c.cfg.Transport.Request(ctx, "irn_publish", relay.PublishParams{
		Topic:       topic,
		Message:     sealed,
		TTL:         sessionTTLSecs,
		Tag:         relay.TagSessionUpdateRequest,
		Attestation: m.attestationPtr(),
	})
	if rerr != nil {
		return fromRelayError(rerr)
	}

	session.Namespaces = namespaces
	if err := c.cfg.Store.AddSession(ctx, session); err != nil {
		return wrapError(KindStorageFailure, "persist updated session", err)
	}
	return nil
}

// Extend publishes a wc_sessionExtend request, validating the new
// expiry locally first to avoid a round trip the peer would ignore.
func (c *Client) Extend(ctx context.Context, topic string, newExpiry int64, meta ...RequestMetadata) error {
	start := time.Now()
	defer func() { metrics.SessionOperationDuration.WithLabelValues("extend").Observe(time.Since(start).Seconds()) }()

	session, err := c.cfg.Store.GetSession(ctx, topic)
	if err != nil {
		return wrapError(KindStorageFailure, "get session", err)
	}
	if session == nil {
		return newError(KindInvalidInput, "no session for topic")
	}
	maxExpiry := time.Now().Unix() + sessionTTLSecs
	if newExpiry <= session.ExpiryUnixSecs || newExpiry > maxExpiry {
		return newError(KindInvalidInput, "new expiry must be greater than current and at most 7 days from now")
	}

	req := sessionExtendRequest{
		ID:      RPCID(c.nextRPCID()),
		JSONRPC: "2.0",
		Method:  "wc_sessionExtend",
		Params:  SessionExtendParams{Expiry: newExpiry},
	}
	sealed, err := envelope.Seal(session.SessionSymmetricKey, req)
	if err != nil {
		return wrapError(KindDecodeFailure, "seal session extend", err)
	}

	m := firstMetadata(meta)
	_, rerr := c.cfg.Transport.Request(ctx, "irn_publish", relay.PublishParams{
		Topic:       topic,
		Message:     sealed,
		TTL:         sessionTTLSecs,
		Tag:         relay.TagSessionExtendRequest,
		Attestation: m.attestationPtr(),
	})
	if rerr != nil {
		return fromRelayError(rerr)
	}

	session.ExpiryUnixSecs = newExpiry
	if err := c.cfg.Store.AddSession(ctx, session); err != nil {
		return wrapError(KindStorageFailure, "persist extended session", err)
	}
	return nil
}

// Emit publishes a wc_sessionEvent request.
func (c *Client) Emit(ctx context.Context, topic, eventName string, data []byte, chainID string, meta ...RequestMetadata) error {
	start := time.Now()
	defer func() { metrics.SessionOperationDuration.WithLabelValues("emit").Observe(time.Since(start).Seconds()) }()

	session, err := c.cfg.Store.GetSession(ctx, topic)
	if err != nil {
		return wrapError(KindStorageFailure, "get session", err)
	}
	if session == nil {
		return newError(KindInvalidInput, "no session for topic")
	}

	req := sessionEventRequest{
		ID:      RPCID(c.nextRPCID()),
		JSONRPC: "2.0",
		Method:  "wc_sessionEvent",
		Params:  SessionEventParams{Event: EventPayload{Name: eventName, Data: data}, ChainID: chainID},
	}
	metrics.SessionPayloadSize.WithLabelValues("outbound").Observe(float64(len(data)))
	sealed, err := envelope.Seal(session.SessionSymmetricKey, req)
	if err != nil {
		return wrapError(KindDecodeFailure, "seal session event", err)
	}

	m := firstMetadata(meta)
	_, rerr := c.cfg.Transport.Request(ctx, "irn_publish", relay.PublishParams{
		Topic:       topic,
		Message:     sealed,
		TTL:         sessionRespTTL,
		Tag:         relay.TagSessionEventRequest,
		Attestation: m.attestationPtr(),
	})
	if rerr != nil {
		return fromRelayError(rerr)
	}
	return nil
}

// Disconnect publishes a wc_sessionDelete request, then removes the
// session from storage and emits DisconnectEvent.
func (c *Client) Disconnect(ctx context.Context, topic string, meta ...RequestMetadata) error {
	start := time.Now()
	defer func() {
		metrics.SessionOperationDuration.WithLabelValues("disconnect").Observe(time.Since(start).Seconds())
	}()

	session, err := c.cfg.Store.GetSession(ctx, topic)
	if err != nil {
		return wrapError(KindStorageFailure, "get session", err)
	}
	if session == nil {
		return newError(KindInvalidInput, "no session for topic")
	}

	rpcID := c.nextRPCID()
	req := sessionDeleteRequest{
		ID:      RPCID(rpcID),
		JSONRPC: "2.0",
		Method:  "wc_sessionDelete",
		Params:  SessionDeleteParams{Code: 6000, Message: "User disconnected."},
	}
	sealed, err := envelope.Seal(session.SessionSymmetricKey, req)
	if err != nil {
		return wrapError(KindDecodeFailure, "seal session delete", err)
	}

	m := firstMetadata(meta)
	_, rerr := c.cfg.Transport.Request(ctx, "irn_publish", relay.PublishParams{
		Topic:       topic,
		Message:     sealed,
		TTL:         sessionDeleteTTL,
		Tag:         relay.TagSessionDeleteRequest,
		Attestation: m.attestationPtr(),
	})
	if rerr != nil {
		return fromRelayError(rerr)
	}

	if err := c.cfg.Store.DeleteSession(ctx, topic); err != nil {
		return wrapError(KindStorageFailure, "delete session", err)
	}
	metrics.SessionsActive.Dec()
	metrics.SessionsDeleted.WithLabelValues("disconnect").Inc()

	c.emit(ctx, DisconnectEvent{RPCID: rpcID, Topic: topic})
	return nil
}

// Online nudges the relay transport to connect immediately.
func (c *Client) Online() {
	c.cfg.Transport.Online()
}
