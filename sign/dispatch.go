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
	"encoding/hex"
	"encoding/json"
	"time"

	signcrypto "github.com/reown-com/sign-go/crypto"
	"github.com/reown-com/sign-go/envelope"
	"github.com/reown-com/sign-go/internal/logger"
	"github.com/reown-com/sign-go/internal/metrics"
	"github.com/reown-com/sign-go/pkg/storage"
	"github.com/reown-com/sign-go/relay"
)

// outcome governs whether an irn_subscription frame is acknowledged.
// Internal suppresses the ack so the relay redelivers the message —
// the at-least-once delivery invariant this package must preserve.
type outcome int

const (
	outcomeOk outcome = iota
	outcomeDropped
	outcomeInternal
)

// dispatchLoop drains the transport's inbound channel until ctx is
// cancelled, decrypting and routing each envelope before acking it.
func (c *Client) dispatchLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-c.cfg.Transport.Inbound():
			start := time.Now()
			result := c.handleInbound(ctx, msg)
			metrics.EnvelopeProcessingDuration.Observe(time.Since(start).Seconds())
			if result != outcomeInternal {
				c.cfg.Transport.Ack(msg.ID)
				metrics.EnvelopesAcked.Inc()
			}
		}
	}
}

func (c *Client) handleInbound(ctx context.Context, msg relay.InboundMessage) outcome {
	key, err := c.cfg.Store.GetDecryptionKeyForTopic(ctx, msg.Topic)
	if err != nil {
		c.log.Error("storage failure resolving decryption key", logger.Topic(msg.Topic), logger.Error(err))
		metrics.EnvelopesProcessed.WithLabelValues("unknown", "internal").Inc()
		return outcomeInternal
	}
	if key == nil {
		c.log.Warn("dropping envelope on unknown topic", logger.Topic(msg.Topic))
		metrics.EnvelopesProcessed.WithLabelValues("unknown", "dropped").Inc()
		return outcomeDropped
	}

	plaintext, err := envelope.Decode(key, msg.Message)
	if err != nil {
		c.log.Warn("dropping malformed envelope", logger.Topic(msg.Topic), logger.Error(err))
		metrics.EnvelopesProcessed.WithLabelValues("unknown", "dropped").Inc()
		return outcomeDropped
	}

	var body inboundBody
	if err := json.Unmarshal(plaintext, &body); err != nil {
		c.log.Warn("dropping envelope with non-JSON plaintext", logger.Topic(msg.Topic), logger.Error(err))
		metrics.EnvelopesProcessed.WithLabelValues("unknown", "dropped").Inc()
		return outcomeDropped
	}

	if body.Method != "" {
		return c.handleMethod(ctx, msg, key, body)
	}
	return c.handleResponse(ctx, msg, key, body)
}

func (c *Client) handleMethod(ctx context.Context, msg relay.InboundMessage, sessionKey []byte, body inboundBody) outcome {
	method := body.Method
	var id uint64
	if body.ID != nil {
		id = uint64(*body.ID)
	}

	switch method {
	case "wc_sessionSettle":
		var params SessionSettleParams
		if err := json.Unmarshal(body.Params, &params); err != nil {
			c.log.Warn("malformed wc_sessionSettle params", logger.Error(err))
			metrics.EnvelopesProcessed.WithLabelValues(method, "dropped").Inc()
			return outcomeDropped
		}
		peerPub, err := hex.DecodeString(params.Controller.PublicKey)
		if err != nil {
			c.log.Warn("malformed wc_sessionSettle controller key", logger.Error(err))
			metrics.EnvelopesProcessed.WithLabelValues(method, "dropped").Inc()
			return outcomeDropped
		}
		session := &storage.SessionRecord{
			Topic:               msg.Topic,
			SessionSymmetricKey: sessionKey,
			ExpiryUnixSecs:      params.Expiry,
			PeerPublicKey:       peerPub,
			ControllerPublicKey: peerPub,
			Namespaces:          params.Namespaces,
			RequiredNamespaces:  params.RequiredNamespaces,
			SessionProperties:   params.SessionProperties,
			ScopedProperties:    params.ScopedProperties,
			IsAcknowledged:      true,
			PairingTopic:        params.PairingTopic,
		}
		if err := c.cfg.Store.AddSession(ctx, session); err != nil {
			c.log.Error("storage failure persisting settled session", logger.Error(err))
			metrics.EnvelopesProcessed.WithLabelValues(method, "internal").Inc()
			return outcomeInternal
		}
		metrics.SessionsSettled.WithLabelValues("approved").Inc()
		metrics.SessionsActive.Inc()
		c.emit(ctx, SessionConnectEvent{RPCID: id, Topic: msg.Topic})

	case "wc_sessionRequest":
		session, err := c.cfg.Store.GetSession(ctx, msg.Topic)
		if err != nil {
			metrics.EnvelopesProcessed.WithLabelValues(method, "internal").Inc()
			return outcomeInternal
		}
		if session == nil {
			// Open question ii: a session request on a topic with no
			// live session (pairing-only key) is dropped and logged.
			c.log.Warn("dropping wc_sessionRequest on pairing-only topic", logger.Topic(msg.Topic))
			metrics.EnvelopesProcessed.WithLabelValues(method, "dropped").Inc()
			return outcomeDropped
		}
		var params SessionRequestParams
		if err := json.Unmarshal(body.Params, &params); err != nil {
			c.log.Warn("malformed wc_sessionRequest params", logger.Error(err))
			metrics.EnvelopesProcessed.WithLabelValues(method, "dropped").Inc()
			return outcomeDropped
		}
		c.emit(ctx, SessionRequestEvent{Request: SessionRequestJsonRpc{
			ID:      id,
			Topic:   msg.Topic,
			ChainID: params.ChainID,
			Method:  params.Request.Method,
			Params:  params.Request.Params,
		}})

	case "wc_sessionUpdate":
		session, err := c.cfg.Store.GetSession(ctx, msg.Topic)
		if err != nil {
			metrics.EnvelopesProcessed.WithLabelValues(method, "internal").Inc()
			return outcomeInternal
		}
		if session == nil {
			c.log.Warn("dropping wc_sessionUpdate for unknown session", logger.Topic(msg.Topic))
			metrics.EnvelopesProcessed.WithLabelValues(method, "dropped").Inc()
			return outcomeDropped
		}
		var params SettleNamespaces
		if err := json.Unmarshal(body.Params, &params); err != nil {
			c.log.Warn("malformed wc_sessionUpdate params", logger.Error(err))
			metrics.EnvelopesProcessed.WithLabelValues(method, "dropped").Inc()
			return outcomeDropped
		}
		session.Namespaces = params.Namespaces
		if err := c.cfg.Store.AddSession(ctx, session); err != nil {
			metrics.EnvelopesProcessed.WithLabelValues(method, "internal").Inc()
			return outcomeInternal
		}
		c.emit(ctx, SessionUpdateEvent{RPCID: id, Topic: msg.Topic, Namespaces: params.Namespaces})

	case "wc_sessionExtend":
		session, err := c.cfg.Store.GetSession(ctx, msg.Topic)
		if err != nil {
			metrics.EnvelopesProcessed.WithLabelValues(method, "internal").Inc()
			return outcomeInternal
		}
		if session == nil {
			c.log.Warn("dropping wc_sessionExtend for unknown session", logger.Topic(msg.Topic))
			metrics.EnvelopesProcessed.WithLabelValues(method, "dropped").Inc()
			return outcomeDropped
		}
		var params SessionExtendParams
		if err := json.Unmarshal(body.Params, &params); err != nil {
			c.log.Warn("malformed wc_sessionExtend params", logger.Error(err))
			metrics.EnvelopesProcessed.WithLabelValues(method, "dropped").Inc()
			return outcomeDropped
		}
		maxExpiry := time.Now().Unix() + sessionTTLSecs
		if params.Expiry <= session.ExpiryUnixSecs || params.Expiry > maxExpiry {
			c.log.Warn("rejecting wc_sessionExtend outside valid range", logger.Topic(msg.Topic))
			metrics.EnvelopesProcessed.WithLabelValues(method, "dropped").Inc()
			return outcomeDropped
		}
		session.ExpiryUnixSecs = params.Expiry
		if err := c.cfg.Store.AddSession(ctx, session); err != nil {
			metrics.EnvelopesProcessed.WithLabelValues(method, "internal").Inc()
			return outcomeInternal
		}
		c.emit(ctx, SessionExtendEvent{RPCID: id, Topic: msg.Topic})

	case "wc_sessionEvent":
		existing, err := c.cfg.Store.GetHistory(ctx, msg.Topic, id)
		if err != nil {
			metrics.EnvelopesProcessed.WithLabelValues(method, "internal").Inc()
			return outcomeInternal
		}
		if existing != nil {
			// Already handled; ack without re-emitting.
			metrics.EnvelopesProcessed.WithLabelValues(method, "ok").Inc()
			return outcomeOk
		}
		var params SessionEventParams
		if err := json.Unmarshal(body.Params, &params); err != nil {
			c.log.Warn("malformed wc_sessionEvent params", logger.Error(err))
			metrics.EnvelopesProcessed.WithLabelValues(method, "dropped").Inc()
			return outcomeDropped
		}
		metrics.SessionPayloadSize.WithLabelValues("inbound").Observe(float64(len(params.Event.Data)))
		if err := c.cfg.Store.InsertHistory(ctx, &storage.JsonRpcHistoryEntry{
			RPCID:       id,
			Topic:       msg.Topic,
			Method:      method,
			RequestBody: body.Params,
		}); err != nil {
			metrics.EnvelopesProcessed.WithLabelValues(method, "internal").Inc()
			return outcomeInternal
		}
		c.emit(ctx, SessionEventEvent{Topic: msg.Topic, Name: params.Event.Name, Data: params.Event.Data, ChainID: params.ChainID})

	case "wc_sessionPing":
		// ACK only; no event.

	case "wc_sessionDelete":
		if err := c.cfg.Store.DeleteSession(ctx, msg.Topic); err != nil {
			metrics.EnvelopesProcessed.WithLabelValues(method, "internal").Inc()
			return outcomeInternal
		}
		metrics.SessionsActive.Dec()
		metrics.SessionsDeleted.WithLabelValues("disconnect").Inc()
		c.emit(ctx, DisconnectEvent{RPCID: id, Topic: msg.Topic})

	default:
		c.log.Warn("unknown inbound method", logger.String("method", method), logger.Topic(msg.Topic))
	}

	metrics.EnvelopesProcessed.WithLabelValues(method, "ok").Inc()
	return outcomeOk
}

func (c *Client) handleResponse(ctx context.Context, msg relay.InboundMessage, pairingKeyOrSessionKey []byte, body inboundBody) outcome {
	if body.ID == nil {
		c.log.Warn("dropping response envelope with no id", logger.Topic(msg.Topic))
		metrics.EnvelopesProcessed.WithLabelValues("response", "dropped").Inc()
		return outcomeDropped
	}
	id := uint64(*body.ID)

	pending, err := c.cfg.Store.GetPairing(ctx, msg.Topic, id)
	if err != nil {
		metrics.EnvelopesProcessed.WithLabelValues("response", "internal").Inc()
		return outcomeInternal
	}
	if pending != nil {
		return c.handleProposalResponse(ctx, msg, id, pending, body)
	}

	if msg.Tag == relay.TagSessionRequestResponse {
		response := SessionRequestJsonRpcResponse{ID: RPCID(id), JSONRPC: "2.0", Result: body.Result, Error: body.Error}
		c.emit(ctx, SessionRequestResponseEvent{RPCID: id, Topic: msg.Topic, Response: response})
		metrics.EnvelopesProcessed.WithLabelValues("response", "ok").Inc()
		return outcomeOk
	}

	c.log.Warn("dropping unrouteable response envelope", logger.Topic(msg.Topic), logger.Int("tag", msg.Tag))
	metrics.EnvelopesProcessed.WithLabelValues("response", "dropped").Inc()
	return outcomeDropped
}

func (c *Client) handleProposalResponse(ctx context.Context, msg relay.InboundMessage, id uint64, pending *storage.ProposalPending, body inboundBody) outcome {
	if err := c.cfg.Store.DeletePairing(ctx, msg.Topic, id); err != nil {
		metrics.EnvelopesProcessed.WithLabelValues("response", "internal").Inc()
		return outcomeInternal
	}

	if body.Error != nil {
		c.emit(ctx, SessionRejectEvent{RPCID: id, Topic: msg.Topic})
		metrics.SessionsSettled.WithLabelValues("rejected").Inc()
		metrics.EnvelopesProcessed.WithLabelValues("response", "ok").Inc()
		return outcomeOk
	}

	var result ProposalResponseResult
	if err := json.Unmarshal(body.Result, &result); err != nil {
		c.log.Warn("malformed proposal response result", logger.Error(err))
		metrics.EnvelopesProcessed.WithLabelValues("response", "dropped").Inc()
		return outcomeDropped
	}
	responderPub, err := hex.DecodeString(result.ResponderPublicKey)
	if err != nil {
		c.log.Warn("malformed responder public key", logger.Error(err))
		metrics.EnvelopesProcessed.WithLabelValues("response", "dropped").Inc()
		return outcomeDropped
	}

	shared, err := signcrypto.DeriveShared(pending.SelfPrivateKey, responderPub)
	if err != nil {
		c.log.Error("failed deriving session secret from proposal response", logger.Error(err))
		metrics.EnvelopesProcessed.WithLabelValues("response", "internal").Inc()
		return outcomeInternal
	}
	sessionTopic, err := signcrypto.TopicOf(shared)
	if err != nil {
		metrics.EnvelopesProcessed.WithLabelValues("response", "internal").Inc()
		return outcomeInternal
	}

	if err := c.cfg.Store.SavePartialSession(ctx, sessionTopic, shared); err != nil {
		metrics.EnvelopesProcessed.WithLabelValues("response", "internal").Inc()
		return outcomeInternal
	}

	if _, err := c.cfg.Transport.RequestPriority(ctx, "irn_batchSubscribe", relay.BatchSubscribeParams{Topics: []string{sessionTopic}}); err != nil {
		c.log.Warn("priority resubscribe for new session topic failed", logger.Topic(sessionTopic), logger.Error(err))
	}

	metrics.EnvelopesProcessed.WithLabelValues("response", "ok").Inc()
	return outcomeOk
}
