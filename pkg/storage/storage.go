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

package storage

import (
	"context"
	"errors"
)

// ErrNotFound is never returned by the capability methods below —
// absence is reported by a nil record and a nil error, so callers
// (principally the inbound dispatcher, which must distinguish "no key
// for this topic" from "storage is broken") don't need to unwrap a
// sentinel on every lookup. It is kept for implementations that want a
// wrapped, identifiable cause inside a Failure.
var ErrNotFound = errors.New("storage: not found")

// Failure wraps any underlying storage error so callers can recognize
// storage-layer failures without inspecting driver-specific types.
type Failure struct {
	Op    string
	Cause error
}

func (f *Failure) Error() string {
	return "storage: " + f.Op + ": " + f.Cause.Error()
}

func (f *Failure) Unwrap() error {
	return f.Cause
}

// Fail wraps cause as a storage Failure for operation op. Returns nil
// if cause is nil.
func Fail(op string, cause error) error {
	if cause == nil {
		return nil
	}
	return &Failure{Op: op, Cause: cause}
}

// Store is the capability object the Sign engine is constructed with.
// Implementations must be safe to call concurrently from the relay
// transport's inbound-decode path and from any number of engine-facing
// caller goroutines, and must provide atomicity per operation; no
// cross-call transactional guarantee is required.
type Store interface {
	// AddSession upserts a session record by its topic.
	AddSession(ctx context.Context, session *SessionRecord) error

	// DeleteSession removes a session by topic. Idempotent: no error
	// if absent. Also drops any JSON-RPC history recorded under the
	// same topic.
	DeleteSession(ctx context.Context, topic string) error

	// GetSession returns the session for topic, or (nil, nil) if none
	// exists.
	GetSession(ctx context.Context, topic string) (*SessionRecord, error)

	// GetAllSessions returns every live session, for re-subscription
	// on reconnect.
	GetAllSessions(ctx context.Context) ([]*SessionRecord, error)

	// GetAllTopics returns the union of live session topics and live
	// pending-pairing topics.
	GetAllTopics(ctx context.Context) ([]string, error)

	// GetDecryptionKeyForTopic returns the 32-byte key that decrypts
	// envelopes on topic — the session key if topic names a settled
	// session, the pairing key if topic names a pending proposal, or
	// (nil, nil) if topic is unknown. Lets the inbound path decode a
	// message without first committing to which variant it is.
	GetDecryptionKeyForTopic(ctx context.Context, topic string) ([]byte, error)

	// SavePairing stores a pending proposal.
	SavePairing(ctx context.Context, topic string, rpcID uint64, pairingSymKey, selfPrivateKey []byte) error

	// GetPairing returns the pending proposal for (topic, rpcID), or
	// (nil, nil) if none exists.
	GetPairing(ctx context.Context, topic string, rpcID uint64) (*ProposalPending, error)

	// DeletePairing removes a pending proposal for (topic, rpcID).
	// Idempotent.
	DeletePairing(ctx context.Context, topic string, rpcID uint64) error

	// SavePartialSession records a session topic and its symmetric
	// key before the settle message arrives, so the proposer's
	// inbound path can already resolve a decryption key for it.
	SavePartialSession(ctx context.Context, topic string, sessionSymKey []byte) error

	// InsertHistory records a new outstanding JSON-RPC exchange.
	InsertHistory(ctx context.Context, entry *JsonRpcHistoryEntry) error

	// GetHistory returns the history entry for (topic, rpcID), or
	// (nil, nil) if none exists. Used to deduplicate retried inbound
	// requests (e.g. wc_sessionEvent) by id.
	GetHistory(ctx context.Context, topic string, rpcID uint64) (*JsonRpcHistoryEntry, error)

	// UpdateHistory attaches a response body to an existing entry.
	UpdateHistory(ctx context.Context, topic string, rpcID uint64, responseBody []byte) error

	// DeleteHistory removes a single history entry. Idempotent.
	DeleteHistory(ctx context.Context, topic string, rpcID uint64) error

	// Close releases any resources held by the store.
	Close() error

	// Ping verifies the store is reachable.
	Ping(ctx context.Context) error
}
