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

// Package memory implements storage.Store entirely in-process, for
// tests and for hosts that accept losing pairing/session state across
// restarts.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/reown-com/sign-go/pkg/storage"
)

type pairingKey struct {
	topic string
	rpcID uint64
}

// Store implements storage.Store with mutex-guarded maps.
type Store struct {
	mu sync.RWMutex

	sessions  map[string]*storage.SessionRecord
	pairings  map[pairingKey]*storage.ProposalPending
	pairTopic map[string][]byte // topic -> pairing symmetric key, for fast decryption-key lookup
	history   map[pairingKey]*storage.JsonRpcHistoryEntry
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		sessions:  make(map[string]*storage.SessionRecord),
		pairings:  make(map[pairingKey]*storage.ProposalPending),
		pairTopic: make(map[string][]byte),
		history:   make(map[pairingKey]*storage.JsonRpcHistoryEntry),
	}
}

func (s *Store) AddSession(ctx context.Context, session *storage.SessionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *session
	s.sessions[session.Topic] = &cp
	return nil
}

func (s *Store) DeleteSession(ctx context.Context, topic string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, topic)
	for k := range s.history {
		if k.topic == topic {
			delete(s.history, k)
		}
	}
	return nil
}

func (s *Store) GetSession(ctx context.Context, topic string) (*storage.SessionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[topic]
	if !ok {
		return nil, nil
	}
	cp := *session
	return &cp, nil
}

func (s *Store) GetAllSessions(ctx context.Context) ([]*storage.SessionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*storage.SessionRecord, 0, len(s.sessions))
	for _, session := range s.sessions {
		cp := *session
		out = append(out, &cp)
	}
	return out, nil
}

func (s *Store) GetAllTopics(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{}, len(s.sessions)+len(s.pairTopic))
	out := make([]string, 0, len(s.sessions)+len(s.pairTopic))
	for topic := range s.sessions {
		if _, ok := seen[topic]; !ok {
			seen[topic] = struct{}{}
			out = append(out, topic)
		}
	}
	for topic := range s.pairTopic {
		if _, ok := seen[topic]; !ok {
			seen[topic] = struct{}{}
			out = append(out, topic)
		}
	}
	return out, nil
}

func (s *Store) GetDecryptionKeyForTopic(ctx context.Context, topic string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if session, ok := s.sessions[topic]; ok {
		return session.SessionSymmetricKey, nil
	}
	if key, ok := s.pairTopic[topic]; ok {
		return key, nil
	}
	return nil, nil
}

func (s *Store) SavePairing(ctx context.Context, topic string, rpcID uint64, pairingSymKey, selfPrivateKey []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pairings[pairingKey{topic, rpcID}] = &storage.ProposalPending{
		Topic:          topic,
		RPCID:          rpcID,
		PairingSymKey:  append([]byte(nil), pairingSymKey...),
		SelfPrivateKey: append([]byte(nil), selfPrivateKey...),
	}
	s.pairTopic[topic] = append([]byte(nil), pairingSymKey...)
	return nil
}

func (s *Store) GetPairing(ctx context.Context, topic string, rpcID uint64) (*storage.ProposalPending, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.pairings[pairingKey{topic, rpcID}]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (s *Store) DeletePairing(ctx context.Context, topic string, rpcID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.pairings, pairingKey{topic, rpcID})

	stillPending := false
	for k := range s.pairings {
		if k.topic == topic {
			stillPending = true
			break
		}
	}
	if !stillPending {
		delete(s.pairTopic, topic)
	}
	return nil
}

func (s *Store) SavePartialSession(ctx context.Context, topic string, sessionSymKey []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[topic] = &storage.SessionRecord{
		Topic:               topic,
		SessionSymmetricKey: append([]byte(nil), sessionSymKey...),
		IsAcknowledged:      false,
	}
	return nil
}

func (s *Store) InsertHistory(ctx context.Context, entry *storage.JsonRpcHistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *entry
	s.history[pairingKey{entry.Topic, entry.RPCID}] = &cp
	return nil
}

func (s *Store) GetHistory(ctx context.Context, topic string, rpcID uint64) (*storage.JsonRpcHistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.history[pairingKey{topic, rpcID}]
	if !ok {
		return nil, nil
	}
	cp := *entry
	return &cp, nil
}

func (s *Store) UpdateHistory(ctx context.Context, topic string, rpcID uint64, responseBody []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.history[pairingKey{topic, rpcID}]
	if !ok {
		return fmt.Errorf("storage: history entry not found for topic %s id %d", topic, rpcID)
	}
	entry.ResponseBody = append([]byte(nil), responseBody...)
	return nil
}

func (s *Store) DeleteHistory(ctx context.Context, topic string, rpcID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.history, pairingKey{topic, rpcID})
	return nil
}

// Close is a no-op for the in-memory store.
func (s *Store) Close() error { return nil }

// Ping always succeeds for the in-memory store.
func (s *Store) Ping(ctx context.Context) error { return nil }

var _ storage.Store = (*Store)(nil)
