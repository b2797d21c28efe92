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

package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/reown-com/sign-go/pkg/storage"
)

func (s *Store) AddSession(ctx context.Context, session *storage.SessionRecord) error {
	selfMeta, err := json.Marshal(session.SelfMetadata)
	if err != nil {
		return fmt.Errorf("postgres: marshal self_metadata: %w", err)
	}
	peerMeta, err := json.Marshal(session.PeerMetadata)
	if err != nil {
		return fmt.Errorf("postgres: marshal peer_metadata: %w", err)
	}
	namespaces, err := json.Marshal(session.Namespaces)
	if err != nil {
		return fmt.Errorf("postgres: marshal namespaces: %w", err)
	}
	required, err := json.Marshal(session.RequiredNamespaces)
	if err != nil {
		return fmt.Errorf("postgres: marshal required_namespaces: %w", err)
	}
	optional, err := json.Marshal(session.OptionalNamespaces)
	if err != nil {
		return fmt.Errorf("postgres: marshal optional_namespaces: %w", err)
	}
	sessionProps, err := json.Marshal(session.SessionProperties)
	if err != nil {
		return fmt.Errorf("postgres: marshal session_properties: %w", err)
	}
	scopedProps, err := json.Marshal(session.ScopedProperties)
	if err != nil {
		return fmt.Errorf("postgres: marshal scoped_properties: %w", err)
	}

	query := `
		INSERT INTO sign_sessions (
			topic, session_symmetric_key, expiry_unix_secs, self_metadata, peer_metadata,
			peer_public_key, controller_public_key, namespaces, required_namespaces,
			optional_namespaces, session_properties, scoped_properties, is_acknowledged, pairing_topic
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
		ON CONFLICT (topic) DO UPDATE SET
			session_symmetric_key = EXCLUDED.session_symmetric_key,
			expiry_unix_secs = EXCLUDED.expiry_unix_secs,
			self_metadata = EXCLUDED.self_metadata,
			peer_metadata = EXCLUDED.peer_metadata,
			peer_public_key = EXCLUDED.peer_public_key,
			controller_public_key = EXCLUDED.controller_public_key,
			namespaces = EXCLUDED.namespaces,
			required_namespaces = EXCLUDED.required_namespaces,
			optional_namespaces = EXCLUDED.optional_namespaces,
			session_properties = EXCLUDED.session_properties,
			scoped_properties = EXCLUDED.scoped_properties,
			is_acknowledged = EXCLUDED.is_acknowledged,
			pairing_topic = EXCLUDED.pairing_topic
	`

	_, err = s.pool.Exec(ctx, query,
		session.Topic, session.SessionSymmetricKey, session.ExpiryUnixSecs, selfMeta, peerMeta,
		session.PeerPublicKey, session.ControllerPublicKey, namespaces, required,
		optional, sessionProps, scopedProps, session.IsAcknowledged, session.PairingTopic,
	)
	if err != nil {
		return fmt.Errorf("postgres: upsert session: %w", err)
	}
	return nil
}

func (s *Store) DeleteSession(ctx context.Context, topic string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM sign_sessions WHERE topic = $1`, topic); err != nil {
		return fmt.Errorf("postgres: delete session: %w", err)
	}
	if _, err := s.pool.Exec(ctx, `DELETE FROM sign_history WHERE topic = $1`, topic); err != nil {
		return fmt.Errorf("postgres: delete session history: %w", err)
	}
	return nil
}

func (s *Store) GetSession(ctx context.Context, topic string) (*storage.SessionRecord, error) {
	query := `
		SELECT topic, session_symmetric_key, expiry_unix_secs, self_metadata, peer_metadata,
			peer_public_key, controller_public_key, namespaces, required_namespaces,
			optional_namespaces, session_properties, scoped_properties, is_acknowledged, pairing_topic
		FROM sign_sessions WHERE topic = $1
	`
	row := s.pool.QueryRow(ctx, query, topic)
	session, err := scanSession(row)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: get session: %w", err)
	}
	return session, nil
}

func (s *Store) GetAllSessions(ctx context.Context) ([]*storage.SessionRecord, error) {
	query := `
		SELECT topic, session_symmetric_key, expiry_unix_secs, self_metadata, peer_metadata,
			peer_public_key, controller_public_key, namespaces, required_namespaces,
			optional_namespaces, session_properties, scoped_properties, is_acknowledged, pairing_topic
		FROM sign_sessions
	`
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("postgres: list sessions: %w", err)
	}
	defer rows.Close()

	var out []*storage.SessionRecord
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan session: %w", err)
		}
		out = append(out, session)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*storage.SessionRecord, error) {
	var session storage.SessionRecord
	var selfMeta, peerMeta, namespaces, required, optional, sessionProps, scopedProps []byte

	err := row.Scan(
		&session.Topic, &session.SessionSymmetricKey, &session.ExpiryUnixSecs, &selfMeta, &peerMeta,
		&session.PeerPublicKey, &session.ControllerPublicKey, &namespaces, &required,
		&optional, &sessionProps, &scopedProps, &session.IsAcknowledged, &session.PairingTopic,
	)
	if err != nil {
		return nil, err
	}

	for _, pair := range []struct {
		raw []byte
		out any
	}{
		{selfMeta, &session.SelfMetadata},
		{peerMeta, &session.PeerMetadata},
		{namespaces, &session.Namespaces},
		{required, &session.RequiredNamespaces},
		{optional, &session.OptionalNamespaces},
		{sessionProps, &session.SessionProperties},
		{scopedProps, &session.ScopedProperties},
	} {
		if pair.raw == nil {
			continue
		}
		if err := json.Unmarshal(pair.raw, pair.out); err != nil {
			return nil, fmt.Errorf("unmarshal session field: %w", err)
		}
	}

	return &session, nil
}
