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
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/reown-com/sign-go/pkg/storage"
)

func (s *Store) GetAllTopics(ctx context.Context) ([]string, error) {
	query := `
		SELECT topic FROM sign_sessions
		UNION
		SELECT DISTINCT topic FROM sign_pairings
	`
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("postgres: list topics: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var topic string
		if err := rows.Scan(&topic); err != nil {
			return nil, fmt.Errorf("postgres: scan topic: %w", err)
		}
		out = append(out, topic)
	}
	return out, rows.Err()
}

func (s *Store) GetDecryptionKeyForTopic(ctx context.Context, topic string) ([]byte, error) {
	var key []byte
	err := s.pool.QueryRow(ctx, `SELECT session_symmetric_key FROM sign_sessions WHERE topic = $1`, topic).Scan(&key)
	if err == nil {
		return key, nil
	}
	if err != pgx.ErrNoRows {
		return nil, fmt.Errorf("postgres: lookup session key: %w", err)
	}

	err = s.pool.QueryRow(ctx, `SELECT pairing_sym_key FROM sign_pairings WHERE topic = $1 LIMIT 1`, topic).Scan(&key)
	if err == nil {
		return key, nil
	}
	if err != pgx.ErrNoRows {
		return nil, fmt.Errorf("postgres: lookup pairing key: %w", err)
	}

	return nil, nil
}

func (s *Store) SavePairing(ctx context.Context, topic string, rpcID uint64, pairingSymKey, selfPrivateKey []byte) error {
	query := `
		INSERT INTO sign_pairings (topic, rpc_id, pairing_sym_key, self_private_key)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (topic, rpc_id) DO UPDATE SET
			pairing_sym_key = EXCLUDED.pairing_sym_key,
			self_private_key = EXCLUDED.self_private_key
	`
	_, err := s.pool.Exec(ctx, query, topic, int64(rpcID), pairingSymKey, selfPrivateKey)
	if err != nil {
		return fmt.Errorf("postgres: save pairing: %w", err)
	}
	return nil
}

func (s *Store) GetPairing(ctx context.Context, topic string, rpcID uint64) (*storage.ProposalPending, error) {
	query := `SELECT topic, rpc_id, pairing_sym_key, self_private_key FROM sign_pairings WHERE topic = $1 AND rpc_id = $2`

	var p storage.ProposalPending
	var rawID int64
	err := s.pool.QueryRow(ctx, query, topic, int64(rpcID)).Scan(&p.Topic, &rawID, &p.PairingSymKey, &p.SelfPrivateKey)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: get pairing: %w", err)
	}
	p.RPCID = uint64(rawID)
	return &p, nil
}

func (s *Store) DeletePairing(ctx context.Context, topic string, rpcID uint64) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM sign_pairings WHERE topic = $1 AND rpc_id = $2`, topic, int64(rpcID))
	if err != nil {
		return fmt.Errorf("postgres: delete pairing: %w", err)
	}
	return nil
}

func (s *Store) SavePartialSession(ctx context.Context, topic string, sessionSymKey []byte) error {
	query := `
		INSERT INTO sign_sessions (topic, session_symmetric_key, is_acknowledged)
		VALUES ($1,$2,FALSE)
		ON CONFLICT (topic) DO UPDATE SET session_symmetric_key = EXCLUDED.session_symmetric_key
	`
	_, err := s.pool.Exec(ctx, query, topic, sessionSymKey)
	if err != nil {
		return fmt.Errorf("postgres: save partial session: %w", err)
	}
	return nil
}
