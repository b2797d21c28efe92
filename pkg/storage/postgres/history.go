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

func (s *Store) InsertHistory(ctx context.Context, entry *storage.JsonRpcHistoryEntry) error {
	query := `
		INSERT INTO sign_history (topic, rpc_id, method, request_body, response_body)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (topic, rpc_id) DO NOTHING
	`
	_, err := s.pool.Exec(ctx, query, entry.Topic, int64(entry.RPCID), entry.Method, entry.RequestBody, entry.ResponseBody)
	if err != nil {
		return fmt.Errorf("postgres: insert history: %w", err)
	}
	return nil
}

func (s *Store) GetHistory(ctx context.Context, topic string, rpcID uint64) (*storage.JsonRpcHistoryEntry, error) {
	query := `SELECT topic, rpc_id, method, request_body, response_body FROM sign_history WHERE topic = $1 AND rpc_id = $2`

	var entry storage.JsonRpcHistoryEntry
	var rawID int64
	err := s.pool.QueryRow(ctx, query, topic, int64(rpcID)).Scan(&entry.Topic, &rawID, &entry.Method, &entry.RequestBody, &entry.ResponseBody)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: get history: %w", err)
	}
	entry.RPCID = uint64(rawID)
	return &entry, nil
}

func (s *Store) UpdateHistory(ctx context.Context, topic string, rpcID uint64, responseBody []byte) error {
	query := `UPDATE sign_history SET response_body = $1 WHERE topic = $2 AND rpc_id = $3`
	result, err := s.pool.Exec(ctx, query, responseBody, topic, int64(rpcID))
	if err != nil {
		return fmt.Errorf("postgres: update history: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("postgres: history entry not found for topic %s id %d", topic, rpcID)
	}
	return nil
}

func (s *Store) DeleteHistory(ctx context.Context, topic string, rpcID uint64) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM sign_history WHERE topic = $1 AND rpc_id = $2`, topic, int64(rpcID))
	if err != nil {
		return fmt.Errorf("postgres: delete history: %w", err)
	}
	return nil
}

var _ storage.Store = (*Store)(nil)
