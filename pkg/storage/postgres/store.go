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

// Package postgres implements storage.Store on top of a PostgreSQL
// database, for hosts that need pairings and sessions to survive a
// process restart.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Config holds PostgreSQL connection configuration.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// Store implements storage.Store backed by a pgxpool.Pool.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore opens a connection pool, pings it, and ensures the schema
// exists.
func NewStore(ctx context.Context, cfg *Config) (*Store, error) {
	connString := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)

	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("postgres: create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping database: %w", err)
	}

	store := &Store{pool: pool}
	if err := store.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return store, nil
}

func (s *Store) ensureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, schemaSQL)
	if err != nil {
		return fmt.Errorf("postgres: ensure schema: %w", err)
	}
	return nil
}

// Close closes the connection pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS sign_sessions (
	topic                  TEXT PRIMARY KEY,
	session_symmetric_key  BYTEA NOT NULL,
	expiry_unix_secs       BIGINT NOT NULL DEFAULT 0,
	self_metadata          JSONB,
	peer_metadata          JSONB,
	peer_public_key        BYTEA,
	controller_public_key  BYTEA,
	namespaces             JSONB,
	required_namespaces    JSONB,
	optional_namespaces    JSONB,
	session_properties     JSONB,
	scoped_properties      JSONB,
	is_acknowledged        BOOLEAN NOT NULL DEFAULT FALSE,
	pairing_topic          TEXT
);

CREATE TABLE IF NOT EXISTS sign_pairings (
	topic            TEXT NOT NULL,
	rpc_id           BIGINT NOT NULL,
	pairing_sym_key  BYTEA NOT NULL,
	self_private_key BYTEA NOT NULL,
	PRIMARY KEY (topic, rpc_id)
);

CREATE TABLE IF NOT EXISTS sign_history (
	topic         TEXT NOT NULL,
	rpc_id        BIGINT NOT NULL,
	method        TEXT,
	request_body  JSONB,
	response_body JSONB,
	PRIMARY KEY (topic, rpc_id)
);
`
