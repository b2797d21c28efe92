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

package crypto

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
)

// ClientIDKey is the long-lived Ed25519 key a client uses exclusively
// to sign relay auth JWTs. Created once per client install and
// persisted out-of-band by the host; this package never writes it to
// disk itself.
type ClientIDKey struct {
	priv ed25519.PrivateKey
}

// GenerateClientIDKey creates a new Ed25519 client-id key.
func GenerateClientIDKey() (*ClientIDKey, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("crypto: generate client-id key: %w", err)
	}
	_ = pub
	return &ClientIDKey{priv: priv}, nil
}

// ClientIDKeyFromSeed reconstructs a client-id key from its 32-byte
// seed, as persisted by the host between runs.
func ClientIDKeyFromSeed(seed []byte) (*ClientIDKey, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("%w: want %d bytes, got %d", ErrInvalidKeyLength, ed25519.SeedSize, len(seed))
	}
	return &ClientIDKey{priv: ed25519.NewKeyFromSeed(seed)}, nil
}

// Seed returns the 32-byte seed the host should persist.
func (k *ClientIDKey) Seed() []byte {
	return k.priv.Seed()
}

// PublicKey returns the 32-byte Ed25519 public key.
func (k *ClientIDKey) PublicKey() ed25519.PublicKey {
	return k.priv.Public().(ed25519.PublicKey)
}

// Sign signs message with the client-id private key.
func (k *ClientIDKey) Sign(message []byte) []byte {
	return ed25519.Sign(k.priv, message)
}

// Raw returns the 64-byte Ed25519 private key, for use with APIs
// (such as golang-jwt's EdDSA signer) that expect the expanded form
// rather than the 32-byte seed.
func (k *ClientIDKey) Raw() ed25519.PrivateKey {
	return k.priv
}
