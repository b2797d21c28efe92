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
	"crypto/ecdh"
	"crypto/rand"
	"fmt"
)

// PublicKeySize and PrivateKeySize are the fixed sizes of X25519 key
// material; both ends of every agreement use exactly this many bytes.
const (
	PublicKeySize  = 32
	PrivateKeySize = 32
)

// KeyPair is an ephemeral X25519 key pair generated per proposal on
// either side of a pairing exchange. It is discarded once the session
// symmetric key has been derived; nothing outside this package ever
// sees the private scalar except the storage layer, which persists it
// as part of a pending proposal.
type KeyPair struct {
	priv *ecdh.PrivateKey
}

// GenerateKeyPair creates a fresh ephemeral X25519 key pair.
func GenerateKeyPair() (*KeyPair, error) {
	priv, err := ecdh.X25519().GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("crypto: generate x25519 key: %w", err)
	}
	return &KeyPair{priv: priv}, nil
}

// KeyPairFromPrivate reconstructs a key pair from raw private key
// bytes, as loaded back from storage. Rejects the wrong length at the
// boundary per the opaque-secret convention.
func KeyPairFromPrivate(raw []byte) (*KeyPair, error) {
	if len(raw) != PrivateKeySize {
		return nil, fmt.Errorf("%w: want %d bytes, got %d", ErrInvalidKeyLength, PrivateKeySize, len(raw))
	}
	priv, err := ecdh.X25519().NewPrivateKey(raw)
	if err != nil {
		return nil, fmt.Errorf("crypto: parse x25519 private key: %w", err)
	}
	return &KeyPair{priv: priv}, nil
}

// PublicKey returns the 32-byte public key of the pair.
func (kp *KeyPair) PublicKey() []byte {
	return kp.priv.PublicKey().Bytes()
}

// PrivateKey returns the 32-byte private scalar. Callers outside the
// storage layer should not need this; it exists so pending proposals
// can be persisted and reloaded.
func (kp *KeyPair) PrivateKey() []byte {
	return kp.priv.Bytes()
}

// DeriveShared performs the X25519 scalar multiplication between this
// pair's private key and a peer's public key, returning the 32-byte
// shared secret. Deterministic: DeriveShared(A.priv, B.pub) equals
// DeriveShared(B.priv, A.pub).
func (kp *KeyPair) DeriveShared(peerPublic []byte) ([]byte, error) {
	return DeriveShared(kp.priv.Bytes(), peerPublic)
}

// DeriveShared computes the X25519 shared secret directly from raw
// private and peer-public key bytes, without requiring a constructed
// KeyPair. Used when the private scalar has just been loaded from
// storage as part of a ProposalPending record.
func DeriveShared(selfPrivate, peerPublic []byte) ([]byte, error) {
	if len(selfPrivate) != PrivateKeySize {
		return nil, fmt.Errorf("%w: self private key", ErrInvalidKeyLength)
	}
	if len(peerPublic) != PublicKeySize {
		return nil, fmt.Errorf("%w: peer public key", ErrInvalidKeyLength)
	}

	priv, err := ecdh.X25519().NewPrivateKey(selfPrivate)
	if err != nil {
		return nil, fmt.Errorf("crypto: parse private key: %w", err)
	}
	pub, err := ecdh.X25519().NewPublicKey(peerPublic)
	if err != nil {
		return nil, fmt.Errorf("crypto: parse peer public key: %w", err)
	}

	shared, err := priv.ECDH(pub)
	if err != nil {
		return nil, fmt.Errorf("crypto: ecdh: %w", err)
	}
	return shared, nil
}
