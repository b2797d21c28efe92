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

// Package crypto implements the cryptographic primitives of the Sign
// protocol engine: X25519 key agreement, keccak256 topic derivation,
// ChaCha20-Poly1305 AEAD, and the Ed25519 client-id signing key.
package crypto

import "errors"

var (
	// ErrInvalidKeyLength is returned by constructors when raw key
	// material does not match the expected size for its type.
	ErrInvalidKeyLength = errors.New("crypto: invalid key length")

	// ErrAuthenticationFailed is returned by Decrypt when the AEAD tag
	// does not verify.
	ErrAuthenticationFailed = errors.New("crypto: authentication failed")
)
