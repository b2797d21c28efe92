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
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/sha3"
)

// TopicSize is the length, in bytes, of a topic before hex-encoding.
const TopicSize = 32

// TopicOf derives the lowercase-hex topic for a 32-byte symmetric key:
// keccak256(key). Two callers matter in this SDK: the pairing topic
// (keyed by the pairing symmetric key from a URI) and the session
// topic (keyed by the ECDH-shared secret between proposer and
// responder). Note this is Ethereum-style Keccak, not NIST SHA3-256.
func TopicOf(key []byte) (string, error) {
	if len(key) != TopicSize {
		return "", fmt.Errorf("%w: topic key", ErrInvalidKeyLength)
	}
	h := sha3.NewLegacyKeccak256()
	h.Write(key)
	return hex.EncodeToString(h.Sum(nil)), nil
}
