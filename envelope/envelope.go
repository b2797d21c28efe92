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

// Package envelope implements the type-0 encrypted envelope carried by
// the relay: a one-byte type tag, a 12-byte AEAD nonce, and the AEAD
// ciphertext, base64-encoded for transport. The envelope is agnostic
// to the JSON-RPC method it carries; sign.Client interprets the
// decoded body.
package envelope

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	signcrypto "github.com/reown-com/sign-go/crypto"
	"github.com/reown-com/sign-go/internal/metrics"
)

// Type0 is the only envelope type this SDK produces or consumes.
const Type0 byte = 0x00

// Seal serializes value as JSON, encrypts it under key with a random
// ChaCha20-Poly1305 nonce, and returns the base64-encoded type-0
// envelope. Fails if value cannot be marshaled to JSON or if
// encryption fails (e.g. key is not 32 bytes).
func Seal(key []byte, value interface{}) (string, error) {
	plaintext, err := json.Marshal(value)
	if err != nil {
		return "", fmt.Errorf("envelope: encode json: %w", err)
	}

	nonce, ciphertext, err := signcrypto.Encrypt(key, plaintext)
	if err != nil {
		return "", fmt.Errorf("envelope: encrypt: %w", err)
	}

	framed := make([]byte, 0, 1+len(nonce)+len(ciphertext))
	framed = append(framed, Type0)
	framed = append(framed, nonce...)
	framed = append(framed, ciphertext...)

	encoded := base64.StdEncoding.EncodeToString(framed)
	metrics.EnvelopeSize.WithLabelValues("outbound").Observe(float64(len(encoded)))
	return encoded, nil
}

// Open reverses Seal: base64-decodes, validates the type-0 framing,
// decrypts under key, and unmarshals the plaintext JSON into out
// (typically a *map[string]interface{} or json.RawMessage holder).
func Open(key []byte, encoded string, out interface{}) error {
	raw, err := Decode(key, encoded)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("envelope: parse plaintext: %w", err)
	}
	return nil
}

// Decode base64-decodes and decrypts encoded, returning the raw JSON
// plaintext without unmarshaling it. Useful when the caller needs to
// branch on shape (presence of "method", "id", "error") before
// deciding which struct to decode into.
func Decode(key []byte, encoded string) ([]byte, error) {
	metrics.EnvelopeSize.WithLabelValues("inbound").Observe(float64(len(encoded)))

	framed, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("envelope: base64 decode: %w", err)
	}

	if len(framed) < 1+signcrypto.NonceSize {
		return nil, fmt.Errorf("envelope: malformed framing: too short")
	}
	if framed[0] != Type0 {
		return nil, fmt.Errorf("envelope: unsupported envelope type %#x", framed[0])
	}

	nonce := framed[1 : 1+signcrypto.NonceSize]
	ciphertext := framed[1+signcrypto.NonceSize:]

	plaintext, err := signcrypto.Decrypt(key, nonce, ciphertext)
	if err != nil {
		return nil, fmt.Errorf("envelope: decrypt: %w", err)
	}
	return plaintext, nil
}
