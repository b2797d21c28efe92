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
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveSharedIsSymmetric(t *testing.T) {
	a, err := GenerateKeyPair()
	require.NoError(t, err)
	b, err := GenerateKeyPair()
	require.NoError(t, err)

	sharedA, err := a.DeriveShared(b.PublicKey())
	require.NoError(t, err)
	sharedB, err := b.DeriveShared(a.PublicKey())
	require.NoError(t, err)

	assert.Equal(t, sharedA, sharedB)
	assert.Len(t, sharedA, 32)
}

func TestDeriveSharedRejectsWrongLength(t *testing.T) {
	a, err := GenerateKeyPair()
	require.NoError(t, err)

	_, err = a.DeriveShared([]byte{1, 2, 3})
	assert.ErrorIs(t, err, ErrInvalidKeyLength)
}

func TestTopicOfIsLowercaseHexAndDeterministic(t *testing.T) {
	key := bytes.Repeat([]byte{0xaa}, 32)
	topic, err := TopicOf(key)
	require.NoError(t, err)

	assert.Len(t, topic, 64)
	assert.Equal(t, strings.ToLower(topic), topic)

	// Deterministic across calls.
	topic2, err := TopicOf(key)
	require.NoError(t, err)
	assert.Equal(t, topic, topic2)
}

func TestTopicOfRejectsWrongLength(t *testing.T) {
	_, err := TopicOf([]byte{0x01})
	assert.ErrorIs(t, err, ErrInvalidKeyLength)
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	key := bytes.Repeat([]byte{0x01}, 32)
	plaintext := []byte(`{"method":"wc_sessionPing"}`)

	nonce, ciphertext, err := Encrypt(key, plaintext)
	require.NoError(t, err)
	assert.Len(t, nonce, NonceSize)
	assert.Len(t, ciphertext, len(plaintext)+16)

	got, err := Decrypt(key, nonce, ciphertext)
	require.NoError(t, err)
	assert.Equal(t, plaintext, got)
}

func TestDecryptFailsOnTamperedCiphertext(t *testing.T) {
	key := bytes.Repeat([]byte{0x02}, 32)
	nonce, ciphertext, err := Encrypt(key, []byte("hello"))
	require.NoError(t, err)

	ciphertext[0] ^= 0xff

	_, err = Decrypt(key, nonce, ciphertext)
	assert.ErrorIs(t, err, ErrAuthenticationFailed)
}

func TestClientIDKeySignRoundTrip(t *testing.T) {
	key, err := GenerateClientIDKey()
	require.NoError(t, err)

	msg := []byte("header.claims")
	sig := key.Sign(msg)
	assert.Len(t, sig, 64)

	restored, err := ClientIDKeyFromSeed(key.Seed())
	require.NoError(t, err)
	assert.Equal(t, key.PublicKey(), restored.PublicKey())
}
