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

package relay

import (
	"net/url"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	signcrypto "github.com/reown-com/sign-go/crypto"
)

func TestBuildAuthTokenIsVerifiableEdDSAJWT(t *testing.T) {
	key, err := signcrypto.GenerateClientIDKey()
	require.NoError(t, err)

	token, err := buildAuthToken(key, "wss://relay.walletconnect.org", "test-project")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	var claims relayClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(tok *jwt.Token) (interface{}, error) {
		return key.PublicKey(), nil
	})
	require.NoError(t, err)
	require.True(t, parsed.Valid)

	require.Equal(t, "https://walletconnect.org", claims.Sub)
	require.Equal(t, "wss://relay.walletconnect.org", claims.Aud)
	require.Greater(t, claims.Exp, claims.Iat)
}

func TestConnectURLSetsAuthAndProjectIDQueryParams(t *testing.T) {
	full, err := connectURL("wss://relay.walletconnect.org", "my-project", "token-value")
	require.NoError(t, err)

	u, err := url.Parse(full)
	require.NoError(t, err)
	require.Equal(t, "token-value", u.Query().Get("auth"))
	require.Equal(t, "my-project", u.Query().Get("projectId"))
}

func TestClientIDMultibaseIsDeterministicHex(t *testing.T) {
	key, err := signcrypto.GenerateClientIDKey()
	require.NoError(t, err)

	a := clientIDMultibase(key.PublicKey())
	b := clientIDMultibase(key.PublicKey())
	require.Equal(t, a, b)
	require.Len(t, a, 64) // 32-byte Ed25519 public key, hex-encoded
}
