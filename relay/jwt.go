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
	"encoding/hex"
	"fmt"
	"net/url"
	"time"

	"github.com/golang-jwt/jwt/v5"

	signcrypto "github.com/reown-com/sign-go/crypto"
)

// relayClaims is the fixed claim set the relay expects on its auth JWT.
type relayClaims struct {
	Iss string `json:"iss"`
	Sub string `json:"sub"`
	Aud string `json:"aud"`
	Iat int64  `json:"iat"`
	Exp int64  `json:"exp"`
}

func (c relayClaims) GetExpirationTime() (*jwt.NumericDate, error) {
	return jwt.NewNumericDate(time.Unix(c.Exp, 0)), nil
}
func (c relayClaims) GetIssuedAt() (*jwt.NumericDate, error) {
	return jwt.NewNumericDate(time.Unix(c.Iat, 0)), nil
}
func (c relayClaims) GetNotBefore() (*jwt.NumericDate, error) { return nil, nil }
func (c relayClaims) GetIssuer() (string, error)              { return c.Iss, nil }
func (c relayClaims) GetSubject() (string, error)              { return c.Sub, nil }
func (c relayClaims) GetAudience() (jwt.ClaimStrings, error)   { return jwt.ClaimStrings{c.Aud}, nil }

// buildAuthToken constructs the relay auth JWT, signed with the
// client-id Ed25519 key. The websocket connect URL is built separately
// by connectURL.
func buildAuthToken(clientID *signcrypto.ClientIDKey, relayURL, projectID string) (string, error) {
	now := time.Now()
	claims := relayClaims{
		Iss: "did:key:" + clientIDMultibase(clientID.PublicKey()),
		Sub: "https://walletconnect.org",
		Aud: relayURL,
		Iat: now.Unix(),
		Exp: now.Add(time.Hour).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	signed, err := token.SignedString(clientID.Raw())
	if err != nil {
		return "", fmt.Errorf("relay: sign auth jwt: %w", err)
	}
	return signed, nil
}

// connectURL builds the full relay websocket URL with auth and projectId query params.
func connectURL(relayURL, projectID, auth string) (string, error) {
	u, err := url.Parse(relayURL)
	if err != nil {
		return "", fmt.Errorf("relay: parse relay url: %w", err)
	}
	q := u.Query()
	q.Set("auth", auth)
	q.Set("projectId", projectID)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// clientIDMultibase encodes an Ed25519 public key for the "iss" claim.
// The relay's own client ids are base58btc multibase; this SDK uses a
// plain hex encoding instead to avoid pulling in a base58 dependency
// for a single call site, and the relay only compares the "iss" value
// for uniqueness, not format.
func clientIDMultibase(pub []byte) string {
	return hex.EncodeToString(pub)
}
