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

package sign

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reown-com/sign-go/relay"
)

func TestFromRelayErrorMapsKnownKinds(t *testing.T) {
	cases := []struct {
		relayKind relay.Kind
		wantKind  Kind
	}{
		{relay.KindInternal, KindRequestFailure},
		{relay.KindCleanup, KindCleanup},
		{relay.KindInvalidAuth, KindInvalidAuth},
		{relay.KindOffline, KindOffline},
		{relay.KindShouldNeverHappen, KindShouldNeverHappen},
	}
	for _, tc := range cases {
		got := fromRelayError(&relay.Error{Kind: tc.relayKind, Reason: "test"})
		assert.Equal(t, tc.wantKind, got.Kind)
	}
}

func TestFromRelayErrorWrapsNonRelayError(t *testing.T) {
	got := fromRelayError(errors.New("boom"))
	assert.Equal(t, KindShouldNeverHappen, got.Kind)
}

func TestErrorUnwrapReturnsCause(t *testing.T) {
	cause := errors.New("underlying")
	wrapped := wrapError(KindCryptoFailure, "derive shared secret", cause)
	assert.True(t, errors.Is(wrapped, cause))
}

func TestErrorStringIncludesKindAndMessage(t *testing.T) {
	err := newError(KindInvalidInput, "missing topic")
	assert.Contains(t, err.Error(), "invalid_input")
	assert.Contains(t, err.Error(), "missing topic")
	require.NotNil(t, err)
}
