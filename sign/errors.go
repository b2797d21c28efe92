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
	"fmt"

	"github.com/reown-com/sign-go/relay"
)

// Kind classifies why a public API call failed.
type Kind int

const (
	// KindInvalidInput covers a malformed URI, a missing argument, or an expired proposal.
	KindInvalidInput Kind = iota
	// KindCryptoFailure covers an AEAD tag mismatch, a bad key length, or a failed ECDH.
	KindCryptoFailure
	// KindDecodeFailure covers a malformed envelope frame.
	KindDecodeFailure
	// KindParseFailure covers a JSON shape mismatch.
	KindParseFailure
	// KindStorageFailure wraps an error from the injected storage.Store.
	KindStorageFailure
	// KindRequestFailure means the relay responded with a JSON-RPC error.
	KindRequestFailure
	// KindOffline means the transport disconnected and could not recover within the request's deadline.
	KindOffline
	// KindInvalidAuth is terminal: the relay rejected the client's auth JWT.
	KindInvalidAuth
	// KindCleanup means the client was stopped while a caller was awaiting a reply.
	KindCleanup
	// KindShouldNeverHappen wraps a violated internal invariant.
	KindShouldNeverHappen
)

func (k Kind) String() string {
	switch k {
	case KindInvalidInput:
		return "invalid_input"
	case KindCryptoFailure:
		return "crypto_failure"
	case KindDecodeFailure:
		return "decode_failure"
	case KindParseFailure:
		return "parse_failure"
	case KindStorageFailure:
		return "storage_failure"
	case KindRequestFailure:
		return "request_failure"
	case KindOffline:
		return "offline"
	case KindInvalidAuth:
		return "invalid_auth"
	case KindCleanup:
		return "cleanup"
	case KindShouldNeverHappen:
		return "should_never_happen"
	default:
		return "unknown"
	}
}

// Error is the error type returned by every Client method.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("sign: %s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("sign: %s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func newError(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func wrapError(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// fromRelayError reclassifies a *relay.Error (or any error wrapping
// one) from the transport's kind space into this package's. A relay
// KindInternal almost always means the relay answered with a JSON-RPC
// error body, which from the caller's perspective is a RequestFailure;
// genuine internal bugs on our side are tagged with a more specific
// Kind at the point they occur instead of flowing through here.
func fromRelayError(err error) *Error {
	var relayErr *relay.Error
	if !errors.As(err, &relayErr) {
		return wrapError(KindShouldNeverHappen, "non-relay error from transport", err)
	}
	switch relayErr.Kind {
	case relay.KindCleanup:
		return wrapError(KindCleanup, relayErr.Reason, err)
	case relay.KindInvalidAuth:
		return wrapError(KindInvalidAuth, relayErr.Reason, err)
	case relay.KindOffline:
		return wrapError(KindOffline, relayErr.Reason, err)
	case relay.KindShouldNeverHappen:
		return wrapError(KindShouldNeverHappen, relayErr.Reason, err)
	default:
		return wrapError(KindRequestFailure, relayErr.Reason, err)
	}
}
