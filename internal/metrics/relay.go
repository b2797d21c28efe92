// SAGE - Secure Agent Guarantee Engine
// Copyright (C) 2025 SAGE-X-project
//
// This file is part of SAGE.
//
// SAGE is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// SAGE is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with SAGE. If not, see <https://www.gnu.org/licenses/>.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RelayConnectAttempts tracks websocket connect attempts to the relay
	RelayConnectAttempts = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "relay",
			Name:      "connect_attempts_total",
			Help:      "Total number of relay connection attempts",
		},
		[]string{"outcome"}, // success, failure
	)

	// RelayReconnects tracks backoff-driven reconnect attempts
	RelayReconnects = promauto.With(Registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "relay",
			Name:      "reconnects_total",
			Help:      "Total number of relay reconnect attempts after a dropped connection",
		},
	)

	// RelayConnectionState tracks the current transport state as a gauge per state label
	RelayConnectionState = promauto.With(Registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "relay",
			Name:      "connection_state",
			Help:      "1 if the transport is currently in the given state, 0 otherwise",
		},
		[]string{"state"}, // idle, connecting, subscribing, connected, backoff, poisoned
	)

	// RelayAuthFailures tracks terminal InvalidAuth closures from the relay
	RelayAuthFailures = promauto.With(Registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "relay",
			Name:      "auth_failures_total",
			Help:      "Total number of terminal close code 3000 (invalid auth) events",
		},
	)

	// RelayRequestDuration tracks round-trip latency of JSON-RPC requests sent to the relay
	RelayRequestDuration = promauto.With(Registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "relay",
			Name:      "request_duration_seconds",
			Help:      "Relay JSON-RPC request round-trip duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 13), // 1ms to ~4s, brackets the 5s request timeout
		},
		[]string{"method", "outcome"}, // irn_publish/irn_batchSubscribe/..., ok/timeout/error
	)

	// RelayQueueDepth tracks the depth of the outbound send queue
	RelayQueueDepth = promauto.With(Registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "relay",
			Name:      "queue_depth",
			Help:      "Number of messages currently queued for send",
		},
		[]string{"lane"}, // priority, normal
	)
)
