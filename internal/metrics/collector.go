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
	"sync"
	"time"
)

// Collector keeps a lightweight in-process rollup of relay and crypto
// timings, independent of the Prometheus registry, so a host can log a
// periodic summary without scraping /metrics.
type Collector struct {
	mu sync.RWMutex

	// Counters
	RelayRequestCount   int64
	RelayRequestOk      int64
	RelayRequestFailed  int64
	RelayReconnectCount int64
	CryptoOperationCount int64
	CryptoErrorCount     int64

	// Timing metrics (in microseconds)
	RelayRequestTimes []int64
	CryptoOpTimes     []int64

	// Start time for uptime calculation
	startTime time.Time

	// Configuration
	maxTimingSamples int
}

// NewCollector creates a new metrics collector.
func NewCollector() *Collector {
	return &Collector{
		startTime:        time.Now(),
		maxTimingSamples: 1000, // Keep last 1000 samples for each timing metric
	}
}

// RecordRelayRequest records a completed relay JSON-RPC round trip.
func (mc *Collector) RecordRelayRequest(success bool, duration time.Duration) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.RelayRequestCount++
	if success {
		mc.RelayRequestOk++
	} else {
		mc.RelayRequestFailed++
	}
	mc.recordTiming(&mc.RelayRequestTimes, duration)
}

// RecordRelayReconnect records a backoff-driven reconnect attempt.
func (mc *Collector) RecordRelayReconnect() {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.RelayReconnectCount++
}

// RecordCryptoOperation records a crypto primitive invocation (derive, seal, open, sign).
func (mc *Collector) RecordCryptoOperation(success bool, duration time.Duration) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.CryptoOperationCount++
	if !success {
		mc.CryptoErrorCount++
	}
	mc.recordTiming(&mc.CryptoOpTimes, duration)
}

// recordTiming records a timing sample
func (mc *Collector) recordTiming(timings *[]int64, duration time.Duration) {
	microseconds := duration.Microseconds()
	*timings = append(*timings, microseconds)

	// Keep only last N samples
	if len(*timings) > mc.maxTimingSamples {
		*timings = (*timings)[len(*timings)-mc.maxTimingSamples:]
	}
}

// Snapshot returns a point-in-time view of the collected metrics.
func (mc *Collector) Snapshot() *Snapshot {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	return &Snapshot{
		Timestamp:           time.Now(),
		Uptime:              time.Since(mc.startTime),
		RelayRequestCount:   mc.RelayRequestCount,
		RelayRequestOk:      mc.RelayRequestOk,
		RelayRequestFailed:  mc.RelayRequestFailed,
		RelayReconnectCount: mc.RelayReconnectCount,
		CryptoOperationCount: mc.CryptoOperationCount,
		CryptoErrorCount:     mc.CryptoErrorCount,
		AvgRelayRequestTime:  calculateAverage(mc.RelayRequestTimes),
		P95RelayRequestTime:  calculatePercentile(mc.RelayRequestTimes, 95),
		AvgCryptoOpTime:      calculateAverage(mc.CryptoOpTimes),
		P95CryptoOpTime:      calculatePercentile(mc.CryptoOpTimes, 95),
	}
}

// Reset clears all collected metrics.
func (mc *Collector) Reset() {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.RelayRequestCount = 0
	mc.RelayRequestOk = 0
	mc.RelayRequestFailed = 0
	mc.RelayReconnectCount = 0
	mc.CryptoOperationCount = 0
	mc.CryptoErrorCount = 0

	mc.RelayRequestTimes = nil
	mc.CryptoOpTimes = nil

	mc.startTime = time.Now()
}

// Snapshot represents a point-in-time snapshot of metrics
type Snapshot struct {
	Timestamp time.Time
	Uptime    time.Duration

	RelayRequestCount   int64
	RelayRequestOk      int64
	RelayRequestFailed  int64
	RelayReconnectCount int64

	CryptoOperationCount int64
	CryptoErrorCount     int64

	// Timing averages (microseconds)
	AvgRelayRequestTime float64
	AvgCryptoOpTime     float64

	// 95th percentile timings (microseconds)
	P95RelayRequestTime int64
	P95CryptoOpTime     int64
}

// RelaySuccessRate returns the relay request success rate as a percentage.
func (s *Snapshot) RelaySuccessRate() float64 {
	if s.RelayRequestCount == 0 {
		return 0
	}
	return float64(s.RelayRequestOk) / float64(s.RelayRequestCount) * 100
}

// CryptoErrorRate returns the crypto operation error rate as a percentage.
func (s *Snapshot) CryptoErrorRate() float64 {
	if s.CryptoOperationCount == 0 {
		return 0
	}
	return float64(s.CryptoErrorCount) / float64(s.CryptoOperationCount) * 100
}

// Helper functions

func calculateAverage(values []int64) float64 {
	if len(values) == 0 {
		return 0
	}

	var sum int64
	for _, v := range values {
		sum += v
	}
	return float64(sum) / float64(len(values))
}

func calculatePercentile(values []int64, percentile int) int64 {
	if len(values) == 0 {
		return 0
	}

	index := len(values) * percentile / 100
	if index >= len(values) {
		index = len(values) - 1
	}

	// Create a copy and sort (simple bubble sort for small datasets)
	sorted := make([]int64, len(values))
	copy(sorted, values)

	for i := 0; i < len(sorted)-1; i++ {
		for j := 0; j < len(sorted)-i-1; j++ {
			if sorted[j] > sorted[j+1] {
				sorted[j], sorted[j+1] = sorted[j+1], sorted[j]
			}
		}
	}

	return sorted[index]
}

// Global collector instance
var globalCollector = NewCollector()

// GetGlobalCollector returns the global metrics collector
func GetGlobalCollector() *Collector {
	return globalCollector
}
