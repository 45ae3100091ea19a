// Copyright (c) 2026 TTBT Enterprises LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package backend

import (
	"sync"
	"time"
)

const LatencyBuckets = 101
const LatencyBucketSize = 50 * time.Millisecond

// Histogram accumulates request latencies in fixed-width buckets.
type Histogram struct {
	Buckets [LatencyBuckets]uint64 `json:"b2"`
	Count   uint64                 `json:"c"`
	Sum     float64                `json:"s"` // Sum of durations in milliseconds
}

func (h *Histogram) Add(d time.Duration) {
	ms := float64(d.Milliseconds())
	idx := int(d / LatencyBucketSize)
	if idx >= LatencyBuckets {
		idx = LatencyBuckets - 1
	}
	h.Buckets[idx]++
	h.Count++
	h.Sum += ms
}

func (h *Histogram) Merge(other *Histogram) {
	if other == nil {
		return
	}
	for i := 0; i < LatencyBuckets; i++ {
		h.Buckets[i] += other.Buckets[i]
	}
	h.Count += other.Count
	h.Sum += other.Sum
}

// RouteMetric is the per-route slice of a metrics snapshot.
type RouteMetric struct {
	Requests uint64     `json:"requests"`
	Errors   uint64     `json:"errors"`
	Latency  *Histogram `json:"latency"`
}

// MetricsPayload is the body of the /api/metrics response.
type MetricsPayload struct {
	Timestamp  int64                   `json:"timestamp"`
	UptimeSec  int64                   `json:"uptimeSec"`
	AppVersion string                  `json:"appVersion"`
	Requests   uint64                  `json:"requests"`
	Errors     uint64                  `json:"errors"`
	ActiveWS   int                     `json:"activeWS"`
	Latency    *Histogram              `json:"latency"`
	Routes     map[string]*RouteMetric `json:"routes"`
}

// Metrics collects request counters and latency histograms, overall
// and per route.
type Metrics struct {
	mu        sync.Mutex
	startedAt time.Time
	requests  uint64
	errors    uint64
	latency   Histogram
	routes    map[string]*RouteMetric
	activeWS  func() int
}

// NewMetrics creates a Metrics collector. activeWS may be nil.
func NewMetrics(activeWS func() int) *Metrics {
	return &Metrics{
		startedAt: time.Now(),
		routes:    make(map[string]*RouteMetric),
		activeWS:  activeWS,
	}
}

// Record accounts one finished request.
func (m *Metrics) Record(route string, status int, d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.requests++
	m.latency.Add(d)
	rm, ok := m.routes[route]
	if !ok {
		rm = &RouteMetric{Latency: &Histogram{}}
		m.routes[route] = rm
	}
	rm.Requests++
	rm.Latency.Add(d)
	if status >= 500 {
		m.errors++
		rm.Errors++
	}
}

// Snapshot builds the payload served by /api/metrics.
func (m *Metrics) Snapshot() MetricsPayload {
	m.mu.Lock()
	defer m.mu.Unlock()

	latency := m.latency
	routes := make(map[string]*RouteMetric, len(m.routes))
	for route, rm := range m.routes {
		h := *rm.Latency
		routes[route] = &RouteMetric{
			Requests: rm.Requests,
			Errors:   rm.Errors,
			Latency:  &h,
		}
	}
	active := 0
	if m.activeWS != nil {
		active = m.activeWS()
	}
	return MetricsPayload{
		Timestamp:  time.Now().Unix(),
		UptimeSec:  int64(time.Since(m.startedAt).Seconds()),
		AppVersion: CurrentAppVersion,
		Requests:   m.requests,
		Errors:     m.errors,
		ActiveWS:   active,
		Latency:    &latency,
		Routes:     routes,
	}
}
