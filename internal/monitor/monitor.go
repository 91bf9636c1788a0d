/*
 * MIT License
 *
 * Copyright (c) 2025 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

// Package monitor implements the pluggable value-change notification
// subsystem: one Strategy selected per Context, four implementations
// trading off latency, ordering, and drop behavior under load.
package monitor

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jlmuir/ca-go/internal/wire"
	"github.com/jlmuir/ca-go/status"
)

// Event is one delivered value update, or a connection-loss sentinel
// (Lost true, all other fields zero) signaling the subscriber that no
// further events will arrive until reconnection re-primes the subscription.
type Event struct {
	Meta wire.Meta
	Val  wire.Value
	Err  error
	Lost bool
}

// Callback receives delivered events for one subscription. It must not
// block for long: strategies that serialize delivery (LatestOnly,
// striped) stall on a slow callback.
type Callback func(Event)

// Strategy is a pluggable notification engine. Implementations are
// selected by name via CA_MONITOR_NOTIFIER_IMPL (see ca.Config).
type Strategy interface {
	// Subscribe registers cb to receive events published under key (the
	// subscription id, one per addValueMonitor call).
	Subscribe(key uint64, cb Callback)
	// Unsubscribe removes a previously registered callback.
	Unsubscribe(key uint64)
	// Publish delivers ev to the subscriber registered under key.
	Publish(key uint64, ev Event)
	// Close stops all worker goroutines, dropping any queued events.
	Close()
}

// QoS exposes Prometheus gauges describing a strategy's queue health,
// per spec.md's Q-o-S surface.
type QoS struct {
	QueueDepth prometheus.Gauge
	Dropped    prometheus.Counter
	Delivered  prometheus.Counter
}

// NewQoS builds a QoS gauge/counter set labeled with the owning
// strategy's name, ready for a caller to register against its own
// prometheus.Registerer.
func NewQoS(strategyName string) *QoS {
	labels := prometheus.Labels{"strategy": strategyName}
	return &QoS{
		QueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "ca_monitor_queue_depth",
			Help:        "Number of buffered, undelivered monitor events.",
			ConstLabels: labels,
		}),
		Dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "ca_monitor_events_dropped_total",
			Help:        "Monitor events dropped because the queue was full.",
			ConstLabels: labels,
		}),
		Delivered: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "ca_monitor_events_delivered_total",
			Help:        "Monitor events delivered to a subscriber callback.",
			ConstLabels: labels,
		}),
	}
}

// Collectors returns the QoS metrics as a slice, for bulk registration.
func (q *QoS) Collectors() []prometheus.Collector {
	return []prometheus.Collector{q.QueueDepth, q.Dropped, q.Delivered}
}

// New builds the Strategy described by spec, a compound string of the
// form "name[,threads[,bufferSize]]" (e.g. the library default
// "multi-worker,16"). threads sizes the worker pool for multi-worker
// and striped, defaulting to 10 when omitted; bufferSize, when given,
// overrides the strategy's default per-subscriber queue capacity.
// Recognized names are "bounded-latest", "latest-only", "multi-worker",
// and "striped"; any other name fails with a status.Config error so
// Context construction can reject it instead of silently substituting
// a default strategy.
func New(spec string) (Strategy, error) {
	parts := strings.Split(spec, ",")
	impl := strings.TrimSpace(parts[0])

	threads, bufferSize := 10, 0
	if len(parts) > 1 && strings.TrimSpace(parts[1]) != "" {
		n, err := strconv.Atoi(strings.TrimSpace(parts[1]))
		if err != nil {
			return nil, status.New(status.Config, fmt.Errorf("monitor strategy %q: invalid thread count %q: %w", impl, parts[1], err))
		}
		threads = n
	}
	if len(parts) > 2 && strings.TrimSpace(parts[2]) != "" {
		n, err := strconv.Atoi(strings.TrimSpace(parts[2]))
		if err != nil {
			return nil, status.New(status.Config, fmt.Errorf("monitor strategy %q: invalid buffer size %q: %w", impl, parts[2], err))
		}
		bufferSize = n
	}

	switch impl {
	case "bounded-latest":
		capacity := bufferSize
		if capacity <= 0 {
			capacity = 64
		}
		return newBoundedLatest(capacity), nil
	case "latest-only":
		return newLatestOnly(), nil
	case "multi-worker":
		return newMultiWorker(threads, bufferSize), nil
	case "striped":
		return newStriped(threads, bufferSize), nil
	default:
		return nil, status.New(status.Config, fmt.Errorf("unrecognized monitor strategy %q", impl))
	}
}
