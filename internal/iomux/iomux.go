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

// Package iomux multiplexes outstanding get/put requests over one
// transport's shared READ_NOTIFY/WRITE_NOTIFY/EVENT_ADD io-id space.
package iomux

import (
	"sync"

	"github.com/bits-and-blooms/bitset"

	"github.com/jlmuir/ca-go/internal/wire"
	"github.com/jlmuir/ca-go/status"
)

// Response is the decoded result of a completed request.
type Response struct {
	Meta wire.Meta
	Val  wire.Value
	Err  error
}

// Mux assigns and tracks the io-id (ioid) space for one transport,
// completing requests as their response frames arrive.
type Mux struct {
	mu       sync.Mutex
	occupied *bitset.BitSet
	pending  map[uint32]chan Response
	next     uint32
}

// New creates a Mux whose ioid bitset is sized for 1<<16 ids up front and
// grows on demand, so the protocol's 32-bit ioid space is in practice
// bounded by available memory rather than wire format.
func New() *Mux {
	return &Mux{
		occupied: bitset.New(1 << 16),
		pending:  make(map[uint32]chan Response),
	}
}

// Register allocates a fresh ioid and a channel its response will be
// delivered on. The caller must eventually call Complete or Cancel for
// this ioid exactly once.
func (m *Mux) Register() (ioid uint32, wait <-chan Response) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for {
		m.next++
		if m.next == 0 {
			m.next = 1
		}
		idx := uint(m.next)
		if !m.occupied.Test(idx) {
			m.occupied.Set(idx)
			break
		}
	}

	ch := make(chan Response, 1)
	m.pending[m.next] = ch
	return m.next, ch
}

// Complete delivers r to the waiter registered under ioid, if any, and
// frees the ioid for reuse. Safe to call for an unknown ioid (a late or
// duplicate response): it is silently dropped.
func (m *Mux) Complete(ioid uint32, r Response) {
	m.mu.Lock()
	ch, ok := m.pending[ioid]
	if ok {
		delete(m.pending, ioid)
		m.occupied.Clear(uint(ioid))
	}
	m.mu.Unlock()

	if ok {
		ch <- r
		close(ch)
	}
}

// Cancel frees ioid without delivering a response, used when a request is
// abandoned client-side (channel closed, context canceled) before a
// response arrives.
func (m *Mux) Cancel(ioid uint32) {
	m.mu.Lock()
	ch, ok := m.pending[ioid]
	if ok {
		delete(m.pending, ioid)
		m.occupied.Clear(uint(ioid))
	}
	m.mu.Unlock()
	if ok {
		close(ch)
	}
}

// DrainDisconnected completes every outstanding request with a Disconn
// status, used when the owning transport dies.
func (m *Mux) DrainDisconnected() {
	m.mu.Lock()
	waiters := make([]chan Response, 0, len(m.pending))
	for ioid, ch := range m.pending {
		waiters = append(waiters, ch)
		delete(m.pending, ioid)
		m.occupied.Clear(uint(ioid))
	}
	m.mu.Unlock()

	for _, ch := range waiters {
		ch <- Response{Err: status.New(status.Disconn)}
		close(ch)
	}
}

// Outstanding reports the number of requests awaiting a response.
func (m *Mux) Outstanding() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}
