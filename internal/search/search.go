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

// Package search implements UDP broadcast name resolution: sending one
// SEARCH datagram per pending channel name (names are not batched),
// retrying on a backoff schedule, and resolving SEARCH_RESPONSE replies
// to a server address.
package search

import (
	"bytes"
	"context"
	"net"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/singleflight"

	"github.com/jlmuir/ca-go/internal/wire"
	"github.com/jlmuir/ca-go/logger"
)

// MaxDatagramBytes is the size of the buffer one received search datagram
// is read into, kept under common network MTUs.
const MaxDatagramBytes = 1400

// Found is reported once a channel name resolves to a server.
type Found struct {
	Name string
	CID  uint32
	Addr string
	Kind wire.ValueKind
	Cnt  uint32
}

// Engine tracks pending searches and broadcasts them on a retry schedule.
type Engine struct {
	log        logger.Logger
	broadcasts []string
	conn       *net.UDPConn

	mu      sync.Mutex
	pending map[uint32]string // cid -> name, awaiting a response

	group singleflight.Group

	onFound func(Found)
}

// New binds a UDP socket for search traffic to the given broadcast
// addresses (host:port, typically the subnet broadcast address and/or
// EPICS_CA_ADDR_LIST entries).
func New(log logger.Logger, broadcasts []string, onFound func(Found)) (*Engine, error) {
	conn, err := net.ListenUDP("udp", &net.UDPAddr{})
	if err != nil {
		return nil, err
	}
	return &Engine{
		log:        log,
		broadcasts: broadcasts,
		conn:       conn,
		pending:    make(map[uint32]string),
		onFound:    onFound,
	}, nil
}

// Search registers name/cid as pending and emits an immediate SEARCH
// datagram; Run's retry loop re-sends it until a SEARCH response for cid
// arrives, Cancel is called, or Run's ctx is canceled.
func (e *Engine) Search(name string, cid uint32) {
	e.mu.Lock()
	e.pending[cid] = name
	e.mu.Unlock()
	e.broadcastOne(name, cid)
}

// Cancel removes cid from the pending set, e.g. when its channel is closed
// before a response ever arrives.
func (e *Engine) Cancel(cid uint32) {
	e.mu.Lock()
	delete(e.pending, cid)
	e.mu.Unlock()
}

// Run drives the retry schedule until ctx is canceled: an exponential
// backoff per spec.md §4.2, capped at 5s so long-pending names keep
// being retried at a bounded rate rather than backing off forever.
func (e *Engine) Run(ctx context.Context) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.MaxInterval = 5 * time.Second
	b.MaxElapsedTime = 0 // retry indefinitely; callers cancel via ctx

	timer := time.NewTimer(b.NextBackOff())
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-timer.C:
			e.retryPending()
			timer.Reset(b.NextBackOff())
		}
	}
}

// ListenResponses reads SEARCH_RESPONSE datagrams until ctx is canceled,
// resolving pending names and invoking onFound for each.
func (e *Engine) ListenResponses(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		_ = e.conn.Close()
	}()

	buf := make([]byte, MaxDatagramBytes)
	for {
		n, from, err := e.conn.ReadFromUDP(buf)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			e.log.Warning("search listen error: %s", nil, err)
			continue
		}
		e.handleDatagram(buf[:n], from)
	}
}

func (e *Engine) handleDatagram(data []byte, from *net.UDPAddr) {
	r := bytes.NewReader(data)
	for r.Len() >= wire.HeaderSize {
		h, err := wire.ReadHeader(r)
		if err != nil {
			return
		}
		if h.Command != wire.CmdSearch {
			skip := make([]byte, h.PaddedSize())
			_, _ = r.Read(skip)
			continue
		}
		cid := h.Parameter2
		e.mu.Lock()
		name, ok := e.pending[cid]
		if ok {
			delete(e.pending, cid)
		}
		e.mu.Unlock()
		if !ok {
			continue
		}
		if e.onFound != nil {
			e.onFound(Found{Name: name, CID: cid, Addr: from.String(), Kind: wire.ValueKind(h.DataType), Cnt: h.DataCount})
		}
	}
}

func (e *Engine) retryPending() {
	e.mu.Lock()
	names := make(map[uint32]string, len(e.pending))
	for cid, name := range e.pending {
		names[cid] = name
	}
	e.mu.Unlock()

	for cid, name := range names {
		e.broadcastOne(name, cid)
	}
}

func (e *Engine) broadcastOne(name string, cid uint32) {
	// singleflight collapses identical in-flight encodes when retryPending
	// and a fresh Search race for the same name.
	_, _, _ = e.group.Do(name, func() (interface{}, error) {
		var buf bytes.Buffer
		h := wire.Header{Command: wire.CmdSearch, DataType: 5, DataCount: 5, Parameter1: cid, Parameter2: cid}
		payload := []byte(name + "\x00")
		if pad := len(payload) % wire.PayloadAlign; pad != 0 {
			payload = append(payload, make([]byte, wire.PayloadAlign-pad)...)
		}
		if err := wire.WriteFrame(&buf, h, payload); err != nil {
			return nil, err
		}
		for _, addr := range e.broadcasts {
			udpAddr, err := net.ResolveUDPAddr("udp", addr)
			if err != nil {
				e.log.Warning("search broadcast address invalid: %s", nil, err)
				continue
			}
			if _, err := e.conn.WriteToUDP(buf.Bytes(), udpAddr); err != nil {
				e.log.Warning("search broadcast failed: %s", nil, err)
			}
		}
		return nil, nil
	})
}

// Close releases the search socket.
func (e *Engine) Close() error {
	return e.conn.Close()
}
