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

// Package transport owns one TCP connection per (server address, priority)
// pair: the writer/reader goroutine pair, keep-alive, and dispatch of
// inbound frames to the channel registry or the io multiplexer.
package transport

import (
	"bufio"
	"context"
	"net"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jlmuir/ca-go/internal/chanreg"
	"github.com/jlmuir/ca-go/internal/iomux"
	"github.com/jlmuir/ca-go/internal/wire"
	"github.com/jlmuir/ca-go/logger"
	"github.com/jlmuir/ca-go/status"
)

// Dispatcher routes an inbound frame to whatever owns its channel id, or
// to the io multiplexer keyed by the frame's Parameter2 (ioid), depending
// on command.
type Dispatcher interface {
	Dispatch(f wire.Frame)
}

// Transport is a single virtual-circuit TCP connection to one CA server.
type Transport struct {
	Addr     string
	Priority uint8

	log logger.Logger
	reg *chanreg.Registry
	mux *iomux.Mux

	maxArrayBytes uint32
	echoInterval  time.Duration

	mu       sync.Mutex
	conn     net.Conn
	writeCh  chan frameJob
	refs     int
	closedAt time.Time
	closed   bool

	cancel context.CancelFunc
}

type frameJob struct {
	h       wire.Header
	payload []byte
	done    chan error
}

// New dials addr and starts the reader/writer/keepalive goroutines under g.
func New(ctx context.Context, g *errgroup.Group, addr string, priority uint8, reg *chanreg.Registry, log logger.Logger, maxArrayBytes uint32, echoInterval time.Duration) (*Transport, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, status.New(status.Disconn, err)
	}

	cctx, cancel := context.WithCancel(ctx)
	t := &Transport{
		Addr:          addr,
		Priority:      priority,
		log:           log,
		reg:           reg,
		mux:           iomux.New(),
		maxArrayBytes: maxArrayBytes,
		echoInterval:  echoInterval,
		conn:          conn,
		writeCh:       make(chan frameJob, 64),
		refs:          1,
		cancel:        cancel,
	}

	g.Go(func() error { return t.readLoop(cctx) })
	g.Go(func() error { return t.writeLoop(cctx) })
	if echoInterval > 0 {
		g.Go(func() error { return t.keepAlive(cctx) })
	}
	return t, nil
}

// Mux returns the transport's io multiplexer.
func (t *Transport) Mux() *iomux.Mux { return t.mux }

// Send enqueues a frame for writing and blocks until it is handed to the
// OS (not until a response arrives; that is the io multiplexer's job).
func (t *Transport) Send(h wire.Header, payload []byte) error {
	done := make(chan error, 1)
	t.writeCh <- frameJob{h: h, payload: payload, done: done}
	return <-done
}

// Retain increments the reference count, canceling any pending idle close.
func (t *Transport) Retain() {
	t.mu.Lock()
	t.refs++
	t.mu.Unlock()
}

// Release decrements the reference count. The transport is not torn down
// immediately: callers (the Context's reaper) close it after a cool-down
// once refs reaches zero, per spec.md's 5s idle-transport grace period.
func (t *Transport) Release() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.refs--
	if t.refs <= 0 {
		t.closedAt = time.Now()
	}
	return t.refs
}

// IdleSince reports how long the transport has had zero references, or
// false if it still has at least one.
func (t *Transport) IdleSince() (time.Time, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.refs > 0 {
		return time.Time{}, false
	}
	return t.closedAt, true
}

// Close tears down the connection and drains any outstanding requests.
func (t *Transport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	t.mu.Unlock()

	t.cancel()
	t.reg.DisconnectAll(func(e *chanreg.Entry) bool { return true })
	t.mux.DrainDisconnected()
	return t.conn.Close()
}

func (t *Transport) writeLoop(ctx context.Context) error {
	w := bufio.NewWriter(t.conn)
	for {
		select {
		case <-ctx.Done():
			return nil
		case job := <-t.writeCh:
			err := wire.WriteFrame(w, job.h, job.payload)
			if err == nil {
				err = w.Flush()
			}
			job.done <- err
			if err != nil {
				t.log.Error("transport write failed: %s", nil, err)
				return err
			}
		}
	}
}

func (t *Transport) readLoop(ctx context.Context) error {
	r := bufio.NewReader(t.conn)
	for {
		if ctx.Err() != nil {
			return nil
		}
		f, err := wire.ReadFrame(r, t.maxArrayBytes)
		if err != nil {
			t.log.Warning("transport read ended: %s", nil, err)
			return err
		}
		t.handleFrame(f)
	}
}

func (t *Transport) keepAlive(ctx context.Context) error {
	ticker := time.NewTicker(t.echoInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := t.Send(wire.Header{Command: wire.CmdEcho}, nil); err != nil {
				return err
			}
		}
	}
}

func (t *Transport) handleFrame(f wire.Frame) {
	switch f.Header.Command {
	case wire.CmdEcho, wire.CmdVersion:
		return
	case wire.CmdServerDisconn:
		t.reg.DisconnectAll(func(e *chanreg.Entry) bool {
			return e.CID() == f.Header.Parameter1
		})
		return
	case wire.CmdCreateChan:
		if e, ok := t.reg.Lookup(f.Header.Parameter1); ok {
			e.MarkConnected(f.Header.Parameter2, wire.ValueKind(f.Header.DataType), f.Header.DataCount)
		}
		return
	case wire.CmdCreateChFail:
		t.log.Warning("CREATE_CHANNEL failed for cid %d", nil, f.Header.Parameter1)
		return
	case wire.CmdAccessRights:
		if e, ok := t.reg.Lookup(f.Header.Parameter1); ok {
			rights := f.Header.Parameter2
			e.AccessRightsUpdate(chanreg.AccessRights{Read: rights&1 != 0, Write: rights&2 != 0})
		}
		return
	case wire.CmdReadNotify, wire.CmdWriteNotify, wire.CmdEventAdd:
		m, v, err := wire.DecodeValue(f.Payload, f.Header.DataType, f.Header.DataCount)
		ioid := f.Header.Parameter2
		if err != nil {
			t.mux.Complete(ioid, iomux.Response{Err: err})
			return
		}
		if f.Header.Parameter1 != 0 {
			t.mux.Complete(ioid, iomux.Response{Err: status.New(status.GetFail)})
			return
		}
		t.mux.Complete(ioid, iomux.Response{Meta: m, Val: v})
		return
	default:
		t.log.Debug("unhandled frame command %s", nil, f.Header.Command)
	}
}
