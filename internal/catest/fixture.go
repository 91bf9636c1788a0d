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

// Package catest provides an in-process fake IOC: a TCP listener that
// speaks just enough Channel Access to drive Context/Channel tests
// without a real EPICS server.
package catest

import (
	"net"
	"sync"

	"github.com/jlmuir/ca-go/internal/wire"
)

// FakeIOC serves CREATE_CHANNEL, READ_NOTIFY and ECHO for a fixed set of
// named PVs, each backed by an in-memory Value. Other commands, including
// WRITE_NOTIFY and EVENT_ADD, get no reply.
type FakeIOC struct {
	ln net.Listener

	mu  sync.Mutex
	pvs map[string]*pv
}

type pv struct {
	kind wire.ValueKind
	val  wire.Value
	sid  uint32
}

// New starts a FakeIOC on an ephemeral localhost port.
func New() (*FakeIOC, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, err
	}
	ioc := &FakeIOC{ln: ln, pvs: make(map[string]*pv)}
	go ioc.acceptLoop()
	return ioc, nil
}

// Addr returns the listener's address, suitable for ca.Config.AddrList.
func (f *FakeIOC) Addr() string { return f.ln.Addr().String() }

// AddPV registers a named PV with an initial value.
func (f *FakeIOC) AddPV(name string, v wire.Value) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pvs[name] = &pv{kind: v.Kind, val: v, sid: uint32(len(f.pvs) + 1)}
}

// Close stops accepting new connections.
func (f *FakeIOC) Close() error { return f.ln.Close() }

func (f *FakeIOC) acceptLoop() {
	for {
		conn, err := f.ln.Accept()
		if err != nil {
			return
		}
		go f.serve(conn)
	}
}

func (f *FakeIOC) serve(conn net.Conn) {
	defer conn.Close()
	for {
		frame, err := wire.ReadFrame(conn, 0)
		if err != nil {
			return
		}
		f.handle(conn, frame)
	}
}

func (f *FakeIOC) handle(conn net.Conn, frame wire.Frame) {
	switch frame.Header.Command {
	case wire.CmdCreateChan:
		name := nulTerminated(frame.Payload)
		f.mu.Lock()
		p, ok := f.pvs[name]
		f.mu.Unlock()
		if !ok {
			_ = wire.WriteFrame(conn, wire.Header{Command: wire.CmdCreateChFail, Parameter1: frame.Header.Parameter1}, nil)
			return
		}
		h := wire.Header{Command: wire.CmdCreateChan, DataType: uint16(p.kind), DataCount: uint32(p.val.Count()), Parameter1: frame.Header.Parameter1, Parameter2: p.sid}
		_ = wire.WriteFrame(conn, h, nil)
	case wire.CmdReadNotify:
		f.mu.Lock()
		var found *pv
		for _, p := range f.pvs {
			if p.sid == frame.Header.Parameter1 {
				found = p
				break
			}
		}
		f.mu.Unlock()
		if found == nil {
			return
		}
		payload, err := wire.EncodeValue(found.val.Kind, wire.MetaPlain, wire.Meta{}, found.val)
		if err != nil {
			return
		}
		h := wire.Header{Command: wire.CmdReadNotify, DataType: frame.Header.DataType, DataCount: uint32(found.val.Count()), Parameter2: frame.Header.Parameter2}
		_ = wire.WriteFrame(conn, h, payload)
	case wire.CmdEcho:
		_ = wire.WriteFrame(conn, wire.Header{Command: wire.CmdEcho}, nil)
	}
}

func nulTerminated(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}
