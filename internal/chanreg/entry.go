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

package chanreg

import (
	"sync"

	"github.com/jlmuir/ca-go/internal/wire"
)

// StateListener is notified on every validated state transition.
type StateListener func(old, new State)

// AccessListener is notified whenever the server updates access rights.
type AccessListener func(AccessRights)

// Entry is one registered channel: its identity, wire ids, current state
// and access rights, and the listeners subscribed to either.
type Entry struct {
	mu sync.RWMutex

	name string
	cid  uint32 // client id, chosen locally, stable for the channel's lifetime
	sid  uint32 // server id, assigned on CREATE_CHANNEL response
	addr string // resolved server transport address ("host:port")
	typ  wire.ValueKind
	cnt  uint32

	state   State
	rights  AccessRights
	stateL  []StateListener
	rightsL []AccessListener
}

func newEntry(name string, cid uint32) *Entry {
	return &Entry{name: name, cid: cid, state: NeverConnected}
}

// Name returns the channel's name.
func (e *Entry) Name() string { return e.name }

// CID returns the client-assigned id used to address this channel on the wire.
func (e *Entry) CID() uint32 { return e.cid }

// SID returns the server-assigned id, valid once State is Connected.
func (e *Entry) SID() uint32 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.sid
}

// Addr returns the resolved server transport address, set by SetAddr once
// a search response has resolved this channel's server.
func (e *Entry) Addr() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.addr
}

// SetAddr records the resolved server transport address.
func (e *Entry) SetAddr(addr string) {
	e.mu.Lock()
	e.addr = addr
	e.mu.Unlock()
}

// NativeType returns the channel's native value kind and element count, as
// reported in the CREATE_CHANNEL response. Zero value until Connected.
func (e *Entry) NativeType() (wire.ValueKind, uint32) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.typ, e.cnt
}

// State returns the channel's current connection state.
func (e *Entry) State() State {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state
}

// AccessRights returns the channel's last known access rights.
func (e *Entry) AccessRights() AccessRights {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.rights
}

// OnState registers l to be called on every future validated transition.
func (e *Entry) OnState(l StateListener) {
	e.mu.Lock()
	e.stateL = append(e.stateL, l)
	e.mu.Unlock()
}

// OnAccessRights registers l to be called whenever access rights change.
func (e *Entry) OnAccessRights(l AccessListener) {
	e.mu.Lock()
	e.rightsL = append(e.rightsL, l)
	e.mu.Unlock()
}

// MarkConnected transitions to Connected, recording the server id and
// native type, then fans the transition out to state listeners.
func (e *Entry) MarkConnected(sid uint32, typ wire.ValueKind, cnt uint32) {
	e.transition(Connected, func() {
		e.sid = sid
		e.typ = typ
		e.cnt = cnt
	})
}

// markDisconnected transitions to Disconnected (transport lost, or
// SERVER_DISCONN received).
func (e *Entry) markDisconnected() {
	e.transition(Disconnected, nil)
}

// markClosed transitions to Closed. Terminal: no further transitions apply.
func (e *Entry) markClosed() {
	e.transition(Closed, nil)
}

func (e *Entry) transition(next State, mutate func()) {
	e.mu.Lock()
	old := e.state
	if !validTransition(old, next) {
		e.mu.Unlock()
		return
	}
	e.state = next
	if mutate != nil {
		mutate()
	}
	// snapshot listeners before releasing the lock so callbacks never run
	// while holding it, and so a listener registering mid-callback doesn't race.
	listeners := make([]StateListener, len(e.stateL))
	copy(listeners, e.stateL)
	e.mu.Unlock()

	for _, l := range listeners {
		l(old, next)
	}
}

// AccessRightsUpdate records new rights and fans the change out to listeners.
func (e *Entry) AccessRightsUpdate(r AccessRights) {
	e.mu.Lock()
	if e.rights == r {
		e.mu.Unlock()
		return
	}
	e.rights = r
	listeners := make([]AccessListener, len(e.rightsL))
	copy(listeners, e.rightsL)
	e.mu.Unlock()

	for _, l := range listeners {
		l(r)
	}
}
