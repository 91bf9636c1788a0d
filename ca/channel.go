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

package ca

import (
	"context"
	"encoding/binary"
	"sync"

	"github.com/jlmuir/ca-go/internal/chanreg"
	"github.com/jlmuir/ca-go/internal/monitor"
	"github.com/jlmuir/ca-go/internal/wire"
	"github.com/jlmuir/ca-go/status"
)

// ConnectionListener is invoked on every validated connection-state transition.
type ConnectionListener func(old, new chanreg.State)

// AccessRightListener is invoked whenever the server reports new access rights.
type AccessRightListener func(chanreg.AccessRights)

// ValueListener receives monitor updates for one subscription. Lost is
// true exactly once, when the underlying transport drops, and carries no
// value.
type ValueListener func(meta wire.Meta, val wire.Value, lost bool, err error)

// Channel is a handle to one named process variable.
type Channel struct {
	ctx   *Context
	entry *chanreg.Entry
}

// Channel returns the handle for name, registering it and kicking off
// name resolution if this is the first reference to it.
func (c *Context) Channel(name string) *Channel {
	e := c.reg.GetOrCreate(name)
	ch := &Channel{ctx: c, entry: e}
	if e.State() == chanreg.NeverConnected {
		c.search.Search(name, e.CID())
	}
	return ch
}

// GetName returns the channel's PV name.
func (ch *Channel) GetName() string { return ch.entry.Name() }

// GetConnectionState returns the channel's current connection state.
func (ch *Channel) GetConnectionState() chanreg.State { return ch.entry.State() }

// GetAccessRights returns the channel's last known access rights.
func (ch *Channel) GetAccessRights() chanreg.AccessRights { return ch.entry.AccessRights() }

// NativeType returns the channel's native value kind and element count,
// valid once Connected.
func (ch *Channel) NativeType() (wire.ValueKind, uint32) { return ch.entry.NativeType() }

// AddConnectionListener registers l to be called on every future state transition.
func (ch *Channel) AddConnectionListener(l ConnectionListener) {
	ch.entry.OnState(func(old, new chanreg.State) { l(old, new) })
}

// AddAccessRightListener registers l to be called on every future access-rights change.
func (ch *Channel) AddAccessRightListener(l AccessRightListener) {
	ch.entry.OnAccessRights(func(r chanreg.AccessRights) { l(r) })
}

// Connect blocks until the channel reaches Connected or ctx is done.
func (ch *Channel) Connect(ctx context.Context) error {
	if ch.entry.State() == chanreg.Connected {
		return nil
	}

	if tmo := ch.ctx.cfg.ConnectTimeout; tmo > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, tmo)
		defer cancel()
	}

	done := make(chan struct{}, 1)
	ch.entry.OnState(func(old, new chanreg.State) {
		if new == chanreg.Connected {
			select {
			case done <- struct{}{}:
			default:
			}
		}
	})

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return status.New(status.Timeout, ctx.Err())
	}
}

// ConnectAsync registers cb to fire the next time the channel becomes Connected.
func (ch *Channel) ConnectAsync(cb func()) {
	var once sync.Once
	ch.entry.OnState(func(old, new chanreg.State) {
		if new == chanreg.Connected {
			once.Do(cb)
		}
	})
}

// Close removes the channel from its Context's registry. The handle must
// not be used afterward.
func (ch *Channel) Close() error {
	ch.ctx.reg.Remove(ch.entry.Name())
	return nil
}

// Get issues a synchronous read of meta kind m, blocking until the
// response arrives, ctx is done, or the channel disconnects.
func (ch *Channel) Get(ctx context.Context, m wire.MetaKind) (wire.Meta, wire.Value, error) {
	if ch.entry.State() != chanreg.Connected {
		return wire.Meta{}, wire.Value{}, status.New(status.Disconn)
	}

	t := ch.ctx.transportOf(ch.entry)
	if t == nil {
		return wire.Meta{}, wire.Value{}, status.New(status.Disconn)
	}

	kind, cnt := ch.entry.NativeType()
	ts, ok := wire.Lookup(kind, m)
	if !ok {
		return wire.Meta{}, wire.Value{}, status.New(status.BadType)
	}

	ioid, wait := t.Mux().Register()
	h := wire.Header{Command: wire.CmdReadNotify, DataType: ts.DBRType, DataCount: cnt, Parameter1: ch.entry.SID(), Parameter2: ioid}
	if err := t.Send(h, nil); err != nil {
		t.Mux().Cancel(ioid)
		return wire.Meta{}, wire.Value{}, status.New(status.GetFail, err)
	}

	select {
	case r := <-wait:
		if r.Err != nil {
			return wire.Meta{}, wire.Value{}, r.Err
		}
		return r.Meta, r.Val, nil
	case <-ctx.Done():
		t.Mux().Cancel(ioid)
		return wire.Meta{}, wire.Value{}, status.New(status.Timeout, ctx.Err())
	}
}

// GetAsync issues a non-blocking read, invoking cb once the response arrives.
func (ch *Channel) GetAsync(m wire.MetaKind, cb func(wire.Meta, wire.Value, error)) {
	go func() {
		meta, val, err := ch.Get(context.Background(), m)
		cb(meta, val, err)
	}()
}

// Put issues a synchronous write, blocking for server acknowledgement.
func (ch *Channel) Put(ctx context.Context, v wire.Value) error {
	if ch.entry.State() != chanreg.Connected {
		return status.New(status.Disconn)
	}
	t := ch.ctx.transportOf(ch.entry)
	if t == nil {
		return status.New(status.Disconn)
	}

	ts, ok := wire.Lookup(v.Kind, wire.MetaPlain)
	if !ok {
		return status.New(status.BadType)
	}

	ioid, wait := t.Mux().Register()
	payload, err := wire.EncodeValue(v.Kind, wire.MetaPlain, wire.Meta{}, v)
	if err != nil {
		t.Mux().Cancel(ioid)
		return status.New(status.PutFail, err)
	}
	h := wire.Header{Command: wire.CmdWriteNotify, DataType: ts.DBRType, DataCount: uint32(v.Count()), Parameter1: ch.entry.SID(), Parameter2: ioid}
	if err := t.Send(h, payload); err != nil {
		t.Mux().Cancel(ioid)
		return status.New(status.PutFail, err)
	}

	select {
	case r := <-wait:
		return r.Err
	case <-ctx.Done():
		t.Mux().Cancel(ioid)
		return status.New(status.Timeout, ctx.Err())
	}
}

// PutAsync issues a write, invoking cb once the server acknowledges.
func (ch *Channel) PutAsync(v wire.Value, cb func(error)) {
	go func() { cb(ch.Put(context.Background(), v)) }()
}

// PutNoWait issues a fire-and-forget write: the WRITE command, not
// WRITE_NOTIFY, so no acknowledgement is requested or awaited.
func (ch *Channel) PutNoWait(v wire.Value) error {
	if ch.entry.State() != chanreg.Connected {
		return status.New(status.Disconn)
	}
	t := ch.ctx.transportOf(ch.entry)
	if t == nil {
		return status.New(status.Disconn)
	}

	ts, ok := wire.Lookup(v.Kind, wire.MetaPlain)
	if !ok {
		return status.New(status.BadType)
	}
	payload, err := wire.EncodeValue(v.Kind, wire.MetaPlain, wire.Meta{}, v)
	if err != nil {
		return status.New(status.PutFail, err)
	}
	h := wire.Header{Command: wire.CmdWrite, DataType: ts.DBRType, DataCount: uint32(v.Count()), Parameter1: ch.entry.SID()}
	return t.Send(h, payload)
}

// AddValueMonitor subscribes cb to value-change events at the given
// metadata kind and event mask (spec.md's EVENT_ADD semantics). It
// returns an unsubscribe function.
func (ch *Channel) AddValueMonitor(m wire.MetaKind, mask uint16, cb ValueListener) (func(), error) {
	if cb == nil || mask == 0 {
		return nil, status.New(status.Usage)
	}
	t := ch.ctx.transportOf(ch.entry)
	if t == nil {
		return nil, status.New(status.Disconn)
	}

	kind, cnt := ch.entry.NativeType()
	ts, ok := wire.Lookup(kind, m)
	if !ok {
		return nil, status.New(status.BadType)
	}

	key := ch.ctx.nextSubID()
	ch.ctx.strategy.Subscribe(key, func(ev monitor.Event) {
		cb(ev.Meta, ev.Val, ev.Lost, ev.Err)
	})

	// EVENT_ADD payload: three float32 deadbands (left zero), the mask, and a pad.
	payload := make([]byte, 16)
	binary.BigEndian.PutUint16(payload[12:], mask)

	ioid, _ := t.Mux().Register()
	h := wire.Header{Command: wire.CmdEventAdd, DataType: ts.DBRType, DataCount: cnt, Parameter1: ch.entry.SID(), Parameter2: ioid}
	if err := t.Send(h, payload); err != nil {
		ch.ctx.strategy.Unsubscribe(key)
		t.Mux().Cancel(ioid)
		return nil, status.New(status.GetFail, err)
	}

	unsub := func() {
		ch.ctx.strategy.Unsubscribe(key)
		_ = t.Send(wire.Header{Command: wire.CmdEventCancel, DataType: ts.DBRType, DataCount: cnt, Parameter1: ch.entry.SID(), Parameter2: ioid}, nil)
	}
	return unsub, nil
}

// Properties is a point-in-time snapshot of a channel's metadata: name,
// state, access rights, native type.
type Properties struct {
	Name         string
	State        chanreg.State
	AccessRights chanreg.AccessRights
	Kind         wire.ValueKind
	Count        uint32
}

// GetProperties returns the channel's current Properties snapshot.
func (ch *Channel) GetProperties() Properties {
	kind, cnt := ch.entry.NativeType()
	return Properties{
		Name:         ch.entry.Name(),
		State:        ch.entry.State(),
		AccessRights: ch.entry.AccessRights(),
		Kind:         kind,
		Count:        cnt,
	}
}

