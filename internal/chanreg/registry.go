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
	"context"
	"sync"
	"sync/atomic"

	libctx "github.com/jlmuir/ca-go/context"
)

// Registry owns every channel entry for one Context (client instance),
// indexed by client id for wire dispatch and by name for lookups from the
// public facade.
type Registry struct {
	byCID libctx.Config[uint32]
	byName sync.Map // string -> *Entry
	nextCID uint32
}

// New creates an empty registry bound to ctx's lifetime.
func New(ctx context.Context) *Registry {
	return &Registry{byCID: libctx.New[uint32](ctx)}
}

// GetOrCreate returns the existing entry for name, or registers a new one
// with a freshly allocated client id.
func (r *Registry) GetOrCreate(name string) *Entry {
	if v, ok := r.byName.Load(name); ok {
		return v.(*Entry)
	}

	cid := atomic.AddUint32(&r.nextCID, 1)
	e := newEntry(name, cid)

	actual, loaded := r.byName.LoadOrStore(name, e)
	if loaded {
		return actual.(*Entry)
	}
	r.byCID.Store(cid, e)
	return e
}

// Lookup resolves an entry by its client id, as carried in frame headers.
func (r *Registry) Lookup(cid uint32) (*Entry, bool) {
	v, ok := r.byCID.Load(cid)
	if !ok {
		return nil, false
	}
	return v.(*Entry), true
}

// LookupName resolves an entry by channel name.
func (r *Registry) LookupName(name string) (*Entry, bool) {
	v, ok := r.byName.Load(name)
	if !ok {
		return nil, false
	}
	return v.(*Entry), true
}

// Remove deletes the entry for name from both indices after closing it.
func (r *Registry) Remove(name string) {
	v, ok := r.byName.Load(name)
	if !ok {
		return
	}
	e := v.(*Entry)
	e.markClosed()
	r.byName.Delete(name)
	r.byCID.Delete(e.CID())
}

// Walk calls fn for every registered entry. fn must not block.
func (r *Registry) Walk(fn func(*Entry)) {
	r.byName.Range(func(_, v interface{}) bool {
		fn(v.(*Entry))
		return true
	})
}

// DisconnectAll transitions every Connected entry to Disconnected, used
// when a transport to their server dies.
func (r *Registry) DisconnectAll(belongsTo func(*Entry) bool) {
	r.Walk(func(e *Entry) {
		if belongsTo == nil || belongsTo(e) {
			e.markDisconnected()
		}
	})
}
