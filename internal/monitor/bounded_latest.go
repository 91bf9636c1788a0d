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

package monitor

import "sync"

// boundedLatest is a per-key bounded ring of pending events, one worker
// goroutine per key, oldest event dropped on overflow: a subscriber that
// falls behind sees gaps but never the very latest update delayed behind
// a long backlog.
type boundedLatest struct {
	capacity int

	mu   sync.Mutex
	subs map[uint64]*boundedSub
}

type boundedSub struct {
	cb     Callback
	ch     chan Event
	closed chan struct{}
}

func newBoundedLatest(capacity int) *boundedLatest {
	return &boundedLatest{capacity: capacity, subs: make(map[uint64]*boundedSub)}
}

func (b *boundedLatest) Subscribe(key uint64, cb Callback) {
	sub := &boundedSub{cb: cb, ch: make(chan Event, b.capacity), closed: make(chan struct{})}
	b.mu.Lock()
	b.subs[key] = sub
	b.mu.Unlock()

	go func() {
		for {
			select {
			case ev, ok := <-sub.ch:
				if !ok {
					return
				}
				sub.cb(ev)
			case <-sub.closed:
				return
			}
		}
	}()
}

func (b *boundedLatest) Unsubscribe(key uint64) {
	b.mu.Lock()
	sub, ok := b.subs[key]
	if ok {
		delete(b.subs, key)
	}
	b.mu.Unlock()
	if ok {
		close(sub.closed)
	}
}

func (b *boundedLatest) Publish(key uint64, ev Event) {
	b.mu.Lock()
	sub, ok := b.subs[key]
	b.mu.Unlock()
	if !ok {
		return
	}

	for {
		select {
		case sub.ch <- ev:
			return
		default:
		}
		// queue full: drop the oldest queued event to make room.
		select {
		case <-sub.ch:
		default:
			return
		}
	}
}

func (b *boundedLatest) Close() {
	b.mu.Lock()
	subs := b.subs
	b.subs = make(map[uint64]*boundedSub)
	b.mu.Unlock()
	for _, sub := range subs {
		close(sub.closed)
	}
}
