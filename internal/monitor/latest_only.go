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

// latestOnly keeps at most one pending event per key: a new Publish
// simply overwrites whatever hasn't been delivered yet. Lowest memory
// and latency of the four strategies, at the cost of silently coalescing
// intermediate updates for a slow subscriber.
type latestOnly struct {
	mu   sync.Mutex
	subs map[uint64]*latestSub
}

type latestSub struct {
	cb   Callback
	mu   sync.Mutex
	pend *Event
	wake chan struct{}
	done chan struct{}
}

func newLatestOnly() *latestOnly {
	return &latestOnly{subs: make(map[uint64]*latestSub)}
}

func (l *latestOnly) Subscribe(key uint64, cb Callback) {
	sub := &latestSub{cb: cb, wake: make(chan struct{}, 1), done: make(chan struct{})}
	l.mu.Lock()
	l.subs[key] = sub
	l.mu.Unlock()

	go func() {
		for {
			select {
			case <-sub.wake:
				sub.mu.Lock()
				ev := sub.pend
				sub.pend = nil
				sub.mu.Unlock()
				if ev != nil {
					sub.cb(*ev)
				}
			case <-sub.done:
				return
			}
		}
	}()
}

func (l *latestOnly) Unsubscribe(key uint64) {
	l.mu.Lock()
	sub, ok := l.subs[key]
	if ok {
		delete(l.subs, key)
	}
	l.mu.Unlock()
	if ok {
		close(sub.done)
	}
}

func (l *latestOnly) Publish(key uint64, ev Event) {
	l.mu.Lock()
	sub, ok := l.subs[key]
	l.mu.Unlock()
	if !ok {
		return
	}

	sub.mu.Lock()
	sub.pend = &ev
	sub.mu.Unlock()

	select {
	case sub.wake <- struct{}{}:
	default:
	}
}

func (l *latestOnly) Close() {
	l.mu.Lock()
	subs := l.subs
	l.subs = make(map[uint64]*latestSub)
	l.mu.Unlock()
	for _, sub := range subs {
		close(sub.done)
	}
}
