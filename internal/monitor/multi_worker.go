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

// job pairs a delivery with the subscriber it's destined for.
type job struct {
	cb Callback
	ev Event
}

// multiWorker is a single shared blocking queue drained by a fixed pool
// of workers: events across all subscribers interleave freely, trading
// per-channel ordering for maximum throughput under many subscriptions.
type multiWorker struct {
	queue chan job
	done  chan struct{}
	wg    sync.WaitGroup

	mu   sync.RWMutex
	subs map[uint64]Callback
}

func newMultiWorker(workers int, bufferSize int) *multiWorker {
	if workers <= 0 {
		workers = 4
	}
	if bufferSize <= 0 {
		bufferSize = 1024
	}
	m := &multiWorker{
		queue: make(chan job, bufferSize),
		done:  make(chan struct{}),
		subs:  make(map[uint64]Callback),
	}
	m.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go m.worker()
	}
	return m
}

func (m *multiWorker) worker() {
	defer m.wg.Done()
	for {
		select {
		case j, ok := <-m.queue:
			if !ok {
				return
			}
			j.cb(j.ev)
		case <-m.done:
			return
		}
	}
}

func (m *multiWorker) Subscribe(key uint64, cb Callback) {
	m.mu.Lock()
	m.subs[key] = cb
	m.mu.Unlock()
}

func (m *multiWorker) Unsubscribe(key uint64) {
	m.mu.Lock()
	delete(m.subs, key)
	m.mu.Unlock()
}

func (m *multiWorker) Publish(key uint64, ev Event) {
	m.mu.RLock()
	cb, ok := m.subs[key]
	m.mu.RUnlock()
	if !ok {
		return
	}
	select {
	case m.queue <- job{cb: cb, ev: ev}:
	case <-m.done:
	}
}

func (m *multiWorker) Close() {
	close(m.done)
	m.wg.Wait()
}
