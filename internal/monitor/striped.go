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

// striped assigns each subscription key to one of N lanes by hash, each
// lane a single-worker ordered queue: events for the same channel are
// always delivered in order, while different channels proceed in
// parallel across lanes.
type striped struct {
	lanes []*stripeLane
	subs  sync.Map // uint64 -> Callback
}

type stripeLane struct {
	queue chan job
	done  chan struct{}
}

func newStriped(n int, bufferSize int) *striped {
	if n <= 0 {
		n = 8
	}
	if bufferSize <= 0 {
		bufferSize = 256
	}
	s := &striped{lanes: make([]*stripeLane, n)}
	for i := range s.lanes {
		lane := &stripeLane{queue: make(chan job, bufferSize), done: make(chan struct{})}
		s.lanes[i] = lane
		go lane.run()
	}
	return s
}

func (l *stripeLane) run() {
	for {
		select {
		case j, ok := <-l.queue:
			if !ok {
				return
			}
			j.cb(j.ev)
		case <-l.done:
			return
		}
	}
}

func (s *striped) laneFor(key uint64) *stripeLane {
	return s.lanes[key%uint64(len(s.lanes))]
}

func (s *striped) Subscribe(key uint64, cb Callback) {
	s.subs.Store(key, cb)
}

func (s *striped) Unsubscribe(key uint64) {
	s.subs.Delete(key)
}

func (s *striped) Publish(key uint64, ev Event) {
	v, ok := s.subs.Load(key)
	if !ok {
		return
	}
	lane := s.laneFor(key)
	select {
	case lane.queue <- job{cb: v.(Callback), ev: ev}:
	case <-lane.done:
	}
}

func (s *striped) Close() {
	for _, lane := range s.lanes {
		close(lane.done)
	}
}
