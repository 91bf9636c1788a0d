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
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hashicorp/go-uuid"
	"golang.org/x/sync/errgroup"

	"github.com/jlmuir/ca-go/internal/chanreg"
	"github.com/jlmuir/ca-go/internal/monitor"
	"github.com/jlmuir/ca-go/internal/search"
	"github.com/jlmuir/ca-go/internal/transport"
	"github.com/jlmuir/ca-go/internal/wire"
	"github.com/jlmuir/ca-go/logger"
	"github.com/jlmuir/ca-go/status"
)

// Context is one independent Channel Access client runtime: its own
// transports, search engine, channel registry and monitor strategy.
// Applications typically create a single Context for the process
// lifetime.
type Context struct {
	id  string
	cfg *Config
	log logger.Logger

	reg      *chanreg.Registry
	search   *search.Engine
	strategy monitor.Strategy
	subSeq   uint64

	g      *errgroup.Group
	gctx   context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	transports map[string]*transport.Transport

	reaperStop chan struct{}
}

// NewContext builds a Context bound to parent, starting its search engine
// and idle-transport reaper. The caller must eventually call Close.
func NewContext(parent context.Context, cfg *Config, log logger.Logger) (*Context, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if log == nil {
		return nil, status.New(status.Config, fmt.Errorf("logger is required"))
	}

	id, err := uuid.GenerateUUID()
	if err != nil {
		return nil, status.New(status.Config, err)
	}

	strategy, err := monitor.New(cfg.MonitorNotifierImpl)
	if err != nil {
		return nil, err
	}

	gctx, cancel := context.WithCancel(parent)
	g, gctx2 := errgroup.WithContext(gctx)

	c := &Context{
		id:         id,
		cfg:        cfg,
		log:        log,
		reg:        chanreg.New(gctx),
		strategy:   strategy,
		g:          g,
		gctx:       gctx2,
		cancel:     cancel,
		transports: make(map[string]*transport.Transport),
		reaperStop: make(chan struct{}),
	}

	broadcasts := cfg.AddrList
	if cfg.AutoAddrList {
		broadcasts = append(broadcasts, "255.255.255.255:5064")
	}
	eng, err := search.New(log, broadcasts, c.onFound)
	if err != nil {
		cancel()
		return nil, status.New(status.NoSearchAddr, err)
	}
	c.search = eng

	g.Go(func() error { return eng.Run(gctx) })
	g.Go(func() error { return eng.ListenResponses(gctx) })
	go c.reapIdleTransports()

	return c, nil
}

// ID returns the instance id assigned to this Context at construction.
func (c *Context) ID() string { return c.id }

// Close tears down every transport, the search engine, and the monitor
// strategy, then waits for background goroutines to exit, for at most 2s
// or until ctx is done.
func (c *Context) Close(ctx context.Context) error {
	close(c.reaperStop)
	c.cancel()

	c.mu.Lock()
	transports := make([]*transport.Transport, 0, len(c.transports))
	for _, t := range c.transports {
		transports = append(transports, t)
	}
	c.transports = make(map[string]*transport.Transport)
	c.mu.Unlock()

	for _, t := range transports {
		_ = t.Close()
	}
	_ = c.search.Close()
	c.strategy.Close()

	done := make(chan error, 1)
	go func() { done <- c.g.Wait() }()

	select {
	case err := <-done:
		if err != nil {
			return status.New(status.Disconn, err)
		}
		return nil
	case <-ctx.Done():
		return status.New(status.Timeout, ctx.Err())
	case <-time.After(2 * time.Second):
		return status.New(status.Timeout)
	}
}

// onFound is the search engine's callback once a channel name resolves.
func (c *Context) onFound(f search.Found) {
	e, ok := c.reg.Lookup(f.CID)
	if !ok {
		return
	}
	t := c.transportFor(f.Addr, 0)
	if t == nil {
		return
	}
	e.SetAddr(f.Addr)

	ioid, wait := t.Mux().Register()
	h := wire.Header{Command: wire.CmdCreateChan, Parameter1: f.CID, Parameter2: ioid}
	if err := t.Send(h, []byte(f.Name+"\x00")); err != nil {
		c.log.Warning("create channel send failed for %s: %s", nil, f.Name, err)
		return
	}
	go func() {
		<-wait
		_ = e
	}()
}

// transportFor returns (dialing if necessary) the transport for addr at
// priority, incrementing its reference count.
func (c *Context) transportFor(addr string, priority uint8) *transport.Transport {
	key := fmt.Sprintf("%s#%d", addr, priority)

	c.mu.Lock()
	if t, ok := c.transports[key]; ok {
		t.Retain()
		c.mu.Unlock()
		return t
	}
	c.mu.Unlock()

	t, err := transport.New(c.gctx, c.g, addr, priority, c.reg, c.log, c.cfg.MaxArrayBytes, c.cfg.EchoInterval)
	if err != nil {
		c.log.Warning("dial %s failed: %s", nil, addr, err)
		return nil
	}

	c.mu.Lock()
	c.transports[key] = t
	c.mu.Unlock()
	return t
}

// reapIdleTransports closes transports that have had zero references for
// at least cfg.IdleTransportGrace, per spec.md's cool-down design note.
func (c *Context) reapIdleTransports() {
	grace := c.cfg.IdleTransportGrace
	if grace <= 0 {
		grace = 5 * time.Second
	}
	ticker := time.NewTicker(grace / 2)
	defer ticker.Stop()

	for {
		select {
		case <-c.reaperStop:
			return
		case <-ticker.C:
			c.mu.Lock()
			for key, t := range c.transports {
				if since, idle := t.IdleSince(); idle && time.Since(since) >= grace {
					delete(c.transports, key)
					go func(t *transport.Transport) { _ = t.Close() }(t)
				}
			}
			c.mu.Unlock()
		}
	}
}

// nextSubID allocates a subscription id, unique within this Context, for addValueMonitor.
func (c *Context) nextSubID() uint64 {
	return atomic.AddUint64(&c.subSeq, 1)
}

// transportOf returns the already-established transport for e's resolved
// server address, or nil if e hasn't resolved (or its transport was
// reaped and not yet re-established).
func (c *Context) transportOf(e *chanreg.Entry) *transport.Transport {
	addr := e.Addr()
	if addr == "" {
		return nil
	}
	key := fmt.Sprintf("%s#%d", addr, 0)

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.transports[key]
}
