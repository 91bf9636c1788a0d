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

// Package ca is the public Channel Access client facade: Context owns the
// shared runtime (transports, search engine, channel registry), Channel
// is the per-PV handle applications interact with.
package ca

import (
	"time"

	"github.com/spf13/viper"

	"github.com/jlmuir/ca-go/status"
)

// Config holds every tunable of a Context, bindable from the environment,
// a config file, or defaults via spf13/viper.
type Config struct {
	// AddrList is the list of server/broadcast addresses searched, e.g.
	// EPICS_CA_ADDR_LIST entries ("host:port" or "host", default port 5064).
	AddrList []string `mapstructure:"addr_list"`
	// AutoAddrList enables broadcast on every local interface in addition
	// to AddrList, mirroring EPICS_CA_AUTO_ADDR_LIST.
	AutoAddrList bool `mapstructure:"auto_addr_list"`
	// ServerPort is the default TCP port servers listen on (EPICS_CA_SERVER_PORT).
	ServerPort int `mapstructure:"server_port"`
	// RepeaterPort is the UDP port the CA repeater listens on
	// (EPICS_CA_REPEATER_PORT). It is carried as a setting only: no
	// repeater registration datagram is sent.
	RepeaterPort int `mapstructure:"repeater_port"`
	// MaxArrayBytes bounds accepted payload size (EPICS_CA_MAX_ARRAY_BYTES).
	// Zero means unbounded.
	MaxArrayBytes uint32 `mapstructure:"max_array_bytes"`
	// ConnectTimeout bounds a synchronous Connect call.
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	// EchoInterval is the keep-alive ECHO period per transport; zero disables it.
	EchoInterval time.Duration `mapstructure:"echo_interval"`
	// IdleTransportGrace is how long an unreferenced transport is kept
	// warm before being closed, per spec.md's cool-down design note.
	IdleTransportGrace time.Duration `mapstructure:"idle_transport_grace"`
	// MonitorNotifierImpl selects and sizes the monitor.Strategy
	// implementation, as "name[,threads[,bufferSize]]"
	// (CA_MONITOR_NOTIFIER_IMPL), e.g. "multi-worker,16". Recognized
	// names are "bounded-latest", "latest-only", "multi-worker", "striped".
	MonitorNotifierImpl string `mapstructure:"monitor_notifier_impl"`
}

// DefaultConfig returns a Config populated with the library's defaults.
func DefaultConfig() *Config {
	return &Config{
		AutoAddrList:        true,
		ServerPort:          5064,
		RepeaterPort:        5065,
		ConnectTimeout:      5 * time.Second,
		EchoInterval:        15 * time.Second,
		IdleTransportGrace:  5 * time.Second,
		MonitorNotifierImpl: "multi-worker,16",
	}
}

// LoadConfig reads Channel Access settings from v (a viper instance the
// caller has already pointed at a config file, environment prefix, or
// flag set) on top of the library defaults.
func LoadConfig(v *viper.Viper) (*Config, error) {
	cfg := DefaultConfig()
	if v == nil {
		return cfg, nil
	}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, status.New(status.Config, err)
	}
	return cfg, nil
}
