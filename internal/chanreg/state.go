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

// Package chanreg implements the channel registry and connection state
// machine: one Entry per channel name, keyed by the client-assigned
// channel id (cid) that the wire protocol uses to address it.
package chanreg

// State is a channel's connection state, advancing only forward along the
// edges NeverConnected->Connected, Connected<->Disconnected, any->Closed.
type State uint8

const (
	NeverConnected State = iota
	Connected
	Disconnected
	Closed
)

func (s State) String() string {
	switch s {
	case NeverConnected:
		return "NEVER_CONNECTED"
	case Connected:
		return "CONNECTED"
	case Disconnected:
		return "DISCONNECTED"
	case Closed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// validTransition reports whether moving from s to next is allowed.
func validTransition(s, next State) bool {
	if s == Closed {
		return false
	}
	switch next {
	case Connected:
		return s == NeverConnected || s == Disconnected
	case Disconnected:
		return s == Connected
	case Closed:
		return true
	default:
		return false
	}
}

// AccessRights mirrors the server's ACCESS_RIGHTS frame payload for a channel.
type AccessRights struct {
	Read  bool
	Write bool
}
