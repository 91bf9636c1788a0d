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

// Package wire implements the Channel Access v4.13 binary frame codec:
// header layout, command set, and value/metadata (de)serialization.
package wire

// Command is a CA protocol command id, the first field of every frame header.
type Command uint16

const (
	CmdVersion      Command = 0
	CmdEventAdd     Command = 1
	CmdEventCancel  Command = 2
	CmdRead         Command = 3
	CmdWrite        Command = 4
	CmdSearch       Command = 6
	CmdEventsOff    Command = 8
	CmdEventsOn     Command = 9
	CmdReadSync     Command = 11
	CmdReadNotify   Command = 15
	CmdCreateChan   Command = 18
	CmdWriteNotify  Command = 19
	CmdClientName   Command = 20
	CmdHostName     Command = 21
	CmdAccessRights Command = 22
	CmdEcho         Command = 23
	CmdCreateChFail Command = 26
	CmdServerDisconn Command = 27
)

func (c Command) String() string {
	switch c {
	case CmdVersion:
		return "VERSION"
	case CmdEventAdd:
		return "EVENT_ADD"
	case CmdEventCancel:
		return "EVENT_CANCEL"
	case CmdRead:
		return "READ"
	case CmdWrite:
		return "WRITE"
	case CmdSearch:
		return "SEARCH"
	case CmdEventsOff:
		return "EVENTS_OFF"
	case CmdEventsOn:
		return "EVENTS_ON"
	case CmdReadSync:
		return "READ_SYNC"
	case CmdReadNotify:
		return "READ_NOTIFY"
	case CmdCreateChan:
		return "CREATE_CHANNEL"
	case CmdWriteNotify:
		return "WRITE_NOTIFY"
	case CmdClientName:
		return "CLIENT_NAME"
	case CmdHostName:
		return "HOST_NAME"
	case CmdAccessRights:
		return "ACCESS_RIGHTS"
	case CmdEcho:
		return "ECHO"
	case CmdCreateChFail:
		return "CREATE_CH_FAIL"
	case CmdServerDisconn:
		return "SERVER_DISCONN"
	default:
		return "UNKNOWN"
	}
}
