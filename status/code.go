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

// Package status defines the Channel Access completion/failure codes
// returned to callers, built on top of the errors package's numeric
// error-code model.
package status

import (
	liberr "github.com/jlmuir/ca-go/errors"
)

// Code is a Channel Access completion status, registered into the errors
// package's code/message table so that every status value also satisfies
// errors.Error.
type Code = liberr.CodeError

const baseCode liberr.CodeError = 4000

const (
	// Normal indicates successful completion.
	Normal Code = baseCode + iota
	// Disconn indicates the channel's transport died or the server sent SERVER_DISCONN.
	Disconn
	// GetFail indicates a get/read operation failed server-side.
	GetFail
	// PutFail indicates a put/write operation failed server-side.
	PutFail
	// BadType indicates an unsupported or mismatched value/metadata type was requested.
	BadType
	// ChanDestroy indicates the channel was explicitly closed while a request was outstanding.
	ChanDestroy
	// Timeout indicates a caller-supplied timeout elapsed before a response arrived.
	Timeout
	// Usage indicates a synchronous usage error (nil consumer, zero event mask, unknown metadata kind).
	Usage
	// Config indicates Context construction failed (bad strategy name, bad thread count, ...).
	Config
	// Protocol indicates a malformed frame or unknown command was received.
	Protocol
	// NoAccess indicates the operation isn't permitted by the channel's current access rights.
	NoAccess
	// NoSearchAddr indicates no search/broadcast address is configured or reachable.
	NoSearchAddr
	// NotFound indicates the requested channel name never resolved.
	NotFound
)

func init() {
	liberr.RegisterIdFctMessage(baseCode, getMessage)
}

func getMessage(code Code) string {
	switch code {
	case Normal:
		return "operation completed normally"
	case Disconn:
		return "channel disconnected"
	case GetFail:
		return "get operation failed"
	case PutFail:
		return "put operation failed"
	case BadType:
		return "invalid or unsupported data type"
	case ChanDestroy:
		return "channel destroyed"
	case Timeout:
		return "operation timed out"
	case Usage:
		return "invalid usage"
	case Config:
		return "invalid configuration"
	case Protocol:
		return "protocol error"
	case NoAccess:
		return "access rights do not permit this operation"
	case NoSearchAddr:
		return "no search address configured"
	case NotFound:
		return "channel name not found"
	default:
		return liberr.UnknownMessage
	}
}
