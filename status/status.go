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

package status

import (
	liberr "github.com/jlmuir/ca-go/errors"
)

// Status is the value returned alongside a failed request/get/put: a
// Channel Access completion code plus an optional chain of underlying
// causes. It satisfies the standard error interface and errors.Error.
type Status = liberr.Error

// New builds a Status for the given code, optionally chaining parent errors.
func New(code Code, parent ...error) Status {
	return code.Error(parent...)
}

// Newf builds a Status for the given code with a formatted message used in
// place of the registered one.
func Newf(code Code, pattern string, args ...any) Status {
	return liberr.Newf(code.Uint16(), pattern, args...)
}

// Is reports whether err carries the given status code, directly or via a
// parent in its error chain.
func Is(err error, code Code) bool {
	return liberr.IsCode(err, code)
}

// IsNormal reports whether err is nil or carries the Normal code.
func IsNormal(err error) bool {
	return err == nil || Is(err, Normal)
}
