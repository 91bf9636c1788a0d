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

package wire

import (
	"bytes"
	"io"
)

// Frame bundles a decoded header with its raw payload bytes (padding stripped:
// Payload holds exactly Header.PayloadSize bytes).
// Callers interpret the payload with ReadValue/ReadMeta once Header.DataType
// and Header.DataCount are known to resolve a TypeSupport.
type Frame struct {
	Header  Header
	Payload []byte
}

// ReadFrame reads one complete frame (header, then PaddedSize payload bytes) from r.
func ReadFrame(r io.Reader, maxArrayBytes uint32) (Frame, error) {
	h, err := ReadHeader(r)
	if err != nil {
		return Frame{}, err
	}
	if err := CheckPayloadBound(h, maxArrayBytes); err != nil {
		return Frame{}, err
	}

	padded := h.PaddedSize()
	buf := make([]byte, padded)
	if padded > 0 {
		if _, err := io.ReadFull(r, buf); err != nil {
			return Frame{}, err
		}
	}
	return Frame{Header: h, Payload: buf[:h.PayloadSize]}, nil
}

// WriteFrame writes h followed by payload, zero-padded to an 8-byte boundary.
func WriteFrame(w io.Writer, h Header, payload []byte) error {
	h.PayloadSize = uint32(len(payload))
	if err := WriteHeader(w, h); err != nil {
		return err
	}
	if len(payload) == 0 {
		return nil
	}
	if _, err := w.Write(payload); err != nil {
		return err
	}
	if pad := int(h.PaddedSize()) - len(payload); pad > 0 {
		_, err := w.Write(make([]byte, pad))
		return err
	}
	return nil
}

// EncodeValue renders v (and, when meta != MetaPlain, its metadata m) into a
// single payload buffer suitable for WriteFrame.
func EncodeValue(kind ValueKind, meta MetaKind, m Meta, v Value) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteMeta(&buf, kind, meta, m); err != nil {
		return nil, err
	}
	if err := WriteValue(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeValue splits a frame's payload into metadata and value, given the
// DBR type code carried in the header.
func DecodeValue(payload []byte, dbrType uint16, count uint32) (Meta, Value, error) {
	ts, ok := LookupDBRType(dbrType)
	if !ok {
		return Meta{}, Value{}, errBadType(dbrType)
	}
	r := bytes.NewReader(payload)
	m, err := ReadMeta(r, ts.Kind, ts.Meta)
	if err != nil {
		return Meta{}, Value{}, err
	}
	v, err := ReadValue(r, ts.Kind, count)
	if err != nil {
		return Meta{}, Value{}, err
	}
	return m, v, nil
}
