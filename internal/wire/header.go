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
	"encoding/binary"
	"io"

	liberr "github.com/jlmuir/ca-go/errors"

	"github.com/jlmuir/ca-go/status"
)

const (
	// HeaderSize is the standard 16-byte CA frame header.
	HeaderSize = 16
	// ExtendedHeaderSize is the 24-byte header used when payload size or
	// element count would overflow their 16-bit standard fields.
	ExtendedHeaderSize = 24
	// extendedMarker is the sentinel value (0xFFFF) standard header fields
	// carry when the extended header follows.
	extendedMarker = 0xFFFF
	// PayloadAlign is the padding boundary CA payloads are rounded up to.
	PayloadAlign = 8
)

// Header is the decoded form of a CA frame header, standard or extended.
type Header struct {
	Command     Command
	PayloadSize uint32
	DataType    uint16
	DataCount   uint32
	Parameter1  uint32
	Parameter2  uint32
}

// IsExtended reports whether this header requires the 24-byte encoding.
func (h Header) IsExtended() bool {
	return h.PayloadSize >= extendedMarker || h.DataCount >= extendedMarker
}

// PaddedSize rounds the payload size up to the next 8-byte boundary.
func (h Header) PaddedSize() uint32 {
	return padTo(h.PayloadSize, PayloadAlign)
}

func padTo(n uint32, align uint32) uint32 {
	if n%align == 0 {
		return n
	}
	return n + (align - n%align)
}

// WriteHeader encodes h in big-endian wire format, choosing the standard or
// extended layout based on IsExtended.
func WriteHeader(w io.Writer, h Header) error {
	if h.IsExtended() {
		buf := make([]byte, ExtendedHeaderSize)
		binary.BigEndian.PutUint16(buf[0:2], uint16(h.Command))
		binary.BigEndian.PutUint16(buf[2:4], extendedMarker)
		binary.BigEndian.PutUint16(buf[4:6], h.DataType)
		binary.BigEndian.PutUint16(buf[6:8], extendedMarker)
		binary.BigEndian.PutUint32(buf[8:12], h.Parameter1)
		binary.BigEndian.PutUint32(buf[12:16], h.Parameter2)
		binary.BigEndian.PutUint32(buf[16:20], h.PayloadSize)
		binary.BigEndian.PutUint32(buf[20:24], h.DataCount)
		_, err := w.Write(buf)
		return err
	}

	buf := make([]byte, HeaderSize)
	binary.BigEndian.PutUint16(buf[0:2], uint16(h.Command))
	binary.BigEndian.PutUint16(buf[2:4], uint16(h.PayloadSize))
	binary.BigEndian.PutUint16(buf[4:6], h.DataType)
	binary.BigEndian.PutUint16(buf[6:8], uint16(h.DataCount))
	binary.BigEndian.PutUint32(buf[8:12], h.Parameter1)
	binary.BigEndian.PutUint32(buf[12:16], h.Parameter2)
	_, err := w.Write(buf)
	return err
}

// ReadHeader decodes one header from r, transparently following into the
// extended form when the standard header's size/count fields are the
// 0xFFFF sentinel.
func ReadHeader(r io.Reader) (Header, error) {
	buf := make([]byte, HeaderSize)
	if _, err := io.ReadFull(r, buf); err != nil {
		return Header{}, err
	}

	h := Header{
		Command:     Command(binary.BigEndian.Uint16(buf[0:2])),
		PayloadSize: uint32(binary.BigEndian.Uint16(buf[2:4])),
		DataType:    binary.BigEndian.Uint16(buf[4:6]),
		DataCount:   uint32(binary.BigEndian.Uint16(buf[6:8])),
		Parameter1:  binary.BigEndian.Uint32(buf[8:12]),
		Parameter2:  binary.BigEndian.Uint32(buf[12:16]),
	}

	if h.PayloadSize != extendedMarker || h.DataCount != extendedMarker {
		return h, nil
	}

	ext := make([]byte, 8)
	if _, err := io.ReadFull(r, ext); err != nil {
		return Header{}, err
	}

	h.PayloadSize = binary.BigEndian.Uint32(ext[0:4])
	h.DataCount = binary.BigEndian.Uint32(ext[4:8])
	return h, nil
}

// CheckPayloadBound validates a received header's payload against the
// configured max_array_bytes ceiling (see status.Protocol).
func CheckPayloadBound(h Header, maxArrayBytes uint32) liberr.Error {
	if maxArrayBytes > 0 && h.PayloadSize > maxArrayBytes {
		return status.Newf(status.Protocol, "payload size %d exceeds max_array_bytes %d", h.PayloadSize, maxArrayBytes)
	}
	return nil
}
