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
	"encoding/binary"
	"io"
	"math"

	"github.com/jlmuir/ca-go/status"
)

// MaxStringLen is the fixed width of one DBR_STRING element on the wire,
// NUL-padded/truncated.
const MaxStringLen = 40

// Value is the decoded payload of a get/put/monitor frame: exactly one of
// the slices matching Kind is populated, its length equal to the element
// count.
type Value struct {
	Kind    ValueKind
	Strings []string
	Shorts  []int16
	Floats  []float32
	Enums   []uint16
	Chars   []byte
	Longs   []int32
	Doubles []float64
}

// Count reports the element count of the populated slice for v.Kind.
func (v Value) Count() int {
	switch v.Kind {
	case KindString:
		return len(v.Strings)
	case KindShort:
		return len(v.Shorts)
	case KindFloat:
		return len(v.Floats)
	case KindEnum:
		return len(v.Enums)
	case KindChar:
		return len(v.Chars)
	case KindLong:
		return len(v.Longs)
	case KindDouble:
		return len(v.Doubles)
	default:
		return 0
	}
}

// EncodedSize is the unpadded wire size in bytes of v's populated slice.
func (v Value) EncodedSize() int {
	ts, ok := Lookup(v.Kind, MetaPlain)
	if !ok {
		return 0
	}
	return v.Count() * ts.ElementSize
}

// WriteValue serializes v's elements in wire order, without header or padding.
func WriteValue(w io.Writer, v Value) error {
	switch v.Kind {
	case KindString:
		buf := make([]byte, MaxStringLen*len(v.Strings))
		for i, s := range v.Strings {
			putFixedString(buf[i*MaxStringLen:(i+1)*MaxStringLen], s)
		}
		_, err := w.Write(buf)
		return err
	case KindShort:
		buf := make([]byte, 2*len(v.Shorts))
		for i, s := range v.Shorts {
			binary.BigEndian.PutUint16(buf[i*2:], uint16(s))
		}
		_, err := w.Write(buf)
		return err
	case KindEnum:
		buf := make([]byte, 2*len(v.Enums))
		for i, e := range v.Enums {
			binary.BigEndian.PutUint16(buf[i*2:], e)
		}
		_, err := w.Write(buf)
		return err
	case KindChar:
		_, err := w.Write(v.Chars)
		return err
	case KindLong:
		buf := make([]byte, 4*len(v.Longs))
		for i, l := range v.Longs {
			binary.BigEndian.PutUint32(buf[i*4:], uint32(l))
		}
		_, err := w.Write(buf)
		return err
	case KindFloat:
		buf := make([]byte, 4*len(v.Floats))
		for i, f := range v.Floats {
			binary.BigEndian.PutUint32(buf[i*4:], math.Float32bits(f))
		}
		_, err := w.Write(buf)
		return err
	case KindDouble:
		buf := make([]byte, 8*len(v.Doubles))
		for i, d := range v.Doubles {
			binary.BigEndian.PutUint64(buf[i*8:], math.Float64bits(d))
		}
		_, err := w.Write(buf)
		return err
	default:
		return status.Newf(status.BadType, "unsupported value kind %d", v.Kind)
	}
}

// ReadValue deserializes count elements of kind k from r, without header or padding.
func ReadValue(r io.Reader, k ValueKind, count uint32) (Value, error) {
	n := int(count)
	v := Value{Kind: k}

	ts, ok := Lookup(k, MetaPlain)
	if !ok {
		return Value{}, status.Newf(status.BadType, "unsupported value kind %d", k)
	}

	buf := make([]byte, n*ts.ElementSize)
	if _, err := io.ReadFull(r, buf); err != nil {
		return Value{}, err
	}

	switch k {
	case KindString:
		v.Strings = make([]string, n)
		for i := range v.Strings {
			v.Strings[i] = getFixedString(buf[i*MaxStringLen : (i+1)*MaxStringLen])
		}
	case KindShort:
		v.Shorts = make([]int16, n)
		for i := range v.Shorts {
			v.Shorts[i] = int16(binary.BigEndian.Uint16(buf[i*2:]))
		}
	case KindEnum:
		v.Enums = make([]uint16, n)
		for i := range v.Enums {
			v.Enums[i] = binary.BigEndian.Uint16(buf[i*2:])
		}
	case KindChar:
		v.Chars = buf
	case KindLong:
		v.Longs = make([]int32, n)
		for i := range v.Longs {
			v.Longs[i] = int32(binary.BigEndian.Uint32(buf[i*4:]))
		}
	case KindFloat:
		v.Floats = make([]float32, n)
		for i := range v.Floats {
			v.Floats[i] = math.Float32frombits(binary.BigEndian.Uint32(buf[i*4:]))
		}
	case KindDouble:
		v.Doubles = make([]float64, n)
		for i := range v.Doubles {
			v.Doubles[i] = math.Float64frombits(binary.BigEndian.Uint64(buf[i*8:]))
		}
	}

	return v, nil
}

func putFixedString(dst []byte, s string) {
	b := []byte(s)
	if len(b) >= MaxStringLen {
		copy(dst, b[:MaxStringLen-1])
		dst[MaxStringLen-1] = 0
		return
	}
	n := copy(dst, b)
	for ; n < MaxStringLen; n++ {
		dst[n] = 0
	}
}

func getFixedString(src []byte) string {
	if i := bytes.IndexByte(src, 0); i >= 0 {
		return string(src[:i])
	}
	return string(src)
}

// Meta is the decoded metadata bundle preceding a value in an Alarm or
// richer DBR response. Zero-valued fields are meaningful only for the
// MetaKind actually requested.
type Meta struct {
	AlarmStatus    uint16
	AlarmSeverity  uint16
	EpochSeconds   uint32
	Nanoseconds    uint32
	Units          string
	Precision      int16
	UpperDispLimit float64
	LowerDispLimit float64
	UpperWarnLimit float64
	LowerWarnLimit float64
	UpperAlarmLimit float64
	LowerAlarmLimit float64
	UpperCtrlLimit float64
	LowerCtrlLimit float64
	Labels         []string
}

// metaSize returns the fixed byte width of the metadata prefix for (k, m),
// as carried on the wire ahead of the value payload.
func metaSize(k ValueKind, m MetaKind) int {
	switch m {
	case MetaPlain:
		return 0
	case MetaAlarm:
		if k == KindString {
			return 4
		}
		return 4
	case MetaTimestamped:
		return 12
	case MetaGraphic:
		return graphicSize(k)
	case MetaControl:
		if k == KindEnum {
			return graphicSize(k)
		}
		return graphicSize(k) + limitFieldSize(k)*2
	default:
		return 0
	}
}

func limitFieldSize(k ValueKind) int {
	if k == KindEnum {
		return 2
	}
	ts, _ := Lookup(k, MetaPlain)
	return ts.ElementSize
}

func graphicSize(k ValueKind) int {
	if k == KindEnum {
		// enum graphic metadata carries a label count and label table instead of limits
		return 4 + 2 + MaxEnumLabels*MaxStringLen
	}
	units := 8
	precision := 0
	if k == KindFloat || k == KindDouble {
		precision = 2
	}
	return 4 + precision + units + limitFieldSize(k)*6
}

// WriteMeta serializes m's fields for (k, meta) ahead of a value payload.
func WriteMeta(w io.Writer, k ValueKind, meta MetaKind, m Meta) error {
	if meta == MetaPlain {
		return nil
	}

	if err := writeUint16(w, m.AlarmStatus); err != nil {
		return err
	}
	if err := writeUint16(w, m.AlarmSeverity); err != nil {
		return err
	}
	if meta == MetaPlain || meta == MetaAlarm {
		return nil
	}
	if meta == MetaTimestamped {
		if err := writeUint32(w, m.EpochSeconds); err != nil {
			return err
		}
		return writeUint32(w, m.Nanoseconds)
	}

	// Graphic / Control: precision (float/double only), units, limits.
	if k == KindFloat || k == KindDouble {
		if err := writeUint16(w, uint16(m.Precision)); err != nil {
			return err
		}
	}
	if k == KindEnum {
		if err := writeUint16(w, uint16(len(m.Labels))); err != nil {
			return err
		}
		buf := make([]byte, MaxEnumLabels*MaxStringLen)
		for i, l := range m.Labels {
			if i >= MaxEnumLabels {
				break
			}
			putFixedString(buf[i*MaxStringLen:(i+1)*MaxStringLen], l)
		}
		_, err := w.Write(buf)
		return err
	}

	units := make([]byte, 8)
	putFixedString(units, m.Units)
	if _, err := w.Write(units[:8]); err != nil {
		return err
	}

	limits := []float64{m.UpperDispLimit, m.LowerDispLimit, m.UpperWarnLimit, m.LowerWarnLimit, m.UpperAlarmLimit, m.LowerAlarmLimit}
	if meta == MetaControl {
		limits = append(limits, m.UpperCtrlLimit, m.LowerCtrlLimit)
	}
	for _, lim := range limits {
		if err := writeLimit(w, k, lim); err != nil {
			return err
		}
	}
	return nil
}

func writeLimit(w io.Writer, k ValueKind, v float64) error {
	switch k {
	case KindShort:
		return writeUint16(w, uint16(int16(v)))
	case KindLong:
		return writeUint32(w, uint32(int32(v)))
	case KindFloat:
		return writeUint32(w, math.Float32bits(float32(v)))
	case KindDouble:
		buf := make([]byte, 8)
		binary.BigEndian.PutUint64(buf, math.Float64bits(v))
		_, err := w.Write(buf)
		return err
	case KindChar:
		_, err := w.Write([]byte{byte(int8(v))})
		return err
	default:
		return writeUint16(w, uint16(int16(v)))
	}
}

func writeUint16(w io.Writer, v uint16) error {
	buf := make([]byte, 2)
	binary.BigEndian.PutUint16(buf, v)
	_, err := w.Write(buf)
	return err
}

func writeUint32(w io.Writer, v uint32) error {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, v)
	_, err := w.Write(buf)
	return err
}

// ReadMeta deserializes the metadata prefix for (k, meta) from r.
func ReadMeta(r io.Reader, k ValueKind, meta MetaKind) (Meta, error) {
	var m Meta
	if meta == MetaPlain {
		return m, nil
	}

	status16, err := readUint16(r)
	if err != nil {
		return Meta{}, err
	}
	m.AlarmStatus = status16
	if m.AlarmSeverity, err = readUint16(r); err != nil {
		return Meta{}, err
	}
	if meta == MetaAlarm {
		return m, nil
	}
	if meta == MetaTimestamped {
		if m.EpochSeconds, err = readUint32(r); err != nil {
			return Meta{}, err
		}
		if m.Nanoseconds, err = readUint32(r); err != nil {
			return Meta{}, err
		}
		return m, nil
	}

	if k == KindFloat || k == KindDouble {
		prec, err := readUint16(r)
		if err != nil {
			return Meta{}, err
		}
		m.Precision = int16(prec)
	}
	if k == KindEnum {
		n, err := readUint16(r)
		if err != nil {
			return Meta{}, err
		}
		buf := make([]byte, MaxEnumLabels*MaxStringLen)
		if _, err := io.ReadFull(r, buf); err != nil {
			return Meta{}, err
		}
		m.Labels = make([]string, n)
		for i := range m.Labels {
			m.Labels[i] = getFixedString(buf[i*MaxStringLen : (i+1)*MaxStringLen])
		}
		return m, nil
	}

	units := make([]byte, 8)
	if _, err := io.ReadFull(r, units); err != nil {
		return Meta{}, err
	}
	m.Units = getFixedString(units)

	limits := make([]*float64, 6)
	limits[0], limits[1], limits[2] = &m.UpperDispLimit, &m.LowerDispLimit, &m.UpperWarnLimit
	limits[3], limits[4], limits[5] = &m.LowerWarnLimit, &m.UpperAlarmLimit, &m.LowerAlarmLimit
	if meta == MetaControl {
		limits = append(limits, &m.UpperCtrlLimit, &m.LowerCtrlLimit)
	}
	for _, lp := range limits {
		v, err := readLimit(r, k)
		if err != nil {
			return Meta{}, err
		}
		*lp = v
	}
	return m, nil
}

func readLimit(r io.Reader, k ValueKind) (float64, error) {
	switch k {
	case KindShort:
		v, err := readUint16(r)
		return float64(int16(v)), err
	case KindLong:
		v, err := readUint32(r)
		return float64(int32(v)), err
	case KindFloat:
		v, err := readUint32(r)
		return float64(math.Float32frombits(v)), err
	case KindDouble:
		buf := make([]byte, 8)
		if _, err := io.ReadFull(r, buf); err != nil {
			return 0, err
		}
		return math.Float64frombits(binary.BigEndian.Uint64(buf)), nil
	case KindChar:
		buf := make([]byte, 1)
		if _, err := io.ReadFull(r, buf); err != nil {
			return 0, err
		}
		return float64(int8(buf[0])), nil
	default:
		v, err := readUint16(r)
		return float64(int16(v)), err
	}
}

func readUint16(r io.Reader) (uint16, error) {
	buf := make([]byte, 2)
	if _, err := io.ReadFull(r, buf); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(buf), nil
}

func readUint32(r io.Reader) (uint32, error) {
	buf := make([]byte, 4)
	if _, err := io.ReadFull(r, buf); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(buf), nil
}
