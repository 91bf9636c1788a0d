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

// ValueKind is one of the primitive value types a channel can carry.
type ValueKind uint8

const (
	KindString ValueKind = iota
	KindShort
	KindFloat
	KindEnum
	KindChar
	KindLong
	KindDouble
)

// dbrCode is the native CA DBR_* type code for (ValueKind, MetaKind).
// Layout follows the real protocol's numbering: 7 value kinds per metadata
// row, rows ordered Plain, Alarm(STS), Timestamped(TIME), Graphic(GR), Control(CTRL).
func dbrCode(k ValueKind, m MetaKind) uint16 {
	return uint16(m)*7 + uint16(k)
}

// MetaKind selects which metadata bundle wraps a value.
type MetaKind uint8

const (
	MetaPlain MetaKind = iota
	MetaAlarm
	MetaTimestamped
	MetaGraphic
	MetaControl
)

// Alarm wraps a value with its alarm status/severity (DBR_STS_*).
type Alarm[T any] struct {
	Value         T
	AlarmStatus   uint16
	AlarmSeverity uint16
}

// Timestamped wraps a value with alarm info plus a server timestamp (DBR_TIME_*).
type Timestamped[T any] struct {
	Alarm[T]
	EpochSeconds uint32
	Nanoseconds  uint32
}

// Graphic wraps a value with display/warning/alarm limits (DBR_GR_*).
// ST is the scalar element type the limits are expressed in (equal to T for
// scalar channels, the element type of T for arrays).
type Graphic[T any, ST any] struct {
	Alarm[T]
	Units          string
	Precision      int16 // meaningful for float/double kinds only
	UpperDispLimit ST
	LowerDispLimit ST
	UpperWarnLimit ST
	LowerWarnLimit ST
	UpperAlarmLimit ST
	LowerAlarmLimit ST
}

// Control adds control limits on top of Graphic (DBR_CTRL_*).
type Control[T any, ST any] struct {
	Graphic[T, ST]
	UpperCtrlLimit ST
	LowerCtrlLimit ST
}

// MaxEnumLabels bounds the label set carried by enum metadata, per protocol.
const MaxEnumLabels = 16

// GraphicEnum wraps an enum value (or array) with alarm info and its label set.
type GraphicEnum[T any] struct {
	Alarm[T]
	Labels []string // up to MaxEnumLabels entries
}

// TypeSupport is an immutable registry entry describing how to move a
// (ValueKind, MetaKind) pair to and from the wire.
type TypeSupport struct {
	Kind        ValueKind
	Meta        MetaKind
	DBRType     uint16
	ElementSize int // size in bytes of one scalar element on the wire
}

var registry = buildRegistry()

func buildRegistry() map[uint16]TypeSupport {
	sizes := map[ValueKind]int{
		KindString: 40,
		KindShort:  2,
		KindFloat:  4,
		KindEnum:   2,
		KindChar:   1,
		KindLong:   4,
		KindDouble: 8,
	}

	kinds := []ValueKind{KindString, KindShort, KindFloat, KindEnum, KindChar, KindLong, KindDouble}
	metas := []MetaKind{MetaPlain, MetaAlarm, MetaTimestamped, MetaGraphic, MetaControl}

	reg := make(map[uint16]TypeSupport, len(kinds)*len(metas))
	for _, m := range metas {
		for _, k := range kinds {
			code := dbrCode(k, m)
			reg[code] = TypeSupport{Kind: k, Meta: m, DBRType: code, ElementSize: sizes[k]}
		}
	}
	return reg
}

// Lookup resolves the TypeSupport for a (ValueKind, MetaKind) pair.
func Lookup(k ValueKind, m MetaKind) (TypeSupport, bool) {
	ts, ok := registry[dbrCode(k, m)]
	return ts, ok
}

// LookupDBRType resolves the TypeSupport registered for a raw wire type code.
func LookupDBRType(code uint16) (TypeSupport, bool) {
	ts, ok := registry[code]
	return ts, ok
}
