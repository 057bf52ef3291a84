// --------------------------------------------------------------------------------
// Author: Thomas F McGeehan V
//
// This file is part of a software project developed by Thomas F McGeehan V.
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.
//
// For more information about the MIT License, please visit:
// https://opensource.org/licenses/MIT
//
// Acknowledgment appreciated but not required.
// --------------------------------------------------------------------------------

// Package model holds the canonical, format-independent value types that flow
// between source and target adapters during a sync round: schemas, partition
// specs, per-file stats, diffs, snapshots and commits. Values are immutable once
// constructed; the only in-place change in this package is NewArray and NewMap
// renaming the child schemas they are handed to "element", "key" and "value".
package model

import (
	"fmt"
	"math/big"
	"time"
)

// Kind enumerates the primitive and composite kinds a CanonicalSchema node, or a
// Value held by one, can take.
type Kind int

const (
	KindInvalid Kind = iota
	KindBool
	KindInt
	KindLong
	KindFloat
	KindDouble
	KindString
	KindBytes
	KindFixed
	KindDecimal
	KindDate
	KindTimestamp    // UTC-adjusted instant
	KindTimestampNTZ // no timezone
	KindEnum
	KindRecord
	KindArray
	KindMap
)

func (k Kind) String() string {
	switch k {
	case KindBool:
		return "BOOL"
	case KindInt:
		return "INT"
	case KindLong:
		return "LONG"
	case KindFloat:
		return "FLOAT"
	case KindDouble:
		return "DOUBLE"
	case KindString:
		return "STRING"
	case KindBytes:
		return "BYTES"
	case KindFixed:
		return "FIXED"
	case KindDecimal:
		return "DECIMAL"
	case KindDate:
		return "DATE"
	case KindTimestamp:
		return "TIMESTAMP"
	case KindTimestampNTZ:
		return "TIMESTAMP_NTZ"
	case KindEnum:
		return "ENUM"
	case KindRecord:
		return "RECORD"
	case KindArray:
		return "ARRAY"
	case KindMap:
		return "MAP"
	default:
		return "INVALID"
	}
}

// IsComposite reports whether the kind nests other CanonicalSchema fields.
func (k Kind) IsComposite() bool {
	return k == KindRecord || k == KindArray || k == KindMap
}

// IsTemporal reports whether the kind is DATE or any TIMESTAMP variant — the
// set of kinds a finer-than-VALUE PartitionField transform may be built over.
func (k Kind) IsTemporal() bool {
	return k == KindDate || k == KindTimestamp || k == KindTimestampNTZ
}

// Value is a tagged union holding one scalar of any primitive Kind. It is the
// concrete type instantiated for Range[Value] wherever partition bounds or
// column-stat bounds are carried, and the representation used for partition
// values and default values.
type Value struct {
	Kind    Kind
	boolV   bool
	intV    int64 // INT, LONG, DATE (days since epoch), TIMESTAMP*/ENUM ordinal
	floatV  float64
	strV    string // STRING, ENUM name
	bytesV  []byte // BYTES, FIXED
	decimal *big.Rat
}

func BoolValue(b bool) Value    { return Value{Kind: KindBool, boolV: b} }
func IntValue(i int32) Value    { return Value{Kind: KindInt, intV: int64(i)} }
func LongValue(i int64) Value   { return Value{Kind: KindLong, intV: i} }
func FloatValue(f float32) Value { return Value{Kind: KindFloat, floatV: float64(f)} }
func DoubleValue(f float64) Value { return Value{Kind: KindDouble, floatV: f} }
func StringValue(s string) Value { return Value{Kind: KindString, strV: s} }
func BytesValue(b []byte) Value { return Value{Kind: KindBytes, bytesV: b} }
func FixedValue(b []byte) Value { return Value{Kind: KindFixed, bytesV: b} }
func DecimalValue(r *big.Rat) Value { return Value{Kind: KindDecimal, decimal: r} }

// DateValue holds a DATE as days-since-epoch.
func DateValue(daysSinceEpoch int64) Value { return Value{Kind: KindDate, intV: daysSinceEpoch} }

// TimestampValue holds a TIMESTAMP (UTC) or TIMESTAMP_NTZ as the schema's
// declared precision unit since epoch (micros or millis — see FieldMeta).
func TimestampValue(units int64, ntz bool) Value {
	k := KindTimestamp
	if ntz {
		k = KindTimestampNTZ
	}
	return Value{Kind: k, intV: units}
}

func EnumValue(name string, ordinal int32) Value {
	return Value{Kind: KindEnum, strV: name, intV: int64(ordinal)}
}

func (v Value) Bool() bool         { return v.boolV }
func (v Value) Int() int64         { return v.intV }
func (v Value) Float() float64     { return v.floatV }
func (v Value) String() string {
	switch v.Kind {
	case KindString, KindEnum:
		return v.strV
	case KindBytes, KindFixed:
		return string(v.bytesV)
	case KindDecimal:
		if v.decimal == nil {
			return ""
		}
		return v.decimal.RatString()
	default:
		return fmt.Sprintf("%v", v.intV)
	}
}
func (v Value) Bytes() []byte      { return v.bytesV }
func (v Value) Decimal() *big.Rat  { return v.decimal }

// Compare returns -1, 0, 1 as v is less than, equal to, or greater than o.
// Both values must share the same Kind; Compare panics otherwise, since the
// canonical model never mixes kinds within one column's Range.
func (v Value) Compare(o Value) int {
	if v.Kind != o.Kind {
		panic(fmt.Sprintf("model: cannot compare Value kinds %s and %s", v.Kind, o.Kind))
	}
	switch v.Kind {
	case KindBool:
		return boolCompare(v.boolV, o.boolV)
	case KindInt, KindLong, KindDate, KindTimestamp, KindTimestampNTZ:
		return int64Compare(v.intV, o.intV)
	case KindFloat, KindDouble:
		return float64Compare(v.floatV, o.floatV)
	case KindString, KindEnum:
		return stringCompare(v.strV, o.strV)
	case KindBytes, KindFixed:
		return bytesCompare(v.bytesV, o.bytesV)
	case KindDecimal:
		return v.decimal.Cmp(o.decimal)
	default:
		panic(fmt.Sprintf("model: value kind %s is not orderable", v.Kind))
	}
}

func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	if v.Kind == KindDecimal {
		if v.decimal == nil || o.decimal == nil {
			return v.decimal == o.decimal
		}
		return v.decimal.Cmp(o.decimal) == 0
	}
	return v.Compare(o) == 0
}

func boolCompare(a, b bool) int {
	if a == b {
		return 0
	}
	if !a {
		return -1
	}
	return 1
}

func int64Compare(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func float64Compare(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func stringCompare(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func bytesCompare(a, b []byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	return int64Compare(int64(len(a)), int64(len(b)))
}

// epoch is the reference instant DATE and TIMESTAMP units are counted from.
var epoch = time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)
