package models

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"time"
)

// ValueKind is the semantic type a cell's style assigns to its numeric payload.
type ValueKind int

const (
	General ValueKind = iota
	Number
	Integer
	DateTime
	Date
	Time
	Percentage
	Text
	Boolean
)

var kindNames = [...]string{
	General:    "general",
	Number:     "number",
	Integer:    "integer",
	DateTime:   "datetime",
	Date:       "date",
	Time:       "time",
	Percentage: "percentage",
	Text:       "text",
	Boolean:    "boolean",
}

func (k ValueKind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "ValueKind(" + strconv.Itoa(int(k)) + ")"
	}
	return kindNames[k]
}

// IsTemporal reports whether numbers of this kind are serial dates.
func (k ValueKind) IsTemporal() bool {
	return k == DateTime || k == Date || k == Time
}

// DateEpoch selects the origin of serial date numbers for a workbook.
type DateEpoch int

const (
	// Epoch1900 counts days from 1899-12-30 (with the historical 1900 leap
	// day quirk below serial 60).
	Epoch1900 DateEpoch = iota
	// Epoch1904 counts days from 1904-01-01.
	Epoch1904
)

func (e DateEpoch) String() string {
	if e == Epoch1904 {
		return "1904"
	}
	return "1900"
}

// Tag identifies which variant a Value holds.
type Tag uint8

const (
	NullTag Tag = iota
	StringTag
	IntegerTag
	FloatTag
	BoolTag
	DateTag
	DateTimeTag
	TimeTag
	ErrorTag
)

var tagNames = [...]string{"null", "string", "integer", "float", "bool", "date", "datetime", "time", "error"}

func (t Tag) String() string {
	if int(t) >= len(tagNames) {
		return "Tag(" + strconv.Itoa(int(t)) + ")"
	}
	return tagNames[t]
}

// Layouts used when temporal values are rendered as text.
const (
	DateLayout     = "2006-01-02"
	DateTimeLayout = "2006-01-02T15:04:05.999"
	TimeLayout     = "15:04:05.999"
)

// Value is a resolved cell value. The zero Value is Null.
//
// Temporal values carry a wall clock time in UTC; Date values have a zero
// clock and Time values sit on 0001-01-01.
type Value struct {
	tag Tag
	s   string
	i   int64
	f   float64
	t   time.Time
}

// Null is the empty value.
var Null = Value{}

func StringValue(s string) Value { return Value{tag: StringTag, s: s} }
func IntegerValue(i int64) Value { return Value{tag: IntegerTag, i: i} }
func FloatValue(f float64) Value { return Value{tag: FloatTag, f: f} }
func ErrorValue(token string) Value { return Value{tag: ErrorTag, s: token} }

func BoolValue(b bool) Value {
	v := Value{tag: BoolTag}
	if b {
		v.i = 1
	}
	return v
}

// DateValue keeps only the calendar day of t.
func DateValue(t time.Time) Value {
	y, m, d := t.Date()
	return Value{tag: DateTag, t: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

func DateTimeValue(t time.Time) Value {
	return Value{tag: DateTimeTag, t: t.UTC()}
}

// TimeValue keeps only the clock of t.
func TimeValue(t time.Time) Value {
	return Value{tag: TimeTag, t: time.Date(1, 1, 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)}
}

// maxExactInt is the largest magnitude below which every integer is exactly
// representable as a float64.
const maxExactInt = 1 << 53

// NumberValue returns an Integer when f has no fractional part and fits the
// exactly representable range, otherwise a Float.
func NumberValue(f float64) Value {
	if f == math.Trunc(f) && math.Abs(f) <= maxExactInt {
		return IntegerValue(int64(f))
	}
	return FloatValue(f)
}

func (v Value) Tag() Tag { return v.tag }
func (v Value) IsNull() bool { return v.tag == NullTag }
func (v Value) IsError() bool { return v.tag == ErrorTag }

// Str returns the text of a String or the token of an Error value.
func (v Value) Str() (string, bool) {
	if v.tag == StringTag || v.tag == ErrorTag {
		return v.s, true
	}
	return "", false
}

func (v Value) Int() (int64, bool) { return v.i, v.tag == IntegerTag }

// Float returns the numeric value of Integer and Float values.
func (v Value) Float() (float64, bool) {
	switch v.tag {
	case FloatTag:
		return v.f, true
	case IntegerTag:
		return float64(v.i), true
	}
	return 0, false
}

func (v Value) Bool() (bool, bool) { return v.i != 0, v.tag == BoolTag }

// Time returns the instant held by Date, DateTime and Time values.
func (v Value) Time() (time.Time, bool) {
	switch v.tag {
	case DateTag, DateTimeTag, TimeTag:
		return v.t, true
	}
	return time.Time{}, false
}

// String renders v the way text-based writers print it: ISO-8601 for
// temporal values, integers without a decimal point and the shortest
// round-tripping form for floats. Null renders as "".
func (v Value) String() string {
	switch v.tag {
	case StringTag, ErrorTag:
		return v.s
	case IntegerTag:
		return strconv.FormatInt(v.i, 10)
	case FloatTag:
		return strconv.FormatFloat(v.f, 'f', -1, 64)
	case BoolTag:
		return strconv.FormatBool(v.i != 0)
	case DateTag:
		return v.t.Format(DateLayout)
	case DateTimeTag:
		return v.t.Format(DateTimeLayout)
	case TimeTag:
		return v.t.Format(TimeLayout)
	}
	return ""
}

// Interface returns v as a plain Go value: nil, string, int64, float64,
// bool or time.Time. Error values return their token.
func (v Value) Interface() any {
	switch v.tag {
	case StringTag, ErrorTag:
		return v.s
	case IntegerTag:
		return v.i
	case FloatTag:
		return v.f
	case BoolTag:
		return v.i != 0
	case DateTag, DateTimeTag, TimeTag:
		return v.t
	}
	return nil
}

// MarshalJSON encodes temporal values as ISO-8601 strings and keeps the
// integer/float distinction. Non-finite floats become null.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.tag {
	case NullTag:
		return []byte("null"), nil
	case IntegerTag:
		return strconv.AppendInt(nil, v.i, 10), nil
	case FloatTag:
		if math.IsInf(v.f, 0) || math.IsNaN(v.f) {
			return []byte("null"), nil
		}
		b := strconv.AppendFloat(nil, v.f, 'f', -1, 64)
		if v.f == math.Trunc(v.f) {
			b = append(b, ".0"...)
		}
		return b, nil
	case BoolTag:
		return strconv.AppendBool(nil, v.i != 0), nil
	}
	return marshalString(v.String())
}

// marshalString encodes s as a JSON string, leaving <, > and & alone.
func marshalString(s string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}
