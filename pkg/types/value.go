// Package types provides core data types for Colport.
package types

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Kind identifies the logical type of a column or scalar value.
type Kind uint8

const (
	// KindNull is the absence of a value. It is only ever observed on
	// individual cells; inference never assigns it to a column.
	KindNull Kind = iota

	// KindBool is a boolean value.
	KindBool

	// KindInt is a 64-bit signed integer.
	KindInt

	// KindFloat is a double-precision floating-point value.
	KindFloat

	// KindString is an exact byte string.
	KindString

	// KindTime is an instant in time with nanosecond precision.
	KindTime
)

var kindNames = map[Kind]string{
	KindNull:   "null",
	KindBool:   "bool",
	KindInt:    "int",
	KindFloat:  "float",
	KindString: "string",
	KindTime:   "time",
}

// String returns the lowercase name of the kind.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// ParseKind converts a kind name back into a Kind.
func ParseKind(name string) (Kind, error) {
	for k, n := range kindNames {
		if n == name {
			return k, nil
		}
	}
	return KindNull, fmt.Errorf("types: unknown kind %q", name)
}

// MarshalJSON encodes the kind as its lowercase name.
func (k Kind) MarshalJSON() ([]byte, error) {
	name, ok := kindNames[k]
	if !ok {
		return nil, fmt.Errorf("types: cannot marshal kind %d", uint8(k))
	}
	return json.Marshal(name)
}

// UnmarshalJSON decodes a kind from its lowercase name.
func (k *Kind) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	parsed, err := ParseKind(name)
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Value is a tagged scalar cell. The zero value is the null value.
type Value struct {
	kind Kind
	b    bool
	i    int64
	f    float64
	s    string
	t    time.Time
}

// Null returns the null value.
func Null() Value {
	return Value{kind: KindNull}
}

// Bool returns a boolean value.
func Bool(b bool) Value {
	return Value{kind: KindBool, b: b}
}

// Int returns an integer value.
func Int(i int64) Value {
	return Value{kind: KindInt, i: i}
}

// Float returns a floating-point value.
func Float(f float64) Value {
	return Value{kind: KindFloat, f: f}
}

// String returns a string value.
func String(s string) Value {
	return Value{kind: KindString, s: s}
}

// Time returns a time value.
func Time(t time.Time) Value {
	return Value{kind: KindTime, t: t}
}

// Kind returns the kind tag of the value.
func (v Value) Kind() Kind {
	return v.kind
}

// IsNull reports whether the value is null.
func (v Value) IsNull() bool {
	return v.kind == KindNull
}

// BoolVal returns the boolean payload. Valid only when Kind is KindBool.
func (v Value) BoolVal() bool { return v.b }

// IntVal returns the integer payload. Valid only when Kind is KindInt.
func (v Value) IntVal() int64 { return v.i }

// FloatVal returns the float payload. Valid only when Kind is KindFloat.
func (v Value) FloatVal() float64 { return v.f }

// StringVal returns the string payload. Valid only when Kind is KindString.
func (v Value) StringVal() string { return v.s }

// TimeVal returns the time payload. Valid only when Kind is KindTime.
func (v Value) TimeVal() time.Time { return v.t }

// Equal reports whether two values have the same kind and payload.
// Times compare by instant, not by location.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindBool:
		return v.b == o.b
	case KindInt:
		return v.i == o.i
	case KindFloat:
		return v.f == o.f
	case KindString:
		return v.s == o.s
	case KindTime:
		return v.t.Equal(o.t)
	}
	return false
}

// Less reports whether v orders before o. Both values must share the same
// non-null kind; false bools order before true.
func (v Value) Less(o Value) bool {
	switch v.kind {
	case KindBool:
		return !v.b && o.b
	case KindInt:
		return v.i < o.i
	case KindFloat:
		return v.f < o.f
	case KindString:
		return v.s < o.s
	case KindTime:
		return v.t.Before(o.t)
	}
	return false
}

// Coerce widens the value to the target kind following the promotion order
// bool -> int -> float. Returns false when the value cannot represent the
// target kind; nulls coerce to any kind unchanged.
func Coerce(v Value, target Kind) (Value, bool) {
	if v.kind == KindNull || v.kind == target {
		return v, true
	}
	switch target {
	case KindInt:
		if v.kind == KindBool {
			if v.b {
				return Int(1), true
			}
			return Int(0), true
		}
	case KindFloat:
		switch v.kind {
		case KindBool:
			if v.b {
				return Float(1), true
			}
			return Float(0), true
		case KindInt:
			return Float(float64(v.i)), true
		}
	}
	return Value{}, false
}

// Format renders the value as a human-readable string for logs and
// catalog records. It must not be used to drive encoding decisions.
func (v Value) Format() string {
	switch v.kind {
	case KindNull:
		return "NULL"
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindString:
		return v.s
	case KindTime:
		return v.t.UTC().Format(time.RFC3339Nano)
	}
	return ""
}
