package sdds

import (
	"fmt"
	"math"
)

// Type identifies one of the SDDS scalar types.
type Type uint8

const (
	TypeInvalid Type = iota
	TypeDouble       // 64-bit IEEE-754
	TypeFloat        // 32-bit IEEE-754
	TypeLong         // 32-bit signed integer
	TypeShort        // 16-bit signed integer
	TypeCharacter    // single byte
	TypeString       // length-prefixed byte string
	TypeBoolean      // 32-bit integer, 0 or 1 canonical
)

// String returns the SDDS type name.
func (t Type) String() string {
	switch t {
	case TypeDouble:
		return "double"
	case TypeFloat:
		return "float"
	case TypeLong:
		return "long"
	case TypeShort:
		return "short"
	case TypeCharacter:
		return "character"
	case TypeString:
		return "string"
	case TypeBoolean:
		return "boolean"
	default:
		return "invalid"
	}
}

// ParseType maps an SDDS type name to its Type.
func ParseType(s string) (Type, error) {
	switch s {
	case "double":
		return TypeDouble, nil
	case "float":
		return TypeFloat, nil
	case "long":
		return TypeLong, nil
	case "short":
		return TypeShort, nil
	case "character":
		return TypeCharacter, nil
	case "string":
		return TypeString, nil
	case "boolean":
		return TypeBoolean, nil
	}
	return TypeInvalid, fmt.Errorf("%w: %q", ErrUnknownFieldType, s)
}

// Size returns the encoded width in bytes for binary mode, or -1 for
// variable-width types.
func (t Type) Size() int {
	switch t {
	case TypeDouble:
		return 8
	case TypeFloat, TypeLong, TypeBoolean:
		return 4
	case TypeShort:
		return 2
	case TypeCharacter:
		return 1
	default:
		return -1
	}
}

// Value is a single SDDS scalar. The zero Value is invalid; build values
// with the typed constructors.
type Value struct {
	typ Type

	// Scalar payload (only one valid based on typ). Floats and doubles
	// share f; float32 payloads survive the widening exactly.
	f  float64
	i  int64
	ch byte
	b  bool
	s  string
}

// ============================================================
// Constructors
// ============================================================

// Double creates a double value.
func Double(v float64) Value {
	return Value{typ: TypeDouble, f: v}
}

// Float creates a float value.
func Float(v float32) Value {
	return Value{typ: TypeFloat, f: float64(v)}
}

// Long creates a long value.
func Long(v int32) Value {
	return Value{typ: TypeLong, i: int64(v)}
}

// Short creates a short value.
func Short(v int16) Value {
	return Value{typ: TypeShort, i: int64(v)}
}

// Char creates a character value.
func Char(v byte) Value {
	return Value{typ: TypeCharacter, ch: v}
}

// Str creates a string value.
func Str(v string) Value {
	return Value{typ: TypeString, s: v}
}

// Bool creates a boolean value.
func Bool(v bool) Value {
	return Value{typ: TypeBoolean, b: v}
}

// ============================================================
// Accessors
// ============================================================

// Type returns the value's type, TypeInvalid for the zero Value.
func (v Value) Type() Type {
	return v.typ
}

// IsValid reports whether the value was built by a constructor.
func (v Value) IsValid() bool {
	return v.typ != TypeInvalid
}

// AsDouble returns the float64 payload.
func (v Value) AsDouble() (float64, error) {
	if v.typ != TypeDouble {
		return 0, fmt.Errorf("sdds: expected double, got %s", v.typ)
	}
	return v.f, nil
}

// AsFloat returns the float32 payload.
func (v Value) AsFloat() (float32, error) {
	if v.typ != TypeFloat {
		return 0, fmt.Errorf("sdds: expected float, got %s", v.typ)
	}
	return float32(v.f), nil
}

// AsLong returns the int32 payload.
func (v Value) AsLong() (int32, error) {
	if v.typ != TypeLong {
		return 0, fmt.Errorf("sdds: expected long, got %s", v.typ)
	}
	return int32(v.i), nil
}

// AsShort returns the int16 payload.
func (v Value) AsShort() (int16, error) {
	if v.typ != TypeShort {
		return 0, fmt.Errorf("sdds: expected short, got %s", v.typ)
	}
	return int16(v.i), nil
}

// AsChar returns the character payload.
func (v Value) AsChar() (byte, error) {
	if v.typ != TypeCharacter {
		return 0, fmt.Errorf("sdds: expected character, got %s", v.typ)
	}
	return v.ch, nil
}

// AsStr returns the string payload.
func (v Value) AsStr() (string, error) {
	if v.typ != TypeString {
		return "", fmt.Errorf("sdds: expected string, got %s", v.typ)
	}
	return v.s, nil
}

// AsBool returns the boolean payload.
func (v Value) AsBool() (bool, error) {
	if v.typ != TypeBoolean {
		return false, fmt.Errorf("sdds: expected boolean, got %s", v.typ)
	}
	return v.b, nil
}

// Float64 coerces any numeric value to float64.
func (v Value) Float64() (float64, bool) {
	switch v.typ {
	case TypeDouble, TypeFloat:
		return v.f, true
	case TypeLong, TypeShort:
		return float64(v.i), true
	}
	return 0, false
}

// Int64 coerces any integer value to int64.
func (v Value) Int64() (int64, bool) {
	switch v.typ {
	case TypeLong, TypeShort:
		return v.i, true
	}
	return 0, false
}

// Equal reports whether two values have the same type and payload.
// Floating-point payloads are compared bit for bit, so NaN equals NaN and
// negative zero stays distinct from zero.
func (v Value) Equal(o Value) bool {
	if v.typ != o.typ {
		return false
	}
	switch v.typ {
	case TypeDouble:
		return math.Float64bits(v.f) == math.Float64bits(o.f)
	case TypeFloat:
		return math.Float32bits(float32(v.f)) == math.Float32bits(float32(o.f))
	case TypeLong, TypeShort:
		return v.i == o.i
	case TypeCharacter:
		return v.ch == o.ch
	case TypeString:
		return v.s == o.s
	case TypeBoolean:
		return v.b == o.b
	}
	return true
}

// String returns a debug representation such as double(3.14).
func (v Value) String() string {
	switch v.typ {
	case TypeDouble:
		return fmt.Sprintf("double(%s)", formatDouble(v.f))
	case TypeFloat:
		return fmt.Sprintf("float(%s)", formatFloat(float32(v.f)))
	case TypeLong:
		return fmt.Sprintf("long(%d)", v.i)
	case TypeShort:
		return fmt.Sprintf("short(%d)", v.i)
	case TypeCharacter:
		return fmt.Sprintf("character(%q)", v.ch)
	case TypeString:
		return fmt.Sprintf("string(%q)", v.s)
	case TypeBoolean:
		return fmt.Sprintf("boolean(%t)", v.b)
	default:
		return "invalid"
	}
}
