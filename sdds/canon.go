package sdds

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ============================================================
// Canonical Scalar Encoding (ASCII mode and header values)
// ============================================================

// formatDouble returns the shortest representation that parses back to the
// identical float64. NaN and infinities use the lowercase spellings that
// strconv.ParseFloat accepts.
func formatDouble(f float64) string {
	switch {
	case math.IsNaN(f):
		return "nan"
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// formatFloat is formatDouble at 32-bit precision.
func formatFloat(f float32) string {
	switch {
	case math.IsNaN(float64(f)):
		return "nan"
	case math.IsInf(float64(f), 1):
		return "inf"
	case math.IsInf(float64(f), -1):
		return "-inf"
	}
	return strconv.FormatFloat(float64(f), 'g', -1, 32)
}

// formatValue returns the ASCII token for a value, quoting strings and
// characters that would not survive whitespace splitting.
func formatValue(v Value) string {
	switch v.typ {
	case TypeDouble:
		return formatDouble(v.f)
	case TypeFloat:
		return formatFloat(float32(v.f))
	case TypeLong, TypeShort:
		return strconv.FormatInt(v.i, 10)
	case TypeCharacter:
		return maybeQuote(string(v.ch))
	case TypeString:
		return maybeQuote(v.s)
	case TypeBoolean:
		if v.b {
			return "1"
		}
		return "0"
	}
	return ""
}

// rawToken returns the value's token without quoting, for callers that
// apply their own quoting.
func rawToken(v Value) string {
	switch v.typ {
	case TypeCharacter:
		return string(v.ch)
	case TypeString:
		return v.s
	}
	return formatValue(v)
}

// parseScalar converts one unquoted token to a value of the given type.
func parseScalar(s string, typ Type) (Value, error) {
	switch typ {
	case TypeDouble:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return Value{}, fmt.Errorf("invalid double literal %q", s)
		}
		return Double(f), nil
	case TypeFloat:
		f, err := strconv.ParseFloat(s, 32)
		if err != nil {
			return Value{}, fmt.Errorf("invalid float literal %q", s)
		}
		return Float(float32(f)), nil
	case TypeLong:
		n, err := strconv.ParseInt(s, 10, 32)
		if err != nil {
			return Value{}, fmt.Errorf("invalid long literal %q", s)
		}
		return Long(int32(n)), nil
	case TypeShort:
		n, err := strconv.ParseInt(s, 10, 16)
		if err != nil {
			return Value{}, fmt.Errorf("invalid short literal %q", s)
		}
		return Short(int16(n)), nil
	case TypeCharacter:
		if len(s) != 1 {
			return Value{}, fmt.Errorf("invalid character literal %q", s)
		}
		return Char(s[0]), nil
	case TypeString:
		return Str(s), nil
	case TypeBoolean:
		switch strings.ToLower(s) {
		case "1", "t", "true":
			return Bool(true), nil
		case "0", "f", "false":
			return Bool(false), nil
		}
		return Value{}, fmt.Errorf("invalid boolean literal %q", s)
	}
	return Value{}, fmt.Errorf("invalid type %d", typ)
}

// ============================================================
// Quoting
// ============================================================

// bareSafe reports whether s can appear unquoted in a header value or an
// ASCII data token.
func bareSafe(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case ' ', '\t', '\n', '\r', ',', '"', '\\', '&', '!', '=':
			return false
		}
	}
	return true
}

// maybeQuote returns s unchanged when bare-safe, quoted otherwise.
func maybeQuote(s string) string {
	if bareSafe(s) {
		return s
	}
	return quoteScalar(s)
}

// quoteScalar wraps s in double quotes with minimal escapes. Only the
// backslash and the quote itself are escaped; all other bytes pass through.
func quoteScalar(s string) string {
	var sb strings.Builder
	sb.Grow(len(s) + 2)
	sb.WriteByte('"')
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '"', '\\':
			sb.WriteByte('\\')
		}
		sb.WriteByte(s[i])
	}
	sb.WriteByte('"')
	return sb.String()
}
