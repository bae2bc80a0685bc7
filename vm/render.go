package vm

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
)

// Display renders v the way the echo instruction and print show it: strings
// appear bare, everything else as its repr.
func Display(v Value) string {
	if s, ok := v.(Str); ok {
		return string(s)
	}
	return Repr(v)
}

// Repr renders v in source-literal form. Elements of containers always use
// this form.
func Repr(v Value) string {
	var sb strings.Builder
	writeRepr(&sb, v)
	return sb.String()
}

func writeRepr(sb *strings.Builder, v Value) {
	switch x := v.(type) {
	case NoneType:
		sb.WriteString("None")
	case Bool:
		if x {
			sb.WriteString("True")
		} else {
			sb.WriteString("False")
		}
	case Int:
		sb.WriteString(strconv.FormatInt(int64(x), 10))
	case Float:
		sb.WriteString(formatFloat(float64(x)))
	case Str:
		writeQuoted(sb, string(x))
	case *List:
		writeSeq(sb, "[", "]", x.Items)
	case Tuple:
		if len(x) == 1 {
			sb.WriteByte('(')
			writeRepr(sb, x[0])
			sb.WriteString(",)")
			return
		}
		writeSeq(sb, "(", ")", x)
	case *Set:
		if x.Len() == 0 {
			sb.WriteString("set()")
			return
		}
		writeSeq(sb, "{", "}", x.Items())
	case *Dict:
		sb.WriteByte('{')
		first := true
		x.Each(func(k, val Value) {
			if !first {
				sb.WriteString(", ")
			}
			first = false
			writeRepr(sb, k)
			sb.WriteString(": ")
			writeRepr(sb, val)
		})
		sb.WriteByte('}')
	case *Builtin:
		sb.WriteString("<built-in function ")
		sb.WriteString(x.Name)
		sb.WriteByte('>')
	case *Iterator:
		sb.WriteString("<iterator>")
	default:
		panic("vm: cannot render value of unknown kind")
	}
}

func writeSeq(sb *strings.Builder, open, close string, items []Value) {
	sb.WriteString(open)
	for i, it := range items {
		if i > 0 {
			sb.WriteString(", ")
		}
		writeRepr(sb, it)
	}
	sb.WriteString(close)
}

// writeQuoted prefers single quotes and switches to double quotes only when
// the text contains a single quote and no double quote.
func writeQuoted(sb *strings.Builder, s string) {
	quote := byte('\'')
	if strings.IndexByte(s, '\'') >= 0 && strings.IndexByte(s, '"') < 0 {
		quote = '"'
	}
	sb.WriteByte(quote)
	for _, r := range s {
		switch {
		case r == '\\':
			sb.WriteString(`\\`)
		case r == rune(quote):
			sb.WriteByte('\\')
			sb.WriteByte(quote)
		case r == '\n':
			sb.WriteString(`\n`)
		case r == '\r':
			sb.WriteString(`\r`)
		case r == '\t':
			sb.WriteString(`\t`)
		case !unicode.IsPrint(r):
			writeEscape(sb, r)
		default:
			sb.WriteRune(r)
		}
	}
	sb.WriteByte(quote)
}

// writeEscape uses the shortest of \xHH, \uHHHH and \UHHHHHHHH that
// holds r.
func writeEscape(sb *strings.Builder, r rune) {
	switch {
	case r < 0x100:
		fmt.Fprintf(sb, `\x%02x`, r)
	case r < 0x10000:
		fmt.Fprintf(sb, `\u%04x`, r)
	default:
		fmt.Fprintf(sb, `\U%08x`, r)
	}
}

// formatFloat uses positional notation for decimal exponents in [-4, 16)
// and scientific notation otherwise, always showing a fractional part in
// the positional form.
func formatFloat(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	case math.IsNaN(f):
		return "nan"
	case f == 0:
		if math.Signbit(f) {
			return "-0.0"
		}
		return "0.0"
	}
	sci := strconv.FormatFloat(f, 'e', -1, 64)
	exp, _ := strconv.Atoi(sci[strings.IndexByte(sci, 'e')+1:])
	if exp < -4 || exp >= 16 {
		return sci
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.ContainsRune(s, '.') {
		s += ".0"
	}
	return s
}
