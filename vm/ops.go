package vm

import (
	"math"
	"strconv"
	"strings"
)

// ---------------------------------------------------------------------------
// Numeric coercion
// ---------------------------------------------------------------------------

// number is the arithmetic view of a Bool, Int or Float.
type number struct {
	i     int64
	f     float64
	float bool
}

func asNumber(v Value) (number, bool) {
	switch x := v.(type) {
	case Bool:
		if x {
			return number{i: 1}, true
		}
		return number{}, true
	case Int:
		return number{i: int64(x)}, true
	case Float:
		return number{f: float64(x), float: true}, true
	}
	return number{}, false
}

func (n number) toFloat() float64 {
	if n.float {
		return n.f
	}
	return float64(n.i)
}

var opSymbols = map[Opcode]string{
	OpBinaryAdd:      "+",
	OpBinarySubtract: "-",
	OpBinaryMultiply: "*",
	OpBinaryDivide:   "/",
	OpBinaryFloorDiv: "//",
	OpBinaryModulo:   "%",
	OpBinaryPower:    "** or pow()",
	OpBinaryAnd:      "&",
	OpBinaryOr:       "|",
	OpBinaryXor:      "^",
	OpBinaryLShift:   "<<",
	OpBinaryRShift:   ">>",
	OpUnaryPositive:  "unary +",
	OpUnaryNegative:  "unary -",
	OpUnaryInvert:    "unary ~",
}

func unsupported(op Opcode, left, right Value) error {
	return newError(ErrType, "unsupported operand type(s) for %s: '%s' and '%s'",
		opSymbols[op], left.Kind(), right.Kind())
}

// ---------------------------------------------------------------------------
// Binary operators
// ---------------------------------------------------------------------------

// BinaryOp applies the binary operator selected by op to left and right.
// op must be one of the BINARY_* opcodes; anything else panics.
func BinaryOp(op Opcode, left, right Value) (Value, error) {
	if !op.IsBinary() {
		panic("vm: BinaryOp called with " + op.String())
	}
	ln, lok := asNumber(left)
	rn, rok := asNumber(right)
	if lok && rok {
		if op.IsBitwise() {
			if ln.float || rn.float {
				return nil, unsupported(op, left, right)
			}
			return intBitwise(op, left, right, ln.i, rn.i)
		}
		if ln.float || rn.float {
			return floatArith(op, ln.toFloat(), rn.toFloat())
		}
		return intArith(op, ln.i, rn.i)
	}
	return seqArith(op, left, right)
}

func intArith(op Opcode, a, b int64) (Value, error) {
	switch op {
	case OpBinaryAdd:
		return Int(a + b), nil
	case OpBinarySubtract:
		return Int(a - b), nil
	case OpBinaryMultiply:
		return Int(a * b), nil
	case OpBinaryDivide:
		if b == 0 {
			return nil, newError(ErrZeroDivision, "division by zero")
		}
		return Float(float64(a) / float64(b)), nil
	case OpBinaryFloorDiv:
		if b == 0 {
			return nil, newError(ErrZeroDivision, "integer division or modulo by zero")
		}
		return Int(floorDiv(a, b)), nil
	case OpBinaryModulo:
		if b == 0 {
			return nil, newError(ErrZeroDivision, "integer modulo by zero")
		}
		return Int(floorMod(a, b)), nil
	case OpBinaryPower:
		if b < 0 {
			if a == 0 {
				return nil, newError(ErrZeroDivision, "0.0 cannot be raised to a negative power")
			}
			return Float(math.Pow(float64(a), float64(b))), nil
		}
		return Int(ipow(a, b)), nil
	}
	panic("vm: unhandled integer operator " + op.String())
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}

func floorMod(a, b int64) int64 {
	m := a % b
	if m != 0 && (m < 0) != (b < 0) {
		m += b
	}
	return m
}

func ipow(base, exp int64) int64 {
	result := int64(1)
	for exp > 0 {
		if exp&1 == 1 {
			result *= base
		}
		base *= base
		exp >>= 1
	}
	return result
}

func floatArith(op Opcode, a, b float64) (Value, error) {
	switch op {
	case OpBinaryAdd:
		return Float(a + b), nil
	case OpBinarySubtract:
		return Float(a - b), nil
	case OpBinaryMultiply:
		return Float(a * b), nil
	case OpBinaryDivide:
		if b == 0 {
			return nil, newError(ErrZeroDivision, "float division by zero")
		}
		return Float(a / b), nil
	case OpBinaryFloorDiv:
		if b == 0 {
			return nil, newError(ErrZeroDivision, "float floor division by zero")
		}
		return Float(floatFloorDiv(a, b)), nil
	case OpBinaryModulo:
		if b == 0 {
			return nil, newError(ErrZeroDivision, "float modulo")
		}
		m := math.Mod(a, b)
		if m == 0 {
			return Float(math.Copysign(0, b)), nil
		}
		if (m < 0) != (b < 0) {
			m += b
		}
		return Float(m), nil
	case OpBinaryPower:
		if a == 0 && b < 0 {
			return nil, newError(ErrZeroDivision, "0.0 cannot be raised to a negative power")
		}
		if a < 0 && b != math.Trunc(b) {
			return nil, newError(ErrValue, "math domain error")
		}
		return Float(math.Pow(a, b)), nil
	}
	panic("vm: unhandled float operator " + op.String())
}

// floatFloorDiv derives the quotient from the remainder so that
// q*b + a%b stays as close to a as the operands allow.
func floatFloorDiv(a, b float64) float64 {
	mod := math.Mod(a, b)
	div := (a - mod) / b
	if mod != 0 && (mod < 0) != (b < 0) {
		div--
	}
	if div == 0 {
		return math.Copysign(0, a/b)
	}
	q := math.Floor(div)
	if div-q > 0.5 {
		q++
	}
	return q
}

func intBitwise(op Opcode, left, right Value, a, b int64) (Value, error) {
	lb, lbool := left.(Bool)
	rb, rbool := right.(Bool)
	switch op {
	case OpBinaryAnd:
		if lbool && rbool {
			return lb && rb, nil
		}
		return Int(a & b), nil
	case OpBinaryOr:
		if lbool && rbool {
			return lb || rb, nil
		}
		return Int(a | b), nil
	case OpBinaryXor:
		if lbool && rbool {
			return Bool(lb != rb), nil
		}
		return Int(a ^ b), nil
	case OpBinaryLShift:
		if b < 0 {
			return nil, newError(ErrValue, "negative shift count")
		}
		if b >= 64 {
			return Int(0), nil
		}
		return Int(a << uint(b)), nil
	case OpBinaryRShift:
		if b < 0 {
			return nil, newError(ErrValue, "negative shift count")
		}
		if b >= 64 {
			if a < 0 {
				return Int(-1), nil
			}
			return Int(0), nil
		}
		return Int(a >> uint(b)), nil
	}
	panic("vm: unhandled bitwise operator " + op.String())
}

// seqArith covers the non-numeric operand combinations: concatenation,
// repetition and printf-style string formatting.
func seqArith(op Opcode, left, right Value) (Value, error) {
	switch op {
	case OpBinaryAdd:
		switch l := left.(type) {
		case Str:
			if r, ok := right.(Str); ok {
				return l + r, nil
			}
		case *List:
			if r, ok := right.(*List); ok {
				return NewList(concat(l.Items, r.Items)...), nil
			}
		case Tuple:
			if r, ok := right.(Tuple); ok {
				return Tuple(concat(l, r)), nil
			}
		}
	case OpBinaryMultiply:
		if n, ok := asNumber(right); ok && !n.float {
			if v, ok, err := repeat(left, n.i); ok {
				return v, err
			}
		}
		if n, ok := asNumber(left); ok && !n.float {
			if v, ok, err := repeat(right, n.i); ok {
				return v, err
			}
		}
	case OpBinaryModulo:
		if l, ok := left.(Str); ok {
			return formatPercent(string(l), right)
		}
	}
	return nil, unsupported(op, left, right)
}

func concat(a, b []Value) []Value {
	out := make([]Value, 0, len(a)+len(b))
	out = append(out, a...)
	return append(out, b...)
}

const maxRepeatLen = 1 << 28

// repeat reports ok=false when seq is not a repeatable sequence.
func repeat(seq Value, n int64) (Value, bool, error) {
	if n < 0 {
		n = 0
	}
	var size int
	switch s := seq.(type) {
	case Str:
		size = len(s)
	case *List:
		size = len(s.Items)
	case Tuple:
		size = len(s)
	default:
		return nil, false, nil
	}
	if size > 0 && n > int64(maxRepeatLen/size) {
		return nil, true, newError(ErrValue, "repeated sequence is too long")
	}
	switch s := seq.(type) {
	case Str:
		return Str(strings.Repeat(string(s), int(n))), true, nil
	case *List:
		return NewList(repeatItems(s.Items, int(n))...), true, nil
	default:
		return Tuple(repeatItems(seq.(Tuple), int(n))), true, nil
	}
}

func repeatItems(items []Value, n int) []Value {
	out := make([]Value, 0, len(items)*n)
	for i := 0; i < n; i++ {
		out = append(out, items...)
	}
	return out
}

// formatPercent implements `format % arg` for the conversions %s %r %d %i
// %f (with optional .N precision) and the %% escape. A Tuple argument
// supplies one value per conversion.
func formatPercent(format string, arg Value) (Value, error) {
	args := []Value{arg}
	if t, ok := arg.(Tuple); ok {
		args = t
	}
	var sb strings.Builder
	next := 0
	for i := 0; i < len(format); i++ {
		c := format[i]
		if c != '%' {
			sb.WriteByte(c)
			continue
		}
		i++
		prec := -1
		if i < len(format) && format[i] == '.' {
			j := i + 1
			for j < len(format) && format[j] >= '0' && format[j] <= '9' {
				j++
			}
			prec, _ = strconv.Atoi(format[i+1 : j])
			i = j
		}
		if i >= len(format) {
			return nil, newError(ErrValue, "incomplete format")
		}
		verb := format[i]
		if verb == '%' {
			sb.WriteByte('%')
			continue
		}
		if next >= len(args) {
			return nil, newError(ErrType, "not enough arguments for format string")
		}
		a := args[next]
		next++
		switch verb {
		case 's':
			sb.WriteString(Display(a))
		case 'r':
			sb.WriteString(Repr(a))
		case 'd', 'i':
			n, ok := asNumber(a)
			if !ok {
				return nil, newError(ErrType, "%%%c format: a real number is required, not %s", verb, a.Kind())
			}
			if n.float {
				n.i = int64(math.Trunc(n.f))
			}
			sb.WriteString(strconv.FormatInt(n.i, 10))
		case 'f':
			n, ok := asNumber(a)
			if !ok {
				return nil, newError(ErrType, "must be real number, not %s", a.Kind())
			}
			if prec < 0 {
				prec = 6
			}
			sb.WriteString(strconv.FormatFloat(n.toFloat(), 'f', prec, 64))
		default:
			return nil, newError(ErrValue, "unsupported format character '%c' (0x%x) at index %d", verb, verb, i)
		}
	}
	if next < len(args) {
		return nil, newError(ErrType, "not all arguments converted during string formatting")
	}
	return Str(sb.String()), nil
}

// ---------------------------------------------------------------------------
// Unary operators
// ---------------------------------------------------------------------------

// UnaryOp applies the unary operator selected by op to operand.
func UnaryOp(op Opcode, operand Value) (Value, error) {
	if op == OpUnaryNot {
		return Bool(!Truthy(operand)), nil
	}
	n, ok := asNumber(operand)
	if !ok || (op == OpUnaryInvert && n.float) {
		return nil, newError(ErrType, "bad operand type for %s: '%s'", opSymbols[op], operand.Kind())
	}
	switch op {
	case OpUnaryPositive:
		if n.float {
			return Float(n.f), nil
		}
		return Int(n.i), nil
	case OpUnaryNegative:
		if n.float {
			return Float(-n.f), nil
		}
		return Int(-n.i), nil
	case OpUnaryInvert:
		return Int(^n.i), nil
	}
	panic("vm: UnaryOp called with " + op.String())
}

// Truthy reports the truth value of v: None, False, zero numbers and empty
// containers are false.
func Truthy(v Value) bool {
	switch x := v.(type) {
	case NoneType:
		return false
	case Bool:
		return bool(x)
	case Int:
		return x != 0
	case Float:
		return x != 0
	case Str:
		return len(x) > 0
	case *List:
		return len(x.Items) > 0
	case Tuple:
		return len(x) > 0
	case *Set:
		return x.Len() > 0
	case *Dict:
		return x.Len() > 0
	}
	return true
}

// ---------------------------------------------------------------------------
// Subscription, iteration and calls
// ---------------------------------------------------------------------------

// Index returns container[index].
func Index(container, index Value) (Value, error) {
	if d, ok := container.(*Dict); ok {
		v, found, err := d.Get(index)
		if err != nil {
			return nil, err
		}
		if !found {
			return nil, newError(ErrKey, "%s", Repr(index))
		}
		return v, nil
	}

	var items []Value
	switch c := container.(type) {
	case *List:
		items = c.Items
	case Tuple:
		items = c
	case Str:
		runes := []rune(string(c))
		i, err := seqIndex(container, index, len(runes))
		if err != nil {
			return nil, err
		}
		return Str(string(runes[i])), nil
	default:
		return nil, newError(ErrType, "'%s' object is not subscriptable", container.Kind())
	}
	i, err := seqIndex(container, index, len(items))
	if err != nil {
		return nil, err
	}
	return items[i], nil
}

func seqIndex(container, index Value, length int) (int, error) {
	n, ok := asNumber(index)
	if !ok || n.float {
		return 0, newError(ErrType, "%s indices must be integers, not %s", container.Kind(), index.Kind())
	}
	i := n.i
	if i < 0 {
		i += int64(length)
	}
	if i < 0 || i >= int64(length) {
		return 0, newError(ErrIndex, "%s index out of range", container.Kind())
	}
	return int(i), nil
}

// Iterate returns a fresh iterator over v. Lists are walked live so that
// elements appended during the loop are visited; sets and dicts are
// snapshotted.
func Iterate(v Value) (*Iterator, error) {
	switch x := v.(type) {
	case *Iterator:
		return x, nil
	case *List:
		i := 0
		return &Iterator{next: func() (Value, bool) {
			if i >= len(x.Items) {
				return nil, false
			}
			i++
			return x.Items[i-1], true
		}}, nil
	case Tuple:
		return sliceIterator(x), nil
	case Str:
		runes := []rune(string(x))
		items := make([]Value, len(runes))
		for i, r := range runes {
			items[i] = Str(string(r))
		}
		return sliceIterator(items), nil
	case *Set:
		return sliceIterator(x.Items()), nil
	case *Dict:
		return sliceIterator(x.Keys()), nil
	}
	return nil, newError(ErrType, "'%s' object is not iterable", v.Kind())
}

func sliceIterator(items []Value) *Iterator {
	i := 0
	return &Iterator{next: func() (Value, bool) {
		if i >= len(items) {
			return nil, false
		}
		i++
		return items[i-1], true
	}}
}

// Call invokes callee with args in order. A builtin that returns a nil
// Value yields None.
func Call(callee Value, args []Value) (Value, error) {
	b, ok := callee.(*Builtin)
	if !ok {
		return nil, newError(ErrType, "'%s' object is not callable", callee.Kind())
	}
	res, err := b.Fn(args)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return None, nil
	}
	return res, nil
}
