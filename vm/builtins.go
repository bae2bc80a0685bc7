package vm

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// DefaultBuiltins returns the standard builtin symbol table. print writes
// to w.
func DefaultBuiltins(w io.Writer) map[string]Value {
	table := map[string]Value{}
	register := func(name string, fn func(args []Value) (Value, error)) {
		table[name] = &Builtin{Name: name, Fn: fn}
	}

	register("print", func(args []Value) (Value, error) {
		parts := make([]string, len(args))
		for i, a := range args {
			parts[i] = Display(a)
		}
		if _, err := fmt.Fprintln(w, strings.Join(parts, " ")); err != nil {
			return nil, fmt.Errorf("print: %w", err)
		}
		return None, nil
	})
	register("len", builtinLen)
	register("str", func(args []Value) (Value, error) {
		if len(args) == 0 {
			return Str(""), nil
		}
		if err := arity("str", args, 1); err != nil {
			return nil, err
		}
		return Str(Display(args[0])), nil
	})
	register("repr", func(args []Value) (Value, error) {
		if err := arity("repr", args, 1); err != nil {
			return nil, err
		}
		return Str(Repr(args[0])), nil
	})
	register("bool", func(args []Value) (Value, error) {
		if len(args) == 0 {
			return False, nil
		}
		if err := arity("bool", args, 1); err != nil {
			return nil, err
		}
		return Bool(Truthy(args[0])), nil
	})
	register("int", builtinInt)
	register("float", builtinFloat)
	register("abs", func(args []Value) (Value, error) {
		if err := arity("abs", args, 1); err != nil {
			return nil, err
		}
		switch x := args[0].(type) {
		case Bool:
			if x {
				return Int(1), nil
			}
			return Int(0), nil
		case Int:
			if x < 0 {
				return -x, nil
			}
			return x, nil
		case Float:
			return Float(math.Abs(float64(x))), nil
		}
		return nil, newError(ErrType, "bad operand type for abs(): '%s'", args[0].Kind())
	})
	register("type", func(args []Value) (Value, error) {
		if err := arity("type", args, 1); err != nil {
			return nil, err
		}
		return Str(fmt.Sprintf("<class '%s'>", args[0].Kind())), nil
	})
	register("range", builtinRange)
	register("list", func(args []Value) (Value, error) {
		items, err := collect("list", args)
		if err != nil {
			return nil, err
		}
		return NewList(items...), nil
	})
	register("tuple", func(args []Value) (Value, error) {
		items, err := collect("tuple", args)
		if err != nil {
			return nil, err
		}
		return Tuple(items), nil
	})
	register("set", func(args []Value) (Value, error) {
		items, err := collect("set", args)
		if err != nil {
			return nil, err
		}
		return NewSet(items...)
	})
	return table
}

func arity(name string, args []Value, n int) error {
	if len(args) != n {
		return newError(ErrType, "%s() takes exactly %d argument (%d given)", name, n, len(args))
	}
	return nil
}

// collect drains the optional iterable argument of a container constructor.
func collect(name string, args []Value) ([]Value, error) {
	if len(args) == 0 {
		return nil, nil
	}
	if len(args) > 1 {
		return nil, newError(ErrType, "%s expected at most 1 argument, got %d", name, len(args))
	}
	it, err := Iterate(args[0])
	if err != nil {
		return nil, err
	}
	var items []Value
	for v, ok := it.Next(); ok; v, ok = it.Next() {
		items = append(items, v)
	}
	return items, nil
}

func builtinLen(args []Value) (Value, error) {
	if err := arity("len", args, 1); err != nil {
		return nil, err
	}
	switch x := args[0].(type) {
	case Str:
		return Int(len([]rune(string(x)))), nil
	case *List:
		return Int(len(x.Items)), nil
	case Tuple:
		return Int(len(x)), nil
	case *Set:
		return Int(x.Len()), nil
	case *Dict:
		return Int(x.Len()), nil
	}
	return nil, newError(ErrType, "object of type '%s' has no len()", args[0].Kind())
}

func builtinInt(args []Value) (Value, error) {
	if len(args) == 0 {
		return Int(0), nil
	}
	if err := arity("int", args, 1); err != nil {
		return nil, err
	}
	switch x := args[0].(type) {
	case Bool:
		if x {
			return Int(1), nil
		}
		return Int(0), nil
	case Int:
		return x, nil
	case Float:
		f := float64(x)
		if math.IsInf(f, 0) {
			return nil, newError(ErrValue, "cannot convert float infinity to integer")
		}
		if math.IsNaN(f) {
			return nil, newError(ErrValue, "cannot convert float NaN to integer")
		}
		return Int(int64(math.Trunc(f))), nil
	case Str:
		s := strings.ReplaceAll(strings.TrimSpace(string(x)), "_", "")
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, newError(ErrValue, "invalid literal for int() with base 10: %s", Repr(x))
		}
		return Int(n), nil
	}
	return nil, newError(ErrType, "int() argument must be a string or a number, not '%s'", args[0].Kind())
}

func builtinFloat(args []Value) (Value, error) {
	if len(args) == 0 {
		return Float(0), nil
	}
	if err := arity("float", args, 1); err != nil {
		return nil, err
	}
	if s, ok := args[0].(Str); ok {
		f, err := strconv.ParseFloat(strings.TrimSpace(string(s)), 64)
		if err != nil {
			return nil, newError(ErrValue, "could not convert string to float: %s", Repr(s))
		}
		return Float(f), nil
	}
	n, ok := asNumber(args[0])
	if !ok {
		return nil, newError(ErrType, "float() argument must be a string or a number, not '%s'", args[0].Kind())
	}
	return Float(n.toFloat()), nil
}

// builtinRange materializes range(stop), range(start, stop) and
// range(start, stop, step) as a list.
func builtinRange(args []Value) (Value, error) {
	if len(args) < 1 || len(args) > 3 {
		return nil, newError(ErrType, "range expected 1 to 3 arguments, got %d", len(args))
	}
	bounds := make([]int64, len(args))
	for i, a := range args {
		n, ok := asNumber(a)
		if !ok || n.float {
			return nil, newError(ErrType, "'%s' object cannot be interpreted as an integer", a.Kind())
		}
		bounds[i] = n.i
	}

	start, stop, step := int64(0), bounds[0], int64(1)
	if len(bounds) > 1 {
		start, stop = bounds[0], bounds[1]
	}
	if len(bounds) > 2 {
		step = bounds[2]
	}
	if step == 0 {
		return nil, newError(ErrValue, "range() arg 3 must not be zero")
	}

	// Spans are measured in uint64 so bounds at opposite ends of the int64
	// range do not overflow.
	var count uint64
	switch {
	case step > 0 && start < stop:
		count = (uint64(stop)-uint64(start)-1)/uint64(step) + 1
	case step < 0 && start > stop:
		count = (uint64(start)-uint64(stop)-1)/(-uint64(step)) + 1
	}
	if count > maxRepeatLen {
		return nil, newError(ErrValue, "range of %d elements is too large", count)
	}
	items := make([]Value, count)
	for i := range items {
		items[i] = Int(start + int64(i)*step)
	}
	return NewList(items...), nil
}
