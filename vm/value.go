package vm

import (
	"fmt"
	"math"
	"strconv"
)

// Value is a closed tagged union over the kinds the VM can hold on its
// operand stack, in its globals, and in a Code constant table.
//
// The set of implementations is fixed by this package: None, Bool, Int,
// Float, Str, *List, Tuple, *Set, *Dict, *Builtin and *Iterator. Code that
// needs to discriminate between them should type-switch; the Kind method
// exists for error messages and interning.
type Value interface {
	Kind() Kind
	value() // marker method
}

// Kind identifies the variant held by a Value.
type Kind uint8

const (
	KindNone Kind = iota
	KindBool
	KindInt
	KindFloat
	KindStr
	KindList
	KindTuple
	KindSet
	KindDict
	KindBuiltin
	KindIterator
)

var kindNames = [...]string{
	KindNone:     "NoneType",
	KindBool:     "bool",
	KindInt:      "int",
	KindFloat:    "float",
	KindStr:      "str",
	KindList:     "list",
	KindTuple:    "tuple",
	KindSet:      "set",
	KindDict:     "dict",
	KindBuiltin:  "builtin_function_or_method",
	KindIterator: "iterator",
}

// String returns the type name used in error messages.
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// ---------------------------------------------------------------------------
// Scalars
// ---------------------------------------------------------------------------

// NoneType is the type of the None sentinel.
type NoneType struct{}

// None is the only NoneType value. Echoing it produces no output.
var None Value = NoneType{}

// Bool is a boolean. It participates in arithmetic as the integers 0 and 1.
type Bool bool

const (
	True  Bool = true
	False Bool = false
)

// Int is a signed 64-bit integer. Overflow wraps.
type Int int64

// Float is an IEEE 754 double.
type Float float64

// Str is an immutable string.
type Str string

func (NoneType) Kind() Kind { return KindNone }
func (Bool) Kind() Kind     { return KindBool }
func (Int) Kind() Kind      { return KindInt }
func (Float) Kind() Kind    { return KindFloat }
func (Str) Kind() Kind      { return KindStr }

func (NoneType) value() {}
func (Bool) value()     {}
func (Int) value()      {}
func (Float) value()    {}
func (Str) value()      {}

// ---------------------------------------------------------------------------
// Collections
// ---------------------------------------------------------------------------

// List is a mutable sequence shared by reference.
type List struct {
	Items []Value
}

// NewList returns a list holding items. The slice is not copied.
func NewList(items ...Value) *List {
	return &List{Items: items}
}

// Tuple is an immutable sequence.
type Tuple []Value

func (*List) Kind() Kind { return KindList }
func (Tuple) Kind() Kind { return KindTuple }

func (*List) value() {}
func (Tuple) value() {}

// entry is one slot of an insertion-ordered hash table.
type entry struct {
	key Value
	val Value
}

// table is the insertion-ordered storage behind Set and Dict. Keys are
// looked up by their hash key, so numerically equal Int, Float and Bool
// keys collide the way they do in the source language.
type table struct {
	index   map[string]int
	entries []entry
}

func (t *table) lookup(k Value) (int, string, error) {
	h, err := hashKey(k)
	if err != nil {
		return -1, "", err
	}
	if i, ok := t.index[h]; ok {
		return i, h, nil
	}
	return -1, h, nil
}

func (t *table) put(k, v Value) error {
	i, h, err := t.lookup(k)
	if err != nil {
		return err
	}
	if i >= 0 {
		t.entries[i].val = v
		return nil
	}
	if t.index == nil {
		t.index = make(map[string]int)
	}
	t.index[h] = len(t.entries)
	t.entries = append(t.entries, entry{key: k, val: v})
	return nil
}

// Set is an insertion-ordered set of hashable values.
type Set struct {
	t table
}

// NewSet builds a set from items, keeping the first occurrence of each
// equal element.
func NewSet(items ...Value) (*Set, error) {
	s := &Set{}
	for _, it := range items {
		if err := s.Add(it); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Add inserts v if no equal element is present.
func (s *Set) Add(v Value) error {
	i, _, err := s.t.lookup(v)
	if err != nil {
		return err
	}
	if i >= 0 {
		return nil
	}
	return s.t.put(v, None)
}

// Contains reports whether an element equal to v is present.
func (s *Set) Contains(v Value) (bool, error) {
	i, _, err := s.t.lookup(v)
	return i >= 0, err
}

// Len returns the number of elements.
func (s *Set) Len() int { return len(s.t.entries) }

// Items returns the elements in insertion order.
func (s *Set) Items() []Value {
	out := make([]Value, len(s.t.entries))
	for i, e := range s.t.entries {
		out[i] = e.key
	}
	return out
}

// Dict is an insertion-ordered mapping from hashable keys to values.
type Dict struct {
	t table
}

// NewDict returns an empty mapping.
func NewDict() *Dict {
	return &Dict{}
}

// Get returns the value stored under k.
func (d *Dict) Get(k Value) (Value, bool, error) {
	i, _, err := d.t.lookup(k)
	if err != nil || i < 0 {
		return nil, false, err
	}
	return d.t.entries[i].val, true, nil
}

// Set stores v under k. A new key is appended; an existing key keeps its
// position and original key object.
func (d *Dict) Set(k, v Value) error {
	return d.t.put(k, v)
}

// Len returns the number of entries.
func (d *Dict) Len() int { return len(d.t.entries) }

// Keys returns the keys in insertion order.
func (d *Dict) Keys() []Value {
	out := make([]Value, len(d.t.entries))
	for i, e := range d.t.entries {
		out[i] = e.key
	}
	return out
}

// Each calls fn for every entry in insertion order.
func (d *Dict) Each(fn func(k, v Value)) {
	for _, e := range d.t.entries {
		fn(e.key, e.val)
	}
}

func (*Set) Kind() Kind  { return KindSet }
func (*Dict) Kind() Kind { return KindDict }

func (*Set) value()  {}
func (*Dict) value() {}

// ---------------------------------------------------------------------------
// Callables and iterators
// ---------------------------------------------------------------------------

// Builtin is a native callable supplied through the builtin symbol table.
type Builtin struct {
	Name string
	Fn   func(args []Value) (Value, error)
}

// Iterator walks a container. It only lives on the operand stack between
// GET_ITER and the end of the loop that consumes it.
type Iterator struct {
	next func() (Value, bool)
}

// Next returns the next element, or false once the iterator is exhausted.
func (it *Iterator) Next() (Value, bool) {
	return it.next()
}

func (*Builtin) Kind() Kind  { return KindBuiltin }
func (*Iterator) Kind() Kind { return KindIterator }

func (*Builtin) value()  {}
func (*Iterator) value() {}

// ---------------------------------------------------------------------------
// Hashing
// ---------------------------------------------------------------------------

// hashKey maps a hashable value to a string such that two values compare
// equal exactly when their keys are equal.
func hashKey(v Value) (string, error) {
	switch x := v.(type) {
	case NoneType:
		return "N", nil
	case Bool:
		if x {
			return "i1", nil
		}
		return "i0", nil
	case Int:
		return "i" + strconv.FormatInt(int64(x), 10), nil
	case Float:
		f := float64(x)
		if f == math.Trunc(f) && f >= math.MinInt64 && f < math.MaxInt64 {
			return "i" + strconv.FormatInt(int64(f), 10), nil
		}
		return "f" + strconv.FormatUint(math.Float64bits(f), 16), nil
	case Str:
		return "s" + strconv.Itoa(len(x)) + ":" + string(x), nil
	case Tuple:
		buf := []byte{'('}
		for _, el := range x {
			k, err := hashKey(el)
			if err != nil {
				return "", err
			}
			buf = strconv.AppendInt(buf, int64(len(k)), 10)
			buf = append(buf, ':')
			buf = append(buf, k...)
		}
		return string(append(buf, ')')), nil
	case *Builtin, *Iterator:
		return fmt.Sprintf("p%p", x), nil
	default:
		return "", newError(ErrType, "unhashable type: '%s'", v.Kind())
	}
}

// InternKey returns the key a compiler uses to deduplicate constants. Unlike
// hash equality it distinguishes kinds, so True, 1 and 1.0 get separate
// constant-table entries.
func InternKey(v Value) string {
	return strconv.Itoa(int(v.Kind())) + ":" + Repr(v)
}
