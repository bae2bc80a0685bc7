package vm

import (
	"math"
	"testing"
)

func TestRepr(t *testing.T) {
	set, _ := NewSet(Int(1), Int(2), Float(1.0), True)
	emptySet, _ := NewSet()
	d := NewDict()
	d.Set(Str("k"), Int(3))
	d.Set(Int(1), NewList(None, False))

	tests := []struct {
		v    Value
		want string
	}{
		{None, "None"},
		{True, "True"},
		{Int(-3), "-3"},
		{Float(4), "4.0"},
		{Float(0.1), "0.1"},
		{Float(-0.0), "0.0"},
		{Float(math.Copysign(0, -1)), "-0.0"},
		{Float(1e16), "1e+16"},
		{Float(1.5e-5), "1.5e-05"},
		{Float(123456789.125), "123456789.125"},
		{Float(math.Inf(1)), "inf"},
		{Float(math.NaN()), "nan"},
		{Str("k"), "'k'"},
		{Str("it's"), `"it's"`},
		{Str(`a'b"c`), `'a\'b"c'`},
		{Str("tab\there\n"), `'tab\there\n'`},
		{Str("\x00"), `'\x00'`},
		{Str("\u0085"), `'\x85'`},
		{Str("a\u00a0b"), `'a\xa0b'`},
		{Str("\u200b"), `'\u200b'`},
		{Str("\U000e0001"), `'\U000e0001'`},
		{Str("café"), `'café'`},
		{NewList(Int(1), Str("a")), "[1, 'a']"},
		{Tuple{}, "()"},
		{Tuple{Int(1)}, "(1,)"},
		{Tuple{Int(1), Int(2), Int(3)}, "(1, 2, 3)"},
		{set, "{1, 2}"},
		{emptySet, "set()"},
		{NewDict(), "{}"},
		{d, "{'k': 3, 1: [None, False]}"},
		{&Builtin{Name: "print"}, "<built-in function print>"},
	}

	for _, tt := range tests {
		if got := Repr(tt.v); got != tt.want {
			t.Errorf("Repr = %s, want %s", got, tt.want)
		}
	}
}

func TestDisplay(t *testing.T) {
	if got := Display(Str("hello world")); got != "hello world" {
		t.Errorf("Display(str) = %q, want bare text", got)
	}
	if got := Display(NewList(Str("a"))); got != "['a']" {
		t.Errorf("Display(list) = %q, want ['a']", got)
	}
	if got := Display(Float(4)); got != "4.0" {
		t.Errorf("Display(4.0) = %q", got)
	}
}

func TestKindString(t *testing.T) {
	if KindNone.String() != "NoneType" || KindDict.String() != "dict" {
		t.Errorf("unexpected kind names %q, %q", KindNone, KindDict)
	}
	if got := Kind(200).String(); got != "Kind(200)" {
		t.Errorf("Kind(200).String() = %q", got)
	}
}

func TestNumericKeysCollide(t *testing.T) {
	d := NewDict()
	d.Set(Int(1), Str("int"))
	d.Set(Float(1), Str("float"))
	d.Set(True, Str("bool"))
	if d.Len() != 1 {
		t.Fatalf("Len = %d, want 1", d.Len())
	}
	// The first key object is kept, the last value wins.
	if got := Repr(d); got != "{1: 'bool'}" {
		t.Errorf("dict = %s, want {1: 'bool'}", got)
	}
}

func TestUnhashable(t *testing.T) {
	if _, err := NewSet(NewList()); err == nil {
		t.Error("list should be unhashable")
	}
	if _, err := NewSet(Tuple{Int(1), NewDict()}); err == nil {
		t.Error("tuple holding a dict should be unhashable")
	}
	s, err := NewSet(Tuple{Int(1), Str("a")}, Tuple{Float(1), Str("a")})
	if err != nil {
		t.Fatal(err)
	}
	if s.Len() != 1 {
		t.Errorf("equal tuples should collide, Len = %d", s.Len())
	}
}

func TestInternKeyDistinguishesKinds(t *testing.T) {
	keys := map[string]bool{}
	for _, v := range []Value{True, Int(1), Float(1), Str("1")} {
		keys[InternKey(v)] = true
	}
	if len(keys) != 4 {
		t.Errorf("expected 4 distinct intern keys, got %d", len(keys))
	}
	if InternKey(Int(1)) != InternKey(Int(1)) {
		t.Error("InternKey should be stable")
	}
}
