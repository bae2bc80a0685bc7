package compiler

import (
	"bytes"
	"testing"

	"github.com/curtisbucher/curvy/vm"
)

func foldedValue(t *testing.T, e Expr) vm.Value {
	t.Helper()
	stmt := Optimize(module(echo(e))).Body[0].(*ExprStmt)
	c, ok := stmt.Value.(*Constant)
	if !ok {
		t.Fatalf("expression not folded, got %T", stmt.Value)
	}
	return c.Value
}

func TestFoldBinaryOperations(t *testing.T) {
	tests := []struct {
		expr Expr
		want string
	}{
		{bin(num(1), Add, bin(bin(num(2), Sub, num(3)), Mult, num(4))), "-3"},
		{bin(num(12), Div, num(3)), "4.0"},
		{bin(num(13), FloorDiv, num(3)), "4"},
		{bin(num(-7), Mod, num(3)), "2"},
		{bin(num(2), Pow, num(5)), "32"},
		{bin(bin(num(1), LShift, num(2)), Add, bin(num(4), RShift, num(2))), "5"},
		{bin(num(8), BitAnd, num(15)), "8"},
		{bin(num(8), BitOr, num(7)), "15"},
		{bin(num(8), BitXor, num(15)), "7"},
		{bin(str("hello %s"), Mod, str("world")), "'hello world'"},
		{bin(fnum(1.5), Mult, num(2)), "3.0"},
	}
	for _, tt := range tests {
		if got := vm.Repr(foldedValue(t, tt.expr)); got != tt.want {
			t.Errorf("folded to %s, want %s", got, tt.want)
		}
	}
}

func TestFoldTuple(t *testing.T) {
	v := foldedValue(t, tuple(num(1), bin(num(1), Add, num(1)), str("x")))
	if got := vm.Repr(v); got != "(1, 2, 'x')" {
		t.Errorf("folded tuple = %s", got)
	}
	if v := foldedValue(t, tuple()); vm.Repr(v) != "()" {
		t.Errorf("empty tuple folded to %s", vm.Repr(v))
	}
}

func TestFoldLeavesPartialTuple(t *testing.T) {
	stmt := Optimize(module(echo(tuple(load("a"), bin(num(1), Add, num(1)))))).Body[0].(*ExprStmt)
	tup, ok := stmt.Value.(*Tuple)
	if !ok {
		t.Fatalf("tuple with a name should stay a tuple, got %T", stmt.Value)
	}
	if _, ok := tup.Elts[0].(*Name); !ok {
		t.Errorf("first element = %T, want *Name", tup.Elts[0])
	}
	if c, ok := tup.Elts[1].(*Constant); !ok || c.Value != vm.Int(2) {
		t.Errorf("second element should fold to 2, got %#v", tup.Elts[1])
	}
}

func TestFoldSkipsFailingOperations(t *testing.T) {
	for _, e := range []Expr{
		bin(num(1), Div, num(0)),
		bin(num(1), Add, str("a")),
		bin(num(1), LShift, num(-1)),
	} {
		stmt := Optimize(module(echo(e))).Body[0].(*ExprStmt)
		if _, ok := stmt.Value.(*BinOp); !ok {
			t.Errorf("failing operation should stay a BinOp, got %T", stmt.Value)
		}
	}
}

func TestFoldSkipsLargeResults(t *testing.T) {
	stmt := Optimize(module(echo(bin(str("x"), Mult, num(10000))))).Body[0].(*ExprStmt)
	if _, ok := stmt.Value.(*BinOp); !ok {
		t.Errorf("large repetition should not be folded, got %T", stmt.Value)
	}
	if v := foldedValue(t, bin(str("ab"), Mult, num(3))); v != vm.Str("ababab") {
		t.Errorf("small repetition folded to %s", vm.Repr(v))
	}
}

func TestFoldDoesNotTouchOtherNodes(t *testing.T) {
	unary := &UnaryOp{Op: USub, Operand: num(3)}
	stmt := Optimize(module(echo(unary))).Body[0].(*ExprStmt)
	if _, ok := stmt.Value.(*UnaryOp); !ok {
		t.Errorf("unary operation should not be folded, got %T", stmt.Value)
	}
	lst := Optimize(module(echo(list(num(1))))).Body[0].(*ExprStmt)
	if _, ok := lst.Value.(*List); !ok {
		t.Errorf("list display should not be folded, got %T", lst.Value)
	}
}

func TestFoldRecursesIntoStatements(t *testing.T) {
	mod := module(
		&If{
			Test:   bin(num(1), Sub, num(1)),
			Body:   block(assign(bin(num(2), Mult, num(3)), store("a"))),
			OrElse: block(&While{Test: load("a"), Body: block(echo(call(load("f"), bin(num(1), Add, num(1)))))}),
		},
		&For{Target: store("x"), Iter: tuple(num(1), num(2)), Body: block(&Pass{})},
	)
	out := Optimize(mod)

	ifStmt := out.Body[0].(*If)
	if c, ok := ifStmt.Test.(*Constant); !ok || c.Value != vm.Int(0) {
		t.Errorf("if test = %#v, want constant 0", ifStmt.Test)
	}
	if c, ok := ifStmt.Body[0].(*Assign).Value.(*Constant); !ok || c.Value != vm.Int(6) {
		t.Errorf("assignment value not folded")
	}
	callExpr := ifStmt.OrElse[0].(*While).Body[0].(*ExprStmt).Value.(*Call)
	if c, ok := callExpr.Args[0].(*Constant); !ok || c.Value != vm.Int(2) {
		t.Errorf("call argument not folded")
	}
	if _, ok := out.Body[1].(*For).Iter.(*Constant); !ok {
		t.Errorf("for iterable tuple not folded")
	}
}

func TestOptimizeDoesNotMutateInput(t *testing.T) {
	inner := bin(num(2), Sub, num(3))
	outer := bin(num(1), Add, inner)
	stmt := echo(outer)
	mod := module(stmt)

	Optimize(mod)

	if mod.Body[0] != stmt || stmt.Value != outer || outer.Right != inner {
		t.Error("Optimize modified the input tree")
	}
}

func TestFoldingPreservesBehavior(t *testing.T) {
	exprs := []Expr{
		bin(num(1), Add, bin(bin(num(2), Sub, num(3)), Mult, num(4))),
		bin(num(12), Div, num(3)),
		bin(num(13), FloorDiv, num(3)),
		bin(fnum(-7.5), Mod, num(2)),
		bin(num(2), Pow, num(-2)),
		bin(num(5), BitXor, bin(num(1), LShift, num(3))),
		bin(str("%s-%d"), Mod, tuple(str("a"), num(3))),
		tuple(num(1), tuple(str("b"), lit(vm.None))),
		bin(tuple(num(1)), Add, tuple(num(2))),
		bin(lit(vm.True), Add, lit(vm.True)),
	}

	run := func(optimize bool) string {
		var out bytes.Buffer
		s := NewSession(Options{Optimize: optimize}, vm.New(vm.Options{Output: &out}))
		for _, e := range exprs {
			if err := s.Exec(module(echo(e))); err != nil {
				t.Fatalf("Exec (optimize=%v): %v", optimize, err)
			}
		}
		return out.String()
	}

	folded, plain := run(true), run(false)
	if folded != plain {
		t.Errorf("folded output:\n%s\nunfolded output:\n%s", folded, plain)
	}
}
