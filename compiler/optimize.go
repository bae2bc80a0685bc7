package compiler

import (
	"github.com/curtisbucher/curvy/vm"
)

// ---------------------------------------------------------------------------
// Optimizer: constant folding
// ---------------------------------------------------------------------------

// maxFoldedLen bounds the length of a folded string or tuple so that
// something like 'x' * 10**8 stays a runtime operation.
const maxFoldedLen = 4096

// Optimize returns a copy of mod with constant sub-expressions folded.
// Binary operations whose operands are both constants become a single
// constant, as do tuple displays made only of constants. mod is not
// modified; subtrees without anything to fold are rebuilt shallowly.
//
// An operation that fails at fold time (1 / 0, 'a' + 1) is left in place
// so that the error surfaces when the code runs.
func Optimize(mod *Module) *Module {
	return &Module{SpanVal: mod.SpanVal, Body: foldStmts(mod.Body)}
}

func foldStmts(stmts []Stmt) []Stmt {
	if stmts == nil {
		return nil
	}
	out := make([]Stmt, len(stmts))
	for i, s := range stmts {
		out[i] = foldConstants(s)
	}
	return out
}

func foldExprs(exprs []Expr) []Expr {
	if exprs == nil {
		return nil
	}
	out := make([]Expr, len(exprs))
	for i, e := range exprs {
		out[i] = foldConstantExpr(e)
	}
	return out
}

// foldConstants folds the expressions inside a statement.
func foldConstants(stmt Stmt) Stmt {
	switch s := stmt.(type) {
	case *ExprStmt:
		return &ExprStmt{SpanVal: s.SpanVal, Value: foldConstantExpr(s.Value)}
	case *Assign:
		return &Assign{SpanVal: s.SpanVal, Targets: foldExprs(s.Targets), Value: foldConstantExpr(s.Value)}
	case *AugAssign:
		return &AugAssign{SpanVal: s.SpanVal, Target: foldConstantExpr(s.Target), Op: s.Op, Value: foldConstantExpr(s.Value)}
	case *Delete:
		return &Delete{SpanVal: s.SpanVal, Targets: foldExprs(s.Targets)}
	case *If:
		return &If{SpanVal: s.SpanVal, Test: foldConstantExpr(s.Test), Body: foldStmts(s.Body), OrElse: foldStmts(s.OrElse)}
	case *While:
		return &While{SpanVal: s.SpanVal, Test: foldConstantExpr(s.Test), Body: foldStmts(s.Body), OrElse: foldStmts(s.OrElse)}
	case *For:
		return &For{
			SpanVal: s.SpanVal,
			Target:  foldConstantExpr(s.Target),
			Iter:    foldConstantExpr(s.Iter),
			Body:    foldStmts(s.Body),
			OrElse:  foldStmts(s.OrElse),
		}
	default:
		return stmt
	}
}

// foldConstantExpr folds children first, then the node itself.
func foldConstantExpr(expr Expr) Expr {
	switch e := expr.(type) {
	case *BinOp:
		left := foldConstantExpr(e.Left)
		right := foldConstantExpr(e.Right)
		if v, ok := foldBinary(e.Op, left, right); ok {
			return &Constant{SpanVal: e.SpanVal, Value: v}
		}
		return &BinOp{SpanVal: e.SpanVal, Left: left, Op: e.Op, Right: right}

	case *Tuple:
		elts := foldExprs(e.Elts)
		if e.Ctx == Load {
			if values, ok := constantValues(elts); ok && len(values) <= maxFoldedLen {
				return &Constant{SpanVal: e.SpanVal, Value: vm.Tuple(values)}
			}
		}
		return &Tuple{SpanVal: e.SpanVal, Elts: elts, Ctx: e.Ctx}

	case *UnaryOp:
		return &UnaryOp{SpanVal: e.SpanVal, Op: e.Op, Operand: foldConstantExpr(e.Operand)}
	case *Call:
		return &Call{SpanVal: e.SpanVal, Func: foldConstantExpr(e.Func), Args: foldExprs(e.Args)}
	case *IfExp:
		return &IfExp{
			SpanVal: e.SpanVal,
			Test:    foldConstantExpr(e.Test),
			Body:    foldConstantExpr(e.Body),
			OrElse:  foldConstantExpr(e.OrElse),
		}
	case *List:
		return &List{SpanVal: e.SpanVal, Elts: foldExprs(e.Elts), Ctx: e.Ctx}
	case *Set:
		return &Set{SpanVal: e.SpanVal, Elts: foldExprs(e.Elts)}
	case *Dict:
		return &Dict{SpanVal: e.SpanVal, Keys: foldExprs(e.Keys), Values: foldExprs(e.Values)}
	case *Subscript:
		return &Subscript{SpanVal: e.SpanVal, Value: foldConstantExpr(e.Value), Slice: foldConstantExpr(e.Slice), Ctx: e.Ctx}
	case *Index:
		return &Index{SpanVal: e.SpanVal, Value: foldConstantExpr(e.Value)}
	default:
		return expr
	}
}

func foldBinary(op Operator, left, right Expr) (vm.Value, bool) {
	lc, lok := left.(*Constant)
	rc, rok := right.(*Constant)
	if !lok || !rok {
		return nil, false
	}
	opcode, ok := binaryOpcodes[op]
	if !ok {
		return nil, false
	}
	v, err := vm.BinaryOp(opcode, lc.Value, rc.Value)
	if err != nil {
		return nil, false
	}
	switch x := v.(type) {
	case vm.Str:
		return v, len(x) <= maxFoldedLen
	case vm.Tuple:
		return v, len(x) <= maxFoldedLen
	case *vm.List, *vm.Set, *vm.Dict:
		// Mutable results would be shared by every execution.
		return nil, false
	}
	return v, true
}

func constantValues(exprs []Expr) ([]vm.Value, bool) {
	values := make([]vm.Value, len(exprs))
	for i, e := range exprs {
		c, ok := e.(*Constant)
		if !ok {
			return nil, false
		}
		values[i] = c.Value
	}
	return values, true
}
