package compiler

import (
	"fmt"

	"github.com/curtisbucher/curvy/vm"
)

// ---------------------------------------------------------------------------
// AST: tree handed over by a front-end
// ---------------------------------------------------------------------------

// Position represents a source location.
type Position struct {
	Offset int // byte offset
	Line   int // 1-based line number
	Column int // 1-based column number
}

// Span represents a range in source code.
type Span struct {
	Start Position
	End   Position
}

// Node is the interface implemented by all AST nodes.
type Node interface {
	Span() Span
	node() // marker method
}

// Expr is the interface for expression nodes.
type Expr interface {
	Node
	expr() // marker method
}

// Stmt is the interface for statement nodes.
type Stmt interface {
	Node
	stmt() // marker method
}

// ---------------------------------------------------------------------------
// Operators and contexts
// ---------------------------------------------------------------------------

// Operator tags binary and unary operator nodes.
type Operator int

const (
	Add Operator = iota
	Sub
	Mult
	Div
	FloorDiv
	Mod
	Pow
	BitAnd
	BitOr
	BitXor
	LShift
	RShift

	UAdd
	USub
	Not
	Invert
)

var operatorNames = [...]string{
	Add: "Add", Sub: "Sub", Mult: "Mult", Div: "Div", FloorDiv: "FloorDiv",
	Mod: "Mod", Pow: "Pow", BitAnd: "BitAnd", BitOr: "BitOr", BitXor: "BitXor",
	LShift: "LShift", RShift: "RShift",
	UAdd: "UAdd", USub: "USub", Not: "Not", Invert: "Invert",
}

func (o Operator) String() string {
	if o >= 0 && int(o) < len(operatorNames) {
		return operatorNames[o]
	}
	return fmt.Sprintf("Operator(%d)", int(o))
}

// Context says whether a name or subscript is read, bound or deleted.
type Context int

const (
	Load Context = iota
	Store
	Del
)

// ---------------------------------------------------------------------------
// Module and statements
// ---------------------------------------------------------------------------

// Module is the root of a compiled unit.
type Module struct {
	SpanVal Span
	Body    []Stmt
}

func (n *Module) Span() Span { return n.SpanVal }
func (n *Module) node()      {}

// ExprStmt evaluates an expression and echoes its value.
type ExprStmt struct {
	SpanVal Span
	Value   Expr
}

func (n *ExprStmt) Span() Span { return n.SpanVal }
func (n *ExprStmt) node()      {}
func (n *ExprStmt) stmt()      {}

// Assign binds Value to every target, left to right (a = b = value).
type Assign struct {
	SpanVal Span
	Targets []Expr
	Value   Expr
}

func (n *Assign) Span() Span { return n.SpanVal }
func (n *Assign) node()      {}
func (n *Assign) stmt()      {}

// AugAssign represents target op= value.
type AugAssign struct {
	SpanVal Span
	Target  Expr
	Op      Operator
	Value   Expr
}

func (n *AugAssign) Span() Span { return n.SpanVal }
func (n *AugAssign) node()      {}
func (n *AugAssign) stmt()      {}

// Delete unbinds each target.
type Delete struct {
	SpanVal Span
	Targets []Expr
}

func (n *Delete) Span() Span { return n.SpanVal }
func (n *Delete) node()      {}
func (n *Delete) stmt()      {}

// Pass does nothing.
type Pass struct {
	SpanVal Span
}

func (n *Pass) Span() Span { return n.SpanVal }
func (n *Pass) node()      {}
func (n *Pass) stmt()      {}

// If is a conditional statement. OrElse may be empty.
type If struct {
	SpanVal Span
	Test    Expr
	Body    []Stmt
	OrElse  []Stmt
}

func (n *If) Span() Span { return n.SpanVal }
func (n *If) node()      {}
func (n *If) stmt()      {}

// While loops while Test is truthy. An else clause is not supported.
type While struct {
	SpanVal Span
	Test    Expr
	Body    []Stmt
	OrElse  []Stmt
}

func (n *While) Span() Span { return n.SpanVal }
func (n *While) node()      {}
func (n *While) stmt()      {}

// For binds Target to each element of Iter. An else clause is not
// supported.
type For struct {
	SpanVal Span
	Target  Expr
	Iter    Expr
	Body    []Stmt
	OrElse  []Stmt
}

func (n *For) Span() Span { return n.SpanVal }
func (n *For) node()      {}
func (n *For) stmt()      {}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

// Constant is a literal value.
type Constant struct {
	SpanVal Span
	Value   vm.Value
}

func (n *Constant) Span() Span { return n.SpanVal }
func (n *Constant) node()      {}
func (n *Constant) expr()      {}

// Name is an identifier reference.
type Name struct {
	SpanVal Span
	ID      string
	Ctx     Context
}

func (n *Name) Span() Span { return n.SpanVal }
func (n *Name) node()      {}
func (n *Name) expr()      {}

// BinOp applies a binary operator.
type BinOp struct {
	SpanVal Span
	Left    Expr
	Op      Operator
	Right   Expr
}

func (n *BinOp) Span() Span { return n.SpanVal }
func (n *BinOp) node()      {}
func (n *BinOp) expr()      {}

// UnaryOp applies a unary operator.
type UnaryOp struct {
	SpanVal Span
	Op      Operator
	Operand Expr
}

func (n *UnaryOp) Span() Span { return n.SpanVal }
func (n *UnaryOp) node()      {}
func (n *UnaryOp) expr()      {}

// Call invokes Func with positional arguments.
type Call struct {
	SpanVal Span
	Func    Expr
	Args    []Expr
}

func (n *Call) Span() Span { return n.SpanVal }
func (n *Call) node()      {}
func (n *Call) expr()      {}

// IfExp is the conditional expression (body if test else orelse).
type IfExp struct {
	SpanVal Span
	Test    Expr
	Body    Expr
	OrElse  Expr
}

func (n *IfExp) Span() Span { return n.SpanVal }
func (n *IfExp) node()      {}
func (n *IfExp) expr()      {}

// Tuple is a tuple display.
type Tuple struct {
	SpanVal Span
	Elts    []Expr
	Ctx     Context
}

func (n *Tuple) Span() Span { return n.SpanVal }
func (n *Tuple) node()      {}
func (n *Tuple) expr()      {}

// List is a list display.
type List struct {
	SpanVal Span
	Elts    []Expr
	Ctx     Context
}

func (n *List) Span() Span { return n.SpanVal }
func (n *List) node()      {}
func (n *List) expr()      {}

// Set is a set display.
type Set struct {
	SpanVal Span
	Elts    []Expr
}

func (n *Set) Span() Span { return n.SpanVal }
func (n *Set) node()      {}
func (n *Set) expr()      {}

// Dict is a dict display. Keys and Values have the same length.
type Dict struct {
	SpanVal Span
	Keys    []Expr
	Values  []Expr
}

func (n *Dict) Span() Span { return n.SpanVal }
func (n *Dict) node()      {}
func (n *Dict) expr()      {}

// Subscript represents Value[Slice]. Slice is usually an *Index.
type Subscript struct {
	SpanVal Span
	Value   Expr
	Slice   Expr
	Ctx     Context
}

func (n *Subscript) Span() Span { return n.SpanVal }
func (n *Subscript) node()      {}
func (n *Subscript) expr()      {}

// Index wraps a plain subscript expression.
type Index struct {
	SpanVal Span
	Value   Expr
}

func (n *Index) Span() Span { return n.SpanVal }
func (n *Index) node()      {}
func (n *Index) expr()      {}
