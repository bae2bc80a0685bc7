package compiler

import (
	"fmt"

	"github.com/curtisbucher/curvy/vm"
	"github.com/tliron/commonlog"
)

// ---------------------------------------------------------------------------
// Codegen: Compile AST to bytecode
// ---------------------------------------------------------------------------

var binaryOpcodes = map[Operator]vm.Opcode{
	Add:      vm.OpBinaryAdd,
	Sub:      vm.OpBinarySubtract,
	Mult:     vm.OpBinaryMultiply,
	Div:      vm.OpBinaryDivide,
	FloorDiv: vm.OpBinaryFloorDiv,
	Mod:      vm.OpBinaryModulo,
	Pow:      vm.OpBinaryPower,
	BitAnd:   vm.OpBinaryAnd,
	BitOr:    vm.OpBinaryOr,
	BitXor:   vm.OpBinaryXor,
	LShift:   vm.OpBinaryLShift,
	RShift:   vm.OpBinaryRShift,
}

var unaryOpcodes = map[Operator]vm.Opcode{
	UAdd:   vm.OpUnaryPositive,
	USub:   vm.OpUnaryNegative,
	Not:    vm.OpUnaryNot,
	Invert: vm.OpUnaryInvert,
}

// Compiler lowers one AST into a Code. It is single use: Visit the tree,
// then call Build once.
//
// Malformed trees (an assignment without targets, a loop with an else
// clause, a node kind the lowering does not know) are programming errors
// in the front-end and make the Compiler panic.
type Compiler struct {
	builder *vm.BytecodeBuilder

	names      []string
	nameIndex  map[string]int
	consts     []vm.Value
	constIndex map[string]int // keyed by vm.InternKey

	built bool
}

// NewCompiler creates a new compiler.
func NewCompiler() *Compiler {
	return &Compiler{
		builder:    vm.NewBytecodeBuilder(),
		nameIndex:  make(map[string]int),
		constIndex: make(map[string]int),
	}
}

// AddName interns an identifier and returns its index in the name table.
func (c *Compiler) AddName(id string) int {
	if idx, ok := c.nameIndex[id]; ok {
		return idx
	}
	idx := len(c.names)
	c.names = append(c.names, id)
	c.nameIndex[id] = idx
	return idx
}

// AddConst interns a constant and returns its index in the constant table.
// Constants of different kinds never share an entry, even when they
// compare equal (True, 1 and 1.0).
func (c *Compiler) AddConst(value vm.Value) int {
	key := vm.InternKey(value)
	if idx, ok := c.constIndex[key]; ok {
		return idx
	}
	idx := len(c.consts)
	c.consts = append(c.consts, value)
	c.constIndex[key] = idx
	return idx
}

// Visit lowers node into the instruction buffer.
func (c *Compiler) Visit(node Node) {
	if c.built {
		panic("compiler: Visit after Build")
	}
	switch n := node.(type) {
	case *Module:
		c.compileStatements(n.Body)
	case Stmt:
		c.compileStmt(n)
	case Expr:
		c.compileExpr(n)
	default:
		panic(fmt.Sprintf("compiler: unsupported node %T", node))
	}
}

// Build resolves jump labels and returns the finished Code.
func (c *Compiler) Build() *vm.Code {
	if c.built {
		panic("compiler: Build called twice")
	}
	c.built = true
	code := vm.NewCode(c.names, c.consts, c.builder.Assemble())
	if log.AllowLevel(commonlog.Debug) {
		log.Debugf("compiled %s fingerprint=%s", code, code.Fingerprint().Short())
	}
	return code
}

// ---------------------------------------------------------------------------
// Statement compilation
// ---------------------------------------------------------------------------

func (c *Compiler) compileStatements(stmts []Stmt) {
	for _, stmt := range stmts {
		c.compileStmt(stmt)
	}
}

func (c *Compiler) compileStmt(stmt Stmt) {
	switch s := stmt.(type) {
	case *ExprStmt:
		c.compileExpr(s.Value)
		c.builder.Emit(vm.OpPrintExpr, 0)
	case *Assign:
		c.compileAssign(s)
	case *AugAssign:
		c.compileAugAssign(s)
	case *Delete:
		for _, target := range s.Targets {
			name, ok := target.(*Name)
			if !ok {
				panic(fmt.Sprintf("compiler: cannot delete %T", target))
			}
			c.builder.Emit(vm.OpDeleteName, c.AddName(name.ID))
		}
	case *Pass:
	case *If:
		c.compileConditional(s.Test,
			func() { c.compileStatements(s.Body) },
			func() { c.compileStatements(s.OrElse) })
	case *While:
		c.compileWhile(s)
	case *For:
		c.compileFor(s)
	default:
		panic(fmt.Sprintf("compiler: unsupported statement %T", stmt))
	}
}

// compileAssign evaluates the value once and stores it into every target.
// All targets but the last store a duplicate.
func (c *Compiler) compileAssign(assign *Assign) {
	if len(assign.Targets) == 0 {
		panic("compiler: assignment needs at least one target")
	}
	c.compileExpr(assign.Value)
	last := len(assign.Targets) - 1
	for i, target := range assign.Targets {
		if i < last {
			c.builder.Emit(vm.OpDupTop, 0)
		}
		c.compileStore(target)
	}
}

// compileAugAssign lowers target op= value to a load, the operator and a
// store.
func (c *Compiler) compileAugAssign(aug *AugAssign) {
	name, ok := aug.Target.(*Name)
	if !ok {
		panic(fmt.Sprintf("compiler: unsupported augmented assignment target %T", aug.Target))
	}
	op, ok := binaryOpcodes[aug.Op]
	if !ok {
		panic(fmt.Sprintf("compiler: %s is not a binary operator", aug.Op))
	}
	idx := c.AddName(name.ID)
	c.builder.Emit(vm.OpLoadName, idx)
	c.compileExpr(aug.Value)
	c.builder.Emit(op, 0)
	c.builder.Emit(vm.OpStoreName, idx)
}

func (c *Compiler) compileStore(target Expr) {
	name, ok := target.(*Name)
	if !ok {
		panic(fmt.Sprintf("compiler: unsupported assignment target %T", target))
	}
	c.builder.Emit(vm.OpStoreName, c.AddName(name.ID))
}

// compileConditional emits the shape shared by if statements and
// conditional expressions. The test value stays on the stack across the
// jump and is popped on both paths.
func (c *Compiler) compileConditional(test Expr, body, orElse func()) {
	elseLabel := c.builder.NewLabel()
	endLabel := c.builder.NewLabel()

	c.compileExpr(test)
	c.builder.EmitJump(vm.OpJumpIfFalse, elseLabel)
	c.builder.Emit(vm.OpPopTop, 0)
	body()
	c.builder.EmitJump(vm.OpJumpAbsolute, endLabel)

	c.builder.Mark(elseLabel)
	c.builder.Emit(vm.OpPopTop, 0)
	orElse()
	c.builder.Mark(endLabel)
}

func (c *Compiler) compileWhile(loop *While) {
	if len(loop.OrElse) > 0 {
		panic("compiler: while-else is not supported")
	}
	startLabel := c.builder.NewLabel()
	endLabel := c.builder.NewLabel()

	c.builder.Mark(startLabel)
	c.compileExpr(loop.Test)
	c.builder.EmitJump(vm.OpJumpIfFalse, endLabel)
	c.builder.Emit(vm.OpPopTop, 0)
	c.compileStatements(loop.Body)
	c.builder.EmitJump(vm.OpJumpAbsolute, startLabel)

	// The failed test is still on the stack.
	c.builder.Mark(endLabel)
	c.builder.Emit(vm.OpPopTop, 0)
}

func (c *Compiler) compileFor(loop *For) {
	if len(loop.OrElse) > 0 {
		panic("compiler: for-else is not supported")
	}
	startLabel := c.builder.NewLabel()
	endLabel := c.builder.NewLabel()

	c.compileExpr(loop.Iter)
	c.builder.Emit(vm.OpGetIter, 0)

	c.builder.Mark(startLabel)
	c.builder.EmitJump(vm.OpForIter, endLabel)
	c.compileStore(loop.Target)
	c.compileStatements(loop.Body)
	c.builder.EmitJump(vm.OpJumpAbsolute, startLabel)

	// Discard the exhausted iterator.
	c.builder.Mark(endLabel)
	c.builder.Emit(vm.OpPopTop, 0)
}

// ---------------------------------------------------------------------------
// Expression compilation
// ---------------------------------------------------------------------------

func (c *Compiler) compileExpr(expr Expr) {
	switch e := expr.(type) {
	case *Constant:
		c.builder.Emit(vm.OpLoadConst, c.AddConst(e.Value))
	case *Name:
		if e.Ctx != Load {
			panic(fmt.Sprintf("compiler: name %q used as a value outside load context", e.ID))
		}
		c.builder.Emit(vm.OpLoadName, c.AddName(e.ID))
	case *BinOp:
		op, ok := binaryOpcodes[e.Op]
		if !ok {
			panic(fmt.Sprintf("compiler: %s is not a binary operator", e.Op))
		}
		c.compileExpr(e.Left)
		c.compileExpr(e.Right)
		c.builder.Emit(op, 0)
	case *UnaryOp:
		op, ok := unaryOpcodes[e.Op]
		if !ok {
			panic(fmt.Sprintf("compiler: %s is not a unary operator", e.Op))
		}
		c.compileExpr(e.Operand)
		c.builder.Emit(op, 0)
	case *Call:
		c.compileExpr(e.Func)
		for _, arg := range e.Args {
			c.compileExpr(arg)
		}
		c.builder.Emit(vm.OpCallFunction, len(e.Args))
	case *IfExp:
		c.compileConditional(e.Test,
			func() { c.compileExpr(e.Body) },
			func() { c.compileExpr(e.OrElse) })
	case *Tuple:
		c.compileElements(e.Elts, vm.OpBuildTuple)
	case *List:
		c.compileElements(e.Elts, vm.OpBuildList)
	case *Set:
		c.compileElements(e.Elts, vm.OpBuildSet)
	case *Dict:
		c.compileDict(e)
	case *Subscript:
		if e.Ctx != Load {
			panic("compiler: subscript assignment is not supported")
		}
		c.compileExpr(e.Value)
		index := e.Slice
		if wrapped, ok := index.(*Index); ok {
			index = wrapped.Value
		}
		c.compileExpr(index)
		c.builder.Emit(vm.OpBinarySubscr, 0)
	default:
		panic(fmt.Sprintf("compiler: unsupported expression %T", expr))
	}
}

func (c *Compiler) compileElements(elts []Expr, build vm.Opcode) {
	for _, elt := range elts {
		c.compileExpr(elt)
	}
	c.builder.Emit(build, len(elts))
}

// compileDict pushes each entry value first, then its key.
func (c *Compiler) compileDict(dict *Dict) {
	if len(dict.Keys) != len(dict.Values) {
		panic(fmt.Sprintf("compiler: dict has %d keys and %d values", len(dict.Keys), len(dict.Values)))
	}
	for i := range dict.Keys {
		c.compileExpr(dict.Values[i])
		c.compileExpr(dict.Keys[i])
	}
	c.builder.Emit(vm.OpBuildDict, len(dict.Keys))
}
