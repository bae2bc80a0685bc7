package vm

import (
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/tliron/commonlog"
)

// ---------------------------------------------------------------------------
// VM: Bytecode execution engine
// ---------------------------------------------------------------------------

// Options configures a VM.
type Options struct {
	// Output receives echoed values. Defaults to os.Stdout.
	Output io.Writer

	// Builtins is the read-only fallback consulted by LOAD_NAME when a
	// name is not a global. It is copied at construction.
	Builtins map[string]Value

	// Trace logs every dispatched instruction at debug level.
	Trace bool

	// StackHint is the initial operand stack capacity.
	StackHint int
}

// VM executes Code against runtime state that persists across Run calls,
// so globals stored by one compiled unit are visible to the next.
//
// A VM is not safe for concurrent use; callers sharing one instance must
// serialize Run themselves.
type VM struct {
	// ID identifies this instance in log output.
	ID string

	out      io.Writer
	builtins map[string]Value
	globals  map[string]Value
	stack    []Value
	trace    bool
}

// New creates a VM with empty globals.
func New(opts Options) *VM {
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}
	hint := opts.StackHint
	if hint <= 0 {
		hint = 64
	}
	builtins := make(map[string]Value, len(opts.Builtins))
	for name, v := range opts.Builtins {
		builtins[name] = v
	}

	m := &VM{
		ID:       uuid.NewString(),
		out:      out,
		builtins: builtins,
		globals:  make(map[string]Value),
		stack:    make([]Value, 0, hint),
		trace:    opts.Trace,
	}
	log.Infof("vm %s: created with %d builtins", m.ID, len(builtins))
	return m
}

// Global returns the current value of a global variable.
func (m *VM) Global(name string) (Value, bool) {
	v, ok := m.globals[name]
	return v, ok
}

// StackDepth returns the number of values on the operand stack.
func (m *VM) StackDepth() int {
	return len(m.stack)
}

// ---------------------------------------------------------------------------
// Stack operations
// ---------------------------------------------------------------------------

func (m *VM) push(v Value) {
	m.stack = append(m.stack, v)
}

func (m *VM) pop() Value {
	if len(m.stack) == 0 {
		panic("stack underflow")
	}
	v := m.stack[len(m.stack)-1]
	m.stack[len(m.stack)-1] = nil
	m.stack = m.stack[:len(m.stack)-1]
	return v
}

func (m *VM) top() Value {
	if len(m.stack) == 0 {
		panic("stack underflow")
	}
	return m.stack[len(m.stack)-1]
}

// popN pops n values and returns them in push order.
func (m *VM) popN(n int) []Value {
	if len(m.stack) < n {
		panic("stack underflow")
	}
	sp := len(m.stack) - n
	result := make([]Value, n)
	copy(result, m.stack[sp:])
	clear(m.stack[sp:])
	m.stack = m.stack[:sp]
	return result
}

// ---------------------------------------------------------------------------
// Main interpreter loop
// ---------------------------------------------------------------------------

// Run executes code to completion. User-facing failures such as an
// undefined name are returned as *RuntimeError; the operand stack is
// cleared so the VM can run further units, and globals stored before the
// failure are kept. Run panics if the operand stack is not empty after a
// successful run.
func (m *VM) Run(code *Code) error {
	if err := m.execute(code); err != nil {
		clear(m.stack)
		m.stack = m.stack[:0]
		log.Errorf("vm %s: %v", m.ID, err)
		return err
	}
	if len(m.stack) != 0 {
		panic(fmt.Sprintf("stack should be empty after run, found %d values", len(m.stack)))
	}
	return nil
}

func (m *VM) execute(code *Code) error {
	tracing := m.trace && log.AllowLevel(commonlog.Debug)
	log.Debugf("vm %s: running %s", m.ID, code)

	for pc := 0; pc < code.Len(); {
		start := pc
		op, arg, next := code.fetch(pc)
		if tracing {
			log.Debugf("vm %s: %04d %s (depth %d)", m.ID, start, code.describe(op, arg), len(m.stack))
		}
		pc = next

		switch op {
		// --- Stack operations ---
		case OpPopTop:
			m.pop()

		case OpDupTop:
			m.push(m.top())

		case OpPrintExpr:
			v := m.pop()
			if _, isNone := v.(NoneType); !isNone {
				if _, err := fmt.Fprintln(m.out, Display(v)); err != nil {
					return fmt.Errorf("echo: %w", err)
				}
			}

		// --- Constants and names ---
		case OpLoadConst:
			m.push(code.consts[arg])

		case OpLoadName:
			name := code.names[arg]
			v, ok := m.globals[name]
			if !ok {
				v, ok = m.builtins[name]
			}
			if !ok {
				return undefinedName(name)
			}
			m.push(v)

		case OpStoreName:
			m.globals[code.names[arg]] = m.pop()

		case OpDeleteName:
			name := code.names[arg]
			if _, ok := m.globals[name]; !ok {
				return undefinedName(name)
			}
			delete(m.globals, name)

		// --- Collections ---
		case OpBuildList:
			m.push(NewList(m.popN(arg)...))

		case OpBuildTuple:
			m.push(Tuple(m.popN(arg)))

		case OpBuildSet:
			s, err := NewSet(m.popN(arg)...)
			if err != nil {
				return err
			}
			m.push(s)

		case OpBuildDict:
			// Each entry was pushed value first, then key.
			flat := m.popN(2 * arg)
			d := NewDict()
			for i := 0; i < len(flat); i += 2 {
				if err := d.Set(flat[i+1], flat[i]); err != nil {
					return err
				}
			}
			m.push(d)

		case OpBinarySubscr:
			index := m.pop()
			container := m.pop()
			v, err := Index(container, index)
			if err != nil {
				return err
			}
			m.push(v)

		// --- Operators ---
		case OpBinaryAdd, OpBinarySubtract, OpBinaryMultiply, OpBinaryDivide,
			OpBinaryFloorDiv, OpBinaryModulo, OpBinaryPower,
			OpBinaryAnd, OpBinaryOr, OpBinaryXor, OpBinaryLShift, OpBinaryRShift:
			right := m.pop()
			left := m.pop()
			v, err := BinaryOp(op, left, right)
			if err != nil {
				return err
			}
			m.push(v)

		case OpUnaryPositive, OpUnaryNegative, OpUnaryNot, OpUnaryInvert:
			v, err := UnaryOp(op, m.pop())
			if err != nil {
				return err
			}
			m.push(v)

		// --- Control flow ---
		case OpJumpAbsolute:
			pc = arg

		case OpJumpIfFalse:
			if !Truthy(m.top()) {
				pc = arg
			}

		case OpGetIter:
			it, err := Iterate(m.pop())
			if err != nil {
				return err
			}
			m.push(it)

		case OpForIter:
			it, ok := m.top().(*Iterator)
			if !ok {
				panic(fmt.Sprintf("FOR_ITER at %d: top of stack is %s, not an iterator", start, m.top().Kind()))
			}
			if v, more := it.Next(); more {
				m.push(v)
			} else {
				pc = arg
			}

		// --- Calls ---
		case OpCallFunction:
			args := m.popN(arg)
			callee := m.pop()
			v, err := Call(callee, args)
			if err != nil {
				return err
			}
			m.push(v)

		default:
			panic(fmt.Sprintf("unknown opcode %s at %d", op, start))
		}
	}
	return nil
}
