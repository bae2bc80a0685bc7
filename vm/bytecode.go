package vm

import (
	"fmt"
)

// ---------------------------------------------------------------------------
// Opcode definitions
// ---------------------------------------------------------------------------

// Opcode represents a single bytecode instruction. Every instruction is
// encoded as two bytes: the opcode and the low byte of its operand.
// Operands wider than one byte are carried by preceding OpExtendedArg
// instructions, most significant byte first.
type Opcode byte

// InstructionWidth is the number of bytes every encoded instruction takes.
const InstructionWidth = 2

// Stack Operations
const (
	OpPopTop    Opcode = 0x01 // discard top of stack
	OpDupTop    Opcode = 0x02 // duplicate top of stack
	OpPrintExpr Opcode = 0x03 // pop and echo unless None
)

// Constants and Names
const (
	OpLoadConst  Opcode = 0x10 // push consts[arg]
	OpLoadName   Opcode = 0x11 // push globals/builtins[names[arg]]
	OpStoreName  Opcode = 0x12 // pop into globals[names[arg]]
	OpDeleteName Opcode = 0x13 // remove globals[names[arg]]
)

// Collections
const (
	OpBuildList    Opcode = 0x20 // pop arg items, push list
	OpBuildTuple   Opcode = 0x21 // pop arg items, push tuple
	OpBuildSet     Opcode = 0x22 // pop arg items, push set
	OpBuildDict    Opcode = 0x23 // pop arg (value, key) pairs, push dict
	OpBinarySubscr Opcode = 0x24 // pop index, pop container, push container[index]
)

// Binary Operators
const (
	OpBinaryAdd      Opcode = 0x30
	OpBinarySubtract Opcode = 0x31
	OpBinaryMultiply Opcode = 0x32
	OpBinaryDivide   Opcode = 0x33
	OpBinaryFloorDiv Opcode = 0x34
	OpBinaryModulo   Opcode = 0x35
	OpBinaryPower    Opcode = 0x36
	OpBinaryAnd      Opcode = 0x37
	OpBinaryOr       Opcode = 0x38
	OpBinaryXor      Opcode = 0x39
	OpBinaryLShift   Opcode = 0x3A
	OpBinaryRShift   Opcode = 0x3B
)

// Unary Operators
const (
	OpUnaryPositive Opcode = 0x40
	OpUnaryNegative Opcode = 0x41
	OpUnaryNot      Opcode = 0x42
	OpUnaryInvert   Opcode = 0x43
)

// Control Flow
const (
	OpJumpAbsolute Opcode = 0x50 // pc = arg
	OpJumpIfFalse  Opcode = 0x51 // pc = arg if top is falsy (top is not popped)
	OpGetIter      Opcode = 0x52 // pop container, push iterator
	OpForIter      Opcode = 0x53 // push next element of top iterator, or pc = arg
)

// Calls
const (
	OpCallFunction Opcode = 0x60 // pop arg args and callee, push result
)

// Encoding
const (
	OpExtendedArg Opcode = 0x90 // prefix: next operand byte is shifted in
)

// ---------------------------------------------------------------------------
// Opcode metadata
// ---------------------------------------------------------------------------

// Operand describes how an opcode interprets its operand.
type Operand uint8

const (
	OperandUnused Operand = iota // always zero
	OperandConst                 // index into the constant table
	OperandName                  // index into the name table
	OperandCount                 // number of stack items or entries
	OperandTarget                // absolute instruction index
	OperandPrefix                // one byte of a wider operand
)

// OpcodeInfo holds metadata about an opcode.
type OpcodeInfo struct {
	Name    string  // human-readable name
	Operand Operand // meaning of the operand
}

var opcodeTable = map[Opcode]OpcodeInfo{
	OpPopTop:    {"POP_TOP", OperandUnused},
	OpDupTop:    {"DUP_TOP", OperandUnused},
	OpPrintExpr: {"PRINT_EXPR", OperandUnused},

	OpLoadConst:  {"LOAD_CONST", OperandConst},
	OpLoadName:   {"LOAD_NAME", OperandName},
	OpStoreName:  {"STORE_NAME", OperandName},
	OpDeleteName: {"DELETE_NAME", OperandName},

	OpBuildList:    {"BUILD_LIST", OperandCount},
	OpBuildTuple:   {"BUILD_TUPLE", OperandCount},
	OpBuildSet:     {"BUILD_SET", OperandCount},
	OpBuildDict:    {"BUILD_DICT", OperandCount},
	OpBinarySubscr: {"BINARY_SUBSCR", OperandUnused},

	OpBinaryAdd:      {"BINARY_ADD", OperandUnused},
	OpBinarySubtract: {"BINARY_SUBTRACT", OperandUnused},
	OpBinaryMultiply: {"BINARY_MULTIPLY", OperandUnused},
	OpBinaryDivide:   {"BINARY_TRUE_DIVIDE", OperandUnused},
	OpBinaryFloorDiv: {"BINARY_FLOOR_DIVIDE", OperandUnused},
	OpBinaryModulo:   {"BINARY_MODULO", OperandUnused},
	OpBinaryPower:    {"BINARY_POWER", OperandUnused},
	OpBinaryAnd:      {"BINARY_AND", OperandUnused},
	OpBinaryOr:       {"BINARY_OR", OperandUnused},
	OpBinaryXor:      {"BINARY_XOR", OperandUnused},
	OpBinaryLShift:   {"BINARY_LSHIFT", OperandUnused},
	OpBinaryRShift:   {"BINARY_RSHIFT", OperandUnused},

	OpUnaryPositive: {"UNARY_POSITIVE", OperandUnused},
	OpUnaryNegative: {"UNARY_NEGATIVE", OperandUnused},
	OpUnaryNot:      {"UNARY_NOT", OperandUnused},
	OpUnaryInvert:   {"UNARY_INVERT", OperandUnused},

	OpJumpAbsolute: {"JUMP_ABSOLUTE", OperandTarget},
	OpJumpIfFalse:  {"JUMP_IF_FALSE", OperandTarget},
	OpGetIter:      {"GET_ITER", OperandUnused},
	OpForIter:      {"FOR_ITER", OperandTarget},

	OpCallFunction: {"CALL_FUNCTION", OperandCount},

	OpExtendedArg: {"EXTENDED_ARG", OperandPrefix},
}

// Info returns the metadata for an opcode.
func (op Opcode) Info() OpcodeInfo {
	if info, ok := opcodeTable[op]; ok {
		return info
	}
	return OpcodeInfo{Name: fmt.Sprintf("UNKNOWN_%02X", byte(op))}
}

// String implements the Stringer interface.
func (op Opcode) String() string {
	return op.Info().Name
}

// IsJump reports whether the operand of op is an instruction index.
func (op Opcode) IsJump() bool {
	return op.Info().Operand == OperandTarget
}

// IsBinary reports whether op is one of the BINARY_* arithmetic or
// bitwise operators.
func (op Opcode) IsBinary() bool {
	return op >= OpBinaryAdd && op <= OpBinaryRShift
}

// IsBitwise reports whether op only accepts integer operands.
func (op Opcode) IsBitwise() bool {
	return op >= OpBinaryAnd && op <= OpBinaryRShift
}

// IsUnary reports whether op is one of the UNARY_* operators.
func (op Opcode) IsUnary() bool {
	return op >= OpUnaryPositive && op <= OpUnaryInvert
}

// ---------------------------------------------------------------------------
// BytecodeBuilder: Helper for constructing bytecode
// ---------------------------------------------------------------------------

// Label is a placeholder jump target. Labels are indices into the
// builder's label arena and are only meaningful to the builder that
// created them.
type Label int

const unbound = -1

// pending is an instruction whose operand may still be an unresolved label.
type pending struct {
	op    Opcode
	arg   int
	label Label // valid only for jumps
	jump  bool
}

// BytecodeBuilder collects instructions and assembles them into the
// two-byte encoding.
//
// Assembly is two-pass. Emission records instructions with label operands
// left symbolic; Mark binds a label to the index of the next instruction.
// Assemble then lays out every instruction, widening jumps with extra
// EXTENDED_ARG prefixes until every label's final instruction index fits
// its referring jumps, and encodes the stream.
type BytecodeBuilder struct {
	instrs  []pending
	labels  []int // label -> position in instrs, or unbound
	targets []int // label -> resolved instruction index, set by Assemble
}

// NewBytecodeBuilder creates a new bytecode builder.
func NewBytecodeBuilder() *BytecodeBuilder {
	return &BytecodeBuilder{
		instrs: make([]pending, 0, 64),
	}
}

// Len returns the number of logical instructions emitted so far, not
// counting EXTENDED_ARG prefixes.
func (b *BytecodeBuilder) Len() int {
	return len(b.instrs)
}

// Emit appends op with a non-negative operand of any size.
func (b *BytecodeBuilder) Emit(op Opcode, arg int) {
	if arg < 0 {
		panic(fmt.Sprintf("negative operand %d for %s", arg, op))
	}
	if op.IsJump() {
		panic(fmt.Sprintf("%s needs a label, use EmitJump", op))
	}
	b.instrs = append(b.instrs, pending{op: op, arg: arg})
}

// NewLabel creates an unbound label.
func (b *BytecodeBuilder) NewLabel() Label {
	b.labels = append(b.labels, unbound)
	return Label(len(b.labels) - 1)
}

// Mark binds label to the position of the next emitted instruction.
func (b *BytecodeBuilder) Mark(label Label) {
	if b.labels[label] != unbound {
		panic(fmt.Sprintf("label %d already bound", label))
	}
	b.labels[label] = len(b.instrs)
}

// EmitJump appends a jump whose target is label. The label may be bound
// before or after this call.
func (b *BytecodeBuilder) EmitJump(op Opcode, label Label) {
	if !op.IsJump() {
		panic(fmt.Sprintf("%s is not a jump", op))
	}
	if int(label) < 0 || int(label) >= len(b.labels) {
		panic(fmt.Sprintf("label %d does not belong to this builder", label))
	}
	b.instrs = append(b.instrs, pending{op: op, label: label, jump: true})
}

// argWidth is the number of encoded instructions needed for arg: one for
// the opcode plus one EXTENDED_ARG per additional base-256 digit.
func argWidth(arg int) int {
	w := 1
	for arg > 0xFF {
		arg >>= 8
		w++
	}
	return w
}

// Assemble resolves every label and returns the encoded stream. It panics
// if a referenced label was never bound.
func (b *BytecodeBuilder) Assemble() []byte {
	widths := make([]int, len(b.instrs))
	for i, in := range b.instrs {
		if in.jump {
			if b.labels[in.label] == unbound {
				panic(fmt.Sprintf("jump at %d references unbound label %d", i, in.label))
			}
			widths[i] = 1
		} else {
			widths[i] = argWidth(in.arg)
		}
	}

	// starts[i] is the encoded instruction index of logical instruction i;
	// starts[len] is the end of the stream, the target of trailing labels.
	starts := make([]int, len(b.instrs)+1)
	for {
		pos := 0
		for i, w := range widths {
			starts[i] = pos
			pos += w
		}
		starts[len(b.instrs)] = pos

		grown := false
		for i, in := range b.instrs {
			if !in.jump {
				continue
			}
			if w := argWidth(starts[b.labels[in.label]]); w > widths[i] {
				widths[i] = w
				grown = true
			}
		}
		if !grown {
			break
		}
	}

	b.targets = make([]int, len(b.labels))
	for l, pos := range b.labels {
		if pos != unbound {
			b.targets[l] = starts[pos]
		}
	}

	code := make([]byte, 0, starts[len(b.instrs)]*InstructionWidth)
	for i, in := range b.instrs {
		arg := in.arg
		if in.jump {
			arg = starts[b.labels[in.label]]
		}
		code = appendInstruction(code, in.op, arg, widths[i])
	}
	return code
}

// appendInstruction encodes op/arg using exactly width instructions. Any
// prefix beyond what arg needs carries a zero byte.
func appendInstruction(code []byte, op Opcode, arg, width int) []byte {
	for shift := 8 * (width - 1); shift > 0; shift -= 8 {
		code = append(code, byte(OpExtendedArg), byte(arg>>shift))
	}
	return append(code, byte(op), byte(arg))
}

// LabelTarget returns the instruction index label resolved to in the most
// recent Assemble call.
func (b *BytecodeBuilder) LabelTarget(label Label) int {
	if b.targets == nil {
		panic("LabelTarget called before Assemble")
	}
	return b.targets[label]
}
