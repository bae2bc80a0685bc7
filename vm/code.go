package vm

import (
	"fmt"
)

// Code is an immutable compiled unit: the interned names, the interned
// constants, and the encoded instruction stream that refers to both by
// index. The slices returned by its accessors must not be modified.
type Code struct {
	names  []string
	consts []Value
	code   []byte
}

// NewCode bundles the three tables into a Code. The arguments are copied.
// It panics if the stream is not a whole number of instructions.
func NewCode(names []string, consts []Value, code []byte) *Code {
	if len(code)%InstructionWidth != 0 {
		panic(fmt.Sprintf("instruction stream has odd length %d", len(code)))
	}
	return &Code{
		names:  append([]string(nil), names...),
		consts: append([]Value(nil), consts...),
		code:   append([]byte(nil), code...),
	}
}

// Names returns the interned identifier table.
func (c *Code) Names() []string { return c.names }

// Consts returns the interned constant table.
func (c *Code) Consts() []Value { return c.consts }

// Bytes returns the encoded instruction stream.
func (c *Code) Bytes() []byte { return c.code }

// Len returns the number of encoded instructions, EXTENDED_ARG prefixes
// included.
func (c *Code) Len() int {
	return len(c.code) / InstructionWidth
}

// fetch decodes the instruction starting at index pc, folding any
// EXTENDED_ARG prefixes into the operand. It returns the real opcode, the
// assembled operand and the index of the following instruction.
func (c *Code) fetch(pc int) (op Opcode, arg int, next int) {
	for {
		op = Opcode(c.code[pc*InstructionWidth])
		arg = arg<<8 | int(c.code[pc*InstructionWidth+1])
		pc++
		if op != OpExtendedArg {
			return op, arg, pc
		}
		if pc >= c.Len() {
			panic("EXTENDED_ARG at end of instruction stream")
		}
	}
}

// Instruction is one decoded instruction.
type Instruction struct {
	Index int // index of the first encoded slot, prefixes included
	Op    Opcode
	Arg   int
}

// Instructions decodes the whole stream.
func (c *Code) Instructions() []Instruction {
	var out []Instruction
	for pc := 0; pc < c.Len(); {
		op, arg, next := c.fetch(pc)
		out = append(out, Instruction{Index: pc, Op: op, Arg: arg})
		pc = next
	}
	return out
}

// describe renders an instruction with its operand resolved against the
// tables, e.g. "LOAD_NAME 0 (a)".
func (c *Code) describe(op Opcode, arg int) string {
	info := op.Info()
	switch info.Operand {
	case OperandUnused:
		return info.Name
	case OperandConst:
		if arg < len(c.consts) {
			return fmt.Sprintf("%s %d (%s)", info.Name, arg, Repr(c.consts[arg]))
		}
	case OperandName:
		if arg < len(c.names) {
			return fmt.Sprintf("%s %d (%s)", info.Name, arg, c.names[arg])
		}
	case OperandTarget:
		return fmt.Sprintf("%s -> %d", info.Name, arg)
	}
	return fmt.Sprintf("%s %d", info.Name, arg)
}

// String summarizes the tables.
func (c *Code) String() string {
	return fmt.Sprintf("names=%v consts=%d instructions=%d", c.names, len(c.consts), c.Len())
}
