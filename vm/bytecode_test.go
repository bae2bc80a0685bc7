package vm

import (
	"bytes"
	"strings"
	"testing"
)

// ---------------------------------------------------------------------------
// Opcode metadata tests
// ---------------------------------------------------------------------------

func TestOpcodeInfo(t *testing.T) {
	tests := []struct {
		op      Opcode
		name    string
		operand Operand
	}{
		{OpPopTop, "POP_TOP", OperandUnused},
		{OpDupTop, "DUP_TOP", OperandUnused},
		{OpPrintExpr, "PRINT_EXPR", OperandUnused},
		{OpLoadConst, "LOAD_CONST", OperandConst},
		{OpLoadName, "LOAD_NAME", OperandName},
		{OpStoreName, "STORE_NAME", OperandName},
		{OpDeleteName, "DELETE_NAME", OperandName},
		{OpBuildDict, "BUILD_DICT", OperandCount},
		{OpBinaryDivide, "BINARY_TRUE_DIVIDE", OperandUnused},
		{OpBinaryFloorDiv, "BINARY_FLOOR_DIVIDE", OperandUnused},
		{OpJumpAbsolute, "JUMP_ABSOLUTE", OperandTarget},
		{OpJumpIfFalse, "JUMP_IF_FALSE", OperandTarget},
		{OpForIter, "FOR_ITER", OperandTarget},
		{OpCallFunction, "CALL_FUNCTION", OperandCount},
		{OpExtendedArg, "EXTENDED_ARG", OperandPrefix},
	}

	for _, tt := range tests {
		info := tt.op.Info()
		if info.Name != tt.name {
			t.Errorf("%s: Name = %q, want %q", tt.op, info.Name, tt.name)
		}
		if info.Operand != tt.operand {
			t.Errorf("%s: Operand = %d, want %d", tt.op, info.Operand, tt.operand)
		}
	}
}

func TestUnknownOpcode(t *testing.T) {
	op := Opcode(0xFF)
	if !strings.HasPrefix(op.String(), "UNKNOWN_") {
		t.Errorf("unknown opcode should have UNKNOWN_ prefix, got %q", op.String())
	}
}

func TestOpcodeClasses(t *testing.T) {
	if !OpBinaryPower.IsBinary() || OpBinaryPower.IsBitwise() {
		t.Error("BINARY_POWER should be binary and not bitwise")
	}
	if !OpBinaryRShift.IsBitwise() {
		t.Error("BINARY_RSHIFT should be bitwise")
	}
	if !OpUnaryInvert.IsUnary() || OpUnaryInvert.IsBinary() {
		t.Error("UNARY_INVERT should be unary only")
	}
	if OpLoadConst.IsJump() || !OpForIter.IsJump() {
		t.Error("only target operands are jumps")
	}
}

// ---------------------------------------------------------------------------
// Operand encoding tests
// ---------------------------------------------------------------------------

func TestExtendedArgEncoding(t *testing.T) {
	tests := []struct {
		arg  int
		want []byte
	}{
		{0, []byte{0x10, 0x00}},
		{255, []byte{0x10, 0xFF}},
		{256, []byte{0x90, 0x01, 0x10, 0x00}},
		{65535, []byte{0x90, 0xFF, 0x10, 0xFF}},
		{65536, []byte{0x90, 0x01, 0x90, 0x00, 0x10, 0x00}},
		{0x123456, []byte{0x90, 0x12, 0x90, 0x34, 0x10, 0x56}},
	}

	for _, tt := range tests {
		b := NewBytecodeBuilder()
		b.Emit(OpLoadConst, tt.arg)
		got := b.Assemble()
		if !bytes.Equal(got, tt.want) {
			t.Errorf("Emit(LOAD_CONST, %d) = % x, want % x", tt.arg, got, tt.want)
		}
	}
}

func TestExtendedArgRoundTrip(t *testing.T) {
	for _, arg := range []int{0, 1, 255, 256, 257, 65535, 65536, 1 << 24, 1<<31 - 1} {
		b := NewBytecodeBuilder()
		b.Emit(OpBuildTuple, arg)
		b.Emit(OpPopTop, 0)
		code := NewCode(nil, nil, b.Assemble())

		instrs := code.Instructions()
		if len(instrs) != 2 {
			t.Fatalf("arg %d: decoded %d instructions, want 2", arg, len(instrs))
		}
		if instrs[0].Op != OpBuildTuple || instrs[0].Arg != arg {
			t.Errorf("arg %d: decoded %s %d", arg, instrs[0].Op, instrs[0].Arg)
		}
		if instrs[1].Op != OpPopTop || instrs[1].Arg != 0 {
			t.Errorf("arg %d: accumulator leaked into next instruction: %s %d", arg, instrs[1].Op, instrs[1].Arg)
		}
		if instrs[1].Index != argWidth(arg) {
			t.Errorf("arg %d: second instruction at %d, want %d", arg, instrs[1].Index, argWidth(arg))
		}
	}
}

func TestTrailingExtendedArgPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic on trailing EXTENDED_ARG")
		}
	}()
	NewCode(nil, nil, []byte{byte(OpExtendedArg), 0x01}).Instructions()
}

func TestNewCodeOddLengthPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic on odd-length stream")
		}
	}()
	NewCode(nil, nil, []byte{byte(OpPopTop)})
}

// ---------------------------------------------------------------------------
// Label tests
// ---------------------------------------------------------------------------

func TestForwardAndBackwardJumps(t *testing.T) {
	b := NewBytecodeBuilder()
	start := b.NewLabel()
	end := b.NewLabel()

	b.Mark(start)                     // 0
	b.EmitJump(OpJumpIfFalse, end)    // 0
	b.Emit(OpPopTop, 0)               // 1
	b.EmitJump(OpJumpAbsolute, start) // 2
	b.Mark(end)
	b.Emit(OpPopTop, 0) // 3

	got := b.Assemble()
	want := []byte{
		0x51, 0x03,
		0x01, 0x00,
		0x50, 0x00,
		0x01, 0x00,
	}
	if !bytes.Equal(got, want) {
		t.Errorf("Assemble() = % x, want % x", got, want)
	}
	if b.LabelTarget(start) != 0 || b.LabelTarget(end) != 3 {
		t.Errorf("targets = %d, %d, want 0, 3", b.LabelTarget(start), b.LabelTarget(end))
	}
}

func TestLabelAtEndOfStream(t *testing.T) {
	b := NewBytecodeBuilder()
	end := b.NewLabel()
	b.EmitJump(OpJumpAbsolute, end)
	b.Emit(OpPopTop, 0)
	b.Mark(end)

	b.Assemble()
	if b.LabelTarget(end) != 2 {
		t.Errorf("LabelTarget = %d, want 2", b.LabelTarget(end))
	}
}

func TestLongForwardJumpWidens(t *testing.T) {
	b := NewBytecodeBuilder()
	end := b.NewLabel()
	b.EmitJump(OpJumpAbsolute, end)
	for i := 0; i < 300; i++ {
		b.Emit(OpPopTop, 0)
	}
	b.Mark(end)
	b.Emit(OpDupTop, 0)

	code := NewCode(nil, nil, b.Assemble())
	// One EXTENDED_ARG prefix shifts everything after the jump by one.
	if got := b.LabelTarget(end); got != 302 {
		t.Fatalf("LabelTarget = %d, want 302", got)
	}
	if !bytes.Equal(code.Bytes()[:4], []byte{0x90, 0x01, 0x50, 0x2E}) {
		t.Errorf("jump encoded as % x", code.Bytes()[:4])
	}

	op, arg, next := code.fetch(0)
	if op != OpJumpAbsolute || arg != 302 || next != 2 {
		t.Errorf("fetch(0) = %s %d next %d", op, arg, next)
	}
	if op, _, _ := code.fetch(arg); op != OpDupTop {
		t.Errorf("jump lands on %s, want DUP_TOP", op)
	}
}

func TestLongBackwardJump(t *testing.T) {
	b := NewBytecodeBuilder()
	for i := 0; i < 400; i++ {
		b.Emit(OpPopTop, 0)
	}
	loop := b.NewLabel()
	b.Mark(loop)
	b.Emit(OpDupTop, 0)
	b.EmitJump(OpJumpAbsolute, loop)

	code := NewCode(nil, nil, b.Assemble())
	instrs := code.Instructions()
	last := instrs[len(instrs)-1]
	if last.Op != OpJumpAbsolute || last.Arg != 400 {
		t.Errorf("last instruction = %s %d, want JUMP_ABSOLUTE 400", last.Op, last.Arg)
	}
}

func TestUnboundLabelPanics(t *testing.T) {
	b := NewBytecodeBuilder()
	b.EmitJump(OpJumpAbsolute, b.NewLabel())

	defer func() {
		if recover() == nil {
			t.Error("expected panic for unbound label")
		}
	}()
	b.Assemble()
}

func TestDoubleMarkPanics(t *testing.T) {
	b := NewBytecodeBuilder()
	l := b.NewLabel()
	b.Mark(l)

	defer func() {
		if recover() == nil {
			t.Error("expected panic when binding a label twice")
		}
	}()
	b.Mark(l)
}

func TestEmitRejectsJumpOpcode(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic when emitting a jump without a label")
		}
	}()
	NewBytecodeBuilder().Emit(OpJumpAbsolute, 3)
}

func TestEmitRejectsNegativeOperand(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for negative operand")
		}
	}()
	NewBytecodeBuilder().Emit(OpLoadConst, -1)
}

func TestDescribe(t *testing.T) {
	code := NewCode([]string{"a"}, []Value{Str("k")}, nil)
	tests := []struct {
		op   Opcode
		arg  int
		want string
	}{
		{OpLoadName, 0, "LOAD_NAME 0 (a)"},
		{OpLoadConst, 0, "LOAD_CONST 0 ('k')"},
		{OpJumpAbsolute, 7, "JUMP_ABSOLUTE -> 7"},
		{OpBuildList, 3, "BUILD_LIST 3"},
		{OpPopTop, 0, "POP_TOP"},
	}
	for _, tt := range tests {
		if got := code.describe(tt.op, tt.arg); got != tt.want {
			t.Errorf("describe(%s, %d) = %q, want %q", tt.op, tt.arg, got, tt.want)
		}
	}
}
