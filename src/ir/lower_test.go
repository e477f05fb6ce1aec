package ir

import "testing"

func TestLowerLargeImmediateMaterialize(t *testing.T) {
	// Spec §8 E3: ADDI rX, zero, 0x12345678. A fresh program already has
	// _start pending, so l is alias-merged into it and the instruction
	// carries the merged label.
	p := NewProgram()
	x := p.NewTempReg()
	l := p.NewLabel("entry")
	p.AssignLabel(l)
	p.AddInstruction(&Instruction{Op: OpAddI, Dest: NewArg(x), Src1: NewArg(RegZero), Imm: 0x12345678}, 0)

	Lower(p, 16)

	instrs := p.Instructions.Slice()
	if len(instrs) != 3 {
		t.Fatalf("expected 3 lowered instructions, got %d", len(instrs))
	}
	if instrs[0].Op != OpAddI || instrs[0].Imm != 0x1234 {
		t.Fatalf("phase 1 mismatch: %+v", instrs[0])
	}
	if instrs[0].Label == nil || instrs[0].Label.Resolve() != l.Resolve() {
		t.Fatal("expected original label to migrate to first lowered instruction")
	}
	if instrs[1].Op != OpSllI || instrs[1].Imm != 16 {
		t.Fatalf("phase 2 mismatch: %+v", instrs[1])
	}
	if instrs[2].Op != OpAddI || instrs[2].Imm != 0x5678 {
		t.Fatalf("phase 3 mismatch: %+v", instrs[2])
	}
	for _, in := range instrs {
		if in.Dest.Reg != x {
			t.Fatalf("expected all lowered phases to target the original destination, got %+v", in)
		}
	}
}

func TestLowerInRangeImmediateUntouched(t *testing.T) {
	p := NewProgram()
	x := p.NewTempReg()
	p.AddInstruction(&Instruction{Op: OpAddI, Dest: NewArg(x), Src1: NewArg(RegZero), Imm: 10}, 0)
	Lower(p, 16)
	if p.Instructions.Len() != 1 {
		t.Fatalf("expected in-range immediate to be left alone, got %d instructions", p.Instructions.Len())
	}
}

func TestLowerConvertsToRegisterFormSibling(t *testing.T) {
	p := NewProgram()
	x := p.NewTempReg()
	y := p.NewTempReg()
	p.AddInstruction(&Instruction{Op: OpAndI, Dest: NewArg(x), Src1: NewArg(y), Imm: 0x7FFFFFF}, 0)

	Lower(p, 16)

	instrs := p.Instructions.Slice()
	last := instrs[len(instrs)-1]
	if last.Op != OpAnd {
		t.Fatalf("expected conversion to register-form AND, got %v", last.Op)
	}
	if last.Src1.Reg != y {
		t.Fatalf("expected original Src1 preserved, got %+v", last.Src1)
	}
	if last.Imm != 0 {
		t.Fatalf("expected Imm cleared after conversion, got %d", last.Imm)
	}
	if last.Src2 == nil {
		t.Fatal("expected Src2 rewritten to the materialised temp")
	}
}

func TestLowerIsIdempotent(t *testing.T) {
	p := NewProgram()
	x := p.NewTempReg()
	p.AddInstruction(&Instruction{Op: OpAddI, Dest: NewArg(x), Src1: NewArg(RegZero), Imm: 0x12345678}, 0)
	Lower(p, 16)
	n1 := p.Instructions.Len()
	Lower(p, 16)
	n2 := p.Instructions.Len()
	if n1 != n2 {
		t.Fatalf("expected lower to be idempotent, got %d then %d instructions", n1, n2)
	}
}

func TestImmRangeTwelveBitBounds(t *testing.T) {
	// immRange(12) yields the signed 12-bit field bounds. (The both-halves-
	// zero path of lowerOne is unreachable through Lower, since 0 is always
	// in range, and is not exercised here.)
	lo, hi := immRange(12)
	if lo != -2048 || hi != 2047 {
		t.Fatalf("unexpected 12-bit immediate range: [%d, %d]", lo, hi)
	}
}
