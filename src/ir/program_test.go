package ir

import "testing"

func TestNewProgramLatchesStartLabel(t *testing.T) {
	p := NewProgram()
	if p.Pending() == nil {
		t.Fatal("expected _start to be pending on a fresh program")
	}
	if p.Pending().Name != "_start" || !p.Pending().Global {
		t.Fatalf("expected pending _start global label, got %+v", p.Pending())
	}

	node := p.AddInstruction(&Instruction{Op: OpNop}, 0)
	if node.V.Label == nil || node.V.Label.Name != "_start" {
		t.Fatal("expected first instruction to carry the _start label")
	}
	if p.Pending() != nil {
		t.Fatal("expected pending slot to be cleared after AddInstruction")
	}
}

func TestAddInstructionAttachesLineCommentOnce(t *testing.T) {
	p := NewProgram()
	n1 := p.AddInstruction(&Instruction{Op: OpNop}, 5)
	n2 := p.AddInstruction(&Instruction{Op: OpNop}, 5)
	n3 := p.AddInstruction(&Instruction{Op: OpNop}, 6)

	if n1.V.Comment != "line 5" {
		t.Fatalf("want 'line 5', got %q", n1.V.Comment)
	}
	if n2.V.Comment != "" {
		t.Fatalf("want no comment on same-line instruction, got %q", n2.V.Comment)
	}
	if n3.V.Comment != "line 6" {
		t.Fatalf("want 'line 6', got %q", n3.V.Comment)
	}
}

func TestAssignLabelAliasMerge(t *testing.T) {
	p := NewProgram()
	// Consume the implicit _start pending slot first.
	p.AddInstruction(&Instruction{Op: OpNop}, 0)

	l1 := p.NewLabel("L1")
	l2 := p.NewLabel("L2")
	p.AssignLabel(l1)
	p.AssignLabel(l2) // l2 collapses into l1.

	if !l2.IsAlias {
		t.Fatal("expected l2 to become an alias")
	}
	node := p.AddInstruction(&Instruction{Op: OpNop}, 0)
	if node.V.Label != l1 {
		t.Fatal("expected instruction to carry the surviving primary label")
	}
}

func TestRemoveInstructionMigratesLabelToSyntheticNOP(t *testing.T) {
	p := NewProgram()
	p.AddInstruction(&Instruction{Op: OpNop}, 0) // consumes _start

	mid := p.AddInstruction(&Instruction{Op: OpNop}, 0)
	l := p.NewLabel("mid")
	p.AssignLabel(l)
	last := p.AddInstruction(&Instruction{Op: OpNop}, 0) // carries l, labelled
	_ = mid

	p.RemoveInstruction(last)

	tail := p.Instructions.Back()
	if tail.V.Label != l {
		t.Fatal("expected label to migrate to a synthesised successor")
	}
	if tail.V.Op != OpNop {
		t.Fatalf("expected synthesised successor to be a NOP, got %v", tail.V.Op)
	}
}

func TestRemoveInstructionMigratesToExistingUnlabelledSuccessor(t *testing.T) {
	p := NewProgram()
	first := p.AddInstruction(&Instruction{Op: OpNop}, 0) // consumes _start
	l := p.NewLabel("x")
	p.AssignLabel(l)
	labelled := p.AddInstruction(&Instruction{Op: OpNop}, 0)
	succ := p.AddInstruction(&Instruction{Op: OpNop}, 0)
	_ = first

	p.RemoveInstruction(labelled)

	if succ.V.Label != l {
		t.Fatal("expected label to migrate directly to the existing unlabelled successor")
	}
	if p.Instructions.Len() != 2 {
		t.Fatalf("expected no synthetic NOP to be inserted, got %d instructions", p.Instructions.Len())
	}
}

func TestProgramEpilogSkipsIfAlreadyPresent(t *testing.T) {
	p := NewProgram()
	p.AddInstruction(&Instruction{Op: OpSysExit}, 0)
	p.ProgramEpilog()
	if p.Instructions.Len() != 1 {
		t.Fatalf("expected no duplicate exit(0), got %d instructions", p.Instructions.Len())
	}
}

func TestProgramEpilogAppendsExit(t *testing.T) {
	p := NewProgram()
	p.AddInstruction(&Instruction{Op: OpNop}, 0)
	p.ProgramEpilog()
	last := p.Instructions.Back()
	if last.V.Op != OpSysExit {
		t.Fatalf("expected trailing exit(0), got %v", last.V.Op)
	}
}

func TestProgramEpilogSkipsTrailingSyntheticNOPs(t *testing.T) {
	p := NewProgram()
	p.AddInstruction(&Instruction{Op: OpSysExit}, 0)
	p.Instructions.PushBack(&Instruction{Op: OpNop}) // unlabelled, synthetic
	p.ProgramEpilog()
	if p.Instructions.Len() != 2 {
		t.Fatalf("expected epilog to recognise exit(0) behind trailing NOP, got %d instructions", p.Instructions.Len())
	}
}

func TestSingleScalarAdd(t *testing.T) {
	// Mirrors spec §8 E1: a = a + b.
	p := NewProgram()
	a := p.NewScalar("a")
	b := p.NewScalar("b")

	p.AddInstruction(&Instruction{Op: OpAddI, Dest: NewArg(a.Reg), Src1: NewArg(RegZero), Imm: 1}, 1)
	p.AddInstruction(&Instruction{Op: OpAddI, Dest: NewArg(b.Reg), Src1: NewArg(RegZero), Imm: 2}, 2)
	p.AddInstruction(&Instruction{Op: OpAdd, Dest: NewArg(a.Reg), Src1: NewArg(a.Reg), Src2: NewArg(b.Reg)}, 3)
	p.ProgramEpilog()

	if p.Instructions.Len() != 4 {
		t.Fatalf("expected 4 instructions, got %d", p.Instructions.Len())
	}
	if a.Reg == b.Reg {
		t.Fatal("expected distinct temp registers for a and b")
	}
	last := p.Instructions.Back()
	if last.V.Op != OpSysExit {
		t.Fatal("expected exit(0) epilog")
	}
}
