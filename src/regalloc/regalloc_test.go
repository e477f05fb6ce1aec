package regalloc

import (
	"testing"

	"golang.org/x/exp/slices"

	"rvcc/src/cfg"
	"rvcc/src/ir"
	"rvcc/src/target/riscv"
)

// allocate runs the backend analyses and the allocator over p.
func allocate(p *ir.Program) (*Allocator, []*cfg.Interval) {
	graph := cfg.Build(p)
	cfg.ComputeLiveness(graph)
	intervals := cfg.ExtractIntervals(graph)
	ra := New(p, graph, intervals)
	ra.Run()
	return ra, intervals
}

func addAll(p *ir.Program, instrs ...*ir.Instruction) {
	for _, in := range instrs {
		p.AddInstruction(in, 0)
	}
}

// checkNoOverlapConflicts asserts spec §8 invariant 5: overlapping
// intervals never share a binding unless one is spilled.
func checkNoOverlapConflicts(t *testing.T, ra *Allocator, intervals []*cfg.Interval) {
	t.Helper()
	for i, a := range intervals {
		for _, b := range intervals[i+1:] {
			if b.Start > a.End {
				break
			}
			ba, bb := ra.Bindings[a.TempRegID], ra.Bindings[b.TempRegID]
			if ba == ir.RegSpillRequired || bb == ir.RegSpillRequired {
				continue
			}
			if ba == bb {
				t.Fatalf("overlapping intervals t%d [%d,%d] and t%d [%d,%d] share register %d",
					a.TempRegID, a.Start, a.End, b.TempRegID, b.Start, b.End, ba)
			}
		}
	}
}

func TestSingleScalarAddAllocatesDistinctRegisters(t *testing.T) {
	// Spec §8 E1: a = a + b with constant initialisations.
	p := ir.NewProgram()
	a, b := p.NewTempReg(), p.NewTempReg()
	addAll(p,
		&ir.Instruction{Op: ir.OpAddI, Dest: ir.NewArg(a), Src1: ir.NewArg(ir.RegZero), Imm: 1},
		&ir.Instruction{Op: ir.OpAddI, Dest: ir.NewArg(b), Src1: ir.NewArg(ir.RegZero), Imm: 2},
		&ir.Instruction{Op: ir.OpAdd, Dest: ir.NewArg(a), Src1: ir.NewArg(a), Src2: ir.NewArg(b)},
		&ir.Instruction{Op: ir.OpSysExit},
	)

	ra, intervals := allocate(p)

	for _, id := range []ir.RegID{a, b} {
		bind := ra.Bindings[id]
		if bind == ir.RegSpillRequired {
			t.Fatalf("unexpected spill of t%d", id)
		}
		if !slices.Contains(riscv.GPRegs, int(bind)) {
			t.Fatalf("t%d bound outside the general-purpose set: %d", id, bind)
		}
	}
	checkNoOverlapConflicts(t, ra, intervals)
}

func TestSpillUnderRegisterPressure(t *testing.T) {
	// Spec §8 E2: more simultaneously-live temporaries than NUM_GP_REGS.
	p := ir.NewProgram()
	n := riscv.NumGPRegs + 2

	temps := make([]ir.RegID, n)
	for i := range temps {
		temps[i] = p.NewTempReg()
		addAll(p, &ir.Instruction{Op: ir.OpAddI, Dest: ir.NewArg(temps[i]), Src1: ir.NewArg(ir.RegZero), Imm: int32(i)})
	}
	// Consume every temporary after all defs, keeping them all live at once.
	sum := p.NewTempReg()
	addAll(p, &ir.Instruction{Op: ir.OpAddI, Dest: ir.NewArg(sum), Src1: ir.NewArg(ir.RegZero), Imm: 0})
	for _, tmp := range temps {
		addAll(p, &ir.Instruction{Op: ir.OpAdd, Dest: ir.NewArg(sum), Src1: ir.NewArg(sum), Src2: ir.NewArg(tmp)})
	}

	ra, intervals := allocate(p)

	spilled := 0
	for _, bind := range ra.Bindings {
		if bind == ir.RegSpillRequired {
			spilled++
		}
	}
	if spilled == 0 {
		t.Fatal("expected at least one spilled temporary under pressure")
	}
	checkNoOverlapConflicts(t, ra, intervals)

	// Spilled or not, no temporary may be bound to a spill-reserved
	// register.
	for id, bind := range ra.Bindings {
		if bind >= 0 && id != 0 && slices.Contains(riscv.SpillRegs[:], int(bind)) {
			t.Fatalf("t%d bound to a spill-reserved register", id)
		}
	}
}

func TestConstraintHonoured(t *testing.T) {
	// Spec §8 invariant 6: a pinned, non-spilled interval is bound inside
	// its whitelist.
	p := ir.NewProgram()
	tmp := p.NewTempReg()
	whitelist := riscv.WhitelistResult()
	addAll(p,
		&ir.Instruction{Op: ir.OpSysRead, Dest: ir.NewConstrainedArg(tmp, whitelist)},
		&ir.Instruction{Op: ir.OpSysPrint, Src1: ir.NewConstrainedArg(tmp, whitelist)},
	)

	ra, _ := allocate(p)

	bind := ra.Bindings[tmp]
	if bind == ir.RegSpillRequired {
		t.Fatal("unexpected spill of the pinned temporary")
	}
	if !slices.Contains(whitelist, int(bind)) {
		t.Fatalf("pinned temporary bound to %d, outside whitelist %v", bind, whitelist)
	}
}

func TestCallerSaveAvoidedAcrossCall(t *testing.T) {
	// Spec §8 invariant 7: a temporary alive across a call site must not
	// sit in a caller-save register.
	p := ir.NewProgram()
	held := p.NewTempReg()
	arg := p.NewTempReg()
	addAll(p,
		&ir.Instruction{Op: ir.OpAddI, Dest: ir.NewArg(held), Src1: ir.NewArg(ir.RegZero), Imm: 7},
		&ir.Instruction{Op: ir.OpAddI, Dest: ir.NewConstrainedArg(arg, riscv.WhitelistArg()), Src1: ir.NewArg(ir.RegZero), Imm: 1},
		&ir.Instruction{Op: ir.OpSysPrint, Src1: ir.NewConstrainedArg(arg, riscv.WhitelistArg())},
		&ir.Instruction{Op: ir.OpSysPrint, Src1: ir.NewArg(held)},
	)

	ra, _ := allocate(p)

	bind := ra.Bindings[held]
	if bind == ir.RegSpillRequired {
		t.Fatal("unexpected spill of the held temporary")
	}
	if slices.Contains(riscv.CallerSaved, int(bind)) {
		t.Fatalf("temporary live across a call bound to caller-save register %d", bind)
	}
}

func TestZeroRegisterSelfAllocated(t *testing.T) {
	p := ir.NewProgram()
	tmp := p.NewTempReg()
	addAll(p, &ir.Instruction{Op: ir.OpAddI, Dest: ir.NewArg(tmp), Src1: ir.NewArg(ir.RegZero), Imm: 1})

	ra, _ := allocate(p)
	if ra.Bindings[ir.RegZero] != ir.RegZero {
		t.Fatalf("expected the zero register to be self-allocated, got %d", ra.Bindings[ir.RegZero])
	}
}

func TestSpillStealsFromLongestActiveInterval(t *testing.T) {
	// Force the textbook heuristic: with one general-purpose register
	// artificially consumed by pressure, the interval with the farthest
	// end point is the one evicted.
	p := ir.NewProgram()
	n := riscv.NumGPRegs

	// longLived spans the whole program.
	longLived := p.NewTempReg()
	addAll(p, &ir.Instruction{Op: ir.OpAddI, Dest: ir.NewArg(longLived), Src1: ir.NewArg(ir.RegZero), Imm: 1})

	// Fill the register file with short-lived overlapping temporaries.
	temps := make([]ir.RegID, n)
	for i := range temps {
		temps[i] = p.NewTempReg()
		addAll(p, &ir.Instruction{Op: ir.OpAddI, Dest: ir.NewArg(temps[i]), Src1: ir.NewArg(ir.RegZero), Imm: int32(i)})
	}
	sum := p.NewTempReg()
	addAll(p, &ir.Instruction{Op: ir.OpAddI, Dest: ir.NewArg(sum), Src1: ir.NewArg(ir.RegZero), Imm: 0})
	for _, tmp := range temps {
		addAll(p, &ir.Instruction{Op: ir.OpAdd, Dest: ir.NewArg(sum), Src1: ir.NewArg(sum), Src2: ir.NewArg(tmp)})
	}
	// Final use keeps longLived alive past everything else.
	addAll(p, &ir.Instruction{Op: ir.OpSysPrint, Src1: ir.NewArg(longLived)})

	ra, intervals := allocate(p)

	if ra.Bindings[longLived] != ir.RegSpillRequired {
		t.Fatalf("expected the longest-lived temporary to be spilled, got binding %d", ra.Bindings[longLived])
	}
	checkNoOverlapConflicts(t, ra, intervals)
}
