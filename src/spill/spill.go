// spill.go materialises the result of register allocation into the CFG
// (spec §4.7): every temporary bound to a physical register is rewritten to
// it, and every spilled temporary is replaced by one of the reserved spill
// registers, with loads and stores against a statically allocated global
// inserted around its uses and defs. The per-block spill-slot cache follows
// ACSE's t_spillState/materializeRegAllocInBB design.

package spill

import (
	"fmt"

	"rvcc/src/cfg"
	"rvcc/src/ir"
	"rvcc/src/target/riscv"
	"rvcc/src/util"
)

// slotState tracks one spill-reserved register: the temporary currently
// cached in it, and whether the register holds a value newer than the
// temporary's memory location.
type slotState struct {
	temp  ir.RegID
	dirty bool
}

// argState tracks one instruction operand during materialisation.
type argState struct {
	arg    *ir.InstrArg
	isDest bool
	slot   int // spill slot index, or -1.
}

// Materialise rewrites graph in place using the allocator's binding table,
// then re-serialises the blocks back into p's linear instruction list.
// Spilled temporaries each receive a zero-initialised one-word global named
// ".t<id>" in p's data segment.
func Materialise(p *ir.Program, graph *cfg.Cfg, bindings []ir.RegID) {
	spillLabels := materialiseSpillMemory(p, bindings)
	for _, b := range graph.Blocks {
		materialiseBlock(b, bindings, spillLabels)
	}
	serialise(p, graph)
}

// materialiseSpillMemory statically allocates one machine word for every
// spilled temporary and returns the labels naming each storage location.
func materialiseSpillMemory(p *ir.Program, bindings []ir.RegID) map[ir.RegID]*ir.Label {
	labels := make(map[ir.RegID]*ir.Label)
	for id, b := range bindings {
		if b != ir.RegSpillRequired {
			continue
		}
		lbl := p.NewRawLabel(fmt.Sprintf(".t%d", id))
		p.GenData(ir.GlobalWord, 0, lbl)
		labels[ir.RegID(id)] = lbl
	}
	return labels
}

// spillLabel returns the storage label of a spilled temporary. A missing
// entry is a compiler bug (spec §7).
func spillLabel(labels map[ir.RegID]*ir.Label, temp ir.RegID) *ir.Label {
	lbl, ok := labels[temp]
	if !ok {
		panic(fmt.Sprintf("spill: t%d missing from the spill label list", temp))
	}
	return lbl
}

// genLoad builds a load of temp's memory location into spill slot.
func genLoad(slot int, temp ir.RegID, labels map[ir.RegID]*ir.Label) *ir.Instruction {
	return &ir.Instruction{
		Op:        ir.OpLw,
		Dest:      ir.NewArg(ir.RegID(riscv.SpillRegs[slot])),
		AddrLabel: spillLabel(labels, temp),
	}
}

// genStore builds a write-back of spill slot's register to temp's memory
// location.
func genStore(slot int, temp ir.RegID, labels map[ir.RegID]*ir.Label) *ir.Instruction {
	return &ir.Instruction{
		Op:        ir.OpSw,
		Src2:      ir.NewArg(ir.RegID(riscv.SpillRegs[slot])),
		AddrLabel: spillLabel(labels, temp),
	}
}

// materialiseBlock runs the spill-slot cache over one basic block. The
// cache starts empty at block entry and every dirty slot is written back at
// block exit — before the terminator when the block ends in one.
func materialiseBlock(b *cfg.Block, bindings []ir.RegID, labels map[ir.RegID]*ir.Label) {
	var slots [riscv.NumSpillRegs]slotState
	for i := range slots {
		slots[i].temp = ir.RegInvalid
	}

	out := make([]*cfg.Node, 0, len(b.Nodes))
	for _, n := range b.Nodes {
		if n.Instr == nil {
			out = append(out, n)
			continue
		}
		for _, instr := range materialiseInstr(n.Instr, &slots, bindings, labels) {
			out = append(out, &cfg.Node{Instr: instr, Block: b, Index: n.Index})
		}
		out = append(out, n)
	}

	var stores []*cfg.Node
	for i, s := range slots {
		if s.dirty {
			stores = append(stores, &cfg.Node{Instr: genStore(i, s.temp, labels), Block: b})
		}
	}
	if len(stores) > 0 {
		last := out[len(out)-1]
		if last.Instr != nil && last.Instr.Op.IsTerminator() {
			out = append(out[:len(out)-1], append(stores, last)...)
		} else {
			out = append(out, stores...)
		}
	}
	b.Nodes = out
}

// materialiseInstr rewrites instr's operands to physical registers and
// returns the loads/write-backs to insert immediately before it, in order.
func materialiseInstr(instr *ir.Instruction, slots *[riscv.NumSpillRegs]slotState, bindings []ir.RegID, labels map[ir.RegID]*ir.Label) []*ir.Instruction {
	spilled := func(arg *ir.InstrArg) bool {
		return arg.Reg.IsTemp() && bindings[arg.Reg] == ir.RegSpillRequired
	}

	// Collect the operand slots, destination first (spec §4.7 step 1).
	var args []*argState
	if instr.Dest != nil {
		args = append(args, &argState{arg: instr.Dest, isDest: true, slot: -1})
	}
	if instr.Src1 != nil {
		args = append(args, &argState{arg: instr.Src1, slot: -1})
	}
	if instr.Src2 != nil {
		args = append(args, &argState{arg: instr.Src2, slot: -1})
	}

	var inUse [riscv.NumSpillRegs]bool

	// Reuse cache entries already holding the wanted temporary.
	for _, a := range args {
		if !spilled(a.arg) {
			continue
		}
		for i := range slots {
			if slots[i].temp != a.arg.Reg {
				continue
			}
			a.slot = i
			inUse[i] = true
			if a.isDest {
				slots[i].dirty = true
			}
			break
		}
	}

	// Allocate slots for the remaining spilled operands, in order.
	var prepends []*ir.Instruction
	for idx, a := range args {
		if !spilled(a.arg) || a.slot != -1 {
			continue
		}

		// The destination comes first in args, so a later source naming the
		// same temporary simply shares its slot; the load for it was emitted
		// when the destination's slot was allocated.
		shared := false
		for _, prev := range args[:idx] {
			if prev.slot != -1 && prev.arg.Reg == a.arg.Reg {
				a.slot = prev.slot
				shared = true
				break
			}
		}
		if shared {
			continue
		}

		slot := -1
		for i := range inUse {
			if !inUse[i] {
				slot = i
				break
			}
		}
		if slot == -1 {
			panic("spill: spill slots exhausted")
		}

		// Write back the previous occupant if its register holds a value
		// newer than memory.
		if slots[slot].dirty && slots[slot].temp != a.arg.Reg {
			prepends = append(prepends, genStore(slot, slots[slot].temp, labels))
		}

		inUse[slot] = true
		a.slot = slot
		slots[slot].temp = a.arg.Reg
		slots[slot].dirty = a.isDest
		// A destination that is also read by this instruction still needs
		// its current value loaded.
		needLoad := !a.isDest
		for _, later := range args[idx+1:] {
			if !later.isDest && later.arg.Reg == a.arg.Reg {
				needLoad = true
			}
		}
		if needLoad {
			prepends = append(prepends, genLoad(slot, a.arg.Reg, labels))
		}
	}

	// A branch target must land before the reloads feeding the instruction.
	if len(prepends) > 0 && instr.Label != nil {
		prepends[0].Label = instr.Label
		instr.Label = nil
	}

	// Rewrite operands: spilled temporaries to their spill register,
	// everything else to its physical binding (spec §4.7 step 4).
	for _, a := range args {
		if a.slot != -1 {
			a.arg.Reg = ir.RegID(riscv.SpillRegs[a.slot])
		} else if a.arg.Reg.IsTemp() {
			a.arg.Reg = bindings[a.arg.Reg]
		}
	}
	return prepends
}

// serialise projects the mutated CFG back into p's linear instruction list,
// block by block in order (spec §4.7). Labels travel with their
// instructions, so nothing else needs migrating.
func serialise(p *ir.Program, graph *cfg.Cfg) {
	p.Instructions = util.DList[*ir.Instruction]{}
	for _, b := range graph.Blocks {
		for _, n := range b.Nodes {
			if n.Instr != nil {
				p.Instructions.PushBack(n.Instr)
			}
		}
	}
}
