// program.go implements the Program IR container (spec §4.1): the
// instruction stream, data directives, symbol table, label registry, the
// temporary-register counter and the pending-label slot. Grounded on ACSE's
// program.c (genAssign, removeInstructionAt) for the label/comment
// migration semantics, using the teacher's factory-method naming
// (New<Thing>) throughout.

package ir

import (
	"fmt"

	"rvcc/src/util"
)

// Program owns every IR structure produced for one compilation: the
// instruction list, global directives, symbol table, label registry, the
// next-unused-register counter and the at-most-one pending label (spec §3).
// A fresh Program carries no state from any previous compilation (spec §5).
type Program struct {
	Instructions util.DList[*Instruction]
	Data         []*Global
	Symbols      []*Symbol

	labels  *labelTable
	pending *Label

	nextReg  int32
	lastLine int
}

// NewProgram creates a program, reserving a global "_start" label latched as
// pending so the first emitted instruction carries it (spec §4.1).
func NewProgram() *Program {
	p := &Program{labels: newLabelTable()}
	start := p.labels.new("_start")
	start.Global = true
	p.pending = start
	return p
}

// NewLabel allocates a fresh label, optionally with a sanitised,
// disambiguated name (spec §4.1).
func (p *Program) NewLabel(name string) *Label {
	return p.labels.new(name)
}

// NewRawLabel allocates a fresh label whose name is taken verbatim, without
// the [A-Za-z0-9_] sanitisation applied to user-proposed names. Intended for
// compiler-synthesised symbols that are already valid for the assembler,
// such as the ".t<id>" spill storage globals (spec §4.7).
func (p *Program) NewRawLabel(name string) *Label {
	return p.labels.newRaw(name)
}

// AssignLabel attaches label to the next instruction added via
// AddInstruction. If no label is currently pending, label becomes pending.
// Otherwise label is alias-merged into the already-pending label (spec §3,
// §4.1). Assigning a label that has already been consumed by an earlier
// instruction, or is already the pending label itself, is an internal
// invariant violation (spec §4.1, §7) and panics.
func (p *Program) AssignLabel(label *Label) {
	if label == nil {
		panic("ir: AssignLabel called with nil label")
	}
	if label.consumed || label == p.pending {
		panic(fmt.Sprintf("ir: internal invariant violation: label %d double-assigned", label.ID))
	}
	if p.pending == nil {
		p.pending = label
		return
	}
	p.labels.mergeInto(p.pending, label)
	label.consumed = true
}

// AddInstruction attaches any pending label to instr, clears the pending
// slot, attaches a "line <N>" comment iff line differs from the last line
// seen by this function, and appends instr to the instruction list (spec
// §4.1).
func (p *Program) AddInstruction(instr *Instruction, line int) *util.DNode[*Instruction] {
	if instr == nil {
		panic("ir: AddInstruction called with nil instruction")
	}
	if p.pending != nil {
		instr.Label = p.pending
		p.pending.consumed = true
		p.pending = nil
	}
	if line > 0 && line != p.lastLine {
		instr.Comment = joinComment(instr.Comment, fmt.Sprintf("line %d", line))
		p.lastLine = line
	}
	return p.Instructions.PushBack(instr)
}

// joinComment appends addition to base, separating with "; " when base is
// already non-empty.
func joinComment(base, addition string) string {
	if base == "" {
		return addition
	}
	return base + "; " + addition
}

// RemoveInstruction removes node from the instruction list, preserving its
// label and comment by migrating them to the immediate successor. If the
// successor is absent or already labelled, a NOP is synthesised there first
// (spec §4.1, testable property 9).
func (p *Program) RemoveInstruction(node *util.DNode[*Instruction]) {
	instr := node.V
	if instr.Label != nil || instr.Comment != "" {
		succ := node.Next()
		if succ == nil || succ.V.Label != nil {
			succ = p.Instructions.InsertAfter(&Instruction{Op: OpNop}, node)
		}
		if instr.Label != nil {
			succ.V.Label = instr.Label
		}
		if instr.Comment != "" && succ.V.Comment == "" {
			succ.V.Comment = instr.Comment
		}
	}
	p.Instructions.Remove(node)
}

// GenData appends a global directive and returns a stable reference to it
// (spec §4.1).
func (p *Program) GenData(kind GlobalKind, value int32, label *Label) *Global {
	g := &Global{Kind: kind, Value: value, Label: label}
	p.Data = append(p.Data, g)
	return g
}

// NewTempReg allocates and returns the next unused temporary register ID.
// IDs start at 1 and grow monotonically (spec §3).
func (p *Program) NewTempReg() RegID {
	p.nextReg++
	return RegID(p.nextReg)
}

// NewScalar declares a named scalar pinned to a fresh temporary register,
// with a label naming its storage should it need to be spilled (spec §3
// "Symbol").
func (p *Program) NewScalar(name string) *Symbol {
	sym := &Symbol{
		Name:  name,
		Type:  TypeInt,
		Label: p.NewLabel(name),
		Reg:   p.NewTempReg(),
	}
	p.Symbols = append(p.Symbols, sym)
	return sym
}

// NewArray declares a named array living only in the data segment; arrays
// are never pinned to a register (spec §3 "Symbol").
func (p *Program) NewArray(name string, size int32) *Symbol {
	sym := &Symbol{
		Name:      name,
		Type:      TypeIntArray,
		ArraySize: size,
		Label:     p.NewLabel(name),
		Reg:       RegInvalid,
	}
	p.Symbols = append(p.Symbols, sym)
	return sym
}

// ProgramEpilog ensures the program halts cleanly (spec §4.1). If a label is
// still pending, an exit(0) is emitted so the label is not orphaned.
// Otherwise ACSE's genEpilog behaviour is followed (SPEC_FULL §12): walk
// backward past trailing synthetic (unlabelled) NOPs; if the last real
// instruction is already exit(0), do nothing, else append one.
func (p *Program) ProgramEpilog() {
	if p.pending != nil {
		p.AddInstruction(&Instruction{Op: OpSysExit}, 0)
		return
	}

	n := p.Instructions.Back()
	for n != nil && n.V.Op == OpNop && n.V.Label == nil {
		n = n.Prev()
	}
	if n != nil && n.V.Op == OpSysExit && n.V.Imm == 0 {
		return
	}
	p.AddInstruction(&Instruction{Op: OpSysExit}, 0)
}

// Pending returns the label latched onto the next instruction added, or nil
// if no label is pending.
func (p *Program) Pending() *Label {
	return p.pending
}
