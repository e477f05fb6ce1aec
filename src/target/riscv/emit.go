// emit.go writes the finalised program as textual RV32 assembly (spec §6's
// output contract). The emitter is a pure function of the final IR: all
// operands must already hold physical register numbers when Emit is called.

package riscv

import (
	"fmt"
	"strings"

	"rvcc/src/ir"
	"rvcc/src/util"
)

// Emit writes p's data directives and instruction stream to w. The caller
// owns w and is responsible for flushing it.
func Emit(p *ir.Program, w *util.Writer) {
	if len(p.Data) > 0 {
		w.WriteString("\t.data\n")
		for _, g := range p.Data {
			emitGlobal(g, w)
		}
	}

	w.WriteString("\t.text\n")
	for node := p.Instructions.Front(); node != nil; node = node.Next() {
		emitInstruction(node.V, w)
	}
}

// emitGlobal writes one data directive, preceded by a .global directive if
// its label is global.
func emitGlobal(g *ir.Global, w *util.Writer) {
	name := LabelName(g.Label)
	if g.Label.Resolve().Global {
		w.Write("\t.global %s\n", name)
	}
	switch g.Kind {
	case ir.GlobalWord:
		w.Write("%s:\t.word\t%d\n", name, g.Value)
	case ir.GlobalSpace:
		w.Write("%s:\t.space\t%d\n", name, g.Value)
	}
}

// LabelName returns the printable name of l: its assigned name if it has
// one, else a generated "L<id>" for anonymous labels.
func LabelName(l *ir.Label) string {
	l = l.Resolve()
	if l.Name != "" {
		return l.Name
	}
	return fmt.Sprintf("L%d", l.ID)
}

// reg returns the assembly name of arg's physical register.
func reg(arg *ir.InstrArg) string {
	return regi[arg.Reg]
}

// addr formats a global memory operand: the target symbol, plus a byte
// offset when non-zero.
func addr(instr *ir.Instruction) string {
	name := LabelName(instr.AddrLabel)
	if instr.Imm != 0 {
		return fmt.Sprintf("%s+%d", name, instr.Imm)
	}
	return name
}

// emitInstruction writes one instruction: its label prefix (with a .global
// directive if needed), the mnemonic lines, and its comment appended to the
// first line.
func emitInstruction(instr *ir.Instruction, w *util.Writer) {
	if instr.Label != nil {
		lbl := instr.Label.Resolve()
		if lbl.Global {
			w.Write("\t.global %s\n", LabelName(lbl))
		}
		w.Label(LabelName(lbl))
	}

	lines := instrLines(instr)
	if instr.Comment != "" {
		lines[0] = fmt.Sprintf("%s\t# %s", lines[0], instr.Comment)
	}
	w.WriteString(strings.Join(lines, "\n") + "\n")
}

// instrLines renders instr as one or more tab-indented assembly lines.
// Syscall pseudo-ops expand to their ecall sequence here.
func instrLines(instr *ir.Instruction) []string {
	op := instr.Op.String()
	switch {
	case instr.Op == ir.OpNop:
		return []string{"\tnop"}

	case instr.Op == ir.OpJump:
		return []string{fmt.Sprintf("\tj\t%s", LabelName(instr.AddrLabel))}

	case instr.Op.IsConditionalBranch():
		return []string{fmt.Sprintf("\t%s\t%s, %s, %s",
			op, reg(instr.Src1), reg(instr.Src2), LabelName(instr.AddrLabel))}

	case instr.Op == ir.OpLw:
		if instr.AddrLabel != nil {
			// Load-from-symbol pseudo-instruction.
			return []string{fmt.Sprintf("\tlw\t%s, %s", reg(instr.Dest), addr(instr))}
		}
		return []string{fmt.Sprintf("\tlw\t%s, %d(%s)", reg(instr.Dest), instr.Imm, reg(instr.Src1))}

	case instr.Op == ir.OpSw:
		if instr.AddrLabel != nil {
			// Store-to-symbol pseudo-instruction; the assembler expands it
			// through the reserved scratch register.
			return []string{fmt.Sprintf("\tsw\t%s, %s, %s", reg(instr.Src2), addr(instr), regi[AsmScratch])}
		}
		return []string{fmt.Sprintf("\tsw\t%s, %d(%s)", reg(instr.Src2), instr.Imm, reg(instr.Src1))}

	case instr.Op == ir.OpSysExit:
		return []string{
			fmt.Sprintf("\taddi\t%s, %s, %d", regi[a0], regi[zero], instr.Imm),
			fmt.Sprintf("\taddi\t%s, %s, %d", regi[a7], regi[zero], sysExit),
			"\tecall",
		}

	case instr.Op == ir.OpSysRead:
		lines := []string{
			fmt.Sprintf("\taddi\t%s, %s, %d", regi[a7], regi[zero], sysRead),
			"\tecall",
		}
		if instr.Dest.Reg != a0 {
			lines = append(lines, fmt.Sprintf("\tadd\t%s, %s, %s", reg(instr.Dest), regi[a0], regi[zero]))
		}
		return lines

	case instr.Op == ir.OpSysPrint:
		var lines []string
		if instr.Src1.Reg != a0 {
			lines = append(lines, fmt.Sprintf("\tadd\t%s, %s, %s", regi[a0], reg(instr.Src1), regi[zero]))
		}
		return append(lines,
			fmt.Sprintf("\taddi\t%s, %s, %d", regi[a7], regi[zero], sysWrite),
			"\tecall",
		)

	case instr.Op == ir.OpEbreak:
		return []string{"\tebreak"}

	case instr.Op.IsImmArith():
		return []string{fmt.Sprintf("\t%s\t%s, %s, %d", op, reg(instr.Dest), reg(instr.Src1), instr.Imm)}

	default:
		// 3-register ALU form.
		return []string{fmt.Sprintf("\t%s\t%s, %s, %s", op, reg(instr.Dest), reg(instr.Src1), reg(instr.Src2))}
	}
}
