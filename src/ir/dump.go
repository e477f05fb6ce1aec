// dump.go renders the IR in its pre-allocation form, with virtual register
// names, for the optional _frontend.log debug file (spec §6). The format is
// non-normative.

package ir

import (
	"fmt"
	"strings"

	"rvcc/src/util"
)

// regString names a virtual register for debug output.
func regString(arg *InstrArg) string {
	if arg == nil {
		return "-"
	}
	var s string
	switch arg.Reg {
	case RegZero:
		s = "zero"
	case RegInvalid:
		s = "invalid"
	default:
		s = fmt.Sprintf("t%d", arg.Reg)
	}
	if arg.Whitelist != nil {
		s += fmt.Sprintf("{%v}", arg.Whitelist)
	}
	return s
}

// labelString names a label for debug output.
func labelString(l *Label) string {
	l = l.Resolve()
	if l.Name != "" {
		return l.Name
	}
	return fmt.Sprintf("L%d", l.ID)
}

// String renders instr with virtual register operands. Used by the debug
// logs, not by the assembly emitter.
func (instr *Instruction) String() string {
	var sb strings.Builder
	if instr.Label != nil {
		sb.WriteString(labelString(instr.Label))
		sb.WriteString(": ")
	}
	sb.WriteString(strings.SplitN(instr.Op.String(), " ", 2)[0])

	var ops []string
	for _, a := range []*InstrArg{instr.Dest, instr.Src1, instr.Src2} {
		if a != nil {
			ops = append(ops, regString(a))
		}
	}
	if instr.Op.TakesImmediate() || instr.Imm != 0 {
		ops = append(ops, fmt.Sprintf("%d", instr.Imm))
	}
	if instr.AddrLabel != nil {
		ops = append(ops, labelString(instr.AddrLabel))
	}
	if len(ops) > 0 {
		sb.WriteString(" " + strings.Join(ops, ", "))
	}
	if instr.Comment != "" {
		sb.WriteString("  # " + instr.Comment)
	}
	return sb.String()
}

// Fdump writes the full program state to w: symbols, data directives and
// the instruction stream in order.
func Fdump(p *Program, w *util.Writer) {
	w.WriteString("symbols:\n")
	for _, s := range p.Symbols {
		switch s.Type {
		case TypeInt:
			w.Write("  int %s -> t%d\n", s.Name, s.Reg)
		case TypeIntArray:
			w.Write("  int %s[%d] @ %s\n", s.Name, s.ArraySize, labelString(s.Label))
		}
	}
	w.WriteString("data:\n")
	for _, g := range p.Data {
		switch g.Kind {
		case GlobalWord:
			w.Write("  %s: word %d\n", labelString(g.Label), g.Value)
		case GlobalSpace:
			w.Write("  %s: space %d\n", labelString(g.Label), g.Value)
		}
	}
	w.WriteString("instructions:\n")
	i := 0
	for node := p.Instructions.Front(); node != nil; node = node.Next() {
		w.Write("  %3d: %s\n", i, node.V)
		i++
	}
}
