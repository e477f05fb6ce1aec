// build.go partitions a Program's instruction stream into basic blocks and
// wires predecessor/successor edges (spec §4.3). Grounded on ACSE's
// axe_engine.c control-flow section and cfg.c's dedicated entry/exit
// sentinel allocation (SPEC_FULL §12).
package cfg

import "rvcc/src/ir"

// Build constructs a CFG from p's current instruction stream. The CFG is
// transient: callers mutate it during register allocation and spill
// materialisation, then re-serialise it back into p (spec §2).
func Build(p *ir.Program) *Cfg {
	c := newCfg()
	instrs := p.Instructions.Slice()

	c.Entry = &Block{id: entryID, Nodes: []*Node{{Index: -1}}}
	c.Entry.Nodes[0].Block = c.Entry
	c.Entry.Nodes[0].In, c.Entry.Nodes[0].Out = NewRegSet(), NewRegSet()

	c.Exit = &Block{id: exitID}
	exitNode := &Node{Index: len(instrs), Block: c.Exit, In: NewRegSet(), Out: NewRegSet()}
	c.Exit.Nodes = []*Node{exitNode}

	if len(instrs) == 0 {
		link(c.Entry, c.Exit)
		c.Blocks = []*Block{c.Entry, c.Exit}
		return c
	}

	// Partition: a block boundary begins at the first instruction, any
	// labelled instruction, and the instruction immediately following a
	// terminator (spec §4.3).
	var blocks []*Block
	var cur *Block
	prevTerminator := true
	labelOwner := make(map[uint32]*Block) // resolved label ID -> block it starts.

	for idx, instr := range instrs {
		if prevTerminator || instr.Label != nil {
			cur = &Block{id: len(blocks)}
			blocks = append(blocks, cur)
		}
		n := &Node{Instr: instr, Block: cur, Index: idx}
		cur.Nodes = append(cur.Nodes, n)
		if instr.Label != nil {
			labelOwner[instr.Label.Resolve().ID] = cur
		}
		prevTerminator = instr.Op.IsTerminator()
	}

	resolveTarget := func(label *ir.Label) *Block {
		if label != nil {
			if b, ok := labelOwner[label.Resolve().ID]; ok {
				return b
			}
		}
		return c.Exit
	}

	for i, blk := range blocks {
		last := blk.Last().Instr
		fallthroughBlock := func() *Block {
			if i+1 < len(blocks) {
				return blocks[i+1]
			}
			return c.Exit
		}
		switch {
		case last.Op.IsConditionalBranch():
			link(blk, resolveTarget(last.AddrLabel))
			link(blk, fallthroughBlock())
		case last.Op == ir.OpJump:
			link(blk, resolveTarget(last.AddrLabel))
		case last.Op.IsHalt():
			link(blk, c.Exit)
		default:
			link(blk, fallthroughBlock())
		}
	}
	link(c.Entry, blocks[0])

	c.Blocks = make([]*Block, 0, len(blocks)+2)
	c.Blocks = append(c.Blocks, c.Entry)
	c.Blocks = append(c.Blocks, blocks...)
	c.Blocks = append(c.Blocks, c.Exit)

	for _, blk := range blocks {
		for _, n := range blk.Nodes {
			populateDefsUses(c, n)
		}
	}
	return c
}

// regArg returns the CfgReg backing a, or nil if a is absent or names the
// zero register (always live, never allocated — spec §4.3).
func regArg(c *Cfg, a *ir.InstrArg) *CfgReg {
	if a == nil || a.Reg == ir.RegZero {
		return nil
	}
	return c.Reg(a.Reg, a.Whitelist)
}

// populateDefsUses fills n.Defs/n.Uses per the opcode-class table of spec
// §4.3 and initialises empty liveness sets for the subsequent analysis.
func populateDefsUses(c *Cfg, n *Node) {
	n.In, n.Out = NewRegSet(), NewRegSet()
	instr := n.Instr

	add := func(dst *[]*CfgReg, r *CfgReg) {
		if r != nil {
			*dst = append(*dst, r)
		}
	}

	switch instr.Op {
	case ir.OpAdd, ir.OpSub, ir.OpAnd, ir.OpOr, ir.OpXor, ir.OpSll, ir.OpSrl, ir.OpSra, ir.OpSlt, ir.OpSltu:
		// 3-register arithmetic: defs {rDest}, uses {rSrc1, rSrc2}.
		add(&n.Defs, regArg(c, instr.Dest))
		add(&n.Uses, regArg(c, instr.Src1))
		add(&n.Uses, regArg(c, instr.Src2))
	case ir.OpAddI, ir.OpAndI, ir.OpOrI, ir.OpXorI, ir.OpSllI, ir.OpSrlI, ir.OpSraI, ir.OpSltI, ir.OpSltIu:
		// Immediate arithmetic: defs {rDest}, uses {rSrc1}.
		add(&n.Defs, regArg(c, instr.Dest))
		add(&n.Uses, regArg(c, instr.Src1))
	case ir.OpLw:
		// Load: defs {rDest}, uses {rSrc1}.
		add(&n.Defs, regArg(c, instr.Dest))
		add(&n.Uses, regArg(c, instr.Src1))
	case ir.OpSw:
		// Store: defs ∅, uses {rSrc1, rSrc2}.
		add(&n.Uses, regArg(c, instr.Src1))
		add(&n.Uses, regArg(c, instr.Src2))
	case ir.OpBeq, ir.OpBne, ir.OpBlt, ir.OpBge, ir.OpBltu, ir.OpBgeu:
		// Conditional branch: defs ∅, uses {rSrc1, rSrc2}.
		add(&n.Uses, regArg(c, instr.Src1))
		add(&n.Uses, regArg(c, instr.Src2))
	case ir.OpJump, ir.OpNop, ir.OpSysExit, ir.OpEbreak:
		// No defs/uses.
	case ir.OpSysRead:
		add(&n.Defs, regArg(c, instr.Dest))
	case ir.OpSysPrint:
		add(&n.Uses, regArg(c, instr.Src1))
	}
}
