// interval.go extracts live intervals by walking the CFG in program order
// (spec §4.5). Shape grounded on
// _examples/SeleniaProject-Orizon/internal/codegen/regalloc/regalloc.go's
// buildLiveIntervals walk.
package cfg

import (
	"rvcc/src/ir"

	"golang.org/x/exp/slices"
)

// Interval is the inclusive [Start, End] index range a temporary is live
// over, plus any machine-register constraint carried from its source-level
// whitelist (spec §3 "Live interval").
type Interval struct {
	TempRegID   ir.RegID
	Constraints []int // ordered preference list; nil until constraint derivation fills it in.
	Pinned      bool  // true iff Constraints came from the source IR's whitelist, not derivation.
	Start, End  int
}

// ExtractIntervals walks the CFG in program order and, for every temporary
// appearing in in[k] ∪ out[k] ∪ defs[k] at index k, extends its interval to
// cover k (spec §4.5). The walk is monotone, so intervals are produced in
// ascending Start order; a final sort by (Start, TempRegID) guards against the
// nondeterministic Go map iteration used to reach each node's register sets
// (spec §6 requires byte-identical output across runs).
func ExtractIntervals(c *Cfg) []*Interval {
	byReg := make(map[ir.RegID]*Interval)
	var order []*Interval

	touch := func(id ir.RegID, k int) {
		iv, ok := byReg[id]
		if !ok {
			iv = &Interval{TempRegID: id, Start: k, End: k}
			if reg, ok2 := c.regs[id]; ok2 && reg.Whitelist != nil {
				iv.Constraints = append([]int(nil), reg.Whitelist...)
				iv.Pinned = true
			}
			byReg[id] = iv
			order = append(order, iv)
			return
		}
		if k > iv.End {
			iv.End = k
		}
	}

	for _, b := range c.Blocks {
		for _, n := range b.Nodes {
			k := n.Index
			for r := range n.In {
				touch(r, k)
			}
			for r := range n.Out {
				touch(r, k)
			}
			for _, d := range n.Defs {
				touch(d.TempRegID, k)
			}
		}
	}

	slices.SortFunc(order, func(a, b *Interval) int {
		if a.Start != b.Start {
			return a.Start - b.Start
		}
		return int(a.TempRegID) - int(b.TempRegID)
	})
	return order
}
