// dump.go renders the CFG with its liveness sets for the optional
// _controlFlow.log debug file (spec §6). The format is non-normative.

package cfg

import (
	"strconv"
	"strings"

	"rvcc/src/ir"
	"rvcc/src/util"

	"golang.org/x/exp/slices"
)

// setString renders a RegSet in ascending register order so the log is
// stable across runs.
func setString(s RegSet) string {
	ids := make([]ir.RegID, 0, len(s))
	for r := range s {
		ids = append(ids, r)
	}
	slices.Sort(ids)

	var parts []string
	for _, r := range ids {
		parts = append(parts, "t"+strconv.Itoa(int(r)))
	}
	return "{" + strings.Join(parts, " ") + "}"
}

func regsString(regs []*CfgReg) string {
	var parts []string
	for _, r := range regs {
		parts = append(parts, "t"+strconv.Itoa(int(r.TempRegID)))
	}
	return "{" + strings.Join(parts, " ") + "}"
}

func blockNames(blocks []*Block) string {
	var parts []string
	for _, b := range blocks {
		parts = append(parts, b.String())
	}
	return strings.Join(parts, " ")
}

// Fdump writes every block of c with its edges and per-node defs/uses and
// in/out sets.
func Fdump(c *Cfg, w *util.Writer) {
	for _, b := range c.Blocks {
		w.Write("%s: preds=[%s] succs=[%s]\n", b, blockNames(b.Preds), blockNames(b.Succs))
		for _, n := range b.Nodes {
			if n.Instr == nil {
				w.Write("  %3d: <sentinel> in=%s out=%s\n", n.Index, setString(n.In), setString(n.Out))
				continue
			}
			w.Write("  %3d: %s\n", n.Index, n.Instr)
			w.Write("       defs=%s uses=%s in=%s out=%s\n",
				regsString(n.Defs), regsString(n.Uses), setString(n.In), setString(n.Out))
		}
	}
}
