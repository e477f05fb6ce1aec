// constraints.go implements the constraint-derivation pass run once before
// the linear scan (spec §4.6 "Constraint derivation"). The scheme is ACSE's
// initializeRegisterConstraints/handleCallerSaveRegisters: temporaries
// without explicit whitelists receive the full general-purpose set, then
// have it reordered or punched through wherever they overlap a pinned
// interval, and finally lose the caller-save registers across call sites.

package regalloc

import (
	"golang.org/x/exp/slices"

	"rvcc/src/target/riscv"
)

// initConstraints gives every unpinned interval the full general-purpose
// set, then scans forward through the later intervals overlapping it: a
// pinned interval starting exactly where this one ends reorders the set to
// favour coalescing; any other overlapping pinned interval is subtracted so
// it is guaranteed to find its register (spec §4.6 steps 1-2).
func (ra *Allocator) initConstraints() {
	for i, iv := range ra.Intervals {
		if iv.Pinned {
			continue
		}
		iv.Constraints = append([]int(nil), riscv.GPRegs...)

		for _, other := range ra.Intervals[i+1:] {
			if other.Start > iv.End {
				break
			}
			if !other.Pinned {
				continue
			}
			if other.Start == iv.End {
				// One instruction consumes iv and defines other: prefer
				// other's registers so both may land in the same one.
				iv.Constraints = hoistToFront(iv.Constraints, other.Constraints)
			} else {
				iv.Constraints = subtractRegs(iv.Constraints, other.Constraints)
			}
		}
	}
}

// handleCallerSave walks the CFG looking for call-site instructions and
// subtracts the caller-save set from every unpinned interval alive across
// that point (spec §4.6 step 3). "Across" is strict: an interval consumed
// or defined by the call itself keeps its constraints.
func (ra *Allocator) handleCallerSave() {
	for _, b := range ra.graph.Blocks {
		for _, n := range b.Nodes {
			if n.Instr == nil || !n.Instr.Op.IsCallSite() {
				continue
			}
			for _, iv := range ra.Intervals {
				if iv.Pinned {
					continue
				}
				if iv.Start < n.Index && n.Index < iv.End {
					iv.Constraints = subtractRegs(iv.Constraints, riscv.CallerSaved)
				}
			}
		}
	}
}

// hoistToFront moves the elements of a that also appear in b to the front
// of a, preserving b's order among the moved elements.
func hoistToFront(a, b []int) []int {
	for i := len(b) - 1; i >= 0; i-- {
		j := slices.Index(a, b[i])
		if j < 0 {
			continue
		}
		a = slices.Delete(a, j, j+1)
		a = slices.Insert(a, 0, b[i])
	}
	return a
}

// subtractRegs removes every element of b from a.
func subtractRegs(a, b []int) []int {
	for _, r := range b {
		if i := slices.Index(a, r); i >= 0 {
			a = slices.Delete(a, i, i+1)
		}
	}
	return a
}
