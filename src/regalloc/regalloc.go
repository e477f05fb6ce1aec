// regalloc.go implements the Poletto & Sarkar linear-scan register
// allocator with register-class constraints (spec §4.6). The structure
// mirrors ACSE's reg_alloc.c (newRegAllocator/executeLinearScan), with the
// interval list, active set and free pool held as slices ordered the way
// the algorithm requires: intervals ascending by start, active ascending by
// end, and the free pool in allocation preference order.

package regalloc

import (
	"golang.org/x/exp/slices"

	"rvcc/src/cfg"
	"rvcc/src/ir"
	"rvcc/src/target/riscv"
	"rvcc/src/util"
)

// Allocator holds the register allocation state for one program: the live
// intervals ordered by ascending start, the binding table indexed by
// temporary ID, the active set ordered by ascending end, and the free pool
// of physical registers (spec §3 "Register allocator state").
type Allocator struct {
	program *ir.Program
	graph   *cfg.Cfg

	Intervals []*cfg.Interval

	// Bindings maps every temporary ID to its physical register, or to
	// ir.RegSpillRequired for spilled temporaries, or ir.RegInvalid for IDs
	// never seen in the CFG.
	Bindings []ir.RegID

	active []*cfg.Interval
	free   []int
}

// New builds an allocator over p's CFG and its extracted live intervals.
// Register zero is self-allocated immediately: the architecture treats it
// as a constant, so it never participates in the scan (SPEC_FULL §12).
func New(p *ir.Program, graph *cfg.Cfg, intervals []*cfg.Interval) *Allocator {
	maxID := ir.RegZero
	for id := range graph.Regs() {
		if id > maxID {
			maxID = id
		}
	}

	ra := &Allocator{
		program:   p,
		graph:     graph,
		Intervals: intervals,
		Bindings:  make([]ir.RegID, maxID+1),
		free:      append([]int(nil), riscv.GPRegs...),
	}
	for i := range ra.Bindings {
		ra.Bindings[i] = ir.RegInvalid
	}
	ra.Bindings[ir.RegZero] = ir.RegZero
	return ra
}

// Run derives register constraints and executes the linear scan. Afterwards
// every temporary seen in the CFG is bound to a physical register or marked
// ir.RegSpillRequired.
func (ra *Allocator) Run() {
	ra.initConstraints()
	ra.handleCallerSave()

	for _, cur := range ra.Intervals {
		ra.expireOldIntervals(cur)
		if !ra.assignRegister(cur) {
			ra.spillAtInterval(cur)
		}
	}

	// Return the registers still held by active intervals to the pool.
	for _, a := range ra.active {
		ra.free = append(ra.free, int(ra.Bindings[a.TempRegID]))
	}
	ra.active = nil
}

// expireOldIntervals removes from the active set every interval ending
// strictly before cur starts, returning its register to the free pool. An
// interval ending exactly at cur.Start is consumed by the instruction that
// defines cur: its register is hoisted to the front of cur's constraints to
// favour coalescing, but stays bound — the value is still live at that
// instruction (spec §4.6a).
func (ra *Allocator) expireOldIntervals(cur *cfg.Interval) {
	i := 0
	for i < len(ra.active) {
		a := ra.active[i]
		if a.End > cur.Start {
			return
		}
		if a.End == cur.Start {
			if r := ra.Bindings[a.TempRegID]; r >= 0 {
				cur.Constraints = hoistToFront(cur.Constraints, []int{int(r)})
			}
			i++
			continue
		}
		ra.free = append(ra.free, int(ra.Bindings[a.TempRegID]))
		ra.active = slices.Delete(ra.active, i, i+1)
	}
}

// assignRegister binds cur to the first register of its constraint list
// present in the free pool and inserts cur into the active set. It reports
// whether a register was found (spec §4.6b).
func (ra *Allocator) assignRegister(cur *cfg.Interval) bool {
	for _, want := range cur.Constraints {
		i := slices.Index(ra.free, want)
		if i < 0 {
			continue
		}
		ra.free = slices.Delete(ra.free, i, i+1)
		ra.Bindings[cur.TempRegID] = ir.RegID(want)
		ra.insertActive(cur)
		return true
	}
	return false
}

// spillAtInterval resolves an assignment failure (spec §4.6c). The spill
// candidate is only ever the active interval with the largest end — the
// textbook linear-scan heuristic, retained as specified even though it is
// suboptimal under constrained register classes.
func (ra *Allocator) spillAtInterval(cur *cfg.Interval) {
	if len(ra.active) == 0 {
		ra.Bindings[cur.TempRegID] = ir.RegSpillRequired
		return
	}

	last := ra.active[len(ra.active)-1]
	if last.End > cur.End && slices.Contains(cur.Constraints, int(ra.Bindings[last.TempRegID])) {
		ra.Bindings[cur.TempRegID] = ra.Bindings[last.TempRegID]
		ra.Bindings[last.TempRegID] = ir.RegSpillRequired
		ra.active = ra.active[:len(ra.active)-1]
		ra.insertActive(cur)
		return
	}

	ra.Bindings[cur.TempRegID] = ir.RegSpillRequired
}

// insertActive inserts cur into the active set, keeping it ordered by
// ascending end point.
func (ra *Allocator) insertActive(cur *cfg.Interval) {
	i := 0
	for i < len(ra.active) && ra.active[i].End <= cur.End {
		i++
	}
	ra.active = slices.Insert(ra.active, i, cur)
}

// Fdump writes the interval list and the resulting bindings to w, in the
// format of the optional _regAlloc.log debug file (spec §6).
func (ra *Allocator) Fdump(w *util.Writer) {
	w.WriteString("live intervals:\n")
	for _, iv := range ra.Intervals {
		w.Write("  t%d: [%d, %d]", iv.TempRegID, iv.Start, iv.End)
		if iv.Pinned {
			w.WriteString(" (pinned)")
		}
		w.Write(" constraints=%v\n", iv.Constraints)
	}
	w.WriteString("bindings:\n")
	for id, b := range ra.Bindings {
		switch b {
		case ir.RegSpillRequired:
			w.Write("  t%d will be spilled\n", id)
		case ir.RegInvalid:
			w.Write("  t%d has not been assigned to any register\n", id)
		default:
			w.Write("  t%d is assigned to register %s\n", id, riscv.RegName(int(b)))
		}
	}
}
