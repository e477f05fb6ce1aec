// regid.go defines the virtual register identifier used throughout the IR,
// the CFG and the register allocator (spec §3, "Register identifier").

package ir

// RegID identifies a virtual (temporary) or architectural register. Plain
// temporary IDs start at 1 and grow monotonically as Program.NewTempReg is
// called; 0 always denotes the architectural zero register.
type RegID int32

const (
	// RegInvalid marks an unset or unbound register slot.
	RegInvalid RegID = -1
	// RegSpillRequired marks a binding-table entry for a temporary that the
	// allocator could not fit into a physical register. Only ever appears
	// inside the allocator's binding table (spec §3).
	RegSpillRequired RegID = -2
	// RegZero is the architectural zero register: always live, never
	// allocated, self-bound.
	RegZero RegID = 0
)

// IsTemp reports whether r is a real (non-reserved, non-zero) temporary.
func (r RegID) IsTemp() bool {
	return r > RegZero
}
