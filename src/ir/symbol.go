// symbol.go defines named scalar/array symbols (spec §3 "Symbol").

package ir

// SymbolType distinguishes a scalar from an array symbol.
type SymbolType int

const (
	// TypeInt is a scalar, pinned to a temporary register.
	TypeInt SymbolType = iota
	// TypeIntArray is an array living in the data segment only.
	TypeIntArray
)

// Symbol is a named scalar or array. Scalars are additionally pinned to a
// temporary register; arrays carry only the label naming their storage
// (spec §3).
type Symbol struct {
	Name      string
	Type      SymbolType
	ArraySize int32 // valid iff Type == TypeIntArray
	Label     *Label
	Reg       RegID // valid iff Type == TypeInt; RegInvalid for arrays
}
