// options.go holds the compile-time configuration threaded through the
// pipeline. Trimmed from the teacher's util.Options: the front-end / LLVM /
// multi-arch flags it carried are external-collaborator concerns this
// backend does not own (spec §1), so only what §6's CLI contract and the
// debug logs need survives.

package util

// Options carries the resolved command line configuration for one
// compilation. A fresh Options is built per invocation so that, per spec §5,
// running several compilations in sequence never leaks state between them.
type Options struct {
	Src     string // Path to input source file.
	Out     string // Path to output assembly file.
	Verbose bool   // Emit the three optional debug logs (spec §6) alongside Out.
}

// appVersion is printed by -v/--version alongside the target name.
const appVersion = "rvcc 1.0"

// AppVersion returns the compiler's version banner.
func AppVersion() string {
	return appVersion
}
