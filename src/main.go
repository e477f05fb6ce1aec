package main

import (
	"fmt"
	"os"

	"rvcc/src/cmd"
)

// main delegates to run so the deferred recovery below executes before the
// process exits.
func main() {
	os.Exit(run())
}

// run executes the compiler driver. Internal invariant violations in the
// backend panic with a diagnostic; this is the single place they are
// recovered and turned into an exit code (spec §7).
func run() (code int) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "internal error: %v\n", r)
			code = 1
		}
	}()
	return cmd.Execute()
}
