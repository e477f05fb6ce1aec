// compile.go drives the compilation pipeline: parse, lower, build the CFG,
// compute liveness, extract intervals, allocate registers, materialise
// spills, and emit assembly (spec §2). Failures reading the source, parsing,
// and writing the debug logs or the assembly are returned as errors wrapped
// with context; the in-memory backend phases return no error (an internal
// invariant violation there panics).

package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"rvcc/src/cfg"
	"rvcc/src/frontend"
	"rvcc/src/ir"
	"rvcc/src/regalloc"
	"rvcc/src/spill"
	"rvcc/src/target/riscv"
	"rvcc/src/util"
)

// Compile runs the full pipeline on opt.Src and writes the resulting
// assembly to opt.Out. Recoverable diagnostics abandon compilation after
// parsing; backend phases either succeed or panic on an internal invariant
// violation, which the top-level driver recovers.
func Compile(opt util.Options) error {
	src, err := os.ReadFile(opt.Src)
	if err != nil {
		return errors.Wrap(err, "could not read source code")
	}

	p := ir.NewProgram()
	ec := util.NewErrorCollector(0)
	frontend.Parse(opt.Src, string(src), p, ec)
	if ec.Len() > 0 {
		for _, e := range ec.Errors() {
			fmt.Fprintln(os.Stderr, e)
		}
		return errors.Errorf("compilation aborted: %d error(s)", ec.Len())
	}
	p.ProgramEpilog()

	if opt.Verbose {
		if err := writeLog(opt.Out, "_frontend", func(w *util.Writer) {
			ir.Fdump(p, w)
		}); err != nil {
			return errors.Wrap(err, "frontend log")
		}
	}

	ir.Lower(p, riscv.ImmBits)

	graph := cfg.Build(p)
	cfg.ComputeLiveness(graph)
	intervals := cfg.ExtractIntervals(graph)

	if opt.Verbose {
		if err := writeLog(opt.Out, "_controlFlow", func(w *util.Writer) {
			cfg.Fdump(graph, w)
		}); err != nil {
			return errors.Wrap(err, "control flow log")
		}
	}

	ra := regalloc.New(p, graph, intervals)
	ra.Run()

	if opt.Verbose {
		if err := writeLog(opt.Out, "_regAlloc", func(w *util.Writer) {
			ra.Fdump(w)
		}); err != nil {
			return errors.Wrap(err, "register allocation log")
		}
	}

	spill.Materialise(p, graph, ra.Bindings)

	w, err := util.CreateFile(opt.Out)
	if err != nil {
		return errors.Wrap(err, "could not create output file")
	}
	riscv.Emit(p, w)
	if err := w.Close(); err != nil {
		return errors.Wrap(err, "could not write assembly")
	}
	return nil
}

// writeLog emits one debug log file named after the output path with the
// given suffix, e.g. out.asm -> out_regAlloc.log.
func writeLog(out, suffix string, dump func(*util.Writer)) error {
	path := strings.TrimSuffix(out, filepath.Ext(out)) + suffix + ".log"
	w, err := util.CreateFile(path)
	if err != nil {
		return err
	}
	dump(w)
	return w.Close()
}
