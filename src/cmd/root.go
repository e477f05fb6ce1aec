// root.go defines the command-line surface: one positional input file, an
// output path flag, the version banner and the optional debug logs. Exit
// codes follow the CLI contract: 0 on success, 1 on any error, 1 after
// printing help or version.

package cmd

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"rvcc/src/util"
)

var (
	opt         util.Options
	showVersion bool
	bannerShown bool
)

var rootCmd = &cobra.Command{
	Use:           "rvcc [flags] <input file>",
	Short:         "A small educational compiler targeting RV32",
	Args:          cobra.ArbitraryArgs,
	SilenceErrors: true,
	SilenceUsage:  true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if showVersion {
			fmt.Printf("%s (target: rv32im)\n", util.AppVersion())
			bannerShown = true
			return nil
		}
		switch {
		case len(args) == 0:
			_ = cmd.Usage()
			return errors.New("missing input file")
		case len(args) > 1:
			return errors.Errorf("unexpected argument %q", args[1])
		}
		opt.Src = args[0]
		return Compile(opt)
	},
}

func init() {
	fl := rootCmd.Flags()
	fl.StringVarP(&opt.Out, "output", "o", "output.asm", "assembly output path")
	fl.BoolVar(&opt.Verbose, "debug-logs", false, "emit per-phase debug logs next to the output file")
	fl.BoolVarP(&showVersion, "version", "v", false, "print version and target, then exit")

	rootCmd.SetGlobalNormalizationFunc(normalizeFlagName)

	defaultHelp := rootCmd.HelpFunc()
	rootCmd.SetHelpFunc(func(c *cobra.Command, args []string) {
		bannerShown = true
		defaultHelp(c, args)
	})
}

// normalizeFlagName keeps the historical "--out" spelling working as an
// alias of --output.
func normalizeFlagName(f *pflag.FlagSet, name string) pflag.NormalizedName {
	if name == "out" {
		name = "output"
	}
	return pflag.NormalizedName(name)
}

// Execute parses the command line and runs the compiler, returning the
// process exit code.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		return 1
	}
	if bannerShown {
		return 1
	}
	return 0
}
