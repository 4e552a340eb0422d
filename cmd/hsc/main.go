package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/ericleaf/circt/internal/backend"
	"github.com/ericleaf/circt/internal/diag"
	"github.com/ericleaf/circt/internal/firrtl"
	"github.com/ericleaf/circt/internal/frontend"
	"github.com/ericleaf/circt/internal/handshake"
	"github.com/ericleaf/circt/internal/lower"
	"github.com/ericleaf/circt/internal/passes"
)

var version = "0.1.0"

func main() {
	os.Exit(run())
}

func run() int {
	rootCmd := newRootCmd(os.Stdout, os.Stderr)
	rootCmd.SetArgs(os.Args[1:])
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "hsc",
		Short: "hsc lowers handshake dataflow netlists to FIRRTL",
		Long: `hsc reads dataflow netlists of latency-insensitive operators and
lowers them to structural FIRRTL: a top module of per-operator
sub-modules wired with valid/ready handshake bundles.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.SetOut(out)
	rootCmd.SetErr(errOut)
	rootCmd.AddCommand(newLowerCmd(out, errOut))
	rootCmd.AddCommand(newPassesCmd(out))
	return rootCmd
}

func newLowerCmd(out, errOut io.Writer) *cobra.Command {
	var (
		emit       string
		output     string
		diagFormat string
		numClocks  int
		indexWidth int
		firtool    string
		dumpFIR    string
		keepTemps  bool
	)

	cmd := &cobra.Command{
		Use:   "lower [netlist]",
		Short: "Lower a dataflow netlist to FIRRTL or Verilog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reporter := diag.NewReporter(errOut, diagFormat)

			design, err := frontend.LoadFile(args[0], reporter)
			if err != nil {
				return err
			}

			if emit == "ir" {
				return withOutput(out, output, func(w io.Writer) error {
					handshake.Dump(design, w)
					return nil
				})
			}

			if err := passes.NewShapeCheck(reporter).Run(design); err != nil {
				return err
			}

			opts := lower.Options{NumClocks: numClocks, IndexWidth: indexWidth}
			circuits, err := lower.LowerDesign(design, reporter, opts)
			if err != nil {
				return err
			}

			switch emit {
			case "firrtl":
				return withOutput(out, output, func(w io.Writer) error {
					for _, circuit := range circuits {
						firrtl.Write(circuit, w)
					}
					return nil
				})
			case "verilog":
				if len(circuits) != 1 {
					return fmt.Errorf("verilog emission supports a single function, netlist has %d", len(circuits))
				}
				if output == "" || output == "-" {
					return fmt.Errorf("verilog emission requires -o")
				}
				res, err := backend.EmitVerilog(circuits[0], output, backend.Options{
					FirtoolPath: firtool,
					DumpFIRPath: dumpFIR,
					KeepTemps:   keepTemps,
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(errOut, "wrote %s\n", res.MainPath)
				return nil
			default:
				return fmt.Errorf("unknown emit format %q (ir|firrtl|verilog)", emit)
			}
		},
	}

	cmd.Flags().StringVar(&emit, "emit", "firrtl", "output format (ir|firrtl|verilog)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file path (stdout when omitted, except verilog)")
	cmd.Flags().StringVar(&diagFormat, "diag-format", "text", "diagnostic output format (text|json)")
	cmd.Flags().IntVar(&numClocks, "num-clocks", 1, "number of clock domains on the top module")
	cmd.Flags().IntVar(&indexWidth, "index-width", 64, "bit width of index-typed edges")
	cmd.Flags().StringVar(&firtool, "firtool", "", "path to firtool (optional, falls back to PATH lookup)")
	cmd.Flags().StringVar(&dumpFIR, "dump-fir", "", "path to dump the FIRRTL handed to firtool (optional)")
	cmd.Flags().BoolVar(&keepTemps, "keep-temps", false, "preserve intermediate files")
	return cmd
}

func newPassesCmd(out io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "passes",
		Short: "List the registered passes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, info := range passes.Registry() {
				fmt.Fprintf(out, "%s - %s\n", info.Tag, info.Description)
			}
			return nil
		},
	}
}

func withOutput(stdout io.Writer, path string, emit func(io.Writer) error) error {
	if path == "" || path == "-" {
		return emit(stdout)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return emit(f)
}
