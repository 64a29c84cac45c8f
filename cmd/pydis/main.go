// Command pydis decompiles a single .pyc file to Python source text
// (spec.md §6 "external interfaces"). It is a thin collaborator around
// the decompiler/codegen/disasm packages, not where any decoding logic
// lives.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"pydis/codegen"
	"pydis/decompiler"
	"pydis/disasm"
	"pydis/marshal"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		disasmMode bool
		cfgMode    bool
		testMode   bool
		goldenMode bool
		verbose    bool
	)

	cmd := &cobra.Command{
		Use:   "pydis <file.pyc>",
		Short: "Decompile a Python .pyc file back to source",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if verbose {
				logrus.SetLevel(logrus.DebugLevel)
			}
			path := args[0]
			switch {
			case disasmMode:
				return runDisasm(cmd, path)
			case cfgMode:
				return runCFG(cmd, path)
			case testMode:
				return runTest(cmd, path)
			case goldenMode:
				return runGolden(cmd, path)
			default:
				return runDecompile(cmd, path)
			}
		},
	}

	cmd.Flags().BoolVar(&disasmMode, "disasm", false, "print the bytecode disassembly instead of decompiling")
	cmd.Flags().BoolVar(&cfgMode, "cfg", false, "print the recovered control-flow tree instead of source text")
	cmd.Flags().BoolVar(&testMode, "test", false, "run the decompile harness and report success/failure only")
	cmd.Flags().BoolVar(&goldenMode, "golden", false, "compare output against a sibling .py golden file")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log recoverable diagnostics as they're found")

	return cmd
}

func readCode(path string) (*marshal.CodeObject, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("pydis: %w", err)
	}
	defer f.Close()
	return marshal.ReadPyc(f)
}

func runDecompile(cmd *cobra.Command, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("pydis: %w", err)
	}
	defer f.Close()

	result, err := decompiler.Decompile(f, nil)
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), codegen.GenerateModule(result.Docstring, result.Body))
	return nil
}

func runDisasm(cmd *cobra.Command, path string) error {
	co, err := readCode(path)
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), disasm.Format(co))
	return nil
}

func runCFG(cmd *cobra.Command, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("pydis: %w", err)
	}
	defer f.Close()

	result, err := decompiler.Decompile(f, nil)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%#v\n", result.Body)
	return nil
}

// runTest decompiles path and reports only whether the whole pipeline
// completed without a fatal error, for use as a quick regression smoke
// check over a corpus of .pyc fixtures.
func runTest(cmd *cobra.Command, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("pydis: %w", err)
	}
	defer f.Close()

	result, err := decompiler.Decompile(f, nil)
	if err != nil {
		fmt.Fprintf(cmd.OutOrStdout(), "FAIL %s: %s\n", path, err)
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "PASS %s (%d diagnostics)\n", path, len(result.Diagnostics))
	return nil
}

// runGolden decompiles path and diffs it against path with its extension
// replaced by .py, the convention a fixture corpus of (pyc, expected
// source) pairs would use.
func runGolden(cmd *cobra.Command, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("pydis: %w", err)
	}
	defer f.Close()

	result, err := decompiler.Decompile(f, nil)
	if err != nil {
		return err
	}
	got := codegen.GenerateModule(result.Docstring, result.Body)

	goldenPath := strings.TrimSuffix(path, filepath.Ext(path)) + ".py"
	want, err := os.ReadFile(goldenPath)
	if err != nil {
		return fmt.Errorf("pydis: reading golden file %s: %w", goldenPath, err)
	}
	if got != string(want) {
		fmt.Fprintf(cmd.OutOrStdout(), "MISMATCH %s\n--- got ---\n%s\n--- want ---\n%s\n", path, got, string(want))
		return fmt.Errorf("pydis: golden mismatch for %s", path)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "MATCH %s\n", path)
	return nil
}
