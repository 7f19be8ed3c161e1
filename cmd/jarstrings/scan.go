package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"jarstrings/internal/bytecode"
	"jarstrings/internal/classfile"
	"jarstrings/internal/output"
)

var (
	scanJSON   bool
	scanMaxLen int
	scanASM    string
)

var scanCmd = &cobra.Command{
	Use:   "scan <jar>",
	Short: "List every string literal in a JAR",
	Long: `List every string literal loaded by the classes of a JAR, in archive
order. Each line shows the string id used by apply, where the string is
used, and the escaped value.

Examples:
  jarstrings scan app.jar
  jarstrings scan --json app.jar > strings.jsonl
  jarstrings scan --asm out/ app.jar`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, a, err := openSession(ctx, args[0])
		if err != nil {
			return err
		}
		res, err := filterRows(s, cfg.Query(""))
		if err != nil {
			return err
		}
		if scanJSON {
			if err := output.WriteStringsJSONL(os.Stdout, res.Rows); err != nil {
				return err
			}
		} else if err := output.WriteStringsText(os.Stdout, res.Rows, scanMaxLen); err != nil {
			return err
		}

		if scanASM == "" {
			return nil
		}
		n := 0
		for _, entry := range a.Classes() {
			data, err := a.ReadEntry(entry)
			if err != nil {
				return err
			}
			cf, err := classfile.Decode(data)
			if err != nil {
				logger.Warn("skipping listing", "entry", entry, "error", err)
				continue
			}
			n += writeListings(cf, scanASM)
		}
		fmt.Fprintf(os.Stderr, "wrote %d method listings to %s\n", n, filepath.Join(scanASM, "asm"))
		return nil
	},
}

func writeListings(cf *classfile.ClassFile, dir string) int {
	ldc := bytecode.LDCAnnotator(cf.Pool)
	inv := bytecode.InvokeAnnotator(cf.Pool)
	n := 0
	for i := range cf.Methods {
		m := &cf.Methods[i]
		if !m.HasCode() {
			continue
		}
		insts, err := bytecode.Decode(m.Code, bytecode.Options{})
		if err != nil {
			logger.Warn("skipping method", "class", cf.Name(), "method", m.Name, "error", err)
			continue
		}
		name := filepath.Join(cf.Name(), output.SafeName(m.Name+m.Descriptor))
		if err := output.WriteASM(dir, name, insts, ldc, inv); err != nil {
			logger.Warn("write listing", "name", name, "error", err)
			continue
		}
		n++
	}
	return n
}

func init() {
	scanCmd.Flags().BoolVar(&scanJSON, "json", false, "write JSON lines instead of text")
	scanCmd.Flags().IntVar(&scanMaxLen, "max-len", 200, "max display length per string (0 = unlimited)")
	scanCmd.Flags().StringVar(&scanASM, "asm", "", "also write per-method bytecode listings under this directory")
	rootCmd.AddCommand(scanCmd)
}
