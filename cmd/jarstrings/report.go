package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"jarstrings/internal/jar"
	"jarstrings/internal/output"
	"jarstrings/internal/strtable"
)

var reportOut string

var reportCmd = &cobra.Command{
	Use:   "report <jar>",
	Short: "Write an HTML report of string literals",
	Long: `Write a self-contained HTML page listing every string literal with
its location, context and kinds, plus counts by kind and by class.
Entries skipped during scanning are listed with their errors.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, a, err := openSession(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		res, err := filterRows(s, strtable.Query{})
		if err != nil {
			return err
		}
		digest, err := a.Digest()
		if err != nil {
			return err
		}
		var skipped []string
		for _, e := range s.Errors() {
			skipped = append(skipped, e.Error())
		}

		var buf bytes.Buffer
		err = output.WriteReportHTML(&buf, output.Report{
			Title:   filepath.Base(args[0]),
			Archive: args[0],
			Digest:  digest,
			Entries: len(a.Classes()),
			Skipped: skipped,
			Rows:    res.Rows,
		}, output.NASA)
		if err != nil {
			return err
		}
		out := reportOut
		if out == "" {
			out = jar.ReportName(args[0])
		}
		if err := jar.Store(cmd.Context(), out, buf.Bytes()); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "wrote %s (%d strings)\n", out, len(res.Rows))
		return nil
	},
}

func init() {
	reportCmd.Flags().StringVarP(&reportOut, "out", "o", "", "output path or URL (default <jar>.strings.html)")
	rootCmd.AddCommand(reportCmd)
}
