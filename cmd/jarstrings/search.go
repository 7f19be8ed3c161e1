package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"jarstrings/internal/output"
)

var (
	searchCase   bool
	searchEmpty  bool
	searchJSON   bool
	searchMaxLen int
	searchKinds  []string
)

var searchCmd = &cobra.Command{
	Use:   "search <jar> [query]...",
	Short: "Search string literals",
	Long: `Search string literals by whitespace-separated tokens. A string
matches when it contains every token. Matching ignores case unless
--case-sensitive or filter.case_sensitive is set.

--kind restricts results to strings of the given kinds: empty, url, host,
file, format, identifier, base64, markup, sql, text.

Examples:
  jarstrings search app.jar hello world
  jarstrings search --case-sensitive app.jar Error
  jarstrings search --kind text --kind format app.jar`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, _, err := openSession(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		q := cfg.Query(strings.Join(args[1:], " "))
		if cmd.Flags().Changed("case-sensitive") {
			q.CaseSensitive = searchCase
		}
		if cmd.Flags().Changed("show-empty") {
			q.HideEmpty = !searchEmpty
		}
		q.Kinds = searchKinds
		res, err := filterRows(s, q)
		if err != nil {
			return err
		}
		if searchJSON {
			return output.WriteStringsJSONL(os.Stdout, res.Rows)
		}
		if err := output.WriteStringsText(os.Stdout, res.Rows, searchMaxLen); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "%d of %d strings (took %s)\n", len(res.Rows), res.Total, res.Took)
		return nil
	},
}

func init() {
	searchCmd.Flags().BoolVar(&searchCase, "case-sensitive", false, "match case")
	searchCmd.Flags().BoolVar(&searchEmpty, "show-empty", false, "include empty and whitespace-only strings")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "write JSON lines instead of text")
	searchCmd.Flags().StringSliceVar(&searchKinds, "kind", nil, "only strings of these kinds (repeatable)")
	searchCmd.Flags().IntVar(&searchMaxLen, "max-len", 200, "max display length per string (0 = unlimited)")
	rootCmd.AddCommand(searchCmd)
}
