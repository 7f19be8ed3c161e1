package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"jarstrings/internal/config"
	"jarstrings/internal/jar"
	"jarstrings/internal/output"
	"jarstrings/internal/strtable"
)

var (
	applyOut     string
	applyOnError string
	applySummary string
)

type applySummaryFile struct {
	Input    string   `json:"input"`
	Output   string   `json:"output"`
	Digest   string   `json:"digest"`
	Edits    int      `json:"edits"`
	Modified []string `json:"modified"`
	Skipped  []string `json:"skipped,omitempty"`
	Took     string   `json:"took"`
}

var applyCmd = &cobra.Command{
	Use:   "apply <jar> <edits.yaml>",
	Short: "Write a JAR with edited strings",
	Long: `Apply string edits and write a new JAR. The edits file maps string ids
(as printed by scan) to new text, and original text to replacement text:

  edits:
    0: "Hi"
  replace:
    "World": "Welt"

The input JAR is never modified. Without --out the result is written next
to the input as <name>.translated.jar.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		edits, err := config.LoadEdits(args[1])
		if err != nil {
			return err
		}
		if applyOnError != "" {
			cfg.Save.OnError = applyOnError
			if err := cfg.Validate(); err != nil {
				return err
			}
		}

		s, _, err := openSession(ctx, args[0])
		if err != nil {
			return err
		}
		for _, id := range edits.IDs() {
			if _, err := s.Update(id, edits.Edits[id]); err != nil {
				return err
			}
		}
		if len(edits.Replace) > 0 {
			all, err := s.Filter(strtable.Query{})
			if err != nil {
				return err
			}
			for _, row := range all.Rows {
				if text, ok := edits.Replace[row.Original]; ok {
					if _, err := s.Update(row.ID, text); err != nil {
						return err
					}
				}
			}
		}

		res, err := s.Save(ctx)
		if err != nil {
			return err
		}
		for _, sk := range res.Skipped {
			fmt.Fprintf(os.Stderr, "skipped %s: %v\n", sk.Entry, sk.Err)
		}

		out := applyOut
		if out == "" {
			out = jar.OutputName(args[0])
		}
		if err := jar.Store(ctx, out, res.Archive); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "wrote %s (%d strings, %d classes modified, %d skipped, digest %016x)\n",
			out, res.Edits, len(res.Modified), len(res.Skipped), res.Digest)

		if applySummary == "" {
			return nil
		}
		sum := applySummaryFile{
			Input:    args[0],
			Output:   out,
			Digest:   fmt.Sprintf("%016x", res.Digest),
			Edits:    res.Edits,
			Modified: res.Modified,
			Took:     res.Took.String(),
		}
		for _, sk := range res.Skipped {
			sum.Skipped = append(sum.Skipped, fmt.Sprintf("%s: %v", sk.Entry, sk.Err))
		}
		return output.WriteJSON(applySummary, sum)
	},
}

func init() {
	applyCmd.Flags().StringVarP(&applyOut, "out", "o", "", "output JAR path or URL")
	applyCmd.Flags().StringVar(&applyOnError, "on-error", "", "fail or skip classes that cannot be rewritten")
	applyCmd.Flags().StringVar(&applySummary, "summary", "", "also write a JSON summary of the save to this file")
	rootCmd.AddCommand(applyCmd)
}
