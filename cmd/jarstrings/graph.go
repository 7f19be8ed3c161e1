package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/zboralski/lattice"
	"github.com/zboralski/lattice/render"

	"jarstrings/internal/bytecode"
	"jarstrings/internal/callgraph"
	"jarstrings/internal/classfile"
	"jarstrings/internal/discovery"
	"jarstrings/internal/jar"
	"jarstrings/internal/output"
)

var (
	graphOut     string
	graphCFG     bool
	graphStrings bool
)

var graphCmd = &cobra.Command{
	Use:   "graph <jar>",
	Short: "Render call graphs as DOT",
	Long: `Write callgraph.dot with one node per method and one edge per
invocation. With --cfg, also write cfg.dot with the control flow graph of
every method, plus one file under cfg/ per method that has branches, with
calls and string literals placed in their blocks. With
--strings, write strings.dot summarizing the calls and string literals of
every method that loads a string.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		data, err := jar.Fetch(ctx, args[0])
		if err != nil {
			return err
		}
		a, err := jar.Open(data)
		if err != nil {
			return err
		}
		names, err := discovery.SelectEntries(a.Entries(), cfg.Scan.Include, cfg.Scan.Exclude)
		if err != nil {
			return err
		}

		var methods []callgraph.Method
		for _, entry := range names {
			if err := ctx.Err(); err != nil {
				return err
			}
			raw, err := a.ReadEntry(entry)
			if err != nil {
				return err
			}
			cf, err := classfile.Decode(raw)
			if err != nil {
				logger.Warn("skipping entry", "entry", entry, "error", err)
				continue
			}
			methods = append(methods, callgraph.FromClass(cf, bytecode.Options{})...)
		}

		cg := callgraph.BuildCallGraph(methods)
		p, err := output.WriteDOT(graphOut, "callgraph", render.DOT(cg, "callgraph"))
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "wrote %s (%d nodes, %d edges)\n", p, len(cg.Nodes), len(cg.Edges))

		if graphCFG {
			all := callgraph.BuildCFG(methods)
			if _, err := output.WriteDOT(graphOut, "cfg", render.DOTCFG(all, "cfg")); err != nil {
				return err
			}
			n := 0
			for _, m := range methods {
				lcfg, nblocks := callgraph.BuildFuncCFG(m)
				if nblocks <= 1 {
					continue
				}
				g := &lattice.CFGGraph{Funcs: []*lattice.FuncCFG{lcfg}}
				if _, err := output.WriteDOT(filepath.Join(graphOut, "cfg"), output.SafeName(m.Name), render.DOTCFG(g, m.Name)); err != nil {
					return err
				}
				n++
			}
			fmt.Fprintf(os.Stderr, "wrote %d per-method CFG DOTs to %s\n", n, filepath.Join(graphOut, "cfg"))
		}

		if graphStrings {
			sg := &lattice.CFGGraph{}
			for _, m := range methods {
				if f := callgraph.BuildStringFuncCFG(m); f != nil {
					sg.Funcs = append(sg.Funcs, f)
				}
			}
			p, err := output.WriteDOT(graphOut, "strings", render.DOTCFG(sg, "strings"))
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "wrote %s (%d methods)\n", p, len(sg.Funcs))
		}
		return nil
	},
}

func init() {
	graphCmd.Flags().StringVarP(&graphOut, "out", "o", "graph", "output directory")
	graphCmd.Flags().BoolVar(&graphCFG, "cfg", false, "write per-method control flow graphs")
	graphCmd.Flags().BoolVar(&graphStrings, "strings", false, "write the string usage summary")
	rootCmd.AddCommand(graphCmd)
}
