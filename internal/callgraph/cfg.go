package callgraph

import (
	"fmt"

	"github.com/zboralski/lattice"

	"jarstrings/internal/bytecode"
)

// maxLabel bounds string literal labels in rendered graphs.
const maxLabel = 50

// BuildCFG constructs a lattice.CFGGraph with one function per method.
func BuildCFG(methods []Method) *lattice.CFGGraph {
	cg := &lattice.CFGGraph{}
	for _, m := range methods {
		lcfg, _ := BuildFuncCFG(m)
		cg.Funcs = append(cg.Funcs, lcfg)
	}
	return cg
}

// BuildFuncCFG converts one method to a lattice.FuncCFG. Invocations and
// string loads become call sites of the block that holds them. Returns the
// number of basic blocks.
func BuildFuncCFG(m Method) (*lattice.FuncCFG, int) {
	bcfg := bytecode.BuildCFG(m.Name, m.Code, m.Insts)
	return convertFuncCFG(&bcfg, m), len(bcfg.Blocks)
}

// BuildStringFuncCFG summarizes a method as a single block listing its
// calls and string literals in program order, each once. Methods without
// string loads yield nil.
func BuildStringFuncCFG(m Method) *lattice.FuncCFG {
	if len(m.Strings) == 0 {
		return nil
	}
	callAt := callsByIndex(m.CallEdges)
	seen := make(map[string]bool)
	var calls []lattice.CallSite
	for i := range m.Insts {
		label := ""
		if e, ok := callAt[i]; ok {
			label = e.Target()
		} else if s, ok := m.Strings[i]; ok {
			label = quoteLabel(s)
		}
		if label == "" || seen[label] {
			continue
		}
		seen[label] = true
		calls = append(calls, lattice.CallSite{Offset: len(calls), Callee: label})
	}
	return &lattice.FuncCFG{Name: m.Name, Blocks: []*lattice.BasicBlock{{
		ID:    0,
		Start: 0,
		End:   1,
		Term:  true,
		Calls: calls,
	}}}
}

func callsByIndex(edges []bytecode.CallEdge) map[int]bytecode.CallEdge {
	out := make(map[int]bytecode.CallEdge, len(edges))
	for _, e := range edges {
		out[e.Index] = e
	}
	return out
}

func quoteLabel(s string) string {
	if r := []rune(s); len(r) > maxLabel {
		s = string(r[:maxLabel-3]) + "..."
	}
	return fmt.Sprintf("%q", s)
}

func convertFuncCFG(bcfg *bytecode.CFG, m Method) *lattice.FuncCFG {
	callAt := callsByIndex(m.CallEdges)

	lcfg := &lattice.FuncCFG{Name: bcfg.Name}
	for _, b := range bcfg.Blocks {
		lb := &lattice.BasicBlock{
			ID:    b.ID,
			Start: b.Start,
			End:   b.End,
			Term:  b.IsTerm,
		}
		for _, s := range b.Succs {
			lb.Succs = append(lb.Succs, lattice.Successor{BlockID: s.BlockID, Cond: s.Cond})
		}
		for idx := b.Start; idx < b.End && idx < len(bcfg.Insts); idx++ {
			if e, ok := callAt[idx]; ok {
				lb.Calls = append(lb.Calls, lattice.CallSite{Offset: idx, Callee: e.Target()})
			} else if s, ok := m.Strings[idx]; ok {
				lb.Calls = append(lb.Calls, lattice.CallSite{Offset: idx, Callee: quoteLabel(s)})
			}
		}
		lcfg.Blocks = append(lcfg.Blocks, lb)
	}
	return lcfg
}
