// Package callgraph builds lattice call graphs and control flow graphs from
// decoded class methods.
package callgraph

import (
	"github.com/zboralski/lattice"

	"jarstrings/internal/bytecode"
	"jarstrings/internal/classfile"
)

// Method holds the data needed to build the call graph and CFG of one
// method.
type Method struct {
	Name      string // owner.name:descriptor, matching CallEdge.Target
	Code      []byte
	Insts     []bytecode.Inst
	CallEdges []bytecode.CallEdge
	Strings   map[int]string // instruction index -> loaded string
}

// MethodName renders a method the way call edges name their targets.
func MethodName(cf *classfile.ClassFile, m *classfile.Method) string {
	return bytecode.CallEdge{Owner: cf.Name(), Name: m.Name, Descriptor: m.Descriptor}.Target()
}

// FromClass decodes every method with code in cf. Methods whose code fails
// to decode are returned with the instructions decoded so far.
func FromClass(cf *classfile.ClassFile, opts bytecode.Options) []Method {
	var out []Method
	for i := range cf.Methods {
		m := &cf.Methods[i]
		if !m.HasCode() {
			continue
		}
		insts, err := bytecode.Decode(m.Code, opts)
		if err != nil {
			insts = nil
		}
		mi := Method{
			Name:      MethodName(cf, m),
			Code:      m.Code,
			Insts:     insts,
			CallEdges: bytecode.CallEdges(cf.Pool, insts),
		}
		for idx, pool := range bytecode.StringRefs(cf.Pool, insts) {
			if mi.Strings == nil {
				mi.Strings = make(map[int]string)
			}
			utf8, _ := cf.Pool.StringTarget(pool)
			mi.Strings[idx] = cf.Pool.Text(utf8)
		}
		out = append(out, mi)
	}
	return out
}

// BuildCallGraph constructs a lattice.Graph from methods. Each method
// becomes a node and each resolved invocation an edge.
func BuildCallGraph(methods []Method) *lattice.Graph {
	g := &lattice.Graph{}
	for _, m := range methods {
		g.Nodes = append(g.Nodes, m.Name)
		for _, e := range m.CallEdges {
			g.Edges = append(g.Edges, lattice.Edge{
				Caller: m.Name,
				Callee: e.Target(),
			})
		}
	}
	g.Dedup()
	return g
}
