package bytecode

import (
	"strings"

	"jarstrings/internal/classfile"
)

// CallEdge is an invocation site in a method.
type CallEdge struct {
	Offset     int    `json:"offset"`
	Index      int    `json:"index"` // instruction index
	Kind       string `json:"kind"`  // invokevirtual, invokestatic, ...
	Owner      string `json:"owner,omitempty"`
	Name       string `json:"name"`
	Descriptor string `json:"descriptor"`
}

// Target renders the call target as owner.name:descriptor with a dotted
// owner. invokedynamic sites have no owner.
func (e CallEdge) Target() string {
	var b strings.Builder
	if e.Owner != "" {
		b.WriteString(strings.ReplaceAll(e.Owner, "/", "."))
		b.WriteByte('.')
	}
	b.WriteString(e.Name)
	b.WriteByte(':')
	b.WriteString(e.Descriptor)
	return b.String()
}

func callEdge(pool classfile.Pool, inst Inst) (CallEdge, bool) {
	owner, name, desc, ok := pool.MemberRef(inst.Index)
	if !ok {
		return CallEdge{}, false
	}
	return CallEdge{
		Offset:     inst.Offset,
		Kind:       inst.Opcode.String(),
		Owner:      owner,
		Name:       name,
		Descriptor: desc,
	}, true
}

// CallEdges extracts every resolvable invocation from a method.
func CallEdges(pool classfile.Pool, insts []Inst) []CallEdge {
	var edges []CallEdge
	for i, in := range insts {
		if !in.Opcode.IsInvoke() {
			continue
		}
		if e, ok := callEdge(pool, in); ok {
			e.Index = i
			edges = append(edges, e)
		}
	}
	return edges
}
