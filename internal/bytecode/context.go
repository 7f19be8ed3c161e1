package bytecode

import (
	"fmt"
	"strings"

	"jarstrings/internal/classfile"
)

// ContextWindow is how many instructions on either side of a string load
// are searched for a neighbouring invocation.
const ContextWindow = 8

// Context describes where a string literal is used. It is display metadata
// only.
type Context struct {
	Class       string `json:"class"`
	SimpleClass string `json:"simple_class"`
	Method      string `json:"method"`
	Descriptor  string `json:"descriptor"`
	Offset      int    `json:"offset"`
	PrevCall    string `json:"prev_call,omitempty"`
	NextCall    string `json:"next_call,omitempty"`
}

func (c Context) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s.%s%s+%d", c.SimpleClass, c.Method, c.Descriptor, c.Offset)
	if c.NextCall != "" {
		fmt.Fprintf(&b, " -> %s", c.NextCall)
	} else if c.PrevCall != "" {
		fmt.Fprintf(&b, " after %s", c.PrevCall)
	}
	return b.String()
}

// ResolveContext summarizes the location of instruction i in method m.
// Parts that cannot be resolved are left empty; it never fails.
func ResolveContext(cf *classfile.ClassFile, m *classfile.Method, insts []Inst, i int) Context {
	var c Context
	if cf != nil {
		c.Class = cf.QualifiedName()
		c.SimpleClass = cf.SimpleName()
	}
	if m != nil {
		c.Method = m.Name
		c.Descriptor = m.Descriptor
	}
	if cf == nil || i < 0 || i >= len(insts) {
		return c
	}
	c.Offset = insts[i].Offset

	for j := i - 1; j >= 0 && j >= i-ContextWindow; j-- {
		if e, ok := invokeAt(cf.Pool, insts[j]); ok {
			c.PrevCall = e.Target()
			break
		}
	}
	for j := i + 1; j < len(insts) && j <= i+ContextWindow; j++ {
		if e, ok := invokeAt(cf.Pool, insts[j]); ok {
			c.NextCall = e.Target()
			break
		}
	}
	return c
}

func invokeAt(pool classfile.Pool, in Inst) (CallEdge, bool) {
	if !in.Opcode.IsInvoke() {
		return CallEdge{}, false
	}
	return callEdge(pool, in)
}
