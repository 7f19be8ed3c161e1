package bytecode

import (
	"fmt"

	"jarstrings/internal/classfile"
)

// LDCAnnotator annotates load-constant instructions that push a string.
func LDCAnnotator(pool classfile.Pool) Annotator {
	return func(inst Inst) string {
		if !inst.Opcode.IsLoadConstant() {
			return ""
		}
		utf8, ok := pool.StringTarget(inst.Index)
		if !ok {
			return ""
		}
		return fmt.Sprintf("String %q", pool.Text(utf8))
	}
}

// InvokeAnnotator annotates invocations with their resolved target.
func InvokeAnnotator(pool classfile.Pool) Annotator {
	return func(inst Inst) string {
		if !inst.Opcode.IsInvoke() {
			return ""
		}
		if e, ok := callEdge(pool, inst); ok {
			return e.Target()
		}
		return ""
	}
}
