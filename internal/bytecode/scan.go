package bytecode

import (
	"iter"

	"jarstrings/internal/classfile"
)

// StringRefs yields (instruction index, String constant index) for every
// ldc, ldc_w or ldc2_w whose operand is a String constant backed by a Utf8
// entry. Numeric, class, method type and dynamic constants are skipped.
// Pairs come in program order.
func StringRefs(pool classfile.Pool, insts []Inst) iter.Seq2[int, uint16] {
	return func(yield func(int, uint16) bool) {
		for i, in := range insts {
			if !in.Opcode.IsLoadConstant() {
				continue
			}
			if _, ok := pool.StringTarget(in.Index); !ok {
				continue
			}
			if !yield(i, in.Index) {
				return
			}
		}
	}
}
