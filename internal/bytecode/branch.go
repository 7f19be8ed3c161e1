package bytecode

import "encoding/binary"

// Control-flow opcodes beyond the ones named in opcode.go.
const (
	opIfeq      Opcode = 0x99
	opIfLast    Opcode = 0xa6 // if_acmpne
	opGoto      Opcode = 0xa7
	opJsr       Opcode = 0xa8
	opRet       Opcode = 0xa9
	opIreturn   Opcode = 0xac
	opReturn    Opcode = 0xb1
	opAthrow    Opcode = 0xbf
	opIfnull    Opcode = 0xc6
	opIfnonnull Opcode = 0xc7
	opGotoW     Opcode = 0xc8
	opJsrW      Opcode = 0xc9
)

// BranchInfo describes a decoded control transfer.
type BranchInfo struct {
	Targets []int // absolute code offsets; Targets[0] is the default for switches
	Cond    bool  // falls through when not taken
	Switch  bool
	IsTerm  bool // return, athrow or ret
}

// DecodeBranch returns the control transfer of in, reading its operands from
// code. Returns nil if in does not transfer control.
func DecodeBranch(code []byte, in Inst) *BranchInfo {
	if in.Offset < 0 || in.Offset+in.Size > len(code) {
		return nil
	}
	raw := code[in.Offset : in.Offset+in.Size]
	rel16 := func() int { return in.Offset + int(int16(binary.BigEndian.Uint16(raw[1:]))) }
	rel32 := func(at int) int { return in.Offset + int(int32(binary.BigEndian.Uint32(raw[at:]))) }

	switch op := in.Opcode; {
	case op >= opIfeq && op <= opIfLast, op == opIfnull, op == opIfnonnull:
		return &BranchInfo{Targets: []int{rel16()}, Cond: true}
	case op == opGoto:
		return &BranchInfo{Targets: []int{rel16()}}
	case op == opGotoW:
		return &BranchInfo{Targets: []int{rel32(1)}}
	case op == opJsr:
		// Subroutine call: the callee returns to the next instruction.
		return &BranchInfo{Targets: []int{rel16()}, Cond: true}
	case op == opJsrW:
		return &BranchInfo{Targets: []int{rel32(1)}, Cond: true}
	case op == opRet, op >= opIreturn && op <= opReturn, op == opAthrow:
		return &BranchInfo{IsTerm: true}
	case op == OpWide:
		if len(raw) > 1 && Opcode(raw[1]) == opRet {
			return &BranchInfo{IsTerm: true}
		}
	case op == OpTableSwitch:
		p := switchOperands(in.Offset)
		if p+12 > len(raw) {
			return nil
		}
		bi := &BranchInfo{Switch: true, Targets: []int{rel32(p)}}
		low := int32(binary.BigEndian.Uint32(raw[p+4:]))
		high := int32(binary.BigEndian.Uint32(raw[p+8:]))
		for i, at := 0, p+12; int64(i) <= int64(high)-int64(low) && at+4 <= len(raw); i, at = i+1, at+4 {
			bi.Targets = append(bi.Targets, rel32(at))
		}
		return bi
	case op == OpLookupSwitch:
		p := switchOperands(in.Offset)
		if p+8 > len(raw) {
			return nil
		}
		bi := &BranchInfo{Switch: true, Targets: []int{rel32(p)}}
		n := int(int32(binary.BigEndian.Uint32(raw[p+4:])))
		for i, at := 0, p+8; i < n && at+8 <= len(raw); i, at = i+1, at+8 {
			bi.Targets = append(bi.Targets, rel32(at+4))
		}
		return bi
	}
	return nil
}

// switchOperands returns the position of a switch's default offset
// relative to the opcode, after the 0-3 padding bytes.
func switchOperands(offset int) int {
	return 1 + (3-offset%4+4)%4
}
