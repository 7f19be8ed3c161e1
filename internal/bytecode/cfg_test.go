package bytecode

import (
	"testing"

	"jarstrings/internal/classfmt"
	"jarstrings/internal/classtest"
)

func buildCFG(t *testing.T, code []byte) CFG {
	t.Helper()
	insts, err := Decode(code, Options{Mode: classfmt.ModeStrict})
	if err != nil {
		t.Fatal(err)
	}
	return BuildCFG("m", code, insts)
}

func TestBuildCFG_Linear(t *testing.T) {
	cfg := buildCFG(t, classtest.Op(classtest.OpNop, classtest.OpNop, classtest.OpReturn))
	if len(cfg.Blocks) != 1 {
		t.Fatalf("blocks = %d, want 1", len(cfg.Blocks))
	}
	blk := cfg.Blocks[0]
	if blk.Start != 0 || blk.End != 3 {
		t.Errorf("block range = [%d,%d), want [0,3)", blk.Start, blk.End)
	}
	if !blk.IsTerm || !blk.IsEntry {
		t.Errorf("block = %+v, want entry and terminal", blk)
	}
	if len(blk.Succs) != 0 {
		t.Errorf("succs = %v, want none", blk.Succs)
	}
}

func TestBuildCFG_IfElse(t *testing.T) {
	//  0: iconst_0
	//  1: ifeq 8
	//  4: nop
	//  5: goto 9
	//  8: nop
	//  9: return
	code := classtest.Code(
		classtest.Op(classtest.OpIconst0),
		classtest.Op(0x99, 0x00, 0x07),
		classtest.Op(classtest.OpNop),
		classtest.Op(classtest.OpGoto, 0x00, 0x04),
		classtest.Op(classtest.OpNop),
		classtest.Op(classtest.OpReturn),
	)
	cfg := buildCFG(t, code)
	if len(cfg.Blocks) != 4 {
		t.Fatalf("blocks = %d, want 4", len(cfg.Blocks))
	}

	want := [][]Succ{
		{{BlockID: 2, Cond: "T"}, {BlockID: 1, Cond: "F"}},
		{{BlockID: 3}},
		{{BlockID: 3}},
		nil,
	}
	for i, blk := range cfg.Blocks {
		if len(blk.Succs) != len(want[i]) {
			t.Fatalf("B%d succs = %v, want %v", i, blk.Succs, want[i])
		}
		for j := range want[i] {
			if blk.Succs[j] != want[i][j] {
				t.Errorf("B%d succ %d = %v, want %v", i, j, blk.Succs[j], want[i][j])
			}
		}
	}
	if !cfg.Blocks[3].IsTerm {
		t.Error("B3 should be terminal")
	}
	if got := cfg.BlockOf(2); got != 1 {
		t.Errorf("BlockOf(2) = %d, want 1", got)
	}
	if got := cfg.BlockOf(99); got != -1 {
		t.Errorf("BlockOf(99) = %d, want -1", got)
	}
}

func TestBuildCFG_TableSwitch(t *testing.T) {
	// tableswitch at 0 pads 3 bytes; 24 bytes total. Both cases share a target.
	code := classtest.Code(
		classtest.Op(classtest.OpTableSwitch, 0, 0, 0),
		classtest.U4(24), // default -> 24
		classtest.U4(0),  // low
		classtest.U4(1),  // high
		classtest.U4(25), classtest.U4(25),
		classtest.Op(classtest.OpReturn, classtest.OpReturn, classtest.OpReturn),
	)
	cfg := buildCFG(t, code)
	if len(cfg.Blocks) != 4 {
		t.Fatalf("blocks = %d, want 4", len(cfg.Blocks))
	}
	succs := cfg.Blocks[0].Succs
	if len(succs) != 2 || succs[0] != (Succ{BlockID: 1, Cond: "default"}) || succs[1] != (Succ{BlockID: 2, Cond: "case"}) {
		t.Errorf("switch succs = %v", succs)
	}
	if cfg.Blocks[0].IsTerm {
		t.Error("switch block should not be terminal")
	}
}

func TestDecodeBranch_LookupSwitch(t *testing.T) {
	// nop; lookupswitch at 1 pads 2 bytes; next instruction at 20.
	code := classtest.Code(
		classtest.Op(classtest.OpNop, classtest.OpLookupSwitch, 0, 0),
		classtest.U4(19), // default -> 20
		classtest.U4(1),
		classtest.U4(7), classtest.U4(20), // 7 -> 21
		classtest.Op(classtest.OpReturn, classtest.OpReturn),
	)
	insts, err := Decode(code, Options{Mode: classfmt.ModeStrict})
	if err != nil {
		t.Fatal(err)
	}
	bi := DecodeBranch(code, insts[1])
	if bi == nil || !bi.Switch {
		t.Fatalf("branch = %+v, want switch", bi)
	}
	if len(bi.Targets) != 2 || bi.Targets[0] != 20 || bi.Targets[1] != 21 {
		t.Errorf("targets = %v, want [20 21]", bi.Targets)
	}
}

func TestDecodeBranch_Terminators(t *testing.T) {
	tests := []struct {
		name string
		code []byte
		term bool
	}{
		{"return", classtest.Op(classtest.OpReturn), true},
		{"areturn", classtest.Op(0xb0), true},
		{"athrow", classtest.Op(0xbf), true},
		{"ret", classtest.Op(0xa9, 1), true},
		{"wide ret", classtest.Op(classtest.OpWide, 0xa9, 0, 1), true},
		{"wide iload", classtest.Op(classtest.OpWide, 0x15, 0, 1), false},
		{"nop", classtest.Op(classtest.OpNop), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			insts, err := Decode(tt.code, Options{Mode: classfmt.ModeStrict})
			if err != nil {
				t.Fatal(err)
			}
			bi := DecodeBranch(tt.code, insts[0])
			if got := bi != nil && bi.IsTerm; got != tt.term {
				t.Errorf("terminal = %v, want %v (%+v)", got, tt.term, bi)
			}
		})
	}
}

func TestDecodeBranch_Backward(t *testing.T) {
	// 0: nop; 1: goto 0
	code := classtest.Op(classtest.OpNop, classtest.OpGoto, 0xff, 0xff)
	insts, err := Decode(code, Options{Mode: classfmt.ModeStrict})
	if err != nil {
		t.Fatal(err)
	}
	bi := DecodeBranch(code, insts[1])
	if bi == nil || bi.Cond || len(bi.Targets) != 1 || bi.Targets[0] != 0 {
		t.Fatalf("branch = %+v, want goto 0", bi)
	}
	cfg := BuildCFG("loop", code, insts)
	if len(cfg.Blocks) != 1 {
		t.Fatalf("blocks = %d, want 1", len(cfg.Blocks))
	}
	if s := cfg.Blocks[0].Succs; len(s) != 1 || s[0].BlockID != 0 {
		t.Errorf("loop succs = %v", s)
	}
}
