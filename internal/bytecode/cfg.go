package bytecode

import (
	"slices"
	"strconv"
)

// BasicBlock is a run of instructions with a single entry point.
type BasicBlock struct {
	ID      int
	Start   int    // index into CFG.Insts (inclusive)
	End     int    // index into CFG.Insts (exclusive)
	Succs   []Succ // successor edges
	IsEntry bool
	IsTerm  bool // ends with a return, athrow or ret
}

// Succ is a control-flow successor edge.
type Succ struct {
	BlockID int
	Cond    string // "" unconditional, "T" taken, "F" fallthrough, "default" or "case" for switches
}

// CFG is the control flow graph of one method.
type CFG struct {
	Name   string
	Blocks []BasicBlock
	Insts  []Inst
}

// BuildCFG partitions a method's instructions into basic blocks:
//  1. Leaders are index 0, branch targets and instructions after a transfer.
//  2. Instructions are split at leaders.
//  3. Successors come from each block's last instruction.
//
// Exception handlers are not modelled.
func BuildCFG(name string, code []byte, insts []Inst) CFG {
	if len(insts) == 0 {
		return CFG{Name: name, Insts: insts}
	}

	offToIdx := make(map[int]int, len(insts))
	for i, in := range insts {
		offToIdx[in.Offset] = i
	}
	branches := make([]*BranchInfo, len(insts))

	leaders := map[int]bool{0: true}
	for i, in := range insts {
		bi := DecodeBranch(code, in)
		if bi == nil {
			continue
		}
		branches[i] = bi
		if i+1 < len(insts) {
			leaders[i+1] = true
		}
		for _, t := range bi.Targets {
			if idx, ok := offToIdx[t]; ok {
				leaders[idx] = true
			}
		}
	}

	sorted := make([]int, 0, len(leaders))
	for idx := range leaders {
		sorted = append(sorted, idx)
	}
	slices.Sort(sorted)

	blocks := make([]BasicBlock, len(sorted))
	leaderToBlock := make(map[int]int, len(sorted))
	for i, start := range sorted {
		end := len(insts)
		if i+1 < len(sorted) {
			end = sorted[i+1]
		}
		blocks[i] = BasicBlock{ID: i, Start: start, End: end, IsEntry: start == 0}
		leaderToBlock[start] = i
	}

	blockAt := func(off int) (int, bool) {
		idx, ok := offToIdx[off]
		if !ok {
			return 0, false
		}
		bid, ok := leaderToBlock[idx]
		return bid, ok
	}

	for i := range blocks {
		blk := &blocks[i]
		bi := branches[blk.End-1]
		next, hasNext := leaderToBlock[blk.End]

		switch {
		case bi == nil:
			if hasNext {
				blk.Succs = append(blk.Succs, Succ{BlockID: next})
			}
		case bi.IsTerm:
			blk.IsTerm = true
		case bi.Switch:
			for j, t := range bi.Targets {
				cond := "case"
				if j == 0 {
					cond = "default"
				}
				if bid, ok := blockAt(t); ok {
					addSucc(blk, Succ{BlockID: bid, Cond: cond})
				}
			}
		case bi.Cond:
			if bid, ok := blockAt(bi.Targets[0]); ok {
				blk.Succs = append(blk.Succs, Succ{BlockID: bid, Cond: "T"})
			}
			if hasNext {
				blk.Succs = append(blk.Succs, Succ{BlockID: next, Cond: "F"})
			}
		default:
			if bid, ok := blockAt(bi.Targets[0]); ok {
				blk.Succs = append(blk.Succs, Succ{BlockID: bid})
			} else {
				blk.IsTerm = true
			}
		}
	}

	return CFG{Name: name, Blocks: blocks, Insts: insts}
}

func addSucc(blk *BasicBlock, s Succ) {
	if slices.Contains(blk.Succs, s) {
		return
	}
	blk.Succs = append(blk.Succs, s)
}

// BlockOf returns the block containing instruction index i, or -1.
func (c *CFG) BlockOf(i int) int {
	for _, b := range c.Blocks {
		if i >= b.Start && i < b.End {
			return b.ID
		}
	}
	return -1
}

func (s Succ) String() string {
	if s.Cond == "" {
		return "B" + strconv.Itoa(s.BlockID)
	}
	return s.Cond + ":B" + strconv.Itoa(s.BlockID)
}
