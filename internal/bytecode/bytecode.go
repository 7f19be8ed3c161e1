// Package bytecode decodes JVM method code arrays and finds the string
// constants they load.
package bytecode

import (
	"errors"
	"fmt"
	"strings"

	"jarstrings/internal/classfmt"
)

var (
	ErrUnknownOpcode = errors.New("bytecode: unknown opcode")
	ErrTruncated     = errors.New("bytecode: truncated instruction")
	ErrBadSwitch     = errors.New("bytecode: malformed switch")
)

// Inst is one decoded instruction.
type Inst struct {
	Offset int // byte offset within the code array
	Opcode Opcode
	Size   int    // encoded length, opcode included
	Index  uint16 // constant pool operand; 0 if the opcode has none
}

func (in Inst) String() string {
	if in.Index != 0 {
		return fmt.Sprintf("%s #%d", in.Opcode, in.Index)
	}
	return in.Opcode.String()
}

// Options controls decoding behavior.
type Options struct {
	Mode     classfmt.Mode
	MaxSteps int             // maximum instructions to decode; 0 = classfmt.DefaultMaxSteps
	Diags    *classfmt.Diags // receives best-effort diagnostics; optional
}

func (o Options) effectiveMax() int {
	return classfmt.Options{MaxSteps: o.MaxSteps}.EffectiveMaxSteps()
}

// Decode walks a method's code array.
//
// In strict mode the first undecodable instruction fails the whole method.
// In best-effort mode decoding stops there, the instructions before it are
// returned and a diagnostic is recorded.
func Decode(code []byte, opts Options) ([]Inst, error) {
	maxSteps := opts.effectiveMax()
	result := make([]Inst, 0, len(code)/2)
	s := classfmt.NewStream(code)
	for s.Remaining() > 0 {
		if len(result) >= maxSteps {
			break
		}
		off := s.Position()
		inst, err := decodeOne(s)
		if err != nil {
			if opts.Mode == classfmt.ModeStrict {
				return nil, fmt.Errorf("offset %d: %w", off, err)
			}
			if opts.Diags != nil {
				opts.Diags.Addf(off, diagKind(err), "%s: %v", Opcode(code[off]), err)
			}
			break
		}
		result = append(result, inst)
	}
	return result, nil
}

func diagKind(err error) classfmt.DiagKind {
	switch {
	case errors.Is(err, ErrUnknownOpcode):
		return classfmt.DiagUnknownOpcode
	case errors.Is(err, ErrBadSwitch):
		return classfmt.DiagInvalid
	}
	return classfmt.DiagTruncated
}

func decodeOne(s *classfmt.Stream) (Inst, error) {
	off := s.Position()
	b, err := s.ReadU1()
	if err != nil {
		return Inst{}, ErrTruncated
	}
	inst := Inst{Offset: off, Opcode: Opcode(b)}

	switch inst.Opcode {
	case OpTableSwitch:
		err = skipTableSwitch(s)
	case OpLookupSwitch:
		err = skipLookupSwitch(s)
	case OpWide:
		var op uint8
		if op, err = s.ReadU1(); err != nil {
			break
		}
		switch {
		case Opcode(op) == OpIINC:
			err = s.Skip(4)
		case sizes[op] == 2 && op != 0x10 && op != 0x12 && op != 0xbc:
			// xload, xstore, ret: widened to a u2 local index.
			err = s.Skip(2)
		default:
			return Inst{}, fmt.Errorf("%w: wide %s", ErrUnknownOpcode, Opcode(op))
		}
	default:
		n := sizes[inst.Opcode]
		if n == 0 {
			return Inst{}, fmt.Errorf("%w: 0x%02x", ErrUnknownOpcode, b)
		}
		if poolOperand[inst.Opcode] {
			if inst.Opcode == OpLDC {
				var idx uint8
				idx, err = s.ReadU1()
				inst.Index = uint16(idx)
			} else {
				inst.Index, err = s.ReadU2()
				if err == nil {
					err = s.Skip(int(n) - 3)
				}
			}
		} else {
			err = s.Skip(int(n) - 1)
		}
	}
	if err != nil {
		if errors.Is(err, classfmt.ErrStreamEOF) {
			return Inst{}, ErrTruncated
		}
		return Inst{}, err
	}
	inst.Size = s.Position() - off
	return inst, nil
}

func skipTableSwitch(s *classfmt.Stream) error {
	if err := s.Align(0, 4); err != nil {
		return err
	}
	if err := s.Skip(4); err != nil { // default
		return err
	}
	low, err := s.ReadI4()
	if err != nil {
		return err
	}
	high, err := s.ReadI4()
	if err != nil {
		return err
	}
	if high < low {
		return fmt.Errorf("%w: tableswitch low %d > high %d", ErrBadSwitch, low, high)
	}
	n := int64(high) - int64(low) + 1
	if n*4 > int64(s.Remaining()) {
		return classfmt.ErrStreamEOF
	}
	return s.Skip(int(n * 4))
}

func skipLookupSwitch(s *classfmt.Stream) error {
	if err := s.Align(0, 4); err != nil {
		return err
	}
	if err := s.Skip(4); err != nil { // default
		return err
	}
	npairs, err := s.ReadI4()
	if err != nil {
		return err
	}
	if npairs < 0 {
		return fmt.Errorf("%w: lookupswitch npairs %d", ErrBadSwitch, npairs)
	}
	if int64(npairs)*8 > int64(s.Remaining()) {
		return classfmt.ErrStreamEOF
	}
	return s.Skip(int(npairs) * 8)
}

// Annotator returns an optional inline comment for an instruction.
// Empty string means no annotation.
type Annotator func(inst Inst) string

// Format renders instructions as stable text output.
// Each line: <offset>  <mnemonic> [#index]  ; <comment>
// Annotators are checked in order; first non-empty result is used.
func Format(insts []Inst, annotators ...Annotator) string {
	var b strings.Builder
	for _, inst := range insts {
		fmt.Fprintf(&b, "%6d  %s", inst.Offset, inst)
		for _, ann := range annotators {
			if s := ann(inst); s != "" {
				fmt.Fprintf(&b, "  ; %s", s)
				break
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}
