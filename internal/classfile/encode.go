package classfile

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"jarstrings/internal/classfmt"
)

// constant_pool_count is a u2, so the highest usable slot is 65534.
const maxPoolCount = 0xFFFF

// Edit replaces the text of one String constant.
type Edit struct {
	ID   int    // caller's identifier, echoed in errors
	Pool uint16 // index of the String constant
	Text string
}

// EditError reports a rejected edit.
type EditError struct {
	ID   int
	Pool uint16
	Err  error
}

func (e *EditError) Error() string {
	return fmt.Sprintf("string %d (#%d): %v", e.ID, e.Pool, e.Err)
}

func (e *EditError) Unwrap() error { return e.Err }

// Encode re-serializes cf with the given edits applied.
//
// Edited text is written into the String constant's Utf8 slot in place.
// When that slot is also a symbolic name (or backs another String constant
// that is not receiving the same text) a new Utf8 entry is appended to the
// pool and only the edited String constant is pointed at it. Existing slots
// never move, so every index in the tail stays valid.
//
// With no edits the output is byte-identical to the decoded input.
func Encode(cf *ClassFile, edits []Edit) ([]byte, error) {
	seen := make(map[uint16]Edit, len(edits))
	byString := make(map[uint16]Edit, len(edits))
	for _, e := range edits {
		target, ok := cf.Pool.StringTarget(e.Pool)
		if !ok {
			return nil, &EditError{ID: e.ID, Pool: e.Pool, Err: ErrNotString}
		}
		if n := classfmt.ModifiedUTF8Len(e.Text); n > classfmt.MaxUTF8Length {
			return nil, &EditError{ID: e.ID, Pool: e.Pool, Err: fmt.Errorf("%w (%d bytes)", ErrStringTooLong, n)}
		}
		if prev, ok := seen[e.Pool]; ok && prev.Text != e.Text {
			return nil, &EditError{ID: e.ID, Pool: e.Pool, Err: fmt.Errorf("%w: string %d already sets %q", ErrConflictingEdit, prev.ID, prev.Text)}
		}
		seen[e.Pool] = e
		cur, _ := cf.Pool.Utf8(target)
		if bytes.Equal(cur, classfmt.EncodeModifiedUTF8(e.Text)) {
			continue
		}
		byString[e.Pool] = e
	}

	inPlace := make(map[uint16][]byte)  // Utf8 slot → new text
	retarget := make(map[uint16]uint16) // String slot → appended Utf8 slot
	var appended [][]byte
	appendedAt := make(map[string]uint16)
	next := len(cf.Pool)

	// Walk in pool order so appended slots are deterministic.
	for i := range cf.Pool {
		str := uint16(i)
		e, ok := byString[str]
		if !ok {
			continue
		}
		target, _ := cf.Pool.StringTarget(str)
		text := classfmt.EncodeModifiedUTF8(e.Text)
		if cf.exclusive(target, byString, e.Text) {
			inPlace[target] = text
			continue
		}
		slot, ok := appendedAt[string(text)]
		if !ok {
			if next >= maxPoolCount {
				return nil, &EditError{ID: e.ID, Pool: e.Pool, Err: ErrPoolFull}
			}
			slot = uint16(next)
			next++
			appended = append(appended, text)
			appendedAt[string(text)] = slot
		}
		retarget[str] = slot
	}

	var out bytes.Buffer
	out.Grow(len(cf.Tail) + 10 + poolSize(cf.Pool))
	var hdr [10]byte
	binary.BigEndian.PutUint32(hdr[0:], Magic)
	binary.BigEndian.PutUint16(hdr[4:], cf.Minor)
	binary.BigEndian.PutUint16(hdr[6:], cf.Major)
	binary.BigEndian.PutUint16(hdr[8:], uint16(next))
	out.Write(hdr[:])

	for i, c := range cf.Pool {
		idx := uint16(i)
		if text, ok := inPlace[idx]; ok {
			writeUtf8(&out, text)
			continue
		}
		if slot, ok := retarget[idx]; ok {
			out.WriteByte(byte(TagString))
			writeU2(&out, slot)
			continue
		}
		out.Write(c.Raw)
	}
	for _, text := range appended {
		writeUtf8(&out, text)
	}
	out.Write(cf.Tail)
	return out.Bytes(), nil
}

// exclusive reports whether a Utf8 slot can be rewritten in place to text:
// it is not a symbolic name, and every String constant using it is being
// edited to the same text.
func (cf *ClassFile) exclusive(utf8 uint16, edits map[uint16]Edit, text string) bool {
	if cf.IsSymbolic(utf8) {
		return false
	}
	for _, user := range cf.stringUsers[utf8] {
		e, ok := edits[user]
		if !ok || e.Text != text {
			return false
		}
	}
	return true
}

func poolSize(p Pool) int {
	n := 0
	for _, c := range p {
		n += len(c.Raw)
	}
	return n
}

func writeU2(b *bytes.Buffer, v uint16) {
	b.WriteByte(byte(v >> 8))
	b.WriteByte(byte(v))
}

func writeUtf8(b *bytes.Buffer, text []byte) {
	b.WriteByte(byte(TagUtf8))
	writeU2(b, uint16(len(text)))
	b.Write(text)
}
