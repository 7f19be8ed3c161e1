// Package classtest assembles small class files for tests.
package classtest

import (
	"bytes"
	"encoding/binary"

	"jarstrings/internal/classfmt"
)

// Opcodes used by test code arrays.
const (
	OpNop           = 0x00
	OpIconst0       = 0x03
	OpBipush        = 0x10
	OpLDC           = 0x12
	OpLDCW          = 0x13
	OpLDC2W         = 0x14
	OpAload0        = 0x2a
	OpPop           = 0x57
	OpIINC          = 0x84
	OpGoto          = 0xa7
	OpTableSwitch   = 0xaa
	OpLookupSwitch  = 0xab
	OpReturn        = 0xb1
	OpGetStatic     = 0xb2
	OpInvokeVirtual = 0xb6
	OpInvokeStatic  = 0xb8
	OpWide          = 0xc4
)

type member struct {
	access     uint16
	name, desc uint16
	code       []byte
}

// Builder accumulates constants and members. Utf8 and String constants are
// deduplicated the way javac does.
type Builder struct {
	pool    bytes.Buffer
	next    uint16
	utf8    map[string]uint16
	strs    map[string]uint16
	classes map[string]uint16
	this    uint16
	super   uint16
	methods []member
	attrs   [][]byte
}

// New starts a public class extending java/lang/Object.
func New(name string) *Builder {
	b := &Builder{
		next:    1,
		utf8:    make(map[string]uint16),
		strs:    make(map[string]uint16),
		classes: make(map[string]uint16),
	}
	b.this = b.Class(name)
	b.super = b.Class("java/lang/Object")
	return b
}

func (b *Builder) add(raw []byte, slots uint16) uint16 {
	idx := b.next
	b.pool.Write(raw)
	b.next += slots
	return idx
}

// Next returns the slot the next constant will take, which is also the
// constant_pool_count written by Bytes.
func (b *Builder) Next() uint16 { return b.next }

// Utf8 returns the slot of a Utf8 constant, adding it if needed.
func (b *Builder) Utf8(s string) uint16 {
	if idx, ok := b.utf8[s]; ok {
		return idx
	}
	text := classfmt.EncodeModifiedUTF8(s)
	raw := append([]byte{1}, u2(uint16(len(text)))...)
	idx := b.add(append(raw, text...), 1)
	b.utf8[s] = idx
	return idx
}

// String returns the slot of a String constant for s.
func (b *Builder) String(s string) uint16 {
	if idx, ok := b.strs[s]; ok {
		return idx
	}
	u := b.Utf8(s)
	idx := b.add(append([]byte{8}, u2(u)...), 1)
	b.strs[s] = idx
	return idx
}

// StringTo adds a String constant pointing at an existing Utf8 slot.
func (b *Builder) StringTo(utf8 uint16) uint16 {
	return b.add(append([]byte{8}, u2(utf8)...), 1)
}

// Class returns the slot of a Class constant.
func (b *Builder) Class(name string) uint16 {
	if idx, ok := b.classes[name]; ok {
		return idx
	}
	u := b.Utf8(name)
	idx := b.add(append([]byte{7}, u2(u)...), 1)
	b.classes[name] = idx
	return idx
}

// Integer adds a CONSTANT_Integer.
func (b *Builder) Integer(v int32) uint16 {
	return b.add(append([]byte{3}, u4(uint32(v))...), 1)
}

// Long adds a CONSTANT_Long, which takes two slots.
func (b *Builder) Long(v int64) uint16 {
	raw := append([]byte{5}, u4(uint32(uint64(v)>>32))...)
	return b.add(append(raw, u4(uint32(v))...), 2)
}

// NameAndType adds a CONSTANT_NameAndType.
func (b *Builder) NameAndType(name, desc string) uint16 {
	n, d := b.Utf8(name), b.Utf8(desc)
	raw := append([]byte{12}, u2(n)...)
	return b.add(append(raw, u2(d)...), 1)
}

// Methodref adds a CONSTANT_Methodref.
func (b *Builder) Methodref(owner, name, desc string) uint16 {
	c := b.Class(owner)
	nt := b.NameAndType(name, desc)
	raw := append([]byte{10}, u2(c)...)
	return b.add(append(raw, u2(nt)...), 1)
}

// Fieldref adds a CONSTANT_Fieldref.
func (b *Builder) Fieldref(owner, name, desc string) uint16 {
	c := b.Class(owner)
	nt := b.NameAndType(name, desc)
	raw := append([]byte{9}, u2(c)...)
	return b.add(append(raw, u2(nt)...), 1)
}

// Method adds a public method with the given code array. A nil code array
// makes the method abstract.
func (b *Builder) Method(name, desc string, code []byte) {
	m := member{access: 0x0001, name: b.Utf8(name), desc: b.Utf8(desc), code: code}
	if code == nil {
		m.access |= 0x0400
	} else {
		b.Utf8("Code")
	}
	b.methods = append(b.methods, m)
}

// SourceFile adds a class-level SourceFile attribute.
func (b *Builder) SourceFile(name string) {
	b.Attribute("SourceFile", u2(b.Utf8(name)))
}

// Attribute adds a class-level attribute with a raw payload.
func (b *Builder) Attribute(name string, payload []byte) {
	attr := u2(b.Utf8(name))
	attr = append(attr, u4(uint32(len(payload)))...)
	attr = append(attr, payload...)
	b.attrs = append(b.attrs, attr)
}

// Bytes serializes the class.
func (b *Builder) Bytes() []byte {
	var out bytes.Buffer
	out.Write(u4(0xCAFEBABE))
	out.Write(u2(0))
	out.Write(u2(52))
	out.Write(u2(b.next))
	out.Write(b.pool.Bytes())
	out.Write(u2(0x0021))
	out.Write(u2(b.this))
	out.Write(u2(b.super))
	out.Write(u2(0)) // interfaces
	out.Write(u2(0)) // fields
	out.Write(u2(uint16(len(b.methods))))
	for _, m := range b.methods {
		writeMember(&out, m, b.utf8["Code"])
	}
	out.Write(u2(uint16(len(b.attrs))))
	for _, a := range b.attrs {
		out.Write(a)
	}
	return out.Bytes()
}

func writeMember(out *bytes.Buffer, m member, codeName uint16) {
	out.Write(u2(m.access))
	out.Write(u2(m.name))
	out.Write(u2(m.desc))
	if m.code == nil {
		out.Write(u2(0))
		return
	}
	out.Write(u2(1))
	out.Write(u2(codeName))
	out.Write(u4(uint32(2 + 2 + 4 + len(m.code) + 2 + 2)))
	out.Write(u2(4)) // max_stack
	out.Write(u2(4)) // max_locals
	out.Write(u4(uint32(len(m.code))))
	out.Write(m.code)
	out.Write(u2(0)) // exception_table_length
	out.Write(u2(0)) // attributes_count
}

// Code concatenates instruction encodings.
func Code(parts ...[]byte) []byte {
	return bytes.Join(parts, nil)
}

// LDC encodes ldc (u1 index).
func LDC(idx uint16) []byte { return []byte{OpLDC, byte(idx)} }

// LDCW encodes ldc_w (u2 index).
func LDCW(idx uint16) []byte { return append([]byte{OpLDCW}, u2(idx)...) }

// Op3 encodes an opcode with a u2 operand.
func Op3(op byte, idx uint16) []byte { return append([]byte{op}, u2(idx)...) }

// Op encodes operand-less instructions.
func Op(ops ...byte) []byte { return ops }

func u2(v uint16) []byte {
	return binary.BigEndian.AppendUint16(nil, v)
}

func u4(v uint32) []byte {
	return binary.BigEndian.AppendUint32(nil, v)
}

// U2 and U4 are exported for hand-built operands (switch tables).
func U2(v uint16) []byte { return u2(v) }
func U4(v uint32) []byte { return u4(v) }
