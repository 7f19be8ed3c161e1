// Package classfile decodes and re-encodes JVM class files.
//
// Only the constant pool and method code arrays are interpreted. Everything
// after the constant pool is kept as an opaque tail and written back
// verbatim, so constant pool positions (and every index that refers to
// them) survive a round trip unchanged.
package classfile

import (
	"errors"
	"strings"

	"jarstrings/internal/classfmt"
)

// Magic is the class file signature.
const Magic = 0xCAFEBABE

var (
	ErrMalformed       = errors.New("classfile: malformed class file")
	ErrStringTooLong   = errors.New("classfile: encoded string exceeds 65535 bytes")
	ErrNotString       = errors.New("classfile: not a string constant")
	ErrConflictingEdit = errors.New("classfile: conflicting edits for one constant")
	ErrPoolFull        = errors.New("classfile: constant pool is full")
)

// Tag identifies a constant pool entry kind.
type Tag uint8

const (
	TagUtf8               Tag = 1
	TagInteger            Tag = 3
	TagFloat              Tag = 4
	TagLong               Tag = 5
	TagDouble             Tag = 6
	TagClass              Tag = 7
	TagString             Tag = 8
	TagFieldref           Tag = 9
	TagMethodref          Tag = 10
	TagInterfaceMethodref Tag = 11
	TagNameAndType        Tag = 12
	TagMethodHandle       Tag = 15
	TagMethodType         Tag = 16
	TagDynamic            Tag = 17
	TagInvokeDynamic      Tag = 18
	TagModule             Tag = 19
	TagPackage            Tag = 20
)

// Constant is one constant pool slot.
//
// Raw holds the entry exactly as it was encoded, tag byte included. The
// slot following a Long or Double is unusable and has Tag 0 and no Raw.
type Constant struct {
	Tag  Tag
	Raw  []byte
	Text []byte    // Utf8 payload, modified UTF-8
	Refs [2]uint16 // pool indices carried by the entry, in encoding order
}

// Pool is a constant pool indexed by position. Slot 0 is unused.
type Pool []Constant

func (p Pool) entry(i uint16, tag Tag) (Constant, bool) {
	if i == 0 || int(i) >= len(p) || p[i].Tag != tag {
		return Constant{}, false
	}
	return p[i], true
}

// Utf8 returns the raw bytes of a Utf8 entry.
func (p Pool) Utf8(i uint16) ([]byte, bool) {
	c, ok := p.entry(i, TagUtf8)
	return c.Text, ok
}

// Text decodes a Utf8 entry. Returns "" if i is not a Utf8 entry.
func (p Pool) Text(i uint16) string {
	b, ok := p.Utf8(i)
	if !ok {
		return ""
	}
	return classfmt.DecodeModifiedUTF8(b)
}

// StringTarget resolves a String entry to the Utf8 slot holding its text.
func (p Pool) StringTarget(i uint16) (uint16, bool) {
	c, ok := p.entry(i, TagString)
	if !ok {
		return 0, false
	}
	if _, ok := p.Utf8(c.Refs[0]); !ok {
		return 0, false
	}
	return c.Refs[0], true
}

// ClassName returns the internal (slash separated) name of a Class entry.
func (p Pool) ClassName(i uint16) string {
	c, ok := p.entry(i, TagClass)
	if !ok {
		return ""
	}
	return p.Text(c.Refs[0])
}

// NameAndType returns the name and descriptor of a NameAndType entry.
func (p Pool) NameAndType(i uint16) (name, descriptor string) {
	c, ok := p.entry(i, TagNameAndType)
	if !ok {
		return "", ""
	}
	return p.Text(c.Refs[0]), p.Text(c.Refs[1])
}

// MemberRef resolves a Fieldref, Methodref, InterfaceMethodref or
// InvokeDynamic entry. Owner is empty for InvokeDynamic.
func (p Pool) MemberRef(i uint16) (owner, name, descriptor string, ok bool) {
	if i == 0 || int(i) >= len(p) {
		return "", "", "", false
	}
	c := p[i]
	switch c.Tag {
	case TagFieldref, TagMethodref, TagInterfaceMethodref:
		owner = p.ClassName(c.Refs[0])
	case TagInvokeDynamic, TagDynamic:
	default:
		return "", "", "", false
	}
	name, descriptor = p.NameAndType(c.Refs[1])
	return owner, name, descriptor, true
}

// Attribute locates one attribute within the class bytes.
type Attribute struct {
	NameIndex uint16
	Offset    int // offset of the attribute payload
	Length    int
}

// Member is a field or method header.
type Member struct {
	AccessFlags     uint16
	NameIndex       uint16
	DescriptorIndex uint16
	Attributes      []Attribute
}

// Method is a decoded method with its code array, if it has one.
type Method struct {
	Member
	Name       string
	Descriptor string
	Code       []byte
	CodeOffset int // offset of Code[0] within the class bytes; -1 if abstract/native
}

// HasCode reports whether the method carries a Code attribute.
func (m *Method) HasCode() bool { return m.CodeOffset >= 0 }

// ClassFile is a decoded class.
type ClassFile struct {
	Minor, Major uint16
	Pool         Pool
	AccessFlags  uint16
	ThisClass    uint16
	SuperClass   uint16
	Interfaces   []uint16
	Fields       []Member
	Methods      []Method

	// Tail is every byte after the constant pool, reproduced verbatim on
	// encode.
	Tail []byte

	// symbolic marks Utf8 slots used as names, descriptors or attribute
	// names rather than (only) as string literal text.
	symbolic map[uint16]bool
	// stringUsers lists the String entries pointing at each Utf8 slot.
	stringUsers map[uint16][]uint16
	// opaque is set when some attribute payload was not understood; any
	// Utf8 slot may be referenced from it.
	opaque bool
}

// Name returns the internal name of this class, e.g. "com/example/App".
func (cf *ClassFile) Name() string {
	return cf.Pool.ClassName(cf.ThisClass)
}

// QualifiedName returns the dotted class name.
func (cf *ClassFile) QualifiedName() string {
	return strings.ReplaceAll(cf.Name(), "/", ".")
}

// SimpleName returns the class name without its package.
func (cf *ClassFile) SimpleName() string {
	n := cf.Name()
	if i := strings.LastIndexByte(n, '/'); i >= 0 {
		return n[i+1:]
	}
	return n
}

// IsSymbolic reports whether a Utf8 slot may be referenced other than as
// string literal text. Every slot counts as symbolic in a class carrying an
// attribute the decoder does not understand.
func (cf *ClassFile) IsSymbolic(utf8 uint16) bool {
	return cf.opaque || cf.symbolic[utf8]
}
