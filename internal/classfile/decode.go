package classfile

import (
	"bytes"
	"errors"
	"fmt"

	"jarstrings/internal/classfmt"
)

// Decode parses a class file. The input is copied; the returned ClassFile
// does not alias data.
func Decode(data []byte) (*ClassFile, error) {
	buf := bytes.Clone(data)
	d := &decoder{s: classfmt.NewStream(buf), cf: &ClassFile{
		symbolic:    make(map[uint16]bool),
		stringUsers: make(map[uint16][]uint16),
	}}
	if err := d.decode(); err != nil {
		switch {
		case errors.Is(err, ErrMalformed):
			return nil, err
		case errors.Is(err, classfmt.ErrStreamEOF):
			return nil, fmt.Errorf("%w: truncated at offset %d", ErrMalformed, d.s.Position())
		}
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return d.cf, nil
}

type decoder struct {
	s  *classfmt.Stream
	cf *ClassFile
}

func malformedf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformed, fmt.Sprintf(format, args...))
}

func (d *decoder) decode() error {
	s, cf := d.s, d.cf
	magic, err := s.ReadU4()
	if err != nil {
		return err
	}
	if magic != Magic {
		return malformedf("bad magic 0x%08x", magic)
	}
	if cf.Minor, err = s.ReadU2(); err != nil {
		return err
	}
	if cf.Major, err = s.ReadU2(); err != nil {
		return err
	}
	if err := d.decodePool(); err != nil {
		return err
	}
	tailStart := s.Position()

	if cf.AccessFlags, err = s.ReadU2(); err != nil {
		return err
	}
	if cf.ThisClass, err = d.ref(TagClass); err != nil {
		return err
	}
	if cf.SuperClass, err = s.ReadU2(); err != nil {
		return err
	}
	if cf.SuperClass != 0 && !d.valid(cf.SuperClass, TagClass) {
		return malformedf("super_class #%d is not a Class", cf.SuperClass)
	}
	n, err := s.ReadU2()
	if err != nil {
		return err
	}
	cf.Interfaces = make([]uint16, n)
	for i := range cf.Interfaces {
		if cf.Interfaces[i], err = d.ref(TagClass); err != nil {
			return err
		}
	}

	if n, err = s.ReadU2(); err != nil {
		return err
	}
	cf.Fields = make([]Member, n)
	for i := range cf.Fields {
		if cf.Fields[i], err = d.member(); err != nil {
			return err
		}
	}

	if n, err = s.ReadU2(); err != nil {
		return err
	}
	cf.Methods = make([]Method, n)
	for i := range cf.Methods {
		if err := d.method(&cf.Methods[i]); err != nil {
			return err
		}
	}

	if _, err := d.attributes(); err != nil {
		return err
	}
	// Trailing bytes past the last attribute are kept too.
	cf.Tail = s.Slice(tailStart, s.Position()+s.Remaining())
	return nil
}

func (d *decoder) decodePool() error {
	s, cf := d.s, d.cf
	count, err := s.ReadU2()
	if err != nil {
		return err
	}
	if count == 0 {
		return malformedf("constant_pool_count is 0")
	}
	cf.Pool = make(Pool, count)
	for i := 1; i < int(count); i++ {
		start := s.Position()
		tag, err := s.ReadU1()
		if err != nil {
			return err
		}
		c := Constant{Tag: Tag(tag)}
		wide := false
		switch c.Tag {
		case TagUtf8:
			n, err := s.ReadU2()
			if err != nil {
				return err
			}
			if c.Text, err = s.ReadBytes(int(n)); err != nil {
				return err
			}
		case TagInteger, TagFloat:
			err = s.Skip(4)
		case TagLong, TagDouble:
			err = s.Skip(8)
			wide = true
		case TagClass, TagString, TagMethodType, TagModule, TagPackage:
			c.Refs[0], err = s.ReadU2()
		case TagFieldref, TagMethodref, TagInterfaceMethodref, TagNameAndType, TagDynamic, TagInvokeDynamic:
			if c.Refs[0], err = s.ReadU2(); err == nil {
				c.Refs[1], err = s.ReadU2()
			}
		case TagMethodHandle:
			if err = s.Skip(1); err == nil {
				c.Refs[1], err = s.ReadU2()
			}
		default:
			return malformedf("unknown constant tag %d at #%d", tag, i)
		}
		if err != nil {
			return err
		}
		c.Raw = s.Slice(start, s.Position())
		cf.Pool[i] = c
		if wide {
			// Eight-byte constants take two slots.
			i++
			if i >= int(count) {
				return malformedf("8-byte constant at #%d overruns the pool", i-1)
			}
		}
	}
	return d.checkPool()
}

// checkPool validates cross-references and records Utf8 usage.
func (d *decoder) checkPool() error {
	cf := d.cf
	for i, c := range cf.Pool {
		idx := uint16(i)
		switch c.Tag {
		case TagString:
			if !d.valid(c.Refs[0], TagUtf8) {
				return malformedf("String #%d points at #%d, not Utf8", i, c.Refs[0])
			}
			cf.stringUsers[c.Refs[0]] = append(cf.stringUsers[c.Refs[0]], idx)
		case TagClass, TagMethodType, TagModule, TagPackage:
			if !d.valid(c.Refs[0], TagUtf8) {
				return malformedf("entry #%d points at #%d, not Utf8", i, c.Refs[0])
			}
			cf.symbolic[c.Refs[0]] = true
		case TagNameAndType:
			if !d.valid(c.Refs[0], TagUtf8) || !d.valid(c.Refs[1], TagUtf8) {
				return malformedf("NameAndType #%d has a bad reference", i)
			}
			cf.symbolic[c.Refs[0]] = true
			cf.symbolic[c.Refs[1]] = true
		case TagFieldref, TagMethodref, TagInterfaceMethodref:
			if !d.valid(c.Refs[0], TagClass) || !d.valid(c.Refs[1], TagNameAndType) {
				return malformedf("member ref #%d has a bad reference", i)
			}
		case TagDynamic, TagInvokeDynamic:
			if !d.valid(c.Refs[1], TagNameAndType) {
				return malformedf("dynamic #%d has a bad reference", i)
			}
		case TagMethodHandle:
			if !d.inRange(c.Refs[1]) {
				return malformedf("MethodHandle #%d reference #%d out of range", i, c.Refs[1])
			}
		}
	}
	return nil
}

func (d *decoder) inRange(i uint16) bool {
	return i != 0 && int(i) < len(d.cf.Pool)
}

func (d *decoder) valid(i uint16, tag Tag) bool {
	return d.inRange(i) && d.cf.Pool[i].Tag == tag
}

// ref reads a u2 pool index that must hold an entry of the given kind.
func (d *decoder) ref(tag Tag) (uint16, error) {
	i, err := d.s.ReadU2()
	if err != nil {
		return 0, err
	}
	if !d.valid(i, tag) {
		return 0, malformedf("index #%d at offset %d is not tag %d", i, d.s.Position()-2, tag)
	}
	return i, nil
}

func (d *decoder) member() (Member, error) {
	var m Member
	var err error
	if m.AccessFlags, err = d.s.ReadU2(); err != nil {
		return m, err
	}
	if m.NameIndex, err = d.ref(TagUtf8); err != nil {
		return m, err
	}
	if m.DescriptorIndex, err = d.ref(TagUtf8); err != nil {
		return m, err
	}
	d.cf.symbolic[m.NameIndex] = true
	d.cf.symbolic[m.DescriptorIndex] = true
	m.Attributes, err = d.attributes()
	return m, err
}

func (d *decoder) method(m *Method) error {
	mem, err := d.member()
	if err != nil {
		return err
	}
	m.Member = mem
	m.Name = d.cf.Pool.Text(mem.NameIndex)
	m.Descriptor = d.cf.Pool.Text(mem.DescriptorIndex)
	m.CodeOffset = -1
	for _, a := range mem.Attributes {
		if d.cf.Pool.Text(a.NameIndex) != "Code" {
			continue
		}
		if m.HasCode() {
			return malformedf("method %s%s has two Code attributes", m.Name, m.Descriptor)
		}
		if err := d.code(m, a); err != nil {
			return err
		}
	}
	return nil
}

// code parses a Code attribute payload. The stream position is restored to
// the end of the enclosing attribute afterwards.
func (d *decoder) code(m *Method, a Attribute) error {
	s := d.s
	resume := s.Position()
	end := a.Offset + a.Length
	if err := s.SetPosition(a.Offset); err != nil {
		return err
	}
	if err := s.Skip(4); err != nil { // max_stack, max_locals
		return err
	}
	n, err := s.ReadU4()
	if err != nil {
		return err
	}
	if n == 0 || int64(n) > int64(a.Length) {
		return malformedf("method %s%s: code_length %d", m.Name, m.Descriptor, n)
	}
	m.CodeOffset = s.Position()
	if err := s.Skip(int(n)); err != nil {
		return err
	}
	m.Code = s.Slice(m.CodeOffset, s.Position())
	exc, err := s.ReadU2()
	if err != nil {
		return err
	}
	if err := s.Skip(int(exc) * 8); err != nil {
		return err
	}
	if _, err := d.attributes(); err != nil {
		return err
	}
	if s.Position() != end {
		return malformedf("method %s%s: Code attribute length mismatch", m.Name, m.Descriptor)
	}
	return s.SetPosition(resume)
}

func (d *decoder) attributes() ([]Attribute, error) {
	s := d.s
	n, err := s.ReadU2()
	if err != nil {
		return nil, err
	}
	attrs := make([]Attribute, n)
	for i := range attrs {
		if attrs[i].NameIndex, err = d.ref(TagUtf8); err != nil {
			return nil, err
		}
		d.cf.symbolic[attrs[i].NameIndex] = true
		length, err := s.ReadU4()
		if err != nil {
			return nil, err
		}
		if int64(length) > int64(s.Remaining()) {
			return nil, classfmt.ErrStreamEOF
		}
		attrs[i].Offset = s.Position()
		attrs[i].Length = int(length)
		end := attrs[i].Offset + attrs[i].Length
		d.cf.scanAttribute(d.cf.Pool.Text(attrs[i].NameIndex), s.Slice(attrs[i].Offset, end), 0)
		if err := s.Skip(int(length)); err != nil {
			return nil, err
		}
	}
	return attrs, nil
}
