package classfile

import (
	"errors"
	"fmt"

	"jarstrings/internal/classfmt"
)

// plainAttributes reference no Utf8 slot directly. Their pool references
// (Class, NameAndType, loadable constants) are tracked through the pool.
var plainAttributes = map[string]bool{
	"Code":                 true, // nested attributes are walked by code()
	"ConstantValue":        true,
	"Exceptions":           true,
	"LineNumberTable":      true,
	"StackMapTable":        true,
	"Deprecated":           true,
	"Synthetic":            true,
	"SourceDebugExtension": true,
	"EnclosingMethod":      true,
	"NestHost":             true,
	"NestMembers":          true,
	"PermittedSubclasses":  true,
	"BootstrapMethods":     true,
	"ModuleMainClass":      true,
	"ModulePackages":       true,
}

// maxNesting bounds annotation and Record attribute nesting.
const maxNesting = 64

var errUnknownAttribute = errors.New("attribute not understood")

// scanAttribute marks the Utf8 slots an attribute payload refers to as
// symbolic. When the payload cannot be fully accounted for the class is
// marked opaque and no Utf8 slot is rewritten in place.
func (cf *ClassFile) scanAttribute(name string, payload []byte, depth int) {
	if plainAttributes[name] {
		return
	}
	w := &attrWalker{cf: cf, s: classfmt.NewStream(payload), depth: depth}
	if err := w.walk(name); err != nil || w.s.Remaining() != 0 {
		cf.opaque = true
	}
}

type attrWalker struct {
	cf    *ClassFile
	s     *classfmt.Stream
	depth int
}

func (w *attrWalker) walk(name string) error {
	if w.depth > maxNesting {
		return fmt.Errorf("%s: nested too deep", name)
	}
	switch name {
	case "SourceFile", "Signature":
		return w.utf8(false)
	case "InnerClasses":
		return w.table16(func() error {
			if err := w.s.Skip(4); err != nil { // inner and outer class
				return err
			}
			if err := w.utf8(true); err != nil {
				return err
			}
			return w.s.Skip(2)
		})
	case "LocalVariableTable", "LocalVariableTypeTable":
		return w.table16(func() error {
			if err := w.s.Skip(4); err != nil { // start_pc, length
				return err
			}
			if err := w.utf8(false); err != nil {
				return err
			}
			if err := w.utf8(false); err != nil {
				return err
			}
			return w.s.Skip(2)
		})
	case "MethodParameters":
		return w.table8(func() error {
			if err := w.utf8(true); err != nil {
				return err
			}
			return w.s.Skip(2)
		})
	case "RuntimeVisibleAnnotations", "RuntimeInvisibleAnnotations":
		return w.annotations()
	case "RuntimeVisibleParameterAnnotations", "RuntimeInvisibleParameterAnnotations":
		return w.table8(w.annotations)
	case "RuntimeVisibleTypeAnnotations", "RuntimeInvisibleTypeAnnotations":
		return w.table16(w.typeAnnotation)
	case "AnnotationDefault":
		return w.elementValue(0)
	case "Record":
		return w.table16(w.recordComponent)
	}
	return fmt.Errorf("%s: %w", name, errUnknownAttribute)
}

// utf8 reads a u2 Utf8 index and marks it. optional allows index 0.
func (w *attrWalker) utf8(optional bool) error {
	i, err := w.s.ReadU2()
	if err != nil {
		return err
	}
	if i == 0 && optional {
		return nil
	}
	if _, ok := w.cf.Pool.Utf8(i); !ok {
		return fmt.Errorf("#%d is not Utf8", i)
	}
	w.cf.symbolic[i] = true
	return nil
}

func (w *attrWalker) table16(fn func() error) error {
	n, err := w.s.ReadU2()
	if err != nil {
		return err
	}
	return repeat(int(n), fn)
}

func (w *attrWalker) table8(fn func() error) error {
	n, err := w.s.ReadU1()
	if err != nil {
		return err
	}
	return repeat(int(n), fn)
}

func repeat(n int, fn func() error) error {
	for range n {
		if err := fn(); err != nil {
			return err
		}
	}
	return nil
}

func (w *attrWalker) annotations() error {
	return w.table16(func() error { return w.annotation(0) })
}

func (w *attrWalker) annotation(depth int) error {
	if err := w.utf8(false); err != nil { // type descriptor
		return err
	}
	return w.table16(func() error {
		if err := w.utf8(false); err != nil { // element name
			return err
		}
		return w.elementValue(depth)
	})
}

func (w *attrWalker) elementValue(depth int) error {
	if depth > maxNesting {
		return errors.New("element value nested too deep")
	}
	tag, err := w.s.ReadU1()
	if err != nil {
		return err
	}
	switch tag {
	case 'B', 'C', 'D', 'F', 'I', 'J', 'S', 'Z':
		return w.s.Skip(2)
	case 's', 'c':
		return w.utf8(false)
	case 'e':
		if err := w.utf8(false); err != nil {
			return err
		}
		return w.utf8(false)
	case '@':
		return w.annotation(depth + 1)
	case '[':
		return w.table16(func() error { return w.elementValue(depth + 1) })
	}
	return fmt.Errorf("element value tag %q", tag)
}

func (w *attrWalker) typeAnnotation() error {
	target, err := w.s.ReadU1()
	if err != nil {
		return err
	}
	var skip int
	switch {
	case target == 0x00, target == 0x01, target == 0x16:
		skip = 1
	case target == 0x10, target == 0x11, target == 0x12, target == 0x17:
		skip = 2
	case target >= 0x13 && target <= 0x15:
	case target == 0x40, target == 0x41:
		n, err := w.s.ReadU2()
		if err != nil {
			return err
		}
		skip = 6 * int(n)
	case target >= 0x42 && target <= 0x46:
		skip = 2
	case target >= 0x47 && target <= 0x4B:
		skip = 3
	default:
		return fmt.Errorf("type annotation target 0x%02x", target)
	}
	if err := w.s.Skip(skip); err != nil {
		return err
	}
	pathLen, err := w.s.ReadU1()
	if err != nil {
		return err
	}
	if err := w.s.Skip(2 * int(pathLen)); err != nil {
		return err
	}
	return w.annotation(0)
}

func (w *attrWalker) recordComponent() error {
	if err := w.utf8(false); err != nil { // name
		return err
	}
	if err := w.utf8(false); err != nil { // descriptor
		return err
	}
	return w.table16(func() error {
		i, err := w.s.ReadU2()
		if err != nil {
			return err
		}
		if _, ok := w.cf.Pool.Utf8(i); !ok {
			return fmt.Errorf("attribute name #%d is not Utf8", i)
		}
		w.cf.symbolic[i] = true
		n, err := w.s.ReadU4()
		if err != nil {
			return err
		}
		if int64(n) > int64(w.s.Remaining()) {
			return classfmt.ErrStreamEOF
		}
		payload, err := w.s.ReadBytes(int(n))
		if err != nil {
			return err
		}
		w.cf.scanAttribute(w.cf.Pool.Text(i), payload, w.depth+1)
		return nil
	})
}
