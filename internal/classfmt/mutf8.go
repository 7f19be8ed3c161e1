package classfmt

import (
	"strings"
	"unicode/utf16"
	"unicode/utf8"
)

// MaxUTF8Length is the largest byte length a CONSTANT_Utf8 entry can carry
// in its u2 length prefix.
const MaxUTF8Length = 0xFFFF

// DecodeModifiedUTF8 converts the modified UTF-8 form used by class files
// into a Go string. NUL is encoded as C0 80 and supplementary characters as
// surrogate pairs of three-byte sequences. Malformed sequences and unpaired
// surrogates decode to U+FFFD.
func DecodeModifiedUTF8(b []byte) string {
	var sb strings.Builder
	sb.Grow(len(b))
	for i := 0; i < len(b); {
		c, n := decodeUnit(b[i:])
		i += n
		if utf16.IsSurrogate(c) {
			if c < 0xDC00 && i < len(b) {
				lo, m := decodeUnit(b[i:])
				if r := utf16.DecodeRune(c, lo); r != utf8.RuneError {
					sb.WriteRune(r)
					i += m
					continue
				}
			}
			sb.WriteRune(utf8.RuneError)
			continue
		}
		sb.WriteRune(c)
	}
	return sb.String()
}

// decodeUnit decodes one 1-3 byte sequence into a UTF-16 code unit.
func decodeUnit(b []byte) (rune, int) {
	c := b[0]
	switch {
	case c < 0x80:
		return rune(c), 1
	case c&0xE0 == 0xC0:
		if len(b) < 2 || b[1]&0xC0 != 0x80 {
			return utf8.RuneError, 1
		}
		return rune(c&0x1F)<<6 | rune(b[1]&0x3F), 2
	case c&0xF0 == 0xE0:
		if len(b) < 3 || b[1]&0xC0 != 0x80 || b[2]&0xC0 != 0x80 {
			return utf8.RuneError, 1
		}
		return rune(c&0x0F)<<12 | rune(b[1]&0x3F)<<6 | rune(b[2]&0x3F), 3
	}
	return utf8.RuneError, 1
}

// EncodeModifiedUTF8 converts s into the class file's modified UTF-8 form.
func EncodeModifiedUTF8(s string) []byte {
	out := make([]byte, 0, len(s))
	for _, r := range s {
		if r > 0xFFFF {
			hi, lo := utf16.EncodeRune(r)
			out = appendUnit(out, hi)
			out = appendUnit(out, lo)
			continue
		}
		out = appendUnit(out, r)
	}
	return out
}

func appendUnit(out []byte, c rune) []byte {
	switch {
	case c != 0 && c < 0x80:
		return append(out, byte(c))
	case c < 0x800:
		return append(out, 0xC0|byte(c>>6), 0x80|byte(c&0x3F))
	}
	return append(out, 0xE0|byte(c>>12), 0x80|byte((c>>6)&0x3F), 0x80|byte(c&0x3F))
}

// ModifiedUTF8Len returns the encoded byte length of s without allocating.
func ModifiedUTF8Len(s string) int {
	n := 0
	for _, r := range s {
		switch {
		case r != 0 && r < 0x80:
			n++
		case r < 0x800:
			n += 2
		case r > 0xFFFF:
			n += 6
		default:
			n += 3
		}
	}
	return n
}
