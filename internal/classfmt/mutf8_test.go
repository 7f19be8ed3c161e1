package classfmt

import (
	"bytes"
	"testing"
)

func TestModifiedUTF8Encode(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []byte
	}{
		{"ascii", "Hi", []byte("Hi")},
		{"nul", "a\x00b", []byte{'a', 0xC0, 0x80, 'b'}},
		{"two byte", "é", []byte{0xC3, 0xA9}},
		{"three byte", "€", []byte{0xE2, 0x82, 0xAC}},
		// U+1F600 → D83D DE00, each as a 3-byte sequence.
		{"supplementary", "😀", []byte{0xED, 0xA0, 0xBD, 0xED, 0xB8, 0x80}},
		{"empty", "", []byte{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EncodeModifiedUTF8(tt.in)
			if !bytes.Equal(got, tt.want) {
				t.Errorf("EncodeModifiedUTF8(%q) = % x, want % x", tt.in, got, tt.want)
			}
			if n := ModifiedUTF8Len(tt.in); n != len(tt.want) {
				t.Errorf("ModifiedUTF8Len(%q) = %d, want %d", tt.in, n, len(tt.want))
			}
			if back := DecodeModifiedUTF8(got); back != tt.in {
				t.Errorf("DecodeModifiedUTF8 = %q, want %q", back, tt.in)
			}
		})
	}
}

func TestModifiedUTF8DecodeMalformed(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
		want string
	}{
		{"truncated two byte", []byte{'a', 0xC3}, "a�"},
		{"bad continuation", []byte{0xE2, 0x41, 0x42}, "�AB"},
		{"lone high surrogate", []byte{0xED, 0xA0, 0xBD, 'x'}, "�x"},
		{"lone low surrogate", []byte{0xED, 0xB8, 0x80}, "�"},
		{"stray continuation", []byte{0x80}, "�"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DecodeModifiedUTF8(tt.in); got != tt.want {
				t.Errorf("DecodeModifiedUTF8(% x) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func FuzzModifiedUTF8(f *testing.F) {
	f.Add("Hello")
	f.Add("a\x00b")
	f.Add("日本語😀")
	f.Fuzz(func(t *testing.T, s string) {
		enc := EncodeModifiedUTF8(s)
		if bytes.IndexByte(enc, 0) >= 0 {
			t.Fatalf("encoded form of %q contains a raw NUL", s)
		}
		if len(enc) != ModifiedUTF8Len(s) {
			t.Fatalf("length mismatch for %q", s)
		}
		// Go strings may carry invalid UTF-8; those bytes round-trip as U+FFFD.
		want := string([]rune(s))
		if got := DecodeModifiedUTF8(enc); got != want {
			t.Fatalf("round trip %q -> %q", want, got)
		}
	})
}
