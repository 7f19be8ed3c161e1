package output

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jarstrings/internal/bytecode"
	"jarstrings/internal/strtable"
)

func TestDisplay(t *testing.T) {
	tests := []struct {
		in        string
		max       int
		want      string
		truncated bool
	}{
		{"plain", 0, "plain", false},
		{"a\nb\tc", 0, `a\nb\tc`, false},
		{"abcdef", 3, "abc", true},
		{"ééé", 3, "é", true}, // never splits a rune
		{"abc", 3, "abc", false},
	}
	for _, tt := range tests {
		got, truncated := Display(tt.in, tt.max)
		assert.Equal(t, tt.want, got, tt.in)
		assert.Equal(t, tt.truncated, truncated, tt.in)
	}
}

func rows() []strtable.FoundString {
	return []strtable.FoundString{
		{ID: 0, Value: "Hello", Context: bytecode.Context{SimpleClass: "Greeter", Method: "greet", Descriptor: "()V", Offset: 3}},
		{ID: 1, Value: "line\nbreak", Changed: true},
	}
}

func TestWriteStringsText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteStringsText(&buf, rows(), 4))
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "Greeter.greet()V+3")
	assert.True(t, strings.HasSuffix(lines[0], `"Hell"...`), lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "    1*"), lines[1])
}

func TestWriteStringsJSONL(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteStringsJSONL(&buf, rows()))

	sc := bufio.NewScanner(&buf)
	var got []strtable.FoundString
	for sc.Scan() {
		var fs strtable.FoundString
		require.NoError(t, json.Unmarshal(sc.Bytes(), &fs))
		got = append(got, fs)
	}
	require.Len(t, got, 2)
	assert.Equal(t, "line\nbreak", got[1].Value)
	assert.True(t, got[1].Changed)
}

func TestWriteFiles(t *testing.T) {
	dir := t.TempDir()

	require.NoError(t, WriteJSON(filepath.Join(dir, "stats.json"), map[string]int{"strings": 2}))
	data, err := os.ReadFile(filepath.Join(dir, "stats.json"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"strings": 2}`, string(data))

	path, err := WriteDOT(dir, "cfg/Greeter", "digraph {}")
	require.NoError(t, err)
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "digraph {}", string(data))

	insts := []bytecode.Inst{{Offset: 0, Opcode: 0xb1, Size: 1}}
	require.NoError(t, WriteASM(dir, "com/example/Greeter/greet", insts))
	data, err = os.ReadFile(filepath.Join(dir, "asm", "com/example/Greeter/greet.txt"))
	require.NoError(t, err)
	assert.Equal(t, "     0  return\n", string(data))
}

func TestSafeName(t *testing.T) {
	assert.Equal(t, "a.B.run__Ljava/lang/String__V", SafeName("a.B.run:(Ljava/lang/String;)V"))
	assert.Equal(t, "Outer_Inner._init____V", SafeName("Outer$Inner.<init>:()V"))
}

func TestWriteReportHTML(t *testing.T) {
	rows := []strtable.FoundString{
		{ID: 0, Class: "com.example.A", Method: "run", Value: "Save <all>", Kinds: []string{"text"}, Changed: true},
		{ID: 1, Class: "com.example.A", Method: "run", Value: "https://example.com", Kinds: []string{"url"}},
		{ID: 2, Class: "com.example.B", Method: "init", Value: "Cancel", Kinds: []string{"text"}},
	}
	var buf bytes.Buffer
	err := WriteReportHTML(&buf, Report{
		Title:   "app.jar",
		Archive: "/tmp/app.jar",
		Digest:  0xabc,
		Entries: 3,
		Skipped: []string{"bad/C.class: truncated"},
		Rows:    rows,
	}, NASA)
	require.NoError(t, err)

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "<!DOCTYPE html>"))
	assert.Contains(t, out, "<title>app.jar</title>")
	assert.Contains(t, out, "0000000000000abc")
	assert.Contains(t, out, "Save &lt;all&gt;")
	assert.NotContains(t, out, "Save <all>")
	assert.Contains(t, out, `<tr class="changed">`)
	assert.Contains(t, out, "bad/C.class: truncated")
	assert.Contains(t, out, `<tr><td>text</td><td class="num">2</td>`)
	assert.Less(t, strings.Index(out, "com.example.A</td>"), strings.Index(out, "com.example.B</td>"), "classes by count")
	assert.True(t, strings.HasSuffix(out, "</body></html>\n"))
}

type failWriter struct{ n int }

func (f *failWriter) Write(p []byte) (int, error) {
	f.n++
	return 0, os.ErrClosed
}

func TestWriteReportHTMLStopsOnError(t *testing.T) {
	fw := &failWriter{}
	err := WriteReportHTML(fw, Report{Title: "x"}, NASA)
	assert.ErrorIs(t, err, os.ErrClosed)
	assert.Equal(t, 1, fw.n)
}
