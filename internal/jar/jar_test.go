package jar_test

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jarstrings/internal/classtest"
	"jarstrings/internal/jar"
)

func sample() []byte {
	return classtest.Jar(
		classtest.Manifest(),
		classtest.Entry{Name: "com/"},
		classtest.Entry{Name: "com/A.class", Data: []byte("class A"), Extra: []byte{0x34, 0x12, 2, 0, 'h', 'i'}},
		classtest.Entry{Name: "com/B.class", Data: []byte("class B"), Store: true},
		classtest.Entry{Name: "res/strings.txt", Data: []byte("hello")},
	)
}

func TestOpenAndRead(t *testing.T) {
	data := sample()
	a, err := jar.Open(data)
	require.NoError(t, err)
	assert.Equal(t, len(data), a.Size())

	assert.Equal(t, []string{"META-INF/MANIFEST.MF", "com/A.class", "com/B.class", "res/strings.txt"}, a.Entries())
	assert.Equal(t, []string{"com/A.class", "com/B.class"}, a.Classes())

	entry, err := a.ReadEntry("com/B.class")
	require.NoError(t, err)
	assert.Equal(t, "class B", string(entry))

	_, err = a.ReadEntry("missing.class")
	assert.True(t, errors.Is(err, jar.ErrNoEntry))
}

func TestOpenMalformed(t *testing.T) {
	for _, data := range [][]byte{nil, []byte("PK\x03\x04 not really"), bytes.Repeat([]byte{0xff}, 64)} {
		_, err := jar.Open(data)
		assert.True(t, errors.Is(err, jar.ErrMalformedArchive), "input %q", data)
	}
}

func TestWriteReplacesOnlyNamedEntries(t *testing.T) {
	a, err := jar.Open(sample())
	require.NoError(t, err)

	out, err := a.Write(map[string][]byte{"com/A.class": []byte("class A'")})
	require.NoError(t, err)

	b, err := jar.Open(out)
	require.NoError(t, err)
	assert.Equal(t, a.Entries(), b.Entries())

	for _, name := range a.Entries() {
		want, err := a.ReadEntry(name)
		require.NoError(t, err)
		if name == "com/A.class" {
			want = []byte("class A'")
		}
		got, err := b.ReadEntry(name)
		require.NoError(t, err)
		assert.Equal(t, want, got, name)
	}

	zr, err := zip.NewReader(bytes.NewReader(out), int64(len(out)))
	require.NoError(t, err)
	methods := map[string]uint16{}
	for _, f := range zr.File {
		methods[f.Name] = f.Method
	}
	assert.Equal(t, zip.Store, methods["com/B.class"])
	assert.Equal(t, zip.Deflate, methods["com/A.class"])
	assert.Contains(t, methods, "com/")
}

func TestWriteKeepsReplacedEntryHeader(t *testing.T) {
	a, err := jar.Open(sample())
	require.NoError(t, err)
	out, err := a.Write(map[string][]byte{"com/A.class": []byte("class A, longer")})
	require.NoError(t, err)

	header := func(data []byte, name string) zip.FileHeader {
		zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
		require.NoError(t, err)
		for _, f := range zr.File {
			if f.Name == name {
				return f.FileHeader
			}
		}
		t.Fatalf("%s not found", name)
		return zip.FileHeader{}
	}
	before := header(sample(), "com/A.class")
	after := header(out, "com/A.class")

	assert.Equal(t, before.Extra, after.Extra, "custom block kept, extended timestamp not duplicated")
	assert.Equal(t, before.CreatorVersion, after.CreatorVersion)
	assert.Equal(t, before.ExternalAttrs, after.ExternalAttrs)
	assert.True(t, before.Modified.Equal(after.Modified))
	assert.Equal(t, before.Method, after.Method)
	assert.Equal(t, uint64(len("class A, longer")), after.UncompressedSize64)
}

func TestWriteNoReplacementsKeepsContent(t *testing.T) {
	a, err := jar.Open(sample())
	require.NoError(t, err)
	out, err := a.Write(nil)
	require.NoError(t, err)
	b, err := jar.Open(out)
	require.NoError(t, err)
	assert.Equal(t, a.Entries(), b.Entries())
}

func TestWriteUnknownEntry(t *testing.T) {
	a, err := jar.Open(sample())
	require.NoError(t, err)
	_, err = a.Write(map[string][]byte{"nope.class": nil})
	assert.True(t, errors.Is(err, jar.ErrNoEntry))
}

func TestDigest(t *testing.T) {
	d1, err := jar.Digest([]byte("abc"))
	require.NoError(t, err)
	d2, err := jar.Digest([]byte("abc"))
	require.NoError(t, err)
	d3, err := jar.Digest([]byte("abd"))
	require.NoError(t, err)
	assert.Equal(t, d1, d2)
	assert.NotEqual(t, d1, d3)

	data := sample()
	a, err := jar.Open(data)
	require.NoError(t, err)
	want, err := jar.Digest(data)
	require.NoError(t, err)
	got, err := a.Digest()
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestFetchStoreLocal(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "out.jar")
	data := sample()

	require.NoError(t, jar.Store(ctx, path, data))
	got, err := jar.Fetch(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestOutputName(t *testing.T) {
	tests := []struct{ in, want string }{
		{"app.jar", "app.translated.jar"},
		{"/tmp/x/app.zip", "/tmp/x/app.translated.zip"},
		{"app", "app.translated.jar"},
		{"dir.v1/app", "dir.v1/app.translated.jar"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, jar.OutputName(tt.in), tt.in)
	}
	assert.Equal(t, "/tmp/app.strings.html", jar.ReportName("/tmp/app.jar"))
	assert.Equal(t, "app.strings.html", jar.ReportName("app"))
}
