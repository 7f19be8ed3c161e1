// Package jar reads class entries from a JAR archive and writes a copy with
// some entries replaced.
package jar

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/minio/highwayhash"
	"github.com/viant/afs"
)

var (
	ErrMalformedArchive = errors.New("jar: malformed archive")
	ErrNoEntry          = errors.New("jar: entry not found")
)

// ClassSuffix marks entries holding class files.
const ClassSuffix = ".class"

// Archive is an opened JAR held in memory.
type Archive struct {
	data  []byte
	zr    *zip.Reader
	files map[string]*zip.File
}

// Open parses data as a zip archive.
func Open(data []byte) (*Archive, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedArchive, err)
	}
	a := &Archive{data: data, zr: zr, files: make(map[string]*zip.File, len(zr.File))}
	for _, f := range zr.File {
		if _, dup := a.files[f.Name]; !dup {
			a.files[f.Name] = f
		}
	}
	return a, nil
}

// Size returns the archive length in bytes.
func (a *Archive) Size() int { return len(a.data) }

// Digest hashes the archive bytes as read.
func (a *Archive) Digest() (uint64, error) { return Digest(a.data) }

// Entries returns entry names in archive order. Directories are omitted.
func (a *Archive) Entries() []string {
	names := make([]string, 0, len(a.zr.File))
	for _, f := range a.zr.File {
		if strings.HasSuffix(f.Name, "/") {
			continue
		}
		names = append(names, f.Name)
	}
	return names
}

// Classes returns the names of class entries in archive order.
func (a *Archive) Classes() []string {
	var names []string
	for _, n := range a.Entries() {
		if strings.HasSuffix(n, ClassSuffix) {
			names = append(names, n)
		}
	}
	return names
}

// ReadEntry returns the uncompressed bytes of one entry.
func (a *Archive) ReadEntry(name string) ([]byte, error) {
	f, ok := a.files[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoEntry, name)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("jar: open %s: %w", name, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("jar: read %s: %w", name, err)
	}
	return data, nil
}

// Write produces a new archive in which the named entries are replaced by
// the given bytes. All other entries, including the manifest, are copied
// without recompression. Entry order and the archive comment are kept.
func (a *Archive) Write(replacements map[string][]byte) ([]byte, error) {
	for name := range replacements {
		if _, ok := a.files[name]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrNoEntry, name)
		}
	}

	var buf bytes.Buffer
	buf.Grow(len(a.data))
	zw := zip.NewWriter(&buf)
	if err := zw.SetComment(a.zr.Comment); err != nil {
		return nil, fmt.Errorf("jar: comment: %w", err)
	}

	written := make(map[string]bool, len(replacements))
	for _, f := range a.zr.File {
		data, replace := replacements[f.Name]
		if !replace || written[f.Name] {
			if err := zw.Copy(f); err != nil {
				return nil, fmt.Errorf("jar: copy %s: %w", f.Name, err)
			}
			continue
		}
		written[f.Name] = true
		w, err := zw.CreateHeader(replacementHeader(f))
		if err != nil {
			return nil, fmt.Errorf("jar: create %s: %w", f.Name, err)
		}
		if _, err := w.Write(data); err != nil {
			return nil, fmt.Errorf("jar: write %s: %w", f.Name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("jar: close: %w", err)
	}
	return buf.Bytes(), nil
}

// Extra field blocks that zip.Writer regenerates.
const (
	extraZip64   = 0x0001
	extraExtTime = 0x5455
)

// replacementHeader copies the header of f for rewritten content. Sizes and
// CRC are cleared for the writer to fill in; everything else is kept.
func replacementHeader(f *zip.File) *zip.FileHeader {
	h := f.FileHeader
	h.CRC32 = 0
	h.CompressedSize = 0
	h.UncompressedSize = 0
	h.CompressedSize64 = 0
	h.UncompressedSize64 = 0

	hasExtTime := false
	var extra []byte
	walkExtra(f.Extra, func(id uint16, block []byte) {
		switch id {
		case extraExtTime:
			hasExtTime = true
		case extraZip64:
		default:
			extra = append(extra, block...)
		}
	})
	h.Extra = extra
	if !hasExtTime {
		// MS-DOS time only; the writer adds an extended timestamp otherwise.
		h.Modified = time.Time{}
	}
	return &h
}

// walkExtra calls fn for each id/size block of a zip extra field, block
// header included. A truncated trailing block is ignored.
func walkExtra(extra []byte, fn func(id uint16, block []byte)) {
	for len(extra) >= 4 {
		id := binary.LittleEndian.Uint16(extra)
		n := 4 + int(binary.LittleEndian.Uint16(extra[2:]))
		if n > len(extra) {
			return
		}
		fn(id, extra[:n])
		extra = extra[n:]
	}
}

var digestKey = []byte("jarstrings-archive-digest-key-32")

// Digest returns a 64-bit HighwayHash of data.
func Digest(data []byte) (uint64, error) {
	h, err := highwayhash.New64(digestKey)
	if err != nil {
		return 0, err
	}
	_, err = h.Write(data)
	return h.Sum64(), err
}

// Fetch downloads an archive from a local path or any URL scheme the
// storage layer understands.
func Fetch(ctx context.Context, url string) ([]byte, error) {
	fs := afs.New()
	data, err := fs.DownloadWithURL(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("jar: fetch %s: %w", url, err)
	}
	return data, nil
}

// Store uploads data to url.
func Store(ctx context.Context, url string, data []byte) error {
	fs := afs.New()
	if err := fs.Upload(ctx, url, 0o644, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("jar: store %s: %w", url, err)
	}
	return nil
}

// OutputName derives the default output location for an input archive:
// "app.jar" becomes "app.translated.jar".
func OutputName(input string) string {
	base, ext := splitExt(input)
	if ext == "" {
		ext = ".jar"
	}
	return base + ".translated" + ext
}

// ReportName derives the default report location: "app.jar" becomes
// "app.strings.html".
func ReportName(input string) string {
	base, _ := splitExt(input)
	return base + ".strings.html"
}

func splitExt(name string) (base, ext string) {
	if i := strings.LastIndex(name, "."); i > strings.LastIndex(name, "/") {
		return name[:i], name[i:]
	}
	return name, ""
}
