package classtest

import (
	"archive/zip"
	"bytes"
	"time"
)

// Entry is one file of a test archive.
type Entry struct {
	Name  string
	Data  []byte
	Store bool   // no compression
	Extra []byte // raw extra field blocks
}

// Jar zips entries in order with a fixed timestamp.
func Jar(entries ...Entry) []byte {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, e := range entries {
		h := &zip.FileHeader{
			Name:           e.Name,
			Method:         zip.Deflate,
			Modified:       time.Date(2024, 1, 2, 3, 4, 6, 0, time.UTC),
			Extra:          e.Extra,
			CreatorVersion: 3 << 8, // Unix host
		}
		if e.Store {
			h.Method = zip.Store
		}
		w, err := zw.CreateHeader(h)
		if err != nil {
			panic(err)
		}
		if _, err := w.Write(e.Data); err != nil {
			panic(err)
		}
	}
	if err := zw.Close(); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// Manifest is a minimal META-INF/MANIFEST.MF entry.
func Manifest() Entry {
	return Entry{Name: "META-INF/MANIFEST.MF", Data: []byte("Manifest-Version: 1.0\r\nCreated-By: classtest\r\n\r\n")}
}
