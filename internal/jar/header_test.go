package jar

import (
	"archive/zip"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestReplacementHeader(t *testing.T) {
	custom := []byte{0xfe, 0xca, 0, 0}
	zip64 := []byte{0x01, 0x00, 8, 0, 1, 2, 3, 4, 5, 6, 7, 8}
	extTime := []byte{0x55, 0x54, 5, 0, 1, 0, 0, 0, 0}
	mod := time.Date(2024, 1, 2, 3, 4, 6, 0, time.UTC)

	f := &zip.File{FileHeader: zip.FileHeader{
		Name:               "A.class",
		CreatorVersion:     3<<8 | 20,
		Method:             zip.Deflate,
		Modified:           mod,
		CRC32:              0xdeadbeef,
		CompressedSize64:   10,
		UncompressedSize64: 20,
		Extra:              append(append(append([]byte{}, zip64...), custom...), extTime...),
	}}
	h := replacementHeader(f)
	assert.Equal(t, custom, h.Extra)
	assert.Equal(t, uint16(3<<8|20), h.CreatorVersion)
	assert.Zero(t, h.CRC32)
	assert.Zero(t, h.CompressedSize64)
	assert.Zero(t, h.UncompressedSize64)
	assert.Equal(t, mod, h.Modified)
	assert.Equal(t, uint32(0xdeadbeef), f.CRC32, "source header untouched")

	// Without an extended timestamp only the MS-DOS fields carry the time.
	f.Extra = custom
	h = replacementHeader(f)
	assert.True(t, h.Modified.IsZero())
	assert.Equal(t, custom, h.Extra)
}

func TestWalkExtraTruncated(t *testing.T) {
	var ids []uint16
	walkExtra([]byte{0x34, 0x12, 0, 0, 0x01, 0x00, 9, 0, 1}, func(id uint16, _ []byte) {
		ids = append(ids, id)
	})
	assert.Equal(t, []uint16{0x1234}, ids)
}
