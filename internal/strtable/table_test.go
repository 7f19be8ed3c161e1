package strtable

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fill(t *testing.T, values ...string) *Table {
	t.Helper()
	tbl := New()
	for i, v := range values {
		require.NoError(t, tbl.Append(FoundString{ID: i, Entry: "A.class", Value: v}))
	}
	return tbl
}

func TestTableAppendGet(t *testing.T) {
	tbl := fill(t, "Hello", "World")
	assert.Equal(t, 2, tbl.Len())

	row, ok := tbl.Get(1)
	require.True(t, ok)
	assert.Equal(t, "World", row.Value)
	assert.Equal(t, "World", row.Original)

	_, ok = tbl.Get(5)
	assert.False(t, ok)

	err := tbl.Append(FoundString{ID: 1, Value: "dup"})
	assert.ErrorIs(t, err, ErrDuplicateID)
	assert.Equal(t, 2, tbl.Len())
}

func TestTableUpdate(t *testing.T) {
	tbl := fill(t, "Hello", "World")

	changed, err := tbl.Update(0, "Hello")
	require.NoError(t, err)
	assert.False(t, changed)
	row, _ := tbl.Get(0)
	assert.False(t, row.Changed, "same text leaves the row unchanged")
	assert.Empty(t, tbl.Changed())

	changed, err = tbl.Update(0, "Hi")
	require.NoError(t, err)
	assert.True(t, changed)
	row, _ = tbl.Get(0)
	assert.Equal(t, "Hi", row.Value)
	assert.Equal(t, "Hello", row.Original)
	assert.True(t, row.Changed)

	// Reverting keeps the changed mark.
	_, err = tbl.Update(0, "Hello")
	require.NoError(t, err)
	row, _ = tbl.Get(0)
	assert.True(t, row.Changed)

	require.Len(t, tbl.Changed(), 1)
	assert.Equal(t, 0, tbl.Changed()[0].ID)

	_, err = tbl.Update(42, "x")
	assert.ErrorIs(t, err, ErrUnknownID)
}

func TestTableSnapshotIsolated(t *testing.T) {
	tbl := fill(t, "a", "b")
	snap := tbl.Snapshot()
	snap[0].Value = "mutated"
	row, _ := tbl.Get(0)
	assert.Equal(t, "a", row.Value)
}

func TestTableConcurrent(t *testing.T) {
	tbl := New()
	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				id := w*100 + i
				_ = tbl.Append(FoundString{ID: id, Value: fmt.Sprint(id)})
				_, _ = tbl.Update(id, "x")
				for _, r := range tbl.Snapshot() {
					if r.Changed && r.Value != "x" {
						t.Errorf("torn row %+v", r)
						return
					}
				}
			}
		}(w)
	}
	wg.Wait()
	assert.Equal(t, 400, tbl.Len())
	assert.Len(t, tbl.Changed(), 400)
}
